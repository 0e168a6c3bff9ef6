package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	chatmodel "github.com/zhaojunwei/campus-companion/backend/internal/model/chat"
	emotionmodel "github.com/zhaojunwei/campus-companion/backend/internal/model/emotion"
	"github.com/zhaojunwei/campus-companion/backend/internal/service/agent"
	emotionservice "github.com/zhaojunwei/campus-companion/backend/internal/service/emotion"
)

// historyWindow caps how many past turns feed the agent's context.
const historyWindow = 10

// Responder is the slice of the agent service the chat pipeline needs.
type Responder interface {
	Reply(ctx context.Context, in agent.Input) string
}

// Service orchestrates one chat turn: context assembly, emotion recording,
// agent invocation and history persistence.
type Service struct {
	histories chatmodel.Store
	emotions  *emotionservice.Service
	agent     Responder
}

// NewService wires the chat pipeline dependencies.
func NewService(histories chatmodel.Store, emotions *emotionservice.Service, responder Responder) *Service {
	return &Service{histories: histories, emotions: emotions, agent: responder}
}

// BuildContext renders the most recent turns plus the trailing cue for the
// new message. The leading newline before the cue is kept even when there is
// no history; downstream prompts were tuned against that exact shape.
func BuildContext(turns []chatmodel.Turn, newMessage string) string {
	window := turns
	if len(window) > historyWindow {
		window = window[len(window)-historyWindow:]
	}

	lines := make([]string, 0, len(window))
	for _, turn := range window {
		lines = append(lines, fmt.Sprintf("User: %s\nBot: %s", turn.User, turn.Bot))
	}

	return strings.Join(lines, "\n") + "\nUser: " + newMessage + "\nBot:"
}

// Respond runs one full chat turn and returns the bot reply. Agent failures
// degrade to the apology reply inside the Responder; only storage failures
// surface as errors.
func (s *Service) Respond(ctx context.Context, userID, text string, detected *emotionmodel.Result) (string, error) {
	history, err := s.histories.Find(ctx, userID)
	if err != nil && !errors.Is(err, chatmodel.ErrNotFound) {
		return "", err
	}

	conversationContext := BuildContext(history.Turns, text)

	label := "unknown"
	recordFailed := false
	if detected != nil {
		label = string(detected.Label)
		if err := s.emotions.Record(ctx, userID, text, *detected); err != nil {
			// Mirrors the engine-failure degradation: the turn still
			// completes, with the apology as the reply.
			log.Printf("[chat] failed to record emotion for user=%s: %v", userID, err)
			recordFailed = true
		}
	}

	var reply string
	if recordFailed {
		reply = agent.ApologyReply
	} else {
		reply = s.agent.Reply(ctx, agent.Input{
			Context:      conversationContext,
			UserMessage:  text,
			StudentIssue: text,
			Emotion:      label,
		})
	}

	if err := s.Append(ctx, userID, chatmodel.Turn{User: text, Bot: reply, Emotion: detected}); err != nil {
		return "", err
	}

	return reply, nil
}

// Context loads the user's history and assembles the agent context for the
// new message. Used by the streaming endpoint, which persists the turn
// itself once the stream completes.
func (s *Service) Context(ctx context.Context, userID, text string) (string, error) {
	history, err := s.histories.Find(ctx, userID)
	if err != nil && !errors.Is(err, chatmodel.ErrNotFound) {
		return "", err
	}
	return BuildContext(history.Turns, text), nil
}

// Append adds one turn via full replace-on-write. Concurrent appends for the
// same user race; the last writer wins.
func (s *Service) Append(ctx context.Context, userID string, turn chatmodel.Turn) error {
	history, err := s.histories.Find(ctx, userID)
	if err != nil && !errors.Is(err, chatmodel.ErrNotFound) {
		return err
	}

	return s.histories.Replace(ctx, userID, append(history.Turns, turn))
}

// History returns the full ordered turn sequence.
func (s *Service) History(ctx context.Context, userID string) ([]chatmodel.Turn, error) {
	history, err := s.histories.Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	return history.Turns, nil
}
