package chat_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	chatmodel "github.com/zhaojunwei/campus-companion/backend/internal/model/chat"
	emotionmodel "github.com/zhaojunwei/campus-companion/backend/internal/model/emotion"
	"github.com/zhaojunwei/campus-companion/backend/internal/service/agent"
	chatservice "github.com/zhaojunwei/campus-companion/backend/internal/service/chat"
	emotionservice "github.com/zhaojunwei/campus-companion/backend/internal/service/emotion"
)

type stubResponder struct {
	lastInput agent.Input
	reply     string
}

func (s *stubResponder) Reply(_ context.Context, in agent.Input) string {
	s.lastInput = in
	return s.reply
}

func newTestService(responder chatservice.Responder) (*chatservice.Service, *emotionservice.Service) {
	emotions := emotionservice.NewService(emotionmodel.NewMemoryStore())
	return chatservice.NewService(chatmodel.NewMemoryStore(), emotions, responder), emotions
}

func TestBuildContextEmptyHistory(t *testing.T) {
	got := chatservice.BuildContext(nil, "hello")
	want := "\nUser: hello\nBot:"
	if got != want {
		t.Fatalf("BuildContext(nil) = %q, want %q", got, want)
	}
}

func TestBuildContextRendersTurns(t *testing.T) {
	turns := []chatmodel.Turn{
		{User: "hi", Bot: "hello there"},
		{User: "how are you", Bot: "fine"},
	}

	got := chatservice.BuildContext(turns, "bye")
	want := "User: hi\nBot: hello there\nUser: how are you\nBot: fine\nUser: bye\nBot:"
	if got != want {
		t.Fatalf("BuildContext = %q, want %q", got, want)
	}
}

func TestBuildContextWindow(t *testing.T) {
	var turns []chatmodel.Turn
	for i := 0; i < 12; i++ {
		turns = append(turns, chatmodel.Turn{User: fmt.Sprintf("u%d", i), Bot: fmt.Sprintf("b%d", i)})
	}

	got := chatservice.BuildContext(turns, "next")
	want := "User: u2\nBot: b2"
	for i := 3; i < 12; i++ {
		want += fmt.Sprintf("\nUser: u%d\nBot: b%d", i, i)
	}
	want += "\nUser: next\nBot:"
	if got != want {
		t.Fatalf("window mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestRespondAppendsTurnsInOrder(t *testing.T) {
	responder := &stubResponder{reply: "first reply"}
	svc, _ := newTestService(responder)
	ctx := context.Background()

	reply, err := svc.Respond(ctx, "u1", "hello", nil)
	if err != nil {
		t.Fatalf("Respond err: %v", err)
	}
	if reply != "first reply" {
		t.Fatalf("unexpected reply %q", reply)
	}

	responder.reply = "second reply"
	if _, err := svc.Respond(ctx, "u1", "again", nil); err != nil {
		t.Fatalf("Respond err: %v", err)
	}

	turns, err := svc.History(ctx, "u1")
	if err != nil {
		t.Fatalf("History err: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].User != "hello" || turns[0].Bot != "first reply" {
		t.Fatalf("unexpected first turn %+v", turns[0])
	}
	if turns[1].User != "again" || turns[1].Bot != "second reply" {
		t.Fatalf("unexpected second turn %+v", turns[1])
	}
	if turns[0].Emotion != nil {
		t.Fatalf("text-only turn must carry no emotion, got %+v", turns[0].Emotion)
	}
}

func TestRespondPassesAgentInput(t *testing.T) {
	responder := &stubResponder{reply: "ok"}
	svc, _ := newTestService(responder)

	detected := &emotionmodel.Result{Label: emotionmodel.Happy, Confidence: 0.8}
	if _, err := svc.Respond(context.Background(), "u1", "I passed my exam", detected); err != nil {
		t.Fatalf("Respond err: %v", err)
	}

	in := responder.lastInput
	if in.Emotion != "happy" {
		t.Fatalf("expected emotion happy, got %q", in.Emotion)
	}
	if in.UserMessage != "I passed my exam" || in.StudentIssue != "I passed my exam" {
		t.Fatalf("message fields must both carry the user text: %+v", in)
	}
	if in.Context != "\nUser: I passed my exam\nBot:" {
		t.Fatalf("unexpected context %q", in.Context)
	}
}

func TestRespondRecordsDetectedEmotion(t *testing.T) {
	svc, emotions := newTestService(&stubResponder{reply: "ok"})
	ctx := context.Background()

	detected := &emotionmodel.Result{Label: emotionmodel.Sad, Confidence: 0.7}
	if _, err := svc.Respond(ctx, "u1", "rough day", detected); err != nil {
		t.Fatalf("Respond err: %v", err)
	}

	counts, err := emotions.Analytics(ctx, "u1")
	if err != nil {
		t.Fatalf("Analytics err: %v", err)
	}
	if counts[emotionmodel.Sad] != 1 {
		t.Fatalf("detected emotion must be recorded, got %v", counts)
	}

	turns, err := svc.History(ctx, "u1")
	if err != nil {
		t.Fatalf("History err: %v", err)
	}
	if turns[0].Emotion == nil || turns[0].Emotion.Label != emotionmodel.Sad {
		t.Fatalf("turn must carry the detected emotion, got %+v", turns[0].Emotion)
	}
}

func TestRespondUnknownEmotionLabel(t *testing.T) {
	responder := &stubResponder{reply: "ok"}
	svc, _ := newTestService(responder)

	if _, err := svc.Respond(context.Background(), "u1", "hi", nil); err != nil {
		t.Fatalf("Respond err: %v", err)
	}
	if responder.lastInput.Emotion != "unknown" {
		t.Fatalf("expected unknown emotion label, got %q", responder.lastInput.Emotion)
	}
}

func TestHistoryNotFound(t *testing.T) {
	svc, _ := newTestService(&stubResponder{reply: "ok"})

	if _, err := svc.History(context.Background(), "nobody"); !errors.Is(err, chatmodel.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
