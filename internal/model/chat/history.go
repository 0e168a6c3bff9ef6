package chat

import (
	"context"
	"errors"

	"github.com/zhaojunwei/campus-companion/backend/internal/model/emotion"
)

// ErrNotFound 表示用户还没有任何聊天记录。
var ErrNotFound = errors.New("chat history not found")

// Turn captures one exchange: what the user said and what the bot replied,
// plus the emotion detected from the accompanying camera frame, if any.
type Turn struct {
	User    string          `json:"user"`
	Bot     string          `json:"bot"`
	Emotion *emotion.Result `json:"emotion,omitempty"`
}

// History is the per-user conversation document. Turns preserve insertion
// order; the context builder reads the most recent window from the tail.
type History struct {
	UserID string `json:"user_id"`
	Turns  []Turn `json:"messages"`
}

// Store persists one History document per user.
type Store interface {
	// Find returns the full ordered history, or ErrNotFound when the user
	// has never chatted.
	Find(ctx context.Context, userID string) (History, error)
	// Replace upserts the whole turn sequence for the user. This is a full
	// replace-on-write: concurrent chats for the same user race and the
	// last writer wins, which is an accepted limitation.
	Replace(ctx context.Context, userID string, turns []Turn) error
}
