package auth

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/zhaojunwei/campus-companion/backend/pkg/utils"
)

// CookieName 会话令牌 cookie 名称。
const CookieName = "session_token"

type contextKey int

const userIDKey contextKey = iota

// Manager issues and resolves opaque session tokens. Tokens live in process
// memory; restarting the server logs everyone out, which is acceptable here.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]string // token -> user id
}

// NewManager returns an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]string)}
}

// Issue mints a fresh opaque token for the user.
func (m *Manager) Issue(userID string) string {
	token := uuid.NewString()
	m.mu.Lock()
	m.sessions[token] = userID
	m.mu.Unlock()
	return token
}

// Resolve maps a token back to its user id.
func (m *Manager) Resolve(token string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	userID, ok := m.sessions[token]
	return userID, ok
}

// Revoke invalidates a token. Unknown tokens are ignored.
func (m *Manager) Revoke(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

// Middleware rejects requests without a valid session cookie and stashes the
// resolved user id in the request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err != nil || cookie.Value == "" {
			utils.RespondError(w, http.StatusUnauthorized, "user not authenticated")
			return
		}

		userID, ok := m.Resolve(cookie.Value)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "user not authenticated")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID extracts the authenticated user id placed by Middleware.
func UserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok
}
