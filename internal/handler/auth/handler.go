package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhaojunwei/campus-companion/backend/internal/auth"
	usermodel "github.com/zhaojunwei/campus-companion/backend/internal/model/user"
	"github.com/zhaojunwei/campus-companion/backend/pkg/utils"
)

// Handler 认证相关的HTTP处理器
type Handler struct {
	users    usermodel.Store
	sessions *auth.Manager
}

// New 创建认证处理器
func New(users usermodel.Store, sessions *auth.Manager) *Handler {
	return &Handler{users: users, sessions: sessions}
}

// RegisterRoutes 注册认证相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)

	r.Group(func(pr chi.Router) {
		pr.Use(h.sessions.Middleware)
		pr.Get("/user", h.handleCurrentUser)
	})
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleRegister 注册新用户
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload credentials
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payload.Username = strings.TrimSpace(payload.Username)
	if payload.Username == "" || payload.Password == "" {
		utils.RespondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	created, err := h.users.Create(r.Context(), payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, usermodel.ErrUsernameTaken) {
			utils.RespondError(w, http.StatusBadRequest, "username already taken")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]string{
		"id":       created.ID,
		"username": created.Username,
	})
}

// handleLogin 校验凭证并下发会话cookie
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload credentials
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	existing, err := h.users.FindByUsername(r.Context(), payload.Username)
	if err != nil || existing.Password != payload.Password {
		utils.RespondError(w, http.StatusBadRequest, "invalid username or password")
		return
	}

	token := h.sessions.Issue(existing.ID)
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Login successful"})
}

// handleLogout 撤销会话并清除cookie
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.CookieName); err == nil {
		h.sessions.Revoke(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// handleCurrentUser 返回当前登录用户
func (h *Handler) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "user not authenticated")
		return
	}

	existing, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "user not found")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"id":       existing.ID,
		"username": existing.Username,
	})
}
