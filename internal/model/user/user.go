package user

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUsernameTaken 表示注册时用户名已被占用。
	ErrUsernameTaken = errors.New("username already taken")
	// ErrNotFound 表示用户不存在。
	ErrNotFound = errors.New("user not found")
)

// User is created once at registration and immutable afterwards. The
// password is stored and compared as-is; hardening is out of scope here.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Store exposes user lookup and creation for the auth handlers.
type Store interface {
	Create(ctx context.Context, username, password string) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
}
