package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	usermodel "github.com/zhaojunwei/campus-companion/backend/internal/model/user"
)

// UserStore implements user.Store on GORM.
type UserStore struct {
	db *gorm.DB
}

var _ usermodel.Store = (*UserStore)(nil)

// NewUserStore wraps the shared database handle.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// Create rejects duplicate usernames regardless of password.
func (s *UserStore) Create(ctx context.Context, username, password string) (usermodel.User, error) {
	var existing userRow
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&existing).Error
	if err == nil {
		return usermodel.User{}, usermodel.ErrUsernameTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return usermodel.User{}, fmt.Errorf("failed to check username: %w", err)
	}

	row := userRow{
		ID:       uuid.NewString(),
		Username: username,
		Password: password,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return usermodel.User{}, usermodel.ErrUsernameTaken
		}
		return usermodel.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return toUser(row), nil
}

// FindByUsername looks a user up by login name.
func (s *UserStore) FindByUsername(ctx context.Context, username string) (usermodel.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return usermodel.User{}, usermodel.ErrNotFound
		}
		return usermodel.User{}, fmt.Errorf("failed to find user: %w", err)
	}
	return toUser(row), nil
}

// FindByID looks a user up by identifier.
func (s *UserStore) FindByID(ctx context.Context, id string) (usermodel.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return usermodel.User{}, usermodel.ErrNotFound
		}
		return usermodel.User{}, fmt.Errorf("failed to find user: %w", err)
	}
	return toUser(row), nil
}

func toUser(row userRow) usermodel.User {
	return usermodel.User{
		ID:        row.ID,
		Username:  row.Username,
		Password:  row.Password,
		CreatedAt: row.CreatedAt,
	}
}
