package storage

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/zhaojunwei/campus-companion/backend/internal/config"
)

// Open 连接 sqlite 并迁移表结构。
func Open(cfg config.StorageConfig) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite at %s: %w", cfg.DSN, err)
	}

	if err := db.AutoMigrate(&userRow{}, &historyRow{}, &emotionRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return db, nil
}

// userRow 用户表。
type userRow struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Username  string    `gorm:"size:64;uniqueIndex"`
	Password  string    `gorm:"size:128"`
	CreatedAt time.Time
}

func (userRow) TableName() string { return "users" }

// historyRow 每个用户一份聊天记录文档，turns 为 JSON 编码的消息序列。
type historyRow struct {
	UserID    string `gorm:"primaryKey;size:36"`
	Turns     string `gorm:"type:text"`
	UpdatedAt time.Time
}

func (historyRow) TableName() string { return "chat_history" }

// emotionRow 情绪分析追加日志。
type emotionRow struct {
	ID         string    `gorm:"primaryKey;size:36"`
	UserID     string    `gorm:"size:36;index"`
	Timestamp  time.Time `gorm:"index"`
	Message    string    `gorm:"type:text"`
	Label      string    `gorm:"size:16"`
	Confidence float64
}

func (emotionRow) TableName() string { return "emotion_data" }
