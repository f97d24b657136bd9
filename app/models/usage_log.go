package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ResourceTypeAIRequest = "ai_request"
	ResourceTypeAPICall   = "api_call"
	ResourceTypeStorage   = "storage"
)

// UsageLog is an append-only event per metered action. Rows are never mutated
// or deleted by the application; closed periods are archived to object
// storage as a copy.
type UsageLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UUID         string    `gorm:"type:varchar(36);not null;uniqueIndex" json:"uuid"`
	UserID       uint      `gorm:"not null;index:idx_usage_logs_user_created,priority:1" json:"user_id"`
	ResourceType string    `gorm:"type:varchar(32);not null;index" json:"resource_type"`
	ResourceID   string    `gorm:"type:varchar(100);default:''" json:"resource_id"`
	Quantity     int64     `gorm:"not null;default:1" json:"quantity"`
	Metadata     string    `gorm:"type:longtext" json:"metadata"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index:idx_usage_logs_user_created,priority:2;index" json:"created_at"`
}

// BeforeCreate assigns the event UUID when the caller did not.
func (l *UsageLog) BeforeCreate(tx *gorm.DB) error {
	if l.UUID == "" {
		l.UUID = uuid.New().String()
	}
	return nil
}
