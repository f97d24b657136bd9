package models

import "time"

// DailyStats represents an aggregated count for a single day
type DailyStats struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ModelUsageStat is a per-model daily request counter, flushed in batch from
// the Redis counter buffer.
type ModelUsageStat struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Model     string    `gorm:"type:varchar(100);not null;index:ux_model_usage_stats_model_date,unique,priority:1" json:"model"`
	Date      string    `gorm:"type:varchar(10);not null;index:ux_model_usage_stats_model_date,unique,priority:2" json:"date"`
	Count     int64     `gorm:"not null;default:0" json:"count"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
