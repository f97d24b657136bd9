package repository

import (
	"fmt"
	"time"

	"github.com/MarcusHaas/NeuraDesk/app/models"
	"gorm.io/gorm"
)

// usageLogRepository implements the UsageLogRepository interface
type usageLogRepository struct {
	db *gorm.DB
}

// NewUsageLogRepository creates a new usage log repository instance
func NewUsageLogRepository(db *gorm.DB) UsageLogRepository {
	return &usageLogRepository{db: db}
}

func (r *usageLogRepository) Create(entry *models.UsageLog) error {
	return r.db.Create(entry).Error
}

func (r *usageLogRepository) GetByUserID(userID uint, offset, limit int) ([]models.UsageLog, error) {
	var entries []models.UsageLog
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *usageLogRepository) CountByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.UsageLog{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *usageLogRepository) CountByUserIDSince(userID uint, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.UsageLog{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}

// GetDailyStats returns daily metered-request counts for a date range
func (r *usageLogRepository) GetDailyStats(startDate, endDate time.Time) ([]models.DailyStats, error) {
	var results []struct {
		Date  string `json:"date"`
		Count int64  `json:"count"`
	}

	err := r.db.Model(&models.UsageLog{}).
		Select("DATE_FORMAT(created_at, '%Y-%m-%d') as date, COUNT(*) as count").
		Where("created_at BETWEEN ? AND ? AND resource_type = ?", startDate, endDate, models.ResourceTypeAIRequest).
		Group("DATE_FORMAT(created_at, '%Y-%m-%d')").
		Order("date").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get daily usage stats: %w", err)
	}

	dailyStats := make([]models.DailyStats, len(results))
	for i, result := range results {
		dailyStats[i] = models.DailyStats{
			Date:  result.Date,
			Count: int(result.Count),
		}
	}

	return dailyStats, nil
}
