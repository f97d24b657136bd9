package archive

import (
	"time"

	"gorm.io/gorm"

	"github.com/MarcusHaas/NeuraDesk/app/models"
)

// gormLogSource reads closed-month usage log pages straight from the
// database. The archive job wires it up itself so the queue worker does not
// have to depend on the repository layer.
type gormLogSource struct {
	db *gorm.DB
}

// NewGormLogSource creates a LogSource backed by the usage_logs table.
func NewGormLogSource(db *gorm.DB) LogSource {
	return &gormLogSource{db: db}
}

func (s *gormLogSource) ListBetween(start, end time.Time, offset, limit int) ([]models.UsageLog, error) {
	var entries []models.UsageLog
	err := s.db.Where("created_at >= ? AND created_at < ?", start, end).
		Order("id ASC").
		Offset(offset).Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (s *gormLogSource) CountBetween(start, end time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&models.UsageLog{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&count).Error
	return count, err
}
