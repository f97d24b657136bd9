package quota

import (
	"fmt"
	"time"

	"github.com/MarcusHaas/NeuraDesk/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations on usage quota rows. All mutation of
// quota state in the application goes through this interface.
type Repository interface {
	GetByUserID(userID uint) (*models.UsageQuota, error)
	CreateIfAbsent(q *models.UsageQuota) error
	IncrementUsed(userID uint, n int64) error
	UpdateLimit(userID uint, limit int64) error
	Reset(userID uint, limit int64, resetAt time.Time) error
	SetWarningFlagIfUnset(userID uint, threshold int) (bool, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a quota repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetByUserID(userID uint) (*models.UsageQuota, error) {
	var q models.UsageQuota
	if err := r.db.Where("user_id = ?", userID).First(&q).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

// CreateIfAbsent inserts the row unless one already exists for the user.
// The insert-or-ignore runs as a single statement against the unique user_id
// index so concurrent first use cannot produce duplicate rows.
func (r *gormRepository) CreateIfAbsent(q *models.UsageQuota) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(q).Error
}

// IncrementUsed adds n to the counter with DB-side arithmetic so concurrent
// increments for the same user are never lost to a stale read.
func (r *gormRepository) IncrementUsed(userID uint, n int64) error {
	tx := r.db.Model(&models.UsageQuota{}).
		Where("user_id = ?", userID).
		UpdateColumn("ai_requests_used", gorm.Expr("ai_requests_used + ?", n))
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("quota row missing for user %d", userID)
	}
	return nil
}

func (r *gormRepository) UpdateLimit(userID uint, limit int64) error {
	return r.db.Model(&models.UsageQuota{}).
		Where("user_id = ?", userID).
		UpdateColumn("ai_requests_limit", limit).Error
}

func (r *gormRepository) Reset(userID uint, limit int64, resetAt time.Time) error {
	return r.db.Model(&models.UsageQuota{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"ai_requests_used":  0,
			"ai_requests_limit": limit,
			"reset_at":          resetAt,
			"warning80_sent":    false,
			"warning90_sent":    false,
			"warning100_sent":   false,
		}).Error
}

// SetWarningFlagIfUnset flips a warning flag with a conditional update and
// reports whether this call claimed it. Two concurrent callers can both see
// the flag unset, but only one update matches the WHERE clause.
func (r *gormRepository) SetWarningFlagIfUnset(userID uint, threshold int) (bool, error) {
	column, err := warningColumn(threshold)
	if err != nil {
		return false, err
	}
	tx := r.db.Model(&models.UsageQuota{}).
		Where("user_id = ? AND "+column+" = ?", userID, false).
		Update(column, true)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func warningColumn(threshold int) (string, error) {
	switch threshold {
	case 80:
		return "warning80_sent", nil
	case 90:
		return "warning90_sent", nil
	case 100:
		return "warning100_sent", nil
	default:
		return "", fmt.Errorf("unsupported warning threshold %d", threshold)
	}
}
