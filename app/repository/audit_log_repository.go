package repository

import (
	"github.com/MarcusHaas/NeuraDesk/app/models"
	"gorm.io/gorm"
)

// auditLogRepository implements the AuditLogRepository interface
type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository creates a new audit log repository instance
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) List(offset, limit int) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&entries).Error
	return entries, err
}

func (r *auditLogRepository) ListByEntity(entityType, entityID string, limit int) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	err := r.db.Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *auditLogRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.AuditLog{}).Count(&count).Error
	return count, err
}
