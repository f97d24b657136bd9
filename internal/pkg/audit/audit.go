package audit

import (
	"encoding/json"
	"log"

	"github.com/MarcusHaas/NeuraDesk/app/models"
	"gorm.io/gorm"
)

// Recorder appends entries to the audit trail. Recording is best-effort from
// the callers' point of view: implementations log failures and never return
// them into business code paths.
type Recorder interface {
	Record(actorUserID *uint, action, entityType, entityID string, detail interface{})
}

type gormRecorder struct {
	db *gorm.DB
}

// NewRecorder creates an audit recorder backed by GORM.
func NewRecorder(db *gorm.DB) Recorder {
	return &gormRecorder{db: db}
}

func (r *gormRecorder) Record(actorUserID *uint, action, entityType, entityID string, detail interface{}) {
	entry := &models.AuditLog{
		ActorUserID: actorUserID,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
	}
	if detail != nil {
		raw, err := json.Marshal(detail)
		if err != nil {
			log.Printf("[Audit] marshal detail for %s failed: %v", action, err)
		} else {
			entry.DetailJSON = string(raw)
		}
	}
	if err := r.db.Create(entry).Error; err != nil {
		log.Printf("[Audit] recording %s on %s/%s failed: %v", action, entityType, entityID, err)
	}
}

type nopRecorder struct{}

// NewNopRecorder returns a recorder that discards everything. Used in tests
// and tools that run without a database.
func NewNopRecorder() Recorder {
	return nopRecorder{}
}

func (nopRecorder) Record(*uint, string, string, string, interface{}) {}
