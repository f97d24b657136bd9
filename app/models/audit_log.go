package models

import "time"

const (
	AuditSubscriptionCreated  = "subscription.created"
	AuditSubscriptionUpdated  = "subscription.updated"
	AuditSubscriptionCanceled = "subscription.canceled"
	AuditQuotaReset           = "quota.reset"
	AuditWorkspaceCreated     = "workspace.created"
	AuditMemberAdded          = "workspace.member_added"
	AuditMemberRemoved        = "workspace.member_removed"
)

// AuditLog is an append-only trail of security and billing relevant actions.
// ActorUserID is nil for system-initiated actions such as webhook processing.
type AuditLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ActorUserID *uint     `gorm:"index;default:null" json:"actor_user_id,omitempty"`
	Action      string    `gorm:"type:varchar(100);not null;index" json:"action"`
	EntityType  string    `gorm:"type:varchar(50);not null;index:idx_audit_logs_entity,priority:1" json:"entity_type"`
	EntityID    string    `gorm:"type:varchar(191);not null;index:idx_audit_logs_entity,priority:2" json:"entity_id"`
	DetailJSON  string    `gorm:"type:longtext" json:"detail_json"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
