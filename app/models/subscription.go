package models

import (
	"errors"
	"time"
)

const (
	SubscriptionStatusActive     = "active"
	SubscriptionStatusTrialing   = "trialing"
	SubscriptionStatusPastDue    = "past_due"
	SubscriptionStatusCanceled   = "canceled"
	SubscriptionStatusIncomplete = "incomplete"
	SubscriptionStatusExpired    = "expired"
	SubscriptionStatusPaused     = "paused"
)

// ErrSubscriptionScope is returned when a subscription names neither or both
// of user and workspace scope.
var ErrSubscriptionScope = errors.New("subscription must belong to exactly one of user or workspace")

// Subscription mirrors a Polar subscription and maps it to an internal plan.
// A subscription belongs to exactly one scope: a personal user subscription
// (UserID set) or a workspace subscription (WorkspaceID set). Rows are never
// hard-deleted; canceled subscriptions remain as history.
type Subscription struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	UserID              *uint      `gorm:"index;default:null" json:"user_id,omitempty"`
	WorkspaceID         *uint      `gorm:"index;default:null" json:"workspace_id,omitempty"`
	PolarSubscriptionID string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"polar_subscription_id"`
	PolarCustomerID     string     `gorm:"type:varchar(191);not null;index" json:"polar_customer_id"`
	PolarProductID      string     `gorm:"type:varchar(191);not null;index" json:"polar_product_id"`
	Plan                string     `gorm:"type:varchar(50);not null;default:'free';index" json:"plan"`
	Status              string     `gorm:"type:varchar(32);not null;default:'active';index" json:"status"`
	CurrentPeriodStart  *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd    *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd   bool       `gorm:"default:false" json:"cancel_at_period_end"`
	RawPayloadJSON      string     `gorm:"type:longtext" json:"raw_payload_json"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// ValidateScope enforces the user-XOR-workspace ownership invariant.
func (s *Subscription) ValidateScope() error {
	hasUser := s.UserID != nil && *s.UserID != 0
	hasWorkspace := s.WorkspaceID != nil && *s.WorkspaceID != 0
	if hasUser == hasWorkspace {
		return ErrSubscriptionScope
	}
	return nil
}

// IsPersonal reports whether the subscription is user-scoped.
func (s *Subscription) IsPersonal() bool {
	return s.UserID != nil && *s.UserID != 0
}
