package models

import "time"

// UnlimitedAIRequests is the sentinel limit for plans that are not metered.
const UnlimitedAIRequests int64 = -1

// UsageQuota holds the per-user AI request counter for the current billing
// period. At most one row exists per user; creation goes through an
// insert-if-absent upsert so concurrent first use cannot produce duplicates.
// AIRequestsUsed only ever moves forward between resets and is incremented
// with a DB-side arithmetic update, never read-modify-write.
type UsageQuota struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	AIRequestsUsed  int64     `gorm:"not null;default:0" json:"ai_requests_used"`
	AIRequestsLimit int64     `gorm:"not null;default:0" json:"ai_requests_limit"`
	ResetAt         time.Time `gorm:"type:timestamp;not null" json:"reset_at"`
	Warning80Sent   bool      `gorm:"default:false" json:"warning80_sent"`
	Warning90Sent   bool      `gorm:"default:false" json:"warning90_sent"`
	Warning100Sent  bool      `gorm:"default:false" json:"warning100_sent"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsStale reports whether the monthly period has elapsed and the row must be
// reset before any further check or increment.
func (q *UsageQuota) IsStale(now time.Time) bool {
	return !now.Before(q.ResetAt)
}

// Remaining returns the requests left in the period, never negative.
// Unlimited quotas report the sentinel unchanged.
func (q *UsageQuota) Remaining() int64 {
	if q.AIRequestsLimit == UnlimitedAIRequests {
		return UnlimitedAIRequests
	}
	if r := q.AIRequestsLimit - q.AIRequestsUsed; r > 0 {
		return r
	}
	return 0
}

// UsagePercent returns used/limit as a rounded percentage capped at 100.
func (q *UsageQuota) UsagePercent() int {
	if q.AIRequestsLimit <= 0 {
		return 0
	}
	pct := int((q.AIRequestsUsed*100 + q.AIRequestsLimit/2) / q.AIRequestsLimit)
	if pct > 100 {
		return 100
	}
	return pct
}
