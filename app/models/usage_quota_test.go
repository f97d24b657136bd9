package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUsageQuotaRemaining(t *testing.T) {
	tests := []struct {
		name  string
		used  int64
		limit int64
		want  int64
	}{
		{name: "fresh", used: 0, limit: 25, want: 25},
		{name: "partial", used: 10, limit: 25, want: 15},
		{name: "exhausted", used: 25, limit: 25, want: 0},
		{name: "over", used: 30, limit: 25, want: 0},
		{name: "unlimited", used: 0, limit: UnlimitedAIRequests, want: UnlimitedAIRequests},
	}

	for _, tt := range tests {
		q := &UsageQuota{AIRequestsUsed: tt.used, AIRequestsLimit: tt.limit}
		assert.Equal(t, tt.want, q.Remaining(), tt.name)
	}
}

func TestUsageQuotaUsagePercent(t *testing.T) {
	tests := []struct {
		used  int64
		limit int64
		want  int
	}{
		{used: 0, limit: 100, want: 0},
		{used: 79, limit: 100, want: 79},
		{used: 80, limit: 100, want: 80},
		{used: 1, limit: 3, want: 33},
		{used: 2, limit: 3, want: 67},
		{used: 150, limit: 100, want: 100},
		{used: 5, limit: UnlimitedAIRequests, want: 0},
	}

	for _, tt := range tests {
		q := &UsageQuota{AIRequestsUsed: tt.used, AIRequestsLimit: tt.limit}
		assert.Equal(t, tt.want, q.UsagePercent())
	}
}

func TestUsageQuotaIsStale(t *testing.T) {
	resetAt := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	q := &UsageQuota{ResetAt: resetAt}

	assert.False(t, q.IsStale(resetAt.Add(-time.Second)))
	assert.True(t, q.IsStale(resetAt))
	assert.True(t, q.IsStale(resetAt.Add(time.Hour)))
}

func TestSubscriptionValidateScope(t *testing.T) {
	uid := uint(1)
	wid := uint(2)

	assert.NoError(t, (&Subscription{UserID: &uid}).ValidateScope())
	assert.NoError(t, (&Subscription{WorkspaceID: &wid}).ValidateScope())
	assert.ErrorIs(t, (&Subscription{}).ValidateScope(), ErrSubscriptionScope)
	assert.ErrorIs(t, (&Subscription{UserID: &uid, WorkspaceID: &wid}).ValidateScope(), ErrSubscriptionScope)
}

func TestRoleRank(t *testing.T) {
	ordered := []string{ROLE_VIEWER, ROLE_MEMBER, ROLE_EDITOR, ROLE_MODERATOR, ROLE_ADMIN}
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, RoleRank(ordered[i]), RoleRank(ordered[i-1]))
	}
	assert.Equal(t, -1, RoleRank("unknown"))
}
