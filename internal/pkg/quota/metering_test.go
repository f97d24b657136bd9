package quota

import (
	"errors"
	"testing"
	"time"

	"github.com/MarcusHaas/NeuraDesk/app/models"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/entitlements"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLogWriter struct {
	entries []*models.UsageLog
	err     error
}

func (f *fakeLogWriter) Append(entry *models.UsageLog) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

type fakeNotifier struct {
	calls []int64 // used counter at each call
}

func (f *fakeNotifier) NotifyThresholds(userID uint, q *models.UsageQuota) {
	f.calls = append(f.calls, q.AIRequestsUsed)
}

func newTestService(repo *fakeRepo, plan entitlements.Plan, now time.Time) (*Service, *fakeLogWriter, *fakeNotifier) {
	store := newTestStore(repo, plan, now)
	logs := &fakeLogWriter{}
	notifier := &fakeNotifier{}
	return NewService(store, staticPlans{plan: plan}, logs, notifier), logs, notifier
}

func TestTrackAndCheckAllowsUntilLimit(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	repo.rows[7] = &models.UsageQuota{
		UserID: 7, AIRequestsUsed: 23, AIRequestsLimit: 25,
		ResetAt: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}
	svc, logs, notifier := newTestService(repo, entitlements.PlanFree, now)

	r1, err := svc.TrackAndCheckAIRequest(7, map[string]interface{}{"model": "gpt-3.5-turbo"})
	require.NoError(t, err)
	assert.True(t, r1.Allowed)
	assert.Equal(t, int64(24), r1.Used)
	assert.Equal(t, int64(1), r1.Remaining)

	// The request that consumes the final unit is still served; the result
	// carries the post-increment counters.
	r2, err := svc.TrackAndCheckAIRequest(7, nil)
	require.NoError(t, err)
	assert.True(t, r2.Allowed)
	assert.Equal(t, int64(25), r2.Used)
	assert.Equal(t, int64(0), r2.Remaining)

	// Over the limit now: denied, nothing recorded.
	r3, err := svc.TrackAndCheckAIRequest(7, nil)
	require.NoError(t, err)
	assert.False(t, r3.Allowed)
	assert.Equal(t, int64(25), r3.Used)
	assert.Equal(t, int64(0), r3.Remaining)

	q, _ := repo.GetByUserID(7)
	assert.Equal(t, int64(25), q.AIRequestsUsed, "denied request must not increment")
	assert.Len(t, logs.entries, 2, "denied request must not be logged")
	assert.Len(t, notifier.calls, 2, "denied request must not notify")
}

// A downgrade from an unlimited plan can leave the row's limit at -1 until
// the billing webhook lands. The metering path must not read that marker as
// "nothing allowed": it repairs the limit from the effective plan and serves
// the request under the downgraded allowance.
func TestTrackAndCheckRepairsStaleUnlimitedRow(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	repo.rows[7] = &models.UsageQuota{
		UserID: 7, AIRequestsUsed: 0,
		AIRequestsLimit: entitlements.UnlimitedAIRequests,
		ResetAt:         time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}
	svc, _, _ := newTestService(repo, entitlements.PlanFree, now)

	result, err := svc.TrackAndCheckAIRequest(7, nil)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.False(t, result.Unlimited)
	assert.Equal(t, int64(25), result.Limit)
	assert.Equal(t, int64(1), result.Used)
	assert.Equal(t, int64(24), result.Remaining)

	q, _ := repo.GetByUserID(7)
	assert.Equal(t, int64(25), q.AIRequestsLimit, "stored limit repaired to the effective plan")
}

func TestTrackAndCheckUnlimitedShortCircuits(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	svc, logs, _ := newTestService(repo, entitlements.PlanStartup, now)

	result, err := svc.TrackAndCheckAIRequest(7, map[string]interface{}{"model": "gpt-4o"})
	require.NoError(t, err)

	assert.True(t, result.Allowed)
	assert.True(t, result.Unlimited)
	assert.Equal(t, entitlements.UnlimitedAIRequests, result.Limit)
	assert.Empty(t, repo.rows, "unlimited plans never touch the quota table")
	assert.Empty(t, logs.entries)
}

func TestTrackAndCheckLogFailureIsSwallowed(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	svc, logs, _ := newTestService(repo, entitlements.PlanFree, now)
	logs.err = errors.New("log table unavailable")

	result, err := svc.TrackAndCheckAIRequest(7, nil)
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	q, _ := repo.GetByUserID(7)
	assert.Equal(t, int64(1), q.AIRequestsUsed, "increment proceeds despite log failure")
}

func TestTrackAndCheckIncrementFailurePropagates(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	svc, _, notifier := newTestService(repo, entitlements.PlanFree, now)
	repo.incrementErr = errors.New("deadlock")

	_, err := svc.TrackAndCheckAIRequest(7, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "increment ai request counter")
	assert.Empty(t, notifier.calls, "no warning on a failed increment")
}

func TestTrackAndCheckRecordsModelMetadata(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	svc, logs, _ := newTestService(repo, entitlements.PlanFree, now)

	_, err := svc.TrackAndCheckAIRequest(7, map[string]interface{}{"model": "gpt-4o-mini", "tokens": 512})
	require.NoError(t, err)

	require.Len(t, logs.entries, 1)
	entry := logs.entries[0]
	assert.Equal(t, uint(7), entry.UserID)
	assert.Equal(t, models.ResourceTypeAIRequest, entry.ResourceType)
	assert.Equal(t, "gpt-4o-mini", entry.ResourceID)
	assert.Contains(t, entry.Metadata, `"tokens":512`)
}

func TestCheckAIRequestQuotaReadOnly(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	repo.rows[7] = &models.UsageQuota{
		UserID: 7, AIRequestsUsed: 10, AIRequestsLimit: 25,
		ResetAt: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}
	svc, logs, notifier := newTestService(repo, entitlements.PlanFree, now)

	result, err := svc.CheckAIRequestQuota(7)
	require.NoError(t, err)

	assert.True(t, result.Allowed)
	assert.Equal(t, int64(10), result.Used)
	assert.Equal(t, int64(15), result.Remaining)

	q, _ := repo.GetByUserID(7)
	assert.Equal(t, int64(10), q.AIRequestsUsed)
	assert.Empty(t, logs.entries)
	assert.Empty(t, notifier.calls)
}
