package quota

import (
	"errors"
	"testing"
	"time"

	"github.com/MarcusHaas/NeuraDesk/app/models"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/entitlements"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeRepo is an in-memory Repository with the same single-row-per-user and
// conditional-update semantics as the GORM implementation.
type fakeRepo struct {
	rows         map[uint]*models.UsageQuota
	incrementErr error
	appendCalls  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[uint]*models.UsageQuota{}}
}

func (f *fakeRepo) GetByUserID(userID uint) (*models.UsageQuota, error) {
	q, ok := f.rows[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *q
	return &copied, nil
}

func (f *fakeRepo) CreateIfAbsent(q *models.UsageQuota) error {
	if _, ok := f.rows[q.UserID]; ok {
		return nil
	}
	copied := *q
	f.rows[q.UserID] = &copied
	return nil
}

func (f *fakeRepo) IncrementUsed(userID uint, n int64) error {
	if f.incrementErr != nil {
		return f.incrementErr
	}
	q, ok := f.rows[userID]
	if !ok {
		return errors.New("row missing")
	}
	q.AIRequestsUsed += n
	return nil
}

func (f *fakeRepo) UpdateLimit(userID uint, limit int64) error {
	q, ok := f.rows[userID]
	if !ok {
		return errors.New("row missing")
	}
	q.AIRequestsLimit = limit
	return nil
}

func (f *fakeRepo) Reset(userID uint, limit int64, resetAt time.Time) error {
	q, ok := f.rows[userID]
	if !ok {
		return errors.New("row missing")
	}
	q.AIRequestsUsed = 0
	q.AIRequestsLimit = limit
	q.ResetAt = resetAt
	q.Warning80Sent = false
	q.Warning90Sent = false
	q.Warning100Sent = false
	return nil
}

func (f *fakeRepo) SetWarningFlagIfUnset(userID uint, threshold int) (bool, error) {
	q, ok := f.rows[userID]
	if !ok {
		return false, errors.New("row missing")
	}
	switch threshold {
	case 80:
		if q.Warning80Sent {
			return false, nil
		}
		q.Warning80Sent = true
	case 90:
		if q.Warning90Sent {
			return false, nil
		}
		q.Warning90Sent = true
	case 100:
		if q.Warning100Sent {
			return false, nil
		}
		q.Warning100Sent = true
	default:
		return false, errors.New("bad threshold")
	}
	return true, nil
}

type staticPlans struct {
	plan entitlements.Plan
}

func (s staticPlans) ResolveEffectivePlan(userID uint) entitlements.Plan { return s.plan }

func newTestStore(repo Repository, plan entitlements.Plan, now time.Time) *Store {
	s := NewStore(repo, staticPlans{plan: plan})
	s.now = func() time.Time { return now }
	return s
}

func TestNextMonthStartUTC(t *testing.T) {
	tests := []struct {
		now  time.Time
		want time.Time
	}{
		{
			now:  time.Date(2026, 8, 29, 15, 4, 5, 0, time.UTC),
			want: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			now:  time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC),
			want: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			// First instant of a month still points at the next month.
			now:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			want: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			// Non-UTC input is normalized.
			now:  time.Date(2026, 1, 31, 23, 30, 0, 0, time.FixedZone("CET", 3600)),
			want: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NextMonthStartUTC(tt.now))
	}
}

func TestGetOrCreateNewUser(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	store := newTestStore(repo, entitlements.PlanFree, now)

	q, err := store.GetOrCreate(42)
	require.NoError(t, err)

	assert.Equal(t, int64(0), q.AIRequestsUsed)
	assert.Equal(t, int64(25), q.AIRequestsLimit)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), q.ResetAt)
}

func TestGetOrCreateExistingRowUnchanged(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	stale := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	repo.rows[42] = &models.UsageQuota{UserID: 42, AIRequestsUsed: 17, AIRequestsLimit: 25, ResetAt: stale}
	store := newTestStore(repo, entitlements.PlanPro, now)

	q, err := store.GetOrCreate(42)
	require.NoError(t, err)

	// No implicit reset on read; the lazy reset is an explicit separate step.
	assert.Equal(t, int64(17), q.AIRequestsUsed)
	assert.Equal(t, stale, q.ResetAt)
}

func TestEnsureFreshResetsStaleRow(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	repo.rows[42] = &models.UsageQuota{
		UserID: 42, AIRequestsUsed: 25, AIRequestsLimit: 25,
		ResetAt:       time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Warning80Sent: true, Warning90Sent: true, Warning100Sent: true,
	}
	store := newTestStore(repo, entitlements.PlanPro, now)

	q, err := store.EnsureFresh(42)
	require.NoError(t, err)

	assert.Equal(t, int64(0), q.AIRequestsUsed)
	assert.Equal(t, int64(1000), q.AIRequestsLimit, "limit recomputed from current plan")
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), q.ResetAt)
	assert.False(t, q.Warning80Sent)
	assert.False(t, q.Warning90Sent)
	assert.False(t, q.Warning100Sent)
}

func TestEnsureFreshLeavesFreshRow(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	repo.rows[42] = &models.UsageQuota{
		UserID: 42, AIRequestsUsed: 5, AIRequestsLimit: 25,
		ResetAt: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}
	store := newTestStore(repo, entitlements.PlanFree, now)

	q, err := store.EnsureFresh(42)
	require.NoError(t, err)
	assert.Equal(t, int64(5), q.AIRequestsUsed)
}

func TestResetIdempotent(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	store := newTestStore(repo, entitlements.PlanFree, now)
	_, err := store.GetOrCreate(42)
	require.NoError(t, err)
	require.NoError(t, repo.IncrementUsed(42, 10))

	require.NoError(t, store.Reset(42))
	first, _ := repo.GetByUserID(42)
	require.NoError(t, store.Reset(42))
	second, _ := repo.GetByUserID(42)

	assert.Equal(t, int64(0), first.AIRequestsUsed)
	assert.Equal(t, int64(0), second.AIRequestsUsed)
	assert.Equal(t, first.ResetAt, second.ResetAt)
	assert.False(t, second.Warning80Sent)
}

func TestIncrementAIRequestsResetsFirst(t *testing.T) {
	// First action of a new period is recorded against the new counters.
	now := time.Date(2026, 9, 2, 8, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	repo.rows[42] = &models.UsageQuota{
		UserID: 42, AIRequestsUsed: 25, AIRequestsLimit: 25,
		ResetAt: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}
	store := newTestStore(repo, entitlements.PlanFree, now)

	require.NoError(t, store.IncrementAIRequests(42, 1))

	q, _ := repo.GetByUserID(42)
	assert.Equal(t, int64(1), q.AIRequestsUsed)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), q.ResetAt)
}

func TestApplyPlanLimitKeepsCounter(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	repo.rows[42] = &models.UsageQuota{
		UserID: 42, AIRequestsUsed: 12, AIRequestsLimit: 25,
		ResetAt: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}
	store := newTestStore(repo, entitlements.PlanPro, now)

	require.NoError(t, store.ApplyPlanLimit(42))

	q, _ := repo.GetByUserID(42)
	assert.Equal(t, int64(12), q.AIRequestsUsed, "mid-period usage stays accrued")
	assert.Equal(t, int64(1000), q.AIRequestsLimit)
}

// After a cancellation the row may still carry the unlimited marker from the
// old plan. ApplyPlanLimit must replace it with the limit the user's current
// plan grants, so the free allowance is usable right away.
func TestApplyPlanLimitReplacesUnlimitedMarker(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	repo.rows[42] = &models.UsageQuota{
		UserID: 42, AIRequestsUsed: 0,
		AIRequestsLimit: entitlements.UnlimitedAIRequests,
		ResetAt:         time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}
	store := newTestStore(repo, entitlements.PlanFree, now)

	require.NoError(t, store.ApplyPlanLimit(42))

	q, _ := repo.GetByUserID(42)
	assert.Equal(t, int64(25), q.AIRequestsLimit)
	assert.Equal(t, int64(0), q.AIRequestsUsed)
}

func TestReinitializeStartsFreshPeriod(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	repo.rows[42] = &models.UsageQuota{
		UserID: 42, AIRequestsUsed: 900, AIRequestsLimit: 1000,
		ResetAt:       time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		Warning80Sent: true, Warning90Sent: true,
	}
	store := newTestStore(repo, entitlements.PlanStartup, now)

	require.NoError(t, store.Reinitialize(42))

	q, _ := repo.GetByUserID(42)
	assert.Equal(t, int64(0), q.AIRequestsUsed)
	assert.Equal(t, entitlements.UnlimitedAIRequests, q.AIRequestsLimit)
	assert.False(t, q.Warning80Sent)
	assert.False(t, q.Warning90Sent)
}
