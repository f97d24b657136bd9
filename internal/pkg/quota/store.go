package quota

import (
	"time"

	"github.com/MarcusHaas/NeuraDesk/app/models"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/entitlements"
	"gorm.io/gorm"
)

// PlanResolver yields the effective plan used to size quota limits.
type PlanResolver interface {
	ResolveEffectivePlan(userID uint) entitlements.Plan
}

// Store owns UsageQuota rows: get-or-create, lazy monthly reset, plan-change
// reinitialization and the atomic increment. Nothing else writes quota rows.
type Store struct {
	repo  Repository
	plans PlanResolver
	now   func() time.Time
}

func NewStore(repo Repository, plans PlanResolver) *Store {
	return &Store{repo: repo, plans: plans, now: time.Now}
}

// NewStoreFromDB wires the store to GORM and the DB-backed plan resolver.
func NewStoreFromDB(db *gorm.DB) *Store {
	return NewStore(NewRepository(db), entitlements.NewResolverFromDB(db))
}

// NextMonthStartUTC returns the first instant of the calendar month after
// now, in UTC.
func NextMonthStartUTC(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}

// GetOrCreate returns the user's quota row, creating it on first use. An
// existing row is returned unchanged; the lazy period reset is a separate,
// explicit step.
func (s *Store) GetOrCreate(userID uint) (*models.UsageQuota, error) {
	q, err := s.repo.GetByUserID(userID)
	if err == nil {
		return q, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	limit := entitlements.AIRequestLimit(s.plans.ResolveEffectivePlan(userID))
	fresh := &models.UsageQuota{
		UserID:          userID,
		AIRequestsUsed:  0,
		AIRequestsLimit: limit,
		ResetAt:         NextMonthStartUTC(s.now()),
	}
	if err := s.repo.CreateIfAbsent(fresh); err != nil {
		return nil, err
	}
	// Re-read: a concurrent creator may have won the upsert.
	return s.repo.GetByUserID(userID)
}

// Reset starts a new period: limit recomputed from the current plan, counter
// zeroed, reset date advanced to next month, warning flags cleared. Safe to
// call twice in a row.
func (s *Store) Reset(userID uint) error {
	limit := entitlements.AIRequestLimit(s.plans.ResolveEffectivePlan(userID))
	return s.repo.Reset(userID, limit, NextMonthStartUTC(s.now()))
}

// EnsureFresh returns the quota row after performing the lazy reset when the
// period has elapsed. The first action in a new period always sees the new
// period's counters.
func (s *Store) EnsureFresh(userID uint) (*models.UsageQuota, error) {
	q, err := s.GetOrCreate(userID)
	if err != nil {
		return nil, err
	}
	if !q.IsStale(s.now()) {
		return q, nil
	}
	if err := s.Reset(userID); err != nil {
		return nil, err
	}
	return s.repo.GetByUserID(userID)
}

// IncrementAIRequests performs the lazy reset check and then atomically adds
// count to the user's counter.
func (s *Store) IncrementAIRequests(userID uint, count int64) error {
	if count <= 0 {
		count = 1
	}
	if _, err := s.EnsureFresh(userID); err != nil {
		return err
	}
	return s.repo.IncrementUsed(userID, count)
}

// ApplyPlanLimit makes the quota row reflect the user's current plan without
// touching the counter or period. Used when a subscription is first created
// mid-period: usage already accrued stays accrued.
func (s *Store) ApplyPlanLimit(userID uint) error {
	if _, err := s.GetOrCreate(userID); err != nil {
		return err
	}
	limit := entitlements.AIRequestLimit(s.plans.ResolveEffectivePlan(userID))
	return s.repo.UpdateLimit(userID, limit)
}

// Reinitialize gives the user a fresh period under their current plan. Used
// on plan changes so upgrades and downgrades take effect immediately instead
// of waiting for the natural monthly reset.
func (s *Store) Reinitialize(userID uint) error {
	if _, err := s.GetOrCreate(userID); err != nil {
		return err
	}
	return s.Reset(userID)
}

// ClaimWarningThreshold flips a warning flag if it is still unset and reports
// whether this caller claimed it.
func (s *Store) ClaimWarningThreshold(userID uint, threshold int) (bool, error) {
	return s.repo.SetWarningFlagIfUnset(userID, threshold)
}
