package quota

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/MarcusHaas/NeuraDesk/app/models"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/entitlements"
	"gorm.io/gorm"
)

// UsageLogWriter appends usage events. Appends are best-effort from the
// metering path: a write failure never fails the caller's request.
type UsageLogWriter interface {
	Append(entry *models.UsageLog) error
}

// Notifier fires threshold warnings after a successful increment. It must
// swallow its own errors.
type Notifier interface {
	NotifyThresholds(userID uint, q *models.UsageQuota)
}

// CheckResult is what callers of the metering service act on. Callers must
// check Allowed before performing the metered action and surface Remaining
// and ResetAt to the end user on denial.
type CheckResult struct {
	Allowed   bool      `json:"allowed"`
	Used      int64     `json:"used"`
	Limit     int64     `json:"limit"`
	Remaining int64     `json:"remaining"`
	Unlimited bool      `json:"unlimited"`
	ResetAt   time.Time `json:"reset_at,omitempty"`
}

// Service is the transactional unit invoked before every metered action:
// check quota, log the usage event, increment the counter, fire warnings.
type Service struct {
	store    *Store
	plans    PlanResolver
	logs     UsageLogWriter
	notifier Notifier
}

func NewService(store *Store, plans PlanResolver, logs UsageLogWriter, notifier Notifier) *Service {
	return &Service{store: store, plans: plans, logs: logs, notifier: notifier}
}

// NewServiceFromDB wires the metering service to GORM-backed collaborators.
func NewServiceFromDB(db *gorm.DB) *Service {
	resolver := entitlements.NewResolverFromDB(db)
	store := NewStore(NewRepository(db), resolver)
	return NewService(store, resolver, newGormLogWriter(db), NewWarningNotifierFromDB(db))
}

// CheckAIRequestQuota is the read path used by the dashboard widget. It
// performs the lazy reset but records nothing.
func (s *Service) CheckAIRequestQuota(userID uint) (*CheckResult, error) {
	plan := s.plans.ResolveEffectivePlan(userID)
	if entitlements.AIRequestLimit(plan) == entitlements.UnlimitedAIRequests {
		return unlimitedResult(), nil
	}
	q, err := s.freshQuota(userID, plan)
	if err != nil {
		return nil, err
	}
	return resultFromQuota(q), nil
}

// TrackAndCheckAIRequest meters one AI request. Ordering is fixed: check,
// then log, then increment, then warn. A denied request has zero side
// effects on counters and logs.
func (s *Service) TrackAndCheckAIRequest(userID uint, metadata map[string]interface{}) (*CheckResult, error) {
	// Unlimited plans are not metered at all; counting them would only grow
	// an unbounded counter for top-tier customers.
	plan := s.plans.ResolveEffectivePlan(userID)
	if entitlements.AIRequestLimit(plan) == entitlements.UnlimitedAIRequests {
		return unlimitedResult(), nil
	}

	q, err := s.freshQuota(userID, plan)
	if err != nil {
		return nil, err
	}

	result := resultFromQuota(q)
	if !result.Allowed {
		return result, nil
	}

	// Best-effort: the log write never fails the request, and a request that
	// is denied above never reaches the log.
	if err := s.appendLog(userID, metadata); err != nil {
		log.Printf("quota: usage log append failed for user %d: %v", userID, err)
	}

	// Increment errors surface to the caller: silently losing one would let
	// the user exceed quota undetected.
	if err := s.store.repo.IncrementUsed(userID, 1); err != nil {
		return nil, fmt.Errorf("increment ai request counter: %w", err)
	}

	q.AIRequestsUsed++
	if s.notifier != nil {
		s.notifier.NotifyThresholds(userID, q)
	}

	// The admission decision was made before the increment; the counters
	// reflect the state after it. Recomputing Allowed here would deny the
	// request that consumed the last unit even though it was served.
	result = resultFromQuota(q)
	result.Allowed = true
	return result, nil
}

// freshQuota loads the row through the lazy reset and repairs a limit left
// behind by a previous plan. After a downgrade from an unlimited plan the
// stored -1 would otherwise gate every request until the next rollover.
func (s *Service) freshQuota(userID uint, plan entitlements.Plan) (*models.UsageQuota, error) {
	q, err := s.store.EnsureFresh(userID)
	if err != nil {
		return nil, err
	}
	if q.AIRequestsLimit == entitlements.UnlimitedAIRequests {
		q.AIRequestsLimit = entitlements.AIRequestLimit(plan)
		if err := s.store.repo.UpdateLimit(userID, q.AIRequestsLimit); err != nil {
			log.Printf("quota: limit repair failed for user %d: %v", userID, err)
		}
	}
	return q, nil
}

func (s *Service) appendLog(userID uint, metadata map[string]interface{}) error {
	if s.logs == nil {
		return nil
	}
	entry := &models.UsageLog{
		UserID:       userID,
		ResourceType: models.ResourceTypeAIRequest,
		Quantity:     1,
	}
	if metadata != nil {
		if model, ok := metadata["model"].(string); ok {
			entry.ResourceID = model
		}
		raw, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		entry.Metadata = string(raw)
	}
	return s.logs.Append(entry)
}

func unlimitedResult() *CheckResult {
	return &CheckResult{
		Allowed:   true,
		Used:      0,
		Limit:     entitlements.UnlimitedAIRequests,
		Remaining: entitlements.UnlimitedAIRequests,
		Unlimited: true,
	}
}

func resultFromQuota(q *models.UsageQuota) *CheckResult {
	return &CheckResult{
		Allowed:   q.AIRequestsUsed < q.AIRequestsLimit,
		Used:      q.AIRequestsUsed,
		Limit:     q.AIRequestsLimit,
		Remaining: q.Remaining(),
		ResetAt:   q.ResetAt,
	}
}

type gormLogWriter struct {
	db *gorm.DB
}

func newGormLogWriter(db *gorm.DB) UsageLogWriter {
	return &gormLogWriter{db: db}
}

func (w *gormLogWriter) Append(entry *models.UsageLog) error {
	return w.db.Create(entry).Error
}
