package entitlements

import (
	"log"

	"github.com/MarcusHaas/NeuraDesk/app/models"
	"gorm.io/gorm"
)

// SubscriptionSource reads subscription rows; it never mutates them.
type SubscriptionSource interface {
	ListPersonalByUser(userID uint) ([]models.Subscription, error)
	ListByWorkspaces(workspaceIDs []uint) ([]models.Subscription, error)
}

// MembershipSource lists the workspaces a user belongs to.
type MembershipSource interface {
	WorkspaceIDsForUser(userID uint) ([]uint, error)
}

// Resolver computes a user's effective plan from their personal subscription
// and every workspace subscription they are a member of. The entitlement read
// path fails closed: any fetch error yields the free plan, never a paid one.
type Resolver struct {
	subs    SubscriptionSource
	members MembershipSource
}

func NewResolver(subs SubscriptionSource, members MembershipSource) *Resolver {
	return &Resolver{subs: subs, members: members}
}

// NewResolverFromDB wires the resolver to GORM-backed sources.
func NewResolverFromDB(db *gorm.DB) *Resolver {
	src := &gormSource{db: db}
	return NewResolver(src, src)
}

// ResolveEffectivePlan picks the highest-ranked plan among all entitling
// subscriptions of the user. No subscriptions, or only unknown plans, means
// free.
func (r *Resolver) ResolveEffectivePlan(userID uint) Plan {
	candidates := make(map[Plan]struct{})

	personal, err := r.subs.ListPersonalByUser(userID)
	if err != nil {
		log.Printf("entitlements: personal subscription lookup failed for user %d: %v", userID, err)
		return PlanFree
	}
	collectPlans(candidates, personal)

	workspaceIDs, err := r.members.WorkspaceIDsForUser(userID)
	if err != nil {
		log.Printf("entitlements: membership lookup failed for user %d: %v", userID, err)
		return PlanFree
	}
	if len(workspaceIDs) > 0 {
		workspaceSubs, err := r.subs.ListByWorkspaces(workspaceIDs)
		if err != nil {
			log.Printf("entitlements: workspace subscription lookup failed for user %d: %v", userID, err)
			return PlanFree
		}
		collectPlans(candidates, workspaceSubs)
	}

	best := PlanFree
	for plan := range candidates {
		best = MaxPlan(best, plan)
	}
	return best
}

// ResolveAllowedModels derives the model allow-list from the effective plan.
func (r *Resolver) ResolveAllowedModels(userID uint) []string {
	return AllowedModels(r.ResolveEffectivePlan(userID))
}

// UserCanUseFeature checks a feature key against the effective plan.
func (r *Resolver) UserCanUseFeature(userID uint, featureKey string) bool {
	return CanUseFeature(r.ResolveEffectivePlan(userID), featureKey)
}

func collectPlans(into map[Plan]struct{}, subs []models.Subscription) {
	for _, sub := range subs {
		if !IsEntitlingStatus(sub.Status) {
			continue
		}
		plan, ok := ParsePlan(sub.Plan)
		if !ok {
			// Unknown plans are discarded, not defaulted.
			continue
		}
		into[plan] = struct{}{}
	}
}

type gormSource struct {
	db *gorm.DB
}

func (s *gormSource) ListPersonalByUser(userID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.Where("user_id = ? AND workspace_id IS NULL", userID).Find(&subs).Error
	return subs, err
}

func (s *gormSource) ListByWorkspaces(workspaceIDs []uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.Where("workspace_id IN ?", workspaceIDs).Find(&subs).Error
	return subs, err
}

func (s *gormSource) WorkspaceIDsForUser(userID uint) ([]uint, error) {
	var ids []uint
	err := s.db.Model(&models.WorkspaceMember{}).Where("user_id = ?", userID).
		Pluck("workspace_id", &ids).Error
	return ids, err
}
