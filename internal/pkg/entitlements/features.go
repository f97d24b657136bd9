package entitlements

import "fmt"

// UnlimitedAIRequests is the sentinel for plans that are not metered at all.
const UnlimitedAIRequests int64 = -1

// ModelWildcard in a model allow-list grants every model.
const ModelWildcard = "*"

// Feature keys used by CanUseFeature.
const (
	FeatureAIRequests      = "ai_requests"
	FeatureModels          = "models"
	FeatureAPIAccess       = "api_access"
	FeatureTeamWorkspaces  = "team_workspaces"
	FeaturePrioritySupport = "priority_support"
)

// Features is the entitlement bundle of a single plan. Resolution always
// picks one whole bundle; features are never combined across plans.
type Features struct {
	AIRequests      int64
	Models          []string
	APIAccess       bool
	TeamWorkspaces  bool
	PrioritySupport bool
}

var planFeatures = map[Plan]Features{
	PlanFree: {
		AIRequests:      25,
		Models:          []string{"gpt-3.5-turbo"},
		APIAccess:       false,
		TeamWorkspaces:  false,
		PrioritySupport: false,
	},
	PlanPro: {
		AIRequests:      1000,
		Models:          []string{"gpt-3.5-turbo", "gpt-4o-mini", "gpt-4o", "claude-3-haiku"},
		APIAccess:       true,
		TeamWorkspaces:  true,
		PrioritySupport: false,
	},
	PlanStartup: {
		AIRequests:      UnlimitedAIRequests,
		Models:          []string{ModelWildcard},
		APIAccess:       true,
		TeamWorkspaces:  true,
		PrioritySupport: true,
	},
}

// FeaturesFor returns the feature bundle of a plan.
func FeaturesFor(plan Plan) (Features, error) {
	f, ok := planFeatures[plan]
	if !ok {
		return Features{}, fmt.Errorf("unknown plan %q", plan)
	}
	return f, nil
}

// AIRequestLimit returns the monthly AI request allowance of a plan.
// Unknown plans fall back to the free allowance.
func AIRequestLimit(plan Plan) int64 {
	f, err := FeaturesFor(plan)
	if err != nil {
		return planFeatures[PlanFree].AIRequests
	}
	return f.AIRequests
}

// AllowedModels returns the model allow-list of a plan. Unknown plans fall
// back to the minimum free-tier model.
func AllowedModels(plan Plan) []string {
	f, err := FeaturesFor(plan)
	if err != nil {
		return []string{"gpt-3.5-turbo"}
	}
	out := make([]string, len(f.Models))
	copy(out, f.Models)
	return out
}

// ModelAllowed checks a single model against a plan's allow-list.
func ModelAllowed(plan Plan, model string) bool {
	for _, m := range AllowedModels(plan) {
		if m == ModelWildcard || m == model {
			return true
		}
	}
	return false
}

// CanUseFeature reports whether a feature is enabled for the plan. Numeric
// features count as enabled when unlimited or positive, list features when
// non-empty. Unknown feature keys are denied.
func CanUseFeature(plan Plan, featureKey string) bool {
	f, err := FeaturesFor(plan)
	if err != nil {
		return false
	}
	switch featureKey {
	case FeatureAIRequests:
		return f.AIRequests == UnlimitedAIRequests || f.AIRequests > 0
	case FeatureModels:
		return len(f.Models) > 0
	case FeatureAPIAccess:
		return f.APIAccess
	case FeatureTeamWorkspaces:
		return f.TeamWorkspaces
	case FeaturePrioritySupport:
		return f.PrioritySupport
	default:
		return false
	}
}
