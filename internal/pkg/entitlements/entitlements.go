package entitlements

import "strings"

type Plan string

const (
	PlanFree    Plan = "free"
	PlanPro     Plan = "pro"
	PlanStartup Plan = "startup"
)

// ParsePlan maps a raw plan string to a known plan, case-insensitively.
// Unknown plans are reported via ok=false and must be discarded by callers,
// not defaulted mid-computation.
func ParsePlan(raw string) (Plan, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(PlanFree):
		return PlanFree, true
	case string(PlanPro):
		return PlanPro, true
	case string(PlanStartup):
		return PlanStartup, true
	default:
		return PlanFree, false
	}
}

// PlanRank orders plans by entitlement generosity: free < pro < startup.
func PlanRank(plan Plan) int {
	switch plan {
	case PlanStartup:
		return 2
	case PlanPro:
		return 1
	default:
		return 0
	}
}

// MaxPlan returns the higher-ranked of two plans.
func MaxPlan(a, b Plan) Plan {
	if PlanRank(b) > PlanRank(a) {
		return b
	}
	return a
}

// IsEntitlingStatus reports whether a subscription status grants its plan.
// Past-due subscriptions keep entitling until the provider cancels them.
func IsEntitlingStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing", "past_due":
		return true
	default:
		return false
	}
}
