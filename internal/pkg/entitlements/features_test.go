package entitlements

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAIRequestLimit(t *testing.T) {
	assert.Equal(t, int64(25), AIRequestLimit(PlanFree))
	assert.Equal(t, int64(1000), AIRequestLimit(PlanPro))
	assert.Equal(t, UnlimitedAIRequests, AIRequestLimit(PlanStartup))

	// Unknown plans fall back to the free allowance.
	assert.Equal(t, int64(25), AIRequestLimit(Plan("enterprise")))
}

func TestAllowedModels(t *testing.T) {
	assert.Equal(t, []string{"gpt-3.5-turbo"}, AllowedModels(PlanFree))
	assert.Contains(t, AllowedModels(PlanPro), "gpt-4o")
	assert.Equal(t, []string{ModelWildcard}, AllowedModels(PlanStartup))
	assert.Equal(t, []string{"gpt-3.5-turbo"}, AllowedModels(Plan("bogus")))
}

func TestModelAllowed(t *testing.T) {
	assert.True(t, ModelAllowed(PlanFree, "gpt-3.5-turbo"))
	assert.False(t, ModelAllowed(PlanFree, "gpt-4o"))
	assert.True(t, ModelAllowed(PlanPro, "gpt-4o"))
	assert.False(t, ModelAllowed(PlanPro, "o3-large"))
	assert.True(t, ModelAllowed(PlanStartup, "o3-large"))
}

func TestCanUseFeature(t *testing.T) {
	tests := []struct {
		plan Plan
		key  string
		want bool
	}{
		{plan: PlanFree, key: FeatureAIRequests, want: true},
		{plan: PlanStartup, key: FeatureAIRequests, want: true},
		{plan: PlanFree, key: FeatureModels, want: true},
		{plan: PlanFree, key: FeatureAPIAccess, want: false},
		{plan: PlanPro, key: FeatureAPIAccess, want: true},
		{plan: PlanPro, key: FeaturePrioritySupport, want: false},
		{plan: PlanStartup, key: FeaturePrioritySupport, want: true},
		// Unknown feature keys are denied, not defaulted open.
		{plan: PlanStartup, key: "teleportation", want: false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CanUseFeature(tt.plan, tt.key), "%s/%s", tt.plan, tt.key)
	}

	assert.False(t, CanUseFeature(Plan("bogus"), FeatureAIRequests))
}

func TestFeaturesForUnknownPlan(t *testing.T) {
	_, err := FeaturesFor(Plan("enterprise"))
	require.Error(t, err)
}
