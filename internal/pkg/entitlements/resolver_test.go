package entitlements

import (
	"errors"
	"testing"

	"github.com/MarcusHaas/NeuraDesk/app/models"
	"github.com/stretchr/testify/assert"
)

type fakeSource struct {
	personal      []models.Subscription
	workspaces    []models.Subscription
	workspaceIDs  []uint
	personalErr   error
	workspacesErr error
	membershipErr error
}

func (f *fakeSource) ListPersonalByUser(userID uint) ([]models.Subscription, error) {
	return f.personal, f.personalErr
}

func (f *fakeSource) ListByWorkspaces(ids []uint) ([]models.Subscription, error) {
	return f.workspaces, f.workspacesErr
}

func (f *fakeSource) WorkspaceIDsForUser(userID uint) ([]uint, error) {
	return f.workspaceIDs, f.membershipErr
}

func sub(plan, status string) models.Subscription {
	return models.Subscription{Plan: plan, Status: status}
}

func TestResolveEffectivePlanPrecedence(t *testing.T) {
	// Personal free + workspace startup resolves to startup.
	src := &fakeSource{
		personal:     []models.Subscription{sub("free", "active")},
		workspaceIDs: []uint{7},
		workspaces:   []models.Subscription{sub("startup", "active")},
	}
	r := NewResolver(src, src)
	assert.Equal(t, PlanStartup, r.ResolveEffectivePlan(1))
}

func TestResolveEffectivePlanNoSubscriptions(t *testing.T) {
	src := &fakeSource{}
	r := NewResolver(src, src)
	assert.Equal(t, PlanFree, r.ResolveEffectivePlan(1))
}

func TestResolveEffectivePlanIgnoresNonEntitling(t *testing.T) {
	src := &fakeSource{
		personal: []models.Subscription{sub("startup", "canceled")},
	}
	r := NewResolver(src, src)
	assert.Equal(t, PlanFree, r.ResolveEffectivePlan(1))
}

func TestResolveEffectivePlanDiscardsUnknownPlans(t *testing.T) {
	src := &fakeSource{
		personal: []models.Subscription{sub("enterprise", "active"), sub("pro", "active")},
	}
	r := NewResolver(src, src)
	assert.Equal(t, PlanPro, r.ResolveEffectivePlan(1))
}

func TestResolveEffectivePlanFailsClosed(t *testing.T) {
	boom := errors.New("db unreachable")

	for name, src := range map[string]*fakeSource{
		"personal":   {personalErr: boom},
		"membership": {membershipErr: boom},
		"workspace":  {workspaceIDs: []uint{1}, workspacesErr: boom, personal: []models.Subscription{sub("startup", "active")}},
	} {
		r := NewResolver(src, src)
		assert.Equal(t, PlanFree, r.ResolveEffectivePlan(1), name)
	}
}

func TestResolveAllowedModels(t *testing.T) {
	src := &fakeSource{personal: []models.Subscription{sub("pro", "active")}}
	r := NewResolver(src, src)
	assert.Contains(t, r.ResolveAllowedModels(1), "gpt-4o")

	// Fail-closed path yields the free-tier fallback list.
	failing := &fakeSource{personalErr: errors.New("down")}
	r = NewResolver(failing, failing)
	assert.Equal(t, []string{"gpt-3.5-turbo"}, r.ResolveAllowedModels(1))
}

func TestUserCanUseFeature(t *testing.T) {
	src := &fakeSource{personal: []models.Subscription{sub("pro", "active")}}
	r := NewResolver(src, src)
	assert.True(t, r.UserCanUseFeature(1, FeatureAPIAccess))
	assert.False(t, r.UserCanUseFeature(1, FeaturePrioritySupport))
}
