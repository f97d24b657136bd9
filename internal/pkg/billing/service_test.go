package billing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/MarcusHaas/NeuraDesk/app/models"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/audit"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/entitlements"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeBillingRepo struct {
	users         map[string]*models.User // by email
	subs          map[string]*models.Subscription
	memberIDs     map[uint][]uint
	workspacePlan map[uint]string
	settingsPlan  map[uint]string
	events        map[string]*models.BillingWebhookEvent
	nextEventID   uint
}

func newFakeBillingRepo() *fakeBillingRepo {
	return &fakeBillingRepo{
		users:         map[string]*models.User{},
		subs:          map[string]*models.Subscription{},
		memberIDs:     map[uint][]uint{},
		workspacePlan: map[uint]string{},
		settingsPlan:  map[uint]string{},
		events:        map[string]*models.BillingWebhookEvent{},
	}
}

func (f *fakeBillingRepo) GetUserByEmail(email string) (*models.User, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (f *fakeBillingRepo) GetSubscriptionByPolarID(id string) (*models.Subscription, error) {
	s, ok := f.subs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s
	return &copied, nil
}

func (f *fakeBillingRepo) UpsertSubscription(sub *models.Subscription) error {
	if err := sub.ValidateScope(); err != nil {
		return err
	}
	if existing, ok := f.subs[sub.PolarSubscriptionID]; ok {
		sub.ID = existing.ID
		// The upsert never reassigns scope.
		sub.UserID = existing.UserID
		sub.WorkspaceID = existing.WorkspaceID
	} else {
		sub.ID = uint(len(f.subs) + 1)
	}
	copied := *sub
	f.subs[sub.PolarSubscriptionID] = &copied
	return nil
}

func (f *fakeBillingRepo) ListWorkspaceMemberIDs(workspaceID uint) ([]uint, error) {
	return f.memberIDs[workspaceID], nil
}

func (f *fakeBillingRepo) UpdateWorkspacePlan(workspaceID uint, plan string) error {
	f.workspacePlan[workspaceID] = plan
	return nil
}

func (f *fakeBillingRepo) UpdateUserSettingsPlan(userID uint, plan string) error {
	f.settingsPlan[userID] = plan
	return nil
}

func (f *fakeBillingRepo) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	key := event.Provider + "/" + event.ProviderEventID
	if stored, ok := f.events[key]; ok {
		return false, stored, nil
	}
	f.nextEventID++
	event.ID = f.nextEventID
	f.events[key] = event
	return true, event, nil
}

func (f *fakeBillingRepo) MarkWebhookProcessed(id uint, processingError string) error {
	for _, e := range f.events {
		if e.ID == id {
			e.ProcessingError = processingError
			return nil
		}
	}
	return errors.New("event not found")
}

type fakeQuotaInit struct {
	applied       []uint
	reinitialized []uint
	err           error
}

func (f *fakeQuotaInit) ApplyPlanLimit(userID uint) error {
	if f.err != nil {
		return f.err
	}
	f.applied = append(f.applied, userID)
	return nil
}

func (f *fakeQuotaInit) Reinitialize(userID uint) error {
	if f.err != nil {
		return f.err
	}
	f.reinitialized = append(f.reinitialized, userID)
	return nil
}

func testProducts() ProductMapping {
	return ProductMapping{
		"prod_pro":     entitlements.PlanPro,
		"prod_startup": entitlements.PlanStartup,
	}
}

func newTestBillingService() (*Service, *fakeBillingRepo, *fakeQuotaInit) {
	repo := newFakeBillingRepo()
	repo.users["ana@example.com"] = &models.User{ID: 7, Email: "ana@example.com", Name: "Ana"}
	q := &fakeQuotaInit{}
	return NewService(repo, q, testProducts(), audit.NewNopRecorder()), repo, q
}

func createdEvent(subID, productID, email string) *WebhookEvent {
	return &WebhookEvent{
		ID:   "evt_" + subID,
		Type: EventSubscriptionCreated,
		Data: WebhookData{
			Subscription: SubscriptionPayload{
				ID:        subID,
				Status:    "active",
				ProductID: productID,
			},
			Customer: CustomerPayload{ID: "cus_1", Email: email},
		},
	}
}

func TestHandleCreatedPersonalSubscription(t *testing.T) {
	svc, repo, q := newTestBillingService()

	err := svc.ProcessEvent(createdEvent("sub_1", "prod_pro", "ana@example.com"), []byte(`{}`))
	require.NoError(t, err)

	sub := repo.subs["sub_1"]
	require.NotNil(t, sub)
	assert.Equal(t, "pro", sub.Plan)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	require.NotNil(t, sub.UserID)
	assert.Equal(t, uint(7), *sub.UserID)

	assert.Equal(t, "pro", repo.settingsPlan[7])
	assert.Equal(t, []uint{7}, q.applied, "created initializes the limit, keeps accrued usage")
	assert.Empty(t, q.reinitialized)
}

func TestHandleCreatedUnknownEmailIsLoggedNoOp(t *testing.T) {
	svc, repo, q := newTestBillingService()

	err := svc.ProcessEvent(createdEvent("sub_1", "prod_pro", "nobody@example.com"), []byte(`{}`))
	require.NoError(t, err, "missing user is a logged no-op, not a handler failure")
	assert.Empty(t, repo.subs)
	assert.Empty(t, q.applied)
}

func TestHandleCreatedUnknownProductFallsBackToFree(t *testing.T) {
	svc, repo, _ := newTestBillingService()

	err := svc.ProcessEvent(createdEvent("sub_1", "prod_mystery", "ana@example.com"), []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "free", repo.subs["sub_1"].Plan)
}

func TestHandleCreatedIsIdempotent(t *testing.T) {
	svc, repo, q := newTestBillingService()
	event := createdEvent("sub_1", "prod_pro", "ana@example.com")

	require.NoError(t, svc.ProcessEvent(event, []byte(`{}`)))
	require.NoError(t, svc.ProcessEvent(event, []byte(`{}`)))

	assert.Len(t, repo.subs, 1, "redelivery upserts the same row")
	assert.Equal(t, uint(1), repo.subs["sub_1"].ID)
	assert.Equal(t, []uint{7, 7}, q.applied)
}

func TestHandleCreatedWorkspaceScope(t *testing.T) {
	svc, repo, q := newTestBillingService()
	repo.memberIDs[3] = []uint{7, 8, 9}

	event := createdEvent("sub_ws", "prod_startup", "ana@example.com")
	event.Data.Subscription.Metadata = map[string]interface{}{"workspace_id": float64(3)}

	require.NoError(t, svc.ProcessEvent(event, []byte(`{}`)))

	sub := repo.subs["sub_ws"]
	require.NotNil(t, sub)
	require.NotNil(t, sub.WorkspaceID)
	assert.Equal(t, uint(3), *sub.WorkspaceID)
	assert.Nil(t, sub.UserID)
	assert.Equal(t, "startup", repo.workspacePlan[3])
	assert.Equal(t, []uint{7, 8, 9}, q.applied, "every member gets the new limit")
}

func TestHandleUpdatedPlanChangeReinitializesQuota(t *testing.T) {
	svc, repo, q := newTestBillingService()
	require.NoError(t, svc.ProcessEvent(createdEvent("sub_1", "prod_pro", "ana@example.com"), []byte(`{}`)))
	q.applied = nil

	update := &WebhookEvent{
		Type: EventSubscriptionUpdated,
		Data: WebhookData{Subscription: SubscriptionPayload{
			ID:        "sub_1",
			Status:    "active",
			ProductID: "prod_startup",
		}},
	}
	require.NoError(t, svc.ProcessEvent(update, []byte(`{}`)))

	sub := repo.subs["sub_1"]
	assert.Equal(t, "startup", sub.Plan)
	assert.Equal(t, []uint{7}, q.reinitialized, "plan change starts a fresh period")
	assert.Empty(t, q.applied)
	assert.Equal(t, "startup", repo.settingsPlan[7])
}

func TestHandleUpdatedSamePlanSkipsQuota(t *testing.T) {
	svc, repo, q := newTestBillingService()
	require.NoError(t, svc.ProcessEvent(createdEvent("sub_1", "prod_pro", "ana@example.com"), []byte(`{}`)))
	q.applied = nil

	update := &WebhookEvent{
		Type: EventSubscriptionUpdated,
		Data: WebhookData{Subscription: SubscriptionPayload{
			ID:        "sub_1",
			Status:    "past_due",
			ProductID: "prod_pro",
		}},
	}
	require.NoError(t, svc.ProcessEvent(update, []byte(`{}`)))

	assert.Equal(t, "past_due", repo.subs["sub_1"].Status)
	assert.Empty(t, q.reinitialized)
	assert.Empty(t, q.applied)
}

func TestHandleUpdatedUnknownSubscriptionIsNoOp(t *testing.T) {
	// Out-of-order delivery: updated arrives before created.
	svc, repo, _ := newTestBillingService()

	update := &WebhookEvent{
		Type: EventSubscriptionUpdated,
		Data: WebhookData{Subscription: SubscriptionPayload{ID: "sub_ghost", ProductID: "prod_pro"}},
	}
	require.NoError(t, svc.ProcessEvent(update, []byte(`{}`)))
	assert.Empty(t, repo.subs)
}

func TestHandleCanceledKeepsRowAsHistory(t *testing.T) {
	svc, repo, q := newTestBillingService()
	require.NoError(t, svc.ProcessEvent(createdEvent("sub_1", "prod_pro", "ana@example.com"), []byte(`{}`)))
	q.applied = nil

	cancel := &WebhookEvent{
		Type: EventSubscriptionCanceled,
		Data: WebhookData{Subscription: SubscriptionPayload{ID: "sub_1"}},
	}
	require.NoError(t, svc.ProcessEvent(cancel, []byte(`{}`)))
	// Redelivery of the cancel is harmless.
	require.NoError(t, svc.ProcessEvent(cancel, []byte(`{}`)))

	sub := repo.subs["sub_1"]
	assert.Equal(t, models.SubscriptionStatusCanceled, sub.Status)
	assert.True(t, sub.CancelAtPeriodEnd)
	assert.Equal(t, "pro", sub.Plan, "plan stays on the row for history")
	assert.Equal(t, "free", repo.settingsPlan[7], "cache falls back to the remaining entitlement")
	assert.Equal(t, []uint{7, 7}, q.applied, "each delivery re-resolves the limit")
	assert.Empty(t, q.reinitialized, "cancellation keeps the accrued usage")
}

// A customer on an unlimited plan cancels: the quota row must drop back to
// the free limit immediately instead of keeping the old limit until the next
// rollover and denying everything.
func TestHandleCanceledDowngradesQuotaFromUnlimited(t *testing.T) {
	svc, repo, q := newTestBillingService()
	require.NoError(t, svc.ProcessEvent(createdEvent("sub_1", "prod_startup", "ana@example.com"), []byte(`{}`)))
	assert.Equal(t, "startup", repo.settingsPlan[7])
	q.applied = nil

	cancel := &WebhookEvent{
		Type: EventSubscriptionCanceled,
		Data: WebhookData{Subscription: SubscriptionPayload{ID: "sub_1"}},
	}
	require.NoError(t, svc.ProcessEvent(cancel, []byte(`{}`)))

	assert.Equal(t, "free", repo.settingsPlan[7])
	assert.Equal(t, []uint{7}, q.applied, "quota limit re-resolved for the canceled scope")
	assert.Empty(t, q.reinitialized)
}

func TestHandleCanceledUnknownSubscriptionIsNoOp(t *testing.T) {
	svc, _, _ := newTestBillingService()
	cancel := &WebhookEvent{
		Type: EventSubscriptionCanceled,
		Data: WebhookData{Subscription: SubscriptionPayload{ID: "sub_ghost"}},
	}
	require.NoError(t, svc.ProcessEvent(cancel, []byte(`{}`)))
}

func TestUnknownEventTypeIgnored(t *testing.T) {
	svc, repo, _ := newTestBillingService()
	event := &WebhookEvent{Type: "checkout.session.completed"}
	require.NoError(t, svc.ProcessEvent(event, []byte(`{}`)))
	assert.Empty(t, repo.subs)
}

func TestRecordWebhookEventDeduplicates(t *testing.T) {
	svc, _, _ := newTestBillingService()

	created, first, err := svc.RecordWebhookEvent("evt_1", EventSubscriptionCreated, []byte(`{}`), true)
	require.NoError(t, err)
	assert.True(t, created)

	again, second, err := svc.RecordWebhookEvent("evt_1", EventSubscriptionCreated, []byte(`{}`), true)
	require.NoError(t, err)
	assert.False(t, again)
	assert.Equal(t, first.ID, second.ID)
}

func TestRecordWebhookEventHashFallback(t *testing.T) {
	svc, repo, _ := newTestBillingService()

	_, stored, err := svc.RecordWebhookEvent("", "subscription.updated", []byte(`{"a":1}`), true)
	require.NoError(t, err)
	assert.Contains(t, stored.ProviderEventID, "hash:")

	// The same payload without an id dedupes on its hash.
	created, _, err := svc.RecordWebhookEvent("", "subscription.updated", []byte(`{"a":1}`), true)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, repo.events, 1)
}

func TestParseWebhookEvent(t *testing.T) {
	event, err := ParseWebhookEvent([]byte(`{"type":"subscription.created","data":{"subscription":{"id":"sub_1"}}}`))
	require.NoError(t, err)
	assert.Equal(t, EventSubscriptionCreated, event.Type)
	assert.Equal(t, "sub_1", event.Data.Subscription.ID)

	_, err = ParseWebhookEvent([]byte(`not json`))
	assert.Error(t, err)

	_, err = ParseWebhookEvent([]byte(`{"data":{}}`))
	assert.Error(t, err, "missing type is rejected")
}

func TestWorkspaceIDFromMetadata(t *testing.T) {
	tests := []struct {
		name string
		meta map[string]interface{}
		want uint
		ok   bool
	}{
		{"absent", nil, 0, false},
		{"number", map[string]interface{}{"workspace_id": float64(12)}, 12, true},
		{"string", map[string]interface{}{"workspace_id": "12"}, 12, true},
		{"zero", map[string]interface{}{"workspace_id": float64(0)}, 0, false},
		{"garbage", map[string]interface{}{"workspace_id": "twelve"}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := workspaceIDFromMetadata(tt.meta)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEntitlingPlanFor(t *testing.T) {
	for _, tt := range []struct {
		status string
		plan   string
		want   entitlements.Plan
	}{
		{"active", "pro", entitlements.PlanPro},
		{"trialing", "startup", entitlements.PlanStartup},
		{"past_due", "pro", entitlements.PlanPro},
		{"canceled", "pro", entitlements.PlanFree},
		{"active", "enterprise", entitlements.PlanFree},
	} {
		t.Run(fmt.Sprintf("%s_%s", tt.status, tt.plan), func(t *testing.T) {
			sub := &models.Subscription{Status: tt.status, Plan: tt.plan}
			assert.Equal(t, tt.want, EntitlingPlanFor(sub))
		})
	}
}
