package billing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/MarcusHaas/NeuraDesk/app/models"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/audit"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/entitlements"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/quota"
	"gorm.io/gorm"
)

// QuotaInitializer is what the webhook processor needs from the quota store:
// apply a new limit mid-period (created) or start a fresh period (plan change).
type QuotaInitializer interface {
	ApplyPlanLimit(userID uint) error
	Reinitialize(userID uint) error
}

// Service is the subscription webhook processor. It owns the Subscription row
// lifecycle; quota counters are only ever touched through the initializer.
type Service struct {
	repo     Repository
	quota    QuotaInitializer
	products ProductMapping
	audit    audit.Recorder
}

func NewService(repo Repository, q QuotaInitializer, products ProductMapping, recorder audit.Recorder) *Service {
	return &Service{repo: repo, quota: q, products: products, audit: recorder}
}

// NewServiceFromDB wires the processor to GORM, the env product mapping and
// the DB-backed audit trail.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(
		NewRepository(db),
		quota.NewStoreFromDB(db),
		ProductMappingFromEnv(),
		audit.NewRecorder(db),
	)
}

// ParseWebhookEvent decodes a raw webhook body. Callers reject the request
// with 400 when this fails; nothing in the body is trusted before the
// signature check has passed.
func ParseWebhookEvent(raw []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, err
	}
	if strings.TrimSpace(event.Type) == "" {
		return nil, errors.New("webhook event has no type")
	}
	return &event, nil
}

// ProcessEvent dispatches one verified event. The returned error is for the
// webhook ledger only: the HTTP response stays 200 once the signature passed,
// so a permanently failing payload never triggers a provider retry storm.
func (s *Service) ProcessEvent(event *WebhookEvent, rawBody []byte) error {
	switch event.Type {
	case EventSubscriptionCreated:
		return s.handleCreated(event, rawBody)
	case EventSubscriptionUpdated:
		return s.handleUpdated(event, rawBody)
	case EventSubscriptionCanceled:
		return s.handleCanceled(event)
	default:
		log.Printf("[Billing] ignoring webhook event type %q", event.Type)
		return nil
	}
}

func (s *Service) handleCreated(event *WebhookEvent, rawBody []byte) error {
	payload := event.Data.Subscription
	if strings.TrimSpace(payload.ID) == "" {
		return errors.New("subscription.created without subscription id")
	}

	plan, known := s.products.PlanForProduct(payload.ProductID)
	if !known {
		log.Printf("[Billing] unknown product %q on subscription %s, falling back to free", payload.ProductID, payload.ID)
	}

	sub := &models.Subscription{
		PolarSubscriptionID: payload.ID,
		PolarCustomerID:     payload.CustomerID,
		PolarProductID:      payload.ProductID,
		Plan:                string(plan),
		Status:              normalizeStatus(payload.Status),
		CurrentPeriodStart:  payload.CurrentPeriodStart,
		CurrentPeriodEnd:    payload.CurrentPeriodEnd,
		CancelAtPeriodEnd:   payload.CancelAtPeriodEnd,
		RawPayloadJSON:      string(rawBody),
	}

	if workspaceID, ok := workspaceIDFromMetadata(payload.Metadata); ok {
		sub.WorkspaceID = &workspaceID
	} else {
		email := strings.TrimSpace(event.Data.Customer.Email)
		if email == "" {
			log.Printf("[Billing] subscription %s has no customer email, skipping", payload.ID)
			return nil
		}
		user, err := s.repo.GetUserByEmail(email)
		if err != nil {
			// No local account for this customer. Logged and dropped; a later
			// redelivery after signup will reconcile.
			log.Printf("[Billing] no user for customer email on subscription %s: %v", payload.ID, err)
			return nil
		}
		sub.UserID = &user.ID
	}

	if err := s.repo.UpsertSubscription(sub); err != nil {
		return fmt.Errorf("upsert subscription %s: %w", payload.ID, err)
	}

	if err := s.applyPlanToScope(sub, string(plan), false); err != nil {
		return err
	}

	s.audit.Record(nil, models.AuditSubscriptionCreated, "subscription", sub.PolarSubscriptionID, map[string]interface{}{
		"plan":            sub.Plan,
		"status":          sub.Status,
		"subscription_id": sub.PolarSubscriptionID,
	})
	return nil
}

func (s *Service) handleUpdated(event *WebhookEvent, rawBody []byte) error {
	payload := event.Data.Subscription

	existing, err := s.repo.GetSubscriptionByPolarID(payload.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Out-of-order delivery: updated before created. A redelivered
			// created event will reconcile, so this is a logged no-op.
			log.Printf("[Billing] subscription.updated for unknown subscription %s, skipping", payload.ID)
			return nil
		}
		return fmt.Errorf("load subscription %s: %w", payload.ID, err)
	}

	prevPlan, prevStatus := existing.Plan, existing.Status

	newPlan := existing.Plan
	if payload.ProductID != "" {
		plan, known := s.products.PlanForProduct(payload.ProductID)
		if known {
			newPlan = string(plan)
		} else {
			log.Printf("[Billing] unknown product %q on subscription %s, keeping plan %q", payload.ProductID, payload.ID, existing.Plan)
		}
		existing.PolarProductID = payload.ProductID
	}

	existing.Plan = newPlan
	existing.Status = normalizeStatus(payload.Status)
	existing.CurrentPeriodStart = payload.CurrentPeriodStart
	existing.CurrentPeriodEnd = payload.CurrentPeriodEnd
	existing.CancelAtPeriodEnd = payload.CancelAtPeriodEnd
	existing.RawPayloadJSON = string(rawBody)

	if err := s.repo.UpsertSubscription(existing); err != nil {
		return fmt.Errorf("update subscription %s: %w", payload.ID, err)
	}

	if newPlan != prevPlan {
		// Upgrades and downgrades take effect immediately, not at the natural
		// monthly rollover.
		if err := s.applyPlanToScope(existing, newPlan, true); err != nil {
			return err
		}
	}

	s.audit.Record(nil, models.AuditSubscriptionUpdated, "subscription", existing.PolarSubscriptionID, map[string]interface{}{
		"plan":   map[string]string{"from": prevPlan, "to": existing.Plan},
		"status": map[string]string{"from": prevStatus, "to": existing.Status},
	})
	return nil
}

func (s *Service) handleCanceled(event *WebhookEvent) error {
	payload := event.Data.Subscription

	existing, err := s.repo.GetSubscriptionByPolarID(payload.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[Billing] subscription.canceled for unknown subscription %s, skipping", payload.ID)
			return nil
		}
		return fmt.Errorf("load subscription %s: %w", payload.ID, err)
	}

	// The row stays as history; cancellation takes effect at period end.
	existing.Status = models.SubscriptionStatusCanceled
	existing.CancelAtPeriodEnd = true
	if err := s.repo.UpsertSubscription(existing); err != nil {
		return fmt.Errorf("cancel subscription %s: %w", payload.ID, err)
	}

	// A canceled subscription no longer entitles. Push whatever plan the
	// scope still grants into the plan caches and quota rows, keeping the
	// accrued usage; otherwise a stale limit from the old plan would keep
	// gating requests until the next rollover.
	if err := s.applyPlanToScope(existing, string(EntitlingPlanFor(existing)), false); err != nil {
		return err
	}

	s.audit.Record(nil, models.AuditSubscriptionCanceled, "subscription", existing.PolarSubscriptionID, map[string]interface{}{
		"plan":   existing.Plan,
		"status": existing.Status,
	})
	return nil
}

// applyPlanToScope pushes a plan change to the denormalized plan caches and
// quota rows of everyone the subscription covers. reinit distinguishes the
// created case (keep accrued usage, just raise the limit) from a mid-period
// plan change (fresh period).
func (s *Service) applyPlanToScope(sub *models.Subscription, plan string, reinit bool) error {
	apply := s.quota.ApplyPlanLimit
	if reinit {
		apply = s.quota.Reinitialize
	}

	if sub.WorkspaceID != nil {
		if err := s.repo.UpdateWorkspacePlan(*sub.WorkspaceID, plan); err != nil {
			return fmt.Errorf("update workspace %d plan: %w", *sub.WorkspaceID, err)
		}
		memberIDs, err := s.repo.ListWorkspaceMemberIDs(*sub.WorkspaceID)
		if err != nil {
			return fmt.Errorf("list workspace %d members: %w", *sub.WorkspaceID, err)
		}
		for _, userID := range memberIDs {
			if err := apply(userID); err != nil {
				return fmt.Errorf("apply plan to member %d: %w", userID, err)
			}
		}
		return nil
	}

	userID := *sub.UserID
	if err := s.repo.UpdateUserSettingsPlan(userID, plan); err != nil {
		return fmt.Errorf("update settings plan for user %d: %w", userID, err)
	}
	if err := apply(userID); err != nil {
		return fmt.Errorf("apply plan to user %d: %w", userID, err)
	}
	return nil
}

// RecordWebhookEvent persists the raw event into the retry ledger. Events
// without a provider id are keyed by a hash of the payload.
func (s *Service) RecordWebhookEvent(eventID, eventType string, payload []byte, signatureValid bool) (bool, *models.BillingWebhookEvent, error) {
	id := strings.TrimSpace(eventID)
	if id == "" {
		sum := sha256.Sum256(payload)
		id = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        "polar",
		ProviderEventID: id,
		EventType:       strings.TrimSpace(eventType),
		PayloadJSON:     string(payload),
		SignatureValid:  signatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed closes a ledger entry, storing the handler error if any.
func (s *Service) MarkWebhookProcessed(webhookEventID uint, processingErr error) error {
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

func normalizeStatus(status string) string {
	st := strings.ToLower(strings.TrimSpace(status))
	if st == "" {
		return models.SubscriptionStatusActive
	}
	return st
}

func workspaceIDFromMetadata(metadata map[string]interface{}) (uint, bool) {
	raw, ok := metadata["workspace_id"]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		if v > 0 {
			return uint(v), true
		}
	case string:
		if id, err := strconv.ParseUint(v, 10, 32); err == nil && id > 0 {
			return uint(id), true
		}
	}
	return 0, false
}

// EntitlingPlanFor maps a subscription to the plan it currently grants, or
// free when its status no longer entitles.
func EntitlingPlanFor(sub *models.Subscription) entitlements.Plan {
	if !entitlements.IsEntitlingStatus(sub.Status) {
		return entitlements.PlanFree
	}
	if plan, ok := entitlements.ParsePlan(sub.Plan); ok {
		return plan
	}
	return entitlements.PlanFree
}
