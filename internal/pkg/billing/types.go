package billing

import "time"

// Webhook event types Polar delivers for subscriptions. Everything else is
// logged and ignored so new provider event types never break the endpoint.
const (
	EventSubscriptionCreated  = "subscription.created"
	EventSubscriptionUpdated  = "subscription.updated"
	EventSubscriptionCanceled = "subscription.canceled"
)

// WebhookEvent is the outer envelope of a Polar webhook body.
type WebhookEvent struct {
	ID   string      `json:"id"`
	Type string      `json:"type"`
	Data WebhookData `json:"data"`
}

// WebhookData carries the nested subscription and customer objects.
type WebhookData struct {
	Subscription SubscriptionPayload `json:"subscription"`
	Customer     CustomerPayload     `json:"customer"`
}

// SubscriptionPayload mirrors the provider's subscription object. Metadata is
// opaque to Polar; we set `workspace_id` there during checkout to scope a
// subscription to a workspace instead of the purchasing user.
type SubscriptionPayload struct {
	ID                 string                 `json:"id"`
	Status             string                 `json:"status"`
	ProductID          string                 `json:"product_id"`
	CustomerID         string                 `json:"customer_id"`
	CurrentPeriodStart *time.Time             `json:"current_period_start"`
	CurrentPeriodEnd   *time.Time             `json:"current_period_end"`
	CancelAtPeriodEnd  bool                   `json:"cancel_at_period_end"`
	Metadata           map[string]interface{} `json:"metadata"`
}

// CustomerPayload identifies the purchasing customer. Email is the join key
// to a local user account.
type CustomerPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}
