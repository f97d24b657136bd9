package controllers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/MarcusHaas/NeuraDesk/internal/pkg/billing"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/constants"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/database"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/env"
)

// HandlePolarWebhook receives subscription lifecycle events from Polar.
// Order is fixed: verify the signature against the raw body first, then
// parse, then record into the ledger, then process. Handler failures after a
// valid signature still answer 200 so Polar does not retry a payload that
// will never succeed; the error lands in the ledger instead.
func HandlePolarWebhook(c *fiber.Ctx) error {
	secret := env.GetEnv("POLAR_WEBHOOK_SECRET", "")
	if secret == "" {
		log.Print("[Billing] POLAR_WEBHOOK_SECRET is not configured")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Webhook secret not configured"})
	}

	signature := strings.TrimSpace(c.Get("webhook-signature"))
	if signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Missing webhook-signature header"})
	}

	rawBody := append([]byte(nil), c.BodyRaw()...)
	if !billing.VerifyPolarWebhookSignature(rawBody, signature, secret) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid webhook signature"})
	}

	event, err := billing.ParseWebhookEvent(rawBody)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid webhook payload"})
	}

	svc := billing.NewServiceFromDB(database.GetDB())

	created, stored, err := svc.RecordWebhookEvent(event.ID, event.Type, rawBody, true)
	if err != nil {
		log.Printf("[Billing] failed to persist webhook event %s: %v", event.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to persist webhook event"})
	}

	if !created {
		log.Printf("[Billing] redelivery of webhook event %s (%s)", event.ID, event.Type)
	}

	// Processing is idempotent, so redeliveries run through the same path.
	processErr := svc.ProcessEvent(event, rawBody)
	if processErr != nil {
		log.Printf("[Billing] webhook event %s (%s) failed: %v", event.ID, event.Type, processErr)
	}
	if err := svc.MarkWebhookProcessed(stored.ID, processErr); err != nil {
		log.Printf("[Billing] failed to close ledger entry %d: %v", stored.ID, err)
	}

	return c.Status(fiber.StatusOK).SendString("OK")
}

// HandleBillingCheckout forwards the user to the hosted Polar checkout for
// the requested plan. NeuraDesk renders no checkout UI itself; the actual
// upgrade lands through the webhook once payment completes.
func HandleBillingCheckout(c *fiber.Ctx) error {
	var checkoutURL string
	switch c.Query("plan") {
	case "pro":
		checkoutURL = env.GetEnv("POLAR_CHECKOUT_URL_PRO", "")
	case "startup":
		checkoutURL = env.GetEnv("POLAR_CHECKOUT_URL_STARTUP", "")
	}

	if checkoutURL == "" {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Dieser Plan ist derzeit nicht buchbar"})
		return c.Redirect(constants.PricingRoute, fiber.StatusSeeOther)
	}

	return c.Redirect(checkoutURL, fiber.StatusSeeOther)
}
