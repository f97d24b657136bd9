package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/MarcusHaas/NeuraDesk/internal/pkg/constants"
)

// HandleFlashQuotaExceeded sets a flash error and redirects to the dashboard.
// Frontend code sends denied requests here after a 429.
func HandleFlashQuotaExceeded(c *fiber.Ctx) error {
	fm := fiber.Map{
		"type":    "error",
		"message": "Dein monatliches Kontingent ist aufgebraucht. Upgrade deinen Plan oder warte bis zum Monatsanfang.",
	}
	flash.WithError(c, fm)
	return c.Redirect(constants.PublicRoute, fiber.StatusSeeOther)
}

// HandleFlashModelNotAllowed informs the user that the chosen model requires
// a higher plan. Query: ?model=...
func HandleFlashModelNotAllowed(c *fiber.Ctx) error {
	model := c.Query("model", "")
	msg := "Dieses Modell ist in deinem Plan nicht enthalten."
	if model != "" {
		if len(model) > 100 {
			model = model[:100]
		}
		msg = "Das Modell \"" + model + "\" ist in deinem Plan nicht enthalten."
	}
	fm := fiber.Map{
		"type":    "error",
		"message": msg,
	}
	flash.WithError(c, fm)
	return c.Redirect(constants.PricingRoute, fiber.StatusSeeOther)
}
