package router

import (
	"github.com/MarcusHaas/NeuraDesk/app/controllers"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// API routes moved to ApiRouter (internal/pkg/router/api_router.go)
	app.Get("/docs/api", loggedInMiddleware, controllers.HandleDocsAPI)

	// Public pages
	app.Get("/pricing", loggedInMiddleware, controllers.HandlePricing)

	// Flash helpers
	app.Get("/flash/quota-exceeded", loggedInMiddleware, controllers.HandleFlashQuotaExceeded)
	app.Get("/flash/model-not-allowed", loggedInMiddleware, controllers.HandleFlashModelNotAllowed)

	// Auth
	app.Post("/logout", middleware.RequireAuth, controllers.HandleAuthLogout)

	// Social OAuth
	app.Get("/auth/:provider", gothfiber.BeginAuthHandler)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)

	// Billing: hosted checkout redirect + provider webhooks (no CSRF,
	// signature-verified in controller)
	app.Get("/billing/checkout", middleware.RequireAuth, controllers.HandleBillingCheckout)
	app.Post("/webhooks/polar", controllers.HandlePolarWebhook)
}
