package router

import (
	"strings"
	"time"

	"github.com/MarcusHaas/NeuraDesk/app/controllers"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/env"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"
)

func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	csrfConf := csrf.Config{
		KeyLookup:      "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/") || strings.HasPrefix(c.Path(), "/webhooks/")
		},
	}

	group := app.Group("", cors.New(), csrf.New(csrfConf))
	group.Get("/", loggedInMiddleware, controllers.HandleStart)
	group.Get("/login", loggedInMiddleware, controllers.HandleAuthLogin)
	group.Post("/login", loggedInMiddleware, controllers.HandleAuthLogin)
	group.Get("/register", loggedInMiddleware, controllers.HandleAuthRegister)
	group.Post("/register", loggedInMiddleware, controllers.HandleAuthRegister)
	group.Get("/activate", loggedInMiddleware, controllers.HandleAuthActivate)
	group.Post("/activate", loggedInMiddleware, controllers.HandleAuthActivate)

	// User area
	group.Get("/user/profile", middleware.RequireAuth, controllers.HandleUserProfile)
	group.Get("/user/settings", middleware.RequireAuth, controllers.HandleUserSettings)
	group.Post("/user/settings", middleware.RequireAuth, controllers.HandleUserSettingsPost)
	group.Post("/user/settings/api-key", middleware.RequireAuth, controllers.HandleUserAPIKeyGenerate)
	group.Post("/user/settings/api-key/revoke", middleware.RequireAuth, controllers.HandleUserAPIKeyRevoke)
	group.Get("/user/usage", middleware.RequireAuth, controllers.HandleUserUsage)

	// Workspaces; /create must be registered before the :slug routes
	group.Get("/user/workspaces", middleware.RequireAuth, controllers.HandleWorkspaces)
	group.Get("/user/workspaces/create", middleware.RequireAuth, controllers.HandleWorkspaceCreate)
	group.Post("/user/workspaces/create", middleware.RequireAuth, controllers.HandleWorkspaceCreate)
	group.Get("/user/workspaces/:slug", middleware.RequireAuth, controllers.HandleWorkspaceView)
	group.Post("/user/workspaces/:slug/members", middleware.RequireAuth, controllers.HandleWorkspaceAddMember)
	group.Post("/user/workspaces/:slug/members/:user_id/remove", middleware.RequireAuth, controllers.HandleWorkspaceRemoveMember)
	group.Post("/user/workspaces/:slug/members/:user_id/role", middleware.RequireAuth, controllers.HandleWorkspaceUpdateMemberRole)
}
