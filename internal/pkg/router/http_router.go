package router

import (
	"github.com/MarcusHaas/NeuraDesk/app/controllers"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/middleware"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/oauth"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/session"

	"github.com/gofiber/fiber/v2"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	// Initialize admin controllers with repositories
	controllers.InitializeAdminController()
	controllers.InitializeAdminQueueController()

	h.registerPublicRoutes(app)
	h.registerAdminRoutes(app)
	h.registerCSRFProtectedRoutes(app)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

func loggedInMiddleware(c *fiber.Ctx) error {
	// UserContextMiddleware already set all user context
	// All user information is available via usercontext.GetUserContext(c)
	return c.Next()
}
