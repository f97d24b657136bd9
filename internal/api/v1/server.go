package apiv1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/MarcusHaas/NeuraDesk/internal/pkg/middleware"
)

// Pong is the ping endpoint response body.
type Pong struct {
	Ping string `json:"ping"`
}

// ServerInterface is the contract for the public v1 API. The route shapes
// mirror public/docs/v1/openapi.yml.
type ServerInterface interface {
	GetPing(c *fiber.Ctx) error
	GetUserProfile(c *fiber.Ctx) error
	GetQuota(c *fiber.Ctx) error
	PostCompletions(c *fiber.Ctx) error
}

// RegisterHandlers attaches the v1 routes to the given router group.
// Everything except ping requires an API key.
func RegisterHandlers(router fiber.Router, si ServerInterface) {
	router.Get("/ping", si.GetPing)

	protected := router.Group("", middleware.APIKeyAuthMiddleware())
	protected.Get("/user/profile", si.GetUserProfile)
	protected.Get("/user/quota", si.GetQuota)
	protected.Post("/ai/completions", si.PostCompletions)
}
