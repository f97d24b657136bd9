package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/MarcusHaas/NeuraDesk/app/controllers"
)

// APIServer implements the ServerInterface
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// GetUserProfile returns account information for the authenticated user (API key).
// Security is enforced via API key middleware attached in the router.
func (s *APIServer) GetUserProfile(c *fiber.Ctx) error {
	return controllers.HandleGetUserAccount(c)
}

// GetQuota returns the current monthly quota state (API key protected).
// Security is enforced via API key middleware attached in the router.
func (s *APIServer) GetQuota(c *fiber.Ctx) error {
	return controllers.HandleGetQuotaAPI(c)
}

// PostCompletions meters and serves one AI request (API key protected).
// Security is enforced via API key middleware attached in the router.
func (s *APIServer) PostCompletions(c *fiber.Ctx) error {
	return controllers.HandleAICompletionAPI(c)
}
