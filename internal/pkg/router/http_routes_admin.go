package router

import (
	"github.com/MarcusHaas/NeuraDesk/app/controllers"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
)

func (h HttpRouter) registerAdminRoutes(app *fiber.App) {
	adminGroup := app.Group("/admin", middleware.RequireAdmin)
	adminGroup.Get("/", controllers.HandleAdminDashboard)
	adminGroup.Get("/users", controllers.HandleAdminUsers)
	adminGroup.Get("/users/edit/:id", controllers.HandleAdminUserEdit)
	adminGroup.Post("/users/update/:id", controllers.HandleAdminUserUpdate)
	adminGroup.Post("/users/update-plan/:id", controllers.HandleAdminUserUpdatePlan)
	adminGroup.Post("/users/delete/:id", controllers.HandleAdminUserDelete)

	// Billing + audit
	adminGroup.Get("/subscriptions", controllers.HandleAdminSubscriptions)
	adminGroup.Get("/audit-log", controllers.HandleAdminAuditLog)

	// Search + queue monitor
	adminGroup.Get("/search", controllers.HandleAdminSearch)
	adminGroup.Get("/queues", controllers.HandleAdminQueues)
	adminGroup.Get("/queues/data", controllers.HandleAdminQueuesData)
	adminGroup.Delete("/queues/delete/:key", controllers.HandleAdminQueueDelete)
	adminGroup.Post("/queues/bulk-delete", controllers.HandleAdminQueueBulkDelete)
}
