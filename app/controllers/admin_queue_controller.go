package controllers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/MarcusHaas/NeuraDesk/app/repository"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/jobqueue"
)

// AdminQueueController exposes the Redis job queue to the admin panel
type AdminQueueController struct {
	queues repository.QueueRepository
}

var adminQueueController *AdminQueueController

// InitializeAdminQueueController wires the controller to the global repositories
func InitializeAdminQueueController() {
	adminQueueController = &AdminQueueController{
		queues: repository.GetGlobalRepositories().Queue,
	}
}

func HandleAdminQueues(c *fiber.Ctx) error     { return adminQueueController.HandleQueues(c) }
func HandleAdminQueuesData(c *fiber.Ctx) error { return adminQueueController.HandleQueuesData(c) }
func HandleAdminQueueDelete(c *fiber.Ctx) error {
	return adminQueueController.HandleQueueDelete(c)
}
func HandleAdminQueueBulkDelete(c *fiber.Ctx) error {
	return adminQueueController.HandleQueueBulkDelete(c)
}

// HandleQueues renders the queue monitor page
func (qc *AdminQueueController) HandleQueues(c *fiber.Ctx) error {
	return c.Render("admin/queues", fiber.Map{
		"Title":         "Job-Queues",
		"CSRFToken":     c.Locals("csrf"),
		"Flash":         flash.Get(c),
		"FromProtected": true,
		"IsAdmin":       true,
		"WorkerRunning": jobqueue.GetManager().IsRunning(),
	})
}

// HandleQueuesData returns queue contents as JSON for the monitor page
func (qc *AdminQueueController) HandleQueuesData(c *fiber.Ctx) error {
	keys, err := qc.queues.GetJobQueueKeys()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Queue-Keys konnten nicht geladen werden"})
	}

	entries := make([]fiber.Map, 0, len(keys))
	for _, key := range keys {
		entry := fiber.Map{"key": key}

		if length, err := qc.queues.GetListLength(key); err == nil && length > 0 {
			entry["type"] = "list"
			entry["length"] = length
		} else if value, err := qc.queues.GetValue(key); err == nil {
			entry["type"] = "value"
			entry["value"] = value
		}
		if ttl, err := qc.queues.GetTTL(key); err == nil && ttl > 0 {
			entry["ttl_seconds"] = int64(ttl.Seconds())
		}

		entries = append(entries, entry)
	}

	return c.JSON(fiber.Map{
		"worker_running": jobqueue.GetManager().IsRunning(),
		"entries":        entries,
	})
}

// HandleQueueDelete removes a single queue key
func (qc *AdminQueueController) HandleQueueDelete(c *fiber.Ctx) error {
	key := strings.TrimSpace(c.Params("key"))
	if key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Key fehlt"})
	}

	deleted, err := qc.queues.DeleteKey(key)
	if err != nil {
		log.Printf("[AdminQueue] failed to delete key %s: %v", key, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Key konnte nicht gelöscht werden"})
	}

	return c.JSON(fiber.Map{"deleted": deleted})
}

// HandleQueueBulkDelete removes multiple queue keys at once
func (qc *AdminQueueController) HandleQueueBulkDelete(c *fiber.Ctx) error {
	var body struct {
		Keys []string `json:"keys"`
	}
	if err := c.BodyParser(&body); err != nil || len(body.Keys) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Keine Keys angegeben"})
	}

	var deleted int64
	for _, key := range body.Keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		n, err := qc.queues.DeleteKey(key)
		if err != nil {
			log.Printf("[AdminQueue] failed to delete key %s: %v", key, err)
			continue
		}
		deleted += n
	}

	return c.JSON(fiber.Map{"deleted": deleted})
}
