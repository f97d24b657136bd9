package controllers

import (
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/MarcusHaas/NeuraDesk/app/models"
	"github.com/MarcusHaas/NeuraDesk/app/repository"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/audit"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/database"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/entitlements"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/quota"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/statistics"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/usercontext"
)

// AdminController handles admin-related HTTP requests using repository pattern
type AdminController struct {
	repos *repository.Repositories
}

var adminController *AdminController

// NewAdminController creates a new admin controller with repository dependencies
func NewAdminController(repos *repository.Repositories) *AdminController {
	return &AdminController{repos: repos}
}

// InitializeAdminController wires the controller to the global repositories
func InitializeAdminController() {
	adminController = NewAdminController(repository.GetGlobalRepositories())
}

func HandleAdminDashboard(c *fiber.Ctx) error { return adminController.HandleDashboard(c) }
func HandleAdminUsers(c *fiber.Ctx) error     { return adminController.HandleUsers(c) }
func HandleAdminUserEdit(c *fiber.Ctx) error  { return adminController.HandleUserEdit(c) }
func HandleAdminUserUpdate(c *fiber.Ctx) error {
	return adminController.HandleUserUpdate(c)
}
func HandleAdminUserUpdatePlan(c *fiber.Ctx) error {
	return adminController.HandleUserUpdatePlan(c)
}
func HandleAdminUserDelete(c *fiber.Ctx) error { return adminController.HandleUserDelete(c) }
func HandleAdminSearch(c *fiber.Ctx) error     { return adminController.HandleSearch(c) }
func HandleAdminSubscriptions(c *fiber.Ctx) error {
	return adminController.HandleSubscriptions(c)
}
func HandleAdminAuditLog(c *fiber.Ctx) error { return adminController.HandleAuditLog(c) }

// HandleDashboard renders the admin dashboard with aggregated statistics
func (ac *AdminController) HandleDashboard(c *fiber.Ctx) error {
	stats := statistics.GetStatisticsData()

	userCount, err := ac.repos.User.Count()
	if err != nil {
		return ac.handleError(c, "Benutzer konnten nicht gezählt werden", err)
	}
	workspaceCount, err := ac.repos.Workspace.Count()
	if err != nil {
		return ac.handleError(c, "Workspaces konnten nicht gezählt werden", err)
	}
	activeSubs, err := ac.repos.Subscription.CountByStatus(models.SubscriptionStatusActive)
	if err != nil {
		return ac.handleError(c, "Abonnements konnten nicht gezählt werden", err)
	}

	dailyStats := ac.getLastSevenDaysStats()

	return c.Render("admin/dashboard", fiber.Map{
		"Title":          "Admin Dashboard",
		"CSRFToken":      c.Locals("csrf"),
		"Flash":          flash.Get(c),
		"FromProtected":  true,
		"IsAdmin":        true,
		"TotalUsers":     userCount,
		"TotalRequests":  stats.TotalRequests,
		"TodayRequests":  stats.TodayRequests,
		"WorkspaceCount": workspaceCount,
		"ActiveSubs":     activeSubs,
		"DailyStats":     dailyStats,
	})
}

// HandleUsers renders the paginated user list with usage statistics
func (ac *AdminController) HandleUsers(c *fiber.Ctx) error {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	const perPage = 25
	offset := (page - 1) * perPage

	users, err := ac.repos.User.GetWithStats(offset, perPage)
	if err != nil {
		return ac.handleError(c, "Benutzer konnten nicht geladen werden", err)
	}
	total, err := ac.repos.User.Count()
	if err != nil {
		return ac.handleError(c, "Benutzer konnten nicht gezählt werden", err)
	}

	return c.Render("admin/users", fiber.Map{
		"Title":         "Benutzerverwaltung",
		"CSRFToken":     c.Locals("csrf"),
		"Flash":         flash.Get(c),
		"FromProtected": true,
		"IsAdmin":       true,
		"Users":         users,
		"Page":          page,
		"PerPage":       perPage,
		"Total":         total,
		"HasMore":       int64(offset+len(users)) < total,
	})
}

func (ac *AdminController) HandleUserEdit(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return ac.handleError(c, "Ungültige Benutzer-ID", err)
	}

	user, err := ac.repos.User.GetByID(uint(id))
	if err != nil {
		return ac.handleError(c, "Benutzer nicht gefunden", err)
	}

	quotaState, err := quota.NewServiceFromDB(database.GetDB()).CheckAIRequestQuota(user.ID)
	if err != nil {
		quotaState = nil
	}
	subscriptions, err := ac.repos.Subscription.ListByUser(user.ID)
	if err != nil {
		subscriptions = nil
	}

	return c.Render("admin/user_edit", fiber.Map{
		"Title":         "Benutzer bearbeiten",
		"CSRFToken":     c.Locals("csrf"),
		"Flash":         flash.Get(c),
		"FromProtected": true,
		"IsAdmin":       true,
		"User":          user,
		"Quota":         quotaState,
		"Subscriptions": subscriptions,
	})
}

func (ac *AdminController) HandleUserUpdate(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return ac.handleError(c, "Ungültige Benutzer-ID", err)
	}

	user, err := ac.repos.User.GetByID(uint(id))
	if err != nil {
		return ac.handleError(c, "Benutzer nicht gefunden", err)
	}

	name := strings.TrimSpace(c.FormValue("name"))
	if name != "" {
		user.Name = name
	}
	role := c.FormValue("role")
	if models.RoleRank(role) >= 0 {
		user.Role = role
	}
	status := c.FormValue("status")
	switch status {
	case models.STATUS_ACTIVE, models.STATUS_INACTIVE, models.STATUS_DISABLED:
		user.Status = status
	}

	if err := ac.repos.User.Update(user); err != nil {
		return ac.handleError(c, "Benutzer konnte nicht gespeichert werden", err)
	}

	flash.WithSuccess(c, fiber.Map{"type": "success", "message": "Benutzer aktualisiert"})
	return c.Redirect("/admin/users")
}

// HandleUserUpdatePlan overrides a user's cached plan and reapplies the
// matching quota limit mid-period. Counters are kept.
func (ac *AdminController) HandleUserUpdatePlan(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return ac.handleError(c, "Ungültige Benutzer-ID", err)
	}

	plan, ok := entitlements.ParsePlan(c.FormValue("plan"))
	if !ok {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Unbekannter Plan"})
		return c.Redirect("/admin/users")
	}

	db := database.GetDB()
	settings, err := models.GetOrCreateUserSettings(db, uint(id))
	if err != nil {
		return ac.handleError(c, "Einstellungen konnten nicht geladen werden", err)
	}
	settings.Plan = string(plan)
	if err := db.Save(settings).Error; err != nil {
		return ac.handleError(c, "Plan konnte nicht gespeichert werden", err)
	}

	if err := quota.NewStoreFromDB(db).ApplyPlanLimit(uint(id)); err != nil {
		log.Printf("[Admin] failed to apply plan limit for user %d: %v", id, err)
	}

	actor := usercontext.GetUserID(c)
	audit.NewRecorder(db).Record(&actor, models.AuditSubscriptionUpdated, "user", strconv.FormatUint(id, 10), map[string]interface{}{
		"plan":   string(plan),
		"source": "admin_override",
	})

	flash.WithSuccess(c, fiber.Map{"type": "success", "message": "Plan aktualisiert"})
	return c.Redirect("/admin/users")
}

func (ac *AdminController) HandleUserDelete(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return ac.handleError(c, "Ungültige Benutzer-ID", err)
	}

	if uint(id) == usercontext.GetUserID(c) {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Du kannst dich nicht selbst löschen"})
		return c.Redirect("/admin/users")
	}

	if err := ac.repos.User.Delete(uint(id)); err != nil {
		return ac.handleError(c, "Benutzer konnte nicht gelöscht werden", err)
	}

	flash.WithSuccess(c, fiber.Map{"type": "success", "message": "Benutzer gelöscht"})
	return c.Redirect("/admin/users")
}

// HandleSearch searches users by name or email
func (ac *AdminController) HandleSearch(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return c.Redirect("/admin/users")
	}

	users, err := ac.repos.User.SearchWithStats(query)
	if err != nil {
		return ac.handleError(c, "Suche fehlgeschlagen", err)
	}

	return c.Render("admin/users", fiber.Map{
		"Title":         "Suche: " + query,
		"CSRFToken":     c.Locals("csrf"),
		"Flash":         flash.Get(c),
		"FromProtected": true,
		"IsAdmin":       true,
		"Users":         users,
		"Query":         query,
		"Page":          1,
		"Total":         int64(len(users)),
		"HasMore":       false,
	})
}

// HandleSubscriptions lists recent subscriptions across all users
func (ac *AdminController) HandleSubscriptions(c *fiber.Ctx) error {
	total, err := ac.repos.Subscription.Count()
	if err != nil {
		return ac.handleError(c, "Abonnements konnten nicht gezählt werden", err)
	}

	var subscriptions []models.Subscription
	if err := database.GetDB().Order("updated_at DESC").Limit(100).Find(&subscriptions).Error; err != nil {
		return ac.handleError(c, "Abonnements konnten nicht geladen werden", err)
	}

	byStatus := map[string]int64{}
	for _, status := range []string{
		models.SubscriptionStatusActive,
		models.SubscriptionStatusTrialing,
		models.SubscriptionStatusPastDue,
		models.SubscriptionStatusCanceled,
	} {
		count, err := ac.repos.Subscription.CountByStatus(status)
		if err == nil {
			byStatus[status] = count
		}
	}

	return c.Render("admin/subscriptions", fiber.Map{
		"Title":         "Abonnements",
		"CSRFToken":     c.Locals("csrf"),
		"Flash":         flash.Get(c),
		"FromProtected": true,
		"IsAdmin":       true,
		"Subscriptions": subscriptions,
		"Total":         total,
		"ByStatus":      byStatus,
	})
}

// HandleAuditLog renders the append-only audit trail, newest first
func (ac *AdminController) HandleAuditLog(c *fiber.Ctx) error {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	const perPage = 50
	offset := (page - 1) * perPage

	entries, err := ac.repos.AuditLog.List(offset, perPage)
	if err != nil {
		return ac.handleError(c, "Audit-Log konnte nicht geladen werden", err)
	}
	total, err := ac.repos.AuditLog.Count()
	if err != nil {
		total = int64(len(entries))
	}

	return c.Render("admin/audit_log", fiber.Map{
		"Title":         "Audit-Log",
		"CSRFToken":     c.Locals("csrf"),
		"Flash":         flash.Get(c),
		"FromProtected": true,
		"IsAdmin":       true,
		"Entries":       entries,
		"Page":          page,
		"Total":         total,
		"HasMore":       int64(offset+len(entries)) < total,
	})
}

func (ac *AdminController) handleError(c *fiber.Ctx, message string, err error) error {
	log.Printf("[Admin] %s: %v", message, err)
	flash.WithError(c, fiber.Map{"type": "error", "message": message})
	return c.Redirect("/admin")
}

// getLastSevenDaysStats returns request counts per day for the dashboard
// chart, with gaps filled by zero entries.
func (ac *AdminController) getLastSevenDaysStats() []models.DailyStats {
	const days = 7
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -(days - 1)).Truncate(24 * time.Hour)

	stats, err := ac.repos.UsageLog.GetDailyStats(start, end)
	if err != nil {
		log.Printf("[Admin] daily stats query failed: %v", err)
		stats = nil
	}

	byDate := make(map[string]int, len(stats))
	for _, s := range stats {
		byDate[s.Date] = s.Count
	}

	filled := make([]models.DailyStats, 0, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		filled = append(filled, models.DailyStats{Date: date, Count: byDate[date]})
	}
	return filled
}
