package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/MarcusHaas/NeuraDesk/app/models"
	"github.com/MarcusHaas/NeuraDesk/app/repository"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/database"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/entitlements"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/quota"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/session"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/usercontext"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/utils"
)

func HandleUserProfile(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	repos := repository.GetGlobalRepositories()
	user, err := repos.User.GetByID(userCtx.UserID)
	if err != nil {
		flash.WithError(c, fiber.Map{"type": "error", "message": "User not found"})
		return c.Redirect("/")
	}

	stats, err := repos.User.GetStatsByUserID(userCtx.UserID)
	if err != nil {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Statistiken konnten nicht geladen werden"})
		return c.Redirect("/")
	}

	// Quota widget data. The read path performs the lazy monthly reset, so
	// the profile always shows the current period.
	quotaState, err := quota.NewServiceFromDB(database.GetDB()).CheckAIRequestQuota(userCtx.UserID)
	if err != nil {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Kontingent konnte nicht geladen werden"})
		return c.Redirect("/")
	}

	subscriptions, err := repos.Subscription.ListByUser(userCtx.UserID)
	if err != nil {
		subscriptions = nil
	}

	avatarURL := user.AvatarURL
	if avatarURL == "" {
		avatarURL = utils.GetGravatarURL(user.Email, 200)
	}

	return c.Render("user/profile", fiber.Map{
		"Title":         "Profil",
		"CSRFToken":     c.Locals("csrf"),
		"Flash":         flash.Get(c),
		"FromProtected": true,
		"IsAdmin":       userCtx.IsAdmin,
		"User":          user,
		"AvatarURL":     avatarURL,
		"Plan":          userCtx.Plan,
		"Stats":         stats,
		"Quota":         quotaState,
		"Subscriptions": subscriptions,
	})
}

func HandleUserSettings(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	settings, err := models.GetOrCreateUserSettings(database.GetDB(), userCtx.UserID)
	if err != nil {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Einstellungen konnten nicht geladen werden"})
		return c.Redirect("/")
	}

	plan, _ := entitlements.ParsePlan(userCtx.Plan)

	return c.Render("user/settings", fiber.Map{
		"Title":          "Einstellungen",
		"CSRFToken":      c.Locals("csrf"),
		"Flash":          flash.Get(c),
		"FromProtected":  true,
		"IsAdmin":        userCtx.IsAdmin,
		"Settings":       settings,
		"Plan":           string(plan),
		"AllowedModels":  entitlements.AllowedModels(plan),
		"HasAPIKey":      settings.HasActiveAPIKey(),
		"APIKeyPrefix":   settings.APIKeyPrefix,
		"APIKeyLastUsed": settings.APIKeyLastUsedAt,
	})
}

func HandleUserSettingsPost(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	db := database.GetDB()
	settings, err := models.GetOrCreateUserSettings(db, userCtx.UserID)
	if err != nil {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Einstellungen konnten nicht geladen werden"})
		return c.Redirect("/user/settings")
	}

	plan, _ := entitlements.ParsePlan(userCtx.Plan)
	preferred := c.FormValue("preferred_model")
	if preferred != "" && !entitlements.ModelAllowed(plan, preferred) {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Dieses Modell ist in deinem Plan nicht enthalten"})
		return c.Redirect("/user/settings")
	}
	settings.PreferredModel = preferred
	settings.EmailQuotaAlerts = c.FormValue("email_quota_alerts") == "on"

	if err := db.Save(settings).Error; err != nil {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Speichern fehlgeschlagen"})
		return c.Redirect("/user/settings")
	}

	flash.WithSuccess(c, fiber.Map{"type": "success", "message": "Einstellungen gespeichert"})
	return c.Redirect("/user/settings")
}

// HandleUserAPIKeyGenerate issues a fresh API key. The raw secret is shown
// exactly once; only its hash is stored.
func HandleUserAPIKeyGenerate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	plan, _ := entitlements.ParsePlan(userCtx.Plan)
	if !entitlements.CanUseFeature(plan, entitlements.FeatureAPIAccess) {
		flash.WithError(c, fiber.Map{"type": "error", "message": "API-Zugriff ist in deinem Plan nicht enthalten"})
		return c.Redirect("/user/settings")
	}

	db := database.GetDB()
	settings, err := models.GetOrCreateUserSettings(db, userCtx.UserID)
	if err != nil {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Einstellungen konnten nicht geladen werden"})
		return c.Redirect("/user/settings")
	}

	rawKey, err := settings.IssueAPIKey()
	if err != nil {
		flash.WithError(c, fiber.Map{"type": "error", "message": "API-Key konnte nicht erzeugt werden"})
		return c.Redirect("/user/settings")
	}
	if err := db.Save(settings).Error; err != nil {
		flash.WithError(c, fiber.Map{"type": "error", "message": "API-Key konnte nicht gespeichert werden"})
		return c.Redirect("/user/settings")
	}

	return c.Render("user/api_key", fiber.Map{
		"Title":         "API-Key",
		"CSRFToken":     c.Locals("csrf"),
		"Flash":         flash.Get(c),
		"FromProtected": true,
		"IsAdmin":       userCtx.IsAdmin,
		"RawKey":        rawKey,
	})
}

func HandleUserAPIKeyRevoke(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	db := database.GetDB()
	settings, err := models.GetOrCreateUserSettings(db, userCtx.UserID)
	if err != nil {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Einstellungen konnten nicht geladen werden"})
		return c.Redirect("/user/settings")
	}

	settings.RevokeAPIKey()
	if err := db.Save(settings).Error; err != nil {
		flash.WithError(c, fiber.Map{"type": "error", "message": "API-Key konnte nicht widerrufen werden"})
		return c.Redirect("/user/settings")
	}

	flash.WithSuccess(c, fiber.Map{"type": "success", "message": "API-Key widerrufen"})
	return c.Redirect("/user/settings")
}

// HandleUserUsage lists the user's metered request history, newest first.
func HandleUserUsage(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	const perPage = 50
	offset := (page - 1) * perPage

	repos := repository.GetGlobalRepositories()
	logs, err := repos.UsageLog.GetByUserID(userCtx.UserID, offset, perPage)
	if err != nil {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Verlauf konnte nicht geladen werden"})
		return c.Redirect("/user/profile")
	}
	total, err := repos.UsageLog.CountByUserID(userCtx.UserID)
	if err != nil {
		total = int64(len(logs))
	}

	return c.Render("user/usage", fiber.Map{
		"Title":         "Verbrauch",
		"CSRFToken":     c.Locals("csrf"),
		"Flash":         flash.Get(c),
		"FromProtected": true,
		"IsAdmin":       userCtx.IsAdmin,
		"Logs":          logs,
		"Page":          page,
		"PerPage":       perPage,
		"Total":         total,
		"HasMore":       int64(offset+len(logs)) < total,
	})
}

// refreshSessionPlan recomputes the effective plan and re-caches it for the
// navbar. Called after anything that can change entitlements.
func refreshSessionPlan(c *fiber.Ctx, userID uint) {
	plan := entitlements.NewResolverFromDB(database.GetDB()).ResolveEffectivePlan(userID)
	_ = session.SetSessionValue(c, "user_plan", string(plan))
}
