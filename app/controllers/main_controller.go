package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/MarcusHaas/NeuraDesk/internal/pkg/constants"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/database"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/entitlements"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/env"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/quota"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/statistics"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/usercontext"
)

// HandleStart renders the landing page for guests and the usage dashboard
// for logged-in users.
func HandleStart(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	if !userCtx.IsLoggedIn {
		stats := statistics.GetStatisticsData()
		return c.Render("home", fiber.Map{
			"Title":         "",
			"Flash":         flash.Get(c),
			"FromProtected": false,
			"IsDev":         env.IsDev(),
			"TotalUsers":    stats.TotalUsers,
			"TotalRequests": stats.TotalRequests,
		})
	}

	quotaState, err := quota.NewServiceFromDB(database.GetDB()).CheckAIRequestQuota(userCtx.UserID)
	if err != nil {
		quotaState = nil
	}

	plan, _ := entitlements.ParsePlan(userCtx.Plan)

	return c.Render("dashboard", fiber.Map{
		"Title":         "Dashboard",
		"CSRFToken":     c.Locals("csrf"),
		"Flash":         flash.Get(c),
		"FromProtected": true,
		"IsAdmin":       userCtx.IsAdmin,
		"Username":      userCtx.Username,
		"Plan":          string(plan),
		"Quota":         quotaState,
		"AllowedModels": entitlements.AllowedModels(plan),
	})
}

// HandlePricing renders the public plan comparison page
func HandlePricing(c *fiber.Ctx) error {
	plans := make([]fiber.Map, 0, 3)
	for _, plan := range []entitlements.Plan{entitlements.PlanFree, entitlements.PlanPro, entitlements.PlanStartup} {
		features, err := entitlements.FeaturesFor(plan)
		if err != nil {
			continue
		}
		plans = append(plans, fiber.Map{
			"Name":            string(plan),
			"AIRequests":      features.AIRequests,
			"Unlimited":       features.AIRequests == entitlements.UnlimitedAIRequests,
			"Models":          features.Models,
			"APIAccess":       features.APIAccess,
			"TeamWorkspaces":  features.TeamWorkspaces,
			"PrioritySupport": features.PrioritySupport,
		})
	}

	return c.Render("pricing", fiber.Map{
		"Title":         "Preise",
		"Flash":         flash.Get(c),
		"FromProtected": usercontext.IsLoggedIn(c),
		"IsAdmin":       usercontext.IsAdmin(c),
		"Plans":         plans,
	})
}

// HandleDocsAPI redirects to the rendered OpenAPI documentation
func HandleDocsAPI(c *fiber.Ctx) error {
	return c.Redirect(constants.DocsAPIRoute, fiber.StatusSeeOther)
}
