package controllers

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/MarcusHaas/NeuraDesk/app/models"
	"github.com/MarcusHaas/NeuraDesk/app/repository"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/database"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/entitlements"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/metrics/counter"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/quota"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/usercontext"
)

// HandleGetUserAccount returns account information for the authenticated user (API key or session).
func HandleGetUserAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	account, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load user"})
	}

	stats, err := repo.GetStatsByUserID(userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load statistics"})
	}

	db := database.GetDB()
	if db == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Database unavailable"})
	}
	settings, err := models.GetOrCreateUserSettings(db, userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load user settings"})
	}

	plan := entitlements.NewResolverFromDB(db).ResolveEffectivePlan(userCtx.UserID)

	var limitValue interface{}
	if limit := entitlements.AIRequestLimit(plan); limit != entitlements.UnlimitedAIRequests {
		limitValue = limit
	}

	response := fiber.Map{
		"id":                   account.ID,
		"username":             account.Name,
		"email":                account.Email,
		"status":               account.Status,
		"plan":                 string(plan),
		"is_admin":             account.Role == models.ROLE_ADMIN,
		"created_at":           account.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at":        formatTimePtr(account.LastLoginAt),
		"api_key_last_used_at": formatTimePtr(settings.APIKeyLastUsedAt),
		"stats": fiber.Map{
			"requests_this_month": stats.RequestsMonth,
			"requests_total":      stats.RequestsTotal,
			"workspaces":          stats.WorkspaceCount,
		},
		"limits": fiber.Map{
			"ai_requests_per_month": limitValue,
			"allowed_models":        entitlements.AllowedModels(plan),
			"api_access":            entitlements.CanUseFeature(plan, entitlements.FeatureAPIAccess),
			"team_workspaces":       entitlements.CanUseFeature(plan, entitlements.FeatureTeamWorkspaces),
			"priority_support":      entitlements.CanUseFeature(plan, entitlements.FeaturePrioritySupport),
		},
	}

	return c.JSON(response)
}

// HandleGetQuotaAPI returns the current quota state of the authenticated
// user. Read-only: it performs the lazy period reset but meters nothing.
func HandleGetQuotaAPI(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	db := database.GetDB()
	if db == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Database unavailable"})
	}

	result, err := quota.NewServiceFromDB(db).CheckAIRequestQuota(userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load quota"})
	}

	response := fiber.Map{
		"used":      result.Used,
		"limit":     result.Limit,
		"remaining": result.Remaining,
		"unlimited": result.Unlimited,
	}
	if !result.Unlimited {
		response["resets_at"] = result.ResetAt.UTC().Format(time.RFC3339)
	}
	return c.JSON(response)
}

// CompletionRequest is the metered AI request body.
type CompletionRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// HandleAICompletionAPI meters one AI request for the authenticated user.
// The model must be on the plan's allow-list and the monthly quota must have
// room; a denied request has no side effects and returns 429.
func HandleAICompletionAPI(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	var req CompletionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	req.Model = strings.TrimSpace(req.Model)
	if req.Model == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Model is required"})
	}

	db := database.GetDB()
	if db == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Database unavailable"})
	}

	plan := entitlements.NewResolverFromDB(db).ResolveEffectivePlan(userCtx.UserID)
	if !entitlements.ModelAllowed(plan, req.Model) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":          "model_not_allowed",
			"message":        "Your plan does not include this model",
			"allowed_models": entitlements.AllowedModels(plan),
		})
	}

	result, err := quota.NewServiceFromDB(db).TrackAndCheckAIRequest(userCtx.UserID, map[string]interface{}{
		"model": req.Model,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to meter request"})
	}
	if !result.Allowed {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":     "quota_exceeded",
			"message":   "Monthly AI request quota exhausted",
			"used":      result.Used,
			"limit":     result.Limit,
			"remaining": result.Remaining,
			"resets_at": result.ResetAt.UTC().Format(time.RFC3339),
		})
	}

	// Buffered per-model statistics; failures never affect the request.
	if err := counter.AddModelRequest(req.Model); err != nil {
		log.Printf("model counter increment failed: %v", err)
	}

	response := fiber.Map{
		"model": req.Model,
		"quota": fiber.Map{
			"used":      result.Used,
			"limit":     result.Limit,
			"remaining": result.Remaining,
			"unlimited": result.Unlimited,
		},
	}
	return c.JSON(response)
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
