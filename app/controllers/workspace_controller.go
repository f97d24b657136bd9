package controllers

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/MarcusHaas/NeuraDesk/app/models"
	"github.com/MarcusHaas/NeuraDesk/app/repository"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/audit"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/database"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/entitlements"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/usercontext"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// HandleWorkspaces lists the workspaces the user is a member of.
func HandleWorkspaces(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	repos := repository.GetGlobalRepositories()
	workspaces, err := repos.Workspace.GetByUserID(userCtx.UserID)
	if err != nil {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Workspaces konnten nicht geladen werden"})
		return c.Redirect("/")
	}

	plan, _ := entitlements.ParsePlan(userCtx.Plan)

	return c.Render("workspace/index", fiber.Map{
		"Title":         "Workspaces",
		"CSRFToken":     c.Locals("csrf"),
		"Flash":         flash.Get(c),
		"FromProtected": true,
		"IsAdmin":       userCtx.IsAdmin,
		"Workspaces":    workspaces,
		"CanCreate":     entitlements.CanUseFeature(plan, entitlements.FeatureTeamWorkspaces),
	})
}

// HandleWorkspaceCreate creates a workspace with the current user as owner.
// Team workspaces are a paid feature.
func HandleWorkspaceCreate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	plan, _ := entitlements.ParsePlan(userCtx.Plan)
	if !entitlements.CanUseFeature(plan, entitlements.FeatureTeamWorkspaces) {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Team-Workspaces sind in deinem Plan nicht enthalten"})
		return c.Redirect("/user/workspaces")
	}

	if c.Method() != fiber.MethodPost {
		return c.Render("workspace/create", fiber.Map{
			"Title":         "Workspace erstellen",
			"CSRFToken":     c.Locals("csrf"),
			"Flash":         flash.Get(c),
			"FromProtected": true,
			"IsAdmin":       userCtx.IsAdmin,
		})
	}

	name := strings.TrimSpace(c.FormValue("name"))
	slug := slugify(c.FormValue("slug"))
	if slug == "" {
		slug = slugify(name)
	}

	repos := repository.GetGlobalRepositories()
	if exists, err := repos.Workspace.SlugExists(slug); err != nil || exists {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Dieser Workspace-Name ist bereits vergeben"})
		return c.Redirect("/user/workspaces/create")
	}

	workspace := &models.Workspace{
		Name:    name,
		Slug:    slug,
		OwnerID: userCtx.UserID,
	}
	if err := workspace.Validate(); err != nil {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Ungültige Workspace-Daten: " + err.Error()})
		return c.Redirect("/user/workspaces/create")
	}

	if err := repos.Workspace.CreateWithOwner(workspace, userCtx.UserID); err != nil {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Workspace konnte nicht erstellt werden"})
		return c.Redirect("/user/workspaces/create")
	}

	actor := userCtx.UserID
	audit.NewRecorder(database.GetDB()).Record(&actor, models.AuditWorkspaceCreated, "workspace", workspace.Slug, map[string]interface{}{
		"name": workspace.Name,
	})

	flash.WithSuccess(c, fiber.Map{"type": "success", "message": "Workspace erstellt"})
	return c.Redirect("/user/workspaces/" + workspace.Slug)
}

// HandleWorkspaceView shows one workspace with members and subscription state.
func HandleWorkspaceView(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	workspace, role, err := loadWorkspaceForMember(c, userCtx.UserID)
	if err != nil {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Workspace nicht gefunden"})
		return c.Redirect("/user/workspaces")
	}

	repos := repository.GetGlobalRepositories()
	members, err := repos.Workspace.GetMembers(workspace.ID)
	if err != nil {
		members = nil
	}
	subscriptions, err := repos.Subscription.ListByWorkspace(workspace.ID)
	if err != nil {
		subscriptions = nil
	}

	memberUsers := make(map[uint]*models.User, len(members))
	for _, m := range members {
		if u, err := repos.User.GetByID(m.UserID); err == nil {
			memberUsers[m.UserID] = u
		}
	}

	return c.Render("workspace/view", fiber.Map{
		"Title":         workspace.Name,
		"CSRFToken":     c.Locals("csrf"),
		"Flash":         flash.Get(c),
		"FromProtected": true,
		"IsAdmin":       userCtx.IsAdmin,
		"Workspace":     workspace,
		"Members":       members,
		"MemberUsers":   memberUsers,
		"Subscriptions": subscriptions,
		"Role":          role,
		"CanManage":     models.WorkspaceRoleRank(role) >= models.WorkspaceRoleRank(models.WorkspaceRoleAdmin),
	})
}

// HandleWorkspaceAddMember adds a user by email. Owner or workspace admin only.
func HandleWorkspaceAddMember(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	workspace, role, err := loadWorkspaceForMember(c, userCtx.UserID)
	if err != nil {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Workspace nicht gefunden"})
		return c.Redirect("/user/workspaces")
	}
	if models.WorkspaceRoleRank(role) < models.WorkspaceRoleRank(models.WorkspaceRoleAdmin) {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Keine Berechtigung"})
		return c.Redirect("/user/workspaces/" + workspace.Slug)
	}

	repos := repository.GetGlobalRepositories()
	member, err := repos.User.GetByEmail(strings.TrimSpace(c.FormValue("email")))
	if err != nil {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Kein Benutzer mit dieser E-Mail gefunden"})
		return c.Redirect("/user/workspaces/" + workspace.Slug)
	}

	memberRole := c.FormValue("role", models.WorkspaceRoleMember)
	if models.WorkspaceRoleRank(memberRole) < 0 || memberRole == models.WorkspaceRoleOwner {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Ungültige Rolle"})
		return c.Redirect("/user/workspaces/" + workspace.Slug)
	}

	if err := repos.Workspace.AddMember(workspace.ID, member.ID, memberRole); err != nil {
		msg := "Mitglied konnte nicht hinzugefügt werden"
		if errors.Is(err, repository.ErrAlreadyMember) {
			msg = "Benutzer ist bereits Mitglied"
		}
		flash.WithError(c, fiber.Map{"type": "error", "message": msg})
		return c.Redirect("/user/workspaces/" + workspace.Slug)
	}

	// Membership changed, so the new member's effective plan may have too.
	actor := userCtx.UserID
	audit.NewRecorder(database.GetDB()).Record(&actor, models.AuditMemberAdded, "workspace", workspace.Slug, map[string]interface{}{
		"member_id": member.ID,
		"role":      memberRole,
	})

	flash.WithSuccess(c, fiber.Map{"type": "success", "message": "Mitglied hinzugefügt"})
	return c.Redirect("/user/workspaces/" + workspace.Slug)
}

// HandleWorkspaceRemoveMember removes a member. The owner cannot be removed.
func HandleWorkspaceRemoveMember(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	workspace, role, err := loadWorkspaceForMember(c, userCtx.UserID)
	if err != nil {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Workspace nicht gefunden"})
		return c.Redirect("/user/workspaces")
	}

	memberID, err := strconv.ParseUint(c.Params("user_id"), 10, 32)
	if err != nil {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Ungültige Mitglieds-ID"})
		return c.Redirect("/user/workspaces/" + workspace.Slug)
	}

	// Members may remove themselves; everything else needs admin rights.
	selfRemoval := uint(memberID) == userCtx.UserID
	if !selfRemoval && models.WorkspaceRoleRank(role) < models.WorkspaceRoleRank(models.WorkspaceRoleAdmin) {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Keine Berechtigung"})
		return c.Redirect("/user/workspaces/" + workspace.Slug)
	}

	repos := repository.GetGlobalRepositories()
	if err := repos.Workspace.RemoveMember(workspace.ID, uint(memberID)); err != nil {
		msg := "Mitglied konnte nicht entfernt werden"
		if errors.Is(err, repository.ErrOwnerImmutable) {
			msg = "Der Besitzer kann nicht entfernt werden"
		}
		flash.WithError(c, fiber.Map{"type": "error", "message": msg})
		return c.Redirect("/user/workspaces/" + workspace.Slug)
	}

	actor := userCtx.UserID
	audit.NewRecorder(database.GetDB()).Record(&actor, models.AuditMemberRemoved, "workspace", workspace.Slug, map[string]interface{}{
		"member_id": memberID,
	})

	if selfRemoval {
		refreshSessionPlan(c, userCtx.UserID)
		flash.WithSuccess(c, fiber.Map{"type": "success", "message": "Du hast den Workspace verlassen"})
		return c.Redirect("/user/workspaces")
	}

	flash.WithSuccess(c, fiber.Map{"type": "success", "message": "Mitglied entfernt"})
	return c.Redirect("/user/workspaces/" + workspace.Slug)
}

// HandleWorkspaceUpdateMemberRole changes a member's role. Owner role cannot
// be granted or taken this way.
func HandleWorkspaceUpdateMemberRole(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	workspace, role, err := loadWorkspaceForMember(c, userCtx.UserID)
	if err != nil {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Workspace nicht gefunden"})
		return c.Redirect("/user/workspaces")
	}
	if models.WorkspaceRoleRank(role) < models.WorkspaceRoleRank(models.WorkspaceRoleAdmin) {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Keine Berechtigung"})
		return c.Redirect("/user/workspaces/" + workspace.Slug)
	}

	memberID, err := strconv.ParseUint(c.Params("user_id"), 10, 32)
	if err != nil {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Ungültige Mitglieds-ID"})
		return c.Redirect("/user/workspaces/" + workspace.Slug)
	}
	newRole := c.FormValue("role")
	if models.WorkspaceRoleRank(newRole) < 0 || newRole == models.WorkspaceRoleOwner {
		flash.WithError(c, fiber.Map{"type": "error", "message": "Ungültige Rolle"})
		return c.Redirect("/user/workspaces/" + workspace.Slug)
	}

	repos := repository.GetGlobalRepositories()
	if err := repos.Workspace.UpdateMemberRole(workspace.ID, uint(memberID), newRole); err != nil {
		msg := "Rolle konnte nicht geändert werden"
		if errors.Is(err, repository.ErrOwnerImmutable) {
			msg = "Die Rolle des Besitzers kann nicht geändert werden"
		}
		flash.WithError(c, fiber.Map{"type": "error", "message": msg})
		return c.Redirect("/user/workspaces/" + workspace.Slug)
	}

	flash.WithSuccess(c, fiber.Map{"type": "success", "message": "Rolle aktualisiert"})
	return c.Redirect("/user/workspaces/" + workspace.Slug)
}

func loadWorkspaceForMember(c *fiber.Ctx, userID uint) (*models.Workspace, string, error) {
	slug := c.Params("slug")
	if slug == "" {
		return nil, "", gorm.ErrRecordNotFound
	}
	repos := repository.GetGlobalRepositories()
	workspace, err := repos.Workspace.GetBySlug(slug)
	if err != nil {
		return nil, "", err
	}
	role, err := repos.Workspace.GetMemberRole(workspace.ID, userID)
	if err != nil {
		return nil, "", err
	}
	return workspace, role, nil
}

func slugify(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = slugPattern.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
