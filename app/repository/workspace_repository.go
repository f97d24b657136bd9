package repository

import (
	"errors"
	"strings"

	"github.com/MarcusHaas/NeuraDesk/app/models"
	"gorm.io/gorm"
)

var (
	// ErrOwnerImmutable is returned when a mutation would remove or demote
	// the workspace owner. Ownership changes only happen through workspace
	// deletion or an explicit ownership transfer.
	ErrOwnerImmutable = errors.New("workspace owner membership cannot be changed")
	// ErrAlreadyMember is returned when adding a user who is already a member.
	ErrAlreadyMember = errors.New("user is already a workspace member")
)

// workspaceRepository implements the WorkspaceRepository interface
type workspaceRepository struct {
	db *gorm.DB
}

// NewWorkspaceRepository creates a new workspace repository instance
func NewWorkspaceRepository(db *gorm.DB) WorkspaceRepository {
	return &workspaceRepository{db: db}
}

// CreateWithOwner creates the workspace and its owner membership in one
// transaction, so a workspace can never exist without exactly one owner.
func (r *workspaceRepository) CreateWithOwner(workspace *models.Workspace, ownerID uint) error {
	workspace.OwnerID = ownerID
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(workspace).Error; err != nil {
			return err
		}
		member := &models.WorkspaceMember{
			WorkspaceID: workspace.ID,
			UserID:      ownerID,
			Role:        models.WorkspaceRoleOwner,
		}
		return tx.Create(member).Error
	})
}

func (r *workspaceRepository) GetByID(id uint) (*models.Workspace, error) {
	var workspace models.Workspace
	if err := r.db.First(&workspace, id).Error; err != nil {
		return nil, err
	}
	return &workspace, nil
}

func (r *workspaceRepository) GetBySlug(slug string) (*models.Workspace, error) {
	var workspace models.Workspace
	if err := r.db.Where("slug = ?", strings.TrimSpace(slug)).First(&workspace).Error; err != nil {
		return nil, err
	}
	return &workspace, nil
}

// GetByUserID lists every workspace the user is a member of.
func (r *workspaceRepository) GetByUserID(userID uint) ([]models.Workspace, error) {
	var workspaces []models.Workspace
	err := r.db.
		Joins("JOIN workspace_members ON workspace_members.workspace_id = workspaces.id").
		Where("workspace_members.user_id = ?", userID).
		Order("workspaces.created_at ASC").
		Find(&workspaces).Error
	return workspaces, err
}

func (r *workspaceRepository) Update(workspace *models.Workspace) error {
	return r.db.Save(workspace).Error
}

// Delete soft-deletes the workspace and removes all memberships.
func (r *workspaceRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workspace_id = ?", id).Delete(&models.WorkspaceMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Workspace{}, id).Error
	})
}

func (r *workspaceRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Workspace{}).Count(&count).Error
	return count, err
}

func (r *workspaceRepository) SlugExists(slug string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Workspace{}).Where("slug = ?", strings.TrimSpace(slug)).Count(&count).Error
	return count > 0, err
}

// AddMember adds a user with the given role. The owner role is reserved for
// CreateWithOwner.
func (r *workspaceRepository) AddMember(workspaceID, userID uint, role string) error {
	if role == models.WorkspaceRoleOwner {
		return ErrOwnerImmutable
	}
	if models.WorkspaceRoleRank(role) < 0 {
		return errors.New("unknown workspace role: " + role)
	}

	var count int64
	if err := r.db.Model(&models.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrAlreadyMember
	}

	member := &models.WorkspaceMember{WorkspaceID: workspaceID, UserID: userID, Role: role}
	return r.db.Create(member).Error
}

// RemoveMember removes a membership. Removing the owner is refused.
func (r *workspaceRepository) RemoveMember(workspaceID, userID uint) error {
	role, err := r.GetMemberRole(workspaceID, userID)
	if err != nil {
		return err
	}
	if role == models.WorkspaceRoleOwner {
		return ErrOwnerImmutable
	}
	return r.db.
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Delete(&models.WorkspaceMember{}).Error
}

// UpdateMemberRole changes a member's role. Neither promoting to owner nor
// demoting the owner is allowed here.
func (r *workspaceRepository) UpdateMemberRole(workspaceID, userID uint, role string) error {
	if role == models.WorkspaceRoleOwner {
		return ErrOwnerImmutable
	}
	if models.WorkspaceRoleRank(role) < 0 {
		return errors.New("unknown workspace role: " + role)
	}

	current, err := r.GetMemberRole(workspaceID, userID)
	if err != nil {
		return err
	}
	if current == models.WorkspaceRoleOwner {
		return ErrOwnerImmutable
	}

	return r.db.Model(&models.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Update("role", role).Error
}

func (r *workspaceRepository) GetMembers(workspaceID uint) ([]models.WorkspaceMember, error) {
	var members []models.WorkspaceMember
	err := r.db.Where("workspace_id = ?", workspaceID).Order("created_at ASC").Find(&members).Error
	return members, err
}

func (r *workspaceRepository) GetMemberRole(workspaceID, userID uint) (string, error) {
	var member models.WorkspaceMember
	err := r.db.Where("workspace_id = ? AND user_id = ?", workspaceID, userID).First(&member).Error
	if err != nil {
		return "", err
	}
	return member.Role, nil
}

func (r *workspaceRepository) CountMembers(workspaceID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.WorkspaceMember{}).Where("workspace_id = ?", workspaceID).Count(&count).Error
	return count, err
}
