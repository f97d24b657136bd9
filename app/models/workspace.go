package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	WorkspaceRoleOwner  = "owner"
	WorkspaceRoleAdmin  = "admin"
	WorkspaceRoleMember = "member"
	WorkspaceRoleViewer = "viewer"
)

// Workspace is a shared team scope. Plan is a denormalized display field kept
// in sync by the webhook processor; entitlements always derive from the
// subscriptions table.
type Workspace struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Slug      string         `gorm:"uniqueIndex;type:varchar(100)" json:"slug" validate:"required,min=3,max=100"`
	Name      string         `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Plan      string         `gorm:"type:varchar(50);default:'free'" json:"plan"`
	OwnerID   uint           `gorm:"not null;index" json:"owner_id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (w *Workspace) Validate() error {
	v := validator.New()
	return v.Struct(w)
}

// WorkspaceMember links a user to a workspace with a workspace-scoped role.
// Every workspace has exactly one owner row; the owner row is only removed
// together with the workspace itself.
type WorkspaceMember struct {
	WorkspaceID uint      `gorm:"primaryKey;autoIncrement:false" json:"workspace_id"`
	UserID      uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	Role        string    `gorm:"type:varchar(20);not null;default:'member'" json:"role" validate:"oneof=owner admin member viewer"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// IsOwner reports whether the membership row is the workspace owner.
func (m *WorkspaceMember) IsOwner() bool {
	return m.Role == WorkspaceRoleOwner
}

// WorkspaceRoleRank orders workspace roles for permission checks. This is a
// distinct hierarchy from the coarse user roles.
func WorkspaceRoleRank(role string) int {
	switch role {
	case WorkspaceRoleOwner:
		return 3
	case WorkspaceRoleAdmin:
		return 2
	case WorkspaceRoleMember:
		return 1
	case WorkspaceRoleViewer:
		return 0
	default:
		return -1
	}
}
