package repository

import (
	"time"

	"github.com/MarcusHaas/NeuraDesk/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByActivationToken(token string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, *models.UserSettings, error)
	GetStatsByUserID(userID uint) (*UserStats, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	Search(query string) ([]models.User, error)
	GetWithStats(offset, limit int) ([]UserWithStats, error)
	SearchWithStats(query string) ([]UserWithStats, error)
	GetDailyStats(startDate, endDate time.Time) ([]models.DailyStats, error)
}

// WorkspaceRepository defines the interface for workspace and membership
// operations. Membership mutations enforce the single-owner invariant.
type WorkspaceRepository interface {
	CreateWithOwner(workspace *models.Workspace, ownerID uint) error
	GetByID(id uint) (*models.Workspace, error)
	GetBySlug(slug string) (*models.Workspace, error)
	GetByUserID(userID uint) ([]models.Workspace, error)
	Update(workspace *models.Workspace) error
	Delete(id uint) error
	Count() (int64, error)
	SlugExists(slug string) (bool, error)

	AddMember(workspaceID, userID uint, role string) error
	RemoveMember(workspaceID, userID uint) error
	UpdateMemberRole(workspaceID, userID uint, role string) error
	GetMembers(workspaceID uint) ([]models.WorkspaceMember, error)
	GetMemberRole(workspaceID, userID uint) (string, error)
	CountMembers(workspaceID uint) (int64, error)
}

// UsageLogRepository defines the interface for the append-only usage trail.
type UsageLogRepository interface {
	Create(entry *models.UsageLog) error
	GetByUserID(userID uint, offset, limit int) ([]models.UsageLog, error)
	CountByUserID(userID uint) (int64, error)
	CountByUserIDSince(userID uint, since time.Time) (int64, error)
	GetDailyStats(startDate, endDate time.Time) ([]models.DailyStats, error)
}

// SubscriptionRepository is the read side of subscription state; the webhook
// processor owns all writes.
type SubscriptionRepository interface {
	GetByID(id uint) (*models.Subscription, error)
	GetByPolarID(polarSubscriptionID string) (*models.Subscription, error)
	ListByUser(userID uint) ([]models.Subscription, error)
	ListByWorkspace(workspaceID uint) ([]models.Subscription, error)
	CountByStatus(status string) (int64, error)
	Count() (int64, error)
}

// AuditLogRepository defines read access to the audit trail for the admin UI.
type AuditLogRepository interface {
	List(offset, limit int) ([]models.AuditLog, error)
	ListByEntity(entityType, entityID string, limit int) ([]models.AuditLog, error)
	Count() (int64, error)
}

// QueueRepository defines the interface for cache/queue inspection used by
// the admin queue monitor.
type QueueRepository interface {
	GetJobQueueKeys() ([]string, error)
	GetValue(key string) (string, error)
	GetTTL(key string) (time.Duration, error)
	GetListLength(key string) (int64, error)
	DeleteKey(key string) (int64, error)
}

// UserWithStats represents a user with additional statistics
type UserWithStats struct {
	User           models.User
	RequestsMonth  int64
	RequestsTotal  int64
	WorkspaceCount int64
}

// UserStats provides aggregated usage counts for a single user.
type UserStats struct {
	RequestsMonth  int64
	RequestsTotal  int64
	WorkspaceCount int64
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Workspace    WorkspaceRepository
	UsageLog     UsageLogRepository
	Subscription SubscriptionRepository
	AuditLog     AuditLogRepository
	Queue        QueueRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Workspace:    NewWorkspaceRepository(db),
		UsageLog:     NewUsageLogRepository(db),
		Subscription: NewSubscriptionRepository(db),
		AuditLog:     NewAuditLogRepository(db),
		Queue:        NewQueueRepository(),
	}
}
