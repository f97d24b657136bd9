package billing

import (
	"time"

	"github.com/MarcusHaas/NeuraDesk/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the DB operations used by the webhook processor.
type Repository interface {
	GetUserByEmail(email string) (*models.User, error)
	GetSubscriptionByPolarID(polarSubscriptionID string) (*models.Subscription, error)
	UpsertSubscription(sub *models.Subscription) error
	ListWorkspaceMemberIDs(workspaceID uint) ([]uint, error)
	UpdateWorkspacePlan(workspaceID uint, plan string) error
	UpdateUserSettingsPlan(userID uint, plan string) error
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) GetSubscriptionByPolarID(polarSubscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.Where("polar_subscription_id = ?", polarSubscriptionID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// UpsertSubscription creates or updates the row keyed by the provider's
// subscription id. The single-statement upsert is what makes redelivered
// webhooks idempotent.
func (r *gormRepository) UpsertSubscription(sub *models.Subscription) error {
	if err := sub.ValidateScope(); err != nil {
		return err
	}
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "polar_subscription_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"polar_customer_id",
			"polar_product_id",
			"plan",
			"status",
			"current_period_start",
			"current_period_end",
			"cancel_at_period_end",
			"raw_payload_json",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("polar_subscription_id = ?", sub.PolarSubscriptionID).First(sub).Error
}

func (r *gormRepository) ListWorkspaceMemberIDs(workspaceID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.WorkspaceMember{}).
		Where("workspace_id = ?", workspaceID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *gormRepository) UpdateWorkspacePlan(workspaceID uint, plan string) error {
	return r.db.Model(&models.Workspace{}).
		Where("id = ?", workspaceID).
		Update("plan", plan).Error
}

func (r *gormRepository) UpdateUserSettingsPlan(userID uint, plan string) error {
	us, err := models.GetOrCreateUserSettings(r.db, userID)
	if err != nil {
		return err
	}
	if us.Plan == plan {
		return nil
	}
	return r.db.Model(us).Update("plan", plan).Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
