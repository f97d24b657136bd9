package jobqueue

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/MarcusHaas/NeuraDesk/internal/pkg/archive"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/database"
)

// processUsageArchiveJob uploads one closed month of usage logs to object
// storage. When archiving is disabled the job completes as a no-op.
func (q *Queue) processUsageArchiveJob(ctx context.Context, job *Job) error {
	payload, err := UsageArchiveJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("failed to parse usage archive job payload: %w", err)
	}
	if payload.Year == 0 || payload.Month < 1 || payload.Month > 12 {
		return fmt.Errorf("invalid archive period %d-%d", payload.Year, payload.Month)
	}

	config, err := archive.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load archive config: %w", err)
	}
	if !config.IsEnabled() {
		log.Debug("[Archive] Usage archiving disabled, skipping")
		return nil
	}

	db := database.GetDB()
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	archiver, err := archive.NewArchiver(config, archive.NewGormLogSource(db))
	if err != nil {
		return fmt.Errorf("failed to create archiver: %w", err)
	}

	return archiver.ArchiveMonth(ctx, payload.Year, payload.Month)
}
