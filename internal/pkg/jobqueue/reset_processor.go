package jobqueue

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/MarcusHaas/NeuraDesk/app/models"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/database"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/quota"
)

// processQuotaResetSweepJob resets one batch of stale quota rows. When the
// batch is full, a follow-up job with an advanced cursor is enqueued so one
// huge sweep never monopolizes a worker.
func (q *Queue) processQuotaResetSweepJob(job *Job) error {
	payload, err := QuotaResetSweepJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("failed to parse quota sweep job payload: %w", err)
	}

	batchSize := payload.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	db := database.GetDB()
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	var stale []models.UsageQuota
	err = db.Where("id > ? AND reset_at <= ?", payload.CursorID, time.Now().UTC()).
		Order("id ASC").
		Limit(batchSize).
		Find(&stale).Error
	if err != nil {
		return fmt.Errorf("failed to load stale quota rows: %w", err)
	}

	if len(stale) == 0 {
		log.Debug("[QuotaSweep] No stale quota rows")
		return nil
	}

	store := quota.NewStoreFromDB(db)
	resetCount := 0
	for i := range stale {
		if err := store.Reset(stale[i].UserID); err != nil {
			// One bad row must not sink the whole sweep; the user's next
			// request performs the lazy reset anyway.
			log.Errorf("[QuotaSweep] Reset for user %d failed: %v", stale[i].UserID, err)
			continue
		}
		resetCount++
	}

	log.Infof("[QuotaSweep] Reset %d/%d stale quota rows", resetCount, len(stale))

	if len(stale) == batchSize {
		next := QuotaResetSweepJobPayload{
			BatchSize: batchSize,
			CursorID:  stale[len(stale)-1].ID,
		}
		if _, err := q.EnqueueJob(JobTypeQuotaResetSweep, next.ToMap()); err != nil {
			return fmt.Errorf("failed to enqueue sweep continuation: %w", err)
		}
	}

	return nil
}
