//go:build test
// +build test

package jobqueue

import (
	"time"
)

// TestJobFactory creates test jobs for different types
func TestJobFactory() map[JobType]*Job {
	now := time.Now()

	return map[JobType]*Job{
		JobTypeEmailDelivery: {
			ID:     "test-email-job",
			Type:   JobTypeEmailDelivery,
			Status: JobStatusPending,
			Payload: EmailDeliveryJobPayload{
				To:      "user@example.com",
				Subject: "Test subject",
				Body:    "<p>Test body</p>",
				Kind:    "quota_warning_80",
				UserID:  42,
			}.ToMap(),
			CreatedAt:  now,
			UpdatedAt:  now,
			RetryCount: 0,
			MaxRetries: 3,
		},
		JobTypeQuotaResetSweep: {
			ID:     "test-sweep-job",
			Type:   JobTypeQuotaResetSweep,
			Status: JobStatusPending,
			Payload: QuotaResetSweepJobPayload{
				BatchSize: 500,
			}.ToMap(),
			CreatedAt:  now,
			UpdatedAt:  now,
			RetryCount: 0,
			MaxRetries: 3,
		},
		JobTypeUsageArchive: {
			ID:     "test-archive-job",
			Type:   JobTypeUsageArchive,
			Status: JobStatusPending,
			Payload: UsageArchiveJobPayload{
				Year:  2026,
				Month: 7,
			}.ToMap(),
			CreatedAt:  now,
			UpdatedAt:  now,
			RetryCount: 0,
			MaxRetries: 3,
		},
	}
}

// WaitForCondition waits for a condition to be true with timeout
func WaitForCondition(condition func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
