package repository

import (
	"context"
	"sort"
	"time"

	"github.com/MarcusHaas/NeuraDesk/internal/pkg/cache"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/jobqueue"
)

// queueRepository implements the QueueRepository interface on Redis. It is
// scoped to the job queue's key space; it is not a generic Redis browser.
type queueRepository struct{}

// NewQueueRepository creates a new queue repository instance
func NewQueueRepository() QueueRepository {
	return &queueRepository{}
}

// GetJobQueueKeys lists all keys the job queue owns, sorted for stable
// display in the admin monitor.
func (r *queueRepository) GetJobQueueKeys() ([]string, error) {
	client := cache.GetClient()
	ctx := context.Background()

	patterns := []string{
		jobqueue.JobKeyPrefix + "*",
		jobqueue.JobQueueKey,
		jobqueue.JobProcessingKey,
		jobqueue.JobStatsKey,
	}

	seen := make(map[string]struct{})
	var keys []string
	for _, pattern := range patterns {
		matches, err := client.Keys(ctx, pattern).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range matches {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)
	return keys, nil
}

func (r *queueRepository) GetValue(key string) (string, error) {
	return cache.GetClient().Get(context.Background(), key).Result()
}

func (r *queueRepository) GetTTL(key string) (time.Duration, error) {
	return cache.GetClient().TTL(context.Background(), key).Result()
}

func (r *queueRepository) GetListLength(key string) (int64, error) {
	return cache.GetClient().LLen(context.Background(), key).Result()
}

func (r *queueRepository) DeleteKey(key string) (int64, error) {
	return cache.GetClient().Del(context.Background(), key).Result()
}
