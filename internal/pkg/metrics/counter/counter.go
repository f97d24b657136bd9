package counter

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MarcusHaas/NeuraDesk/internal/pkg/cache"
	"github.com/MarcusHaas/NeuraDesk/internal/pkg/database"
)

const modelRequestsKey = "usage:counters:models"

// AddModelRequest increments the pending request counter for an AI model in
// Redis. Counts are buffered per model and UTC day, then flushed in batch to
// the model_usage_stats table.
func AddModelRequest(model string) error {
	if model == "" {
		return nil
	}
	ctx := context.Background()
	field := fmt.Sprintf("%s|%s", model, time.Now().UTC().Format("2006-01-02"))
	return cache.GetClient().HIncrBy(ctx, modelRequestsKey, field, 1).Err()
}

// FlushAll flushes buffered model request counters to the database
func FlushAll() error {
	return flushModelRequests()
}

// flushModelRequests drains the Redis hash atomically and applies batched
// upserts to model_usage_stats.
// Uses RENAME to a temporary key for atomic drain without losing in-flight increments.
func flushModelRequests() error {
	ctx := context.Background()
	rdb := cache.GetClient()

	// Atomically move the hash to a temp key for draining
	tmpKey := fmt.Sprintf("%s:tmp:%d", modelRequestsKey, time.Now().UnixNano())
	if err := rdb.Do(ctx, "RENAME", modelRequestsKey, tmpKey).Err(); err != nil {
		// If key does not exist, nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil
		}
		// Some Redis libs return redis.Nil; treat as empty
		if err.Error() == "redis: nil" {
			return nil
		}
		return err
	}

	// Ensure cleanup of tmpKey even if later steps fail
	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	type entry struct {
		model string
		date  string
		count int64
	}
	entries := make([]entry, 0, len(data))
	for k, v := range data {
		parts := strings.SplitN(k, "|", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		count, ierr := strconv.ParseInt(v, 10, 64)
		if ierr != nil || count == 0 {
			continue
		}
		entries = append(entries, entry{model: parts[0], date: parts[1], count: count})
	}
	if len(entries) == 0 {
		return nil
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].date != entries[j].date {
			return entries[i].date < entries[j].date
		}
		return entries[i].model < entries[j].model
	})

	// Compose a single batched upsert:
	// INSERT INTO model_usage_stats (model, date, count, updated_at) VALUES (...)
	// ON DUPLICATE KEY UPDATE count = count + VALUES(count)
	var builder strings.Builder
	args := make([]interface{}, 0, len(entries)*4)
	builder.WriteString("INSERT INTO model_usage_stats (model, date, count, updated_at) VALUES ")
	now := time.Now().UTC()
	for i, e := range entries {
		if i > 0 {
			builder.WriteString(",")
		}
		builder.WriteString("(?, ?, ?, ?)")
		args = append(args, e.model, e.date, e.count, now)
	}
	builder.WriteString(" ON DUPLICATE KEY UPDATE count = count + VALUES(count), updated_at = VALUES(updated_at)")

	db := database.GetDB()
	if err := db.Exec(builder.String(), args...).Error; err != nil {
		return err
	}
	return nil
}
