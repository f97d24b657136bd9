package jobqueue

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/MarcusHaas/NeuraDesk/internal/pkg/env"
	metrics "github.com/MarcusHaas/NeuraDesk/internal/pkg/metrics/counter"
)

// Manager manages the global job queue and background tasks
type Manager struct {
	queue              *Queue
	sweepTicker        *time.Ticker
	archiveTicker      *time.Ticker
	counterFlushTicker *time.Ticker
	stopCh             chan struct{}
	wg                 sync.WaitGroup
	mu                 sync.Mutex
	running            bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		workerCount := 3
		if raw := env.GetEnv("JOB_QUEUE_WORKERS", ""); raw != "" {
			if v, err := strconv.Atoi(raw); err == nil && v > 0 {
				workerCount = v
			}
		}

		globalManager = &Manager{
			queue:  NewQueue(workerCount),
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	// Start the job queue
	m.queue.Start()

	// Periodic stale-quota sweep. Resets stay lazy on the request path; the
	// sweep only covers idle users so their rows do not show expired periods.
	sweepInterval := time.Hour
	if raw := env.GetEnv("QUOTA_SWEEP_INTERVAL_MINUTES", ""); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			sweepInterval = time.Duration(v) * time.Minute
		}
	}
	m.sweepTicker = time.NewTicker(sweepInterval)
	m.wg.Add(1)
	go m.sweepWorker()

	// Daily check for a closed month of usage logs to archive.
	m.archiveTicker = time.NewTicker(24 * time.Hour)
	m.wg.Add(1)
	go m.archiveWorker()

	// Start counter flush worker (Redis -> DB) every 5 seconds
	m.counterFlushTicker = time.NewTicker(5 * time.Second)
	m.wg.Add(1)
	go m.counterFlushWorker()

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.sweepTicker != nil {
		m.sweepTicker.Stop()
	}
	if m.archiveTicker != nil {
		m.archiveTicker.Stop()
	}
	if m.counterFlushTicker != nil {
		m.counterFlushTicker.Stop()
	}

	// Signal workers to stop
	close(m.stopCh)
	m.stopCh = nil
	m.running = false

	// Wait for background workers to finish
	m.wg.Wait()

	// Stop the job queue
	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// sweepWorker periodically enqueues a stale-quota sweep job
func (m *Manager) sweepWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Sweep worker stopping")
			return
		case <-m.sweepTicker.C:
			payload := QuotaResetSweepJobPayload{BatchSize: 500}
			if _, err := m.queue.EnqueueJob(JobTypeQuotaResetSweep, payload.ToMap()); err != nil {
				log.Errorf("[JobQueue Manager] Error enqueueing quota sweep: %v", err)
			}
		}
	}
}

// archiveWorker enqueues an archive job for the previous month once it has closed
func (m *Manager) archiveWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Archive worker stopping")
			return
		case <-m.archiveTicker.C:
			now := time.Now().UTC()
			prev := now.AddDate(0, -1, 0)
			payload := UsageArchiveJobPayload{Year: prev.Year(), Month: int(prev.Month())}
			if _, err := m.queue.EnqueueJob(JobTypeUsageArchive, payload.ToMap()); err != nil {
				log.Errorf("[JobQueue Manager] Error enqueueing usage archive: %v", err)
			}
		}
	}
}

// counterFlushWorker periodically flushes in-memory counters from Redis to DB
func (m *Manager) counterFlushWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Counter flush worker stopping")
			return
		case <-m.counterFlushTicker.C:
			if err := m.flushCountersOnce(); err != nil {
				log.Errorf("[JobQueue Manager] Counter flush error: %v", err)
			}
		}
	}
}

func (m *Manager) flushCountersOnce() error {
	// Flush Redis -> DB (batched CASE update)
	return metrics.FlushAll()
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
