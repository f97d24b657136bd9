package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeEmailDelivery   JobType = "email_delivery"
	JobTypeQuotaResetSweep JobType = "quota_reset_sweep"
	JobTypeUsageArchive    JobType = "usage_archive"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// EmailDeliveryJobPayload contains the payload for outbound email jobs.
// Bodies are rendered before enqueueing; the processor only delivers.
type EmailDeliveryJobPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Kind    string `json:"kind"` // quota_warning, subscription, activation
	UserID  uint   `json:"user_id"`
}

// ToMap converts the payload to a map for storage
func (p EmailDeliveryJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"to":      p.To,
		"subject": p.Subject,
		"body":    p.Body,
		"kind":    p.Kind,
		"user_id": p.UserID,
	}
}

// EmailDeliveryJobPayloadFromMap creates a payload from a map
func EmailDeliveryJobPayloadFromMap(data map[string]interface{}) (*EmailDeliveryJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload EmailDeliveryJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// QuotaResetSweepJobPayload contains the payload for the periodic stale-quota
// sweep. Resets stay lazy on the request path; the sweep only keeps rows
// fresh for idle users so dashboards and admin views show current periods.
type QuotaResetSweepJobPayload struct {
	BatchSize int  `json:"batch_size"`
	CursorID  uint `json:"cursor_id"` // last processed quota row ID; 0 = start
}

func (p QuotaResetSweepJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"batch_size": p.BatchSize,
		"cursor_id":  p.CursorID,
	}
}

func QuotaResetSweepJobPayloadFromMap(data map[string]interface{}) (*QuotaResetSweepJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var payload QuotaResetSweepJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// UsageArchiveJobPayload contains the payload for archiving one closed month
// of usage logs to object storage.
type UsageArchiveJobPayload struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (p UsageArchiveJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"year":  p.Year,
		"month": p.Month,
	}
}

func UsageArchiveJobPayloadFromMap(data map[string]interface{}) (*UsageArchiveJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var payload UsageArchiveJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
