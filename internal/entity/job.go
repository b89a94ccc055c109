package entity

import "time"

type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

type Job struct {
	ID        string    `json:"id"`
	Status    JobStatus `json:"status"`
	Preset    Preset    `json:"preset"`
	Scale     int       `json:"scale"`
	Strength  int       `json:"strength"`
	Metadata  *Metadata `json:"metadata,omitempty"`
	Error     string    `json:"error,omitempty"`
	ErrorCode ErrorCode `json:"error_code,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProcessingTask is the Kafka message that drives a queued job.
type ProcessingTask struct {
	JobID    string `json:"job_id"`
	Preset   Preset `json:"preset"`
	Scale    int    `json:"scale"`
	Strength int    `json:"strength"`
}

// JobEvent is published once a job reaches a terminal state.
type JobEvent struct {
	JobID      string    `json:"job_id"`
	Status     JobStatus `json:"status"`
	ErrorCode  ErrorCode `json:"error_code,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

type SubmitResponse struct {
	ID     string    `json:"id"`
	Status JobStatus `json:"status"`
}
