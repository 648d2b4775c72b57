package ingest

import "time"

// Trigger types of an import job.
const (
	TriggerManual    = "manual"
	TriggerSchedule  = "schedule"   // TriggerConfig is a cron expression
	TriggerFileWatch = "file_watch" // TriggerConfig is a path to watch
)

// Run statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusRunning = "running"
)

// ImportJob loads a source into a grid, replacing its rows.
type ImportJob struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description,omitempty"`
	SourceType    string       `json:"sourceType"`
	SourceCfg     SourceConfig `json:"sourceConfig"`
	TargetGrid    string       `json:"targetGrid"` // grid name; created on first run
	KeyField      string       `json:"keyField,omitempty"`
	TriggerType   string       `json:"triggerType"`
	TriggerConfig string       `json:"triggerConfig"`
	Enabled       bool         `json:"enabled"`
	LastRunAt     time.Time    `json:"lastRunAt"`
	LastStatus    string       `json:"lastStatus"`
	LastError     string       `json:"lastError"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// RunResult is the outcome of running an import job.
type RunResult struct {
	JobID       string        `json:"jobId"`
	GridID      string        `json:"gridId"`
	Status      string        `json:"status"`
	RowsRead    int           `json:"rowsRead"`
	RowsWritten int           `json:"rowsWritten"`
	RowsSkipped int           `json:"rowsSkipped"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

// RunLog is a historical record of an import run.
type RunLog struct {
	ID          string    `json:"id"`
	JobID       string    `json:"jobId"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
	Status      string    `json:"status"`
	RowsRead    int       `json:"rowsRead"`
	RowsWritten int       `json:"rowsWritten"`
	RowsSkipped int       `json:"rowsSkipped"`
	Error       string    `json:"error,omitempty"`
}
