package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"datagrid/internal/domain"
	"datagrid/internal/ingest"
)

// ImportStore persists import jobs and their run history.
type ImportStore struct {
	db *DB
}

// NewImportStore creates a new ImportStore.
func NewImportStore(db *DB) *ImportStore {
	return &ImportStore{db: db}
}

const jobColumns = `id, name, description, source_type, source_config, target_grid, key_field,
	trigger_type, trigger_config, enabled, last_run_at, last_status, last_error,
	created_at, updated_at`

// ── Job CRUD ───────────────────────────────────────────────

func (s *ImportStore) CreateJob(job *ingest.ImportJob) error {
	now := time.Now()
	job.ID = uuid.New().String()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.TriggerType == "" {
		job.TriggerType = ingest.TriggerManual
	}

	srcCfg, err := json.Marshal(job.SourceCfg)
	if err != nil {
		return fmt.Errorf("encode source config: %w", err)
	}

	_, err = s.db.conn.Exec(
		`INSERT INTO import_jobs (id, name, description, source_type, source_config, target_grid,
		 key_field, trigger_type, trigger_config, enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Name, job.Description, job.SourceType, string(srcCfg), job.TargetGrid,
		job.KeyField, job.TriggerType, job.TriggerConfig, job.Enabled,
		job.CreatedAt, job.UpdatedAt,
	)
	return err
}

func (s *ImportStore) GetJob(id string) (*ingest.ImportJob, error) {
	job, err := scanJob(s.db.conn.QueryRow(
		`SELECT `+jobColumns+` FROM import_jobs WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("import job not found: %s: %w", id, domain.ErrNotFound)
	}
	return job, err
}

func (s *ImportStore) UpdateJob(job *ingest.ImportJob) error {
	job.UpdatedAt = time.Now()
	srcCfg, err := json.Marshal(job.SourceCfg)
	if err != nil {
		return fmt.Errorf("encode source config: %w", err)
	}

	_, err = s.db.conn.Exec(
		`UPDATE import_jobs SET name=?, description=?, source_type=?, source_config=?,
		 target_grid=?, key_field=?, trigger_type=?, trigger_config=?, enabled=?, updated_at=?
		 WHERE id=?`,
		job.Name, job.Description, job.SourceType, string(srcCfg),
		job.TargetGrid, job.KeyField, job.TriggerType, job.TriggerConfig, job.Enabled,
		job.UpdatedAt, job.ID,
	)
	return err
}

func (s *ImportStore) UpdateJobStatus(id, status, errMsg string) error {
	now := time.Now()
	_, err := s.db.conn.Exec(
		`UPDATE import_jobs SET last_run_at=?, last_status=?, last_error=?, updated_at=? WHERE id=?`,
		now, status, errMsg, now, id,
	)
	return err
}

func (s *ImportStore) DeleteJob(id string) error {
	tx, err := s.db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM import_runs WHERE job_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM import_jobs WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *ImportStore) ListJobs() ([]ingest.ImportJob, error) {
	return s.queryJobs(`SELECT ` + jobColumns + ` FROM import_jobs ORDER BY created_at ASC`)
}

// ListTriggeredJobs returns enabled jobs with a schedule or file_watch trigger.
func (s *ImportStore) ListTriggeredJobs() ([]ingest.ImportJob, error) {
	return s.queryJobs(
		`SELECT `+jobColumns+` FROM import_jobs
		 WHERE enabled = 1 AND trigger_type IN (?, ?)
		 ORDER BY created_at ASC`,
		ingest.TriggerSchedule, ingest.TriggerFileWatch,
	)
}

func (s *ImportStore) queryJobs(query string, args ...any) ([]ingest.ImportJob, error) {
	rows, err := s.db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []ingest.ImportJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func scanJob(row rowScanner) (*ingest.ImportJob, error) {
	job := &ingest.ImportJob{}
	var srcCfg string
	var lastRun sql.NullTime
	if err := row.Scan(
		&job.ID, &job.Name, &job.Description, &job.SourceType, &srcCfg, &job.TargetGrid,
		&job.KeyField, &job.TriggerType, &job.TriggerConfig, &job.Enabled,
		&lastRun, &job.LastStatus, &job.LastError,
		&job.CreatedAt, &job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if lastRun.Valid {
		job.LastRunAt = lastRun.Time
	}
	if err := json.Unmarshal([]byte(srcCfg), &job.SourceCfg); err != nil {
		return nil, fmt.Errorf("decode source config of job %s: %w", job.ID, err)
	}
	return job, nil
}

// ── Run Logs ───────────────────────────────────────────────

func (s *ImportStore) CreateRunLog(log *ingest.RunLog) error {
	log.ID = uuid.New().String()
	_, err := s.db.conn.Exec(
		`INSERT INTO import_runs (id, job_id, started_at, finished_at, status, rows_read, rows_written, rows_skipped, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.JobID, log.StartedAt, log.FinishedAt, log.Status,
		log.RowsRead, log.RowsWritten, log.RowsSkipped, log.Error,
	)
	return err
}

func (s *ImportStore) ListRunLogs(jobID string, limit int) ([]ingest.RunLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.conn.Query(
		`SELECT id, job_id, started_at, finished_at, status, rows_read, rows_written, rows_skipped, error
		 FROM import_runs WHERE job_id = ? ORDER BY started_at DESC LIMIT ?`,
		jobID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []ingest.RunLog
	for rows.Next() {
		var l ingest.RunLog
		if err := rows.Scan(&l.ID, &l.JobID, &l.StartedAt, &l.FinishedAt, &l.Status,
			&l.RowsRead, &l.RowsWritten, &l.RowsSkipped, &l.Error); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
