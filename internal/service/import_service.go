package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"datagrid/internal/ingest"
	"datagrid/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Import Service: import jobs, schedules and file watches
// ─────────────────────────────────────────────────────────────

// ImportOptions tune job execution.
type ImportOptions struct {
	RunTimeout    time.Duration
	WatchDebounce time.Duration
	PreviewRows   int
}

// DefaultImportOptions returns the timeouts used when none are configured.
func DefaultImportOptions() ImportOptions {
	return ImportOptions{
		RunTimeout:    5 * time.Minute,
		WatchDebounce: 500 * time.Millisecond,
		PreviewRows:   10,
	}
}

// ImportService manages import jobs and the triggers that run them.
// Successful runs reload the target grid if it is open.
type ImportService struct {
	store       *storage.ImportStore
	grids       *GridService
	engine      *ingest.Engine
	emitter     EventEmitter
	log         *slog.Logger
	opts        ImportOptions
	runningJobs runningJobsGuard

	// watcher / cron lifecycle
	mu          sync.Mutex
	watchCancel context.CancelFunc
	watcher     *fsnotify.Watcher
	cronSched   *cron.Cron
}

// NewImportService creates an ImportService writing into the grids of gs.
func NewImportService(
	store *storage.ImportStore,
	gs *GridService,
	emitter EventEmitter,
	opts ImportOptions,
	logger *slog.Logger,
) *ImportService {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultImportOptions()
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = def.RunTimeout
	}
	if opts.WatchDebounce <= 0 {
		opts.WatchDebounce = def.WatchDebounce
	}
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = def.PreviewRows
	}

	s := &ImportService{
		store:   store,
		grids:   gs,
		emitter: emitter,
		log:     logger,
		opts:    opts,
	}
	if gs != nil {
		s.engine = &ingest.Engine{Dest: &ingest.GridWriter{
			Store:    gs.Store(),
			Settings: gs.defaults.Settings,
			PageSize: gs.defaults.PageSize,
		}}
	}
	return s
}

// ── Job CRUD ───────────────────────────────────────────────

type CreateImportJobInput struct {
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	SourceType    string              `json:"sourceType"`
	SourceConfig  ingest.SourceConfig `json:"sourceConfig"`
	TargetGrid    string              `json:"targetGrid"`
	KeyField      string              `json:"keyField"`
	TriggerType   string              `json:"triggerType"`
	TriggerConfig string              `json:"triggerConfig"`
	Enabled       bool                `json:"enabled"`
}

func (in CreateImportJobInput) validate() error {
	source, err := ingest.GetSource(in.SourceType)
	if err != nil {
		return err
	}
	if err := source.Spec().Validate(in.SourceConfig); err != nil {
		return err
	}
	if in.TargetGrid == "" {
		return fmt.Errorf("target grid is required")
	}
	switch in.TriggerType {
	case "", ingest.TriggerManual:
	case ingest.TriggerSchedule:
		if _, err := cron.ParseStandard(in.TriggerConfig); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", in.TriggerConfig, err)
		}
	case ingest.TriggerFileWatch:
		if in.TriggerConfig == "" {
			return fmt.Errorf("file_watch trigger needs a path")
		}
	default:
		return fmt.Errorf("unknown trigger type %q", in.TriggerType)
	}
	if in.TriggerType != "" && in.TriggerType != ingest.TriggerManual && in.KeyField == "" {
		return fmt.Errorf("%s trigger needs a key field so rows keep their identity across runs", in.TriggerType)
	}
	return nil
}

func (s *ImportService) CreateJob(ctx context.Context, input CreateImportJobInput) (*ingest.ImportJob, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	job := &ingest.ImportJob{
		Name:          input.Name,
		Description:   input.Description,
		SourceType:    input.SourceType,
		SourceCfg:     input.SourceConfig,
		TargetGrid:    input.TargetGrid,
		KeyField:      input.KeyField,
		TriggerType:   input.TriggerType,
		TriggerConfig: input.TriggerConfig,
		Enabled:       input.Enabled,
	}
	if job.Name == "" {
		job.Name = input.TargetGrid
	}

	if err := s.store.CreateJob(job); err != nil {
		return nil, fmt.Errorf("create import job: %w", err)
	}
	s.RestartWatchers(ctx)
	return job, nil
}

func (s *ImportService) GetJob(id string) (*ingest.ImportJob, error) {
	return s.store.GetJob(id)
}

func (s *ImportService) ListJobs() ([]ingest.ImportJob, error) {
	return s.store.ListJobs()
}

func (s *ImportService) UpdateJob(ctx context.Context, id string, input CreateImportJobInput) error {
	if err := input.validate(); err != nil {
		return err
	}
	job, err := s.store.GetJob(id)
	if err != nil {
		return err
	}
	job.Name = input.Name
	if job.Name == "" {
		job.Name = input.TargetGrid
	}
	job.Description = input.Description
	job.SourceType = input.SourceType
	job.SourceCfg = input.SourceConfig
	job.TargetGrid = input.TargetGrid
	job.KeyField = input.KeyField
	job.TriggerType = input.TriggerType
	job.TriggerConfig = input.TriggerConfig
	job.Enabled = input.Enabled

	if err := s.store.UpdateJob(job); err != nil {
		return fmt.Errorf("update import job: %w", err)
	}
	s.RestartWatchers(ctx)
	return nil
}

func (s *ImportService) DeleteJob(ctx context.Context, id string) error {
	err := s.store.DeleteJob(id)
	if err == nil {
		s.RestartWatchers(ctx)
	}
	return err
}

// ── Run ────────────────────────────────────────────────────

// RunJob executes an import job synchronously. A job that is already
// running is rejected.
func (s *ImportService) RunJob(ctx context.Context, id string) (*ingest.RunResult, error) {
	if !s.runningJobs.TryLock(id) {
		return nil, fmt.Errorf("job %s is already running", id)
	}
	defer s.runningJobs.Unlock(id)

	job, err := s.store.GetJob(id)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateJobStatus(id, ingest.StatusRunning, ""); err != nil {
		s.log.WarnContext(ctx, "import: mark running failed", "job", id, "error", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, s.opts.RunTimeout)
	defer cancel()

	start := time.Now()
	result, runErr := s.engine.Run(runCtx, job)

	runLog := &ingest.RunLog{
		JobID:       id,
		StartedAt:   start,
		FinishedAt:  time.Now(),
		Status:      result.Status,
		RowsRead:    result.RowsRead,
		RowsWritten: result.RowsWritten,
		RowsSkipped: result.RowsSkipped,
		Error:       result.Error,
	}
	if err := s.store.CreateRunLog(runLog); err != nil {
		s.log.WarnContext(ctx, "import: write run log failed", "job", id, "error", err)
	}
	if err := s.store.UpdateJobStatus(id, result.Status, result.Error); err != nil {
		s.log.WarnContext(ctx, "import: update status failed", "job", id, "error", err)
	}

	if runErr != nil {
		s.log.ErrorContext(ctx, "import: job failed", "job", job.Name, "error", runErr)
		return result, runErr
	}

	s.log.InfoContext(ctx, "import: job finished",
		"job", job.Name,
		"grid", job.TargetGrid,
		"read", result.RowsRead,
		"written", result.RowsWritten,
		"skipped", result.RowsSkipped,
		"duration", result.Duration,
	)
	if s.grids != nil {
		if err := s.grids.Reload(ctx, result.GridID); err != nil {
			s.log.WarnContext(ctx, "import: reload grid failed", "grid", result.GridID, "error", err)
		}
	}
	s.emitter.Emit(ctx, EventImported, map[string]string{
		"gridId": result.GridID,
		"jobId":  id,
	})
	return result, nil
}

// ImportFile creates a manual csv_file or json_file job for path and runs it.
func (s *ImportService) ImportFile(ctx context.Context, path, gridName, keyField string) (*ingest.RunResult, error) {
	sourceType := "csv_file"
	if filepath.Ext(path) == ".json" {
		sourceType = "json_file"
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	job, err := s.CreateJob(ctx, CreateImportJobInput{
		Name:         filepath.Base(path),
		SourceType:   sourceType,
		SourceConfig: ingest.SourceConfig{"filePath": abs},
		TargetGrid:   gridName,
		KeyField:     keyField,
		TriggerType:  ingest.TriggerManual,
		Enabled:      true,
	})
	if err != nil {
		return nil, err
	}
	return s.RunJob(ctx, job.ID)
}

// ListSources returns the available source descriptors.
func (s *ImportService) ListSources() []ingest.SourceSpec {
	return ingest.ListSources()
}

// ListRunLogs returns the most recent run logs of a job.
func (s *ImportService) ListRunLogs(jobID string, limit int) ([]ingest.RunLog, error) {
	return s.store.ListRunLogs(jobID, limit)
}

// ── Preview ────────────────────────────────────────────────

// PreviewResult is the response from Preview.
type PreviewResult struct {
	Schema  *ingest.Schema  `json:"schema"`
	Records []ingest.Record `json:"records"`
}

// Preview reads the first rows of a source without writing them.
func (s *ImportService) Preview(ctx context.Context, sourceType string, cfg ingest.SourceConfig) (*PreviewResult, error) {
	previewCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	records, schema, err := s.engine.Preview(previewCtx, sourceType, cfg, s.opts.PreviewRows)
	if err != nil {
		return nil, err
	}
	return &PreviewResult{Schema: schema, Records: records}, nil
}

// ── Watchers (cron + file_watch) ──────────────────────────

// RestartWatchers tears down the current watcher and cron scheduler and
// rebuilds them from the enabled triggered jobs.
func (s *ImportService) RestartWatchers(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopWatchersLocked()

	jobs, err := s.store.ListTriggeredJobs()
	if err != nil {
		s.log.ErrorContext(ctx, "import watcher: list jobs failed", "error", err)
		return
	}

	runCtx := context.WithoutCancel(ctx)
	run := func(jobID, trigger string) {
		if _, err := s.RunJob(runCtx, jobID); err != nil {
			s.log.ErrorContext(runCtx, "import "+trigger+": run failed", "job", jobID, "error", err)
		}
		s.emitter.Emit(runCtx, EventJobFinished, jobID)
	}

	// ── Cron jobs ──
	var c *cron.Cron
	for _, j := range jobs {
		if j.TriggerType != ingest.TriggerSchedule || j.TriggerConfig == "" {
			continue
		}
		if c == nil {
			c = cron.New()
		}
		jid := j.ID
		if _, err := c.AddFunc(j.TriggerConfig, func() { run(jid, "cron") }); err != nil {
			s.log.WarnContext(ctx, "import cron: invalid expression", "expr", j.TriggerConfig, "job", j.ID, "error", err)
		}
	}
	if c != nil {
		c.Start()
		s.cronSched = c
		s.log.InfoContext(ctx, "import cron: scheduled", "jobs", len(c.Entries()))
	}

	// ── File watchers ──
	pathToJob := make(map[string]string)
	for _, j := range jobs {
		if j.TriggerType != ingest.TriggerFileWatch || j.TriggerConfig == "" {
			continue
		}
		absPath, err := filepath.Abs(j.TriggerConfig)
		if err != nil {
			s.log.WarnContext(ctx, "import watcher: bad path", "path", j.TriggerConfig, "error", err)
			continue
		}
		pathToJob[absPath] = j.ID
	}
	if len(pathToJob) == 0 {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.log.ErrorContext(ctx, "import watcher: create watcher failed", "error", err)
		return
	}
	s.watcher = watcher

	watchedDirs := make(map[string]bool)
	for absPath := range pathToJob {
		dir := filepath.Dir(absPath)
		if watchedDirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			s.log.WarnContext(ctx, "import watcher: watch dir failed", "dir", dir, "error", err)
			continue
		}
		watchedDirs[dir] = true
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	s.watchCancel = cancel
	go s.watchLoop(watchCtx, watcher, pathToJob, func(jobID string) { run(jobID, "watcher") })

	s.log.InfoContext(ctx, "import watcher: watching", "files", len(pathToJob))
}

// watchLoop debounces write and create events per job.
func (s *ImportService) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, pathToJob map[string]string, run func(jobID string)) {
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			absPath, _ := filepath.Abs(event.Name)
			jobID, ok := pathToJob[absPath]
			if !ok {
				continue
			}
			if t, exists := timers[jobID]; exists {
				t.Stop()
			}
			timers[jobID] = time.AfterFunc(s.opts.WatchDebounce, func() {
				s.log.Info("import watcher: file changed", "path", absPath, "job", jobID)
				run(jobID)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("import watcher: error", "error", err)
		}
	}
}

// WaitRunning blocks until all running jobs finish or ctx is cancelled.
// Used for graceful shutdown.
func (s *ImportService) WaitRunning(ctx context.Context) {
	s.runningJobs.WaitAll(ctx)
}

// Stop tears down all watchers and schedulers.
func (s *ImportService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopWatchersLocked()
}

func (s *ImportService) stopWatchersLocked() {
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	if s.cronSched != nil {
		s.cronSched.Stop()
		s.cronSched = nil
	}
}
