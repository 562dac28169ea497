package backup

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/taxpoynt/core/internal/apperror"
	"github.com/taxpoynt/core/pkg/metrics"
	"github.com/taxpoynt/core/pkg/shared/logging"
	"github.com/taxpoynt/core/pkg/store"
)

// Config is the backup subsystem's configuration surface (§6 "backup
// local path; optional object-store credentials; retention days; worker
// concurrency").
type Config struct {
	LocalRoot      string
	Concurrency    int
	RetentionDays  int
	Compression    Compression
	RemoteBucket   string // empty disables the remote-upload step
}

// DefaultConfig returns sane standalone defaults before any environment
// override is applied.
func DefaultConfig() Config {
	return Config{
		LocalRoot:     "/tmp/taxpoynt_backups",
		Concurrency:   2,
		RetentionDays: 30,
		Compression:   CompressionGzip,
	}
}

// Orchestrator schedules backup jobs on a bounded worker pool (§4.9).
// Worker pools are created once and shut down gracefully on service stop
// (§5): Shutdown stops accepting new work, drains in-flight jobs, then
// returns.
type Orchestrator struct {
	cfg      Config
	engine   *store.Engine
	uploader Uploader
	logger   logr.Logger
	now      func() time.Time

	sem  chan struct{}
	wg   sync.WaitGroup

	mu        sync.RWMutex
	jobs      map[string]*Job
	lastFull  map[string]time.Time // tenantID ("" = global) -> last completed full/incremental backup time

	closeOnce sync.Once
	closed    chan struct{}
}

// NewOrchestrator constructs an Orchestrator. uploader may be nil, which
// disables the remote-upload step regardless of cfg.RemoteBucket.
func NewOrchestrator(cfg Config, engine *store.Engine, uploader Uploader, logger logr.Logger) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Orchestrator{
		cfg:      cfg,
		engine:   engine,
		uploader: uploader,
		logger:   logger,
		now:      time.Now,
		sem:      make(chan struct{}, cfg.Concurrency),
		jobs:     make(map[string]*Job),
		lastFull: make(map[string]time.Time),
		closed:   make(chan struct{}),
	}
}

// Schedule submits a new backup job and returns its id immediately; the
// job runs asynchronously on the worker pool (§4.9 "pending -> running ->
// ...").
func (o *Orchestrator) Schedule(ctx context.Context, jobType JobType, tenantID string) (string, error) {
	select {
	case <-o.closed:
		return "", apperror.New(apperror.KindConfig, "backup orchestrator is shutting down, no new jobs accepted")
	default:
	}

	job := &Job{
		ID:          uuid.NewString(),
		Type:        jobType,
		TenantID:    tenantID,
		Status:      StatusPending,
		Compression: o.cfg.Compression,
		ScheduledAt: o.now(),
	}
	o.mu.Lock()
	o.jobs[job.ID] = job
	o.mu.Unlock()

	o.wg.Add(1)
	go o.run(ctx, job)
	return job.ID, nil
}

// Job returns a snapshot of one tracked job, for status polling.
func (o *Orchestrator) Job(id string) (Job, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	j, ok := o.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// Shutdown stops accepting new jobs and waits for every in-flight job to
// settle (§5 "Worker pools are created once and shut down gracefully on
// service stop").
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.closeOnce.Do(func() { close(o.closed) })
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) run(ctx context.Context, job *Job) {
	defer o.wg.Done()

	select {
	case o.sem <- struct{}{}:
		defer func() { <-o.sem }()
	case <-ctx.Done():
		o.finish(job, StatusCancelled, "", 0, 0, "", ctx.Err())
		return
	}

	o.mu.Lock()
	job.Status = StatusRunning
	job.StartedAt = o.now()
	o.mu.Unlock()

	dstPath := artifactPath(o.cfg.LocalRoot, job.Type, job.TenantID, job.StartedAt)
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		o.finish(job, StatusFailed, "", 0, 0, "", err)
		return
	}

	var dumpErr error
	switch job.Type {
	case JobTypeIncremental:
		since := o.lastCheckpoint(job.TenantID)
		dumpErr = dumpIncremental(ctx, o.engine, job.TenantID, since, dstPath)
	default: // full and tenant-specific both take a full dump, tenant-specific scoped via tenantID
		dumpErr = dumpFull(ctx, o.engine, job.TenantID, dstPath)
	}
	if dumpErr != nil {
		o.finish(job, StatusFailed, "", 0, 0, "", dumpErr)
		return
	}

	bytesBefore, err := fileSize(dstPath)
	if err != nil {
		o.finish(job, StatusFailed, "", 0, 0, "", err)
		return
	}

	finalPath, err := compress(ctx, dstPath, job.Compression)
	if err != nil {
		o.finish(job, StatusFailed, "", 0, 0, "", err)
		return
	}

	checksum, err := checksumFile(finalPath)
	if err != nil {
		o.finish(job, StatusFailed, "", 0, 0, "", err)
		return
	}
	bytesAfter, err := fileSize(finalPath)
	if err != nil {
		o.finish(job, StatusFailed, "", 0, 0, "", err)
		return
	}

	o.mu.Lock()
	job.FilePath = finalPath
	job.BytesBefore = bytesBefore
	job.BytesAfter = bytesAfter
	job.Checksum = checksum
	o.mu.Unlock()

	if o.uploader != nil && o.cfg.RemoteBucket != "" {
		key := remoteKey(job.TenantID, filepath.Base(finalPath), job.StartedAt)
		if err := o.uploader.Upload(ctx, o.cfg.RemoteBucket, key, finalPath, *job); err != nil {
			o.logger.Error(err, "remote backup upload failed",
				logging.NewFields().Component("backup").Operation("upload").TenantID(job.TenantID).KeysAndValues()...)
		} else {
			o.mu.Lock()
			job.RemoteKey = key
			o.mu.Unlock()
		}
	}

	o.finish(job, StatusCompleted, finalPath, bytesBefore, bytesAfter, checksum, nil)
	o.mu.Lock()
	o.lastFull[job.TenantID] = job.CompletedAt
	o.mu.Unlock()
}

func (o *Orchestrator) lastCheckpoint(tenantID string) time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if t, ok := o.lastFull[tenantID]; ok {
		return t
	}
	return time.Time{} // no prior checkpoint: export everything
}

func (o *Orchestrator) finish(job *Job, status Status, filePath string, bytesBefore, bytesAfter int64, checksum string, err error) {
	o.mu.Lock()
	job.Status = status
	job.CompletedAt = o.now()
	if filePath != "" {
		job.FilePath = filePath
	}
	if bytesBefore > 0 {
		job.BytesBefore = bytesBefore
	}
	if bytesAfter > 0 {
		job.BytesAfter = bytesAfter
	}
	if checksum != "" {
		job.Checksum = checksum
	}
	if err != nil {
		job.Error = err.Error()
	}
	snapshot := *job
	o.mu.Unlock()

	o.persist(context.Background(), snapshot)
	metrics.RecordBackupJob(string(job.Type), string(status), bytesAfter)
	o.logger.Info("backup job finished",
		logging.NewFields().Component("backup").Operation(string(status)).TenantID(job.TenantID).
			Duration(snapshot.CompletedAt.Sub(snapshot.StartedAt)).KeysAndValues()...)
}
