// Package backup implements the backup orchestrator (C12): a bounded
// worker pool scheduling full/incremental/tenant-specific backup jobs,
// streaming SHA-256 checksums, gzip/bzip2 compression, an optional
// object-store upload step, and a retention sweep (§4.9).
package backup

import "time"

// JobType selects what a Job backs up (§4.9).
type JobType string

const (
	JobTypeFull           JobType = "full"
	JobTypeIncremental    JobType = "incremental"
	JobTypeTenantSpecific JobType = "tenant_specific"
)

// Status is a Job's lifecycle state (§4.9 "pending -> running ->
// {completed, failed, cancelled}").
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Compression selects a Job's artifact compression (§4.9 "none | gzip |
// bzip2 (gzip default)").
type Compression string

const (
	CompressionNone  Compression = "none"
	CompressionGzip  Compression = "gzip"
	CompressionBzip2 Compression = "bzip2"
)

// Job is one scheduled or completed backup operation (§6 backup_jobs
// table).
type Job struct {
	ID            string
	Type          JobType
	TenantID      string
	Status        Status
	Compression   Compression
	ScheduledAt   time.Time
	StartedAt     time.Time
	CompletedAt   time.Time
	FilePath      string
	BytesBefore   int64
	BytesAfter    int64
	Checksum      string
	Error         string
	RemoteKey     string
}
