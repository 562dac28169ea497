package backup

import (
	"context"
	"time"

	"github.com/taxpoynt/core/pkg/shared/logging"
	"github.com/taxpoynt/core/pkg/store"
)

// persist upserts job's terminal state into the backup_jobs table (§6).
// Persistence failures are logged and absorbed — a backup that ran
// successfully but whose bookkeeping row failed to write is still a
// successful backup; the retention sweep simply won't know about it until
// the next successful persist.
func (o *Orchestrator) persist(ctx context.Context, job Job) {
	var tenantID any
	if job.TenantID != "" {
		tenantID = job.TenantID
	}

	const q = `
		INSERT INTO backup_jobs
			(job_id, type, tenant_id, status, started_at, completed_at, file_path,
			 bytes_before, bytes_after, checksum, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (job_id) DO UPDATE SET
			status = EXCLUDED.status,
			completed_at = EXCLUDED.completed_at,
			file_path = EXCLUDED.file_path,
			bytes_before = EXCLUDED.bytes_before,
			bytes_after = EXCLUDED.bytes_after,
			checksum = EXCLUDED.checksum,
			error = EXCLUDED.error`

	_, err := o.engine.Exec(ctx, q,
		job.ID, string(job.Type), tenantID, string(job.Status),
		job.StartedAt, job.CompletedAt, job.FilePath,
		job.BytesBefore, job.BytesAfter, job.Checksum, job.Error,
	)
	if err != nil {
		o.logger.Error(err, "failed to persist backup_jobs record",
			logging.NewFields().Component("backup").Operation("persist").KeysAndValues()...)
	}
}

// expiredLocalArtifacts lists local backup_jobs rows completed before the
// retention cutoff, for Sweep to remove.
func (o *Orchestrator) expiredLocalArtifacts(ctx context.Context, cutoff time.Time) ([]map[string]any, error) {
	return o.engine.Query(ctx,
		`SELECT job_id, file_path, tenant_id FROM backup_jobs WHERE status = $1 AND completed_at < $2`,
		string(StatusCompleted), cutoff)
}
