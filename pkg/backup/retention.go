package backup

import (
	"context"
	"os"
	"path/filepath"

	"github.com/taxpoynt/core/pkg/shared/logging"
)

// Sweep deletes local and remote backup artifacts completed more than
// cfg.RetentionDays ago (§4.9 "Retention sweep deletes local and remote
// files older than retention_days"). It is best-effort per artifact: one
// file's delete failure does not stop the sweep from considering the
// rest, and is logged rather than returned.
func (o *Orchestrator) Sweep(ctx context.Context) error {
	cutoff := o.now().AddDate(0, 0, -o.cfg.RetentionDays)
	rows, err := o.expiredLocalArtifacts(ctx, cutoff)
	if err != nil {
		return err
	}

	for _, row := range rows {
		filePath := stringCell(row, "file_path")
		tenantID := stringCell(row, "tenant_id")

		if filePath != "" {
			if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
				o.logger.Error(err, "failed to delete expired local backup artifact",
					logging.NewFields().Component("backup").Operation("retention_sweep").TenantID(tenantID).KeysAndValues()...)
			}
		}

		if o.uploader != nil && o.cfg.RemoteBucket != "" && filePath != "" {
			key := remoteKey(tenantID, filepath.Base(filePath), cutoff)
			if err := o.uploader.Delete(ctx, o.cfg.RemoteBucket, key); err != nil {
				o.logger.Error(err, "failed to delete expired remote backup artifact",
					logging.NewFields().Component("backup").Operation("retention_sweep").TenantID(tenantID).KeysAndValues()...)
			}
		}
	}
	return nil
}

func stringCell(row map[string]any, key string) string {
	v, ok := row[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return ""
	}
}

