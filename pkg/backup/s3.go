package backup

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/taxpoynt/core/internal/apperror"
)

// Uploader streams a local backup artifact to an object store, carrying
// job metadata for audit (§4.9 "job id, backup type, tenant id, checksum,
// started-at"). Injected as a collaborator so the orchestrator stays
// testable without a live S3 endpoint.
type Uploader interface {
	Upload(ctx context.Context, bucket, key, localPath string, job Job) error
	Delete(ctx context.Context, bucket, key string) error
}

// S3Uploader uploads via aws-sdk-go-v2's S3 client.
type S3Uploader struct {
	client *s3.Client
}

// NewS3Uploader wraps an already-configured *s3.Client (built from
// config.LoadDefaultConfig + credentials).
func NewS3Uploader(client *s3.Client) *S3Uploader {
	return &S3Uploader{client: client}
}

// remoteKey builds the conventional object key (§6 "remote key mirrors
// this under taxpoynt-backups/yyyy/mm/dd/... and
// taxpoynt-backups/tenants/<id>/yyyy/mm/dd/...").
func remoteKey(tenantID, fileName string, at time.Time) string {
	stamp := at.UTC().Format("2006/01/02")
	if tenantID != "" {
		return fmt.Sprintf("taxpoynt-backups/tenants/%s/%s/%s", tenantID, stamp, fileName)
	}
	return fmt.Sprintf("taxpoynt-backups/%s/%s", stamp, fileName)
}

// Upload streams localPath to bucket/key with job metadata attached.
func (u *S3Uploader) Upload(ctx context.Context, bucket, key, localPath string, job Job) error {
	f, err := os.Open(localPath)
	if err != nil {
		return apperror.Wrap(err, apperror.KindConfig, "open backup artifact for upload")
	}
	defer f.Close()

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
		Metadata: map[string]string{
			"job-id":      job.ID,
			"backup-type": string(job.Type),
			"tenant-id":   job.TenantID,
			"checksum":    job.Checksum,
			"started-at":  job.StartedAt.Format(time.RFC3339),
		},
	})
	if err != nil {
		return apperror.Wrap(err, apperror.KindConfig, "upload backup artifact to object store")
	}
	return nil
}

// Delete removes bucket/key, used by the retention sweep to purge expired
// remote artifacts.
func (u *S3Uploader) Delete(ctx context.Context, bucket, key string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return apperror.Wrap(err, apperror.KindConfig, "delete expired remote backup artifact")
	}
	return nil
}
