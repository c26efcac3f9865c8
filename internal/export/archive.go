package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
	"github.com/joseph-ayodele/contracts-analyzer/internal/entity"
)

// Archive stores report JSON in an S3-compatible bucket. A nil *Archive
// archives nothing.
type Archive struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// NewArchive connects to the bucket, creating it when missing. It returns
// nil, nil when no endpoint is configured.
func NewArchive(ctx context.Context, cfg common.StorageConfig, logger *slog.Logger) (*Archive, error) {
	if cfg.Endpoint == "" {
		return nil, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("storage bucket created", "bucket", cfg.Bucket)
	}
	return &Archive{client: cli, bucket: cfg.Bucket, logger: logger}, nil
}

// ObjectKey is where a report is archived: reports/YYYY/MM/DD/<id>.json.
func ObjectKey(r entity.AnalysisReport) string {
	return fmt.Sprintf("reports/%s/%s.json", r.CreatedAt.UTC().Format("2006/01/02"), r.ID)
}

// Put uploads the report JSON and returns its object key.
func (a *Archive) Put(ctx context.Context, r entity.AnalysisReport) (string, error) {
	if a == nil {
		return "", nil
	}
	body, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	key := ObjectKey(r)
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		a.logger.Error("archive.put.failed", "report_id", r.ID, "key", key, "error", err)
		return "", fmt.Errorf("archive report: %w", err)
	}
	a.logger.Info("archive.put.ok", "report_id", r.ID, "bucket", a.bucket, "key", key, "bytes", len(body))
	return key, nil
}
