package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"

	"github.com/MarcusHaas/NeuraDesk/app/models"
)

// LogSource pages through the usage log rows of a closed month.
type LogSource interface {
	ListBetween(start, end time.Time, offset, limit int) ([]models.UsageLog, error)
	CountBetween(start, end time.Time) (int64, error)
}

// Archiver writes one JSON-lines object per closed month of usage logs.
// Re-running a month overwrites the same object key, so the archive job is
// idempotent.
type Archiver struct {
	s3Client *s3.Client
	config   *Config
	source   LogSource
	pageSize int
}

// NewArchiver creates an archiver from config. Returns an error when
// archiving is disabled or the S3 client cannot be built.
func NewArchiver(cfg *Config, source LogSource) (*Archiver, error) {
	if !cfg.IsEnabled() {
		return nil, fmt.Errorf("usage archiving is disabled")
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})

	return &Archiver{
		s3Client: s3Client,
		config:   cfg,
		source:   source,
		pageSize: 1000,
	}, nil
}

// ArchiveMonth serializes every usage log entry of the given UTC month to a
// JSON-lines object and uploads it.
func (a *Archiver) ArchiveMonth(ctx context.Context, year, month int) error {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	total, err := a.source.CountBetween(start, end)
	if err != nil {
		return fmt.Errorf("count usage logs for %04d-%02d: %w", year, month, err)
	}
	if total == 0 {
		log.Infof("[Archive] No usage logs for %04d-%02d, nothing to archive", year, month)
		return nil
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	for offset := 0; ; offset += a.pageSize {
		entries, err := a.source.ListBetween(start, end, offset, a.pageSize)
		if err != nil {
			return fmt.Errorf("list usage logs for %04d-%02d: %w", year, month, err)
		}
		if len(entries) == 0 {
			break
		}
		for i := range entries {
			if err := encoder.Encode(&entries[i]); err != nil {
				return fmt.Errorf("encode usage log %d: %w", entries[i].ID, err)
			}
		}
		if len(entries) < a.pageSize {
			break
		}
	}

	objectKey := a.config.ObjectKey(year, month)
	_, err = a.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.config.BucketName),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("upload archive %s: %w", objectKey, err)
	}

	log.Infof("[Archive] Uploaded %d usage log entries to %s (%d bytes)", total, objectKey, buf.Len())
	return nil
}
