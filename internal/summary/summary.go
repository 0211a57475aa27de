// Package summary persists a per-run BatchStatistics snapshot after an
// ingestion batch completes, either to a local directory or to S3. Uses
// aws-sdk-go-v2's standard S3 client construction and PutObject call shape,
// trimmed to the single write-only operation a run summary needs.
package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"landmarkvector/internal/config"
	"landmarkvector/internal/domain"
	"landmarkvector/internal/observability"
)

const module = "summary"

// Record is a single run's persisted summary.
type Record struct {
	RunID      string                 `json:"run_id"`
	SourceType string                 `json:"source_type"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
	Stats      domain.BatchStatistics `json:"stats"`
}

// Sink persists a Record and returns the location it was written to (a path
// or an s3:// URI), for logging.
type Sink interface {
	Write(ctx context.Context, rec Record) (string, error)
}

// NewFromConfig builds the configured Sink: S3 when a bucket is set, a local
// directory when only Dir is set, or a no-op sink when summaries are
// disabled entirely.
func NewFromConfig(ctx context.Context, cfg config.SummaryConfig) (Sink, error) {
	if cfg.S3Bucket != "" {
		return newS3Sink(ctx, cfg)
	}
	if cfg.Dir != "" {
		return &localSink{dir: cfg.Dir}, nil
	}
	return noopSink{}, nil
}

// filename returns the ISO-8601, filesystem-safe key for rec (colons are not
// valid in Windows paths and are awkward in S3 console URLs alike).
func filename(rec Record) string {
	ts := strings.ReplaceAll(rec.FinishedAt.UTC().Format(time.RFC3339), ":", "-")
	return fmt.Sprintf("landmarkvector-run-%s-%s.json", ts, rec.RunID)
}

type noopSink struct{}

func (noopSink) Write(context.Context, Record) (string, error) { return "", nil }

// localSink writes each run's summary as a JSON file under dir.
type localSink struct {
	dir string
}

func (s *localSink) Write(ctx context.Context, rec Record) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("%s: mkdir %q: %w", module, s.dir, err)
	}
	path := filepath.Join(s.dir, filename(rec))
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%s: marshal summary: %w", module, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("%s: write %q: %w", module, path, err)
	}
	observability.Event(ctx, module, "summary_written").Str("path", path).Msg("run summary persisted")
	return path, nil
}

// s3Sink writes each run's summary as an object under a configured bucket
// and prefix.
type s3Sink struct {
	client *s3.Client
	bucket string
	prefix string
}

func newS3Sink(ctx context.Context, cfg config.SummaryConfig) (*s3Sink, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKeyID != "" && cfg.S3SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: load aws config: %w", module, err)
	}
	return &s3Sink{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.S3Bucket,
		prefix: strings.TrimSuffix(cfg.S3Prefix, "/"),
	}, nil
}

func (s *s3Sink) key(rec Record) string {
	name := filename(rec)
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *s3Sink) Write(ctx context.Context, rec Record) (string, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%s: marshal summary: %w", module, err)
	}

	key := s.key(rec)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("%s: s3 put %q: %w", module, key, err)
	}

	location := fmt.Sprintf("s3://%s/%s", s.bucket, key)
	observability.Event(ctx, module, "summary_written").Str("location", location).Msg("run summary persisted")
	return location, nil
}
