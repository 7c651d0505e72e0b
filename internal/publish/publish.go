// Package publish uploads finished dataset files to an S3 compatible bucket.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"bbmp-grievances/lib/telemetry"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("internal/publish")

var ErrNotConfigured = errors.New("publishing needs an endpoint and a bucket")

type Config struct {
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Region    string `json:"region"`
	Bucket    string `json:"bucket"`
	Prefix    string `json:"prefix"`
	Secure    bool   `json:"secure"`

	// CreateBucket makes the bucket when it does not exist yet.
	CreateBucket bool `json:"create_bucket"`
}

func (c Config) Configured() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

type Publisher struct {
	client *minio.Client
	config Config
}

func New(config Config) (Publisher, error) {
	if !config.Configured() {
		return Publisher{}, ErrNotConfigured
	}
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.Secure,
		Region: config.Region,
	})
	if err != nil {
		return Publisher{}, fmt.Errorf("create object storage client: %w", err)
	}
	return Publisher{client: client, config: config}, nil
}

// ObjectKey is where a local file is stored in the bucket.
func ObjectKey(prefix, file string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return filepath.Base(file)
	}
	return path.Join(prefix, filepath.Base(file))
}

// ContentType picks the content type of a dataset file by its extension.
func ContentType(file string) string {
	switch {
	case strings.HasSuffix(file, ".parquet"):
		return "application/vnd.apache.parquet"
	case strings.HasSuffix(file, ".csv.gz"), strings.HasSuffix(file, ".gz"):
		return "application/gzip"
	case strings.HasSuffix(file, ".csv"):
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}

type Uploaded struct {
	File string
	Key  string
	Size int64
}

func (p Publisher) ensureBucket(ctx context.Context) error {
	if !p.config.CreateBucket {
		return nil
	}
	exists, err := p.client.BucketExists(ctx, p.config.Bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return p.client.MakeBucket(ctx, p.config.Bucket, minio.MakeBucketOptions{Region: p.config.Region})
}

// Upload puts every file into the bucket under the configured prefix,
// `metadata` is attached to each object.
func (p Publisher) Upload(ctx context.Context, files []string, metadata map[string]string) ([]Uploaded, error) {
	ctx, span := tracer.Start(ctx, "Upload")
	defer span.End()
	span.SetAttributes(attribute.String("bucket", p.config.Bucket))

	err := p.ensureBucket(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to ensure bucket")
		return nil, err
	}

	var out []Uploaded
	for _, file := range files {
		uploaded, err := p.put(ctx, file, metadata)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to upload")
			return out, err
		}
		out = append(out, uploaded)
	}
	return out, nil
}

func (p Publisher) put(ctx context.Context, file string, metadata map[string]string) (Uploaded, error) {
	f, err := os.Open(file)
	if err != nil {
		return Uploaded{}, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return Uploaded{}, err
	}

	key := ObjectKey(p.config.Prefix, file)
	_, err = p.client.PutObject(ctx, p.config.Bucket, key, f, info.Size(), minio.PutObjectOptions{
		ContentType:  ContentType(file),
		UserMetadata: metadata,
	})
	if err != nil {
		return Uploaded{}, fmt.Errorf("upload %s: %w", key, err)
	}
	return Uploaded{File: file, Key: key, Size: info.Size()}, nil
}
