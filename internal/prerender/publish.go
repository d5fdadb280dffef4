package prerender

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	siteerrors "github.com/vango-dev/site/internal/errors"
)

// S3Client is the part of the S3 API the publisher uses.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Publisher uploads a prerender output directory to S3.
//
// Example usage:
//
//	pub, err := prerender.NewS3Publisher(ctx, "site-artifacts", "prerendered/")
//	err = pub.Publish(ctx, "dist/prerendered")
type Publisher struct {
	client S3Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewPublisher creates a Publisher around an existing client.
func NewPublisher(client S3Client, bucket, prefix string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{client: client, bucket: bucket, prefix: prefix, logger: logger}
}

// NewS3Publisher creates a Publisher using the default AWS credential chain.
func NewS3Publisher(ctx context.Context, bucket, prefix string) (*Publisher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, siteerrors.New("S401").Wrap(fmt.Errorf("load aws config: %w", err))
	}
	return NewPublisher(s3.NewFromConfig(cfg), bucket, prefix, nil), nil
}

// Publish uploads every regular file under dir, keyed by prefix plus its
// slash-separated relative path. It stops at the first failed upload.
func (p *Publisher) Publish(ctx context.Context, dir string) (int, error) {
	n := 0
	err := filepath.WalkDir(dir, func(file string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, file)
		if err != nil {
			return err
		}
		key := path.Join(p.prefix, filepath.ToSlash(rel))
		if err := p.put(ctx, key, file); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		n++
		return nil
	})
	if err != nil {
		return n, siteerrors.New("S401").WithPath(dir).Wrap(err)
	}
	p.logger.Info("published prerendered pages", "bucket", p.bucket, "prefix", p.prefix, "files", n)
	return n, nil
}

func (p *Publisher) put(ctx context.Context, key, file string) error {
	body, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	contentType := mime.TypeByExtension(filepath.Ext(file))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(p.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=60, stale-while-revalidate=300"),
		Metadata: map[string]string{
			"published-at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	return err
}
