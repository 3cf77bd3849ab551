// Package s3 implements the blob store port against an S3-compatible
// backend (AWS S3 or MinIO). Single bucket; media namespaces map to key
// prefixes so images and videos never collide.
package s3

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cowork-console/internal/console/domain/model"
	"cowork-console/internal/console/domain/repository"
	"cowork-console/internal/shared/errors"
	"cowork-console/internal/shared/logger"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config holds explicit construction parameters.
type Config struct {
	Region    string
	Bucket    string
	Endpoint  string // optional; custom endpoint (e.g. MinIO)
	PathStyle bool

	// PublicBaseURL, when set, is the base the returned media URLs are built
	// on (the bucket's CDN or website endpoint). Falls back to the virtual
	// hosted S3 URL.
	PublicBaseURL string
}

// objectPutter is the slice of the S3 client the store needs.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// BlobStore implements repository.BlobStore on S3.
type BlobStore struct {
	client objectPutter
	cfg    Config
	log    logger.Logger
	now    func() time.Time
}

// New creates an S3 blob store from Config using the default credentials
// chain.
func New(ctx context.Context, cfg Config, log logger.Logger) (*BlobStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	cfg.Region = region
	return newWithClient(client, cfg, log), nil
}

func newWithClient(client objectPutter, cfg Config, log logger.Logger) *BlobStore {
	return &BlobStore{
		client: client,
		cfg:    cfg,
		log:    log.WithComponent("blob-store"),
		now:    time.Now,
	}
}

var _ repository.BlobStore = (*BlobStore)(nil)

// Put uploads one file and returns its stable public URL. Single attempt,
// no retry; failures surface as ErrStorageUnavailable.
func (s *BlobStore) Put(ctx context.Context, kind model.MediaKind, filename string, contentType string, body io.Reader) (string, error) {
	key := s.objectKey(kind, filename)

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		s.log.Errorf("put %s failed: %v", key, err)
		return "", errors.NewInfrastructureError("storing media file").
			WithCause(errors.ErrStorageUnavailable).
			WithDetail("key", key)
	}

	url := s.publicURL(key)
	s.log.Debugf("stored %s", url)
	return url, nil
}

// objectKey builds "{namespace}/{epoch-millis}_{original-filename}".
func (s *BlobStore) objectKey(kind model.MediaKind, filename string) string {
	return fmt.Sprintf("%s/%d_%s", kind.Namespace(), s.now().UnixMilli(), sanitizeFilename(filename))
}

func (s *BlobStore) publicURL(key string) string {
	if s.cfg.PublicBaseURL != "" {
		return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
}

// sanitizeFilename strips any path the picker leaked in and replaces
// characters that do not belong in object keys.
func sanitizeFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "file"
	}
	return base
}
