// Package provenance implements the Provenance & Evidence Store (§4.1):
// a durable, content-hashed log of raw inbound payloads, backed by an
// S3-compatible object store. Keys follow {source}/{yyyy-mm}/{id}.{ext};
// grounded on the S3-backed artifact store pattern (content hashing,
// idempotent PutObject via a HeadObject pre-check, custom endpoint support
// for MinIO/LocalStack).
package provenance

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"mitds/internal/mitderr"
)

// Config configures the S3-backed store.
type Config struct {
	Bucket   string
	Region   string
	Endpoint string // custom endpoint for MinIO/LocalStack
	Prefix   string
}

// Store is the Provenance & Evidence Store.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates the S3-backed store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, mitderr.Fatal(fmt.Errorf("load AWS config: %w", err))
	}

	clientOpts := func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}
	client := s3.NewFromConfig(awsCfg, clientOpts)

	return &Store{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

var sanitizeRE = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// sanitizeID makes an arbitrary identifier safe as a path component.
func sanitizeID(id string) string {
	s := sanitizeRE.ReplaceAllString(id, "_")
	return strings.Trim(s, "_")
}

// Key builds the structured key {source}/{yyyy-mm}/{sanitized_id}.{ext}.
func Key(source string, at time.Time, id, ext string) string {
	return path.Join(source, at.UTC().Format("2006-01"), sanitizeID(id)+"."+strings.TrimPrefix(ext, "."))
}

// Metadata describes the caller-supplied context stored alongside a blob.
type Metadata struct {
	ContentType string
	Extra       map[string]string
}

// Put stores data intact under key and returns the key and its SHA-256
// hash (hex-encoded, "sha256:" prefixed). Idempotent: an existing object
// at key is not re-uploaded.
func (s *Store) Put(ctx context.Context, key string, data []byte, md Metadata) (string, string, error) {
	h := sha256.Sum256(data)
	hash := "sha256:" + hex.EncodeToString(h[:])
	fullKey := s.prefix + key

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
	})
	if err == nil {
		return key, hash, nil
	}

	contentType := md.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(fullKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}
	if len(md.Extra) > 0 {
		input.Metadata = md.Extra
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", "", mitderr.Transient(fmt.Errorf("s3 put %s: %w", fullKey, err))
	}
	return key, hash, nil
}

// PutRaw stores raw under the structured {source}/{yyyy-mm}/{id}.{ext} key
// and returns the key plus its content hash for an Evidence row's
// RawDataKey/ContentHash (§3, §4.1). s may be nil (adapters constructed
// without a provenance store, e.g. in unit tests) and raw may be empty
// (a record with no retrievable raw payload); both are no-ops returning
// ("", "", nil) rather than an error.
func (s *Store) PutRaw(ctx context.Context, source string, at time.Time, id, ext string, raw []byte) (key, hash string, err error) {
	if s == nil || len(raw) == 0 {
		return "", "", nil
	}
	return s.Put(ctx, Key(source, at, id, ext), raw, Metadata{})
}

// Get retrieves the raw bytes stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + key),
	})
	if err != nil {
		return nil, mitderr.Transient(fmt.Errorf("s3 get %s: %w", key, err))
	}
	defer result.Body.Close()
	return io.ReadAll(result.Body)
}

// Exists reports whether key is present in the store.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + key),
	})
	if err != nil {
		return false, nil
	}
	return true, nil
}

// Presign returns a time-limited GET URL for key.
func (s *Store) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	presignClient := s3.NewPresignClient(s.client)
	req, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", mitderr.Transient(fmt.Errorf("presign %s: %w", key, err))
	}
	return req.URL, nil
}
