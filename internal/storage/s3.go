// Package storage persists case documents and pipeline artifacts in an
// S3-compatible bucket (MinIO in development).
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// Config points the client at a bucket.
type Config struct {
	Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT" env-default:"localhost:9000"`
	Bucket    string `yaml:"bucket" env:"MINIO_BUCKET" env-default:"advocai"`
	AccessKey string `yaml:"-" env:"MINIO_ACCESS_KEY"`
	SecretKey string `yaml:"-" env:"MINIO_SECRET_KEY"`
}

type Client struct {
	s3     *s3.Client
	bucket string
	logger *zap.Logger
}

// New builds an S3 client against cfg.Endpoint with static credentials.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{URL: fmt.Sprintf("http://%s", cfg.Endpoint),
			HostnameImmutable: true}, nil
	})
	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey,
			cfg.SecretKey,
			"")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, err
	}
	return &Client{s3: s3.NewFromConfig(awsCfg), bucket: cfg.Bucket, logger: logger.Named("storage")}, nil
}

// DocumentKey names an uploaded case document.
func DocumentKey(sessionID, filename string) string {
	return fmt.Sprintf("cases/%s/documents/%s", sessionID, filename)
}

// ArtifactKey names a pipeline artifact for a session.
func ArtifactKey(sessionID, filename string) string {
	return fmt.Sprintf("cases/%s/artifacts/%s", sessionID, filename)
}

// PutObject uploads raw bytes and returns an s3:// reference.
func (c *Client) PutObject(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &c.bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}
	c.logger.Info("stored object", zap.String("key", key), zap.Int("bytes", len(body)))
	return fmt.Sprintf("s3://%s/%s", c.bucket, key), nil
}

// PutJSON marshals v and uploads it under key.
func (c *Client) PutJSON(ctx context.Context, key string, v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return c.PutObject(ctx, key, b, "application/json")
}

// GetObject downloads the bytes behind an s3:// reference or bare key.
func (c *Client) GetObject(ctx context.Context, ref string) ([]byte, error) {
	key, err := c.resolveKey(ref)
	if err != nil {
		return nil, err
	}
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &c.bucket,
		Key:    &key,
	})
	if err != nil {
		c.logger.Warn("get object failed", zap.String("ref", ref), zap.Error(err))
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (c *Client) resolveKey(ref string) (string, error) {
	if !strings.HasPrefix(ref, "s3://") {
		return ref, nil
	}
	_, key, err := parseS3Ref(ref)
	return key, err
}

func parseS3Ref(ref string) (string, string, error) {
	const p = "s3://"
	if !strings.HasPrefix(ref, p) {
		return "", "", fmt.Errorf("bad s3 ref (missing s3://): %q", ref)
	}
	s := strings.TrimPrefix(ref, p)
	slash := strings.IndexByte(s, '/')
	if slash <= 0 || slash == len(s)-1 {
		return "", "", fmt.Errorf("bad s3 ref (need bucket/key): %q", ref)
	}
	return s[:slash], s[slash+1:], nil
}
