package services

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/madmin-go/v3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config describes how to reach the photo bucket
type S3Config struct {
	Region          string `mapstructure:"region" validate:"required"`
	Bucket          string `mapstructure:"bucket"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PathStyle       bool   `mapstructure:"path_style"`
}

// MinioClient is an interface for the S3 methods the object store adapter uses
type MinioClient interface {
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObjectReader(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	CopyObject(ctx context.Context, dst minio.CopyDestOptions, src minio.CopySrcOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

// WrappedMinioClient wraps minio.Client to implement our interface
type WrappedMinioClient struct {
	client *minio.Client
}

func (c *WrappedMinioClient) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	return c.client.ListObjects(ctx, bucketName, opts)
}

func (c *WrappedMinioClient) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return c.client.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}

// GetObjectReader stats the object before handing it out so that a missing
// key fails here instead of on the first Read.
func (c *WrappedMinioClient) GetObjectReader(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, minio.ObjectInfo, error) {
	obj, err := c.client.GetObject(ctx, bucketName, objectName, opts)
	if err != nil {
		return nil, minio.ObjectInfo{}, err
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, minio.ObjectInfo{}, err
	}
	return obj, info, nil
}

func (c *WrappedMinioClient) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return c.client.RemoveObject(ctx, bucketName, objectName, opts)
}

func (c *WrappedMinioClient) CopyObject(ctx context.Context, dst minio.CopyDestOptions, src minio.CopySrcOptions) (minio.UploadInfo, error) {
	return c.client.CopyObject(ctx, dst, src)
}

func (c *WrappedMinioClient) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return c.client.StatObject(ctx, bucketName, objectName, opts)
}

func (c *WrappedMinioClient) PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error) {
	return c.client.PresignedGetObject(ctx, bucketName, objectName, expires, reqParams)
}

// shouldUseSSL determines if SSL should be used for a schemeless endpoint.
// Returns false for localhost, 127.0.0.1, and docker service names.
func shouldUseSSL(endpoint string) bool {
	if endpoint == "localhost:9000" || endpoint == "127.0.0.1:9000" {
		return false
	}
	// Docker service names (minio:9000, minio1:9000, ...) but not minio.example.com
	if strings.HasPrefix(endpoint, "minio") && !strings.Contains(strings.Split(endpoint, ":")[0], ".") && strings.Contains(endpoint, ":9000") {
		return false
	}
	return true
}

// NormalizeEndpoint turns a configured endpoint into the host[:port] the S3
// client dials and whether TLS is used. Providers hand out virtual-host
// endpoints with the bucket already in the hostname
// (photos.s3.fr-par.scw.cloud); that label is stripped so the client adds the
// bucket itself and presigned URLs are signed for the host they are sent to.
func NormalizeEndpoint(rawEndpoint, bucket string) (string, bool, error) {
	raw := strings.TrimSpace(rawEndpoint)
	if raw == "" {
		return "", false, fmt.Errorf("%w: endpoint is empty", ErrConfiguration)
	}

	if !strings.Contains(raw, "://") {
		host := stripBucketLabel(strings.TrimSuffix(raw, "/"), bucket)
		return host, shouldUseSSL(host), nil
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false, fmt.Errorf("%w: invalid endpoint %q", ErrConfiguration, raw)
	}
	switch u.Scheme {
	case "https":
		return stripBucketLabel(u.Host, bucket), true, nil
	case "http":
		return stripBucketLabel(u.Host, bucket), false, nil
	default:
		return "", false, fmt.Errorf("%w: unsupported endpoint scheme %q", ErrConfiguration, u.Scheme)
	}
}

func stripBucketLabel(host, bucket string) string {
	if bucket != "" && strings.HasPrefix(host, bucket+".") {
		return host[len(bucket)+1:]
	}
	return host
}

// NewMinioClient builds the process-wide S3 client. It performs no network
// I/O; a missing bucket is reported before anything is dialled.
func NewMinioClient(cfg S3Config) (MinioClient, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket is not set", ErrConfiguration)
	}
	// anonymous clients cannot presign, so every gallery would fail later
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("%w: access key id and secret access key are required", ErrConfiguration)
	}
	host, secure, err := NormalizeEndpoint(cfg.Endpoint, cfg.Bucket)
	if err != nil {
		return nil, err
	}

	lookup := minio.BucketLookupDNS
	if cfg.PathStyle {
		lookup = minio.BucketLookupPath
	}

	client, err := minio.New(host, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:       secure,
		Region:       cfg.Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &WrappedMinioClient{client: client}, nil
}

// PresignOrigin is the scheme://host that presigned URLs from NewMinioClient
// point at: the bucket is a host label unless path-style requests are on.
func PresignOrigin(cfg S3Config) (string, error) {
	host, secure, err := NormalizeEndpoint(cfg.Endpoint, cfg.Bucket)
	if err != nil {
		return "", err
	}
	scheme := "http"
	if secure {
		scheme = "https"
	}
	if !cfg.PathStyle && cfg.Bucket != "" {
		host = cfg.Bucket + "." + host
	}
	return scheme + "://" + host, nil
}

// NewUsageClient builds a MinIO admin client for the storage usage report.
func NewUsageClient(cfg S3Config) (UsageClient, error) {
	host, secure, err := NormalizeEndpoint(cfg.Endpoint, cfg.Bucket)
	if err != nil {
		return nil, err
	}
	client, err := madmin.NewWithOptions(host, &madmin.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("create admin client: %w", err)
	}
	return client, nil
}
