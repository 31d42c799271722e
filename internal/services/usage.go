package services

import (
	"context"
	"fmt"

	"github.com/damacus/iron-gallery/internal/utils"
	"github.com/minio/madmin-go/v3"
)

// UsageClient is the slice of the MinIO admin API the usage report needs
type UsageClient interface {
	DataUsageInfo(ctx context.Context) (madmin.DataUsageInfo, error)
}

// StorageUsage is the size of the photo bucket as last scanned by the server
type StorageUsage struct {
	Bucket        string `json:"bucket"`
	Size          uint64 `json:"size"`
	FormattedSize string `json:"formattedSize"`
}

type UsageReporter struct {
	client UsageClient
	bucket string
}

func NewUsageReporter(client UsageClient, bucket string) *UsageReporter {
	return &UsageReporter{client: client, bucket: bucket}
}

// BucketUsage only works against endpoints that implement the MinIO admin API
func (r *UsageReporter) BucketUsage(ctx context.Context) (StorageUsage, error) {
	usage, err := r.client.DataUsageInfo(ctx)
	if err != nil {
		return StorageUsage{}, fmt.Errorf("data usage: %w", err)
	}
	size := uint64(0)
	if usage.BucketSizes != nil {
		size = usage.BucketSizes[r.bucket]
	}
	return StorageUsage{
		Bucket:        r.bucket,
		Size:          size,
		FormattedSize: utils.FormatBytes(size),
	}, nil
}
