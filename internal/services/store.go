package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

const (
	// DefaultSignTTL is the lifetime of a presigned URL when the caller does not pick one
	DefaultSignTTL = time.Hour
	// MaxSignTTL is the longest lifetime S3 accepts for a presigned URL
	MaxSignTTL = 7 * 24 * time.Hour
)

// ObjectRef is a snapshot of one stored object
type ObjectRef struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// Listing holds the direct children of a prefix
type Listing struct {
	Folders []string
	Files   []ObjectRef
}

// ObjectStore maps the admin and share operations onto a single bucket.
// It is safe for concurrent use; the underlying client is shared.
type ObjectStore struct {
	client MinioClient
	bucket string
}

// NewObjectStore binds a client to a bucket
func NewObjectStore(client MinioClient, bucket string) (*ObjectStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("%w: bucket is not set", ErrConfiguration)
	}
	return &ObjectStore{client: client, bucket: bucket}, nil
}

// Bucket returns the bucket this store operates on
func (s *ObjectStore) Bucket() string {
	return s.bucket
}

// WithBucket returns a store sharing the same client but targeting another bucket
func (s *ObjectStore) WithBucket(bucket string) (*ObjectStore, error) {
	return NewObjectStore(s.client, bucket)
}

func sanitizeKey(key string) string {
	return strings.TrimLeft(key, "/")
}

// ListPrefix lists one level under prefix. The minio list channel follows
// continuation tokens until the listing is exhausted.
func (s *ObjectStore) ListPrefix(ctx context.Context, prefix string) (Listing, error) {
	p := sanitizeKey(prefix)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	listing := Listing{Folders: []string{}, Files: []ObjectRef{}}
	seenFolders := make(map[string]bool)

	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: p, Recursive: false}) {
		if obj.Err != nil {
			return Listing{}, fmt.Errorf("list %q: %w", p, obj.Err)
		}
		switch {
		case obj.Key == p:
			// the folder's own marker
			continue
		case strings.HasSuffix(obj.Key, "/"):
			if !seenFolders[obj.Key] {
				seenFolders[obj.Key] = true
				listing.Folders = append(listing.Folders, obj.Key)
			}
		default:
			listing.Files = append(listing.Files, toRef(obj))
		}
	}

	return listing, nil
}

// ListAllRecursive lists every object below prefix at any depth, skipping folder markers
func (s *ObjectStore) ListAllRecursive(ctx context.Context, prefix string) ([]ObjectRef, error) {
	p := sanitizeKey(prefix)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := []ObjectRef{}
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: p, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %q: %w", p, obj.Err)
		}
		if obj.Key == "" || strings.HasSuffix(obj.Key, "/") {
			continue
		}
		objects = append(objects, toRef(obj))
	}
	return objects, nil
}

// PutObject stores size bytes from r under key. Use size -1 when unknown.
func (s *ObjectStore) PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	k := sanitizeKey(key)
	if k == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidInput)
	}
	_, err := s.client.PutObject(ctx, s.bucket, k, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put %q: %w", k, err)
	}
	return nil
}

func (s *ObjectStore) DeleteObject(ctx context.Context, key string) error {
	k := sanitizeKey(key)
	if k == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidInput)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, k, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %q: %w", k, err)
	}
	return nil
}

func (s *ObjectStore) CopyObject(ctx context.Context, fromKey, toKey string) error {
	src := sanitizeKey(fromKey)
	dst := sanitizeKey(toKey)
	if src == "" || dst == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidInput)
	}
	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.bucket, Object: dst},
		minio.CopySrcOptions{Bucket: s.bucket, Object: src},
	)
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("copy %q: %w", src, ErrNotFound)
		}
		return fmt.Errorf("copy %q to %q: %w", src, dst, err)
	}
	return nil
}

// ObjectExists reports whether key is stored. A missing key is (false, nil).
func (s *ObjectStore) ObjectExists(ctx context.Context, key string) (bool, error) {
	k := sanitizeKey(key)
	if k == "" {
		return false, nil
	}
	_, err := s.client.StatObject(ctx, s.bucket, k, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat %q: %w", k, err)
}

// Open streams an object. The caller must close the reader.
func (s *ObjectStore) Open(ctx context.Context, key string) (io.ReadCloser, ObjectRef, error) {
	k := sanitizeKey(key)
	if k == "" {
		return nil, ObjectRef{}, fmt.Errorf("%w: empty key", ErrInvalidInput)
	}
	rc, info, err := s.client.GetObjectReader(ctx, s.bucket, k, minio.GetObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, ObjectRef{}, fmt.Errorf("open %q: %w", k, ErrNotFound)
		}
		return nil, ObjectRef{}, fmt.Errorf("open %q: %w", k, err)
	}
	ref := toRef(info)
	ref.Key = k
	return rc, ref, nil
}

// SignGetURL returns a read-only URL for key valid for ttl.
// Non-positive ttl means DefaultSignTTL; anything above MaxSignTTL is capped.
func (s *ObjectStore) SignGetURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	k := sanitizeKey(key)
	if k == "" {
		return "", fmt.Errorf("%w: empty key", ErrInvalidInput)
	}
	if ttl <= 0 {
		ttl = DefaultSignTTL
	}
	if ttl > MaxSignTTL {
		ttl = MaxSignTTL
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, k, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("sign %q: %w", k, err)
	}
	return u.String(), nil
}

// JoinKey joins key fragments with "/", turning backslashes into slashes,
// collapsing repeated slashes and dropping any leading slash.
func JoinKey(parts ...string) string {
	joined := strings.ReplaceAll(strings.Join(parts, "/"), `\`, "/")
	for strings.Contains(joined, "//") {
		joined = strings.ReplaceAll(joined, "//", "/")
	}
	return strings.TrimPrefix(joined, "/")
}

func toRef(obj minio.ObjectInfo) ObjectRef {
	return ObjectRef{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified}
}

func isNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var resp minio.ErrorResponse
	if !errors.As(err, &resp) {
		return false
	}
	return resp.Code == "NoSuchKey" || resp.StatusCode == 404
}
