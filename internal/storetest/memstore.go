// Package storetest provides an in-memory S3 double for tests that need
// real listing, copy and presign behaviour without a running server.
package storetest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
)

type object struct {
	data        []byte
	contentType string
	modified    time.Time
}

// MemStore implements services.MinioClient over process memory. Presigned
// URLs point at BaseURL; mount the store as an http.Handler (for example
// with httptest.NewServer) to make them fetchable.
type MemStore struct {
	BaseURL string

	mu      sync.Mutex
	buckets map[string]map[string]object
	fail    map[string]error
	now     func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		BaseURL: "http://store.invalid",
		buckets: make(map[string]map[string]object),
		fail:    make(map[string]error),
		now:     time.Now,
	}
}

// FailOn makes the next and every later call of op ("list", "put", "get",
// "remove", "copy", "stat", "presign") on key return err. The list key is
// the listing prefix.
func (m *MemStore) FailOn(op, key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[op+":"+key] = err
}

func (m *MemStore) failure(op, key string) error {
	return m.fail[op+":"+key]
}

// Put stores data directly, bypassing the client interface
func (m *MemStore) Put(bucket, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bucket(bucket)[key] = object{data: append([]byte(nil), data...), modified: m.now()}
}

// Get returns the stored bytes for key
func (m *MemStore) Get(bucket, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.buckets[bucket][key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), obj.data...), true
}

// Keys lists every key in bucket in lexical order
func (m *MemStore) Keys(bucket string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedKeys(bucket)
}

func (m *MemStore) bucket(name string) map[string]object {
	b, ok := m.buckets[name]
	if !ok {
		b = make(map[string]object)
		m.buckets[name] = b
	}
	return b
}

func (m *MemStore) sortedKeys(bucket string) []string {
	keys := make([]string, 0, len(m.buckets[bucket]))
	for k := range m.buckets[bucket] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func noSuchKey(bucket, key string) error {
	return minio.ErrorResponse{
		Code:       "NoSuchKey",
		Message:    "The specified key does not exist.",
		BucketName: bucket,
		Key:        key,
		StatusCode: http.StatusNotFound,
	}
}

func (m *MemStore) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	m.mu.Lock()
	var infos []minio.ObjectInfo
	if err := m.failure("list", opts.Prefix); err != nil {
		infos = append(infos, minio.ObjectInfo{Err: err})
	} else {
		seen := make(map[string]bool)
		for _, key := range m.sortedKeys(bucketName) {
			if !strings.HasPrefix(key, opts.Prefix) {
				continue
			}
			rest := key[len(opts.Prefix):]
			if !opts.Recursive {
				if idx := strings.Index(rest, "/"); idx >= 0 {
					common := opts.Prefix + rest[:idx+1]
					if !seen[common] {
						seen[common] = true
						infos = append(infos, minio.ObjectInfo{Key: common})
					}
					continue
				}
			}
			obj := m.buckets[bucketName][key]
			infos = append(infos, m.info(key, obj))
		}
	}
	m.mu.Unlock()

	ch := make(chan minio.ObjectInfo)
	go func() {
		defer close(ch)
		for _, info := range infos {
			select {
			case ch <- info:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func (m *MemStore) info(key string, obj object) minio.ObjectInfo {
	return minio.ObjectInfo{
		Key:          key,
		Size:         int64(len(obj.data)),
		LastModified: obj.modified,
		ContentType:  obj.contentType,
	}
}

func (m *MemStore) PutObject(_ context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	m.mu.Lock()
	err := m.failure("put", objectName)
	m.mu.Unlock()
	if err != nil {
		return minio.UploadInfo{}, err
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	if objectSize >= 0 && int64(len(data)) != objectSize {
		return minio.UploadInfo{}, fmt.Errorf("size mismatch: declared %d, read %d", objectSize, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.bucket(bucketName)[objectName] = object{data: data, contentType: opts.ContentType, modified: m.now()}
	return minio.UploadInfo{Bucket: bucketName, Key: objectName, Size: int64(len(data))}, nil
}

func (m *MemStore) GetObjectReader(_ context.Context, bucketName, objectName string, _ minio.GetObjectOptions) (io.ReadCloser, minio.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("get", objectName); err != nil {
		return nil, minio.ObjectInfo{}, err
	}
	obj, ok := m.buckets[bucketName][objectName]
	if !ok {
		return nil, minio.ObjectInfo{}, noSuchKey(bucketName, objectName)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), m.info(objectName, obj), nil
}

// RemoveObject succeeds for missing keys, as S3 does
func (m *MemStore) RemoveObject(_ context.Context, bucketName, objectName string, _ minio.RemoveObjectOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("remove", objectName); err != nil {
		return err
	}
	delete(m.buckets[bucketName], objectName)
	return nil
}

func (m *MemStore) CopyObject(_ context.Context, dst minio.CopyDestOptions, src minio.CopySrcOptions) (minio.UploadInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("copy", src.Object); err != nil {
		return minio.UploadInfo{}, err
	}
	obj, ok := m.buckets[src.Bucket][src.Object]
	if !ok {
		return minio.UploadInfo{}, noSuchKey(src.Bucket, src.Object)
	}
	obj.modified = m.now()
	m.bucket(dst.Bucket)[dst.Object] = obj
	return minio.UploadInfo{Bucket: dst.Bucket, Key: dst.Object, Size: int64(len(obj.data))}, nil
}

func (m *MemStore) StatObject(_ context.Context, bucketName, objectName string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("stat", objectName); err != nil {
		return minio.ObjectInfo{}, err
	}
	obj, ok := m.buckets[bucketName][objectName]
	if !ok {
		return minio.ObjectInfo{}, noSuchKey(bucketName, objectName)
	}
	return m.info(objectName, obj), nil
}

func (m *MemStore) PresignedGetObject(_ context.Context, bucketName, objectName string, expires time.Duration, _ url.Values) (*url.URL, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("presign", objectName); err != nil {
		return nil, err
	}
	u, err := url.Parse(strings.TrimSuffix(m.BaseURL, "/") + "/" + bucketName + "/" + objectName)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("X-Amz-Date", strconv.FormatInt(m.now().Unix(), 10))
	q.Set("X-Amz-Expires", strconv.Itoa(int(expires.Seconds())))
	u.RawQuery = q.Encode()
	return u, nil
}

// ServeHTTP answers GET requests for presigned URLs
func (m *MemStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	bucket, key, ok := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if !ok || key == "" {
		http.Error(w, "bad path", http.StatusBadRequest)
		return
	}

	signedAt, err1 := strconv.ParseInt(r.URL.Query().Get("X-Amz-Date"), 10, 64)
	ttl, err2 := strconv.ParseInt(r.URL.Query().Get("X-Amz-Expires"), 10, 64)
	if err1 != nil || err2 != nil {
		http.Error(w, "missing signature", http.StatusForbidden)
		return
	}

	m.mu.Lock()
	expired := m.now().Unix() > signedAt+ttl
	obj, found := m.buckets[bucket][key]
	m.mu.Unlock()

	if expired {
		http.Error(w, "request has expired", http.StatusForbidden)
		return
	}
	if !found {
		http.Error(w, "no such key", http.StatusNotFound)
		return
	}
	if obj.contentType != "" {
		w.Header().Set("Content-Type", obj.contentType)
	}
	_, _ = w.Write(obj.data)
}
