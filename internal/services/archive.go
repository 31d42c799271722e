package services

import (
	"archive/zip"
	"context"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
)

// ArchiveCompressionLevel trades ratio for throughput; photos barely compress anyway.
const ArchiveCompressionLevel = 6

// ArchivePlan is the resolved content of a folder archive
type ArchivePlan struct {
	Name    string
	Prefix  string
	Objects []ObjectRef
}

// Archiver streams folders as zip files
type Archiver struct {
	store *ObjectStore
}

func NewArchiver(store *ObjectStore) *Archiver {
	return &Archiver{store: store}
}

// ArchiveName derives the download file name from the folder key
func ArchiveName(folderKey string) string {
	name := strings.TrimSuffix(JoinKey(folderKey), "/")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if name == "" {
		name = "folder"
	}
	return name + ".zip"
}

// Plan lists everything below folderKey. Nothing has been written yet when
// this fails, so callers can still answer with a clean error.
func (a *Archiver) Plan(ctx context.Context, folderKey string) (ArchivePlan, error) {
	prefix := FolderPrefix(folderKey)
	objects, err := a.store.ListAllRecursive(ctx, prefix)
	if err != nil {
		return ArchivePlan{}, err
	}
	return ArchivePlan{Name: ArchiveName(folderKey), Prefix: prefix, Objects: objects}, nil
}

// Write appends the planned objects to a zip stream one at a time: object
// N+1 is not opened before object N has been copied into the archive. On
// failure the archive is left without its central directory so readers
// detect the truncation, and a *PartialFailureError is returned.
func (a *Archiver) Write(ctx context.Context, w io.Writer, plan ArchivePlan) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, ArchiveCompressionLevel)
	})

	done := make([]string, 0, len(plan.Objects))
	for _, obj := range plan.Objects {
		if err := a.appendObject(ctx, zw, plan.Prefix, obj); err != nil {
			return &PartialFailureError{Op: "archive", Key: obj.Key, Completed: done, Err: err}
		}
		done = append(done, obj.Key)
	}
	return zw.Close()
}

func (a *Archiver) appendObject(ctx context.Context, zw *zip.Writer, prefix string, obj ObjectRef) error {
	rc, _, err := a.store.Open(ctx, obj.Key)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	entry, err := zw.CreateHeader(&zip.FileHeader{
		Name:     strings.TrimPrefix(obj.Key, prefix),
		Method:   zip.Deflate,
		Modified: obj.LastModified,
	})
	if err != nil {
		return err
	}
	_, err = io.Copy(entry, rc)
	return err
}
