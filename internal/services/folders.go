package services

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
)

const folderContentType = "application/x-directory"

// Folders emulates directories on top of the flat key space
type Folders struct {
	store *ObjectStore
}

func NewFolders(store *ObjectStore) *Folders {
	return &Folders{store: store}
}

// MarkerKey returns the normalized key of the folder marker for prefix
func MarkerKey(prefix string) string {
	k := JoinKey(prefix)
	if !strings.HasSuffix(k, "/") {
		k += "/"
	}
	return k
}

// FolderPrefix is MarkerKey except that the root stays "".
func FolderPrefix(folderKey string) string {
	if JoinKey(folderKey) == "" {
		return ""
	}
	return MarkerKey(folderKey)
}

// CreateFolder writes a zero-byte marker object and returns its key
func (f *Folders) CreateFolder(ctx context.Context, prefix string) (string, error) {
	if JoinKey(prefix) == "" {
		return "", fmt.Errorf("%w: folder name is required", ErrInvalidInput)
	}
	key := MarkerKey(prefix)
	if err := f.store.PutObject(ctx, key, bytes.NewReader(nil), 0, folderContentType); err != nil {
		return "", err
	}
	return key, nil
}

type folderFrame struct {
	prefix   string
	expanded bool
}

// DeleteFolderRecursive removes every object below prefix, then the folder
// marker. The walk is post-order over an explicit stack: the files of a level
// go first, then each sub-folder depth first, and a folder's own marker only
// after all of its children. It is not atomic; on failure the returned
// *PartialFailureError names the key that failed and the keys already gone.
func (f *Folders) DeleteFolderRecursive(ctx context.Context, prefix string) error {
	if JoinKey(prefix) == "" {
		return fmt.Errorf("%w: refusing to delete the bucket root", ErrInvalidInput)
	}

	var deleted []string
	fail := func(key string, err error) error {
		return &PartialFailureError{Op: "delete folder", Key: key, Completed: deleted, Err: err}
	}

	stack := []folderFrame{{prefix: MarkerKey(prefix)}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]

		if top.expanded {
			stack = stack[:len(stack)-1]
			exists, err := f.store.ObjectExists(ctx, top.prefix)
			if err != nil {
				return fail(top.prefix, err)
			}
			if exists {
				if err := f.store.DeleteObject(ctx, top.prefix); err != nil {
					return fail(top.prefix, err)
				}
				deleted = append(deleted, top.prefix)
			}
			continue
		}

		stack[len(stack)-1].expanded = true
		listing, err := f.store.ListPrefix(ctx, top.prefix)
		if err != nil {
			return fail(top.prefix, err)
		}
		for _, file := range listing.Files {
			if err := f.store.DeleteObject(ctx, file.Key); err != nil {
				return fail(file.Key, err)
			}
			deleted = append(deleted, file.Key)
		}
		// pushed in reverse so the first sub-folder is walked first
		for i := len(listing.Folders) - 1; i >= 0; i-- {
			stack = append(stack, folderFrame{prefix: listing.Folders[i]})
		}
	}

	return nil
}

// MoveObject copies fromKey into toFolder under the same base name and then
// deletes the original. Returns the new key.
func (f *Folders) MoveObject(ctx context.Context, fromKey, toFolder string) (string, error) {
	src := JoinKey(fromKey)
	if src == "" || strings.HasSuffix(src, "/") {
		return "", fmt.Errorf("%w: not an object key", ErrInvalidInput)
	}
	dst := JoinKey(toFolder, path.Base(src))
	if dst == src {
		return dst, nil
	}
	if err := f.store.CopyObject(ctx, src, dst); err != nil {
		return "", err
	}
	if err := f.store.DeleteObject(ctx, src); err != nil {
		return "", &PartialFailureError{Op: "move", Key: src, Completed: []string{dst}, Err: err}
	}
	return dst, nil
}

// FolderDisplayName is key with the listing prefix and trailing slash removed
func FolderDisplayName(key, prefix string) string {
	return strings.TrimSuffix(strings.TrimPrefix(key, prefix), "/")
}

// ParentPrefix returns the folder (with trailing slash) containing key, or "" at the root
func ParentPrefix(key string) string {
	k := strings.TrimSuffix(JoinKey(key), "/")
	i := strings.LastIndex(k, "/")
	if i < 0 {
		return ""
	}
	return k[:i+1]
}

// KeyWithinFolder reports whether key names an object inside folderKey.
// Keys with ".." segments are never inside anything.
func KeyWithinFolder(key, folderKey string) bool {
	if key == "" || strings.HasPrefix(key, "/") {
		return false
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return false
		}
	}
	return strings.HasPrefix(key, FolderPrefix(folderKey))
}
