package shares

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/damacus/iron-gallery/internal/services"
)

// ObjectBackend keeps the document as a single object in the store
type ObjectBackend struct {
	store *services.ObjectStore
	key   string
}

func NewObjectBackend(store *services.ObjectStore, key string) *ObjectBackend {
	return &ObjectBackend{store: store, key: services.JoinKey(key)}
}

func (b *ObjectBackend) Load(ctx context.Context) (Document, error) {
	rc, _, err := b.store.Open(ctx, b.key)
	if errors.Is(err, services.ErrNotFound) {
		return Document{Shares: []Record{}}, nil
	}
	if err != nil {
		return Document{}, err
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return Document{}, fmt.Errorf("read shares object: %w", err)
	}
	return decodeDocument(data)
}

func (b *ObjectBackend) Save(ctx context.Context, doc Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	return b.store.PutObject(ctx, b.key, bytes.NewReader(data), int64(len(data)), "application/json")
}
