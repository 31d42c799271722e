package shares

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/damacus/iron-gallery/internal/services"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor for share passwords
const PasswordCost = 10

// Registry is the only writer of the share document. Every mutation is a
// load-modify-save under one mutex, so concurrent requests in this process
// cannot overwrite each other. Separate processes sharing a backend still can.
type Registry struct {
	mu      sync.Mutex
	backend Backend
	now     func() time.Time
}

func NewRegistry(backend Backend) *Registry {
	return &Registry{backend: backend, now: time.Now}
}

func (r *Registry) Create(ctx context.Context, params CreateParams) (Record, error) {
	folderKey := strings.TrimLeft(params.FolderKey, "/")
	if folderKey == "" {
		return Record{}, fmt.Errorf("%w: folderKey required", services.ErrInvalidInput)
	}

	rec := Record{
		ID:        uuid.NewString(),
		FolderKey: folderKey,
		Editable:  params.Editable,
		CreatedAt: r.now().UTC(),
	}
	if params.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), PasswordCost)
		if err != nil {
			return Record{}, fmt.Errorf("hash share password: %w", err)
		}
		rec.PasswordHash = string(hash)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.backend.Load(ctx)
	if err != nil {
		return Record{}, err
	}
	doc.Shares = append(doc.Shares, rec)
	if err := r.backend.Save(ctx, doc); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (r *Registry) Get(ctx context.Context, id string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.backend.Load(ctx)
	if err != nil {
		return Record{}, err
	}
	for _, rec := range doc.Shares {
		if rec.ID == id {
			return rec, nil
		}
	}
	return Record{}, fmt.Errorf("share %q: %w", id, services.ErrNotFound)
}

func (r *Registry) List(ctx context.Context) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.backend.Load(ctx)
	if err != nil {
		return nil, err
	}
	if doc.Shares == nil {
		return []Record{}, nil
	}
	return doc.Shares, nil
}

// Delete removes the share with id. Unknown ids are not an error.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.backend.Load(ctx)
	if err != nil {
		return err
	}
	kept := make([]Record, 0, len(doc.Shares))
	for _, rec := range doc.Shares {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	if len(kept) == len(doc.Shares) {
		return nil
	}
	doc.Shares = kept
	return r.backend.Save(ctx, doc)
}
