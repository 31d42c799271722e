// Package shares persists share links: a folder key, an optional password
// hash and whether visitors may upload.
package shares

import (
	"context"
	"time"
)

// Record is one share link
type Record struct {
	ID           string    `json:"id"`
	FolderKey    string    `json:"folderKey"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	Editable     bool      `json:"editable"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HasPassword reports whether visitors must unlock the share first
func (r Record) HasPassword() bool {
	return r.PasswordHash != ""
}

// Document is the persisted form of the registry
type Document struct {
	Shares []Record `json:"shares"`
}

// CreateParams are the admin inputs for a new share
type CreateParams struct {
	FolderKey string
	Password  string
	Editable  bool
}

// Backend loads and stores the whole registry document. A missing document
// loads as an empty one.
type Backend interface {
	Load(ctx context.Context) (Document, error)
	Save(ctx context.Context, doc Document) error
}
