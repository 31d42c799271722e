package shares

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileBackend keeps the document in a local JSON file
type FileBackend struct {
	path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) Load(_ context.Context) (Document, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Document{Shares: []Record{}}, nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("read shares file: %w", err)
	}
	return decodeDocument(data)
}

// Save writes to a temp file in the same directory and renames it over the
// old document, so readers never see a half-written file.
func (b *FileBackend) Save(_ context.Context, doc Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create shares dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".shares-*.json")
	if err != nil {
		return fmt.Errorf("create temp shares file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write shares file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close shares file: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("replace shares file: %w", err)
	}
	return nil
}

func decodeDocument(data []byte) (Document, error) {
	var doc Document
	if len(data) == 0 {
		return Document{Shares: []Record{}}, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode shares document: %w", err)
	}
	if doc.Shares == nil {
		doc.Shares = []Record{}
	}
	return doc, nil
}

func encodeDocument(doc Document) ([]byte, error) {
	if doc.Shares == nil {
		doc.Shares = []Record{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode shares document: %w", err)
	}
	return data, nil
}
