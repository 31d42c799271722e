// Package models contains data structures used across handlers
package models

import "time"

// FolderEntry is a sub-folder in the admin file browser
type FolderEntry struct {
	Name   string
	Prefix string
}

// FileEntry is a stored photo with display metadata
type FileEntry struct {
	Key          string
	Name         string
	Size         int64
	SizeDisplay  string
	LastModified time.Time
	// URL is a presigned preview link, empty when signing failed
	URL     string
	IsImage bool
}

// Breadcrumb for navigation
type Breadcrumb struct {
	Name   string
	Prefix string
}

// ShareRow is a share link as listed on the admin shares page
type ShareRow struct {
	ID          string
	FolderKey   string
	URL         string
	HasPassword bool
	Editable    bool
	CreatedAt   time.Time
}

// GalleryItem is a photo on a public share page
type GalleryItem struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
	ThumbURL string `json:"-"`
}

// ShareListing is the JSON document served for a share
type ShareListing struct {
	ID        string        `json:"id"`
	FolderKey string        `json:"folderKey"`
	Editable  bool          `json:"editable"`
	Folders   []string      `json:"folders"`
	Items     []GalleryItem `json:"items"`
}
