// Package utils provides shared utility functions
package utils

import "fmt"

// FormatBytes converts bytes to human-readable format (e.g., "1.5 GB")
func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatPhotoSize renders an object size the way the file browser lists it:
// whole kilobytes (at least 1) below 100 KB, megabytes with one decimal above.
func FormatPhotoSize(size int64) string {
	if size < 0 {
		size = 0
	}
	if size < 100*1024 {
		kb := max(1, (size+512)/1024)
		return fmt.Sprintf("%d KB", kb)
	}
	return fmt.Sprintf("%.1f MB", float64(size)/(1024*1024))
}
