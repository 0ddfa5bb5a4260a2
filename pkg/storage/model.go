package storage

import (
	"fmt"
	"time"
)

type Bucket struct {
	Name      string
	CreatedAt time.Time
}

type Object struct {
	Key          string
	Bucket       string
	Size         int64
	ETag         string
	StorageClass string
	LastModified time.Time
}

func FormatBytes(bytes int64) string {
	if bytes < 0 {
		return "N/A"
	}

	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	sizes := []string{"KB", "MB", "GB", "TB", "PB", "EB"}
	if exp >= len(sizes) {
		return fmt.Sprintf("%d B", bytes)
	}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(div), sizes[exp])
}
