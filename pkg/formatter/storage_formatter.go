package formatter

import (
	"fmt"
	"sort"
	"strings"

	"s3mirror/pkg/storage"
)

type StorageFormatter struct{}

func NewStorageFormatter() *StorageFormatter {
	return &StorageFormatter{}
}

func (f *StorageFormatter) FormatBucketList(buckets []storage.Bucket) string {
	table := NewTable([]string{"BUCKET NAME", "CREATED"})

	for _, bucket := range buckets {
		created := "-"
		if !bucket.CreatedAt.IsZero() {
			created = bucket.CreatedAt.Format("2006-01-02 15:04:05")
		}
		table.AddRow([]string{bucket.Name, created})
	}

	return table.String()
}

func (f *StorageFormatter) FormatObjectList(objects []storage.Object) string {
	table := NewTable([]string{"KEY", "SIZE", "LAST MODIFIED"})

	for _, obj := range objects {
		modified := "-"
		if !obj.LastModified.IsZero() {
			modified = obj.LastModified.Format("2006-01-02 15:04:05")
		}
		table.AddRow([]string{obj.Key, storage.FormatBytes(obj.Size), modified})
	}

	return table.String()
}

// FormatMetadata renders object metadata as a two-column table with keys
// sorted for stable output.
func (f *StorageFormatter) FormatMetadata(bucket, key string, metadata map[string]string) string {
	var sb strings.Builder

	sb.WriteString(FormatSectionTitle(fmt.Sprintf("Metadata for %s/%s", bucket, key)))
	sb.WriteString("\n")

	if len(metadata) == 0 {
		sb.WriteString("(no metadata)")
		return sb.String()
	}

	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := NewTable([]string{"KEY", "VALUE"})
	for _, k := range keys {
		table.AddRow([]string{k, metadata[k]})
	}
	sb.WriteString(table.String())

	return sb.String()
}
