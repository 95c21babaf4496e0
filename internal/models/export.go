// internal/models/export.go
package models

import (
	"fmt"
	"time"
)

// ExportFormat selects the shape of an exported book
type ExportFormat string

const (
	ExportMarkdown ExportFormat = "markdown"
	ExportJSON     ExportFormat = "json"
	ExportZip      ExportFormat = "zip"
)

func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(s); f {
	case ExportMarkdown, ExportJSON, ExportZip:
		return f, nil
	case "md":
		return ExportMarkdown, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ExportResult is a rendered export ready to be downloaded
type ExportResult struct {
	Title       string       `json:"title"`
	Format      ExportFormat `json:"format"`
	FileName    string       `json:"file_name"`
	ContentType string       `json:"content_type"`
	Content     []byte       `json:"-"`
	GeneratedAt time.Time    `json:"generated_at"`
	Stats       ExportStats  `json:"stats"`
}

// ExportStats summarises what an export contains
type ExportStats struct {
	TotalChapters     int `json:"total_chapters"`
	CompletedChapters int `json:"completed_chapters"`
	Images            int `json:"images"`
	Words             int `json:"words"`
}

// ExportSummary is the localized overview shown before downloading
type ExportSummary struct {
	Title   string      `json:"title"`
	Message string      `json:"message"`
	Stats   ExportStats `json:"stats"`
}
