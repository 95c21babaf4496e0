// internal/services/export_service.go
package services

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/Corphon/EbookGen/internal/errors"
	"github.com/Corphon/EbookGen/internal/i18n"
	"github.com/Corphon/EbookGen/internal/models"
)

// ExportService renders the current project for download
type ExportService struct {
	session *Session
	now     func() time.Time
}

func NewExportService(session *Session) *ExportService {
	return &ExportService{session: session, now: time.Now}
}

// Export renders the project in format
func (s *ExportService) Export(format models.ExportFormat) (*models.ExportResult, error) {
	project := s.session.Project.Snapshot()
	lang := s.session.Language()
	title := i18n.T(lang, i18n.BookTitle, project.Niche)

	result := &models.ExportResult{
		Title:       title,
		Format:      format,
		GeneratedAt: s.now(),
		Stats:       exportStats(project),
	}
	base := slugify(project.BusinessName)
	if base == "" {
		base = "ebook"
	}

	switch format {
	case models.ExportMarkdown:
		result.Content = []byte(formatAsMarkdown(title, project))
		result.FileName = base + ".md"
		result.ContentType = "text/markdown; charset=utf-8"
	case models.ExportJSON:
		data, err := json.MarshalIndent(project, "", "  ")
		if err != nil {
			return nil, apperrors.NewProcessingError("failed to encode project", err)
		}
		result.Content = data
		result.FileName = base + ".json"
		result.ContentType = "application/json"
	case models.ExportZip:
		data, err := formatAsZip(title, project, result.GeneratedAt)
		if err != nil {
			return nil, apperrors.NewProcessingError("failed to build package", err)
		}
		result.Content = data
		result.FileName = base + ".zip"
		result.ContentType = "application/zip"
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported export format: %s", format), nil)
	}
	return result, nil
}

// Summary returns the localized "contains N chapters and M assets" overview
func (s *ExportService) Summary() models.ExportSummary {
	project := s.session.Project.Snapshot()
	lang := s.session.Language()
	stats := exportStats(project)
	return models.ExportSummary{
		Title:   i18n.T(lang, i18n.BookTitle, project.Niche),
		Message: i18n.T(lang, i18n.ExportSummary, project.Niche, stats.CompletedChapters, stats.Images),
		Stats:   stats,
	}
}

// AssetFileName is the download name of an image
func AssetFileName(img models.GeneratedImage, mimeType string) string {
	return fmt.Sprintf("ebook-asset-%s.%s", img.ID, models.ExtensionForMime(mimeType))
}

func exportStats(p models.Project) models.ExportStats {
	stats := models.ExportStats{
		TotalChapters:     len(p.Chapters),
		CompletedChapters: p.CompletedChapters(),
		Images:            len(p.Images),
	}
	for _, ch := range p.Chapters {
		stats.Words += len(strings.Fields(ch.ContentText()))
	}
	return stats
}

func formatAsMarkdown(title string, p models.Project) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	if p.BusinessName != "" {
		fmt.Fprintf(&b, "_%s_\n\n", p.BusinessName)
	}
	if p.TargetAudience != "" {
		fmt.Fprintf(&b, "> %s\n\n", p.TargetAudience)
	}

	for i, ch := range p.Chapters {
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, ch.Title)
		if ch.HasContent() {
			b.WriteString(strings.TrimSpace(ch.ContentText()))
			b.WriteString("\n\n")
		} else if ch.Description != "" {
			fmt.Fprintf(&b, "_%s_\n\n", ch.Description)
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func formatAsZip(title string, p models.Project, modified time.Time) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	add := func(name string, data []byte) error {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}

	if err := add("book.md", []byte(formatAsMarkdown(title, p))); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := add("project.json", data); err != nil {
		return nil, err
	}

	for _, img := range p.Images {
		mimeType, raw, err := img.Decode()
		if err != nil {
			// skip entries that are not inline payloads
			continue
		}
		if err := add("images/"+AssetFileName(img, mimeType), raw); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
