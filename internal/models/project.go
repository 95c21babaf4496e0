// internal/models/project.go
package models

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Chapter is one outline entry and its optional long-form text
type Chapter struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Content      *string `json:"content,omitempty"` // nil until first successful generation
	IsGenerating bool    `json:"isGenerating"`
}

// HasContent reports whether the chapter has any text
func (c Chapter) HasContent() bool {
	return c.Content != nil && *c.Content != ""
}

// ContentText returns the content or "" when absent
func (c Chapter) ContentText() string {
	if c.Content == nil {
		return ""
	}
	return *c.Content
}

// GeneratedImage holds an inline data URL, never a remote reference
type GeneratedImage struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Prompt    string `json:"prompt"`
	CreatedAt int64  `json:"createdAt"` // ms since epoch
}

// Decode splits the data URL into mime type and bytes
func (img GeneratedImage) Decode() (string, []byte, error) {
	return DecodeDataURL(img.URL)
}

// Project is the authoring aggregate
type Project struct {
	BusinessName   string           `json:"businessName"`
	Niche          string           `json:"niche"`
	TargetAudience string           `json:"targetAudience"`
	Chapters       []Chapter        `json:"chapters"`
	Images         []GeneratedImage `json:"images"` // newest first
}

// NewProject returns the empty aggregate
func NewProject() Project {
	return Project{
		Chapters: []Chapter{},
		Images:   []GeneratedImage{},
	}
}

// IsEmpty reports whether there are no chapters
func (p Project) IsEmpty() bool {
	return len(p.Chapters) == 0
}

// Clone returns a deep copy
func (p Project) Clone() Project {
	out := p
	out.Chapters = make([]Chapter, len(p.Chapters))
	for i, ch := range p.Chapters {
		if ch.Content != nil {
			text := *ch.Content
			ch.Content = &text
		}
		out.Chapters[i] = ch
	}
	out.Images = make([]GeneratedImage, len(p.Images))
	copy(out.Images, p.Images)
	return out
}

// ChapterIndex returns the position of the chapter with id, or -1
func (p Project) ChapterIndex(id string) int {
	for i := range p.Chapters {
		if p.Chapters[i].ID == id {
			return i
		}
	}
	return -1
}

// ImageByID returns the image with id
func (p Project) ImageByID(id string) (GeneratedImage, bool) {
	for _, img := range p.Images {
		if img.ID == id {
			return img, true
		}
	}
	return GeneratedImage{}, false
}

// CompletedChapters counts chapters that have content
func (p Project) CompletedChapters() int {
	n := 0
	for _, ch := range p.Chapters {
		if ch.HasContent() {
			n++
		}
	}
	return n
}

// Normalize replaces nil collections so the aggregate always serializes as
// arrays and restored projects never carry a stale busy flag.
func (p *Project) Normalize() {
	if p.Chapters == nil {
		p.Chapters = []Chapter{}
	}
	if p.Images == nil {
		p.Images = []GeneratedImage{}
	}
	for i := range p.Chapters {
		p.Chapters[i].IsGenerating = false
	}
}

// OutlineItem is one decoded entry of an outline response
type OutlineItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// EncodeDataURL builds a data URL from a mime type and raw bytes
func EncodeDataURL(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// DecodeDataURL parses a base64 data URL
func DecodeDataURL(url string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(url, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URL")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("data URL has no payload")
	}
	mimeType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("data URL is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URL: %w", err)
	}
	return mimeType, data, nil
}

// ExtensionForMime maps an image mime type to a file extension
func ExtensionForMime(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "png"
	}
}
