// internal/services/project_state.go
package services

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Corphon/EbookGen/internal/errors"
	"github.com/Corphon/EbookGen/internal/models"
	"github.com/Corphon/EbookGen/internal/utils"
)

// ProjectState owns the authoring aggregate. Every effective mutation is
// mirrored to the sink exactly once; reads return deep copies.
type ProjectState struct {
	mu      sync.RWMutex
	project models.Project

	// epochs counts user edits per chapter id; a generation result captured
	// under an older epoch is discarded
	epochs map[string]uint64

	// generation counts resets; outline and image results captured under an
	// older generation are discarded
	generation uint64

	sink    StateSink
	metrics *utils.AppMetrics
	logger  *utils.Logger

	now   func() time.Time
	newID func() string
}

// NewProjectState seeds the state with a restored project
func NewProjectState(initial models.Project, sink StateSink, metrics *utils.AppMetrics) *ProjectState {
	if metrics == nil {
		metrics = utils.NewAppMetrics(nil)
	}
	p := initial.Clone()
	p.Normalize()
	return &ProjectState{
		project: p,
		epochs:  make(map[string]uint64),
		sink:    sink,
		metrics: metrics,
		logger:  utils.GetLogger(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Snapshot returns a copy of the aggregate
func (ps *ProjectState) Snapshot() models.Project {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.project.Clone()
}

func (ps *ProjectState) IsEmpty() bool {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.project.IsEmpty()
}

func (ps *ProjectState) ChapterCount() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.project.Chapters)
}

// Chapter looks a chapter up by id
func (ps *ProjectState) Chapter(id string) (models.Chapter, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	i := ps.project.ChapterIndex(id)
	if i < 0 {
		return models.Chapter{}, false
	}
	return cloneChapter(ps.project.Chapters[i]), true
}

// ChapterAt returns the chapter at position i; out of range is not an error
func (ps *ProjectState) ChapterAt(i int) (models.Chapter, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	if i < 0 || i >= len(ps.project.Chapters) {
		return models.Chapter{}, false
	}
	return cloneChapter(ps.project.Chapters[i]), true
}

// Generation identifies the current project lifetime
func (ps *ProjectState) Generation() uint64 {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.generation
}

// SetIdentity updates the free-form business fields
func (ps *ProjectState) SetIdentity(businessName, niche, targetAudience string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	businessName = strings.TrimSpace(businessName)
	niche = strings.TrimSpace(niche)
	targetAudience = strings.TrimSpace(targetAudience)
	p := &ps.project
	if p.BusinessName == businessName && p.Niche == niche && p.TargetAudience == targetAudience {
		return
	}
	p.BusinessName, p.Niche, p.TargetAudience = businessName, niche, targetAudience
	ps.syncLocked()
}

// ReplaceChapters installs a fresh outline. Ids are newly generated and never
// collide with ids of the chapters being replaced.
func (ps *ProjectState) ReplaceChapters(items []models.OutlineItem) []models.Chapter {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	old := make(map[string]struct{}, len(ps.project.Chapters))
	for _, ch := range ps.project.Chapters {
		old[ch.ID] = struct{}{}
	}

	chapters := make([]models.Chapter, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		id := ps.newID()
		for {
			_, stale := old[id]
			_, dup := seen[id]
			if !stale && !dup {
				break
			}
			id = ps.newID()
		}
		seen[id] = struct{}{}
		chapters = append(chapters, models.Chapter{
			ID:          id,
			Title:       item.Title,
			Description: item.Description,
		})
	}

	ps.project.Chapters = chapters
	ps.epochs = make(map[string]uint64)
	ps.syncLocked()

	out := make([]models.Chapter, len(chapters))
	copy(out, chapters)
	return out
}

// SetChapterContent records a user edit. Applying the same text twice leaves
// the aggregate unchanged and writes nothing the second time, but it still
// counts as an edit: any generation outstanding for the chapter is discarded
// when it completes.
func (ps *ProjectState) SetChapterContent(id, text string) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	i := ps.project.ChapterIndex(id)
	if i < 0 {
		return false
	}
	ps.epochs[id]++
	ch := &ps.project.Chapters[i]
	if ch.Content != nil && *ch.Content == text {
		return true
	}
	ch.Content = &text
	ps.syncLocked()
	return true
}

// UpdateChapterOutline edits the title and description of a chapter. Empty
// values keep the current text.
func (ps *ProjectState) UpdateChapterOutline(id, title, description string) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	i := ps.project.ChapterIndex(id)
	if i < 0 {
		return false
	}
	ch := &ps.project.Chapters[i]
	title, description = strings.TrimSpace(title), strings.TrimSpace(description)
	if title == "" {
		title = ch.Title
	}
	if description == "" {
		description = ch.Description
	}
	if ch.Title == title && ch.Description == description {
		return true
	}
	ch.Title, ch.Description = title, description
	ps.syncLocked()
	return true
}

// SetChapterGenerating flips the busy flag
func (ps *ProjectState) SetChapterGenerating(id string, generating bool) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	i := ps.project.ChapterIndex(id)
	if i < 0 {
		return false
	}
	ps.setGeneratingLocked(i, generating)
	return true
}

// setGeneratingLocked writes only when the flag actually changes
func (ps *ProjectState) setGeneratingLocked(i int, generating bool) {
	ch := &ps.project.Chapters[i]
	if ch.IsGenerating == generating {
		return
	}
	ch.IsGenerating = generating
	ps.syncLocked()
}

// BeginChapterGeneration marks the chapter busy and returns the epoch the
// result must match
func (ps *ProjectState) BeginChapterGeneration(id string) (uint64, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	i := ps.project.ChapterIndex(id)
	if i < 0 {
		return 0, apperrors.NewNotFoundError("chapter not found: "+id, nil)
	}
	ch := &ps.project.Chapters[i]
	if ch.IsGenerating {
		return 0, apperrors.NewConflictError("chapter generation already in progress: "+id, nil)
	}
	ps.setGeneratingLocked(i, true)
	return ps.epochs[id], nil
}

// FinishChapterGeneration clears the busy flag and, when content is given and
// no edit happened since the request began, stores it. It reports whether the
// content was applied.
func (ps *ProjectState) FinishChapterGeneration(id string, epoch uint64, content *string) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	i := ps.project.ChapterIndex(id)
	if i < 0 {
		// chapters were replaced while the request was outstanding
		if content != nil {
			ps.metrics.RecordStaleResult()
			ps.logger.Info("discarding generation result for removed chapter", map[string]interface{}{
				"chapter_id": id,
			})
		}
		return false
	}

	if content == nil {
		ps.setGeneratingLocked(i, false)
		return false
	}

	ch := &ps.project.Chapters[i]
	ch.IsGenerating = false
	applied := ps.epochs[id] == epoch
	if applied {
		text := *content
		ch.Content = &text
	} else {
		ps.metrics.RecordStaleResult()
		ps.logger.Info("discarding stale chapter generation result", map[string]interface{}{
			"chapter_id": id,
			"epoch":      epoch,
			"current":    ps.epochs[id],
		})
	}
	ps.syncLocked()
	return applied
}

// PrependImage stores a generated image at the head of the list. Timestamps
// are strictly increasing even when the clock is coarse or goes backwards.
func (ps *ProjectState) PrependImage(url, prompt string) models.GeneratedImage {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	created := ps.now().UnixMilli()
	for _, img := range ps.project.Images {
		if img.CreatedAt >= created {
			created = img.CreatedAt + 1
		}
	}

	id := ps.newID()
	for {
		if _, taken := ps.project.ImageByID(id); !taken {
			break
		}
		id = ps.newID()
	}

	img := models.GeneratedImage{
		ID:        id,
		URL:       url,
		Prompt:    prompt,
		CreatedAt: created,
	}
	images := make([]models.GeneratedImage, 0, len(ps.project.Images)+1)
	images = append(images, img)
	images = append(images, ps.project.Images...)
	ps.project.Images = images
	ps.syncLocked()
	return img
}

// Image looks an image up by id
func (ps *ProjectState) Image(id string) (models.GeneratedImage, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.project.ImageByID(id)
}

// ResetAll returns to the empty aggregate and clears the durable project slot
func (ps *ProjectState) ResetAll() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.project = models.NewProject()
	ps.epochs = make(map[string]uint64)
	ps.generation++
	if ps.sink != nil {
		ps.sink.RemoveProject()
	}
}

func (ps *ProjectState) syncLocked() {
	if ps.sink == nil {
		return
	}
	ps.sink.SaveProject(ps.project.Clone())
}

func cloneChapter(ch models.Chapter) models.Chapter {
	if ch.Content != nil {
		text := *ch.Content
		ch.Content = &text
	}
	return ch
}
