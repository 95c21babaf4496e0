// internal/services/session.go
package services

import (
	"strings"
	"sync"

	"github.com/Corphon/EbookGen/internal/i18n"
	"github.com/Corphon/EbookGen/internal/models"
	"github.com/Corphon/EbookGen/internal/utils"
)

// Change topics pushed to connected UIs
const (
	TopicProject    = "project"
	TopicView       = "view"
	TopicImages     = "images"
	TopicSettings   = "settings"
	TopicGeneration = "generation"
	TopicReset      = "reset"
)

// ChangeNotifier is told about every state change so open UIs can refresh
type ChangeNotifier interface {
	NotifyChange(topic string, data map[string]interface{})
}

// SessionOptions configures a new Session
type SessionOptions struct {
	Sink              StateSink
	AmbientCredential string
	Language          models.Language
	Metrics           *utils.AppMetrics
	Notifier          ChangeNotifier
}

// SessionState is everything a UI needs to render
type SessionState struct {
	Project          models.Project   `json:"project"`
	View             ViewSnapshot     `json:"view"`
	Language         models.Language  `json:"language"`
	Credential       CredentialStatus `json:"credential"`
	BookTitle        string           `json:"bookTitle"`
	ImagePrompt      string           `json:"imagePrompt"`
	SuggestedPrompts []string         `json:"suggestedPrompts"`
}

// EditorPanel is the editor view content: the selected chapter, or a
// placeholder when the selection points nowhere
type EditorPanel struct {
	Selected     bool            `json:"selected"`
	ChapterIndex int             `json:"chapterIndex"`
	ChapterCount int             `json:"chapterCount"`
	Chapter      *models.Chapter `json:"chapter,omitempty"`
	Placeholder  string          `json:"placeholder,omitempty"`
}

// Session is the single explicitly owned application state
type Session struct {
	Project     *ProjectState
	View        *ViewMachine
	Credentials *CredentialService

	// resetMu orders Reset against merges of generation results
	resetMu sync.Mutex

	mu          sync.RWMutex
	language    models.Language
	imagePrompt string
	suggestions []string

	notifier ChangeNotifier
}

// NewSession builds the session from what Restore found
func NewSession(restored RestoredState, opts SessionOptions) *Session {
	lang := opts.Language
	if _, err := models.ParseLanguage(string(lang)); err != nil {
		lang = models.LanguageEnglish
	}
	view := restored.View
	if restored.Project.IsEmpty() {
		view = models.ViewOnboarding
	}
	return &Session{
		Project:     NewProjectState(restored.Project, opts.Sink, opts.Metrics),
		View:        NewViewMachine(view, opts.Sink),
		Credentials: NewCredentialService(opts.AmbientCredential, restored.Credential, opts.Sink),
		language:    lang,
		suggestions: []string{},
		notifier:    opts.Notifier,
	}
}

// SetNotifier replaces the change notifier
func (s *Session) SetNotifier(n ChangeNotifier) {
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
}

// Notify forwards a change to the notifier, if any
func (s *Session) Notify(topic string, data map[string]interface{}) {
	s.mu.RLock()
	n := s.notifier
	s.mu.RUnlock()
	if n != nil {
		n.NotifyChange(topic, data)
	}
}

func (s *Session) Language() models.Language {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.language
}

func (s *Session) SetLanguage(lang models.Language) {
	s.mu.Lock()
	s.language = lang
	s.mu.Unlock()
	s.Notify(TopicSettings, map[string]interface{}{"language": lang})
}

func (s *Session) ImagePrompt() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.imagePrompt
}

func (s *Session) SetImagePrompt(prompt string) {
	s.mu.Lock()
	s.imagePrompt = prompt
	s.mu.Unlock()
}

func (s *Session) SuggestedPrompts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.suggestions))
	copy(out, s.suggestions)
	return out
}

func (s *Session) SetSuggestedPrompts(prompts []string) {
	out := make([]string, 0, len(prompts))
	out = append(out, prompts...)
	s.mu.Lock()
	s.suggestions = out
	s.mu.Unlock()
}

// BookTitle is the localized working title derived from the niche
func (s *Session) BookTitle() string {
	return i18n.T(s.Language(), i18n.BookTitle, s.Project.Snapshot().Niche)
}

// CurrentChapterLabel names the chapter the image prompts are about, falling
// back to a generic label when no chapter is selected
func (s *Session) CurrentChapterLabel() string {
	if ch, ok := s.Project.ChapterAt(s.View.ChapterIndex()); ok && strings.TrimSpace(ch.Title) != "" {
		return ch.Title
	}
	return i18n.T(s.Language(), i18n.GeneralMarketing)
}

// State returns a full snapshot for rendering
func (s *Session) State() SessionState {
	project := s.Project.Snapshot()
	lang := s.Language()
	return SessionState{
		Project:          project,
		View:             s.View.Snapshot(),
		Language:         lang,
		Credential:       s.Credentials.Status(),
		BookTitle:        i18n.T(lang, i18n.BookTitle, project.Niche),
		ImagePrompt:      s.ImagePrompt(),
		SuggestedPrompts: s.SuggestedPrompts(),
	}
}

// EditorPanel never fails: an index past the end yields the placeholder
func (s *Session) EditorPanel() EditorPanel {
	index := s.View.ChapterIndex()
	panel := EditorPanel{
		ChapterIndex: index,
		ChapterCount: s.Project.ChapterCount(),
	}
	if ch, ok := s.Project.ChapterAt(index); ok {
		panel.Selected = true
		panel.Chapter = &ch
		return panel
	}
	panel.Placeholder = i18n.T(s.Language(), i18n.SelectChapter)
	return panel
}

// Reset wipes the project, forces Onboarding and clears transient input.
// The credential and language survive.
func (s *Session) Reset() {
	s.resetMu.Lock()
	s.Project.ResetAll()
	s.View.Reset()
	s.mu.Lock()
	s.imagePrompt = ""
	s.suggestions = []string{}
	s.mu.Unlock()
	s.resetMu.Unlock()
	s.Notify(TopicReset, nil)
}

// ApplyIfCurrent runs apply only if no Reset happened since generation was
// read from Project.Generation. It reports whether apply ran.
func (s *Session) ApplyIfCurrent(generation uint64, apply func()) bool {
	s.resetMu.Lock()
	defer s.resetMu.Unlock()
	if s.Project.Generation() != generation {
		return false
	}
	apply()
	return true
}
