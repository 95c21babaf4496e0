// internal/services/helpers_test.go
package services

import (
	"context"
	"sync"
	"testing"

	"github.com/Corphon/EbookGen/internal/models"
	"github.com/Corphon/EbookGen/internal/utils"
)

// recordingSink keeps every sink call in order
type recordingSink struct {
	mu          sync.Mutex
	projects    []models.Project
	removes     int
	views       []models.ViewState
	creds       []string
	credRemoves int
}

func (r *recordingSink) SaveProject(p models.Project) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects = append(r.projects, p)
}

func (r *recordingSink) RemoveProject() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removes++
}

func (r *recordingSink) SaveView(v models.ViewState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

func (r *recordingSink) SaveCredential(value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creds = append(r.creds, value)
}

func (r *recordingSink) RemoveCredential() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.credRemoves++
}

func (r *recordingSink) projectWrites() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.projects)
}

func (r *recordingSink) lastProject() models.Project {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.projects) == 0 {
		return models.Project{}
	}
	return r.projects[len(r.projects)-1]
}

// fakeGenerator answers from function fields and counts calls
type fakeGenerator struct {
	mu    sync.Mutex
	calls map[string]int

	outline func(ctx context.Context, niche, businessName string, lang models.Language) ([]models.OutlineItem, error)
	chapter func(ctx context.Context, title string) (string, error)
	image   func(ctx context.Context, prompt string) (string, error)
	suggest func(ctx context.Context, label string) ([]string, error)
}

func (f *fakeGenerator) count(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[op]++
}

func (f *fakeGenerator) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeGenerator) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeGenerator) GenerateOutline(ctx context.Context, niche, businessName string, lang models.Language, _ string) ([]models.OutlineItem, error) {
	f.count("outline")
	return f.outline(ctx, niche, businessName, lang)
}

func (f *fakeGenerator) GenerateChapterContent(ctx context.Context, title, _, _, _ string, _ models.Language, _ string) (string, error) {
	f.count("chapter")
	return f.chapter(ctx, title)
}

func (f *fakeGenerator) GenerateImage(ctx context.Context, prompt, _ string) (string, error) {
	f.count("image")
	return f.image(ctx, prompt)
}

func (f *fakeGenerator) SuggestImagePrompts(ctx context.Context, _, label string, _ models.Language, _ string) ([]string, error) {
	f.count("suggest")
	return f.suggest(ctx, label)
}

func newTestSession(t *testing.T, sink StateSink, ambient string) *Session {
	t.Helper()
	return NewSession(RestoredState{
		Project: models.NewProject(),
		View:    models.ViewOnboarding,
	}, SessionOptions{
		Sink:              sink,
		AmbientCredential: ambient,
		Language:          models.LanguageEnglish,
		Metrics:           utils.NewAppMetrics(utils.NewMetricsCollector()),
	})
}

func soapOutline() []models.OutlineItem {
	return []models.OutlineItem{
		{Title: "Why AI Matters", Description: "The opportunity"},
		{Title: "Listing Copy", Description: "Writing product pages"},
		{Title: "Social Media", Description: "Posting at scale"},
	}
}
