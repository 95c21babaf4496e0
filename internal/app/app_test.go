// internal/app/app_test.go
package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/EbookGen/internal/config"
	"github.com/Corphon/EbookGen/internal/models"
	"github.com/Corphon/EbookGen/internal/storage"
)

// mockServer stands in for http.Server
type mockServer struct {
	ShutdownCalled bool
	started        chan struct{}
	stop           chan struct{}
}

func newMockServer() *mockServer {
	return &mockServer{started: make(chan struct{}), stop: make(chan struct{})}
}

func (m *mockServer) ListenAndServe() error {
	close(m.started)
	<-m.stop
	return http.ErrServerClosed
}

func (m *mockServer) Shutdown(ctx context.Context) error {
	m.ShutdownCalled = true
	close(m.stop)
	return nil
}

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.LogDir = filepath.Join(dir, "logs")
	cfg.StaticDir = filepath.Join(dir, "static")
	cfg.StoreBackend = backend
	cfg.DefaultLanguage = "en"
	return cfg
}

func TestNewWiresComponents(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)

	a, err := New(cfg)
	require.NoError(t, err)
	defer a.cleanup()

	assert.Equal(t, cfg, a.GetConfig())
	assert.NotNil(t, a.Router())
	assert.Equal(t, models.ViewOnboarding, a.session.View.Current())
	assert.Equal(t, models.LanguageEnglish, a.session.Language())

	files, err := os.ReadDir(cfg.LogDir)
	require.NoError(t, err)
	assert.NotEmpty(t, files, "log file should be created")
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	cfg.LLMProvider = "unknown"

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestRouterServesState(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	a, err := New(cfg)
	require.NoError(t, err)
	defer a.cleanup()

	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ONBOARDING"`)
}

func TestStaticFallback(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	require.NoError(t, os.MkdirAll(cfg.StaticDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.StaticDir, "index.html"), []byte("<html>ebook</html>"), 0644))

	a, err := New(cfg)
	require.NoError(t, err)
	defer a.cleanup()

	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/outline", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ebook")

	w = httptest.NewRecorder()
	a.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/nothing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunStopsOnSignal(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	a, err := New(cfg)
	require.NoError(t, err)

	srv := newMockServer()
	a.server = srv

	go func() {
		<-srv.started
		a.stopChan <- syscall.SIGTERM
	}()

	require.NoError(t, a.Run(context.Background()))
	assert.True(t, srv.ShutdownCalled)
}

func TestRunStopsOnContext(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	a, err := New(cfg)
	require.NoError(t, err)

	srv := newMockServer()
	a.server = srv
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-srv.started
		cancel()
	}()

	require.NoError(t, a.Run(ctx))
	assert.True(t, srv.ShutdownCalled)
}

func TestStateSurvivesRestart(t *testing.T) {
	cfg := testConfig(t, config.BackendFile)
	cfg.CredentialSecret = "restart-secret"

	a, err := New(cfg)
	require.NoError(t, err)
	a.session.Project.SetIdentity("Suds & Co", "Handmade Soap", "Etsy sellers")
	a.session.Project.ReplaceChapters([]models.OutlineItem{{Title: "Why AI Matters", Description: "The opportunity"}})
	a.session.View.OutlineReady()
	a.session.Credentials.SetUserCredential("user-key")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.shutdown(ctx)

	// the credential slot is sealed at rest
	store, err := storage.NewFileStorage(cfg.DataDir)
	require.NoError(t, err)
	raw, ok, err := store.Load(ctx, storage.SlotCredential)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(string(raw), "enc:v1:"))

	b, err := New(cfg)
	require.NoError(t, err)
	defer b.cleanup()

	assert.Equal(t, models.ViewOutline, b.session.View.Current())
	project := b.session.Project.Snapshot()
	assert.Equal(t, "Suds & Co", project.BusinessName)
	require.Len(t, project.Chapters, 1)
	assert.Equal(t, "Why AI Matters", project.Chapters[0].Title)
	assert.Equal(t, "user-key", b.session.Credentials.Resolve())
}
