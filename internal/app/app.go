// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Corphon/EbookGen/internal/api"
	"github.com/Corphon/EbookGen/internal/config"
	"github.com/Corphon/EbookGen/internal/llm"
	"github.com/Corphon/EbookGen/internal/models"
	"github.com/Corphon/EbookGen/internal/services"
	"github.com/Corphon/EbookGen/internal/storage"
	"github.com/Corphon/EbookGen/internal/utils"

	// providers register themselves with the llm package
	_ "github.com/Corphon/EbookGen/internal/llm/providers/google"
	_ "github.com/Corphon/EbookGen/internal/llm/providers/openai"
)

// Version is reported by the health endpoint
var Version = "dev"

const shutdownTimeout = 30 * time.Second

// Server is the part of http.Server the app drives
type Server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// App owns every long-lived component of the process
type App struct {
	config *config.Config
	logger *utils.Logger

	store        storage.SlotStore
	writeBehind  *storage.WriteBehind
	metrics      *utils.AppMetrics
	session      *services.Session
	orchestrator *services.Orchestrator
	export       *services.ExportService
	hub          *api.ChangeHub

	router   http.Handler
	server   Server
	stopChan chan os.Signal

	stopMetrics context.CancelFunc
}

// New wires the application from cfg. Nothing is listening yet.
func New(cfg *config.Config) (*App, error) {
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	a := &App{
		config:   cfg,
		logger:   utils.GetLogger(),
		metrics:  utils.NewAppMetrics(nil),
		stopChan: make(chan os.Signal, 1),
	}
	if err := a.initLogger(); err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.StoreBackend, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	a.store = store
	a.writeBehind = storage.NewWriteBehind(store, a.metrics)

	sealer := utils.NewSealer(cfg.CredentialSecret)
	restoreCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	restored := services.Restore(restoreCtx, a.writeBehind, sealer)
	cancel()

	lang, err := models.ParseLanguage(cfg.DefaultLanguage)
	if err != nil {
		lang = models.LanguagePortuguese
	}

	a.hub = api.NewChangeHub()
	a.session = services.NewSession(restored, services.SessionOptions{
		Sink:              services.NewDurableSync(a.writeBehind, sealer, a.metrics),
		AmbientCredential: cfg.AmbientAPIKey,
		Language:          lang,
		Metrics:           a.metrics,
		Notifier:          a.hub,
	})

	client, err := llm.NewClient(llm.ClientConfig{
		Provider: cfg.LLMProvider,
		BaseURL:  cfg.LLMBaseURL,
		Models: llm.ModelSet{
			Outline: cfg.Models.Outline,
			Chapter: cfg.Models.Chapter,
			Image:   cfg.Models.Image,
			Suggest: cfg.Models.Suggest,
		},
	})
	if err != nil {
		a.cleanup()
		return nil, fmt.Errorf("llm provider %q: %w", cfg.LLMProvider, err)
	}
	a.orchestrator = services.NewOrchestrator(a.session, client, a.metrics, cfg.Timeout())
	a.export = services.NewExportService(a.session)

	a.router = api.NewRouter(api.RouterOptions{
		Session:      a.session,
		Orchestrator: a.orchestrator,
		Export:       a.export,
		Metrics:      a.metrics,
		Hub:          a.hub,
		Info: api.HealthInfo{
			Version:      Version,
			StoreBackend: cfg.StoreBackend,
			Provider:     cfg.LLMProvider,
			StartedAt:    time.Now(),
		},
		StaticDir:          cfg.StaticDir,
		CORSOrigins:        cfg.CORSOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		DebugMode:          cfg.DebugMode,
	})
	a.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.Info("application initialized", map[string]interface{}{
		"store_backend": cfg.StoreBackend,
		"provider":      cfg.LLMProvider,
		"view":          string(a.session.View.Current()),
		"chapters":      a.session.Project.ChapterCount(),
		"credential":    string(a.session.Credentials.Status().Source),
	})
	return a, nil
}

func (a *App) initLogger() error {
	if a.config.DebugMode {
		a.logger.SetLogLevel(utils.DEBUG)
	}
	if a.config.LogDir != "" {
		logFile := filepath.Join(a.config.LogDir, fmt.Sprintf("ebookgen_%s.log", time.Now().Format("2006-01-02")))
		if err := a.logger.AttachFile(logFile); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
	}
	if a.config.LogJournal {
		if err := a.logger.EnableJournal(); err != nil {
			a.logger.Warn("systemd journal unavailable", map[string]interface{}{"error": err})
		}
	}
	return nil
}

// Router exposes the HTTP handler
func (a *App) Router() http.Handler {
	return a.router
}

// GetConfig returns the configuration the app was built from
func (a *App) GetConfig() *config.Config {
	return a.config
}

// Run serves until SIGINT/SIGTERM or ctx ends, then shuts down gracefully
func (a *App) Run(ctx context.Context) error {
	signal.Notify(a.stopChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(a.stopChan)

	metricsCtx, cancel := context.WithCancel(context.Background())
	a.stopMetrics = cancel
	a.metrics.StartMetricsCollection(metricsCtx, time.Minute)

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", map[string]interface{}{"port": a.config.Port})
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case sig := <-a.stopChan:
		a.logger.Info("shutdown signal received", map[string]interface{}{"signal": sig.String()})
	case <-ctx.Done():
		a.logger.Info("context ended, shutting down", nil)
	case err := <-serverErr:
		runErr = fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown failed", map[string]interface{}{"error": err})
	}
	a.shutdown(shutdownCtx)
	return runErr
}

// shutdown lets running generations merge, flushes pending writes and
// releases resources
func (a *App) shutdown(ctx context.Context) {
	if a.orchestrator != nil {
		if err := a.orchestrator.Wait(ctx); err != nil {
			a.logger.Warn("generations still running at shutdown", map[string]interface{}{"error": err})
		}
	}
	a.cleanupContext(ctx)
}

func (a *App) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.cleanupContext(ctx)
}

func (a *App) cleanupContext(ctx context.Context) {
	if a.stopMetrics != nil {
		a.stopMetrics()
	}
	if a.writeBehind != nil {
		if err := a.writeBehind.Close(ctx); err != nil {
			a.logger.Warn("pending writes not flushed", map[string]interface{}{"error": err})
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("store close failed", map[string]interface{}{"error": err})
		}
	}
	if a.hub != nil {
		a.hub.Stop()
	}
	a.logger.Info("application stopped", nil)
	a.logger.Close()
}
