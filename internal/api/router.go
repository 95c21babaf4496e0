// internal/api/router.go
package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/EbookGen/internal/services"
	"github.com/Corphon/EbookGen/internal/utils"
)

// RouterOptions carries everything the HTTP surface is built from
type RouterOptions struct {
	Session      *services.Session
	Orchestrator *services.Orchestrator
	Export       *services.ExportService
	Metrics      *utils.AppMetrics
	Hub          *ChangeHub
	Info         HealthInfo

	StaticDir          string
	CORSOrigins        []string
	RateLimitPerMinute int
	DebugMode          bool
}

// NewHandler assembles a handler from the router options
func NewHandler(opts RouterOptions) *Handler {
	metrics := opts.Metrics
	if metrics == nil {
		metrics = utils.NewAppMetrics(nil)
	}
	return &Handler{
		Session:      opts.Session,
		Orchestrator: opts.Orchestrator,
		Export:       opts.Export,
		Metrics:      metrics,
		Hub:          opts.Hub,
		Response:     NewResponseHelper(),
		Info:         opts.Info,
	}
}

// NewRouter builds the gin engine
func NewRouter(opts RouterOptions) *gin.Engine {
	if !opts.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := NewHandler(opts)
	limiter := NewRateLimiter(opts.RateLimitPerMinute)
	limit := limiter.Middleware(handler.Response)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(corsMiddleware(opts.CORSOrigins))
	r.Use(metricsMiddleware(handler.Metrics))

	api := r.Group("/api")
	{
		api.GET("/state", handler.GetState)
		api.GET("/health", handler.Health)
		api.GET("/metrics", handler.GetMetrics)
		if opts.Hub != nil {
			api.GET("/ws", opts.Hub.ServeWS)
		}

		projectGroup := api.Group("/project")
		{
			projectGroup.PUT("/identity", handler.UpdateIdentity)
			projectGroup.POST("/continue", handler.ContinueProject)
			projectGroup.POST("/reset", handler.ResetProject)
		}

		api.POST("/outline", limit, handler.GenerateOutline)

		viewGroup := api.Group("/view")
		{
			viewGroup.POST("/navigate", handler.Navigate)
			viewGroup.POST("/select-chapter", handler.SelectChapter)
			viewGroup.POST("/start-writing", handler.StartWriting)
		}
		api.GET("/editor", handler.GetEditor)

		chaptersGroup := api.Group("/chapters/:id")
		{
			chaptersGroup.PUT("", handler.UpdateChapterOutline)
			chaptersGroup.PUT("/content", handler.UpdateChapterContent)
			chaptersGroup.POST("/generate", limit, handler.GenerateChapter)
		}

		imagesGroup := api.Group("/images")
		{
			imagesGroup.GET("", handler.ListImages)
			imagesGroup.POST("", limit, handler.GenerateImage)
			imagesGroup.PUT("/prompt", handler.SetImagePrompt)
			imagesGroup.PUT("/tab", handler.SetImageTab)
			imagesGroup.POST("/suggestions", limit, handler.SuggestPrompts)
			imagesGroup.GET("/:id/download", handler.DownloadImage)
		}

		settingsGroup := api.Group("/settings")
		{
			settingsGroup.PUT("/credential", handler.SetCredential)
			settingsGroup.PUT("/language", handler.SetLanguage)
		}

		api.GET("/export", handler.ExportProject)
		api.GET("/export/summary", handler.ExportSummary)
	}

	mountStatic(r, opts.StaticDir)
	return r
}

// mountStatic serves the UI bundle when one is present; unknown non-API
// paths fall back to index.html
func mountStatic(r *gin.Engine, dir string) {
	if dir == "" {
		return
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return
	}
	index := filepath.Join(dir, "index.html")
	fileServer := http.FileServer(http.Dir(dir))

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			NewResponseHelper().NotFound(c, ErrorNotFound, "route not found")
			return
		}
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Status(http.StatusMethodNotAllowed)
			return
		}
		clean := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+c.Request.URL.Path)))
		if info, err := os.Stat(clean); err == nil && !info.IsDir() {
			fileServer.ServeHTTP(c.Writer, c.Request)
			return
		}
		c.File(index)
	})
}
