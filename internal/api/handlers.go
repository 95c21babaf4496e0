// internal/api/handlers.go
package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Corphon/EbookGen/internal/errors"
	"github.com/Corphon/EbookGen/internal/i18n"
	"github.com/Corphon/EbookGen/internal/models"
	"github.com/Corphon/EbookGen/internal/services"
	"github.com/Corphon/EbookGen/internal/utils"
)

// Handler serves the authoring API over one explicitly owned session
type Handler struct {
	Session      *services.Session
	Orchestrator *services.Orchestrator
	Export       *services.ExportService
	Metrics      *utils.AppMetrics
	Hub          *ChangeHub
	Response     *ResponseHelper
	Info         HealthInfo
}

// HealthInfo is static process information reported by /health
type HealthInfo struct {
	Version      string `json:"version"`
	StoreBackend string `json:"store_backend"`
	Provider     string `json:"provider"`
	StartedAt    time.Time
}

// StateResponse is the full render snapshot plus running generations
type StateResponse struct {
	services.SessionState
	Generation services.GenerationStatus `json:"generation"`
}

type identityRequest struct {
	BusinessName   string `json:"businessName"`
	Niche          string `json:"niche"`
	TargetAudience string `json:"targetAudience"`
}

type navigateRequest struct {
	View string `json:"view" binding:"required"`
}

type selectChapterRequest struct {
	Index     *int   `json:"index"`
	ChapterID string `json:"chapterId"`
}

type chapterContentRequest struct {
	Content *string `json:"content" binding:"required"`
}

type chapterOutlineRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type tabRequest struct {
	Tab string `json:"tab" binding:"required"`
}

type credentialRequest struct {
	APIKey string `json:"apiKey"`
}

type languageRequest struct {
	Language string `json:"language" binding:"required"`
}

func (h *Handler) state() StateResponse {
	return StateResponse{
		SessionState: h.Session.State(),
		Generation:   h.Orchestrator.Status(),
	}
}

func (h *Handler) lang() models.Language {
	return h.Session.Language()
}

// GetState returns the full session snapshot
func (h *Handler) GetState(c *gin.Context) {
	h.Response.Success(c, h.state())
}

// UpdateIdentity sets the onboarding fields
func (h *Handler) UpdateIdentity(c *gin.Context) {
	var req identityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err.Error())
		return
	}
	h.Session.Project.SetIdentity(req.BusinessName, req.Niche, req.TargetAudience)
	h.Session.Notify(services.TopicProject, nil)
	h.Response.Success(c, h.state())
}

// ContinueProject resumes an existing project from onboarding
func (h *Handler) ContinueProject(c *gin.Context) {
	if err := h.View().ContinueProject(!h.Session.Project.IsEmpty()); err != nil {
		h.Response.AppError(c, h.localizeTransition(err))
		return
	}
	h.Session.Notify(services.TopicView, nil)
	h.Response.Success(c, h.state())
}

// ResetProject wipes the project and returns to onboarding
func (h *Handler) ResetProject(c *gin.Context) {
	h.Session.Reset()
	h.Response.Success(c, h.state())
}

// GenerateOutline generates a fresh outline; the body may carry the identity
func (h *Handler) GenerateOutline(c *gin.Context) {
	var identity *services.Identity
	if c.Request.ContentLength != 0 {
		var req identityRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			h.Response.BadRequest(c, "invalid request body", err.Error())
			return
		} else if err == nil {
			identity = &services.Identity{
				BusinessName:   req.BusinessName,
				Niche:          req.Niche,
				TargetAudience: req.TargetAudience,
			}
		}
	}

	chapters, err := h.Orchestrator.GenerateOutline(c.Request.Context(), identity)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, gin.H{
		"chapters": chapters,
		"state":    h.state(),
	})
}

// Navigate moves between the free-navigation views
func (h *Handler) Navigate(c *gin.Context) {
	var req navigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "view is required", err.Error())
		return
	}
	target, err := models.ParseViewState(strings.ToUpper(strings.TrimSpace(req.View)))
	if err != nil {
		h.Response.BadRequest(c, err.Error())
		return
	}
	if err := h.View().Navigate(target); err != nil {
		h.Response.AppError(c, h.localizeTransition(err))
		return
	}
	h.Session.Notify(services.TopicView, nil)
	h.Response.Success(c, h.state())
}

// SelectChapter opens the editor by index or chapter id
func (h *Handler) SelectChapter(c *gin.Context) {
	var req selectChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	index := -1
	switch {
	case req.ChapterID != "":
		index = h.Session.Project.Snapshot().ChapterIndex(req.ChapterID)
		if index < 0 {
			h.Response.NotFound(c, ErrorChapterNotFound, i18n.T(h.lang(), i18n.ChapterNotFound))
			return
		}
	case req.Index != nil:
		index = *req.Index
	default:
		h.Response.BadRequest(c, "index or chapterId is required")
		return
	}

	if err := h.View().SelectChapter(index, h.Session.Project.ChapterCount()); err != nil {
		h.Response.AppError(c, h.localizeTransition(err))
		return
	}
	h.Session.Notify(services.TopicView, nil)
	h.Response.Success(c, h.state())
}

// StartWriting opens the editor at the first chapter
func (h *Handler) StartWriting(c *gin.Context) {
	if err := h.View().StartWriting(h.Session.Project.ChapterCount()); err != nil {
		h.Response.AppError(c, h.localizeTransition(err))
		return
	}
	h.Session.Notify(services.TopicView, nil)
	h.Response.Success(c, h.state())
}

// GetEditor returns the selected chapter or the placeholder
func (h *Handler) GetEditor(c *gin.Context) {
	h.Response.Success(c, h.Session.EditorPanel())
}

// UpdateChapterContent stores a user edit
func (h *Handler) UpdateChapterContent(c *gin.Context) {
	id := c.Param("id")
	var req chapterContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "content is required", err.Error())
		return
	}
	if !h.Session.Project.SetChapterContent(id, *req.Content) {
		h.Response.NotFound(c, ErrorChapterNotFound, i18n.T(h.lang(), i18n.ChapterNotFound))
		return
	}
	h.Session.Notify(services.TopicProject, map[string]interface{}{"chapter_id": id})
	ch, _ := h.Session.Project.Chapter(id)
	h.Response.Success(c, ch)
}

// UpdateChapterOutline edits a chapter's title or description
func (h *Handler) UpdateChapterOutline(c *gin.Context) {
	id := c.Param("id")
	var req chapterOutlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err.Error())
		return
	}
	if !h.Session.Project.UpdateChapterOutline(id, req.Title, req.Description) {
		h.Response.NotFound(c, ErrorChapterNotFound, i18n.T(h.lang(), i18n.ChapterNotFound))
		return
	}
	h.Session.Notify(services.TopicProject, map[string]interface{}{"chapter_id": id})
	ch, _ := h.Session.Project.Chapter(id)
	h.Response.Success(c, ch)
}

// GenerateChapter writes a chapter with the generator
func (h *Handler) GenerateChapter(c *gin.Context) {
	ch, err := h.Orchestrator.GenerateChapter(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, ch)
}

// ListImages returns the gallery, newest first
func (h *Handler) ListImages(c *gin.Context) {
	h.Response.Success(c, h.Session.Project.Snapshot().Images)
}

// GenerateImage creates an image from the body prompt or the stored prompt
func (h *Handler) GenerateImage(c *gin.Context) {
	var req promptRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			h.Response.BadRequest(c, "invalid request body", err.Error())
			return
		}
	}
	img, err := h.Orchestrator.GenerateImage(c.Request.Context(), req.Prompt)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Created(c, img)
}

// DownloadImage sends the decoded image bytes as ebook-asset-<id>.<ext>
func (h *Handler) DownloadImage(c *gin.Context) {
	img, ok := h.Session.Project.Image(c.Param("id"))
	if !ok {
		h.Response.NotFound(c, ErrorImageNotFound, i18n.T(h.lang(), i18n.ImageNotFound))
		return
	}
	mimeType, data, err := img.Decode()
	if err != nil {
		h.Response.Error(c, http.StatusUnprocessableEntity, ErrorImageInvalid, "stored image is not an inline payload", err.Error())
		return
	}
	h.Response.DownloadResponse(c, data, services.AssetFileName(img, mimeType), mimeType)
}

// SetImagePrompt stores the prompt input
func (h *Handler) SetImagePrompt(c *gin.Context) {
	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err.Error())
		return
	}
	h.Session.SetImagePrompt(req.Prompt)
	h.Response.Success(c, gin.H{"prompt": h.Session.ImagePrompt()})
}

// SetImageTab switches between generate and gallery
func (h *Handler) SetImageTab(c *gin.Context) {
	var req tabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "tab is required", err.Error())
		return
	}
	tab, err := models.ParseImageTab(strings.ToLower(strings.TrimSpace(req.Tab)))
	if err != nil {
		h.Response.BadRequest(c, err.Error())
		return
	}
	h.View().SetImageTab(tab)
	h.Session.Notify(services.TopicView, map[string]interface{}{"image_tab": tab})
	h.Response.Success(c, h.View().Snapshot())
}

// SuggestPrompts asks for image prompt ideas
func (h *Handler) SuggestPrompts(c *gin.Context) {
	prompts, err := h.Orchestrator.SuggestPrompts(c.Request.Context())
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, gin.H{"prompts": prompts})
}

// SetCredential stores or clears the user's key
func (h *Handler) SetCredential(c *gin.Context) {
	var req credentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err.Error())
		return
	}
	h.Session.Credentials.SetUserCredential(req.APIKey)
	h.Session.Notify(services.TopicSettings, nil)
	h.Response.Success(c, h.Session.Credentials.Status())
}

// SetLanguage switches prompt and message language
func (h *Handler) SetLanguage(c *gin.Context) {
	var req languageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "language is required", err.Error())
		return
	}
	lang, err := models.ParseLanguage(strings.ToLower(strings.TrimSpace(req.Language)))
	if err != nil {
		h.Response.BadRequest(c, err.Error())
		return
	}
	h.Session.SetLanguage(lang)
	h.Response.Success(c, gin.H{"language": lang})
}

// ExportProject downloads the project as markdown, json or zip
func (h *Handler) ExportProject(c *gin.Context) {
	format, err := models.ParseExportFormat(strings.ToLower(c.DefaultQuery("format", "markdown")))
	if err != nil {
		h.Response.Error(c, http.StatusBadRequest, ErrorExportFormatInvalid, err.Error())
		return
	}
	result, err := h.Export.Export(format)
	if err != nil {
		h.Response.Error(c, http.StatusInternalServerError, ErrorExportFailed, "export failed", err.Error())
		return
	}
	h.Response.DownloadResponse(c, result.Content, result.FileName, result.ContentType)
}

// ExportSummary returns the localized export overview
func (h *Handler) ExportSummary(c *gin.Context) {
	h.Response.Success(c, h.Export.Summary())
}

// GetMetrics returns the collector snapshot and websocket status
func (h *Handler) GetMetrics(c *gin.Context) {
	data := h.Metrics.Collector().GetMetrics()
	if h.Hub != nil {
		data["websocket"] = h.Hub.Status()
	}
	h.Response.Success(c, data)
}

// Health is the liveness probe
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"version":       h.Info.Version,
		"store_backend": h.Info.StoreBackend,
		"provider":      h.Info.Provider,
		"uptime_sec":    int64(time.Since(h.Info.StartedAt).Seconds()),
		"timestamp":     time.Now().Format(time.RFC3339),
	})
}

// View is a shorthand for the session's view machine
func (h *Handler) View() *services.ViewMachine {
	return h.Session.View
}

// localizeTransition swaps the technical transition message for the
// user-facing one and keeps the error type
func (h *Handler) localizeTransition(err error) error {
	return localizeInvalidTransition(h.lang(), err)
}

func localizeInvalidTransition(lang models.Language, err error) error {
	if !apperrors.IsInvalidTransitionError(err) {
		return err
	}
	return apperrors.NewInvalidTransitionError(i18n.T(lang, i18n.InvalidTransition), err)
}
