// internal/services/orchestrator.go
package services

import (
	"context"
	"strings"
	"sync"
	"time"

	apperrors "github.com/Corphon/EbookGen/internal/errors"
	"github.com/Corphon/EbookGen/internal/i18n"
	"github.com/Corphon/EbookGen/internal/llm"
	"github.com/Corphon/EbookGen/internal/models"
	"github.com/Corphon/EbookGen/internal/utils"
)

const (
	targetOutline = "outline"
	targetImage   = "image"
	targetSuggest = "suggest"
	kindChapter   = "chapter"

	DefaultGenerationTimeout = 3 * time.Minute
)

// Identity is the optional onboarding input of an outline request
type Identity struct {
	BusinessName   string `json:"businessName"`
	Niche          string `json:"niche"`
	TargetAudience string `json:"targetAudience"`
}

// GenerationStatus reports which single-target generations are running
type GenerationStatus struct {
	Outline    bool     `json:"outline"`
	Image      bool     `json:"image"`
	Suggest    bool     `json:"suggest"`
	Chapters   []string `json:"chapters"`
	InProgress int      `json:"inProgress"`
}

// Orchestrator mediates every call to the generator. At most one request is
// outstanding per target: one outline, one image, one suggestion and one per
// chapter. Requests run detached from the caller's context so a client that
// disconnects never cancels a generation; the result is still merged by id.
type Orchestrator struct {
	session   *Session
	generator llm.Generator
	metrics   *utils.AppMetrics
	logger    *utils.Logger
	timeout   time.Duration

	mu       sync.Mutex
	inFlight map[string]bool
	wg       sync.WaitGroup
}

func NewOrchestrator(session *Session, generator llm.Generator, metrics *utils.AppMetrics, timeout time.Duration) *Orchestrator {
	if metrics == nil {
		metrics = utils.NewAppMetrics(nil)
	}
	if timeout <= 0 {
		timeout = DefaultGenerationTimeout
	}
	return &Orchestrator{
		session:   session,
		generator: generator,
		metrics:   metrics,
		logger:    utils.GetLogger(),
		timeout:   timeout,
		inFlight:  make(map[string]bool),
	}
}

// Status reports the running generations
func (o *Orchestrator) Status() GenerationStatus {
	o.mu.Lock()
	status := GenerationStatus{
		Outline: o.inFlight[targetOutline],
		Image:   o.inFlight[targetImage],
		Suggest: o.inFlight[targetSuggest],
	}
	o.mu.Unlock()

	status.Chapters = []string{}
	for _, ch := range o.session.Project.Snapshot().Chapters {
		if ch.IsGenerating {
			status.Chapters = append(status.Chapters, ch.ID)
		}
	}
	for _, busy := range []bool{status.Outline, status.Image, status.Suggest} {
		if busy {
			status.InProgress++
		}
	}
	status.InProgress += len(status.Chapters)
	return status
}

// GenerateOutline produces a fresh outline for the project identity and
// advances the view to Outline. identity may be nil to reuse the stored one.
func (o *Orchestrator) GenerateOutline(ctx context.Context, identity *Identity) ([]models.Chapter, error) {
	lang := o.session.Language()
	if identity != nil {
		o.session.Project.SetIdentity(identity.BusinessName, identity.Niche, identity.TargetAudience)
		o.session.Notify(TopicProject, nil)
	}
	generation := o.session.Project.Generation()
	project := o.session.Project.Snapshot()
	if project.BusinessName == "" || project.Niche == "" {
		return nil, apperrors.NewValidationError(i18n.T(lang, i18n.MissingIdentity), nil)
	}

	credential, err := o.credential(lang)
	if err != nil {
		return nil, err
	}
	release, err := o.acquire(targetOutline, lang)
	if err != nil {
		return nil, err
	}

	var chapters []models.Chapter
	err = o.run(ctx, targetOutline, release, func(runCtx context.Context) error {
		items, err := o.generator.GenerateOutline(runCtx, project.Niche, project.BusinessName, lang, credential)
		if err != nil {
			o.logFailure(targetOutline, "", err)
			return localize(lang, i18n.OutlineFailed, err)
		}
		merged := o.session.ApplyIfCurrent(generation, func() {
			chapters = o.session.Project.ReplaceChapters(items)
			o.session.View.OutlineReady()
		})
		if !merged {
			return o.discardAfterReset(targetOutline, lang)
		}
		o.session.Notify(TopicProject, map[string]interface{}{"chapters": len(chapters)})
		o.session.Notify(TopicView, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chapters, nil
}

// GenerateChapter writes the long-form text for chapter id. The busy flag is
// cleared on every path; a result that arrives after a user edit is dropped.
func (o *Orchestrator) GenerateChapter(ctx context.Context, id string) (models.Chapter, error) {
	lang := o.session.Language()
	chapter, ok := o.session.Project.Chapter(id)
	if !ok {
		return models.Chapter{}, apperrors.NewNotFoundError(i18n.T(lang, i18n.ChapterNotFound), nil)
	}
	credential, err := o.credential(lang)
	if err != nil {
		return models.Chapter{}, err
	}

	epoch, err := o.session.Project.BeginChapterGeneration(id)
	if err != nil {
		if apperrors.IsConflictError(err) {
			return models.Chapter{}, apperrors.NewConflictError(i18n.T(lang, i18n.AlreadyRunning), err)
		}
		return models.Chapter{}, apperrors.NewNotFoundError(i18n.T(lang, i18n.ChapterNotFound), err)
	}
	o.session.Notify(TopicProject, map[string]interface{}{"chapter_id": id, "generating": true})

	project := o.session.Project.Snapshot()
	err = o.run(ctx, kindChapter, nil, func(runCtx context.Context) error {
		text, err := o.generator.GenerateChapterContent(runCtx, chapter.Title, chapter.Description,
			project.Niche, project.BusinessName, lang, credential)
		if err != nil {
			o.session.Project.SetChapterGenerating(id, false)
			o.session.Notify(TopicProject, map[string]interface{}{"chapter_id": id, "generating": false})
			o.logFailure(kindChapter, id, err)
			return localize(lang, i18n.ChapterFailed, err)
		}
		applied := o.session.Project.FinishChapterGeneration(id, epoch, &text)
		o.session.Notify(TopicProject, map[string]interface{}{
			"chapter_id": id,
			"generating": false,
			"applied":    applied,
		})
		return nil
	})

	current, _ := o.session.Project.Chapter(id)
	return current, err
}

// GenerateImage creates an image from prompt, or from the stored prompt input
// when prompt is blank. On success the image is prepended, the prompt input
// is cleared and the gallery tab is shown.
func (o *Orchestrator) GenerateImage(ctx context.Context, prompt string) (models.GeneratedImage, error) {
	lang := o.session.Language()
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		prompt = strings.TrimSpace(o.session.ImagePrompt())
	}
	if prompt == "" {
		return models.GeneratedImage{}, apperrors.NewValidationError(i18n.T(lang, i18n.EmptyPrompt), nil)
	}

	credential, err := o.credential(lang)
	if err != nil {
		return models.GeneratedImage{}, err
	}
	generation := o.session.Project.Generation()
	release, err := o.acquire(targetImage, lang)
	if err != nil {
		return models.GeneratedImage{}, err
	}

	var image models.GeneratedImage
	err = o.run(ctx, targetImage, release, func(runCtx context.Context) error {
		url, err := o.generator.GenerateImage(runCtx, prompt, credential)
		if err != nil {
			o.logFailure(targetImage, "", err)
			return localize(lang, i18n.ImageFailed, err)
		}
		merged := o.session.ApplyIfCurrent(generation, func() {
			image = o.session.Project.PrependImage(url, prompt)
			o.session.SetImagePrompt("")
			o.session.View.SetImageTab(models.ImageTabGallery)
		})
		if !merged {
			return o.discardAfterReset(targetImage, lang)
		}
		o.session.Notify(TopicImages, map[string]interface{}{"image_id": image.ID})
		return nil
	})
	if err != nil {
		return models.GeneratedImage{}, err
	}
	return image, nil
}

// SuggestPrompts asks for image prompt ideas about the selected chapter.
// Only a missing credential is reported; any other failure stores an empty list.
func (o *Orchestrator) SuggestPrompts(ctx context.Context) ([]string, error) {
	lang := o.session.Language()
	credential, err := o.credential(lang)
	if err != nil {
		return nil, err
	}
	release, err := o.acquire(targetSuggest, lang)
	if err != nil {
		return nil, err
	}

	niche := o.session.Project.Snapshot().Niche
	label := o.session.CurrentChapterLabel()
	prompts := []string{}
	err = o.run(ctx, targetSuggest, release, func(runCtx context.Context) error {
		got, err := o.generator.SuggestImagePrompts(runCtx, niche, label, lang, credential)
		if err != nil {
			if apperrors.IsMissingCredential(err) {
				return apperrors.NewMissingCredentialError(i18n.T(lang, i18n.MissingCredential))
			}
			o.logFailure(targetSuggest, "", err)
			got = nil
		}
		if got != nil {
			prompts = got
		}
		o.session.SetSuggestedPrompts(prompts)
		o.session.Notify(TopicImages, map[string]interface{}{"suggestions": len(prompts)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prompts, nil
}

// Wait blocks until every outstanding generation has finished or ctx ends
func (o *Orchestrator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) credential(lang models.Language) (string, error) {
	credential := o.session.Credentials.Resolve()
	if credential == "" {
		return "", apperrors.NewMissingCredentialError(i18n.T(lang, i18n.MissingCredential))
	}
	return credential, nil
}

func (o *Orchestrator) acquire(target string, lang models.Language) (func(), error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight[target] {
		return nil, apperrors.NewConflictError(i18n.T(lang, i18n.AlreadyRunning), nil)
	}
	o.inFlight[target] = true
	return func() {
		o.mu.Lock()
		delete(o.inFlight, target)
		o.mu.Unlock()
	}, nil
}

// run executes work on its own goroutine under a detached, time-limited
// context. The caller waits for the result unless its own ctx ends first, in
// which case work still runs to completion and merges its result.
func (o *Orchestrator) run(ctx context.Context, kind string, release func(), work func(ctx context.Context) error) error {
	done := make(chan error, 1)
	o.wg.Add(1)
	o.metrics.RecordGenerationStarted()
	o.session.Notify(TopicGeneration, map[string]interface{}{"kind": kind, "status": "started"})

	go func() {
		defer o.wg.Done()

		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
		start := time.Now()
		err := work(runCtx)
		cancel()
		o.metrics.RecordGeneration(kind, time.Since(start), string(apperrors.TypeOf(err)))

		// the target is free again before the caller sees the result
		if release != nil {
			release()
		}
		o.metrics.RecordGenerationFinished()

		status := "succeeded"
		if err != nil {
			status = "failed"
		}
		o.session.Notify(TopicGeneration, map[string]interface{}{"kind": kind, "status": status})
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// discardAfterReset drops a result that belongs to a project wiped by Reset
func (o *Orchestrator) discardAfterReset(kind string, lang models.Language) error {
	o.metrics.RecordStaleResult()
	o.logger.Info("discarding generation result after project reset", map[string]interface{}{"op": kind})
	return apperrors.NewConflictError(i18n.T(lang, i18n.ProjectReset), nil)
}

func (o *Orchestrator) logFailure(kind, chapterID string, err error) {
	fields := map[string]interface{}{
		"op":    kind,
		"type":  string(apperrors.TypeOf(err)),
		"error": err,
	}
	if chapterID != "" {
		fields["chapter_id"] = chapterID
	}
	o.logger.Warn("generation failed", fields)
}

// localize rewrites the message for lang, embedding the cause text and
// keeping the error type of the cause
func localize(lang models.Language, key i18n.Key, err error) error {
	errType := apperrors.TypeOf(err)
	if errType == "" {
		errType = apperrors.ErrorTypeProvider
	}
	if errType == apperrors.ErrorTypeMissingCredential {
		return apperrors.NewMissingCredentialError(i18n.T(lang, i18n.MissingCredential))
	}
	return apperrors.NewAppError(errType, i18n.T(lang, key, err.Error()), err)
}
