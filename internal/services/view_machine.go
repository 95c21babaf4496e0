// internal/services/view_machine.go
package services

import (
	"fmt"
	"sync"

	apperrors "github.com/Corphon/EbookGen/internal/errors"
	"github.com/Corphon/EbookGen/internal/models"
)

// ViewSnapshot is the render-time view of the machine
type ViewSnapshot struct {
	View         models.ViewState `json:"view"`
	ChapterIndex int              `json:"chapterIndex"`
	ImageTab     models.ImageTab  `json:"imageTab"`
}

// ViewMachine gates top-level navigation on data preconditions.
// The chapter index is only meaningful in the Editor and may point past the
// end of the chapter list.
type ViewMachine struct {
	mu       sync.RWMutex
	view     models.ViewState
	index    int
	imageTab models.ImageTab
	sink     StateSink
}

func NewViewMachine(initial models.ViewState, sink StateSink) *ViewMachine {
	if _, err := models.ParseViewState(string(initial)); err != nil {
		initial = models.ViewOnboarding
	}
	return &ViewMachine{
		view:     initial,
		imageTab: models.ImageTabGenerate,
		sink:     sink,
	}
}

func (vm *ViewMachine) Snapshot() ViewSnapshot {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return ViewSnapshot{View: vm.view, ChapterIndex: vm.index, ImageTab: vm.imageTab}
}

func (vm *ViewMachine) Current() models.ViewState {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.view
}

func (vm *ViewMachine) ChapterIndex() int {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.index
}

// ContinueProject resumes an existing project from Onboarding
func (vm *ViewMachine) ContinueProject(hasChapters bool) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.view != models.ViewOnboarding {
		return transitionError(vm.view, models.ViewOutline)
	}
	if !hasChapters {
		return apperrors.NewInvalidTransitionError("no existing project to continue", nil)
	}
	vm.setLocked(models.ViewOutline, vm.index)
	return nil
}

// OutlineReady is called after a successful outline generation; it is
// accepted from any view.
func (vm *ViewMachine) OutlineReady() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.setLocked(models.ViewOutline, 0)
}

// SelectChapter opens the editor at index
func (vm *ViewMachine) SelectChapter(index, chapterCount int) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.view == models.ViewOnboarding {
		return transitionError(vm.view, models.ViewEditor)
	}
	if index < 0 || index >= chapterCount {
		return apperrors.NewValidationError(fmt.Sprintf("chapter index %d out of range", index), nil)
	}
	vm.setLocked(models.ViewEditor, index)
	return nil
}

// StartWriting opens the editor at the first chapter
func (vm *ViewMachine) StartWriting(chapterCount int) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.view != models.ViewOutline {
		return transitionError(vm.view, models.ViewEditor)
	}
	if chapterCount == 0 {
		return apperrors.NewInvalidTransitionError("outline has no chapters", nil)
	}
	vm.setLocked(models.ViewEditor, 0)
	return nil
}

// Navigate moves freely between Outline, Images and Export once a project
// exists. Editor is reached through SelectChapter, Onboarding through Reset.
func (vm *ViewMachine) Navigate(target models.ViewState) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	switch target {
	case models.ViewOutline, models.ViewImages, models.ViewExport:
	default:
		return transitionError(vm.view, target)
	}
	if vm.view == models.ViewOnboarding {
		return transitionError(vm.view, target)
	}
	vm.setLocked(target, vm.index)
	return nil
}

// SetImageTab is transient and not persisted
func (vm *ViewMachine) SetImageTab(tab models.ImageTab) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.imageTab = tab
}

// Reset returns to Onboarding with the first chapter selected
func (vm *ViewMachine) Reset() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.imageTab = models.ImageTabGenerate
	vm.setLocked(models.ViewOnboarding, 0)
}

func (vm *ViewMachine) setLocked(view models.ViewState, index int) {
	changed := vm.view != view
	vm.view = view
	vm.index = index
	if changed && vm.sink != nil {
		vm.sink.SaveView(view)
	}
}

func transitionError(from, to models.ViewState) error {
	return apperrors.NewInvalidTransitionError(fmt.Sprintf("cannot move from %s to %s", from, to), nil)
}
