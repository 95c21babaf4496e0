// internal/services/view_machine_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Corphon/EbookGen/internal/errors"
	"github.com/Corphon/EbookGen/internal/models"
)

func TestViewMachineOnboardingGates(t *testing.T) {
	vm := NewViewMachine(models.ViewOnboarding, nil)

	for _, target := range []models.ViewState{models.ViewOutline, models.ViewImages, models.ViewExport} {
		err := vm.Navigate(target)
		assert.True(t, apperrors.IsInvalidTransitionError(err), target)
	}
	assert.True(t, apperrors.IsInvalidTransitionError(vm.SelectChapter(0, 3)))
	assert.True(t, apperrors.IsInvalidTransitionError(vm.StartWriting(3)))
	assert.True(t, apperrors.IsInvalidTransitionError(vm.ContinueProject(false)))
	assert.Equal(t, models.ViewOnboarding, vm.Current())

	require.NoError(t, vm.ContinueProject(true))
	assert.Equal(t, models.ViewOutline, vm.Current())
	assert.True(t, apperrors.IsInvalidTransitionError(vm.ContinueProject(true)))
}

func TestViewMachineTransitions(t *testing.T) {
	sink := &recordingSink{}
	vm := NewViewMachine(models.ViewOnboarding, sink)

	vm.OutlineReady()
	require.NoError(t, vm.StartWriting(3))
	assert.Equal(t, ViewSnapshot{View: models.ViewEditor, ChapterIndex: 0, ImageTab: models.ImageTabGenerate}, vm.Snapshot())

	// editor to editor only moves the index
	require.NoError(t, vm.SelectChapter(2, 3))
	assert.Equal(t, 2, vm.ChapterIndex())
	assert.True(t, apperrors.IsValidationError(vm.SelectChapter(3, 3)))
	assert.True(t, apperrors.IsInvalidTransitionError(vm.StartWriting(3)))

	require.NoError(t, vm.Navigate(models.ViewImages))
	require.NoError(t, vm.Navigate(models.ViewExport))
	require.NoError(t, vm.Navigate(models.ViewOutline))
	assert.True(t, apperrors.IsInvalidTransitionError(vm.Navigate(models.ViewEditor)))
	assert.True(t, apperrors.IsInvalidTransitionError(vm.Navigate(models.ViewOnboarding)))

	vm.SetImageTab(models.ImageTabGallery)
	vm.Reset()
	assert.Equal(t, ViewSnapshot{View: models.ViewOnboarding, ImageTab: models.ImageTabGenerate}, vm.Snapshot())

	assert.Equal(t, []models.ViewState{
		models.ViewOutline,
		models.ViewEditor,
		models.ViewImages,
		models.ViewExport,
		models.ViewOutline,
		models.ViewOnboarding,
	}, sink.views)
}

func TestStartWritingNeedsChapters(t *testing.T) {
	vm := NewViewMachine(models.ViewOutline, nil)
	assert.True(t, apperrors.IsInvalidTransitionError(vm.StartWriting(0)))
}

func TestNewViewMachineRejectsUnknownView(t *testing.T) {
	vm := NewViewMachine(models.ViewState("SETTINGS"), nil)
	assert.Equal(t, models.ViewOnboarding, vm.Current())
}
