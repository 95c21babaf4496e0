// internal/services/project_state_test.go
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Corphon/EbookGen/internal/errors"
	"github.com/Corphon/EbookGen/internal/models"
	"github.com/Corphon/EbookGen/internal/utils"
)

func newTestProjectState(sink StateSink) *ProjectState {
	return NewProjectState(models.NewProject(), sink, utils.NewAppMetrics(utils.NewMetricsCollector()))
}

func TestReplaceChaptersAssignsFreshIDs(t *testing.T) {
	sink := &recordingSink{}
	ps := newTestProjectState(sink)

	ids := []string{"a", "b", "a", "b", "c", "c", "d"}
	ps.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	first := ps.ReplaceChapters(soapOutline()[:2])
	require.Len(t, first, 2)
	assert.Equal(t, "a", first[0].ID)
	assert.Equal(t, "b", first[1].ID)

	second := ps.ReplaceChapters(soapOutline()[:2])
	require.Len(t, second, 2)
	assert.Equal(t, "c", second[0].ID)
	assert.Equal(t, "d", second[1].ID)

	for _, ch := range second {
		assert.Nil(t, ch.Content)
		assert.False(t, ch.IsGenerating)
	}
	assert.Equal(t, 2, sink.projectWrites())
}

func TestReplaceChaptersWithUUIDs(t *testing.T) {
	ps := newTestProjectState(nil)
	before := ps.ReplaceChapters(soapOutline())
	after := ps.ReplaceChapters(soapOutline())

	seen := map[string]bool{}
	for _, ch := range append(before, after...) {
		assert.False(t, seen[ch.ID], "duplicate id %s", ch.ID)
		seen[ch.ID] = true
	}
}

func TestSetChapterContentIsIdempotent(t *testing.T) {
	sink := &recordingSink{}
	ps := newTestProjectState(sink)
	chapters := ps.ReplaceChapters(soapOutline())
	id := chapters[1].ID

	require.True(t, ps.SetChapterContent(id, "draft"))
	once := ps.Snapshot()
	writes := sink.projectWrites()

	require.True(t, ps.SetChapterContent(id, "draft"))
	assert.Equal(t, once, ps.Snapshot())
	assert.Equal(t, writes, sink.projectWrites())

	assert.False(t, ps.SetChapterContent("missing", "x"))
	assert.Equal(t, "draft", sink.lastProject().Chapters[1].ContentText())
}

func TestSameTextStillCountsAsEdit(t *testing.T) {
	ps := newTestProjectState(&recordingSink{})
	id := ps.ReplaceChapters(soapOutline())[0].ID
	ps.SetChapterContent(id, "mine")

	epoch, err := ps.BeginChapterGeneration(id)
	require.NoError(t, err)
	ps.SetChapterContent(id, "mine")

	generated := "generated"
	assert.False(t, ps.FinishChapterGeneration(id, epoch, &generated))
	ch, _ := ps.Chapter(id)
	assert.Equal(t, "mine", ch.ContentText())
}

func TestSetChapterGeneratingWritesOnlyOnChange(t *testing.T) {
	sink := &recordingSink{}
	ps := newTestProjectState(sink)
	id := ps.ReplaceChapters(soapOutline())[0].ID
	writes := sink.projectWrites()

	require.True(t, ps.SetChapterGenerating(id, true))
	assert.Equal(t, writes+1, sink.projectWrites())
	assert.True(t, sink.lastProject().Chapters[0].IsGenerating)

	require.True(t, ps.SetChapterGenerating(id, true))
	assert.Equal(t, writes+1, sink.projectWrites())

	require.True(t, ps.SetChapterGenerating(id, false))
	assert.Equal(t, writes+2, sink.projectWrites())
	assert.False(t, ps.SetChapterGenerating("missing", true))
}

func TestResetAdvancesGeneration(t *testing.T) {
	ps := newTestProjectState(&recordingSink{})
	before := ps.Generation()
	ps.ReplaceChapters(soapOutline())
	assert.Equal(t, before, ps.Generation())

	ps.ResetAll()
	assert.Equal(t, before+1, ps.Generation())
}

func TestChapterGenerationEpochs(t *testing.T) {
	ps := newTestProjectState(&recordingSink{})
	id := ps.ReplaceChapters(soapOutline())[0].ID

	epoch, err := ps.BeginChapterGeneration(id)
	require.NoError(t, err)
	ch, _ := ps.Chapter(id)
	assert.True(t, ch.IsGenerating)

	_, err = ps.BeginChapterGeneration(id)
	assert.True(t, apperrors.IsConflictError(err))
	_, err = ps.BeginChapterGeneration("nope")
	assert.True(t, apperrors.IsNotFoundError(err))

	// a user edit while the request is outstanding wins
	ps.SetChapterContent(id, "mine")
	generated := "generated"
	assert.False(t, ps.FinishChapterGeneration(id, epoch, &generated))
	ch, _ = ps.Chapter(id)
	assert.Equal(t, "mine", ch.ContentText())
	assert.False(t, ch.IsGenerating)

	epoch, err = ps.BeginChapterGeneration(id)
	require.NoError(t, err)
	assert.True(t, ps.FinishChapterGeneration(id, epoch, &generated))
	ch, _ = ps.Chapter(id)
	assert.Equal(t, "generated", ch.ContentText())
}

func TestFailedGenerationKeepsContent(t *testing.T) {
	ps := newTestProjectState(nil)
	id := ps.ReplaceChapters(soapOutline())[0].ID
	ps.SetChapterContent(id, "kept")

	epoch, err := ps.BeginChapterGeneration(id)
	require.NoError(t, err)
	assert.False(t, ps.FinishChapterGeneration(id, epoch, nil))

	ch, _ := ps.Chapter(id)
	assert.Equal(t, "kept", ch.ContentText())
	assert.False(t, ch.IsGenerating)
}

func TestFinishAfterReplaceIsDiscarded(t *testing.T) {
	ps := newTestProjectState(nil)
	id := ps.ReplaceChapters(soapOutline())[0].ID
	epoch, err := ps.BeginChapterGeneration(id)
	require.NoError(t, err)

	ps.ReplaceChapters(soapOutline())
	text := "late"
	assert.False(t, ps.FinishChapterGeneration(id, epoch, &text))
	for _, ch := range ps.Snapshot().Chapters {
		assert.Nil(t, ch.Content)
	}
}

func TestPrependImageTimestampsIncrease(t *testing.T) {
	sink := &recordingSink{}
	ps := newTestProjectState(sink)
	fixed := time.UnixMilli(1_700_000_000_000)
	ps.now = func() time.Time { return fixed }

	first := ps.PrependImage("data:image/png;base64,AA==", "one")
	second := ps.PrependImage("data:image/png;base64,AQ==", "two")

	ps.now = func() time.Time { return fixed.Add(-time.Hour) }
	third := ps.PrependImage("data:image/png;base64,Ag==", "three")

	images := ps.Snapshot().Images
	require.Len(t, images, 3)
	assert.Equal(t, third.ID, images[0].ID)
	assert.Equal(t, first.ID, images[2].ID)
	assert.Greater(t, second.CreatedAt, first.CreatedAt)
	assert.Greater(t, third.CreatedAt, second.CreatedAt)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 3, sink.projectWrites())
}

func TestResetAllRemovesProjectSlot(t *testing.T) {
	sink := &recordingSink{}
	ps := newTestProjectState(sink)
	ps.SetIdentity("Suds & Co", "Handmade Soap", "")
	ps.ReplaceChapters(soapOutline())
	writes := sink.projectWrites()

	ps.ResetAll()
	assert.True(t, ps.IsEmpty())
	assert.Equal(t, models.NewProject(), ps.Snapshot())
	assert.Equal(t, 1, sink.removes)
	assert.Equal(t, writes, sink.projectWrites())
}

func TestSetIdentityWritesOnlyOnChange(t *testing.T) {
	sink := &recordingSink{}
	ps := newTestProjectState(sink)
	ps.SetIdentity(" Suds & Co ", "Handmade Soap", "Makers")
	ps.SetIdentity("Suds & Co", "Handmade Soap", "Makers")
	assert.Equal(t, 1, sink.projectWrites())
	assert.Equal(t, "Suds & Co", ps.Snapshot().BusinessName)
}

func TestSnapshotIsACopy(t *testing.T) {
	ps := newTestProjectState(nil)
	id := ps.ReplaceChapters(soapOutline())[0].ID
	ps.SetChapterContent(id, "original")

	snap := ps.Snapshot()
	*snap.Chapters[0].Content = "mutated"
	snap.Chapters[0].Title = "mutated"

	ch, _ := ps.Chapter(id)
	assert.Equal(t, "original", ch.ContentText())
	assert.Equal(t, "Why AI Matters", ch.Title)
}

func TestUpdateChapterOutline(t *testing.T) {
	sink := &recordingSink{}
	ps := newTestProjectState(sink)
	chapters := ps.ReplaceChapters(soapOutline())
	id := chapters[1].ID
	writes := sink.projectWrites()

	require.True(t, ps.UpdateChapterOutline(id, "  Product Pages ", ""))
	ch, _ := ps.Chapter(id)
	assert.Equal(t, "Product Pages", ch.Title)
	assert.Equal(t, "Writing product pages", ch.Description)
	assert.Equal(t, writes+1, sink.projectWrites())

	// unchanged values write nothing
	require.True(t, ps.UpdateChapterOutline(id, "Product Pages", ""))
	assert.Equal(t, writes+1, sink.projectWrites())

	assert.False(t, ps.UpdateChapterOutline("missing", "x", "y"))
}
