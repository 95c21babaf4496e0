// internal/models/models_test.go
package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestProjectJSONShape(t *testing.T) {
	p := NewProject()
	p.BusinessName = "Suds & Co"
	p.Chapters = append(p.Chapters, Chapter{ID: "c1", Title: "Intro", Description: "d"})

	data, err := json.Marshal(p)
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, `"businessName":"Suds & Co"`)
	assert.Contains(t, s, `"isGenerating":false`)
	assert.Contains(t, s, `"images":[]`)
	assert.NotContains(t, s, `"content"`, "absent content is omitted")
}

func TestCloneIsDeep(t *testing.T) {
	p := NewProject()
	p.Chapters = []Chapter{{ID: "c1", Content: strPtr("draft")}}
	p.Images = []GeneratedImage{{ID: "i1"}}

	c := p.Clone()
	*c.Chapters[0].Content = "changed"
	c.Images[0].ID = "i2"

	assert.Equal(t, "draft", *p.Chapters[0].Content)
	assert.Equal(t, "i1", p.Images[0].ID)
}

func TestNormalize(t *testing.T) {
	var p Project
	require.NoError(t, json.Unmarshal([]byte(`{"chapters":[{"id":"a","isGenerating":true}]}`), &p))
	p.Normalize()
	assert.False(t, p.Chapters[0].IsGenerating)
	assert.NotNil(t, p.Images)
}

func TestCompletedChapters(t *testing.T) {
	p := Project{Chapters: []Chapter{
		{ID: "a", Content: strPtr("text")},
		{ID: "b"},
		{ID: "c", Content: strPtr("")},
	}}
	assert.Equal(t, 1, p.CompletedChapters())
	assert.Equal(t, 1, p.ChapterIndex("b"))
	assert.Equal(t, -1, p.ChapterIndex("zzz"))
}

func TestDataURLRoundTrip(t *testing.T) {
	url := EncodeDataURL("image/png", []byte{0x89, 0x50, 0x4e, 0x47})
	assert.Equal(t, "data:image/png;base64,iVBORw==", url)

	mime, data, err := DecodeDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, data)

	for _, bad := range []string{"https://example.com/a.png", "data:image/png;base64", "data:image/png,abc", "data:image/png;base64,!!"} {
		_, _, err := DecodeDataURL(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseTokens(t *testing.T) {
	v, err := ParseViewState("EDITOR")
	require.NoError(t, err)
	assert.Equal(t, ViewEditor, v)
	_, err = ParseViewState("editor")
	assert.Error(t, err)

	_, err = ParseImageTab("gallery")
	assert.NoError(t, err)
	_, err = ParseLanguage("fr")
	assert.Error(t, err)
	assert.Equal(t, "jpg", ExtensionForMime("image/jpeg"))
	assert.Equal(t, "png", ExtensionForMime("application/octet-stream"))
}
