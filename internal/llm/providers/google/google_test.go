// internal/llm/providers/google/google_test.go
package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/EbookGen/internal/llm"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) llm.Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := llm.GetProvider("google", map[string]string{
		"api_key":       "test-key",
		"base_url":      srv.URL,
		"default_model": "gemini-test",
	})
	require.NoError(t, err)
	return p
}

func TestInitializeRequiresKey(t *testing.T) {
	_, err := llm.GetProvider("google", map[string]string{})
	assert.Error(t, err)
}

func TestCompleteTextSendsSchema(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-outline:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.Query().Get("key"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		cfg := body["generationConfig"].(map[string]interface{})
		assert.Equal(t, "application/json", cfg["responseMimeType"])
		assert.Equal(t, "ARRAY", cfg["responseSchema"].(map[string]interface{})["type"])

		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"[\"a\","},{"text":"\"b\"]"}]},"finishReason":"STOP"}],"usageMetadata":{"totalTokenCount":42}}`))
	})

	resp, err := p.CompleteText(context.Background(), llm.CompletionRequest{
		Prompt:         "hi",
		Model:          "gemini-outline",
		ResponseSchema: &llm.Schema{Type: "ARRAY", Items: &llm.Schema{Type: "STRING"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, resp.Text)
	assert.Equal(t, 42, resp.TokensUsed)
	assert.Equal(t, "gemini-outline", resp.ModelName)
}

func TestCompleteTextAPIError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"API key not valid"}}`))
	})
	_, err := p.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not valid")
	assert.Contains(t, err.Error(), "403")
}

func TestCompleteTextNoCandidates(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		w.Write([]byte(`{"candidates":[]}`))
	})
	_, err := p.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "hi"})
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}

func TestGenerateImage(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"here"},{"inlineData":{"mimeType":"image/png","data":"aW1n"}}]}}]}`))
	})
	img, err := p.GenerateImage(context.Background(), llm.ImageRequest{Prompt: "soap", Model: "gemini-image"})
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MimeType)
	assert.Equal(t, []byte("img"), img.Data)
}

func TestGenerateImageWithoutPayload(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"I can only describe it"}]}}]}`))
	})
	_, err := p.GenerateImage(context.Background(), llm.ImageRequest{Prompt: "soap"})
	assert.True(t, errors.Is(err, llm.ErrNoImagePayload))
}
