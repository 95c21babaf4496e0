// internal/llm/providers/openai/openai_test.go
package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/EbookGen/internal/llm"
)

func newTestProvider(t *testing.T, mux *http.ServeMux) llm.Provider {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p, err := llm.GetProvider("openai", map[string]string{
		"api_key":       "sk-test",
		"base_url":      srv.URL + "/v1",
		"default_model": "gpt-test",
	})
	require.NoError(t, err)
	return p
}

func TestCompleteText(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-test", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Equal(t, "outline please", body.Messages[1].Content)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"[]"},"finish_reason":"stop"}],"usage":{"total_tokens":7}}`))
	})
	p := newTestProvider(t, mux)

	resp, err := p.CompleteText(context.Background(), llm.CompletionRequest{
		Prompt:         "outline please",
		ResponseSchema: &llm.Schema{Type: "ARRAY"},
	})
	require.NoError(t, err)
	assert.Equal(t, "[]", resp.Text)
	assert.Equal(t, 7, resp.TokensUsed)
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestCompleteTextError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	})
	p := newTestProvider(t, mux)

	_, err := p.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect API key provided")
}

func TestGenerateImage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/images/generations", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "b64_json", body["response_format"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"created":1,"data":[{"b64_json":"aW1n"}]}`))
	})
	p := newTestProvider(t, mux)

	img, err := p.GenerateImage(context.Background(), llm.ImageRequest{Prompt: "soap"})
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), img.Data)
	assert.Equal(t, "image/png", img.MimeType)
}

func TestGenerateImageEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/images/generations", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"created":1,"data":[{"url":"https://example.com/x.png"}]}`))
	})
	p := newTestProvider(t, mux)

	_, err := p.GenerateImage(context.Background(), llm.ImageRequest{Prompt: "soap"})
	assert.ErrorIs(t, err, llm.ErrNoImagePayload)
}
