// internal/llm/interface.go
package llm

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	ErrUnknownProvider = errors.New("unknown llm provider")
	// ErrNoImagePayload is returned by providers when a response carries no inline image
	ErrNoImagePayload = errors.New("no image data found in response")
	ErrEmptyResponse  = errors.New("provider returned no candidates")
)

// CompletionRequest is a provider-neutral text request
type CompletionRequest struct {
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	Model        string  `json:"model,omitempty"`
	Temperature  float32 `json:"temperature,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`

	// ResponseSchema asks for JSON output shaped like the schema. Providers
	// that cannot enforce a schema fall back to plain JSON mode.
	ResponseSchema *Schema `json:"response_schema,omitempty"`
}

// CompletionResponse is a provider-neutral text response
type CompletionResponse struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason,omitempty"`
	TokensUsed   int    `json:"tokens_used,omitempty"`
	ModelName    string `json:"model_name,omitempty"`
	ProviderName string `json:"provider_name,omitempty"`
}

// ImageRequest asks for one image
type ImageRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
}

// ImageResponse carries the raw image bytes
type ImageResponse struct {
	MimeType string
	Data     []byte
}

// Schema is the subset of OpenAPI schema used for structured output
type Schema struct {
	Type       string             `json:"type"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Items      *Schema            `json:"items,omitempty"`
	Required   []string           `json:"required,omitempty"`
}

// Provider is implemented by every generation backend
type Provider interface {
	// Initialize receives api_key, base_url and default_model
	Initialize(config map[string]string) error

	GetName() string

	CompleteText(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	GenerateImage(ctx context.Context, req ImageRequest) (*ImageResponse, error)
}

// ProviderFactory creates an uninitialized provider
type ProviderFactory func() Provider

var (
	providersMu sync.RWMutex
	providers   = make(map[string]ProviderFactory)
)

// Register makes a provider available by name; called from provider init()
func Register(name string, factory ProviderFactory) {
	providersMu.Lock()
	defer providersMu.Unlock()
	providers[name] = factory
}

// GetProvider creates and initializes the named provider
func GetProvider(name string, config map[string]string) (Provider, error) {
	providersMu.RLock()
	factory, exists := providers[name]
	providersMu.RUnlock()
	if !exists {
		return nil, ErrUnknownProvider
	}

	provider := factory()
	if err := provider.Initialize(config); err != nil {
		return nil, err
	}
	return provider, nil
}

// ListProviders returns registered provider names in sorted order
func ListProviders() []string {
	providersMu.RLock()
	defer providersMu.RUnlock()
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
