// internal/llm/generator.go
package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/Corphon/EbookGen/internal/errors"
	"github.com/Corphon/EbookGen/internal/models"
	"github.com/Corphon/EbookGen/internal/utils"
)

// Generator is the contract the orchestrator depends on. Every method fails
// with a missing_credential AppError before any request when credential is
// empty; other failures are malformed_response or provider_error AppErrors.
type Generator interface {
	GenerateOutline(ctx context.Context, niche, businessName string, lang models.Language, credential string) ([]models.OutlineItem, error)
	GenerateChapterContent(ctx context.Context, title, description, niche, businessName string, lang models.Language, credential string) (string, error)
	// GenerateImage returns a self-contained data URL
	GenerateImage(ctx context.Context, prompt, credential string) (string, error)
	// SuggestImagePrompts degrades to an empty list on provider or decode failure
	SuggestImagePrompts(ctx context.Context, niche, contextLabel string, lang models.Language, credential string) ([]string, error)
}

// ModelSet names the model per call kind
type ModelSet struct {
	Outline string
	Chapter string
	Image   string
	Suggest string
}

// ClientConfig configures Client
type ClientConfig struct {
	Provider string
	BaseURL  string
	Models   ModelSet
}

// Client implements Generator over a registered Provider. A provider is
// created per call because the credential may change between calls.
type Client struct {
	cfg    ClientConfig
	logger *utils.Logger
}

var _ Generator = (*Client)(nil)

// NewClient fails when the provider is not registered
func NewClient(cfg ClientConfig) (*Client, error) {
	found := false
	for _, name := range ListProviders() {
		if name == cfg.Provider {
			found = true
			break
		}
	}
	if !found {
		return nil, ErrUnknownProvider
	}
	return &Client{cfg: cfg, logger: utils.GetLogger()}, nil
}

func (c *Client) provider(credential, model string) (Provider, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, apperrors.NewMissingCredentialError("API key is missing")
	}
	p, err := GetProvider(c.cfg.Provider, map[string]string{
		"api_key":       credential,
		"base_url":      c.cfg.BaseURL,
		"default_model": model,
	})
	if err != nil {
		return nil, apperrors.NewProviderError("initialize provider", err)
	}
	return p, nil
}

func (c *Client) complete(ctx context.Context, kind, model string, req CompletionRequest, credential string) (string, error) {
	p, err := c.provider(credential, model)
	if err != nil {
		return "", err
	}
	req.Model = model

	start := time.Now()
	resp, err := p.CompleteText(ctx, req)
	if err != nil {
		c.logger.Warn("completion request failed", map[string]interface{}{
			"kind":     kind,
			"provider": p.GetName(),
			"model":    model,
			"error":    err,
		})
		return "", classifyProviderError(err)
	}
	c.logger.Info("completion request finished", map[string]interface{}{
		"kind":     kind,
		"provider": resp.ProviderName,
		"model":    model,
		"tokens":   resp.TokensUsed,
		"duration": time.Since(start).Milliseconds(),
	})
	return resp.Text, nil
}

func classifyProviderError(err error) error {
	if errors.Is(err, ErrEmptyResponse) || errors.Is(err, ErrNoImagePayload) {
		return apperrors.NewMalformedResponseError(err.Error(), err)
	}
	return apperrors.NewProviderError("provider request failed", err)
}

// GenerateOutline asks for the chapter outline and validates its shape
func (c *Client) GenerateOutline(ctx context.Context, niche, businessName string, lang models.Language, credential string) ([]models.OutlineItem, error) {
	text, err := c.complete(ctx, "outline", c.cfg.Models.Outline, CompletionRequest{
		Prompt:         outlinePrompt(niche, businessName, lang),
		ResponseSchema: outlineSchema,
	}, credential)
	if err != nil {
		return nil, err
	}
	items, err := DecodeOutline(text)
	if err != nil {
		return nil, apperrors.NewMalformedResponseError("failed to parse AI response as JSON", err)
	}
	return items, nil
}

// GenerateChapterContent returns the chapter as raw Markdown
func (c *Client) GenerateChapterContent(ctx context.Context, title, description, niche, businessName string, lang models.Language, credential string) (string, error) {
	text, err := c.complete(ctx, "chapter", c.cfg.Models.Chapter, CompletionRequest{
		Prompt: chapterPrompt(title, description, niche, businessName, lang),
	}, credential)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperrors.NewMalformedResponseError("empty chapter content", nil)
	}
	return text, nil
}

// GenerateImage returns the first inline image as a data URL
func (c *Client) GenerateImage(ctx context.Context, prompt, credential string) (string, error) {
	p, err := c.provider(credential, c.cfg.Models.Image)
	if err != nil {
		return "", err
	}
	resp, err := p.GenerateImage(ctx, ImageRequest{Prompt: prompt, Model: c.cfg.Models.Image})
	if err != nil {
		c.logger.Warn("image request failed", map[string]interface{}{
			"provider": p.GetName(),
			"model":    c.cfg.Models.Image,
			"error":    err,
		})
		return "", classifyProviderError(err)
	}
	if resp == nil || len(resp.Data) == 0 {
		return "", apperrors.NewMalformedResponseError(ErrNoImagePayload.Error(), ErrNoImagePayload)
	}
	mimeType := resp.MimeType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return models.EncodeDataURL(mimeType, resp.Data), nil
}

// SuggestImagePrompts returns up to a few prompt ideas, or an empty list
func (c *Client) SuggestImagePrompts(ctx context.Context, niche, contextLabel string, lang models.Language, credential string) ([]string, error) {
	text, err := c.complete(ctx, "suggest", c.cfg.Models.Suggest, CompletionRequest{
		Prompt:         suggestionPrompt(niche, contextLabel, lang),
		ResponseSchema: promptListSchema,
	}, credential)
	if err != nil {
		if apperrors.IsMissingCredential(err) {
			return nil, err
		}
		return []string{}, nil
	}
	if strings.TrimSpace(text) == "" {
		return []string{}, nil
	}
	prompts, err := DecodePromptSuggestions(text)
	if err != nil {
		c.logger.Warn("discarding unparsable prompt suggestions", map[string]interface{}{"error": err})
		return []string{}, nil
	}
	return prompts, nil
}
