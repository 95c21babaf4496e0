// internal/llm/decode.go
package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/Corphon/EbookGen/internal/models"
)

// ErrNoJSON is returned when no structured value can be located in the text
var ErrNoJSON = errors.New("response contains no JSON value")

var jsonNoiseReplacer = strings.NewReplacer(
	"```json", "",
	"```JSON", "",
	"```", "",
	"\ufeff", "",
	"\u00a0", " ",
	"\u2028", "\n",
	"\u2029", "\n",
)

// full-width punctuation some models emit between JSON tokens
var structuralPunctuation = map[rune]rune{
	'：': ':',
	'，': ',',
	'［': '[',
	'］': ']',
	'｛': '{',
	'｝': '}',
}

// ExtractJSON strips wrapping artifacts from model output and returns the
// first balanced JSON array or object it contains.
func ExtractJSON(s string) (string, error) {
	s = jsonNoiseReplacer.Replace(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\u2060':
			return -1
		}
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "[{［｛")
	if start == -1 {
		return "", ErrNoJSON
	}
	s = normalizeStructure(s[start:])

	open := s[0]
	closing := byte(']')
	if open == '{' {
		closing = '}'
	}

	balance := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case open:
			balance++
		case closing:
			balance--
			if balance == 0 {
				return s[:i+1], nil
			}
		}
	}

	// unbalanced: fall back to the last closing bracket
	if end := strings.LastIndexByte(s, closing); end > 0 {
		return s[:end+1], nil
	}
	return "", ErrNoJSON
}

// normalizeStructure maps full-width structural punctuation outside strings
func normalizeStructure(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case inString && r == '\\':
			escaped = true
		case r == '"':
			inString = !inString
		case !inString:
			if repl, ok := structuralPunctuation[r]; ok {
				r = repl
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// DecodeOutline validates an outline response: a non-empty array of
// objects with non-empty title and description. An object wrapping the
// array under "chapters" is accepted too.
func DecodeOutline(text string) ([]models.OutlineItem, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	var items []models.OutlineItem
	if strings.HasPrefix(raw, "{") {
		var wrapper struct {
			Chapters []models.OutlineItem `json:"chapters"`
		}
		if err := json.Unmarshal([]byte(raw), &wrapper); err != nil {
			return nil, fmt.Errorf("decode outline: %w", err)
		}
		items = wrapper.Chapters
	} else if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode outline: %w", err)
	}

	if len(items) == 0 {
		return nil, errors.New("outline has no chapters")
	}
	for i, item := range items {
		item.Title = strings.TrimSpace(item.Title)
		item.Description = strings.TrimSpace(item.Description)
		if item.Title == "" || item.Description == "" {
			return nil, fmt.Errorf("outline entry %d is missing title or description", i+1)
		}
		items[i] = item
	}
	return items, nil
}

// DecodePromptSuggestions validates a JSON array of strings. Blank entries are dropped.
func DecodePromptSuggestions(text string) ([]string, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var prompts []string
	if err := json.Unmarshal([]byte(raw), &prompts); err != nil {
		return nil, fmt.Errorf("decode prompt suggestions: %w", err)
	}
	out := make([]string, 0, len(prompts))
	for _, p := range prompts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}
