// internal/llm/prompts.go
package llm

import (
	"fmt"

	"github.com/Corphon/EbookGen/internal/models"
)

// OutlineChapterCount is the number of chapters requested from the model.
// Responses with a different count are accepted as-is.
const OutlineChapterCount = 6

var outlineSchema = &Schema{
	Type: "ARRAY",
	Items: &Schema{
		Type: "OBJECT",
		Properties: map[string]*Schema{
			"title":       {Type: "STRING"},
			"description": {Type: "STRING"},
		},
		Required: []string{"title", "description"},
	},
}

var promptListSchema = &Schema{
	Type:  "ARRAY",
	Items: &Schema{Type: "STRING"},
}

func languageInstruction(lang models.Language) string {
	if lang == models.LanguagePortuguese {
		return "in Brazilian Portuguese"
	}
	return "in English"
}

func languageName(lang models.Language) string {
	if lang == models.LanguagePortuguese {
		return "Brazilian Portuguese"
	}
	return "English"
}

// BookTitle is the working title used in prompts and exports
func BookTitle(niche string) string {
	return fmt.Sprintf("Scaling Your %s Business with AI", niche)
}

func outlinePrompt(niche, businessName string, lang models.Language) string {
	return fmt.Sprintf(`Create a %d-chapter outline for an ebook titled "%s".
The ebook is designed for a small entrepreneur running a business named "%s".
Focus on practical marketing automation, content creation, and operational efficiency using AI.

IMPORTANT: The content of the outline (titles and descriptions) MUST be written %s.

Return a JSON array of objects with 'title' and 'description' keys.`,
		OutlineChapterCount, BookTitle(niche), businessName, languageInstruction(lang))
}

func chapterPrompt(title, description, niche, businessName string, lang models.Language) string {
	return fmt.Sprintf(`Write a comprehensive, engaging, and actionable chapter for an ebook.

**Context:**
- Book Title: %s
- Business Name: %s
- Chapter Title: %s
- Chapter Description: %s
- Audience: Small Business Owner

**Requirements:**
- Language: %s
- Use Markdown formatting (headers, bolding, lists).
- Provide concrete examples relevant to the %s industry.
- Tone: Professional, encouraging, and forward-thinking.
- Length: Approximately 800-1000 words.
- Do not wrap the output in JSON or code blocks, just raw Markdown.`,
		BookTitle(niche), businessName, title, description, languageName(lang), niche)
}

func suggestionPrompt(niche, contextLabel string, lang models.Language) string {
	return fmt.Sprintf(`Suggest 3 creative image prompts for an AI image generator.
These images will be used as illustrations for a chapter titled "%s"
in a business ebook about the %s industry.

The prompts should be written %s.
Return a JSON array of strings.`, contextLabel, niche, languageInstruction(lang))
}
