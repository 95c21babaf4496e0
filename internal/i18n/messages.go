// internal/i18n/messages.go
package i18n

import (
	"fmt"

	"github.com/Corphon/EbookGen/internal/models"
)

// Key identifies a user-visible message
type Key string

const (
	MissingCredential Key = "missing_credential"
	OutlineFailed     Key = "outline_failed"
	ChapterFailed     Key = "chapter_failed"
	ImageFailed       Key = "image_failed"
	AlreadyRunning    Key = "already_running"
	InvalidTransition Key = "invalid_transition"
	ChapterNotFound   Key = "chapter_not_found"
	ImageNotFound     Key = "image_not_found"
	EmptyPrompt       Key = "empty_prompt"
	MissingIdentity   Key = "missing_identity"
	SelectChapter     Key = "select_chapter"
	GeneralMarketing  Key = "general_marketing"
	BookTitle         Key = "book_title"
	ExportSummary     Key = "export_summary"
	ProjectReset      Key = "project_reset"
)

var catalog = map[models.Language]map[Key]string{
	models.LanguageEnglish: {
		MissingCredential: "Please enter your Gemini API Key.",
		OutlineFailed:     "Failed to generate outline: %s.",
		ChapterFailed:     "Error generating chapter: %s",
		ImageFailed:       "Failed to generate image: %s",
		AlreadyRunning:    "A generation for this item is already in progress.",
		InvalidTransition: "That screen is not available yet.",
		ChapterNotFound:   "Chapter not found.",
		ImageNotFound:     "Image not found.",
		EmptyPrompt:       "Describe the image you want to create.",
		MissingIdentity:   "Business name and niche are required.",
		SelectChapter:     "Select a chapter from the sidebar to begin editing.",
		GeneralMarketing:  "General Marketing",
		BookTitle:         "Scaling Your %s Business with AI",
		ExportSummary:     "\"Scaling Your %s Business with AI\" contains %d completed chapters and %d generated assets.",
		ProjectReset:      "The project was reset before the result arrived.",
	},
	models.LanguagePortuguese: {
		MissingCredential: "Por favor, insira sua Chave API Gemini.",
		OutlineFailed:     "Falha ao gerar o esboço: %s.",
		ChapterFailed:     "Erro ao gerar capítulo: %s",
		ImageFailed:       "Falha ao gerar imagem: %s",
		AlreadyRunning:    "Já existe uma geração em andamento para este item.",
		InvalidTransition: "Esta tela ainda não está disponível.",
		ChapterNotFound:   "Capítulo não encontrado.",
		ImageNotFound:     "Imagem não encontrada.",
		EmptyPrompt:       "Descreva a imagem que você deseja criar.",
		MissingIdentity:   "Nome da empresa e nicho são obrigatórios.",
		SelectChapter:     "Selecione um capítulo na barra lateral para começar a editar.",
		GeneralMarketing:  "Marketing Geral",
		BookTitle:         "Escalando Seu Negócio de %s com IA",
		ExportSummary:     "\"Escalando Seu Negócio de %s com IA\" contém %d capítulos concluídos e %d recursos gerados.",
		ProjectReset:      "O projeto foi reiniciado antes de o resultado chegar.",
	},
}

// T formats the message for lang, falling back to English
func T(lang models.Language, key Key, args ...interface{}) string {
	msgs, ok := catalog[lang]
	if !ok {
		msgs = catalog[models.LanguageEnglish]
	}
	format, ok := msgs[key]
	if !ok {
		format = catalog[models.LanguageEnglish][key]
	}
	if format == "" {
		return string(key)
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
