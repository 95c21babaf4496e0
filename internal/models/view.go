// internal/models/view.go
package models

import "fmt"

// ViewState is the active top-level view
type ViewState string

const (
	ViewOnboarding ViewState = "ONBOARDING"
	ViewOutline    ViewState = "OUTLINE"
	ViewEditor     ViewState = "EDITOR"
	ViewImages     ViewState = "IMAGES"
	ViewExport     ViewState = "EXPORT"
)

// ParseViewState accepts the persisted token of a view
func ParseViewState(token string) (ViewState, error) {
	switch v := ViewState(token); v {
	case ViewOnboarding, ViewOutline, ViewEditor, ViewImages, ViewExport:
		return v, nil
	}
	return "", fmt.Errorf("unknown view state %q", token)
}

// ImageTab is the sub-view of the images screen
type ImageTab string

const (
	ImageTabGenerate ImageTab = "generate"
	ImageTabGallery  ImageTab = "gallery"
)

func ParseImageTab(s string) (ImageTab, error) {
	switch t := ImageTab(s); t {
	case ImageTabGenerate, ImageTabGallery:
		return t, nil
	}
	return "", fmt.Errorf("unknown image tab %q", s)
}

// Language selects prompt language and user-visible messages
type Language string

const (
	LanguageEnglish    Language = "en"
	LanguagePortuguese Language = "pt"
)

func ParseLanguage(s string) (Language, error) {
	switch l := Language(s); l {
	case LanguageEnglish, LanguagePortuguese:
		return l, nil
	}
	return "", fmt.Errorf("unsupported language %q", s)
}
