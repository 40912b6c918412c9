// Package validate normalizes translation input and checks language codes
// against the configured allow-list.
package validate

import "strings"

// Validator holds the sanitization and language rules derived from config.
// All methods are pure; a single instance is shared across requests.
type Validator struct {
	maxTextLength int
	languages     map[string]struct{}
}

func New(maxTextLength int, languages []string) *Validator {
	set := make(map[string]struct{}, len(languages))
	for _, lang := range languages {
		set[strings.ToLower(lang)] = struct{}{}
	}
	return &Validator{maxTextLength: maxTextLength, languages: set}
}

// Sanitize strips null bytes, trims surrounding whitespace, and truncates the
// text to the configured maximum length. Truncation is a plain prefix cut.
func (v *Validator) Sanitize(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.TrimSpace(text)
	if runes := []rune(text); len(runes) > v.maxTextLength {
		text = string(runes[:v.maxTextLength])
	}
	return text
}

// SupportedLanguage reports whether code is in the allow-list. The check is
// case-insensitive; the empty string is never supported.
func (v *Validator) SupportedLanguage(code string) bool {
	if code == "" {
		return false
	}
	_, ok := v.languages[strings.ToLower(code)]
	return ok
}

// MaxTextLength returns the configured truncation limit.
func (v *Validator) MaxTextLength() int {
	return v.maxTextLength
}
