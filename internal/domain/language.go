package domain

import "fmt"

// Language is a BCP-47-ish primary language tag. The index is bilingual:
// every localized field carries an English and a Nepali variant.
type Language string

const (
	LanguageEN Language = "en"
	LanguageNE Language = "ne"
)

// Languages lists the configured languages, in ranking order.
func Languages() []Language {
	return []Language{LanguageEN, LanguageNE}
}

// ParseLanguage validates a language tag.
func ParseLanguage(s string) (Language, error) {
	l := Language(s)
	for _, known := range Languages() {
		if l == known {
			return l, nil
		}
	}
	return "", fmt.Errorf("unsupported language %q: %w", s, ErrValidation)
}

// LocalizedText holds one plain-text value per language.
type LocalizedText map[Language]string

// Get returns the text for a language, empty when absent.
func (t LocalizedText) Get(l Language) string {
	if t == nil {
		return ""
	}
	return t[l]
}

// IsEmpty reports whether no language has text.
func (t LocalizedText) IsEmpty() bool {
	for _, v := range t {
		if v != "" {
			return false
		}
	}
	return true
}

// Clone returns a copy of the map (nil stays nil).
func (t LocalizedText) Clone() LocalizedText {
	if t == nil {
		return nil
	}
	c := make(LocalizedText, len(t))
	for k, v := range t {
		c[k] = v
	}
	return c
}
