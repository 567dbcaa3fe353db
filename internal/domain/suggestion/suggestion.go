package suggestion

import (
	"fmt"
	"strings"
	"time"

	"github.com/khojilab/khoji/internal/domain"
)

const (
	// MinTermLength is the minimum term length after trimming.
	MinTermLength = 2
	// MaxTermLength is the maximum term length after trimming.
	MaxTermLength = 100
)

// Suggestion is an autocomplete candidate ranked by historical usage.
// One row exists per (normalized term, language); frequency only grows
// via increments and shrinks only by deletion during cleanup.
type Suggestion struct {
	term        string
	language    domain.Language
	contentType domain.ContentType // optional scope, empty = all
	frequency   int64
	lastUsedAt  time.Time
	isActive    bool
	createdAt   time.Time
	updatedAt   time.Time
}

// NormalizeTerm lowercases and trims a term for case-insensitive comparison.
func NormalizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

// New validates and creates a Suggestion with frequency 1.
func New(term string, language domain.Language, contentType domain.ContentType) (Suggestion, error) {
	normalized := NormalizeTerm(term)
	if err := ValidateTerm(normalized); err != nil {
		return Suggestion{}, err
	}
	if _, err := domain.ParseLanguage(string(language)); err != nil {
		return Suggestion{}, err
	}
	if contentType != "" {
		if _, err := domain.ParseContentType(string(contentType)); err != nil {
			return Suggestion{}, err
		}
	}
	return Suggestion{
		term:        normalized,
		language:    language,
		contentType: contentType,
		frequency:   1,
		isActive:    true,
	}, nil
}

// Reconstruct creates a Suggestion without validation (storage hydration).
func Reconstruct(
	term string, language domain.Language, contentType domain.ContentType,
	frequency int64, lastUsedAt time.Time, isActive bool,
	createdAt, updatedAt time.Time,
) Suggestion {
	return Suggestion{
		term: term, language: language, contentType: contentType,
		frequency: frequency, lastUsedAt: lastUsedAt, isActive: isActive,
		createdAt: createdAt, updatedAt: updatedAt,
	}
}

// ValidateTerm checks length bounds on an already-normalized term.
func ValidateTerm(term string) error {
	n := len([]rune(term))
	if n < MinTermLength || n > MaxTermLength {
		return fmt.Errorf(
			"term length must be between %d and %d characters: %w",
			MinTermLength, MaxTermLength, domain.ErrValidation,
		)
	}
	return nil
}

// ValidateFrequency rejects negative explicit frequencies.
func ValidateFrequency(frequency int64) error {
	if frequency < 0 {
		return fmt.Errorf("frequency must be non-negative: %w", domain.ErrValidation)
	}
	return nil
}

// Term returns the normalized term.
func (s *Suggestion) Term() string { return s.term }

// Language returns the language scope.
func (s *Suggestion) Language() domain.Language { return s.language }

// ContentType returns the optional content-type scope (empty = all).
func (s *Suggestion) ContentType() domain.ContentType { return s.contentType }

// Frequency returns the usage count.
func (s *Suggestion) Frequency() int64 { return s.frequency }

// LastUsedAt returns the most recent usage time.
func (s *Suggestion) LastUsedAt() time.Time { return s.lastUsedAt }

// IsActive reports whether the suggestion is served to callers.
func (s *Suggestion) IsActive() bool { return s.isActive }

// CreatedAt returns the creation time.
func (s *Suggestion) CreatedAt() time.Time { return s.createdAt }

// UpdatedAt returns the last modification time.
func (s *Suggestion) UpdatedAt() time.Time { return s.updatedAt }

// Stale reports whether the suggestion qualifies for cleanup: last used
// before the retention cutoff AND below the minimum frequency.
func (s *Suggestion) Stale(cutoff time.Time, minFrequency int64) bool {
	return s.lastUsedAt.Before(cutoff) && s.frequency < minFrequency
}
