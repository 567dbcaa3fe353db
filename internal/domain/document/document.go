package document

import (
	"fmt"
	"time"

	"github.com/khojilab/khoji/internal/domain"
)

// MaxBodySize is the maximum body size per language variant in bytes.
const MaxBodySize = 163840 // 160KB

// Document is one denormalized, indexed copy of a piece of external
// content. It is a cache keyed by (ContentID, ContentType); the owning
// content module remains the source of truth for every text field.
type Document struct {
	id          string
	contentKey  domain.ContentKey
	title       domain.LocalizedText
	body        domain.LocalizedText
	description domain.LocalizedText
	tags        []string
	language    domain.Language

	isPublished bool
	isActive    bool

	relevanceScore float64
	lastIndexedAt  time.Time
	createdAt      time.Time
	updatedAt      time.Time
}

// New validates and creates a Document. The relevance score is set later
// by the reindex pipeline; timestamps are assigned by the repository.
func New(
	contentKey domain.ContentKey,
	title, body, description domain.LocalizedText,
	tags []string,
	language domain.Language,
	isPublished, isActive bool,
) (Document, error) {
	if contentKey.ID == "" {
		return Document{}, fmt.Errorf("content key is required: %w", domain.ErrValidation)
	}
	if _, err := domain.ParseLanguage(string(language)); err != nil {
		return Document{}, err
	}
	if title.IsEmpty() {
		return Document{}, fmt.Errorf("title is required in at least one language: %w", domain.ErrValidation)
	}
	for lang, text := range body {
		if len(text) > MaxBodySize {
			return Document{}, fmt.Errorf("body.%s too large (max %d bytes): %w", lang, MaxBodySize, domain.ErrValidation)
		}
	}

	return Document{
		contentKey:  contentKey,
		title:       title.Clone(),
		body:        body.Clone(),
		description: description.Clone(),
		tags:        cloneTags(tags),
		language:    language,
		isPublished: isPublished,
		isActive:    isActive,
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(
	id string,
	contentKey domain.ContentKey,
	title, body, description domain.LocalizedText,
	tags []string,
	language domain.Language,
	isPublished, isActive bool,
	relevanceScore float64,
	lastIndexedAt, createdAt, updatedAt time.Time,
) Document {
	return Document{
		id: id, contentKey: contentKey,
		title: title, body: body, description: description,
		tags: tags, language: language,
		isPublished: isPublished, isActive: isActive,
		relevanceScore: relevanceScore,
		lastIndexedAt:  lastIndexedAt, createdAt: createdAt, updatedAt: updatedAt,
	}
}

// ID returns the index-assigned document identifier.
func (d *Document) ID() string { return d.id }

// ContentKey returns the (contentId, contentType) pair this document mirrors.
func (d *Document) ContentKey() domain.ContentKey { return d.contentKey }

// Title returns the per-language title map.
func (d *Document) Title() domain.LocalizedText { return d.title }

// Body returns the per-language body map.
func (d *Document) Body() domain.LocalizedText { return d.body }

// Description returns the per-language description map.
func (d *Document) Description() domain.LocalizedText { return d.description }

// Tags returns the free-text labels.
func (d *Document) Tags() []string { return d.tags }

// Language returns the document's primary language.
func (d *Document) Language() domain.Language { return d.language }

// IsPublished reports public visibility.
func (d *Document) IsPublished() bool { return d.isPublished }

// IsActive reports whether the document participates in queries.
func (d *Document) IsActive() bool { return d.isActive }

// RelevanceScore returns the document-intrinsic ranking signal.
func (d *Document) RelevanceScore() float64 { return d.relevanceScore }

// LastIndexedAt returns the last reindex time.
func (d *Document) LastIndexedAt() time.Time { return d.lastIndexedAt }

// CreatedAt returns the index insertion time.
func (d *Document) CreatedAt() time.Time { return d.createdAt }

// UpdatedAt returns the last modification time.
func (d *Document) UpdatedAt() time.Time { return d.updatedAt }

// SetID assigns the identifier on insert.
func (d *Document) SetID(id string) { d.id = id }

// SetRelevanceScore updates the ranking signal (reindex only).
func (d *Document) SetRelevanceScore(score float64) { d.relevanceScore = score }

// Touch refreshes the index bookkeeping timestamps.
func (d *Document) Touch(indexedAt time.Time) {
	d.lastIndexedAt = indexedAt
	d.updatedAt = indexedAt
}

func cloneTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	c := make([]string, len(tags))
	copy(c, tags)
	return c
}
