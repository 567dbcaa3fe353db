package document

import (
	"time"

	"github.com/khojilab/khoji/internal/domain"
	domdoc "github.com/khojilab/khoji/internal/domain/document"
)

// docDTO is the RedisJSON shape of a search document. Field names line up
// with the FT index schema aliases in EnsureIndex.
type docDTO struct {
	ContentID      string            `json:"content_id"`
	ContentType    string            `json:"content_type"`
	Title          map[string]string `json:"title"`
	Body           map[string]string `json:"body,omitempty"`
	Description    map[string]string `json:"description,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	Language       string            `json:"language"`
	IsPublished    bool              `json:"is_published"`
	IsActive       bool              `json:"is_active"`
	RelevanceScore float64           `json:"relevance_score"`
	LastIndexedAt  int64             `json:"last_indexed_at"` // unix milli
	CreatedAt      int64             `json:"created_at"`
	UpdatedAt      int64             `json:"updated_at"`
}

func toDTO(doc *domdoc.Document) docDTO {
	return docDTO{
		ContentID:      doc.ContentKey().ID,
		ContentType:    string(doc.ContentKey().Type),
		Title:          localizedToStrings(doc.Title()),
		Body:           localizedToStrings(doc.Body()),
		Description:    localizedToStrings(doc.Description()),
		Tags:           doc.Tags(),
		Language:       string(doc.Language()),
		IsPublished:    doc.IsPublished(),
		IsActive:       doc.IsActive(),
		RelevanceScore: doc.RelevanceScore(),
		LastIndexedAt:  unixMilliOrZero(doc.LastIndexedAt()),
		CreatedAt:      unixMilliOrZero(doc.CreatedAt()),
		UpdatedAt:      unixMilliOrZero(doc.UpdatedAt()),
	}
}

func (d *docDTO) toDomain(id string) domdoc.Document {
	key := domain.ContentKey{ID: d.ContentID, Type: domain.ContentType(d.ContentType)}
	return domdoc.Reconstruct(
		id, key,
		stringsToLocalized(d.Title),
		stringsToLocalized(d.Body),
		stringsToLocalized(d.Description),
		d.Tags,
		domain.Language(d.Language),
		d.IsPublished, d.IsActive,
		d.RelevanceScore,
		timeOrZero(d.LastIndexedAt), timeOrZero(d.CreatedAt), timeOrZero(d.UpdatedAt),
	)
}

func localizedToStrings(t domain.LocalizedText) map[string]string {
	if t == nil {
		return nil
	}
	m := make(map[string]string, len(t))
	for lang, text := range t {
		m[string(lang)] = text
	}
	return m
}

func stringsToLocalized(m map[string]string) domain.LocalizedText {
	if m == nil {
		return nil
	}
	t := make(domain.LocalizedText, len(m))
	for lang, text := range m {
		t[domain.Language(lang)] = text
	}
	return t
}

func unixMilliOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func timeOrZero(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
