package chi

import (
	"time"

	"github.com/khojilab/khoji/internal/domain"
	domdoc "github.com/khojilab/khoji/internal/domain/document"
	domsugg "github.com/khojilab/khoji/internal/domain/suggestion"
	indexuc "github.com/khojilab/khoji/internal/usecase/index"
)

// documentResponse is the full admin view of an indexed document.
type documentResponse struct {
	ID             string               `json:"id"`
	ContentID      string               `json:"contentId"`
	ContentType    domain.ContentType   `json:"contentType"`
	Title          domain.LocalizedText `json:"title"`
	Body           domain.LocalizedText `json:"body,omitempty"`
	Description    domain.LocalizedText `json:"description,omitempty"`
	Tags           []string             `json:"tags,omitempty"`
	Language       domain.Language      `json:"language"`
	IsPublished    bool                 `json:"isPublished"`
	IsActive       bool                 `json:"isActive"`
	RelevanceScore float64              `json:"relevanceScore"`
	LastIndexedAt  time.Time            `json:"lastIndexedAt"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

func documentToResponse(d *domdoc.Document) documentResponse {
	key := d.ContentKey()
	return documentResponse{
		ID:             d.ID(),
		ContentID:      key.ID,
		ContentType:    key.Type,
		Title:          d.Title(),
		Body:           d.Body(),
		Description:    d.Description(),
		Tags:           d.Tags(),
		Language:       d.Language(),
		IsPublished:    d.IsPublished(),
		IsActive:       d.IsActive(),
		RelevanceScore: d.RelevanceScore(),
		LastIndexedAt:  d.LastIndexedAt(),
		CreatedAt:      d.CreatedAt(),
		UpdatedAt:      d.UpdatedAt(),
	}
}

// suggestionResponse is the admin and autocomplete view of a suggestion.
type suggestionResponse struct {
	Term        string             `json:"term"`
	Language    domain.Language    `json:"language"`
	ContentType domain.ContentType `json:"contentType,omitempty"`
	Frequency   int64              `json:"frequency"`
	LastUsedAt  time.Time          `json:"lastUsedAt"`
	IsActive    bool               `json:"isActive"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

func suggestionToResponse(sg *domsugg.Suggestion) suggestionResponse {
	return suggestionResponse{
		Term:        sg.Term(),
		Language:    sg.Language(),
		ContentType: sg.ContentType(),
		Frequency:   sg.Frequency(),
		LastUsedAt:  sg.LastUsedAt(),
		IsActive:    sg.IsActive(),
		CreatedAt:   sg.CreatedAt(),
		UpdatedAt:   sg.UpdatedAt(),
	}
}

func suggestionsToResponse(suggs []domsugg.Suggestion) []suggestionResponse {
	items := make([]suggestionResponse, len(suggs))
	for i := range suggs {
		items[i] = suggestionToResponse(&suggs[i])
	}
	return items
}

// contentBody is the text snapshot carried by document create requests
// and content-sync events.
type contentBody struct {
	Title       domain.LocalizedText `json:"title"`
	Body        domain.LocalizedText `json:"body"`
	Description domain.LocalizedText `json:"description"`
	Tags        []string             `json:"tags"`
	Language    string               `json:"language"`
	IsPublished bool                 `json:"isPublished"`
	IsActive    bool                 `json:"isActive"`
}

func (b *contentBody) payload() indexuc.ContentPayload {
	lang := domain.Language(b.Language)
	if b.Language == "" {
		lang = domain.LanguageEN
	}
	return indexuc.ContentPayload{
		Title:       b.Title,
		Body:        b.Body,
		Description: b.Description,
		Tags:        b.Tags,
		Language:    lang,
		IsPublished: b.IsPublished,
		IsActive:    b.IsActive,
	}
}
