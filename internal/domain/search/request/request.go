package request

import (
	"fmt"
	"time"

	"github.com/khojilab/khoji/internal/domain"
)

const (
	// MaxQueryLength bounds the free-text query.
	MaxQueryLength = 200
	// MaxPageSize bounds one result page.
	MaxPageSize = 100
	// DefaultPageSize is used when the caller does not ask for one.
	DefaultPageSize = 20
)

// SortField selects the result ordering.
type SortField string

const (
	SortRelevance SortField = "relevance_score"
	SortCreatedAt SortField = "created_at"
	SortUpdatedAt SortField = "updated_at"
)

// Request is a validated search request (simple, single-query form).
type Request struct {
	query       string
	language    domain.Language    // optional, empty = all languages
	contentType domain.ContentType // optional, empty = all types
	filters     map[string]string
	page        int
	pageSize    int
	sortBy      SortField
	sortAsc     bool
}

// New validates and creates a search request.
func New(
	query string, language, contentType string,
	filters map[string]string,
	page, pageSize int, sortBy string, sortAsc bool,
) (Request, error) {
	if query == "" {
		return Request{}, fmt.Errorf("query is required: %w", domain.ErrValidation)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d): %w", MaxQueryLength, domain.ErrValidation)
	}

	r := Request{
		query:    query,
		filters:  filters,
		page:     page,
		pageSize: pageSize,
		sortBy:   SortRelevance,
		sortAsc:  sortAsc,
	}

	if language != "" {
		l, err := domain.ParseLanguage(language)
		if err != nil {
			return Request{}, err
		}
		r.language = l
	}
	if contentType != "" {
		ct, err := domain.ParseContentType(contentType)
		if err != nil {
			return Request{}, err
		}
		r.contentType = ct
	}
	if sortBy != "" {
		switch SortField(sortBy) {
		case SortRelevance, SortCreatedAt, SortUpdatedAt:
			r.sortBy = SortField(sortBy)
		default:
			return Request{}, fmt.Errorf("unknown sort field %q: %w", sortBy, domain.ErrValidation)
		}
	}
	if r.page < 1 {
		r.page = 1
	}
	if r.pageSize <= 0 {
		r.pageSize = DefaultPageSize
	}
	if r.pageSize > MaxPageSize {
		r.pageSize = MaxPageSize
	}

	return r, nil
}

// Query returns the free-text query.
func (r *Request) Query() string { return r.query }

// Language returns the optional language filter.
func (r *Request) Language() domain.Language { return r.language }

// ContentType returns the optional content-type filter.
func (r *Request) ContentType() domain.ContentType { return r.contentType }

// Filters returns the optional structured filters.
func (r *Request) Filters() map[string]string { return r.filters }

// Page returns the 1-based page number.
func (r *Request) Page() int { return r.page }

// PageSize returns the page size.
func (r *Request) PageSize() int { return r.pageSize }

// SortBy returns the sort field.
func (r *Request) SortBy() SortField { return r.sortBy }

// SortAsc reports ascending order (default is descending).
func (r *Request) SortAsc() bool { return r.sortAsc }

// Advanced is a structured search request: multiple content types and
// languages and an optional creation-date range instead of scalar filters.
type Advanced struct {
	Query         string
	ContentTypes  []domain.ContentType
	Languages     []domain.Language
	CreatedAfter  time.Time
	CreatedBefore time.Time
	Page          int
	PageSize      int
	SortBy        SortField
	SortAsc       bool
}

// Validate checks the structured filter lists.
func (a *Advanced) Validate() error {
	if a.Query == "" {
		return fmt.Errorf("query is required: %w", domain.ErrValidation)
	}
	for _, ct := range a.ContentTypes {
		if _, err := domain.ParseContentType(string(ct)); err != nil {
			return err
		}
	}
	for _, l := range a.Languages {
		if _, err := domain.ParseLanguage(string(l)); err != nil {
			return err
		}
	}
	if !a.CreatedAfter.IsZero() && !a.CreatedBefore.IsZero() && a.CreatedBefore.Before(a.CreatedAfter) {
		return fmt.Errorf("date range is inverted: %w", domain.ErrValidation)
	}
	if a.Page < 1 {
		a.Page = 1
	}
	if a.PageSize <= 0 {
		a.PageSize = DefaultPageSize
	}
	if a.PageSize > MaxPageSize {
		a.PageSize = MaxPageSize
	}
	if a.SortBy == "" {
		a.SortBy = SortRelevance
	}
	return nil
}
