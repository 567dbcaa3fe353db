package request

import (
	"time"

	"github.com/khojilab/khoji/internal/domain"
)

// Criteria is the storage-level match predicate shared by simple and
// advanced search: an optional substring query plus structural filters.
// Visibility defaults (published + active only) are applied by callers
// that serve public traffic.
type Criteria struct {
	Text          string // case-insensitive substring, empty = no text predicate
	ContentTypes  []domain.ContentType
	Languages     []domain.Language
	IsPublished   *bool
	IsActive      *bool
	CreatedAfter  time.Time
	CreatedBefore time.Time

	Offset   int
	Limit    int
	SortBy   SortField
	SortDesc bool
}

// PublicOnly returns a copy restricted to published, active documents.
func (c Criteria) PublicOnly() Criteria {
	t := true
	c.IsPublished = &t
	c.IsActive = &t
	return c
}

// CriteriaFrom builds storage criteria from a simple request.
func CriteriaFrom(r *Request) Criteria {
	c := Criteria{
		Text:     r.Query(),
		Offset:   (r.Page() - 1) * r.PageSize(),
		Limit:    r.PageSize(),
		SortBy:   r.SortBy(),
		SortDesc: !r.SortAsc(),
	}
	if r.ContentType() != "" {
		c.ContentTypes = []domain.ContentType{r.ContentType()}
	}
	if r.Language() != "" {
		c.Languages = []domain.Language{r.Language()}
	}
	return c
}

// CriteriaFromAdvanced builds storage criteria from a structured request.
func CriteriaFromAdvanced(a *Advanced) Criteria {
	return Criteria{
		Text:          a.Query,
		ContentTypes:  a.ContentTypes,
		Languages:     a.Languages,
		CreatedAfter:  a.CreatedAfter,
		CreatedBefore: a.CreatedBefore,
		Offset:        (a.Page - 1) * a.PageSize,
		Limit:         a.PageSize,
		SortBy:        a.SortBy,
		SortDesc:      !a.SortAsc,
	}
}
