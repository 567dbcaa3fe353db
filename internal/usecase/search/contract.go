package search

import (
	"context"

	"github.com/khojilab/khoji/internal/domain"
	domdoc "github.com/khojilab/khoji/internal/domain/document"
	domqlog "github.com/khojilab/khoji/internal/domain/querylog"
	"github.com/khojilab/khoji/internal/domain/search/request"
	domsugg "github.com/khojilab/khoji/internal/domain/suggestion"
)

// DocumentFinder defines the storage contract for search operations.
type DocumentFinder interface {
	Find(ctx context.Context, c request.Criteria) ([]domdoc.Document, int, error)
	// FindAll returns up to cap matches without pagination, used for
	// facet counts over the pre-pagination match set.
	FindAll(ctx context.Context, c request.Criteria, cap int) ([]domdoc.Document, error)
}

// Suggester supplies autocomplete terms and records term usage.
type Suggester interface {
	FindByPrefix(ctx context.Context, prefix string, language domain.Language, limit int) ([]domsugg.Suggestion, error)
	IncrementUsage(ctx context.Context, term string, language domain.Language) (int64, error)
}

// QueryLogger appends query records. Failures must never reach the caller.
type QueryLogger interface {
	Append(ctx context.Context, rec *domqlog.Record) error
}
