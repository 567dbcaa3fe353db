package index

import (
	"context"
	"time"

	"github.com/khojilab/khoji/internal/domain"
	domdoc "github.com/khojilab/khoji/internal/domain/document"
)

// DocumentStore defines the storage contract for the reindex pipeline.
type DocumentStore interface {
	Create(ctx context.Context, doc *domdoc.Document) (domdoc.Document, bool, error)
	Get(ctx context.Context, id string) (domdoc.Document, error)
	GetByContentKey(ctx context.Context, key domain.ContentKey) (domdoc.Document, error)
	Update(ctx context.Context, id string, upd domdoc.Update) (domdoc.Document, error)
	UpdateRelevance(ctx context.Context, id string, score float64, indexedAt time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteByContentKey(ctx context.Context, key domain.ContentKey) (bool, error)
	ListIDs(ctx context.Context, contentType domain.ContentType) ([]string, error)
	EnsureIndex(ctx context.Context) error
}
