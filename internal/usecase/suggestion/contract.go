package suggestion

import (
	"context"
	"time"

	"github.com/khojilab/khoji/internal/domain"
	domsugg "github.com/khojilab/khoji/internal/domain/suggestion"
)

// Repository defines the storage contract for the suggestion engine.
type Repository interface {
	FindByPrefix(ctx context.Context, prefix string, language domain.Language, limit int) ([]domsugg.Suggestion, error)
	GetPopular(ctx context.Context, language domain.Language, limit int) ([]domsugg.Suggestion, error)
	Get(ctx context.Context, term string, language domain.Language) (domsugg.Suggestion, error)
	Save(ctx context.Context, s *domsugg.Suggestion) error
	Delete(ctx context.Context, term string, language domain.Language) error
	Cleanup(ctx context.Context, cutoff time.Time, minFrequency int64) (int, error)
}
