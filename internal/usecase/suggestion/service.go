package suggestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/khojilab/khoji/internal/domain"
	domsugg "github.com/khojilab/khoji/internal/domain/suggestion"
)

// Defaults for the cleanup policy and result caps.
const (
	DefaultRetentionDays = 30
	DefaultMinFrequency  = 2
	DefaultMaxResults    = 10
)

// Options tune the suggestion engine.
type Options struct {
	RetentionDays int
	MinFrequency  int64
	MaxResults    int
}

func (o *Options) applyDefaults() {
	if o.RetentionDays <= 0 {
		o.RetentionDays = DefaultRetentionDays
	}
	if o.MinFrequency <= 0 {
		o.MinFrequency = DefaultMinFrequency
	}
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
}

// Service is the suggestion engine: autocomplete lookups, popularity
// listing, the cleanup sweep, and validated administrative CRUD.
type Service struct {
	repo   Repository
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// New creates a suggestion service.
func New(repo Repository, opts Options, logger *zap.Logger) *Service {
	opts.applyDefaults()
	return &Service{repo: repo, opts: opts, logger: logger, now: time.Now}
}

// Suggest returns up to limit active suggestions starting with the
// prefix. Prefixes shorter than the minimum term length yield an empty
// list rather than an error: a one-letter prefix is normal typing, not
// a caller bug.
func (s *Service) Suggest(ctx context.Context, prefix string, language domain.Language, limit int) ([]domsugg.Suggestion, error) {
	normalized := domsugg.NormalizeTerm(prefix)
	if len([]rune(normalized)) < domsugg.MinTermLength {
		return nil, nil
	}
	if limit <= 0 || limit > s.opts.MaxResults {
		limit = s.opts.MaxResults
	}

	suggs, err := s.repo.FindByPrefix(ctx, normalized, language, limit)
	if err != nil {
		return nil, fmt.Errorf("find by prefix: %w", err)
	}
	return suggs, nil
}

// Popular returns the most frequently used active suggestions.
func (s *Service) Popular(ctx context.Context, language domain.Language, limit int) ([]domsugg.Suggestion, error) {
	if limit <= 0 || limit > s.opts.MaxResults {
		limit = s.opts.MaxResults
	}
	suggs, err := s.repo.GetPopular(ctx, language, limit)
	if err != nil {
		return nil, fmt.Errorf("get popular: %w", err)
	}
	return suggs, nil
}

// Get returns one suggestion by (term, language).
func (s *Service) Get(ctx context.Context, term string, language domain.Language) (domsugg.Suggestion, error) {
	return s.repo.Get(ctx, term, language)
}

// Create adds a curated suggestion with an explicit frequency.
func (s *Service) Create(
	ctx context.Context,
	term string, language domain.Language, contentType domain.ContentType,
	frequency int64,
) (domsugg.Suggestion, error) {
	if err := domsugg.ValidateFrequency(frequency); err != nil {
		return domsugg.Suggestion{}, err
	}

	created, err := domsugg.New(term, language, contentType)
	if err != nil {
		return domsugg.Suggestion{}, err
	}

	if _, err := s.repo.Get(ctx, created.Term(), language); err == nil {
		return domsugg.Suggestion{}, fmt.Errorf("suggestion %q already exists: %w", created.Term(), domain.ErrValidation)
	} else if !errors.Is(err, domain.ErrSuggestionNotFound) {
		return domsugg.Suggestion{}, fmt.Errorf("check existing: %w", err)
	}

	now := s.now().UTC()
	if frequency == 0 {
		frequency = 1
	}
	stored := domsugg.Reconstruct(
		created.Term(), language, contentType,
		frequency, now, true, now, now,
	)
	if err := s.repo.Save(ctx, &stored); err != nil {
		return domsugg.Suggestion{}, err
	}
	return stored, nil
}

// UpdateFields is the administrative partial update for a suggestion.
type UpdateFields struct {
	Frequency *int64
	IsActive  *bool
}

// Update applies curated changes to an existing suggestion.
func (s *Service) Update(ctx context.Context, term string, language domain.Language, upd UpdateFields) (domsugg.Suggestion, error) {
	existing, err := s.repo.Get(ctx, term, language)
	if err != nil {
		return domsugg.Suggestion{}, err
	}

	frequency := existing.Frequency()
	if upd.Frequency != nil {
		if err := domsugg.ValidateFrequency(*upd.Frequency); err != nil {
			return domsugg.Suggestion{}, err
		}
		frequency = *upd.Frequency
	}
	isActive := existing.IsActive()
	if upd.IsActive != nil {
		isActive = *upd.IsActive
	}

	updated := domsugg.Reconstruct(
		existing.Term(), existing.Language(), existing.ContentType(),
		frequency, existing.LastUsedAt(), isActive,
		existing.CreatedAt(), s.now().UTC(),
	)
	if err := s.repo.Save(ctx, &updated); err != nil {
		return domsugg.Suggestion{}, err
	}
	return updated, nil
}

// Delete removes a suggestion by (term, language).
func (s *Service) Delete(ctx context.Context, term string, language domain.Language) error {
	return s.repo.Delete(ctx, term, language)
}

// Cleanup sweeps out suggestions last used before the retention window
// whose frequency is below the minimum. Returns the number removed.
func (s *Service) Cleanup(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -s.opts.RetentionDays)
	removed, err := s.repo.Cleanup(ctx, cutoff, s.opts.MinFrequency)
	if err != nil {
		return 0, fmt.Errorf("cleanup: %w", err)
	}
	if removed > 0 {
		s.logger.Info("suggestion cleanup finished",
			zap.Int("removed", removed),
			zap.Time("cutoff", cutoff),
		)
	}
	return removed, nil
}
