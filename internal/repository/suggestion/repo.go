package suggestion

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/khojilab/khoji/internal/db"
	"github.com/khojilab/khoji/internal/domain"
	domsugg "github.com/khojilab/khoji/internal/domain/suggestion"
)

// DefaultKeyPrefix namespaces all suggestion keys.
const DefaultKeyPrefix = "khoji:"

// store is the consumer interface for the suggestion engine (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo stores suggestions as one hash per (language, normalized term).
// Frequency lives in a single hash field so concurrent increments resolve
// at the storage layer instead of a read-modify-write in process.
type Repo struct {
	store  store
	prefix string
	logger *zap.Logger
}

// New creates a suggestion repository.
func New(s store, logger *zap.Logger) *Repo {
	return &Repo{store: s, prefix: DefaultKeyPrefix, logger: logger}
}

// WithKeyPrefix overrides the key namespace.
func (r *Repo) WithKeyPrefix(prefix string) *Repo {
	if prefix != "" {
		r.prefix = prefix
	}
	return r
}

// IncrementUsage atomically bumps the term's frequency and refreshes
// lastUsedAt. A first increment (new value == 1) means the term is novel,
// so the descriptive fields are written too. Returns the new frequency.
func (r *Repo) IncrementUsage(ctx context.Context, term string, language domain.Language) (int64, error) {
	normalized := domsugg.NormalizeTerm(term)
	if err := domsugg.ValidateTerm(normalized); err != nil {
		return 0, err
	}
	key := r.suggKey(language, normalized)
	now := time.Now().UTC()

	freq, err := r.store.HIncrBy(ctx, key, fieldFrequency, 1)
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", normalized, err)
	}

	fields := map[string]string{
		fieldLastUsedAt: strconv.FormatInt(now.UnixMilli(), 10),
		fieldUpdatedAt:  strconv.FormatInt(now.UnixMilli(), 10),
	}
	if freq == 1 {
		fields[fieldTerm] = normalized
		fields[fieldLanguage] = string(language)
		fields[fieldIsActive] = "1"
		fields[fieldCreatedAt] = strconv.FormatInt(now.UnixMilli(), 10)
	}
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return 0, fmt.Errorf("touch %s: %w", normalized, err)
	}
	return freq, nil
}

// FindByPrefix returns active suggestions whose term starts with the
// normalized prefix, ordered by frequency descending, capped at limit.
func (r *Repo) FindByPrefix(ctx context.Context, prefix string, language domain.Language, limit int) ([]domsugg.Suggestion, error) {
	normalized := domsugg.NormalizeTerm(prefix)
	pattern := r.langPrefix(language) + escapeGlob(normalized) + "*"

	suggestions, err := r.loadByPattern(ctx, pattern)
	if err != nil {
		return nil, err
	}

	active := suggestions[:0]
	for _, s := range suggestions {
		if s.IsActive() {
			active = append(active, s)
		}
	}
	sortByFrequency(active)
	if limit > 0 && len(active) > limit {
		active = active[:limit]
	}
	return active, nil
}

// GetPopular returns the most frequent active suggestions for a language.
func (r *Repo) GetPopular(ctx context.Context, language domain.Language, limit int) ([]domsugg.Suggestion, error) {
	return r.FindByPrefix(ctx, "", language, limit)
}

// Get returns one suggestion by (term, language).
func (r *Repo) Get(ctx context.Context, term string, language domain.Language) (domsugg.Suggestion, error) {
	normalized := domsugg.NormalizeTerm(term)
	fields, err := r.store.HGetAll(ctx, r.suggKey(language, normalized))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domsugg.Suggestion{}, domain.ErrSuggestionNotFound
		}
		return domsugg.Suggestion{}, fmt.Errorf("hgetall %s: %w", normalized, err)
	}
	if len(fields) == 0 {
		return domsugg.Suggestion{}, domain.ErrSuggestionNotFound
	}
	return fromFields(fields), nil
}

// Save writes a suggestion in full, creating or replacing it. Used by the
// administrative CRUD surface; searches go through IncrementUsage.
func (r *Repo) Save(ctx context.Context, s *domsugg.Suggestion) error {
	key := r.suggKey(s.Language(), s.Term())
	if err := r.store.HSet(ctx, key, toFields(s)); err != nil {
		return fmt.Errorf("save %s: %w", s.Term(), err)
	}
	return nil
}

// Delete removes a suggestion by (term, language).
func (r *Repo) Delete(ctx context.Context, term string, language domain.Language) error {
	normalized := domsugg.NormalizeTerm(term)
	key := r.suggKey(language, normalized)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", normalized, err)
	}
	if !exists {
		return domain.ErrSuggestionNotFound
	}
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", normalized, err)
	}
	return nil
}

// Cleanup deletes suggestions last used before the cutoff whose frequency
// is below minFrequency. Returns the number removed; per-key delete
// failures are logged and skipped so one bad key never aborts the sweep.
func (r *Repo) Cleanup(ctx context.Context, cutoff time.Time, minFrequency int64) (int, error) {
	keys, err := r.store.Scan(ctx, r.prefix+"sugg:*")
	if err != nil {
		return 0, fmt.Errorf("scan suggestions: %w", err)
	}

	all, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return 0, fmt.Errorf("load suggestions: %w", err)
	}

	removed := 0
	for i, fields := range all {
		if len(fields) == 0 {
			continue
		}
		s := fromFields(fields)
		if !s.Stale(cutoff, minFrequency) {
			continue
		}
		if err := r.store.Del(ctx, keys[i]); err != nil {
			r.logger.Warn("cleanup delete failed",
				zap.String("key", keys[i]),
				zap.Error(err),
			)
			continue
		}
		removed++
	}
	return removed, nil
}

func (r *Repo) loadByPattern(ctx context.Context, pattern string) ([]domsugg.Suggestion, error) {
	keys, err := r.store.Scan(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("scan suggestions: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	all, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load suggestions: %w", err)
	}

	suggestions := make([]domsugg.Suggestion, 0, len(all))
	for _, fields := range all {
		if len(fields) == 0 {
			continue
		}
		suggestions = append(suggestions, fromFields(fields))
	}
	return suggestions, nil
}

func sortByFrequency(suggestions []domsugg.Suggestion) {
	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Frequency() != suggestions[j].Frequency() {
			return suggestions[i].Frequency() > suggestions[j].Frequency()
		}
		return suggestions[i].Term() < suggestions[j].Term()
	})
}

func (r *Repo) suggKey(language domain.Language, term string) string {
	return r.langPrefix(language) + term
}

func (r *Repo) langPrefix(language domain.Language) string {
	return fmt.Sprintf("%ssugg:%s:", r.prefix, language)
}

// escapeGlob neutralizes SCAN glob metacharacters in user input.
func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}

var globEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
)
