package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/khojilab/khoji/internal/domain"
	domqlog "github.com/khojilab/khoji/internal/domain/querylog"
)

// Defaults for the reporting windows.
const (
	DefaultWindowDays    = 30
	DefaultTopQueries    = 10
	DefaultRetentionDays = 90
)

// Repository defines the storage contract for the analytics aggregator.
// Appending records is the orchestrator's concern, not this service's.
type Repository interface {
	FindSince(ctx context.Context, since time.Time) ([]domqlog.Record, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// Options tune the aggregator.
type Options struct {
	TopQueries    int
	RetentionDays int
}

func (o *Options) applyDefaults() {
	if o.TopQueries <= 0 {
		o.TopQueries = DefaultTopQueries
	}
	if o.RetentionDays <= 0 {
		o.RetentionDays = DefaultRetentionDays
	}
}

// Service aggregates the append-only query log into popularity and usage
// reports. All breakdowns derive strictly from logged timestamps.
type Service struct {
	repo   Repository
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// New creates an analytics service.
func New(repo Repository, opts Options, logger *zap.Logger) *Service {
	opts.applyDefaults()
	return &Service{repo: repo, opts: opts, logger: logger, now: time.Now}
}

// PopularQueries groups records in the trailing window by exact query
// text, ordered by occurrence count descending, capped at limit.
func (s *Service) PopularQueries(
	ctx context.Context,
	language domain.Language, contentType domain.ContentType,
	windowDays, limit int,
) ([]domqlog.PopularQuery, error) {
	records, err := s.window(ctx, windowDays)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.opts.TopQueries
	}

	filtered := records[:0]
	for _, rec := range records {
		if language != "" && rec.Language != language {
			continue
		}
		if contentType != "" && rec.ContentType != contentType {
			continue
		}
		filtered = append(filtered, rec)
	}

	popular := aggregateQueries(filtered)
	if len(popular) > limit {
		popular = popular[:limit]
	}
	return popular, nil
}

// Analytics computes the full windowed report: totals, per-user rates,
// the top queries, zero-result share, and hour/day histograms.
func (s *Service) Analytics(ctx context.Context, windowDays int) (domqlog.Analytics, error) {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	records, err := s.window(ctx, windowDays)
	if err != nil {
		return domqlog.Analytics{}, err
	}

	report := domqlog.Analytics{
		WindowDays:   windowDays,
		TotalQueries: len(records),
		QueriesByDay: make(map[string]int),
	}

	users := make(map[string]struct{})
	resultsSum := 0
	for _, rec := range records {
		if rec.UserID != "" {
			users[rec.UserID] = struct{}{}
		}
		resultsSum += rec.ResultsCount
		if rec.ResultsCount == 0 {
			report.ZeroResultCount++
		}
		ts := rec.CreatedAt.UTC()
		report.QueriesByHour[ts.Hour()]++
		report.QueriesByDay[ts.Format("2006-01-02")]++
	}

	report.UniqueUsers = len(users)
	if report.UniqueUsers > 0 {
		report.AvgQueriesPerUser = float64(report.TotalQueries) / float64(report.UniqueUsers)
	}
	if report.TotalQueries > 0 {
		report.AvgResultsCount = float64(resultsSum) / float64(report.TotalQueries)
	}

	popular := aggregateQueries(records)
	if len(popular) > s.opts.TopQueries {
		popular = popular[:s.opts.TopQueries]
	}
	report.PopularQueries = popular

	return report, nil
}

// Purge hard-deletes records older than the retention horizon.
func (s *Service) Purge(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -s.opts.RetentionDays)
	removed, err := s.repo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge query log: %w", err)
	}
	if removed > 0 {
		s.logger.Info("query log purge finished",
			zap.Int("removed", removed),
			zap.Time("cutoff", cutoff),
		)
	}
	return removed, nil
}

func (s *Service) window(ctx context.Context, windowDays int) ([]domqlog.Record, error) {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	since := s.now().UTC().AddDate(0, 0, -windowDays)
	records, err := s.repo.FindSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("load query window: %w", err)
	}
	return records, nil
}

// aggregateQueries groups by exact query text. Ties break on most recent
// use so the ordering is stable across runs.
func aggregateQueries(records []domqlog.Record) []domqlog.PopularQuery {
	type bucket struct {
		count      int
		lastUsed   int64
		resultsSum int
	}
	buckets := make(map[string]*bucket)
	for _, rec := range records {
		b, ok := buckets[rec.Query]
		if !ok {
			b = &bucket{}
			buckets[rec.Query] = b
		}
		b.count++
		b.resultsSum += rec.ResultsCount
		if ms := rec.CreatedAt.UnixMilli(); ms > b.lastUsed {
			b.lastUsed = ms
		}
	}

	popular := make([]domqlog.PopularQuery, 0, len(buckets))
	for query, b := range buckets {
		popular = append(popular, domqlog.PopularQuery{
			Query:          query,
			Count:          b.count,
			LastSearchedAt: b.lastUsed,
			AvgResults:     float64(b.resultsSum) / float64(b.count),
		})
	}
	sort.Slice(popular, func(i, j int) bool {
		if popular[i].Count != popular[j].Count {
			return popular[i].Count > popular[j].Count
		}
		return popular[i].LastSearchedAt > popular[j].LastSearchedAt
	})
	return popular
}
