package search

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/khojilab/khoji/internal/domain"
	domdoc "github.com/khojilab/khoji/internal/domain/document"
	domqlog "github.com/khojilab/khoji/internal/domain/querylog"
	"github.com/khojilab/khoji/internal/domain/search/request"
	"github.com/khojilab/khoji/internal/domain/search/result"
	"github.com/khojilab/khoji/internal/metrics"
)

const (
	// DefaultSnippetLength bounds snippets in runes before the ellipsis.
	DefaultSnippetLength = 160
	// DefaultFacetScanCap bounds how many pre-pagination matches feed
	// the facet counts.
	DefaultFacetScanCap = 1000
	// MaxSuggestions caps the autocomplete terms attached to a response.
	MaxSuggestions = 5

	logTimeout = 3 * time.Second
)

// Options tune the orchestrator's presentation behavior.
type Options struct {
	SnippetLength int
	FacetScanCap  int
	// URLTemplates maps content types to URL templates with a
	// {contentId} placeholder. Types without an override use
	// /<type>/<contentId>.
	URLTemplates map[domain.ContentType]string
}

func (o *Options) applyDefaults() {
	if o.SnippetLength <= 0 {
		o.SnippetLength = DefaultSnippetLength
	}
	if o.FacetScanCap <= 0 {
		o.FacetScanCap = DefaultFacetScanCap
	}
}

// ClientInfo is request metadata captured into the query log.
type ClientInfo struct {
	IPAddress string
	UserAgent string
	UserID    string
}

// Service orchestrates a search: delegate to the index store, rank and
// decorate the hits, compute facets, attach suggestions best-effort, and
// log the query without blocking the response.
type Service struct {
	docs   DocumentFinder
	suggs  Suggester
	qlog   QueryLogger
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// New creates a search orchestrator.
func New(docs DocumentFinder, suggs Suggester, qlog QueryLogger, opts Options, logger *zap.Logger) *Service {
	opts.applyDefaults()
	return &Service{
		docs: docs, suggs: suggs, qlog: qlog,
		opts: opts, logger: logger, now: time.Now,
	}
}

// Search executes a simple public search.
func (s *Service) Search(ctx context.Context, req *request.Request, client ClientInfo) (result.Response, error) {
	criteria := request.CriteriaFrom(req).PublicOnly()
	resp, err := s.run(ctx, req.Query(), req.Language(), criteria, req.Page(), req.PageSize())
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("simple", "error").Inc()
		return result.Response{}, err
	}
	metrics.SearchesTotal.WithLabelValues("simple", "ok").Inc()
	metrics.SearchDuration.WithLabelValues("simple").Observe(float64(resp.ExecutionTimeMs) / 1000)

	s.afterSearch(ctx, req.Query(), req.Language(), req.ContentType(), req.Filters(), resp, client)
	return resp, nil
}

// SearchAdvanced executes a structured public search: multiple content
// types and languages plus a creation-date range.
func (s *Service) SearchAdvanced(ctx context.Context, adv *request.Advanced, client ClientInfo) (result.Response, error) {
	if err := adv.Validate(); err != nil {
		return result.Response{}, err
	}

	criteria := request.CriteriaFromAdvanced(adv).PublicOnly()
	lang := domain.LanguageEN
	if len(adv.Languages) == 1 {
		lang = adv.Languages[0]
	}

	resp, err := s.run(ctx, adv.Query, lang, criteria, adv.Page, adv.PageSize)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("advanced", "error").Inc()
		return result.Response{}, err
	}
	metrics.SearchesTotal.WithLabelValues("advanced", "ok").Inc()
	metrics.SearchDuration.WithLabelValues("advanced").Observe(float64(resp.ExecutionTimeMs) / 1000)

	var contentType domain.ContentType
	if len(adv.ContentTypes) == 1 {
		contentType = adv.ContentTypes[0]
	}
	s.afterSearch(ctx, adv.Query, lang, contentType, nil, resp, client)
	return resp, nil
}

// run is the shared pipeline: find, rank, decorate, facet.
func (s *Service) run(
	ctx context.Context,
	query string, language domain.Language,
	criteria request.Criteria,
	page, pageSize int,
) (result.Response, error) {
	start := s.now()

	docs, total, err := s.docs.Find(ctx, criteria)
	if err != nil {
		return result.Response{}, err
	}

	items := make([]result.Item, len(docs))
	for i := range docs {
		items[i] = s.toItem(&docs[i], criteria.Offset+i+1)
	}

	facets := s.computeFacets(ctx, criteria)
	suggestions := s.relatedTerms(ctx, query, language)

	elapsed := s.now().Sub(start).Milliseconds()
	return result.Response{
		Query:           query,
		Total:           total,
		ExecutionTimeMs: elapsed,
		Items:           items,
		Suggestions:     suggestions,
		Pagination: result.Page{
			Page:       page,
			PageSize:   pageSize,
			TotalPages: totalPages(total, pageSize),
		},
		Facets: facets,
	}, nil
}

// afterSearch records term usage and appends the query log. Both are
// fire-and-forget: the response has already been assembled and neither
// failure may surface to the caller.
func (s *Service) afterSearch(
	ctx context.Context,
	query string, language domain.Language, contentType domain.ContentType,
	filters map[string]string,
	resp result.Response,
	client ClientInfo,
) {
	rec := domqlog.Record{
		Query:           query,
		Language:        language,
		ContentType:     contentType,
		Filters:         filters,
		ResultsCount:    resp.Total,
		ExecutionTimeMs: resp.ExecutionTimeMs,
		IPAddress:       client.IPAddress,
		UserAgent:       client.UserAgent,
		UserID:          client.UserID,
		CreatedAt:       s.now().UTC(),
	}

	// Detach from the request: the caller's deadline must not cancel
	// bookkeeping that happens after the response is sent.
	bg := context.WithoutCancel(ctx)
	go func() {
		logCtx, cancel := context.WithTimeout(bg, logTimeout)
		defer cancel()

		if err := s.qlog.Append(logCtx, &rec); err != nil {
			metrics.QueryLogFailuresTotal.Inc()
			s.logger.Warn("query log append failed",
				zap.String("query", query),
				zap.Error(err),
			)
		}

		if _, err := s.suggs.IncrementUsage(logCtx, query, language); err != nil {
			s.logger.Debug("suggestion usage increment skipped",
				zap.String("query", query),
				zap.Error(err),
			)
			return
		}
		metrics.SuggestionIncrementsTotal.Inc()
	}()
}

// relatedTerms fetches autocomplete candidates for the query prefix.
// Best-effort: failures degrade to no suggestions, never to an error.
func (s *Service) relatedTerms(ctx context.Context, query string, language domain.Language) []string {
	suggs, err := s.suggs.FindByPrefix(ctx, query, language, MaxSuggestions)
	if err != nil {
		s.logger.Warn("suggestion lookup failed",
			zap.String("query", query),
			zap.Error(err),
		)
		return nil
	}

	terms := make([]string, 0, len(suggs))
	for i := range suggs {
		terms = append(terms, suggs[i].Term())
	}
	return terms
}

func (s *Service) toItem(doc *domdoc.Document, rank int) result.Item {
	return result.Item{
		ID:             doc.ID(),
		ContentID:      doc.ContentKey().ID,
		ContentType:    doc.ContentKey().Type,
		Title:          doc.Title(),
		Snippet:        snippet(doc, doc.Language(), s.opts.SnippetLength),
		URL:            s.contentURL(doc.ContentKey()),
		Language:       doc.Language(),
		Tags:           doc.Tags(),
		RelevanceScore: doc.RelevanceScore(),
		Rank:           rank,
		CreatedAt:      doc.CreatedAt(),
		UpdatedAt:      doc.UpdatedAt(),
	}
}

func (s *Service) computeFacets(ctx context.Context, criteria request.Criteria) result.Facets {
	matches, err := s.docs.FindAll(ctx, criteria, s.opts.FacetScanCap)
	if err != nil {
		s.logger.Warn("facet scan failed", zap.Error(err))
		return emptyFacets()
	}
	return buildFacets(matches, s.now())
}

func totalPages(total, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
