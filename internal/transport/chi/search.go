package chi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/khojilab/khoji/internal/domain"
	"github.com/khojilab/khoji/internal/domain/search/request"
)

// knownSearchParams are the query parameters the simple search endpoint
// interprets itself; everything else is passed through as a structured
// filter and lands in the query log.
var knownSearchParams = map[string]struct{}{
	"q": {}, "language": {}, "contentType": {},
	"page": {}, "pageSize": {}, "sortBy": {}, "sortAsc": {},
}

// handleSearch handles GET /api/v1/search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filters := map[string]string{}
	for name, values := range q {
		if _, known := knownSearchParams[name]; known || len(values) == 0 {
			continue
		}
		filters[name] = values[0]
	}
	if len(filters) == 0 {
		filters = nil
	}

	req, err := request.New(
		q.Get("q"),
		q.Get("language"),
		q.Get("contentType"),
		filters,
		atoiOrZero(q.Get("page")),
		atoiOrZero(q.Get("pageSize")),
		q.Get("sortBy"),
		q.Get("sortAsc") == "true",
	)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp, err := s.search.Search(r.Context(), &req, clientInfo(r))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// advancedSearchRequest is the body of POST /api/v1/search/advanced.
type advancedSearchRequest struct {
	Query         string               `json:"query"`
	ContentTypes  []domain.ContentType `json:"contentTypes"`
	Languages     []domain.Language    `json:"languages"`
	CreatedAfter  time.Time            `json:"createdAfter"`
	CreatedBefore time.Time            `json:"createdBefore"`
	Page          int                  `json:"page"`
	PageSize      int                  `json:"pageSize"`
	SortBy        string               `json:"sortBy"`
	SortAsc       bool                 `json:"sortAsc"`
}

// handleSearchAdvanced handles POST /api/v1/search/advanced.
func (s *Server) handleSearchAdvanced(w http.ResponseWriter, r *http.Request) {
	var body advancedSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	sortBy, err := parseSortField(body.SortBy)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	adv := request.Advanced{
		Query:         body.Query,
		ContentTypes:  body.ContentTypes,
		Languages:     body.Languages,
		CreatedAfter:  body.CreatedAfter,
		CreatedBefore: body.CreatedBefore,
		Page:          body.Page,
		PageSize:      body.PageSize,
		SortBy:        sortBy,
		SortAsc:       body.SortAsc,
	}

	resp, err := s.search.SearchAdvanced(r.Context(), &adv, clientInfo(r))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleSuggestions handles GET /api/v1/suggestions (autocomplete).
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lang, err := optionalLanguage(q.Get("language"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	suggs, err := s.suggs.Suggest(r.Context(), q.Get("q"), lang, atoiOrZero(q.Get("limit")))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": suggestionsToResponse(suggs)})
}

// handlePopularQueries handles GET /api/v1/search/popular.
func (s *Server) handlePopularQueries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var lang domain.Language
	if raw := q.Get("language"); raw != "" {
		l, err := domain.ParseLanguage(raw)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		lang = l
	}
	var contentType domain.ContentType
	if raw := q.Get("contentType"); raw != "" {
		ct, err := domain.ParseContentType(raw)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		contentType = ct
	}

	popular, err := s.analytics.PopularQueries(
		r.Context(), lang, contentType,
		atoiOrZero(q.Get("days")), atoiOrZero(q.Get("limit")),
	)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": popular})
}

// handleAnalytics handles GET /api/v1/search/analytics.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	report, err := s.analytics.Analytics(r.Context(), atoiOrZero(r.URL.Query().Get("days")))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleStatistics handles GET /api/v1/search/statistics.
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.docs.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func parseSortField(raw string) (request.SortField, error) {
	switch request.SortField(raw) {
	case "", request.SortRelevance:
		return request.SortRelevance, nil
	case request.SortCreatedAt, request.SortUpdatedAt:
		return request.SortField(raw), nil
	default:
		return "", fmt.Errorf("unknown sort field %q: %w", raw, domain.ErrValidation)
	}
}

// optionalLanguage parses a language parameter, defaulting to English.
func optionalLanguage(raw string) (domain.Language, error) {
	if raw == "" {
		return domain.LanguageEN, nil
	}
	return domain.ParseLanguage(raw)
}

func atoiOrZero(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
