package chi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/khojilab/khoji/internal/domain"
	domdoc "github.com/khojilab/khoji/internal/domain/document"
	"github.com/khojilab/khoji/internal/domain/search/request"
	suggestionuc "github.com/khojilab/khoji/internal/usecase/suggestion"
)

// exportScanCap bounds one export sweep.
const exportScanCap = 10000

// --- Documents ---

// handleListDocuments handles GET /api/v1/admin/documents. Unlike the
// public search it sees unpublished and inactive documents.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	sortBy, err := parseSortField(q.Get("sortBy"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	page := atoiOrZero(q.Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := atoiOrZero(q.Get("pageSize"))
	if pageSize <= 0 {
		pageSize = request.DefaultPageSize
	}
	if pageSize > request.MaxPageSize {
		pageSize = request.MaxPageSize
	}

	criteria := request.Criteria{
		Text:        q.Get("query"),
		IsPublished: boolParam(q.Get("published")),
		IsActive:    boolParam(q.Get("active")),
		Offset:      (page - 1) * pageSize,
		Limit:       pageSize,
		SortBy:      sortBy,
		SortDesc:    q.Get("sortAsc") != "true",
	}
	if raw := q.Get("contentType"); raw != "" {
		ct, err := domain.ParseContentType(raw)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		criteria.ContentTypes = []domain.ContentType{ct}
	}
	if raw := q.Get("language"); raw != "" {
		l, err := domain.ParseLanguage(raw)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		criteria.Languages = []domain.Language{l}
	}

	docs, total, err := s.docs.Find(r.Context(), criteria)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]documentResponse, len(docs))
	for i := range docs {
		items[i] = documentToResponse(&docs[i])
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items":    items,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

// documentCreateRequest is the body of POST /api/v1/admin/documents.
type documentCreateRequest struct {
	ContentID   string `json:"contentId"`
	ContentType string `json:"contentType"`
	contentBody
}

// handleCreateDocument handles POST /api/v1/admin/documents. Creation
// runs through the reindex pipeline so the relevance score is computed
// the same way content-sync events compute it.
func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var body documentCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	key, err := domain.NewContentKey(body.ContentID, domain.ContentType(body.ContentType))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	doc, err := s.index.OnContentCreated(r.Context(), key, body.payload())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, documentToResponse(&doc))
}

// handleGetDocument handles GET /api/v1/admin/documents/{id}.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, documentToResponse(&doc))
}

// documentUpdateRequest is the partial-update body; absent fields stay
// untouched.
type documentUpdateRequest struct {
	Title       domain.LocalizedText `json:"title"`
	Body        domain.LocalizedText `json:"body"`
	Description domain.LocalizedText `json:"description"`
	Tags        []string             `json:"tags"`
	Language    *string              `json:"language"`
	IsPublished *bool                `json:"isPublished"`
	IsActive    *bool                `json:"isActive"`
}

// handleUpdateDocument handles PUT /api/v1/admin/documents/{id}.
func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	var body documentUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	upd := domdoc.Update{
		Title:       body.Title,
		Body:        body.Body,
		Description: body.Description,
		Tags:        body.Tags,
		IsPublished: body.IsPublished,
		IsActive:    body.IsActive,
	}
	if body.Language != nil {
		l, err := domain.ParseLanguage(*body.Language)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		upd.Language = &l
	}
	if upd.IsEmpty() {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "no fields to update")
		return
	}

	id := chi.URLParam(r, "id")
	doc, err := s.docs.Update(r.Context(), id, upd)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	// Edited text changes the relevance score; recompute it in-band so
	// the response carries the fresh value.
	if err := s.index.ReindexContent(r.Context(), doc.ContentKey()); err != nil {
		s.logger.Warn("reindex after update failed",
			zap.String("id", id), zap.Error(err))
	} else if fresh, err := s.docs.Get(r.Context(), id); err == nil {
		doc = fresh
	}

	writeJSON(w, http.StatusOK, documentToResponse(&doc))
}

// handleDeleteDocument handles DELETE /api/v1/admin/documents/{id}.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.docs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Suggestions ---

// handleListSuggestions handles GET /api/v1/admin/suggestions. With a
// prefix it behaves like autocomplete; without one it lists the most
// popular terms.
func (s *Server) handleListSuggestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lang, err := optionalLanguage(q.Get("language"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	limit := atoiOrZero(q.Get("limit"))

	if prefix := q.Get("prefix"); prefix != "" {
		items, err := s.suggs.Suggest(r.Context(), prefix, lang, limit)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": suggestionsToResponse(items)})
		return
	}

	items, err := s.suggs.Popular(r.Context(), lang, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": suggestionsToResponse(items)})
}

// suggestionCreateRequest is the body of POST /api/v1/admin/suggestions.
type suggestionCreateRequest struct {
	Term        string `json:"term"`
	Language    string `json:"language"`
	ContentType string `json:"contentType"`
	Frequency   int64  `json:"frequency"`
}

// handleCreateSuggestion handles POST /api/v1/admin/suggestions.
func (s *Server) handleCreateSuggestion(w http.ResponseWriter, r *http.Request) {
	var body suggestionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	sg, err := s.suggs.Create(
		r.Context(),
		body.Term, domain.Language(body.Language), domain.ContentType(body.ContentType),
		body.Frequency,
	)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, suggestionToResponse(&sg))
}

// handleGetSuggestion handles GET /api/v1/admin/suggestions/{language}/{term}.
func (s *Server) handleGetSuggestion(w http.ResponseWriter, r *http.Request) {
	lang, term, err := suggestionKey(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	sg, err := s.suggs.Get(r.Context(), term, lang)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, suggestionToResponse(&sg))
}

// suggestionUpdateRequest is the curated partial update for a suggestion.
type suggestionUpdateRequest struct {
	Frequency *int64 `json:"frequency"`
	IsActive  *bool  `json:"isActive"`
}

// handleUpdateSuggestion handles PUT /api/v1/admin/suggestions/{language}/{term}.
func (s *Server) handleUpdateSuggestion(w http.ResponseWriter, r *http.Request) {
	lang, term, err := suggestionKey(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	var body suggestionUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	sg, err := s.suggs.Update(r.Context(), term, lang, suggestionuc.UpdateFields{
		Frequency: body.Frequency,
		IsActive:  body.IsActive,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, suggestionToResponse(&sg))
}

// handleDeleteSuggestion handles DELETE /api/v1/admin/suggestions/{language}/{term}.
func (s *Server) handleDeleteSuggestion(w http.ResponseWriter, r *http.Request) {
	lang, term, err := suggestionKey(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if err := s.suggs.Delete(r.Context(), term, lang); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Index operations ---

// handleBulkReindex handles POST /api/v1/admin/reindex.
func (s *Server) handleBulkReindex(w http.ResponseWriter, r *http.Request) {
	var contentType domain.ContentType
	if raw := r.URL.Query().Get("contentType"); raw != "" {
		ct, err := domain.ParseContentType(raw)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		contentType = ct
	}

	res, err := s.index.BulkReindex(r.Context(), contentType)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// handleIndexContent handles POST /api/v1/admin/index/{contentType}/{contentId}.
func (s *Server) handleIndexContent(w http.ResponseWriter, r *http.Request) {
	key, err := urlContentKey(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	doc, created, err := s.index.IndexContent(r.Context(), key)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, documentToResponse(&doc))
}

// handleReindexContent handles PUT /api/v1/admin/index/{contentType}/{contentId}.
func (s *Server) handleReindexContent(w http.ResponseWriter, r *http.Request) {
	key, err := urlContentKey(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if err := s.index.ReindexContent(r.Context(), key); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleRemoveFromIndex handles DELETE /api/v1/admin/index/{contentType}/{contentId}.
func (s *Server) handleRemoveFromIndex(w http.ResponseWriter, r *http.Request) {
	key, err := urlContentKey(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if err := s.index.RemoveFromIndex(r.Context(), key); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleOptimizeIndex handles POST /api/v1/admin/index/optimize.
func (s *Server) handleOptimizeIndex(w http.ResponseWriter, r *http.Request) {
	if err := s.index.OptimizeIndex(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleClearCache handles POST /api/v1/admin/cache/clear.
func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.index.ClearCache(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Maintenance and export ---

// handleMaintenanceJob handles POST /api/v1/admin/maintenance/{job}:
// on-demand runs of the jobs the scheduler performs on its own ticks.
func (s *Server) handleMaintenanceJob(w http.ResponseWriter, r *http.Request) {
	job := chi.URLParam(r, "job")

	var (
		removed int
		err     error
	)
	switch job {
	case "suggestion-cleanup":
		removed, err = s.suggs.Cleanup(r.Context())
	case "querylog-purge":
		removed, err = s.analytics.Purge(r.Context())
	default:
		writeError(w, http.StatusNotFound, codeNotFound, "unknown maintenance job "+job)
		return
	}
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"job":     job,
		"removed": removed,
	})
}

// handleExport handles GET /api/v1/admin/export.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	criteria := request.Criteria{SortBy: request.SortCreatedAt}
	params := map[string]string{}
	if raw := q.Get("contentType"); raw != "" {
		ct, err := domain.ParseContentType(raw)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		criteria.ContentTypes = []domain.ContentType{ct}
		params["contentType"] = raw
	}
	if raw := q.Get("language"); raw != "" {
		l, err := domain.ParseLanguage(raw)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		criteria.Languages = []domain.Language{l}
		params["language"] = raw
	}

	docs, err := s.docs.FindAll(r.Context(), criteria, exportScanCap)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]documentResponse, len(docs))
	for i := range docs {
		items[i] = documentToResponse(&docs[i])
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"exportedAt": time.Now().UTC(),
		"params":     params,
		"items":      items,
	})
}

// suggestionKey extracts the (term, language) natural key from the URL.
func suggestionKey(r *http.Request) (domain.Language, string, error) {
	lang, err := domain.ParseLanguage(chi.URLParam(r, "language"))
	if err != nil {
		return "", "", err
	}
	term := chi.URLParam(r, "term")
	if decoded, err := url.PathUnescape(term); err == nil {
		term = decoded
	}
	return lang, term, nil
}

// urlContentKey extracts the content key from the URL.
func urlContentKey(r *http.Request) (domain.ContentKey, error) {
	return domain.NewContentKey(
		chi.URLParam(r, "contentId"),
		domain.ContentType(chi.URLParam(r, "contentType")),
	)
}

func boolParam(raw string) *bool {
	switch raw {
	case "true":
		t := true
		return &t
	case "false":
		f := false
		return &f
	default:
		return nil
	}
}
