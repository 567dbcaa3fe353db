package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/khojilab/khoji/internal/domain"
	domdoc "github.com/khojilab/khoji/internal/domain/document"
	"github.com/khojilab/khoji/internal/domain/search/request"
	analyticsuc "github.com/khojilab/khoji/internal/usecase/analytics"
	healthuc "github.com/khojilab/khoji/internal/usecase/health"
	indexuc "github.com/khojilab/khoji/internal/usecase/index"
	searchuc "github.com/khojilab/khoji/internal/usecase/search"
	suggestionuc "github.com/khojilab/khoji/internal/usecase/suggestion"
)

// Error codes returned in the JSON error envelope.
const (
	codeBadRequest         = "bad_request"
	codeValidationFailed   = "validation_failed"
	codeNotFound           = "not_found"
	codeDocumentNotFound   = "document_not_found"
	codeSuggestionNotFound = "suggestion_not_found"
	codeNotIndexed         = "content_not_indexed"
	codeUnauthorized       = "unauthorized"
	codeInternalError      = "internal_error"
)

// ErrorResponse is the JSON error envelope for every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// DocumentAdmin is the document-store surface the admin endpoints need.
type DocumentAdmin interface {
	Get(ctx context.Context, id string) (domdoc.Document, error)
	Find(ctx context.Context, c request.Criteria) ([]domdoc.Document, int, error)
	FindAll(ctx context.Context, c request.Criteria, cap int) ([]domdoc.Document, error)
	Update(ctx context.Context, id string, upd domdoc.Update) (domdoc.Document, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (domdoc.Stats, error)
}

// Server is the HTTP API: public search, admin curation, and the
// internal content-sync surface.
type Server struct {
	search    *searchuc.Service
	suggs     *suggestionuc.Service
	analytics *analyticsuc.Service
	index     *indexuc.Service
	docs      DocumentAdmin
	health    *healthuc.Service

	apiKeys       []string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	suggs *suggestionuc.Service,
	analytics *analyticsuc.Service,
	index *indexuc.Service,
	docs DocumentAdmin,
	health *healthuc.Service,
	apiKeys []string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:    search,
		suggs:     suggs,
		analytics: analytics,
		index:     index,
		docs:      docs,
		health:    health,
		apiKeys:   apiKeys,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrSuggestionNotFound, http.StatusNotFound, codeSuggestionNotFound),
		sentinelHandler(domain.ErrNotIndexed, http.StatusNotFound, codeNotIndexed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
	}
	return s
}

// Routes builds the router. Admin and internal routes require a bearer
// API key; the public search surface does not.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Post("/search/advanced", s.handleSearchAdvanced)
		r.Get("/search/popular", s.handlePopularQueries)
		r.Get("/suggestions", s.handleSuggestions)

		r.Group(func(r chi.Router) {
			r.Use(BearerAuthMiddleware(s.apiKeys))

			r.Get("/search/analytics", s.handleAnalytics)
			r.Get("/search/statistics", s.handleStatistics)

			r.Route("/admin", func(r chi.Router) {
				r.Route("/documents", func(r chi.Router) {
					r.Get("/", s.handleListDocuments)
					r.Post("/", s.handleCreateDocument)
					r.Get("/{id}", s.handleGetDocument)
					r.Put("/{id}", s.handleUpdateDocument)
					r.Delete("/{id}", s.handleDeleteDocument)
				})
				r.Route("/suggestions", func(r chi.Router) {
					r.Get("/", s.handleListSuggestions)
					r.Post("/", s.handleCreateSuggestion)
					r.Get("/{language}/{term}", s.handleGetSuggestion)
					r.Put("/{language}/{term}", s.handleUpdateSuggestion)
					r.Delete("/{language}/{term}", s.handleDeleteSuggestion)
				})
				r.Post("/reindex", s.handleBulkReindex)
				r.Post("/index/optimize", s.handleOptimizeIndex)
				r.Post("/index/{contentType}/{contentId}", s.handleIndexContent)
				r.Put("/index/{contentType}/{contentId}", s.handleReindexContent)
				r.Delete("/index/{contentType}/{contentId}", s.handleRemoveFromIndex)
				r.Post("/cache/clear", s.handleClearCache)
				r.Post("/maintenance/{job}", s.handleMaintenanceJob)
				r.Get("/export", s.handleExport)
			})

			r.Post("/internal/content-events", s.handleContentEvent)
		})
	})

	return r
}

// handleHealth handles GET /health. Degraded still answers 200: the
// index fallback keeps serving, so only a dead database is a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// handleMetrics handles GET /metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client
// without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrDocumentNotFound,
		domain.ErrSuggestionNotFound,
		domain.ErrNotIndexed,
		domain.ErrNotFound,
	}
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			s.logger.Warn("domain error", zap.Error(err))
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

// clientInfo extracts request metadata for the query log. The first
// X-Forwarded-For hop wins over the socket address behind a proxy.
func clientInfo(r *http.Request) searchuc.ClientInfo {
	ip := ""
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip = strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	} else if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	} else {
		ip = r.RemoteAddr
	}

	return searchuc.ClientInfo{
		IPAddress: ip,
		UserAgent: r.Header.Get("User-Agent"),
		UserID:    r.Header.Get("X-User-ID"),
	}
}
