package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/khojilab/khoji/internal/domain"
	domdoc "github.com/khojilab/khoji/internal/domain/document"
	domqlog "github.com/khojilab/khoji/internal/domain/querylog"
	"github.com/khojilab/khoji/internal/domain/search/request"
	domsugg "github.com/khojilab/khoji/internal/domain/suggestion"
	analyticsuc "github.com/khojilab/khoji/internal/usecase/analytics"
	healthuc "github.com/khojilab/khoji/internal/usecase/health"
	indexuc "github.com/khojilab/khoji/internal/usecase/index"
	searchuc "github.com/khojilab/khoji/internal/usecase/search"
	suggestionuc "github.com/khojilab/khoji/internal/usecase/suggestion"
)

const testAPIKey = "test-key"

// mockDocStore backs the index pipeline, the search orchestrator, and
// the admin document endpoints in one place.
type mockDocStore struct {
	createFn             func(ctx context.Context, doc *domdoc.Document) (domdoc.Document, bool, error)
	getFn                func(ctx context.Context, id string) (domdoc.Document, error)
	getByContentKeyFn    func(ctx context.Context, key domain.ContentKey) (domdoc.Document, error)
	updateFn             func(ctx context.Context, id string, upd domdoc.Update) (domdoc.Document, error)
	updateRelevanceFn    func(ctx context.Context, id string, score float64, indexedAt time.Time) error
	deleteFn             func(ctx context.Context, id string) error
	deleteByContentKeyFn func(ctx context.Context, key domain.ContentKey) (bool, error)
	listIDsFn            func(ctx context.Context, contentType domain.ContentType) ([]string, error)
	ensureIndexFn        func(ctx context.Context) error
	findFn               func(ctx context.Context, c request.Criteria) ([]domdoc.Document, int, error)
	findAllFn            func(ctx context.Context, c request.Criteria, cap int) ([]domdoc.Document, error)
	statsFn              func(ctx context.Context) (domdoc.Stats, error)
}

func (m *mockDocStore) Create(ctx context.Context, doc *domdoc.Document) (domdoc.Document, bool, error) {
	if m.createFn != nil {
		return m.createFn(ctx, doc)
	}
	return *doc, true, nil
}

func (m *mockDocStore) Get(ctx context.Context, id string) (domdoc.Document, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return domdoc.Document{}, domain.ErrDocumentNotFound
}

func (m *mockDocStore) GetByContentKey(ctx context.Context, key domain.ContentKey) (domdoc.Document, error) {
	if m.getByContentKeyFn != nil {
		return m.getByContentKeyFn(ctx, key)
	}
	return domdoc.Document{}, domain.ErrDocumentNotFound
}

func (m *mockDocStore) Update(ctx context.Context, id string, upd domdoc.Update) (domdoc.Document, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, upd)
	}
	return domdoc.Document{}, domain.ErrDocumentNotFound
}

func (m *mockDocStore) UpdateRelevance(ctx context.Context, id string, score float64, indexedAt time.Time) error {
	if m.updateRelevanceFn != nil {
		return m.updateRelevanceFn(ctx, id, score, indexedAt)
	}
	return nil
}

func (m *mockDocStore) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockDocStore) DeleteByContentKey(ctx context.Context, key domain.ContentKey) (bool, error) {
	if m.deleteByContentKeyFn != nil {
		return m.deleteByContentKeyFn(ctx, key)
	}
	return true, nil
}

func (m *mockDocStore) ListIDs(ctx context.Context, contentType domain.ContentType) ([]string, error) {
	if m.listIDsFn != nil {
		return m.listIDsFn(ctx, contentType)
	}
	return nil, nil
}

func (m *mockDocStore) EnsureIndex(ctx context.Context) error {
	if m.ensureIndexFn != nil {
		return m.ensureIndexFn(ctx)
	}
	return nil
}

func (m *mockDocStore) Find(ctx context.Context, c request.Criteria) ([]domdoc.Document, int, error) {
	if m.findFn != nil {
		return m.findFn(ctx, c)
	}
	return nil, 0, nil
}

func (m *mockDocStore) FindAll(ctx context.Context, c request.Criteria, cap int) ([]domdoc.Document, error) {
	if m.findAllFn != nil {
		return m.findAllFn(ctx, c, cap)
	}
	return nil, nil
}

func (m *mockDocStore) Stats(ctx context.Context) (domdoc.Stats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return domdoc.Stats{}, nil
}

// mockSuggRepo implements the suggestion repository and the search
// orchestrator's Suggester.
type mockSuggRepo struct {
	findByPrefixFn   func(ctx context.Context, prefix string, language domain.Language, limit int) ([]domsugg.Suggestion, error)
	getPopularFn     func(ctx context.Context, language domain.Language, limit int) ([]domsugg.Suggestion, error)
	getFn            func(ctx context.Context, term string, language domain.Language) (domsugg.Suggestion, error)
	saveFn           func(ctx context.Context, s *domsugg.Suggestion) error
	deleteFn         func(ctx context.Context, term string, language domain.Language) error
	cleanupFn        func(ctx context.Context, cutoff time.Time, minFrequency int64) (int, error)
	incrementUsageFn func(ctx context.Context, term string, language domain.Language) (int64, error)
}

func (m *mockSuggRepo) FindByPrefix(ctx context.Context, prefix string, language domain.Language, limit int) ([]domsugg.Suggestion, error) {
	if m.findByPrefixFn != nil {
		return m.findByPrefixFn(ctx, prefix, language, limit)
	}
	return nil, nil
}

func (m *mockSuggRepo) GetPopular(ctx context.Context, language domain.Language, limit int) ([]domsugg.Suggestion, error) {
	if m.getPopularFn != nil {
		return m.getPopularFn(ctx, language, limit)
	}
	return nil, nil
}

func (m *mockSuggRepo) Get(ctx context.Context, term string, language domain.Language) (domsugg.Suggestion, error) {
	if m.getFn != nil {
		return m.getFn(ctx, term, language)
	}
	return domsugg.Suggestion{}, domain.ErrSuggestionNotFound
}

func (m *mockSuggRepo) Save(ctx context.Context, s *domsugg.Suggestion) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, s)
	}
	return nil
}

func (m *mockSuggRepo) Delete(ctx context.Context, term string, language domain.Language) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, term, language)
	}
	return nil
}

func (m *mockSuggRepo) Cleanup(ctx context.Context, cutoff time.Time, minFrequency int64) (int, error) {
	if m.cleanupFn != nil {
		return m.cleanupFn(ctx, cutoff, minFrequency)
	}
	return 0, nil
}

func (m *mockSuggRepo) IncrementUsage(ctx context.Context, term string, language domain.Language) (int64, error) {
	if m.incrementUsageFn != nil {
		return m.incrementUsageFn(ctx, term, language)
	}
	return 1, nil
}

// mockQLogRepo implements the query-log repository and the search
// orchestrator's QueryLogger.
type mockQLogRepo struct {
	appendFn         func(ctx context.Context, rec *domqlog.Record) error
	findSinceFn      func(ctx context.Context, since time.Time) ([]domqlog.Record, error)
	purgeOlderThanFn func(ctx context.Context, cutoff time.Time) (int, error)
}

func (m *mockQLogRepo) Append(ctx context.Context, rec *domqlog.Record) error {
	if m.appendFn != nil {
		return m.appendFn(ctx, rec)
	}
	return nil
}

func (m *mockQLogRepo) FindSince(ctx context.Context, since time.Time) ([]domqlog.Record, error) {
	if m.findSinceFn != nil {
		return m.findSinceFn(ctx, since)
	}
	return nil, nil
}

func (m *mockQLogRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	if m.purgeOlderThanFn != nil {
		return m.purgeOlderThanFn(ctx, cutoff)
	}
	return 0, nil
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockIndexChecker struct {
	exists bool
	err    error
}

func (m *mockIndexChecker) IndexExists(_ context.Context, _ string) (bool, error) {
	return m.exists, m.err
}

// testEnv bundles the server and its mocks.
type testEnv struct {
	server *Server
	router http.Handler
	docs   *mockDocStore
	suggs  *mockSuggRepo
	qlog   *mockQLogRepo
	pinger *mockPinger
	idx    *mockIndexChecker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	docs := &mockDocStore{}
	suggs := &mockSuggRepo{}
	qlog := &mockQLogRepo{}
	pinger := &mockPinger{}
	idx := &mockIndexChecker{exists: true}
	logger := zap.NewNop()

	searchSvc := searchuc.New(docs, suggs, qlog, searchuc.Options{}, logger)
	suggSvc := suggestionuc.New(suggs, suggestionuc.Options{}, logger)
	analyticsSvc := analyticsuc.New(qlog, analyticsuc.Options{}, logger)
	indexSvc := indexuc.New(docs, logger)
	healthSvc := healthuc.New(pinger, idx, "khoji:doc:idx")

	server := NewServer(
		searchSvc, suggSvc, analyticsSvc, indexSvc, docs, healthSvc,
		[]string{testAPIKey}, logger,
	)

	return &testEnv{
		server: server,
		router: server.Routes(),
		docs:   docs,
		suggs:  suggs,
		qlog:   qlog,
		pinger: pinger,
		idx:    idx,
	}
}

// do runs a request through the router with the admin key attached.
func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// doAnon runs a request without credentials.
func (e *testEnv) doAnon(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func testDocument(t *testing.T, id string) domdoc.Document {
	t.Helper()
	created := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	return domdoc.Reconstruct(
		id,
		domain.ContentKey{ID: "c-" + id, Type: domain.ContentTypeDocument},
		domain.LocalizedText{domain.LanguageEN: "Annual Budget Report"},
		domain.LocalizedText{domain.LanguageEN: "The annual budget report for the fiscal year."},
		nil,
		[]string{"budget"},
		domain.LanguageEN,
		true, true,
		0.8,
		created, created, created,
	)
}
