package document

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/khojilab/khoji/internal/db"
	"github.com/khojilab/khoji/internal/domain"
	domdoc "github.com/khojilab/khoji/internal/domain/document"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	jsonSetFn      func(ctx context.Context, key, path string, data []byte) error
	jsonGetFn      func(ctx context.Context, key string, paths ...string) ([]byte, error)
	jsonGetMultiFn func(ctx context.Context, keys []string) ([][]byte, error)
	delFn          func(ctx context.Context, key string) error
	existsFn       func(ctx context.Context, key string) (bool, error)
	scanFn         func(ctx context.Context, pattern string) ([]string, error)
	getFn          func(ctx context.Context, key string) ([]byte, error)
	setNXFn        func(ctx context.Context, key string, value []byte) (bool, error)
	createIndexFn  func(ctx context.Context, def *db.IndexDefinition) error
	searchFn       func(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

func (m *mockStore) JSONSet(ctx context.Context, key, path string, data []byte) error {
	if m.jsonSetFn != nil {
		return m.jsonSetFn(ctx, key, path, data)
	}
	return nil
}

func (m *mockStore) JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error) {
	if m.jsonGetFn != nil {
		return m.jsonGetFn(ctx, key, paths...)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) JSONGetMulti(ctx context.Context, keys []string) ([][]byte, error) {
	if m.jsonGetMultiFn != nil {
		return m.jsonGetMultiFn(ctx, keys)
	}
	return make([][]byte, len(keys)), nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	if m.setNXFn != nil {
		return m.setNXFn(ctx, key, value)
	}
	return true, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) Search(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_fallback_scans_total"})
	repo := New(ms, counter, zap.NewNop())
	return repo, ms
}

func testDocument(t *testing.T, id string) domdoc.Document {
	t.Helper()
	created := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	return domdoc.Reconstruct(
		id,
		domain.ContentKey{ID: "c-" + id, Type: domain.ContentTypeDocument},
		domain.LocalizedText{domain.LanguageEN: "Annual Budget Report", domain.LanguageNE: "वार्षिक बजेट प्रतिवेदन"},
		domain.LocalizedText{domain.LanguageEN: "The annual budget covers fiscal planning."},
		domain.LocalizedText{domain.LanguageEN: "Budget summary"},
		[]string{"budget", "finance"},
		domain.LanguageEN,
		true, true,
		0.8,
		created, created, created,
	)
}

// testDocJSON renders a document the way JSON.GET "$" returns it: wrapped
// in a one-element array.
func testDocJSON(t *testing.T, doc *domdoc.Document) []byte {
	t.Helper()
	data, err := json.Marshal([]docDTO{toDTO(doc)})
	if err != nil {
		t.Fatalf("marshal test doc: %v", err)
	}
	return data
}
