package querylog

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/khojilab/khoji/internal/domain"
	domqlog "github.com/khojilab/khoji/internal/domain/querylog"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	jsonSetFn      func(ctx context.Context, key, path string, data []byte) error
	jsonGetMultiFn func(ctx context.Context, keys []string) ([][]byte, error)
	delFn          func(ctx context.Context, key string) error
	scanFn         func(ctx context.Context, pattern string) ([]string, error)
}

func (m *mockStore) JSONSet(ctx context.Context, key, path string, data []byte) error {
	if m.jsonSetFn != nil {
		return m.jsonSetFn(ctx, key, path, data)
	}
	return nil
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

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, zap.NewNop()), ms
}

func testRecord(t *testing.T, id, query string, createdAt time.Time) domqlog.Record {
	t.Helper()
	return domqlog.Record{
		ID:              id,
		Query:           query,
		Language:        domain.LanguageEN,
		ResultsCount:    3,
		ExecutionTimeMs: 12,
		CreatedAt:       createdAt,
	}
}

// testRecordJSON renders a record the way JSON.GET "$" returns it.
func testRecordJSON(t *testing.T, rec *domqlog.Record) []byte {
	t.Helper()
	data, err := json.Marshal([]recordDTO{toDTO(rec)})
	if err != nil {
		t.Fatalf("marshal test record: %v", err)
	}
	return data
}
