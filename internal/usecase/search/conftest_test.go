package search

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/khojilab/khoji/internal/domain"
	domdoc "github.com/khojilab/khoji/internal/domain/document"
	domqlog "github.com/khojilab/khoji/internal/domain/querylog"
	"github.com/khojilab/khoji/internal/domain/search/request"
	domsugg "github.com/khojilab/khoji/internal/domain/suggestion"
)

// mockDocs implements DocumentFinder for tests.
type mockDocs struct {
	findFn    func(ctx context.Context, c request.Criteria) ([]domdoc.Document, int, error)
	findAllFn func(ctx context.Context, c request.Criteria, cap int) ([]domdoc.Document, error)
}

func (m *mockDocs) Find(ctx context.Context, c request.Criteria) ([]domdoc.Document, int, error) {
	if m.findFn != nil {
		return m.findFn(ctx, c)
	}
	return nil, 0, nil
}

func (m *mockDocs) FindAll(ctx context.Context, c request.Criteria, cap int) ([]domdoc.Document, error) {
	if m.findAllFn != nil {
		return m.findAllFn(ctx, c, cap)
	}
	return nil, nil
}

// mockSuggs implements Suggester for tests.
type mockSuggs struct {
	findByPrefixFn   func(ctx context.Context, prefix string, language domain.Language, limit int) ([]domsugg.Suggestion, error)
	incrementUsageFn func(ctx context.Context, term string, language domain.Language) (int64, error)
}

func (m *mockSuggs) FindByPrefix(ctx context.Context, prefix string, language domain.Language, limit int) ([]domsugg.Suggestion, error) {
	if m.findByPrefixFn != nil {
		return m.findByPrefixFn(ctx, prefix, language, limit)
	}
	return nil, nil
}

func (m *mockSuggs) IncrementUsage(ctx context.Context, term string, language domain.Language) (int64, error) {
	if m.incrementUsageFn != nil {
		return m.incrementUsageFn(ctx, term, language)
	}
	return 1, nil
}

// mockQLog implements QueryLogger for tests.
type mockQLog struct {
	appendFn func(ctx context.Context, rec *domqlog.Record) error
}

func (m *mockQLog) Append(ctx context.Context, rec *domqlog.Record) error {
	if m.appendFn != nil {
		return m.appendFn(ctx, rec)
	}
	return nil
}

func newTestService(t *testing.T) (*Service, *mockDocs, *mockSuggs, *mockQLog) {
	t.Helper()
	md := &mockDocs{}
	msg := &mockSuggs{}
	mq := &mockQLog{}
	svc := New(md, msg, mq, Options{}, zap.NewNop())
	return svc, md, msg, mq
}

func testDoc(t *testing.T, id string, title domain.LocalizedText, score float64, createdAt time.Time) domdoc.Document {
	t.Helper()
	return domdoc.Reconstruct(
		id,
		domain.ContentKey{ID: "c-" + id, Type: domain.ContentTypeContent},
		title,
		domain.LocalizedText{domain.LanguageEN: "Body of " + id},
		nil,
		[]string{"tag-" + id},
		domain.LanguageEN,
		true, true,
		score,
		createdAt, createdAt, createdAt,
	)
}

func simpleRequest(t *testing.T, query string) *request.Request {
	t.Helper()
	req, err := request.New(query, "en", "", nil, 1, 20, "", false)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	return &req
}

// waitForRecord waits for the fire-and-forget query log write.
func waitForRecord(t *testing.T, ch <-chan domqlog.Record) domqlog.Record {
	t.Helper()
	select {
	case rec := <-ch:
		return rec
	case <-time.After(2 * time.Second):
		t.Fatal("query record was never appended")
		return domqlog.Record{}
	}
}
