package index

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/khojilab/khoji/internal/domain"
	domdoc "github.com/khojilab/khoji/internal/domain/document"
)

// mockDocs implements DocumentStore for tests.
type mockDocs struct {
	createFn             func(ctx context.Context, doc *domdoc.Document) (domdoc.Document, bool, error)
	getFn                func(ctx context.Context, id string) (domdoc.Document, error)
	getByContentKeyFn    func(ctx context.Context, key domain.ContentKey) (domdoc.Document, error)
	updateFn             func(ctx context.Context, id string, upd domdoc.Update) (domdoc.Document, error)
	updateRelevanceFn    func(ctx context.Context, id string, score float64, indexedAt time.Time) error
	deleteFn             func(ctx context.Context, id string) error
	deleteByContentKeyFn func(ctx context.Context, key domain.ContentKey) (bool, error)
	listIDsFn            func(ctx context.Context, contentType domain.ContentType) ([]string, error)
	ensureIndexFn        func(ctx context.Context) error
}

func (m *mockDocs) Create(ctx context.Context, doc *domdoc.Document) (domdoc.Document, bool, error) {
	if m.createFn != nil {
		return m.createFn(ctx, doc)
	}
	return *doc, true, nil
}

func (m *mockDocs) Get(ctx context.Context, id string) (domdoc.Document, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return domdoc.Document{}, domain.ErrDocumentNotFound
}

func (m *mockDocs) GetByContentKey(ctx context.Context, key domain.ContentKey) (domdoc.Document, error) {
	if m.getByContentKeyFn != nil {
		return m.getByContentKeyFn(ctx, key)
	}
	return domdoc.Document{}, domain.ErrDocumentNotFound
}

func (m *mockDocs) Update(ctx context.Context, id string, upd domdoc.Update) (domdoc.Document, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, upd)
	}
	return domdoc.Document{}, domain.ErrDocumentNotFound
}

func (m *mockDocs) UpdateRelevance(ctx context.Context, id string, score float64, indexedAt time.Time) error {
	if m.updateRelevanceFn != nil {
		return m.updateRelevanceFn(ctx, id, score, indexedAt)
	}
	return nil
}

func (m *mockDocs) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockDocs) DeleteByContentKey(ctx context.Context, key domain.ContentKey) (bool, error) {
	if m.deleteByContentKeyFn != nil {
		return m.deleteByContentKeyFn(ctx, key)
	}
	return false, nil
}

func (m *mockDocs) ListIDs(ctx context.Context, contentType domain.ContentType) ([]string, error) {
	if m.listIDsFn != nil {
		return m.listIDsFn(ctx, contentType)
	}
	return nil, nil
}

func (m *mockDocs) EnsureIndex(ctx context.Context) error {
	if m.ensureIndexFn != nil {
		return m.ensureIndexFn(ctx)
	}
	return nil
}

func newTestService(t *testing.T) (*Service, *mockDocs) {
	t.Helper()
	md := &mockDocs{}
	return New(md, zap.NewNop()), md
}

func testDocument(t *testing.T, id string, updatedAt time.Time) domdoc.Document {
	t.Helper()
	return domdoc.Reconstruct(
		id,
		domain.ContentKey{ID: "c-" + id, Type: domain.ContentTypeContent},
		domain.LocalizedText{domain.LanguageEN: "Notice " + id},
		domain.LocalizedText{domain.LanguageEN: "Body text."},
		nil,
		[]string{"notice"},
		domain.LanguageEN,
		true, true,
		0.5,
		updatedAt, updatedAt, updatedAt,
	)
}
