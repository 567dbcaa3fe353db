package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/khojilab/khoji/internal/domain"
	domdoc "github.com/khojilab/khoji/internal/domain/document"
	"github.com/khojilab/khoji/internal/domain/reindex"
	"github.com/khojilab/khoji/internal/metrics"
)

// Service is the reindex pipeline: it keeps the document index in sync
// with source-of-truth notifications and recomputes relevance scores.
type Service struct {
	docs   DocumentStore
	logger *zap.Logger
	now    func() time.Time
}

// New creates a reindex service.
func New(docs DocumentStore, logger *zap.Logger) *Service {
	return &Service{docs: docs, logger: logger, now: time.Now}
}

// ContentPayload is the text snapshot pushed by an owning content module.
// The content module stays the source of truth; the index never re-derives
// these fields.
type ContentPayload struct {
	Title       domain.LocalizedText
	Body        domain.LocalizedText
	Description domain.LocalizedText
	Tags        []string
	Language    domain.Language
	IsPublished bool
	IsActive    bool
}

// IndexContent is the idempotent create-if-absent entry point. When no
// document exists for the key, a minimal placeholder is created (the real
// text arrives via the content-sync contract); when one exists, nothing
// changes. Returns the document and whether it was newly created.
func (s *Service) IndexContent(ctx context.Context, key domain.ContentKey) (domdoc.Document, bool, error) {
	if _, err := domain.NewContentKey(key.ID, key.Type); err != nil {
		return domdoc.Document{}, false, err
	}

	existing, err := s.docs.GetByContentKey(ctx, key)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		return domdoc.Document{}, false, fmt.Errorf("lookup %s: %w", key, err)
	}

	placeholder, err := domdoc.New(
		key,
		domain.LocalizedText{domain.LanguageEN: key.ID},
		nil, nil, nil,
		domain.LanguageEN,
		false, true,
	)
	if err != nil {
		return domdoc.Document{}, false, err
	}
	placeholder.SetRelevanceScore(Score(&placeholder, s.now()))

	created, wasNew, err := s.docs.Create(ctx, &placeholder)
	if err != nil {
		return domdoc.Document{}, false, fmt.Errorf("create %s: %w", key, err)
	}
	if wasNew {
		s.logger.Info("content indexed",
			zap.String("content_key", key.String()),
			zap.String("document_id", created.ID()),
		)
	}
	return created, wasNew, nil
}

// ReindexContent recomputes the relevance score for an already indexed
// content key. A key with no index entry is an error: the caller must
// IndexContent first.
func (s *Service) ReindexContent(ctx context.Context, key domain.ContentKey) error {
	doc, err := s.docs.GetByContentKey(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return fmt.Errorf("%s: %w", key, domain.ErrNotIndexed)
		}
		return fmt.Errorf("lookup %s: %w", key, err)
	}
	return s.reindexDocument(ctx, &doc)
}

// RemoveFromIndex deletes the document tied to a content key. A key with
// no index entry is a no-op, not an error.
func (s *Service) RemoveFromIndex(ctx context.Context, key domain.ContentKey) error {
	removed, err := s.docs.DeleteByContentKey(ctx, key)
	if err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	if removed {
		s.logger.Info("content removed from index", zap.String("content_key", key.String()))
	}
	return nil
}

// BulkReindex recomputes relevance for every document, optionally scoped
// to one content type. Individual failures are counted and never abort
// the batch; documents are independent of each other.
func (s *Service) BulkReindex(ctx context.Context, contentType domain.ContentType) (reindex.Result, error) {
	ids, err := s.docs.ListIDs(ctx, contentType)
	if err != nil {
		return reindex.Result{}, fmt.Errorf("list documents: %w", err)
	}

	var res reindex.Result
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("bulk reindex canceled: %w", err)
		}

		doc, err := s.docs.Get(ctx, id)
		if err == nil {
			err = s.reindexDocument(ctx, &doc)
		}
		if err != nil {
			res.AddFailure(fmt.Sprintf("%s: %v", id, err))
			metrics.ReindexedDocumentsTotal.WithLabelValues("failure").Inc()
			continue
		}
		res.AddSuccess()
		metrics.ReindexedDocumentsTotal.WithLabelValues("success").Inc()
	}

	s.logger.Info("bulk reindex finished",
		zap.String("content_type", string(contentType)),
		zap.Int("success", res.Success),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

// OptimizeIndex re-asserts the FT index definition. Safe to call at any
// time; creating an index that already exists is a no-op.
func (s *Service) OptimizeIndex(ctx context.Context) error {
	if err := s.docs.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("optimize index: %w", err)
	}
	s.logger.Info("index optimized")
	return nil
}

// ClearCache is a maintenance hook. The index holds no process-local
// cache, so this only logs the request; it exists so operators can call
// it unconditionally across deployments.
func (s *Service) ClearCache(_ context.Context) error {
	s.logger.Info("cache clear requested")
	return nil
}

// OnContentCreated upserts the document for newly created source content.
func (s *Service) OnContentCreated(ctx context.Context, key domain.ContentKey, payload ContentPayload) (domdoc.Document, error) {
	return s.upsert(ctx, key, payload)
}

// OnContentUpdated upserts the document for changed source content.
func (s *Service) OnContentUpdated(ctx context.Context, key domain.ContentKey, payload ContentPayload) (domdoc.Document, error) {
	return s.upsert(ctx, key, payload)
}

// OnContentDeleted removes the document for deleted source content.
func (s *Service) OnContentDeleted(ctx context.Context, key domain.ContentKey) error {
	return s.RemoveFromIndex(ctx, key)
}

func (s *Service) upsert(ctx context.Context, key domain.ContentKey, payload ContentPayload) (domdoc.Document, error) {
	existing, err := s.docs.GetByContentKey(ctx, key)
	if err == nil {
		upd := domdoc.Update{
			Title:       payload.Title,
			Body:        payload.Body,
			Description: payload.Description,
			Tags:        payload.Tags,
			Language:    &payload.Language,
			IsPublished: &payload.IsPublished,
			IsActive:    &payload.IsActive,
		}
		updated, err := s.docs.Update(ctx, existing.ID(), upd)
		if err != nil {
			return domdoc.Document{}, fmt.Errorf("update %s: %w", key, err)
		}
		if err := s.reindexDocument(ctx, &updated); err != nil {
			return domdoc.Document{}, err
		}
		return updated, nil
	}
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		return domdoc.Document{}, fmt.Errorf("lookup %s: %w", key, err)
	}

	doc, err := domdoc.New(
		key,
		payload.Title, payload.Body, payload.Description,
		payload.Tags, payload.Language,
		payload.IsPublished, payload.IsActive,
	)
	if err != nil {
		return domdoc.Document{}, err
	}
	doc.SetRelevanceScore(Score(&doc, s.now()))

	created, _, err := s.docs.Create(ctx, &doc)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("create %s: %w", key, err)
	}
	return created, nil
}

func (s *Service) reindexDocument(ctx context.Context, doc *domdoc.Document) error {
	now := s.now()
	score := Score(doc, now)
	if err := s.docs.UpdateRelevance(ctx, doc.ID(), score, now); err != nil {
		return fmt.Errorf("update relevance %s: %w", doc.ID(), err)
	}
	return nil
}
