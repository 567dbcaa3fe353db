package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/khojilab/khoji/internal/db"
	"github.com/khojilab/khoji/internal/domain"
	domdoc "github.com/khojilab/khoji/internal/domain/document"
	"github.com/khojilab/khoji/internal/domain/search/request"
)

// DefaultKeyPrefix namespaces all index keys.
const DefaultKeyPrefix = "khoji:"

// fallbackBatchSize bounds one JSONGetMulti round-trip during a full scan.
const fallbackBatchSize = 128

// store is the consumer interface for the document index (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	JSONGetMulti(ctx context.Context, keys []string) ([][]byte, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	Search(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Repo is the document index store: point lookups, filtered scans,
// multi-language substring search with an in-memory fallback, and the
// mutations used by the reindex pipeline.
type Repo struct {
	store     store
	prefix    string
	fallbacks prometheus.Counter
	logger    *zap.Logger
}

// New creates a document repository.
func New(s store, fallbacks prometheus.Counter, logger *zap.Logger) *Repo {
	return &Repo{store: s, prefix: DefaultKeyPrefix, fallbacks: fallbacks, logger: logger}
}

// WithKeyPrefix overrides the key namespace.
func (r *Repo) WithKeyPrefix(prefix string) *Repo {
	if prefix != "" {
		r.prefix = prefix
	}
	return r
}

// EnsureIndex creates the FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	builder := db.NewIndex(r.IndexName()).
		OnJSON().
		Prefix(r.prefix+"doc:").
		Tag("$.content_type", "content_type").
		Tag("$.content_id", "content_id").
		Tag("$.language", "language").
		Tag("$.is_published", "is_published").
		Tag("$.is_active", "is_active").
		Tag("$.tags[*]", "tags").
		Numeric("$.relevance_score", "relevance_score").
		Numeric("$.created_at", "created_at").
		Numeric("$.updated_at", "updated_at")

	for _, lang := range domain.Languages() {
		builder = builder.
			Text(fmt.Sprintf("$.title.%s", lang), fmt.Sprintf("title_%s", lang)).
			Text(fmt.Sprintf("$.body.%s", lang), fmt.Sprintf("body_%s", lang))
	}

	def, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Create inserts a document, assigning its id and claiming the content
// key. When the key is already indexed the existing document is returned
// with created=false, keeping the one-document-per-content-key invariant.
func (r *Repo) Create(ctx context.Context, doc *domdoc.Document) (domdoc.Document, bool, error) {
	id := uuid.NewString()
	mapKey := r.contentMapKey(doc.ContentKey())

	claimed, err := r.store.SetNX(ctx, mapKey, []byte(id))
	if err != nil {
		return domdoc.Document{}, false, fmt.Errorf("claim content key %s: %w", doc.ContentKey(), err)
	}
	if !claimed {
		existing, err := r.GetByContentKey(ctx, doc.ContentKey())
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, domain.ErrDocumentNotFound) {
			return domdoc.Document{}, false, fmt.Errorf("load existing %s: %w", doc.ContentKey(), err)
		}

		// The mapping points at a document that was never written: an
		// earlier create failed between the claim and the write. Reclaim.
		if err := r.store.Del(ctx, mapKey); err != nil {
			return domdoc.Document{}, false, fmt.Errorf("reclaim content key %s: %w", doc.ContentKey(), err)
		}
		claimed, err = r.store.SetNX(ctx, mapKey, []byte(id))
		if err != nil {
			return domdoc.Document{}, false, fmt.Errorf("claim content key %s: %w", doc.ContentKey(), err)
		}
		if !claimed {
			// Lost the reclaim race to a concurrent create.
			existing, err := r.GetByContentKey(ctx, doc.ContentKey())
			if err != nil {
				return domdoc.Document{}, false, fmt.Errorf("load existing %s: %w", doc.ContentKey(), err)
			}
			return existing, false, nil
		}
	}

	now := time.Now().UTC()
	doc.SetID(id)
	doc.Touch(now)
	stored := domdoc.Reconstruct(
		id, doc.ContentKey(),
		doc.Title(), doc.Body(), doc.Description(),
		doc.Tags(), doc.Language(),
		doc.IsPublished(), doc.IsActive(),
		doc.RelevanceScore(),
		now, now, now,
	)

	if err := r.put(ctx, &stored); err != nil {
		// Release the claim so the content key is retryable instead of
		// pointing at a document that was never written.
		if delErr := r.store.Del(ctx, mapKey); delErr != nil {
			r.logger.Warn("release content key after failed write",
				zap.String("key", mapKey),
				zap.Error(delErr),
			)
		}
		return domdoc.Document{}, false, err
	}
	return stored, true, nil
}

// Get returns a document by id.
func (r *Repo) Get(ctx context.Context, id string) (domdoc.Document, error) {
	raw, err := r.store.JSONGet(ctx, r.docKey(id), "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domdoc.Document{}, domain.ErrDocumentNotFound
		}
		return domdoc.Document{}, fmt.Errorf("json.get %s: %w", id, err)
	}
	return decodeDoc(id, raw)
}

// GetByContentKey returns the one document tied to a content key.
func (r *Repo) GetByContentKey(ctx context.Context, key domain.ContentKey) (domdoc.Document, error) {
	idBytes, err := r.store.Get(ctx, r.contentMapKey(key))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domdoc.Document{}, domain.ErrDocumentNotFound
		}
		return domdoc.Document{}, fmt.Errorf("resolve content key %s: %w", key, err)
	}
	return r.Get(ctx, string(idBytes))
}

// Find returns one page of documents matching the criteria plus the total
// match count. The structured FT path is tried first; on FT failure the
// repository degrades to a full in-memory scan with identical filter
// semantics (O(n) over the candidate set, so a warning is emitted).
func (r *Repo) Find(ctx context.Context, c request.Criteria) ([]domdoc.Document, int, error) {
	docs, total, err := r.findStructured(ctx, c)
	if err == nil {
		return docs, total, nil
	}
	if !db.IsSearchErr(err) {
		return nil, 0, err
	}

	r.fallbacks.Inc()
	r.logger.Warn("structured search failed, falling back to full scan",
		zap.String("query", c.Text),
		zap.Error(err),
	)
	return r.findScan(ctx, c)
}

// FindAll returns up to cap matching documents without pagination, used
// for facet computation over the pre-pagination match set.
func (r *Repo) FindAll(ctx context.Context, c request.Criteria, cap int) ([]domdoc.Document, error) {
	c.Offset = 0
	c.Limit = cap
	docs, _, err := r.Find(ctx, c)
	return docs, err
}

// Update applies a partial field merge and returns the updated document.
func (r *Repo) Update(ctx context.Context, id string, upd domdoc.Update) (domdoc.Document, error) {
	doc, err := r.Get(ctx, id)
	if err != nil {
		return domdoc.Document{}, err
	}

	upd.ApplyTo(&doc)
	doc.Touch(time.Now().UTC())

	if err := r.put(ctx, &doc); err != nil {
		return domdoc.Document{}, err
	}
	return doc, nil
}

// UpdateRelevance writes the recomputed score and refreshes lastIndexedAt
// via targeted JSON path writes, leaving the text fields untouched.
func (r *Repo) UpdateRelevance(ctx context.Context, id string, score float64, indexedAt time.Time) error {
	key := r.docKey(id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", id, err)
	}
	if !exists {
		return domain.ErrDocumentNotFound
	}

	scoreJSON, _ := json.Marshal(score)
	if err := r.store.JSONSet(ctx, key, "$.relevance_score", scoreJSON); err != nil {
		return fmt.Errorf("set relevance %s: %w", id, err)
	}
	tsJSON, _ := json.Marshal(indexedAt.UnixMilli())
	if err := r.store.JSONSet(ctx, key, "$.last_indexed_at", tsJSON); err != nil {
		return fmt.Errorf("set last_indexed_at %s: %w", id, err)
	}
	return nil
}

// Delete removes a document and its content-key mapping.
func (r *Repo) Delete(ctx context.Context, id string) error {
	doc, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := r.store.Del(ctx, r.docKey(id)); err != nil {
		return fmt.Errorf("del %s: %w", id, err)
	}
	if err := r.store.Del(ctx, r.contentMapKey(doc.ContentKey())); err != nil {
		return fmt.Errorf("del content mapping %s: %w", doc.ContentKey(), err)
	}
	return nil
}

// DeleteByContentKey removes the document tied to a content key.
// Returns false without error when nothing was indexed for the key.
func (r *Repo) DeleteByContentKey(ctx context.Context, key domain.ContentKey) (bool, error) {
	idBytes, err := r.store.Get(ctx, r.contentMapKey(key))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("resolve content key %s: %w", key, err)
	}

	if err := r.store.Del(ctx, r.docKey(string(idBytes))); err != nil {
		return false, fmt.Errorf("del document %s: %w", key, err)
	}
	if err := r.store.Del(ctx, r.contentMapKey(key)); err != nil {
		return false, fmt.Errorf("del content mapping %s: %w", key, err)
	}
	return true, nil
}

// ListIDs returns ids of all documents, optionally scoped to one content
// type. Used by bulk reindex; order is unspecified.
func (r *Repo) ListIDs(ctx context.Context, contentType domain.ContentType) ([]string, error) {
	docs, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(docs))
	for i := range docs {
		if contentType != "" && docs[i].ContentKey().Type != contentType {
			continue
		}
		ids = append(ids, docs[i].ID())
	}
	return ids, nil
}

// Stats aggregates index-wide counts and the mean relevance score.
func (r *Repo) Stats(ctx context.Context) (domdoc.Stats, error) {
	docs, err := r.loadAll(ctx)
	if err != nil {
		return domdoc.Stats{}, err
	}

	stats := domdoc.Stats{
		TotalDocuments: len(docs),
		ByContentType:  make(map[domain.ContentType]int),
		ByLanguage:     make(map[domain.Language]int),
	}

	var scoreSum float64
	for i := range docs {
		stats.ByContentType[docs[i].ContentKey().Type]++
		stats.ByLanguage[docs[i].Language()]++
		if docs[i].IsPublished() {
			stats.Published++
		}
		if docs[i].IsActive() {
			stats.Active++
		}
		scoreSum += docs[i].RelevanceScore()
	}
	if len(docs) > 0 {
		stats.AvgRelevanceScore = scoreSum / float64(len(docs))
	}
	return stats, nil
}

// --- structured path ---

func (r *Repo) findStructured(ctx context.Context, c request.Criteria) ([]domdoc.Document, int, error) {
	query := buildQuery(c)

	sortBy := string(c.SortBy)
	if sortBy == "" {
		sortBy = string(request.SortRelevance)
	}

	res, err := r.store.Search(ctx, &db.TextQuery{
		IndexName: r.IndexName(),
		Query:     query,
		Offset:    c.Offset,
		Limit:     c.Limit,
		SortBy:    sortBy,
		SortDesc:  c.SortDesc,
	})
	if err != nil {
		return nil, 0, err
	}

	docs := make([]domdoc.Document, 0, len(res.Entries))
	for _, entry := range res.Entries {
		raw, ok := entry.Fields["$"]
		if !ok {
			continue
		}
		var dto docDTO
		if err := json.Unmarshal([]byte(raw), &dto); err != nil {
			continue
		}
		docs = append(docs, dto.toDomain(r.docID(entry.Key)))
	}
	return docs, res.Total, nil
}

// buildQuery translates criteria into an FT.SEARCH query string. The
// substring predicate is an OR across title/body fields in every
// configured language: a match in either language counts.
func buildQuery(c request.Criteria) string {
	var parts []string

	if c.Text != "" {
		token := db.EscapeText(strings.ToLower(strings.TrimSpace(c.Text)))
		fields := make([]string, 0, 2*len(domain.Languages()))
		for _, lang := range domain.Languages() {
			fields = append(fields,
				fmt.Sprintf("@title_%s:(*%s*)", lang, token),
				fmt.Sprintf("@body_%s:(*%s*)", lang, token),
			)
		}
		parts = append(parts, "("+strings.Join(fields, " | ")+")")
	}

	if tag := tagUnion("content_type", contentTypeStrings(c.ContentTypes)); tag != "" {
		parts = append(parts, tag)
	}
	if tag := tagUnion("language", languageStrings(c.Languages)); tag != "" {
		parts = append(parts, tag)
	}
	if c.IsPublished != nil {
		parts = append(parts, fmt.Sprintf("@is_published:{%t}", *c.IsPublished))
	}
	if c.IsActive != nil {
		parts = append(parts, fmt.Sprintf("@is_active:{%t}", *c.IsActive))
	}
	if !c.CreatedAfter.IsZero() || !c.CreatedBefore.IsZero() {
		lower, upper := "-inf", "+inf"
		if !c.CreatedAfter.IsZero() {
			lower = fmt.Sprintf("%d", c.CreatedAfter.UnixMilli())
		}
		if !c.CreatedBefore.IsZero() {
			upper = fmt.Sprintf("%d", c.CreatedBefore.UnixMilli())
		}
		parts = append(parts, fmt.Sprintf("@created_at:[%s %s]", lower, upper))
	}

	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

func tagUnion(field string, values []string) string {
	if len(values) == 0 {
		return ""
	}
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = db.EscapeTag(v)
	}
	return fmt.Sprintf("@%s:{%s}", field, strings.Join(escaped, "|"))
}

func contentTypeStrings(types []domain.ContentType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func languageStrings(langs []domain.Language) []string {
	out := make([]string, len(langs))
	for i, l := range langs {
		out[i] = string(l)
	}
	return out
}

// --- fallback path ---

// findScan is the degraded path: load the whole index, filter and match
// in process, sort, then paginate. Filter semantics mirror the structured
// path exactly; only the mechanism differs.
func (r *Repo) findScan(ctx context.Context, c request.Criteria) ([]domdoc.Document, int, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return nil, 0, err
	}

	matched := make([]domdoc.Document, 0, len(all))
	for i := range all {
		if matchesCriteria(&all[i], c) {
			matched = append(matched, all[i])
		}
	}

	sortDocs(matched, c.SortBy, c.SortDesc)

	total := len(matched)
	start := c.Offset
	if start > total {
		start = total
	}
	end := start + c.Limit
	if c.Limit <= 0 || end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// loadAll scans every document key and hydrates the documents in batches,
// honoring the request deadline between batches.
func (r *Repo) loadAll(ctx context.Context) ([]domdoc.Document, error) {
	keys, err := r.store.Scan(ctx, r.prefix+"doc:*")
	if err != nil {
		return nil, fmt.Errorf("scan documents: %w", err)
	}

	docs := make([]domdoc.Document, 0, len(keys))
	for start := 0; start < len(keys); start += fallbackBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("scan canceled: %w", err)
		}

		end := start + fallbackBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[start:end]

		raws, err := r.store.JSONGetMulti(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("load batch: %w", err)
		}
		for i, raw := range raws {
			if raw == nil {
				continue
			}
			doc, err := decodeDoc(r.docID(batch[i]), raw)
			if err != nil {
				continue
			}
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func matchesCriteria(doc *domdoc.Document, c request.Criteria) bool {
	if len(c.ContentTypes) > 0 && !containsContentType(c.ContentTypes, doc.ContentKey().Type) {
		return false
	}
	if len(c.Languages) > 0 && !containsLanguage(c.Languages, doc.Language()) {
		return false
	}
	if c.IsPublished != nil && doc.IsPublished() != *c.IsPublished {
		return false
	}
	if c.IsActive != nil && doc.IsActive() != *c.IsActive {
		return false
	}
	if !c.CreatedAfter.IsZero() && doc.CreatedAt().Before(c.CreatedAfter) {
		return false
	}
	if !c.CreatedBefore.IsZero() && doc.CreatedAt().After(c.CreatedBefore) {
		return false
	}
	if c.Text != "" && !matchesText(doc, c.Text) {
		return false
	}
	return true
}

// matchesText applies the case-insensitive substring predicate across
// title and body in every configured language.
func matchesText(doc *domdoc.Document, text string) bool {
	needle := strings.ToLower(strings.TrimSpace(text))
	for _, lang := range domain.Languages() {
		if strings.Contains(strings.ToLower(doc.Title().Get(lang)), needle) && doc.Title().Get(lang) != "" {
			return true
		}
		if strings.Contains(strings.ToLower(doc.Body().Get(lang)), needle) && doc.Body().Get(lang) != "" {
			return true
		}
	}
	return false
}

func sortDocs(docs []domdoc.Document, sortBy request.SortField, desc bool) {
	less := func(a, b *domdoc.Document) bool {
		switch sortBy {
		case request.SortCreatedAt:
			return a.CreatedAt().Before(b.CreatedAt())
		case request.SortUpdatedAt:
			return a.UpdatedAt().Before(b.UpdatedAt())
		default:
			return a.RelevanceScore() < b.RelevanceScore()
		}
	}
	sort.SliceStable(docs, func(i, j int) bool {
		if desc {
			return less(&docs[j], &docs[i])
		}
		return less(&docs[i], &docs[j])
	})
}

func containsContentType(types []domain.ContentType, t domain.ContentType) bool {
	for _, ct := range types {
		if ct == t {
			return true
		}
	}
	return false
}

func containsLanguage(langs []domain.Language, l domain.Language) bool {
	for _, lang := range langs {
		if lang == l {
			return true
		}
	}
	return false
}

// --- helpers ---

func (r *Repo) put(ctx context.Context, doc *domdoc.Document) error {
	dto := toDTO(doc)
	data, err := json.Marshal(dto)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := r.store.JSONSet(ctx, r.docKey(doc.ID()), "$", data); err != nil {
		return fmt.Errorf("json.set %s: %w", doc.ID(), err)
	}
	return nil
}

// decodeDoc parses a JSON.GET "$" reply, which wraps the document in an array.
func decodeDoc(id string, raw []byte) (domdoc.Document, error) {
	var dtos []docDTO
	if err := json.Unmarshal(raw, &dtos); err != nil {
		var dto docDTO
		if err2 := json.Unmarshal(raw, &dto); err2 != nil {
			return domdoc.Document{}, fmt.Errorf("unmarshal document %s: %w", id, err)
		}
		return dto.toDomain(id), nil
	}
	if len(dtos) == 0 {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	return dtos[0].toDomain(id), nil
}

func (r *Repo) docKey(id string) string {
	return r.prefix + "doc:" + id
}

func (r *Repo) docID(key string) string {
	return strings.TrimPrefix(key, r.prefix+"doc:")
}

func (r *Repo) contentMapKey(key domain.ContentKey) string {
	return fmt.Sprintf("%scontent:%s:%s", r.prefix, key.Type, key.ID)
}

// IndexName returns the FT index name for the configured key prefix.
func (r *Repo) IndexName() string {
	return r.prefix + "doc:idx"
}
