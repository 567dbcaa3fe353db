package querylog

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domqlog "github.com/khojilab/khoji/internal/domain/querylog"
)

// DefaultKeyPrefix namespaces all query-log keys.
const DefaultKeyPrefix = "khoji:"

// loadBatchSize bounds one JSONGetMulti round-trip during a window scan.
const loadBatchSize = 256

// store is the consumer interface for the query log (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGetMulti(ctx context.Context, keys []string) ([][]byte, error)
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo stores query records as JSON documents keyed by creation time.
// The key embeds the unix-milli timestamp so window scans and the purge
// can filter on key names alone without hydrating every record.
type Repo struct {
	store  store
	prefix string
	logger *zap.Logger
}

// New creates a query-log repository.
func New(s store, logger *zap.Logger) *Repo {
	return &Repo{store: s, prefix: DefaultKeyPrefix, logger: logger}
}

// WithKeyPrefix overrides the key namespace.
func (r *Repo) WithKeyPrefix(prefix string) *Repo {
	if prefix != "" {
		r.prefix = prefix
	}
	return r
}

// Append inserts one record, assigning its id and creation time when the
// caller left them empty. Records are never updated afterwards.
func (r *Repo) Append(ctx context.Context, rec *domqlog.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(toDTO(rec))
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	key := r.recordKey(rec.CreatedAt, rec.ID)
	if err := r.store.JSONSet(ctx, key, "$", data); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// FindSince returns all records created at or after the cutoff, oldest
// first. The window filter runs on key timestamps before any hydration.
func (r *Repo) FindSince(ctx context.Context, since time.Time) ([]domqlog.Record, error) {
	keys, err := r.keysSince(ctx, since)
	if err != nil {
		return nil, err
	}

	records := make([]domqlog.Record, 0, len(keys))
	for start := 0; start < len(keys); start += loadBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("window scan canceled: %w", err)
		}

		end := start + loadBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[start:end]

		raws, err := r.store.JSONGetMulti(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("load records: %w", err)
		}
		for i, raw := range raws {
			if raw == nil {
				continue
			}
			rec, err := decodeRecord(raw)
			if err != nil {
				r.logger.Warn("skipping malformed query record",
					zap.String("key", batch[i]),
					zap.Error(err),
				)
				continue
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

// PurgeOlderThan hard-deletes records created before the cutoff and
// returns the number removed.
func (r *Repo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	keys, err := r.store.Scan(ctx, r.prefix+"qlog:*")
	if err != nil {
		return 0, fmt.Errorf("scan records: %w", err)
	}

	cutoffMilli := cutoff.UnixMilli()
	removed := 0
	for _, key := range keys {
		ts, ok := r.keyMilli(key)
		if !ok || ts >= cutoffMilli {
			continue
		}
		if err := r.store.Del(ctx, key); err != nil {
			r.logger.Warn("purge delete failed",
				zap.String("key", key),
				zap.Error(err),
			)
			continue
		}
		removed++
	}
	return removed, nil
}

func (r *Repo) keysSince(ctx context.Context, since time.Time) ([]string, error) {
	keys, err := r.store.Scan(ctx, r.prefix+"qlog:*")
	if err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}

	sinceMilli := since.UnixMilli()
	matched := make([]keyedMilli, 0, len(keys))
	for _, key := range keys {
		ts, ok := r.keyMilli(key)
		if !ok || ts < sinceMilli {
			continue
		}
		matched = append(matched, keyedMilli{key: key, milli: ts})
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].milli < matched[j].milli })
	out := make([]string, len(matched))
	for i, km := range matched {
		out[i] = km.key
	}
	return out, nil
}

type keyedMilli struct {
	key   string
	milli int64
}

func (r *Repo) recordKey(createdAt time.Time, id string) string {
	return fmt.Sprintf("%sqlog:%d:%s", r.prefix, createdAt.UnixMilli(), id)
}

// keyMilli extracts the embedded creation timestamp from a record key.
func (r *Repo) keyMilli(key string) (int64, bool) {
	rest := strings.TrimPrefix(key, r.prefix+"qlog:")
	idx := strings.IndexByte(rest, ':')
	if idx <= 0 {
		return 0, false
	}
	ms, err := strconv.ParseInt(rest[:idx], 10, 64)
	if err != nil {
		return 0, false
	}
	return ms, true
}
