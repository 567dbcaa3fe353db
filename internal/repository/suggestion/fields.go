package suggestion

import (
	"strconv"
	"time"

	"github.com/khojilab/khoji/internal/domain"
	domsugg "github.com/khojilab/khoji/internal/domain/suggestion"
)

// Hash field names for one suggestion record.
const (
	fieldTerm        = "term"
	fieldLanguage    = "language"
	fieldContentType = "content_type"
	fieldFrequency   = "frequency"
	fieldLastUsedAt  = "last_used_at" // unix milli
	fieldIsActive    = "is_active"    // "1" / "0"
	fieldCreatedAt   = "created_at"
	fieldUpdatedAt   = "updated_at"
)

func toFields(s *domsugg.Suggestion) map[string]string {
	fields := map[string]string{
		fieldTerm:       s.Term(),
		fieldLanguage:   string(s.Language()),
		fieldFrequency:  strconv.FormatInt(s.Frequency(), 10),
		fieldLastUsedAt: formatMilli(s.LastUsedAt()),
		fieldIsActive:   formatBool(s.IsActive()),
		fieldCreatedAt:  formatMilli(s.CreatedAt()),
		fieldUpdatedAt:  formatMilli(s.UpdatedAt()),
	}
	if s.ContentType() != "" {
		fields[fieldContentType] = string(s.ContentType())
	}
	return fields
}

func fromFields(fields map[string]string) domsugg.Suggestion {
	frequency, _ := strconv.ParseInt(fields[fieldFrequency], 10, 64)
	return domsugg.Reconstruct(
		fields[fieldTerm],
		domain.Language(fields[fieldLanguage]),
		domain.ContentType(fields[fieldContentType]),
		frequency,
		parseMilli(fields[fieldLastUsedAt]),
		fields[fieldIsActive] == "1",
		parseMilli(fields[fieldCreatedAt]),
		parseMilli(fields[fieldUpdatedAt]),
	)
}

func formatMilli(t time.Time) string {
	if t.IsZero() {
		return "0"
	}
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseMilli(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
