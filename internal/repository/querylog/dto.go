package querylog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/khojilab/khoji/internal/domain"
	domqlog "github.com/khojilab/khoji/internal/domain/querylog"
)

// recordDTO is the RedisJSON shape of one query record.
type recordDTO struct {
	ID              string            `json:"id"`
	Query           string            `json:"query"`
	Language        string            `json:"language,omitempty"`
	ContentType     string            `json:"content_type,omitempty"`
	Filters         map[string]string `json:"filters,omitempty"`
	ResultsCount    int               `json:"results_count"`
	ExecutionTimeMs int64             `json:"execution_time_ms"`
	IPAddress       string            `json:"ip_address,omitempty"`
	UserAgent       string            `json:"user_agent,omitempty"`
	UserID          string            `json:"user_id,omitempty"`
	CreatedAt       int64             `json:"created_at"` // unix milli
}

func toDTO(rec *domqlog.Record) recordDTO {
	return recordDTO{
		ID:              rec.ID,
		Query:           rec.Query,
		Language:        string(rec.Language),
		ContentType:     string(rec.ContentType),
		Filters:         rec.Filters,
		ResultsCount:    rec.ResultsCount,
		ExecutionTimeMs: rec.ExecutionTimeMs,
		IPAddress:       rec.IPAddress,
		UserAgent:       rec.UserAgent,
		UserID:          rec.UserID,
		CreatedAt:       rec.CreatedAt.UnixMilli(),
	}
}

func (d *recordDTO) toDomain() domqlog.Record {
	return domqlog.Record{
		ID:              d.ID,
		Query:           d.Query,
		Language:        domain.Language(d.Language),
		ContentType:     domain.ContentType(d.ContentType),
		Filters:         d.Filters,
		ResultsCount:    d.ResultsCount,
		ExecutionTimeMs: d.ExecutionTimeMs,
		IPAddress:       d.IPAddress,
		UserAgent:       d.UserAgent,
		UserID:          d.UserID,
		CreatedAt:       time.UnixMilli(d.CreatedAt).UTC(),
	}
}

// decodeRecord parses a JSON.GET "$" reply, which wraps the record in an array.
func decodeRecord(raw []byte) (domqlog.Record, error) {
	var dtos []recordDTO
	if err := json.Unmarshal(raw, &dtos); err != nil {
		var dto recordDTO
		if err2 := json.Unmarshal(raw, &dto); err2 != nil {
			return domqlog.Record{}, fmt.Errorf("unmarshal record: %w", err)
		}
		return dto.toDomain(), nil
	}
	if len(dtos) == 0 {
		return domqlog.Record{}, fmt.Errorf("empty record reply")
	}
	return dtos[0].toDomain(), nil
}
