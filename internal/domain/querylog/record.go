package querylog

import (
	"fmt"
	"time"

	"github.com/khojilab/khoji/internal/domain"
)

// Record is one executed search query, append-only. Records are never
// mutated; retention is enforced by an age-based purge.
type Record struct {
	ID              string
	Query           string
	Language        domain.Language
	ContentType     domain.ContentType // optional filter the caller used
	Filters         map[string]string  // optional structured filters
	ResultsCount    int
	ExecutionTimeMs int64
	IPAddress       string
	UserAgent       string
	UserID          string // optional, empty = anonymous
	CreatedAt       time.Time
}

// Validate checks the minimal shape of a record before appending.
func (r *Record) Validate() error {
	if r.Query == "" {
		return fmt.Errorf("query is required: %w", domain.ErrValidation)
	}
	if r.ResultsCount < 0 {
		return fmt.Errorf("results count must be non-negative: %w", domain.ErrValidation)
	}
	return nil
}

// PopularQuery is one aggregated row of the popular-queries report.
type PopularQuery struct {
	Query          string  `json:"query"`
	Count          int     `json:"count"`
	LastSearchedAt int64   `json:"lastSearchedAt"` // unix milli
	AvgResults     float64 `json:"avgResults"`
}

// Analytics is the time-windowed aggregate over the query log. Hour and
// day breakdowns are derived from record timestamps, never synthesized.
type Analytics struct {
	WindowDays        int            `json:"windowDays"`
	TotalQueries      int            `json:"totalQueries"`
	UniqueUsers       int            `json:"uniqueUsers"`
	AvgQueriesPerUser float64        `json:"avgQueriesPerUser"`
	PopularQueries    []PopularQuery `json:"popularQueries"`
	AvgResultsCount   float64        `json:"avgResultsCount"`
	ZeroResultCount   int            `json:"zeroResultCount"`
	QueriesByHour     [24]int        `json:"queriesByHour"`
	QueriesByDay      map[string]int `json:"queriesByDay"` // YYYY-MM-DD -> count
}
