package result

import (
	"time"

	"github.com/khojilab/khoji/internal/domain"
)

// Item is one ranked search hit with presentation fields attached by the
// orchestrator (rank, snippet, URL).
type Item struct {
	ID             string               `json:"id"`
	ContentID      string               `json:"contentId"`
	ContentType    domain.ContentType   `json:"contentType"`
	Title          domain.LocalizedText `json:"title"`
	Snippet        string               `json:"snippet"`
	URL            string               `json:"url"`
	Language       domain.Language      `json:"language"`
	Tags           []string             `json:"tags,omitempty"`
	RelevanceScore float64              `json:"relevanceScore"`
	Rank           int                  `json:"rank"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

// DateBucket is a coarse recency bucket for facet counts.
type DateBucket string

const (
	BucketToday     DateBucket = "today"
	BucketThisWeek  DateBucket = "this_week"
	BucketThisMonth DateBucket = "this_month"
	BucketThisYear  DateBucket = "this_year"
	BucketOlder     DateBucket = "older"
)

// Facets are count breakdowns of the matching set before pagination.
type Facets struct {
	ByContentType map[domain.ContentType]int `json:"byContentType"`
	ByLanguage    map[domain.Language]int    `json:"byLanguage"`
	ByTag         map[string]int             `json:"byTag"`
	ByDate        map[DateBucket]int         `json:"byDate"`
}

// Page carries pagination metadata.
type Page struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

// Response is the complete orchestrated search response.
type Response struct {
	Query           string   `json:"query"`
	Total           int      `json:"total"`
	ExecutionTimeMs int64    `json:"executionTimeMs"`
	Items           []Item   `json:"items"`
	Suggestions     []string `json:"suggestions,omitempty"`
	Pagination      Page     `json:"pagination"`
	Facets          Facets   `json:"facets"`
}
