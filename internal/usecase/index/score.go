package index

import (
	"time"

	"github.com/khojilab/khoji/internal/domain"
	domdoc "github.com/khojilab/khoji/internal/domain/document"
)

// Relevance weights. The score is document-intrinsic: a quality and
// freshness signal recomputed on reindex, independent of any query.
const (
	weightTitleCoverage = 0.25
	weightBodyPresence  = 0.15
	weightDescPresence  = 0.05
	weightTags          = 0.15
	weightRecency       = 0.40

	tagsSaturation = 3
)

// Recency decay steps relative to updatedAt.
const (
	recencyWeek    = 7 * 24 * time.Hour
	recencyMonth   = 30 * 24 * time.Hour
	recencyQuarter = 90 * 24 * time.Hour
)

// Score computes the deterministic relevance score for a document.
// Same document, same reference time, same score.
func Score(doc *domdoc.Document, now time.Time) float64 {
	score := weightTitleCoverage*titleCoverage(doc) +
		weightBodyPresence*presence(!doc.Body().IsEmpty()) +
		weightDescPresence*presence(!doc.Description().IsEmpty()) +
		weightTags*tagSignal(len(doc.Tags())) +
		weightRecency*recency(doc.UpdatedAt(), now)

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// titleCoverage is the fraction of configured languages with a non-empty
// title, rewarding fully bilingual content.
func titleCoverage(doc *domdoc.Document) float64 {
	langs := domain.Languages()
	covered := 0
	for _, lang := range langs {
		if doc.Title().Get(lang) != "" {
			covered++
		}
	}
	return float64(covered) / float64(len(langs))
}

func presence(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}

// tagSignal saturates at tagsSaturation tags.
func tagSignal(n int) float64 {
	if n > tagsSaturation {
		n = tagsSaturation
	}
	return float64(n) / float64(tagsSaturation)
}

func recency(updatedAt, now time.Time) float64 {
	if updatedAt.IsZero() {
		return 0
	}
	age := now.Sub(updatedAt)
	switch {
	case age <= recencyWeek:
		return 1.0
	case age <= recencyMonth:
		return 0.66
	case age <= recencyQuarter:
		return 0.33
	default:
		return 0
	}
}
