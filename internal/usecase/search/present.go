package search

import (
	"strings"
	"time"

	"github.com/khojilab/khoji/internal/domain"
	domdoc "github.com/khojilab/khoji/internal/domain/document"
	"github.com/khojilab/khoji/internal/domain/search/result"
)

const ellipsis = "..."

// snippet takes the leading runes of the body in the preferred language,
// falling back to any language variant and then to the title.
func snippet(doc *domdoc.Document, preferred domain.Language, maxRunes int) string {
	text := doc.Body().Get(preferred)
	if text == "" {
		for _, lang := range domain.Languages() {
			if t := doc.Body().Get(lang); t != "" {
				text = t
				break
			}
		}
	}
	if text == "" {
		text = doc.Title().Get(preferred)
	}
	if text == "" {
		for _, lang := range domain.Languages() {
			if t := doc.Title().Get(lang); t != "" {
				text = t
				break
			}
		}
	}
	return truncate(text, maxRunes)
}

func truncate(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes]) + ellipsis
}

// contentURL builds the document-relative URL for a content key from the
// per-type template, defaulting to /<type>/<contentId>.
func (s *Service) contentURL(key domain.ContentKey) string {
	if tpl, ok := s.opts.URLTemplates[key.Type]; ok {
		return strings.ReplaceAll(tpl, "{contentId}", key.ID)
	}
	return "/" + string(key.Type) + "/" + key.ID
}

// Date bucket boundaries relative to createdAt.
const (
	bucketWeek  = 7 * 24 * time.Hour
	bucketMonth = 30 * 24 * time.Hour
	bucketYear  = 365 * 24 * time.Hour
)

// buildFacets counts the pre-pagination match set by content type,
// language, tag, and coarse recency bucket.
func buildFacets(docs []domdoc.Document, now time.Time) result.Facets {
	facets := emptyFacets()
	for i := range docs {
		doc := &docs[i]
		facets.ByContentType[doc.ContentKey().Type]++
		facets.ByLanguage[doc.Language()]++
		for _, tag := range doc.Tags() {
			facets.ByTag[tag]++
		}
		facets.ByDate[dateBucket(doc.CreatedAt(), now)]++
	}
	return facets
}

func emptyFacets() result.Facets {
	return result.Facets{
		ByContentType: make(map[domain.ContentType]int),
		ByLanguage:    make(map[domain.Language]int),
		ByTag:         make(map[string]int),
		ByDate:        make(map[result.DateBucket]int),
	}
}

func dateBucket(createdAt, now time.Time) result.DateBucket {
	if createdAt.IsZero() {
		return result.BucketOlder
	}
	y1, m1, d1 := createdAt.Date()
	y2, m2, d2 := now.Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return result.BucketToday
	}
	age := now.Sub(createdAt)
	switch {
	case age <= bucketWeek:
		return result.BucketThisWeek
	case age <= bucketMonth:
		return result.BucketThisMonth
	case age <= bucketYear:
		return result.BucketThisYear
	default:
		return result.BucketOlder
	}
}
