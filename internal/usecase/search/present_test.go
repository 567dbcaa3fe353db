package search

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/khojilab/khoji/internal/domain"
	domdoc "github.com/khojilab/khoji/internal/domain/document"
	"github.com/khojilab/khoji/internal/domain/search/result"
)

func presentDoc(t *testing.T, body domain.LocalizedText) domdoc.Document {
	t.Helper()
	now := time.Now()
	return domdoc.Reconstruct(
		"doc-1",
		domain.ContentKey{ID: "c-1", Type: domain.ContentTypeFAQ},
		domain.LocalizedText{domain.LanguageEN: "Visa rules"},
		body, nil, nil,
		domain.LanguageEN, true, true, 0.5,
		now, now, now,
	)
}

func TestSnippet_PreferredLanguageBody(t *testing.T) {
	doc := presentDoc(t, domain.LocalizedText{
		domain.LanguageEN: "English body text.",
		domain.LanguageNE: "नेपाली पाठ।",
	})

	got := snippet(&doc, domain.LanguageNE, 160)
	if got != "नेपाली पाठ।" {
		t.Fatalf("expected the Nepali body, got %q", got)
	}
}

func TestSnippet_FallsBackToOtherLanguageThenTitle(t *testing.T) {
	withBody := presentDoc(t, domain.LocalizedText{domain.LanguageEN: "English only."})
	if got := snippet(&withBody, domain.LanguageNE, 160); got != "English only." {
		t.Fatalf("expected fallback to the English body, got %q", got)
	}

	noBody := presentDoc(t, nil)
	if got := snippet(&noBody, domain.LanguageEN, 160); got != "Visa rules" {
		t.Fatalf("expected fallback to the title, got %q", got)
	}
}

func TestSnippet_TruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("क", 50)
	doc := presentDoc(t, domain.LocalizedText{domain.LanguageEN: long})

	got := snippet(&doc, domain.LanguageEN, 10)
	if !strings.HasSuffix(got, ellipsis) {
		t.Fatalf("expected an ellipsis marker, got %q", got)
	}
	if n := len([]rune(strings.TrimSuffix(got, ellipsis))); n != 10 {
		t.Fatalf("expected 10 runes before the marker, got %d", n)
	}
}

func TestSnippet_ShortTextIsNotTruncated(t *testing.T) {
	doc := presentDoc(t, domain.LocalizedText{domain.LanguageEN: "short"})
	if got := snippet(&doc, domain.LanguageEN, 160); got != "short" {
		t.Fatalf("short text must pass through unchanged, got %q", got)
	}
}

func TestContentURL(t *testing.T) {
	svc := New(&mockDocs{}, &mockSuggs{}, &mockQLog{}, Options{
		URLTemplates: map[domain.ContentType]string{
			domain.ContentTypeFAQ: "/help/faq/{contentId}",
		},
	}, zap.NewNop())

	tests := []struct {
		key  domain.ContentKey
		want string
	}{
		{domain.ContentKey{ID: "42", Type: domain.ContentTypeFAQ}, "/help/faq/42"},
		{domain.ContentKey{ID: "7", Type: domain.ContentTypeMedia}, "/media/7"},
		{domain.ContentKey{ID: "x", Type: domain.ContentTypeDepartment}, "/department/x"},
	}
	for _, tt := range tests {
		if got := svc.contentURL(tt.key); got != tt.want {
			t.Errorf("contentURL(%v) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestBuildFacets(t *testing.T) {
	now := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)

	mk := func(id string, ct domain.ContentType, lang domain.Language, tags []string, createdAt time.Time) domdoc.Document {
		return domdoc.Reconstruct(
			id, domain.ContentKey{ID: "c-" + id, Type: ct},
			domain.LocalizedText{domain.LanguageEN: "t"}, nil, nil, tags,
			lang, true, true, 0.5, createdAt, createdAt, createdAt,
		)
	}

	docs := []domdoc.Document{
		mk("a", domain.ContentTypeFAQ, domain.LanguageEN, []string{"visa"}, now.Add(-time.Hour)),
		mk("b", domain.ContentTypeFAQ, domain.LanguageNE, []string{"visa", "travel"}, now.Add(-3*24*time.Hour)),
		mk("c", domain.ContentTypeMedia, domain.LanguageEN, nil, now.Add(-400*24*time.Hour)),
	}

	facets := buildFacets(docs, now)

	if facets.ByContentType[domain.ContentTypeFAQ] != 2 {
		t.Errorf("unexpected faq count: %d", facets.ByContentType[domain.ContentTypeFAQ])
	}
	if facets.ByLanguage[domain.LanguageNE] != 1 {
		t.Errorf("unexpected ne count: %d", facets.ByLanguage[domain.LanguageNE])
	}
	if facets.ByTag["visa"] != 2 {
		t.Errorf("unexpected visa tag count: %d", facets.ByTag["visa"])
	}
	if facets.ByDate[result.BucketToday] != 1 {
		t.Errorf("unexpected today count: %d", facets.ByDate[result.BucketToday])
	}
	if facets.ByDate[result.BucketThisWeek] != 1 {
		t.Errorf("unexpected this_week count: %d", facets.ByDate[result.BucketThisWeek])
	}
	if facets.ByDate[result.BucketOlder] != 1 {
		t.Errorf("unexpected older count: %d", facets.ByDate[result.BucketOlder])
	}
}

func TestDateBucket(t *testing.T) {
	now := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		createdAt time.Time
		want      result.DateBucket
	}{
		{"same day", now.Add(-2 * time.Hour), result.BucketToday},
		{"three days ago", now.Add(-3 * 24 * time.Hour), result.BucketThisWeek},
		{"three weeks ago", now.Add(-21 * 24 * time.Hour), result.BucketThisMonth},
		{"three months ago", now.Add(-90 * 24 * time.Hour), result.BucketThisYear},
		{"two years ago", now.Add(-730 * 24 * time.Hour), result.BucketOlder},
		{"zero time", time.Time{}, result.BucketOlder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dateBucket(tt.createdAt, now); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
