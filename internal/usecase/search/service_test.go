package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/khojilab/khoji/internal/domain"
	domdoc "github.com/khojilab/khoji/internal/domain/document"
	domqlog "github.com/khojilab/khoji/internal/domain/querylog"
	"github.com/khojilab/khoji/internal/domain/search/request"
	domsugg "github.com/khojilab/khoji/internal/domain/suggestion"
)

func TestSearch_RanksBilingualMatches(t *testing.T) {
	svc, md, _, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	// Doc A matches in English, doc B in Nepali; the index returns them
	// ordered by relevance and both must appear ranked.
	docA := testDoc(t, "a", domain.LocalizedText{domain.LanguageEN: "Bus schedule"}, 0.9, now)
	docB := testDoc(t, "b", domain.LocalizedText{domain.LanguageNE: "बस समय"}, 0.4, now)

	md.findFn = func(_ context.Context, c request.Criteria) ([]domdoc.Document, int, error) {
		if c.IsPublished == nil || !*c.IsPublished {
			t.Error("public search must restrict to published documents")
		}
		if c.IsActive == nil || !*c.IsActive {
			t.Error("public search must restrict to active documents")
		}
		return []domdoc.Document{docA, docB}, 2, nil
	}

	resp, err := svc.Search(ctx, simpleRequest(t, "bus"), ClientInfo{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Total != 2 || len(resp.Items) != 2 {
		t.Fatalf("expected both documents, got total=%d items=%d", resp.Total, len(resp.Items))
	}
	if resp.Items[0].ID != "a" || resp.Items[0].Rank != 1 {
		t.Fatalf("expected doc a at rank 1, got %s rank %d", resp.Items[0].ID, resp.Items[0].Rank)
	}
	if resp.Items[1].Rank != 2 {
		t.Fatalf("expected rank 2, got %d", resp.Items[1].Rank)
	}
	if resp.Pagination.TotalPages != 1 {
		t.Fatalf("expected 1 page, got %d", resp.Pagination.TotalPages)
	}
}

func TestSearch_RankContinuesAcrossPages(t *testing.T) {
	svc, md, _, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	md.findFn = func(_ context.Context, c request.Criteria) ([]domdoc.Document, int, error) {
		if c.Offset != 20 {
			t.Errorf("expected offset 20 for page 2, got %d", c.Offset)
		}
		doc := testDoc(t, "x", domain.LocalizedText{domain.LanguageEN: "Bus"}, 0.5, now)
		return []domdoc.Document{doc}, 21, nil
	}

	req, err := request.New("bus", "", "", nil, 2, 20, "", false)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := svc.Search(ctx, &req, ClientInfo{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Items[0].Rank != 21 {
		t.Fatalf("rank must continue across pages, got %d", resp.Items[0].Rank)
	}
	if resp.Pagination.TotalPages != 2 {
		t.Fatalf("expected 2 pages, got %d", resp.Pagination.TotalPages)
	}
}

func TestSearch_ZeroResultsStillLogged(t *testing.T) {
	svc, md, _, mq := newTestService(t)
	ctx := context.Background()

	md.findFn = func(_ context.Context, _ request.Criteria) ([]domdoc.Document, int, error) {
		return nil, 0, nil
	}
	recorded := make(chan domqlog.Record, 1)
	mq.appendFn = func(_ context.Context, rec *domqlog.Record) error {
		recorded <- *rec
		return nil
	}

	resp, err := svc.Search(ctx, simpleRequest(t, "nothing matches"), ClientInfo{IPAddress: "10.0.0.1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Total != 0 {
		t.Fatalf("expected zero results, got %d", resp.Total)
	}

	rec := waitForRecord(t, recorded)
	if rec.Query != "nothing matches" {
		t.Errorf("unexpected logged query: %s", rec.Query)
	}
	if rec.ResultsCount != 0 {
		t.Errorf("expected resultsCount 0, got %d", rec.ResultsCount)
	}
	if rec.IPAddress != "10.0.0.1" {
		t.Errorf("client info not captured: %s", rec.IPAddress)
	}
}

func TestSearch_LoggingFailureDoesNotSurface(t *testing.T) {
	svc, md, _, mq := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	md.findFn = func(_ context.Context, _ request.Criteria) ([]domdoc.Document, int, error) {
		doc := testDoc(t, "a", domain.LocalizedText{domain.LanguageEN: "Bus"}, 0.5, now)
		return []domdoc.Document{doc}, 1, nil
	}
	attempted := make(chan struct{}, 1)
	mq.appendFn = func(_ context.Context, _ *domqlog.Record) error {
		attempted <- struct{}{}
		return errors.New("store down")
	}

	resp, err := svc.Search(ctx, simpleRequest(t, "bus"), ClientInfo{})
	if err != nil {
		t.Fatalf("logging failures must not fail the search: %v", err)
	}
	if resp.Total != 1 {
		t.Fatalf("expected the search result, got total=%d", resp.Total)
	}

	select {
	case <-attempted:
	case <-time.After(2 * time.Second):
		t.Fatal("query log append was never attempted")
	}
}

func TestSearch_SuggestionsBestEffort(t *testing.T) {
	svc, md, msg, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	md.findFn = func(_ context.Context, _ request.Criteria) ([]domdoc.Document, int, error) {
		doc := testDoc(t, "a", domain.LocalizedText{domain.LanguageEN: "Bus"}, 0.5, now)
		return []domdoc.Document{doc}, 1, nil
	}
	msg.findByPrefixFn = func(_ context.Context, _ string, _ domain.Language, _ int) ([]domsugg.Suggestion, error) {
		return nil, errors.New("suggestion store down")
	}

	resp, err := svc.Search(ctx, simpleRequest(t, "bus"), ClientInfo{})
	if err != nil {
		t.Fatalf("suggestion failures must not fail the search: %v", err)
	}
	if resp.Suggestions != nil {
		t.Fatalf("expected no suggestions, got %v", resp.Suggestions)
	}
}

func TestSearch_AttachesSuggestions(t *testing.T) {
	svc, md, msg, _ := newTestService(t)
	ctx := context.Background()

	md.findFn = func(_ context.Context, _ request.Criteria) ([]domdoc.Document, int, error) {
		return nil, 0, nil
	}
	msg.findByPrefixFn = func(_ context.Context, prefix string, language domain.Language, limit int) ([]domsugg.Suggestion, error) {
		if prefix != "bus" || language != domain.LanguageEN {
			t.Errorf("unexpected lookup: %s %s", prefix, language)
		}
		if limit != MaxSuggestions {
			t.Errorf("expected limit %d, got %d", MaxSuggestions, limit)
		}
		s1, _ := domsugg.New("bus schedule", domain.LanguageEN, "")
		s2, _ := domsugg.New("bus fare", domain.LanguageEN, "")
		return []domsugg.Suggestion{s1, s2}, nil
	}

	resp, err := svc.Search(ctx, simpleRequest(t, "bus"), ClientInfo{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Suggestions) != 2 || resp.Suggestions[0] != "bus schedule" {
		t.Fatalf("unexpected suggestions: %v", resp.Suggestions)
	}
}

func TestSearch_IncrementsTermUsage(t *testing.T) {
	svc, md, msg, mq := newTestService(t)
	ctx := context.Background()

	md.findFn = func(_ context.Context, _ request.Criteria) ([]domdoc.Document, int, error) {
		return nil, 0, nil
	}
	logged := make(chan domqlog.Record, 1)
	mq.appendFn = func(_ context.Context, rec *domqlog.Record) error {
		logged <- *rec
		return nil
	}
	incremented := make(chan string, 1)
	msg.incrementUsageFn = func(_ context.Context, term string, _ domain.Language) (int64, error) {
		incremented <- term
		return 2, nil
	}

	if _, err := svc.Search(ctx, simpleRequest(t, "bus"), ClientInfo{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	waitForRecord(t, logged)
	select {
	case term := <-incremented:
		if term != "bus" {
			t.Fatalf("unexpected term: %s", term)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("term usage was never incremented")
	}
}

func TestSearchAdvanced_BuildsStructuredCriteria(t *testing.T) {
	svc, md, _, _ := newTestService(t)
	ctx := context.Background()

	after := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var gotCriteria request.Criteria
	md.findFn = func(_ context.Context, c request.Criteria) ([]domdoc.Document, int, error) {
		gotCriteria = c
		return nil, 0, nil
	}

	adv := &request.Advanced{
		Query:        "budget",
		ContentTypes: []domain.ContentType{domain.ContentTypeFAQ, domain.ContentTypeDocument},
		Languages:    []domain.Language{domain.LanguageNE},
		CreatedAfter: after,
	}
	if _, err := svc.SearchAdvanced(ctx, adv, ClientInfo{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(gotCriteria.ContentTypes) != 2 {
		t.Errorf("content types not forwarded: %v", gotCriteria.ContentTypes)
	}
	if len(gotCriteria.Languages) != 1 || gotCriteria.Languages[0] != domain.LanguageNE {
		t.Errorf("languages not forwarded: %v", gotCriteria.Languages)
	}
	if !gotCriteria.CreatedAfter.Equal(after) {
		t.Errorf("date range not forwarded: %v", gotCriteria.CreatedAfter)
	}
	if gotCriteria.IsPublished == nil || !*gotCriteria.IsPublished {
		t.Error("advanced search must stay public-only")
	}
}

func TestSearchAdvanced_RejectsInvertedDateRange(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	adv := &request.Advanced{
		Query:         "budget",
		CreatedAfter:  time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		CreatedBefore: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	_, err := svc.SearchAdvanced(ctx, adv, ClientInfo{})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
