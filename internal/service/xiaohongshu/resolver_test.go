package xiaohongshu

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"go.uber.org/zap"
)

type fakeSearcher struct {
	// pages holds the scripted result pages per keyword.
	pages map[string][][]SearchItem
	// failPage makes Search error on that page number (0 = never).
	failPage int
	calls    []SearchRequest
}

func (f *fakeSearcher) Search(_ context.Context, req SearchRequest) ([]SearchItem, error) {
	f.calls = append(f.calls, req)
	if f.failPage != 0 && req.Page == f.failPage {
		return nil, fmt.Errorf("search page %d failed", req.Page)
	}
	pages := f.pages[req.Keyword]
	if req.Page-1 < len(pages) {
		return pages[req.Page-1], nil
	}
	return nil, nil
}

func searchItem(id, token, userID, title string) SearchItem {
	return SearchItem{
		ID:        id,
		XsecToken: token,
		NoteCard: &NoteCard{
			ID:           id,
			DisplayTitle: title,
			User:         &CardUser{UserID: userID},
		},
	}
}

func newTestResolver(s Searcher) *Resolver {
	return NewResolver(s, zap.NewNop())
}

func TestResolvePrefersExactIDMatch(t *testing.T) {
	searcher := &fakeSearcher{pages: map[string][][]SearchItem{
		"咖啡探店": {{
			searchItem("other1", "tok-a", "u1", "别家咖啡"),
			searchItem("note42", "tok-b", "u1", "咖啡探店"),
		}},
	}}

	resolver := newTestResolver(searcher)
	match, err := resolver.Resolve(context.Background(), TokenQuery{
		NoteID: "note42", Title: "咖啡探店", UserID: "u1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if match.FoundID != "note42" || match.XsecToken != "tok-b" {
		t.Errorf("got FoundID=%q token=%q, want the id-equal item", match.FoundID, match.XsecToken)
	}

	// Same pages, same pick.
	again, err := resolver.Resolve(context.Background(), TokenQuery{
		NoteID: "note42", Title: "咖啡探店", UserID: "u1",
	})
	if err != nil || again.FoundID != match.FoundID || again.XsecToken != match.XsecToken {
		t.Errorf("repeated resolution diverged: %+v vs %+v", again, match)
	}
	if match.NoteID != "note42" {
		t.Errorf("original note id not preserved: %q", match.NoteID)
	}
	if match.XsecSource != "pc_search" {
		t.Errorf("empty source not defaulted: %q", match.XsecSource)
	}
}

func TestResolveSkipsTokenlessItems(t *testing.T) {
	searcher := &fakeSearcher{pages: map[string][][]SearchItem{
		"咖啡探店": {{
			searchItem("other1", "", "u1", "无token"),
			{ID: "other2", XsecToken: "tok"}, // no note card
			searchItem("other3", "tok-c", "u1", "有token"),
		}},
	}}

	match, err := newTestResolver(searcher).Resolve(context.Background(), TokenQuery{
		NoteID: "note42", Title: "咖啡探店", UserID: "u1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if match.FoundID != "other3" {
		t.Errorf("FoundID = %q, want other3", match.FoundID)
	}
}

func TestResolveFallsBackToFirstValid(t *testing.T) {
	// Every hit belongs to a different creator, so the constrained
	// strategies reject them; the last resort takes the first token.
	searcher := &fakeSearcher{pages: map[string][][]SearchItem{
		"咖啡探店": {{searchItem("stranger", "tok-s", "u9", "咖啡探店")}},
	}}

	match, err := newTestResolver(searcher).Resolve(context.Background(), TokenQuery{
		NoteID: "note42", Title: "咖啡探店", UserID: "u1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if match.FoundID != "stranger" || match.UserID != "u9" {
		t.Errorf("got FoundID=%q user=%q, want the unconstrained hit", match.FoundID, match.UserID)
	}
}

func TestResolveKeywordSplit(t *testing.T) {
	searcher := &fakeSearcher{pages: map[string][][]SearchItem{
		"手冲": {{searchItem("note42", "tok", "u1", "手冲 咖啡")}},
	}}

	match, err := newTestResolver(searcher).Resolve(context.Background(), TokenQuery{
		NoteID: "note42", Title: "手冲 咖啡", UserID: "u1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if match.FoundID != "note42" {
		t.Errorf("FoundID = %q, want note42", match.FoundID)
	}

	var keywords []string
	for _, call := range searcher.calls {
		keywords = append(keywords, call.Keyword)
	}
	// Full title first, then the first split keyword succeeds.
	if keywords[0] != "手冲 咖啡" || keywords[len(keywords)-1] != "手冲" {
		t.Errorf("unexpected search order: %v", keywords)
	}
}

func TestResolveNoMatch(t *testing.T) {
	searcher := &fakeSearcher{pages: map[string][][]SearchItem{}}

	_, err := newTestResolver(searcher).Resolve(context.Background(), TokenQuery{
		NoteID: "note42", Title: "咖啡探店",
	})
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("err = %v, want ErrNoMatch", err)
	}
}

func TestResolveNoTitle(t *testing.T) {
	searcher := &fakeSearcher{}

	_, err := newTestResolver(searcher).Resolve(context.Background(), TokenQuery{NoteID: "note42"})
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("err = %v, want ErrNoMatch", err)
	}
	if len(searcher.calls) != 0 {
		t.Errorf("expected no searches without a title, got %d", len(searcher.calls))
	}
}

func TestResolveSurvivesStrategyErrors(t *testing.T) {
	// Every search fails; the chain must end in ErrNoMatch rather than
	// surfacing a strategy error.
	searcher := &fakeSearcher{failPage: 1}

	_, err := newTestResolver(searcher).Resolve(context.Background(), TokenQuery{
		NoteID: "note42", Title: "咖啡探店",
	})
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("err = %v, want ErrNoMatch", err)
	}
}

func fullPage(n int) []SearchItem {
	page := make([]SearchItem, n)
	for i := range page {
		page[i] = searchItem(fmt.Sprintf("id%d", i), "tok", "u1", "t")
	}
	return page
}

func TestSearchAllPagesStopsOnShortPage(t *testing.T) {
	searcher := &fakeSearcher{pages: map[string][][]SearchItem{
		"k": {fullPage(2), fullPage(1), fullPage(2)},
	}}

	items, err := searchAllPages(context.Background(), searcher, SearchRequest{Keyword: "k", PageSize: 2}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("collected %d items, want 3", len(items))
	}
	if len(searcher.calls) != 2 {
		t.Errorf("made %d calls, want 2", len(searcher.calls))
	}
}

func TestSearchAllPagesStopsOnEmptyPage(t *testing.T) {
	searcher := &fakeSearcher{pages: map[string][][]SearchItem{
		"k": {fullPage(2), {}, fullPage(2)},
	}}

	items, err := searchAllPages(context.Background(), searcher, SearchRequest{Keyword: "k", PageSize: 2}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("collected %d items, want 2", len(items))
	}
}

func TestSearchAllPagesHonorsMaxPages(t *testing.T) {
	searcher := &fakeSearcher{pages: map[string][][]SearchItem{
		"k": {fullPage(2), fullPage(2), fullPage(2), fullPage(2)},
	}}

	items, err := searchAllPages(context.Background(), searcher, SearchRequest{Keyword: "k", PageSize: 2}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 6 {
		t.Errorf("collected %d items, want 6", len(items))
	}
	if len(searcher.calls) != 3 {
		t.Errorf("made %d calls, want 3", len(searcher.calls))
	}
}

func TestSearchAllPagesKeepsPartialResultsOnError(t *testing.T) {
	searcher := &fakeSearcher{
		pages:    map[string][][]SearchItem{"k": {fullPage(2), fullPage(2)}},
		failPage: 2,
	}

	items, err := searchAllPages(context.Background(), searcher, SearchRequest{Keyword: "k", PageSize: 2}, 10)
	if err != nil {
		t.Fatalf("partial results should suppress the page error, got %v", err)
	}
	if len(items) != 2 {
		t.Errorf("collected %d items, want 2", len(items))
	}

	// A first-page failure has nothing to fall back to.
	searcher = &fakeSearcher{failPage: 1}
	if _, err := searchAllPages(context.Background(), searcher, SearchRequest{Keyword: "k"}, 10); err == nil {
		t.Error("expected error when the first page fails")
	}
}

func TestSplitKeywords(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"ab", nil},
		{"手冲 咖啡 探店", []string{"手冲", "咖啡", "探店"}},
		{"a b cd", []string{"cd"}},
		{"一个没有空格的标题", []string{"一个没有空格的标题"}},
	}

	for _, tt := range tests {
		if got := SplitKeywords(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitKeywords(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
