package domain

import "testing"

func TestScoreBookmark(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		title          string
		url            string
		expectPositive bool
	}{
		{name: "exact match", query: "chatgpt", title: "ChatGPT", url: "https://example.com", expectPositive: true},
		{name: "prefix match", query: "chat", title: "ChatGPT", url: "https://example.com", expectPositive: true},
		{name: "substring match", query: "gpt", title: "ChatGPT", url: "https://example.com", expectPositive: true},
		{name: "no match", query: "xyz", title: "ChatGPT", url: "https://example.com", expectPositive: false},
		{name: "multi-word match", query: "hub docker", title: "Docker Hub", url: "https://example.com", expectPositive: true},
		{name: "hostname match", query: "pkg", title: "Docs", url: "https://pkg.go.dev", expectPositive: true},
		{name: "empty query", query: "  ", title: "Docs", url: "https://pkg.go.dev", expectPositive: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := ScoreBookmark(tt.query, Bookmark{ID: "bookmark_1", Title: tt.title, URL: tt.url})

			if tt.expectPositive && score <= 0 {
				t.Errorf("Expected positive score, got %f", score)
			}
			if !tt.expectPositive && score > 0 {
				t.Errorf("Expected zero score, got %f", score)
			}
		})
	}
}

func TestScoreBookmarkPrefersExactTitle(t *testing.T) {
	exact := ScoreBookmark("grafana", Bookmark{Title: "Grafana", URL: "https://example.com"})
	prefix := ScoreBookmark("graf", Bookmark{Title: "Grafana", URL: "https://example.com"})
	if exact <= prefix {
		t.Errorf("exact title %f should beat prefix %f", exact, prefix)
	}
}

func TestRankBookmarks(t *testing.T) {
	bookmarks := []Bookmark{
		{ID: "D", Title: "Rust", URL: "https://rust-lang.org"},
		{ID: "B", Title: "Golang weekly", URL: "https://golangweekly.com", IsPinned: true},
		{ID: "C", Title: "go", URL: "https://go.dev", IsArchived: true},
		{ID: "A", Title: "Go Playground", URL: "https://go.dev/play"},
	}

	got := RankBookmarks("go", bookmarks)
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %+v", got)
	}
	if got[0].Bookmark.ID != "A" || got[1].Bookmark.ID != "B" {
		t.Errorf("unexpected ranking: %s, %s", got[0].Bookmark.ID, got[1].Bookmark.ID)
	}
	if got[0].Score < got[1].Score {
		t.Errorf("matches not sorted by score: %+v", got)
	}
}

func TestRankBookmarksNoMatch(t *testing.T) {
	if got := RankBookmarks("zzz", []Bookmark{{Title: "Go", URL: "https://go.dev"}}); len(got) != 0 {
		t.Errorf("expected no matches, got %+v", got)
	}
}
