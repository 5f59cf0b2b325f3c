package homepage

import (
	"strings"
	"testing"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

func TestMapperMapServices(t *testing.T) {
	config := ServicesConfig{
		{
			"Infrastructure": []map[string]ServiceProps{
				{
					"AdGuard Home": {
						Icon:        "adguard-home.svg",
						Href:        "https://adguard.domain.ext",
						Description: "Network-wide ads blocking",
					},
				},
				{
					"Traefik": {
						Icon:        "traefik.svg",
						Href:        "https://traefik.domain.ext",
						Description: "Cloud Native Application Proxy",
					},
				},
			},
		},
	}

	ds, err := NewMapper("user_1").MapServices(config)
	if err != nil {
		t.Fatalf("MapServices() error = %v", err)
	}

	if len(ds.Spaces) != 1 || ds.Spaces[0].Name != "Services" {
		t.Fatalf("MapServices() spaces = %+v", ds.Spaces)
	}
	if len(ds.Groups) != 1 || ds.Groups[0].Name != "Infrastructure" {
		t.Fatalf("MapServices() groups = %+v", ds.Groups)
	}
	if len(ds.Bookmarks) != 2 {
		t.Fatalf("MapServices() returned %v bookmarks, want 2", len(ds.Bookmarks))
	}

	first := ds.Bookmarks[0]
	if first.Title != "AdGuard Home" || first.Order != 0 || ds.Bookmarks[1].Order != 1 {
		t.Errorf("unexpected bookmarks %+v", ds.Bookmarks)
	}
	if first.Description == nil || *first.Description != "Network-wide ads blocking" {
		t.Errorf("description not mapped: %+v", first.Description)
	}
	if first.FaviconURL != nil {
		t.Errorf("non-URL icon should not become a favicon, got %q", *first.FaviconURL)
	}
	if first.UserID != "user_1" || first.SpaceID != ds.Spaces[0].ID || first.GroupID != ds.Groups[0].ID {
		t.Errorf("placement not wired: %+v", first)
	}
}

func TestMapperMapServicesEmptyConfig(t *testing.T) {
	ds, err := NewMapper("user_1").MapServices(ServicesConfig{})

	// Empty config should return an error
	if err == nil {
		t.Error("MapServices() with empty config should return error")
	}
	if !ds.Empty() {
		t.Errorf("MapServices() with empty config should return an empty dataset, got %d entities", ds.Len())
	}
}

func TestMapperMapServicesInvalidURL(t *testing.T) {
	config := ServicesConfig{
		{
			"Test": []map[string]ServiceProps{
				{
					"Invalid Service": {
						Icon:        "test.svg",
						Href:        "not-a-valid-url",
						Description: "Invalid URL",
					},
				},
			},
		},
	}

	if _, err := NewMapper("user_1").MapServices(config); err == nil {
		t.Error("MapServices() should return error when no valid services found")
	}
}

func TestMapperMapBookmarks(t *testing.T) {
	icon := "https://go.dev/favicon.ico"
	config := BookmarksConfig{
		{"Developer": {
			{"Github": {{Abbr: "GH", Href: "https://github.com/"}}},
			{"Go docs": {{Icon: icon, Href: "https://pkg.go.dev/"}}},
			{"Dup": {{Href: "https://github.com/"}}},
		}},
		{"Empty": {
			{"Broken": {{Href: ""}}},
		}},
		{"Social": {
			{"Reddit": {{Abbr: "RE", Href: "https://reddit.com/"}}},
		}},
	}

	ds, err := NewMapper("user_1").MapBookmarks(config)
	if err != nil {
		t.Fatalf("MapBookmarks() error = %v", err)
	}

	if len(ds.Groups) != 2 {
		t.Fatalf("expected the empty category to be dropped, got %+v", ds.Groups)
	}
	if ds.Groups[0].Name != "Developer" || ds.Groups[1].Name != "Social" || ds.Groups[1].Order != 1 {
		t.Errorf("unexpected groups %+v", ds.Groups)
	}
	if len(ds.Bookmarks) != 3 {
		t.Fatalf("expected duplicate URL in a group to be skipped, got %d bookmarks", len(ds.Bookmarks))
	}
	if gh := ds.Bookmarks[0]; gh.Description == nil || *gh.Description != "GH" {
		t.Errorf("abbr should become the description, got %+v", gh.Description)
	}
	if docs := ds.Bookmarks[1]; docs.FaviconURL == nil || *docs.FaviconURL != icon {
		t.Errorf("URL icon should become the favicon, got %+v", docs.FaviconURL)
	}
	for _, b := range ds.Bookmarks {
		if !strings.HasPrefix(b.ID, domain.PrefixBookmark) || len(b.ID) != len(domain.PrefixBookmark)+10 {
			t.Errorf("unexpected id shape %q", b.ID)
		}
	}
}

func TestMapperIDsAreStable(t *testing.T) {
	config := BookmarksConfig{{"Dev": {{"Go": {{Href: "https://go.dev"}}}}}}

	a, _ := NewMapper("user_1").MapBookmarks(config)
	b, _ := NewMapper("user_1").MapBookmarks(config)
	c, _ := NewMapper("user_2").MapBookmarks(config)

	if a.Bookmarks[0].ID != b.Bookmarks[0].ID {
		t.Error("same input should produce the same ids")
	}
	if a.Spaces[0].ID == c.Spaces[0].ID {
		t.Error("ids should differ between users")
	}
}

func TestMerge(t *testing.T) {
	services := domain.Dataset{Spaces: []domain.Space{{ID: "a"}}, Groups: []domain.Group{{ID: "g1"}}}
	bookmarks := domain.Dataset{Spaces: []domain.Space{{ID: "b"}}, Bookmarks: []domain.Bookmark{{ID: "b1"}}}

	got := Merge(services, bookmarks)
	if len(got.Spaces) != 2 || got.Spaces[1].ID != "b" || got.Spaces[1].Order != 1 {
		t.Errorf("unexpected spaces %+v", got.Spaces)
	}
	if len(got.Groups) != 1 || len(got.Bookmarks) != 1 {
		t.Errorf("unexpected merge %+v", got)
	}
}
