package homepage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

// Mapper turns Homepage configs into a legacy dataset: one space per file,
// one group per category, one bookmark per entry.
type Mapper struct {
	userID string
	now    func() time.Time
}

// NewMapper creates a mapper producing entities owned by userID.
func NewMapper(userID string) *Mapper {
	return &Mapper{userID: userID, now: time.Now}
}

// MapBookmarks converts a bookmarks.yaml into a "Homepage" space.
func (m *Mapper) MapBookmarks(config BookmarksConfig) (domain.Dataset, error) {
	b := m.newBuilder("Homepage", "🔖")
	for _, category := range config {
		for _, name := range sortedKeys(category) {
			g := b.group(name)
			for _, bookmarkMap := range category[name] {
				for _, title := range sortedKeys(bookmarkMap) {
					entries := bookmarkMap[title]
					// Each bookmark has a list with a single entry
					if len(entries) == 0 {
						continue
					}
					e := entries[0]
					desc := e.Description
					if desc == "" && e.Abbr != "" {
						desc = e.Abbr
					}
					b.bookmark(g, title, e.Href, e.Icon, desc)
				}
			}
		}
	}
	return b.build()
}

// MapServices converts a services.yaml into a "Services" space.
func (m *Mapper) MapServices(config ServicesConfig) (domain.Dataset, error) {
	b := m.newBuilder("Services", "🧰")
	for _, groupMap := range config {
		for _, name := range sortedKeys(groupMap) {
			g := b.group(name)
			for _, serviceMap := range groupMap[name] {
				for _, title := range sortedKeys(serviceMap) {
					props := serviceMap[title]
					b.bookmark(g, title, props.Href, props.Icon, props.Description)
				}
			}
		}
	}
	return b.build()
}

type builder struct {
	m     *Mapper
	now   time.Time
	space domain.Space
	ds    domain.Dataset
	count map[string]int // bookmarks per group
	seen  map[string]bool
}

func (m *Mapper) newBuilder(name, icon string) *builder {
	now := m.now().UTC()
	return &builder{
		m:   m,
		now: now,
		space: domain.Space{
			ID:        stableID(domain.PrefixSpace, m.userID, name),
			UserID:    m.userID,
			Name:      name,
			Icon:      icon,
			CreatedAt: now,
			UpdatedAt: now,
		},
		count: map[string]int{},
		seen:  map[string]bool{},
	}
}

func (b *builder) group(name string) string {
	name = truncate(strings.TrimSpace(name), 50)
	if name == "" {
		name = "Ungrouped"
	}
	b.ds.Groups = append(b.ds.Groups, domain.Group{
		ID:        stableID(domain.PrefixGroup, b.space.ID, name),
		UserID:    b.m.userID,
		SpaceID:   b.space.ID,
		Name:      name,
		Order:     len(b.ds.Groups),
		CreatedAt: b.now,
		UpdatedAt: b.now,
	})
	return b.ds.Groups[len(b.ds.Groups)-1].ID
}

// bookmark appends an entry, skipping those Homepage would not link to.
func (b *builder) bookmark(groupID string, title, href, icon, desc string) {
	in := domain.BookmarkInput{
		SpaceID: b.space.ID,
		GroupID: groupID,
		Title:   truncate(strings.TrimSpace(title), 100),
		URL:     strings.TrimSpace(href),
	}
	if isURL(icon) {
		in.FaviconURL = &icon
	}
	if desc = truncate(desc, 500); desc != "" {
		in.Description = &desc
	}
	if in.Validate() != nil {
		return
	}
	id := stableID(domain.PrefixBookmark, groupID, in.URL)
	if b.seen[id] {
		return
	}
	b.seen[id] = true
	b.ds.Bookmarks = append(b.ds.Bookmarks, in.Build(id, b.m.userID, b.count[groupID], b.now))
	b.count[groupID]++
}

func (b *builder) build() (domain.Dataset, error) {
	if len(b.ds.Bookmarks) == 0 {
		return domain.Dataset{}, fmt.Errorf("no valid bookmarks found in homepage config")
	}
	// drop categories whose entries were all rejected, then renumber
	groups := b.ds.Groups[:0]
	for _, g := range b.ds.Groups {
		if b.count[g.ID] > 0 {
			g.Order = len(groups)
			groups = append(groups, g)
		}
	}
	b.ds.Groups = groups
	b.ds.Spaces = []domain.Space{b.space}
	return b.ds, nil
}

// Merge appends the collections of every dataset. Space orders are
// renumbered in argument order.
func Merge(sets ...domain.Dataset) domain.Dataset {
	var out domain.Dataset
	for _, ds := range sets {
		for _, s := range ds.Spaces {
			s.Order = len(out.Spaces)
			out.Spaces = append(out.Spaces, s)
		}
		out.Groups = append(out.Groups, ds.Groups...)
		out.Bookmarks = append(out.Bookmarks, ds.Bookmarks...)
	}
	return out
}

// stableID derives an id in the domain.NewID shape from parts, so that
// importing the same file twice yields the same entities.
func stableID(prefix string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return prefix + hex.EncodeToString(hash[:])[:10]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
