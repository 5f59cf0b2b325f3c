package homepage

// ServicesConfig represents the top-level structure of services.yaml
// Homepage uses dynamic keys, so we parse as []map[string][]map[string]ServiceProps
type ServicesConfig []map[string][]map[string]ServiceProps

// ServiceProps contains the service properties marks keeps
type ServiceProps struct {
	Href        string `yaml:"href"`
	Icon        string `yaml:"icon,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// BookmarkEntry represents a single bookmark entry in bookmarks.yaml
type BookmarkEntry struct {
	Icon        string `yaml:"icon"`
	Abbr        string `yaml:"abbr"`
	Href        string `yaml:"href"`
	Description string `yaml:"description,omitempty"`
}

// BookmarksConfig is the root structure for bookmarks.yaml:
// - CategoryName: [ - BookmarkName: [{ icon, abbr, href }] ]
// Each bookmark name maps to a list with a single entry.
type BookmarksConfig []map[string][]map[string][]BookmarkEntry
