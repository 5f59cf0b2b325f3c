package domain

import (
	"crypto/rand"
	"time"
)

// ID prefixes, one per entity kind.
const (
	PrefixUser     = "user_"
	PrefixSpace    = "space_"
	PrefixGroup    = "group_"
	PrefixBookmark = "bookmark_"
)

const (
	idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	idLength   = 10
)

// NewID returns a prefixed random identifier such as "space_a8Fk20LmQz".
// Ids are minted client-side so an optimistic insert has a stable identity
// before the server confirms it.
func NewID(prefix string) string {
	buf := make([]byte, idLength)
	if _, err := rand.Read(buf); err != nil {
		panic("domain: crypto/rand unavailable: " + err.Error())
	}
	out := make([]byte, 0, len(prefix)+idLength)
	out = append(out, prefix...)
	for _, b := range buf {
		out = append(out, idAlphabet[int(b)%len(idAlphabet)])
	}
	return string(out)
}

// Record is the shape shared by spaces, groups and bookmarks. T is the
// concrete entity type so that copy-on-write helpers return the same type.
type Record[T any] interface {
	// Key is the immutable entity id.
	Key() string
	// Scope is the parent id siblings are ordered under ("" for spaces).
	Scope() string
	// Position is the entity's order within its scope.
	Position() int
	// Archived reports the soft-delete flag.
	Archived() bool

	WithPosition(order int) T
	Touched(at time.Time) T
}

// Draft is a create input able to synthesize the full entity.
type Draft[T any] interface {
	Scope() string
	Validate() error
	Build(id, userID string, order int, now time.Time) T
}

// Patch is a partial update input.
type Patch[T any] interface {
	Validate() error
	Apply(current T) T
}

// Dataset is a user's full collection set. It is the unit of pull, push and
// of the legacy local-mode snapshot.
type Dataset struct {
	Spaces    []Space    `json:"spaces"`
	Groups    []Group    `json:"groups"`
	Bookmarks []Bookmark `json:"bookmarks"`
}

// Empty reports whether the dataset holds no entity at all.
func (d Dataset) Empty() bool {
	return len(d.Spaces) == 0 && len(d.Groups) == 0 && len(d.Bookmarks) == 0
}

// Len returns the total number of entities.
func (d Dataset) Len() int {
	return len(d.Spaces) + len(d.Groups) + len(d.Bookmarks)
}
