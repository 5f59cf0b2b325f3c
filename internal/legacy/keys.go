package legacy

const (
	// KeyPrefixLegacy prefixes the local-mode dataset keys
	KeyPrefixLegacy = "marks:legacy:"
	// KeyPrefixMigration prefixes migration markers
	KeyPrefixMigration = "marks:migration:"
)

// Collection names stored per identity.
const (
	CollectionSpaces    = "spaces"
	CollectionGroups    = "groups"
	CollectionBookmarks = "bookmarks"
)

// DatasetKey returns the key of one legacy collection for identity
func DatasetKey(identity, collection string) string {
	return KeyPrefixLegacy + identity + ":" + collection
}

// DiscardedKey returns the key marking a discarded migration for identity
func DiscardedKey(identity string) string {
	return KeyPrefixMigration + identity + ":discarded"
}
