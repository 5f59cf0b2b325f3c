package redisrepo

const (
	// KeyPrefix is the prefix of every key written by the repository
	KeyPrefix = "marks:"
	// KeyAllUsers is the key for the set of all user IDs
	KeyAllUsers = "marks:users:all"
)

// Table names.
const (
	TableSpaces    = "space"
	TableGroups    = "group"
	TableBookmarks = "bookmark"
)

// UserKey returns the Redis key for a user record
func UserKey(id string) string {
	return KeyPrefix + "user:" + id
}

// RowKey returns the Redis key for one row of a user's table
func RowKey(userID, table, id string) string {
	return KeyPrefix + userID + ":" + table + ":" + id
}

// TableKey returns the Redis key for the set of row IDs of a user's table
func TableKey(userID, table string) string {
	return KeyPrefix + userID + ":" + table + ":all"
}
