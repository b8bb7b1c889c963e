package redis

const (
	// DefaultKeyPrefix namespaces every key written by the board.
	DefaultKeyPrefix = "noticeboard:"

	keyBoard = "board"
)

// BoardKey returns the Redis key holding the board document.
func BoardKey(prefix string) string {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return prefix + keyBoard
}
