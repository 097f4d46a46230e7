package cache

import "fmt"

// SessionKey is the cache key for a session lookup.
func SessionKey(sid string) string {
	return fmt.Sprintf("kuttalk:session:%s", sid)
}

// NicknameKey is the cache key for a user's nickname.
func NicknameKey(userID int) string {
	return fmt.Sprintf("kuttalk:nick:%d", userID)
}
