package history

import "fmt"

// UsersKey indexes every user id that has at least one entry.
const UsersKey = "history:users"

// UserKey returns the list key for userID. The "user:" segment keeps any
// user id, including "users", from colliding with UsersKey.
func UserKey(userID string) string {
	return fmt.Sprintf("history:user:%s", userID)
}
