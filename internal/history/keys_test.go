package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserKey(t *testing.T) {
	assert.Equal(t, "history:user:sess:DEFAULT", UserKey("sess:DEFAULT"))
}

func TestUserKey_NeverCollidesWithIndex(t *testing.T) {
	for _, id := range []string{"users", "", ":users", "user"} {
		assert.NotEqual(t, UsersKey, UserKey(id), "user id %q", id)
	}
}
