package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/a1gen/internal/api/response"
	"golang.org/x/crypto/bcrypt"
)

// APIKeyHeader carries the proxy key on protected routes.
const APIKeyHeader = "X-API-KEY"

// ProxyAuth checks the shared proxy key. With neither a plain key nor a
// bcrypt hash configured every request is allowed.
type ProxyAuth struct {
	plainKey string
	keyHash  []byte
}

// NewProxyAuth creates a ProxyAuth. keyHash, when set, is a bcrypt hash and
// takes precedence over plainKey.
func NewProxyAuth(plainKey, keyHash string) *ProxyAuth {
	a := &ProxyAuth{plainKey: plainKey}
	if keyHash != "" {
		a.keyHash = []byte(keyHash)
	}
	return a
}

// Enabled reports whether a proxy key is configured.
func (a *ProxyAuth) Enabled() bool {
	return a.plainKey != "" || len(a.keyHash) > 0
}

// Authenticate validates X-API-KEY and sets the caller id in the request context.
// Authenticated callers are identified by a fingerprint of their key alone;
// anonymous callers by address.
func (a *ProxyAuth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r.WithContext(setCallerID(r.Context(), clientAddr(r))))
			return
		}

		key := strings.TrimSpace(r.Header.Get(APIKeyHeader))
		if key == "" || !a.matches(key) {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_API_KEY", "Invalid or missing X-API-KEY", nil)
			return
		}

		caller := "key:" + fingerprint(key)
		next.ServeHTTP(w, r.WithContext(setCallerID(r.Context(), caller)))
	})
}

func (a *ProxyAuth) matches(key string) bool {
	if len(a.keyHash) > 0 {
		return bcrypt.CompareHashAndPassword(a.keyHash, []byte(key)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(a.plainKey)) == 1
}

func fingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", sum[:4])
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
