// forumindex/utils/security.go
package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
)

// SessionSecret salts the unlock tokens of password protected forums.
var SessionSecret string

// GetIPAddress extracts the real IP address from a request, trusting proxy headers.
func GetIPAddress(r *http.Request) string {
	if cf := r.Header.Get("CF-Connecting-IP"); cf != "" {
		return cf
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// GenerateForumSessionHash derives the unlock cookie value for a protected forum
// from its stored password hash. Changing the password invalidates old cookies.
func GenerateForumSessionHash(forumPasswordHash string) string {
	hash := sha256.Sum256([]byte(forumPasswordHash + SessionSecret))
	return hex.EncodeToString(hash[:])
}
