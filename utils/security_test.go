// forumindex/utils/security_test.go
package utils

import (
	"net/http/httptest"
	"testing"
)

func TestGetIPAddress(t *testing.T) {
	testCases := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expected   string
	}{
		{"Remote address", "203.0.113.9:5000", nil, "203.0.113.9"},
		{"IPv6 remote address", "[::1]:5000", nil, "::1"},
		{"Unparseable remote address", "not-an-ip", nil, "not-an-ip"},
		{"X-Real-IP", "10.0.0.1:5000", map[string]string{"X-Real-IP": "198.51.100.7"}, "198.51.100.7"},
		{"First X-Forwarded-For hop", "10.0.0.1:5000", map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.2"}, "198.51.100.1"},
		{"Cloudflare wins", "10.0.0.1:5000", map[string]string{"CF-Connecting-IP": "192.0.2.4", "X-Real-IP": "198.51.100.7"}, "192.0.2.4"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remoteAddr
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			if got := GetIPAddress(req); got != tc.expected {
				t.Errorf("Expected IP '%s', but got '%s'", tc.expected, got)
			}
		})
	}
}

// TestGenerateForumSessionHash ensures tokens are stable and tied to the password hash.
func TestGenerateForumSessionHash(t *testing.T) {
	SessionSecret = "test-secret"
	defer func() { SessionSecret = "" }()

	first := GenerateForumSessionHash("$2a$10$abc")
	if len(first) != 64 {
		t.Errorf("Expected a 64 character hex token, but got %d characters", len(first))
	}
	if first != GenerateForumSessionHash("$2a$10$abc") {
		t.Error("Hashing the same password twice produced different tokens")
	}
	if first == GenerateForumSessionHash("$2a$10$xyz") {
		t.Error("Different passwords produced the same token")
	}

	SessionSecret = "rotated"
	if first == GenerateForumSessionHash("$2a$10$abc") {
		t.Error("Expected a new secret to invalidate old tokens")
	}
}
