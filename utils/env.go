// forumindex/utils/env.go
package utils

import (
	"os"
	"strconv"
	"time"
)

// GetEnv reads an environment variable or returns a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetEnvBool parses a boolean variable. Unparseable values yield the fallback.
func GetEnvBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(GetEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return b
}

// GetEnvDuration parses a duration such as "30s", falling back to def.
func GetEnvDuration(key, def string) time.Duration {
	d, err := time.ParseDuration(GetEnv(key, def))
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
