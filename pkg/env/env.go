package env

import (
	"os"
	"strings"
)

// Get returns the trimmed environment value or the fallback when unset/blank.
func Get(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
