package env

import (
	"os"
	"strings"
)

// Get reads an environment variable, falling back when unset or blank.
func Get(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
