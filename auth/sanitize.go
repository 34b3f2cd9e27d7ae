package auth

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = bluemonday.StrictPolicy()

// SanitizeUsername strips markup and surrounding whitespace.
func SanitizeUsername(username string) string {
	return strings.TrimSpace(policy.Sanitize(username))
}
