// Package sanitize cleans user-provided text before it is stored or
// embedded in outbound HTML email. Uses bluemonday's strict policy to
// strip every HTML element and attribute: a display name like
// "<script>alert(1)</script>" becomes plain text.
package sanitize

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the singleton strict bluemonday policy. Initialized once via
// sync.Once for thread-safe lazy initialization.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// getPolicy returns the shared strict policy, initializing it on first call.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text strips all HTML from a user-provided string and trims surrounding
// whitespace. Call on free-text input (names, specialities) before storing
// it; the result is safe to interpolate into HTML email bodies.
func Text(input string) string {
	if input == "" {
		return ""
	}
	return strings.TrimSpace(getPolicy().Sanitize(input))
}
