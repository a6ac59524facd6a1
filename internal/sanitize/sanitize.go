// Package sanitize provides HTML sanitization for user-generated content.
// Uses bluemonday to strip dangerous HTML (script tags, event handlers,
// javascript: URLs) from post, reply, and mail bodies before they are
// stored. Titles and subjects are stripped of markup entirely.
package sanitize

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	bodyPolicy  *bluemonday.Policy
	titlePolicy *bluemonday.Policy
	policyOnce  sync.Once
)

// initPolicies builds the shared policies on first use.
func initPolicies() {
	policyOnce.Do(func() {
		// UGC policy allows basic formatting (bold, lists, links) while
		// stripping scripts and event handlers.
		bodyPolicy = bluemonday.UGCPolicy()

		// Titles and subjects carry no markup at all.
		titlePolicy = bluemonday.StrictPolicy()
	})
}

// Body sanitizes a user-provided post, reply, or message body.
// This MUST be called before storing any user-supplied body text.
func Body(input string) string {
	if input == "" {
		return ""
	}
	initPolicies()
	return bodyPolicy.Sanitize(input)
}

// Title strips all markup from a user-provided title or subject line and
// trims surrounding whitespace.
func Title(input string) string {
	if input == "" {
		return ""
	}
	initPolicies()
	return strings.TrimSpace(titlePolicy.Sanitize(input))
}
