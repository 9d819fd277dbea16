// Package htmlsanitize cleans user-supplied text before it is stored.
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	notes = bluemonday.UGCPolicy()
	plain = bluemonday.StrictPolicy()
)

// Sanitize keeps safe formatting markup (paragraphs, emphasis, links with safe
// schemes) and drops scripts, event handlers and javascript: URLs. It is used
// for notes fields.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return notes.Sanitize(s)
}

// PlainText strips all markup and trims surrounding space. It is used for
// names, phone numbers and similar single-line fields.
func PlainText(s string) string {
	return strings.TrimSpace(plain.Sanitize(s))
}
