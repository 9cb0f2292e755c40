// Package sanitize strips markup from user supplied text.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Text removes every HTML element and returns plain, trimmed text. Entities
// are decoded so the result is stored as the user typed it; clients escape
// on render.
func Text(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
