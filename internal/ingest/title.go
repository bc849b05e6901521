package ingest

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const maxTitleLength = 90

var (
	breakTag  = regexp.MustCompile(`(?i)<br[^>]*>`)
	stripTags = bluemonday.StrictPolicy()
)

// BuildTitle derives a display title from an item description.
func BuildTitle(description string) string {
	if strings.TrimSpace(description) == "" {
		return ""
	}
	s := breakTag.ReplaceAllString(description, " ")
	s = html.UnescapeString(stripTags.Sanitize(s))
	s = strings.Join(strings.Fields(s), " ")

	if utf8.RuneCountInString(s) > maxTitleLength {
		s = string([]rune(s)[:maxTitleLength]) + "..."
	}
	return s
}
