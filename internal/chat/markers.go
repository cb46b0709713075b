package chat

import (
	"regexp"
	"strings"
)

var markerPattern = regexp.MustCompile(`\[MOVIE_SEARCH:(.*?)\]`)

// recommendedHeader starts a trailing bullet list some replies append after
// the markers. Everything from it on is hidden from the visible text.
const recommendedHeader = "\n\nRecommended Movies:"

// ExtractReferences returns the trimmed titles of every marker in text, in
// order. Duplicates are kept; empty titles are skipped.
func ExtractReferences(text string) []string {
	matches := markerPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	titles := make([]string, 0, len(matches))
	for _, m := range matches {
		title := strings.TrimSpace(m[1])
		if title == "" {
			continue
		}
		titles = append(titles, title)
	}
	return titles
}

// StripMarkers returns the visible prose of a message.
func StripMarkers(text string) string {
	if idx := strings.Index(text, recommendedHeader); idx >= 0 {
		text = text[:idx]
	}
	return markerPattern.ReplaceAllString(text, "")
}
