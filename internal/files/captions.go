package files

import (
	"regexp"
	"strings"
)

var (
	cueTiming = regexp.MustCompile(`^\s*(?:\d{1,2}:)?\d{1,2}:\d{2}[.,]\d{3}\s+-->\s+`)
	cueIndex  = regexp.MustCompile(`^\d+$`)
	voiceTag  = regexp.MustCompile(`<v(?:\.[^ >]+)*\s+([^>]+)>`)
	markupTag = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
)

// CaptionText returns the spoken lines of a WebVTT or SubRip document.
// Timings, cue numbers and header blocks are dropped. WebVTT voice tags
// become "Speaker: " prefixes. Consecutive duplicate lines, which some
// recorders emit for rolling captions, are collapsed.
func CaptionText(doc string) string {
	doc = strings.ReplaceAll(doc, "\r\n", "\n")

	var (
		b    strings.Builder
		last string
		skip bool
	)
	for _, line := range strings.Split(doc, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			skip = false
			continue
		case skip:
			continue
		case strings.HasPrefix(trimmed, "WEBVTT"),
			strings.HasPrefix(trimmed, "NOTE"),
			strings.HasPrefix(trimmed, "STYLE"),
			strings.HasPrefix(trimmed, "REGION"):
			skip = true
			continue
		case cueIndex.MatchString(trimmed), cueTiming.MatchString(trimmed):
			continue
		}

		text := voiceTag.ReplaceAllString(trimmed, "$1: ")
		text = strings.TrimSpace(markupTag.ReplaceAllString(text, ""))
		if text == "" || text == last {
			continue
		}
		last = text
		b.WriteString(text)
		b.WriteByte('\n')
	}
	return b.String()
}
