package service

import (
	"regexp"
	"strconv"
	"strings"

	"contractrules-backend/models"
)

// sectionPatterns are the canonical contract section headers, matched
// case-insensitively at the start of a line. An optional "ARTICLE IV." or
// "Section 3:" style prefix is tolerated.
var sectionPatterns = []struct {
	label string
	re    *regexp.Regexp
}{
	{"recitals", sectionRe(`recitals?`)},
	{"definitions", sectionRe(`definitions?`)},
	{"parties", sectionRe(`parties`)},
	{"payment", sectionRe(`payment(?:\s+terms)?`)},
	{"royalties", sectionRe(`royalt(?:y|ies)`)},
	{"termination", sectionRe(`termination`)},
	{"confidentiality", sectionRe(`confidentiality`)},
	{"ip", sectionRe(`(?:intellectual\s+property|ip\s+rights)`)},
	{"signatures", sectionRe(`(?:signatures?|in\s+witness\s+whereof)`)},
}

func sectionRe(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)^\s*(?:(?:article|section)\s+[\divxlc]+\s*[.:)-]?\s*)?` + name + `\b`)
}

// pageMarkerRe matches "Page N" lines and standalone page-number lines.
var pageMarkerRe = regexp.MustCompile(`(?i)^\s*(?:page\s+)?(\d{1,4})\s*$`)

// Segmenter splits raw contract text into ordered, labeled sections.
type Segmenter struct{}

// NewSegmenter creates a new segmenter
func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// Segment splits the text on the canonical section headers. Lines that match
// no header accumulate into the current section; a document with no
// recognizable header at all becomes a single "header" segment. This never
// fails.
func (s *Segmenter) Segment(text string) []models.DocumentSegment {
	var segments []models.DocumentSegment

	currentLabel := "header"
	currentPage := 1
	startPage := 1
	var currentLines []string

	flush := func() {
		raw := strings.TrimSpace(strings.Join(currentLines, "\n"))
		if raw == "" {
			currentLines = nil
			return
		}
		segments = append(segments, models.DocumentSegment{
			Section:        currentLabel,
			OrderIndex:     len(segments),
			RawText:        raw,
			NormalizedText: normalizeText(raw),
			PageNumber:     startPage,
		})
		currentLines = nil
	}

	for _, line := range strings.Split(text, "\n") {
		if m := pageMarkerRe.FindStringSubmatch(line); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				currentPage = n
			}
			continue
		}

		if label, ok := matchSectionHeader(line); ok {
			flush()
			currentLabel = label
			startPage = currentPage
		}
		currentLines = append(currentLines, line)
	}
	flush()

	if len(segments) == 0 {
		trimmed := strings.TrimSpace(text)
		segments = append(segments, models.DocumentSegment{
			Section:        "header",
			OrderIndex:     0,
			RawText:        trimmed,
			NormalizedText: normalizeText(trimmed),
			PageNumber:     1,
		})
	}

	return segments
}

func matchSectionHeader(line string) (string, bool) {
	for _, p := range sectionPatterns {
		if p.re.MatchString(line) {
			return p.label, true
		}
	}
	return "", false
}

// normalizeText collapses all whitespace runs to single spaces so downstream
// substring matching is layout-independent.
func normalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
