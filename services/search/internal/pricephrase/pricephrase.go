// Package pricephrase separates natural-language price constraints such as
// "under 2000" or "above 500" from the keyword text of a search query.
package pricephrase

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Anitha-22/myecommerce/services/search/internal/domain"
)

var (
	floorPattern   = regexp.MustCompile(`(?i)\b(?:above|over|more than|min|greater than)\s*(\d+(?:\.\d+)?)`)
	ceilingPattern = regexp.MustCompile(`(?i)\b(?:below|under|less than|upto|max)\s*(\d+(?:\.\d+)?)`)
)

type span struct{ start, end int }

// Extract returns the keyword text left after removing the first floor and
// the first ceiling phrase, with their bounds. Later phrases of the same
// kind are left in the text. A zero bound is treated as absent, but its
// phrase is still removed.
func Extract(raw string) domain.ParsedQuery {
	var (
		parsed domain.ParsedQuery
		spans  []span
	)

	if v, s, ok := find(floorPattern, raw); ok {
		parsed.MinPrice = v
		spans = append(spans, s)
	}
	if v, s, ok := find(ceilingPattern, raw); ok {
		parsed.MaxPrice = v
		spans = append(spans, s)
	}

	parsed.KeywordText = strings.Join(strings.Fields(cut(raw, spans)), " ")
	return parsed
}

func find(re *regexp.Regexp, text string) (*float64, span, bool) {
	m := re.FindStringSubmatchIndex(text)
	if m == nil {
		return nil, span{}, false
	}
	s := span{start: m[0], end: m[1]}

	v, err := strconv.ParseFloat(text[m[2]:m[3]], 64)
	if err != nil || v == 0 {
		return nil, s, true
	}
	return &v, s, true
}

// cut removes spans from text. Overlapping spans are merged.
func cut(text string, spans []span) string {
	if len(spans) == 0 {
		return text
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var b strings.Builder
	pos := 0
	for _, s := range spans {
		if s.start > pos {
			b.WriteString(text[pos:s.start])
			b.WriteByte(' ')
		}
		if s.end > pos {
			pos = s.end
		}
	}
	b.WriteString(text[pos:])
	return b.String()
}
