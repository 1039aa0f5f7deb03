package extractor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TableContext is what a group strategy sees about one qualifying table.
type TableContext struct {
	Doc       *goquery.Document
	Table     *goquery.Selection
	Index     int
	Total     int
	Labels    []string
	GroupSize int
	Match     func(text string) (string, bool)
}

// GroupAssigner names the group of the n-th team row of a table.
type GroupAssigner func(row int) string

// GroupStrategy tries to name the group(s) of a table.
type GroupStrategy struct {
	Name    string
	Resolve func(tc TableContext) (GroupAssigner, bool)
}

// DefaultGroupStrategies run in order until one resolves.
var DefaultGroupStrategies = []GroupStrategy{
	{Name: "cell-marker", Resolve: groupFromCells},
	{Name: "heading", Resolve: groupFromHeading},
	{Name: "positional", Resolve: groupFromPosition},
	{Name: "table-order", Resolve: groupFromOrder},
	{Name: "synthesized", Resolve: groupSynthesized},
}

var headingSelector = "h1, h2, h3, h4, h5, h6, .wf-label, .wf-card-title, table"

func (e *Extractor) resolveGroup(tc TableContext) GroupAssigner {
	tc.Labels = e.opts.GroupLabels
	tc.GroupSize = e.opts.GroupSize
	tc.Match = e.markers.match
	for _, s := range e.opts.Groups {
		if assign, ok := s.Resolve(tc); ok {
			e.logger.Debug().
				Str("strategy", s.Name).
				Int("table", tc.Index).
				Msg("group resolved")
			return assign
		}
	}
	return fixedGroup(fmt.Sprintf("Group %d", tc.Index+1))
}

func fixedGroup(name string) GroupAssigner {
	return func(int) string { return name }
}

func groupFromCells(tc TableContext) (GroupAssigner, bool) {
	text := joinedText(tc.Table.Find("caption, th"))
	if g, ok := tc.Match(text); ok {
		return fixedGroup(g), true
	}
	return nil, false
}

// groupFromHeading uses the closest heading before the table, provided no
// other table sits between the two.
func groupFromHeading(tc TableContext) (GroupAssigner, bool) {
	target := tc.Table.Get(0)
	var heading string
	tc.Doc.Find(headingSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if goquery.NodeName(s) == "table" {
			if s.Get(0) == target {
				return false
			}
			heading = ""
			return true
		}
		heading = cellText(s)
		return true
	})
	if heading == "" {
		return nil, false
	}
	if g, ok := tc.Match(heading); ok {
		return fixedGroup(g), true
	}
	return nil, false
}

// groupFromPosition splits a lone table into consecutive groups of GroupSize rows.
func groupFromPosition(tc TableContext) (GroupAssigner, bool) {
	if tc.Total != 1 || tc.GroupSize <= 0 {
		return nil, false
	}
	labels, size := tc.Labels, tc.GroupSize
	return func(row int) string {
		n := row / size
		if n < len(labels) {
			return labels[n]
		}
		return fmt.Sprintf("Group %d", n+1)
	}, true
}

func groupFromOrder(tc TableContext) (GroupAssigner, bool) {
	if tc.Index >= len(tc.Labels) {
		return nil, false
	}
	return fixedGroup(tc.Labels[tc.Index]), true
}

func groupSynthesized(tc TableContext) (GroupAssigner, bool) {
	return fixedGroup(fmt.Sprintf("Group %d", tc.Index+1)), true
}

// markerMatcher recognises explicit group names such as "Group Alpha",
// "Group B" or a bare configured label.
type markerMatcher struct {
	labels []string
	group  *regexp.Regexp
	label  *regexp.Regexp
}

func newMarkerMatcher(labels []string) *markerMatcher {
	m := &markerMatcher{
		labels: labels,
		group:  regexp.MustCompile(`(?i)\bgroup\s+([\p{L}\d]+)`),
	}
	if len(labels) > 0 {
		quoted := make([]string, len(labels))
		for i, l := range labels {
			quoted[i] = regexp.QuoteMeta(l)
		}
		m.label = regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
	}
	return m
}

// groupWords follow "group" in page titles without naming a group.
var groupWords = map[string]bool{"stage": true, "stages": true, "standings": true, "play": true}

func (m *markerMatcher) match(text string) (string, bool) {
	for _, sub := range m.group.FindAllStringSubmatch(text, -1) {
		if !groupWords[strings.ToLower(sub[1])] {
			return m.token(sub[1]), true
		}
	}
	if m.label != nil {
		if sub := m.label.FindStringSubmatch(text); sub != nil {
			return m.token(sub[1]), true
		}
	}
	return "", false
}

// token maps "alpha" onto the configured "Alpha" and a letter onto the
// label at that position, so "Group B" becomes the second label.
func (m *markerMatcher) token(tok string) string {
	for _, l := range m.labels {
		if strings.EqualFold(l, tok) {
			return l
		}
	}
	if len(tok) == 1 {
		tok = strings.ToUpper(tok)
		if c := tok[0]; c >= 'A' && c <= 'Z' && int(c-'A') < len(m.labels) {
			return m.labels[c-'A']
		}
	}
	return "Group " + tok
}
