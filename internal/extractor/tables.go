package extractor

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"vct-predictor/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// TableStrategy is one way of locating standings tables on a page.
type TableStrategy struct {
	Name     string
	Selector string
}

func (s TableStrategy) String() string {
	return s.Name
}

// DefaultTableStrategies are tried in order; the first one whose qualifying
// tables yield at least one team wins.
var DefaultTableStrategies = []TableStrategy{
	{Name: "event-group", Selector: "div.event-group table"},
	{Name: "wf-table", Selector: "table.wf-table"},
	{Name: "standings-table", Selector: "table.standings-table"},
	{Name: "event-standings-table", Selector: "table.event-standings-table"},
	{Name: "any-table", Selector: "table"},
}

// DefaultTeamSelectors locate the team name inside a row. The first
// non-empty match wins.
var DefaultTeamSelectors = []string{
	".event-group-team-name",
	".team-name",
	"td.mod-team a",
	"td.mod-team",
	`td a[href*="/team/"]`,
}

var tableKeywords = []string{
	"record", "map", "round", "rnd", "delta", "diff", "w-l", "w–l", "δ", "+/-",
}

var (
	pairPattern   = regexp.MustCompile(`^\d+\s*[-–—]\s*\d+$`)
	signedPattern = regexp.MustCompile(`^[+\-−]?\d+(\.\d+)?$`)
)

// qualifies reports whether a table looks like standings: at least two rows
// and a header or cell mentioning one of the standings columns.
func qualifies(_ int, table *goquery.Selection) bool {
	if table.Find("tr").Length() < 2 {
		return false
	}
	text := strings.ToLower(joinedText(table.Find("th, td, caption")))
	for _, kw := range tableKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func (e *Extractor) parseWith(doc *goquery.Document, s TableStrategy) ([]domain.RawStanding, error) {
	tables := doc.Find(s.Selector).FilterFunction(qualifies)
	if tables.Length() == 0 {
		return nil, fmt.Errorf("%w: %q matched nothing", ErrNoStandingsTable, s.Selector)
	}

	var out []domain.RawStanding
	total := tables.Length()
	tables.Each(func(i int, table *goquery.Selection) {
		assign := e.resolveGroup(TableContext{Doc: doc, Table: table, Index: i, Total: total})
		out = append(out, e.parseTable(table, assign)...)
	})
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %d tables for %q had no team rows", ErrNoStandingsTable, total, s.Selector)
	}
	return out, nil
}

func (e *Extractor) parseTable(table *goquery.Selection, assign GroupAssigner) []domain.RawStanding {
	var (
		out      []domain.RawStanding
		override string
		index    int
	)
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.ChildrenFiltered("td")
		if tds.Length() == 0 {
			if g, ok := e.markers.match(joinedText(tr.Children())); ok {
				override = g
			}
			return
		}

		raw, ok := e.parseRow(tr, tds)
		if !ok {
			// separator rows inside one table name the group that follows
			if g, found := e.markers.match(joinedText(tds)); found && tds.Length() <= 2 {
				override = g
			}
			return
		}

		raw.Group = override
		if raw.Group == "" {
			raw.Group = assign(index)
		}
		index++
		out = append(out, raw)
	})
	return out
}

func (e *Extractor) parseRow(tr, tds *goquery.Selection) (domain.RawStanding, bool) {
	teamCell, team := e.findTeam(tr, tds)
	if team == "" {
		return domain.RawStanding{}, false
	}

	var cells []string
	tds.Each(func(_ int, td *goquery.Selection) {
		if teamCell != nil && td.Get(0) == teamCell {
			return
		}
		cells = append(cells, cellText(td))
	})

	record := -1
	for i, c := range cells {
		if strings.ContainsAny(c, "-–—") {
			record = i
			break
		}
	}
	if record < 0 {
		return domain.RawStanding{}, false
	}

	var diffs []int
	for i := record + 1; i < len(cells) && len(diffs) < 2; i++ {
		if strings.Contains(cells[i], "/") || pairPattern.MatchString(cells[i]) {
			diffs = append(diffs, i)
		}
	}
	if len(diffs) < 2 {
		return domain.RawStanding{}, false
	}

	delta := cellText(tr.Find(".diff").First())
	if delta == "" {
		for _, c := range cells[diffs[1]+1:] {
			if signedPattern.MatchString(c) {
				delta = c
				break
			}
		}
	}

	return domain.RawStanding{
		Team:      team,
		Record:    cells[record],
		MapDiff:   cells[diffs[0]],
		RoundDiff: cells[diffs[1]],
		Delta:     delta,
	}, true
}

// findTeam returns the cell holding the team name and the name itself. When
// no selector matches, the first cell containing a letter is used.
func (e *Extractor) findTeam(tr, tds *goquery.Selection) (*html.Node, string) {
	for _, sel := range e.opts.TeamSelectors {
		el := tr.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		name := cellText(el)
		if name == "" {
			continue
		}
		if td := el.Closest("td"); td.Length() > 0 {
			return td.Get(0), name
		}
		return nil, name
	}

	var (
		cell *html.Node
		name string
	)
	tds.EachWithBreak(func(_ int, td *goquery.Selection) bool {
		text := cellText(td)
		if strings.IndexFunc(text, unicode.IsLetter) >= 0 && !strings.ContainsAny(text, "/-–—") {
			cell, name = td.Get(0), text
			return false
		}
		return true
	})
	return cell, name
}

// joinedText keeps a space between elements so adjacent cells do not run
// together.
func joinedText(s *goquery.Selection) string {
	return strings.Join(s.Map(func(_ int, el *goquery.Selection) string {
		return cellText(el)
	}), " ")
}

func cellText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
