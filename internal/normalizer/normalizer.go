package normalizer

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
	"vct-predictor/internal/domain"

	"github.com/rs/zerolog"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var ErrInvalidRecord = errors.New("invalid record")

// recordSeparators are tried in order; the first one present splits the W-L string.
var recordSeparators = []string{"-", "–", "—"}

// diffSeparators are accepted between the won and lost halves of a map or
// round differential.
var diffSeparators = []string{"/", "-", "–", "—"}

type Normalizer struct {
	aliases  map[string]string
	folded   map[string]string
	suffixes []string
	logger   zerolog.Logger
}

func New(logger zerolog.Logger) *Normalizer {
	return NewWithTables(DefaultAliases, DefaultCountrySuffixes, logger)
}

func NewWithTables(aliases map[string]string, suffixes []string, logger zerolog.Logger) *Normalizer {
	n := &Normalizer{
		aliases:  make(map[string]string, len(aliases)),
		folded:   make(map[string]string, len(aliases)),
		suffixes: suffixes,
		logger:   logger,
	}
	for variant, canonical := range aliases {
		n.aliases[variant] = canonical
		n.folded[foldKey(variant)] = canonical
		n.folded[foldKey(canonical)] = canonical
	}
	return n
}

// Normalize turns one scraped row into a record ready for the standings
// store. Any field that fails validation rejects the whole row with
// ErrInvalidRecord.
func (n *Normalizer) Normalize(raw domain.RawStanding) (domain.StandingRecord, error) {
	team := n.TeamName(raw.Team)
	if utf8.RuneCountInString(team) < 2 {
		return domain.StandingRecord{}, fmt.Errorf("%w: team name %q too short", ErrInvalidRecord, raw.Team)
	}

	wins, losses, err := ParseRecord(raw.Record)
	if err != nil {
		return domain.StandingRecord{}, fmt.Errorf("%s: %w", team, err)
	}
	mapDiff, err := ParseDiff(raw.MapDiff)
	if err != nil {
		return domain.StandingRecord{}, fmt.Errorf("%s: map diff: %w", team, err)
	}
	roundDiff, err := ParseDiff(raw.RoundDiff)
	if err != nil {
		return domain.StandingRecord{}, fmt.Errorf("%s: round diff: %w", team, err)
	}
	// pages without a delta column still carry rounds won and lost
	delta := float64(roundDiff.Net())
	if strings.TrimSpace(raw.Delta) != "" {
		delta = ParseDelta(raw.Delta)
	}
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return domain.StandingRecord{}, fmt.Errorf("%w: %s: delta %q is not a finite number", ErrInvalidRecord, team, raw.Delta)
	}

	return domain.StandingRecord{
		Group:     strings.TrimSpace(raw.Group),
		Team:      team,
		Wins:      wins,
		Losses:    losses,
		MapDiff:   mapDiff,
		RoundDiff: roundDiff,
		Delta:     delta,
	}, nil
}

// NormalizeAll keeps every row that passes validation and logs the rest.
func (n *Normalizer) NormalizeAll(raws []domain.RawStanding) ([]domain.StandingRecord, int) {
	out := make([]domain.StandingRecord, 0, len(raws))
	rejected := 0
	for _, raw := range raws {
		rec, err := n.Normalize(raw)
		if err != nil {
			rejected++
			n.logger.Warn().
				Err(err).
				Str("group", raw.Group).
				Str("team", raw.Team).
				Str("record", raw.Record).
				Msg("dropping standings row")
			continue
		}
		out = append(out, rec)
	}
	return out, rejected
}

// TeamName trims and collapses whitespace, strips an embedded country name
// and maps known variants onto one canonical spelling.
func (n *Normalizer) TeamName(raw string) string {
	name := collapseSpaces(raw)
	for _, suffix := range n.suffixes {
		if !strings.Contains(name, suffix) {
			continue
		}
		if stripped := collapseSpaces(strings.Replace(name, suffix, "", 1)); stripped != "" {
			name = stripped
		}
		break
	}
	if canonical, ok := n.aliases[name]; ok {
		return canonical
	}
	if canonical, ok := n.folded[foldKey(name)]; ok {
		return canonical
	}
	return name
}

// ParseRecord splits a W-L string on the first of '-', en dash or em dash
// that it contains.
func ParseRecord(s string) (wins, losses int, err error) {
	s = strings.TrimSpace(s)
	for _, sep := range recordSeparators {
		left, right, ok := strings.Cut(s, sep)
		if !ok {
			continue
		}
		wins, errW := parseCount(left)
		losses, errL := parseCount(right)
		if errW != nil || errL != nil {
			return 0, 0, fmt.Errorf("%w: record %q", ErrInvalidRecord, s)
		}
		return wins, losses, nil
	}
	return 0, 0, fmt.Errorf("%w: record %q has no separator", ErrInvalidRecord, s)
}

// ParseDiff reads a won/lost pair. A side that does not parse counts as 0,
// but at least one side must.
func ParseDiff(s string) (domain.Diff, error) {
	s = strings.TrimSpace(s)
	for _, sep := range diffSeparators {
		left, right, ok := strings.Cut(s, sep)
		if !ok {
			continue
		}
		won, errW := parseCount(left)
		lost, errL := parseCount(right)
		if errW != nil && errL != nil {
			return domain.Diff{}, fmt.Errorf("%w: differential %q", ErrInvalidRecord, s)
		}
		return domain.Diff{Won: won, Lost: lost}, nil
	}
	return domain.Diff{}, fmt.Errorf("%w: differential %q has no separator", ErrInvalidRecord, s)
}

// ParseDelta strips a leading '+' and parses the rest, yielding 0 when it is
// not a number.
func ParseDelta(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "−", "-")
	s = strings.TrimPrefix(s, "+")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseCount(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative count %d", v)
	}
	return v, nil
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// foldKey lowercases s and drops combining marks so "LEVIATÁN" and
// "leviatan" share a key.
func foldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(collapseSpaces(folded))
}
