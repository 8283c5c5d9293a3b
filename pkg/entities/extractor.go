package entities

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/castellsqa/enxaneta/pkg/vocab"
)

const (
	teamFuzzyThreshold  = 85
	placeFuzzyThreshold = 50
	eventFuzzyThreshold = 50

	// DefaultTopN caps each fuzzy candidate list.
	DefaultTopN = 5
)

// Domain stopwords stripped before fuzzy matching. These are high-frequency
// question words that otherwise inflate partial-ratio scores against short
// vocabulary entries.
var stopwords = map[string]bool{
	"el": true, "la": true, "els": true, "les": true, "lo": true,
	"un": true, "una": true, "uns": true, "unes": true,
	"de": true, "del": true, "dels": true, "d": true,
	"a": true, "al": true, "als": true, "en": true, "amb": true,
	"i": true, "o": true, "que": true, "qui": true, "on": true,
	"quan": true, "com": true, "quin": true, "quina": true,
	"quins": true, "quines": true, "quant": true, "quanta": true,
	"quants": true, "quantes": true,
	"ha": true, "han": true, "va": true, "van": true, "fer": true,
	"fet": true, "ser": true, "es": true, "s": true, "l": true,
	"per": true, "millor": true, "castell": true, "castells": true,
	"colla": true, "colles": true, "any": true, "anys": true,
	"diada": true, "vegada": true, "cop": true, "cops": true,
}

var (
	fourDigitYearRe = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	yearRangeRe     = regexp.MustCompile(`\b(19\d{2}|20\d{2})\s*[-\x{2013}]\s*(19\d{2}|20\d{2})\b`)
	shortYearRe     = regexp.MustCompile(`\bdel?\s+(\d{2})\b`)
)

// Extractor produces the deterministic candidate entity superset the router
// narrows down. It never calls an LLM.
type Extractor struct {
	catalog *vocab.Catalog
	topN    int
}

func NewExtractor(catalog *vocab.Catalog, topN int) *Extractor {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Extractor{catalog: catalog, topN: topN}
}

// Extract runs every deterministic extractor over the question. Editions,
// tracks and positions are left empty; only the router's classification fills
// those on contest questions.
func (e *Extractor) Extract(question string) Entities {
	stripped := stripStopwords(vocab.Fold(question))

	return Entities{
		Teams:         e.fuzzyMatch(vocab.KindTeam, stripped, teamFuzzyThreshold),
		Constructions: ParseConstructions(question, e.catalog, e.topN),
		Years:         ExtractYears(question),
		Places:        e.fuzzyMatch(vocab.KindPlace, stripped, placeFuzzyThreshold),
		Events:        e.fuzzyMatch(vocab.KindEvent, stripped, eventFuzzyThreshold),
	}
}

// fuzzyMatch scores every vocabulary entry against the stripped question and
// keeps those at or above the threshold, ordered by score then vocabulary
// index, truncated to topN. Returned values are display forms.
func (e *Extractor) fuzzyMatch(kind vocab.Kind, stripped string, threshold int) []string {
	if stripped == "" {
		return nil
	}

	type scored struct {
		value string
		score int
		index int
	}
	var candidates []scored
	for i, value := range e.catalog.Values(kind) {
		score := fuzzy.PartialRatio(vocab.Fold(value), stripped)
		if score >= threshold {
			candidates = append(candidates, scored{value: value, score: score, index: i})
		}
	}

	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].score != candidates[b].score {
			return candidates[a].score > candidates[b].score
		}
		return candidates[a].index < candidates[b].index
	})

	if len(candidates) > e.topN {
		candidates = candidates[:e.topN]
	}

	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.value
	}
	return out
}

func stripStopwords(folded string) string {
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return r == ' ' || r == ',' || r == '?' || r == '!' || r == '\'' || r == '’'
	})
	kept := fields[:0]
	for _, f := range fields {
		if !stopwords[f] {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

// ExtractYears captures four-digit years between 1900 and 2099, expands
// range mentions ("1995-2005") to both endpoints, and expands two-digit
// "del XX" mentions with the pivot rule 00-30 maps to 20XX, else 19XX.
// Output is deduplicated in encounter order.
func ExtractYears(question string) []int {
	folded := vocab.Fold(question)

	var years []int
	seen := make(map[int]bool)
	add := func(y int) {
		if y >= 1900 && y <= 2099 && !seen[y] {
			seen[y] = true
			years = append(years, y)
		}
	}

	for _, m := range yearRangeRe.FindAllStringSubmatch(folded, -1) {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		add(lo)
		add(hi)
	}
	for _, m := range fourDigitYearRe.FindAllString(folded, -1) {
		y, _ := strconv.Atoi(m)
		add(y)
	}
	for _, m := range shortYearRe.FindAllStringSubmatch(folded, -1) {
		yy, _ := strconv.Atoi(m[1])
		if yy <= 30 {
			add(2000 + yy)
		} else {
			add(1900 + yy)
		}
	}

	return years
}
