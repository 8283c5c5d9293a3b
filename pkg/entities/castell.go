package entities

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/castellsqa/enxaneta/pkg/vocab"
)

// Catalan number words used in spoken construction names ("tres de nou").
var numberWords = map[string]int{
	"un": 1, "una": 1,
	"dos": 2, "dues": 2,
	"tres":   3,
	"quatre": 4,
	"cinc":   5,
	"sis":    6,
	"set":    7,
	"vuit":   8, "huit": 8,
	"nou": 9,
	"deu": 10,
}

// Modifier suffixes in their canonical emission order: f, m, p, a, s.
// Hierarchy: manilles implies folre; puntals implies manilles.
var modifierOrder = []struct {
	suffix  string
	phrases []string
}{
	{"f", []string{"folre"}},
	{"m", []string{"manilles"}},
	{"p", []string{"puntals"}},
	{"a", []string{"agulla", "pilar al mig"}},
	{"s", []string{"per sota", "aixecat per sota"}},
}

// Status lexicon, including feminine/plural inflections. Ordered: ties on
// question position resolve to the earlier entry.
var statusLexicon = []struct {
	word   string
	status Status
}{
	{"descarregat", StatusCompleted},
	{"descarregada", StatusCompleted},
	{"descarregats", StatusCompleted},
	{"descarregades", StatusCompleted},
	{"carregat", StatusLoaded},
	{"carregada", StatusLoaded},
	{"carregats", StatusLoaded},
	{"carregades", StatusLoaded},
	{"intent", StatusAttempt},
	{"intents", StatusAttempt},
}

var (
	// "3 de 9", "4d8", "tres de nou"
	digitPatternRe = regexp.MustCompile(`\b(\d{1,2})\s*(?:de|d)\s*(\d{1,2})\b`)
	compactCodeRe  = regexp.MustCompile(`\b(\d{1,2})d(\d{1,2})([fmpas]*)\b`)
	pdCompactRe    = regexp.MustCompile(`\bpd(\d{1,2})([fmpas]*)\b`)
	pillarDigitRe  = regexp.MustCompile(`\bpilar\s+de\s+(\d{1,2})\b`)
	towerDigitRe   = regexp.MustCompile(`\btorre\s+de\s+(\d{1,2})\b`)
	pillarWordRe   = regexp.MustCompile(`pilar de (\p{L}+)`)
	towerWordRe    = regexp.MustCompile(`torre de (\p{L}+)`)
	wordPairRe     = regexp.MustCompile(`\b(\p{L}+)\s+de\s+(\p{L}+)\b`)
)

const constructionFuzzyThreshold = 30

// ParseConstructions extracts construction codes from a question. It tries
// deterministic parsing of natural-language patterns first and falls back to
// fuzzy matching against the canonical codes. A status word anywhere in the
// question attaches to every parsed construction.
func ParseConstructions(question string, catalog *vocab.Catalog, limit int) []Construction {
	folded := vocab.Fold(question)

	codes := parseCodes(folded)
	if len(codes) == 0 {
		codes = fuzzyCodes(folded, catalog, limit)
		if len(codes) == 0 {
			return nil
		}
	}

	status := findStatus(folded)

	if limit > 0 && len(codes) > limit {
		codes = codes[:limit]
	}

	out := make([]Construction, 0, len(codes))
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		if seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, Construction{Code: code, Status: status})
	}
	return out
}

// parseCodes runs the deterministic patterns over the folded question and
// returns canonical codes in encounter order.
func parseCodes(folded string) []string {
	var codes []string

	// Compact codes ("3d9f", "pd7f") pass through after modifier checks.
	for _, m := range compactCodeRe.FindAllStringSubmatch(folded, -1) {
		if code := assemble(m[1], m[2], splitModifiers(m[3])); code != "" {
			codes = append(codes, code)
		}
	}
	for _, m := range pdCompactRe.FindAllStringSubmatch(folded, -1) {
		if code := assemble("P", m[1], splitModifiers(m[2])); code != "" {
			codes = append(codes, code)
		}
	}
	if len(codes) > 0 {
		return codes
	}

	modifiers := findModifiers(folded)

	// "pilar de 7" / "pilar de set"
	if m := pillarDigitRe.FindStringSubmatch(folded); m != nil {
		if code := assemble("P", m[1], modifiers); code != "" {
			return []string{code}
		}
	}
	if h, ok := matchWordPattern(folded, pillarWordRe); ok {
		if code := assemble("P", strconv.Itoa(h), modifiers); code != "" {
			return []string{code}
		}
	}

	// "torre de 8" / "torre de vuit": a tower is a 2-person-wide castell.
	if m := towerDigitRe.FindStringSubmatch(folded); m != nil {
		if code := assemble("2", m[1], modifiers); code != "" {
			return []string{code}
		}
	}
	if h, ok := matchWordPattern(folded, towerWordRe); ok {
		if code := assemble("2", strconv.Itoa(h), modifiers); code != "" {
			return []string{code}
		}
	}

	// "tres de nou", "quatre de vuit"
	if w, h, ok := matchWordPair(folded); ok {
		if code := assemble(strconv.Itoa(w), strconv.Itoa(h), modifiers); code != "" {
			return []string{code}
		}
	}

	// "3 de 9"
	if m := digitPatternRe.FindStringSubmatch(folded); m != nil {
		if code := assemble(m[1], m[2], modifiers); code != "" {
			return []string{code}
		}
	}

	return nil
}

func matchWordPattern(folded string, re *regexp.Regexp) (int, bool) {
	m := re.FindStringSubmatch(folded)
	if m == nil {
		return 0, false
	}
	n, ok := numberWords[m[1]]
	return n, ok
}

func matchWordPair(folded string) (int, int, bool) {
	m := wordPairRe.FindAllStringSubmatch(folded, -1)
	for _, pair := range m {
		w, wok := numberWords[pair[1]]
		h, hok := numberWords[pair[2]]
		if wok && hok {
			return w, h, true
		}
	}
	return 0, 0, false
}

// findModifiers scans for modifier phrases and returns the matched suffixes
// keyed by suffix letter.
func findModifiers(folded string) map[string]bool {
	found := make(map[string]bool)
	for _, mod := range modifierOrder {
		for _, phrase := range mod.phrases {
			if strings.Contains(folded, phrase) {
				found[mod.suffix] = true
				break
			}
		}
	}
	return found
}

func splitModifiers(s string) map[string]bool {
	found := make(map[string]bool, len(s))
	for _, c := range s {
		found[string(c)] = true
	}
	return found
}

// assemble builds the canonical code "WdH" + modifiers in the fixed order
// f, m, p, a, s. Hierarchy violations (manilles without folre, puntals
// without manilles) produce no code: the mention is dropped, not guessed at.
func assemble(width, height string, modifiers map[string]bool) string {
	if modifiers["m"] && !modifiers["f"] {
		return ""
	}
	if modifiers["p"] && !modifiers["m"] {
		return ""
	}

	var b strings.Builder
	if width == "P" || width == "p" {
		b.WriteString("Pd")
	} else {
		b.WriteString(width)
		b.WriteString("d")
	}
	b.WriteString(height)

	for _, mod := range modifierOrder {
		if modifiers[mod.suffix] {
			b.WriteString(mod.suffix)
		}
	}
	return b.String()
}

// findStatus returns the status word occurring earliest in the folded
// question. "intent desmuntat" is checked before the bare "intent".
func findStatus(folded string) Status {
	if strings.Contains(folded, "intent desmuntat") || strings.Contains(folded, "intents desmuntats") {
		return StatusAttemptDismantled
	}
	earliest := -1
	var found Status
	for _, entry := range statusLexicon {
		idx := wordIndex(folded, entry.word)
		if idx >= 0 && (earliest < 0 || idx < earliest) {
			earliest = idx
			found = entry.status
		}
	}
	return found
}

func wordIndex(haystack, word string) int {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`)
	loc := re.FindStringIndex(haystack)
	if loc == nil {
		return -1
	}
	return loc[0]
}

// fuzzyCodes matches the question against canonical codes when deterministic
// parsing found nothing. The low threshold reflects how short the codes are.
func fuzzyCodes(folded string, catalog *vocab.Catalog, limit int) []string {
	if catalog == nil {
		return nil
	}

	type scored struct {
		code  string
		score int
		index int
	}
	var candidates []scored
	for i, code := range catalog.Values(vocab.KindConstruction) {
		score := fuzzy.PartialRatio(vocab.Fold(code), folded)
		if score >= constructionFuzzyThreshold {
			candidates = append(candidates, scored{code: code, score: score, index: i})
		}
	}

	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].score != candidates[b].score {
			return candidates[a].score > candidates[b].score
		}
		return candidates[a].index < candidates[b].index
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.code
	}
	return out
}
