package answerer

import (
	"regexp"
	"strings"
)

var (
	tableSeparatorRe = regexp.MustCompile(`^\s*\|?[\s:|-]+\|[\s:|-]*$`)
	blankRunRe       = regexp.MustCompile(`\n{3,}`)
)

// StripTables removes markdown tables from the model output: any line with
// two or more pipes, and separator lines. Leftover blank runs collapse to a
// single empty line.
func StripTables(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.Count(line, "|") >= 2 {
			continue
		}
		if tableSeparatorRe.MatchString(line) && strings.Contains(line, "|") {
			continue
		}
		kept = append(kept, line)
	}

	out := strings.Join(kept, "\n")
	out = blankRunRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
