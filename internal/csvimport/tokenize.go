package csvimport

import "strings"

// splitLine splits one line on commas outside double quotes and trims each
// column. Quotes toggle the quoted state and are dropped; there is no escape
// for a literal quote.
//
// encoding/csv rejects bare quotes inside unquoted fields and treats "" as an
// escaped quote, both of which the import format accepts differently, so the
// tokenizer is hand-written.
func splitLine(line string) []string {
	var (
		cols    []string
		current strings.Builder
		quoted  bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == ',' && !quoted:
			cols = append(cols, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(cols, strings.TrimSpace(current.String()))
}

// splitLines returns the non-blank lines with their 1-based line numbers
func splitLines(content string) ([]string, []int) {
	raw := strings.Split(content, "\n")
	lines := make([]string, 0, len(raw))
	numbers := make([]int, 0, len(raw))
	for i, l := range raw {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, l)
		numbers = append(numbers, i+1)
	}
	return lines, numbers
}
