package parse

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/stormlightlabs/filehist/internal/shared"
)

// Delimited-text dialects.
const (
	DialectAuto      = "auto"
	DialectComma     = "comma"
	DialectTab       = "tab"
	DialectSemicolon = "semicolon"
)

// Delimited returns a parser for CSV/TSV content. The first row is the
// header; every value is a string. With DialectAuto the delimiter is sniffed
// from the first line of each snapshot, so a file that switches dialect
// mid-history still parses.
func Delimited(dialect string) (Func, error) {
	var delim rune
	switch dialect {
	case "", DialectAuto:
		delim = 0
	case DialectComma:
		delim = ','
	case DialectTab:
		delim = '\t'
	case DialectSemicolon:
		delim = ';'
	default:
		return nil, fmt.Errorf("unknown dialect %q (expected auto, comma, tab or semicolon)", dialect)
	}

	return func(content []byte) ([]map[string]any, error) {
		text := shared.NormalizeLineEndings(string(content))

		comma := delim
		if comma == 0 {
			comma = sniffDelimiter(text)
		}

		reader := csv.NewReader(strings.NewReader(text))
		reader.Comma = comma
		rows, err := reader.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("parse delimited text: %w", err)
		}
		if len(rows) == 0 {
			return nil, nil
		}

		header := rows[0]
		records := make([]map[string]any, 0, len(rows)-1)
		for _, row := range rows[1:] {
			record := make(map[string]any, len(header))
			for i, name := range header {
				record[name] = row[i]
			}
			records = append(records, record)
		}
		return records, nil
	}, nil
}

// sniffDelimiter picks the candidate delimiter occurring most often in the
// first line, preferring comma on a tie.
func sniffDelimiter(text string) rune {
	line, _, _ := strings.Cut(text, "\n")
	if len(line) > 512 {
		line = line[:512]
	}

	best := ','
	bestCount := strings.Count(line, ",")
	for _, candidate := range []rune{'\t', ';'} {
		if count := strings.Count(line, string(candidate)); count > bestCount {
			best = candidate
			bestCount = count
		}
	}
	return best
}
