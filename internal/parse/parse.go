// Package parse turns raw snapshot bytes into record sequences. The strategy
// set is closed: JSON arrays, YAML sequences, and delimited text with a
// sniffed or explicit dialect. Arbitrary conversion logic stays out of the
// engine.
package parse

import (
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"
)

// Func converts one snapshot's content into records. A failure aborts the
// commit being ingested, never the commits already committed.
type Func func(content []byte) ([]map[string]any, error)

// Formats recognized by ForFormat.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
	FormatTSV  = "tsv"
)

// ForFormat selects a parser by format name. The dialect applies only to
// delimited formats; "auto" (or empty) sniffs the delimiter from content.
func ForFormat(format, dialect string) (Func, error) {
	switch format {
	case "", FormatJSON:
		if dialect != "" && dialect != DialectAuto {
			return nil, fmt.Errorf("dialect %q only applies to csv or tsv", dialect)
		}
		return JSON, nil
	case FormatYAML:
		if dialect != "" && dialect != DialectAuto {
			return nil, fmt.Errorf("dialect %q only applies to csv or tsv", dialect)
		}
		return YAML, nil
	case FormatCSV:
		return Delimited(dialect)
	case FormatTSV:
		if dialect == "" || dialect == DialectAuto {
			dialect = DialectTab
		}
		return Delimited(dialect)
	default:
		return nil, fmt.Errorf("unknown format %q (expected json, yaml, csv or tsv)", format)
	}
}

// JSON parses a top-level array of objects.
func JSON(content []byte) ([]map[string]any, error) {
	var records []map[string]any
	if err := json.Unmarshal(content, &records); err != nil {
		return nil, fmt.Errorf("expected a JSON array of objects: %w", err)
	}
	return records, nil
}

// YAML parses a top-level sequence of mappings.
func YAML(content []byte) ([]map[string]any, error) {
	var records []map[string]any
	if err := yaml.Unmarshal(content, &records); err != nil {
		return nil, fmt.Errorf("expected a YAML sequence of mappings: %w", err)
	}
	return records, nil
}
