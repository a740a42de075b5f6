package shared

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Capitalize title-cases a column or namespace name for display.
func Capitalize(s string) string {
	return cases.Title(language.Und).String(s)
}

// HeaderLabel turns a snake_case column name into a table header
// ("commit_at" -> "Commit At"). Bookkeeping columns keep their leading
// underscore so they stay recognizable in output.
func HeaderLabel(name string) string {
	trimmed := strings.TrimLeft(name, "_")
	if trimmed == "" {
		return name
	}
	label := Capitalize(strings.ReplaceAll(trimmed, "_", " "))
	if strings.HasPrefix(name, "_") {
		return "_" + label
	}
	return label
}

func NormalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// TruncateText truncates text to the specified length.
func TruncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}
