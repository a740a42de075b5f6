package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Styles wraps the lipgloss styles for the application.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Muted   lipgloss.Style
	Accent  lipgloss.Style
	Path    lipgloss.Style
}

// NewStyles returns the default style set.
func NewStyles() *Styles {
	return &Styles{
		Header:  lipgloss.NewStyle().Foreground(lipgloss.Color("#be95ff")).Bold(true),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("#42be65")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#ff7eb6")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#ee5396")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#525252")),
		Accent:  lipgloss.NewStyle().Foreground(lipgloss.Color("#08bdba")),
		Path:    lipgloss.NewStyle().Foreground(lipgloss.Color("#3ddbd9")),
	}
}

// Printer provides helper methods for printing formatted output.
type Printer struct {
	Styles *Styles
}

// NewPrinter creates a new Printer with default styles.
func NewPrinter() *Printer {
	return &Printer{Styles: NewStyles()}
}

var p = NewPrinter()

// PrintHeader prints a bold header message.
func (p *Printer) PrintHeader(msg string) {
	fmt.Println(p.Styles.Header.Render(msg))
}

// PrintSuccess prints a success message with a checkmark.
func (p *Printer) PrintSuccess(msg string) {
	fmt.Printf("%s %s\n", p.Styles.Success.Render("✔"), msg)
}

// PrintError prints an error message to stderr with a cross.
func (p *Printer) PrintError(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", p.Styles.Error.Render("✘"), msg)
}

// PrintListItem prints a muted label with a value.
func (p *Printer) PrintListItem(label, value string) {
	fmt.Printf("%s: %s\n", p.Styles.Muted.Render(label), value)
}

// FormatPath formats a file or database path.
func (p *Printer) FormatPath(path string) string {
	return p.Styles.Path.Render(path)
}

// FormatAccent highlights a namespace or column name.
func (p *Printer) FormatAccent(s string) string {
	return p.Styles.Accent.Render(s)
}
