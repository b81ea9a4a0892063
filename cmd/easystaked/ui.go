package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v2"
)

// Output formats
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	labelStyle  = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

// Printer renders command output as text tables, JSON or YAML.
type Printer struct {
	out    io.Writer
	format string
}

func NewPrinter(out io.Writer, format string) (Printer, error) {
	switch format {
	case OutputFormatText, OutputFormatJSON, OutputFormatYAML:
	default:
		return Printer{}, fmt.Errorf("invalid output format: %s (must be text, json or yaml)", format)
	}
	return Printer{out: out, format: format}, nil
}

// Structured reports whether the printer emits JSON or YAML.
func (p Printer) Structured() bool { return p.format != OutputFormatText }

// Value writes v in the structured format.
func (p Printer) Value(v any) error {
	switch p.format {
	case OutputFormatYAML:
		// round-trip through JSON so field names and amount encodings match the API
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			return err
		}
		data, err := yaml.Marshal(generic)
		if err != nil {
			return err
		}
		_, err = p.out.Write(data)
		return err
	default:
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

// Header prints a section header.
func (p Printer) Header(title string) {
	fmt.Fprintln(p.out, headerStyle.Render(title))
}

// Success prints a success line.
func (p Printer) Success(msg string) {
	fmt.Fprintln(p.out, okStyle.Render("✓"), msg)
}

// Warn prints a warning line.
func (p Printer) Warn(msg string) {
	fmt.Fprintln(p.out, warnStyle.Render("!"), msg)
}

// KV prints aligned label/value pairs inside a rounded box.
func (p Printer) KV(title string, pairs [][2]string) {
	width := 0
	for _, kv := range pairs {
		if len(kv[0]) > width {
			width = len(kv[0])
		}
	}
	lines := []string{headerStyle.Render(title)}
	for _, kv := range pairs {
		lines = append(lines, labelStyle.Render(fmt.Sprintf("%-*s", width, kv[0]))+"  "+kv[1])
	}
	fmt.Fprintln(p.out, boxStyle.Render(strings.Join(lines, "\n")))
}

// Table prints a monospaced table. Cells wider than maxWidth are truncated.
func (p Printer) Table(headers []string, rows [][]string) {
	fmt.Fprint(p.out, renderTable(headers, rows))
}

func renderTable(headers []string, rows [][]string) string {
	const maxWidth = 48
	w := make([]int, len(headers))
	for i, h := range headers {
		w[i] = len(h)
	}
	for _, r := range rows {
		for i := range r {
			if i >= len(w) {
				continue
			}
			if l := len(r[i]); l > w[i] {
				if l > maxWidth {
					l = maxWidth
				}
				w[i] = l
			}
		}
	}

	var b strings.Builder
	for i, h := range headers {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-*s", w[i], h)))
	}
	b.WriteString("\n")
	sepLen := 0
	for i := range w {
		sepLen += w[i]
		if i < len(w)-1 {
			sepLen++
		}
	}
	b.WriteString(strings.Repeat("─", sepLen))
	b.WriteString("\n")
	for _, r := range rows {
		for i := range w {
			if i > 0 {
				b.WriteString(" ")
			}
			cell := ""
			if i < len(r) {
				cell = r[i]
			}
			if len(cell) > maxWidth {
				cell = cell[:maxWidth-1] + "…"
			}
			b.WriteString(fmt.Sprintf("%-*s", w[i], cell))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// shortAddress keeps the first and last six characters of an address.
func shortAddress(a string) string {
	if len(a) <= 15 {
		return a
	}
	return a[:6] + "…" + a[len(a)-6:]
}
