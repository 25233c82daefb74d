package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/microsoft/tolstack/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

type outputFormat string

const (
	formatText     outputFormat = "text"
	formatJSON     outputFormat = "json"
	formatMarkdown outputFormat = "markdown"
	formatHTML     outputFormat = "html"
)

func parseFormat(s string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case formatText, formatJSON, formatMarkdown, formatHTML:
		return f, nil
	case "md":
		return formatMarkdown, nil
	default:
		return "", &models.ConfigError{Param: "format", Msg: fmt.Sprintf("unsupported output format %q", s)}
	}
}

func (f outputFormat) ext() string {
	switch f {
	case formatJSON:
		return ".json"
	case formatMarkdown:
		return ".md"
	case formatHTML:
		return ".html"
	default:
		return ".txt"
	}
}

// report is a titled list of summary fields and tables. data is what the
// JSON format emits.
type report struct {
	title   string
	summary []field
	tables  []table
	data    any
}

type field struct {
	label string
	value string
}

type table struct {
	title  string
	header []string
	rows   [][]string
}

func newReport(title string, data any) *report {
	return &report{title: title, data: data}
}

// add appends a summary field. Floats are formatted compactly.
func (r *report) add(label string, value any) *report {
	r.summary = append(r.summary, field{label: label, value: formatValue(value)})
	return r
}

func (r *report) addTable(t table) *report {
	r.tables = append(r.tables, t)
	return r
}

func (r *report) render(f outputFormat) (string, error) {
	switch f {
	case formatJSON:
		data, err := json.MarshalIndent(r.data, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding report: %w", err)
		}
		return string(data) + "\n", nil
	case formatMarkdown:
		return r.markdown(), nil
	case formatHTML:
		return r.html()
	default:
		return r.text(), nil
	}
}

func (r *report) text() string {
	var b strings.Builder
	b.WriteString(r.title + "\n")
	b.WriteString(strings.Repeat("=", runewidth.StringWidth(r.title)) + "\n")

	labelWidth := 0
	for _, f := range r.summary {
		labelWidth = max(labelWidth, runewidth.StringWidth(f.label)+1)
	}
	for _, f := range r.summary {
		fmt.Fprintf(&b, "%s %s\n", padRight(f.label+":", labelWidth), f.value)
	}

	for _, t := range r.tables {
		b.WriteString("\n")
		if t.title != "" {
			b.WriteString(t.title + "\n")
		}
		widths := make([]int, len(t.header))
		for i, h := range t.header {
			widths[i] = runewidth.StringWidth(h)
		}
		for _, row := range t.rows {
			for i, cell := range row {
				if i < len(widths) {
					widths[i] = max(widths[i], runewidth.StringWidth(cell))
				}
			}
		}
		writeRow := func(cells []string) {
			padded := make([]string, len(cells))
			for i, c := range cells {
				if i < len(widths) {
					c = padRight(c, widths[i])
				}
				padded[i] = c
			}
			b.WriteString(strings.TrimRight(strings.Join(padded, "  "), " ") + "\n")
		}
		writeRow(t.header)
		rule := make([]string, len(widths))
		for i, w := range widths {
			rule[i] = strings.Repeat("-", w)
		}
		writeRow(rule)
		for _, row := range t.rows {
			writeRow(row)
		}
	}
	return b.String()
}

func (r *report) markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.title)
	for _, f := range r.summary {
		fmt.Fprintf(&b, "- **%s:** %s\n", f.label, f.value)
	}
	for _, t := range r.tables {
		b.WriteString("\n")
		if t.title != "" {
			fmt.Fprintf(&b, "## %s\n\n", t.title)
		}
		b.WriteString("| " + strings.Join(escapeCells(t.header), " | ") + " |\n")
		b.WriteString("|" + strings.Repeat("---|", len(t.header)) + "\n")
		for _, row := range t.rows {
			b.WriteString("| " + strings.Join(escapeCells(row), " | ") + " |\n")
		}
	}
	return b.String()
}

func (r *report) html() (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var body bytes.Buffer
	if err := md.Convert([]byte(r.markdown()), &body); err != nil {
		return "", fmt.Errorf("rendering html: %w", err)
	}
	return fmt.Sprintf("<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>%s</title></head>\n<body>\n%s</body>\n</html>\n",
		html.EscapeString(r.title), body.String()), nil
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	return out
}

func formatValue(v any) string {
	switch x := v.(type) {
	case float64:
		return formatFloat(x)
	case []float64:
		parts := make([]string, len(x))
		for i, f := range x {
			parts[i] = formatFloat(f)
		}
		return strings.Join(parts, ", ")
	case []int:
		parts := make([]string, len(x))
		for i, n := range x {
			parts[i] = strconv.Itoa(n)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', 6, 64)
}
