package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatCSV   = "csv"
)

// Formatter renders a table to a writer
type Formatter interface {
	Format(w io.Writer, t *Table) error
}

// NewFormatter returns the formatter for format, defaulting to the table view
func NewFormatter(format string) Formatter {
	switch format {
	case FormatJSON:
		return jsonFormatter{}
	case FormatYAML:
		return yamlFormatter{}
	case FormatCSV:
		return csvFormatter{}
	default:
		return tableFormatter{}
	}
}

// DefaultFormat picks the table view on an interactive terminal and csv when piped
func DefaultFormat(f *os.File) string {
	if f != nil && term.IsTerminal(int(f.Fd())) {
		return FormatTable
	}
	return FormatCSV
}

// ResolveFormat returns configured when set, otherwise the default for f
func ResolveFormat(configured string, f *os.File) string {
	if configured != "" {
		return configured
	}
	return DefaultFormat(f)
}

// Render writes t in the given format
func Render(w io.Writer, t *Table, format string) error {
	return NewFormatter(format).Format(w, t)
}

type tableFormatter struct{}

func (tableFormatter) Format(w io.Writer, t *Table) error {
	if t.Len() == 0 {
		fmt.Fprintf(w, "%s: no rows\n", t.Name)
		return nil
	}

	fmt.Fprintf(w, "%s (%d rows)\n\n", t.Name, t.Len())

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Columns, "\t"))
	sep := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		sep[i] = strings.Repeat("─", len(c))
	}
	fmt.Fprintln(tw, strings.Join(sep, "\t"))
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

type csvFormatter struct{}

func (csvFormatter) Format(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(t.Columns); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

type jsonFormatter struct{}

func (jsonFormatter) Format(w io.Writer, t *Table) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(t.Records)
}

type yamlFormatter struct{}

func (yamlFormatter) Format(w io.Writer, t *Table) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(t.Records); err != nil {
		return err
	}
	return encoder.Close()
}
