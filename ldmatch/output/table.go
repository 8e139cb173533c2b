// Package output renders match results for people and for other programs.
package output

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/wbrown/janus-ldmatch/ldmatch"
)

// TableFormatter formats binding sets as markdown tables
type TableFormatter struct {
	// MaxWidth is the maximum width for a cell, 0 for unlimited
	MaxWidth int
	// TruncateString is the string to append when truncating
	TruncateString string
}

// NewTableFormatter creates a new table formatter with default settings
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{
		MaxWidth:       50,
		TruncateString: "...",
	}
}

// FormatBindings formats rows as a markdown table with one column per
// variable. Variables a row does not bind are left blank.
func (tf *TableFormatter) FormatBindings(vars []string, rows []ldmatch.Binding) string {
	if len(rows) == 0 {
		return fmt.Sprintf("_Variables: %v_\n\n_No bindings_", vars)
	}

	tableString := &strings.Builder{}

	// AlignNone keeps the markdown separators plain
	alignment := make([]tw.Align, len(vars))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}

	table := tablewriter.NewTable(tableString,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)

	headers := make([]string, len(vars))
	copy(headers, vars)
	table.Header(headers)

	for _, b := range rows {
		row := make([]string, len(vars))
		for j, v := range vars {
			if value, ok := b.Get(v); ok {
				row[j] = tf.formatValue(value)
			}
		}
		table.Append(row)
	}

	table.Render()

	tableString.WriteString(fmt.Sprintf("\n_%d bindings_\n", len(rows)))
	return tableString.String()
}

// formatValue renders a value for a table cell
func (tf *TableFormatter) formatValue(v ldmatch.Value) string {
	var s string
	switch v.Kind() {
	case ldmatch.KindIRI, ldmatch.KindBlank:
		s = v.ID()
	case ldmatch.KindLiteral:
		if f, ok := v.Literal().(float64); ok && v.Datatype() == "" {
			s = fmt.Sprintf("%.2f", f)
		} else {
			s = v.String()
			if v.Datatype() == "" && v.Language() == "" {
				s = v.Lexical()
			}
		}
	default:
		s = v.String()
	}
	return tf.truncate(s)
}

func (tf *TableFormatter) truncate(s string) string {
	if tf.MaxWidth <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= tf.MaxWidth {
		return s
	}
	keep := tf.MaxWidth - len([]rune(tf.TruncateString))
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + tf.TruncateString
}
