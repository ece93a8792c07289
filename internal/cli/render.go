package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"

	"github.com/calvinalkan/tabledb/pkg/tabledb"
	"github.com/calvinalkan/tabledb/pkg/tabledb/value"
)

// Output formats for views.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

func validateFormat(format string) error {
	switch format {
	case FormatTable, FormatJSON, FormatYAML:
		return nil
	default:
		return fmt.Errorf("%w: %q (want table, json or yaml)", ErrInvalidFormat, format)
	}
}

// group is one group of a grouped select.
type group struct {
	Key  any
	View *tabledb.View
}

// renderView writes v in the given format.
func renderView(w io.Writer, v *tabledb.View, format string) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, viewRecords(v))
	case FormatYAML:
		return writeYAML(w, viewNode(v))
	default:
		writeViewTable(w, v)

		return nil
	}
}

// renderGroups writes the groups of a grouped select.
func renderGroups(w io.Writer, column string, groups []group, format string) error {
	switch format {
	case FormatJSON:
		out := make([]map[string]any, len(groups))
		for i, g := range groups {
			out[i] = map[string]any{"key": g.Key, "rows": viewRecords(g.View)}
		}

		return writeJSON(w, out)
	case FormatYAML:
		seq := &yaml.Node{Kind: yaml.SequenceNode}

		for _, g := range groups {
			key, err := encodeNode(g.Key)
			if err != nil {
				return err
			}

			seq.Content = append(seq.Content, &yaml.Node{
				Kind: yaml.MappingNode,
				Content: []*yaml.Node{
					scalar("key"), key,
					scalar("rows"), viewNode(g.View),
				},
			})
		}

		return writeYAML(w, seq)
	default:
		for i, g := range groups {
			if i > 0 {
				_, _ = fmt.Fprintln(w)
			}

			typ := value.JSON
			if col, ok := g.View.Column(column); ok {
				typ = col.DataType
			}

			_, _ = fmt.Fprintf(w, "# %s = %s\n", column, formatCell(typ, g.Key))
			writeViewTable(w, g.View)
		}

		return nil
	}
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}

	_, err = fmt.Fprintln(w, string(data))

	return err
}

func writeYAML(w io.Writer, node *yaml.Node) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	err := enc.Encode(node)
	if err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}

	return enc.Close()
}

// viewRecords returns the rows as maps. encoding/json sorts map keys, so
// JSON output lists columns alphabetically.
func viewRecords(v *tabledb.View) []map[string]any {
	rows := v.Rows()
	out := make([]map[string]any, len(rows))

	for i, row := range rows {
		out[i] = map[string]any(row)
	}

	return out
}

// viewNode builds a YAML sequence of mappings that keeps column order.
func viewNode(v *tabledb.View) *yaml.Node {
	cols := v.Columns()
	seq := &yaml.Node{Kind: yaml.SequenceNode}

	for i := range v.Len() {
		row := v.Row(i)
		m := &yaml.Node{Kind: yaml.MappingNode}

		for _, c := range cols {
			val, err := encodeNode(row[c.Name])
			if err != nil {
				val = scalar(fmt.Sprint(row[c.Name]))
			}

			m.Content = append(m.Content, scalar(c.Name), val)
		}

		seq.Content = append(seq.Content, m)
	}

	return seq
}

func encodeNode(v any) (*yaml.Node, error) {
	var n yaml.Node

	err := n.Encode(v)
	if err != nil {
		return nil, err
	}

	return &n, nil
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func writeViewTable(w io.Writer, v *tabledb.View) {
	cols := v.Columns()
	headers := make([]string, len(cols))

	for i, c := range cols {
		headers[i] = c.Name
	}

	cells := make([][]string, v.Len())

	for i := range v.Len() {
		row := v.Row(i)
		line := make([]string, len(cols))

		for ci, c := range cols {
			line[ci] = formatCell(c.DataType, row[c.Name])
		}

		cells[i] = line
	}

	writeGrid(w, headers, cells)
	_, _ = fmt.Fprintf(w, "(%s)\n", plural(v.Len(), "row"))
}

// writeGrid writes an aligned text table. Widths are display widths, so
// wide characters line up.
func writeGrid(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))

	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	writeLine := func(cells []string) {
		var b strings.Builder

		for i, cell := range cells {
			if i > 0 {
				b.WriteString(" | ")
			}

			if i == len(cells)-1 {
				b.WriteString(cell)
			} else {
				b.WriteString(runewidth.FillRight(cell, widths[i]))
			}
		}

		_, _ = fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}

	writeLine(headers)

	rules := make([]string, len(widths))
	for i, width := range widths {
		rules[i] = strings.Repeat("-", max(width, 1))
	}

	_, _ = fmt.Fprintln(w, strings.Join(rules, "-+-"))

	for _, row := range rows {
		writeLine(row)
	}
}

// formatCell renders a stored value for people: DateTime as RFC 3339 in UTC,
// Binary in base 2, JSON encoded, null as NULL.
func formatCell(t value.DataType, raw any) string {
	if raw == nil {
		return "NULL"
	}

	switch t {
	case value.DateTime:
		if v, err := value.Construct(t, raw); err == nil {
			return time.UnixMilli(v.Int()).UTC().Format(time.RFC3339Nano)
		}
	case value.Binary:
		if v, err := value.Construct(t, raw); err == nil {
			return strconv.FormatInt(v.Int(), 2)
		}
	case value.JSON:
		if data, err := json.Marshal(raw); err == nil {
			return string(data)
		}
	}

	switch x := raw.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
