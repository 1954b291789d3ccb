package format

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// leadColumns are placed first, in this order, when present.
var leadColumns = []string{"id", "title", "label", "topic", "name", "status"}

const maxCell = 40

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// WriteTable renders v for humans. An envelope's "data" member is unwrapped.
// A list of objects becomes one row per object; an object becomes key/value
// rows. Nested lists are summarized by their length.
func WriteTable(w io.Writer, v any) error {
	x, err := generic(v)
	if err != nil {
		return err
	}
	if m, ok := x.(map[string]any); ok {
		if d, ok := m["data"]; ok {
			x = d
		}
	}

	var out string
	switch t := x.(type) {
	case []any:
		out = listTable(t)
	case map[string]any:
		out = objectTable(t)
	default:
		out = cell(t)
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

func newTable() *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func listTable(xs []any) string {
	if len(xs) == 0 {
		return "(none)"
	}
	cols := columns(xs)
	if len(cols) == 0 {
		rows := make([][]string, 0, len(xs))
		for _, x := range xs {
			rows = append(rows, []string{cell(x)})
		}
		return newTable().Headers("value").Rows(rows...).String()
	}
	rows := make([][]string, 0, len(xs))
	for _, x := range xs {
		m, _ := x.(map[string]any)
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = cell(m[c])
		}
		rows = append(rows, row)
	}
	return newTable().Headers(cols...).Rows(rows...).String()
}

func objectTable(m map[string]any) string {
	keys := sortedKeys(m)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, cell(m[k])})
	}
	return newTable().Headers("key", "value").Rows(rows...).String()
}

// columns is the union of keys over all objects: lead columns first, the rest
// sorted.
func columns(xs []any) []string {
	seen := map[string]bool{}
	for _, x := range xs {
		if m, ok := x.(map[string]any); ok {
			for k := range m {
				seen[k] = true
			}
		}
	}
	var out []string
	for _, c := range leadColumns {
		if seen[c] {
			out = append(out, c)
			delete(seen, c)
		}
	}
	rest := make([]string, 0, len(seen))
	for k := range seen {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func cell(v any) string {
	var s string
	switch t := v.(type) {
	case nil:
		s = ""
	case string:
		s = t
	case json.Number:
		s = t.String()
	case bool:
		if t {
			s = "yes"
		} else {
			s = "no"
		}
	case []any:
		s = fmt.Sprintf("[%d]", len(t))
	case map[string]any:
		parts := make([]string, 0, len(t))
		for _, k := range sortedKeys(t) {
			if _, nested := t[k].([]any); nested {
				continue
			}
			parts = append(parts, k+"="+cell(t[k]))
		}
		s = strings.Join(parts, " ")
	default:
		s = fmt.Sprintf("%v", t)
	}
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > maxCell {
		s = string(r[:maxCell-1]) + "…"
	}
	return s
}

func sortedKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
