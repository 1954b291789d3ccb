package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// WriteEDN writes a strict EDN representation of the JSON-shaped subset the
// CLI emits: maps, vectors, strings, numbers, booleans and nil. Map keys
// become keywords.
func WriteEDN(w io.Writer, v any, pretty bool) error {
	x, err := generic(v)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := ednEncoder{pretty: pretty, indent: 2}
	enc.writeAny(&buf, x, 0)
	buf.WriteByte('\n')
	_, err = w.Write(buf.Bytes())
	return err
}

type ednEncoder struct {
	pretty bool
	indent int
}

func (e ednEncoder) writeAny(buf *bytes.Buffer, v any, level int) {
	switch t := v.(type) {
	case nil:
		buf.WriteString("nil")
	case bool:
		buf.WriteString(strconv.FormatBool(t))
	case string:
		buf.WriteString(strconv.Quote(t))
	case json.Number:
		buf.WriteString(t.String())
	case []any:
		e.writeSeq(buf, t, level)
	case map[string]any:
		e.writeMap(buf, t, level)
	default:
		buf.WriteString(strconv.Quote(fmt.Sprintf("%v", v)))
	}
}

func (e ednEncoder) sep(buf *bytes.Buffer, last bool) {
	if last {
		return
	}
	if e.pretty {
		buf.WriteByte('\n')
	} else {
		buf.WriteByte(' ')
	}
}

func (e ednEncoder) open(buf *bytes.Buffer, level int) {
	if e.pretty {
		buf.WriteString(strings.Repeat(" ", (level+1)*e.indent))
	}
}

func (e ednEncoder) close(buf *bytes.Buffer, level int, delim byte) {
	if e.pretty {
		buf.WriteByte('\n')
		buf.WriteString(strings.Repeat(" ", level*e.indent))
	}
	buf.WriteByte(delim)
}

func (e ednEncoder) writeSeq(buf *bytes.Buffer, xs []any, level int) {
	buf.WriteByte('[')
	if len(xs) == 0 {
		buf.WriteByte(']')
		return
	}
	if e.pretty {
		buf.WriteByte('\n')
	}
	for i, it := range xs {
		e.open(buf, level)
		e.writeAny(buf, it, level+1)
		e.sep(buf, i == len(xs)-1)
	}
	e.close(buf, level, ']')
}

func (e ednEncoder) writeMap(buf *bytes.Buffer, m map[string]any, level int) {
	buf.WriteByte('{')
	if len(m) == 0 {
		buf.WriteByte('}')
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if e.pretty {
		buf.WriteByte('\n')
	}
	for i, k := range keys {
		e.open(buf, level)
		buf.WriteByte(':')
		buf.WriteString(ednKeyword(k))
		buf.WriteByte(' ')
		e.writeAny(buf, m[k], level+1)
		e.sep(buf, i == len(keys)-1)
	}
	e.close(buf, level, '}')
}

// ednKeyword turns a JSON key into a keyword name: camelCase becomes
// kebab-case and anything outside [a-z0-9-.] becomes a dash.
func ednKeyword(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	var prev rune
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			if (prev >= 'a' && prev <= 'z') || (prev >= '0' && prev <= '9') {
				b.WriteByte('-')
			}
			b.WriteRune(r + ('a' - 'A'))
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.', r == '?':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
		prev = r
	}
	return b.String()
}
