package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

const (
	JSON  = "json"
	EDN   = "edn"
	Table = "table"
)

// Write writes output in the requested format.
//
// Supported formats:
// - json (default)
// - edn
// - table (human-readable; the "data" member of an envelope is rendered)
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch format {
	case "", JSON:
		return WriteJSON(w, v, pretty)
	case EDN:
		return WriteEDN(w, v, pretty)
	case Table:
		return WriteTable(w, v)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteJSON writes strict JSON output for CLI commands. Hints for follow-up
// commands belong in a `meta` object, never in free text.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}

// generic round-trips v through JSON so structs are seen with their json tags.
// Numbers stay json.Number to keep minor-unit amounts exact.
func generic(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return nil, err
	}
	return x, nil
}
