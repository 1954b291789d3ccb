package model

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ID is an opaque entity identifier.
//
// Backends disagree on whether ids are numbers or strings; both decode into the
// same value so `7` and `"7"` address the same entity.
type ID string

func (id ID) String() string { return string(id) }

func (id ID) IsZero() bool { return strings.TrimSpace(string(id)) == "" }

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}
