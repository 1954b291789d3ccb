package devserver

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
)

var idPrefixes = map[string]string{
	kindEvents:    "evt",
	kindTasks:     "tsk",
	kindGuests:    "gst",
	kindBudget:    "bud",
	kindAccounts:  "acc",
	kindTransfers: "trf",
	kindSessions:  "ses",
}

// newRandomID returns prefix-<suffix> where suffix is 8 lowercase base32 chars.
func newRandomID(kind string) (string, error) {
	prefix := idPrefixes[kind]
	if prefix == "" {
		prefix = "rec"
	}
	var b [5]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	return prefix + "-" + strings.ToLower(enc.EncodeToString(b[:])), nil
}
