package tui

import (
	"strings"
	"testing"

	xansi "github.com/charmbracelet/x/ansi"
)

func containsPlain(s, sub string) bool {
	return strings.Contains(xansi.Strip(s), sub)
}

func TestNormalizePane_PadsAndCuts(t *testing.T) {
	in := "short\n" + strings.Repeat("x", 30) + "\nthird\nfourth"
	out := normalizePane(in, 10, 3)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}
	for i, ln := range lines {
		if w := xansi.StringWidth(ln); w != 10 {
			t.Fatalf("line %d width = %d: %q", i, w, ln)
		}
	}
	if !strings.HasSuffix(lines[1], "…") {
		t.Fatalf("long line should end with an ellipsis: %q", lines[1])
	}

	out = normalizePane("a", 4, 3)
	if got := strings.Count(out, "\n"); got != 2 {
		t.Fatalf("short input should be padded to the height, got %d newlines", got)
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello world", 5, "hell…"},
		{"hello", 0, ""},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.width); got != tc.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}

func TestConfirmModal_HighlightsFocusedButton(t *testing.T) {
	out := renderConfirmModal(80, "Delete", "Delete event \"x\"?", "Confirm", "Cancel", confirmFocusCancel)
	for _, want := range []string{"Delete", "Confirm", "Cancel", "esc: cancel"} {
		if !containsPlain(out, want) {
			t.Fatalf("modal missing %q:\n%s", want, out)
		}
	}
	if confirmFocusCancel.toggle() != confirmFocusConfirm || confirmFocusConfirm.toggle() != confirmFocusCancel {
		t.Fatalf("toggle should flip focus")
	}
}
