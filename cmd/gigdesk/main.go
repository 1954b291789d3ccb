package main

import (
	"os"
	"strings"

	"gigdesk/internal/cli"
)

// lookupCommands maps an id prefix to the command that shows it.
var lookupCommands = []struct {
	prefix string
	cmd    []string
}{
	{"evt-", []string{"events", "show"}},
	{"acc-", []string{"wallet", "show"}},
	{"ses-", []string{"mentoring", "show"}},
}

func lookupFor(s string) []string {
	s = strings.TrimSpace(s)
	for _, l := range lookupCommands {
		// Keep it permissive; users may paste ids from other tools.
		if strings.HasPrefix(s, l.prefix) && len(s) > len(l.prefix) {
			return l.cmd
		}
	}
	return nil
}

func rewriteDirectLookupArgs(argv []string) []string {
	// Convenience: `gigdesk <evt-id>` works like `gigdesk events show <evt-id>`.
	//
	// Cobra treats the first non-flag token as a subcommand, so argv is rewritten
	// before parsing. Persistent flags may come first (`gigdesk --user u1 <id>`),
	// so the first positional token is what matters, not argv[1].
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--api":       true,
		"--user":      true,
		"--format":    true,
		"--log-level": true,
	}
	boolFlags := map[string]bool{
		"--pretty": true,
	}

	insert := func(i int, cmd []string) []string {
		out := make([]string, 0, len(argv)+len(cmd))
		out = append(out, argv[:i]...)
		out = append(out, cmd...)
		out = append(out, argv[i:]...)
		return out
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) {
				if cmd := lookupFor(argv[i+1]); cmd != nil {
					return insert(i+1, cmd)
				}
			}
			return argv
		}

		if strings.HasPrefix(a, "-") {
			if strings.Contains(a, "=") || boolFlags[a] {
				continue
			}
			if valueFlags[a] {
				i++
			}
			// Unknown flags are skipped without consuming a value.
			continue
		}

		if cmd := lookupFor(a); cmd != nil {
			return insert(i, cmd)
		}
		return argv
	}

	return argv
}

func main() {
	os.Args = rewriteDirectLookupArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
