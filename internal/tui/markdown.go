package tui

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	mdRendererMu sync.Mutex
	// Renderers are cached by style and wrap width. WithAutoStyle can block on
	// terminal background queries, so the style is always explicit.
	mdRenderers = map[string]*glamour.TermRenderer{}
)

// renderMarkdown renders md for the detail pane without a document margin.
// Rendering failures fall back to the raw text.
func renderMarkdown(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 10 {
		width = 10
	}

	style := markdownStyle()
	key := style + ":" + strconv.Itoa(width)

	mdRendererMu.Lock()
	r := mdRenderers[key]
	mdRendererMu.Unlock()

	if r == nil {
		cfg := markdownStyleConfig(style)
		zero := uint(0)
		cfg.Document.Margin = &zero
		rr, err := glamour.NewTermRenderer(
			glamour.WithStyles(cfg),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return md
		}
		mdRendererMu.Lock()
		if existing := mdRenderers[key]; existing != nil {
			r = existing
		} else {
			mdRenderers[key] = rr
			r = rr
		}
		mdRendererMu.Unlock()
	}

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

func markdownStyleConfig(styleName string) ansi.StyleConfig {
	switch strings.ToLower(strings.TrimSpace(styleName)) {
	case "light":
		cfg := styles.LightStyleConfig
		applyMarkdownPalette(&cfg, "light")
		return cfg
	case "notty":
		return styles.NoTTYStyleConfig
	default:
		cfg := styles.DarkStyleConfig
		applyMarkdownPalette(&cfg, "dark")
		return cfg
	}
}

// markdownStyle follows the TUI theme preference so description text is not
// rendered with a dark palette on a light terminal.
func markdownStyle() string {
	if lipgloss.ColorProfile() == termenv.Ascii {
		return "notty"
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("GIGDESK_TUI_MD_STYLE"))) {
	case "light":
		return "light"
	case "dark":
		return "dark"
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("GIGDESK_TUI_THEME"))) {
	case "light":
		return "light"
	case "dark":
		return "dark"
	}
	if v := strings.TrimSpace(os.Getenv("GIGDESK_TUI_DARKBG")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			if b {
				return "dark"
			}
			return "light"
		}
	}
	// COLORFGBG is "fg;bg"; 0-6 are dark palette entries.
	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			if bg >= 7 {
				return "light"
			}
			return "dark"
		}
	}
	if lipgloss.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

func applyMarkdownPalette(cfg *ansi.StyleConfig, styleName string) {
	headingColor := mdColor(colorSurfaceFg, styleName)
	cfg.Heading.Color = headingColor
	cfg.H1.Color = headingColor
	cfg.H2.Color = headingColor
	cfg.H3.Color = headingColor

	cfg.Code.Color = mdColor(colorSurfaceFg, styleName)
	cfg.Text.Color = mdColor(colorSurfaceFg, styleName)

	// Emphasis inherits the text color.
	cfg.Strong.Color = nil
	cfg.Emph.Color = nil
	cfg.BlockQuote.Faint = mdBoolPtr(false)
}

func mdColor(c lipgloss.TerminalColor, styleName string) *string {
	a, ok := c.(lipgloss.AdaptiveColor)
	if !ok {
		return nil
	}
	if styleName == "light" {
		return &a.Light
	}
	return &a.Dark
}

func mdBoolPtr(b bool) *bool { return &b }
