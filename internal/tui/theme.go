package tui

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Palette helpers.
//
// The TUI must stay readable on light and dark terminal backgrounds, so colors
// are lipgloss.AdaptiveColor and "faint" is only applied on dark backgrounds.

const (
	ProfileDefault = "default"
	ProfileMono    = "mono"
)

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

var (
	colorMuted       lipgloss.TerminalColor = ac("240", "243")
	colorChromeFg    lipgloss.TerminalColor = ac("240", "245")
	colorSelectedBg  lipgloss.TerminalColor = ac("#e9e9e9", "#262626")
	colorSelectedFg  lipgloss.TerminalColor = ac("235", "255")
	colorSurfaceBg   lipgloss.TerminalColor = ac("255", "235")
	colorSurfaceFg   lipgloss.TerminalColor = ac("235", "252")
	colorControlBg   lipgloss.TerminalColor = ac("252", "235")
	colorAccent      lipgloss.TerminalColor = ac("27", "62")
	colorSuccessBg   lipgloss.TerminalColor = ac("28", "22")
	colorErrorBg     lipgloss.TerminalColor = ac("196", "160")
	colorBannerFg    lipgloss.TerminalColor = ac("255", "255")
	colorModalBorder lipgloss.TerminalColor = ac("250", "243")
)

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colorMuted))
}

func styleTitle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
}

func styleTab(active bool) lipgloss.Style {
	st := lipgloss.NewStyle().Padding(0, 1)
	if active {
		return st.Bold(true).Foreground(colorSelectedFg).Background(colorSelectedBg)
	}
	return st.Foreground(colorChromeFg)
}

// applyProfile sets the color profile for the session. "mono" drops all color;
// anything else follows NO_COLOR and the terminal's capabilities.
func applyProfile(profile string) {
	if strings.EqualFold(strings.TrimSpace(profile), ProfileMono) {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	applyColorProfilePreference()
}

// applyColorProfilePreference only honors NO_COLOR. termenv.EnvColorProfile
// also honors CLICOLOR, which can disable colors in an interactive TUI.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}

	profile := termenv.ColorProfile()

	// Trust TERM/COLORTERM when they claim more than the detector reports.
	term := strings.ToLower(strings.TrimSpace(os.Getenv("TERM")))
	colorterm := strings.ToLower(strings.TrimSpace(os.Getenv("COLORTERM")))
	if strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit") {
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	} else if strings.Contains(term, "256color") && profile != termenv.TrueColor {
		profile = termenv.ANSI256
	}

	lipgloss.SetColorProfile(profile)
}

// applyThemePreference configures background detection.
//
// Priority:
// 1) GIGDESK_TUI_THEME=light|dark|auto
// 2) GIGDESK_TUI_DARKBG=true|false
// 3) COLORFGBG ("fg;bg")
// 4) macOS appearance
func applyThemePreference() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("GIGDESK_TUI_THEME"))) {
	case "light":
		lipgloss.SetHasDarkBackground(false)
		return
	case "dark":
		lipgloss.SetHasDarkBackground(true)
		return
	}

	if v := strings.TrimSpace(os.Getenv("GIGDESK_TUI_DARKBG")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			lipgloss.SetHasDarkBackground(b)
			return
		}
	}

	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			lipgloss.SetHasDarkBackground(bg < 7)
			return
		}
	}

	if runtime.GOOS == "darwin" {
		if dark, ok := macOSHasDarkAppearance(); ok {
			lipgloss.SetHasDarkBackground(dark)
		}
	}
}

func macOSHasDarkAppearance() (dark bool, ok bool) {
	// Prints "Dark" in dark mode; exits 1 in light mode (key missing).
	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	out, err := exec.CommandContext(ctx, "defaults", "read", "-g", "AppleInterfaceStyle").CombinedOutput()
	if ctx.Err() != nil {
		return false, false
	}
	if err == nil {
		return strings.Contains(strings.ToLower(string(out)), "dark"), true
	}
	if ee, ok := err.(*exec.ExitError); ok && ee.ExitCode() == 1 {
		return false, true
	}
	return false, false
}
