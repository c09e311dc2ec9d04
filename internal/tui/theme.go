package tui

import (
	"os"
	"strconv"
	"strings"

	"pagemgr-cli/internal/store"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Colors stay readable on light and dark backgrounds; faint styling is only used on dark ones.

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
	colorMuted      lipgloss.TerminalColor = ac("240", "243")
	colorSelectedBg lipgloss.TerminalColor = ac("#e9e9e9", "#262626")
	colorSelectedFg lipgloss.TerminalColor = ac("235", "255")
	colorSurfaceFg  lipgloss.TerminalColor = ac("235", "252")
	colorControlBg  lipgloss.TerminalColor = ac("252", "235")
	colorInputBg    lipgloss.TerminalColor = ac("254", "234")
	colorError      lipgloss.TerminalColor = ac("160", "203")

	defaultColorAccent lipgloss.TerminalColor = ac("27", "62")
	colorAccent                               = defaultColorAccent
)

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colorMuted))
}

func styleSelected() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorSelectedFg).Background(colorSelectedBg).Bold(true)
}

func styleDocument() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorSurfaceFg).Bold(true)
}

func styleHeader() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
}

func styleError() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorError)
}

// applyAccent applies the accent color from the global config, if any.
func applyAccent(prefs *store.TUIConfig) {
	colorAccent = defaultColorAccent
	if prefs == nil || prefs.Accent == nil {
		return
	}
	light, dark := strings.TrimSpace(prefs.Accent.Light), strings.TrimSpace(prefs.Accent.Dark)
	if light == "" && dark == "" {
		return
	}
	if light == "" {
		light = dark
	}
	if dark == "" {
		dark = light
	}
	colorAccent = ac(light, dark)
}

// applyColorProfilePreference sets Lip Gloss's color profile for the TUI. termenv's env profile
// honors CLICOLOR, which can disable colors in an interactive session, so only NO_COLOR is
// honored here.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	profile := termenv.ColorProfile()
	term := strings.ToLower(strings.TrimSpace(os.Getenv("TERM")))
	colorterm := strings.ToLower(strings.TrimSpace(os.Getenv("COLORTERM")))
	switch {
	case strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit"):
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	case strings.Contains(term, "256color"):
		if profile == termenv.Ascii || profile == termenv.ANSI {
			profile = termenv.ANSI256
		}
	}
	lipgloss.SetColorProfile(profile)
}

// applyThemePreference configures background detection:
// 1) PAGEMGR_TUI_THEME=light|dark|auto
// 2) COLORFGBG ("fg;bg", bg < 7 is dark)
func applyThemePreference() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("PAGEMGR_TUI_THEME"))) {
	case "light":
		lipgloss.SetHasDarkBackground(false)
		return
	case "dark":
		lipgloss.SetHasDarkBackground(true)
		return
	}
	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			lipgloss.SetHasDarkBackground(bg < 7)
		}
	}
}
