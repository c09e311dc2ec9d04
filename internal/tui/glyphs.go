package tui

import (
	"os"
	"strings"
	"sync"
)

// Some fonts render the tree twisties badly, so the glyph set is switchable.

type glyphSet int

const (
	glyphSetUnicode glyphSet = iota
	glyphSetASCII
)

var (
	glyphsMu      sync.RWMutex
	currentGlyphs = glyphSetUnicode
)

// applyGlyphPreference picks the glyph set from PAGEMGR_TUI_GLYPHS, falling back to the config
// value. Unknown values are ignored.
func applyGlyphPreference(configured string) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("PAGEMGR_TUI_GLYPHS")))
	if v == "" {
		v = strings.ToLower(strings.TrimSpace(configured))
	}
	switch v {
	case "", "unicode", "utf8":
		setGlyphs(glyphSetUnicode)
	case "ascii":
		setGlyphs(glyphSetASCII)
	}
}

func setGlyphs(gs glyphSet) {
	glyphsMu.Lock()
	currentGlyphs = gs
	glyphsMu.Unlock()
}

func glyphs() glyphSet {
	glyphsMu.RLock()
	gs := currentGlyphs
	glyphsMu.RUnlock()
	return gs
}

func glyphTwisty(collapsed bool) string {
	switch {
	case glyphs() == glyphSetASCII && collapsed:
		return ">"
	case glyphs() == glyphSetASCII:
		return "v"
	case collapsed:
		return "▸"
	default:
		return "▾"
	}
}

func glyphBullet() string {
	if glyphs() == glyphSetASCII {
		return "*"
	}
	return "•"
}

func glyphEllipsis() string {
	if glyphs() == glyphSetASCII {
		return "..."
	}
	return "…"
}
