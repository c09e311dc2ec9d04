// Package tui is the interactive composer: a tree of output documents and their pages that is
// edited with single-key commands.
package tui

import (
	"pagemgr-cli/internal/store"
	"pagemgr-cli/internal/workbench"

	tea "github.com/charmbracelet/bubbletea"
)

type Options struct {
	Workspace string
	Prefs     *store.TUIConfig
}

func Run(wb *workbench.Workbench, s Storage, opts Options) error {
	applyColorProfilePreference()
	applyThemePreference()
	applyAccent(opts.Prefs)
	glyphPref := ""
	if opts.Prefs != nil {
		glyphPref = opts.Prefs.Glyphs
	}
	applyGlyphPreference(glyphPref)

	m := newAppModel(wb, s, opts.Workspace)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
