package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

// chromeRows is the header, blank separator, status and key hint lines around the tree.
const chromeRows = 4

func (m appModel) View() string {
	w := m.width
	if w < 20 {
		w = 20
	}
	if m.mode == modeHelp {
		return RenderMarkdown(helpMarkdown(), w) + "\n\n" + styleMuted().Render("press any key to close")
	}

	var b strings.Builder
	out := m.wb.Model().OutputDir()
	if out == "" {
		out = "(no output dir)"
	}
	title := "pagemgr"
	if m.workspace != "" {
		title += " · " + m.workspace
	}
	if m.dirty {
		title += " *"
	}
	b.WriteString(fit(styleHeader().Render(title)+"  "+styleMuted().Render(out), w))
	b.WriteString("\n\n")

	visible := m.visibleRows()
	offset := scrollOffset(m.cursor, m.offset, visible, len(m.rows))
	for i := offset; i < len(m.rows) && i < offset+visible; i++ {
		r := m.rows[i]
		line := r.text
		switch {
		case i == m.cursor:
			line = styleSelected().Render(padRight(fit(line, w), w))
		case r.kind == rowDocument:
			line = styleDocument().Render(fit(line, w))
		default:
			line = fit(line, w)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(m.rows) == 0 {
		b.WriteString(styleMuted().Render("no documents; add inputs with `pagemgr inputs add`"))
		b.WriteString("\n")
	}

	b.WriteString(m.statusLine(w))
	b.WriteString("\n")
	b.WriteString(m.footer(w))
	return b.String()
}

func (m appModel) visibleRows() int {
	if v := m.height - chromeRows; v > 0 {
		return v
	}
	return 1
}

func (m appModel) statusLine(w int) string {
	switch m.mode {
	case modeInput:
		label := "New document"
		if m.purpose == inputRenameDocument {
			label = "Rename"
		}
		return renderInputLine(w, label+": "+m.input.View())
	case modeConfirm:
		return fit(styleHeader().Render(m.confirmPrompt)+" "+styleMuted().Render("[y/N]"), w)
	}
	if m.status != "" {
		if m.statusErr {
			return fit(styleError().Render(m.status), w)
		}
		return fit(m.status, w)
	}
	if m.selected != nil {
		return fit(styleMuted().Render(fmt.Sprintf("selected %s p.%d", m.selected.Document, m.selected.Page)), w)
	}
	return ""
}

func (m appModel) footer(w int) string {
	switch m.mode {
	case modeInput:
		return fit(styleMuted().Render("enter: ok   esc: cancel"), w)
	case modeConfirm:
		return fit(styleMuted().Render("y: confirm   n/esc: cancel"), w)
	}
	return fit(styleMuted().Render("j/k move  K/J reorder  u unassign  t next doc  n new  r rename  x remove  g generate  s save  ? help  q quit"), w)
}

// scrollOffset keeps the cursor inside the visible window.
func scrollOffset(cursor, offset, visible, total int) int {
	if cursor < offset {
		offset = cursor
	}
	if cursor >= offset+visible {
		offset = cursor - visible + 1
	}
	if last := total - visible; offset > last {
		offset = last
	}
	if offset < 0 {
		offset = 0
	}
	return offset
}

// fit truncates s to w cells, keeping ANSI styling intact.
func fit(s string, w int) string {
	if xansi.StringWidth(s) <= w {
		return s
	}
	return xansi.Truncate(s, w, glyphEllipsis())
}

func padRight(s string, w int) string {
	if pad := w - xansi.StringWidth(s); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}

func renderInputLine(w int, inputView string) string {
	// The input must stay on one visual line.
	inputView = strings.ReplaceAll(inputView, "\n", " ")
	line := lipgloss.PlaceHorizontal(
		w,
		lipgloss.Left,
		" "+inputView+" ",
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceBackground(colorInputBg),
	)
	if xansi.StringWidth(line) > w {
		line = xansi.Cut(line, 0, w) + "\x1b[0m"
	}
	return line
}
