package tui

import (
	"context"
	"fmt"
	"os"

	"pagemgr-cli/internal/compose"
	"pagemgr-cli/internal/docs"
	"pagemgr-cli/internal/logging"
	"pagemgr-cli/internal/model"
	"pagemgr-cli/internal/store"
	"pagemgr-cli/internal/workbench"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Storage is the slice of store.Store the composer writes to.
type Storage interface {
	Save(st *store.State) error
	AppendEvent(typ, entityID string, payload any) error
	LoadTUIState() (*store.TUIState, error)
	SaveTUIState(st *store.TUIState) error
}

type mode int

const (
	modeNormal mode = iota
	modeInput
	modeConfirm
	modeHelp
)

type inputPurpose int

const (
	inputNewDocument inputPurpose = iota
	inputRenameDocument
)

type generatedMsg struct {
	paths []string
	err   error
}

type appModel struct {
	wb        *workbench.Workbench
	storage   Storage
	workspace string

	rows      []row
	cursor    int
	offset    int
	width     int
	height    int
	collapsed map[string]bool

	mode         mode
	input        textinput.Model
	purpose      inputPurpose
	renameTarget compose.Handle

	confirmPrompt string
	onConfirm     func(appModel) (appModel, tea.Cmd)

	status    string
	statusErr bool
	selected  *model.PageSelected
	dirty     bool
	busy      bool
}

func newAppModel(wb *workbench.Workbench, s Storage, workspace string) appModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 200

	m := appModel{
		wb:        wb,
		storage:   s,
		workspace: workspace,
		collapsed: map[string]bool{},
		input:     ti,
		width:     80,
		height:    24,
	}
	if st, err := s.LoadTUIState(); err == nil && st != nil {
		for _, name := range st.Collapsed {
			m.collapsed[name] = true
		}
		m.cursor = st.Cursor
		if st.LastSelected != nil {
			m.selected = &model.PageSelected{Document: st.LastSelected.Document, Page: st.LastSelected.Page}
		}
	}
	m.refresh()
	return m
}

func (m appModel) Init() tea.Cmd { return nil }

// refresh rebuilds the rows and clamps the cursor.
func (m *appModel) refresh() {
	m.rows = flatten(m.wb.Model(), m.collapsed)
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// follow rebuilds the rows and puts the cursor on page (or on doc's row for NoHandle).
func (m *appModel) follow(doc, page compose.Handle) {
	m.refresh()
	if i := rowOf(m.rows, doc, page); i >= 0 {
		m.cursor = i
	}
}

func (m appModel) current() (row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return row{}, false
	}
	return m.rows[m.cursor], true
}

func (m *appModel) setStatus(msg string) {
	m.status, m.statusErr = msg, false
}

func (m *appModel) setError(err error) {
	m.status, m.statusErr = err.Error(), true
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	if am, ok := next.(appModel); ok {
		am.offset = scrollOffset(am.cursor, am.offset, am.visibleRows(), len(am.rows))
		return am, cmd
	}
	return next, cmd
}

func (m appModel) update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case generatedMsg:
		m.busy = false
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("generated %d file(s)", len(msg.paths)))
		if err := m.storage.AppendEvent("generate", m.wb.Model().OutputDir(), map[string]any{"files": msg.paths}); err != nil {
			logging.Warn().Add(logging.Err(err)).Msg("event log append failed")
		}
		return m, nil
	case tea.KeyMsg:
		switch m.mode {
		case modeInput:
			return m.updateInput(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		case modeHelp:
			m.mode = modeNormal
			return m, nil
		default:
			return m.updateNormal(msg)
		}
	}
	return m, nil
}

func (m appModel) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+c":
		return m.quit()
	case "q":
		if m.dirty {
			return m.ask("Quit without saving?", func(m appModel) (appModel, tea.Cmd) {
				mm, cmd := m.quit()
				return mm.(appModel), cmd
			}), nil
		}
		return m.quit()
	case "j", "down":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
		return m, nil
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "?":
		m.mode = modeHelp
		return m, nil
	}

	// Keys below change the model; generation reads it from another goroutine.
	if m.busy {
		m.setStatus("generation in progress")
		return m, nil
	}
	switch key {
	case "K", "shift+up":
		return m.pageOp(func(cm *compose.Model, r row) error { return cm.MoveUp(r.page) }), nil
	case "J", "shift+down":
		return m.pageOp(func(cm *compose.Model, r row) error { return cm.MoveDown(r.page) }), nil
	case "u":
		return m.pageOp(func(cm *compose.Model, r row) error {
			if r.doc == cm.Unassigned() {
				return nil
			}
			_, err := cm.Remove([]compose.Handle{r.page}, false, true)
			return err
		}), nil
	case "t":
		return m.pageOp(func(cm *compose.Model, r row) error {
			return cm.MovePage(r.page, r.doc, nextDocument(cm, r.doc))
		}), nil
	case "enter":
		return m.activate(), nil
	case "n":
		return m.prompt(inputNewDocument, compose.NoHandle, ""), textinput.Blink
	case "r":
		r, ok := m.current()
		if !ok || r.doc == m.wb.Model().Unassigned() {
			m.setStatus("nothing to rename")
			return m, nil
		}
		d, _ := m.wb.Model().Document(r.doc)
		return m.prompt(inputRenameDocument, r.doc, d.Name), textinput.Blink
	case "x":
		return m.confirmRemove(), nil
	case "g":
		return m.generate()
	case "s":
		return m.save(), nil
	}
	return m, nil
}

// pageOp applies fn to the page under the cursor and keeps the cursor on it.
func (m appModel) pageOp(fn func(*compose.Model, row) error) appModel {
	r, ok := m.current()
	if !ok || r.kind != rowPage {
		m.setStatus("select a page first")
		return m
	}
	cm := m.wb.Model()
	if err := fn(cm, r); err != nil {
		m.setError(err)
		return m
	}
	p, err := cm.Page(r.page)
	if err != nil {
		m.follow(r.doc, compose.NoHandle)
	} else {
		m.follow(p.Owner, r.page)
	}
	m.dirty = true
	m.status = ""
	return m
}

// nextDocument is the document after doc in display order, wrapping through Unassigned.
func nextDocument(cm *compose.Model, doc compose.Handle) compose.Handle {
	cycle := append(cm.Documents(), cm.Unassigned())
	for i, h := range cycle {
		if h == doc {
			return cycle[(i+1)%len(cycle)]
		}
	}
	return cm.Unassigned()
}

func (m appModel) activate() appModel {
	r, ok := m.current()
	if !ok {
		return m
	}
	cm := m.wb.Model()
	if r.kind == rowDocument {
		d, _ := cm.Document(r.doc)
		key := collapseKey(d)
		m.collapsed[key] = !m.collapsed[key]
		if !m.collapsed[key] {
			delete(m.collapsed, key)
		}
		m.follow(r.doc, compose.NoHandle)
		return m
	}
	var got model.PageSelected
	unsubscribe := cm.OnPageSelected(func(ev model.PageSelected) { got = ev })
	defer unsubscribe()
	if err := cm.SelectPage(r.page); err != nil {
		m.setError(err)
		return m
	}
	m.selected = &got
	m.setStatus(fmt.Sprintf("selected %s p.%d", got.Document, got.Page))
	return m
}

func (m appModel) prompt(purpose inputPurpose, target compose.Handle, value string) appModel {
	m.mode = modeInput
	m.purpose = purpose
	m.renameTarget = target
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
	return m
}

func (m appModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+g":
		m.mode = modeNormal
		m.input.Blur()
		return m, nil
	case "enter":
		m.mode = modeNormal
		m.input.Blur()
		cm := m.wb.Model()
		name := m.input.Value()
		switch m.purpose {
		case inputNewDocument:
			h, err := cm.AddDocument(name)
			if err != nil {
				m.setError(err)
				return m, nil
			}
			m.follow(h, compose.NoHandle)
		case inputRenameDocument:
			if err := cm.RenameDocument(m.renameTarget, name); err != nil {
				m.setError(err)
				return m, nil
			}
			m.follow(m.renameTarget, compose.NoHandle)
		}
		m.dirty = true
		m.status = ""
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m appModel) ask(prompt string, onConfirm func(appModel) (appModel, tea.Cmd)) appModel {
	m.mode = modeConfirm
	m.confirmPrompt = prompt
	m.onConfirm = onConfirm
	return m
}

func (m appModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		m.mode = modeNormal
		fn := m.onConfirm
		m.onConfirm = nil
		if fn == nil {
			return m, nil
		}
		return fn(m)
	case "n", "N", "esc", "ctrl+g":
		m.mode = modeNormal
		m.onConfirm = nil
		m.setStatus("cancelled")
	}
	return m, nil
}

// Pages leave Unassigned only when their input is withdrawn.
const unassignedRemoveHint = "pages in Unassigned stay until their input is withdrawn (pagemgr inputs remove)"

func (m appModel) confirmRemove() appModel {
	r, ok := m.current()
	if !ok {
		return m
	}
	cm := m.wb.Model()
	if r.kind == rowDocument {
		if r.doc == cm.Unassigned() {
			m.setStatus("the Unassigned bucket cannot be removed")
			return m
		}
		d, _ := cm.Document(r.doc)
		return m.ask(fmt.Sprintf("Remove %q? Its %d page(s) move to Unassigned.", d.Name, d.PageCount), func(m appModel) (appModel, tea.Cmd) {
			if err := m.wb.Model().RemoveDocument(r.doc, true); err != nil {
				m.setError(err)
				return m, nil
			}
			m.dirty = true
			m.follow(m.wb.Model().Unassigned(), compose.NoHandle)
			return m, nil
		})
	}
	if r.doc == cm.Unassigned() {
		m.setStatus(unassignedRemoveHint)
		return m
	}
	return m.ask("Move this page to Unassigned?", func(m appModel) (appModel, tea.Cmd) {
		if _, err := m.wb.Model().Remove([]compose.Handle{r.page}, false, true); err != nil {
			m.setError(err)
			return m, nil
		}
		m.dirty = true
		m.refresh()
		return m, nil
	})
}

func (m appModel) generate() (tea.Model, tea.Cmd) {
	var existing int
	for _, p := range m.wb.OutputPaths() {
		if _, err := os.Stat(p); err == nil {
			existing++
		}
	}
	run := func(m appModel) (appModel, tea.Cmd) {
		m.busy = true
		m.setStatus("generating" + glyphEllipsis())
		wb := m.wb
		return m, func() tea.Msg {
			paths, err := wb.Generate(context.Background(), true)
			return generatedMsg{paths: paths, err: err}
		}
	}
	if existing > 0 {
		return m.ask(fmt.Sprintf("Overwrite %d existing file(s)?", existing), run), nil
	}
	return run(m)
}

func (m appModel) save() appModel {
	if err := m.storage.Save(m.wb.State()); err != nil {
		m.setError(err)
		return m
	}
	snap := m.wb.Model().Snapshot()
	if err := m.storage.AppendEvent("tui.save", "", map[string]any{"documents": len(snap.Documents), "unassigned": len(snap.Unassigned.Pages)}); err != nil {
		logging.Warn().Add(logging.Err(err)).Msg("event log append failed")
	}
	m.dirty = false
	m.setStatus("saved")
	return m
}

func (m appModel) quit() (tea.Model, tea.Cmd) {
	if err := m.storage.SaveTUIState(m.tuiState()); err != nil {
		logging.Warn().Add(logging.Err(err)).Msg("saving tui state failed")
	}
	return m, tea.Quit
}

func (m appModel) tuiState() *store.TUIState {
	st := &store.TUIState{Version: 1, Cursor: m.cursor}
	for name := range m.collapsed {
		st.Collapsed = append(st.Collapsed, name)
	}
	if m.selected != nil {
		st.LastSelected = &store.PageSelectedRef{Document: m.selected.Document, Page: m.selected.Page}
	}
	return st
}

func helpMarkdown() string {
	body, ok := docs.Get("pages")
	if !ok {
		body = ""
	}
	return "# Keys\n\n" +
		"- `j`/`k` move the cursor, `K`/`J` (shift+up/down) move the page\n" +
		"- `u` unassign, `t` move to the next document, `x` remove\n" +
		"- `n` new document, `r` rename, `enter` select page or fold document\n" +
		"- `g` generate, `s` save, `q` quit\n\n" + body
}
