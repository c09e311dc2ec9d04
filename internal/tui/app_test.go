package tui

import (
	"context"
	"strings"
	"testing"

	"pagemgr-cli/internal/compose"
	"pagemgr-cli/internal/model"
	"pagemgr-cli/internal/store"
	"pagemgr-cli/internal/workbench"

	tea "github.com/charmbracelet/bubbletea"
)

type stubEngine struct{}

func (stubEngine) GenerateDict(context.Context, []string, string) (model.Setup, error) {
	return model.Setup{}, nil
}

func (stubEngine) GenerateMergedDict(context.Context, []string, string) (model.Setup, error) {
	return model.Setup{}, nil
}

func (stubEngine) GenerateSplitDict(context.Context, []string, string) (model.Setup, error) {
	return model.Setup{}, nil
}

func (stubEngine) GenerateDocs(_ context.Context, rec model.Setup) ([]string, error) {
	return []string{rec.OutputDir + "/x.pdf"}, nil
}

type memStorage struct {
	saved  *store.State
	events []string
	ui     *store.TUIState
}

func (s *memStorage) Save(st *store.State) error { s.saved = st; return nil }

func (s *memStorage) AppendEvent(typ, _ string, _ any) error {
	s.events = append(s.events, typ)
	return nil
}

func (s *memStorage) LoadTUIState() (*store.TUIState, error) {
	if s.ui == nil {
		return &store.TUIState{Version: 1}, nil
	}
	return s.ui, nil
}

func (s *memStorage) SaveTUIState(st *store.TUIState) error { s.ui = st; return nil }

// newTestModel builds A = a.pdf p1..p3 and B = b.pdf p1. Rows:
// 0 A, 1-3 A pages, 4 B, 5 B page, 6 Unassigned.
func newTestModel(t *testing.T) (appModel, *memStorage) {
	t.Helper()
	setGlyphs(glyphSetASCII)
	wb := workbench.New(stubEngine{})
	cm := wb.Model()
	a, err := cm.AddDocument("A")
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 3; i++ {
		if _, err := cm.AddPage(a, model.PageSource{Document: "/in/a.pdf", Page: i}); err != nil {
			t.Fatal(err)
		}
	}
	b, err := cm.AddDocument("B")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cm.AddPage(b, model.PageSource{Document: "/in/b.pdf", Page: 1}); err != nil {
		t.Fatal(err)
	}
	s := &memStorage{}
	return newAppModel(wb, s, "test"), s
}

func key(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "shift+down":
		return tea.KeyMsg{Type: tea.KeyShiftDown}
	case "shift+up":
		return tea.KeyMsg{Type: tea.KeyShiftUp}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func press(t *testing.T, m appModel, keys ...string) appModel {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(key(k))
		am, ok := next.(appModel)
		if !ok {
			t.Fatalf("unexpected model type %T", next)
		}
		m = am
	}
	return m
}

func pagesOf(m appModel, name string) []int {
	snap := m.wb.Model().Snapshot()
	views := append(snap.Documents, snap.Unassigned)
	for _, d := range views {
		if d.Name != name {
			continue
		}
		out := []int{}
		for _, p := range d.Pages {
			out = append(out, p.Source.Page)
		}
		return out
	}
	return nil
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRowsListDocumentsThenUnassigned(t *testing.T) {
	m, _ := newTestModel(t)
	if len(m.rows) != 7 {
		t.Fatalf("expected 7 rows, got %d", len(m.rows))
	}
	if got := m.rows[0].text; got != "v A (3)" {
		t.Fatalf("row 0 = %q", got)
	}
	if got := m.rows[2].text; got != "    2. a.pdf p.2" {
		t.Fatalf("row 2 = %q", got)
	}
	if got := m.rows[6].text; got != "v Unassigned (0)" {
		t.Fatalf("row 6 = %q", got)
	}
}

func TestMoveDownKeepsCursorOnPage(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, "j", "J")
	if got := pagesOf(m, "A"); !equalInts(got, []int{2, 1, 3}) {
		t.Fatalf("A pages = %v", got)
	}
	if m.cursor != 2 || !m.dirty {
		t.Fatalf("cursor=%d dirty=%v", m.cursor, m.dirty)
	}

	m = press(t, m, "shift+up")
	if got := pagesOf(m, "A"); !equalInts(got, []int{1, 2, 3}) {
		t.Fatalf("A pages after shift+up = %v", got)
	}
	if m.cursor != 1 {
		t.Fatalf("cursor=%d", m.cursor)
	}
}

func TestMoveDownAtEndIsIgnored(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, "j", "j", "j", "J")
	if got := pagesOf(m, "A"); !equalInts(got, []int{1, 2, 3}) {
		t.Fatalf("A pages = %v", got)
	}
	if m.statusErr {
		t.Fatalf("unexpected error status %q", m.status)
	}
}

func TestUnassignAndMoveToNextDocument(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, "j", "u")
	if got := pagesOf(m, compose.UnassignedName); !equalInts(got, []int{1}) {
		t.Fatalf("unassigned pages = %v", got)
	}
	r, _ := m.current()
	if r.kind != rowPage || r.doc != m.wb.Model().Unassigned() {
		t.Fatalf("cursor should follow the page into Unassigned: %+v", r)
	}

	// From Unassigned, t wraps around to the first document.
	m = press(t, m, "t")
	if got := pagesOf(m, "A"); !equalInts(got, []int{2, 3, 1}) {
		t.Fatalf("A pages = %v", got)
	}
}

func TestReorderInUnassignedShowsError(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, "j", "u", "K")
	if !m.statusErr || !strings.Contains(m.status, "cannot be reordered") {
		t.Fatalf("expected reorder rejection, got %q (err=%v)", m.status, m.statusErr)
	}
}

func TestEnterSelectsPageAndFoldsDocument(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, "j", "j", "enter")
	if m.selected == nil || *m.selected != (model.PageSelected{Document: "/in/a.pdf", Page: 2}) {
		t.Fatalf("selected = %+v", m.selected)
	}
	if m.status != "selected /in/a.pdf p.2" {
		t.Fatalf("status = %q", m.status)
	}

	m = press(t, m, "k", "k", "enter")
	if len(m.rows) != 4 {
		t.Fatalf("expected A folded (4 rows), got %d", len(m.rows))
	}
	if got := m.rows[0].text; got != "> A (3)" {
		t.Fatalf("row 0 = %q", got)
	}
}

func TestNewAndRenameDocument(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, "n", "C", "enter")
	docs := m.wb.Model().Documents()
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(docs))
	}
	r, _ := m.current()
	d, _ := m.wb.Model().Document(r.doc)
	if d.Name != "C" {
		t.Fatalf("cursor should be on C, got %q", d.Name)
	}

	m = press(t, m, "r", "2", "enter")
	d, _ = m.wb.Model().Document(r.doc)
	if d.Name != "C2" {
		t.Fatalf("renamed to %q", d.Name)
	}

	m = press(t, m, "n", "esc")
	if len(m.wb.Model().Documents()) != 3 || m.mode != modeNormal {
		t.Fatalf("esc should cancel the prompt")
	}
}

func TestRemoveDocumentNeedsConfirmation(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, "x", "n")
	if len(m.wb.Model().Documents()) != 2 || m.status != "cancelled" {
		t.Fatalf("declined removal must keep the document (status %q)", m.status)
	}

	m = press(t, m, "x", "y")
	if len(m.wb.Model().Documents()) != 1 {
		t.Fatalf("expected A removed")
	}
	if got := pagesOf(m, compose.UnassignedName); !equalInts(got, []int{1, 2, 3}) {
		t.Fatalf("unassigned pages = %v", got)
	}
}

func TestRemoveInUnassignedOnlyHints(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, "j", "u", "x")
	if m.mode != modeNormal || m.status != unassignedRemoveHint {
		t.Fatalf("expected the hint without a prompt (mode %v, status %q)", m.mode, m.status)
	}
	if got := pagesOf(m, compose.UnassignedName); !equalInts(got, []int{1}) {
		t.Fatalf("unassigned pages = %v", got)
	}
}

func TestSaveAndQuit(t *testing.T) {
	m, s := newTestModel(t)
	m = press(t, m, "j", "J", "s")
	if s.saved == nil || m.dirty || m.status != "saved" {
		t.Fatalf("expected saved state (dirty=%v status=%q)", m.dirty, m.status)
	}
	if len(s.saved.Documents) != 2 || s.saved.Documents[0].Pages[0].Page != 2 {
		t.Fatalf("unexpected saved state: %+v", s.saved)
	}
	if len(s.events) != 1 || s.events[0] != "tui.save" {
		t.Fatalf("events = %v", s.events)
	}

	next, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if s.ui == nil || s.ui.Cursor != next.(appModel).cursor {
		t.Fatalf("tui state not saved: %+v", s.ui)
	}
}

func TestQuitWithUnsavedChangesAsks(t *testing.T) {
	m, s := newTestModel(t)
	m = press(t, m, "j", "J", "q")
	if m.mode != modeConfirm || s.ui != nil {
		t.Fatalf("expected confirmation before quitting")
	}
	next, cmd := m.Update(key("y"))
	if cmd == nil || next.(appModel).mode != modeNormal {
		t.Fatalf("expected quit after confirming")
	}
}

func TestGenerateRunsInBackground(t *testing.T) {
	m, s := newTestModel(t)
	m.wb.Model().SetOutputDir(t.TempDir())
	next, cmd := m.Update(key("g"))
	m = next.(appModel)
	if cmd == nil || !m.busy {
		t.Fatalf("expected background generation")
	}

	// Mutations wait for generation to finish.
	m = press(t, m, "j", "J")
	if got := pagesOf(m, "A"); !equalInts(got, []int{1, 2, 3}) {
		t.Fatalf("model changed during generation: %v", got)
	}

	next, _ = m.Update(cmd())
	m = next.(appModel)
	if m.busy || m.status != "generated 1 file(s)" {
		t.Fatalf("busy=%v status=%q", m.busy, m.status)
	}
	if len(s.events) != 1 || s.events[0] != "generate" {
		t.Fatalf("events = %v", s.events)
	}
}

func TestGenerateErrorsAreShown(t *testing.T) {
	m, _ := newTestModel(t)
	next, cmd := m.Update(key("g"))
	m = next.(appModel)
	next, _ = m.Update(cmd())
	m = next.(appModel)
	if !m.statusErr || m.status != workbench.ErrNoOutputDir.Error() {
		t.Fatalf("status = %q", m.status)
	}
}

func TestRestoresTUIState(t *testing.T) {
	setGlyphs(glyphSetASCII)
	wb := workbench.New(stubEngine{})
	a, _ := wb.Model().AddDocument("A")
	_, _ = wb.Model().AddPage(a, model.PageSource{Document: "/in/a.pdf", Page: 1})
	s := &memStorage{ui: &store.TUIState{Version: 1, Cursor: 9, Collapsed: []string{"A"}}}
	m := newAppModel(wb, s, "")
	if len(m.rows) != 2 || m.cursor != 1 {
		t.Fatalf("rows=%d cursor=%d", len(m.rows), m.cursor)
	}
}

func TestScrollOffset(t *testing.T) {
	cases := []struct {
		cursor, offset, visible, total, want int
	}{
		{0, 0, 5, 10, 0},
		{7, 0, 5, 10, 3},
		{2, 4, 5, 10, 2},
		{9, 9, 5, 10, 5},
		{0, 3, 5, 2, 0},
	}
	for _, tc := range cases {
		if got := scrollOffset(tc.cursor, tc.offset, tc.visible, tc.total); got != tc.want {
			t.Fatalf("scrollOffset(%+v) = %d", tc, got)
		}
	}
}

func TestViewFitsWidth(t *testing.T) {
	m, _ := newTestModel(t)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 30, Height: 6})
	m = next.(appModel)
	view := m.View()
	if !strings.Contains(view, "pagemgr") {
		t.Fatalf("missing header: %q", view)
	}
	for _, line := range strings.Split(view, "\n") {
		if w := len([]rune(stripANSI(line))); w > 30 {
			t.Fatalf("line wider than 30 cells (%d): %q", w, line)
		}
	}
}

func stripANSI(s string) string {
	var b strings.Builder
	inEsc := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEsc = true
		case inEsc && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			inEsc = false
		case !inEsc:
			b.WriteRune(r)
		}
	}
	return b.String()
}
