// Package compose holds the output composition model: an ordered set of output documents plus the
// Unassigned bucket, each holding references to pages of input PDFs.
//
// Nodes live in an arena and are addressed by Handle. A node is either a document or a page; the
// parent/child relation is an index lookup, so reparenting a page only rewrites its parent handle
// and the two child lists involved. Handles are never reused: LoadSetup retires every existing
// node, and operations on a retired handle fail with ErrInvalidOperation.
//
// The model is not safe for concurrent use. Callers drive it from a single goroutine and every
// operation runs to completion before returning.
package compose

import (
	"fmt"
	"path/filepath"
	"strings"

	"pagemgr-cli/internal/model"
)

// UnassignedName is the display name of the Unassigned bucket.
const UnassignedName = "__UNASSIGNED__"

type Handle int

// NoHandle is the parent of a document node.
const NoHandle Handle = -1

type Kind uint8

const (
	KindDocument Kind = iota + 1
	KindPage
)

func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindPage:
		return "page"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

type node struct {
	kind   Kind
	alive  bool
	parent Handle

	// KindDocument
	name       string
	unassigned bool
	pages      []Handle

	// KindPage
	source   model.PageSource
	position int
}

// Confirmer is the caller-supplied confirmation step for destructive actions.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

type Option func(*Model)

// WithConfirmer sets the confirmation step. Without one, destructive actions are approved.
func WithConfirmer(c Confirmer) Option {
	return func(m *Model) { m.confirmer = c }
}

func WithOutputDir(dir string) Option {
	return func(m *Model) { m.outputDir = dir }
}

type Model struct {
	nodes      []node
	docs       []Handle
	unassigned Handle
	outputDir  string

	confirmer Confirmer

	observers  map[int]func(model.PageSelected)
	observerID int
}

func New(opts ...Option) *Model {
	m := &Model{observers: map[int]func(model.PageSelected){}}
	m.unassigned = m.newDocument(UnassignedName, true)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type DocumentInfo struct {
	Handle     Handle
	Name       string
	Unassigned bool
	PageCount  int
}

type PageInfo struct {
	Handle   Handle
	Source   model.PageSource
	Owner    Handle
	Position int
}

func (m *Model) Unassigned() Handle { return m.unassigned }

func (m *Model) OutputDir() string { return m.outputDir }

func (m *Model) SetOutputDir(dir string) { m.outputDir = dir }

// SetConfirmer replaces the confirmation step (nil approves everything).
func (m *Model) SetConfirmer(c Confirmer) { m.confirmer = c }

// Kind reports the kind of a live node.
func (m *Model) Kind(h Handle) (Kind, bool) {
	n := m.lookup(h)
	if n == nil {
		return 0, false
	}
	return n.kind, true
}

// Documents returns the regular documents in display/generation order (Unassigned excluded).
func (m *Model) Documents() []Handle {
	return append([]Handle(nil), m.docs...)
}

// Pages returns the pages of a document (or Unassigned) in position order.
func (m *Model) Pages(doc Handle) []Handle {
	d := m.lookup(doc)
	if d == nil || d.kind != KindDocument {
		return nil
	}
	return append([]Handle(nil), d.pages...)
}

func (m *Model) Document(h Handle) (DocumentInfo, error) {
	d, err := m.document("document", h)
	if err != nil {
		return DocumentInfo{}, err
	}
	return DocumentInfo{Handle: h, Name: d.name, Unassigned: d.unassigned, PageCount: len(d.pages)}, nil
}

func (m *Model) Page(h Handle) (PageInfo, error) {
	p, err := m.page("page", h)
	if err != nil {
		return PageInfo{}, err
	}
	return PageInfo{Handle: h, Source: p.source, Owner: p.parent, Position: p.position}, nil
}

// AddDocument creates an empty output document at the end of the document order.
func (m *Model) AddDocument(name string) (Handle, error) {
	name = strings.TrimSpace(name)
	if err := validateDocumentName(name); err != nil {
		return NoHandle, invalidOp("add document", "%v", err)
	}
	h := m.newDocument(name, false)
	m.docs = append(m.docs, h)
	return h, nil
}

func (m *Model) RenameDocument(doc Handle, name string) error {
	d, err := m.document("rename document", doc)
	if err != nil {
		return err
	}
	if d.unassigned {
		return invalidOp("rename document", "the Unassigned bucket cannot be renamed")
	}
	name = strings.TrimSpace(name)
	if err := validateDocumentName(name); err != nil {
		return invalidOp("rename document", "%v", err)
	}
	d.name = name
	return nil
}

// AddPage ingests a new page reference at the end of doc (or into Unassigned).
func (m *Model) AddPage(doc Handle, src model.PageSource) (Handle, error) {
	if _, err := m.document("add page", doc); err != nil {
		return NoHandle, err
	}
	if strings.TrimSpace(src.Document) == "" {
		return NoHandle, invalidOp("add page", "missing source document")
	}
	if src.Page < 1 {
		return NoHandle, invalidOp("add page", "source page number must be >= 1, got %d", src.Page)
	}
	h := m.appendPage(doc, src)
	m.mustBeConsistent(doc)
	return h, nil
}

// Snapshot copies the current state for presentation.
func (m *Model) Snapshot() model.Snapshot {
	out := model.Snapshot{
		OutputDir:  m.outputDir,
		Unassigned: m.view(m.unassigned, 0),
		Documents:  make([]model.DocumentView, 0, len(m.docs)),
	}
	for i, h := range m.docs {
		out.Documents = append(out.Documents, m.view(h, i+1))
	}
	return out
}

func (m *Model) view(doc Handle, index int) model.DocumentView {
	d := &m.nodes[doc]
	v := model.DocumentView{Name: d.name, Index: index, Unassigned: d.unassigned, Pages: make([]model.PageView, 0, len(d.pages))}
	for _, ph := range d.pages {
		p := &m.nodes[ph]
		v.Pages = append(v.Pages, model.PageView{Source: p.source, Position: p.position})
	}
	return v
}

// OnPageSelected registers an observer for page selections and returns its unsubscribe func.
func (m *Model) OnPageSelected(fn func(model.PageSelected)) func() {
	m.observerID++
	id := m.observerID
	m.observers[id] = fn
	return func() { delete(m.observers, id) }
}

// SelectPage notifies observers that a page node was activated.
func (m *Model) SelectPage(h Handle) error {
	p, err := m.page("select page", h)
	if err != nil {
		return err
	}
	ev := model.PageSelected{Document: p.source.Document, Page: p.source.Page}
	for id := 1; id <= m.observerID; id++ {
		if fn, ok := m.observers[id]; ok {
			fn(ev)
		}
	}
	return nil
}

func (m *Model) newDocument(name string, unassigned bool) Handle {
	m.nodes = append(m.nodes, node{kind: KindDocument, alive: true, parent: NoHandle, name: name, unassigned: unassigned})
	return Handle(len(m.nodes) - 1)
}

func (m *Model) appendPage(doc Handle, src model.PageSource) Handle {
	m.nodes = append(m.nodes, node{kind: KindPage, alive: true, parent: doc, source: src})
	h := Handle(len(m.nodes) - 1)
	d := &m.nodes[doc]
	d.pages = append(d.pages, h)
	if !d.unassigned {
		m.nodes[h].position = len(d.pages)
	}
	return h
}

func (m *Model) lookup(h Handle) *node {
	if h < 0 || int(h) >= len(m.nodes) {
		return nil
	}
	n := &m.nodes[h]
	if !n.alive {
		return nil
	}
	return n
}

func (m *Model) document(op string, h Handle) (*node, error) {
	n := m.lookup(h)
	if n == nil {
		return nil, invalidOp(op, "unknown handle %d", h)
	}
	switch n.kind {
	case KindDocument:
		return n, nil
	case KindPage:
		return nil, invalidOp(op, "handle %d is a page, not a document", h)
	default:
		panic(fmt.Sprintf("compose: node %d has unknown kind %v", h, n.kind))
	}
}

func (m *Model) page(op string, h Handle) (*node, error) {
	n := m.lookup(h)
	if n == nil {
		return nil, invalidOp(op, "unknown handle %d", h)
	}
	switch n.kind {
	case KindPage:
		return n, nil
	case KindDocument:
		return nil, invalidOp(op, "handle %d is a document, not a page", h)
	default:
		panic(fmt.Sprintf("compose: node %d has unknown kind %v", h, n.kind))
	}
}

// renumber assigns positions 1..N in list order; Unassigned pages have none.
func (m *Model) renumber(doc Handle) {
	d := &m.nodes[doc]
	for i, ph := range d.pages {
		if d.unassigned {
			m.nodes[ph].position = 0
		} else {
			m.nodes[ph].position = i + 1
		}
	}
}

// mustBeConsistent panics when doc's pages do not form positions {1..N} in list order
// (or, for Unassigned, carry a position) or do not point back at doc.
func (m *Model) mustBeConsistent(doc Handle) {
	d := &m.nodes[doc]
	for i, ph := range d.pages {
		p := m.lookup(ph)
		if p == nil || p.kind != KindPage {
			panic(fmt.Sprintf("compose: document %q holds dead or non-page node %d", d.name, ph))
		}
		if p.parent != doc {
			panic(fmt.Sprintf("compose: page %d listed under %q but parented to %d", ph, d.name, p.parent))
		}
		want := i + 1
		if d.unassigned {
			want = 0
		}
		if p.position != want {
			panic(fmt.Sprintf("compose: document %q page %d has position %d, want %d", d.name, ph, p.position, want))
		}
	}
}

func validateDocumentName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("document name must not be empty")
	case name == model.OutputDirKey:
		return fmt.Errorf("%q is reserved", model.OutputDirKey)
	case name == UnassignedName:
		return fmt.Errorf("%q is reserved", UnassignedName)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("document name %q must not contain path separators", name)
	}
	return nil
}

// documentNameFromKey maps a setup key to a document name. Engine fragments may key documents by
// output path; only such path keys lose their directory and trailing .pdf. Plain names load as is.
func documentNameFromKey(key string) string {
	name := strings.TrimSpace(key)
	if !strings.ContainsAny(name, `/\`) {
		return name
	}
	name = filepath.Base(filepath.FromSlash(strings.ReplaceAll(name, `\`, "/")))
	if ext := filepath.Ext(name); strings.EqualFold(ext, ".pdf") && len(name) > len(ext) {
		name = name[:len(name)-len(ext)]
	}
	return name
}
