package compose

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"pagemgr-cli/internal/model"
)

type plannedDocument struct {
	name  string
	pages []model.PageSource
}

// LoadSetup replaces the whole model with the documents of rec and a fresh empty Unassigned
// bucket. The record is validated completely before anything changes; on error the model is
// left exactly as it was. Handles obtained before a successful load are retired.
func (m *Model) LoadSetup(rec model.Setup) error {
	plan, err := planLoad(rec)
	if err != nil {
		return err
	}

	for i := range m.nodes {
		m.nodes[i].alive = false
	}
	m.docs = nil
	m.unassigned = m.newDocument(UnassignedName, true)
	m.outputDir = rec.OutputDir

	for _, pd := range plan {
		h := m.newDocument(pd.name, false)
		m.docs = append(m.docs, h)
		for _, src := range pd.pages {
			m.appendPage(h, src)
		}
		m.mustBeConsistent(h)
	}
	return nil
}

func planLoad(rec model.Setup) ([]plannedDocument, error) {
	plan := make([]plannedDocument, 0, len(rec.Documents))
	for _, doc := range rec.Documents {
		name := documentNameFromKey(doc.Name)
		if err := validateDocumentName(name); err != nil {
			return nil, MalformedSetupError{Document: doc.Name, Reason: err.Error()}
		}

		type keyed struct {
			pos int
			src model.PageSource
		}
		entries := make([]keyed, 0, len(doc.Entries))
		seen := map[int]bool{}
		for _, e := range doc.Entries {
			pos, err := parsePositive(e.Key)
			if err != nil {
				return nil, MalformedSetupError{Document: doc.Name, Key: e.Key, Reason: "position key must be a positive integer"}
			}
			if seen[pos] {
				return nil, MalformedSetupError{Document: doc.Name, Key: e.Key, Reason: "duplicate position"}
			}
			seen[pos] = true

			src, err := parseDescriptor(e.Pages)
			if err != nil {
				return nil, MalformedSetupError{Document: doc.Name, Key: e.Key, Reason: err.Error()}
			}
			entries = append(entries, keyed{pos: pos, src: src})
		}

		sort.Slice(entries, func(i, j int) bool { return entries[i].pos < entries[j].pos })
		pd := plannedDocument{name: name, pages: make([]model.PageSource, 0, len(entries))}
		for i, e := range entries {
			if e.pos != i+1 {
				return nil, MalformedSetupError{Document: doc.Name, Reason: fmt.Sprintf("positions are not contiguous: expected %d, found %d", i+1, e.pos)}
			}
			pd.pages = append(pd.pages, e.src)
		}
		plan = append(plan, pd)
	}
	return plan, nil
}

// parsePositive accepts canonical decimal integers >= 1 ("1", "12"; not "01", "+1", " 1").
func parsePositive(s string) (int, error) {
	if s == "" || s[0] == '0' {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid number %q", s)
		}
	}
	return strconv.Atoi(s)
}

func parseDescriptor(pages map[string]string) (model.PageSource, error) {
	switch len(pages) {
	case 0:
		return model.PageSource{}, fmt.Errorf("missing page descriptor")
	case 1:
	default:
		return model.PageSource{}, fmt.Errorf("page descriptor must hold exactly one page, got %d", len(pages))
	}
	for k, path := range pages {
		n, err := parsePositive(k)
		if err != nil {
			return model.PageSource{}, fmt.Errorf("source page number %q must be a positive integer", k)
		}
		if strings.TrimSpace(path) == "" {
			return model.PageSource{}, fmt.Errorf("source page %d has no document path", n)
		}
		return model.PageSource{Document: path, Page: n}, nil
	}
	panic("unreachable")
}

// SerializeSetup builds the setup record for every non-empty document in display order.
// Unassigned never appears in the record.
func (m *Model) SerializeSetup() model.Setup {
	rec := model.Setup{OutputDir: m.outputDir}
	for _, h := range m.docs {
		d := &m.nodes[h]
		if len(d.pages) == 0 {
			continue
		}
		srcs := make([]model.PageSource, 0, len(d.pages))
		for _, ph := range d.pages {
			srcs = append(srcs, m.nodes[ph].source)
		}
		rec.Documents = append(rec.Documents, model.NewSetupDocument(d.name, srcs))
	}
	return rec
}
