package tui

import (
	"fmt"
	"path/filepath"

	"pagemgr-cli/internal/compose"
)

type rowKind int

const (
	rowDocument rowKind = iota
	rowPage
)

// row is one line of the flattened document tree.
type row struct {
	kind rowKind
	doc  compose.Handle
	// page is NoHandle on document rows.
	page compose.Handle
	text string
}

// flatten lists the documents in generation order followed by the Unassigned bucket, each with
// its pages unless the document is collapsed.
func flatten(m *compose.Model, collapsed map[string]bool) []row {
	docs := append(m.Documents(), m.Unassigned())
	var rows []row
	for _, h := range docs {
		d, err := m.Document(h)
		if err != nil {
			continue
		}
		name := d.Name
		if d.Unassigned {
			name = "Unassigned"
		}
		folded := collapsed[collapseKey(d)]
		rows = append(rows, row{
			kind: rowDocument,
			doc:  h,
			page: compose.NoHandle,
			text: fmt.Sprintf("%s %s (%d)", glyphTwisty(folded), name, d.PageCount),
		})
		if folded {
			continue
		}
		for _, ph := range m.Pages(h) {
			p, err := m.Page(ph)
			if err != nil {
				continue
			}
			marker := fmt.Sprintf("%d.", p.Position)
			if d.Unassigned {
				marker = glyphBullet()
			}
			rows = append(rows, row{
				kind: rowPage,
				doc:  h,
				page: ph,
				text: fmt.Sprintf("    %s %s p.%d", marker, filepath.Base(p.Source.Document), p.Source.Page),
			})
		}
	}
	return rows
}

func collapseKey(d compose.DocumentInfo) string {
	if d.Unassigned {
		return compose.UnassignedName
	}
	return d.Name
}

// rowOf finds the row showing page (or, for NoHandle, the document row of doc).
func rowOf(rows []row, doc, page compose.Handle) int {
	for i, r := range rows {
		if page != compose.NoHandle && r.page == page {
			return i
		}
		if page == compose.NoHandle && r.kind == rowDocument && r.doc == doc {
			return i
		}
	}
	return -1
}
