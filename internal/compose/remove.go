package compose

import (
	"fmt"
	"path/filepath"

	"pagemgr-cli/internal/logging"
)

// RemoveResult reports what Remove did, one slice per outcome.
type RemoveResult struct {
	RemovedDocuments []string
	Unassigned       int
	Destroyed        int
	Skipped          []Handle
}

// RemoveDocument parks every page of doc in Unassigned and deletes doc.
func (m *Model) RemoveDocument(doc Handle, bypassConfirm bool) error {
	if doc == m.unassigned {
		return invalidOp("remove document", "the %s bucket cannot be removed", UnassignedName)
	}
	d, err := m.document("remove document", doc)
	if err != nil {
		return err
	}
	if !bypassConfirm && !m.confirm(fmt.Sprintf("Remove output document %q? Its pages move to %s.", d.name, UnassignedName)) {
		return ErrCancelled
	}
	m.dissolve(doc)
	return nil
}

// Remove applies the removal policy to each target. The Unassigned bucket is skipped with a
// warning. A document dissolves into Unassigned. A page moves to Unassigned, or is destroyed
// when sourceDeleted is set. Targets are validated before anything changes.
func (m *Model) Remove(targets []Handle, sourceDeleted, bypassConfirm bool) (RemoveResult, error) {
	var res RemoveResult
	valid := make([]Handle, 0, len(targets))
	seen := map[Handle]bool{}
	for _, h := range targets {
		if h == m.unassigned {
			logging.Warn().Add(logging.Str("op", "remove")).Msg("the Unassigned bucket cannot be removed; skipped")
			res.Skipped = append(res.Skipped, h)
			continue
		}
		n := m.lookup(h)
		if n == nil {
			return RemoveResult{}, invalidOp("remove", "unknown handle %d", h)
		}
		if seen[h] {
			continue
		}
		seen[h] = true
		valid = append(valid, h)
	}
	if len(valid) == 0 {
		return res, nil
	}
	if !bypassConfirm && !m.confirm(removePrompt(len(valid), sourceDeleted)) {
		return RemoveResult{}, ErrCancelled
	}

	// Documents first so that pages listed alongside their document are handled on their final owner.
	for _, h := range valid {
		n := &m.nodes[h]
		switch n.kind {
		case KindDocument:
			res.Unassigned += len(n.pages)
			res.RemovedDocuments = append(res.RemovedDocuments, n.name)
			m.dissolve(h)
		case KindPage:
		default:
			panic(fmt.Sprintf("compose: node %d has unknown kind %v", h, n.kind))
		}
	}
	for _, h := range valid {
		n := &m.nodes[h]
		switch n.kind {
		case KindDocument:
		case KindPage:
			if sourceDeleted {
				m.destroy(h)
				res.Destroyed++
				continue
			}
			if n.parent == m.unassigned {
				continue
			}
			m.reparent(h, m.unassigned)
			res.Unassigned++
		default:
			panic(fmt.Sprintf("compose: node %d has unknown kind %v", h, n.kind))
		}
	}
	return res, nil
}

// RemoveSource destroys every page referencing the given source document, wherever it is.
// It returns the number of pages destroyed.
func (m *Model) RemoveSource(path string) int {
	want := filepath.Clean(path)
	var doomed []Handle
	for _, doc := range append([]Handle{m.unassigned}, m.docs...) {
		for _, ph := range m.nodes[doc].pages {
			if filepath.Clean(m.nodes[ph].source.Document) == want {
				doomed = append(doomed, ph)
			}
		}
	}
	for _, ph := range doomed {
		m.destroy(ph)
	}
	if len(doomed) > 0 {
		logging.Debug().Add(logging.Str("source", path)).Add(logging.Int("pages", len(doomed))).Msg("source pages destroyed")
	}
	return len(doomed)
}

func (m *Model) dissolve(doc Handle) {
	for _, ph := range append([]Handle(nil), m.nodes[doc].pages...) {
		m.reparent(ph, m.unassigned)
	}
	for i, h := range m.docs {
		if h == doc {
			m.docs = append(m.docs[:i:i], m.docs[i+1:]...)
			break
		}
	}
	m.nodes[doc].alive = false
}

func (m *Model) destroy(page Handle) {
	owner := m.nodes[page].parent
	m.detach(page)
	m.nodes[page].alive = false
	m.nodes[page].parent = NoHandle
	m.mustBeConsistent(owner)
}

func (m *Model) confirm(prompt string) bool {
	if m.confirmer == nil {
		return true
	}
	return m.confirmer.Confirm(prompt)
}

func removePrompt(n int, sourceDeleted bool) string {
	if sourceDeleted {
		return fmt.Sprintf("Permanently remove %d item(s)?", n)
	}
	return fmt.Sprintf("Remove %d item(s)? Pages move to %s.", n, UnassignedName)
}
