package compose

// MovePage reparents page from fromDoc to the end of toDoc. Moving into Unassigned clears the
// position; fromDoc is renumbered so its remaining pages stay contiguous.
func (m *Model) MovePage(page, fromDoc, toDoc Handle) error {
	p, err := m.page("move page", page)
	if err != nil {
		return err
	}
	if _, err := m.document("move page", fromDoc); err != nil {
		return err
	}
	if _, err := m.document("move page", toDoc); err != nil {
		return err
	}
	if p.parent != fromDoc {
		return invalidOp("move page", "page %d is not in document %d", page, fromDoc)
	}
	if fromDoc == toDoc {
		return invalidOp("move page", "page is already in the target document")
	}
	m.reparent(page, toDoc)
	return nil
}

// reparent detaches page from its owner and appends it to toDoc.
func (m *Model) reparent(page, toDoc Handle) {
	from := m.nodes[page].parent
	m.detach(page)

	to := &m.nodes[toDoc]
	to.pages = append(to.pages, page)
	m.nodes[page].parent = toDoc
	if to.unassigned {
		m.nodes[page].position = 0
	} else {
		m.nodes[page].position = len(to.pages)
	}

	m.mustBeConsistent(from)
	m.mustBeConsistent(toDoc)
}

// detach removes page from its owner's child list and renumbers the owner.
func (m *Model) detach(page Handle) {
	owner := m.nodes[page].parent
	d := &m.nodes[owner]
	for i, h := range d.pages {
		if h == page {
			d.pages = append(d.pages[:i:i], d.pages[i+1:]...)
			break
		}
	}
	m.renumber(owner)
}
