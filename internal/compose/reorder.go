package compose

// SetPageNumber moves page to newPosition within its document using list-shift semantics:
// the page is removed, reinserted at newPosition-1, and every page is renumbered 1..N.
// Requesting the current position is a no-op.
func (m *Model) SetPageNumber(page Handle, newPosition int) error {
	p, err := m.page("set page number", page)
	if err != nil {
		return err
	}
	owner := p.parent
	d := &m.nodes[owner]
	if d.unassigned {
		return invalidOp("set page number", "pages in %s have no position", UnassignedName)
	}
	n := len(d.pages)
	if newPosition < 1 || newPosition > n {
		return invalidOp("set page number", "position %d out of range [1, %d]", newPosition, n)
	}
	if newPosition == p.position {
		return nil
	}

	from := p.position - 1
	rest := make([]Handle, 0, n)
	rest = append(rest, d.pages[:from]...)
	rest = append(rest, d.pages[from+1:]...)

	insertAt := newPosition - 1
	next := make([]Handle, 0, n)
	next = append(next, rest[:insertAt]...)
	next = append(next, page)
	next = append(next, rest[insertAt:]...)

	d.pages = next
	m.renumber(owner)
	m.mustBeConsistent(owner)
	return nil
}

// MoveUp decreases the page's position by one. Ignored on the first page.
func (m *Model) MoveUp(page Handle) error {
	return m.step("move up", page, -1)
}

// MoveDown increases the page's position by one. Ignored on the last page.
func (m *Model) MoveDown(page Handle) error {
	return m.step("move down", page, +1)
}

func (m *Model) step(op string, page Handle, delta int) error {
	p, err := m.page(op, page)
	if err != nil {
		return err
	}
	d := &m.nodes[p.parent]
	if d.unassigned {
		return invalidOp(op, "pages in %s cannot be reordered", UnassignedName)
	}
	target := p.position + delta
	if target < 1 || target > len(d.pages) {
		return nil
	}
	return m.SetPageNumber(page, target)
}
