package cli

import (
	"fmt"
	"strconv"
	"strings"

	"pagemgr-cli/internal/compose"
)

// unassignedRef names the Unassigned bucket in page and move refs.
const unassignedRef = "unassigned"

// resolveDocument accepts a document name or "#N" (1-based display order). The Unassigned bucket
// is only accepted when allowUnassigned is set.
func resolveDocument(m *compose.Model, ref string, allowUnassigned bool) (compose.Handle, error) {
	ref = strings.TrimSpace(ref)
	if allowUnassigned && (strings.EqualFold(ref, unassignedRef) || ref == compose.UnassignedName) {
		return m.Unassigned(), nil
	}
	docs := m.Documents()
	if rest, ok := strings.CutPrefix(ref, "#"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 || n > len(docs) {
			return compose.NoHandle, errNotFound("document", ref)
		}
		return docs[n-1], nil
	}
	found := compose.NoHandle
	var indexes []int
	for i, h := range docs {
		info, err := m.Document(h)
		if err != nil || info.Name != ref {
			continue
		}
		found = h
		indexes = append(indexes, i+1)
	}
	switch len(indexes) {
	case 0:
		return compose.NoHandle, errNotFound("document", ref)
	case 1:
		return found, nil
	default:
		return compose.NoHandle, ambiguousError{name: ref, indexes: indexes}
	}
}

// resolvePage accepts "<document>:<position>" or "unassigned:<index>", both 1-based.
func resolvePage(m *compose.Model, ref string) (compose.Handle, error) {
	ref = strings.TrimSpace(ref)
	i := strings.LastIndex(ref, ":")
	if i <= 0 || i == len(ref)-1 {
		return compose.NoHandle, fmt.Errorf("invalid page ref %q (expected <document>:<position> or unassigned:<index>)", ref)
	}
	doc, err := resolveDocument(m, ref[:i], true)
	if err != nil {
		return compose.NoHandle, err
	}
	n, err := strconv.Atoi(ref[i+1:])
	if err != nil {
		return compose.NoHandle, fmt.Errorf("invalid page ref %q: position is not a number", ref)
	}
	pages := m.Pages(doc)
	if n < 1 || n > len(pages) {
		return compose.NoHandle, errNotFound("page", ref)
	}
	return pages[n-1], nil
}

func resolvePages(m *compose.Model, refs []string) ([]compose.Handle, error) {
	out := make([]compose.Handle, 0, len(refs))
	for _, r := range refs {
		h, err := resolvePage(m, r)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// pageRef renders the ref of a page as the commands accept it.
func pageRef(m *compose.Model, h compose.Handle) string {
	p, err := m.Page(h)
	if err != nil {
		return ""
	}
	if p.Owner == m.Unassigned() {
		for i, ph := range m.Pages(p.Owner) {
			if ph == h {
				return fmt.Sprintf("%s:%d", unassignedRef, i+1)
			}
		}
	}
	d, _ := m.Document(p.Owner)
	return fmt.Sprintf("%s:%d", d.Name, p.Position)
}
