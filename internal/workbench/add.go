package workbench

import (
	"context"
	"fmt"
	"strconv"

	"pagemgr-cli/internal/compose"
	"pagemgr-cli/internal/logging"
	"pagemgr-cli/internal/model"
	"pagemgr-cli/internal/store"
)

type AddResult struct {
	// Added lists the document names created or replaced, in fragment order.
	Added []string `json:"added" yaml:"added"`
	// Replaced lists names whose previous entry was overwritten.
	Replaced []string `json:"replaced,omitempty" yaml:"replaced,omitempty"`
	// Parked counts pages of replaced entries that were moved to Unassigned.
	Parked int `json:"parked,omitempty" yaml:"parked,omitempty"`
}

// AddDocuments asks the engine to expand files into a setup fragment, merges the fragment into
// the current setup by document name and reloads the model from the merged record.
//
// On a name collision the merge policy applies: overwrite replaces the existing entry in place,
// rename adds the new entry as "<name> (2)", "<name> (3)", and so on. Pages of an overwritten entry
// that the new entry does not reference are parked in Unassigned. Empty documents keep their place
// in the document order and Unassigned keeps its pages. Nothing changes when the engine or the
// merged record fails.
func (w *Workbench) AddDocuments(ctx context.Context, files []string) (AddResult, error) {
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, cleanPath(f))
	}
	frag, err := w.engine.GenerateDict(ctx, paths, w.model.OutputDir())
	if err != nil {
		return AddResult{}, &EngineFailure{Op: "add documents", Err: err}
	}

	m := w.model
	merged := currentSetup(m)
	parked := unassignedSources(m)

	var res AddResult
	for _, doc := range frag.Documents {
		cur, exists := merged.Document(doc.Name)
		switch {
		case !exists:
		case w.policy == store.MergePolicyRename:
			doc.Name = uniqueName(merged, doc.Name)
		case len(cur.Entries) == 0:
			res.Replaced = append(res.Replaced, doc.Name)
		default:
			displaced := displacedSources(*cur, doc)
			parked = append(parked, displaced...)
			res.Replaced = append(res.Replaced, doc.Name)
			res.Parked += len(displaced)
			logging.Warn().
				Add(logging.Document(doc.Name)).
				Add(logging.Int("parked_pages", len(displaced))).
				Msg("existing output document overwritten by added input")
		}
		merged.Put(doc)
		res.Added = append(res.Added, doc.Name)
	}

	if err := m.LoadSetup(merged); err != nil {
		return AddResult{}, err
	}
	for _, src := range parked {
		if _, err := m.AddPage(m.Unassigned(), src); err != nil {
			panic(fmt.Sprintf("workbench: re-parking %v: %v", src, err))
		}
	}
	for _, p := range paths {
		w.addInput(p)
	}
	return res, nil
}

// currentSetup is SerializeSetup plus the empty documents, each at its place in the order.
func currentSetup(m *compose.Model) model.Setup {
	rec := model.Setup{OutputDir: m.OutputDir()}
	for _, d := range m.Snapshot().Documents {
		srcs := make([]model.PageSource, 0, len(d.Pages))
		for _, p := range d.Pages {
			srcs = append(srcs, p.Source)
		}
		rec.Documents = append(rec.Documents, model.NewSetupDocument(d.Name, srcs))
	}
	return rec
}

func unassignedSources(m *compose.Model) []model.PageSource {
	var out []model.PageSource
	for _, h := range m.Pages(m.Unassigned()) {
		if p, err := m.Page(h); err == nil {
			out = append(out, p.Source)
		}
	}
	return out
}

// displacedSources returns the pages of old that next does not reference (as a multiset).
func displacedSources(old, next model.SetupDocument) []model.PageSource {
	keep := map[model.PageSource]int{}
	for _, src := range sources(next) {
		keep[src]++
	}
	var out []model.PageSource
	for _, src := range sources(old) {
		if keep[src] > 0 {
			keep[src]--
			continue
		}
		out = append(out, src)
	}
	return out
}

func sources(doc model.SetupDocument) []model.PageSource {
	out := make([]model.PageSource, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		for k, path := range e.Pages {
			if n, err := strconv.Atoi(k); err == nil {
				out = append(out, model.PageSource{Document: path, Page: n})
			}
		}
	}
	return out
}

func uniqueName(rec model.Setup, base string) string {
	taken := map[string]bool{}
	for _, d := range rec.Documents {
		taken[d.Name] = true
	}
	for i := 2; ; i++ {
		name := fmt.Sprintf("%s (%d)", base, i)
		if !taken[name] {
			return name
		}
	}
}
