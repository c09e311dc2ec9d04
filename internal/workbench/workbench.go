// Package workbench drives a compose.Model together with the input set and the PDF engine:
// adding and withdrawing inputs, replacing the setup with merged or split layouts, and
// generating output files.
package workbench

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pagemgr-cli/internal/compose"
	"pagemgr-cli/internal/logging"
	"pagemgr-cli/internal/model"
	"pagemgr-cli/internal/store"
)

// Engine is the subset of the PDF engine the workbench needs.
type Engine interface {
	GenerateDict(ctx context.Context, files []string, outputDir string) (model.Setup, error)
	GenerateMergedDict(ctx context.Context, files []string, outputDir string) (model.Setup, error)
	GenerateSplitDict(ctx context.Context, files []string, outputDir string) (model.Setup, error)
	GenerateDocs(ctx context.Context, rec model.Setup) ([]string, error)
}

type Option func(*Workbench)

// WithMergePolicy selects store.MergePolicyOverwrite or store.MergePolicyRename.
func WithMergePolicy(policy string) Option {
	return func(w *Workbench) { w.policy = policy }
}

// WithConfirmer sets the confirmation step for removals and for overwriting existing outputs.
func WithConfirmer(c compose.Confirmer) Option {
	return func(w *Workbench) { w.confirmer = c }
}

type Workbench struct {
	engine    Engine
	model     *compose.Model
	inputs    []string
	policy    string
	confirmer compose.Confirmer
}

func New(eng Engine, opts ...Option) *Workbench {
	w := &Workbench{engine: eng, policy: store.MergePolicyOverwrite}
	for _, opt := range opts {
		opt(w)
	}
	w.model = compose.New(compose.WithConfirmer(w.confirmer))
	return w
}

// Open rebuilds a workbench from persisted workspace state.
func Open(eng Engine, st *store.State, opts ...Option) (*Workbench, error) {
	w := New(eng, opts...)
	if st == nil {
		return w, nil
	}
	m := w.model
	m.SetOutputDir(st.OutputDir)
	for _, d := range st.Documents {
		h, err := m.AddDocument(d.Name)
		if err != nil {
			return nil, fmt.Errorf("workspace state: %w", err)
		}
		for _, p := range d.Pages {
			if _, err := m.AddPage(h, p); err != nil {
				return nil, fmt.Errorf("workspace state: document %q: %w", d.Name, err)
			}
		}
	}
	for _, p := range st.Unassigned {
		if _, err := m.AddPage(m.Unassigned(), p); err != nil {
			return nil, fmt.Errorf("workspace state: unassigned: %w", err)
		}
	}
	for _, in := range st.Inputs {
		w.addInput(in)
	}
	return w, nil
}

// State captures everything needed to reopen the workbench, including empty documents and
// the Unassigned bucket.
func (w *Workbench) State() *store.State {
	st := store.NewState()
	snap := w.model.Snapshot()
	st.OutputDir = snap.OutputDir
	st.Inputs = append(st.Inputs, w.inputs...)
	for _, d := range snap.Documents {
		sd := store.StateDocument{Name: d.Name, Pages: make([]model.PageSource, 0, len(d.Pages))}
		for _, p := range d.Pages {
			sd.Pages = append(sd.Pages, p.Source)
		}
		st.Documents = append(st.Documents, sd)
	}
	for _, p := range snap.Unassigned.Pages {
		st.Unassigned = append(st.Unassigned, p.Source)
	}
	return st
}

func (w *Workbench) Model() *compose.Model { return w.model }

func (w *Workbench) Inputs() []string { return append([]string(nil), w.inputs...) }

func (w *Workbench) MergePolicy() string { return w.policy }

func (w *Workbench) addInput(path string) bool {
	for _, in := range w.inputs {
		if in == path {
			return false
		}
	}
	w.inputs = append(w.inputs, path)
	return true
}

// cleanPath returns the absolute, cleaned form used for input identity and conflict checks.
func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

func (w *Workbench) RemoveInputs(files []string) (int, error) {
	known := map[string]bool{}
	for _, in := range w.inputs {
		known[in] = true
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		p := cleanPath(f)
		if !known[p] {
			return 0, fmt.Errorf("%w: %s", ErrUnknownInput, f)
		}
		paths = append(paths, p)
	}

	destroyed := 0
	for _, p := range paths {
		destroyed += w.model.RemoveSource(p)
		for i, in := range w.inputs {
			if in == p {
				w.inputs = append(w.inputs[:i:i], w.inputs[i+1:]...)
				break
			}
		}
	}
	logging.Info().Add(logging.Int("inputs", len(paths))).Add(logging.Int("pages", destroyed)).Msg("inputs withdrawn")
	return destroyed, nil
}

// Merge replaces the setup with a single document holding every page of every input.
func (w *Workbench) Merge(ctx context.Context) error {
	rec, err := w.engine.GenerateMergedDict(ctx, w.inputs, w.model.OutputDir())
	if err != nil {
		return &EngineFailure{Op: "merge", Err: err}
	}
	return w.model.LoadSetup(rec)
}

// Split replaces the setup with one document per input.
func (w *Workbench) Split(ctx context.Context) error {
	rec, err := w.engine.GenerateSplitDict(ctx, w.inputs, w.model.OutputDir())
	if err != nil {
		return &EngineFailure{Op: "split", Err: err}
	}
	return w.model.LoadSetup(rec)
}

// Generate hands a snapshot of the current setup to the engine and returns the written files.
// Checks run before the engine is called: an output directory is set, at least one document has
// pages, and no output path equals an input or another output. Existing output files need
// confirmation unless bypassConfirm is set. Engine errors come back as *EngineFailure.
func (w *Workbench) Generate(ctx context.Context, bypassConfirm bool) ([]string, error) {
	rec := w.model.SerializeSetup()
	if strings.TrimSpace(rec.OutputDir) == "" {
		return nil, ErrNoOutputDir
	}
	if len(rec.Documents) == 0 {
		return nil, ErrEmptySetup
	}
	outputs, err := w.checkOutputs(rec)
	if err != nil {
		return nil, err
	}

	var existing []string
	for _, out := range outputs {
		if _, err := os.Stat(out); err == nil {
			existing = append(existing, out)
		}
	}
	if len(existing) > 0 && !bypassConfirm && w.confirmer != nil {
		prompt := fmt.Sprintf("Overwrite %d existing file(s)?\n%s", len(existing), strings.Join(existing, "\n"))
		if !w.confirmer.Confirm(prompt) {
			return nil, compose.ErrCancelled
		}
	}

	start := time.Now()
	paths, err := w.engine.GenerateDocs(ctx, rec)
	if err != nil {
		logging.Error().Add(logging.Err(err)).Msg("generation failed")
		return nil, &EngineFailure{Op: "generate", Err: err}
	}
	logging.Info().Add(logging.Int("documents", len(paths))).Add(logging.Duration(time.Since(start))).Msg("generation finished")
	return paths, nil
}

// OutputPaths lists the files Generate would write, in document order.
func (w *Workbench) OutputPaths() []string {
	rec := w.model.SerializeSetup()
	out := make([]string, 0, len(rec.Documents))
	for _, d := range rec.Documents {
		out = append(out, outputPath(rec.OutputDir, d.Name))
	}
	return out
}

func outputPath(dir, name string) string {
	return filepath.Join(dir, name+".pdf")
}

func (w *Workbench) checkOutputs(rec model.Setup) ([]string, error) {
	inputs := map[string]bool{}
	for _, in := range w.inputs {
		inputs[cleanPath(in)] = true
	}
	for _, d := range rec.Documents {
		for _, e := range d.Entries {
			for _, path := range e.Pages {
				inputs[cleanPath(path)] = true
			}
		}
	}

	owner := map[string]string{}
	outputs := make([]string, 0, len(rec.Documents))
	for _, d := range rec.Documents {
		out := cleanPath(outputPath(rec.OutputDir, d.Name))
		if inputs[out] {
			return nil, ReferentialConflictError{Document: d.Name, Output: out, Conflict: out, Reason: "which is the input"}
		}
		if other, ok := owner[out]; ok {
			return nil, ReferentialConflictError{Document: d.Name, Output: out, Conflict: other, Reason: "which is also written by document"}
		}
		owner[out] = d.Name
		outputs = append(outputs, out)
	}
	return outputs, nil
}
