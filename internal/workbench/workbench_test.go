package workbench

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"pagemgr-cli/internal/compose"
	"pagemgr-cli/internal/engine"
	"pagemgr-cli/internal/model"
	"pagemgr-cli/internal/store"
)

// fakeEngine expands files from a fixed page-count table and records generation calls.
type fakeEngine struct {
	counts    map[string]int
	generated []model.Setup
	genErr    error
}

func (f *fakeEngine) expand(files []string) ([]model.SetupDocument, error) {
	var docs []model.SetupDocument
	for _, path := range files {
		n, ok := f.counts[path]
		if !ok {
			return nil, errors.New(path + ": no such file")
		}
		var pages []model.PageSource
		for i := 1; i <= n; i++ {
			pages = append(pages, model.PageSource{Document: path, Page: i})
		}
		docs = append(docs, model.NewSetupDocument(engine.DocumentName(path), pages))
	}
	return docs, nil
}

func (f *fakeEngine) GenerateDict(_ context.Context, files []string, outputDir string) (model.Setup, error) {
	docs, err := f.expand(files)
	return model.Setup{OutputDir: outputDir, Documents: docs}, err
}

func (f *fakeEngine) GenerateSplitDict(ctx context.Context, files []string, outputDir string) (model.Setup, error) {
	return f.GenerateDict(ctx, files, outputDir)
}

func (f *fakeEngine) GenerateMergedDict(_ context.Context, files []string, outputDir string) (model.Setup, error) {
	docs, err := f.expand(files)
	if err != nil {
		return model.Setup{}, err
	}
	var all []model.PageSource
	for _, d := range docs {
		for _, e := range d.Entries {
			for k, v := range e.Pages {
				n := 0
				for _, r := range k {
					n = n*10 + int(r-'0')
				}
				all = append(all, model.PageSource{Document: v, Page: n})
			}
		}
	}
	return model.Setup{OutputDir: outputDir, Documents: []model.SetupDocument{model.NewSetupDocument(engine.MergedDocumentName, all)}}, nil
}

func (f *fakeEngine) GenerateDocs(_ context.Context, rec model.Setup) ([]string, error) {
	f.generated = append(f.generated, rec)
	if f.genErr != nil {
		return nil, f.genErr
	}
	var out []string
	for _, d := range rec.Documents {
		out = append(out, filepath.Join(rec.OutputDir, d.Name+".pdf"))
	}
	return out, nil
}

func names(w *Workbench) []string {
	var out []string
	for _, d := range w.Model().Snapshot().Documents {
		out = append(out, d.Name)
	}
	return out
}

func TestAddDocuments_OneDocumentPerInput(t *testing.T) {
	eng := &fakeEngine{counts: map[string]int{"/in/a.pdf": 2, "/in/b.pdf": 1}}
	w := New(eng)
	res, err := w.AddDocuments(context.Background(), []string{"/in/a.pdf", "/in/b.pdf"})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, res.Added)
	require.Equal(t, []string{"a", "b"}, names(w))
	require.Equal(t, []string{"/in/a.pdf", "/in/b.pdf"}, w.Inputs())
}

func TestAddDocuments_OverwriteParksDisplacedPages(t *testing.T) {
	eng := &fakeEngine{counts: map[string]int{"/in/a.pdf": 3}}
	w := New(eng)
	_, err := w.AddDocuments(context.Background(), []string{"/in/a.pdf"})
	require.NoError(t, err)

	// Move a foreign page into "a" so the overwrite displaces it.
	m := w.Model()
	other, err := m.AddDocument("other")
	require.NoError(t, err)
	foreign, err := m.AddPage(other, model.PageSource{Document: "/in/z.pdf", Page: 9})
	require.NoError(t, err)
	a := m.Documents()[0]
	require.NoError(t, m.MovePage(foreign, other, a))

	eng.counts["/in/a.pdf"] = 2
	res, err := w.AddDocuments(context.Background(), []string{"/in/a.pdf"})
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, res.Replaced)
	require.Equal(t, 2, res.Parked)

	snap := m.Snapshot()
	require.Equal(t, []string{"a", "other"}, names(w))
	require.Len(t, snap.Documents[0].Pages, 2)
	require.Empty(t, snap.Documents[1].Pages)
	require.Equal(t, []model.PageView{
		{Source: model.PageSource{Document: "/in/a.pdf", Page: 3}},
		{Source: model.PageSource{Document: "/in/z.pdf", Page: 9}},
	}, snap.Unassigned.Pages)
}

func TestAddDocuments_RenamePolicyKeepsBoth(t *testing.T) {
	eng := &fakeEngine{counts: map[string]int{"/in/a.pdf": 1, "/other/a.pdf": 2}}
	w := New(eng, WithMergePolicy(store.MergePolicyRename))
	_, err := w.AddDocuments(context.Background(), []string{"/in/a.pdf"})
	require.NoError(t, err)
	res, err := w.AddDocuments(context.Background(), []string{"/other/a.pdf"})
	require.NoError(t, err)
	require.Equal(t, []string{"a (2)"}, res.Added)
	require.Equal(t, []string{"a", "a (2)"}, names(w))
	require.Empty(t, res.Replaced)
}

func TestAddDocuments_PreservesUnassignedAndEmptyDocuments(t *testing.T) {
	eng := &fakeEngine{counts: map[string]int{"/in/a.pdf": 2, "/in/b.pdf": 1}}
	w := New(eng)
	_, err := w.AddDocuments(context.Background(), []string{"/in/a.pdf"})
	require.NoError(t, err)
	m := w.Model()
	a := m.Documents()[0]
	require.NoError(t, m.MovePage(m.Pages(a)[0], a, m.Unassigned()))
	_, err = m.AddDocument("draft")
	require.NoError(t, err)

	_, err = w.AddDocuments(context.Background(), []string{"/in/b.pdf"})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "draft", "b"}, names(w))
	snap := m.Snapshot()
	require.Equal(t, []model.PageView{{Source: model.PageSource{Document: "/in/a.pdf", Page: 1}}}, snap.Unassigned.Pages)
}

func TestAddDocuments_EmptyDocumentsKeepTheirPlace(t *testing.T) {
	eng := &fakeEngine{counts: map[string]int{"/in/b.pdf": 1, "/in/c.pdf": 2}}
	w := New(eng)
	m := w.Model()
	_, err := m.AddDocument("A")
	require.NoError(t, err)
	_, err = w.AddDocuments(context.Background(), []string{"/in/b.pdf"})
	require.NoError(t, err)
	require.Equal(t, []string{"A", "b"}, names(w))

	_, err = w.AddDocuments(context.Background(), []string{"/in/c.pdf"})
	require.NoError(t, err)
	require.Equal(t, []string{"A", "b", "c"}, names(w))
	require.Empty(t, m.Snapshot().Documents[0].Pages)
}

func TestAddDocuments_OverwriteFillsEmptyDocumentInPlace(t *testing.T) {
	eng := &fakeEngine{counts: map[string]int{"/in/b.pdf": 1, "/in/c.pdf": 2}}
	w := New(eng)
	m := w.Model()
	_, err := m.AddDocument("c")
	require.NoError(t, err)
	_, err = w.AddDocuments(context.Background(), []string{"/in/b.pdf"})
	require.NoError(t, err)

	res, err := w.AddDocuments(context.Background(), []string{"/in/c.pdf"})
	require.NoError(t, err)
	require.Equal(t, []string{"c"}, res.Replaced)
	require.Zero(t, res.Parked)
	require.Equal(t, []string{"c", "b"}, names(w))
	require.Len(t, m.Snapshot().Documents[0].Pages, 2)
}

func TestAddDocuments_EngineErrorLeavesStateUntouched(t *testing.T) {
	eng := &fakeEngine{counts: map[string]int{"/in/a.pdf": 1}}
	w := New(eng)
	_, err := w.AddDocuments(context.Background(), []string{"/in/a.pdf"})
	require.NoError(t, err)
	before := w.State()

	_, err = w.AddDocuments(context.Background(), []string{"/in/missing.pdf"})
	require.ErrorIs(t, err, ErrEngineFailure)
	require.Equal(t, before, w.State())
}

func TestRemoveInputs_DestroysPagesEverywhere(t *testing.T) {
	eng := &fakeEngine{counts: map[string]int{"/in/a.pdf": 2, "/in/b.pdf": 1}}
	w := New(eng)
	_, err := w.AddDocuments(context.Background(), []string{"/in/a.pdf", "/in/b.pdf"})
	require.NoError(t, err)
	m := w.Model()
	a, b := m.Documents()[0], m.Documents()[1]
	require.NoError(t, m.MovePage(m.Pages(a)[1], a, b))
	require.NoError(t, m.MovePage(m.Pages(a)[0], a, m.Unassigned()))

	n, err := w.RemoveInputs([]string{"/in/a.pdf"})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []string{"/in/b.pdf"}, w.Inputs())
	snap := m.Snapshot()
	require.Empty(t, snap.Unassigned.Pages)
	require.Equal(t, []model.PageView{{Source: model.PageSource{Document: "/in/b.pdf", Page: 1}, Position: 1}}, snap.Documents[1].Pages)

	_, err = w.RemoveInputs([]string{"/in/zzz.pdf"})
	require.ErrorIs(t, err, ErrUnknownInput)
}

func TestMergeAndSplitReplaceTheSetup(t *testing.T) {
	eng := &fakeEngine{counts: map[string]int{"/in/a.pdf": 1, "/in/b.pdf": 2}}
	w := New(eng)
	_, err := w.AddDocuments(context.Background(), []string{"/in/a.pdf", "/in/b.pdf"})
	require.NoError(t, err)

	require.NoError(t, w.Merge(context.Background()))
	require.Equal(t, []string{engine.MergedDocumentName}, names(w))
	require.Len(t, w.Model().Snapshot().Documents[0].Pages, 3)

	require.NoError(t, w.Split(context.Background()))
	require.Equal(t, []string{"a", "b"}, names(w))
}

func newGenerateWorkbench(t *testing.T, opts ...Option) (*Workbench, *fakeEngine, string) {
	t.Helper()
	out := t.TempDir()
	eng := &fakeEngine{counts: map[string]int{"/in/a.pdf": 2}}
	w := New(eng, opts...)
	w.Model().SetOutputDir(out)
	_, err := w.AddDocuments(context.Background(), []string{"/in/a.pdf"})
	require.NoError(t, err)
	return w, eng, out
}

func TestGenerate_HandsSnapshotToEngine(t *testing.T) {
	w, eng, out := newGenerateWorkbench(t)
	paths, err := w.Generate(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(out, "a.pdf")}, paths)
	require.Len(t, eng.generated, 1)

	// Later edits do not reach the record already handed over.
	m := w.Model()
	a := m.Documents()[0]
	require.NoError(t, m.MovePage(m.Pages(a)[0], a, m.Unassigned()))
	require.Equal(t, 2, eng.generated[0].PageCount())
}

func TestGenerate_Preflight(t *testing.T) {
	t.Run("no output dir", func(t *testing.T) {
		w := New(&fakeEngine{})
		_, err := w.Generate(context.Background(), true)
		require.ErrorIs(t, err, ErrNoOutputDir)
	})
	t.Run("empty setup", func(t *testing.T) {
		w := New(&fakeEngine{})
		w.Model().SetOutputDir(t.TempDir())
		_, err := w.Model().AddDocument("empty")
		require.NoError(t, err)
		_, err = w.Generate(context.Background(), true)
		require.ErrorIs(t, err, ErrEmptySetup)
	})
	t.Run("output equals input", func(t *testing.T) {
		eng := &fakeEngine{counts: map[string]int{"/in/a.pdf": 1}}
		w := New(eng)
		w.Model().SetOutputDir("/in")
		_, err := w.AddDocuments(context.Background(), []string{"/in/a.pdf"})
		require.NoError(t, err)
		_, err = w.Generate(context.Background(), true)
		require.ErrorIs(t, err, ErrReferentialConflict)
		var rc ReferentialConflictError
		require.True(t, errors.As(err, &rc))
		require.Equal(t, "a", rc.Document)
		require.Empty(t, eng.generated)
	})
	t.Run("two documents same output", func(t *testing.T) {
		w, eng, _ := newGenerateWorkbench(t)
		m := w.Model()
		d, err := m.AddDocument("a")
		require.NoError(t, err)
		_, err = m.AddPage(d, model.PageSource{Document: "/in/a.pdf", Page: 1})
		require.NoError(t, err)
		_, err = w.Generate(context.Background(), true)
		require.ErrorIs(t, err, ErrReferentialConflict)
		require.Empty(t, eng.generated)
	})
}

func TestGenerate_ConfirmsOverwrite(t *testing.T) {
	answer := false
	prompts := 0
	confirm := compose.ConfirmFunc(func(string) bool { prompts++; return answer })
	w, eng, out := newGenerateWorkbench(t, WithConfirmer(confirm))
	require.NoError(t, os.WriteFile(filepath.Join(out, "a.pdf"), []byte("old"), 0o644))

	_, err := w.Generate(context.Background(), false)
	require.ErrorIs(t, err, compose.ErrCancelled)
	require.Empty(t, eng.generated)
	require.Equal(t, 1, prompts)

	_, err = w.Generate(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, 1, prompts)

	answer = true
	_, err = w.Generate(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, eng.generated, 2)
}

func TestGenerate_WrapsEngineFailureVerbatim(t *testing.T) {
	w, eng, _ := newGenerateWorkbench(t)
	boom := errors.New("pdfcpu: corrupt xref table")
	eng.genErr = boom
	_, err := w.Generate(context.Background(), true)
	require.ErrorIs(t, err, ErrEngineFailure)
	require.ErrorIs(t, err, boom)
	require.Equal(t, boom.Error(), err.Error())
	require.Len(t, eng.generated, 1)
}

func TestStateRoundTrip(t *testing.T) {
	eng := &fakeEngine{counts: map[string]int{"/in/a.pdf": 3}}
	w := New(eng)
	w.Model().SetOutputDir("/out")
	_, err := w.AddDocuments(context.Background(), []string{"/in/a.pdf"})
	require.NoError(t, err)
	m := w.Model()
	a := m.Documents()[0]
	require.NoError(t, m.MovePage(m.Pages(a)[2], a, m.Unassigned()))
	_, err = m.AddDocument("draft")
	require.NoError(t, err)

	st := w.State()
	w2, err := Open(eng, st)
	require.NoError(t, err)
	require.Equal(t, w.Model().Snapshot(), w2.Model().Snapshot())
	require.Equal(t, w.Inputs(), w2.Inputs())
}
