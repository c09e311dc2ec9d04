// Package engine is the PDF engine collaborator: it expands input files into setup records and
// assembles output documents from a setup record. PDF bytes are handled by pdfcpu.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"pagemgr-cli/internal/logging"
	"pagemgr-cli/internal/model"
	"pagemgr-cli/internal/store"
)

// MergedDocumentName names the single document produced by GenerateMergedDict.
const MergedDocumentName = "merged"

var ErrNoOutputDir = errors.New("output_dir is not set")

type Engine struct {
	conf *pdfmodel.Configuration

	// Overridable in tests.
	pageCount func(path string) (int, error)
	trim      func(in, out string, pages []string, conf *pdfmodel.Configuration) error
	merge     func(in []string, out string, conf *pdfmodel.Configuration) error
}

func New() *Engine {
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	return &Engine{
		conf:      conf,
		pageCount: api.PageCountFile,
		trim:      api.TrimFile,
		merge: func(in []string, out string, conf *pdfmodel.Configuration) error {
			return api.MergeCreateFile(in, out, false, conf)
		},
	}
}

// DocumentName derives an output document name from an input path: the base name without
// its extension.
func DocumentName(path string) string {
	base := filepath.Base(path)
	if ext := filepath.Ext(base); ext != "" && len(ext) < len(base) {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

func (e *Engine) PageCount(path string) (int, error) {
	n, err := e.pageCount(path)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

func (e *Engine) expand(ctx context.Context, path string) ([]model.PageSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, err := e.PageCount(path)
	if err != nil {
		return nil, err
	}
	pages := make([]model.PageSource, 0, n)
	for i := 1; i <= n; i++ {
		pages = append(pages, model.PageSource{Document: path, Page: i})
	}
	return pages, nil
}

// GenerateDict expands each file into its own document, pages numbered in order.
func (e *Engine) GenerateDict(ctx context.Context, files []string, outputDir string) (model.Setup, error) {
	rec := model.Setup{OutputDir: outputDir}
	for _, f := range files {
		pages, err := e.expand(ctx, f)
		if err != nil {
			return model.Setup{}, err
		}
		rec.Documents = append(rec.Documents, model.NewSetupDocument(DocumentName(f), pages))
	}
	return rec, nil
}

// GenerateMergedDict combines every page of every file, in input order, into one document.
func (e *Engine) GenerateMergedDict(ctx context.Context, files []string, outputDir string) (model.Setup, error) {
	var all []model.PageSource
	for _, f := range files {
		pages, err := e.expand(ctx, f)
		if err != nil {
			return model.Setup{}, err
		}
		all = append(all, pages...)
	}
	rec := model.Setup{OutputDir: outputDir}
	if len(all) > 0 {
		rec.Documents = []model.SetupDocument{model.NewSetupDocument(MergedDocumentName, all)}
	}
	return rec, nil
}

// GenerateSplitDict produces one document per input file.
func (e *Engine) GenerateSplitDict(ctx context.Context, files []string, outputDir string) (model.Setup, error) {
	return e.GenerateDict(ctx, files, outputDir)
}

func (e *Engine) LoadSetup(path string) (model.Setup, error) {
	return store.ReadSetupFile(path)
}

func (e *Engine) SaveSetup(rec model.Setup, path string) error {
	return store.WriteSetupFile(path, rec)
}

// OutputPath is where GenerateDocs writes the document called name.
func OutputPath(outputDir, name string) string {
	return filepath.Join(outputDir, name+".pdf")
}

// GenerateDocs assembles one PDF per document of rec into rec.OutputDir and returns the written
// paths in document order. Each referenced page is extracted into a scratch file first.
func (e *Engine) GenerateDocs(ctx context.Context, rec model.Setup) ([]string, error) {
	if strings.TrimSpace(rec.OutputDir) == "" {
		return nil, ErrNoOutputDir
	}
	if err := os.MkdirAll(rec.OutputDir, 0o755); err != nil {
		return nil, err
	}
	scratch, err := os.MkdirTemp("", "pagemgr-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(scratch)

	out := make([]string, 0, len(rec.Documents))
	for di, doc := range rec.Documents {
		start := time.Now()
		pages, err := entrySources(doc)
		if err != nil {
			return out, err
		}
		parts := make([]string, 0, len(pages))
		for pi, p := range pages {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			part := filepath.Join(scratch, fmt.Sprintf("%03d-%05d.pdf", di, pi))
			if err := e.trim(p.Document, part, []string{strconv.Itoa(p.Page)}, e.conf); err != nil {
				return out, fmt.Errorf("document %q: extract page %d of %s: %w", doc.Name, p.Page, p.Document, err)
			}
			parts = append(parts, part)
		}
		target := OutputPath(rec.OutputDir, doc.Name)
		if err := e.merge(parts, target, e.conf); err != nil {
			return out, fmt.Errorf("document %q: write %s: %w", doc.Name, target, err)
		}
		logging.Info().
			Add(logging.Document(doc.Name)).
			Add(logging.Int("pages", len(parts))).
			Add(logging.Duration(time.Since(start))).
			Msg("document generated")
		out = append(out, target)
	}
	return out, nil
}

// entrySources reads a document's descriptors in entry order.
func entrySources(doc model.SetupDocument) ([]model.PageSource, error) {
	out := make([]model.PageSource, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		if len(e.Pages) != 1 {
			return nil, fmt.Errorf("document %q position %s: expected one page descriptor, got %d", doc.Name, e.Key, len(e.Pages))
		}
		for k, path := range e.Pages {
			n, err := strconv.Atoi(k)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("document %q position %s: invalid source page %q", doc.Name, e.Key, k)
			}
			out = append(out, model.PageSource{Document: path, Page: n})
		}
	}
	return out, nil
}
