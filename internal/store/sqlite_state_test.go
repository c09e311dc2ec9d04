package store

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"pagemgr-cli/internal/model"
)

func TestSQLiteStateStore_SaveLoad_RoundTrip(t *testing.T) {
	t.Setenv("PAGEMGR_CONFIG_DIR", t.TempDir())
	s := Store{Dir: t.TempDir()}

	st := &State{
		Version:   1,
		OutputDir: "/out",
		Inputs:    []string{"/in/b.pdf", "/in/a.pdf"},
		Documents: []StateDocument{
			{Name: "Invoice", Pages: []model.PageSource{{Document: "/in/a.pdf", Page: 3}, {Document: "/in/b.pdf", Page: 1}}},
			{Name: "Empty", Pages: []model.PageSource{}},
			{Name: "Invoice", Pages: []model.PageSource{{Document: "/in/a.pdf", Page: 1}}},
		},
		Unassigned: []model.PageSource{{Document: "/in/b.pdf", Page: 2}, {Document: "/in/a.pdf", Page: 2}},
	}
	if err := s.Save(st); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(st, got); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteStateStore_SaveReplacesPreviousState(t *testing.T) {
	s := Store{Dir: t.TempDir()}
	first := NewState()
	first.Inputs = []string{"/in/a.pdf"}
	first.Documents = []StateDocument{{Name: "A", Pages: []model.PageSource{{Document: "/in/a.pdf", Page: 1}}}}
	if err := s.Save(first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := s.Save(NewState()); err != nil {
		t.Fatalf("save second: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(NewState(), got); diff != "" {
		t.Fatalf("expected empty state (-want +got):\n%s", diff)
	}
}

func TestSQLiteStateStore_LoadEmptyWorkspace(t *testing.T) {
	s := Store{Dir: t.TempDir()}
	if s.Exists() {
		t.Fatalf("fresh dir should not exist as a workspace")
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Version != 1 || len(got.Inputs) != 0 || len(got.Documents) != 0 {
		t.Fatalf("unexpected state: %+v", got)
	}
	if !s.Exists() {
		t.Fatalf("Load should create the state database")
	}
}
