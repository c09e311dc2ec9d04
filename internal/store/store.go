package store

import (
	"context"
	"os"
	"path/filepath"

	"pagemgr-cli/internal/model"
)

const (
	localDirName   = ".pagemgr"
	sqliteFileName = "state.sqlite"
)

// State is the persisted workspace: the input set plus the full output model, including empty
// documents and the Unassigned bucket in insertion order. Setup records carry neither.
type State struct {
	Version    int                `json:"version"`
	OutputDir  string             `json:"outputDir"`
	Inputs     []string           `json:"inputs"`
	Documents  []StateDocument    `json:"documents"`
	Unassigned []model.PageSource `json:"unassigned"`
}

type StateDocument struct {
	Name  string             `json:"name"`
	Pages []model.PageSource `json:"pages"`
}

func NewState() *State {
	return &State{
		Version:    1,
		Inputs:     []string{},
		Documents:  []StateDocument{},
		Unassigned: []model.PageSource{},
	}
}

type Store struct {
	Dir string
}

// DiscoverDir walks up from start looking for a project-local .pagemgr directory.
func DiscoverDir(start string) (string, bool) {
	dir := start
	for {
		candidate := filepath.Join(dir, localDirName)
		if st, err := os.Stat(candidate); err == nil && st.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func (s Store) Ensure() error {
	return os.MkdirAll(s.Dir, 0o755)
}

func (s Store) sqlitePath() string {
	return filepath.Join(filepath.Clean(s.Dir), sqliteFileName)
}

// Exists reports whether the workspace has been initialized.
func (s Store) Exists() bool {
	_, err := os.Stat(s.sqlitePath())
	return err == nil
}

func (s Store) Load() (*State, error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	return s.LoadSQLite(context.Background())
}

func (s Store) Save(st *State) error {
	if err := s.Ensure(); err != nil {
		return err
	}
	return s.SaveSQLite(context.Background(), st)
}

func (s Store) AppendEvent(typ, entityID string, payload any) error {
	return s.appendEventSQLite(context.Background(), typ, entityID, payload)
}

// ReadEvents returns the newest limit events in chronological order (all when limit <= 0).
func ReadEvents(dir string, limit int) ([]model.Event, error) {
	return Store{Dir: dir}.readEventsSQLite(context.Background(), limit)
}
