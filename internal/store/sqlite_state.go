package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"pagemgr-cli/internal/model"

	_ "modernc.org/sqlite"
)

// unassignedSeq is the documents.seq of the Unassigned bucket; regular documents use 1..N.
const unassignedSeq = 0

func (s Store) openSQLite(ctx context.Context) (*sql.DB, error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", s.sqlitePath())
	if err != nil {
		return nil, err
	}
	// WAL lets the TUI and one-shot CLI commands share a workspace.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrateSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrateSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS state_meta (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS inputs (
			seq INTEGER PRIMARY KEY,
			path TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS documents (
			seq INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS pages (
			doc_seq INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			source_document TEXT NOT NULL,
			source_page INTEGER NOT NULL,
			PRIMARY KEY (doc_seq, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT NOT NULL UNIQUE,
			workspace_id TEXT NOT NULL,
			type TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			issued_at_unixms INTEGER NOT NULL,
			payload_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_entity ON events(entity_id, seq);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// SaveSQLite replaces the stored workspace state in one transaction.
func (s Store) SaveSQLite(ctx context.Context, st *State) error {
	if st == nil {
		return errors.New("nil state")
	}
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	version := st.Version
	if version == 0 {
		version = 1
	}
	meta := map[string]string{
		"version":    strconv.Itoa(version),
		"output_dir": st.OutputDir,
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO state_meta(k, v) VALUES(?, ?)`, k, v); err != nil {
			return err
		}
	}

	for _, t := range []string{"inputs", "documents", "pages"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+t); err != nil {
			return err
		}
	}

	nowMs := time.Now().UTC().UnixMilli()
	for i, p := range st.Inputs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO inputs(seq, path) VALUES(?, ?)`, i+1, p); err != nil {
			return err
		}
	}
	insertPages := func(docSeq int, pages []model.PageSource) error {
		for i, p := range pages {
			if _, err := tx.ExecContext(ctx, `INSERT INTO pages(doc_seq, seq, source_document, source_page) VALUES(?, ?, ?, ?)`,
				docSeq, i+1, p.Document, p.Page); err != nil {
				return err
			}
		}
		return nil
	}
	if err := insertPages(unassignedSeq, st.Unassigned); err != nil {
		return err
	}
	for i, d := range st.Documents {
		seq := i + 1
		if _, err := tx.ExecContext(ctx, `INSERT INTO documents(seq, name, updated_at_unixms) VALUES(?, ?, ?)`, seq, d.Name, nowMs); err != nil {
			return err
		}
		if err := insertPages(seq, d.Pages); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s Store) LoadSQLite(ctx context.Context) (*State, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	out := NewState()
	readMeta := func(k string) (string, error) {
		var v string
		err := db.QueryRowContext(ctx, `SELECT v FROM state_meta WHERE k = ?`, k).Scan(&v)
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return v, err
	}
	v, err := readMeta("version")
	if err != nil {
		return nil, err
	}
	if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		out.Version = n
	}
	if out.OutputDir, err = readMeta("output_dir"); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT path FROM inputs ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			_ = rows.Close()
			return nil, err
		}
		out.Inputs = append(out.Inputs, p)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = db.QueryContext(ctx, `SELECT seq, name FROM documents ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	docIndex := map[int]int{}
	for rows.Next() {
		var seq int
		var name string
		if err := rows.Scan(&seq, &name); err != nil {
			_ = rows.Close()
			return nil, err
		}
		docIndex[seq] = len(out.Documents)
		out.Documents = append(out.Documents, StateDocument{Name: name, Pages: []model.PageSource{}})
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = db.QueryContext(ctx, `SELECT doc_seq, source_document, source_page FROM pages ORDER BY doc_seq ASC, seq ASC`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var docSeq int
		var p model.PageSource
		if err := rows.Scan(&docSeq, &p.Document, &p.Page); err != nil {
			_ = rows.Close()
			return nil, err
		}
		if docSeq == unassignedSeq {
			out.Unassigned = append(out.Unassigned, p)
			continue
		}
		i, ok := docIndex[docSeq]
		if !ok {
			continue
		}
		out.Documents[i].Pages = append(out.Documents[i].Pages, p)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}
	return out, nil
}

func closeRows(rows *sql.Rows) error {
	err := rows.Err()
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	return err
}
