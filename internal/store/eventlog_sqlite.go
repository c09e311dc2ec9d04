package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pagemgr-cli/internal/model"
)

// WorkspaceID returns the workspace's stable id, creating it on first use.
func (s Store) WorkspaceID(ctx context.Context) (string, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return "", err
	}
	defer db.Close()
	return ensureMetaUUID(ctx, db, "workspace_id")
}

func ensureMetaUUID(ctx context.Context, db *sql.DB, key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("empty meta key")
	}
	var v string
	err := db.QueryRowContext(ctx, `SELECT v FROM state_meta WHERE k = ?`, key).Scan(&v)
	if err == nil && strings.TrimSpace(v) != "" {
		return v, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	id := uuid.NewString()
	if _, err := db.ExecContext(ctx, `INSERT OR REPLACE INTO state_meta(k, v) VALUES(?, ?)`, key, id); err != nil {
		return "", err
	}
	return id, nil
}

func (s Store) appendEventSQLite(ctx context.Context, typ, entityID string, payload any) error {
	typ = strings.TrimSpace(typ)
	if typ == "" {
		return errors.New("event: missing type")
	}
	entityID = strings.TrimSpace(entityID)

	pb, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("event %s: %w", typ, err)
	}

	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	wsID, err := ensureMetaUUID(ctx, db, "workspace_id")
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `INSERT INTO events(event_id, workspace_id, type, entity_id, issued_at_unixms, payload_json) VALUES(?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), wsID, typ, entityID, time.Now().UTC().UnixMilli(), string(pb))
	return err
}

func (s Store) readEventsSQLite(ctx context.Context, limit int) ([]model.Event, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	// Newest window first, then flipped back into chronological order.
	q := `SELECT event_id, issued_at_unixms, type, entity_id, payload_json FROM events ORDER BY seq DESC`
	var rows *sql.Rows
	if limit > 0 {
		rows, err = db.QueryContext(ctx, q+` LIMIT ?`, limit)
	} else {
		rows, err = db.QueryContext(ctx, q)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Event{}
	for rows.Next() {
		var id, typ, entityID, payloadJSON string
		var tsMs int64
		if err := rows.Scan(&id, &tsMs, &typ, &entityID, &payloadJSON); err != nil {
			return nil, err
		}
		var payload any
		_ = json.Unmarshal([]byte(payloadJSON), &payload)
		out = append(out, model.Event{
			ID:       id,
			TS:       time.UnixMilli(tsMs).UTC(),
			Type:     typ,
			EntityID: entityID,
			Payload:  payload,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
