package devserver

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	kindEvents    = "events"
	kindTasks     = "tasks"
	kindGuests    = "guests"
	kindBudget    = "budget"
	kindAccounts  = "accounts"
	kindTransfers = "transfers"
	kindSessions  = "sessions"
)

var errNotFound = errors.New("not found")

// Doc is one stored JSON record.
type Doc = map[string]any

// Store keeps every record as a JSON document keyed by (owner, kind, id).
type Store struct {
	db  *sql.DB
	now func() time.Time
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open opens (or creates) the sqlite database at path. An empty path keeps
// everything in memory for the life of the process.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// A memory database exists per connection; keep exactly one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	if path != "" {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL;", "PRAGMA synchronous=NORMAL;")
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS records (
			owner TEXT NOT NULL,
			kind TEXT NOT NULL,
			id TEXT NOT NULL,
			parent TEXT NOT NULL,
			seq INTEGER NOT NULL,
			json TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL,
			PRIMARY KEY (owner, kind, id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_records_parent ON records(owner, kind, parent, seq);`,
		`CREATE TABLE IF NOT EXISTS settings (
			owner TEXT NOT NULL,
			workspace TEXT NOT NULL,
			json TEXT NOT NULL,
			PRIMARY KEY (owner, workspace)
		);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func decodeDoc(raw string) (Doc, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var d Doc
	if err := dec.Decode(&d); err != nil {
		return nil, err
	}
	return d, nil
}

func encodeDoc(d Doc) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func (s *Store) Insert(ctx context.Context, owner, kind, parent string, d Doc) (Doc, error) {
	return insertDoc(ctx, s.db, s.now(), owner, kind, parent, d)
}

func insertDoc(ctx context.Context, q querier, now time.Time, owner, kind, parent string, d Doc) (Doc, error) {
	id, err := newRandomID(kind)
	if err != nil {
		return nil, err
	}
	out := Doc{}
	for k, v := range d {
		out[k] = v
	}
	out["id"] = id
	raw, err := encodeDoc(out)
	if err != nil {
		return nil, err
	}
	_, err = q.ExecContext(ctx, `INSERT INTO records(owner, kind, id, parent, seq, json, updated_at_unixms)
		VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM records WHERE owner = ? AND kind = ?), ?, ?)`,
		owner, kind, id, parent, owner, kind, raw, now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", kind, err)
	}
	return decodeDoc(raw)
}

func (s *Store) Get(ctx context.Context, owner, kind, id string) (Doc, error) {
	return getDoc(ctx, s.db, owner, kind, id)
}

func getDoc(ctx context.Context, q querier, owner, kind, id string) (Doc, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT json FROM records WHERE owner = ? AND kind = ? AND id = ?`, owner, kind, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeDoc(raw)
}

// Parent returns the id of the record's parent, empty for top-level records.
func (s *Store) Parent(ctx context.Context, owner, kind, id string) (string, error) {
	var parent string
	err := s.db.QueryRowContext(ctx, `SELECT parent FROM records WHERE owner = ? AND kind = ? AND id = ?`, owner, kind, id).Scan(&parent)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errNotFound
	}
	return parent, err
}

// List returns records newest first. An empty parent lists top-level records.
func (s *Store) List(ctx context.Context, owner, kind, parent string) ([]Doc, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT json FROM records WHERE owner = ? AND kind = ? AND parent = ? ORDER BY seq DESC`, owner, kind, parent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Doc{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		d, err := decodeDoc(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Patch merges fields into the stored record. The id is immutable.
func (s *Store) Patch(ctx context.Context, owner, kind, id string, fields Doc) (Doc, error) {
	return patchDoc(ctx, s.db, s.now(), owner, kind, id, fields)
}

func patchDoc(ctx context.Context, q querier, now time.Time, owner, kind, id string, fields Doc) (Doc, error) {
	cur, err := getDoc(ctx, q, owner, kind, id)
	if err != nil {
		return nil, err
	}
	for k, v := range fields {
		if k == "id" {
			continue
		}
		cur[k] = v
	}
	raw, err := encodeDoc(cur)
	if err != nil {
		return nil, err
	}
	if _, err := q.ExecContext(ctx, `UPDATE records SET json = ?, updated_at_unixms = ? WHERE owner = ? AND kind = ? AND id = ?`,
		raw, now.UnixMilli(), owner, kind, id); err != nil {
		return nil, err
	}
	return decodeDoc(raw)
}

// Delete removes the record and any records parented to it.
func (s *Store) Delete(ctx context.Context, owner, kind, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE owner = ? AND kind = ? AND id = ?`, owner, kind, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errNotFound
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM records WHERE owner = ? AND parent = ?`, owner, id)
	return err
}

func (s *Store) Settings(ctx context.Context, owner, ws string) (Doc, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT json FROM settings WHERE owner = ? AND workspace = ?`, owner, ws).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Doc{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeDoc(raw)
}

func (s *Store) SaveSettings(ctx context.Context, owner, ws string, d Doc) (Doc, error) {
	if d == nil {
		d = Doc{}
	}
	raw, err := encodeDoc(d)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO settings(owner, workspace, json) VALUES (?, ?, ?)
		ON CONFLICT(owner, workspace) DO UPDATE SET json = excluded.json`, owner, ws, raw)
	if err != nil {
		return nil, err
	}
	return decodeDoc(raw)
}

var (
	errSameAccount   = errors.New("source and destination must differ")
	errCurrency      = errors.New("accounts use different currencies")
	errInsufficient  = errors.New("insufficient balance")
	errAccountClosed = errors.New("account is closed")
)

// Transfer moves amount between two accounts and records the transfer, all in
// one transaction.
func (s *Store) Transfer(ctx context.Context, owner, fromID, toID string, amount int64, memo string) (Doc, error) {
	if fromID == toID {
		return nil, errSameAccount
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	from, err := getDoc(ctx, tx, owner, kindAccounts, fromID)
	if err != nil {
		return nil, err
	}
	to, err := getDoc(ctx, tx, owner, kindAccounts, toID)
	if err != nil {
		return nil, err
	}
	if str(from, "status") == "closed" || str(to, "status") == "closed" {
		return nil, errAccountClosed
	}
	if str(from, "currency") != str(to, "currency") {
		return nil, errCurrency
	}
	if num(from, "balance") < amount {
		return nil, errInsufficient
	}

	now := s.now()
	if _, err := patchDoc(ctx, tx, now, owner, kindAccounts, fromID, Doc{"balance": num(from, "balance") - amount}); err != nil {
		return nil, err
	}
	if _, err := patchDoc(ctx, tx, now, owner, kindAccounts, toID, Doc{"balance": num(to, "balance") + amount}); err != nil {
		return nil, err
	}
	t, err := insertDoc(ctx, tx, now, owner, kindTransfers, "", Doc{
		"fromAccountId": fromID,
		"toAccountId":   toID,
		"amount":        amount,
		"currency":      str(from, "currency"),
		"memo":          memo,
		"status":        "completed",
		"createdAt":     now.Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return t, nil
}

func str(d Doc, k string) string {
	if v, ok := d[k].(string); ok {
		return v
	}
	return ""
}

func num(d Doc, k string) int64 {
	switch v := d[k].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			f, _ := v.Float64()
			return int64(f)
		}
		return n
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}
