package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SQLStore persists audit entries through database/sql. It works with both
// the embedded sqlite driver and Postgres; the binary imports whichever
// driver it needs.
type SQLStore struct {
	db       *sql.DB
	postgres bool
}

// NewSQLStore creates a store using `?` placeholders (sqlite) and ensures
// the schema exists.
func NewSQLStore(ctx context.Context, db *sql.DB) (*SQLStore, error) {
	s := &SQLStore{db: db}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// NewPostgresStore creates a store using `$n` placeholders.
func NewPostgresStore(ctx context.Context, db *sql.DB) (*SQLStore, error) {
	s := &SQLStore{db: db, postgres: true}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// rebind rewrites `?` placeholders to `$1..$n` for Postgres.
func (s *SQLStore) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) migrate(ctx context.Context) error {
	// seq is the chain order. Timestamp text is not orderable: RFC 3339
	// trims trailing zeros, so "...20Z" sorts after a later "...20.5Z".
	seqColumn := "seq INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.postgres {
		seqColumn = "seq BIGSERIAL PRIMARY KEY"
	}
	query := `
    CREATE TABLE IF NOT EXISTS decision_log (
        ` + seqColumn + `,
        id TEXT NOT NULL UNIQUE,
        timestamp TEXT NOT NULL,
        principal TEXT NOT NULL,
        tenant_id TEXT NOT NULL DEFAULT '',
        action TEXT NOT NULL,
        state_hash TEXT NOT NULL,
        allowed BOOLEAN NOT NULL,
        reason TEXT NOT NULL,
        violated_rule TEXT NOT NULL DEFAULT '',
        previous_hash TEXT NOT NULL DEFAULT '',
        hash TEXT NOT NULL
    );`
	_, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("audit: migrate: %w", err)
	}
	return nil
}

// Insert persists one entry.
func (s *SQLStore) Insert(ctx context.Context, e *Entry) error {
	query := `INSERT INTO decision_log (
        id, timestamp, principal, tenant_id, action, state_hash, allowed, reason, violated_rule, previous_hash, hash
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, s.rebind(query),
		e.ID,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.Principal,
		e.TenantID,
		e.Action,
		e.StateHash,
		e.Allowed,
		e.Reason,
		e.ViolatedRule,
		e.PreviousHash,
		e.Hash,
	)
	if err != nil {
		return fmt.Errorf("audit: insert entry %s: %w", e.ID, err)
	}
	return nil
}

// LastHash returns the hash of the most recent entry, or "" for an empty log.
// Used to continue the chain across process restarts.
func (s *SQLStore) LastHash(ctx context.Context) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT hash FROM decision_log ORDER BY seq DESC LIMIT 1`,
	).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("audit: last hash: %w", err)
	}
	return hash, nil
}

// List returns the most recent entries, newest first.
func (s *SQLStore) List(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
        SELECT id, timestamp, principal, tenant_id, action, state_hash, allowed, reason, violated_rule, previous_hash, hash
        FROM decision_log
        ORDER BY seq DESC
        LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts string
		if err := rows.Scan(&e.ID, &ts, &e.Principal, &e.TenantID, &e.Action, &e.StateHash,
			&e.Allowed, &e.Reason, &e.ViolatedRule, &e.PreviousHash, &e.Hash); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("audit: parse timestamp for %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
