// Package report archives emitted envelopes per revision and records
// reported cycles per PR. The reported records feed cross-push re-report
// suppression.
package report

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"arcsight/attribute"
	"arcsight/envelope"
)

//go:embed schema.sql
var schemaSQL string

//go:embed pragmas.sql
var pragmasSQL string

// ErrEnvelopeNotFound reports a revision with no archived envelope.
var ErrEnvelopeNotFound = errors.New("report: envelope not found")

// DB wraps the SQLite report store.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens or creates a report database at the given path.
func Open(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	for _, pragma := range strings.Split(pragmasSQL, "\n") {
		pragma = strings.TrimSpace(pragma)
		if pragma == "" || strings.HasPrefix(pragma, "--") {
			continue
		}
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &DB{conn: conn, path: dbPath}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// SaveEnvelope archives a signed envelope under its revision. Re-saving a
// revision replaces the earlier record.
func (db *DB) SaveEnvelope(revision string, env *envelope.Envelope) error {
	body, err := env.CanonicalJSON()
	if err != nil {
		return fmt.Errorf("serializing envelope: %w", err)
	}

	_, err = db.conn.Exec(
		`INSERT INTO envelopes (revision, signature, body, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(revision) DO UPDATE SET signature=excluded.signature, body=excluded.body, created_at=excluded.created_at`,
		revision, env.Meta.Signature, string(body), nowMs(),
	)
	if err != nil {
		return fmt.Errorf("inserting envelope: %w", err)
	}
	return nil
}

// GetEnvelope retrieves the archived envelope for a revision.
func (db *DB) GetEnvelope(revision string) (*envelope.Envelope, error) {
	var body string
	err := db.conn.QueryRow(
		`SELECT body FROM envelopes WHERE revision = ?`, revision,
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, ErrEnvelopeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying envelope: %w", err)
	}

	var env envelope.Envelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}
	return &env, nil
}

// RecordReported stores the cycles emitted on a PR. Duplicate records are
// idempotent.
func (db *DB) RecordReported(pr string, records []attribute.Reported) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	ts := nowMs()
	for _, r := range records {
		_, err := tx.Exec(
			`INSERT OR IGNORE INTO reported (pr, canonical, root_from, root_to, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			pr, r.Canonical, r.RootFrom, r.RootTo, ts,
		)
		if err != nil {
			return fmt.Errorf("inserting reported cycle: %w", err)
		}
	}

	return tx.Commit()
}

// ListReported returns the cycles already reported on a PR, ordered by
// (canonical, root_from, root_to) for stable iteration.
func (db *DB) ListReported(pr string) ([]attribute.Reported, error) {
	rows, err := db.conn.Query(
		`SELECT canonical, root_from, root_to FROM reported
		 WHERE pr = ? ORDER BY canonical, root_from, root_to`,
		pr,
	)
	if err != nil {
		return nil, fmt.Errorf("querying reported cycles: %w", err)
	}
	defer rows.Close()

	var records []attribute.Reported
	for rows.Next() {
		var r attribute.Reported
		if err := rows.Scan(&r.Canonical, &r.RootFrom, &r.RootTo); err != nil {
			return nil, fmt.Errorf("scanning reported cycle: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}
