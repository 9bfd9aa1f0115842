// Package store keeps a history of palette extractions and contrast audits
// in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jmylchreest/pagetint/internal/colour"
	"github.com/jmylchreest/pagetint/internal/contrast"
)

// ErrNotFound is returned when a scan does not exist.
var ErrNotFound = errors.New("scan not found")

// Kind is what a scan recorded.
type Kind string

const (
	KindPalette Kind = "palette"
	KindAudit   Kind = "audit"
)

// Scan is one stored result. Payload is the JSON colour list for palette
// scans and the JSON issue list for audits.
type Scan struct {
	ID        string          `json:"id"`
	SessionID string          `json:"sessionId,omitempty"`
	URL       string          `json:"url"`
	Kind      Kind            `json:"kind"`
	CreatedAt time.Time       `json:"createdAt"`
	Payload   json.RawMessage `json:"payload"`
}

// Colours decodes the payload of a palette scan.
func (s Scan) Colours() ([]colour.WeightedColour, error) {
	if s.Kind != KindPalette {
		return nil, fmt.Errorf("scan %s is a %s scan", s.ID, s.Kind)
	}
	var colours []colour.WeightedColour
	if err := json.Unmarshal(s.Payload, &colours); err != nil {
		return nil, fmt.Errorf("failed to decode palette: %w", err)
	}
	return colours, nil
}

// Issues decodes the payload of an audit scan.
func (s Scan) Issues() ([]contrast.Issue, error) {
	if s.Kind != KindAudit {
		return nil, fmt.Errorf("scan %s is a %s scan", s.ID, s.Kind)
	}
	var issues []contrast.Issue
	if err := json.Unmarshal(s.Payload, &issues); err != nil {
		return nil, fmt.Errorf("failed to decode issues: %w", err)
	}
	return issues, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS scans (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL DEFAULT '',
	url        TEXT NOT NULL,
	kind       TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	payload    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS scans_created_at ON scans (created_at DESC);
CREATE INDEX IF NOT EXISTS scans_url ON scans (url);
`

// Store is the scan history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serialises writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveScan stores scan, filling in ID and CreatedAt when unset.
func (s *Store) SaveScan(ctx context.Context, scan Scan) (Scan, error) {
	if scan.ID == "" {
		scan.ID = uuid.NewString()
	}
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = time.Now()
	}
	scan.CreatedAt = scan.CreatedAt.UTC()
	if scan.Kind != KindPalette && scan.Kind != KindAudit {
		return Scan{}, fmt.Errorf("unknown scan kind %q", scan.Kind)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scans (id, session_id, url, kind, created_at, payload) VALUES (?, ?, ?, ?, ?, ?)`,
		scan.ID, scan.SessionID, scan.URL, string(scan.Kind), scan.CreatedAt.UnixNano(), string(scan.Payload))
	if err != nil {
		return Scan{}, fmt.Errorf("failed to save scan: %w", err)
	}
	return scan, nil
}

// SavePalette stores an extracted palette.
func (s *Store) SavePalette(ctx context.Context, sessionID, url string, colours []colour.WeightedColour) (Scan, error) {
	if colours == nil {
		colours = []colour.WeightedColour{}
	}
	payload, err := json.Marshal(colours)
	if err != nil {
		return Scan{}, fmt.Errorf("failed to encode palette: %w", err)
	}
	return s.SaveScan(ctx, Scan{SessionID: sessionID, URL: url, Kind: KindPalette, Payload: payload})
}

// SaveAudit stores contrast issues.
func (s *Store) SaveAudit(ctx context.Context, sessionID, url string, issues []contrast.Issue) (Scan, error) {
	if issues == nil {
		issues = []contrast.Issue{}
	}
	payload, err := json.Marshal(issues)
	if err != nil {
		return Scan{}, fmt.Errorf("failed to encode issues: %w", err)
	}
	return s.SaveScan(ctx, Scan{SessionID: sessionID, URL: url, Kind: KindAudit, Payload: payload})
}

// ListOptions filters ListScans.
type ListOptions struct {
	// Limit caps the result; zero means 50.
	Limit int
	URL   string
	Kind  Kind
}

// ListScans returns scans newest first.
func (s *Store) ListScans(ctx context.Context, opts ListOptions) ([]Scan, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	var where []string
	var args []any
	if opts.URL != "" {
		where = append(where, "url = ?")
		args = append(args, opts.URL)
	}
	if opts.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(opts.Kind))
	}

	query := `SELECT id, session_id, url, kind, created_at, payload FROM scans`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	var scans []Scan
	for rows.Next() {
		scan, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		scans = append(scans, scan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	return scans, nil
}

// GetScan returns the scan with id.
func (s *Store) GetScan(ctx context.Context, id string) (Scan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, url, kind, created_at, payload FROM scans WHERE id = ?`, id)
	scan, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Scan{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return scan, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(r rowScanner) (Scan, error) {
	var (
		scan    Scan
		kind    string
		created int64
		payload string
	)
	if err := r.Scan(&scan.ID, &scan.SessionID, &scan.URL, &kind, &created, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Scan{}, err
		}
		return Scan{}, fmt.Errorf("failed to read scan: %w", err)
	}
	scan.Kind = Kind(kind)
	scan.CreatedAt = time.Unix(0, created).UTC()
	scan.Payload = json.RawMessage(payload)
	return scan, nil
}
