// Package archive persists exported audit events in PostgreSQL for
// long-term retention and clinic-side queries. The device's hash chain
// remains the source of truth; the archive is a queryable mirror.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/lib/pq"

	"charak/internal/audit"
)

// Open connects to the archive database through the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// Store archives audit events keyed by their chain hash.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL archive store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the archive table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS audit_archive (
			event_hash   TEXT PRIMARY KEY,
			encounter_id TEXT NOT NULL,
			key_id       TEXT NOT NULL,
			prev_hash    TEXT NOT NULL,
			event_type   TEXT NOT NULL,
			ts           TIMESTAMPTZ NOT NULL,
			actor        TEXT NOT NULL,
			meta         JSONB,
			archived_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS audit_archive_encounter_idx
			ON audit_archive (encounter_id, ts);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure archive schema: %w", err)
	}
	return nil
}

// Archive inserts an event keyed by its chain hash. The export pipeline
// is at-least-once, so replaying a delivery is a no-op here.
// Idempotent via ON CONFLICT DO NOTHING.
func (s *Store) Archive(ctx context.Context, eventHash string, event audit.Event) error {
	meta, err := json.Marshal(event.Meta)
	if err != nil {
		return fmt.Errorf("marshal event meta: %w", err)
	}

	query := `
		INSERT INTO audit_archive (
			event_hash, encounter_id, key_id, prev_hash,
			event_type, ts, actor, meta
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_hash) DO NOTHING
	`
	_, err = s.db.ExecContext(ctx, query,
		eventHash,
		event.EncounterID,
		event.KeyID,
		event.PrevHash,
		string(event.Event),
		event.Timestamp,
		string(event.Actor),
		meta,
	)
	if err != nil {
		return fmt.Errorf("insert archived event: %w", err)
	}
	return nil
}

// ListByEncounter returns one encounter's archived events in chain order.
func (s *Store) ListByEncounter(ctx context.Context, encounterID string) ([]audit.Event, error) {
	query := `
		SELECT encounter_id, key_id, prev_hash, event_type, ts, actor, meta
		FROM audit_archive
		WHERE encounter_id = $1
		ORDER BY ts ASC
	`
	rows, err := s.db.QueryContext(ctx, query, encounterID)
	if err != nil {
		return nil, fmt.Errorf("query archived events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

// ListByEncounters returns archived events for a set of encounters.
func (s *Store) ListByEncounters(ctx context.Context, encounterIDs []string) ([]audit.Event, error) {
	query := `
		SELECT encounter_id, key_id, prev_hash, event_type, ts, actor, meta
		FROM audit_archive
		WHERE encounter_id = ANY($1)
		ORDER BY encounter_id, ts ASC
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(encounterIDs))
	if err != nil {
		return nil, fmt.Errorf("query archived events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

// ListRecent returns the N most recently archived events.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT encounter_id, key_id, prev_hash, event_type, ts, actor, meta
		FROM audit_archive
		ORDER BY ts DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query archived events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

// scanEvents scans rows back into audit events.
func (s *Store) scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			event audit.Event
			kind  string
			actor string
			meta  []byte
		)
		if err := rows.Scan(
			&event.EncounterID,
			&event.KeyID,
			&event.PrevHash,
			&kind,
			&event.Timestamp,
			&actor,
			&meta,
		); err != nil {
			return nil, fmt.Errorf("scan archived event: %w", err)
		}
		event.Event = audit.EventType(kind)
		event.Actor = audit.Actor(actor)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &event.Meta); err != nil {
				return nil, fmt.Errorf("decode event meta: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archived events: %w", err)
	}
	return events, nil
}
