// Package audit records every configuration mutation as an append-only
// event trail.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nuclearlighters/netcube/internal/models"
)

// Event is one audit record: which interface, which intent, what came of it.
// Credential material is never stored here.
type Event struct {
	ID        int64             `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Interface string            `json:"interface"`
	Intent    models.IntentKind `json:"intent"`
	Outcome   models.Outcome    `json:"outcome"`
	Detail    map[string]any    `json:"detail,omitempty"`
}

// Sink accepts audit events. Recording is best effort from the mutator's
// point of view: a failed write must never abort the mutation it describes.
type Sink interface {
	Record(ctx context.Context, evt Event)
}

// Store is a sqlite-backed Sink that also serves the audit query endpoint.
type Store struct {
	db *sql.DB
}

// NewStore prepares the audit table on an open database handle.
func NewStore(db *sql.DB) (*Store, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME NOT NULL,
			interface TEXT NOT NULL,
			intent TEXT NOT NULL,
			outcome TEXT NOT NULL,
			detail TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp);
		CREATE INDEX IF NOT EXISTS idx_audit_interface ON audit_events(interface);
	`)
	if err != nil {
		return nil, fmt.Errorf("create audit table: %w", err)
	}
	return &Store{db: db}, nil
}

// Record appends one event. Failures are logged, not returned.
func (s *Store) Record(ctx context.Context, evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	var detailJSON []byte
	if evt.Detail != nil {
		detailJSON, _ = json.Marshal(evt.Detail)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (timestamp, interface, intent, outcome, detail)
		VALUES (?, ?, ?, ?, ?)
	`, evt.Timestamp, evt.Interface, string(evt.Intent), string(evt.Outcome), string(detailJSON))
	if err != nil {
		log.Error().Err(err).
			Str("interface", evt.Interface).
			Str("intent", string(evt.Intent)).
			Msg("Failed to write audit event")
	}
}

// Recent returns the newest events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, interface, intent, outcome, detail
		FROM audit_events ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var evt Event
		var intent, outcome string
		var detail sql.NullString
		if err := rows.Scan(&evt.ID, &evt.Timestamp, &evt.Interface, &intent, &outcome, &detail); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		evt.Intent = models.IntentKind(intent)
		evt.Outcome = models.Outcome(outcome)
		if detail.Valid && detail.String != "" {
			_ = json.Unmarshal([]byte(detail.String), &evt.Detail)
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}

// Discard is a Sink that drops every event; used in tests.
type Discard struct{}

func (Discard) Record(context.Context, Event) {}
