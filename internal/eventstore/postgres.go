// Package eventstore provides the durable implementations of the event log:
// Postgres for production and an in-memory store for tests and
// database-less development.
package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"orderdesk_backend/internal/events"
	"orderdesk_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaDDL is applied by Initialize. It matches the migration in
// migrations/; running it here too keeps Initialize idempotent and lets the
// store come up against a database that was never migrated externally.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS events (
	id          UUID PRIMARY KEY,
	event_type  TEXT NOT NULL,
	data        JSONB NOT NULL DEFAULT '{}'::jsonb,
	metadata    JSONB NOT NULL DEFAULT '{}'::jsonb,
	processed   BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_events_type ON events (event_type);
CREATE INDEX IF NOT EXISTS idx_events_correlation ON events ((metadata->>'correlationId'));
CREATE INDEX IF NOT EXISTS idx_events_created_at ON events (created_at);
CREATE INDEX IF NOT EXISTS idx_events_processed ON events (processed) WHERE processed = FALSE;
`

const selectColumns = `id, event_type, data, metadata, processed, created_at`

// PostgresStore is the append-only event log backed by Postgres. Concurrent
// appends and reads go through the pool; no store-level locking is needed.
type PostgresStore struct {
	pool        *pgxpool.Pool
	log         *logger.Logger
	initialized atomic.Bool
}

// NewPostgresStore creates an uninitialized store around an existing pool.
func NewPostgresStore(pool *pgxpool.Pool, log *logger.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, log: log}
}

// Initialize implements events.Store.
func (s *PostgresStore) Initialize(ctx context.Context) error {
	if s.initialized.Load() {
		return nil
	}
	if s.pool == nil {
		return fmt.Errorf("event store pool not configured")
	}

	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping event store: %w", err)
	}
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure events schema: %w", err)
	}

	s.initialized.Store(true)
	return nil
}

func (s *PostgresStore) guard() error {
	if !s.initialized.Load() {
		return events.ErrStoreNotInitialized
	}
	return nil
}

// SaveEvent implements events.Store.
func (s *PostgresStore) SaveEvent(ctx context.Context, event *events.Event) error {
	if err := s.guard(); err != nil {
		return err
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	meta, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("marshal event metadata: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO events (id, event_type, data, metadata, processed, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, event.Type, data, meta, event.Processed, event.CreatedAt,
	)
	if err != nil {
		s.log.DatabaseError("save_event", err)
		return err
	}
	return nil
}

// GetEvent implements events.Store.
func (s *PostgresStore) GetEvent(ctx context.Context, id uuid.UUID) (*events.Event, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM events WHERE id = $1`, id)

	event, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, events.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}

// GetEvents implements events.Store.
func (s *PostgresStore) GetEvents(ctx context.Context, eventType string, limit, offset int) ([]*events.Event, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	limit, offset = normalizePage(limit, offset)

	var rows pgx.Rows
	var err error
	if eventType == "" {
		rows, err = s.pool.Query(ctx,
			`SELECT `+selectColumns+` FROM events
			 ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	} else {
		rows, err = s.pool.Query(ctx,
			`SELECT `+selectColumns+` FROM events WHERE event_type = $1
			 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, eventType, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

// GetEventsByCorrelationID implements events.Store.
func (s *PostgresStore) GetEventsByCorrelationID(ctx context.Context, correlationID string) ([]*events.Event, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM events
		 WHERE metadata->>'correlationId' = $1
		 ORDER BY created_at ASC`, correlationID)
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

// GetEventsByDateRange implements events.Store.
func (s *PostgresStore) GetEventsByDateRange(ctx context.Context, start, end time.Time, eventType string) ([]*events.Event, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	var rows pgx.Rows
	var err error
	if eventType == "" {
		rows, err = s.pool.Query(ctx,
			`SELECT `+selectColumns+` FROM events
			 WHERE created_at BETWEEN $1 AND $2
			 ORDER BY created_at DESC`, start, end)
	} else {
		rows, err = s.pool.Query(ctx,
			`SELECT `+selectColumns+` FROM events
			 WHERE created_at BETWEEN $1 AND $2 AND event_type = $3
			 ORDER BY created_at DESC`, start, end, eventType)
	}
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

// GetUnprocessedEvents implements events.Store.
func (s *PostgresStore) GetUnprocessedEvents(ctx context.Context, limit int) ([]*events.Event, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM events
		 WHERE processed = FALSE
		 ORDER BY created_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

// MarkEventAsProcessed implements events.Store.
func (s *PostgresStore) MarkEventAsProcessed(ctx context.Context, id uuid.UUID) error {
	if err := s.guard(); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE events SET processed = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return events.ErrEventNotFound
	}
	return nil
}

// GetEventStats implements events.Store.
func (s *PostgresStore) GetEventStats(ctx context.Context) (events.Stats, error) {
	stats := events.Stats{EventsByType: make(map[string]int64)}
	if err := s.guard(); err != nil {
		return stats, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT event_type, processed, COUNT(*) FROM events GROUP BY event_type, processed`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var eventType string
		var processed bool
		var count int64
		if err := rows.Scan(&eventType, &processed, &count); err != nil {
			return stats, err
		}
		stats.TotalEvents += count
		stats.EventsByType[eventType] += count
		if processed {
			stats.EventsByStatus.Processed += count
		} else {
			stats.EventsByStatus.Unprocessed += count
		}
	}
	if rows.Err() != nil {
		return stats, rows.Err()
	}

	recent, err := s.GetEvents(ctx, "", 10, 0)
	if err != nil {
		return stats, err
	}
	stats.RecentEvents = recent

	return stats, nil
}

// HealthCheck implements events.Store.
func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	if err := s.guard(); err != nil {
		return err
	}
	return s.pool.Ping(ctx)
}

func normalizePage(limit, offset int) (int, int) {
	if limit < 1 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func scanEvent(row pgx.Row) (*events.Event, error) {
	var event events.Event
	var data, meta []byte

	if err := row.Scan(&event.ID, &event.Type, &data, &meta, &event.Processed, &event.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &event.Data); err != nil {
		return nil, fmt.Errorf("unmarshal event data: %w", err)
	}
	if err := json.Unmarshal(meta, &event.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal event metadata: %w", err)
	}
	return &event, nil
}

func collectEvents(rows pgx.Rows) ([]*events.Event, error) {
	defer rows.Close()

	var results []*events.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, event)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return results, nil
}

// Compile-time check that PostgresStore implements events.Store.
var _ events.Store = (*PostgresStore)(nil)
