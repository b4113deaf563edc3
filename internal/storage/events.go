package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

func (p *PostgresClient) InsertEvent(ctx context.Context, rec EventRecord) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO interface_events (id, interface, kind, from_state, to_state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, rec.ID, rec.Interface, string(rec.Kind), rec.FromState, rec.ToState, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// ListEvents returns the newest events first. An empty iface lists all
// interfaces.
func (p *PostgresClient) ListEvents(ctx context.Context, iface string, limit int) ([]EventRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	var (
		rows pgx.Rows
		err  error
	)
	if iface == "" {
		rows, err = p.pool.Query(ctx, `
			SELECT id, interface, kind, from_state, to_state, created_at
			FROM interface_events
			ORDER BY created_at DESC
			LIMIT $1
		`, limit)
	} else {
		rows, err = p.pool.Query(ctx, `
			SELECT id, interface, kind, from_state, to_state, created_at
			FROM interface_events
			WHERE interface = $1
			ORDER BY created_at DESC
			LIMIT $2
		`, iface, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (EventRecord, error) {
		var rec EventRecord
		var kind string
		err := row.Scan(&rec.ID, &rec.Interface, &kind, &rec.FromState, &rec.ToState, &rec.CreatedAt)
		rec.Kind = EventKind(kind)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan events: %w", err)
	}
	return events, nil
}
