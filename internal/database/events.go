package database

import (
	"fmt"

	"github.com/mwhited/taxlot-service/internal/models"
)

// InsertEvent appends a disposal event to the audit log. Events are
// immutable; there is no update path.
func (db *DB) InsertEvent(ev *models.DisposalEvent) error {
	query := `
		INSERT INTO disposal_events (
			id, user_id, lot_id, symbol, shares, cost_basis,
			sale_date, sale_price, proceeds, gain,
			is_short_term, is_wash_sale, event_type, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := db.conn.Exec(query,
		ev.ID, ev.UserID, ev.LotID, ev.Symbol, ev.Shares, ev.CostBasis,
		ev.SaleDate, ev.SalePrice, ev.Proceeds, ev.Gain,
		ev.IsShortTerm, ev.IsWashSale, string(ev.EventType), ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert disposal event %s: %w", ev.ID, err)
	}
	return nil
}

// GetEventsByUser retrieves a user's disposal events in emission order,
// optionally filtered to one calendar year.
func (db *DB) GetEventsByUser(userID string, year int) ([]*models.DisposalEvent, error) {
	query := `
		SELECT id, user_id, lot_id, symbol, shares, cost_basis,
		       sale_date, sale_price, proceeds, gain,
		       is_short_term, is_wash_sale, event_type, created_at
		FROM disposal_events
		WHERE user_id = $1
	`
	args := []interface{}{userID}
	if year != 0 {
		query += " AND EXTRACT(YEAR FROM sale_date AT TIME ZONE 'UTC') = $2"
		args = append(args, year)
	}
	query += " ORDER BY created_at, id"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get disposal events: %w", err)
	}
	defer rows.Close()

	var events []*models.DisposalEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read disposal events: %w", err)
	}
	return events, nil
}

// LoadAllEvents retrieves every disposal event in emission order, used to
// rebuild the in-memory event log at startup.
func (db *DB) LoadAllEvents() ([]*models.DisposalEvent, error) {
	query := `
		SELECT id, user_id, lot_id, symbol, shares, cost_basis,
		       sale_date, sale_price, proceeds, gain,
		       is_short_term, is_wash_sale, event_type, created_at
		FROM disposal_events
		ORDER BY created_at, id
	`
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to load disposal events: %w", err)
	}
	defer rows.Close()

	var events []*models.DisposalEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read disposal events: %w", err)
	}
	return events, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*models.DisposalEvent, error) {
	var ev models.DisposalEvent
	var eventType string

	err := row.Scan(
		&ev.ID, &ev.UserID, &ev.LotID, &ev.Symbol, &ev.Shares, &ev.CostBasis,
		&ev.SaleDate, &ev.SalePrice, &ev.Proceeds, &ev.Gain,
		&ev.IsShortTerm, &ev.IsWashSale, &eventType, &ev.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan disposal event: %w", err)
	}
	ev.EventType = models.EventType(eventType)
	return &ev, nil
}
