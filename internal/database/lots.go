package database

import (
	"database/sql"
	"fmt"

	"github.com/mwhited/taxlot-service/internal/models"
)

// InsertLot persists a new lot record verbatim.
func (db *DB) InsertLot(lot *models.TaxLot) error {
	query := `
		INSERT INTO tax_lots (
			id, user_id, symbol, shares, cost_basis, purchase_date,
			sold_date, origin_lot_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := db.conn.Exec(query,
		lot.ID, lot.UserID, lot.Symbol, lot.Shares, lot.CostBasis, lot.PurchaseDate,
		lot.SoldDate, nullString(lot.OriginLotID), lot.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert lot %s: %w", lot.ID, err)
	}
	return nil
}

// UpdateLot rewrites the mutable fields of a lot record: remaining shares
// after a partial disposal, or the sold date when the lot closes.
func (db *DB) UpdateLot(lot *models.TaxLot) error {
	query := `
		UPDATE tax_lots SET shares = $2, sold_date = $3
		WHERE id = $1
	`
	result, err := db.conn.Exec(query, lot.ID, lot.Shares, lot.SoldDate)
	if err != nil {
		return fmt.Errorf("failed to update lot %s: %w", lot.ID, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("lot not found: %s", lot.ID)
	}
	return nil
}

// GetLotsByUser retrieves a user's lot records, optionally filtered by
// symbol, oldest purchase first.
func (db *DB) GetLotsByUser(userID, symbol string) ([]*models.TaxLot, error) {
	query := `
		SELECT id, user_id, symbol, shares, cost_basis, purchase_date,
		       sold_date, origin_lot_id, created_at
		FROM tax_lots
		WHERE user_id = $1
	`
	args := []interface{}{userID}
	if symbol != "" {
		query += " AND symbol = $2"
		args = append(args, symbol)
	}
	query += " ORDER BY purchase_date, created_at"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get lots: %w", err)
	}
	defer rows.Close()

	return scanLots(rows)
}

// LoadAllLots retrieves every lot record in creation order, used to
// rebuild the in-memory store at startup.
func (db *DB) LoadAllLots() ([]*models.TaxLot, error) {
	query := `
		SELECT id, user_id, symbol, shares, cost_basis, purchase_date,
		       sold_date, origin_lot_id, created_at
		FROM tax_lots
		ORDER BY created_at, id
	`
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to load lots: %w", err)
	}
	defer rows.Close()

	return scanLots(rows)
}

func scanLots(rows *sql.Rows) ([]*models.TaxLot, error) {
	var lots []*models.TaxLot
	for rows.Next() {
		var lot models.TaxLot
		var soldDate sql.NullTime
		var originLotID sql.NullString

		err := rows.Scan(
			&lot.ID, &lot.UserID, &lot.Symbol, &lot.Shares, &lot.CostBasis,
			&lot.PurchaseDate, &soldDate, &originLotID, &lot.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lot: %w", err)
		}

		if soldDate.Valid {
			t := soldDate.Time
			lot.SoldDate = &t
		}
		if originLotID.Valid {
			lot.OriginLotID = originLotID.String
		}
		lots = append(lots, &lot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lots: %w", err)
	}
	return lots, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
