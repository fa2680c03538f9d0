package database

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mwhited/taxlot-service/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewFromConn(conn), mock
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testLot() *models.TaxLot {
	return &models.TaxLot{
		ID:           "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		UserID:       "user-1",
		Symbol:       "AAPL",
		Shares:       dec("10"),
		CostBasis:    dec("150.25"),
		PurchaseDate: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:    time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestInsertLot(t *testing.T) {
	db, mock := newMockDB(t)
	lot := testLot()

	mock.ExpectExec("INSERT INTO tax_lots").
		WithArgs(lot.ID, lot.UserID, lot.Symbol, lot.Shares, lot.CostBasis,
			lot.PurchaseDate, lot.SoldDate, sqlmock.AnyArg(), lot.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := db.InsertLot(lot)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertLot_Error(t *testing.T) {
	db, mock := newMockDB(t)
	lot := testLot()

	mock.ExpectExec("INSERT INTO tax_lots").
		WillReturnError(errors.New("connection refused"))

	err := db.InsertLot(lot)
	assert.ErrorContains(t, err, "failed to insert lot")
}

func TestUpdateLot(t *testing.T) {
	db, mock := newMockDB(t)
	lot := testLot()
	lot.Shares = dec("7")

	mock.ExpectExec("UPDATE tax_lots").
		WithArgs(lot.ID, lot.Shares, lot.SoldDate).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := db.UpdateLot(lot)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateLot_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	lot := testLot()

	mock.ExpectExec("UPDATE tax_lots").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := db.UpdateLot(lot)
	assert.ErrorContains(t, err, "lot not found")
}

func TestGetLotsByUser(t *testing.T) {
	db, mock := newMockDB(t)
	sold := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "symbol", "shares", "cost_basis", "purchase_date",
		"sold_date", "origin_lot_id", "created_at",
	}).
		AddRow("lot-1", "user-1", "AAPL", "10", "150.25",
			time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), nil, nil, time.Now()).
		AddRow("lot-2", "user-1", "AAPL", "3", "150.25",
			time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), sold, "lot-1", time.Now())

	mock.ExpectQuery("SELECT (.+) FROM tax_lots").
		WithArgs("user-1", "AAPL").
		WillReturnRows(rows)

	lots, err := db.GetLotsByUser("user-1", "AAPL")
	require.NoError(t, err)
	require.Len(t, lots, 2)

	assert.Nil(t, lots[0].SoldDate)
	assert.Empty(t, lots[0].OriginLotID)
	assert.True(t, lots[0].Shares.Equal(dec("10")))

	require.NotNil(t, lots[1].SoldDate)
	assert.Equal(t, sold, *lots[1].SoldDate)
	assert.Equal(t, "lot-1", lots[1].OriginLotID)
}

func TestLoadAllLots_Empty(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT (.+) FROM tax_lots").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "symbol", "shares", "cost_basis", "purchase_date",
			"sold_date", "origin_lot_id", "created_at",
		}))

	lots, err := db.LoadAllLots()
	require.NoError(t, err)
	assert.Empty(t, lots)
}
