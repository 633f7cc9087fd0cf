package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func bidRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "auction_id", "bidder_id", "amount", "sealed", "is_winning", "placed_at"})
}

func TestUpsertSealedReplacesOwnBid(t *testing.T) {
	xdb, mock := newMockDB(t)
	store := NewBidStore(xdb)
	placedAt := time.Now()

	// The partial unique index on (auction_id, bidder_id) WHERE sealed makes
	// a bidder's second sealed bid replace the first, and RETURNING hands
	// back the original row's id.
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (auction_id, bidder_id) WHERE sealed")).
		WithArgs("bid-2", "auc-1", "user-1", int64(9_500_000), placedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("bid-1"))

	id, err := store.UpsertSealed(context.Background(), xdb, BidInput{
		ID:        "bid-2",
		AuctionID: "auc-1",
		BidderID:  "user-1",
		Amount:    9_500_000,
		PlacedAt:  placedAt,
	})
	assert.NoError(t, err)
	assert.Equal(t, "bid-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopSealedBreaksTiesByEarliestBid(t *testing.T) {
	xdb, mock := newMockDB(t)
	store := NewBidStore(xdb)
	earlier := time.Now().Add(-time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY amount DESC, placed_at ASC")).
		WithArgs("auc-1").
		WillReturnRows(bidRows().AddRow("bid-1", "auc-1", "user-1", int64(9_500_000), true, false, earlier))

	bid, err := store.TopSealed(context.Background(), xdb, "auc-1")
	assert.NoError(t, err)
	assert.Equal(t, "bid-1", bid.ID)
	assert.Equal(t, int64(9_500_000), bid.Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertOpenMarksBidWinning(t *testing.T) {
	xdb, mock := newMockDB(t)
	store := NewBidStore(xdb)
	placedAt := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("VALUES ($1, $2, $3, $4, FALSE, TRUE, $5)")).
		WithArgs("bid-1", "auc-1", "user-1", int64(10_200_000), placedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.InsertOpen(context.Background(), xdb, BidInput{
		ID:        "bid-1",
		AuctionID: "auc-1",
		BidderID:  "user-1",
		Amount:    10_200_000,
		PlacedAt:  placedAt,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClearWinningOnlyTouchesCurrentWinner(t *testing.T) {
	xdb, mock := newMockDB(t)
	store := NewBidStore(xdb)

	mock.ExpectExec(regexp.QuoteMeta("WHERE auction_id = $1 AND is_winning = TRUE")).
		WithArgs("auc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, store.ClearWinning(context.Background(), xdb, "auc-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
