package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"vahanbid/internal/models"
)

func ledgerRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "auction_id", "purchase_id", "kind",
		"amount", "status", "gateway_ref", "created_at", "updated_at",
	})
}

func TestMarkPaidByRefOnlyFlipsDue(t *testing.T) {
	xdb, mock := newMockDB(t)
	store := NewLedgerStore(xdb)

	t.Run("DueEntryIsPaid", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("WHERE gateway_ref = $1 AND status = 'DUE'")).
			WithArgs("pay_1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		rows, err := store.MarkPaidByRef(context.Background(), xdb, "pay_1")
		assert.NoError(t, err)
		assert.Equal(t, int64(1), rows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("PaidEntryIsUntouched", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("WHERE gateway_ref = $1 AND status = 'DUE'")).
			WithArgs("pay_1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		rows, err := store.MarkPaidByRef(context.Background(), xdb, "pay_1")
		assert.NoError(t, err)
		assert.Equal(t, int64(0), rows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPaidEntryFallsBackToPool(t *testing.T) {
	xdb, mock := newMockDB(t)
	store := NewLedgerStore(xdb)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 AND kind = $2 AND status = 'PAID'")).
		WithArgs("user-1", models.LedgerEMD, "auc-1").
		WillReturnRows(ledgerRows().AddRow(
			"led-1", "user-1", "auc-1", nil, models.LedgerEMD,
			int64(1_000_000), models.LedgerPaid, nil, now, now,
		))

	auctionID := "auc-1"
	entry, err := store.PaidEntry(context.Background(), nil, "user-1", models.LedgerEMD, &auctionID)
	assert.NoError(t, err)
	assert.Equal(t, "led-1", entry.ID)
	assert.Equal(t, models.LedgerPaid, entry.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseEMDHoldDetachesAuction(t *testing.T) {
	xdb, mock := newMockDB(t)
	store := NewLedgerStore(xdb)

	mock.ExpectExec(regexp.QuoteMeta("SET auction_id = NULL")).
		WithArgs("user-1", "auc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, store.ReleaseEMDHold(context.Background(), xdb, "user-1", "auc-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutstandingReportAggregatesDues(t *testing.T) {
	xdb, mock := newMockDB(t)
	store := NewLedgerStore(xdb)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'DUE'")).
		WithArgs(50, 0).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "outstanding", "entries"}).
			AddRow("user-1", int64(9_690_000), 2).
			AddRow("user-2", int64(59_900), 1))

	report, err := store.OutstandingReport(context.Background(), 50, 0)
	assert.NoError(t, err)
	assert.Len(t, report, 2)
	assert.Equal(t, "user-1", report[0].UserID)
	assert.Equal(t, int64(9_690_000), report[0].Outstanding)
	assert.NoError(t, mock.ExpectationsWereMet())
}
