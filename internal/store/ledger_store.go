package store

import (
	"context"

	"vahanbid/internal/models"
)

type LedgerStore struct {
	db DB
}

func NewLedgerStore(db DB) *LedgerStore {
	return &LedgerStore{db: db}
}

type LedgerEntryInput struct {
	ID         string
	UserID     string
	AuctionID  *string
	PurchaseID *string
	Kind       models.LedgerKind
	Amount     int64
	Status     models.LedgerStatus
	GatewayRef *string
}

const ledgerColumns = `id, user_id, auction_id, purchase_id, kind, amount, status, gateway_ref, created_at, updated_at`

func (s *LedgerStore) Insert(ctx context.Context, tx Execer, input LedgerEntryInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, user_id, auction_id, purchase_id, kind, amount, status, gateway_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, input.ID, input.UserID, input.AuctionID, input.PurchaseID, input.Kind, input.Amount, input.Status, input.GatewayRef)
	return err
}

func (s *LedgerStore) GetByID(ctx context.Context, entryID string) (models.LedgerEntry, error) {
	var row models.LedgerEntry
	err := s.db.GetContext(ctx, &row, `
		SELECT `+ledgerColumns+`
		FROM ledger_entries
		WHERE id = $1
	`, entryID)
	return row, err
}

func (s *LedgerStore) GetByRefForUpdate(ctx context.Context, tx Getter, gatewayRef string) (models.LedgerEntry, error) {
	var row models.LedgerEntry
	err := tx.GetContext(ctx, &row, `
		SELECT `+ledgerColumns+`
		FROM ledger_entries
		WHERE gateway_ref = $1
		FOR UPDATE
	`, gatewayRef)
	return row, err
}

// MarkPaidByRef transitions DUE -> PAID keyed by gateway reference. Zero
// rows affected means the entry was already PAID; duplicate webhook
// deliveries land here and do nothing.
func (s *LedgerStore) MarkPaidByRef(ctx context.Context, tx Execer, gatewayRef string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE ledger_entries
		SET status = 'PAID', updated_at = NOW()
		WHERE gateway_ref = $1 AND status = 'DUE'
	`, gatewayRef)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FindOpen returns an existing DUE entry of the given kind so a retried
// payment initiation reuses it instead of stacking obligations.
func (s *LedgerStore) FindOpen(ctx context.Context, userID string, kind models.LedgerKind, auctionID, purchaseID *string) (models.LedgerEntry, error) {
	var row models.LedgerEntry
	err := s.db.GetContext(ctx, &row, `
		SELECT `+ledgerColumns+`
		FROM ledger_entries
		WHERE user_id = $1 AND kind = $2 AND status = 'DUE'
		  AND ($3::text IS NULL OR auction_id = $3)
		  AND ($4::text IS NULL OR purchase_id = $4)
		ORDER BY created_at DESC
		LIMIT 1
	`, userID, kind, auctionID, purchaseID)
	return row, err
}

// PaidEntry fetches the PAID entry of a kind for a user, optionally scoped
// to an auction. Used for bid eligibility and for applying the EMD. A nil
// tx reads outside any transaction.
func (s *LedgerStore) PaidEntry(ctx context.Context, tx Getter, userID string, kind models.LedgerKind, auctionID *string) (models.LedgerEntry, error) {
	g := Getter(s.db)
	if tx != nil {
		g = tx
	}
	var row models.LedgerEntry
	err := g.GetContext(ctx, &row, `
		SELECT `+ledgerColumns+`
		FROM ledger_entries
		WHERE user_id = $1 AND kind = $2 AND status = 'PAID'
		  AND ($3::text IS NULL OR auction_id = $3)
		ORDER BY created_at DESC
		LIMIT 1
	`, userID, kind, auctionID)
	return row, err
}

// ReleaseEMDHold detaches a PAID EMD entry from its auction after a
// rejected settlement: the deposit stays with the platform as available,
// it is not refunded away.
func (s *LedgerStore) ReleaseEMDHold(ctx context.Context, tx Execer, userID, auctionID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE ledger_entries
		SET auction_id = NULL, updated_at = NOW()
		WHERE user_id = $1 AND auction_id = $2 AND kind = 'EMD' AND status = 'PAID'
	`, userID, auctionID)
	return err
}

// SetGatewayRef stamps the entry with the provider reference once a
// payment has been initiated for it.
func (s *LedgerStore) SetGatewayRef(ctx context.Context, tx Execer, entryID, gatewayRef string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE ledger_entries
		SET gateway_ref = $1, updated_at = NOW()
		WHERE id = $2
	`, gatewayRef, entryID)
	return err
}

// AttachPurchase links settlement-time entries to the Purchase they fund.
func (s *LedgerStore) AttachPurchase(ctx context.Context, tx Execer, entryID, purchaseID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE ledger_entries
		SET purchase_id = $1, updated_at = NOW()
		WHERE id = $2
	`, purchaseID, entryID)
	return err
}

// OutstandingRow is one line of the admin dues report.
type OutstandingRow struct {
	UserID      string `db:"user_id" json:"user_id"`
	Outstanding int64  `db:"outstanding" json:"outstanding"`
	Entries     int    `db:"entries" json:"entries"`
}

// OutstandingReport aggregates DUE amounts per user, largest debtors first.
func (s *LedgerStore) OutstandingReport(ctx context.Context, limit, offset int) ([]OutstandingRow, error) {
	var rows []OutstandingRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT user_id, COALESCE(SUM(amount), 0) AS outstanding, COUNT(1) AS entries
		FROM ledger_entries
		WHERE status = 'DUE'
		GROUP BY user_id
		ORDER BY outstanding DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	return rows, err
}

func (s *LedgerStore) OutstandingByUser(ctx context.Context, userID string) (int64, error) {
	var sum int64
	err := s.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE user_id = $1 AND status = 'DUE'
	`, userID)
	return sum, err
}

func (s *LedgerStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.LedgerEntry, error) {
	var rows []models.LedgerEntry
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+ledgerColumns+`
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
