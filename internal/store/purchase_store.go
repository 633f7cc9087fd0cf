package store

import (
	"context"

	"vahanbid/internal/models"
)

type PurchaseStore struct {
	db DB
}

func NewPurchaseStore(db DB) *PurchaseStore {
	return &PurchaseStore{db: db}
}

type PurchaseInput struct {
	ID             string
	ListingID      string
	AuctionID      *string
	BuyerID        string
	PurchasePrice  int64
	PurchaseType   models.PurchaseType
	Status         models.PurchaseStatus
	EMDApplied     bool
	EMDAmount      int64
	BalanceAmount  int64
	TransactionFee int64
}

const purchaseColumns = `
	id, listing_id, auction_id, buyer_id, purchase_price, purchase_type, status,
	emd_applied, emd_amount, balance_amount, transaction_fee, transaction_fee_paid, created_at
`

func (s *PurchaseStore) Create(ctx context.Context, tx Execer, input PurchaseInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO purchases (id, listing_id, auction_id, buyer_id, purchase_price, purchase_type,
		                       status, emd_applied, emd_amount, balance_amount, transaction_fee,
		                       transaction_fee_paid)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, FALSE)
	`, input.ID, input.ListingID, input.AuctionID, input.BuyerID, input.PurchasePrice,
		input.PurchaseType, input.Status, input.EMDApplied, input.EMDAmount,
		input.BalanceAmount, input.TransactionFee)
	return err
}

func (s *PurchaseStore) GetByID(ctx context.Context, purchaseID string) (models.Purchase, error) {
	var row models.Purchase
	err := s.db.GetContext(ctx, &row, `
		SELECT `+purchaseColumns+`
		FROM purchases
		WHERE id = $1
	`, purchaseID)
	return row, err
}

func (s *PurchaseStore) GetForUpdate(ctx context.Context, tx Getter, purchaseID string) (models.Purchase, error) {
	var row models.Purchase
	err := tx.GetContext(ctx, &row, `
		SELECT `+purchaseColumns+`
		FROM purchases
		WHERE id = $1
		FOR UPDATE
	`, purchaseID)
	return row, err
}

func (s *PurchaseStore) GetByAuction(ctx context.Context, tx Getter, auctionID string) (models.Purchase, error) {
	var row models.Purchase
	err := tx.GetContext(ctx, &row, `
		SELECT `+purchaseColumns+`
		FROM purchases
		WHERE auction_id = $1
	`, auctionID)
	return row, err
}

func (s *PurchaseStore) SetStatus(ctx context.Context, tx Execer, purchaseID string, status models.PurchaseStatus) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE purchases
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, purchaseID)
	return err
}

func (s *PurchaseStore) MarkTransactionFeePaid(ctx context.Context, tx Execer, purchaseID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE purchases
		SET transaction_fee_paid = TRUE, updated_at = NOW()
		WHERE id = $1
	`, purchaseID)
	return err
}

func (s *PurchaseStore) ListByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]models.Purchase, error) {
	var rows []models.Purchase
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+purchaseColumns+`
		FROM purchases
		WHERE buyer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, buyerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
