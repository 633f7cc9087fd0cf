package store

import (
	"context"
	"time"

	"vahanbid/internal/models"
)

type AuctionStore struct {
	db DB
}

func NewAuctionStore(db DB) *AuctionStore {
	return &AuctionStore{db: db}
}

type AuctionInput struct {
	ID               string
	ListingID        string
	BiddingType      models.BiddingType
	StartTime        time.Time
	EndTime          time.Time
	MinimumIncrement int64
	ReservePrice     *int64
	EMDRequired      bool
	EMDAmount        int64
}

const auctionColumns = `
	id, listing_id, bidding_type, start_time, end_time, minimum_increment,
	reserve_price, emd_required, emd_amount, state, current_bid, winner_id,
	seller_approval_status, created_at, updated_at
`

func (s *AuctionStore) Create(ctx context.Context, tx Execer, input AuctionInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO auctions (id, listing_id, bidding_type, start_time, end_time,
		                      minimum_increment, reserve_price, emd_required, emd_amount,
		                      state, seller_approval_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'SCHEDULED', 'UNSET')
	`, input.ID, input.ListingID, input.BiddingType, input.StartTime, input.EndTime,
		input.MinimumIncrement, input.ReservePrice, input.EMDRequired, input.EMDAmount)
	return err
}

func (s *AuctionStore) GetByID(ctx context.Context, auctionID string) (models.Auction, error) {
	var row models.Auction
	err := s.db.GetContext(ctx, &row, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE id = $1
	`, auctionID)
	return row, err
}

func (s *AuctionStore) GetByListing(ctx context.Context, listingID string) (models.Auction, error) {
	var row models.Auction
	err := s.db.GetContext(ctx, &row, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE listing_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, listingID)
	return row, err
}

// GetByListingTx is GetByListing read through an open transaction, for
// checks that must see the transaction's own view of the listing.
func (s *AuctionStore) GetByListingTx(ctx context.Context, tx Getter, listingID string) (models.Auction, error) {
	var row models.Auction
	err := tx.GetContext(ctx, &row, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE listing_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, listingID)
	return row, err
}

// GetForUpdate takes the per-auction row lock. All bid admission and
// settlement work happens while holding it.
func (s *AuctionStore) GetForUpdate(ctx context.Context, tx Getter, auctionID string) (models.Auction, error) {
	var row models.Auction
	err := tx.GetContext(ctx, &row, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE id = $1
		FOR UPDATE
	`, auctionID)
	return row, err
}

// PersistState caches a clock-resolved state. The guard keeps ENDED
// absorbing even if two resolvers race.
func (s *AuctionStore) PersistState(ctx context.Context, tx Execer, auctionID string, state models.AuctionState) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE auctions
		SET state = $1, updated_at = NOW()
		WHERE id = $2 AND state <> 'ENDED'
	`, state, auctionID)
	return err
}

func (s *AuctionStore) SetCurrentBid(ctx context.Context, tx Execer, auctionID string, amount int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE auctions
		SET current_bid = $1, updated_at = NOW()
		WHERE id = $2
	`, amount, auctionID)
	return err
}

// ClaimSettlement records the winner determination outcome. The UNSET guard
// makes the claim at-most-once: a second settler affects zero rows.
func (s *AuctionStore) ClaimSettlement(ctx context.Context, tx Execer, auctionID string, winnerID *string, status models.ApprovalStatus) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE auctions
		SET winner_id = $1, seller_approval_status = $2, state = 'ENDED', updated_at = NOW()
		WHERE id = $3 AND seller_approval_status = 'UNSET'
	`, winnerID, status, auctionID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetApproval flips PENDING to APPROVED or REJECTED. Zero rows affected
// means the gate was not PENDING any more.
func (s *AuctionStore) SetApproval(ctx context.Context, tx Execer, auctionID string, status models.ApprovalStatus) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE auctions
		SET seller_approval_status = $1, updated_at = NOW()
		WHERE id = $2 AND seller_approval_status = 'PENDING'
	`, status, auctionID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListEndedUnsettled feeds the periodic sweep: auctions past their end time
// that nobody has resolved yet.
func (s *AuctionStore) ListEndedUnsettled(ctx context.Context, now time.Time, limit int) ([]models.Auction, error) {
	var rows []models.Auction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE end_time <= $1 AND seller_approval_status = 'UNSET'
		ORDER BY end_time
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *AuctionStore) List(ctx context.Context, state string, limit, offset int) ([]models.Auction, error) {
	var rows []models.Auction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE ($1 = '' OR state = $1)
		ORDER BY start_time DESC
		LIMIT $2 OFFSET $3
	`, state, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
