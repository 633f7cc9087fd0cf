package store

import (
	"context"
	"time"

	"vahanbid/internal/models"
)

type BidStore struct {
	db DB
}

func NewBidStore(db DB) *BidStore {
	return &BidStore{db: db}
}

type BidInput struct {
	ID        string
	AuctionID string
	BidderID  string
	Amount    int64
	PlacedAt  time.Time
}

const bidColumns = `id, auction_id, bidder_id, amount, sealed, is_winning, placed_at`

// InsertOpen persists an accepted ascending bid as the new winner. The
// caller clears the previous winner's flag first, under the auction lock.
func (s *BidStore) InsertOpen(ctx context.Context, tx Execer, input BidInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO bids (id, auction_id, bidder_id, amount, sealed, is_winning, placed_at)
		VALUES ($1, $2, $3, $4, FALSE, TRUE, $5)
	`, input.ID, input.AuctionID, input.BidderID, input.Amount, input.PlacedAt)
	return err
}

func (s *BidStore) ClearWinning(ctx context.Context, tx Execer, auctionID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE bids
		SET is_winning = FALSE
		WHERE auction_id = $1 AND is_winning = TRUE
	`, auctionID)
	return err
}

// UpsertSealed keeps at most one sealed bid per (auction, bidder): a second
// bid from the same bidder replaces the first, amount and timestamp both.
// Returns the id of the surviving row, which on a replace is the original
// bid's id rather than input.ID.
func (s *BidStore) UpsertSealed(ctx context.Context, tx Getter, input BidInput) (string, error) {
	var id string
	err := tx.GetContext(ctx, &id, `
		INSERT INTO bids (id, auction_id, bidder_id, amount, sealed, is_winning, placed_at)
		VALUES ($1, $2, $3, $4, TRUE, FALSE, $5)
		ON CONFLICT (auction_id, bidder_id) WHERE sealed
		DO UPDATE SET amount = EXCLUDED.amount, placed_at = EXCLUDED.placed_at
		RETURNING id
	`, input.ID, input.AuctionID, input.BidderID, input.Amount, input.PlacedAt)
	return id, err
}

func (s *BidStore) WinningBid(ctx context.Context, tx Getter, auctionID string) (models.Bid, error) {
	var row models.Bid
	err := tx.GetContext(ctx, &row, `
		SELECT `+bidColumns+`
		FROM bids
		WHERE auction_id = $1 AND is_winning = TRUE
	`, auctionID)
	return row, err
}

// TopSealed returns the highest sealed bid; ties go to the earliest bidder
// to reach that amount.
func (s *BidStore) TopSealed(ctx context.Context, tx Getter, auctionID string) (models.Bid, error) {
	var row models.Bid
	err := tx.GetContext(ctx, &row, `
		SELECT `+bidColumns+`
		FROM bids
		WHERE auction_id = $1 AND sealed
		ORDER BY amount DESC, placed_at ASC
		LIMIT 1
	`, auctionID)
	return row, err
}

func (s *BidStore) SetWinning(ctx context.Context, tx Execer, bidID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE bids
		SET is_winning = TRUE
		WHERE id = $1
	`, bidID)
	return err
}

func (s *BidStore) ListByAuction(ctx context.Context, auctionID string) ([]models.Bid, error) {
	var rows []models.Bid
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+bidColumns+`
		FROM bids
		WHERE auction_id = $1
		ORDER BY placed_at DESC
	`, auctionID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *BidStore) OwnBid(ctx context.Context, auctionID, bidderID string) (models.Bid, error) {
	var row models.Bid
	err := s.db.GetContext(ctx, &row, `
		SELECT `+bidColumns+`
		FROM bids
		WHERE auction_id = $1 AND bidder_id = $2
		ORDER BY placed_at DESC
		LIMIT 1
	`, auctionID, bidderID)
	return row, err
}
