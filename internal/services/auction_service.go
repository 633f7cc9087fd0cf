package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"vahanbid/internal/db"
	"vahanbid/internal/models"
	"vahanbid/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Settler resolves an auction's effective state against the clock and, if
// it just ended, performs winner determination. Implemented by
// SettlementService.
type Settler interface {
	Resolve(ctx context.Context, auctionID string) (models.Auction, error)
}

// AuctionService owns auction creation and the timed state machine reads.
// State is never trusted from the persisted row: every read resolves it
// from the clock first (see models.Auction.StateAt) and hands ended
// auctions to the settler.
type AuctionService struct {
	txRunner db.TxRunner
	auctions AuctionStore
	listings ListingStore
	audit    AuditStore
	settler  Settler
}

func NewAuctionService(txRunner db.TxRunner, auctions AuctionStore, listings ListingStore, audit AuditStore, settler Settler) *AuctionService {
	return &AuctionService{
		txRunner: txRunner,
		auctions: auctions,
		listings: listings,
		audit:    audit,
		settler:  settler,
	}
}

type CreateAuctionRequest struct {
	ListingID        string
	BiddingType      models.BiddingType
	StartTime        time.Time
	EndTime          time.Time
	MinimumIncrement int64
	ReservePrice     *int64
	EMDRequired      bool
	EMDAmount        int64
}

// Create schedules an auction for an already-approved auction-mode listing
// that does not have one yet (the usual path creates it inside listing
// approval; this covers re-auctioning after a rejected settlement).
func (s *AuctionService) Create(ctx context.Context, actorID string, req CreateAuctionRequest) (models.Auction, error) {
	now := time.Now()
	if req.StartTime.Before(now.Add(-time.Minute)) {
		return models.Auction{}, validationErr("start_time", "must not be in the past")
	}
	if !req.EndTime.After(req.StartTime) {
		return models.Auction{}, validationErr("end_time", "must be after start_time")
	}
	if req.BiddingType != models.BiddingOpen && req.BiddingType != models.BiddingSealed {
		return models.Auction{}, validationErr("bidding_type", "must be OPEN or SEALED")
	}
	if req.BiddingType == models.BiddingOpen && req.MinimumIncrement <= 0 {
		return models.Auction{}, validationErr("minimum_increment", "must be positive")
	}
	if req.EMDRequired && req.EMDAmount <= 0 {
		return models.Auction{}, validationErr("emd_amount", "must be positive")
	}

	auctionID := uuid.NewString()
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		listing, err := s.listings.GetForUpdate(ctx, tx, req.ListingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if listing.SaleMode != models.SaleModeAuction {
			return invalidState("listing", string(listing.SaleMode), "auction")
		}
		if listing.ModerationState != models.ModerationApproved {
			return invalidState("listing", string(listing.ModerationState), "auction")
		}
		existing, err := s.auctions.GetByListingTx(ctx, tx, req.ListingID)
		if err == nil && existing.SellerApproval != models.ApprovalRejected && existing.SellerApproval != models.ApprovalNone {
			return invalidState("listing", "already auctioned", "auction")
		}
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		if err := s.auctions.Create(ctx, tx, store.AuctionInput{
			ID:               auctionID,
			ListingID:        req.ListingID,
			BiddingType:      req.BiddingType,
			StartTime:        req.StartTime,
			EndTime:          req.EndTime,
			MinimumIncrement: req.MinimumIncrement,
			ReservePrice:     req.ReservePrice,
			EMDRequired:      req.EMDRequired,
			EMDAmount:        req.EMDAmount,
		}); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"listing_id": req.ListingID, "bidding_type": string(req.BiddingType)})
		return s.audit.Log(ctx, tx, actorID, "auction.create", "auction", auctionID, string(data))
	})
	if err != nil {
		return models.Auction{}, err
	}
	return s.auctions.GetByID(ctx, auctionID)
}

// Get returns the auction with its state resolved against the clock. A
// stale persisted state is repaired through the settler so a freshly
// ended auction gets its winner determined by whoever looks first.
func (s *AuctionService) Get(ctx context.Context, auctionID string) (models.Auction, error) {
	auction, err := s.auctions.GetByID(ctx, auctionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Auction{}, ErrNotFound
		}
		return models.Auction{}, err
	}
	now := time.Now()
	resolved := auction.StateAt(now)
	if resolved == auction.State && !(resolved == models.AuctionEnded && auction.SellerApproval == models.ApprovalUnset) {
		return auction, nil
	}
	return s.settler.Resolve(ctx, auctionID)
}

// Sweep eagerly resolves auctions past their end time. Purely an
// efficiency measure: the lazy read path gives the same answers without it.
func (s *AuctionService) Sweep(ctx context.Context, limit int) error {
	ended, err := s.auctions.ListEndedUnsettled(ctx, time.Now(), limit)
	if err != nil {
		return err
	}
	for _, auction := range ended {
		if _, err := s.settler.Resolve(ctx, auction.ID); err != nil {
			return err
		}
	}
	return nil
}

// RunSweeper drives Sweep on a ticker until the context is cancelled.
func (s *AuctionService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx, 100); err != nil {
				slog.Error("auction sweep failed", "error", err)
			}
		}
	}
}
