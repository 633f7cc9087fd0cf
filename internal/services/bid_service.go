package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"vahanbid/internal/db"
	"vahanbid/internal/events"
	"vahanbid/internal/models"
	"vahanbid/internal/money"
	"vahanbid/internal/observability"
	"vahanbid/internal/store"
	"vahanbid/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// BidService admits bids under the two protocols. All admission work for
// one auction is serialized behind the auction row lock, so the increment
// check and the currentBid update are atomic with respect to any
// concurrent bid on the same auction.
type BidService struct {
	txRunner  db.TxRunner
	auctions  AuctionStore
	bids      BidStore
	users     UserStore
	ledger    LedgerStore
	audit     AuditStore
	hub       BidHub
	publisher EventPublisher
}

func NewBidService(txRunner db.TxRunner, auctions AuctionStore, bids BidStore, users UserStore, ledger LedgerStore, audit AuditStore, hub BidHub, publisher EventPublisher) *BidService {
	return &BidService{
		txRunner:  txRunner,
		auctions:  auctions,
		bids:      bids,
		users:     users,
		ledger:    ledger,
		audit:     audit,
		hub:       hub,
		publisher: publisher,
	}
}

type PlaceBidRequest struct {
	AuctionID string
	BidderID  string
	Amount    int64
}

type PlaceBidResult struct {
	Bid     models.Bid
	Auction models.Auction
}

func (s *BidService) Place(ctx context.Context, req PlaceBidRequest) (PlaceBidResult, error) {
	started := time.Now()
	defer func() {
		observability.BidAdmissionDuration.Observe(time.Since(started).Seconds())
	}()

	if req.Amount <= 0 {
		observability.BidsRejected.WithLabelValues("invalid_amount").Inc()
		return PlaceBidResult{}, validationErr("amount", "must be positive")
	}

	var result PlaceBidResult
	var openAccepted bool
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		openAccepted = false
		auction, err := s.auctions.GetForUpdate(ctx, tx, req.AuctionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		now := time.Now()
		state := auction.StateAt(now)
		if state != auction.State {
			if err := s.auctions.PersistState(ctx, tx, auction.ID, state); err != nil {
				return err
			}
			auction.State = state
		}
		if state != models.AuctionLive {
			return invalidState("auction", string(state), "bid")
		}

		if err := s.checkEligibility(ctx, tx, auction, req.BidderID); err != nil {
			return err
		}

		bid := models.Bid{
			ID:        uuid.NewString(),
			AuctionID: auction.ID,
			BidderID:  req.BidderID,
			Amount:    req.Amount,
			PlacedAt:  now,
		}

		switch auction.BiddingType {
		case models.BiddingOpen:
			floor := int64(0)
			if auction.ReservePrice != nil {
				floor = *auction.ReservePrice
			}
			if auction.CurrentBid != nil {
				floor = *auction.CurrentBid + auction.MinimumIncrement
			}
			if req.Amount < floor {
				return ErrBidTooLow
			}
			if err := s.bids.ClearWinning(ctx, tx, auction.ID); err != nil {
				return err
			}
			bid.IsWinning = true
			if err := s.bids.InsertOpen(ctx, tx, store.BidInput{
				ID:        bid.ID,
				AuctionID: bid.AuctionID,
				BidderID:  bid.BidderID,
				Amount:    bid.Amount,
				PlacedAt:  bid.PlacedAt,
			}); err != nil {
				return err
			}
			if err := s.auctions.SetCurrentBid(ctx, tx, auction.ID, req.Amount); err != nil {
				return err
			}
			auction.CurrentBid = &bid.Amount
			openAccepted = true
		case models.BiddingSealed:
			bid.Sealed = true
			// A rebid replaces the bidder's earlier row, so carry the
			// surviving row's id into the response.
			persistedID, err := s.bids.UpsertSealed(ctx, tx, store.BidInput{
				ID:        bid.ID,
				AuctionID: bid.AuctionID,
				BidderID:  bid.BidderID,
				Amount:    bid.Amount,
				PlacedAt:  bid.PlacedAt,
			})
			if err != nil {
				return err
			}
			bid.ID = persistedID
		default:
			return invalidState("auction", string(auction.BiddingType), "bid")
		}

		result = PlaceBidResult{Bid: bid, Auction: auction}
		data, _ := json.Marshal(map[string]any{"amount": bid.Amount, "protocol": auction.BiddingType})
		return s.audit.Log(ctx, tx, req.BidderID, "bid.place", "auction", auction.ID, string(data))
	})
	if err != nil {
		if errors.Is(err, ErrBidTooLow) {
			observability.BidsRejected.WithLabelValues("too_low").Inc()
		}
		var elig *EligibilityError
		if errors.As(err, &elig) {
			observability.BidsRejected.WithLabelValues("ineligible").Inc()
		}
		return PlaceBidResult{}, err
	}

	observability.BidsAccepted.WithLabelValues(string(result.Auction.BiddingType)).Inc()
	if openAccepted {
		// Only OPEN auctions get a live feed; sealed amounts stay hidden
		// until closure.
		s.hub.BroadcastBid(result.Auction.ID, websocket.BidUpdate{
			AuctionID:  result.Auction.ID,
			CurrentBid: money.FormatMinor(result.Bid.Amount),
		})
		s.publisher.Publish(ctx, events.TopicBidAccepted, map[string]any{
			"auction_id": result.Auction.ID,
			"amount":     result.Bid.Amount,
			"placed_at":  result.Bid.PlacedAt,
		})
	}
	return result, nil
}

func (s *BidService) checkEligibility(ctx context.Context, tx store.Tx, auction models.Auction, bidderID string) error {
	user, err := s.users.GetByID(ctx, bidderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &EligibilityError{Reason: "unknown bidder"}
		}
		return err
	}
	if user.KYCStatus != models.KYCApproved {
		return &EligibilityError{Reason: "KYC not approved"}
	}
	if !user.EligibleForBid {
		return &EligibilityError{Reason: "bidding disabled for account"}
	}
	if !user.RegistrationFeePaid {
		return &EligibilityError{Reason: "registration fee unpaid"}
	}
	if auction.EMDRequired {
		if _, err := s.ledger.PaidEntry(ctx, tx, bidderID, models.LedgerEMD, &auction.ID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &EligibilityError{Reason: "EMD unpaid"}
			}
			return err
		}
	}
	return nil
}
