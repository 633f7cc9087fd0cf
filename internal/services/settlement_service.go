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
	"vahanbid/internal/observability"
	"vahanbid/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// SettlementService turns an ended auction into a binding Purchase. Winner
// determination runs at most once per auction: the first caller to observe
// ENDED with the approval gate unset claims it under the auction row lock,
// everyone after that sees the recorded outcome.
type SettlementService struct {
	txRunner  db.TxRunner
	auctions  AuctionStore
	bids      BidStore
	listings  ListingStore
	purchases PurchaseStore
	ledger    LedgerStore
	audit     AuditStore
	publisher EventPublisher
	feeRate   decimal.Decimal
}

func NewSettlementService(txRunner db.TxRunner, auctions AuctionStore, bids BidStore, listings ListingStore, purchases PurchaseStore, ledger LedgerStore, audit AuditStore, publisher EventPublisher, feeRate decimal.Decimal) *SettlementService {
	return &SettlementService{
		txRunner:  txRunner,
		auctions:  auctions,
		bids:      bids,
		listings:  listings,
		purchases: purchases,
		ledger:    ledger,
		audit:     audit,
		publisher: publisher,
		feeRate:   feeRate,
	}
}

// Resolve re-derives the auction state from the clock, persists it, and
// performs winner determination if the auction just ended unsettled.
func (s *SettlementService) Resolve(ctx context.Context, auctionID string) (models.Auction, error) {
	var settledWinner *string
	var justSettled bool
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		auction, err := s.auctions.GetForUpdate(ctx, tx, auctionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		state := auction.StateAt(time.Now())
		if state != auction.State {
			if err := s.auctions.PersistState(ctx, tx, auction.ID, state); err != nil {
				return err
			}
			auction.State = state
		}
		if state != models.AuctionEnded || auction.SellerApproval != models.ApprovalUnset {
			return nil
		}
		winnerID, err := s.settleLocked(ctx, tx, auction)
		if err != nil {
			return err
		}
		settledWinner = winnerID
		justSettled = true
		return nil
	})
	if err != nil {
		return models.Auction{}, err
	}
	if justSettled {
		outcome := "no_winner"
		if settledWinner != nil {
			outcome = "winner_pending_approval"
		}
		observability.AuctionsSettled.WithLabelValues(outcome).Inc()
		s.publisher.Publish(ctx, events.TopicAuctionEnded, map[string]any{
			"auction_id": auctionID,
			"winner_id":  settledWinner,
		})
	}
	return s.auctions.GetByID(ctx, auctionID)
}

// settleLocked determines the winner for an ENDED, unsettled auction. The
// caller holds the auction row lock.
func (s *SettlementService) settleLocked(ctx context.Context, tx *sqlx.Tx, auction models.Auction) (*string, error) {
	var winnerID *string
	switch auction.BiddingType {
	case models.BiddingOpen:
		// OPEN admission already enforced the reserve on the first bid,
		// so a winning flag is enough.
		winning, err := s.bids.WinningBid(ctx, tx, auction.ID)
		if err == nil {
			winnerID = &winning.BidderID
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	case models.BiddingSealed:
		top, err := s.bids.TopSealed(ctx, tx, auction.ID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		if err == nil && (auction.ReservePrice == nil || top.Amount >= *auction.ReservePrice) {
			winnerID = &top.BidderID
			if err := s.bids.SetWinning(ctx, tx, top.ID); err != nil {
				return nil, err
			}
		}
	}

	status := models.ApprovalNone
	if winnerID != nil {
		status = models.ApprovalPending
	}
	rows, err := s.auctions.ClaimSettlement(ctx, tx, auction.ID, winnerID, status)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		// A concurrent resolver won the claim; nothing else to do.
		return nil, ErrConflict
	}
	data, _ := json.Marshal(map[string]any{"winner_id": winnerID, "status": status})
	if err := s.audit.Log(ctx, tx, "system", "auction.settle", "auction", auction.ID, string(data)); err != nil {
		return nil, err
	}
	return winnerID, nil
}

// ApproveBid confirms the winning bid and creates the Purchase. Calling it
// again after approval is a no-op returning the existing Purchase; calling
// it before the auction ends, or after a rejection, is an invalid state.
func (s *SettlementService) ApproveBid(ctx context.Context, actorID, auctionID string) (models.Purchase, error) {
	var purchase models.Purchase
	var created bool
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		created = false
		auction, err := s.auctions.GetForUpdate(ctx, tx, auctionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		state := auction.StateAt(time.Now())
		if state != models.AuctionEnded {
			return invalidState("auction", string(state), "approve bid")
		}
		if auction.State != models.AuctionEnded {
			if err := s.auctions.PersistState(ctx, tx, auction.ID, models.AuctionEnded); err != nil {
				return err
			}
			auction.State = models.AuctionEnded
		}
		if auction.SellerApproval == models.ApprovalUnset {
			winnerID, err := s.settleLocked(ctx, tx, auction)
			if err != nil {
				return err
			}
			auction.WinnerID = winnerID
			auction.SellerApproval = models.ApprovalNone
			if winnerID != nil {
				auction.SellerApproval = models.ApprovalPending
			}
		}

		switch auction.SellerApproval {
		case models.ApprovalApproved:
			existing, err := s.purchases.GetByAuction(ctx, tx, auctionID)
			if err != nil {
				return err
			}
			purchase = existing
			return nil
		case models.ApprovalRejected, models.ApprovalNone:
			return invalidState("auction approval", string(auction.SellerApproval), "approve bid")
		}

		rows, err := s.auctions.SetApproval(ctx, tx, auctionID, models.ApprovalApproved)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrConflict
		}

		winning, err := s.bids.WinningBid(ctx, tx, auctionID)
		if err != nil {
			return err
		}
		fee := s.transactionFee(winning.Amount)

		emdApplied := false
		var emdAmount int64
		var emdEntryID string
		if auction.EMDRequired {
			entry, err := s.ledger.PaidEntry(ctx, tx, winning.BidderID, models.LedgerEMD, &auctionID)
			if err == nil {
				emdApplied = true
				emdAmount = entry.Amount
				emdEntryID = entry.ID
			} else if !errors.Is(err, sql.ErrNoRows) {
				return err
			}
		}
		balance := winning.Amount - emdAmount

		purchaseID := uuid.NewString()
		if err := s.purchases.Create(ctx, tx, store.PurchaseInput{
			ID:             purchaseID,
			ListingID:      auction.ListingID,
			AuctionID:      &auctionID,
			BuyerID:        winning.BidderID,
			PurchasePrice:  winning.Amount,
			PurchaseType:   models.PurchaseAuction,
			Status:         models.PurchasePaymentPending,
			EMDApplied:     emdApplied,
			EMDAmount:      emdAmount,
			BalanceAmount:  balance,
			TransactionFee: fee,
		}); err != nil {
			return err
		}
		if emdEntryID != "" {
			if err := s.ledger.AttachPurchase(ctx, tx, emdEntryID, purchaseID); err != nil {
				return err
			}
		}
		if err := s.ledger.Insert(ctx, tx, store.LedgerEntryInput{
			ID:         uuid.NewString(),
			UserID:     winning.BidderID,
			AuctionID:  &auctionID,
			PurchaseID: &purchaseID,
			Kind:       models.LedgerTransactionFee,
			Amount:     fee,
			Status:     models.LedgerDue,
		}); err != nil {
			return err
		}
		if err := s.ledger.Insert(ctx, tx, store.LedgerEntryInput{
			ID:         uuid.NewString(),
			UserID:     winning.BidderID,
			AuctionID:  &auctionID,
			PurchaseID: &purchaseID,
			Kind:       models.LedgerBalance,
			Amount:     balance,
			Status:     models.LedgerDue,
		}); err != nil {
			return err
		}
		if err := s.listings.SetModerationState(ctx, tx, auction.ListingID, models.ModerationSold, nil); err != nil {
			return err
		}

		purchase, err = s.purchases.GetByAuction(ctx, tx, auctionID)
		if err != nil {
			return err
		}
		created = true
		data, _ := json.Marshal(map[string]any{"purchase_id": purchaseID, "amount": winning.Amount, "fee": fee})
		return s.audit.Log(ctx, tx, actorID, "bid.approve", "auction", auctionID, string(data))
	})
	if err != nil {
		return models.Purchase{}, err
	}
	if created {
		observability.AuctionsSettled.WithLabelValues("approved").Inc()
		s.publisher.Publish(ctx, events.TopicPurchaseCreated, map[string]any{
			"purchase_id": purchase.ID,
			"auction_id":  auctionID,
			"amount":      purchase.PurchasePrice,
		})
	}
	return purchase, nil
}

// RejectBid declines the winning bid: the listing goes back to APPROVED so
// it can be re-auctioned, the winner's EMD hold is released, and no
// Purchase is ever created. Rejecting twice is a no-op; rejecting after an
// approval is an invalid state.
func (s *SettlementService) RejectBid(ctx context.Context, actorID, auctionID, reason string) (models.Auction, error) {
	if len(reason) < minRejectionReasonLen {
		return models.Auction{}, validationErr("reason", "must be at least 10 characters")
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		auction, err := s.auctions.GetForUpdate(ctx, tx, auctionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		switch auction.SellerApproval {
		case models.ApprovalRejected:
			return nil
		case models.ApprovalApproved:
			return invalidState("auction approval", "APPROVED", "reject bid")
		case models.ApprovalUnset, models.ApprovalNone:
			return invalidState("auction approval", string(auction.SellerApproval), "reject bid")
		}

		rows, err := s.auctions.SetApproval(ctx, tx, auctionID, models.ApprovalRejected)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrConflict
		}
		if err := s.listings.SetModerationState(ctx, tx, auction.ListingID, models.ModerationApproved, nil); err != nil {
			return err
		}
		if auction.WinnerID != nil {
			if err := s.ledger.ReleaseEMDHold(ctx, tx, *auction.WinnerID, auctionID); err != nil {
				return err
			}
		}
		data, _ := json.Marshal(map[string]string{"reason": reason})
		return s.audit.Log(ctx, tx, actorID, "bid.reject", "auction", auctionID, string(data))
	})
	if err != nil {
		return models.Auction{}, err
	}
	observability.AuctionsSettled.WithLabelValues("rejected").Inc()
	return s.auctions.GetByID(ctx, auctionID)
}

// ConfirmFixedPrice creates the Purchase for a fixed-price listing on
// buyer confirmation. No auction, no EMD: the full listing price becomes
// the balance.
func (s *SettlementService) ConfirmFixedPrice(ctx context.Context, buyerID, listingID string) (models.Purchase, error) {
	purchaseID := uuid.NewString()
	var price, fee int64
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		listing, err := s.listings.GetForUpdate(ctx, tx, listingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if listing.SaleMode != models.SaleModeFixed {
			return invalidState("listing", string(listing.SaleMode), "buy")
		}
		if listing.ModerationState != models.ModerationApproved {
			return invalidState("listing", string(listing.ModerationState), "buy")
		}

		price = listing.ListingPrice
		fee = s.transactionFee(price)
		if err := s.purchases.Create(ctx, tx, store.PurchaseInput{
			ID:             purchaseID,
			ListingID:      listingID,
			BuyerID:        buyerID,
			PurchasePrice:  price,
			PurchaseType:   models.PurchaseFixed,
			Status:         models.PurchasePending,
			BalanceAmount:  price,
			TransactionFee: fee,
		}); err != nil {
			return err
		}
		if err := s.ledger.Insert(ctx, tx, store.LedgerEntryInput{
			ID:         uuid.NewString(),
			UserID:     buyerID,
			PurchaseID: &purchaseID,
			Kind:       models.LedgerTransactionFee,
			Amount:     fee,
			Status:     models.LedgerDue,
		}); err != nil {
			return err
		}
		if err := s.ledger.Insert(ctx, tx, store.LedgerEntryInput{
			ID:         uuid.NewString(),
			UserID:     buyerID,
			PurchaseID: &purchaseID,
			Kind:       models.LedgerBalance,
			Amount:     price,
			Status:     models.LedgerDue,
		}); err != nil {
			return err
		}
		if err := s.listings.SetModerationState(ctx, tx, listingID, models.ModerationSold, nil); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]any{"purchase_id": purchaseID, "amount": price})
		return s.audit.Log(ctx, tx, buyerID, "listing.buy", "listing", listingID, string(data))
	})
	if err != nil {
		return models.Purchase{}, err
	}
	s.publisher.Publish(ctx, events.TopicPurchaseCreated, map[string]any{
		"purchase_id": purchaseID,
		"listing_id":  listingID,
		"amount":      price,
	})
	return s.purchases.GetByID(ctx, purchaseID)
}

// transactionFee applies the promotional fee rate to the winning amount,
// once, at purchase creation. Banker's rounding on the paise.
func (s *SettlementService) transactionFee(amount int64) int64 {
	return decimal.NewFromInt(amount).Mul(s.feeRate).RoundBank(0).IntPart()
}
