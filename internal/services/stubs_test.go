package services

import (
	"context"
	"database/sql"
	"time"

	"vahanbid/internal/models"
	"vahanbid/internal/store"
	"vahanbid/internal/websocket"

	"github.com/jmoiron/sqlx"
)

var errNoRows = sql.ErrNoRows

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type stubListingStore struct {
	createFn            func(ctx context.Context, tx store.Execer, input store.ListingInput) error
	getByIDFn           func(ctx context.Context, listingID string) (models.Listing, error)
	getForUpdateFn      func(ctx context.Context, tx store.Getter, listingID string) (models.Listing, error)
	setModerationFn     func(ctx context.Context, tx store.Execer, listingID string, state models.ModerationState, reason *string) error
	applyOverridesFn    func(ctx context.Context, tx store.Execer, listingID string, reservePrice *int64, oem *string, isCertified, isFinanceAvailable *bool) error
}

func (s stubListingStore) Create(ctx context.Context, tx store.Execer, input store.ListingInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
}

func (s stubListingStore) GetByID(ctx context.Context, listingID string) (models.Listing, error) {
	if s.getByIDFn == nil {
		return models.Listing{ID: listingID}, nil
	}
	return s.getByIDFn(ctx, listingID)
}

func (s stubListingStore) GetForUpdate(ctx context.Context, tx store.Getter, listingID string) (models.Listing, error) {
	return s.getForUpdateFn(ctx, tx, listingID)
}

func (s stubListingStore) SetModerationState(ctx context.Context, tx store.Execer, listingID string, state models.ModerationState, reason *string) error {
	if s.setModerationFn == nil {
		return nil
	}
	return s.setModerationFn(ctx, tx, listingID, state, reason)
}

func (s stubListingStore) ApplyApprovalOverrides(ctx context.Context, tx store.Execer, listingID string, reservePrice *int64, oem *string, isCertified, isFinanceAvailable *bool) error {
	if s.applyOverridesFn == nil {
		return nil
	}
	return s.applyOverridesFn(ctx, tx, listingID, reservePrice, oem, isCertified, isFinanceAvailable)
}

type stubAuctionStore struct {
	createFn             func(ctx context.Context, tx store.Execer, input store.AuctionInput) error
	getByIDFn            func(ctx context.Context, auctionID string) (models.Auction, error)
	getByListingFn       func(ctx context.Context, listingID string) (models.Auction, error)
	getByListingTxFn     func(ctx context.Context, tx store.Getter, listingID string) (models.Auction, error)
	getForUpdateFn       func(ctx context.Context, tx store.Getter, auctionID string) (models.Auction, error)
	persistStateFn       func(ctx context.Context, tx store.Execer, auctionID string, state models.AuctionState) error
	setCurrentBidFn      func(ctx context.Context, tx store.Execer, auctionID string, amount int64) error
	claimSettlementFn    func(ctx context.Context, tx store.Execer, auctionID string, winnerID *string, status models.ApprovalStatus) (int64, error)
	setApprovalFn        func(ctx context.Context, tx store.Execer, auctionID string, status models.ApprovalStatus) (int64, error)
	listEndedUnsettledFn func(ctx context.Context, now time.Time, limit int) ([]models.Auction, error)
}

func (s stubAuctionStore) Create(ctx context.Context, tx store.Execer, input store.AuctionInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
}

func (s stubAuctionStore) GetByID(ctx context.Context, auctionID string) (models.Auction, error) {
	if s.getByIDFn == nil {
		return models.Auction{ID: auctionID}, nil
	}
	return s.getByIDFn(ctx, auctionID)
}

func (s stubAuctionStore) GetByListing(ctx context.Context, listingID string) (models.Auction, error) {
	return s.getByListingFn(ctx, listingID)
}

func (s stubAuctionStore) GetByListingTx(ctx context.Context, tx store.Getter, listingID string) (models.Auction, error) {
	return s.getByListingTxFn(ctx, tx, listingID)
}

func (s stubAuctionStore) GetForUpdate(ctx context.Context, tx store.Getter, auctionID string) (models.Auction, error) {
	return s.getForUpdateFn(ctx, tx, auctionID)
}

func (s stubAuctionStore) PersistState(ctx context.Context, tx store.Execer, auctionID string, state models.AuctionState) error {
	if s.persistStateFn == nil {
		return nil
	}
	return s.persistStateFn(ctx, tx, auctionID, state)
}

func (s stubAuctionStore) SetCurrentBid(ctx context.Context, tx store.Execer, auctionID string, amount int64) error {
	if s.setCurrentBidFn == nil {
		return nil
	}
	return s.setCurrentBidFn(ctx, tx, auctionID, amount)
}

func (s stubAuctionStore) ClaimSettlement(ctx context.Context, tx store.Execer, auctionID string, winnerID *string, status models.ApprovalStatus) (int64, error) {
	if s.claimSettlementFn == nil {
		return 1, nil
	}
	return s.claimSettlementFn(ctx, tx, auctionID, winnerID, status)
}

func (s stubAuctionStore) SetApproval(ctx context.Context, tx store.Execer, auctionID string, status models.ApprovalStatus) (int64, error) {
	if s.setApprovalFn == nil {
		return 1, nil
	}
	return s.setApprovalFn(ctx, tx, auctionID, status)
}

func (s stubAuctionStore) ListEndedUnsettled(ctx context.Context, now time.Time, limit int) ([]models.Auction, error) {
	if s.listEndedUnsettledFn == nil {
		return nil, nil
	}
	return s.listEndedUnsettledFn(ctx, now, limit)
}

type stubBidStore struct {
	insertOpenFn   func(ctx context.Context, tx store.Execer, input store.BidInput) error
	clearWinningFn func(ctx context.Context, tx store.Execer, auctionID string) error
	upsertSealedFn func(ctx context.Context, tx store.Getter, input store.BidInput) (string, error)
	winningBidFn   func(ctx context.Context, tx store.Getter, auctionID string) (models.Bid, error)
	topSealedFn    func(ctx context.Context, tx store.Getter, auctionID string) (models.Bid, error)
	setWinningFn   func(ctx context.Context, tx store.Execer, bidID string) error
}

func (s stubBidStore) InsertOpen(ctx context.Context, tx store.Execer, input store.BidInput) error {
	if s.insertOpenFn == nil {
		return nil
	}
	return s.insertOpenFn(ctx, tx, input)
}

func (s stubBidStore) ClearWinning(ctx context.Context, tx store.Execer, auctionID string) error {
	if s.clearWinningFn == nil {
		return nil
	}
	return s.clearWinningFn(ctx, tx, auctionID)
}

func (s stubBidStore) UpsertSealed(ctx context.Context, tx store.Getter, input store.BidInput) (string, error) {
	if s.upsertSealedFn == nil {
		return input.ID, nil
	}
	return s.upsertSealedFn(ctx, tx, input)
}

func (s stubBidStore) WinningBid(ctx context.Context, tx store.Getter, auctionID string) (models.Bid, error) {
	return s.winningBidFn(ctx, tx, auctionID)
}

func (s stubBidStore) TopSealed(ctx context.Context, tx store.Getter, auctionID string) (models.Bid, error) {
	return s.topSealedFn(ctx, tx, auctionID)
}

func (s stubBidStore) SetWinning(ctx context.Context, tx store.Execer, bidID string) error {
	if s.setWinningFn == nil {
		return nil
	}
	return s.setWinningFn(ctx, tx, bidID)
}

type stubLedgerStore struct {
	insertFn            func(ctx context.Context, tx store.Execer, input store.LedgerEntryInput) error
	getByRefForUpdateFn func(ctx context.Context, tx store.Getter, gatewayRef string) (models.LedgerEntry, error)
	markPaidByRefFn     func(ctx context.Context, tx store.Execer, gatewayRef string) (int64, error)
	findOpenFn          func(ctx context.Context, userID string, kind models.LedgerKind, auctionID, purchaseID *string) (models.LedgerEntry, error)
	paidEntryFn         func(ctx context.Context, tx store.Getter, userID string, kind models.LedgerKind, auctionID *string) (models.LedgerEntry, error)
	releaseEMDHoldFn    func(ctx context.Context, tx store.Execer, userID, auctionID string) error
	attachPurchaseFn    func(ctx context.Context, tx store.Execer, entryID, purchaseID string) error
	setGatewayRefFn     func(ctx context.Context, tx store.Execer, entryID, gatewayRef string) error
	outstandingFn       func(ctx context.Context, userID string) (int64, error)
}

func (s stubLedgerStore) Insert(ctx context.Context, tx store.Execer, input store.LedgerEntryInput) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, tx, input)
}

func (s stubLedgerStore) GetByRefForUpdate(ctx context.Context, tx store.Getter, gatewayRef string) (models.LedgerEntry, error) {
	return s.getByRefForUpdateFn(ctx, tx, gatewayRef)
}

func (s stubLedgerStore) MarkPaidByRef(ctx context.Context, tx store.Execer, gatewayRef string) (int64, error) {
	if s.markPaidByRefFn == nil {
		return 1, nil
	}
	return s.markPaidByRefFn(ctx, tx, gatewayRef)
}

func (s stubLedgerStore) FindOpen(ctx context.Context, userID string, kind models.LedgerKind, auctionID, purchaseID *string) (models.LedgerEntry, error) {
	return s.findOpenFn(ctx, userID, kind, auctionID, purchaseID)
}

func (s stubLedgerStore) PaidEntry(ctx context.Context, tx store.Getter, userID string, kind models.LedgerKind, auctionID *string) (models.LedgerEntry, error) {
	return s.paidEntryFn(ctx, tx, userID, kind, auctionID)
}

func (s stubLedgerStore) ReleaseEMDHold(ctx context.Context, tx store.Execer, userID, auctionID string) error {
	if s.releaseEMDHoldFn == nil {
		return nil
	}
	return s.releaseEMDHoldFn(ctx, tx, userID, auctionID)
}

func (s stubLedgerStore) AttachPurchase(ctx context.Context, tx store.Execer, entryID, purchaseID string) error {
	if s.attachPurchaseFn == nil {
		return nil
	}
	return s.attachPurchaseFn(ctx, tx, entryID, purchaseID)
}

func (s stubLedgerStore) SetGatewayRef(ctx context.Context, tx store.Execer, entryID, gatewayRef string) error {
	if s.setGatewayRefFn == nil {
		return nil
	}
	return s.setGatewayRefFn(ctx, tx, entryID, gatewayRef)
}

func (s stubLedgerStore) OutstandingByUser(ctx context.Context, userID string) (int64, error) {
	if s.outstandingFn == nil {
		return 0, nil
	}
	return s.outstandingFn(ctx, userID)
}

type stubPurchaseStore struct {
	createFn       func(ctx context.Context, tx store.Execer, input store.PurchaseInput) error
	getByIDFn      func(ctx context.Context, purchaseID string) (models.Purchase, error)
	getForUpdateFn func(ctx context.Context, tx store.Getter, purchaseID string) (models.Purchase, error)
	getByAuctionFn func(ctx context.Context, tx store.Getter, auctionID string) (models.Purchase, error)
	setStatusFn    func(ctx context.Context, tx store.Execer, purchaseID string, status models.PurchaseStatus) error
	markFeePaidFn  func(ctx context.Context, tx store.Execer, purchaseID string) error
}

func (s stubPurchaseStore) Create(ctx context.Context, tx store.Execer, input store.PurchaseInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
}

func (s stubPurchaseStore) GetByID(ctx context.Context, purchaseID string) (models.Purchase, error) {
	if s.getByIDFn == nil {
		return models.Purchase{ID: purchaseID}, nil
	}
	return s.getByIDFn(ctx, purchaseID)
}

func (s stubPurchaseStore) GetForUpdate(ctx context.Context, tx store.Getter, purchaseID string) (models.Purchase, error) {
	return s.getForUpdateFn(ctx, tx, purchaseID)
}

func (s stubPurchaseStore) GetByAuction(ctx context.Context, tx store.Getter, auctionID string) (models.Purchase, error) {
	return s.getByAuctionFn(ctx, tx, auctionID)
}

func (s stubPurchaseStore) SetStatus(ctx context.Context, tx store.Execer, purchaseID string, status models.PurchaseStatus) error {
	if s.setStatusFn == nil {
		return nil
	}
	return s.setStatusFn(ctx, tx, purchaseID, status)
}

func (s stubPurchaseStore) MarkTransactionFeePaid(ctx context.Context, tx store.Execer, purchaseID string) error {
	if s.markFeePaidFn == nil {
		return nil
	}
	return s.markFeePaidFn(ctx, tx, purchaseID)
}

type stubUserStore struct {
	getByIDFn          func(ctx context.Context, userID string) (models.User, error)
	markRegistrationFn func(ctx context.Context, tx store.Execer, userID string) error
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return eligibleUser(userID), nil
	}
	return s.getByIDFn(ctx, userID)
}

func (s stubUserStore) MarkRegistrationPaid(ctx context.Context, tx store.Execer, userID string) error {
	if s.markRegistrationFn == nil {
		return nil
	}
	return s.markRegistrationFn(ctx, tx, userID)
}

type stubAuditStore struct {
	logFn func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

type stubHub struct {
	calls []websocket.BidUpdate
}

func (s *stubHub) BroadcastBid(_ string, update websocket.BidUpdate) {
	s.calls = append(s.calls, update)
}

type stubPublisher struct {
	topics []string
}

func (s *stubPublisher) Publish(_ context.Context, topic string, _ any) {
	s.topics = append(s.topics, topic)
}

func eligibleUser(id string) models.User {
	return models.User{
		ID:                  id,
		KYCStatus:           models.KYCApproved,
		EligibleForBid:      true,
		RegistrationFeePaid: true,
	}
}

func int64Ptr(v int64) *int64 {
	return &v
}

func stringPtr(v string) *string {
	return &v
}
