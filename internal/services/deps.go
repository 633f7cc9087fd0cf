package services

import (
	"context"
	"time"

	"vahanbid/internal/models"
	"vahanbid/internal/store"
	"vahanbid/internal/websocket"
)

type ListingStore interface {
	Create(ctx context.Context, tx store.Execer, input store.ListingInput) error
	GetByID(ctx context.Context, listingID string) (models.Listing, error)
	GetForUpdate(ctx context.Context, tx store.Getter, listingID string) (models.Listing, error)
	SetModerationState(ctx context.Context, tx store.Execer, listingID string, state models.ModerationState, reason *string) error
	ApplyApprovalOverrides(ctx context.Context, tx store.Execer, listingID string, reservePrice *int64, oem *string, isCertified, isFinanceAvailable *bool) error
}

type AuctionStore interface {
	Create(ctx context.Context, tx store.Execer, input store.AuctionInput) error
	GetByID(ctx context.Context, auctionID string) (models.Auction, error)
	GetByListing(ctx context.Context, listingID string) (models.Auction, error)
	GetByListingTx(ctx context.Context, tx store.Getter, listingID string) (models.Auction, error)
	GetForUpdate(ctx context.Context, tx store.Getter, auctionID string) (models.Auction, error)
	PersistState(ctx context.Context, tx store.Execer, auctionID string, state models.AuctionState) error
	SetCurrentBid(ctx context.Context, tx store.Execer, auctionID string, amount int64) error
	ClaimSettlement(ctx context.Context, tx store.Execer, auctionID string, winnerID *string, status models.ApprovalStatus) (int64, error)
	SetApproval(ctx context.Context, tx store.Execer, auctionID string, status models.ApprovalStatus) (int64, error)
	ListEndedUnsettled(ctx context.Context, now time.Time, limit int) ([]models.Auction, error)
}

type BidStore interface {
	InsertOpen(ctx context.Context, tx store.Execer, input store.BidInput) error
	ClearWinning(ctx context.Context, tx store.Execer, auctionID string) error
	UpsertSealed(ctx context.Context, tx store.Getter, input store.BidInput) (string, error)
	WinningBid(ctx context.Context, tx store.Getter, auctionID string) (models.Bid, error)
	TopSealed(ctx context.Context, tx store.Getter, auctionID string) (models.Bid, error)
	SetWinning(ctx context.Context, tx store.Execer, bidID string) error
}

type LedgerStore interface {
	Insert(ctx context.Context, tx store.Execer, input store.LedgerEntryInput) error
	GetByRefForUpdate(ctx context.Context, tx store.Getter, gatewayRef string) (models.LedgerEntry, error)
	MarkPaidByRef(ctx context.Context, tx store.Execer, gatewayRef string) (int64, error)
	FindOpen(ctx context.Context, userID string, kind models.LedgerKind, auctionID, purchaseID *string) (models.LedgerEntry, error)
	PaidEntry(ctx context.Context, tx store.Getter, userID string, kind models.LedgerKind, auctionID *string) (models.LedgerEntry, error)
	ReleaseEMDHold(ctx context.Context, tx store.Execer, userID, auctionID string) error
	AttachPurchase(ctx context.Context, tx store.Execer, entryID, purchaseID string) error
	SetGatewayRef(ctx context.Context, tx store.Execer, entryID, gatewayRef string) error
	OutstandingByUser(ctx context.Context, userID string) (int64, error)
}

type PurchaseStore interface {
	Create(ctx context.Context, tx store.Execer, input store.PurchaseInput) error
	GetByID(ctx context.Context, purchaseID string) (models.Purchase, error)
	GetForUpdate(ctx context.Context, tx store.Getter, purchaseID string) (models.Purchase, error)
	GetByAuction(ctx context.Context, tx store.Getter, auctionID string) (models.Purchase, error)
	SetStatus(ctx context.Context, tx store.Execer, purchaseID string, status models.PurchaseStatus) error
	MarkTransactionFeePaid(ctx context.Context, tx store.Execer, purchaseID string) error
}

type UserStore interface {
	GetByID(ctx context.Context, userID string) (models.User, error)
	MarkRegistrationPaid(ctx context.Context, tx store.Execer, userID string) error
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload any)
}

type BidHub interface {
	BroadcastBid(auctionID string, update websocket.BidUpdate)
}
