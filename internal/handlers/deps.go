package handlers

import (
	"context"

	"vahanbid/internal/gateway"
	"vahanbid/internal/models"
	"vahanbid/internal/services"
	"vahanbid/internal/store"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
	GetByID(ctx context.Context, userID string) (models.User, error)
	SetKYCStatus(ctx context.Context, tx store.Execer, userID string, status models.KYCStatus, eligible bool) error
	List(ctx context.Context, limit, offset int) ([]models.User, error)
}

type ListingStore interface {
	GetByID(ctx context.Context, listingID string) (models.Listing, error)
	List(ctx context.Context, state, sellerID string, limit, offset int) ([]models.Listing, error)
}

type AuctionStore interface {
	GetByListing(ctx context.Context, listingID string) (models.Auction, error)
	List(ctx context.Context, state string, limit, offset int) ([]models.Auction, error)
}

type BidStore interface {
	ListByAuction(ctx context.Context, auctionID string) ([]models.Bid, error)
	OwnBid(ctx context.Context, auctionID, bidderID string) (models.Bid, error)
}

type LedgerStore interface {
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.LedgerEntry, error)
	OutstandingReport(ctx context.Context, limit, offset int) ([]store.OutstandingRow, error)
}

type PurchaseStore interface {
	GetByID(ctx context.Context, purchaseID string) (models.Purchase, error)
	ListByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]models.Purchase, error)
}

type AdminStore interface {
	IsAdmin(ctx context.Context, userID string) (bool, bool, error)
	HasRole(ctx context.Context, userID, role string) (bool, error)
	CreateAdmin(ctx context.Context, tx store.Execer, userID string, isSuper bool, createdBy *string) error
	GrantRole(ctx context.Context, tx store.Execer, adminUserID, role string) error
	HasAnyAdmin(ctx context.Context) (bool, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	List(ctx context.Context, limit, offset int) ([]store.AuditLog, error)
}

type ListingService interface {
	Submit(ctx context.Context, req services.SubmitListingRequest) (models.Listing, error)
	Approve(ctx context.Context, actorID, listingID string, ov services.ApprovalOverrides) (models.Listing, *models.Auction, error)
	Reject(ctx context.Context, actorID, listingID, reason string) (models.Listing, error)
	BulkApprove(ctx context.Context, actorID string, listingIDs []string, ov services.ApprovalOverrides) services.BulkResult
}

type AuctionService interface {
	Create(ctx context.Context, actorID string, req services.CreateAuctionRequest) (models.Auction, error)
	Get(ctx context.Context, auctionID string) (models.Auction, error)
}

type BidService interface {
	Place(ctx context.Context, req services.PlaceBidRequest) (services.PlaceBidResult, error)
}

type SettlementService interface {
	ApproveBid(ctx context.Context, actorID, auctionID string) (models.Purchase, error)
	RejectBid(ctx context.Context, actorID, auctionID, reason string) (models.Auction, error)
	ConfirmFixedPrice(ctx context.Context, buyerID, listingID string) (models.Purchase, error)
}

type PaymentService interface {
	PayRegistrationFee(ctx context.Context, userID string) (gateway.PaymentIntent, error)
	PayEMD(ctx context.Context, userID, auctionID string) (gateway.PaymentIntent, error)
	PayTransactionFee(ctx context.Context, userID, purchaseID string) (gateway.PaymentIntent, error)
	PayBalance(ctx context.Context, userID, purchaseID string) (gateway.PaymentIntent, error)
	Callback(ctx context.Context, req services.CallbackRequest) error
	Outstanding(ctx context.Context, userID string) (int64, error)
}
