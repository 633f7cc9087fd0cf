package handlers

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"vahanbid/internal/auth"
	"vahanbid/internal/config"
	"vahanbid/internal/gateway"
	"vahanbid/internal/models"
	"vahanbid/internal/services"
	"vahanbid/internal/store"
	"vahanbid/internal/websocket"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(_ context.Context, fn func(*sqlx.Tx) error) error {
	return fn(nil)
}

type stubUserStore struct {
	createFn        func(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error
	getByEmailFn    func(ctx context.Context, email string) (models.User, error)
	getByUsernameFn func(ctx context.Context, username string) (models.User, error)
	getByIDFn       func(ctx context.Context, userID string) (models.User, error)
	setKYCStatusFn  func(ctx context.Context, tx store.Execer, userID string, status models.KYCStatus, eligible bool) error
	listFn          func(ctx context.Context, limit, offset int) ([]models.User, error)
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, username, email, passwordHash)
}

func (s stubUserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	if s.getByEmailFn == nil {
		return models.User{}, nil
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubUserStore) GetByUsername(ctx context.Context, username string) (models.User, error) {
	if s.getByUsernameFn == nil {
		return models.User{}, nil
	}
	return s.getByUsernameFn(ctx, username)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{ID: userID}, nil
	}
	return s.getByIDFn(ctx, userID)
}

func (s stubUserStore) SetKYCStatus(ctx context.Context, tx store.Execer, userID string, status models.KYCStatus, eligible bool) error {
	if s.setKYCStatusFn == nil {
		return nil
	}
	return s.setKYCStatusFn(ctx, tx, userID, status, eligible)
}

func (s stubUserStore) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, limit, offset)
}

type stubListingStore struct {
	getByIDFn func(ctx context.Context, listingID string) (models.Listing, error)
	listFn    func(ctx context.Context, state, sellerID string, limit, offset int) ([]models.Listing, error)
}

func (s stubListingStore) GetByID(ctx context.Context, listingID string) (models.Listing, error) {
	if s.getByIDFn == nil {
		return models.Listing{ID: listingID}, nil
	}
	return s.getByIDFn(ctx, listingID)
}

func (s stubListingStore) List(ctx context.Context, state, sellerID string, limit, offset int) ([]models.Listing, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, state, sellerID, limit, offset)
}

type stubAuctionStore struct {
	getByListingFn func(ctx context.Context, listingID string) (models.Auction, error)
	listFn         func(ctx context.Context, state string, limit, offset int) ([]models.Auction, error)
}

func (s stubAuctionStore) GetByListing(ctx context.Context, listingID string) (models.Auction, error) {
	if s.getByListingFn == nil {
		return models.Auction{}, nil
	}
	return s.getByListingFn(ctx, listingID)
}

func (s stubAuctionStore) List(ctx context.Context, state string, limit, offset int) ([]models.Auction, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, state, limit, offset)
}

type stubBidStore struct {
	listByAuctionFn func(ctx context.Context, auctionID string) ([]models.Bid, error)
	ownBidFn        func(ctx context.Context, auctionID, bidderID string) (models.Bid, error)
}

func (s stubBidStore) ListByAuction(ctx context.Context, auctionID string) ([]models.Bid, error) {
	if s.listByAuctionFn == nil {
		return nil, nil
	}
	return s.listByAuctionFn(ctx, auctionID)
}

func (s stubBidStore) OwnBid(ctx context.Context, auctionID, bidderID string) (models.Bid, error) {
	if s.ownBidFn == nil {
		return models.Bid{}, nil
	}
	return s.ownBidFn(ctx, auctionID, bidderID)
}

type stubLedgerStore struct {
	listByUserFn        func(ctx context.Context, userID string, limit, offset int) ([]models.LedgerEntry, error)
	outstandingReportFn func(ctx context.Context, limit, offset int) ([]store.OutstandingRow, error)
}

func (s stubLedgerStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.LedgerEntry, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID, limit, offset)
}

func (s stubLedgerStore) OutstandingReport(ctx context.Context, limit, offset int) ([]store.OutstandingRow, error) {
	if s.outstandingReportFn == nil {
		return nil, nil
	}
	return s.outstandingReportFn(ctx, limit, offset)
}

type stubPurchaseStore struct {
	getByIDFn     func(ctx context.Context, purchaseID string) (models.Purchase, error)
	listByBuyerFn func(ctx context.Context, buyerID string, limit, offset int) ([]models.Purchase, error)
}

func (s stubPurchaseStore) GetByID(ctx context.Context, purchaseID string) (models.Purchase, error) {
	if s.getByIDFn == nil {
		return models.Purchase{ID: purchaseID}, nil
	}
	return s.getByIDFn(ctx, purchaseID)
}

func (s stubPurchaseStore) ListByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]models.Purchase, error) {
	if s.listByBuyerFn == nil {
		return nil, nil
	}
	return s.listByBuyerFn(ctx, buyerID, limit, offset)
}

type stubAdminStore struct {
	isAdminFn     func(ctx context.Context, userID string) (bool, bool, error)
	hasRoleFn     func(ctx context.Context, userID, role string) (bool, error)
	createAdminFn func(ctx context.Context, tx store.Execer, userID string, isSuper bool, createdBy *string) error
	grantRoleFn   func(ctx context.Context, tx store.Execer, adminUserID, role string) error
	hasAnyAdminFn func(ctx context.Context) (bool, error)
}

func (s stubAdminStore) IsAdmin(ctx context.Context, userID string) (bool, bool, error) {
	if s.isAdminFn == nil {
		return false, false, nil
	}
	return s.isAdminFn(ctx, userID)
}

func (s stubAdminStore) HasRole(ctx context.Context, userID, role string) (bool, error) {
	if s.hasRoleFn == nil {
		return false, nil
	}
	return s.hasRoleFn(ctx, userID, role)
}

func (s stubAdminStore) CreateAdmin(ctx context.Context, tx store.Execer, userID string, isSuper bool, createdBy *string) error {
	if s.createAdminFn == nil {
		return nil
	}
	return s.createAdminFn(ctx, tx, userID, isSuper, createdBy)
}

func (s stubAdminStore) GrantRole(ctx context.Context, tx store.Execer, adminUserID, role string) error {
	if s.grantRoleFn == nil {
		return nil
	}
	return s.grantRoleFn(ctx, tx, adminUserID, role)
}

func (s stubAdminStore) HasAnyAdmin(ctx context.Context) (bool, error) {
	if s.hasAnyAdminFn == nil {
		return true, nil
	}
	return s.hasAnyAdminFn(ctx)
}

type stubAuditStore struct {
	logFn  func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	listFn func(ctx context.Context, limit, offset int) ([]store.AuditLog, error)
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

func (s stubAuditStore) List(ctx context.Context, limit, offset int) ([]store.AuditLog, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, limit, offset)
}

type stubListingService struct {
	submitFn      func(ctx context.Context, req services.SubmitListingRequest) (models.Listing, error)
	approveFn     func(ctx context.Context, actorID, listingID string, ov services.ApprovalOverrides) (models.Listing, *models.Auction, error)
	rejectFn      func(ctx context.Context, actorID, listingID, reason string) (models.Listing, error)
	bulkApproveFn func(ctx context.Context, actorID string, listingIDs []string, ov services.ApprovalOverrides) services.BulkResult
}

func (s stubListingService) Submit(ctx context.Context, req services.SubmitListingRequest) (models.Listing, error) {
	if s.submitFn == nil {
		return models.Listing{}, nil
	}
	return s.submitFn(ctx, req)
}

func (s stubListingService) Approve(ctx context.Context, actorID, listingID string, ov services.ApprovalOverrides) (models.Listing, *models.Auction, error) {
	if s.approveFn == nil {
		return models.Listing{ID: listingID}, nil, nil
	}
	return s.approveFn(ctx, actorID, listingID, ov)
}

func (s stubListingService) Reject(ctx context.Context, actorID, listingID, reason string) (models.Listing, error) {
	if s.rejectFn == nil {
		return models.Listing{ID: listingID}, nil
	}
	return s.rejectFn(ctx, actorID, listingID, reason)
}

func (s stubListingService) BulkApprove(ctx context.Context, actorID string, listingIDs []string, ov services.ApprovalOverrides) services.BulkResult {
	if s.bulkApproveFn == nil {
		return services.BulkResult{}
	}
	return s.bulkApproveFn(ctx, actorID, listingIDs, ov)
}

type stubAuctionService struct {
	createFn func(ctx context.Context, actorID string, req services.CreateAuctionRequest) (models.Auction, error)
	getFn    func(ctx context.Context, auctionID string) (models.Auction, error)
}

func (s stubAuctionService) Create(ctx context.Context, actorID string, req services.CreateAuctionRequest) (models.Auction, error) {
	if s.createFn == nil {
		return models.Auction{}, nil
	}
	return s.createFn(ctx, actorID, req)
}

func (s stubAuctionService) Get(ctx context.Context, auctionID string) (models.Auction, error) {
	if s.getFn == nil {
		return models.Auction{ID: auctionID}, nil
	}
	return s.getFn(ctx, auctionID)
}

type stubBidService struct {
	placeFn func(ctx context.Context, req services.PlaceBidRequest) (services.PlaceBidResult, error)
}

func (s stubBidService) Place(ctx context.Context, req services.PlaceBidRequest) (services.PlaceBidResult, error) {
	if s.placeFn == nil {
		return services.PlaceBidResult{}, nil
	}
	return s.placeFn(ctx, req)
}

type stubSettlementService struct {
	approveBidFn        func(ctx context.Context, actorID, auctionID string) (models.Purchase, error)
	rejectBidFn         func(ctx context.Context, actorID, auctionID, reason string) (models.Auction, error)
	confirmFixedPriceFn func(ctx context.Context, buyerID, listingID string) (models.Purchase, error)
}

func (s stubSettlementService) ApproveBid(ctx context.Context, actorID, auctionID string) (models.Purchase, error) {
	if s.approveBidFn == nil {
		return models.Purchase{}, nil
	}
	return s.approveBidFn(ctx, actorID, auctionID)
}

func (s stubSettlementService) RejectBid(ctx context.Context, actorID, auctionID, reason string) (models.Auction, error) {
	if s.rejectBidFn == nil {
		return models.Auction{ID: auctionID}, nil
	}
	return s.rejectBidFn(ctx, actorID, auctionID, reason)
}

func (s stubSettlementService) ConfirmFixedPrice(ctx context.Context, buyerID, listingID string) (models.Purchase, error) {
	if s.confirmFixedPriceFn == nil {
		return models.Purchase{}, nil
	}
	return s.confirmFixedPriceFn(ctx, buyerID, listingID)
}

type stubPaymentService struct {
	payRegistrationFn   func(ctx context.Context, userID string) (gateway.PaymentIntent, error)
	payEMDFn            func(ctx context.Context, userID, auctionID string) (gateway.PaymentIntent, error)
	payTransactionFeeFn func(ctx context.Context, userID, purchaseID string) (gateway.PaymentIntent, error)
	payBalanceFn        func(ctx context.Context, userID, purchaseID string) (gateway.PaymentIntent, error)
	callbackFn          func(ctx context.Context, req services.CallbackRequest) error
	outstandingFn       func(ctx context.Context, userID string) (int64, error)
}

func (s stubPaymentService) PayRegistrationFee(ctx context.Context, userID string) (gateway.PaymentIntent, error) {
	if s.payRegistrationFn == nil {
		return gateway.PaymentIntent{}, nil
	}
	return s.payRegistrationFn(ctx, userID)
}

func (s stubPaymentService) PayEMD(ctx context.Context, userID, auctionID string) (gateway.PaymentIntent, error) {
	if s.payEMDFn == nil {
		return gateway.PaymentIntent{}, nil
	}
	return s.payEMDFn(ctx, userID, auctionID)
}

func (s stubPaymentService) PayTransactionFee(ctx context.Context, userID, purchaseID string) (gateway.PaymentIntent, error) {
	if s.payTransactionFeeFn == nil {
		return gateway.PaymentIntent{}, nil
	}
	return s.payTransactionFeeFn(ctx, userID, purchaseID)
}

func (s stubPaymentService) PayBalance(ctx context.Context, userID, purchaseID string) (gateway.PaymentIntent, error) {
	if s.payBalanceFn == nil {
		return gateway.PaymentIntent{}, nil
	}
	return s.payBalanceFn(ctx, userID, purchaseID)
}

func (s stubPaymentService) Callback(ctx context.Context, req services.CallbackRequest) error {
	if s.callbackFn == nil {
		return nil
	}
	return s.callbackFn(ctx, req)
}

func (s stubPaymentService) Outstanding(ctx context.Context, userID string) (int64, error) {
	if s.outstandingFn == nil {
		return 0, nil
	}
	return s.outstandingFn(ctx, userID)
}

type testHandlerDeps struct {
	users       UserStore
	listings    ListingStore
	auctions    AuctionStore
	bids        BidStore
	ledger      LedgerStore
	purchases   PurchaseStore
	admin       AdminStore
	audit       AuditStore
	listingSvc  ListingService
	auctionSvc  AuctionService
	bidSvc      BidService
	settlements SettlementService
	payments    PaymentService
}

func newTestHandler(deps testHandlerDeps) *Handler {
	cfg := config.Config{
		AppEnv:         "test",
		Port:           "0",
		JWTSecret:      "secret",
		TokenTTL:       time.Minute,
		AllowedOrigins: "*",
		FeeRate:        decimal.NewFromFloat(0.02),
		DefaultEMDRate: decimal.NewFromFloat(0.10),
	}
	if deps.users == nil {
		deps.users = stubUserStore{}
	}
	if deps.listings == nil {
		deps.listings = stubListingStore{}
	}
	if deps.auctions == nil {
		deps.auctions = stubAuctionStore{}
	}
	if deps.bids == nil {
		deps.bids = stubBidStore{}
	}
	if deps.ledger == nil {
		deps.ledger = stubLedgerStore{}
	}
	if deps.purchases == nil {
		deps.purchases = stubPurchaseStore{}
	}
	if deps.admin == nil {
		deps.admin = stubAdminStore{}
	}
	if deps.audit == nil {
		deps.audit = stubAuditStore{}
	}
	if deps.listingSvc == nil {
		deps.listingSvc = stubListingService{}
	}
	if deps.auctionSvc == nil {
		deps.auctionSvc = stubAuctionService{}
	}
	if deps.bidSvc == nil {
		deps.bidSvc = stubBidService{}
	}
	if deps.settlements == nil {
		deps.settlements = stubSettlementService{}
	}
	if deps.payments == nil {
		deps.payments = stubPaymentService{}
	}
	return New(fakeTxRunner{}, cfg, deps.users, deps.listings, deps.auctions, deps.bids,
		deps.ledger, deps.purchases, deps.admin, deps.audit,
		deps.listingSvc, deps.auctionSvc, deps.bidSvc, deps.settlements, deps.payments,
		websocket.NewHub())
}

// serveAuthed routes the request through the full router so middleware and
// URL params behave exactly as in production.
func serveAuthed(t *testing.T, h *Handler, method, path string, body io.Reader, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if userID != "" {
		token, err := auth.IssueToken("secret", userID, time.Minute)
		if err != nil {
			t.Fatalf("failed to issue token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	return rr
}
