package handlers

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"vahanbid/internal/models"
)

func sellerGateDeps(t *testing.T, sellerID string) testHandlerDeps {
	t.Helper()
	return testHandlerDeps{
		auctionSvc: stubAuctionService{
			getFn: func(_ context.Context, auctionID string) (models.Auction, error) {
				return models.Auction{ID: auctionID, ListingID: "lst-1"}, nil
			},
		},
		listings: stubListingStore{
			getByIDFn: func(_ context.Context, listingID string) (models.Listing, error) {
				return models.Listing{ID: listingID, SellerID: sellerID}, nil
			},
		},
	}
}

func TestApproveBidAsSeller(t *testing.T) {
	deps := sellerGateDeps(t, "seller-1")
	deps.settlements = stubSettlementService{
		approveBidFn: func(_ context.Context, actorID, auctionID string) (models.Purchase, error) {
			if actorID != "seller-1" {
				t.Fatalf("approval attributed to %s", actorID)
			}
			return models.Purchase{ID: "pur-1", AuctionID: &auctionID, BuyerID: "user-9"}, nil
		},
	}
	h := newTestHandler(deps)

	rr := serveAuthed(t, h, http.MethodPost, "/auctions/auc-1/approve", nil, "seller-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestApproveBidAsStrangerForbidden(t *testing.T) {
	deps := sellerGateDeps(t, "seller-1")
	deps.settlements = stubSettlementService{
		approveBidFn: func(context.Context, string, string) (models.Purchase, error) {
			t.Fatalf("non-seller must not reach the settlement service")
			return models.Purchase{}, nil
		},
	}
	h := newTestHandler(deps)

	rr := serveAuthed(t, h, http.MethodPost, "/auctions/auc-1/approve", nil, "stranger")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestApproveBidAsAdmin(t *testing.T) {
	deps := sellerGateDeps(t, "seller-1")
	deps.admin = stubAdminStore{
		isAdminFn: func(_ context.Context, userID string) (bool, bool, error) {
			return userID == "admin-1", false, nil
		},
	}
	deps.settlements = stubSettlementService{
		approveBidFn: func(_ context.Context, actorID, auctionID string) (models.Purchase, error) {
			if actorID != "admin-1" {
				t.Fatalf("approval attributed to %s", actorID)
			}
			return models.Purchase{ID: "pur-1", AuctionID: &auctionID, BuyerID: "user-9"}, nil
		},
	}
	h := newTestHandler(deps)

	rr := serveAuthed(t, h, http.MethodPost, "/auctions/auc-1/approve", nil, "admin-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestRejectBidAsAdmin(t *testing.T) {
	deps := sellerGateDeps(t, "seller-1")
	deps.admin = stubAdminStore{
		isAdminFn: func(_ context.Context, userID string) (bool, bool, error) {
			return userID == "admin-1", false, nil
		},
	}
	deps.settlements = stubSettlementService{
		rejectBidFn: func(_ context.Context, actorID, auctionID, _ string) (models.Auction, error) {
			return models.Auction{ID: auctionID, SellerApproval: models.ApprovalRejected}, nil
		},
	}
	h := newTestHandler(deps)

	body := bytes.NewReader([]byte(`{"reason":"odometer dispute raised by the buyer"}`))
	rr := serveAuthed(t, h, http.MethodPost, "/auctions/auc-1/reject", body, "admin-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestRejectBidAsSellerPassesReason(t *testing.T) {
	deps := sellerGateDeps(t, "seller-1")
	deps.settlements = stubSettlementService{
		rejectBidFn: func(_ context.Context, actorID, auctionID, reason string) (models.Auction, error) {
			if reason != "price does not cover my loan payoff" {
				t.Fatalf("reason lost: %q", reason)
			}
			return models.Auction{ID: auctionID, SellerApproval: models.ApprovalRejected}, nil
		},
	}
	h := newTestHandler(deps)

	body := bytes.NewReader([]byte(`{"reason":"price does not cover my loan payoff"}`))
	rr := serveAuthed(t, h, http.MethodPost, "/auctions/auc-1/reject", body, "seller-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestCreateAuctionRequiresModeratorRole(t *testing.T) {
	h := newTestHandler(testHandlerDeps{
		admin: stubAdminStore{
			isAdminFn: func(context.Context, string) (bool, bool, error) {
				return false, false, nil
			},
		},
	})

	body := bytes.NewReader([]byte(`{"listing_id":"lst-1"}`))
	rr := serveAuthed(t, h, http.MethodPost, "/admin/auctions", body, "user-1")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}
