package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"vahanbid/internal/db"
	"vahanbid/internal/models"
	"vahanbid/internal/money"
	"vahanbid/internal/store"
	"vahanbid/internal/validator"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const minRejectionReasonLen = 10

// ListingService is the moderation gate: every listing passes through it
// on the way from seller submission to an approved catalogue entry, and
// approving an auction-mode listing schedules its auction in the same
// transaction.
type ListingService struct {
	txRunner db.TxRunner
	listings ListingStore
	auctions AuctionStore
	audit    AuditStore
	emdRate  decimal.Decimal
}

func NewListingService(txRunner db.TxRunner, listings ListingStore, auctions AuctionStore, audit AuditStore, emdRate decimal.Decimal) *ListingService {
	return &ListingService{
		txRunner: txRunner,
		listings: listings,
		auctions: auctions,
		audit:    audit,
		emdRate:  emdRate,
	}
}

type SubmitListingRequest struct {
	SellerID           string
	Title              string
	Category           string
	Brand              string
	Model              string
	Year               int
	RegistrationNo     string
	OEM                *string
	IsCertified        bool
	IsFinanceAvailable bool
	SaleMode           models.SaleMode
	ListingPrice       int64
	ReservePrice       *int64
}

func (s *ListingService) Submit(ctx context.Context, req SubmitListingRequest) (models.Listing, error) {
	switch {
	case strings.TrimSpace(req.Title) == "":
		return models.Listing{}, validationErr("title", "is required")
	case strings.TrimSpace(req.Category) == "":
		return models.Listing{}, validationErr("category", "is required")
	case strings.TrimSpace(req.Brand) == "":
		return models.Listing{}, validationErr("brand", "is required")
	case strings.TrimSpace(req.Model) == "":
		return models.Listing{}, validationErr("model", "is required")
	case req.Year < 1980 || req.Year > time.Now().Year()+1:
		return models.Listing{}, validationErr("year", "is out of range")
	case req.ListingPrice <= 0:
		return models.Listing{}, validationErr("listing_price", "must be positive")
	}
	if err := validator.ValidateRegistrationNo(req.RegistrationNo); err != nil {
		return models.Listing{}, validationErr("registration_no", "is malformed")
	}
	if req.SaleMode != models.SaleModeFixed && req.SaleMode != models.SaleModeAuction {
		return models.Listing{}, validationErr("sale_mode", "must be FIXED or AUCTION")
	}
	if req.ReservePrice != nil && *req.ReservePrice <= 0 {
		return models.Listing{}, validationErr("reserve_price", "must be positive")
	}

	listingID := uuid.NewString()
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.listings.Create(ctx, tx, store.ListingInput{
			ID:                 listingID,
			SellerID:           req.SellerID,
			Title:              req.Title,
			Category:           req.Category,
			Brand:              req.Brand,
			Model:              req.Model,
			Year:               req.Year,
			RegistrationNo:     req.RegistrationNo,
			OEM:                req.OEM,
			IsCertified:        req.IsCertified,
			IsFinanceAvailable: req.IsFinanceAvailable,
			SaleMode:           req.SaleMode,
			ListingPrice:       req.ListingPrice,
			ReservePrice:       req.ReservePrice,
		}); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"sale_mode": string(req.SaleMode)})
		return s.audit.Log(ctx, tx, req.SellerID, "listing.submit", "listing", listingID, string(data))
	})
	if err != nil {
		return models.Listing{}, err
	}
	return s.listings.GetByID(ctx, listingID)
}

// ApprovalOverrides enumerates every recognized admin override on approval.
// Nil fields fall back to the derivation rules below.
type ApprovalOverrides struct {
	BiddingType        *models.BiddingType
	StartTime          *time.Time
	EndTime            *time.Time
	MinimumIncrement   *int64
	ReservePrice       *int64
	EMDRequired        *bool
	EMDAmount          *int64
	OEM                *string
	IsCertified        *bool
	IsFinanceAvailable *bool
}

// Approve moves a PENDING listing to APPROVED. Re-approving an APPROVED
// listing is a no-op returning current state, so duplicate admin clicks
// are harmless. For auction listings the auction is scheduled here, with
// tier-derived defaults for anything the admin did not override.
func (s *ListingService) Approve(ctx context.Context, actorID, listingID string, ov ApprovalOverrides) (models.Listing, *models.Auction, error) {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		listing, err := s.listings.GetForUpdate(ctx, tx, listingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if listing.ModerationState == models.ModerationApproved {
			// Duplicate admin click: return current state, not an error.
			return nil
		}
		if listing.ModerationState != models.ModerationPending {
			return invalidState("listing", string(listing.ModerationState), "approve")
		}

		if err := s.listings.ApplyApprovalOverrides(ctx, tx, listingID, ov.ReservePrice, ov.OEM, ov.IsCertified, ov.IsFinanceAvailable); err != nil {
			return err
		}
		if err := s.listings.SetModerationState(ctx, tx, listingID, models.ModerationApproved, nil); err != nil {
			return err
		}

		if listing.SaleMode == models.SaleModeAuction {
			input, err := s.buildAuction(listing, ov, time.Now())
			if err != nil {
				return err
			}
			if err := s.auctions.Create(ctx, tx, input); err != nil {
				return err
			}
		}
		data, _ := json.Marshal(map[string]string{"actor": actorID})
		return s.audit.Log(ctx, tx, actorID, "listing.approve", "listing", listingID, string(data))
	})
	if err != nil {
		return models.Listing{}, nil, err
	}

	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return models.Listing{}, nil, err
	}
	if listing.SaleMode != models.SaleModeAuction {
		return listing, nil, nil
	}
	auction, err := s.auctions.GetByListing(ctx, listingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return listing, nil, nil
		}
		return models.Listing{}, nil, err
	}
	return listing, &auction, nil
}

func (s *ListingService) buildAuction(listing models.Listing, ov ApprovalOverrides, now time.Time) (store.AuctionInput, error) {
	reserve := listing.ListingPrice
	if listing.ReservePrice != nil {
		reserve = *listing.ReservePrice
	}
	if ov.ReservePrice != nil {
		reserve = *ov.ReservePrice
	}

	start := now.Add(time.Hour)
	if ov.StartTime != nil {
		start = *ov.StartTime
	}
	end := start.Add(DefaultAuctionDuration(reserve))
	if ov.EndTime != nil {
		end = *ov.EndTime
	}
	if start.Before(now.Add(-time.Minute)) {
		return store.AuctionInput{}, validationErr("start_time", "must not be in the past")
	}
	if !end.After(start) {
		return store.AuctionInput{}, validationErr("end_time", "must be after start_time")
	}

	increment := DefaultMinimumIncrement(reserve)
	if ov.MinimumIncrement != nil {
		increment = *ov.MinimumIncrement
	}
	if increment <= 0 {
		return store.AuctionInput{}, validationErr("minimum_increment", "must be positive")
	}

	biddingType := models.BiddingOpen
	if ov.BiddingType != nil {
		biddingType = *ov.BiddingType
	}
	if biddingType != models.BiddingOpen && biddingType != models.BiddingSealed {
		return store.AuctionInput{}, validationErr("bidding_type", "must be OPEN or SEALED")
	}

	emdRequired := false
	if ov.EMDRequired != nil {
		emdRequired = *ov.EMDRequired
	}
	var emdAmount int64
	if emdRequired {
		emdAmount = s.defaultEMDAmount(reserve)
		if ov.EMDAmount != nil {
			emdAmount = *ov.EMDAmount
		}
		if emdAmount <= 0 {
			return store.AuctionInput{}, validationErr("emd_amount", "must be positive")
		}
	}

	return store.AuctionInput{
		ID:               uuid.NewString(),
		ListingID:        listing.ID,
		BiddingType:      biddingType,
		StartTime:        start,
		EndTime:          end,
		MinimumIncrement: increment,
		ReservePrice:     &reserve,
		EMDRequired:      emdRequired,
		EMDAmount:        emdAmount,
	}, nil
}

func (s *ListingService) defaultEMDAmount(reserve int64) int64 {
	return decimal.NewFromInt(reserve).Mul(s.emdRate).RoundBank(0).IntPart()
}

// DefaultAuctionDuration maps the reserve price to the schedule tier:
// under two lakh runs one day, two to five lakh two days, five lakh and
// above three days.
func DefaultAuctionDuration(reserve int64) time.Duration {
	switch {
	case reserve < money.Rupees(200_000):
		return 24 * time.Hour
	case reserve < money.Rupees(500_000):
		return 48 * time.Hour
	default:
		return 72 * time.Hour
	}
}

// DefaultMinimumIncrement maps the reserve price to the increment tier.
func DefaultMinimumIncrement(reserve int64) int64 {
	switch {
	case reserve < money.Rupees(100_000):
		return money.Rupees(2_000)
	case reserve < money.Rupees(300_000):
		return money.Rupees(5_000)
	case reserve < money.Rupees(700_000):
		return money.Rupees(10_000)
	default:
		return money.Rupees(20_000)
	}
}

func (s *ListingService) Reject(ctx context.Context, actorID, listingID, reason string) (models.Listing, error) {
	if len(strings.TrimSpace(reason)) < minRejectionReasonLen {
		return models.Listing{}, validationErr("reason", "must be at least 10 characters")
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		listing, err := s.listings.GetForUpdate(ctx, tx, listingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if listing.ModerationState != models.ModerationPending {
			return invalidState("listing", string(listing.ModerationState), "reject")
		}
		if err := s.listings.SetModerationState(ctx, tx, listingID, models.ModerationRejected, &reason); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"reason": reason})
		return s.audit.Log(ctx, tx, actorID, "listing.reject", "listing", listingID, string(data))
	})
	if err != nil {
		return models.Listing{}, err
	}
	return s.listings.GetByID(ctx, listingID)
}

type BulkItemResult struct {
	ListingID string `json:"listing_id"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}

type BulkResult struct {
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Items     []BulkItemResult `json:"items"`
}

// BulkApprove applies the per-item approval logic independently. The batch
// is deliberately not atomic: partial success is the expected outcome and
// is reported per item.
func (s *ListingService) BulkApprove(ctx context.Context, actorID string, listingIDs []string, ov ApprovalOverrides) BulkResult {
	result := BulkResult{Items: make([]BulkItemResult, 0, len(listingIDs))}
	for _, id := range listingIDs {
		_, _, err := s.Approve(ctx, actorID, id, ov)
		if err != nil {
			result.Failed++
			result.Items = append(result.Items, BulkItemResult{ListingID: id, Error: err.Error()})
			continue
		}
		result.Succeeded++
		result.Items = append(result.Items, BulkItemResult{ListingID: id, OK: true})
	}
	return result
}
