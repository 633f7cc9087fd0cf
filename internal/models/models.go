package models

import "time"

type SaleMode string

const (
	SaleModeFixed   SaleMode = "FIXED"
	SaleModeAuction SaleMode = "AUCTION"
)

type ModerationState string

const (
	ModerationPending  ModerationState = "PENDING"
	ModerationApproved ModerationState = "APPROVED"
	ModerationRejected ModerationState = "REJECTED"
	ModerationSold     ModerationState = "SOLD"
)

type BiddingType string

const (
	BiddingOpen   BiddingType = "OPEN"
	BiddingSealed BiddingType = "SEALED"
)

type AuctionState string

const (
	AuctionScheduled AuctionState = "SCHEDULED"
	AuctionLive      AuctionState = "LIVE"
	AuctionEnded     AuctionState = "ENDED"
)

// ApprovalStatus tracks the post-auction approval gate. UNSET means the
// auction has not been through winner determination yet; NONE marks an
// auction that ended without an eligible winner. Both APPROVED, REJECTED and
// NONE are terminal.
type ApprovalStatus string

const (
	ApprovalUnset    ApprovalStatus = "UNSET"
	ApprovalNone     ApprovalStatus = "NONE"
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

type LedgerKind string

const (
	LedgerRegistration   LedgerKind = "REGISTRATION"
	LedgerEMD            LedgerKind = "EMD"
	LedgerTransactionFee LedgerKind = "TRANSACTION_FEE"
	LedgerBalance        LedgerKind = "BALANCE"
)

type LedgerStatus string

const (
	LedgerDue      LedgerStatus = "DUE"
	LedgerPaid     LedgerStatus = "PAID"
	LedgerRefunded LedgerStatus = "REFUNDED"
)

type PurchaseType string

const (
	PurchaseAuction PurchaseType = "AUCTION"
	PurchaseFixed   PurchaseType = "FIXED"
)

type PurchaseStatus string

const (
	PurchasePending        PurchaseStatus = "pending"
	PurchasePaymentPending PurchaseStatus = "payment_pending"
	PurchaseCompleted      PurchaseStatus = "completed"
)

type KYCStatus string

const (
	KYCPending  KYCStatus = "pending"
	KYCApproved KYCStatus = "approved"
	KYCRejected KYCStatus = "rejected"
)

type User struct {
	ID                  string    `db:"id" json:"id"`
	Username            string    `db:"username" json:"username"`
	Email               string    `db:"email" json:"email"`
	PasswordHash        string    `db:"password_hash" json:"-"`
	KYCStatus           KYCStatus `db:"kyc_status" json:"kyc_status"`
	EligibleForBid      bool      `db:"eligible_for_bid" json:"eligible_for_bid"`
	RegistrationFeePaid bool      `db:"registration_fee_paid" json:"registration_fee_paid"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

type Listing struct {
	ID                 string          `db:"id" json:"id"`
	SellerID           string          `db:"seller_id" json:"seller_id"`
	Title              string          `db:"title" json:"title"`
	Category           string          `db:"category" json:"category"`
	Brand              string          `db:"brand" json:"brand"`
	Model              string          `db:"model" json:"model"`
	Year               int             `db:"year" json:"year"`
	RegistrationNo     string          `db:"registration_no" json:"registration_no"`
	OEM                *string         `db:"oem" json:"oem,omitempty"`
	IsCertified        bool            `db:"is_certified" json:"is_certified"`
	IsFinanceAvailable bool            `db:"is_finance_available" json:"is_finance_available"`
	SaleMode           SaleMode        `db:"sale_mode" json:"sale_mode"`
	ListingPrice       int64           `db:"listing_price" json:"listing_price"`
	ReservePrice       *int64          `db:"reserve_price" json:"reserve_price,omitempty"`
	ModerationState    ModerationState `db:"moderation_state" json:"moderation_state"`
	RejectionReason    *string         `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

type Auction struct {
	ID               string         `db:"id" json:"id"`
	ListingID        string         `db:"listing_id" json:"listing_id"`
	BiddingType      BiddingType    `db:"bidding_type" json:"bidding_type"`
	StartTime        time.Time      `db:"start_time" json:"start_time"`
	EndTime          time.Time      `db:"end_time" json:"end_time"`
	MinimumIncrement int64          `db:"minimum_increment" json:"minimum_increment"`
	ReservePrice     *int64         `db:"reserve_price" json:"reserve_price,omitempty"`
	EMDRequired      bool           `db:"emd_required" json:"emd_required"`
	EMDAmount        int64          `db:"emd_amount" json:"emd_amount"`
	State            AuctionState   `db:"state" json:"state"`
	CurrentBid       *int64         `db:"current_bid" json:"current_bid,omitempty"`
	WinnerID         *string        `db:"winner_id" json:"winner_id,omitempty"`
	SellerApproval   ApprovalStatus `db:"seller_approval_status" json:"seller_approval_status"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// StateAt derives the effective lifecycle state from wall-clock time. The
// persisted state column is only a cache of this function; ENDED is
// absorbing, so a persisted ENDED always wins over the clock.
func (a Auction) StateAt(now time.Time) AuctionState {
	if a.State == AuctionEnded {
		return AuctionEnded
	}
	switch {
	case !now.Before(a.EndTime):
		return AuctionEnded
	case !now.Before(a.StartTime):
		return AuctionLive
	default:
		return AuctionScheduled
	}
}

type Bid struct {
	ID        string    `db:"id" json:"id"`
	AuctionID string    `db:"auction_id" json:"auction_id"`
	BidderID  string    `db:"bidder_id" json:"bidder_id"`
	Amount    int64     `db:"amount" json:"amount"`
	Sealed    bool      `db:"sealed" json:"sealed"`
	IsWinning bool      `db:"is_winning" json:"is_winning"`
	PlacedAt  time.Time `db:"placed_at" json:"placed_at"`
}

type LedgerEntry struct {
	ID         string       `db:"id" json:"id"`
	UserID     string       `db:"user_id" json:"user_id"`
	AuctionID  *string      `db:"auction_id" json:"auction_id,omitempty"`
	PurchaseID *string      `db:"purchase_id" json:"purchase_id,omitempty"`
	Kind       LedgerKind   `db:"kind" json:"kind"`
	Amount     int64        `db:"amount" json:"amount"`
	Status     LedgerStatus `db:"status" json:"status"`
	GatewayRef *string      `db:"gateway_ref" json:"gateway_ref,omitempty"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updated_at"`
}

type Purchase struct {
	ID                 string         `db:"id" json:"id"`
	ListingID          string         `db:"listing_id" json:"listing_id"`
	AuctionID          *string        `db:"auction_id" json:"auction_id,omitempty"`
	BuyerID            string         `db:"buyer_id" json:"buyer_id"`
	PurchasePrice      int64          `db:"purchase_price" json:"purchase_price"`
	PurchaseType       PurchaseType   `db:"purchase_type" json:"purchase_type"`
	Status             PurchaseStatus `db:"status" json:"status"`
	EMDApplied         bool           `db:"emd_applied" json:"emd_applied"`
	EMDAmount          int64          `db:"emd_amount" json:"emd_amount"`
	BalanceAmount      int64          `db:"balance_amount" json:"balance_amount"`
	TransactionFee     int64          `db:"transaction_fee" json:"transaction_fee"`
	TransactionFeePaid bool           `db:"transaction_fee_paid" json:"transaction_fee_paid"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
}
