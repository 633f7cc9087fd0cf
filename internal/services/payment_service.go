package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"vahanbid/internal/db"
	"vahanbid/internal/events"
	"vahanbid/internal/gateway"
	"vahanbid/internal/models"
	"vahanbid/internal/observability"
	"vahanbid/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PaymentService creates DUE ledger entries, hands them to the gateway,
// and applies signed gateway callbacks. Every charge lives in the ledger
// before the gateway ever sees it, so a replayed or duplicated callback
// can only flip an entry DUE -> PAID once.
type PaymentService struct {
	txRunner        db.TxRunner
	ledger          LedgerStore
	users           UserStore
	auctions        AuctionStore
	purchases       PurchaseStore
	audit           AuditStore
	gateway         gateway.Gateway
	publisher       EventPublisher
	registrationFee int64
}

func NewPaymentService(txRunner db.TxRunner, ledger LedgerStore, users UserStore, auctions AuctionStore, purchases PurchaseStore, audit AuditStore, gw gateway.Gateway, publisher EventPublisher, registrationFee int64) *PaymentService {
	return &PaymentService{
		txRunner:        txRunner,
		ledger:          ledger,
		users:           users,
		auctions:        auctions,
		purchases:       purchases,
		audit:           audit,
		gateway:         gw,
		publisher:       publisher,
		registrationFee: registrationFee,
	}
}

// PayRegistrationFee starts a registration fee payment for the user.
// Retrying before the gateway confirms reuses the open entry instead of
// stacking duplicates.
func (s *PaymentService) PayRegistrationFee(ctx context.Context, userID string) (gateway.PaymentIntent, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return gateway.PaymentIntent{}, ErrNotFound
		}
		return gateway.PaymentIntent{}, err
	}
	if user.RegistrationFeePaid {
		return gateway.PaymentIntent{}, invalidState("registration fee", "PAID", "pay")
	}
	return s.initiate(ctx, userID, models.LedgerRegistration, s.registrationFee, nil, nil)
}

// PayEMD starts an earnest money deposit payment for one auction.
func (s *PaymentService) PayEMD(ctx context.Context, userID, auctionID string) (gateway.PaymentIntent, error) {
	auction, err := s.auctions.GetByID(ctx, auctionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return gateway.PaymentIntent{}, ErrNotFound
		}
		return gateway.PaymentIntent{}, err
	}
	if !auction.EMDRequired {
		return gateway.PaymentIntent{}, validationErr("auctionId", "auction does not require an EMD")
	}
	if state := auction.StateAt(time.Now()); state == models.AuctionEnded {
		return gateway.PaymentIntent{}, invalidState("auction", string(state), "pay EMD")
	}
	if _, err := s.ledger.PaidEntry(ctx, nil, userID, models.LedgerEMD, &auctionID); err == nil {
		return gateway.PaymentIntent{}, invalidState("EMD", "PAID", "pay")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return gateway.PaymentIntent{}, err
	}
	return s.initiate(ctx, userID, models.LedgerEMD, auction.EMDAmount, &auctionID, nil)
}

// PayTransactionFee starts payment of the platform fee on a purchase.
func (s *PaymentService) PayTransactionFee(ctx context.Context, userID, purchaseID string) (gateway.PaymentIntent, error) {
	purchase, err := s.purchases.GetByID(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return gateway.PaymentIntent{}, ErrNotFound
		}
		return gateway.PaymentIntent{}, err
	}
	if purchase.BuyerID != userID {
		return gateway.PaymentIntent{}, ErrNotFound
	}
	if purchase.TransactionFeePaid {
		return gateway.PaymentIntent{}, invalidState("transaction fee", "PAID", "pay")
	}
	if err := s.startPaying(ctx, purchase); err != nil {
		return gateway.PaymentIntent{}, err
	}
	return s.initiate(ctx, userID, models.LedgerTransactionFee, purchase.TransactionFee, purchase.AuctionID, &purchaseID)
}

// PayBalance starts payment of the remaining vehicle price on a purchase.
func (s *PaymentService) PayBalance(ctx context.Context, userID, purchaseID string) (gateway.PaymentIntent, error) {
	purchase, err := s.purchases.GetByID(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return gateway.PaymentIntent{}, ErrNotFound
		}
		return gateway.PaymentIntent{}, err
	}
	if purchase.BuyerID != userID {
		return gateway.PaymentIntent{}, ErrNotFound
	}
	if purchase.Status == models.PurchaseCompleted {
		return gateway.PaymentIntent{}, invalidState("purchase", string(purchase.Status), "pay balance")
	}
	if err := s.startPaying(ctx, purchase); err != nil {
		return gateway.PaymentIntent{}, err
	}
	return s.initiate(ctx, userID, models.LedgerBalance, purchase.BalanceAmount, purchase.AuctionID, &purchaseID)
}

// startPaying moves a freshly confirmed purchase to PAYMENT_PENDING the
// first time the buyer initiates one of its charges.
func (s *PaymentService) startPaying(ctx context.Context, purchase models.Purchase) error {
	if purchase.Status != models.PurchasePending {
		return nil
	}
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.purchases.SetStatus(ctx, tx, purchase.ID, models.PurchasePaymentPending)
	})
}

// initiate finds or creates the DUE ledger entry for the charge and asks
// the gateway for a payment intent, recording the gateway reference on
// the entry so the callback can find it.
func (s *PaymentService) initiate(ctx context.Context, userID string, kind models.LedgerKind, amount int64, auctionID, purchaseID *string) (gateway.PaymentIntent, error) {
	if amount <= 0 {
		return gateway.PaymentIntent{}, validationErr("amount", "nothing due")
	}
	entry, err := s.ledger.FindOpen(ctx, userID, kind, auctionID, purchaseID)
	if errors.Is(err, sql.ErrNoRows) {
		entry = models.LedgerEntry{
			ID:         uuid.NewString(),
			UserID:     userID,
			AuctionID:  auctionID,
			PurchaseID: purchaseID,
			Kind:       kind,
			Amount:     amount,
			Status:     models.LedgerDue,
		}
		err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
			return s.ledger.Insert(ctx, tx, store.LedgerEntryInput{
				ID:         entry.ID,
				UserID:     entry.UserID,
				AuctionID:  entry.AuctionID,
				PurchaseID: entry.PurchaseID,
				Kind:       entry.Kind,
				Amount:     entry.Amount,
				Status:     entry.Status,
			})
		})
	}
	if err != nil {
		return gateway.PaymentIntent{}, err
	}

	intent, err := s.gateway.Initiate(entry.UserID, string(kind), entry.Amount)
	if err != nil {
		return gateway.PaymentIntent{}, err
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.ledger.SetGatewayRef(ctx, tx, entry.ID, intent.Reference)
	})
	if err != nil {
		return gateway.PaymentIntent{}, err
	}
	return intent, nil
}

// CallbackRequest is the gateway's server-to-server confirmation.
type CallbackRequest struct {
	Reference string
	Amount    int64
	Status    string
	Signature string
}

// Callback applies a gateway confirmation to the ledger. The signature
// must verify and the amount must match the entry; a failed or replayed
// callback leaves the entry exactly as it was.
func (s *PaymentService) Callback(ctx context.Context, req CallbackRequest) error {
	if !s.gateway.VerifyCallback(req.Reference, req.Amount, req.Status, req.Signature) {
		observability.PaymentCallbacks.WithLabelValues("bad_signature").Inc()
		return &PaymentVerificationError{Reference: req.Reference, Reason: "signature mismatch"}
	}
	if req.Status != "success" {
		observability.PaymentCallbacks.WithLabelValues("failed").Inc()
		return nil
	}

	var applied models.LedgerEntry
	var firstApply bool
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		firstApply = false
		entry, err := s.ledger.GetByRefForUpdate(ctx, tx, req.Reference)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &PaymentVerificationError{Reference: req.Reference, Reason: "unknown reference"}
			}
			return err
		}
		if entry.Amount != req.Amount {
			return &PaymentVerificationError{Reference: req.Reference, Reason: "amount mismatch"}
		}
		rows, err := s.ledger.MarkPaidByRef(ctx, tx, req.Reference)
		if err != nil {
			return err
		}
		if rows == 0 {
			// Already PAID: the gateway retried delivery.
			return nil
		}
		firstApply = true
		applied = entry

		switch entry.Kind {
		case models.LedgerRegistration:
			if err := s.users.MarkRegistrationPaid(ctx, tx, entry.UserID); err != nil {
				return err
			}
		case models.LedgerTransactionFee:
			if entry.PurchaseID != nil {
				if err := s.purchases.MarkTransactionFeePaid(ctx, tx, *entry.PurchaseID); err != nil {
					return err
				}
			}
		case models.LedgerBalance:
			if entry.PurchaseID != nil {
				if err := s.purchases.SetStatus(ctx, tx, *entry.PurchaseID, models.PurchaseCompleted); err != nil {
					return err
				}
			}
		}
		data, _ := json.Marshal(map[string]any{"kind": entry.Kind, "amount": entry.Amount, "ref": req.Reference})
		return s.audit.Log(ctx, tx, entry.UserID, "payment.apply", "ledger_entry", entry.ID, string(data))
	})
	if err != nil {
		var pve *PaymentVerificationError
		if errors.As(err, &pve) {
			observability.PaymentCallbacks.WithLabelValues("rejected").Inc()
		}
		return err
	}
	if firstApply {
		observability.PaymentCallbacks.WithLabelValues("applied").Inc()
		s.publisher.Publish(ctx, events.TopicPaymentApplied, map[string]any{
			"ledger_entry_id": applied.ID,
			"user_id":         applied.UserID,
			"kind":            applied.Kind,
			"amount":          applied.Amount,
		})
	} else {
		observability.PaymentCallbacks.WithLabelValues("duplicate").Inc()
	}
	return nil
}

// Outstanding reports the total amount the user still owes.
func (s *PaymentService) Outstanding(ctx context.Context, userID string) (int64, error) {
	return s.ledger.OutstandingByUser(ctx, userID)
}
