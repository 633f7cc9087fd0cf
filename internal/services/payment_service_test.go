package services

import (
	"context"
	"errors"
	"testing"

	"vahanbid/internal/gateway"
	"vahanbid/internal/models"
	"vahanbid/internal/money"
	"vahanbid/internal/store"
)

func newPaymentService(ledger stubLedgerStore, users stubUserStore, auctions stubAuctionStore, purchases stubPurchaseStore, publisher *stubPublisher) *PaymentService {
	gw := gateway.NewHMACGateway("test-secret", "https://pay.test")
	return NewPaymentService(fakeTxRunner{}, ledger, users, auctions, purchases, stubAuditStore{}, gw, publisher, money.Rupees(599))
}

func signedCallback(ref string, amount int64, status string) CallbackRequest {
	gw := gateway.NewHMACGateway("test-secret", "https://pay.test")
	return CallbackRequest{
		Reference: ref,
		Amount:    amount,
		Status:    status,
		Signature: gw.Sign(ref, amount, status),
	}
}

func TestPayRegistrationFeeReusesOpenEntry(t *testing.T) {
	var stampedRef string
	service := newPaymentService(stubLedgerStore{
		findOpenFn: func(context.Context, string, models.LedgerKind, *string, *string) (models.LedgerEntry, error) {
			return models.LedgerEntry{ID: "led-1", UserID: "user-1", Kind: models.LedgerRegistration, Amount: money.Rupees(599), Status: models.LedgerDue}, nil
		},
		insertFn: func(context.Context, store.Execer, store.LedgerEntryInput) error {
			t.Fatalf("open entry must be reused, not duplicated")
			return nil
		},
		setGatewayRefFn: func(_ context.Context, _ store.Execer, entryID, ref string) error {
			if entryID != "led-1" {
				t.Fatalf("ref stamped on wrong entry: %s", entryID)
			}
			stampedRef = ref
			return nil
		},
	}, stubUserStore{
		getByIDFn: func(_ context.Context, userID string) (models.User, error) {
			return models.User{ID: userID}, nil
		},
	}, stubAuctionStore{}, stubPurchaseStore{}, &stubPublisher{})

	intent, err := service.PayRegistrationFee(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.Reference == "" || intent.Reference != stampedRef {
		t.Fatalf("intent reference not recorded: %q vs %q", intent.Reference, stampedRef)
	}
}

func TestPayRegistrationFeeAlreadyPaid(t *testing.T) {
	service := newPaymentService(stubLedgerStore{}, stubUserStore{
		getByIDFn: func(_ context.Context, userID string) (models.User, error) {
			return models.User{ID: userID, RegistrationFeePaid: true}, nil
		},
	}, stubAuctionStore{}, stubPurchaseStore{}, &stubPublisher{})

	_, err := service.PayRegistrationFee(context.Background(), "user-1")
	var invalid *InvalidStateError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}
}

func TestPayTransactionFeeAdvancesPendingPurchase(t *testing.T) {
	var advanced models.PurchaseStatus
	service := newPaymentService(stubLedgerStore{
		findOpenFn: func(context.Context, string, models.LedgerKind, *string, *string) (models.LedgerEntry, error) {
			return models.LedgerEntry{ID: "led-1", UserID: "user-1", Kind: models.LedgerTransactionFee, Amount: money.Rupees(5_000), Status: models.LedgerDue}, nil
		},
	}, stubUserStore{}, stubAuctionStore{}, stubPurchaseStore{
		getByIDFn: func(context.Context, string) (models.Purchase, error) {
			return models.Purchase{ID: "pur-1", BuyerID: "user-1", Status: models.PurchasePending, TransactionFee: money.Rupees(5_000)}, nil
		},
		setStatusFn: func(_ context.Context, _ store.Execer, purchaseID string, status models.PurchaseStatus) error {
			if purchaseID != "pur-1" {
				t.Fatalf("status change on wrong purchase %s", purchaseID)
			}
			advanced = status
			return nil
		},
	}, &stubPublisher{})

	_, err := service.PayTransactionFee(context.Background(), "user-1", "pur-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if advanced != models.PurchasePaymentPending {
		t.Fatalf("purchase should advance to PAYMENT_PENDING, got %q", advanced)
	}
}

func TestPayBalanceSkipsStatusBumpWhenAlreadyPaymentPending(t *testing.T) {
	service := newPaymentService(stubLedgerStore{
		findOpenFn: func(context.Context, string, models.LedgerKind, *string, *string) (models.LedgerEntry, error) {
			return models.LedgerEntry{ID: "led-2", UserID: "user-1", Kind: models.LedgerBalance, Amount: money.Rupees(245_000), Status: models.LedgerDue}, nil
		},
	}, stubUserStore{}, stubAuctionStore{}, stubPurchaseStore{
		getByIDFn: func(context.Context, string) (models.Purchase, error) {
			return models.Purchase{ID: "pur-1", BuyerID: "user-1", Status: models.PurchasePaymentPending, BalanceAmount: money.Rupees(245_000)}, nil
		},
		setStatusFn: func(context.Context, store.Execer, string, models.PurchaseStatus) error {
			t.Fatal("no status change expected for a purchase already paying")
			return nil
		},
	}, &stubPublisher{})

	if _, err := service.PayBalance(context.Background(), "user-1", "pur-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPayEMDOnEndedAuctionFails(t *testing.T) {
	auction := endedAuction(models.BiddingOpen)
	auction.EMDRequired = true
	auction.EMDAmount = money.Rupees(10000)
	service := newPaymentService(stubLedgerStore{}, stubUserStore{}, stubAuctionStore{
		getByIDFn: func(context.Context, string) (models.Auction, error) {
			return auction, nil
		},
	}, stubPurchaseStore{}, &stubPublisher{})

	_, err := service.PayEMD(context.Background(), "user-1", "auc-1")
	var invalid *InvalidStateError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}
}

func TestCallbackBadSignatureLeavesEntryDue(t *testing.T) {
	service := newPaymentService(stubLedgerStore{
		getByRefForUpdateFn: func(context.Context, store.Getter, string) (models.LedgerEntry, error) {
			t.Fatalf("unverified callback must not read the ledger")
			return models.LedgerEntry{}, nil
		},
	}, stubUserStore{}, stubAuctionStore{}, stubPurchaseStore{}, &stubPublisher{})

	req := signedCallback("pay_1", money.Rupees(599), "success")
	req.Signature = "forged"
	err := service.Callback(context.Background(), req)
	var verification *PaymentVerificationError
	if !errors.As(err, &verification) {
		t.Fatalf("expected PaymentVerificationError, got %v", err)
	}
}

func TestCallbackAmountMismatchRejected(t *testing.T) {
	service := newPaymentService(stubLedgerStore{
		getByRefForUpdateFn: func(context.Context, store.Getter, string) (models.LedgerEntry, error) {
			return models.LedgerEntry{ID: "led-1", Amount: money.Rupees(599), Status: models.LedgerDue}, nil
		},
		markPaidByRefFn: func(context.Context, store.Execer, string) (int64, error) {
			t.Fatalf("mismatched amount must not be applied")
			return 0, nil
		},
	}, stubUserStore{}, stubAuctionStore{}, stubPurchaseStore{}, &stubPublisher{})

	err := service.Callback(context.Background(), signedCallback("pay_1", money.Rupees(100), "success"))
	var verification *PaymentVerificationError
	if !errors.As(err, &verification) {
		t.Fatalf("expected PaymentVerificationError, got %v", err)
	}
}

func TestCallbackAppliesRegistrationFee(t *testing.T) {
	marked := false
	publisher := &stubPublisher{}
	service := newPaymentService(stubLedgerStore{
		getByRefForUpdateFn: func(context.Context, store.Getter, string) (models.LedgerEntry, error) {
			return models.LedgerEntry{ID: "led-1", UserID: "user-1", Kind: models.LedgerRegistration, Amount: money.Rupees(599), Status: models.LedgerDue}, nil
		},
	}, stubUserStore{
		markRegistrationFn: func(context.Context, store.Execer, string) error {
			marked = true
			return nil
		},
	}, stubAuctionStore{}, stubPurchaseStore{}, publisher)

	if err := service.Callback(context.Background(), signedCallback("pay_1", money.Rupees(599), "success")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !marked {
		t.Fatalf("registration flag not set")
	}
	if len(publisher.topics) != 1 {
		t.Fatalf("expected payment.applied event, got %v", publisher.topics)
	}
}

func TestCallbackDuplicateIsNoOp(t *testing.T) {
	publisher := &stubPublisher{}
	service := newPaymentService(stubLedgerStore{
		getByRefForUpdateFn: func(context.Context, store.Getter, string) (models.LedgerEntry, error) {
			return models.LedgerEntry{ID: "led-1", UserID: "user-1", Kind: models.LedgerRegistration, Amount: money.Rupees(599), Status: models.LedgerPaid}, nil
		},
		markPaidByRefFn: func(context.Context, store.Execer, string) (int64, error) {
			return 0, nil
		},
	}, stubUserStore{
		markRegistrationFn: func(context.Context, store.Execer, string) error {
			t.Fatalf("duplicate delivery must not re-apply side effects")
			return nil
		},
	}, stubAuctionStore{}, stubPurchaseStore{}, publisher)

	if err := service.Callback(context.Background(), signedCallback("pay_1", money.Rupees(599), "success")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(publisher.topics) != 0 {
		t.Fatalf("duplicate must not publish, got %v", publisher.topics)
	}
}

func TestCallbackBalanceCompletesPurchase(t *testing.T) {
	var status models.PurchaseStatus
	service := newPaymentService(stubLedgerStore{
		getByRefForUpdateFn: func(context.Context, store.Getter, string) (models.LedgerEntry, error) {
			return models.LedgerEntry{
				ID:         "led-1",
				UserID:     "user-1",
				Kind:       models.LedgerBalance,
				Amount:     money.Rupees(85000),
				Status:     models.LedgerDue,
				PurchaseID: stringPtr("pur-1"),
			}, nil
		},
	}, stubUserStore{}, stubAuctionStore{}, stubPurchaseStore{
		setStatusFn: func(_ context.Context, _ store.Execer, purchaseID string, s models.PurchaseStatus) error {
			if purchaseID != "pur-1" {
				t.Fatalf("wrong purchase: %s", purchaseID)
			}
			status = s
			return nil
		},
	}, &stubPublisher{})

	if err := service.Callback(context.Background(), signedCallback("pay_1", money.Rupees(85000), "success")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != models.PurchaseCompleted {
		t.Fatalf("purchase should complete, got %s", status)
	}
}

func TestCallbackFailedStatusIsIgnored(t *testing.T) {
	service := newPaymentService(stubLedgerStore{
		markPaidByRefFn: func(context.Context, store.Execer, string) (int64, error) {
			t.Fatalf("failed payment must not be applied")
			return 0, nil
		},
		getByRefForUpdateFn: func(context.Context, store.Getter, string) (models.LedgerEntry, error) {
			t.Fatalf("failed payment must not read the ledger")
			return models.LedgerEntry{}, nil
		},
	}, stubUserStore{}, stubAuctionStore{}, stubPurchaseStore{}, &stubPublisher{})

	if err := service.Callback(context.Background(), signedCallback("pay_1", money.Rupees(599), "failed")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
