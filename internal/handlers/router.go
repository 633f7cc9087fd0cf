package handlers

import (
	"net/http"

	"vahanbid/internal/config"
	"vahanbid/internal/db"
	"vahanbid/internal/middleware"
	"vahanbid/internal/store"
	"vahanbid/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handler struct {
	txRunner    db.TxRunner
	cfg         config.Config
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
	hub         *websocket.Hub
}

func New(txRunner db.TxRunner, cfg config.Config, users UserStore, listings ListingStore, auctions AuctionStore, bids BidStore, ledger LedgerStore, purchases PurchaseStore, admin AdminStore, audit AuditStore, listingSvc ListingService, auctionSvc AuctionService, bidSvc BidService, settlements SettlementService, payments PaymentService, hub *websocket.Hub) *Handler {
	return &Handler{
		txRunner:    txRunner,
		cfg:         cfg,
		users:       users,
		listings:    listings,
		auctions:    auctions,
		bids:        bids,
		ledger:      ledger,
		purchases:   purchases,
		admin:       admin,
		audit:       audit,
		listingSvc:  listingSvc,
		auctionSvc:  auctionSvc,
		bidSvc:      bidSvc,
		settlements: settlements,
		payments:    payments,
		hub:         hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(middleware.Auth(h.cfg.JWTSecret)).Get("/me", h.Me)
	})

	router.Group(func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Post("/listings", h.SubmitListing)
		r.Get("/listings", h.ListListings)
		r.Get("/listings/{id}", h.GetListing)
		r.Post("/listings/{id}/buy", h.BuyListing)
		r.Get("/auctions", h.ListAuctions)
		r.Get("/auctions/{id}", h.GetAuction)
		r.Post("/auctions/{id}/bids", h.PlaceBid)
		r.Get("/auctions/{id}/bids", h.ListBids)
		r.Post("/auctions/{id}/approve", h.ApproveBid)
		r.Post("/auctions/{id}/reject", h.RejectBid)
		r.Post("/payments/registration", h.PayRegistrationFee)
		r.Post("/payments/emd", h.PayEMD)
		r.Post("/payments/transaction-fee", h.PayTransactionFee)
		r.Post("/payments/balance", h.PayBalance)
		r.Get("/payments/outstanding", h.Outstanding)
		r.Get("/payments/ledger", h.ListLedger)
		r.Get("/purchases", h.ListPurchases)
		r.Get("/purchases/{id}", h.GetPurchase)
	})

	// Gateway webhook: authenticated by signature, not by bearer token.
	router.Post("/payments/callback", h.PaymentCallback)

	router.Get("/ws/auctions/{id}", h.WSAuction)

	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.With(middleware.RequireAdmin(h.admin, store.RoleModerateListings)).Post("/listings/{id}/approve", h.ApproveListing)
		r.With(middleware.RequireAdmin(h.admin, store.RoleModerateListings)).Post("/listings/{id}/reject", h.RejectListing)
		r.With(middleware.RequireAdmin(h.admin, store.RoleModerateListings)).Post("/listings/bulk-approve", h.BulkApproveListings)
		r.With(middleware.RequireAdmin(h.admin, store.RoleModerateListings)).Post("/auctions", h.CreateAuction)
		r.With(middleware.RequireAdmin(h.admin, store.RoleReviewKYC)).Post("/users/{id}/kyc", h.ReviewKYC)
		r.With(middleware.RequireAdmin(h.admin, store.RoleViewReports)).Get("/users", h.AdminListUsers)
		r.With(middleware.RequireAdmin(h.admin, store.RoleViewReports)).Get("/audit", h.ListAuditLogs)
		r.With(middleware.RequireAdmin(h.admin, store.RoleViewReports)).Get("/reports/outstanding", h.OutstandingReport)
		r.With(middleware.RequireAdmin(h.admin, "")).Post("/roles/grant", h.GrantRole)
		r.With(middleware.RequireAdmin(h.admin, "")).Post("/promote", h.PromoteAdmin)
	})

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
