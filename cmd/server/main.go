package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vahanbid/internal/config"
	"vahanbid/internal/db"
	"vahanbid/internal/events"
	"vahanbid/internal/gateway"
	"vahanbid/internal/handlers"
	"vahanbid/internal/observability"
	"vahanbid/internal/services"
	"vahanbid/internal/store"
	"vahanbid/internal/websocket"
)

func main() {
	cfg := config.Load()
	observability.InitLogger(cfg.AppEnv)

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	users := store.NewUserStore(database)
	listings := store.NewListingStore(database)
	auctions := store.NewAuctionStore(database)
	bids := store.NewBidStore(database)
	ledger := store.NewLedgerStore(database)
	purchases := store.NewPurchaseStore(database)
	admin := store.NewAdminStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()
	gw := gateway.NewHMACGateway(cfg.GatewaySecret, cfg.GatewayBaseURL)

	var publisher events.Publisher = events.Noop{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			slog.Error("failed to connect message broker", "error", err)
			os.Exit(1)
		}
		publisher = amqpPublisher
	}
	defer publisher.Close()

	listingSvc := services.NewListingService(txRunner, listings, auctions, audit, cfg.DefaultEMDRate)
	settlementSvc := services.NewSettlementService(txRunner, auctions, bids, listings, purchases, ledger, audit, publisher, cfg.FeeRate)
	auctionSvc := services.NewAuctionService(txRunner, auctions, listings, audit, settlementSvc)
	bidSvc := services.NewBidService(txRunner, auctions, bids, users, ledger, audit, hub, publisher)
	paymentSvc := services.NewPaymentService(txRunner, ledger, users, auctions, purchases, audit, gw, publisher, cfg.RegistrationFee)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go auctionSvc.RunSweeper(sweepCtx, cfg.SweepInterval)

	handler := handlers.New(txRunner, cfg, users, listings, auctions, bids, ledger, purchases, admin, audit, listingSvc, auctionSvc, bidSvc, settlementSvc, paymentSvc, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("auction API listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	stopSweep()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
