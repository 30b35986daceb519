package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/billpoint/billpoint-core/internal/ledgertest"
)

const (
	defaultPort = ":8080"
	defaultPIN  = "1234"
	defaultSeed = "5000"
)

// stubledger runs the in-process ledger double as a standalone server
// so the client core can be exercised manually against a live push
// channel (use POST /fund to simulate money arriving).
func main() {
	// Optional .env for local overrides
	_ = godotenv.Load()

	logger := stdr.New(log.New(os.Stderr, "", log.LstdFlags))

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}
	pin := os.Getenv("LEDGER_PIN")
	if pin == "" {
		pin = defaultPIN
	}
	seedStr := os.Getenv("SEED_BALANCE")
	if seedStr == "" {
		seedStr = defaultSeed
	}
	seed, err := decimal.NewFromString(seedStr)
	if err != nil {
		log.Fatalf("Invalid SEED_BALANCE %q: %v", seedStr, err)
	}

	userID := uuid.New()
	if raw := os.Getenv("LEDGER_USER_ID"); raw != "" {
		userID, err = uuid.Parse(raw)
		if err != nil {
			log.Fatalf("Invalid LEDGER_USER_ID %q: %v", raw, err)
		}
	}

	stub := ledgertest.NewServer(userID, pin, seed)
	srv := &http.Server{
		Addr:    port,
		Handler: stub,
	}

	go func() {
		logger.Info("stub ledger listening", "addr", port, "user_id", userID.String(), "seed", seed.String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve stub ledger: %v", err)
		}
	}()

	waitForShutdown(srv, logger.WithName("shutdown"))
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully drains the server
func waitForShutdown(srv *http.Server, logger logr.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logger.Info("received signal, shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	logger.Info("stub ledger stopped")
}
