// Package main provides a one-shot CLI for operating the store without the
// long-running server: ingest a single account, enroll it in a watchlist,
// run one stream cycle, refresh watched accounts, or run one rule cycle.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"stellar-sentinel/internal/horizon"
	"stellar-sentinel/internal/ingestion"
	"stellar-sentinel/internal/rules"
	"stellar-sentinel/internal/storage"
	"stellar-sentinel/internal/storage/memory"
	"stellar-sentinel/internal/storage/migrations"
	pgstore "stellar-sentinel/internal/storage/postgres"
)

func main() {
	// Parse flags
	mode := flag.String("mode", "", "Mode: account, watch, cycle, refresh, or rules")
	address := flag.String("address", "", "Stellar account address (account/watch modes)")
	watchlist := flag.String("watchlist", "default", "Watchlist name (watch mode)")
	reason := flag.String("reason", "", "Enrollment reason (watch mode)")
	streams := flag.String("streams", "transactions,operations", "Streams to cycle (cycle mode)")
	horizonURL := flag.String("horizon-url", envOr("HORIZON_URL", "https://horizon.stellar.org"), "Horizon API base URL")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	pageLimit := flag.Int("page-limit", horizon.MaxPageLimit, "Records fetched per stream cycle")
	dryRun := flag.Bool("dry-run", false, "Evaluate rules without persisting (rules mode)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	if *mode == "" {
		logger.Fatal("--mode is required: account, watch, cycle, refresh, or rules")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel on first signal; one-shot modes finish their current batch.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, cancelling...", sig)
		cancel()
	}()

	stores, runner, cleanup, err := createStores(ctx, *postgresDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	client := horizon.NewHTTPClient(*horizonURL)
	svc := ingestion.NewService(ingestion.Options{
		Runner: runner,
		Stores: stores,
		Client: client,
		Logger: logger,
	})

	switch *mode {
	case "account":
		err = runAccount(ctx, logger, svc, *address)
	case "watch":
		err = runWatch(ctx, logger, svc, stores, *address, *watchlist, *reason)
	case "cycle":
		err = runCycle(ctx, logger, svc, *streams, *pageLimit)
	case "refresh":
		err = runRefresh(ctx, logger, svc)
	case "rules":
		err = runRules(ctx, logger, runner, stores, *dryRun)
	default:
		logger.Fatalf("Unknown mode: %s", *mode)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Error: %v", err)
	}
}

// runAccount ingests one account with a fresh balance snapshot.
func runAccount(ctx context.Context, logger *log.Logger, svc *ingestion.Service, address string) error {
	if address == "" {
		return fmt.Errorf("--address is required for account mode")
	}

	account, balances, assets, err := svc.IngestAccount(ctx, address)
	if err != nil {
		return fmt.Errorf("ingest account %s: %w", address, err)
	}

	logger.Printf("Ingested %s (id %d): %d balance snapshots, %d new assets, risk score %.1f",
		account.Address, account.ID, balances, assets, account.RiskScore)
	return nil
}

// runWatch ingests the account if needed and enrolls it in the named
// watchlist, creating the watchlist on first use.
func runWatch(ctx context.Context, logger *log.Logger, svc *ingestion.Service, stores *storage.Stores, address, name, reason string) error {
	if address == "" {
		return fmt.Errorf("--address is required for watch mode")
	}

	account, _, _, err := svc.IngestAccount(ctx, address)
	if err != nil {
		return fmt.Errorf("ingest account %s: %w", address, err)
	}

	wl, err := stores.Watchlists.GetWatchlistByName(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		wl, err = stores.Watchlists.CreateWatchlist(ctx, name, nil)
	}
	if err != nil {
		return fmt.Errorf("resolve watchlist %s: %w", name, err)
	}

	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	if _, err := stores.Watchlists.AddMember(ctx, wl.ID, account.ID, reasonPtr); err != nil {
		return fmt.Errorf("add %s to watchlist %s: %w", address, name, err)
	}

	logger.Printf("Watching %s in %s", account.Address, wl.Name)
	return nil
}

// runCycle runs one ingestion cycle per requested stream.
func runCycle(ctx context.Context, logger *log.Logger, svc *ingestion.Service, streams string, pageLimit int) error {
	for _, stream := range strings.Split(streams, ",") {
		stream = strings.TrimSpace(stream)
		switch stream {
		case "transactions":
			txs, ops, err := svc.IngestTransactionsStream(ctx, pageLimit)
			if err != nil {
				return fmt.Errorf("transaction cycle: %w", err)
			}
			logger.Printf("Transaction cycle: %d transactions, %d operations", txs, ops)
		case "operations":
			txs, ops, err := svc.IngestOperationsStream(ctx, pageLimit)
			if err != nil {
				return fmt.Errorf("operations cycle: %w", err)
			}
			logger.Printf("Operations cycle: %d transactions, %d operations", txs, ops)
		case "":
		default:
			return fmt.Errorf("unknown stream: %s", stream)
		}
	}
	return nil
}

// runRefresh refreshes every watched account once.
func runRefresh(ctx context.Context, logger *log.Logger, svc *ingestion.Service) error {
	summary, err := svc.RefreshWatchlistAccounts(ctx)
	if err != nil {
		return fmt.Errorf("refresh watchlist: %w", err)
	}

	logger.Printf("Refreshed %d accounts: %d ok, %d failed, %d balances, %d transactions",
		summary.TotalAccounts, summary.Successful, summary.Failed,
		summary.BalancesUpdated, summary.TxIngested)
	return nil
}

// runRules runs one rule engine cycle.
func runRules(ctx context.Context, logger *log.Logger, runner storage.TxRunner, stores *storage.Stores, dryRun bool) error {
	cfg := rules.DefaultConfig()
	cfg.DryRun = dryRun

	engine := rules.NewEngine(rules.EngineOptions{
		Runner: runner,
		Stores: stores,
		Config: cfg,
		Logger: logger,
	})

	summary, err := engine.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("rule cycle: %w", err)
	}

	logger.Printf("Rule cycle: %d rules, %d fired, %d alerts, %d flags, %d duplicates, %d errors",
		summary.RulesEvaluated, summary.FindingsFired, summary.AlertsCreated,
		summary.FlagsCreated, summary.DuplicatesSkipped, summary.RuleErrors)
	return nil
}

// createStores creates the store bundle and transaction runner.
func createStores(ctx context.Context, postgresDSN string, useMemory bool) (*storage.Stores, storage.TxRunner, func(), error) {
	if useMemory {
		db := memory.NewDB()
		return db.Stores(), db, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	return pool.Stores(), pool, pool.Close, nil
}

// envOr returns the environment value or a fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
