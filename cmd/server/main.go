// Package main provides the unified monitoring server that runs all
// components together:
// - Ingestion (periodic): transaction stream, operations stream, watchlist refresh
// - Rule engine (periodic): evaluation, deduplication, alert/flag creation
// - HTTP: health, Prometheus metrics, status
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"stellar-sentinel/internal/horizon"
	"stellar-sentinel/internal/ingestion"
	"stellar-sentinel/internal/observability"
	"stellar-sentinel/internal/rules"
	"stellar-sentinel/internal/storage"
	"stellar-sentinel/internal/storage/memory"
	"stellar-sentinel/internal/storage/migrations"
	pgstore "stellar-sentinel/internal/storage/postgres"
)

// DefaultHorizonURL is the public Horizon instance used when no endpoint is
// configured.
const DefaultHorizonURL = "https://horizon.stellar.org"

// Server holds all components of the unified service.
type Server struct {
	// Configuration
	horizonURL        string
	postgresDSN       string
	useMemory         bool
	pageLimit         int
	txInterval        time.Duration
	opInterval        time.Duration
	watchlistInterval time.Duration
	rulesConfig       rules.Config

	// Components
	ingestSvc *ingestion.Service
	engine    *rules.Engine
	logger    *log.Logger

	// State
	mu               sync.Mutex
	started          time.Time
	lastTxCycle      time.Time
	lastOpCycle      time.Time
	lastRuleCycle    time.Time
	txCycles         int
	opCycles         int
	ruleCycles       int
	watchlistRefresh int
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	horizonURL := flag.String("horizon-url", envOr("HORIZON_URL", DefaultHorizonURL), "Horizon API base URL")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	pageLimit := flag.Int("page-limit", horizon.MaxPageLimit, "Records fetched per stream cycle")
	rateLimit := flag.Int("rate-limit", horizon.DefaultRateLimit, "Horizon requests per second")
	txInterval := flag.Duration("tx-interval", time.Minute, "Transaction stream cycle interval")
	opInterval := flag.Duration("op-interval", time.Minute, "Operations stream cycle interval")
	watchlistInterval := flag.Duration("watchlist-interval", 10*time.Minute, "Watchlist refresh interval")
	rulesInterval := flag.Duration("rules-interval", 0, "Rule engine cycle interval (0 = default)")
	rulesDisabled := flag.Bool("rules-disabled", false, "Disable the rule engine")
	dryRun := flag.Bool("dry-run", false, "Evaluate rules without persisting alerts or flags")
	metricsAddr := flag.String("metrics-addr", ":9090", "HTTP address for health/metrics/status")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, runner, cleanup, err := createStores(ctx, *postgresDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Create Horizon client
	client := horizon.NewHTTPClient(*horizonURL,
		horizon.WithRateLimiter(horizon.NewRateLimiter(*rateLimit, time.Second)),
	)

	// Rule engine configuration
	rulesCfg := rules.DefaultConfig()
	rulesCfg.Enabled = !*rulesDisabled
	rulesCfg.DryRun = *dryRun
	if *rulesInterval > 0 {
		rulesCfg.Interval = *rulesInterval
	}

	server := &Server{
		horizonURL:        *horizonURL,
		postgresDSN:       *postgresDSN,
		useMemory:         *useMemory,
		pageLimit:         *pageLimit,
		txInterval:        *txInterval,
		opInterval:        *opInterval,
		watchlistInterval: *watchlistInterval,
		rulesConfig:       rulesCfg,
		ingestSvc: ingestion.NewService(ingestion.Options{
			Runner: runner,
			Stores: stores,
			Client: client,
			Logger: log.New(os.Stdout, "[ingestion] ", log.LstdFlags|log.Lshortfile),
		}),
		engine: rules.NewEngine(rules.EngineOptions{
			Runner: runner,
			Stores: stores,
			Config: rulesCfg,
			Logger: log.New(os.Stdout, "[rules] ", log.LstdFlags|log.Lshortfile),
		}),
		logger: logger,
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start HTTP server
	go server.startHTTPServer(*metricsAddr)

	// Run the unified server
	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
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

// Run starts all periodic loops and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	s.started = time.Now()
	s.mu.Unlock()

	s.logger.Printf("Starting monitoring server (horizon: %s)...", s.horizonURL)

	errCh := make(chan error, 4)

	go func() { errCh <- s.runTransactionLoop(ctx) }()
	go func() { errCh <- s.runOperationLoop(ctx) }()
	go func() { errCh <- s.runWatchlistLoop(ctx) }()

	if s.rulesConfig.Enabled {
		go func() { errCh <- s.runRuleLoop(ctx) }()
	} else {
		s.logger.Println("Rule engine disabled")
	}

	<-ctx.Done()
	return ctx.Err()
}

// runTransactionLoop runs transaction stream cycles on a fixed interval.
// Cycle failures are already recorded against the checkpoint; the loop
// keeps going.
func (s *Server) runTransactionLoop(ctx context.Context) error {
	s.logger.Printf("Starting transaction stream (interval: %v)...", s.txInterval)

	ticker := time.NewTicker(s.txInterval)
	defer ticker.Stop()

	for {
		txs, ops, err := s.ingestSvc.IngestTransactionsStream(ctx, s.pageLimit)
		if err != nil {
			s.logger.Printf("Transaction cycle error: %v", err)
		} else if txs > 0 || ops > 0 {
			s.logger.Printf("Transaction cycle: %d transactions, %d operations", txs, ops)
		}

		s.mu.Lock()
		s.lastTxCycle = time.Now()
		s.txCycles++
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runOperationLoop runs operations stream cycles on a fixed interval.
func (s *Server) runOperationLoop(ctx context.Context) error {
	s.logger.Printf("Starting operations stream (interval: %v)...", s.opInterval)

	ticker := time.NewTicker(s.opInterval)
	defer ticker.Stop()

	for {
		txs, ops, err := s.ingestSvc.IngestOperationsStream(ctx, s.pageLimit)
		if err != nil {
			s.logger.Printf("Operations cycle error: %v", err)
		} else if txs > 0 || ops > 0 {
			s.logger.Printf("Operations cycle: %d transactions, %d operations", txs, ops)
		}

		s.mu.Lock()
		s.lastOpCycle = time.Now()
		s.opCycles++
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runWatchlistLoop refreshes watched accounts on a fixed interval.
func (s *Server) runWatchlistLoop(ctx context.Context) error {
	s.logger.Printf("Starting watchlist refresh (interval: %v)...", s.watchlistInterval)

	ticker := time.NewTicker(s.watchlistInterval)
	defer ticker.Stop()

	for {
		summary, err := s.ingestSvc.RefreshWatchlistAccounts(ctx)
		if err != nil {
			s.logger.Printf("Watchlist refresh error: %v", err)
		} else if summary.TotalAccounts > 0 {
			s.logger.Printf("Watchlist refresh: %d accounts, %d ok, %d failed",
				summary.TotalAccounts, summary.Successful, summary.Failed)
		}

		s.mu.Lock()
		s.watchlistRefresh++
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runRuleLoop runs rule engine cycles on the configured interval.
func (s *Server) runRuleLoop(ctx context.Context) error {
	s.logger.Printf("Starting rule engine (interval: %v, dry-run: %v)...",
		s.rulesConfig.Interval, s.rulesConfig.DryRun)

	ticker := time.NewTicker(s.rulesConfig.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.engine.RunCycle(ctx); err != nil {
			s.logger.Printf("Rule cycle error: %v", err)
		}

		s.mu.Lock()
		s.lastRuleCycle = time.Now()
		s.ruleCycles++
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// startHTTPServer starts the HTTP server for health/metrics/status.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status             string    `json:"status"`
	Uptime             string    `json:"uptime"`
	LastTxCycle        time.Time `json:"last_tx_cycle,omitempty"`
	LastOpCycle        time.Time `json:"last_op_cycle,omitempty"`
	LastRuleCycle      time.Time `json:"last_rule_cycle,omitempty"`
	TxCycles           int       `json:"tx_cycles"`
	OpCycles           int       `json:"op_cycles"`
	RuleCycles         int       `json:"rule_cycles"`
	WatchlistRefreshes int       `json:"watchlist_refreshes"`
	RulesEnabled       bool      `json:"rules_enabled"`
	DryRun             bool      `json:"dry_run"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := StatusResponse{
		Status:             "running",
		Uptime:             time.Since(s.started).String(),
		LastTxCycle:        s.lastTxCycle,
		LastOpCycle:        s.lastOpCycle,
		LastRuleCycle:      s.lastRuleCycle,
		TxCycles:           s.txCycles,
		OpCycles:           s.opCycles,
		RuleCycles:         s.ruleCycles,
		WatchlistRefreshes: s.watchlistRefresh,
		RulesEnabled:       s.rulesConfig.Enabled,
		DryRun:             s.rulesConfig.DryRun,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// envOr returns the environment value or a fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
