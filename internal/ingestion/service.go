package ingestion

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/horizon"
	"stellar-sentinel/internal/observability"
	"stellar-sentinel/internal/storage"
)

// DefaultRefreshConcurrency bounds parallel per-account watchlist refreshes.
const DefaultRefreshConcurrency = 4

// Service ingests ledger data from Horizon into the store. One Service is
// shared by the periodic stream cycles and on-demand account ingestion; all
// batch writes go through the TxRunner so entity writes and checkpoint
// advances commit together.
type Service struct {
	runner             storage.TxRunner
	stores             *storage.Stores
	client             horizon.Client
	logger             *log.Logger
	refreshConcurrency int
}

// Options contains configuration for creating a Service.
type Options struct {
	Runner             storage.TxRunner
	Stores             *storage.Stores
	Client             horizon.Client
	Logger             *log.Logger
	RefreshConcurrency int
}

// NewService creates a new ingestion service.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	concurrency := opts.RefreshConcurrency
	if concurrency <= 0 {
		concurrency = DefaultRefreshConcurrency
	}

	return &Service{
		runner:             opts.Runner,
		stores:             opts.Stores,
		client:             opts.Client,
		logger:             logger,
		refreshConcurrency: concurrency,
	}
}

// IngestAccount fetches one account from Horizon and stores it with a fresh
// balance snapshot per held asset. Safe to call repeatedly; only the
// snapshots accumulate. Returns the account plus how many snapshots and
// assets were created.
func (s *Service) IngestAccount(ctx context.Context, address string) (*domain.Account, int, int, error) {
	record, err := s.client.Account(ctx, address)
	if err != nil {
		return nil, 0, 0, err
	}

	now := time.Now().UTC()
	metadata := accountMetadata(record)

	var (
		account         *domain.Account
		balancesCreated int
		assetsCreated   int
	)
	err = s.runner.RunInTx(ctx, func(tx *storage.Stores) error {
		var err error
		account, _, err = tx.Accounts.Upsert(ctx, address, metadata, now)
		if err != nil {
			return fmt.Errorf("upsert account %s: %w", address, err)
		}

		for _, balance := range record.Balances {
			assetID, assetCreated, err := resolveAsset(ctx, tx, balance.AssetType, balance.AssetCode, balance.AssetIssuer, "balance")
			if err != nil {
				return fmt.Errorf("resolve asset %s: %w", balance.AssetCode, err)
			}
			if assetCreated {
				assetsCreated++
				observability.RecordEntityCreated("asset")
			}

			snapshot, err := balanceSnapshot(account.ID, assetID, balance, now)
			if err != nil {
				return fmt.Errorf("parse balance for %s: %w", address, err)
			}
			if err := tx.Balances.Insert(ctx, snapshot); err != nil {
				return fmt.Errorf("insert balance snapshot: %w", err)
			}
			balancesCreated++
		}
		return nil
	})
	if err != nil {
		return nil, 0, 0, err
	}

	observability.DefaultMetrics.AccountsIngested.Inc()
	observability.DefaultMetrics.BalanceSnapshots.Add(float64(balancesCreated))

	s.logger.Printf("Ingested account %s: %d balance snapshots, %d new assets",
		address, balancesCreated, assetsCreated)
	return account, balancesCreated, assetsCreated, nil
}

// RefreshSummary contains statistics from a watchlist refresh.
type RefreshSummary struct {
	TotalAccounts   int
	Successful      int
	Failed          int
	BalancesUpdated int
	TxIngested      int
}

// RefreshWatchlistAccounts re-ingests every watched account and its recent
// transactions. Per-account failures are counted, not propagated, so one
// unreachable account cannot abort the refresh.
func (s *Service) RefreshWatchlistAccounts(ctx context.Context) (*RefreshSummary, error) {
	accounts, err := s.stores.Watchlists.ListWatchedAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list watched accounts: %w", err)
	}

	summary := &RefreshSummary{TotalAccounts: len(accounts)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.refreshConcurrency)

	for _, account := range accounts {
		address := account.Address
		g.Go(func() error {
			txIngested, balancesUpdated, err := s.refreshAccount(gctx, address)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Printf("Failed to refresh watchlist account %s: %v", address, err)
				summary.Failed++
				observability.RecordWatchlistRefresh("failed")
				return nil
			}
			summary.Successful++
			summary.BalancesUpdated += balancesUpdated
			summary.TxIngested += txIngested
			observability.RecordWatchlistRefresh("success")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	s.logger.Printf("Watchlist refresh completed: %d accounts, %d ok, %d failed, %d balances, %d transactions",
		summary.TotalAccounts, summary.Successful, summary.Failed, summary.BalancesUpdated, summary.TxIngested)
	return summary, nil
}

// refreshAccount re-ingests one account's balances and recent transactions.
func (s *Service) refreshAccount(ctx context.Context, address string) (int, int, error) {
	_, balancesUpdated, _, err := s.IngestAccount(ctx, address)
	if err != nil {
		return 0, 0, err
	}

	recent, err := s.client.AccountTransactions(ctx, address, 10)
	if err != nil {
		return 0, balancesUpdated, err
	}

	txIngested := 0
	for _, record := range recent {
		created, err := s.ingestTransactionDetail(ctx, record)
		if err != nil {
			return txIngested, balancesUpdated, err
		}
		if created {
			txIngested++
		}
	}
	return txIngested, balancesUpdated, nil
}

// ingestTransactionDetail stores one transaction and its operations as a
// single batch. Already-known transactions are skipped without a fetch.
func (s *Service) ingestTransactionDetail(ctx context.Context, record horizon.TransactionRecord) (bool, error) {
	if _, err := s.stores.Transactions.GetByHash(ctx, record.Hash); err == nil {
		return false, nil
	} else if !isNotFound(err) {
		return false, err
	}

	ops, err := s.client.TransactionOperations(ctx, record.Hash)
	if err != nil {
		return false, err
	}

	var created bool
	err = s.runner.RunInTx(ctx, func(tx *storage.Stores) error {
		var txID int64
		created, txID, err = upsertTransaction(ctx, tx, record)
		if err != nil {
			return err
		}
		for _, op := range ops {
			if _, err := upsertOperation(ctx, tx, txID, op); err != nil {
				return err
			}
		}
		return nil
	})
	return created, err
}
