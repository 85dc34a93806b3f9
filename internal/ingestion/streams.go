package ingestion

import (
	"context"
	"fmt"
	"time"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/horizon"
	"stellar-sentinel/internal/observability"
	"stellar-sentinel/internal/storage"
)

// IngestTransactionsStream runs one cycle of the transaction stream: fetch
// the next ascending page after the stream's checkpoint, upsert every record
// with its operations, and advance the checkpoint atomically with the batch.
// An empty page leaves the checkpoint untouched. Returns how many
// transactions and operations were created.
func (s *Service) IngestTransactionsStream(ctx context.Context, limit int) (int, int, error) {
	const stream = domain.StreamTransactions
	start := time.Now()

	cp, err := s.stores.Checkpoints.Get(ctx, stream)
	if err != nil {
		return 0, 0, fmt.Errorf("read checkpoint %s: %w", stream, err)
	}

	page, err := s.client.Transactions(ctx, cp.LastPagingToken, limit)
	if err != nil {
		s.failStream(ctx, stream, err)
		return 0, 0, err
	}
	if len(page) == 0 {
		observability.RecordEmptyPage(stream)
		return 0, 0, nil
	}

	// Operation detail fetches happen before the batch opens so that no
	// network call runs inside the transaction.
	opsByHash := make(map[string][]horizon.OperationRecord, len(page))
	for _, record := range page {
		if _, err := s.stores.Transactions.GetByHash(ctx, record.Hash); err == nil {
			continue
		} else if !isNotFound(err) {
			return 0, 0, err
		}
		ops, err := s.client.TransactionOperations(ctx, record.Hash)
		if err != nil {
			s.failStream(ctx, stream, err)
			return 0, 0, err
		}
		opsByHash[record.Hash] = ops
	}

	var txCreated, opsCreated int
	err = s.runner.RunInTx(ctx, func(tx *storage.Stores) error {
		var lastToken string
		var lastLedger int64
		for _, record := range page {
			created, txID, err := upsertTransaction(ctx, tx, record)
			if err != nil {
				return err
			}
			if created {
				txCreated++
			}
			for _, op := range opsByHash[record.Hash] {
				opCreated, err := upsertOperation(ctx, tx, txID, op)
				if err != nil {
					return err
				}
				if opCreated {
					opsCreated++
				}
			}
			lastToken = record.PagingToken
			lastLedger = record.Ledger
		}
		return tx.Checkpoints.Advance(ctx, stream, lastToken, &lastLedger)
	})
	if err != nil {
		s.failStream(ctx, stream, err)
		return 0, 0, err
	}

	s.recordCycle(stream, len(page), start)
	s.logger.Printf("Transaction stream cycle: %d records, %d transactions created, %d operations created",
		len(page), txCreated, opsCreated)
	return txCreated, opsCreated, nil
}

// IngestOperationsStream runs one cycle of the operations stream. It is the
// primary ingestion path: each operation pulls in its parent transaction on
// demand via a single detail fetch, so no per-transaction operations listing
// is ever needed.
func (s *Service) IngestOperationsStream(ctx context.Context, limit int) (int, int, error) {
	const stream = domain.StreamOperations
	start := time.Now()

	cp, err := s.stores.Checkpoints.Get(ctx, stream)
	if err != nil {
		return 0, 0, fmt.Errorf("read checkpoint %s: %w", stream, err)
	}

	page, err := s.client.Operations(ctx, cp.LastPagingToken, limit)
	if err != nil {
		s.failStream(ctx, stream, err)
		return 0, 0, err
	}
	if len(page) == 0 {
		observability.RecordEmptyPage(stream)
		return 0, 0, nil
	}

	// Parent transactions unknown to the store get a detail fetch before the
	// batch opens; known ones are resolved inside the batch by hash.
	parents := make(map[string]*horizon.TransactionRecord, len(page))
	for _, op := range page {
		if _, ok := parents[op.TransactionHash]; ok {
			continue
		}
		if _, err := s.stores.Transactions.GetByHash(ctx, op.TransactionHash); err == nil {
			parents[op.TransactionHash] = nil
			continue
		} else if !isNotFound(err) {
			return 0, 0, err
		}
		detail, err := s.client.TransactionByHash(ctx, op.TransactionHash)
		if err != nil {
			s.failStream(ctx, stream, err)
			return 0, 0, err
		}
		parents[op.TransactionHash] = detail
	}

	var txCreated, opsCreated int
	err = s.runner.RunInTx(ctx, func(tx *storage.Stores) error {
		txIDs := make(map[string]int64, len(parents))
		var lastToken string
		var lastLedger int64

		for _, op := range page {
			txID, ok := txIDs[op.TransactionHash]
			if !ok {
				if detail := parents[op.TransactionHash]; detail != nil {
					created, id, err := upsertTransaction(ctx, tx, *detail)
					if err != nil {
						return err
					}
					if created {
						txCreated++
					}
					txID = id
					lastLedger = detail.Ledger
				} else {
					stored, err := tx.Transactions.GetByHash(ctx, op.TransactionHash)
					if err != nil {
						return fmt.Errorf("resolve parent transaction %s: %w", op.TransactionHash, err)
					}
					txID = stored.ID
					lastLedger = stored.Ledger
				}
				txIDs[op.TransactionHash] = txID
			}

			created, err := upsertOperation(ctx, tx, txID, op)
			if err != nil {
				return err
			}
			if created {
				opsCreated++
			}
			lastToken = op.PagingToken
		}
		return tx.Checkpoints.Advance(ctx, stream, lastToken, &lastLedger)
	})
	if err != nil {
		s.failStream(ctx, stream, err)
		return 0, 0, err
	}

	s.recordCycle(stream, len(page), start)
	s.logger.Printf("Operations stream cycle: %d records, %d transactions created, %d operations created",
		len(page), txCreated, opsCreated)
	return txCreated, opsCreated, nil
}

// failStream records a failed cycle against the stream's checkpoint. The
// cursor stays where it was, so the next cycle is a clean retry.
func (s *Service) failStream(ctx context.Context, stream string, cause error) {
	s.logger.Printf("Ingestion cycle failed for %s: %v", stream, cause)
	observability.RecordIngestionError(stream)
	if err := s.stores.Checkpoints.RecordError(ctx, stream, cause.Error()); err != nil {
		s.logger.Printf("Failed to record ingestion error for %s: %v", stream, err)
	}
}

func (s *Service) recordCycle(stream string, records int, start time.Time) {
	observability.RecordStreamCycle(stream, records, time.Since(start).Seconds(), float64(time.Now().Unix()))
	if cp, err := s.stores.Checkpoints.Get(context.Background(), stream); err == nil && cp.LastLedger != nil {
		observability.RecordCheckpointLedger(stream, *cp.LastLedger)
	}
}
