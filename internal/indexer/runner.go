package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"creditScope/internal/chain"
	"creditScope/internal/model"
	"creditScope/internal/storage"
)

// LogSource is the node API the runner needs.
type LogSource interface {
	ChainID(ctx context.Context) (uint64, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterLogs(ctx context.Context, filter chain.LogFilter) ([]types.Log, error)
}

// RunConfig holds runtime settings for the indexer.
type RunConfig struct {
	FromBlock uint64
	// ToBlock is inclusive; 0 means the latest block at start.
	ToBlock           uint64
	Addresses         []common.Address
	Topic0            []common.Hash
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	// RequestsPerSecond caps RPC requests; 0 disables limiting.
	RequestsPerSecond float64
	IncludeTimestamps bool
}

// Summary describes a completed run.
type Summary struct {
	ChainID   uint64
	FromBlock uint64
	ToBlock   uint64
	Logs      int
}

// Runner streams logs from the chain and writes them to storage.
type Runner struct {
	cfg        RunConfig
	chain      LogSource
	storage    storage.Storage
	logger     *zap.Logger
	limiter    *rate.Limiter
	seen       map[string]struct{}
	checkpoint *CheckpointStore
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, source LogSource, storageSink storage.Storage, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &Runner{
		cfg:        cfg,
		chain:      source,
		storage:    storageSink,
		logger:     logger,
		limiter:    limiter,
		seen:       make(map[string]struct{}),
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled, scopeKey(cfg.Addresses)),
	}
}

// Run executes the indexing loop.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	if r.chain == nil {
		return Summary{}, fmt.Errorf("chain client is nil")
	}
	if r.storage == nil {
		return Summary{}, fmt.Errorf("storage is nil")
	}
	if r.cfg.BatchSize == 0 {
		return Summary{}, fmt.Errorf("batch size must be greater than zero")
	}
	if len(r.cfg.Addresses) == 0 {
		return Summary{}, fmt.Errorf("at least one address is required")
	}

	var chainID uint64
	err := r.call(ctx, "chain id", func(ctx context.Context) error {
		var err error
		chainID, err = r.chain.ChainID(ctx)
		return err
	})
	if err != nil {
		return Summary{}, fmt.Errorf("get chain id: %w", err)
	}

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		err := r.call(ctx, "latest block", func(ctx context.Context) error {
			var err error
			to, err = r.chain.LatestBlockNumber(ctx)
			return err
		})
		if err != nil {
			return Summary{}, fmt.Errorf("get latest block: %w", err)
		}
	}
	summary := Summary{ChainID: chainID, FromBlock: from, ToBlock: to}

	if r.checkpoint != nil {
		cp, ok, err := r.checkpoint.Load()
		if err != nil {
			return Summary{}, err
		}
		if ok && cp.LastProcessedBlock >= from {
			from = cp.LastProcessedBlock + 1
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedBlock), zap.Uint64("from", from))
		}
	}

	if from > to {
		r.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		return summary, nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return Summary{}, err
	}

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return Summary{}, ctx.Err()
		default:
		}

		r.logger.Debug("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

		logs, err := r.filterLogs(ctx, blockRange)
		if err != nil {
			return Summary{}, fmt.Errorf("filter logs: %w", err)
		}

		ingestedAt := time.Now().UTC()
		records := make([]model.LogRecord, 0, len(logs))
		for _, log := range logs {
			if r.isDuplicate(log) {
				continue
			}

			var ts uint64
			if r.cfg.IncludeTimestamps {
				ts, err = r.blockTimestamp(ctx, log.BlockNumber)
				if err != nil {
					return Summary{}, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
				}
			}
			records = append(records, toLogRecord(chainID, log, ts, ingestedAt))
		}

		if err := r.storage.PutLogBatch(records); err != nil {
			return Summary{}, fmt.Errorf("store logs: %w", err)
		}
		summary.Logs += len(records)

		if r.checkpoint != nil {
			if err := r.checkpoint.Save(blockRange.To); err != nil {
				return Summary{}, err
			}
		}

		r.logger.Info("batch complete", zap.Int("logs", len(records)), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
	}

	return summary, nil
}

// call applies the rate limit and retry policy to one RPC request.
func (r *Runner) call(ctx context.Context, what string, fn func(context.Context) error) error {
	return withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		err := fn(ctx)
		if err != nil {
			r.logger.Warn(what+" failed", zap.Error(err))
		}
		return err
	})
}

func (r *Runner) filterLogs(ctx context.Context, blockRange BlockRange) ([]types.Log, error) {
	var logs []types.Log
	err := r.call(ctx, "filter logs", func(ctx context.Context) error {
		var err error
		logs, err = r.chain.FilterLogs(ctx, chain.LogFilter{
			FromBlock: blockRange.From,
			ToBlock:   blockRange.To,
			Addresses: r.cfg.Addresses,
			Topic0:    r.cfg.Topic0,
		})
		return err
	})
	return logs, err
}

func (r *Runner) blockTimestamp(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	err := r.call(ctx, "block timestamp", func(ctx context.Context) error {
		var err error
		ts, err = r.chain.BlockTimestamp(ctx, blockNumber)
		return err
	})
	return ts, err
}

func (r *Runner) isDuplicate(log types.Log) bool {
	id := logID(log)
	if _, ok := r.seen[id]; ok {
		return true
	}
	r.seen[id] = struct{}{}
	return false
}
