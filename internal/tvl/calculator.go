// Package tvl reconstructs the open credit accounts of one credit manager or
// credit facade at a block and totals their value.
package tvl

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"creditScope/internal/aggregate"
	"creditScope/internal/gearbox"
	"creditScope/internal/model"
	"creditScope/internal/replay"
)

// Chain is the node access the calculator needs besides logs.
type Chain interface {
	ChainID(ctx context.Context) (uint64, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// SnapshotStore persists computed totals.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snapshot model.TVLSnapshot) error
}

// Request names the protocol instance and the block to evaluate.
type Request struct {
	Version  model.Version
	Contract common.Address
	// Block 0 means the latest block, pinned once at the start of the request.
	Block uint64
}

// Result is the outcome of one computation.
type Result struct {
	Version    model.Version
	Contract   common.Address
	Block      uint64
	Events     int
	TotalValue string
	Positions  []model.OpenPosition
	Unresolved []common.Address
}

type Options struct {
	SkipUnresolved bool
	Snapshots      SnapshotStore
}

// Calculator runs the replay pipeline. Every call recomputes from the event log.
type Calculator struct {
	chain      Chain
	source     Source
	aggregator *aggregate.Aggregator
	opts       Options
	logger     *zap.Logger
	now        func() time.Time
}

func NewCalculator(chain Chain, source Source, multicaller aggregate.Multicaller, opts Options, logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{
		chain:      chain,
		source:     source,
		aggregator: aggregate.NewAggregator(multicaller, logger),
		opts:       opts,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// OpenPositions returns the borrowers holding an open account at the block,
// each paired with its credit account.
func (c *Calculator) OpenPositions(ctx context.Context, req Request) (Result, error) {
	if c.source == nil {
		return Result{}, fmt.Errorf("log source is nil")
	}
	decoder, err := gearbox.NewDecoder(req.Version)
	if err != nil {
		return Result{}, err
	}

	block, err := c.pinBlock(ctx, req.Block)
	if err != nil {
		return Result{}, err
	}

	logs, err := c.source.Logs(ctx, req.Contract, decoder.Topics(), block)
	if err != nil {
		return Result{}, err
	}
	events, err := decoder.DecodeAll(logs)
	if err != nil {
		return Result{}, fmt.Errorf("decode logs: %w", err)
	}

	active := replay.Replay(replay.Normalize(req.Version, events))
	resolution, err := replay.Resolve(active, events, replay.ResolveOptions{
		Policy:         replay.PolicyFor(req.Version),
		SkipUnresolved: c.opts.SkipUnresolved,
		Logger:         c.logger,
	})
	if err != nil {
		return Result{}, err
	}

	c.logger.Info("accounts resolved",
		zap.Stringer("version", req.Version),
		zap.String("contract", req.Contract.Hex()),
		zap.Uint64("block", block),
		zap.Int("events", len(events)),
		zap.Int("active", active.Len()),
		zap.Int("unresolved", len(resolution.Unresolved)),
	)

	return Result{
		Version:    req.Version,
		Contract:   req.Contract,
		Block:      block,
		Events:     len(events),
		Positions:  resolution.Positions,
		Unresolved: resolution.Unresolved,
	}, nil
}

// Compute resolves the open positions and totals their value with one batch.
func (c *Calculator) Compute(ctx context.Context, req Request) (Result, error) {
	result, err := c.OpenPositions(ctx, req)
	if err != nil {
		return Result{}, err
	}

	if len(result.Positions) == 0 {
		result.TotalValue = "0"
	} else {
		total, err := c.totalValue(ctx, result)
		if err != nil {
			return Result{}, err
		}
		result.TotalValue = total
	}

	if c.opts.Snapshots != nil {
		if err := c.saveSnapshot(ctx, result); err != nil {
			return Result{}, err
		}
	}
	return result, nil
}

func (c *Calculator) totalValue(ctx context.Context, result Result) (string, error) {
	if c.chain == nil {
		return "", fmt.Errorf("chain client is nil")
	}
	query, err := gearbox.NewValueQuery(result.Version)
	if err != nil {
		return "", err
	}
	blockNumber := new(big.Int).SetUint64(result.Block)
	target, err := gearbox.ValueTarget(ctx, c.chain, result.Version, result.Contract, blockNumber)
	if err != nil {
		return "", fmt.Errorf("value target: %w", err)
	}
	accounts := replay.Resolution{Positions: result.Positions}.Accounts()
	return c.aggregator.TotalValue(ctx, target, query, accounts, blockNumber)
}

func (c *Calculator) pinBlock(ctx context.Context, block uint64) (uint64, error) {
	if block != 0 {
		return block, nil
	}
	if c.chain == nil {
		return 0, fmt.Errorf("latest block requires a chain client")
	}
	latest, err := c.chain.LatestBlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("get latest block: %w", err)
	}
	return latest, nil
}

func (c *Calculator) saveSnapshot(ctx context.Context, result Result) error {
	if c.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	chainID, err := c.chain.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	snapshot := model.TVLSnapshot{
		ChainID:     chainID,
		Contract:    result.Contract.Hex(),
		Version:     result.Version,
		BlockNumber: result.Block,
		TotalValue:  result.TotalValue,
		Positions:   result.Positions,
		ComputedAt:  c.now(),
	}
	if err := c.opts.Snapshots.SaveSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}
