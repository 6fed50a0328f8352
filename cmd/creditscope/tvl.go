package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"creditScope/internal/aggregate"
	"creditScope/internal/chain"
	"creditScope/internal/config"
	"creditScope/internal/indexer"
	"creditScope/internal/model"
	"creditScope/internal/multicall"
	"creditScope/internal/storage/postgres"
	"creditScope/internal/tvl"
)

type tvlOutput struct {
	ChainID      uint64               `json:"chain_id"`
	Version      string               `json:"version"`
	Contract     string               `json:"contract"`
	Block        uint64               `json:"block"`
	TotalValue   string               `json:"total_value,omitempty"`
	Formatted    string               `json:"formatted,omitempty"`
	OpenAccounts int                  `json:"open_accounts"`
	Positions    []model.OpenPosition `json:"positions,omitempty"`
	Unresolved   []common.Address     `json:"unresolved,omitempty"`
}

func runTVL(cmd *cobra.Command, _ []string) error {
	return runCalculator(cmd, true)
}

func runAccounts(cmd *cobra.Command, _ []string) error {
	return runCalculator(cmd, false)
}

func runCalculator(cmd *cobra.Command, withValue bool) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadTVL(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	version, err := model.ParseVersion(cfg.Version)
	if err != nil {
		return err
	}
	contract, err := indexer.ParseAddress(cfg.Contract)
	if err != nil {
		return fmt.Errorf("contract: %w", err)
	}
	block, err := config.ParseBlock(cfg.Block)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	var source tvl.Source
	if cfg.In != "" {
		source = tvl.NewFileSource(cfg.In)
	} else {
		source = tvl.NewRPCSource(chainClient, tvl.RPCSourceConfig{
			FromBlock:         cfg.FromBlock,
			BatchSize:         cfg.BatchSize,
			MaxRetries:        cfg.MaxRetries,
			RetryBackoff:      cfg.RetryBackoff,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}, logger)
	}

	opts := tvl.Options{SkipUnresolved: cfg.SkipUnresolved}
	if withValue && cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		opts.Snapshots = store
	}

	multicallAddress := multicall.DefaultAddress
	if cfg.Multicall != "" {
		multicallAddress, err = indexer.ParseAddress(cfg.Multicall)
		if err != nil {
			return fmt.Errorf("multicall: %w", err)
		}
	}
	batcher := multicall.NewClient(chainClient, multicallAddress, cfg.ChunkSize)

	calc := tvl.NewCalculator(chainClient, source, batcher, opts, logger)
	req := tvl.Request{Version: version, Contract: contract, Block: block}

	logger.Info("start",
		zap.String("command", cmd.Name()),
		zap.Stringer("version", version),
		zap.String("contract", contract.Hex()),
		zap.String("block", cfg.Block),
		zap.String("in", cfg.In),
		zap.Bool("skip_unresolved", cfg.SkipUnresolved),
		zap.Bool("store_snapshot", opts.Snapshots != nil),
	)

	var result tvl.Result
	if withValue {
		result, err = calc.Compute(ctx, req)
	} else {
		result, err = calc.OpenPositions(ctx, req)
	}
	if err != nil {
		return err
	}

	chainID, err := chainClient.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	out := tvlOutput{
		ChainID:      chainID,
		Version:      result.Version.String(),
		Contract:     result.Contract.Hex(),
		Block:        result.Block,
		TotalValue:   result.TotalValue,
		OpenAccounts: len(result.Positions),
		Unresolved:   result.Unresolved,
	}
	if !withValue {
		out.Positions = result.Positions
	}
	if withValue && cfg.Decimals >= 0 {
		if cfg.Decimals > 255 {
			return fmt.Errorf("decimals out of range: %d", cfg.Decimals)
		}
		out.Formatted, err = aggregate.FormatUnits(result.TotalValue, uint8(cfg.Decimals))
		if err != nil {
			return err
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
