package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"creditScope/internal/chain"
	"creditScope/internal/config"
	"creditScope/internal/gearbox"
	"creditScope/internal/indexer"
	"creditScope/internal/model"
	"creditScope/internal/multicall"
	"creditScope/internal/storage"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "creditscope",
		Short:        "Gearbox credit account replay and TVL tool",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch credit manager or facade logs into JSONL",
		RunE:  runFetch,
	}

	fetchCmd.Flags().String("rpc", "", "RPC URL")
	fetchCmd.Flags().String("version", "v2", "protocol version (v1 credit manager, v2 credit facade)")
	fetchCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	fetchCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	fetchCmd.Flags().StringSlice("contract", nil, "credit manager or facade addresses (comma-separated)")
	fetchCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	fetchCmd.Flags().String("out", "./data/logs.jsonl", "output JSONL path")
	fetchCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	fetchCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	fetchCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	fetchCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	fetchCmd.Flags().Float64("rps", 0, "max RPC requests per second, 0 disables limiting")
	fetchCmd.Flags().Bool("include-timestamps", true, "attach block timestamps to logs")
	fetchCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(fetchCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode raw logs into credit events",
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("version", "v2", "protocol version (v1, v2)")
	decodeCmd.Flags().String("in", "", "input raw logs JSONL")
	decodeCmd.Flags().String("out", "./data/credit_events.jsonl", "output credit events JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	decodeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(decodeCmd)

	tvlCmd := &cobra.Command{
		Use:   "tvl",
		Short: "Compute the total value of open credit accounts",
		RunE:  runTVL,
	}
	addTVLFlags(tvlCmd)
	tvlCmd.Flags().String("multicall", multicall.DefaultAddress.Hex(), "Multicall3 contract address")
	tvlCmd.Flags().Int("chunk-size", 0, "calls per multicall request, 0 sends one batch")
	tvlCmd.Flags().Int("decimals", -1, "also print the total scaled by these decimals")
	tvlCmd.Flags().String("pg-dsn", "", "Postgres DSN for storing snapshots")

	root.AddCommand(tvlCmd)

	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "List open credit accounts and their borrowers",
		RunE:  runAccounts,
	}
	addTVLFlags(accountsCmd)

	root.AddCommand(accountsCmd)

	return root
}

func addTVLFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "RPC URL")
	cmd.Flags().String("version", "v2", "protocol version (v1 credit manager, v2 credit facade)")
	cmd.Flags().String("contract", "", "credit manager (v1) or credit facade (v2) address")
	cmd.Flags().String("block", "latest", "block height or \"latest\"")
	cmd.Flags().Uint64("from", 0, "first block to read logs from")
	cmd.Flags().Uint64("batch-size", 2000, "blocks per log request")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().Float64("rps", 0, "max RPC requests per second, 0 disables limiting")
	cmd.Flags().String("in", "", "read logs from a fetched JSONL file instead of the node")
	cmd.Flags().Bool("skip-unresolved", false, "skip borrowers without a resolvable credit account")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func runFetch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFetch(cfgFile, cmd.Flags())
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
	contracts, err := indexer.ParseAddresses(cfg.Contracts)
	if err != nil {
		return err
	}
	if len(contracts) == 0 {
		return fmt.Errorf("contract list is required")
	}

	decoder, err := gearbox.NewDecoder(version)
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

	runner := indexer.NewRunner(indexer.RunConfig{
		FromBlock:         cfg.FromBlock,
		ToBlock:           cfg.ToBlock,
		Addresses:         contracts,
		Topic0:            decoder.Topics(),
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
		RequestsPerSecond: cfg.RequestsPerSecond,
		IncludeTimestamps: cfg.IncludeTimestamps,
	}, chainClient, storage.NewJsonlStorage(cfg.Out), logger)

	logger.Info("fetch start",
		zap.String("rpc", cfg.RPCURL),
		zap.Stringer("version", version),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Int("contracts", len(contracts)),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("out", cfg.Out),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("fetch complete",
		zap.Uint64("chain_id", summary.ChainID),
		zap.Uint64("to", summary.ToBlock),
		zap.Int("logs", summary.Logs),
	)
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
