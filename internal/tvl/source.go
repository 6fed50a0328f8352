package tvl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"creditScope/internal/indexer"
	"creditScope/internal/model"
	"creditScope/internal/storage"
)

// Source supplies the raw logs a contract emitted up to and including toBlock.
type Source interface {
	Logs(ctx context.Context, contract common.Address, topics []common.Hash, toBlock uint64) ([]model.LogRecord, error)
}

// RPCSourceConfig tunes log fetching from a node.
type RPCSourceConfig struct {
	FromBlock         uint64
	BatchSize         uint64
	MaxRetries        int
	RetryBackoff      time.Duration
	RequestsPerSecond float64
}

// RPCSource pulls logs from a node on every call. Nothing is cached between calls.
type RPCSource struct {
	client indexer.LogSource
	cfg    RPCSourceConfig
	logger *zap.Logger
}

func NewRPCSource(client indexer.LogSource, cfg RPCSourceConfig, logger *zap.Logger) *RPCSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RPCSource{client: client, cfg: cfg, logger: logger}
}

func (s *RPCSource) Logs(ctx context.Context, contract common.Address, topics []common.Hash, toBlock uint64) ([]model.LogRecord, error) {
	if toBlock == 0 {
		return nil, fmt.Errorf("target block must be concrete")
	}
	sink := storage.NewMemoryStorage()
	runner := indexer.NewRunner(indexer.RunConfig{
		FromBlock:         s.cfg.FromBlock,
		ToBlock:           toBlock,
		Addresses:         []common.Address{contract},
		Topic0:            topics,
		BatchSize:         s.cfg.BatchSize,
		MaxRetries:        s.cfg.MaxRetries,
		RetryBackoff:      s.cfg.RetryBackoff,
		RequestsPerSecond: s.cfg.RequestsPerSecond,
	}, s.client, sink, s.logger)

	summary, err := runner.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch logs: %w", err)
	}
	logs := sink.Logs()
	s.logger.Info("logs fetched",
		zap.String("contract", contract.Hex()),
		zap.Uint64("from", summary.FromBlock),
		zap.Uint64("to", summary.ToBlock),
		zap.Int("logs", len(logs)),
	)
	return logs, nil
}

// FileSource reads logs previously written by the fetch command.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Logs keeps the records of contract at or below toBlock. Topic filtering is
// left to the decoder, which skips events it does not know.
func (s *FileSource) Logs(ctx context.Context, contract common.Address, topics []common.Hash, toBlock uint64) ([]model.LogRecord, error) {
	if s.path == "" {
		return nil, fmt.Errorf("input path is required")
	}
	records, err := storage.ReadLogRecords(s.path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	want := strings.ToLower(contract.Hex())
	out := make([]model.LogRecord, 0, len(records))
	for _, record := range records {
		if strings.ToLower(record.Address) != want {
			continue
		}
		if record.BlockNumber > toBlock {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}
