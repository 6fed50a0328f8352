package tvl

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"creditScope/internal/chain"
	"creditScope/internal/model"
)

type fakeLogSource struct {
	logs    []types.Log
	filters []chain.LogFilter
}

func (f *fakeLogSource) ChainID(ctx context.Context) (uint64, error) { return 1, nil }

func (f *fakeLogSource) LatestBlockNumber(ctx context.Context) (uint64, error) { return 1000, nil }

func (f *fakeLogSource) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	return 0, nil
}

func (f *fakeLogSource) FilterLogs(ctx context.Context, filter chain.LogFilter) ([]types.Log, error) {
	f.filters = append(f.filters, filter)
	var out []types.Log
	for _, log := range f.logs {
		if log.BlockNumber >= filter.FromBlock && log.BlockNumber <= filter.ToBlock {
			out = append(out, log)
		}
	}
	return out, nil
}

func TestRPCSourceBoundsRange(t *testing.T) {
	topic := common.HexToHash("0x01")
	source := &fakeLogSource{logs: []types.Log{
		{Address: facade, BlockNumber: 5, Index: 0, Topics: []common.Hash{topic}},
		{Address: facade, BlockNumber: 12, Index: 1, Topics: []common.Hash{topic}},
		{Address: facade, BlockNumber: 30, Index: 0, Topics: []common.Hash{topic}},
	}}

	rpc := NewRPCSource(source, RPCSourceConfig{FromBlock: 1, BatchSize: 10}, nil)
	logs, err := rpc.Logs(context.Background(), facade, []common.Hash{topic}, 20)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}
	if len(source.filters) != 2 {
		t.Fatalf("expected 2 filter requests, got %d", len(source.filters))
	}
	last := source.filters[len(source.filters)-1]
	if last.ToBlock != 20 {
		t.Fatalf("range not bounded by target block: %+v", last)
	}
	if len(last.Addresses) != 1 || last.Addresses[0] != facade || len(last.Topic0) != 1 {
		t.Fatalf("unexpected filter: %+v", last)
	}

	if _, err := rpc.Logs(context.Background(), facade, nil, 0); err == nil {
		t.Fatalf("expected error for unpinned block")
	}
}

func TestFileSourceFilters(t *testing.T) {
	path := writeLogs(t,
		logAt(t, model.V2, facade, "OpenCreditAccount", 10, 0, alice, acc1),
		logAt(t, model.V2, other, "OpenCreditAccount", 10, 1, bob, acc2),
		logAt(t, model.V2, facade, "CloseCreditAccount", 11, 0, alice, other),
	)
	logs, err := NewFileSource(path).Logs(context.Background(), facade, nil, 10)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(logs) != 1 || logs[0].BlockNumber != 10 || logs[0].LogIndex != 0 {
		t.Fatalf("unexpected logs: %+v", logs)
	}

	if _, err := NewFileSource("").Logs(context.Background(), facade, nil, 10); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
