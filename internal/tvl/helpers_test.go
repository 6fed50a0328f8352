package tvl

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"creditScope/internal/gearbox"
	"creditScope/internal/model"
	"creditScope/internal/multicall"
	"creditScope/internal/storage"
)

var (
	facade  = common.HexToAddress("0xfacade0000000000000000000000000000000001")
	manager = common.HexToAddress("0x0a0a000000000000000000000000000000000002")
	filter  = common.HexToAddress("0xf1f1000000000000000000000000000000000003")
	other   = common.HexToAddress("0x0b0b000000000000000000000000000000000004")

	alice = common.HexToAddress("0x000000000000000000000000000000000000a11c")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol = common.HexToAddress("0x000000000000000000000000000000000000ca01")

	acc1 = common.HexToAddress("0x0000000000000000000000000000000000000a01")
	acc2 = common.HexToAddress("0x0000000000000000000000000000000000000a02")
	acc3 = common.HexToAddress("0x0000000000000000000000000000000000000a03")
)

// logAt builds a raw log for the named event. Indexed addresses are given in
// ABI order; non-indexed values are zero.
func logAt(t *testing.T, version model.Version, emitter common.Address, name string, block, index uint64, indexed ...common.Address) model.LogRecord {
	t.Helper()
	parsed, err := gearbox.EventsABI(version)
	if err != nil {
		t.Fatalf("events abi: %v", err)
	}
	event, ok := parsed.Events[name]
	if !ok {
		t.Fatalf("unknown event %s", name)
	}

	topics := []string{event.ID.Hex()}
	for _, address := range indexed {
		topics = append(topics, common.BytesToHash(address.Bytes()).Hex())
	}

	nonIndexed := event.Inputs.NonIndexed()
	values := make([]interface{}, 0, len(nonIndexed))
	for _, arg := range nonIndexed {
		values = append(values, zeroValue(arg.Type))
	}
	data, err := nonIndexed.Pack(values...)
	if err != nil {
		t.Fatalf("pack %s: %v", name, err)
	}

	return model.LogRecord{
		ChainID:     1,
		BlockNumber: block,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block*1000 + index)).Hex(),
		LogIndex:    index,
		Address:     emitter.Hex(),
		Topics:      topics,
		Data:        hexutil.Encode(data),
	}
}

func zeroValue(typ abi.Type) interface{} {
	switch typ.Size {
	case 8:
		return uint8(0)
	case 16:
		return uint16(0)
	case 32:
		return uint32(0)
	case 64:
		return uint64(0)
	default:
		return big.NewInt(0)
	}
}

func writeLogs(t *testing.T, records ...model.LogRecord) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logs.jsonl")
	if err := storage.NewJsonlStorage(path).PutLogBatch(records); err != nil {
		t.Fatalf("write logs: %v", err)
	}
	return path
}

type fakeChain struct {
	chainID     uint64
	latest      uint64
	filter      common.Address
	latestCalls int
	calls       []ethereum.CallMsg
	callBlocks  []*big.Int
}

func (f *fakeChain) ChainID(ctx context.Context) (uint64, error) {
	return f.chainID, nil
}

func (f *fakeChain) LatestBlockNumber(ctx context.Context) (uint64, error) {
	f.latestCalls++
	return f.latest, nil
}

// CallContract answers creditFilter() on the v1 credit manager.
func (f *fakeChain) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.calls = append(f.calls, msg)
	f.callBlocks = append(f.callBlocks, blockNumber)
	parsed, err := gearbox.EventsABI(model.V1)
	if err != nil {
		return nil, err
	}
	return parsed.Methods["creditFilter"].Outputs.Pack(f.filter)
}

// valueMulticaller answers calcTotalValue(account) from a fixed table.
type valueMulticaller struct {
	outputs int
	values  map[common.Address]*big.Int
	err     error
	batches [][]multicall.Call
	blocks  []*big.Int
}

func (f *valueMulticaller) Execute(ctx context.Context, calls []multicall.Call, blockNumber *big.Int) ([]multicall.Result, error) {
	f.batches = append(f.batches, calls)
	f.blocks = append(f.blocks, blockNumber)
	if f.err != nil {
		return nil, f.err
	}
	uint256, _ := abi.NewType("uint256", "", nil)
	outputs := make(abi.Arguments, f.outputs)
	for i := range outputs {
		outputs[i] = abi.Argument{Type: uint256}
	}

	results := make([]multicall.Result, 0, len(calls))
	for _, call := range calls {
		if len(call.CallData) != 4+32 {
			return nil, errors.New("unexpected calldata")
		}
		account := common.BytesToAddress(call.CallData[4:])
		value, ok := f.values[account]
		if !ok {
			results = append(results, multicall.Result{Success: false})
			continue
		}
		args := []interface{}{value}
		for len(args) < f.outputs {
			args = append(args, big.NewInt(1))
		}
		data, err := outputs.Pack(args...)
		if err != nil {
			return nil, err
		}
		results = append(results, multicall.Result{Success: true, ReturnData: data})
	}
	return results, nil
}

type recordingStore struct {
	snapshots []model.TVLSnapshot
}

func (s *recordingStore) SaveSnapshot(ctx context.Context, snapshot model.TVLSnapshot) error {
	s.snapshots = append(s.snapshots, snapshot)
	return nil
}
