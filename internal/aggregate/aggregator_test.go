package aggregate

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"creditScope/internal/multicall"
)

// decimalCodec encodes the account as calldata and reads values as decimal text.
type decimalCodec struct{}

func (decimalCodec) Pack(creditAccount common.Address) ([]byte, error) {
	return creditAccount.Bytes(), nil
}

func (decimalCodec) Unpack(data []byte) (*big.Int, error) {
	value, ok := new(big.Int).SetString(string(data), 10)
	if !ok {
		return nil, fmt.Errorf("invalid value %q", data)
	}
	return value, nil
}

type fakeMulticaller struct {
	values  map[common.Address]string
	revert  map[common.Address]bool
	err     error
	short   bool
	batches [][]multicall.Call
	block   *big.Int
}

func (f *fakeMulticaller) Execute(ctx context.Context, calls []multicall.Call, blockNumber *big.Int) ([]multicall.Result, error) {
	f.batches = append(f.batches, calls)
	f.block = blockNumber
	if f.err != nil {
		return nil, f.err
	}
	results := make([]multicall.Result, 0, len(calls))
	for _, call := range calls {
		account := common.BytesToAddress(call.CallData)
		if f.revert[account] {
			results = append(results, multicall.Result{Success: false})
			continue
		}
		results = append(results, multicall.Result{Success: true, ReturnData: []byte(f.values[account])})
	}
	if f.short {
		results = results[:len(results)-1]
	}
	return results, nil
}

var target = common.HexToAddress("0xfacade0000000000000000000000000000000001")

func accountsWithValues(values ...string) ([]common.Address, map[common.Address]string) {
	accounts := make([]common.Address, 0, len(values))
	byAccount := make(map[common.Address]string, len(values))
	for i, value := range values {
		account := common.BigToAddress(big.NewInt(int64(i + 1)))
		accounts = append(accounts, account)
		byAccount[account] = value
	}
	return accounts, byAccount
}

func TestTotalValueEmptyMakesNoCall(t *testing.T) {
	caller := &fakeMulticaller{}
	got, err := NewAggregator(caller, nil).TotalValue(context.Background(), target, decimalCodec{}, nil, big.NewInt(1))
	if err != nil {
		t.Fatalf("total value: %v", err)
	}
	if got != "0" {
		t.Fatalf("expected \"0\", got %q", got)
	}
	if len(caller.batches) != 0 {
		t.Fatalf("empty list must not issue a batch")
	}
}

func TestTotalValueSumsInOneBatch(t *testing.T) {
	accounts, values := accountsWithValues("10", "20", "30")
	caller := &fakeMulticaller{values: values}

	got, err := NewAggregator(caller, nil).TotalValue(context.Background(), target, decimalCodec{}, accounts, big.NewInt(500))
	if err != nil {
		t.Fatalf("total value: %v", err)
	}
	if got != "60" {
		t.Fatalf("expected 60, got %s", got)
	}
	if len(caller.batches) != 1 || len(caller.batches[0]) != 3 {
		t.Fatalf("expected a single batch of 3 calls, got %d batches", len(caller.batches))
	}
	for _, call := range caller.batches[0] {
		if call.Target != target || call.AllowFailure {
			t.Fatalf("unexpected call: %+v", call)
		}
	}
	if caller.block.Int64() != 500 {
		t.Fatalf("block mismatch: %v", caller.block)
	}
}

func TestTotalValueBeyondFixedWidth(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 255)
	accounts, values := accountsWithValues(huge.String(), huge.String(), "18446744073709551615")
	caller := &fakeMulticaller{values: values}

	got, err := NewAggregator(caller, nil).TotalValue(context.Background(), target, decimalCodec{}, accounts, nil)
	if err != nil {
		t.Fatalf("total value: %v", err)
	}
	want := new(big.Int).Lsh(big.NewInt(1), 256)
	want.Add(want, new(big.Int).SetUint64(18446744073709551615))
	if got != want.String() {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestTotalValueExecutorFailure(t *testing.T) {
	boom := errors.New("rpc timeout")
	accounts, _ := accountsWithValues("1")
	_, err := NewAggregator(&fakeMulticaller{err: boom}, nil).TotalValue(context.Background(), target, decimalCodec{}, accounts, nil)
	if !errors.Is(err, ErrBatchCall) || !errors.Is(err, boom) {
		t.Fatalf("expected batch call error wrapping cause, got %v", err)
	}
}

func TestTotalValueRevertedCallFailsWhole(t *testing.T) {
	accounts, values := accountsWithValues("1", "2", "3")
	caller := &fakeMulticaller{values: values, revert: map[common.Address]bool{accounts[1]: true}}

	got, err := NewAggregator(caller, nil).TotalValue(context.Background(), target, decimalCodec{}, accounts, nil)
	if got != "" {
		t.Fatalf("no partial total expected, got %q", got)
	}
	var batchErr *BatchCallError
	if !errors.As(err, &batchErr) || batchErr.Index != 1 || batchErr.Calls != 3 {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTotalValueShortResponse(t *testing.T) {
	accounts, values := accountsWithValues("1", "2")
	caller := &fakeMulticaller{values: values, short: true}
	if _, err := NewAggregator(caller, nil).TotalValue(context.Background(), target, decimalCodec{}, accounts, nil); !errors.Is(err, ErrBatchCall) {
		t.Fatalf("expected batch call error, got %v", err)
	}
}

func TestFormatUnits(t *testing.T) {
	got, err := FormatUnits("1234500", 6)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if got != "1.234500" {
		t.Fatalf("unexpected format: %s", got)
	}
	if got, _ := FormatUnits("42", 0); got != "42" {
		t.Fatalf("unexpected format: %s", got)
	}
	if _, err := FormatUnits("abc", 18); err == nil {
		t.Fatalf("expected error for invalid input")
	}
}
