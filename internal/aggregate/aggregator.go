// Package aggregate sums the value of open credit accounts with one batched read.
package aggregate

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"creditScope/internal/multicall"
)

// Multicaller executes a batch of calls, all-or-nothing.
type Multicaller interface {
	Execute(ctx context.Context, calls []multicall.Call, blockNumber *big.Int) ([]multicall.Result, error)
}

// ValueCodec encodes a per-account value query and decodes its answer.
type ValueCodec interface {
	Pack(creditAccount common.Address) ([]byte, error)
	Unpack(data []byte) (*big.Int, error)
}

// Aggregator totals credit account values.
type Aggregator struct {
	caller Multicaller
	logger *zap.Logger
}

func NewAggregator(caller Multicaller, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{caller: caller, logger: logger}
}

// TotalValue queries target once per account at blockNumber and returns the sum
// as a decimal string. No call is made for an empty account list.
func (a *Aggregator) TotalValue(ctx context.Context, target common.Address, codec ValueCodec, accounts []common.Address, blockNumber *big.Int) (string, error) {
	if len(accounts) == 0 {
		return "0", nil
	}
	if a.caller == nil {
		return "", fmt.Errorf("multicaller is nil")
	}
	if codec == nil {
		return "", fmt.Errorf("value codec is nil")
	}

	calls := make([]multicall.Call, 0, len(accounts))
	for _, account := range accounts {
		data, err := codec.Pack(account)
		if err != nil {
			return "", err
		}
		calls = append(calls, multicall.Call{Target: target, CallData: data})
	}

	a.logger.Debug("value batch",
		zap.String("target", target.Hex()),
		zap.Int("calls", len(calls)),
		zap.String("block", multicall.BlockString(blockNumber)),
	)

	results, err := a.caller.Execute(ctx, calls, blockNumber)
	if err != nil {
		return "", &BatchCallError{Target: target, Calls: len(calls), Index: -1, Err: err}
	}
	if len(results) != len(calls) {
		return "", &BatchCallError{Target: target, Calls: len(calls), Index: -1, Err: fmt.Errorf("got %d results", len(results))}
	}

	total := new(big.Int)
	for i, result := range results {
		if !result.Success {
			return "", &BatchCallError{Target: target, Calls: len(calls), Index: i, Err: fmt.Errorf("call reverted for %s", accounts[i].Hex())}
		}
		value, err := codec.Unpack(result.ReturnData)
		if err != nil {
			return "", &BatchCallError{Target: target, Calls: len(calls), Index: i, Err: err}
		}
		total.Add(total, value)
	}
	return total.String(), nil
}
