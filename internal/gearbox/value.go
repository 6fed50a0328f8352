package gearbox

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"creditScope/internal/model"
)

const valueMethod = "calcTotalValue"

// Caller executes a single read-only contract call.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ValueQuery encodes calcTotalValue calls and decodes their total.
type ValueQuery struct {
	parsed abi.ABI
}

// NewValueQuery returns the value query for the version's value contract.
func NewValueQuery(version model.Version) (ValueQuery, error) {
	parsed, err := valueABI(version)
	if err != nil {
		return ValueQuery{}, err
	}
	if _, ok := parsed.Methods[valueMethod]; !ok {
		return ValueQuery{}, fmt.Errorf("%s missing from %s abi", valueMethod, version)
	}
	return ValueQuery{parsed: parsed}, nil
}

// Pack encodes calcTotalValue(creditAccount).
func (q ValueQuery) Pack(creditAccount common.Address) ([]byte, error) {
	data, err := q.parsed.Pack(valueMethod, creditAccount)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", valueMethod, err)
	}
	return data, nil
}

// Unpack decodes the total value, which is always the first output.
func (q ValueQuery) Unpack(data []byte) (*big.Int, error) {
	values, err := q.parsed.Unpack(valueMethod, data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", valueMethod, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s returned no values", valueMethod)
	}
	total, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s unexpected type %T", valueMethod, values[0])
	}
	return new(big.Int).Set(total), nil
}

// ValueTarget returns the contract that answers calcTotalValue. The credit
// facade answers itself; a v1 credit manager delegates to its credit filter,
// which is read once at the requested block.
func ValueTarget(ctx context.Context, caller Caller, version model.Version, contract common.Address, blockNumber *big.Int) (common.Address, error) {
	switch version {
	case model.V2:
		return contract, nil
	case model.V1:
		return creditFilter(ctx, caller, contract, blockNumber)
	default:
		return common.Address{}, fmt.Errorf("unsupported version: %s", version)
	}
}

func creditFilter(ctx context.Context, caller Caller, creditManager common.Address, blockNumber *big.Int) (common.Address, error) {
	if caller == nil {
		return common.Address{}, fmt.Errorf("contract caller is nil")
	}
	parsed, err := creditManagerV1ABI.get()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse credit manager abi: %w", err)
	}

	data, err := parsed.Pack("creditFilter")
	if err != nil {
		return common.Address{}, fmt.Errorf("pack creditFilter: %w", err)
	}
	msg := ethereum.CallMsg{To: &creditManager, Data: data}
	resp, err := caller.CallContract(ctx, msg, blockNumber)
	if err != nil {
		return common.Address{}, fmt.Errorf("call creditFilter: %w", err)
	}
	values, err := parsed.Unpack("creditFilter", resp)
	if err != nil {
		return common.Address{}, fmt.Errorf("unpack creditFilter: %w", err)
	}
	if len(values) != 1 {
		return common.Address{}, fmt.Errorf("creditFilter return size %d", len(values))
	}
	filter, err := asAddress(values[0])
	if err != nil {
		return common.Address{}, fmt.Errorf("creditFilter: %w", err)
	}
	if filter == (common.Address{}) {
		return common.Address{}, fmt.Errorf("credit manager %s has no credit filter", creditManager.Hex())
	}
	return filter, nil
}
