package multicall

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// ContractCaller executes a read-only call at a block (nil means latest).
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Call is one read in a batch.
type Call struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

// Result is the outcome of one Call, in request order.
type Result struct {
	Success    bool
	ReturnData []byte
}

// Client batches calls through a Multicall3 contract.
type Client struct {
	caller    ContractCaller
	address   common.Address
	chunkSize int
}

// NewClient builds a Client. A chunkSize of zero sends every call in one request.
func NewClient(caller ContractCaller, address common.Address, chunkSize int) *Client {
	if chunkSize < 0 {
		chunkSize = 0
	}
	return &Client{caller: caller, address: address, chunkSize: chunkSize}
}

// Address returns the Multicall3 contract address.
func (c *Client) Address() common.Address {
	return c.address
}

// Execute runs all calls at blockNumber. Results are returned only if every
// chunk succeeded.
func (c *Client) Execute(ctx context.Context, calls []Call, blockNumber *big.Int) ([]Result, error) {
	if len(calls) == 0 {
		return []Result{}, nil
	}
	if c.caller == nil {
		return nil, fmt.Errorf("contract caller is nil")
	}

	size := c.chunkSize
	if size == 0 || size > len(calls) {
		size = len(calls)
	}

	results := make([]Result, 0, len(calls))
	for start := 0; start < len(calls); start += size {
		end := start + size
		if end > len(calls) {
			end = len(calls)
		}
		chunk, err := c.aggregate3(ctx, calls[start:end], blockNumber)
		if err != nil {
			return nil, fmt.Errorf("calls %d-%d: %w", start, end-1, err)
		}
		results = append(results, chunk...)
	}
	return results, nil
}

func (c *Client) aggregate3(ctx context.Context, calls []Call, blockNumber *big.Int) ([]Result, error) {
	parsed, err := ABI()
	if err != nil {
		return nil, fmt.Errorf("parse multicall abi: %w", err)
	}

	data, err := parsed.Pack("aggregate3", calls)
	if err != nil {
		return nil, fmt.Errorf("pack aggregate3: %w", err)
	}

	msg := ethereum.CallMsg{To: &c.address, Data: data}
	resp, err := c.caller.CallContract(ctx, msg, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("call aggregate3 at address=%s block=%s: %w", c.address.Hex(), BlockString(blockNumber), err)
	}

	values, err := parsed.Unpack("aggregate3", resp)
	if err != nil {
		return nil, fmt.Errorf("unpack aggregate3: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("aggregate3 return size %d", len(values))
	}
	raw, ok := values[0].([]struct {
		Success    bool   `json:"success"`
		ReturnData []byte `json:"returnData"`
	})
	if !ok {
		return nil, fmt.Errorf("aggregate3 unexpected type %T", values[0])
	}
	if len(raw) != len(calls) {
		return nil, fmt.Errorf("aggregate3 returned %d results for %d calls", len(raw), len(calls))
	}

	out := make([]Result, len(raw))
	for i, r := range raw {
		out[i] = Result{Success: r.Success, ReturnData: r.ReturnData}
	}
	return out, nil
}

// BlockString renders a block pointer for logs and errors.
func BlockString(blockNumber *big.Int) string {
	if blockNumber == nil {
		return "latest"
	}
	return blockNumber.String()
}
