package replay

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"creditScope/internal/model"
)

var (
	alice = common.HexToAddress("0xa000000000000000000000000000000000000001")
	bob   = common.HexToAddress("0xb000000000000000000000000000000000000002")
	carol = common.HexToAddress("0xc000000000000000000000000000000000000003")
)

func at(block, logIndex uint64) model.EventMeta {
	return model.EventMeta{BlockNumber: block, LogIndex: logIndex}
}

func open(meta model.EventMeta, borrower common.Address, account string) model.OpenCreditAccount {
	return model.OpenCreditAccount{EventMeta: meta, OnBehalfOf: borrower, CreditAccount: common.HexToAddress(account)}
}

func closeAcc(meta model.EventMeta, borrower common.Address) model.CloseCreditAccount {
	return model.CloseCreditAccount{EventMeta: meta, Borrower: borrower}
}

func liquidate(meta model.EventMeta, borrower common.Address) model.LiquidateCreditAccount {
	return model.LiquidateCreditAccount{EventMeta: meta, Borrower: borrower}
}

func transfer(meta model.EventMeta, from, to common.Address) model.TransferAccount {
	return model.TransferAccount{EventMeta: meta, OldOwner: from, NewOwner: to}
}

func hexes(addresses []common.Address) []string {
	out := make([]string, 0, len(addresses))
	for _, address := range addresses {
		out = append(out, address.Hex())
	}
	return out
}

func resolveOne(t *testing.T, policy Policy, events []model.CreditEvent, borrower common.Address) common.Address {
	t.Helper()
	idx, err := NewIndex(policy, events)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	account, ok := idx.Lookup(borrower)
	if !ok {
		t.Fatalf("no attribution for %s", borrower.Hex())
	}
	return account
}
