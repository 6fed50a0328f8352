package replay

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"creditScope/internal/model"
)

func TestResolveLatestOpenAfterReopen(t *testing.T) {
	events := []model.CreditEvent{
		open(at(100, 0), alice, "0x1"),
		closeAcc(at(105, 0), alice),
		open(at(110, 0), alice, "0x2"),
	}

	set := Replay(Normalize(model.V2, events))
	res, err := Resolve(set, events, ResolveOptions{Policy: LatestOpenPolicy})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.Positions) != 1 {
		t.Fatalf("expected one position, got %+v", res.Positions)
	}
	if res.Positions[0].Borrower != alice || res.Positions[0].CreditAccount != common.HexToAddress("0x2") {
		t.Fatalf("unexpected position: %+v", res.Positions[0])
	}
}

func TestResolveLatestOpenUnsortedInput(t *testing.T) {
	events := []model.CreditEvent{
		open(at(110, 0), alice, "0x2"),
		open(at(100, 0), alice, "0x1"),
	}
	if got := resolveOne(t, LatestOpenPolicy, events, alice); got != common.HexToAddress("0x2") {
		t.Fatalf("expected latest account, got %s", got.Hex())
	}
}

func TestResolveLatestOpenTieBreaksByLogIndex(t *testing.T) {
	events := []model.CreditEvent{
		open(at(10, 5), alice, "0x5"),
		open(at(10, 2), alice, "0x2"),
	}
	if got := resolveOne(t, LatestOpenPolicy, events, alice); got != common.HexToAddress("0x5") {
		t.Fatalf("expected block 10 log 5 account, got %s", got.Hex())
	}
}

func TestResolveLatestOpenFollowsTransfer(t *testing.T) {
	events := []model.CreditEvent{
		open(at(50, 0), alice, "0xaa"),
		transfer(at(50, 1), alice, bob),
	}

	set := Replay(Normalize(model.V2, events))
	res, err := Resolve(set, events, ResolveOptions{Policy: LatestOpenPolicy})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.Positions) != 1 || res.Positions[0].Borrower != bob {
		t.Fatalf("unexpected positions: %+v", res.Positions)
	}
	if res.Positions[0].CreditAccount != common.HexToAddress("0xaa") {
		t.Fatalf("receiver should inherit sender account, got %s", res.Positions[0].CreditAccount.Hex())
	}
}

func TestResolveLatestOpenTransferThenOwnOpen(t *testing.T) {
	events := []model.CreditEvent{
		open(at(50, 0), alice, "0xaa"),
		transfer(at(51, 0), alice, bob),
		closeAcc(at(52, 0), bob),
		open(at(53, 0), bob, "0xbb"),
	}
	if got := resolveOne(t, LatestOpenPolicy, events, bob); got != common.HexToAddress("0xbb") {
		t.Fatalf("expected own open after transfer, got %s", got.Hex())
	}
}

func TestResolveFirstOpenKeepsLogOrder(t *testing.T) {
	events := []model.CreditEvent{
		open(at(100, 0), alice, "0x1"),
		closeAcc(at(105, 0), alice),
		open(at(110, 0), alice, "0x2"),
	}
	// Log order wins even though the borrower reopened.
	if got := resolveOne(t, FirstOpenPolicy, events, alice); got != common.HexToAddress("0x1") {
		t.Fatalf("expected first open in log order, got %s", got.Hex())
	}

	reversed := []model.CreditEvent{events[2], events[1], events[0]}
	if got := resolveOne(t, FirstOpenPolicy, reversed, alice); got != common.HexToAddress("0x2") {
		t.Fatalf("expected first open in log order, got %s", got.Hex())
	}
}

func TestResolveFirstOpenMissesTransferReceiver(t *testing.T) {
	events := []model.CreditEvent{
		open(at(50, 0), alice, "0xaa"),
		transfer(at(51, 0), alice, bob),
	}
	set := Replay(Normalize(model.V1, events))

	_, err := Resolve(set, events, ResolveOptions{Policy: FirstOpenPolicy})
	if !errors.Is(err, ErrResolutionMiss) {
		t.Fatalf("expected resolution miss, got %v", err)
	}
	var miss *ResolutionMissError
	if !errors.As(err, &miss) || miss.Borrower != bob || miss.Policy != FirstOpenPolicy {
		t.Fatalf("unexpected miss detail: %v", err)
	}
}

func TestResolveSkipUnresolved(t *testing.T) {
	events := []model.CreditEvent{
		open(at(50, 0), alice, "0xaa"),
		transfer(at(51, 0), alice, bob),
		open(at(52, 0), carol, "0xcc"),
	}
	set := Replay(Normalize(model.V1, events))

	res, err := Resolve(set, events, ResolveOptions{Policy: FirstOpenPolicy, SkipUnresolved: true})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.Unresolved) != 1 || res.Unresolved[0] != bob {
		t.Fatalf("unexpected unresolved: %v", res.Unresolved)
	}
	accounts := res.Accounts()
	if len(accounts) != 1 || accounts[0] != common.HexToAddress("0xcc") {
		t.Fatalf("unexpected accounts: %v", accounts)
	}
}

func TestResolveEmptySet(t *testing.T) {
	events := []model.CreditEvent{
		open(at(1, 0), alice, "0x1"),
		liquidate(at(2, 0), alice),
	}
	set := Replay(Normalize(model.V2, events))
	res, err := Resolve(set, events, ResolveOptions{Policy: LatestOpenPolicy})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.Positions) != 0 || len(res.Accounts()) != 0 {
		t.Fatalf("expected nothing resolved: %+v", res)
	}
}

func TestResolveUnknownPolicy(t *testing.T) {
	set := Replay([]model.Action{{Address: alice, Operation: model.OpAdd}})
	if _, err := Resolve(set, nil, ResolveOptions{}); err == nil {
		t.Fatalf("expected error for zero policy")
	}
}

func TestPolicyFor(t *testing.T) {
	if PolicyFor(model.V1) != FirstOpenPolicy {
		t.Fatalf("v1 should use first-open")
	}
	if PolicyFor(model.V2) != LatestOpenPolicy {
		t.Fatalf("v2 should use latest-open")
	}
}
