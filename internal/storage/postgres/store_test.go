package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"creditScope/internal/model"
)

// Runs against a scratch database named by CREDITSCOPE_TEST_PG_DSN.
func TestSnapshotRoundTrip(t *testing.T) {
	dsn := os.Getenv("CREDITSCOPE_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("CREDITSCOPE_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	store, err := NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}

	contract := "0xFACADE0000000000000000000000000000000001"
	snapshot := model.TVLSnapshot{
		ChainID:     31337,
		Contract:    contract,
		Version:     model.V2,
		BlockNumber: 100,
		TotalValue:  "115792089237316195423570985008687907853269984665640564039457584007913129639936",
		Positions: []model.OpenPosition{
			{Borrower: common.HexToAddress("0x01"), CreditAccount: common.HexToAddress("0xa1")},
		},
		ComputedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := store.SaveSnapshot(ctx, snapshot); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Saving the same block again replaces the row.
	snapshot.TotalValue = "7"
	if err := store.SaveSnapshot(ctx, snapshot); err != nil {
		t.Fatalf("resave: %v", err)
	}

	got, ok, err := store.LatestSnapshot(ctx, 31337, contract)
	if err != nil || !ok {
		t.Fatalf("latest: ok=%v err=%v", ok, err)
	}
	if got.TotalValue != "7" || got.BlockNumber != 100 || got.Version != model.V2 {
		t.Fatalf("unexpected snapshot: %+v", got)
	}

	if _, ok, err := store.LatestSnapshot(ctx, 31337, "0x0000000000000000000000000000000000000000"); err != nil || ok {
		t.Fatalf("expected no snapshot, ok=%v err=%v", ok, err)
	}
}
