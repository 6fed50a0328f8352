package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"creditScope/internal/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS credit_tvl_snapshots (
	chain_id      BIGINT      NOT NULL,
	contract      TEXT        NOT NULL,
	version       SMALLINT    NOT NULL,
	block_number  BIGINT      NOT NULL,
	total_value   NUMERIC(78,0) NOT NULL,
	open_accounts INTEGER     NOT NULL,
	computed_at   TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (chain_id, contract, block_number)
);
CREATE TABLE IF NOT EXISTS credit_open_accounts (
	chain_id       BIGINT NOT NULL,
	contract       TEXT   NOT NULL,
	block_number   BIGINT NOT NULL,
	borrower       TEXT   NOT NULL,
	credit_account TEXT   NOT NULL,
	PRIMARY KEY (chain_id, contract, block_number, borrower)
);
`

// Store persists computed TVL snapshots.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the snapshot tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveSnapshot replaces the snapshot for (chain, contract, block) together with its accounts.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot model.TVLSnapshot) error {
	contract := strings.ToLower(snapshot.Contract)
	if contract == "" {
		return fmt.Errorf("snapshot contract required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO credit_tvl_snapshots (
			chain_id, contract, version, block_number, total_value, open_accounts, computed_at
		) VALUES ($1, $2, $3, $4, $5::text::numeric, $6, $7)
		ON CONFLICT (chain_id, contract, block_number)
		DO UPDATE SET
			version = EXCLUDED.version,
			total_value = EXCLUDED.total_value,
			open_accounts = EXCLUDED.open_accounts,
			computed_at = EXCLUDED.computed_at
	`,
		int64(snapshot.ChainID),
		contract,
		int16(snapshot.Version),
		int64(snapshot.BlockNumber),
		snapshot.TotalValue,
		len(snapshot.Positions),
		snapshot.ComputedAt,
	)
	batch.Queue(`DELETE FROM credit_open_accounts WHERE chain_id=$1 AND contract=$2 AND block_number=$3`,
		int64(snapshot.ChainID), contract, int64(snapshot.BlockNumber))
	for _, position := range snapshot.Positions {
		batch.Queue(`
			INSERT INTO credit_open_accounts (chain_id, contract, block_number, borrower, credit_account)
			VALUES ($1, $2, $3, $4, $5)
		`,
			int64(snapshot.ChainID),
			contract,
			int64(snapshot.BlockNumber),
			strings.ToLower(position.Borrower.Hex()),
			strings.ToLower(position.CreditAccount.Hex()),
		)
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("snapshot statement %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// LatestSnapshot returns the most recent stored total for a contract.
func (s *Store) LatestSnapshot(ctx context.Context, chainID uint64, contract string) (model.TVLSnapshot, bool, error) {
	var (
		version     int16
		blockNumber int64
		total       string
		computedAt  time.Time
	)
	row := s.pool.QueryRow(ctx, `
		SELECT version, block_number, total_value::text, computed_at
		FROM credit_tvl_snapshots
		WHERE chain_id=$1 AND contract=$2
		ORDER BY block_number DESC
		LIMIT 1
	`, int64(chainID), strings.ToLower(contract))
	if err := row.Scan(&version, &blockNumber, &total, &computedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TVLSnapshot{}, false, nil
		}
		return model.TVLSnapshot{}, false, err
	}
	return model.TVLSnapshot{
		ChainID:     chainID,
		Contract:    strings.ToLower(contract),
		Version:     model.Version(version),
		BlockNumber: uint64(blockNumber),
		TotalValue:  total,
		ComputedAt:  computedAt,
	}, true, nil
}
