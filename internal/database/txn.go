package database

import (
	"context"
	"fmt"
	"time"

	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	txnsTable    = "wallet_transactions"
	colAmount    = "amount"
	colRef       = "ref"
	colCreatedAt = "created_at"
)

// TxnStore appends to the wallet transaction journal. Every balance
// mutation writes a row here inside the same transaction, and the unique
// ref makes replays detectable.
type TxnStore struct {
	db     *pgxpool.Pool
	getter *trmpgx.CtxGetter
}

func NewTxnStore(db *pgxpool.Pool) *TxnStore {
	return &TxnStore{db: db, getter: trmpgx.DefaultCtxGetter}
}

// Insert records one signed movement (debits negative, credits positive).
// It reports false when a row with the same ref already exists, meaning
// the movement was applied by an earlier attempt.
func (s *TxnStore) Insert(ctx context.Context, playerID uuid.UUID, amount int64, ref string) (bool, error) {
	sqlStr, args, err := psql.Insert(txnsTable).
		Columns(colPlayerID, colAmount, colRef, colCreatedAt).
		Values(playerID, amount, ref, time.Now().UTC()).
		Suffix("ON CONFLICT (" + colRef + ") DO NOTHING").
		ToSql()
	if err != nil {
		return false, err
	}
	conn := s.getter.DefaultTrOrDB(ctx, s.db)
	tag, err := conn.Exec(ctx, sqlStr, args...)
	if err != nil {
		return false, fmt.Errorf("insert wallet txn %s: %w", ref, err)
	}
	return tag.RowsAffected() == 1, nil
}
