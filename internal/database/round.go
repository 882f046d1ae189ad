package database

import (
	"context"
	"encoding/json"
	"fmt"

	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tashanwin/gamesvc/internal/engine"
)

const (
	roundsTable = "rounds"
	colOutcome  = "outcome"
	colOpenedAt = "opened_at"
)

// RoundStore archives resolved rounds. The archive is audit-only; live
// round state never leaves the engine.
type RoundStore struct {
	db     *pgxpool.Pool
	getter *trmpgx.CtxGetter
}

func NewRoundStore(db *pgxpool.Pool) *RoundStore {
	return &RoundStore{db: db, getter: trmpgx.DefaultCtxGetter}
}

// InsertResolved archives a round after its outcome was drawn.
func (s *RoundStore) InsertResolved(ctx context.Context, r engine.Round) error {
	if r.Outcome == nil {
		return fmt.Errorf("round %s/%d has no outcome", r.Variant, r.ID)
	}
	outJSON, err := json.Marshal(r.Outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	sqlStr, args, err := psql.Insert(roundsTable).
		Columns(colVariant, colRoundID, colOutcome, colOpenedAt, colResolvedAt).
		Values(r.Variant, int64(r.ID), outJSON, r.OpenedAt, r.RevealAt).
		Suffix("ON CONFLICT (variant, round_id) DO NOTHING").
		ToSql()
	if err != nil {
		return err
	}
	conn := s.getter.DefaultTrOrDB(ctx, s.db)
	if _, err := conn.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("insert round %s/%d: %w", r.Variant, r.ID, err)
	}
	return nil
}
