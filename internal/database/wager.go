package database

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tashanwin/gamesvc/internal/engine"
	"github.com/tashanwin/gamesvc/internal/money"
)

const (
	wagersTable   = "wagers"
	colRoundID    = "round_id"
	colVariant    = "variant"
	colPlayerID   = "player_id"
	colStake      = "stake"
	colSelection  = "selection"
	colPlacedAt   = "placed_at"
	colResolvedAt = "resolved_at"
	colPayout     = "payout"
	colRefunded   = "refunded"
)

// WagerStore persists wager rows for audit and for the startup refund
// sweep. The in-memory ledger stays authoritative during a round; rows are
// written on placement and finalized at settlement.
type WagerStore struct {
	db     *pgxpool.Pool
	getter *trmpgx.CtxGetter
}

func NewWagerStore(db *pgxpool.Pool) *WagerStore {
	return &WagerStore{db: db, getter: trmpgx.DefaultCtxGetter}
}

// InsertWager records a freshly accepted wager with no settlement yet.
func (s *WagerStore) InsertWager(ctx context.Context, w *engine.Wager) error {
	selJSON, err := json.Marshal(w.Selection)
	if err != nil {
		return fmt.Errorf("marshal selection: %w", err)
	}

	sqlStr, args, err := psql.Insert(wagersTable).
		Columns(colID, colRoundID, colVariant, colPlayerID, colStake, colSelection, colPlacedAt, colRefunded).
		Values(w.ID, int64(w.RoundID), w.Variant, w.PlayerID, int64(w.Stake), selJSON, w.PlacedAt, false).
		ToSql()
	if err != nil {
		return err
	}
	conn := s.getter.DefaultTrOrDB(ctx, s.db)
	if _, err := conn.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("insert wager %s: %w", w.ID, err)
	}
	return nil
}

// SettleWager finalizes a resolved wager with its payout. A missing row is
// an error: every settled wager was inserted in the same transaction as
// its stake debit, so zero affected rows means the settlement went astray.
func (s *WagerStore) SettleWager(ctx context.Context, w *engine.Wager) error {
	if w.ResolvedAt == nil {
		return fmt.Errorf("wager %s has no resolution time", w.ID)
	}
	sqlStr, args, err := psql.Update(wagersTable).
		Set(colResolvedAt, *w.ResolvedAt).
		Set(colPayout, int64(w.Payout)).
		Where(sq.Eq{colID: w.ID}).
		ToSql()
	if err != nil {
		return err
	}
	conn := s.getter.DefaultTrOrDB(ctx, s.db)
	tag, err := conn.Exec(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("settle wager %s: %w", w.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("settle wager %s: no matching row", w.ID)
	}
	return nil
}

// MarkRefunded flags a wager returned by an abandonment or the startup
// sweep.
func (s *WagerStore) MarkRefunded(ctx context.Context, id uuid.UUID) error {
	sqlStr, args, err := psql.Update(wagersTable).
		Set(colRefunded, true).
		Where(sq.Eq{colID: id}).
		ToSql()
	if err != nil {
		return err
	}
	conn := s.getter.DefaultTrOrDB(ctx, s.db)
	if _, err := conn.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("mark wager %s refunded: %w", id, err)
	}
	return nil
}

// StrandedWager is a wager left neither settled nor refunded by a previous
// process, i.e. its round died mid-flight.
type StrandedWager struct {
	ID       uuid.UUID
	PlayerID uuid.UUID
	Stake    money.Amount
}

// ListStranded returns every unsettled, unrefunded wager. Run once at
// startup before any round opens.
func (s *WagerStore) ListStranded(ctx context.Context) ([]StrandedWager, error) {
	sqlStr, args, err := psql.Select(colID, colPlayerID, colStake).
		From(wagersTable).
		Where(sq.Eq{colResolvedAt: nil}).
		Where(sq.Eq{colRefunded: false}).
		ToSql()
	if err != nil {
		return nil, err
	}

	conn := s.getter.DefaultTrOrDB(ctx, s.db)
	rows, err := conn.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list stranded wagers: %w", err)
	}
	defer rows.Close()

	var out []StrandedWager
	for rows.Next() {
		var w StrandedWager
		var stake int64
		if err := rows.Scan(&w.ID, &w.PlayerID, &stake); err != nil {
			return nil, err
		}
		w.Stake = money.Amount(stake)
		out = append(out, w)
	}
	return out, rows.Err()
}
