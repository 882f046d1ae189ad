// Package wallet binds player balances to the wager ledger. The postgres
// store is the production implementation of engine.Accounts; the in-memory
// store in memory.go backs tests.
package wallet

import (
	"context"
	"fmt"

	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tashanwin/gamesvc/internal/database"
	"github.com/tashanwin/gamesvc/internal/engine"
	"github.com/tashanwin/gamesvc/internal/money"
)

// Store moves money against the users table. Every adjustment pairs the
// balance update with a journal row in wallet_transactions, committed as
// one transaction; stake debits and refunds also carry the wager row in
// the same commit. The journal's unique ref is what makes retries
// idempotent.
type Store struct {
	users     *database.UserStore
	txns      *database.TxnStore
	wagers    *database.WagerStore
	txManager trm.Manager
}

func NewStore(users *database.UserStore, txns *database.TxnStore, wagers *database.WagerStore, txManager trm.Manager) *Store {
	return &Store{users: users, txns: txns, wagers: wagers, txManager: txManager}
}

// Balance reads the player's current wallet value.
func (s *Store) Balance(ctx context.Context, playerID uuid.UUID) (money.Amount, error) {
	return s.users.GetBalance(ctx, playerID)
}

// DebitStake withholds a wager's stake. The conditional balance update,
// the journal row and the wager row commit as one transaction: a short
// balance rolls everything back and surfaces as
// engine.ErrInsufficientFunds, and a crash after commit always leaves the
// wager on the books for the startup sweep to find.
func (s *Store) DebitStake(ctx context.Context, w *engine.Wager) error {
	return s.txManager.Do(ctx, func(ctx context.Context) error {
		ok, err := s.users.TryDebit(ctx, w.PlayerID, w.Stake)
		if err != nil {
			return err
		}
		if !ok {
			return engine.ErrInsufficientFunds
		}
		if _, err := s.txns.Insert(ctx, w.PlayerID, -int64(w.Stake), fmt.Sprintf("stake:%s", w.ID)); err != nil {
			return err
		}
		return s.wagers.InsertWager(ctx, w)
	})
}

// Credit pays out or refunds. If the ref was already journaled the credit
// was applied by an earlier attempt and this call is a no-op, so the
// settlement sweep can retry freely.
func (s *Store) Credit(ctx context.Context, playerID uuid.UUID, amount money.Amount, ref string) error {
	return s.txManager.Do(ctx, func(ctx context.Context) error {
		applied, err := s.txns.Insert(ctx, playerID, int64(amount), ref)
		if err != nil {
			return err
		}
		if !applied {
			return nil
		}
		return s.users.Credit(ctx, playerID, amount)
	})
}

// Refund returns a wager's stake and marks its row refunded in one
// transaction, keyed on the wager's refund ref so a retry is a no-op.
func (s *Store) Refund(ctx context.Context, w *engine.Wager) error {
	return s.txManager.Do(ctx, func(ctx context.Context) error {
		if err := s.Credit(ctx, w.PlayerID, w.Stake, fmt.Sprintf("refund:%s", w.ID)); err != nil {
			return err
		}
		return s.wagers.MarkRefunded(ctx, w.ID)
	})
}

// RefundStranded returns the stakes of wagers a previous process left
// neither settled nor refunded. Runs once at startup, before any round
// opens; an interrupted sweep is safe to rerun because each refund keys
// on the wager's unique ref.
func (s *Store) RefundStranded(ctx context.Context, log *logrus.Logger) error {
	stranded, err := s.wagers.ListStranded(ctx)
	if err != nil {
		return fmt.Errorf("list stranded wagers: %w", err)
	}
	for _, w := range stranded {
		err := s.txManager.Do(ctx, func(ctx context.Context) error {
			if err := s.Credit(ctx, w.PlayerID, w.Stake, fmt.Sprintf("refund:%s", w.ID)); err != nil {
				return err
			}
			return s.wagers.MarkRefunded(ctx, w.ID)
		})
		if err != nil {
			return fmt.Errorf("refund stranded wager %s: %w", w.ID, err)
		}
		log.WithFields(logrus.Fields{
			"wager_id":  w.ID,
			"player_id": w.PlayerID,
			"stake":     w.Stake.String(),
		}).Info("refunded stranded wager")
	}
	if len(stranded) > 0 {
		log.Infof("startup sweep refunded %d stranded wagers", len(stranded))
	}
	return nil
}
