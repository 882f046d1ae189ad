package database

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tashanwin/gamesvc/internal/auth"
	"github.com/tashanwin/gamesvc/internal/models"
	"github.com/tashanwin/gamesvc/internal/money"
)

// ErrUserNotFound is returned when a lookup matches no row.
var ErrUserNotFound = errors.New("user not found")

const (
	usersTable     = "users"
	colID          = "id"
	colEmail       = "email"
	colPassword    = "password"
	colUsername    = "username"
	colIsEphemeral = "is_ephemeral"
	colIsAdmin     = "is_admin"
	colBalance     = "balance"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// UserStore reads and writes platform accounts. All balance mutations go
// through conditional updates so a debit can never race a concurrent debit
// past the balance check.
type UserStore struct {
	db     *pgxpool.Pool
	getter *trmpgx.CtxGetter
}

func NewUserStore(db *pgxpool.Pool) *UserStore {
	return &UserStore{db: db, getter: trmpgx.DefaultCtxGetter}
}

// CreateUser hashes the password with argon2id and inserts the account.
func (s *UserStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("generate user id: %w", err)
		}
		user.ID = id
	}

	if user.Password != "" {
		hash, err := auth.CreateHash(user.Password, auth.Params)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		user.Password = hash
	}

	sqlStr, args, err := psql.Insert(usersTable).
		Columns(colID, colEmail, colPassword, colUsername, colIsEphemeral, colIsAdmin, colBalance).
		Values(user.ID, user.Email, user.Password, user.Username, user.IsEphemeral, user.IsAdmin, int64(user.Balance)).
		ToSql()
	if err != nil {
		return err
	}

	conn := s.getter.DefaultTrOrDB(ctx, s.db)
	if _, err := conn.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *UserStore) scanUser(ctx context.Context, pred sq.Eq) (*models.User, error) {
	sqlStr, args, err := psql.Select(colID, colEmail, colPassword, colUsername, colIsEphemeral, colIsAdmin, colBalance).
		From(usersTable).
		Where(pred).
		ToSql()
	if err != nil {
		return nil, err
	}

	var u models.User
	var balance int64
	conn := s.getter.DefaultTrOrDB(ctx, s.db)
	err = conn.QueryRow(ctx, sqlStr, args...).Scan(
		&u.ID, &u.Email, &u.Password, &u.Username, &u.IsEphemeral, &u.IsAdmin, &balance,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	u.Balance = money.Amount(balance)
	return &u, nil
}

func (s *UserStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.scanUser(ctx, sq.Eq{colID: id})
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.scanUser(ctx, sq.Eq{colEmail: email})
}

// GetBalance returns the current wallet value in paise.
func (s *UserStore) GetBalance(ctx context.Context, id uuid.UUID) (money.Amount, error) {
	sqlStr, args, err := psql.Select(colBalance).From(usersTable).Where(sq.Eq{colID: id}).ToSql()
	if err != nil {
		return 0, err
	}
	var balance int64
	conn := s.getter.DefaultTrOrDB(ctx, s.db)
	if err := conn.QueryRow(ctx, sqlStr, args...).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return money.Amount(balance), nil
}

// TryDebit subtracts amount from the balance in one conditional update.
// It reports false, without error, when the balance is short. The check and
// the subtraction are the same statement; two concurrent debits cannot both
// pass on the same funds.
func (s *UserStore) TryDebit(ctx context.Context, id uuid.UUID, amount money.Amount) (bool, error) {
	sqlStr, args, err := psql.Update(usersTable).
		Set(colBalance, sq.Expr(colBalance+" - ?", int64(amount))).
		Where(sq.Eq{colID: id}).
		Where(sq.GtOrEq{colBalance: int64(amount)}).
		ToSql()
	if err != nil {
		return false, err
	}
	conn := s.getter.DefaultTrOrDB(ctx, s.db)
	tag, err := conn.Exec(ctx, sqlStr, args...)
	if err != nil {
		return false, fmt.Errorf("debit user %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Credit adds amount to the balance unconditionally.
func (s *UserStore) Credit(ctx context.Context, id uuid.UUID, amount money.Amount) error {
	sqlStr, args, err := psql.Update(usersTable).
		Set(colBalance, sq.Expr(colBalance+" + ?", int64(amount))).
		Where(sq.Eq{colID: id}).
		ToSql()
	if err != nil {
		return err
	}
	conn := s.getter.DefaultTrOrDB(ctx, s.db)
	if _, err := conn.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("credit user %s: %w", id, err)
	}
	return nil
}

// UpdateUserCredentials rewrites email, password hash, username and the
// ephemeral flag, used when a guest claims their account.
func (s *UserStore) UpdateUserCredentials(ctx context.Context, user *models.User) error {
	hash, err := auth.CreateHash(user.Password, auth.Params)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.Password = hash

	sqlStr, args, err := psql.Update(usersTable).
		Set(colEmail, user.Email).
		Set(colPassword, user.Password).
		Set(colUsername, user.Username).
		Set(colIsEphemeral, user.IsEphemeral).
		Where(sq.Eq{colID: user.ID}).
		ToSql()
	if err != nil {
		return err
	}
	conn := s.getter.DefaultTrOrDB(ctx, s.db)
	if _, err := conn.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("update user %s: %w", user.ID, err)
	}
	return nil
}
