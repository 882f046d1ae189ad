package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema, for reference:
//
//	users               (id uuid pk, email text unique, password text, username text,
//	                     is_ephemeral bool, is_admin bool, balance bigint)
//	wagers              (id uuid pk, round_id bigint, variant text, player_id uuid,
//	                     stake bigint, selection jsonb, placed_at timestamptz,
//	                     resolved_at timestamptz, payout bigint, refunded bool)
//	rounds              (variant text, round_id bigint, outcome jsonb,
//	                     opened_at timestamptz, resolved_at timestamptz,
//	                     primary key (variant, round_id))
//	wallet_transactions (id bigserial pk, player_id uuid, amount bigint,
//	                     ref text unique, created_at timestamptz)
//
// Money columns are bigint paise. The unique ref on wallet_transactions
// makes credit retries idempotent.

var DB *pgxpool.Pool

func ConnectDB() {
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("PG_HOST"),
		os.Getenv("PG_PORT"),
		os.Getenv("PG_DATABASE"),
	)

	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		log.Fatalf("unable to parse pgx config: %v", err)
	}

	DB, err = pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		log.Fatalf("unable to create pgx pool: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := DB.Ping(ctx); err != nil {
		log.Fatalf("db ping error: %v", err)
	}

	log.Printf("Connected to database at %s:%s", os.Getenv("PG_HOST"), os.Getenv("PG_PORT"))
}
