// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/tashanwin/gamesvc/internal/auth"
	"github.com/tashanwin/gamesvc/internal/cache"
	"github.com/tashanwin/gamesvc/internal/config"
	"github.com/tashanwin/gamesvc/internal/database"
	"github.com/tashanwin/gamesvc/internal/engine"
	"github.com/tashanwin/gamesvc/internal/handlers"
	"github.com/tashanwin/gamesvc/internal/wallet"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	auth.Init()
	database.ConnectDB()
	if err := cache.ConnectRedis(); err != nil {
		logger.Fatalf("failed to connect to redis: %v", err)
	}

	trManager, err := manager.New(trmpgx.NewDefaultFactory(database.DB))
	if err != nil {
		logger.Fatalf("failed to build transaction manager: %v", err)
	}

	users := database.NewUserStore(database.DB)
	txns := database.NewTxnStore(database.DB)
	wagers := database.NewWagerStore(database.DB)
	rounds := database.NewRoundStore(database.DB)
	accounts := wallet.NewStore(users, txns, wagers, trManager)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stakes a previous process left in flight go back to their owners
	// before any new round opens.
	if err := accounts.RefundStranded(ctx, logger); err != nil {
		logger.Fatalf("startup refund sweep failed: %v", err)
	}

	games := engine.NewRegistry()
	hub := handlers.NewHub(logger)

	var wg sync.WaitGroup
	for _, v := range cfg.Variants {
		gameCfg, err := v.GameConfig()
		if err != nil {
			logger.Fatalf("invalid variant config: %v", err)
		}
		g, err := engine.NewGame(gameCfg, accounts)
		if err != nil {
			logger.Fatalf("failed to build game %s: %v", v.Slug, err)
		}
		hub.Bind(g)
		g.OnRoundResolved = persistRound(logger, rounds, wagers, gameCfg.History)
		games.Add(g)

		wg.Add(1)
		go func(g *engine.Game) {
			defer wg.Done()
			g.Run(ctx)
		}(g)
		logger.Infof("variant %s running (%s)", v.Slug, v.Kind)
	}

	server := handlers.NewServer(logger, games, hub, users, accounts)
	httpSrv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("http shutdown: %v", err)
		}
	}()

	logger.Infof("Running on %s", cfg.Server.Addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}

	// Wait for every game to abandon its in-flight round and refund.
	wg.Wait()
	logger.Info("all games stopped, exiting")
}

// persistRound finalizes a round's audit trail: archives the outcome,
// settles the wager rows, and feeds the redis settlement queue plus the
// shared recent-outcome list.
func persistRound(logger *logrus.Logger, rounds *database.RoundStore, wagers *database.WagerStore, keep int) engine.RoundResolvedFunc {
	return func(r engine.Round, ws []*engine.Wager) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if r.Outcome == nil {
			// Abandoned round: each refund already credited the stake and
			// marked its wager row in one transaction, nothing to archive.
			return
		}

		if err := rounds.InsertResolved(ctx, r); err != nil {
			logger.Errorf("failed to archive round %s/%d: %v", r.Variant, r.ID, err)
		}
		for _, w := range ws {
			if err := wagers.SettleWager(ctx, w); err != nil {
				logger.Errorf("failed to settle wager %s: %v", w.ID, err)
			}
		}

		record := cache.RoundResultRecord{
			Variant:    r.Variant,
			RoundID:    r.ID,
			Outcome:    *r.Outcome,
			WagerCount: len(ws),
			ResolvedAt: time.Now().Unix(),
		}
		if err := cache.PublishRoundResult(ctx, record); err != nil {
			logger.Warnf("failed to publish round result %s/%d: %v", r.Variant, r.ID, err)
		}
		if err := cache.PushRecentOutcome(ctx, r.Variant, *r.Outcome, keep); err != nil {
			logger.Warnf("failed to push recent outcome %s/%d: %v", r.Variant, r.ID, err)
		}
	}
}
