package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/safar/fruit-store/internal/api"
	"github.com/safar/fruit-store/internal/auth"
	"github.com/safar/fruit-store/internal/catalog"
	"github.com/safar/fruit-store/internal/config"
	"github.com/safar/fruit-store/internal/database"
	"github.com/safar/fruit-store/internal/logger"
	"github.com/safar/fruit-store/internal/orders"
	"github.com/safar/fruit-store/internal/ratelimit"
	"github.com/safar/fruit-store/internal/shutdown"
	"github.com/safar/fruit-store/internal/store"
	"github.com/safar/fruit-store/internal/store/memory"
	"github.com/shopspring/decimal"
)

// repository is the record store contract shared by the Postgres and
// in-memory backends.
type repository interface {
	auth.UserRepo
	catalog.ProductRepo
	orders.OrderRepo
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{Service: "api", Env: cfg.Log.Env, Level: cfg.Log.Level, AddSource: true})

	if err := run(cfg, log); err != nil {
		log.Error("api stopped", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	decimal.MarshalJSONWithoutQuotes = true

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	var (
		repo repository
		ping func(ctx context.Context) error
	)
	switch cfg.Store.Backend {
	case config.BackendMemory:
		log.Warn("using in-memory store, data is lost on restart")
		repo = memory.New()
	default:
		db, err := database.NewConnection(ctx, &cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		log.Info("connected to database")
		repo = store.New(db)
		ping = db.PingContext
	}

	var limiter ratelimit.Limiter
	switch cfg.RateLimit.Backend {
	case config.BackendRedis:
		rl, err := ratelimit.NewRedisFromURL(ctx, cfg.RateLimit.RedisURL, ratelimit.RedisOptions{
			Window:      cfg.RateLimit.Window,
			MaxAttempts: cfg.RateLimit.MaxAttempts,
		})
		if err != nil {
			return err
		}
		defer rl.Close()
		limiter = rl
	default:
		limiter = ratelimit.NewMemory(ratelimit.MemoryOptions{
			Window:        cfg.RateLimit.Window,
			MaxAttempts:   cfg.RateLimit.MaxAttempts,
			SweepInterval: cfg.RateLimit.SweepInterval,
			MaxKeys:       cfg.RateLimit.MaxKeys,
		})
	}

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	srv := api.NewServer(api.Deps{
		Auth:       auth.NewService(repo, issuer, auth.NewHasher(cfg.Auth.BcryptCost), auth.Options{AllowAdminSignup: cfg.Auth.AllowAdminSignup}, log),
		Guard:      auth.NewGuard(issuer),
		Catalog:    catalog.NewService(repo, log),
		Orders:     orders.NewService(repo, repo, orders.Options{TrustClientPrices: cfg.Orders.TrustClientPrices}, log),
		Limiter:    limiter,
		Ping:       ping,
		TrustProxy: cfg.Server.TrustProxy,
		Log:        log,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("http server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", slog.Any("err", err))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", slog.Any("err", err))
	}

	wg.Wait()
	log.Info("bye")
	return nil
}
