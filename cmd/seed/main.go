package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/safar/fruit-store/internal/auth"
	"github.com/safar/fruit-store/internal/catalog"
	"github.com/safar/fruit-store/internal/config"
	"github.com/safar/fruit-store/internal/database"
	"github.com/safar/fruit-store/internal/logger"
	"github.com/safar/fruit-store/internal/seed"
	"github.com/safar/fruit-store/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{Service: "seed", Env: cfg.Log.Env, Level: cfg.Log.Level})
	ctx := context.Background()

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		log.Error("connect to database", slog.Any("err", err))
		os.Exit(1)
	}
	defer db.Close()

	s := store.New(db)
	seeder := seed.New(s, auth.NewHasher(cfg.Auth.BcryptCost), catalog.NewService(s, log), log)

	res, err := seeder.Run(ctx)
	if err != nil {
		log.Error("seed failed", slog.Any("err", err))
		db.Close()
		os.Exit(1)
	}

	log.Info("database seeded",
		slog.Int("users_created", res.UsersCreated),
		slog.Int("products_created", res.ProductsCreated))

	for _, u := range seed.Users {
		fmt.Printf("%s: %s / %s\n", u.Role, u.Email, u.Password)
	}
}
