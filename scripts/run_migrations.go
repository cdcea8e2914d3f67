package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/safar/fruit-store/internal/config"
	"github.com/safar/fruit-store/internal/database"
	"github.com/safar/fruit-store/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: go run scripts/run_migrations.go [up|down] [dir]")
		os.Exit(2)
	}

	direction := os.Args[1]
	if direction != "up" && direction != "down" {
		fmt.Fprintln(os.Stderr, "Direction must be 'up' or 'down'")
		os.Exit(2)
	}

	migrationDir := "migrations"
	if len(os.Args) > 2 {
		migrationDir = os.Args[2]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Options{Service: "migrate", Env: cfg.Log.Env, Level: cfg.Log.Level})

	if err := migrate(context.Background(), cfg, log, migrationDir, direction); err != nil {
		log.Error("migration failed", slog.Any("err", err))
		os.Exit(1)
	}
}

func migrate(ctx context.Context, cfg *config.Config, log *slog.Logger, dir, direction string) error {
	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migration directory: %w", err)
	}

	var migrationFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), fmt.Sprintf(".%s.sql", direction)) {
			migrationFiles = append(migrationFiles, file.Name())
		}
	}

	sort.Strings(migrationFiles)
	if direction == "down" {
		for i, j := 0, len(migrationFiles)-1; i < j; i, j = i+1, j-1 {
			migrationFiles[i], migrationFiles[j] = migrationFiles[j], migrationFiles[i]
		}
	}

	for _, filename := range migrationFiles {
		content, err := os.ReadFile(filepath.Join(dir, filename))
		if err != nil {
			return fmt.Errorf("read migration file %s: %w", filename, err)
		}

		log.Info("running migration", slog.String("file", filename))
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", filename, err)
		}
	}

	log.Info("migrations complete", slog.Int("count", len(migrationFiles)), slog.String("direction", direction))
	return nil
}
