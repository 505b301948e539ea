package main

import (
	"flag"
	"os"

	"github.com/kural1554/Finance/internal/config"
	"github.com/kural1554/Finance/internal/db"
	"github.com/kural1554/Finance/internal/observability"
)

func main() {
	cfg := config.Load()
	logger := observability.NewLogger(cfg.Env)

	dir := flag.String("path", cfg.MigrationsPath, "directory holding the SQL migrations")
	flag.Parse()

	direction := db.MigrateUp
	if flag.NArg() > 0 {
		direction = db.MigrationDirection(flag.Arg(0))
	}

	if err := db.RunMigrations(cfg.DatabaseURL, *dir, direction, logger); err != nil {
		logger.Error("migration failed", "direction", direction, "err", err)
		os.Exit(1)
	}
}
