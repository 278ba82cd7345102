package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bankcards/internal/config"
	"bankcards/internal/db"
	"bankcards/internal/logging"
	"bankcards/migrations"

	"go.uber.org/zap"
)

// usage: migrate [up|down|status|version]
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.AppEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect database", zap.Error(err))
	}
	defer database.Close()

	migrator, err := db.NewMigrator(database, migrations.FS, logger)
	if err != nil {
		logger.Fatal("failed to prepare migrations", zap.Error(err))
	}
	if command == "version" {
		version, err := migrator.Version(ctx)
		if err != nil {
			logger.Fatal("failed to read schema version", zap.Error(err))
		}
		fmt.Println(version)
		return
	}
	if err := migrator.Run(ctx, command); err != nil {
		logger.Fatal("migration failed", zap.String("command", command), zap.Error(err))
	}
}
