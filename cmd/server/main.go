package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bankcards/internal/cardnumber"
	"bankcards/internal/config"
	"bankcards/internal/db"
	"bankcards/internal/handlers"
	"bankcards/internal/logging"
	"bankcards/internal/services"
	"bankcards/internal/store"
	"bankcards/internal/tokens"
	"bankcards/internal/websocket"
	"bankcards/migrations"

	"go.uber.org/zap"
)

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

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer database.Close()

	if cfg.MigrateOnStart {
		migrator, err := db.NewMigrator(database, migrations.FS, logger)
		if err != nil {
			return err
		}
		if err := migrator.Up(ctx); err != nil {
			return err
		}
	}

	codec, err := cardnumber.NewCodec(cfg.CardNumberKey)
	if err != nil {
		return fmt.Errorf("card number codec: %w", err)
	}
	if cfg.CardNumberKey == "" {
		logger.Warn("CARD_NUMBER_KEY is not set; card numbers are stored without encryption")
	}

	var tokenStore tokens.Store = tokens.NewPostgresStore(database)
	if cfg.RedisAddr != "" {
		client := tokens.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		tokenStore = tokens.NewRedisStore(client)
		logger.Info("refresh tokens stored in redis", zap.String("addr", cfg.RedisAddr))
	}

	users := store.NewUserStore(database)
	cards := store.NewCardStore(database)
	transactions := store.NewTransactionStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database, logger)
	hub := websocket.NewHub(logger)

	cardService := services.NewCardService(txRunner, cards, users, transactions, audit, codec, hub, logger)
	userService := services.NewUserService(txRunner, users, tokenStore, audit, services.TokenSettings{
		Secret:     cfg.JWTSecret,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, logger)

	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		if err := userService.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	handler := handlers.New(cfg, cardService, userService, users, transactions, audit, hub, logger)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("bank cards API listening", zap.String("addr", server.Addr), zap.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
