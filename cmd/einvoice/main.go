package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/superset-studio/einvoice-vault/internal/api"
	"github.com/superset-studio/einvoice-vault/internal/auth"
	"github.com/superset-studio/einvoice-vault/internal/receipts"
	"github.com/superset-studio/einvoice-vault/internal/secrets"
	"github.com/superset-studio/einvoice-vault/internal/server"
	"github.com/superset-studio/einvoice-vault/internal/storage"
	"github.com/superset-studio/einvoice-vault/internal/vault"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "users":
		runUsers(os.Args[2:])
	case "secret-key":
		runSecretKey(os.Args[2:])
	case "token":
		runToken(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: einvoice <command> [options]

Commands:
  serve        Start the API server
  users        Manage user accounts
  secret-key   Generate or check the EINVOICE_SECRET_KEY
  token        Encrypt or decrypt a password with the secret key

Run 'einvoice <command> --help' for more information.`)
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	migrate := fs.Bool("migrate", true, "create database tables on startup")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	setupLogging(cfg.Logging.Level)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	cipher, err := secrets.NewFernetCipher(cfg.Secrets.SecretKey, secrets.WithMaxAge(cfg.Secrets.MaxTokenAge))
	if err != nil {
		slog.Error("failed to initialize password cipher", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	store, err := storage.NewPostgresStorage(ctx, cfg.Storage.Postgres.DSN(), cfg.Storage.Postgres.MaxConns)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if *migrate {
		if err := store.Migrate(ctx); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	jwtSvc := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry)
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	handler := api.NewHandler(store, vault.NewService(store, cipher), receipts.NewService(store), jwtSvc, hasher)

	srv := server.New(cfg, handler, jwtSvc, store)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		slog.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-sigChan:
		slog.Info("received signal, shutting down", "signal", sig)
	}

	if err := srv.ShutdownWithTimeout(30 * time.Second); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	})))
}
