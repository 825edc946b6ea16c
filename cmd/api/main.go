package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	accountrepo "github.com/ovaphlow/pitchfork/service-ledger-go/internal/account/repo"
	"github.com/ovaphlow/pitchfork/service-ledger-go/internal/router"
	transactionrepo "github.com/ovaphlow/pitchfork/service-ledger-go/internal/transaction/repo"
	userrepo "github.com/ovaphlow/pitchfork/service-ledger-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-ledger-go/pkg/config"
	"github.com/ovaphlow/pitchfork/service-ledger-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-ledger-go/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	// init logger
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-ledger-go")

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("load config: %v", err)
	}

	// init db
	dbCfg := database.ConfigFromEnv()
	sqlDB, err := database.Connect(dbCfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer sqlDB.Close()

	// wrap with sqlx for convenience in repos/services
	sqlxDB := sqlx.NewDb(sqlDB, "postgres")
	defer sqlxDB.Close()

	// dev convenience: make sure tables exist; real deployments run cmd/migrate
	ensureCtx, ensureCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := userrepo.NewUserRepo(sqlxDB).EnsureTable(ensureCtx); err != nil {
		sugar.Warnf("ensure users table: %v", err)
	}
	if err := accountrepo.NewAccountRepo(sqlxDB).EnsureTable(ensureCtx); err != nil {
		sugar.Warnf("ensure bank_accounts table: %v", err)
	}
	if err := transactionrepo.NewLedgerStore(sqlxDB).EnsureTable(ensureCtx); err != nil {
		sugar.Warnf("ensure transactions table: %v", err)
	}
	ensureCancel()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sugar.Info("service is running; press Ctrl+C to stop")

	// mount http server
	handler := router.RegisterRoutes(sugar, sqlxDB, cfg)
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}

	// run server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// ping db once more
	if err := sqlDB.PingContext(doneCtx); err != nil {
		sugar.Warnf("db ping on shutdown failed: %v", err)
	}

	// shutdown http server
	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
