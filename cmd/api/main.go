package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/dmaia/kakeibo/internal/account"
	accountStore "github.com/dmaia/kakeibo/internal/account/store"
	"github.com/dmaia/kakeibo/internal/config"
	"github.com/dmaia/kakeibo/internal/database"
	"github.com/dmaia/kakeibo/internal/event"
	eventStore "github.com/dmaia/kakeibo/internal/event/store"
	kakeiboHttp "github.com/dmaia/kakeibo/internal/http"
	accountHandler "github.com/dmaia/kakeibo/internal/http/account"
	consistencyHandler "github.com/dmaia/kakeibo/internal/http/consistency"
	eventHandler "github.com/dmaia/kakeibo/internal/http/event"
	importHandler "github.com/dmaia/kakeibo/internal/http/importcsv"
	"github.com/dmaia/kakeibo/internal/importer"
	"github.com/dmaia/kakeibo/internal/ledger"
	"github.com/dmaia/kakeibo/internal/reconcile"
	reconcileStore "github.com/dmaia/kakeibo/internal/reconcile/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	accounts := accountStore.New(db)
	events := eventStore.New(db)

	synchronizer := ledger.NewSynchronizer(accounts, ledger.Policy{
		EnforceNonNegative: cfg.Ledger.EnforceNonNegative,
	})

	var (
		accountService = account.NewService(accounts)
		eventService   = event.NewService(events, synchronizer)
		importService  = importer.NewService()
		engine         = reconcile.NewEngine(accounts, events, reconcileStore.New(db), reconcile.Config{
			Tolerance:         cfg.Reconcile.Tolerance,
			CriticalTolerance: cfg.Reconcile.CriticalTolerance,
			PageSize:          cfg.Reconcile.PageSize,
		})
	)

	var (
		accountH     = accountHandler.NewHandler(accountService)
		eventH       = eventHandler.NewHandler(eventService)
		consistencyH = consistencyHandler.NewHandler(engine)
		importH      = importHandler.NewHandler(importService, eventService, accountService)
	)

	if cfg.Reconcile.Interval > 0 {
		go runScheduledChecks(engine, cfg.Reconcile.Interval)
	}

	router := kakeiboHttp.New(accountH, eventH, consistencyH, importH)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "port", port)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// runScheduledChecks triggers the same engine entry point the HTTP action
// uses. Scheduled runs repair drift; reports land in the run audit log.
func runScheduledChecks(engine *reconcile.Engine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		report, err := engine.RunFullCheck(context.Background(), false)
		if err != nil {
			slog.Error("scheduled consistency check failed", "error", err)
			continue
		}

		slog.Info("scheduled consistency check finished",
			"run_id", report.RunID,
			"events_scanned", report.EventsScanned,
			"findings", len(report.Findings),
			"repair_applied", report.RepairApplied)
	}
}
