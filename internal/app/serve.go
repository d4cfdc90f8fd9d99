package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JEEEEEEHO/currecnyAlert/internal/metrics"
	"github.com/JEEEEEEHO/currecnyAlert/internal/server"
	"github.com/JEEEEEEHO/currecnyAlert/internal/storage"
)

// Serve runs only the HTTP read API, without the scheduler.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if a.Config.Database.DSN != "" {
		if err := storage.RunMigrations(a.Config.Database); err != nil {
			return err
		}
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; serving live computations only")
	}
	if closeStore != nil {
		defer closeStore()
	}

	svc := a.newService(store, metrics.New(prometheus.DefaultRegisterer))

	var history server.StatHistory
	if store != nil {
		history = store
	}
	srv := server.New(a.Config.Server, a.Config.App.Environment, svc, history,
		a.Config.Rates.DefaultBase, a.Config.Rates.DefaultTarget, a.Logger)

	err = srv.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
