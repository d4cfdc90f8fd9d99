package app

import (
	"context"
	"errors"
	"time"

	"github.com/JEEEEEEHO/currecnyAlert/internal/service"
	"github.com/JEEEEEEHO/currecnyAlert/internal/storage"
)

// SimulateAlert pushes a synthetic statistic through classification and
// the notification pass without touching the rate APIs or persisting
// anything. Useful for verifying SMTP wiring end to end.
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if !a.Config.Notify.Enabled {
		return errors.New("notifications are disabled in config")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; subscribers cannot be loaded")
	}
	if closeStore != nil {
		defer closeStore()
	}

	notifier := a.newNotifier(store)
	if notifier == nil {
		return errors.New("notifier not configured")
	}

	base, target := a.Config.Pair(opts.Base, opts.Target)

	stat := storage.RateStat{
		Base:         base,
		Target:       target,
		CurrentRate:  opts.Current,
		Avg3Y:        opts.Average,
		Status:       service.Classify(opts.Current, opts.Average),
		CalculatedAt: time.Now().UTC(),
	}

	if stat.Status != storage.StatusLow {
		a.Logger.Info().
			Str("status", stat.Status).
			Msg("simulated statistic is not LOW; no notifications will be sent")
	}

	sent, err := notifier.NotifyLowRate(ctx, stat)
	if err != nil {
		return err
	}

	a.Logger.Info().Int("recipients", sent).Msg("simulation complete")
	return nil
}
