package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/JEEEEEEHO/currecnyAlert/internal/alerting"
	"github.com/JEEEEEEHO/currecnyAlert/internal/config"
	"github.com/JEEEEEEHO/currecnyAlert/internal/fetcher"
	"github.com/JEEEEEEHO/currecnyAlert/internal/mailer"
	"github.com/JEEEEEEHO/currecnyAlert/internal/metrics"
	"github.com/JEEEEEEHO/currecnyAlert/internal/scheduler"
	"github.com/JEEEEEEHO/currecnyAlert/internal/server"
	"github.com/JEEEEEEHO/currecnyAlert/internal/service"
	"github.com/JEEEEEEHO/currecnyAlert/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetchers(m *metrics.PipelineMetrics) (fetcher.LatestRateFetcher, fetcher.HistoryAverager) {
	var latest fetcher.LatestRateFetcher
	switch a.Config.Rates.Provider {
	case config.ProviderExchangeRateAPI:
		latest = fetcher.NewAPI(fetcher.APIOptions{
			BaseURL:   a.Config.Rates.BaseURL,
			APIKey:    a.Config.Rates.APIKey,
			Timeout:   a.Config.Rates.RequestTimeout,
			UserAgent: a.Config.Rates.UserAgent,
		}, a.Logger)
	default:
		latest = fetcher.NewHost(fetcher.HostOptions{
			BaseURL:   a.Config.Rates.BaseURL,
			Timeout:   a.Config.Rates.RequestTimeout,
			UserAgent: a.Config.Rates.UserAgent,
		}, a.Logger)
	}

	averagerOpts := fetcher.AveragerOptions{
		BaseURL:      a.Config.History.BaseURL,
		WindowYears:  a.Config.History.WindowYears,
		BufferDays:   a.Config.History.BufferDays,
		Timeout:      a.Config.History.RequestTimeout,
		UserAgent:    a.Config.Rates.UserAgent,
		OnEmpty:      fetcher.EmptyPolicy(a.Config.History.OnEmpty),
		FallbackRate: decimal.NewFromFloat(a.Config.History.FallbackRate),
	}
	if m != nil {
		averagerOpts.OnFallbackUsed = m.HistoryFallbacks.Inc
	}
	history := fetcher.NewAverager(averagerOpts, a.Logger)

	return latest, history
}

func (a *App) newNotifier(subscribers storage.SubscriberStore) alerting.Notifier {
	if !a.Config.Notify.Enabled || subscribers == nil {
		return nil
	}

	sender := mailer.NewSMTP(mailer.Options{
		Host:     a.Config.SMTP.Host,
		Port:     a.Config.SMTP.Port,
		Username: a.Config.SMTP.Username,
		Password: a.Config.SMTP.Password,
		From:     a.Config.SMTP.From,
		StartTLS: a.Config.SMTP.StartTLS,
	}, a.Logger)

	return alerting.NewEmailNotifier(subscribers, sender, a.Config.Notify.SubjectPrefix, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newService(store *storage.Store, m *metrics.PipelineMetrics) *service.Service {
	latest, history := a.newFetchers(m)

	var statStore storage.RateStatStore
	var notifier alerting.Notifier
	if store != nil {
		statStore = store
		notifier = a.newNotifier(store)
	}

	opts := service.Options{
		DefaultBase:   a.Config.Rates.DefaultBase,
		DefaultTarget: a.Config.Rates.DefaultTarget,
		NotifyEnabled: a.Config.Notify.Enabled,
	}

	return service.New(opts, latest, history, statStore, notifier, m, a.Logger)
}

// Run executes the long-running scheduler and the HTTP read API.
func (a *App) Run(ctx context.Context) error {
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
		a.Logger.Warn().Msg("database.dsn not configured; persistence and notifications disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	pipelineMetrics := metrics.New(prometheus.DefaultRegisterer)
	svc := a.newService(store, pipelineMetrics)

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	var history server.StatHistory
	if store != nil {
		history = store
	}
	srv := server.New(a.Config.Server, a.Config.App.Environment, svc, history,
		a.Config.Rates.DefaultBase, a.Config.Rates.DefaultTarget, a.Logger)

	a.Logger.Info().Msg("starting fx alert service")

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		errCh <- srv.Run(runCtx)
	}()
	go func() {
		errCh <- sched.Run(runCtx, func(tickCtx context.Context, _ time.Time) error {
			_, tickErr := svc.ComputeStoreAndNotify(tickCtx, "", "")
			return tickErr
		})
	}()

	err = <-errCh
	stop()
	if second := <-errCh; err == nil {
		err = second
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("fx alert service stopped")
	return nil
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Base   string
	Target string
	Limit  int
}

// ExportOptions hold parameters for exporting historical statistics.
type ExportOptions struct {
	Base      string
	Target    string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// SimulateOptions feed a synthetic statistic through the notifier.
type SimulateOptions struct {
	Base    string
	Target  string
	Current decimal.Decimal
	Average decimal.Decimal
}
