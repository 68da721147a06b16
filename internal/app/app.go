package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"TourScanner/internal/config"
	"TourScanner/internal/domain"
	"TourScanner/internal/infrastructure/email"
	"TourScanner/internal/infrastructure/notify"
	"TourScanner/internal/infrastructure/parser"
	"TourScanner/internal/infrastructure/scheduler"
	"TourScanner/internal/infrastructure/storage"
	"TourScanner/internal/infrastructure/telegram"
	"TourScanner/internal/logging"
	"TourScanner/internal/ports"
	"TourScanner/internal/scanner"
	"TourScanner/internal/usecase"
)

// Option adjusts application wiring.
type Option func(*options)

type options struct {
	clock     ports.Clock
	dryRunOut io.Writer
}

// WithClock replaces the wall clock used by every scheduler.
func WithClock(clock ports.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithDryRunOutput redirects dry-run digests, stdout by default.
func WithDryRunOutput(w io.Writer) Option {
	return func(o *options) { o.dryRunOut = w }
}

// SourceResult is the outcome of one source in a single pass.
type SourceResult struct {
	Source string
	Result usecase.CycleResult
	Err    error
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	store      ports.DedupStore
	schedulers []*usecase.Scheduler
}

// New builds the shared store, notifier and one scheduler per source.
func New(cfg config.Config, baseLogger *slog.Logger, opts ...Option) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	o := options{clock: scheduler.SystemClock{}}
	for _, opt := range opts {
		opt(&o)
	}

	timing, err := cfg.Scheduler.Timing()
	if err != nil {
		return nil, eris.Wrap(err, "app: scheduler timing")
	}

	store, err := storage.Open(storage.Options{
		Backend: storage.Backend(cfg.Storage.Backend),
		Path:    cfg.Storage.Path,
		Table: storage.TableOptions{
			Dialect: storage.Dialect(cfg.Storage.Driver),
			DSN:     cfg.Storage.TableDSN(),
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "app: open store")
	}

	notifier, err := buildNotifier(cfg.Notifications, o.dryRunOut, baseLogger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	registry := scanner.NewRegistry(parser.NewSelectorExtractor(), parser.NewJSONLDExtractor())

	application := &Application{cfg: cfg, logger: baseLogger, store: store}
	for _, src := range cfg.Sources {
		s, err := application.buildScheduler(src, registry, notifier, o.clock, timing)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		application.schedulers = append(application.schedulers, s)
	}

	attrs := []any{
		"sources", len(application.schedulers),
		"backend", cfg.Storage.Backend,
		"extractors", registry.Names(),
	}
	if fs, ok := store.(*storage.FileStore); ok {
		attrs = append(attrs, "path", fs.Path())
	}
	if fanout, ok := notifier.(*notify.Fanout); ok {
		attrs = append(attrs, "channels", fanout.Names())
	}
	baseLogger.Info("application ready", attrs...)

	return application, nil
}

func (a *Application) buildScheduler(src config.SourceConfig, registry *scanner.Registry, notifier ports.Notifier, clock ports.Clock, timing config.Timing) (*usecase.Scheduler, error) {
	logger := a.logger.With("source", src.Name)

	strategy, err := registry.Resolve(src.Extractor)
	if err != nil {
		return nil, eris.Wrapf(err, "app: source %s", src.Name)
	}
	if err := strategy.Validate(src.Ruleset); err != nil {
		return nil, eris.Wrapf(err, "app: source %s", src.Name)
	}

	fetcher := parser.NewHTTPFetcher(&http.Client{Timeout: src.TimeoutDuration()})
	source := parser.NewPageSource(parser.PageSourceConfig{
		Name:    src.Name,
		URL:     src.URL,
		Headers: src.Headers,
		Ruleset: src.Ruleset,
	}, fetcher, strategy, logger.With("component", "source"))

	cycle := usecase.NewCycle(usecase.CycleDeps{
		Store:      a.store,
		Normalizer: usecase.NewNormalizer(src.Fields),
		Logger:     logger.With("component", "cycle"),
	})

	s, err := usecase.NewScheduler(usecase.SchedulerDeps{
		Source:   source,
		Cycle:    cycle,
		Notifier: notifier,
		Clock:    clock,
		Logger:   logger.With("component", "scheduler"),
		Options: usecase.SchedulerOptions{
			Duration:  timing.Duration,
			Pause:     timing.Pause,
			Unbounded: timing.Unbounded,
		},
	})
	if err != nil {
		return nil, eris.Wrapf(err, "app: source %s", src.Name)
	}
	return s, nil
}

// buildNotifier returns nil when no channel is configured.
func buildNotifier(cfg config.NotificationConfig, dryRunOut io.Writer, logger *slog.Logger) (ports.Notifier, error) {
	var channels []notify.Channel

	if cfg.Email.Enabled() {
		n, err := email.NewNotifier(email.Config{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			To:       cfg.Email.To,
			Subject:  cfg.Email.Subject,
		})
		if err != nil {
			return nil, eris.Wrap(err, "app: email channel")
		}
		channels = append(channels, notify.Channel{Name: "email", Notifier: n})
	}

	if cfg.Telegram.Enabled() {
		channels = append(channels, notify.Channel{
			Name:     "telegram",
			Notifier: telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID),
		})
	}

	if cfg.DryRun {
		channels = append(channels, notify.Channel{Name: "dry-run", Notifier: notify.NewDryRunNotifier(dryRunOut)})
	}

	if len(channels) == 0 {
		logger.Warn("no notification channel configured, new records are only logged")
		return nil, nil
	}
	return notify.NewFanout(channels...), nil
}

// Run starts every scheduler and waits until all of them stop.
func (a *Application) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range a.schedulers {
		g.Go(func() error {
			_, err := s.Run(gctx)
			return err
		})
	}
	return g.Wait()
}

// RunOnce performs a single pass per source in configuration order.
func (a *Application) RunOnce(ctx context.Context) ([]SourceResult, error) {
	results := make([]SourceResult, 0, len(a.schedulers))
	var errs []error
	for i, s := range a.schedulers {
		result, err := s.RunOnce(ctx)
		results = append(results, SourceResult{Source: a.cfg.Sources[i].Name, Result: result, Err: err})
		if err != nil {
			errs = append(errs, eris.Wrapf(err, "source %s", a.cfg.Sources[i].Name))
		}
	}
	return results, errors.Join(errs...)
}

// Records returns everything in the dedup store.
func (a *Application) Records(ctx context.Context) ([]domain.Record, error) {
	return a.store.Load(ctx)
}

// Close releases the dedup store.
func (a *Application) Close() error {
	return a.store.Close()
}
