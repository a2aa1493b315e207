// Package app assembles stores, the event channel and services from Config
// and runs the enabled components of one process.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"auction-platform/internal/auctionerrors"
	bidding "auction-platform/internal/biddingService"
	"auction-platform/internal/config"
	"auction-platform/internal/database"
	"auction-platform/internal/events"
	"auction-platform/internal/projector"
	"auction-platform/internal/registry"
	"auction-platform/internal/registryclient"
	"auction-platform/internal/repository"
	"auction-platform/internal/server"
	"auction-platform/internal/sweep"
	"auction-platform/utils"
)

// Inbox rows older than inboxRetention are pruned every inboxPruneEvery
const (
	inboxRetention  = 7 * 24 * time.Hour
	inboxPruneEvery = time.Hour
)

// App holds the components enabled for this process
type App struct {
	cfg   config.Config
	db    *gorm.DB
	bus   events.Bus
	inbox events.Inbox

	Registry   *registry.Service
	Ledger     repository.LedgerDB
	Bidding    *bidding.BiddingService
	Sweeper    *sweep.Sweeper
	Projector  *projector.Projector
	Backfiller *projector.Backfiller
}

// Option overrides a component, mainly for tests.
type Option func(*App)

// WithBus uses bus instead of the one EVENT_BUS selects.
func WithBus(bus events.Bus) Option {
	return func(a *App) { a.bus = bus }
}

// New builds every component cfg enables. Storage failures are
// ErrFatalStartup and nothing is left running.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}

	if cfg.DBDriver != "memory" {
		db, err := database.Open(cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		a.db = db
	}

	if a.bus == nil {
		bus, err := openBus(ctx, cfg)
		if err != nil {
			_ = a.closeDB()
			return nil, err
		}
		a.bus = bus
	}

	if a.db != nil {
		a.inbox = events.NewGormInbox(a.db)
	} else {
		a.inbox = events.NewMemoryInbox()
	}

	if cfg.Enabled(config.ServiceRegistry) {
		var store registry.Store = registry.NewMemoryStore()
		if a.db != nil {
			store = registry.NewGormStore(a.db)
		}
		a.Registry = registry.NewService(store, a.bus)
	}

	if cfg.Enabled(config.ServiceBidding) {
		a.Ledger = repository.NewMemoryRepo()
		if a.db != nil {
			a.Ledger = repository.NewGormRepo(a.db)
		}
		a.Bidding = bidding.NewBiddingService(a.Ledger, a.bus,
			bidding.WithResolver(a.auctionSource()),
			bidding.WithRetry(cfg.BidRetryAttempts, 50*time.Millisecond),
		)
		a.Sweeper = sweep.New(a.Ledger, a.bus, cfg.SweepInterval)
	}

	if cfg.Enabled(config.ServiceSearch) {
		var store projector.Store = projector.NewMemoryStore()
		if a.db != nil {
			store = projector.NewGormStore(a.db)
		}
		a.Projector = projector.New(store)
		a.Backfiller = projector.NewBackfiller(store, a.Projector, a.auctionSource(), cfg.BackfillInterval)
	}

	return a, nil
}

// AuctionSource is what the ledger and the backfill read from the registry
type AuctionSource interface {
	bidding.AuctionResolver
	projector.Source
}

// auctionSource is the in-process registry when this process runs it,
// otherwise its HTTP API
func (a *App) auctionSource() AuctionSource {
	if a.Registry != nil {
		return a.Registry
	}
	return registryclient.New(a.cfg.RegistryURL, nil)
}

func openBus(ctx context.Context, cfg config.Config) (events.Bus, error) {
	switch cfg.EventBus {
	case "redis":
		bus, err := events.NewRedisBus(ctx, events.RedisConfig{
			Addr:     cfg.RedisAddr,
			Stream:   cfg.RedisStream,
			Consumer: cfg.ConsumerName,
		})
		if err != nil {
			return nil, fmt.Errorf("app: event bus: %w: %w", auctionerrors.ErrFatalStartup, err)
		}
		return bus, nil
	default:
		return events.NewMemoryBus(), nil
	}
}

type subscription struct {
	group   string
	handler events.Handler
}

// Subscribe attaches every enabled consumer to the channel.
func (a *App) Subscribe(ctx context.Context) error {
	var subs []subscription
	if a.Registry != nil {
		subs = append(subs, subscription{registry.ConsumerGroup, a.Registry.Handler(a.inbox)})
	}
	if a.Bidding != nil {
		subs = append(subs, subscription{bidding.ConsumerGroup, a.Bidding.Handler(a.inbox)})
	}
	if a.Projector != nil {
		subs = append(subs, subscription{
			projector.ConsumerGroup,
			events.Idempotent(a.inbox, projector.ConsumerGroup, a.Projector.Handler()),
		})
	}

	for _, s := range subs {
		if err := a.bus.Subscribe(ctx, s.group, s.handler); err != nil {
			return fmt.Errorf("app: subscribe %s: %w", s.group, err)
		}
		utils.Info("app: consumer subscribed", map[string]any{"group": s.group})
	}
	return nil
}

// Router returns the HTTP routes of the enabled services.
func (a *App) Router() http.Handler {
	var svc server.Services
	if a.Registry != nil {
		svc.Registry = a.Registry
	}
	if a.Bidding != nil {
		svc.Bidding = a.Bidding
	}
	if a.Projector != nil {
		svc.Search = a.Projector
	}
	return server.SetupRouter(svc)
}

// Serve runs the HTTP API, the consumers, the sweep and the projector
// backfill until ctx is done or one of them fails.
func (a *App) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if err := a.Subscribe(gctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		utils.Info("app: http server listening", map[string]any{"addr": srv.Addr, "services": a.cfg.Services})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		utils.Info("app: shutting down http server", nil)
		return srv.Shutdown(shutdownCtx)
	})

	if a.Sweeper != nil {
		g.Go(func() error { return a.Sweeper.Run(gctx) })
	}

	if a.Backfiller != nil {
		g.Go(func() error {
			if _, err := a.Backfiller.Run(gctx, false); err != nil && gctx.Err() == nil {
				// the periodic resync tries again
				utils.Error("app: initial backfill failed", map[string]any{"error": err.Error()})
			}
			return a.Backfiller.Watch(gctx, a.cfg.ResyncInterval)
		})
	}

	if pruner, ok := a.inbox.(*events.GormInbox); ok {
		g.Go(func() error { return pruneInbox(gctx, pruner) })
	}

	return g.Wait()
}

// Sweep runs the auction sweep alone; once runs a single tick.
func (a *App) Sweep(ctx context.Context, once bool) (sweep.TickResult, error) {
	if a.Sweeper == nil {
		return sweep.TickResult{}, fmt.Errorf("app: sweep needs the %s service", config.ServiceBidding)
	}
	if once {
		return a.Sweeper.Tick(ctx), nil
	}
	return sweep.TickResult{}, a.Sweeper.Run(ctx)
}

// Backfill reconciles the read model with the registry once.
func (a *App) Backfill(ctx context.Context, rebuild bool) (int, error) {
	if a.Backfiller == nil {
		return 0, fmt.Errorf("app: backfill needs the %s service", config.ServiceSearch)
	}
	return a.Backfiller.Run(ctx, rebuild)
}

// Close releases the channel and the database.
func (a *App) Close() error {
	var errs []error
	if a.bus != nil {
		errs = append(errs, a.bus.Close())
	}
	errs = append(errs, a.closeDB())
	return errors.Join(errs...)
}

func (a *App) closeDB() error {
	if a.db == nil {
		return nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func pruneInbox(ctx context.Context, inbox *events.GormInbox) error {
	ticker := time.NewTicker(inboxPruneEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			removed, err := inbox.Prune(ctx, time.Now().UTC().Add(-inboxRetention))
			if err != nil {
				utils.Warn("app: inbox prune failed", map[string]any{"error": err.Error()})
				continue
			}
			utils.Debug("app: inbox pruned", map[string]any{"removed": removed})
		}
	}
}
