// Package app wires configuration into running components: gateways, the
// drawdown guard, the trading loop, and the optional SQLite store.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"sigrun/internal/config"
	"sigrun/internal/events"
	"sigrun/internal/gateway/binance"
	"sigrun/internal/gateway/notifier"
	"sigrun/internal/gateway/signalapi"
	"sigrun/internal/guard"
	"sigrun/internal/idempotency"
	"sigrun/internal/logger"
	"sigrun/internal/loop"
	"sigrun/internal/scheduler"
	"sigrun/internal/store"
)

type App struct {
	cfg     *config.Config
	loop    *loop.TradingLoop
	guard   *guard.Guard
	tracker *idempotency.Tracker
	store   *store.Store
}

func New(cfg *config.Config) (*App, error) {
	loopID := strings.TrimSpace(cfg.App.LoopID)
	if loopID == "" {
		loopID = uuid.NewString()
		logger.Infof("app: loop_id not configured, generated %s", loopID)
	}

	var alerts notifier.AlertSink = notifier.LogSink{}
	if cfg.Notify.Telegram.Enabled {
		alerts = notifier.NewTelegram(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID)
	}
	bus := events.LogBus{}

	var st *store.Store
	if cfg.Store.Enabled {
		var err error
		st, err = store.Open(cfg.Store.Path, loopID)
		if err != nil {
			return nil, err
		}
		logger.Infof("app: store enabled path=%s", cfg.Store.Path)
	}

	orderQty, err := decimal.NewFromString(cfg.Exchange.OrderQuantity)
	if err != nil {
		return nil, fmt.Errorf("app: exchange.order_quantity: %w", err)
	}
	exch := binance.New(cfg.Exchange.APIKey, cfg.Exchange.APISecret, orderQty)
	source := signalapi.New(cfg.Signals.APIURL, cfg.Signals.APIToken, cfg.Signals.Timeout())

	var trackerStore idempotency.Store
	var equityStore guard.EquityStore
	if st != nil {
		trackerStore = st
		equityStore = st
	}
	tracker := idempotency.NewTracker(trackerStore)

	g, err := guard.New(guard.Params{
		LoopID:                loopID,
		ThresholdPercent:      cfg.Guard.ThresholdPercent,
		RecoveryBufferPercent: cfg.Guard.RecoveryBufferPercent,
		Account:               exch,
		Execution:             exch,
		Alerts:                alerts,
		Bus:                   bus,
		Store:                 equityStore,
	})
	if err != nil {
		return nil, err
	}

	l, err := loop.New(loop.Params{
		LoopID:            loopID,
		BatchSize:         cfg.Loop.BatchSize,
		PollInterval:      cfg.Loop.PollInterval(),
		HeartbeatInterval: cfg.Loop.HeartbeatInterval(),
		Source:            source,
		Execution:         exch,
		Account:           exch,
		Tracker:           tracker,
		Guard:             g,
		Retry:             cfg.Retry.Policy(),
		Alerts:            alerts,
		Bus:               bus,
	})
	if err != nil {
		return nil, err
	}

	return &App{cfg: cfg, loop: l, guard: g, tracker: tracker, store: st}, nil
}

// Run starts the guard cadence and the trading loop and blocks until the
// context is cancelled, then stops the loop cooperatively.
func (a *App) Run(ctx context.Context) error {
	if a.store != nil {
		// A corrupt store must be visible at startup instead of silently
		// re-executing old signals.
		if err := a.tracker.Restore(ctx); err != nil {
			return fmt.Errorf("app: restoring processed fingerprints: %w", err)
		}
		logger.Infof("app: restored %d processed fingerprints", a.tracker.Len())
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		sched := scheduler.NewIntervalScheduler(egCtx, a.cfg.Guard.CheckInterval())
		sched.Name = "drawdown-guard"
		sched.RunImmediately = true
		sched.Start(func() {
			if err := a.guard.Check(egCtx); err != nil {
				logger.Warnf("app: drawdown check failed: %v", err)
			}
		})
		return nil
	})

	eg.Go(func() error {
		if err := a.loop.Start(egCtx); err != nil {
			return err
		}
		<-egCtx.Done()
		a.loop.Stop()
		return nil
	})

	err := eg.Wait()
	if a.store != nil {
		if cerr := a.store.Close(); cerr != nil {
			logger.Warnf("app: closing store: %v", cerr)
		}
	}
	return err
}
