// Package guard enforces an account-level drawdown cap. It runs on its own
// fixed cadence, independent of the trading loop, and publishes an atomic
// state snapshot the loop reads before executing new signals.
//
// State machine: NORMAL -> (threshold exceeded) -> CAP_TRIGGERED ->
// (equity recovers past the boundary) -> NORMAL. No terminal state.
package guard

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"sigrun/internal/events"
	"sigrun/internal/exchange"
	"sigrun/internal/gateway/notifier"
	"sigrun/internal/logger"
)

// EquityStore is an optional persistence hook for entry equity. Without it
// the guard cold-starts: entry equity is the first observed equity.
type EquityStore interface {
	LoadEntryEquity(ctx context.Context) (decimal.Decimal, bool, error)
	SaveEntryEquity(ctx context.Context, equity decimal.Decimal) error
}

type Params struct {
	LoopID                string
	ThresholdPercent      int // integer percent, 1-99
	RecoveryBufferPercent int // hysteresis above the recovery boundary, >= 0
	Account               exchange.AccountClient
	Execution             exchange.ExecutionClient
	Alerts                notifier.AlertSink
	Bus                   events.Bus
	Store                 EquityStore // optional
}

type Guard struct {
	loopID         string
	threshold      int
	recoveryBuffer int
	account        exchange.AccountClient
	execution      exchange.ExecutionClient
	alerts         notifier.AlertSink
	bus            events.Bus
	store          EquityStore

	// Written only from Check (single writer).
	entrySet     bool
	entryEquity  decimal.Decimal
	capTriggered bool
	closed       []ClosedPosition

	snapshot atomic.Pointer[State]
}

func New(p Params) (*Guard, error) {
	if p.ThresholdPercent < 1 || p.ThresholdPercent > 99 {
		return nil, fmt.Errorf("guard.threshold_percent must be in [1, 99], got %d", p.ThresholdPercent)
	}
	if p.RecoveryBufferPercent < 0 {
		return nil, fmt.Errorf("guard.recovery_buffer_percent must be >= 0, got %d", p.RecoveryBufferPercent)
	}
	if p.Account == nil || p.Execution == nil {
		return nil, fmt.Errorf("guard requires account and execution clients")
	}
	if p.Alerts == nil {
		p.Alerts = notifier.LogSink{}
	}
	if p.Bus == nil {
		p.Bus = events.LogBus{}
	}
	g := &Guard{
		loopID:         p.LoopID,
		threshold:      p.ThresholdPercent,
		recoveryBuffer: p.RecoveryBufferPercent,
		account:        p.Account,
		execution:      p.Execution,
		alerts:         p.Alerts,
		bus:            p.Bus,
		store:          p.Store,
	}
	g.snapshot.Store(&State{})
	return g, nil
}

// State returns the last published snapshot. Safe for concurrent readers.
func (g *Guard) State() State {
	s := g.snapshot.Load()
	out := *s
	out.PositionsClosed = append([]ClosedPosition(nil), s.PositionsClosed...)
	return out
}

// Reset clears entry equity and the trigger latch. External hook only; the
// next Check re-anchors entry equity at the then-current equity.
func (g *Guard) Reset() {
	g.entrySet = false
	g.entryEquity = decimal.Zero
	g.capTriggered = false
	g.closed = nil
	logger.Infof("guard: reset loop=%s, entry equity re-anchors on next check", g.loopID)
}

// Check fetches equity and positions, evaluates the drawdown cap, and
// publishes a fresh snapshot. Fetch errors are returned to the caller and
// retried on the next cadence tick; a breach is never an error.
func (g *Guard) Check(ctx context.Context) error {
	acct, err := g.account.GetAccountInfo(ctx)
	if err != nil {
		return fmt.Errorf("guard: account info: %w", err)
	}
	positions, err := g.account.GetPositions(ctx)
	if err != nil {
		return fmt.Errorf("guard: positions: %w", err)
	}
	now := time.Now().UTC()

	if !g.entrySet {
		g.initEntryEquity(ctx, acct.Equity)
	}

	pct, amount := drawdown(g.entryEquity, acct.Equity)
	threshold := decimal.NewFromInt(int64(g.threshold))

	switch {
	case !g.capTriggered && pct.GreaterThanOrEqual(threshold):
		g.capTriggered = true
		capErr := &CapExceededError{
			EntryEquity:      g.entryEquity,
			CurrentEquity:    acct.Equity,
			DrawdownPercent:  pct,
			ThresholdPercent: g.threshold,
		}
		logger.Errorf("guard: %v loop=%s positions_open=%d", capErr, g.loopID, len(positions))
		positions = g.closePositions(ctx, positions)
		g.sendCapAlert(capErr, now)
		g.bus.Publish(events.New(events.TypeDrawdownCapTrigger, g.loopID, map[string]any{
			"entry_equity":     g.entryEquity.String(),
			"current_equity":   acct.Equity.String(),
			"drawdown_percent": pct.String(),
			"threshold":        g.threshold,
		}))

	case g.capTriggered:
		if g.recovered(acct.Equity) {
			g.capTriggered = false
			logger.Infof("guard: equity recovered loop=%s current=%s entry=%s, trading resumes",
				g.loopID, acct.Equity.StringFixed(2), g.entryEquity.StringFixed(2))
			g.bus.Publish(events.New(events.TypeDrawdownRecovered, g.loopID, map[string]any{
				"current_equity": acct.Equity.String(),
				"entry_equity":   g.entryEquity.String(),
			}))
		} else if len(positions) > 0 {
			// Partial-closure retry: only the still-open subset.
			positions = g.closePositions(ctx, positions)
		}
	}

	g.publish(State{
		EntryEquity:     g.entryEquity,
		CurrentEquity:   acct.Equity,
		DrawdownPercent: pct,
		DrawdownAmount:  amount,
		PositionsOpen:   len(positions),
		LastChecked:     now,
		PositionsClosed: g.closed,
		CapTriggered:    g.capTriggered,
	})
	return nil
}

func (g *Guard) initEntryEquity(ctx context.Context, observed decimal.Decimal) {
	if g.store != nil {
		saved, ok, err := g.store.LoadEntryEquity(ctx)
		if err != nil {
			logger.Warnf("guard: loading entry equity failed: %v", err)
		} else if ok && saved.GreaterThan(decimal.Zero) {
			g.entryEquity = saved
			g.entrySet = true
			logger.Infof("guard: entry equity restored loop=%s entry=%s", g.loopID, saved.StringFixed(2))
			return
		}
	}
	g.entryEquity = observed
	g.entrySet = true
	logger.Infof("guard: entry equity anchored loop=%s entry=%s", g.loopID, observed.StringFixed(2))
	if g.store != nil {
		if err := g.store.SaveEntryEquity(ctx, observed); err != nil {
			logger.Warnf("guard: persisting entry equity failed: %v", err)
		}
	}
}

// recovered reports whether current/entry is back above the recovery
// boundary (1 - threshold/100), plus the hysteresis buffer.
func (g *Guard) recovered(current decimal.Decimal) bool {
	if g.entryEquity.LessThanOrEqual(decimal.Zero) {
		return false
	}
	hundred := decimal.NewFromInt(100)
	boundary := decimal.NewFromInt(1).
		Sub(decimal.NewFromInt(int64(g.threshold)).Div(hundred)).
		Add(decimal.NewFromInt(int64(g.recoveryBuffer)).Div(hundred))
	return current.Div(g.entryEquity).GreaterThan(boundary)
}

// closePositions attempts to close every given position and returns the
// subset that is still open. Failures are logged and retried next check.
func (g *Guard) closePositions(ctx context.Context, positions []exchange.Position) []exchange.Position {
	var remaining []exchange.Position
	for _, pos := range positions {
		if err := g.execution.ClosePosition(ctx, pos.ID); err != nil {
			logger.Errorf("guard: closing position=%s instrument=%s failed: %v", pos.ID, pos.Instrument, err)
			g.bus.Publish(events.New(events.TypePositionCloseFailed, g.loopID, map[string]any{
				"position_id": pos.ID,
				"instrument":  pos.Instrument,
				"error":       err.Error(),
			}))
			remaining = append(remaining, pos)
			continue
		}
		g.closed = append(g.closed, ClosedPosition{
			PositionID: pos.ID,
			Instrument: pos.Instrument,
			ClosedAt:   time.Now().UTC(),
		})
		logger.Infof("guard: closed position=%s instrument=%s", pos.ID, pos.Instrument)
	}
	return remaining
}

func (g *Guard) sendCapAlert(capErr *CapExceededError, now time.Time) {
	alert := notifier.Alert{
		Icon:  "🚨",
		Title: "Drawdown cap triggered",
		Lines: []string{
			fmt.Sprintf("Loop: %s", g.loopID),
			fmt.Sprintf("Entry equity: %s", capErr.EntryEquity.StringFixed(2)),
			fmt.Sprintf("Current equity: %s", capErr.CurrentEquity.StringFixed(2)),
			fmt.Sprintf("Drawdown: %s%%", capErr.DrawdownPercent.StringFixed(2)),
			fmt.Sprintf("Threshold: %d%%", capErr.ThresholdPercent),
			fmt.Sprintf("Positions closed: %d", len(g.closed)),
		},
		Footer:    "New trading is paused until equity recovers.",
		Timestamp: now,
	}
	if err := g.alerts.SendAlert(alert.RenderHTML(), notifier.SeverityCritical); err != nil {
		logger.Warnf("guard: sending cap alert failed: %v", err)
	}
}

func (g *Guard) publish(s State) {
	s.PositionsClosed = append([]ClosedPosition(nil), s.PositionsClosed...)
	g.snapshot.Store(&s)
}
