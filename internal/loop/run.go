package loop

import (
	"context"
	"time"

	"sigrun/internal/events"
	"sigrun/internal/gateway/notifier"
	"sigrun/internal/heartbeat"
	"sigrun/internal/logger"
	"sigrun/internal/signal"
)

func (l *TradingLoop) run(ctx context.Context) {
	l.status.CompareAndSwap(int32(StatusStarting), int32(StatusRunning))
	defer func() {
		// Final heartbeat carries the closing counters before the loop
		// reports STOPPED.
		l.emitHeartbeat(ctx, time.Now())
		l.bus.Publish(events.New(events.TypeLoopStopped, l.loopID, map[string]any{
			"total_signals": l.totalSignals,
			"total_trades":  l.totalTrades,
		}))
		l.status.Store(int32(StatusStopped))
		logger.Infof("loop %s: stopped total_signals=%d total_trades=%d", l.loopID, l.totalSignals, l.totalTrades)
		close(l.doneCh)
	}()

	for {
		if l.stopRequested() || ctx.Err() != nil {
			return
		}
		l.iterate(ctx)

		timer := time.NewTimer(l.pollInterval)
		select {
		case <-l.stopCh:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// iterate runs one cycle: fetch, dedup, execute, metrics, heartbeat. A fetch
// failure skips straight to metrics; it never terminates the loop.
func (l *TradingLoop) iterate(ctx context.Context) {
	start := time.Now()

	batch := l.fetch(ctx)
	fresh := batch[:0:0]
	for _, sig := range batch {
		if l.tracker.Seen(sig.Fingerprint) {
			logger.Debugf("loop %s: duplicate fingerprint=%s skipped", l.loopID, sig.Fingerprint)
			continue
		}
		fresh = append(fresh, sig)
	}

	if len(fresh) > 0 {
		if l.guard.State().CapTriggered {
			logger.Warnf("loop %s: drawdown cap active, pausing execution of %d signals", l.loopID, len(fresh))
		} else {
			for _, sig := range fresh {
				l.executeSignal(ctx, sig)
				// Each execution is a suspension point; a stop request is
				// honored between signals, never mid-order.
				if l.stopRequested() || ctx.Err() != nil {
					break
				}
			}
		}
	}

	l.lastDuration = time.Since(start)
	if now := time.Now(); l.emitter.Due(now) {
		l.emitHeartbeat(ctx, now)
	}
}

func (l *TradingLoop) fetch(ctx context.Context) []signal.Signal {
	if !l.breaker.Allow() {
		logger.Warnf("loop %s: fetch breaker open, skipping poll", l.loopID)
		return nil
	}
	batch, err := l.source.FetchPending(ctx, l.batchSize)
	if err != nil {
		l.intervalErrors++
		l.breaker.RecordFailure()
		logger.Warnf("loop %s: fetching signals failed (retry next cycle): %v", l.loopID, err)
		return nil
	}
	l.breaker.RecordSuccess()
	return batch
}

// executeSignal runs one order through the retry policy. On success the
// fingerprint is marked seen and counters advance. On exhausted retries the
// fingerprint is marked seen anyway so a permanently-failing signal cannot
// cause a re-attempt storm; the failure is alerted for manual follow-up.
func (l *TradingLoop) executeSignal(ctx context.Context, sig signal.Signal) {
	var res orderOutcome
	err := l.retry.Do(ctx, "execute_order", func(ctx context.Context) error {
		r, err := l.execution.ExecuteOrder(ctx, sig)
		if err != nil {
			return err
		}
		if !r.Success {
			return &brokerRejectError{reason: r.Reason}
		}
		res.brokerOrderID = r.BrokerOrderID
		return nil
	})
	if err != nil && ctx.Err() != nil {
		// Cancelled between attempts: leave the fingerprint unmarked so a
		// restart can pick the signal up again.
		logger.Warnf("loop %s: execution of fingerprint=%s aborted by shutdown", l.loopID, sig.Fingerprint)
		return
	}

	l.tracker.MarkSeen(ctx, sig.Fingerprint)

	if err != nil {
		l.intervalErrors++
		logger.Errorf("loop %s: fingerprint=%s instrument=%s failed permanently: %v",
			l.loopID, sig.Fingerprint, sig.Instrument, err)
		l.bus.Publish(events.New(events.TypeSignalFailed, l.loopID, map[string]any{
			"fingerprint": sig.Fingerprint,
			"instrument":  sig.Instrument,
			"error":       err.Error(),
		}))
		l.sendFailureAlert(sig, err)
		return
	}

	l.intervalSignals++
	l.totalSignals++
	l.intervalTrades++
	l.totalTrades++
	logger.Infof("loop %s: executed fingerprint=%s instrument=%s side=%s broker_order=%s",
		l.loopID, sig.Fingerprint, sig.Instrument, sig.Side, res.brokerOrderID)
	l.bus.Publish(events.New(events.TypeSignalExecuted, l.loopID, map[string]any{
		"fingerprint":     sig.Fingerprint,
		"instrument":      sig.Instrument,
		"side":            sig.Side,
		"broker_order_id": res.brokerOrderID,
	}))
}

func (l *TradingLoop) sendFailureAlert(sig signal.Signal, execErr error) {
	alert := notifier.Alert{
		Icon:  "⚠️",
		Title: "Signal execution failed after retries",
		Lines: []string{
			"Loop: " + l.loopID,
			"Fingerprint: " + sig.Fingerprint,
			"Instrument: " + sig.Instrument,
			"Side: " + sig.Side,
			"Error: " + execErr.Error(),
		},
		Footer:    "Marked processed-with-error; manual follow-up required.",
		Timestamp: time.Now(),
	}
	if err := l.alerts.SendAlert(alert.RenderHTML(), notifier.SeverityWarning); err != nil {
		logger.Warnf("loop %s: sending failure alert failed: %v", l.loopID, err)
	}
}

// emitHeartbeat builds a snapshot including account state, emits it, and
// resets the interval counters. Account fetch errors degrade the snapshot
// rather than blocking it.
func (l *TradingLoop) emitHeartbeat(ctx context.Context, now time.Time) {
	m := heartbeat.Metrics{
		Timestamp:            now.UTC(),
		LoopID:               l.loopID,
		SignalsProcessed:     l.intervalSignals,
		TradesExecuted:       l.intervalTrades,
		ErrorCount:           l.intervalErrors,
		LoopDurationMS:       l.lastDuration.Milliseconds(),
		TotalSignalsLifetime: l.totalSignals,
		TotalTradesLifetime:  l.totalTrades,
	}
	if l.account != nil {
		if acct, err := l.account.GetAccountInfo(ctx); err != nil {
			logger.Warnf("loop %s: heartbeat account info failed: %v", l.loopID, err)
		} else {
			m.AccountEquity = acct.Equity
		}
		if positions, err := l.account.GetPositions(ctx); err != nil {
			logger.Warnf("loop %s: heartbeat positions failed: %v", l.loopID, err)
		} else {
			m.PositionsOpen = len(positions)
		}
	}
	l.emitter.Emit(m)
	l.intervalSignals = 0
	l.intervalTrades = 0
	l.intervalErrors = 0
}

func (l *TradingLoop) publishHeartbeat(m heartbeat.Metrics) {
	logger.Infof("heartbeat loop=%s signals=%d trades=%d errors=%d duration_ms=%d positions=%d equity=%s totals=%d/%d",
		m.LoopID, m.SignalsProcessed, m.TradesExecuted, m.ErrorCount, m.LoopDurationMS,
		m.PositionsOpen, m.AccountEquity.StringFixed(2), m.TotalSignalsLifetime, m.TotalTradesLifetime)
	l.bus.Publish(events.New(events.TypeHeartbeat, m.LoopID, map[string]any{
		"signals_processed":      m.SignalsProcessed,
		"trades_executed":        m.TradesExecuted,
		"error_count":            m.ErrorCount,
		"loop_duration_ms":       m.LoopDurationMS,
		"positions_open":         m.PositionsOpen,
		"account_equity":         m.AccountEquity.String(),
		"total_signals_lifetime": m.TotalSignalsLifetime,
		"total_trades_lifetime":  m.TotalTradesLifetime,
	}))
}

type orderOutcome struct {
	brokerOrderID string
}

type brokerRejectError struct {
	reason string
}

func (e *brokerRejectError) Error() string {
	if e.reason == "" {
		return "broker rejected order"
	}
	return "broker rejected order: " + e.reason
}
