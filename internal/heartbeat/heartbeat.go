// Package heartbeat produces periodic health snapshots on a cadence
// independent of signal throughput.
package heartbeat

import (
	"time"

	"github.com/shopspring/decimal"
)

// Metrics is one heartbeat snapshot. Interval counters cover the window since
// the previous emission; lifetime counters are monotonically non-decreasing
// for the life of one loop instance.
type Metrics struct {
	Timestamp            time.Time
	LoopID               string
	SignalsProcessed     int64
	TradesExecuted       int64
	ErrorCount           int64
	LoopDurationMS       int64
	PositionsOpen        int
	AccountEquity        decimal.Decimal
	TotalSignalsLifetime int64
	TotalTradesLifetime  int64
}

// Sink receives emitted snapshots.
type Sink func(Metrics)

// Emitter gates emission to a fixed interval. Single writer: only the trading
// loop calls Due/Emit.
type Emitter struct {
	interval time.Duration
	sink     Sink
	lastEmit time.Time
}

func NewEmitter(interval time.Duration, sink Sink) *Emitter {
	return &Emitter{interval: interval, sink: sink}
}

// Due reports whether the interval has elapsed since the last emission. The
// first call is always due so a fresh loop announces itself promptly.
func (e *Emitter) Due(now time.Time) bool {
	if e.lastEmit.IsZero() {
		return true
	}
	return now.Sub(e.lastEmit) >= e.interval
}

func (e *Emitter) Emit(m Metrics) {
	e.lastEmit = m.Timestamp
	if e.sink != nil {
		e.sink(m)
	}
}
