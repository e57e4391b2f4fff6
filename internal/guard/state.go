package guard

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ClosedPosition records one successful forced closure.
type ClosedPosition struct {
	PositionID string
	Instrument string
	ClosedAt   time.Time
}

// State is an immutable snapshot of the guard. Only the guard writes it;
// cross-component readers (the trading loop) get an atomically-published copy.
type State struct {
	EntryEquity     decimal.Decimal
	CurrentEquity   decimal.Decimal
	DrawdownPercent decimal.Decimal // always in [0, 100]
	DrawdownAmount  decimal.Decimal
	PositionsOpen   int
	LastChecked     time.Time
	PositionsClosed []ClosedPosition
	CapTriggered    bool
}

// CapExceededError carries breach context for logging and alerting. A breach
// is not a crash: the guard represents it as a state transition, and this
// value only travels into log lines and alerts.
type CapExceededError struct {
	EntryEquity      decimal.Decimal
	CurrentEquity    decimal.Decimal
	DrawdownPercent  decimal.Decimal
	ThresholdPercent int
}

func (e *CapExceededError) Error() string {
	return fmt.Sprintf("drawdown cap exceeded: drawdown=%s%% threshold=%d%% entry=%s current=%s",
		e.DrawdownPercent.StringFixed(2), e.ThresholdPercent,
		e.EntryEquity.StringFixed(2), e.CurrentEquity.StringFixed(2))
}

// drawdown computes the percentage decline from entry to current, clamped to
// [0, 100]. Equity above entry clamps to zero.
func drawdown(entry, current decimal.Decimal) (pct, amount decimal.Decimal) {
	if entry.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, decimal.Zero
	}
	amount = entry.Sub(current)
	if amount.IsNegative() {
		return decimal.Zero, decimal.Zero
	}
	pct = amount.Div(entry).Mul(decimal.NewFromInt(100))
	hundred := decimal.NewFromInt(100)
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	return pct, amount
}
