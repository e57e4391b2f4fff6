// Package signal defines the approved trading instruction consumed by the
// execution loop and the source it is fetched from.
package signal

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Signal is an immutable, externally-approved trading instruction. The
// fingerprint uniquely identifies it for at-most-once execution.
type Signal struct {
	Fingerprint string
	Instrument  string
	Side        string // "buy" or "sell"
	EntryPrice  decimal.Decimal
	StopLoss    decimal.Decimal
	TakeProfit  decimal.Decimal
	ApprovedAt  time.Time
}

// Source returns approved signals in approval order. Fetch failures are
// transient from the caller's point of view: the loop logs and retries on the
// next cycle.
type Source interface {
	FetchPending(ctx context.Context, batchSize int) ([]Signal, error)
}
