package exchange

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountInfo is a point-in-time account snapshot.
type AccountInfo struct {
	Equity    decimal.Decimal // wallet balance + unrealized PnL
	Balance   decimal.Decimal // wallet balance
	Available decimal.Decimal // free margin
	Currency  string
	UpdatedAt time.Time
}

// Position represents an open position at the broker.
type Position struct {
	ID            string // broker-specific position id
	Instrument    string
	Side          string // "long" or "short"
	Amount        decimal.Decimal
	EntryPrice    decimal.Decimal
	UnrealizedPnL decimal.Decimal
}

// OrderResult is the broker's answer to an execute request.
type OrderResult struct {
	Success       bool
	BrokerOrderID string
	Reason        string // broker-side rejection detail, empty on success
}
