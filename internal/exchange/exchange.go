// Package exchange defines a common abstraction for broker backends. The loop
// and the drawdown guard only talk to these interfaces, so live, paper and
// test implementations are interchangeable.
package exchange

import (
	"context"

	"sigrun/internal/signal"
)

// ExecutionClient places and unwinds orders at the broker.
type ExecutionClient interface {
	ExecuteOrder(ctx context.Context, sig signal.Signal) (OrderResult, error)
	ClosePosition(ctx context.Context, positionID string) error
}

// AccountClient reads account and position state. Both run units share read
// access to one client.
type AccountClient interface {
	GetAccountInfo(ctx context.Context) (AccountInfo, error)
	GetPositions(ctx context.Context) ([]Position, error)
}
