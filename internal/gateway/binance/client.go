// Package binance adapts the Binance USDT-M futures API to the exchange
// interfaces. One-way position mode is assumed, so the symbol doubles as the
// position id.
package binance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"

	"sigrun/internal/exchange"
	"sigrun/internal/signal"
)

type Client struct {
	fut      *futures.Client
	orderQty decimal.Decimal
}

func New(apiKey, apiSecret string, orderQty decimal.Decimal) *Client {
	return &Client{
		fut:      gobinance.NewFuturesClient(apiKey, apiSecret),
		orderQty: orderQty,
	}
}

func (c *Client) GetAccountInfo(ctx context.Context) (exchange.AccountInfo, error) {
	acct, err := c.fut.NewGetAccountService().Do(ctx)
	if err != nil {
		return exchange.AccountInfo{}, fmt.Errorf("binance account: %w", err)
	}
	equity, err := decimal.NewFromString(acct.TotalMarginBalance)
	if err != nil {
		return exchange.AccountInfo{}, fmt.Errorf("binance account: bad margin balance %q: %w", acct.TotalMarginBalance, err)
	}
	balance, err := decimal.NewFromString(acct.TotalWalletBalance)
	if err != nil {
		return exchange.AccountInfo{}, fmt.Errorf("binance account: bad wallet balance %q: %w", acct.TotalWalletBalance, err)
	}
	available, _ := decimal.NewFromString(acct.AvailableBalance)
	return exchange.AccountInfo{
		Equity:    equity,
		Balance:   balance,
		Available: available,
		Currency:  "USDT",
		UpdatedAt: time.Now().UTC(),
	}, nil
}

func (c *Client) GetPositions(ctx context.Context) ([]exchange.Position, error) {
	risks, err := c.fut.NewGetPositionRiskService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance positions: %w", err)
	}
	var out []exchange.Position
	for _, r := range risks {
		amt, err := decimal.NewFromString(r.PositionAmt)
		if err != nil || amt.IsZero() {
			continue
		}
		entry, _ := decimal.NewFromString(r.EntryPrice)
		pnl, _ := decimal.NewFromString(r.UnRealizedProfit)
		side := "long"
		if amt.IsNegative() {
			side = "short"
		}
		out = append(out, exchange.Position{
			ID:            r.Symbol,
			Instrument:    r.Symbol,
			Side:          side,
			Amount:        amt.Abs(),
			EntryPrice:    entry,
			UnrealizedPnL: pnl,
		})
	}
	return out, nil
}

func (c *Client) ExecuteOrder(ctx context.Context, sig signal.Signal) (exchange.OrderResult, error) {
	side := futures.SideTypeBuy
	if strings.EqualFold(sig.Side, "sell") {
		side = futures.SideTypeSell
	}
	res, err := c.fut.NewCreateOrderService().
		Symbol(sig.Instrument).
		Side(side).
		Type(futures.OrderTypeMarket).
		Quantity(c.orderQty.String()).
		Do(ctx)
	if err != nil {
		return exchange.OrderResult{}, fmt.Errorf("binance order %s %s: %w", sig.Instrument, sig.Side, err)
	}
	return exchange.OrderResult{
		Success:       true,
		BrokerOrderID: strconv.FormatInt(res.OrderID, 10),
	}, nil
}

// ClosePosition unwinds the full position with a reduce-only market order in
// the opposite direction.
func (c *Client) ClosePosition(ctx context.Context, positionID string) error {
	risks, err := c.fut.NewGetPositionRiskService().Symbol(positionID).Do(ctx)
	if err != nil {
		return fmt.Errorf("binance close %s: %w", positionID, err)
	}
	for _, r := range risks {
		amt, err := decimal.NewFromString(r.PositionAmt)
		if err != nil || amt.IsZero() {
			continue
		}
		side := futures.SideTypeSell
		if amt.IsNegative() {
			side = futures.SideTypeBuy
		}
		_, err = c.fut.NewCreateOrderService().
			Symbol(r.Symbol).
			Side(side).
			Type(futures.OrderTypeMarket).
			Quantity(amt.Abs().String()).
			ReduceOnly(true).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("binance close %s: %w", positionID, err)
		}
	}
	return nil
}
