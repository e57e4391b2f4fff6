// Package signalapi fetches approved signals from the external approvals
// service over HTTP. The service owns approval; this client only reads the
// pending queue in approval order.
package signalapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"sigrun/internal/logger"
	"sigrun/internal/signal"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// FetchPending returns up to batchSize approved signals. Any failure is
// transient from the loop's point of view.
func (c *Client) FetchPending(ctx context.Context, batchSize int) ([]signal.Signal, error) {
	url := fmt.Sprintf("%s/api/v1/signals/pending?limit=%d", c.baseURL, batchSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("signal api: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("signal api: reading body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("signal api: status=%d", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("signal api: invalid JSON response")
	}

	items := gjson.GetBytes(body, "signals").Array()
	out := make([]signal.Signal, 0, len(items))
	for _, item := range items {
		sig, err := parseSignal(item)
		if err != nil {
			// A malformed entry must not poison the batch.
			logger.Warnf("signal api: skipping malformed signal: %v", err)
			continue
		}
		out = append(out, sig)
	}
	return out, nil
}

func parseSignal(item gjson.Result) (signal.Signal, error) {
	fp := item.Get("fingerprint").String()
	if fp == "" {
		return signal.Signal{}, fmt.Errorf("missing fingerprint")
	}
	instrument := item.Get("instrument").String()
	if instrument == "" {
		return signal.Signal{}, fmt.Errorf("fingerprint=%s missing instrument", fp)
	}
	side := strings.ToLower(item.Get("side").String())
	if side != "buy" && side != "sell" {
		return signal.Signal{}, fmt.Errorf("fingerprint=%s invalid side=%q", fp, side)
	}
	entry, err := decimal.NewFromString(item.Get("entry_price").String())
	if err != nil {
		return signal.Signal{}, fmt.Errorf("fingerprint=%s bad entry_price: %w", fp, err)
	}
	stop, err := decimal.NewFromString(item.Get("stop_loss").String())
	if err != nil {
		return signal.Signal{}, fmt.Errorf("fingerprint=%s bad stop_loss: %w", fp, err)
	}
	target, err := decimal.NewFromString(item.Get("take_profit").String())
	if err != nil {
		return signal.Signal{}, fmt.Errorf("fingerprint=%s bad take_profit: %w", fp, err)
	}
	approvedAt, err := time.Parse(time.RFC3339, item.Get("approved_at").String())
	if err != nil {
		return signal.Signal{}, fmt.Errorf("fingerprint=%s bad approved_at: %w", fp, err)
	}
	return signal.Signal{
		Fingerprint: fp,
		Instrument:  instrument,
		Side:        side,
		EntryPrice:  entry,
		StopLoss:    stop,
		TakeProfit:  target,
		ApprovedAt:  approvedAt,
	}, nil
}
