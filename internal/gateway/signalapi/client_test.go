package signalapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pendingBody = `{
  "signals": [
    {
      "fingerprint": "fp-1",
      "instrument": "BTCUSDT",
      "side": "BUY",
      "entry_price": "65000.5",
      "stop_loss": "64000",
      "take_profit": "67000",
      "approved_at": "2026-08-01T12:00:00Z"
    },
    {
      "fingerprint": "fp-2",
      "instrument": "ETHUSDT",
      "side": "sell",
      "entry_price": "3200",
      "stop_loss": "3300",
      "take_profit": "3000",
      "approved_at": "2026-08-01T12:01:00Z"
    }
  ]
}`

func TestFetchPending_ParsesSignals(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(pendingBody))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-token", 5*time.Second)
	signals, err := c.FetchPending(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/signals/pending?limit=10", gotPath)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	require.Len(t, signals, 2)

	assert.Equal(t, "fp-1", signals[0].Fingerprint)
	assert.Equal(t, "BTCUSDT", signals[0].Instrument)
	assert.Equal(t, "buy", signals[0].Side) // normalized to lower case
	assert.True(t, signals[0].EntryPrice.Equal(decimal.RequireFromString("65000.5")))
	assert.Equal(t, time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC), signals[0].ApprovedAt)
	assert.Equal(t, "sell", signals[1].Side)
}

func TestFetchPending_MalformedEntrySkipped(t *testing.T) {
	body := `{
  "signals": [
    {"fingerprint": "fp-ok", "instrument": "BTCUSDT", "side": "buy",
     "entry_price": "100", "stop_loss": "90", "take_profit": "120",
     "approved_at": "2026-08-01T12:00:00Z"},
    {"fingerprint": "fp-bad-side", "instrument": "BTCUSDT", "side": "hold",
     "entry_price": "100", "stop_loss": "90", "take_profit": "120",
     "approved_at": "2026-08-01T12:00:00Z"},
    {"instrument": "BTCUSDT", "side": "buy",
     "entry_price": "100", "stop_loss": "90", "take_profit": "120",
     "approved_at": "2026-08-01T12:00:00Z"},
    {"fingerprint": "fp-bad-price", "instrument": "BTCUSDT", "side": "buy",
     "entry_price": "not-a-number", "stop_loss": "90", "take_profit": "120",
     "approved_at": "2026-08-01T12:00:00Z"}
  ]
}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	signals, err := New(srv.URL, "", time.Second).FetchPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, "fp-ok", signals[0].Fingerprint)
}

func TestFetchPending_EmptyQueue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"signals": []}`))
	}))
	defer srv.Close()

	signals, err := New(srv.URL, "", time.Second).FetchPending(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestFetchPending_HTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "", time.Second).FetchPending(context.Background(), 5)
	assert.Error(t, err)
}

func TestFetchPending_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"signals": [`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "", time.Second).FetchPending(context.Background(), 5)
	assert.Error(t, err)
}
