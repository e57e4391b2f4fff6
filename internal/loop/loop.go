// Package loop implements the trade-execution control loop: poll approved
// signals, deduplicate, execute with bounded retry, aggregate metrics, emit
// heartbeats. It pauses new execution while the drawdown guard has the cap
// triggered.
package loop

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"sigrun/internal/events"
	"sigrun/internal/exchange"
	"sigrun/internal/gateway/notifier"
	"sigrun/internal/guard"
	"sigrun/internal/heartbeat"
	"sigrun/internal/idempotency"
	"sigrun/internal/logger"
	"sigrun/internal/pkg/circuit"
	"sigrun/internal/retry"
	"sigrun/internal/signal"
)

type Status int32

const (
	StatusStopped Status = iota
	StatusStarting
	StatusRunning
	StatusStopping
)

func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "STOPPED"
	case StatusStarting:
		return "STARTING"
	case StatusRunning:
		return "RUNNING"
	case StatusStopping:
		return "STOPPING"
	default:
		return "UNKNOWN"
	}
}

// DrawdownReader is the loop's view of the guard: an atomic snapshot read
// before executing a batch.
type DrawdownReader interface {
	State() guard.State
}

type Params struct {
	LoopID            string
	BatchSize         int
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	Source            signal.Source
	Execution         exchange.ExecutionClient
	Account           exchange.AccountClient
	Tracker           *idempotency.Tracker
	Guard             DrawdownReader
	Retry             retry.Policy
	Alerts            notifier.AlertSink
	Bus               events.Bus
	FetchBreaker      *circuit.Breaker // optional
}

type TradingLoop struct {
	loopID       string
	batchSize    int
	pollInterval time.Duration
	source       signal.Source
	execution    exchange.ExecutionClient
	account      exchange.AccountClient
	tracker      *idempotency.Tracker
	guard        DrawdownReader
	retry        retry.Policy
	alerts       notifier.AlertSink
	bus          events.Bus
	breaker      *circuit.Breaker
	emitter      *heartbeat.Emitter

	status   atomic.Int32
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}

	// Counters below are written only by the run goroutine (single writer).
	intervalSignals int64
	intervalTrades  int64
	intervalErrors  int64
	totalSignals    int64
	totalTrades     int64
	lastDuration    time.Duration
}

func New(p Params) (*TradingLoop, error) {
	if p.BatchSize < 1 {
		return nil, fmt.Errorf("loop.batch_size must be >= 1, got %d", p.BatchSize)
	}
	if p.PollInterval <= 0 {
		return nil, fmt.Errorf("loop.poll_interval must be > 0")
	}
	if p.HeartbeatInterval <= 0 {
		return nil, fmt.Errorf("loop.heartbeat_interval must be > 0")
	}
	if err := p.Retry.Validate(); err != nil {
		return nil, err
	}
	if p.Source == nil || p.Execution == nil || p.Tracker == nil || p.Guard == nil {
		return nil, fmt.Errorf("loop requires source, execution, tracker and guard")
	}
	if p.Alerts == nil {
		p.Alerts = notifier.LogSink{}
	}
	if p.Bus == nil {
		p.Bus = events.LogBus{}
	}
	if p.FetchBreaker == nil {
		p.FetchBreaker = circuit.NewBreaker("signal-fetch", 5, 2*time.Minute)
	}
	l := &TradingLoop{
		loopID:       p.LoopID,
		batchSize:    p.BatchSize,
		pollInterval: p.PollInterval,
		source:       p.Source,
		execution:    p.Execution,
		account:      p.Account,
		tracker:      p.Tracker,
		guard:        p.Guard,
		retry:        p.Retry,
		alerts:       p.Alerts,
		bus:          p.Bus,
		breaker:      p.FetchBreaker,
	}
	l.emitter = heartbeat.NewEmitter(p.HeartbeatInterval, l.publishHeartbeat)
	return l, nil
}

// Start transitions STOPPED -> STARTING and launches the run goroutine. Any
// other starting state is rejected.
func (l *TradingLoop) Start(ctx context.Context) error {
	if !l.status.CompareAndSwap(int32(StatusStopped), int32(StatusStarting)) {
		return fmt.Errorf("loop can only start from STOPPED, status=%s", l.Status())
	}
	l.stopOnce = sync.Once{}
	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})
	logger.Infof("loop %s: starting batch_size=%d poll=%s", l.loopID, l.batchSize, l.pollInterval)
	l.bus.Publish(events.New(events.TypeLoopStarted, l.loopID, nil))
	go l.run(ctx)
	return nil
}

// Stop requests a cooperative shutdown and blocks until the loop has emitted
// its final heartbeat and reached STOPPED. The in-flight operation is allowed
// to finish; nothing is preempted mid-call.
func (l *TradingLoop) Stop() {
	switch Status(l.status.Load()) {
	case StatusStopped:
		return
	case StatusStarting, StatusRunning:
		l.status.Store(int32(StatusStopping))
	}
	l.stopOnce.Do(func() { close(l.stopCh) })
	<-l.doneCh
}

func (l *TradingLoop) Status() Status {
	return Status(l.status.Load())
}

func (l *TradingLoop) stopRequested() bool {
	select {
	case <-l.stopCh:
		return true
	default:
		return false
	}
}
