// Package events carries fire-and-forget lifecycle events to an external bus.
// The core never depends on delivery success.
package events

import (
	"time"

	"github.com/google/uuid"

	"sigrun/internal/logger"
)

const (
	TypeLoopStarted         = "loop_started"
	TypeLoopStopped         = "loop_stopped"
	TypeSignalExecuted      = "signal_executed"
	TypeSignalFailed        = "signal_failed"
	TypeHeartbeat           = "heartbeat"
	TypeDrawdownCapTrigger  = "drawdown_cap_triggered"
	TypeDrawdownRecovered   = "drawdown_recovered"
	TypePositionCloseFailed = "position_close_failed"
)

type Event struct {
	ID        string
	Type      string
	Timestamp time.Time
	LoopID    string
	Metadata  map[string]any
}

func New(eventType, loopID string, metadata map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		LoopID:    loopID,
		Metadata:  metadata,
	}
}

// Bus publishes events. Implementations must not block the caller for long
// and must swallow their own delivery errors.
type Bus interface {
	Publish(Event)
}

// LogBus writes events to the log. The default when no external bus is wired.
type LogBus struct{}

func (LogBus) Publish(e Event) {
	logger.Debugf("event: type=%s loop=%s id=%s metadata=%v", e.Type, e.LoopID, e.ID, e.Metadata)
}

// NopBus discards everything. Useful in tests.
type NopBus struct{}

func (NopBus) Publish(Event) {}
