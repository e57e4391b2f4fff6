package heartbeat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEmitter_FirstCallAlwaysDue(t *testing.T) {
	e := NewEmitter(10*time.Second, nil)
	assert.True(t, e.Due(time.Now()))
}

func TestEmitter_DueFollowsInterval(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	e := NewEmitter(10*time.Second, nil)
	e.Emit(Metrics{Timestamp: base})

	assert.False(t, e.Due(base.Add(5*time.Second)))
	assert.True(t, e.Due(base.Add(10*time.Second)))
	assert.True(t, e.Due(base.Add(time.Minute)))
}

func TestEmitter_EmitDeliversToSink(t *testing.T) {
	var got []Metrics
	e := NewEmitter(time.Second, func(m Metrics) { got = append(got, m) })

	e.Emit(Metrics{LoopID: "loop-1", SignalsProcessed: 3})
	assert.Len(t, got, 1)
	assert.Equal(t, "loop-1", got[0].LoopID)
	assert.Equal(t, int64(3), got[0].SignalsProcessed)
}
