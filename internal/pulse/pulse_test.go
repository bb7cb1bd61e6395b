package pulse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/opendoor-marketplace/matchengine/internal/domain"
)

func TestPulseFromDemand_ZeroNetIsFifty(t *testing.T) {
	assert.Equal(t, 50.0, PulseFromDemand(0, 10))
}

func TestPulseFromDemand_MonotonicInNetDemand(t *testing.T) {
	p1 := PulseFromDemand(1.0, 10)
	p2 := PulseFromDemand(2.0, 10)
	assert.Less(t, p1, p2)
}

func TestPulseFromDemand_Bounded(t *testing.T) {
	p := PulseFromDemand(1e9, 1)
	assert.LessOrEqual(t, p, 100.0)
	assert.Greater(t, p, 0.0)
}

func TestComputePulses_Idempotent(t *testing.T) {
	e := NewEngine(DefaultConfig())
	now := time.Now()
	e.RecordDemand("o1", 1.0, now)

	caps := map[string]int{"o1": 10}
	history := map[string]*domain.OppState{"o1": domain.NewOppState()}

	first := e.ComputePulses(caps, nil, history, false, now)
	second := e.ComputePulses(caps, nil, history, false, now)

	assert.Equal(t, first["o1"], second["o1"])
}

func TestComputePulses_HistoryCappedAt50(t *testing.T) {
	e := NewEngine(DefaultConfig())
	now := time.Now()
	caps := map[string]int{"o1": 10}
	st := domain.NewOppState()
	history := map[string]*domain.OppState{"o1": st}

	for i := 0; i < 60; i++ {
		e.ComputePulses(caps, nil, history, true, now.Add(time.Duration(i)*time.Second))
	}

	assert.Len(t, st.History, domain.PulseHistoryCap)
}

func TestRecordDemand_DecaysTowardZeroOverTime(t *testing.T) {
	e := NewEngine(Config{DecayTauHours: 1.0, LiquidityK: 5.0})
	now := time.Now()
	e.RecordDemand("o1", 5.0, now)

	before := e.NetDemand("o1")
	e.RecordDemand("o1", 0.0, now.Add(10*time.Hour))
	after := e.NetDemand("o1")

	assert.Less(t, after, before)
	assert.Greater(t, after, 0.0)
}

func TestComputePulses_CapacityLessThanOneClampedToOne(t *testing.T) {
	e := NewEngine(DefaultConfig())
	now := time.Now()
	e.RecordDemand("o1", 1.0, now)

	caps := map[string]int{"o1": 0}
	history := map[string]*domain.OppState{"o1": domain.NewOppState()}

	pulses := e.ComputePulses(caps, nil, history, false, now)
	assert.Greater(t, pulses["o1"], 50.0)
	assert.Less(t, pulses["o1"], 100.0)
}
