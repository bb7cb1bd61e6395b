// Package pulse implements the demand-to-pulse market-maker: a
// per-opportunity exponentially decayed net-demand accumulator converted to
// a bounded [0,100] pulse through a logistic-against-liquidity curve, with
// optional bounded history sampling.
package pulse

import (
	"math"
	"sync"
	"time"

	"github.com/opendoor-marketplace/matchengine/internal/domain"
)

// Config carries the two demand-curve knobs.
type Config struct {
	// DecayTauHours is tau in exp(-dt/(tau*3600)).
	DecayTauHours float64
	// LiquidityK scales capacity into the pulse sigmoid's denominator.
	LiquidityK float64
}

// DefaultConfig matches DEMAND_DECAY_TAU_HOURS and PRICING_LIQUIDITY_K.
func DefaultConfig() Config {
	return Config{DecayTauHours: 12.0, LiquidityK: 5.0}
}

// DemandDelta maps a feedback event to its net-demand contribution.
func DemandDelta(event domain.EventType) float64 {
	switch event {
	case domain.EventAccepted:
		return 1.0
	case domain.EventClicked:
		return 0.2
	case domain.EventDeclined:
		return -0.5
	default:
		return 0.0
	}
}

// state is the decayed-demand accumulator for one opportunity.
type state struct {
	netDemand    float64
	lastDemandTS time.Time
	hasPrior     bool
}

// Engine owns the decayed net-demand accumulators. It holds no reference to
// the opportunity catalog or capacities — those are passed in per call so
// the engine stays a pure market-maker over whatever keys it's given.
type Engine struct {
	mu     sync.Mutex
	cfg    Config
	states map[string]*state
}

// NewEngine constructs an Engine with the given config.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, states: make(map[string]*state)}
}

// RecordDemand applies the exponential decay and adds delta to the
// opportunity's net demand:
//
//	dt = now - last_demand_ts
//	net <- net * exp(-dt / (tau * 3600))
//	net <- net + delta
//	last_demand_ts <- now
func (e *Engine) RecordDemand(oppID string, delta float64, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recordDemandLocked(oppID, delta, now)
}

func (e *Engine) recordDemandLocked(oppID string, delta float64, now time.Time) {
	s, ok := e.states[oppID]
	if !ok {
		s = &state{}
		e.states[oppID] = s
	}
	if s.hasPrior {
		dt := now.Sub(s.lastDemandTS).Seconds()
		tauSeconds := e.cfg.DecayTauHours * 3600.0
		if tauSeconds > 0 {
			s.netDemand *= math.Exp(-dt / tauSeconds)
		}
	}
	s.netDemand += delta
	s.lastDemandTS = now
	s.hasPrior = true
}

// NetDemand returns the opportunity's stored net demand as of its last
// recorded delta, without applying decay or a delta.
func (e *Engine) NetDemand(oppID string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.states[oppID]; ok {
		return s.netDemand
	}
	return 0.0
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// PulseFromDemand computes the bounded pulse in (0,100) from net demand and
// liquidity: 100*sigmoid(net/liquidity). Strictly increasing in net demand
// for fixed liquidity until float64 saturates; equals 50 at net=0. Saturated
// results are clamped to the nearest float64 inside (0,100).
func PulseFromDemand(netDemand, liquidity float64) float64 {
	if liquidity <= 0 {
		return 50.0
	}
	p := 100.0 * sigmoid(netDemand/liquidity)
	return math.Max(math.Nextafter(0, 1), math.Min(p, math.Nextafter(100, 0)))
}

// Overrides allows a single solve/rebalance call to override the engine's
// configured liquidity constant without mutating shared config.
type Overrides struct {
	LiquidityK *float64
}

// ComputePulses recomputes pulse for every opportunity in capacities from
// its current decayed net demand, optionally appending to a bounded per-opp
// history. The whole computation runs under the engine's lock, so the
// returned map reflects one coherent point-in-time snapshot of net demands.
func (e *Engine) ComputePulses(capacities map[string]int, overrides *Overrides, history map[string]*domain.OppState, recordHistory bool, now time.Time) map[string]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	liquidityK := e.cfg.LiquidityK
	if overrides != nil && overrides.LiquidityK != nil {
		liquidityK = *overrides.LiquidityK
	}

	nowISO := now.UTC().Format(time.RFC3339)
	pulses := make(map[string]float64, len(capacities))
	for oppID, capacity := range capacities {
		c := capacity
		if c < 1 {
			c = 1
		}
		liquidity := liquidityK * float64(c)
		s := e.states[oppID]
		net := 0.0
		if s != nil {
			net = s.netDemand
		}
		p := PulseFromDemand(net, liquidity)
		pulses[oppID] = p

		if st, ok := history[oppID]; ok {
			st.Pulse = p
			st.NetDemand = net
			if s != nil {
				st.LastDemandTS = s.lastDemandTS
			}
			if recordHistory {
				st.AppendHistory(domain.PulseHistoryPoint{Timestamp: nowISO, Pulse: p})
			}
		}
	}
	return pulses
}
