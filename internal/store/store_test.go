package store

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendoor-marketplace/matchengine/internal/domain"
	"github.com/opendoor-marketplace/matchengine/internal/pulse"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestEmpty_TrueUntilBothPopulated(t *testing.T) {
	s := New(pulse.DefaultConfig(), nil)
	assert.True(t, s.Empty())

	s.UpsertUser(domain.User{ID: "u0"})
	assert.True(t, s.Empty())

	s.UpsertOpp(domain.Opportunity{ID: "o0", Capacity: 1})
	assert.False(t, s.Empty())
}

func TestRSVP_AtomicCapacityCheck(t *testing.T) {
	s := New(pulse.DefaultConfig(), nil)
	s.UpsertOpp(domain.Opportunity{ID: "o0", Capacity: 1})

	r1, err := s.RSVP("u0", "o0")
	require.NoError(t, err)
	assert.Equal(t, domain.RSVPConfirmed, r1.Status)
	assert.Equal(t, 0, r1.SpotsLeft)

	r2, err := s.RSVP("u1", "o0")
	require.NoError(t, err)
	assert.Equal(t, domain.RSVPFull, r2.Status)
	assert.Equal(t, 0, r2.SpotsLeft)

	assert.Equal(t, 1, s.RSVPCount("o0"))
}

func TestRSVP_SameUserIdempotent(t *testing.T) {
	s := New(pulse.DefaultConfig(), nil)
	s.UpsertOpp(domain.Opportunity{ID: "o0", Capacity: 2})

	_, err := s.RSVP("u0", "o0")
	require.NoError(t, err)
	r2, err := s.RSVP("u0", "o0")
	require.NoError(t, err)
	assert.Equal(t, domain.RSVPConfirmed, r2.Status)
	assert.Equal(t, 1, s.RSVPCount("o0"))
}

func TestRSVP_UnknownOppIsNotFound(t *testing.T) {
	s := New(pulse.DefaultConfig(), nil)
	_, err := s.RSVP("u0", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordFeedback_BumpsShownWindowAndDemand(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New(pulse.DefaultConfig(), fixedClock(now))
	s.UpsertOpp(domain.Opportunity{ID: "o0", Capacity: 5})

	require.NoError(t, s.RecordFeedback("u0", "o0", domain.EventAccepted))

	snap := s.Snapshot()
	require.Len(t, snap.Interactions, 1)
	assert.Equal(t, domain.EventAccepted, snap.Interactions[0].Event)
	assert.Equal(t, now, snap.Interactions[0].Timestamp)
	assert.Equal(t, 1, snap.PerOpp["o0"].ShownWindow)

	assert.Greater(t, s.Pulses().NetDemand("o0"), 0.0)
}

func TestRecordFeedback_UnknownOppIsNotFound(t *testing.T) {
	s := New(pulse.DefaultConfig(), nil)
	err := s.RecordFeedback("u0", "missing", domain.EventShown)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSnapshot_OrderPreservingAndIsolated(t *testing.T) {
	s := New(pulse.DefaultConfig(), nil)
	s.UpsertUser(domain.User{ID: "u1"})
	s.UpsertUser(domain.User{ID: "u0"})
	s.UpsertOpp(domain.Opportunity{ID: "o0", Capacity: 3})

	snap := s.Snapshot()
	require.Len(t, snap.Users, 2)
	assert.Equal(t, []string{"u1", "u0"}, snap.UserOrder())

	snap.PerOpp["o0"].ShownWindow = 99
	assert.Equal(t, 0, s.Snapshot().PerOpp["o0"].ShownWindow)
}

func TestApplyPulses_WritesBackToPerOppState(t *testing.T) {
	s := New(pulse.DefaultConfig(), nil)
	s.UpsertOpp(domain.Opportunity{ID: "o0", Capacity: 2})

	s.ApplyPulses(map[string]float64{"o0": 73.5})
	assert.Equal(t, 73.5, s.Snapshot().PerOpp["o0"].Pulse)
}

func TestReset_ClearsEverything(t *testing.T) {
	s := New(pulse.DefaultConfig(), nil)
	s.UpsertUser(domain.User{ID: "u0"})
	s.UpsertOpp(domain.Opportunity{ID: "o0", Capacity: 1})
	require.NoError(t, s.RecordFeedback("u0", "o0", domain.EventClicked))

	s.Reset()
	assert.True(t, s.Empty())
	snap := s.Snapshot()
	assert.Empty(t, snap.Users)
	assert.Empty(t, snap.Opps)
	assert.Empty(t, snap.Interactions)
}

func TestGenerateSynthetic_PopulatesDeterministicallyWithSeed(t *testing.T) {
	s := New(pulse.DefaultConfig(), nil)
	s.GenerateSynthetic(5, 3, rand.New(rand.NewSource(42)))

	snap := s.Snapshot()
	assert.Len(t, snap.Users, 5)
	assert.Len(t, snap.Opps, 3)
	assert.False(t, s.Empty())
}

func TestLoadFixture_MissingFileIsCallerVisibleError(t *testing.T) {
	s := New(pulse.DefaultConfig(), nil)
	err := s.LoadFixture("/nonexistent/fixture.json")
	assert.Error(t, err)
}

func TestTrending_SortedByDescendingPulse(t *testing.T) {
	s := New(pulse.DefaultConfig(), nil)
	s.UpsertOpp(domain.Opportunity{ID: "o0", Capacity: 1})
	s.UpsertOpp(domain.Opportunity{ID: "o1", Capacity: 1})
	s.ApplyPulses(map[string]float64{"o0": 30, "o1": 80})

	assert.Equal(t, []string{"o1", "o0"}, s.Trending())
}

func TestRecomputePulses_PublishesIntoLiveState(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New(pulse.DefaultConfig(), fixedClock(now))
	s.UpsertOpp(domain.Opportunity{ID: "o0", Capacity: 4})
	require.NoError(t, s.RecordFeedback("u0", "o0", domain.EventAccepted))

	pulses := s.RecomputePulses(nil, true, now)
	assert.Greater(t, pulses["o0"], 50.0)

	snap := s.Snapshot()
	assert.Equal(t, pulses["o0"], snap.PerOpp["o0"].Pulse)
	assert.Greater(t, snap.PerOpp["o0"].NetDemand, 0.0)
	require.Len(t, s.PulseHistory("o0"), 1)
	assert.Equal(t, pulses["o0"], s.PulseHistory("o0")[0].Pulse)
}

func TestRecomputePulses_HistoryStaysBounded(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New(pulse.DefaultConfig(), fixedClock(now))
	s.UpsertOpp(domain.Opportunity{ID: "o0", Capacity: 4})

	for i := 0; i < domain.PulseHistoryCap+10; i++ {
		s.RecomputePulses(nil, true, now.Add(time.Duration(i)*time.Second))
	}
	assert.Len(t, s.PulseHistory("o0"), domain.PulseHistoryCap)
}

func TestUser_And_Opp_NotFound(t *testing.T) {
	s := New(pulse.DefaultConfig(), nil)
	_, err := s.User("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Opp("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
