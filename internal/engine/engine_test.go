package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendoor-marketplace/matchengine/internal/config"
	"github.com/opendoor-marketplace/matchengine/internal/domain"
	"github.com/opendoor-marketplace/matchengine/internal/pulse"
	"github.com/opendoor-marketplace/matchengine/internal/store"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestEngine(clock func() time.Time) (*Engine, *store.Store) {
	st := store.New(pulse.DefaultConfig(), clock)
	cfg := config.Defaults()
	eng := New(st, cfg, true, nil, nil, clock)
	return eng, st
}

func TestSolve_HappyPathAssignment(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	eng, st := newTestEngine(fixedClock(now))

	st.UpsertUser(domain.User{
		ID: "u0", InterestTags: []string{"tech"}, Availability: []string{"weeknights"},
		GroupPref: domain.GroupSmall, IntensityPref: domain.IntensityMed,
	})
	st.UpsertOpp(domain.Opportunity{
		ID: "o0", Tags: []string{"tech"}, Category: "learning", TimeBucket: "weeknights",
		Capacity: 2, GroupSize: domain.GroupSmall, Intensity: domain.IntensityMed,
	})

	resp, err := eng.Solve(SolveRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Assignments, 1)
	assert.Equal(t, "u0", resp.Assignments[0].UserID)
	assert.Equal(t, "o0", resp.Assignments[0].OppID)
	assert.Empty(t, resp.Unassigned)
	assert.Equal(t, 50.0, resp.Pulses["o0"])
}

func TestSolve_CapacitySaturation(t *testing.T) {
	eng, st := newTestEngine(nil)
	st.UpsertUser(domain.User{ID: "u0"})
	st.UpsertUser(domain.User{ID: "u1"})
	st.UpsertOpp(domain.Opportunity{ID: "o0", Capacity: 1})

	resp, err := eng.Solve(SolveRequest{})
	require.NoError(t, err)
	assert.Len(t, resp.Assignments, 1)
	assert.Len(t, resp.Unassigned, 1)

	unassignedID := resp.Unassigned[0]
	result, err := eng.RSVP(unassignedID, "o0")
	require.NoError(t, err)
	assert.Equal(t, domain.RSVPFull, result.Status)
	assert.Equal(t, 0, result.SpotsLeft)
}

func TestSolve_AvailabilityHardGateLeavesUserUnassigned(t *testing.T) {
	eng, st := newTestEngine(nil)
	st.UpsertUser(domain.User{ID: "u0", Availability: []string{"weekends"}})
	st.UpsertOpp(domain.Opportunity{ID: "o0", TimeBucket: "weeknights", Capacity: 5})

	resp, err := eng.Solve(SolveRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Assignments)
	assert.Equal(t, []string{"u0"}, resp.Unassigned)

	_, err = eng.Explain("u0", "o0")
	assert.ErrorIs(t, err, domain.ErrInfeasible)
}

func TestSolve_FairnessReallocatesToUnderservedCohort(t *testing.T) {
	eng, st := newTestEngine(nil)

	st.UpsertUser(domain.User{ID: "u_new", Cohort: "newcomer"})
	st.UpsertUser(domain.User{ID: "u_reg", Cohort: "regular"})
	st.UpsertOpp(domain.Opportunity{ID: "o0", Capacity: 1})
	st.SetLastAssignment([]domain.Assignment{{UserID: "u_reg", OppID: "o0"}})

	lambda := 1.0
	resp, err := eng.Solve(SolveRequest{ApplyFairness: true, FairnessLambdaOver: &lambda})
	require.NoError(t, err)
	require.Len(t, resp.Assignments, 1)
	assert.Equal(t, "u_new", resp.Assignments[0].UserID)
	assert.Equal(t, []string{"u_reg"}, resp.Unassigned)
}

func TestSolve_EmptyStoreIsPrecondition(t *testing.T) {
	eng, _ := newTestEngine(nil)
	_, err := eng.Solve(SolveRequest{})
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestFeedback_UnknownOppIsNotFound(t *testing.T) {
	eng, _ := newTestEngine(nil)
	err := eng.Feedback("u0", "missing", domain.EventShown)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDemoStep_RSVPCountNonDecreasingAndCappedAtCapacity(t *testing.T) {
	eng, st := newTestEngine(nil)
	st.UpsertOpp(domain.Opportunity{ID: "hot", Capacity: 3})

	var last int
	for i := 0; i < 5; i++ {
		result, err := eng.DemoStep(userIDFor(i), "hot")
		require.NoError(t, err)
		count := st.RSVPCount("hot")
		assert.GreaterOrEqual(t, count, last)
		assert.LessOrEqual(t, count, 3)
		last = count
		_ = result
	}
}

func userIDFor(i int) string {
	return "u" + string(rune('0'+i))
}
