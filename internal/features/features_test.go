package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendoor-marketplace/matchengine/internal/domain"
)

func TestInterestJaccard_SymmetricAndIdentity(t *testing.T) {
	a := []string{"Tech", "hiking"}
	b := []string{"hiking", "food"}

	require.InDelta(t, InterestJaccard(a, b), InterestJaccard(b, a), 1e-9)
	assert.Equal(t, 1.0, InterestJaccard(a, a))
	assert.Equal(t, 0.0, InterestJaccard(nil, nil))
}

func TestInterestJaccard_CaseInsensitive(t *testing.T) {
	got := InterestJaccard([]string{"TECH"}, []string{"tech"})
	assert.Equal(t, 1.0, got)
}

func TestTravelPenalty_NonPositiveBudgetForcesMax(t *testing.T) {
	assert.Equal(t, 1.0, TravelPenalty(5.0, 0))
	assert.Equal(t, 1.0, TravelPenalty(5.0, -10))
}

func TestTravelPenalty_Clamped(t *testing.T) {
	assert.Equal(t, 1.0, TravelPenalty(100.0, 10))
	assert.InDelta(t, 0.5, TravelPenalty(5.0, 10), 1e-9)
}

func TestAvailabilityOK_EmptySetAlwaysOK(t *testing.T) {
	user := domain.User{}
	opp := domain.Opportunity{TimeBucket: "weeknights"}
	assert.True(t, AvailabilityOK(user, opp))
}

func TestAvailabilityOK_HardGate(t *testing.T) {
	user := domain.User{Availability: []string{"weekends"}}
	opp := domain.Opportunity{TimeBucket: "weeknights"}
	assert.False(t, AvailabilityOK(user, opp))
}

func TestNoveltyBonus_EmptyLogIsNeutral(t *testing.T) {
	u := domain.User{ID: "u1"}
	o := domain.Opportunity{ID: "o1"}
	assert.Equal(t, 0.5, NoveltyBonus(u, o, nil))
}

func TestNoveltyBonus_PriorInteractionKillsNovelty(t *testing.T) {
	u := domain.User{ID: "u1"}
	o := domain.Opportunity{ID: "o1"}
	log := []domain.Interaction{{UserID: "u1", OppID: "o1", Event: domain.EventShown}}
	assert.Equal(t, 0.0, NoveltyBonus(u, o, log))
}

func TestNoveltyBonus_NoPriorInteractionIsFresh(t *testing.T) {
	u := domain.User{ID: "u1"}
	o := domain.Opportunity{ID: "o1"}
	log := []domain.Interaction{{UserID: "u2", OppID: "o9", Event: domain.EventShown}}
	assert.Equal(t, 1.0, NoveltyBonus(u, o, log))
}

func TestExtract_ReasonChips(t *testing.T) {
	user := domain.User{
		ID:            "u1",
		InterestTags:  []string{"tech"},
		Lat:           0, Lng: 0,
		MaxTravelMins: 30,
		Availability:  []string{"weeknights"},
		GroupPref:     domain.GroupSmall,
		IntensityPref: domain.IntensityMed,
	}
	opp := domain.Opportunity{
		ID: "o1", Tags: []string{"tech"}, TimeBucket: "weeknights",
		Lat: 0, Lng: 0, GroupSize: domain.GroupSmall, Intensity: domain.IntensityMed,
	}

	log := []domain.Interaction{{UserID: "other", OppID: "o2", Event: domain.EventShown}}
	vec, chips := Extract(user, opp, log, DefaultConfig())

	assert.Equal(t, 1.0, vec.Interest)
	assert.Equal(t, 1.0, vec.AvailabilityOK)
	assert.Contains(t, chips, "Matches interests")
	assert.Contains(t, chips, "Fits availability")
	assert.Contains(t, chips, "Good group size")
	assert.Contains(t, chips, "Comfortable intensity")
	assert.Contains(t, chips, "Close by")
	assert.Contains(t, chips, "Fresh option")
}
