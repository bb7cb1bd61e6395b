package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendoor-marketplace/matchengine/internal/domain"
	"github.com/opendoor-marketplace/matchengine/internal/scorer"
)

func TestBuild_PrimaryFromAssignment(t *testing.T) {
	users := []domain.User{{ID: "u0"}}
	matrix := scorer.Matrix{"u0": {"o0": 5.0, "o1": 9.0}}
	assignments := []domain.Assignment{{UserID: "u0", OppID: "o0"}}

	out := Build(users, matrix, assignments, 3)
	require.NotNil(t, out["u0"].Primary)
	assert.Equal(t, "o0", *out["u0"].Primary)
	assert.Equal(t, []string{"o1"}, out["u0"].Alternatives)
}

func TestBuild_PrimaryFallsBackToTopScoreWhenUnassigned(t *testing.T) {
	users := []domain.User{{ID: "u0"}}
	matrix := scorer.Matrix{"u0": {"o0": 5.0, "o1": 9.0}}

	out := Build(users, matrix, nil, 3)
	require.NotNil(t, out["u0"].Primary)
	assert.Equal(t, "o1", *out["u0"].Primary)
}

func TestBuild_NilPrimaryWhenNoFeasibleOpps(t *testing.T) {
	users := []domain.User{{ID: "u0"}}
	matrix := scorer.Matrix{"u0": {}}

	out := Build(users, matrix, nil, 3)
	assert.Nil(t, out["u0"].Primary)
	assert.Empty(t, out["u0"].Alternatives)
}

func TestBuild_AlternativesCappedAtTopK(t *testing.T) {
	users := []domain.User{{ID: "u0"}}
	matrix := scorer.Matrix{"u0": {"o0": 1, "o1": 2, "o2": 3, "o3": 4}}

	out := Build(users, matrix, nil, 2)
	assert.Len(t, out["u0"].Alternatives, 2)
	assert.Equal(t, []string{"o2", "o1"}, out["u0"].Alternatives)
}
