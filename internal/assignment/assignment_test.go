package assignment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendoor-marketplace/matchengine/internal/domain"
	"github.com/opendoor-marketplace/matchengine/internal/scorer"
)

func users(n int) []domain.User {
	out := make([]domain.User, n)
	for i := range out {
		out[i] = domain.User{ID: idOf("u", i)}
	}
	return out
}

func idOf(prefix string, i int) string {
	return prefix + string(rune('0'+i))
}

func TestSolvers_EveryUserAssignedOrUnassignedExactlyOnce(t *testing.T) {
	for _, preferFlow := range []bool{true, false} {
		us := users(3)
		opps := []domain.Opportunity{{ID: "o0"}, {ID: "o1"}}
		matrix := scorer.Matrix{
			"u0": {"o0": 5.0, "o1": 1.0},
			"u1": {"o0": 4.0, "o1": 2.0},
			"u2": {"o0": 3.0, "o1": 3.5},
		}
		caps := map[string]int{"o0": 1, "o1": 1}

		solver := NewSolver(preferFlow)
		res := solver.Solve(us, opps, matrix, caps)

		seen := map[string]bool{}
		for _, a := range res.Assignments {
			seen[a.UserID] = true
		}
		for _, u := range res.Unassigned {
			require.False(t, seen[u], "user %s appears both assigned and unassigned", u)
			seen[u] = true
		}
		assert.Len(t, seen, 3)
		assert.Equal(t, 3, len(res.Assignments)+len(res.Unassigned))
	}
}

func TestSolvers_RespectCapacity(t *testing.T) {
	for _, preferFlow := range []bool{true, false} {
		us := users(2)
		opps := []domain.Opportunity{{ID: "o0"}}
		matrix := scorer.Matrix{
			"u0": {"o0": 10.0},
			"u1": {"o0": 9.0},
		}
		caps := map[string]int{"o0": 1}

		res := NewSolver(preferFlow).Solve(us, opps, matrix, caps)
		assert.Len(t, res.Assignments, 1)
		assert.Len(t, res.Unassigned, 1)
	}
}

func TestSolvers_ZeroCapacityOppUnreachable(t *testing.T) {
	for _, preferFlow := range []bool{true, false} {
		us := users(1)
		opps := []domain.Opportunity{{ID: "o0"}}
		matrix := scorer.Matrix{"u0": {"o0": 10.0}}
		caps := map[string]int{"o0": 0}

		res := NewSolver(preferFlow).Solve(us, opps, matrix, caps)
		assert.Empty(t, res.Assignments)
		assert.Equal(t, []string{"u0"}, res.Unassigned)
	}
}

func TestFlowSolver_MaximizesTotalScore(t *testing.T) {
	us := users(2)
	opps := []domain.Opportunity{{ID: "o0"}, {ID: "o1"}}
	// Greedy-by-first-user would take o0 for u0 (score 10), forcing u1 into
	// o1 (score 1) for a total of 11. The optimal assignment is u0->o1 (8),
	// u1->o0 (9) for a total of 17.
	matrix := scorer.Matrix{
		"u0": {"o0": 10.0, "o1": 8.0},
		"u1": {"o0": 9.0, "o1": 1.0},
	}
	caps := map[string]int{"o0": 1, "o1": 1}

	res := NewSolver(true).Solve(us, opps, matrix, caps)

	total := 0.0
	for _, a := range res.Assignments {
		total += matrix[a.UserID][a.OppID]
	}
	assert.InDelta(t, 17.0, total, 1e-6)
}

func TestHappyPathAssignment(t *testing.T) {
	us := []domain.User{{ID: "u0"}}
	opps := []domain.Opportunity{{ID: "o0"}}
	matrix := scorer.Matrix{"u0": {"o0": 1.0}}
	caps := map[string]int{"o0": 2}

	res := NewSolver(true).Solve(us, opps, matrix, caps)
	assert.Equal(t, []domain.Assignment{{UserID: "u0", OppID: "o0"}}, res.Assignments)
	assert.Empty(t, res.Unassigned)
}
