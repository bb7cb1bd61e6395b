// Package assignment implements the capacity-constrained assignment solver:
// a min-cost bipartite flow with a per-user "unassigned" overflow arc, and a
// greedy degradation path used when the flow solver returns non-optimal.
// Which implementation runs is a capability check resolved at construction
// time, not an exception caught mid-solve.
package assignment

import (
	"sort"

	"github.com/opendoor-marketplace/matchengine/internal/domain"
	"github.com/opendoor-marketplace/matchengine/internal/scorer"
)

// Result is the outcome of a solve: an ordered list of assignments and an
// ordered list of unassigned user ids, both in input order. Degraded is set
// when the flow solver could not route all users and the greedy fallback
// produced the result instead.
type Result struct {
	Assignments []domain.Assignment
	Unassigned  []string
	Degraded    bool
}

// Solver resolves a feasible, capacity-respecting assignment from a score
// matrix.
type Solver interface {
	Solve(users []domain.User, opps []domain.Opportunity, matrix scorer.Matrix, capacities map[string]int) Result
}

// NewSolver resolves the solver implementation at construction time. When
// preferFlow is false, or when the flow solver reports a non-optimal result
// at solve time, the greedy fallback is used instead.
func NewSolver(preferFlow bool) Solver {
	if preferFlow {
		return &flowSolver{}
	}
	return &greedySolver{}
}

const costScale = 100

func costFor(maxScore, score float64) int {
	diff := (maxScore - score) * costScale
	return roundToInt(diff)
}

func roundToInt(x float64) int {
	if x >= 0 {
		return int(x + 0.5)
	}
	return -int(-x + 0.5)
}

func maxScoreOf(matrix scorer.Matrix) float64 {
	max := 0.0
	for _, row := range matrix {
		for _, s := range row {
			if s > max {
				max = s
			}
		}
	}
	return max
}

// greedySolver is the correctness fallback: no optimality guarantee.
type greedySolver struct{}

func (greedySolver) Solve(users []domain.User, opps []domain.Opportunity, matrix scorer.Matrix, capacities map[string]int) Result {
	return solveGreedy(users, matrix, capacities)
}

func solveGreedy(users []domain.User, matrix scorer.Matrix, capacities map[string]int) Result {
	remaining := make(map[string]int, len(capacities))
	for oppID, c := range capacities {
		if c < 0 {
			c = 0
		}
		remaining[oppID] = c
	}

	var assignments []domain.Assignment
	assigned := make(map[string]bool, len(users))

	for _, user := range users {
		row := matrix[user.ID]
		type choice struct {
			oppID string
			score float64
		}
		choices := make([]choice, 0, len(row))
		for oppID, s := range row {
			choices = append(choices, choice{oppID, s})
		}
		sort.Slice(choices, func(i, j int) bool {
			if choices[i].score != choices[j].score {
				return choices[i].score > choices[j].score
			}
			return choices[i].oppID < choices[j].oppID
		})
		for _, c := range choices {
			if remaining[c.oppID] > 0 {
				remaining[c.oppID]--
				assignments = append(assignments, domain.Assignment{UserID: user.ID, OppID: c.oppID})
				assigned[user.ID] = true
				break
			}
		}
	}

	var unassigned []string
	for _, u := range users {
		if !assigned[u.ID] {
			unassigned = append(unassigned, u.ID)
		}
	}

	return Result{Assignments: assignments, Unassigned: unassigned}
}
