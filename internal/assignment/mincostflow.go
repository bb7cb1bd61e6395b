package assignment

import (
	"github.com/rs/zerolog/log"

	"github.com/opendoor-marketplace/matchengine/internal/domain"
	"github.com/opendoor-marketplace/matchengine/internal/scorer"
)

// flowSolver is a min-cost flow solver over the graph: source -> users (cap
// 1, cost 0), users -> feasible opps (cap 1, cost = cost(score)), users ->
// sink (cap 1, cost = cost(0), the overflow arc that lets a user go
// unmatched), opps -> sink (cap = capacity, cost 0). Solved by repeated
// SPFA shortest-path augmentation; every arc cost is non-negative by
// construction since cost(s) = round((max - s)*scale) with max the matrix
// maximum.
type flowSolver struct{}

type edge struct {
	to, cap, cost, flow int
	rev                 int // index of the reverse edge in graph[to]
}

type mcmfGraph struct {
	adj [][]edge
}

func newGraph(n int) *mcmfGraph {
	return &mcmfGraph{adj: make([][]edge, n)}
}

func (g *mcmfGraph) addEdge(from, to, cap, cost int) {
	g.adj[from] = append(g.adj[from], edge{to: to, cap: cap, cost: cost, rev: len(g.adj[to])})
	g.adj[to] = append(g.adj[to], edge{to: from, cap: 0, cost: -cost, rev: len(g.adj[from]) - 1})
}

// minCostFlow drains up to maxFlow units of flow from s to t at minimum
// cost using successive SPFA-shortest-path augmentations. Returns the total
// flow actually routed, which the per-user sink arc should always make
// equal to maxFlow.
func (g *mcmfGraph) minCostFlow(s, t, maxFlow int) int {
	flow := 0
	n := len(g.adj)
	const inf = 1 << 30

	for flow < maxFlow {
		dist := make([]int, n)
		inQueue := make([]bool, n)
		prevEdge := make([]int, n)
		prevNode := make([]int, n)
		for i := range dist {
			dist[i] = inf
			prevNode[i] = -1
		}
		dist[s] = 0
		queue := []int{s}
		inQueue[s] = true

		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			inQueue[u] = false
			for i, e := range g.adj[u] {
				if e.cap-e.flow <= 0 {
					continue
				}
				if dist[u]+e.cost < dist[e.to] {
					dist[e.to] = dist[u] + e.cost
					prevNode[e.to] = u
					prevEdge[e.to] = i
					if !inQueue[e.to] {
						queue = append(queue, e.to)
						inQueue[e.to] = true
					}
				}
			}
		}

		if dist[t] == inf {
			break
		}

		// Bottleneck along the path (always 1 in this graph's unit-capacity
		// user arcs, but computed generally).
		push := maxFlow - flow
		for v := t; v != s; {
			u := prevNode[v]
			e := g.adj[u][prevEdge[v]]
			if avail := e.cap - e.flow; avail < push {
				push = avail
			}
			v = u
		}

		for v := t; v != s; {
			u := prevNode[v]
			ei := prevEdge[v]
			g.adj[u][ei].flow += push
			rev := g.adj[u][ei].rev
			g.adj[v][rev].flow -= push
			v = u
		}

		flow += push
	}

	return flow
}

func (flowSolver) Solve(users []domain.User, opps []domain.Opportunity, matrix scorer.Matrix, capacities map[string]int) Result {
	n, m := len(users), len(opps)
	if n == 0 {
		return Result{}
	}

	source := 0
	userOffset := 1
	oppOffset := 1 + n
	sink := 1 + n + m

	g := newGraph(sink + 1)

	maxScore := maxScoreOf(matrix)
	if maxScore < 0 {
		maxScore = 0
	}
	unassignedCost := costFor(maxScore, 0)

	for i := range users {
		g.addEdge(source, userOffset+i, 1, 0)
	}

	userToOppEdge := make(map[[2]int]int) // (userIdx, oppIdx) -> edge index in adj[userNode]
	for i, user := range users {
		userNode := userOffset + i
		row := matrix[user.ID]
		for j, opp := range opps {
			score, ok := row[opp.ID]
			if !ok {
				continue
			}
			userToOppEdge[[2]int{i, j}] = len(g.adj[userNode])
			g.addEdge(userNode, oppOffset+j, 1, costFor(maxScore, score))
		}
		g.addEdge(userNode, sink, 1, unassignedCost)
	}

	for j, opp := range opps {
		c := capacities[opp.ID]
		if c <= 0 {
			continue
		}
		g.addEdge(oppOffset+j, sink, c, 0)
	}

	routed := g.minCostFlow(source, sink, n)
	if routed != n {
		log.Warn().Int("routed", routed).Int("users", n).Msg("min-cost flow returned non-optimal result, falling back to greedy solver")
		res := solveGreedy(users, matrix, capacities)
		res.Degraded = true
		return res
	}

	var assignments []domain.Assignment
	assigned := make(map[string]bool, n)
	for i, user := range users {
		userNode := userOffset + i
		for j, opp := range opps {
			ei, ok := userToOppEdge[[2]int{i, j}]
			if !ok {
				continue
			}
			if g.adj[userNode][ei].flow > 0 {
				assignments = append(assignments, domain.Assignment{UserID: user.ID, OppID: opp.ID})
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
