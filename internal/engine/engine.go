// Package engine composes the scoring pipeline, pulse engine, assignment
// solver, and state store into the public operations: seed, solve,
// rebalance, feedback, feed, trending, event-detail, explain, rsvp,
// upsert-user, state-snapshot, and the demo family. It is the only package
// that knows the full data flow per solve: pulse recompute → state snapshot
// → score matrix → assignment → recommendations → metrics → publish
// last_assignment.
package engine

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/opendoor-marketplace/matchengine/internal/assignment"
	"github.com/opendoor-marketplace/matchengine/internal/config"
	"github.com/opendoor-marketplace/matchengine/internal/domain"
	"github.com/opendoor-marketplace/matchengine/internal/features"
	"github.com/opendoor-marketplace/matchengine/internal/metrics"
	"github.com/opendoor-marketplace/matchengine/internal/predictor"
	"github.com/opendoor-marketplace/matchengine/internal/pulse"
	"github.com/opendoor-marketplace/matchengine/internal/recommend"
	"github.com/opendoor-marketplace/matchengine/internal/scorer"
	"github.com/opendoor-marketplace/matchengine/internal/store"
	"github.com/opendoor-marketplace/matchengine/internal/trainlog"
)

// Engine wires the store to the stateless compute pipeline.
type Engine struct {
	store      *store.Store
	scorer     *scorer.Scorer
	solver     assignment.Solver
	solverName string
	log        *trainlog.Logger
	metrics    *metrics.Registry
	cfg        config.Settings
	clock      func() time.Time
}

func featuresConfig(cfg config.Settings) features.Config {
	fc := features.DefaultConfig()
	if cfg.DistanceScaleMins > 0 {
		fc.DistanceScaleMins = cfg.DistanceScaleMins
	}
	return fc
}

// New constructs an Engine. preferFlow selects the min-cost-flow solver
// over the greedy fallback, resolved here at construction time.
func New(st *store.Store, cfg config.Settings, preferFlow bool, reg *metrics.Registry, tl *trainlog.Logger, clock func() time.Time) *Engine {
	if clock == nil {
		clock = time.Now
	}
	model := predictor.LoadModel(cfg.RSVPModelPath)
	sc := scorer.New(model, scorer.Config{
		Features:       featuresConfig(cfg),
		PricingLambda:  cfg.PricingLambda,
		FairnessLambda: cfg.FairnessLambda,
		NewcomerBoost:  cfg.NewcomerBoost,
	})
	solverName := "greedy"
	if preferFlow {
		solverName = "flow"
	}
	return &Engine{
		store:      st,
		scorer:     sc,
		solver:     assignment.NewSolver(preferFlow),
		solverName: solverName,
		log:        tl,
		metrics:    reg,
		cfg:        cfg,
		clock:      clock,
	}
}

// SolveRequest carries the per-solve overrides. WeightOverrides is accepted
// for wire compatibility but intentionally unused: the predictor's weights
// come from the model artifact, not the request. PricingLambdaOver is also
// not applied: scoring always uses the configured pricing lambda.
type SolveRequest struct {
	WeightOverrides    map[string]float64
	PricingLambdaOver  *float64
	LiquidityKOver     *float64
	UserIDFilter       string
	TopKAlternatives   int
	ApplyFairness      bool
	FairnessLambdaOver *float64
	RecordPulseHistory bool
}

// SolveResponse is the full per-solve output.
type SolveResponse struct {
	Assignments     []domain.Assignment
	Unassigned      []string
	Pulses          map[string]float64
	Recommendations map[string]domain.Recommendation
	Explanations    scorer.Explanations
}

func (e *Engine) topK(req SolveRequest) int {
	if req.TopKAlternatives > 0 {
		return req.TopKAlternatives
	}
	return e.cfg.DefaultTopKAlternatives
}

// Solve runs the full per-solve pipeline and atomically publishes the new
// assignment as its final step.
func (e *Engine) Solve(req SolveRequest) (SolveResponse, error) {
	if e.store.Empty() {
		return SolveResponse{}, domain.NewPreconditionError("No users/opportunities loaded.")
	}

	start := e.clock()

	var liquidityOverrides *pulse.Overrides
	if req.LiquidityKOver != nil {
		liquidityOverrides = &pulse.Overrides{LiquidityK: req.LiquidityKOver}
	}
	pulses := e.store.RecomputePulses(liquidityOverrides, req.RecordPulseHistory, e.clock())
	snap := e.store.Snapshot()

	users := snap.Users
	if req.UserIDFilter != "" {
		filtered := make([]domain.User, 0, 1)
		for _, u := range users {
			if u.ID == req.UserIDFilter {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}

	scoreSnap := scorer.Snapshot{
		Interactions:   snap.Interactions,
		Pulses:         pulses,
		LastAssignment: snap.LastAssignment,
	}
	matrix, explanations := e.scorer.BuildScoreMatrix(users, snap.Opps, scoreSnap, scorer.Options{
		ApplyFairness:      req.ApplyFairness,
		FairnessLambdaOver: req.FairnessLambdaOver,
	})

	result := e.solver.Solve(users, snap.Opps, matrix, snap.Capacities)
	if result.Degraded {
		log.Warn().Msg("solve: flow solver degraded to greedy")
	}
	e.store.SetLastAssignment(result.Assignments)

	recs := recommend.Build(users, matrix, result.Assignments, e.topK(req))

	if e.metrics != nil {
		e.metrics.ObserveSolve(e.solverName, start, len(result.Assignments), len(result.Unassigned))
		if result.Degraded {
			e.metrics.SolverDegradation.Inc()
		}
		for oppID, p := range pulses {
			e.metrics.PulseValue.WithLabelValues(oppID).Set(p)
		}
		e.metrics.FairnessGap.Set(scorer.RateGap(scorer.CohortRates(snap.Users, result.Assignments)))
	}

	e.store.SetLastAssignment(result.Assignments)

	return SolveResponse{
		Assignments:     result.Assignments,
		Unassigned:      result.Unassigned,
		Pulses:          pulses,
		Recommendations: recs,
		Explanations:    explanations,
	}, nil
}

// RebalanceResponse is a solve result plus per-opp pulse deltas and a top-N
// movers list.
type RebalanceResponse struct {
	SolveResponse
	PulseDeltas map[string]float64
	TopMovers   []string
}

// Rebalance re-solves and reports how each opportunity's pulse moved
// relative to the pre-solve value.
func (e *Engine) Rebalance(req SolveRequest, topMovers int) (RebalanceResponse, error) {
	before := make(map[string]float64)
	for oppID, st := range e.store.Snapshot().PerOpp {
		before[oppID] = st.Pulse
	}

	resp, err := e.Solve(req)
	if err != nil {
		return RebalanceResponse{}, err
	}

	deltas := make(map[string]float64, len(resp.Pulses))
	for oppID, after := range resp.Pulses {
		deltas[oppID] = after - before[oppID]
	}

	movers := make([]mover, 0, len(deltas))
	for id, d := range deltas {
		movers = append(movers, mover{id, d})
	}
	sortMoversDesc(movers)
	if topMovers <= 0 {
		topMovers = 5
	}
	if topMovers > len(movers) {
		topMovers = len(movers)
	}
	top := make([]string, topMovers)
	for i := 0; i < topMovers; i++ {
		top[i] = movers[i].id
	}

	return RebalanceResponse{SolveResponse: resp, PulseDeltas: deltas, TopMovers: top}, nil
}

type mover struct {
	id    string
	delta float64
}

func sortMoversDesc(movers []mover) {
	for i := 1; i < len(movers); i++ {
		for j := i; j > 0 && movers[j].delta > movers[j-1].delta; j-- {
			movers[j], movers[j-1] = movers[j-1], movers[j]
		}
	}
}

// Feedback records one interaction and its demand/shown-window side
// effects.
func (e *Engine) Feedback(userID, oppID string, event domain.EventType) error {
	if err := e.store.RecordFeedback(userID, oppID, event); err != nil {
		return err
	}
	if e.metrics != nil {
		e.metrics.FeedbackEvents.WithLabelValues(string(event)).Inc()
	}
	return nil
}

// RSVP attempts to reserve a spot and logs successful confirmations for
// offline training.
func (e *Engine) RSVP(userID, oppID string) (domain.RSVPResult, error) {
	result, err := e.store.RSVP(userID, oppID)
	if err != nil {
		return domain.RSVPResult{}, err
	}
	if e.metrics != nil {
		e.metrics.RSVPAttempts.WithLabelValues(string(result.Status)).Inc()
	}
	if result.Status == domain.RSVPConfirmed && e.log != nil {
		e.log.LogRSVP(userID, oppID)
	}
	return result, nil
}

// Explain returns the full score breakdown for one (user, opp) pair, first
// recomputing pulses so the explanation reflects current demand. A pair the
// availability gate excludes yields an infeasible error, not a score.
func (e *Engine) Explain(userID, oppID string) (domain.ScoreExplanation, error) {
	user, err := e.store.User(userID)
	if err != nil {
		return domain.ScoreExplanation{}, err
	}
	opp, err := e.store.Opp(oppID)
	if err != nil {
		return domain.ScoreExplanation{}, err
	}

	pulses := e.store.RecomputePulses(nil, false, e.clock())
	snap := e.store.Snapshot()

	_, explanations := e.scorer.BuildScoreMatrix([]domain.User{user}, []domain.Opportunity{opp}, scorer.Snapshot{
		Interactions:   snap.Interactions,
		Pulses:         pulses,
		LastAssignment: snap.LastAssignment,
	}, scorer.Options{})

	key := userID + "|" + oppID
	exp, ok := explanations[key]
	if !ok {
		return domain.ScoreExplanation{}, domain.NewInfeasibleError(userID, oppID)
	}
	if e.log != nil {
		e.log.LogImpression(userID, oppID, exp.Breakdown, pulses[oppID])
	}
	return exp, nil
}

// Feed returns the recommendation for one user, computed fresh against the
// current pulses and last assignment without mutating last_assignment.
func (e *Engine) Feed(userID string, topK int) (domain.Recommendation, error) {
	if _, err := e.store.User(userID); err != nil {
		return domain.Recommendation{}, err
	}

	pulses := e.store.RecomputePulses(nil, false, e.clock())
	snap := e.store.Snapshot()

	var user domain.User
	for _, u := range snap.Users {
		if u.ID == userID {
			user = u
			break
		}
	}

	matrix, _ := e.scorer.BuildScoreMatrix([]domain.User{user}, snap.Opps, scorer.Snapshot{
		Interactions:   snap.Interactions,
		Pulses:         pulses,
		LastAssignment: snap.LastAssignment,
	}, scorer.Options{})

	if topK <= 0 {
		topK = e.cfg.DefaultTopKAlternatives
	}
	recs := recommend.Build([]domain.User{user}, matrix, snap.LastAssignment, topK)
	return recs[userID], nil
}

// Trending returns opp ids ranked by descending current pulse.
func (e *Engine) Trending() []string {
	e.store.RecomputePulses(nil, false, e.clock())
	return e.store.Trending()
}

// EventDetail is the demand-side view of one opportunity.
type EventDetail struct {
	Opp         domain.Opportunity         `json:"opp"`
	Pulse       float64                    `json:"pulse"`
	NetDemand   float64                    `json:"net_demand"`
	RSVPCount   int                        `json:"rsvp_count"`
	SpotsLeft   int                        `json:"spots_left"`
	ShownWindow int                        `json:"shown_window"`
	History     []domain.PulseHistoryPoint `json:"history"`
}

// Detail returns the current demand state for one opportunity, recomputing
// its pulse first.
func (e *Engine) Detail(oppID string) (EventDetail, error) {
	opp, err := e.store.Opp(oppID)
	if err != nil {
		return EventDetail{}, err
	}

	pulses := e.store.RecomputePulses(nil, false, e.clock())
	snap := e.store.Snapshot()
	st := snap.PerOpp[oppID]
	if st == nil {
		st = domain.NewOppState()
	}

	spotsLeft := opp.Capacity - len(st.RSVPs)
	if spotsLeft < 0 {
		spotsLeft = 0
	}
	return EventDetail{
		Opp:         opp,
		Pulse:       pulses[oppID],
		NetDemand:   st.NetDemand,
		RSVPCount:   len(st.RSVPs),
		SpotsLeft:   spotsLeft,
		ShownWindow: st.ShownWindow,
		History:     st.History,
	}, nil
}

// Seed loads a fixture file, replacing all state.
func (e *Engine) Seed(path string) error {
	return e.store.LoadFixture(path)
}

// UpsertUser adds or replaces a user.
func (e *Engine) UpsertUser(u domain.User) {
	e.store.UpsertUser(u)
}

// StateSnapshot exposes the store's materialized snapshot for read-only
// admin/demo endpoints.
func (e *Engine) StateSnapshot() store.Snapshot {
	return e.store.Snapshot()
}

// DemoSetup generates a synthetic dataset for interactive demos.
func (e *Engine) DemoSetup(numUsers, numOpps int, seed int64) {
	e.store.GenerateSynthetic(numUsers, numOpps, rand.New(rand.NewSource(seed)))
}

// DemoStep records one synthetic accepted event against a target
// opportunity and attempts the corresponding RSVP, driving the hot-event
// oversubscription demo.
func (e *Engine) DemoStep(userID, oppID string) (domain.RSVPResult, error) {
	if err := e.store.RecordFeedback(userID, oppID, domain.EventAccepted); err != nil {
		return domain.RSVPResult{}, err
	}
	return e.store.RSVP(userID, oppID)
}
