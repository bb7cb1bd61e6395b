// Package store implements the shared state store: a thread-safe, in-memory
// repository of users, opportunities, interactions, per-opportunity
// demand/pulse state, and the most recent assignment.
//
// All per-opp mutable state lives in one record (domain.OppState) addressed
// by opp id. Snapshot reads and mutators share one coarse sync.RWMutex;
// CPU-bound work (scoring, solving) runs outside any lock against snapshot
// copies.
package store

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/opendoor-marketplace/matchengine/internal/domain"
	"github.com/opendoor-marketplace/matchengine/internal/pulse"
)

// Store is the concurrently accessed ground truth between requests.
type Store struct {
	mu sync.RWMutex

	users          map[string]domain.User
	userOrder      []string
	opps           map[string]domain.Opportunity
	oppOrder       []string
	perOpp         map[string]*domain.OppState
	interactions   []domain.Interaction
	lastAssignment []domain.Assignment

	pulses   *pulse.Engine
	pulseCfg pulse.Config
	clock    func() time.Time
}

// New constructs an empty Store. clock defaults to time.Now; tests may
// override it to exercise decay/history behavior deterministically.
func New(pulseCfg pulse.Config, clock func() time.Time) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		users:    make(map[string]domain.User),
		opps:     make(map[string]domain.Opportunity),
		perOpp:   make(map[string]*domain.OppState),
		pulses:   pulse.NewEngine(pulseCfg),
		pulseCfg: pulseCfg,
		clock:    clock,
	}
}

// Pulses exposes the underlying pulse engine for direct demand reads.
func (s *Store) Pulses() *pulse.Engine { return s.pulses }

// RecomputePulses runs the pulse engine over the current opportunity
// catalog and publishes the results (pulse, net demand, optional history
// sample) into live per-opp state in one critical section, so every value
// in the returned map reflects the same instant.
func (s *Store) RecomputePulses(overrides *pulse.Overrides, recordHistory bool, now time.Time) map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	capacities := make(map[string]int, len(s.oppOrder))
	for _, id := range s.oppOrder {
		capacities[id] = s.opps[id].Capacity
		s.ensureOppLocked(id)
	}
	return s.pulses.ComputePulses(capacities, overrides, s.perOpp, recordHistory, now)
}

func (s *Store) ensureOppLocked(oppID string) *domain.OppState {
	st, ok := s.perOpp[oppID]
	if !ok {
		st = domain.NewOppState()
		s.perOpp[oppID] = st
	}
	return st
}

// fixtureDoc matches the JSON shape LoadFixture accepts: {"users":[...],
// "opps":[...]}, with "user"/"opportunities" accepted as aliases.
type fixtureDoc struct {
	Users    []domain.User        `json:"users"`
	UsersAlt []domain.User        `json:"user"`
	Opps     []domain.Opportunity `json:"opps"`
	OppsAlt  []domain.Opportunity `json:"opportunities"`
}

// LoadFixture replaces all state from a JSON document on disk. A read or
// parse failure surfaces as a caller-visible error and leaves existing
// state untouched rather than partially applying.
func (s *Store) LoadFixture(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load fixture: %w", err)
	}
	var doc fixtureDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("load fixture: %w", err)
	}
	users := doc.Users
	if len(users) == 0 {
		users = doc.UsersAlt
	}
	opps := doc.Opps
	if len(opps) == 0 {
		opps = doc.OppsAlt
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	for _, u := range users {
		s.upsertUserLocked(u)
	}
	for _, o := range opps {
		s.upsertOppLocked(o)
	}
	return nil
}

var clusterCategories = []string{"fitness", "learning", "volunteering", "social", "outdoors"}
var clusterTags = [][]string{
	{"tech", "coding", "workshop"},
	{"fitness", "outdoor", "sports"},
	{"volunteer", "service", "community"},
	{"social", "hangout", "meetup"},
	{"music", "art", "class"},
}
var timeBuckets = []string{"weeknights", "weekends", "weekday-mornings"}
var groupSizes = []domain.GroupSize{domain.GroupSmall, domain.GroupMedium, domain.GroupLarge}
var intensities = []domain.Intensity{domain.IntensityLow, domain.IntensityMed, domain.IntensityHigh}
var goals = []domain.Goal{domain.GoalFriends, domain.GoalActive, domain.GoalVolunteer, domain.GoalLearn, domain.GoalNone}
var cohorts = []string{"newcomer", "regular", "regular", "regular"}

// GenerateSynthetic populates the store with clustered random data, replacing
// any existing state. Clustering keeps tag vocabularies and coordinates
// drawn from a small number of "neighborhoods" so interest/distance features
// produce a realistic mix of strong and weak matches instead of uniform
// noise.
func (s *Store) GenerateSynthetic(numUsers, numOpps int, rng *rand.Rand) {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()

	for i := 0; i < numOpps; i++ {
		cluster := rng.Intn(len(clusterTags))
		o := domain.Opportunity{
			ID:               fmt.Sprintf("o%d", i),
			Title:            fmt.Sprintf("%s event %d", clusterCategories[cluster], i),
			Tags:             append([]string(nil), clusterTags[cluster]...),
			Category:         clusterCategories[cluster],
			TimeBucket:       timeBuckets[rng.Intn(len(timeBuckets))],
			Lat:              float64(cluster) + rng.Float64()*0.3,
			Lng:              float64(cluster) + rng.Float64()*0.3,
			Capacity:         2 + rng.Intn(8),
			GroupSize:        groupSizes[rng.Intn(len(groupSizes))],
			Intensity:        intensities[rng.Intn(len(intensities))],
			BeginnerFriendly: rng.Float64() < 0.4,
		}
		s.upsertOppLocked(o)
	}

	for i := 0; i < numUsers; i++ {
		cluster := rng.Intn(len(clusterTags))
		u := domain.User{
			ID:            fmt.Sprintf("u%d", i),
			InterestTags:  append([]string(nil), clusterTags[cluster]...),
			Lat:           float64(cluster) + rng.Float64()*0.3,
			Lng:           float64(cluster) + rng.Float64()*0.3,
			MaxTravelMins: 15 + rng.Intn(45),
			Availability:  []string{timeBuckets[rng.Intn(len(timeBuckets))]},
			GroupPref:     groupSizes[rng.Intn(len(groupSizes))],
			IntensityPref: intensities[rng.Intn(len(intensities))],
			Goal:          goals[rng.Intn(len(goals))],
			Cohort:        cohorts[rng.Intn(len(cohorts))],
		}
		s.upsertUserLocked(u)
	}
}

// Reset clears all state: users, opps, per-opp state, interactions, and the
// last assignment.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Store) resetLocked() {
	s.users = make(map[string]domain.User)
	s.userOrder = nil
	s.opps = make(map[string]domain.Opportunity)
	s.oppOrder = nil
	s.perOpp = make(map[string]*domain.OppState)
	s.interactions = nil
	s.lastAssignment = nil
	s.pulses = pulse.NewEngine(s.pulseCfg)
}

// UpsertUser inserts or replaces a user.
func (s *Store) UpsertUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertUserLocked(u)
}

func (s *Store) upsertUserLocked(u domain.User) {
	if _, exists := s.users[u.ID]; !exists {
		s.userOrder = append(s.userOrder, u.ID)
	}
	s.users[u.ID] = u
}

// UpsertOpp inserts or replaces an opportunity, ensuring its per-opp state
// exists before any other write can touch it.
func (s *Store) UpsertOpp(o domain.Opportunity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertOppLocked(o)
}

func (s *Store) upsertOppLocked(o domain.Opportunity) {
	if _, exists := s.opps[o.ID]; !exists {
		s.oppOrder = append(s.oppOrder, o.ID)
	}
	s.opps[o.ID] = o
	s.ensureOppLocked(o.ID)
}

// shownWindowEvents are the feedback events that bump an opp's shown_window
// counter.
var shownWindowEvents = map[domain.EventType]bool{
	domain.EventShown:    true,
	domain.EventClicked:  true,
	domain.EventAccepted: true,
	domain.EventDeclined: true,
}

// demandEvents are the events that feed the decayed net-demand accumulator.
var demandEvents = map[domain.EventType]bool{
	domain.EventAccepted: true,
	domain.EventDeclined: true,
	domain.EventClicked:  true,
}

// RecordFeedback validates the opp exists, appends the interaction with a
// store-assigned timestamp, bumps shown_window, and applies the
// decayed-demand update, all under one critical section. Timestamps reflect
// the instant the store accepted the event, so insertion order and
// timestamp order agree.
func (s *Store) RecordFeedback(userID, oppID string, event domain.EventType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.opps[oppID]; !ok {
		return domain.NewNotFoundError("opportunity", oppID)
	}

	now := s.clock()
	s.interactions = append(s.interactions, domain.Interaction{
		UserID: userID, OppID: oppID, Event: event, Timestamp: now,
	})

	st := s.ensureOppLocked(oppID)
	if shownWindowEvents[event] {
		st.ShownWindow++
	}
	if demandEvents[event] {
		s.pulses.RecordDemand(oppID, pulse.DemandDelta(event), now)
	}
	return nil
}

// RSVP attempts to reserve one spot at oppID for userID. Capacity check and
// set insertion happen in the same critical section. A full event is not an
// error: it returns a structured FULL result.
func (s *Store) RSVP(userID, oppID string) (domain.RSVPResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	opp, ok := s.opps[oppID]
	if !ok {
		return domain.RSVPResult{}, domain.NewNotFoundError("opportunity", oppID)
	}
	st := s.ensureOppLocked(oppID)

	if _, already := st.RSVPs[userID]; already {
		return domain.RSVPResult{Status: domain.RSVPConfirmed, SpotsLeft: opp.Capacity - len(st.RSVPs)}, nil
	}
	if len(st.RSVPs) >= opp.Capacity {
		return domain.RSVPResult{Status: domain.RSVPFull, SpotsLeft: 0}, nil
	}

	st.RSVPs[userID] = struct{}{}
	return domain.RSVPResult{Status: domain.RSVPConfirmed, SpotsLeft: opp.Capacity - len(st.RSVPs)}, nil
}

// SetLastAssignment atomically replaces last_assignment as the final step
// of a solve.
func (s *Store) SetLastAssignment(assignments []domain.Assignment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAssignment = append([]domain.Assignment(nil), assignments...)
}

// Empty reports whether the store has no users or no opportunities, the
// precondition solve/rebalance/demo operations check first.
func (s *Store) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users) == 0 || len(s.opps) == 0
}

// Snapshot is the immutable copy of store state handed to the scorer and
// solver outside any lock.
type Snapshot struct {
	Users          []domain.User
	Opps           []domain.Opportunity
	Capacities     map[string]int
	Interactions   []domain.Interaction
	LastAssignment []domain.Assignment
	PerOpp         map[string]*domain.OppState
}

// Snapshot materializes a coherent, order-preserving copy of the current
// state under the store's read lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		users = append(users, s.users[id])
	}
	opps := make([]domain.Opportunity, 0, len(s.oppOrder))
	capacities := make(map[string]int, len(s.oppOrder))
	for _, id := range s.oppOrder {
		o := s.opps[id]
		opps = append(opps, o)
		capacities[id] = o.Capacity
	}
	perOpp := make(map[string]*domain.OppState, len(s.perOpp))
	for id, st := range s.perOpp {
		cp := *st
		cp.RSVPs = make(map[string]struct{}, len(st.RSVPs))
		for u := range st.RSVPs {
			cp.RSVPs[u] = struct{}{}
		}
		cp.History = append([]domain.PulseHistoryPoint(nil), st.History...)
		perOpp[id] = &cp
	}

	return Snapshot{
		Users:          users,
		Opps:           opps,
		Capacities:     capacities,
		Interactions:   append([]domain.Interaction(nil), s.interactions...),
		LastAssignment: append([]domain.Assignment(nil), s.lastAssignment...),
		PerOpp:         perOpp,
	}
}

// UserOrder returns the snapshot's user ids in store insertion order, the
// order the solver iterates in for deterministic, input-order tie-breaking.
func (s Snapshot) UserOrder() []string {
	ids := make([]string, len(s.Users))
	for i, u := range s.Users {
		ids[i] = u.ID
	}
	return ids
}

// RSVPCount returns the number of confirmed RSVPs for oppID.
func (s *Store) RSVPCount(oppID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.perOpp[oppID]; ok {
		return len(st.RSVPs)
	}
	return 0
}

// ApplyPulses writes an externally computed pulse map back into per-opp
// state.
func (s *Store) ApplyPulses(pulses map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for oppID, p := range pulses {
		st := s.ensureOppLocked(oppID)
		st.Pulse = p
	}
}

// PulseHistory returns a defensive copy of an opp's bounded pulse history.
func (s *Store) PulseHistory(oppID string) []domain.PulseHistoryPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.perOpp[oppID]
	if !ok {
		return nil
	}
	return append([]domain.PulseHistoryPoint(nil), st.History...)
}

// Trending returns opp ids sorted by descending current pulse, for the
// `trending` public operation.
func (s *Store) Trending() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	type row struct {
		id    string
		pulse float64
	}
	rows := make([]row, 0, len(s.oppOrder))
	for _, id := range s.oppOrder {
		rows = append(rows, row{id, s.perOpp[id].Pulse})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].pulse != rows[j].pulse {
			return rows[i].pulse > rows[j].pulse
		}
		return rows[i].id < rows[j].id
	})
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.id
	}
	return out
}

// User and Opp are single-entity read accessors for the `explain` and
// `event-detail` public operations; they return domain.NewNotFoundError
// when absent.
func (s *Store) User(id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.NewNotFoundError("user", id)
	}
	return u, nil
}

func (s *Store) Opp(id string) (domain.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.opps[id]
	if !ok {
		return domain.Opportunity{}, domain.NewNotFoundError("opportunity", id)
	}
	return o, nil
}
