package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/opendoor-marketplace/matchengine/internal/domain"
	"github.com/opendoor-marketplace/matchengine/internal/engine"
)

// writeEngineError maps the engine's sentinel error kinds onto HTTP status
// codes. RSVP saturation is a structured response, never an error, and has
// no mapping here.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrPrecondition):
		s.writeError(w, http.StatusBadRequest, "precondition_not_met", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrInfeasible):
		s.writeError(w, http.StatusBadRequest, "infeasible", err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

type solveRequestBody struct {
	UserIDFilter       string             `json:"user_id,omitempty"`
	TopKAlternatives   int                `json:"top_k_alternatives,omitempty"`
	ApplyFairness      bool               `json:"apply_fairness,omitempty"`
	FairnessLambda     *float64           `json:"fairness_lambda,omitempty"`
	LiquidityK         *float64           `json:"liquidity_k,omitempty"`
	RecordPulseHistory bool               `json:"record_pulse_history,omitempty"`
	Weights            map[string]float64 `json:"weights,omitempty"`
}

func (b solveRequestBody) toEngineRequest() engine.SolveRequest {
	return engine.SolveRequest{
		WeightOverrides:    b.Weights,
		LiquidityKOver:     b.LiquidityK,
		UserIDFilter:       b.UserIDFilter,
		TopKAlternatives:   b.TopKAlternatives,
		ApplyFairness:      b.ApplyFairness,
		FairnessLambdaOver: b.FairnessLambda,
		RecordPulseHistory: b.RecordPulseHistory,
	}
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	var body solveRequestBody
	_ = json.NewDecoder(r.Body).Decode(&body)

	resp, err := s.eng.Solve(body.toEngineRequest())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if s.cache != nil {
		s.cache.Invalidate(r.Context(), "trending")
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRebalance(w http.ResponseWriter, r *http.Request) {
	var body solveRequestBody
	_ = json.NewDecoder(r.Body).Decode(&body)

	resp, err := s.eng.Rebalance(body.toEngineRequest(), 5)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if s.cache != nil {
		s.cache.Invalidate(r.Context(), "trending")
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type feedbackRequestBody struct {
	UserID string           `json:"user_id"`
	OppID  string           `json:"opp_id"`
	Event  domain.EventType `json:"event"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var body feedbackRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed_body", err.Error())
		return
	}
	if err := s.eng.Feedback(body.UserID, body.OppID, body.Event); err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

type rsvpRequestBody struct {
	UserID string `json:"user_id"`
	OppID  string `json:"opp_id"`
}

func (s *Server) handleRSVP(w http.ResponseWriter, r *http.Request) {
	var body rsvpRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed_body", err.Error())
		return
	}
	result, err := s.eng.RSVP(body.UserID, body.OppID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleUpsertUser(w http.ResponseWriter, r *http.Request) {
	var u domain.User
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed_body", err.Error())
		return
	}
	s.eng.UpsertUser(u)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "upserted"})
}

type seedRequestBody struct {
	Path string `json:"path"`
}

func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	var body seedRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed_body", err.Error())
		return
	}
	if err := s.eng.Seed(body.Path); err != nil {
		s.writeError(w, http.StatusBadRequest, "io_failure", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "seeded"})
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	cacheKey := "feed:" + userID
	if s.cache != nil {
		var cached domain.Recommendation
		if s.cache.Get(r.Context(), cacheKey, &cached) {
			s.writeJSON(w, http.StatusOK, cached)
			return
		}
	}
	rec, err := s.eng.Feed(userID, 0)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if s.cache != nil {
		s.cache.Set(r.Context(), cacheKey, rec)
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	if s.cache != nil {
		var cached []string
		if s.cache.Get(r.Context(), "trending", &cached) {
			s.writeJSON(w, http.StatusOK, map[string]any{"opp_ids": cached})
			return
		}
	}
	trending := s.eng.Trending()
	if s.cache != nil {
		s.cache.Set(r.Context(), "trending", trending)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"opp_ids": trending})
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	exp, err := s.eng.Explain(vars["userID"], vars["oppID"])
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, exp)
}

func (s *Server) handleStateSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.eng.StateSnapshot()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"users":           snap.Users,
		"opps":            snap.Opps,
		"last_assignment": snap.LastAssignment,
	})
}

func (s *Server) handleEventDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := s.eng.Detail(mux.Vars(r)["oppID"])
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, detail)
}
