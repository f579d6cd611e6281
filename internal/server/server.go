package server

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/copyleftdev/TAIGA/internal/config"
	"github.com/copyleftdev/TAIGA/internal/logging"
	"github.com/copyleftdev/TAIGA/internal/problem"
)

// Logger defines the logging interface used by the server
// This allows us to be flexible with our logging implementation
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// problemState holds one registered problem descriptor and its collaborator.
type problemState struct {
	ID          string
	Problem     *problem.Problem
	Objective   *problem.BaseObjective
	CreatedAt   time.Time
	LastUpdated time.Time
}

// Server implements the HTTP API of the problem descriptor registry. It
// manages problem descriptors and provides endpoints to create them, mutate
// their free/fixed partition, and project vectors between spaces.
type Server struct {
	cfg       *config.Config
	logger    Logger
	engineLog *zap.Logger

	// Problem registry
	problems   map[string]*problemState
	problemsMu sync.RWMutex // Protects the problems map
	idSeq      atomic.Int64
}

// NewServer creates a new server instance with the given config and logger.
// engineLog is handed to every problem so the engine's debug output shares
// the service's log sink; it may be nil.
func NewServer(cfg *config.Config, logger Logger, engineLog *zap.Logger) *Server {
	if engineLog == nil {
		engineLog = zap.NewNop()
	}
	return &Server{
		cfg:       cfg,
		logger:    logger,
		engineLog: engineLog,
		problems:  make(map[string]*problemState),
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/problems", s.handleCreate)
		r.Get("/problems/{id}", s.handleGet)
		r.Get("/problems/{id}/summary", s.handleSummary)
		r.Post("/problems/{id}/fix", s.handleFix)
		r.Post("/problems/{id}/unfix", s.handleUnfix)
		r.Post("/problems/{id}/project", s.handleProject)
		r.Delete("/problems/{id}", s.handleDelete)
	})
}

// createRequest is the JSON descriptor a problem is created from. Bounds may
// be scalars (single-element arrays broadcast to dim_full) or full vectors.
type createRequest struct {
	LB           []float64       `json:"lb"`
	UB           []float64       `json:"ub"`
	DimFull      int             `json:"dim_full,omitempty"`
	FixedIndices []int           `json:"fixed_indices,omitempty"`
	FixedValues  []float64       `json:"fixed_values,omitempty"`
	Guesses      [][]float64     `json:"guesses,omitempty"`
	Names        []string        `json:"names,omitempty"`
	Scales       []string        `json:"scales,omitempty"`
	Priors       json.RawMessage `json:"priors,omitempty"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	dimFull := req.DimFull
	if dimFull == 0 {
		dimFull = len(req.LB)
	}
	if dimFull > s.cfg.Problems.MaxDimFull {
		s.respondError(w, http.StatusBadRequest,
			fmt.Sprintf("dim_full %d exceeds limit %d", dimFull, s.cfg.Problems.MaxDimFull))
		return
	}

	var scales []problem.Scale
	if req.Scales != nil {
		scales = make([]problem.Scale, len(req.Scales))
		for i, raw := range req.Scales {
			scale, err := problem.ParseScale(raw)
			if err != nil {
				s.respondError(w, http.StatusBadRequest, err.Error())
				return
			}
			scales[i] = scale
		}
	}

	var priors any
	if len(req.Priors) > 0 {
		priors = req.Priors
	}

	objective := problem.NewBaseObjective()
	p, err := problem.New(problem.Config{
		Objective:    objective,
		LB:           req.LB,
		UB:           req.UB,
		DimFull:      req.DimFull,
		FixedIndices: req.FixedIndices,
		FixedValues:  req.FixedValues,
		Guesses:      req.Guesses,
		Names:        req.Names,
		Scales:       scales,
		Priors:       priors,
		Logger:       s.engineLog,
	})
	if err != nil {
		s.respondProblemError(w, err)
		return
	}

	id := fmt.Sprintf("prob_%d_%d", time.Now().UnixNano(), s.idSeq.Add(1))
	now := time.Now()
	state := &problemState{
		ID:          id,
		Problem:     p,
		Objective:   objective,
		CreatedAt:   now,
		LastUpdated: now,
	}

	s.problemsMu.Lock()
	if len(s.problems) >= s.cfg.Problems.MaxProblems {
		s.problemsMu.Unlock()
		s.respondError(w, http.StatusTooManyRequests,
			fmt.Sprintf("registry is full (%d problems)", s.cfg.Problems.MaxProblems))
		return
	}
	s.problems[id] = state
	s.problemsMu.Unlock()

	problemsCreated.Inc()
	s.logger.Info("Problem created", map[string]interface{}{
		"problem_id": id,
		"dim_full":   p.DimFull(),
		"dim":        p.Dim(),
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":       id,
		"dim_full": p.DimFull(),
		"dim":      p.Dim(),
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	state, ok := s.lookup(w, r)
	if !ok {
		return
	}

	s.problemsMu.RLock()
	defer s.problemsMu.RUnlock()
	p := state.Problem

	guesses := p.GuessesFull()
	guessesJSON := make([][]*float64, len(guesses))
	for i, row := range guesses {
		guessesJSON[i] = jsonFloats(row)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":            state.ID,
		"dim_full":      p.DimFull(),
		"dim":           p.Dim(),
		"free_indices":  p.FreeIndices(),
		"fixed_indices": p.FixedIndices(),
		"fixed_values":  p.FixedValues(),
		"lb_full":       p.LBFull(),
		"ub_full":       p.UBFull(),
		"lb":            p.LB(),
		"ub":            p.UB(),
		"names":         p.Names(),
		"scales":        p.Scales(),
		"guesses":       guessesJSON,
		"created_at":    state.CreatedAt.Format(time.RFC3339),
		"last_updated":  state.LastUpdated.Format(time.RFC3339),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	state, ok := s.lookup(w, r)
	if !ok {
		return
	}

	s.problemsMu.RLock()
	defer s.problemsMu.RUnlock()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_ = state.Problem.WriteSummary(w)
}

func (s *Server) handleFix(w http.ResponseWriter, r *http.Request) {
	state, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req struct {
		Indices []int     `json:"indices"`
		Values  []float64 `json:"values"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	s.problemsMu.Lock()
	defer s.problemsMu.Unlock()

	if err := state.Problem.Fix(req.Indices, req.Values); err != nil {
		s.failMutation(w, state, err)
		return
	}
	state.LastUpdated = time.Now()
	partitionMutations.WithLabelValues("fix").Inc()

	s.respondPartition(w, state)
}

func (s *Server) handleUnfix(w http.ResponseWriter, r *http.Request) {
	state, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req struct {
		Indices []int `json:"indices"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	s.problemsMu.Lock()
	defer s.problemsMu.Unlock()

	if err := state.Problem.Unfix(req.Indices); err != nil {
		s.failMutation(w, state, err)
		return
	}
	state.LastUpdated = time.Now()
	partitionMutations.WithLabelValues("unfix").Inc()

	s.respondPartition(w, state)
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	state, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req struct {
		Direction    string     `json:"direction"`
		X            []*float64 `json:"x"`
		FillForFixed []float64  `json:"fill_for_fixed,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	s.problemsMu.RLock()
	defer s.problemsMu.RUnlock()
	p := state.Problem

	x := fromJSONFloats(req.X)

	var (
		result []float64
		err    error
	)
	switch req.Direction {
	case "full":
		result, err = p.FullVector(x, req.FillForFixed)
	case "reduced":
		result, err = p.ReducedVector(x)
	default:
		s.respondError(w, http.StatusBadRequest,
			fmt.Sprintf("direction must be \"full\" or \"reduced\", got %q", req.Direction))
		return
	}
	if err != nil {
		s.respondProblemError(w, err)
		return
	}
	projectionRequests.WithLabelValues(req.Direction).Inc()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"x": jsonFloats(result),
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.problemsMu.Lock()
	_, exists := s.problems[id]
	delete(s.problems, id)
	s.problemsMu.Unlock()

	if !exists {
		s.respondError(w, http.StatusNotFound, "problem not found")
		return
	}
	problemsDeleted.Inc()
	s.logger.Info("Problem deleted", map[string]interface{}{"problem_id": id})

	w.WriteHeader(http.StatusNoContent)
}

// lookup resolves the problem referenced by the request, writing a 404 if it
// does not exist.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*problemState, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "missing problem id")
		return nil, false
	}

	s.problemsMu.RLock()
	state, exists := s.problems[id]
	s.problemsMu.RUnlock()

	if !exists {
		s.respondError(w, http.StatusNotFound, "problem not found")
		return nil, false
	}
	return state, true
}

// failMutation maps a mutation error to a response. A DimensionMismatch
// leaves the problem unusable, so the entry is dropped from the registry.
// Callers must hold the write lock.
func (s *Server) failMutation(w http.ResponseWriter, state *problemState, err error) {
	if problem.IsDimensionMismatch(err) {
		delete(s.problems, state.ID)
		s.logger.Error("Problem discarded after failed mutation", map[string]interface{}{
			"problem_id": state.ID,
			"error":      err.Error(),
		})
	}
	s.respondProblemError(w, err)
}

// respondPartition writes the post-mutation partition view.
func (s *Server) respondPartition(w http.ResponseWriter, state *problemState) {
	p := state.Problem
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":            state.ID,
		"dim":           p.Dim(),
		"free_indices":  p.FreeIndices(),
		"fixed_indices": p.FixedIndices(),
		"fixed_values":  p.FixedValues(),
	})
}

// respondProblemError translates engine error kinds to HTTP statuses.
func (s *Server) respondProblemError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	kind := "internal"
	if e, ok := problem.AsError(err); ok {
		switch e.Kind {
		case problem.KindInvalidIndex:
			status = http.StatusBadRequest
			kind = e.Kind.String()
		case problem.KindDimensionMismatch:
			status = http.StatusUnprocessableEntity
			kind = e.Kind.String()
		}
	}
	s.logger.Error("Problem operation failed", map[string]interface{}{
		"status": status,
		"kind":   kind,
		"error":  err.Error(),
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
		"kind":  kind,
	})
}

// respondError sends a plain JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.logger.Error("Request error", map[string]interface{}{
		"status":  status,
		"message": message,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": message,
	})
}

// jsonFloats converts a float slice to a JSON-safe form: NaN (which
// encoding/json rejects) becomes null.
func jsonFloats(v []float64) []*float64 {
	if v == nil {
		return nil
	}
	out := make([]*float64, len(v))
	for i := range v {
		if !math.IsNaN(v[i]) {
			f := v[i]
			out[i] = &f
		}
	}
	return out
}

// fromJSONFloats is the inverse of jsonFloats: null becomes NaN.
func fromJSONFloats(v []*float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	for i := range v {
		if v[i] == nil {
			out[i] = math.NaN()
		} else {
			out[i] = *v[i]
		}
	}
	return out
}

// Close clears the registry.
func (s *Server) Close() error {
	s.problemsMu.Lock()
	defer s.problemsMu.Unlock()
	s.problems = make(map[string]*problemState)
	return nil
}
