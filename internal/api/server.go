// Package api exposes pkg/dag's query surface and ingest entry point
// over HTTP, using the teacher's gorilla/mux server shape
// (internal/api/server.go in the teacher repo): a router built once in
// NewServer, a pair of respond/error helpers, and Start/Stop wrapping
// http.Server's ListenAndServe/Shutdown.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/rechain/deltasync/pkg/dag"
	"github.com/rechain/deltasync/pkg/delta"
	"github.com/rechain/deltasync/pkg/hlc"
	"github.com/rechain/deltasync/pkg/id"
)

// ContentHasher reports the current Merkle root over persisted
// application state, satisfied by internal/store.BadgerApplier.
type ContentHasher interface {
	RootHash() string
}

// Server serves the spec's query surface (get_heads, get_delta,
// has_delta, is_applied, get_missing_parents, pending_stats,
// get_deltas_since) plus an ingest endpoint for add_delta, backed by a
// dag.Locked so concurrent HTTP handlers never race the engine.
type Server struct {
	store   *dag.Locked
	applier dag.Applier
	hasher  ContentHasher
	logger  *zap.Logger

	softLimit, hardLimit int

	httpServer *http.Server
	router     *mux.Router
}

// NewServer wires a Server against a locked DAG store, the applier
// invoked for every ingested delta, and the soft/hard pending
// backpressure thresholds from configuration (spec.md §6).
func NewServer(store *dag.Locked, applier dag.Applier, hasher ContentHasher, logger *zap.Logger, softLimit, hardLimit int) *Server {
	s := &Server{
		store:     store,
		applier:   applier,
		hasher:    hasher,
		logger:    logger,
		softLimit: softLimit,
		hardLimit: hardLimit,
		router:    mux.NewRouter(),
	}
	s.routes()
	return s
}

// Start runs the HTTP server, blocking until it stops.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}
	s.logger.Info("api server starting", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Handler returns the server's router, for tests that drive it with
// httptest rather than a bound listener.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Stop gracefully shuts the HTTP server down.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/deltas", s.handleAddDelta).Methods("POST")
	s.router.HandleFunc("/deltas/{id}", s.handleGetDelta).Methods("GET")
	s.router.HandleFunc("/deltas/{id}/has", s.handleHasDelta).Methods("GET")
	s.router.HandleFunc("/deltas/{id}/applied", s.handleIsApplied).Methods("GET")
	s.router.HandleFunc("/deltas/{id}/missing-parents", s.handleMissingParentsOf).Methods("GET")
	s.router.HandleFunc("/deltas/{id}/retry", s.handleRetry).Methods("POST")
	s.router.HandleFunc("/heads", s.handleGetHeads).Methods("GET")
	s.router.HandleFunc("/missing-parents", s.handleMissingParents).Methods("GET")
	s.router.HandleFunc("/deltas-since", s.handleGetDeltasSince).Methods("GET")
	s.router.HandleFunc("/stats", s.handleStats).Methods("GET")
	s.router.HandleFunc("/content-hash", s.handleContentHash).Methods("GET")
}

func (s *Server) respond(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encode response", zap.Error(err))
	}
}

func (s *Server) error(w http.ResponseWriter, err error, status int) {
	s.respond(w, map[string]string{"error": err.Error()}, status)
}

func (s *Server) pathID(r *http.Request) (id.ID, error) {
	raw := mux.Vars(r)["id"]
	return id.FromHex(raw)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, map[string]string{"status": "healthy"}, http.StatusOK)
}

// wireDelta is the JSON encoding of delta.Delta for the HTTP surface.
type wireDelta struct {
	ID      id.ID   `json:"id"`
	Parents []id.ID `json:"parents"`
	HLC     hlcWire `json:"hlc"`
	Payload []byte  `json:"payload"`
}

type hlcWire struct {
	Physical int64  `json:"physical"`
	Logical  uint32 `json:"logical"`
	Author   id.ID  `json:"author"`
}

func toWire(d delta.Delta) wireDelta {
	return wireDelta{
		ID:      d.ID,
		Parents: d.Parents,
		HLC:     hlcWire{Physical: d.HLC.Physical, Logical: d.HLC.Logical, Author: d.HLC.Author},
		Payload: d.Payload,
	}
}

func fromWire(w wireDelta) delta.Delta {
	return delta.New(w.ID, w.Parents, w.Payload, hlc.New(w.HLC.Physical, w.HLC.Logical, w.HLC.Author))
}

func (s *Server) handleAddDelta(w http.ResponseWriter, r *http.Request) {
	var wd wireDelta
	if err := json.NewDecoder(r.Body).Decode(&wd); err != nil {
		s.error(w, err, http.StatusBadRequest)
		return
	}

	applied, err := s.store.AddDelta(r.Context(), fromWire(wd), s.applier)
	if err != nil {
		s.error(w, fmt.Errorf("add_delta: %w", err), http.StatusUnprocessableEntity)
		return
	}
	s.respond(w, map[string]interface{}{"applied": applied}, http.StatusAccepted)
}

func (s *Server) handleGetDelta(w http.ResponseWriter, r *http.Request) {
	target, err := s.pathID(r)
	if err != nil {
		s.error(w, err, http.StatusBadRequest)
		return
	}
	d, ok := s.store.GetDelta(target)
	if !ok {
		s.error(w, fmt.Errorf("delta not found"), http.StatusNotFound)
		return
	}
	s.respond(w, toWire(d), http.StatusOK)
}

func (s *Server) handleHasDelta(w http.ResponseWriter, r *http.Request) {
	target, err := s.pathID(r)
	if err != nil {
		s.error(w, err, http.StatusBadRequest)
		return
	}
	s.respond(w, map[string]bool{"has_delta": s.store.HasDelta(target)}, http.StatusOK)
}

func (s *Server) handleIsApplied(w http.ResponseWriter, r *http.Request) {
	target, err := s.pathID(r)
	if err != nil {
		s.error(w, err, http.StatusBadRequest)
		return
	}
	s.respond(w, map[string]bool{"is_applied": s.store.IsApplied(target)}, http.StatusOK)
}

// handleMissingParentsOf serves get_missing_parents for a single delta
// (what one record still needs before it can be applied).
func (s *Server) handleMissingParentsOf(w http.ResponseWriter, r *http.Request) {
	target, err := s.pathID(r)
	if err != nil {
		s.error(w, err, http.StatusBadRequest)
		return
	}
	missing, known := s.store.GetMissingParentsOf(target)
	if !known {
		s.error(w, fmt.Errorf("delta not found"), http.StatusNotFound)
		return
	}
	s.respond(w, map[string][]id.ID{"missing_parents": missing}, http.StatusOK)
}

// handleMissingParents serves the global get_missing_parents() (spec.md
// §4.5, §6): everything referenced as a parent across the whole
// pending set that the store has never recorded, the set a host should
// fetch from peers to make progress.
func (s *Server) handleMissingParents(w http.ResponseWriter, r *http.Request) {
	s.respond(w, map[string][]id.ID{"missing_parents": s.store.GetMissingParents()}, http.StatusOK)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	target, err := s.pathID(r)
	if err != nil {
		s.error(w, err, http.StatusBadRequest)
		return
	}
	if err := s.store.Retry(r.Context(), target, s.applier); err != nil {
		s.error(w, err, http.StatusUnprocessableEntity)
		return
	}
	s.respond(w, map[string]string{"status": "applied"}, http.StatusOK)
}

func (s *Server) handleGetHeads(w http.ResponseWriter, r *http.Request) {
	s.respond(w, map[string][]id.ID{"heads": s.store.GetHeads()}, http.StatusOK)
}

func (s *Server) handleGetDeltasSince(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	since, err := parseIDList(q.Get("since"))
	if err != nil {
		s.error(w, fmt.Errorf("since: %w", err), http.StatusBadRequest)
		return
	}
	cursor, err := parseIDList(q.Get("cursor"))
	if err != nil {
		s.error(w, fmt.Errorf("cursor: %w", err), http.StatusBadRequest)
		return
	}

	limit := 100
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.error(w, fmt.Errorf("limit: invalid"), http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	deltas, nextCursor := s.store.GetDeltasSince(since, cursor, limit)
	wire := make([]wireDelta, len(deltas))
	for i, d := range deltas {
		wire[i] = toWire(d)
	}
	s.respond(w, map[string]interface{}{
		"deltas":      wire,
		"next_cursor": nextCursor,
	}, http.StatusOK)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.store.PendingStats(time.Now())
	s.respond(w, map[string]interface{}{
		"count":                 stats.Count,
		"total_missing_parents": stats.TotalMissingParents,
		"oldest_age_seconds":    stats.OldestAge.Seconds(),
		"newest_age_seconds":    stats.NewestAge.Seconds(),
		"backpressure":          backpressureLevel(stats.Count, s.softLimit, s.hardLimit),
	}, http.StatusOK)
}

func (s *Server) handleContentHash(w http.ResponseWriter, r *http.Request) {
	s.respond(w, map[string]string{"root_hash": s.hasher.RootHash()}, http.StatusOK)
}

// backpressureLevel turns the advisory soft/hard pending thresholds
// (spec.md §6, "no in-engine enforcement") into a signal a gossip host
// can act on.
func backpressureLevel(count, soft, hard int) string {
	switch {
	case count >= hard:
		return "hard"
	case count >= soft:
		return "soft"
	default:
		return "none"
	}
}

func parseIDList(raw string) ([]id.ID, error) {
	if raw == "" {
		return nil, nil
	}
	var parts []string
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == ',' {
			parts = append(parts, raw[start:i])
			start = i + 1
		}
	}
	out := make([]id.ID, 0, len(parts))
	for _, p := range parts {
		parsed, err := id.FromHex(p)
		if err != nil {
			return nil, err
		}
		out = append(out, parsed)
	}
	return out, nil
}
