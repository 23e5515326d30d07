package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jdziat/simple-refresh/pkg/activity"
	"github.com/jdziat/simple-refresh/pkg/coordinator"
	"github.com/jdziat/simple-refresh/pkg/core"
	"github.com/jdziat/simple-refresh/pkg/storage"
)

// maxBodySize bounds request bodies on the POST endpoints.
const maxBodySize = 64 << 10

// Coordinator is the part of the coordinator the API drives.
type Coordinator interface {
	NoteActivity()
	ResumeNow()
	IsPaused() bool
	Status() coordinator.Status
	Trigger(ctx context.Context, kind core.Kind) (core.Outcome, error)
}

// ActivityResponse is returned by POST /activity.
type ActivityResponse struct {
	Noted  bool `json:"noted"`
	Paused bool `json:"paused"`
}

// MutationRequest reports a finished create/update/delete.
type MutationRequest struct {
	Method string `json:"method"`
	Status int    `json:"status"`
}

// MutationResponse is returned by POST /mutations.
type MutationResponse struct {
	Resumed bool `json:"resumed"`
	Paused  bool `json:"paused"`
}

// RefreshResponse is returned by POST /refresh/{kind}.
type RefreshResponse struct {
	Kind    core.Kind    `json:"kind"`
	Outcome core.Outcome `json:"outcome"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	coordinator.Status
	Scope    activity.Scope `json:"scope"`
	Activity activity.Stats `json:"activity"`
}

// SnapshotResponse is returned by GET /snapshots/{kind}.
type SnapshotResponse struct {
	Kind      string          `json:"kind"`
	AppliedAt time.Time       `json:"applied_at"`
	Bytes     int             `json:"bytes"`
	Payload   json.RawMessage `json:"payload"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

type server struct {
	coord   Coordinator
	tracker *activity.Tracker
	storage storage.Storage
	logger  *slog.Logger
}

// Handler creates an http.Handler for the refresh API.
//
// Usage:
//
//	mux.Handle("/refresh/", http.StripPrefix("/refresh", api.Handler(coord)))
func Handler(coord Coordinator, opts ...Option) http.Handler {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt.apply(cfg)
	}
	if cfg.tracker == nil {
		cfg.tracker = activity.NewTracker(coord, activity.WithLogger(cfg.logger))
	}

	s := &server{
		coord:   coord,
		tracker: cfg.tracker,
		storage: cfg.storage,
		logger:  cfg.logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	for _, mw := range cfg.middleware {
		r.Use(mw)
	}

	r.Post("/activity", s.postActivity)
	r.Post("/resume", s.postResume)
	r.Post("/mutations", s.postMutation)
	r.Get("/status", s.getStatus)
	r.Post("/refresh/{kind}", s.postRefresh)

	if cfg.metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.metrics)
	}
	if s.storage != nil {
		r.Get("/snapshots/{kind}", s.getSnapshot)
		r.Get("/stats", s.getStats)
	}

	return r
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *server) postActivity(w http.ResponseWriter, r *http.Request) {
	var ev activity.Event
	if err := decodeBody(w, r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	noted := s.tracker.Observe(ev)
	writeJSON(w, http.StatusAccepted, ActivityResponse{Noted: noted, Paused: s.coord.IsPaused()})
}

func (s *server) postResume(w http.ResponseWriter, _ *http.Request) {
	s.coord.ResumeNow()
	writeJSON(w, http.StatusOK, MutationResponse{Resumed: true, Paused: s.coord.IsPaused()})
}

func (s *server) postMutation(w http.ResponseWriter, r *http.Request) {
	var req MutationRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Method == "" || req.Status == 0 {
		writeError(w, http.StatusBadRequest, errors.New("method and status are required"))
		return
	}
	resumed := s.tracker.MutationCompleted(req.Method, req.Status)
	writeJSON(w, http.StatusOK, MutationResponse{Resumed: resumed, Paused: s.coord.IsPaused()})
}

func (s *server) getStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:   s.coord.Status(),
		Scope:    s.tracker.Scope(),
		Activity: s.tracker.Stats(),
	})
}

func (s *server) postRefresh(w http.ResponseWriter, r *http.Request) {
	kind := core.Kind(chi.URLParam(r, "kind"))

	// The fetch outlives the request.
	outcome, err := s.coord.Trigger(context.WithoutCancel(r.Context()), kind)
	if errors.Is(err, core.ErrUnknownKind) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	code := http.StatusOK
	switch outcome {
	case core.OutcomeStarted:
		code = http.StatusAccepted
	case core.OutcomeSkippedClosed:
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, RefreshResponse{Kind: kind, Outcome: outcome})
}

func (s *server) getSnapshot(w http.ResponseWriter, r *http.Request) {
	kind := core.Kind(chi.URLParam(r, "kind"))

	snap, err := s.storage.GetSnapshot(r.Context(), kind)
	if errors.Is(err, storage.ErrSnapshotNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.logger.Error("failed to load snapshot", "kind", string(kind), "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("failed to load snapshot"))
		return
	}

	writeJSON(w, http.StatusOK, SnapshotResponse{
		Kind:      snap.Kind,
		AppliedAt: snap.AppliedAt,
		Bytes:     snap.Bytes,
		Payload:   json.RawMessage(snap.Payload),
	})
}

// getStats serves ?kind=&since=. since is RFC 3339 or a duration back from
// now; it defaults to one hour.
func (s *server) getStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind := core.Kind(q.Get("kind"))

	since, err := parseSince(q.Get("since"), time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	stats, err := s.storage.GetStatsHistory(r.Context(), kind, since, time.Time{})
	if err != nil {
		s.logger.Error("failed to load stats", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("failed to load stats"))
		return
	}
	if stats == nil {
		stats = []storage.RefreshStat{}
	}
	writeJSON(w, http.StatusOK, stats)
}

func parseSince(v string, now time.Time) (time.Time, error) {
	if v == "" {
		return now.Add(-time.Hour), nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, errors.New("since must be a duration or RFC 3339 time")
	}
	return t, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, ErrorResponse{Error: err.Error()})
}
