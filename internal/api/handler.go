package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"wattwise/internal"
	"wattwise/internal/market"
	"wattwise/internal/pipeline"
	"wattwise/internal/storage"
)

const (
	defaultPlanLimit = 50
	maxPlanLimit     = 500
)

type Handler struct {
	db *storage.DB
}

func NewHandler(db *storage.DB) *Handler {
	return &Handler{db: db}
}

type PlansResponse struct {
	Plans      []internal.CanonicalPlan `json:"plans"`
	Count      int                      `json:"count"`
	LastRun    string                   `json:"last_run,omitempty"`
	Disclaimer string                   `json:"disclaimer"`
}

type RunResponse struct {
	ID        string                        `json:"id"`
	Source    string                        `json:"source"`
	Status    string                        `json:"status"`
	Error     string                        `json:"error,omitempty"`
	Seen      int                           `json:"seen"`
	Accepted  int                           `json:"accepted"`
	Rejected  map[internal.RejectReason]int `json:"rejected"`
	Timings   map[string]float64            `json:"timings"`
	Published int                           `json:"published"`
	CreatedAt string                        `json:"created_at"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "driver": h.db.Driver()})
}

// ListPlans handles GET /plans?tdu=&limit=&min_score=&exclude_gotcha=.
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	q, err := parsePlanQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	plans, err := h.db.ListPlans(r.Context(), q)
	if err != nil {
		log.Error().Err(err).Msg("list plans")
		writeError(w, http.StatusInternalServerError, "failed to load plans")
		return
	}

	resp := PlansResponse{Plans: plans, Count: len(plans), Disclaimer: pipeline.ScoreDisclaimer}
	if last, err := h.db.GetMetadata(r.Context(), pipeline.MetaLastRun); err == nil && last != nil {
		resp.LastRun = *last
	}
	writeJSON(w, http.StatusOK, resp)
}

func parsePlanQuery(r *http.Request) (storage.PlanQuery, error) {
	values := r.URL.Query()
	q := storage.PlanQuery{
		Source: internal.SourcePowerToChoose,
		TDU:    strings.ToUpper(strings.TrimSpace(values.Get("tdu"))),
		Limit:  defaultPlanLimit,
	}

	if raw := values.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return q, errors.New("limit must be a positive integer")
		}
		if n > maxPlanLimit {
			n = maxPlanLimit
		}
		q.Limit = n
	}
	if raw := values.Get("min_score"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > 100 {
			return q, errors.New("min_score must be between 0 and 100")
		}
		q.MinScore = n
	}
	if raw := values.Get("exclude_gotcha"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return q, errors.New("exclude_gotcha must be a boolean")
		}
		q.ExcludeGotcha = b
	}
	return q, nil
}

func (h *Handler) LatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.db.LatestRun(r.Context())
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no runs recorded")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("latest run")
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	writeJSON(w, http.StatusOK, RunResponse{
		ID:        run.ID,
		Source:    run.Source,
		Status:    run.Status,
		Error:     run.Error,
		Seen:      run.Stats.Seen,
		Accepted:  run.Stats.Accepted,
		Rejected:  run.Stats.Rejected,
		Timings:   run.Timings,
		Published: run.Published,
		CreatedAt: run.CreatedAt,
	})
}

func (h *Handler) Market(w http.ResponseWriter, r *http.Request) {
	snap, err := market.LoadSnapshot(r.Context(), h.db)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no market data yet")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("market data")
		writeError(w, http.StatusInternalServerError, "failed to load market data")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
