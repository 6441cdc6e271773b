package siting

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sustainasite/sustainasite-backend/internal/siting/provider"
)

// Handler serves the siting endpoints over a Pipeline.
type Handler struct {
	pipeline *Pipeline
}

func NewHandler(p *Pipeline) *Handler {
	return &Handler{pipeline: p}
}

func decodeRequest(r *http.Request) (Request, error) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, err
	}
	req.Address = strings.TrimSpace(req.Address)
	return req, nil
}

type bboxResponse struct {
	Address  string               `json:"address"`
	RadiusKM float64              `json:"radius_km"`
	BBox     provider.BoundingBox `json:"bbox"`
	Center   provider.Point       `json:"center"`
}

// ResolveBoundingBox handles POST /sites/bbox.
func (h *Handler) ResolveBoundingBox(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	bbox, center, err := h.pipeline.Resolve(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, bboxResponse{Address: req.Address, RadiusKM: req.RadiusKM, BBox: bbox, Center: center})
}

// GetOverlays handles POST /sites/overlays.
func (h *Handler) GetOverlays(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.pipeline.Overlays(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	addServerTiming(w, res.ServerTiming()...)
	writeJSON(w, struct {
		BBox     provider.BoundingBox `json:"bbox"`
		Center   provider.Point       `json:"center"`
		Overlays Overlays             `json:"overlays"`
	}{res.BBox, res.Center, res.Overlays})
}

// RankSites handles POST /sites/rank.
func (h *Handler) RankSites(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.pipeline.Run(r.Context(), req, nil)
	if err != nil {
		writeError(w, r, err)
		return
	}

	addServerTiming(w, res.ServerTiming()...)
	writeJSON(w, res)
}

// ListRuns handles GET /sites/runs?limit=N.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	rec := h.pipeline.Recorder()
	if rec == nil {
		writeError(w, r, ErrRecordingDisabled)
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := rec.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, runs)
}

// GetRun handles GET /sites/runs/{id}.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	rec := h.pipeline.Recorder()
	if rec == nil {
		writeError(w, r, ErrRecordingDisabled)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid id format", http.StatusBadRequest)
		return
	}

	run, err := rec.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, run)
}
