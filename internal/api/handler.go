package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/opensource-finance/propvest/internal/advisor"
	"github.com/opensource-finance/propvest/internal/domain"
	"github.com/opensource-finance/propvest/internal/repository"
)

const maxBodyBytes = 1 << 20

// Handler holds dependencies for API handlers.
type Handler struct {
	svc     *advisor.Service
	version string
}

// NewHandler creates a new API handler.
func NewHandler(svc *advisor.Service, version string) *Handler {
	return &Handler{svc: svc, version: version}
}

type errorBody struct {
	Error string `json:"error"`
}

// CompareRequest is the request body for POST /compare. The profile is optional.
type CompareRequest struct {
	PropertyIDs []string `json:"propertyIds"`
	domain.ProfileRef
}

// Health handles GET /health. Backend failures degrade the status but never
// fail the probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if err := h.svc.Ready(r.Context()); err != nil {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready handles GET /ready.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ready(r.Context()); err != nil {
		log.Warn().Err(err).Msg("readiness check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"ready": "false"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ready": "true"})
}

// ListProperties handles GET /properties. Each property carries its metrics.
func (h *Handler) ListProperties(w http.ResponseWriter, r *http.Request) {
	properties, err := h.svc.Listings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"properties": properties,
		"count":      len(properties),
	})
}

// CreateProperty handles POST /properties.
func (h *Handler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	var p domain.Property
	if !decode(w, r, &p) {
		return
	}
	if err := h.svc.AddProperty(r.Context(), &p); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// GetProperty handles GET /properties/{id}.
func (h *Handler) GetProperty(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Property(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ListProfiles handles GET /profiles.
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.svc.Profiles(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"profiles": profiles,
		"count":    len(profiles),
	})
}

// CreateProfile handles POST /profiles.
func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var p domain.InvestorProfile
	if !decode(w, r, &p) {
		return
	}
	if err := h.svc.SaveProfile(r.Context(), &p); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// GetProfile handles GET /profiles/{id}. The id may be a preset key.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Profile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Recommend handles POST /recommendations.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req advisor.RecommendRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.Recommend(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// History handles GET /recommendations/history?limit=N.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be an integer"})
			return
		}
		limit = n
	}

	runs, err := h.svc.History(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// Compare handles POST /compare.
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if !decode(w, r, &req) {
		return
	}

	var ref *domain.ProfileRef
	if !req.ProfileRef.Empty() {
		ref = &req.ProfileRef
	}

	cmp, err := h.svc.Compare(r.Context(), req.PropertyIDs, ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

// Analytics handles GET /analytics.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Analytics(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON request body"})
		return false
	}
	return true
}

// statusFor maps engine and repository errors onto HTTP statuses.
func statusFor(err error) int {
	var (
		verr *domain.ValidationError
		perr *domain.InvalidPropertyError
		cerr *domain.InvalidComparisonError
	)
	switch {
	case errors.As(err, &verr), errors.As(err, &perr), errors.As(err, &cerr):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("path", r.URL.Path).
			Str("trace_id", GetTraceID(r.Context())).
			Msg("request failed")
		writeJSON(w, status, errorBody{Error: "internal server error"})
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// writeJSON encodes before writing the header so an unencodable value turns
// into a 500 instead of a truncated success.
func writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Int("status", status).Msg("failed to encode response")
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorBody{Error: "internal server error"})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}
