package psgc

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/barangay-rbi/registry/internal/shared/config"
	"github.com/barangay-rbi/registry/internal/shared/errors"
	"github.com/barangay-rbi/registry/internal/shared/httpx"
	"github.com/barangay-rbi/registry/internal/shared/types"
)

// Handler provides HTTP handlers for the PSGC module
type Handler struct {
	svc *Service
	cfg config.SearchConfig
}

// NewHandler creates a new PSGC handler
func NewHandler(svc *Service, cfg config.SearchConfig) *Handler {
	return &Handler{svc: svc, cfg: cfg}
}

// Routes registers the PSGC routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/search", h.Search)
	r.Get("/{code}", h.Get)
	return r
}

// Search handles GET /psgc/search?q=&level=&parent=&limit=
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	level, err := ParseLevel(r.URL.Query().Get("level"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	params := SearchParams{
		Query: r.URL.Query().Get("q"),
		Level: level,
		Limit: httpx.ClampLimit(httpx.QueryInt(r, "limit", 0), h.cfg.DefaultLimit, h.cfg.MaxLimit),
	}
	if parent := r.URL.Query().Get("parent"); parent != "" {
		code, err := types.ParsePSGCCode(parent)
		if err != nil {
			httpx.WriteError(w, errors.BadRequest("invalid parent code"))
			return
		}
		params.ParentCode = code
	}

	records, err := h.svc.Search(r.Context(), params)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"data": records})
}

// Get handles GET /psgc/{code}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	record, err := h.svc.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"data": record})
}
