package psoc

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/barangay-rbi/registry/internal/shared/auth"
	"github.com/barangay-rbi/registry/internal/shared/config"
	"github.com/barangay-rbi/registry/internal/shared/httpx"
)

// Handler provides HTTP handlers for the PSOC module
type Handler struct {
	svc *Service
	cfg config.SearchConfig
}

// NewHandler creates a new PSOC handler
func NewHandler(svc *Service, cfg config.SearchConfig) *Handler {
	return &Handler{svc: svc, cfg: cfg}
}

// Routes registers the PSOC routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/search", h.Search)
	r.Get("/{code}", h.Get)
	r.With(auth.RequireRoles(auth.RoleAdmin, auth.RoleEncoder)).Post("/", h.Create)
	return r
}

// Search handles GET /psoc/search?q=&limit=
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	limit := httpx.ClampLimit(httpx.QueryInt(r, "limit", 0), h.cfg.DefaultLimit, h.cfg.MaxLimit)

	records, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"data": records})
}

// Get handles GET /psoc/{code}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	record, err := h.svc.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"data": record})
}

// Create handles POST /psoc, answering {data: option}
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	opt, err := h.svc.CreateCustom(r.Context(), req.Title, auth.GetUser(r.Context()))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"data": opt})
}
