package resident

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/barangay-rbi/registry/internal/sectoral"
	"github.com/barangay-rbi/registry/internal/shared/auth"
	"github.com/barangay-rbi/registry/internal/shared/errors"
	"github.com/barangay-rbi/registry/internal/shared/httpx"
	"github.com/barangay-rbi/registry/internal/shared/types"
)

// Handler provides HTTP handlers for the resident module
type Handler struct {
	svc *Service
}

// NewHandler creates a new resident handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes registers the resident routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	write := auth.RequireRoles(auth.RoleAdmin, auth.RoleEncoder)

	r.Get("/", h.List)
	r.With(write).Post("/", h.Create)
	r.Get("/export", h.Export)
	r.Post("/sectoral/preview", h.Preview)

	r.Route("/{residentID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.With(write).Put("/", h.Update)
		r.With(write).Delete("/", h.Delete)
		r.With(write).Patch("/sectoral", h.UpdateManualFlags)
	})

	return r
}

func listFilter(r *http.Request) ListFilter {
	q := r.URL.Query()
	return ListFilter{
		BarangayCode:  q.Get("barangay"),
		HouseholdCode: q.Get("household"),
		Search:        q.Get("q"),
		Sector:        q.Get("sector"),
		Limit:         httpx.QueryInt(r, "limit", 0),
		Offset:        httpx.QueryInt(r, "offset", 0),
	}
}

func residentID(r *http.Request) (types.ID, error) {
	id, err := types.ParseID(chi.URLParam(r, "residentID"))
	if err != nil {
		return "", errors.BadRequest("invalid resident ID")
	}
	return id, nil
}

// List handles GET /residents
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	residents, total, err := h.svc.List(r.Context(), listFilter(r), auth.GetUser(r.Context()))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if residents == nil {
		residents = []Resident{}
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"data":  residents,
		"total": total,
	})
}

// Create handles POST /residents
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	res, err := h.svc.Create(r.Context(), req, auth.GetUser(r.Context()))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"data": res})
}

// Get handles GET /residents/{residentID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := residentID(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	res, err := h.svc.Get(r.Context(), id, auth.GetUser(r.Context()))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"data": res})
}

// Update handles PUT /residents/{residentID}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := residentID(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	var req Request
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	res, err := h.svc.Update(r.Context(), id, req, auth.GetUser(r.Context()))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"data": res})
}

// UpdateManualFlags handles PATCH /residents/{residentID}/sectoral
func (h *Handler) UpdateManualFlags(w http.ResponseWriter, r *http.Request) {
	id, err := residentID(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	var manual sectoral.Manual
	if err := httpx.DecodeJSON(r, &manual); err != nil {
		httpx.WriteError(w, err)
		return
	}

	res, err := h.svc.UpdateManualFlags(r.Context(), id, manual, auth.GetUser(r.Context()))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"data": res})
}

// Delete handles DELETE /residents/{residentID}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := residentID(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	if err := h.svc.Delete(r.Context(), id, auth.GetUser(r.Context())); err != nil {
		httpx.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Preview handles POST /residents/sectoral/preview
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"data": h.svc.Preview(req)})
}

// Export handles GET /residents/export, streaming an xlsx workbook
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	filter := listFilter(r)

	// render to a buffer first so errors can still produce a JSON response
	var buf bytes.Buffer
	if err := h.svc.Export(r.Context(), filter, auth.GetUser(r.Context()), &buf); err != nil {
		httpx.WriteError(w, err)
		return
	}

	name := "rbi"
	if filter.BarangayCode != "" {
		name += "-" + filter.BarangayCode
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(name+".xlsx"))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
