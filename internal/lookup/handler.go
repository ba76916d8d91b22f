package lookup

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/barangay-rbi/registry/internal/shared/httpx"
)

// Handler serves option lists.
type Handler struct {
	catalog *Catalog
}

func NewHandler(catalog *Catalog) *Handler {
	return &Handler{catalog: catalog}
}

// Routes registers GET / and GET /{kind}.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"data": h.catalog.Kinds()})
	})
	r.Get("/{kind}", h.Options)
	return r
}

// Options handles GET /options/{kind}?q=
func (h *Handler) Options(w http.ResponseWriter, r *http.Request) {
	opts, err := h.catalog.Options(chi.URLParam(r, "kind"), r.URL.Query().Get("q"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"data": opts})
}
