package dashboard

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tradewind-erp/tradewind-erp/internal/platform/httpx"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes serves the aggregated dashboard payload.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.summary)
	return r
}

// ReportRoutes serves the stock report and its export.
func (h *Handler) ReportRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/stock", h.lowStock)
	r.Get("/stock/export", h.exportLowStock)
	return r
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.LowStock(r.Context(), int(httpx.QueryID(r, "limit")))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": items})
}

func (h *Handler) exportLowStock(w http.ResponseWriter, r *http.Request) {
	payload, filename, err := h.service.ExportLowStock(r.Context(), r.URL.Query().Get("lang"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}
