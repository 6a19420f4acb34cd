package inventory

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tradewind-erp/tradewind-erp/internal/platform/httpx"
)

type Handler struct {
	service  *Service
	validate *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.levels)
	r.Get("/movements", h.movements)
	r.Post("/adjust", h.adjust)
	return r
}

func (h *Handler) levels(w http.ResponseWriter, r *http.Request) {
	filters := LevelFilters{
		WarehouseID: httpx.QueryID(r, "warehouse_id"),
		ProductID:   httpx.QueryID(r, "product_id"),
		LowStock:    r.URL.Query().Get("low_stock") == "true",
		Query:       httpx.ListQuery(r),
	}
	levels, meta, err := h.service.Levels(r.Context(), filters)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": levels, "pagination": meta})
}

func (h *Handler) movements(w http.ResponseWriter, r *http.Request) {
	filters := MovementFilters{
		WarehouseID: httpx.QueryID(r, "warehouse_id"),
		ProductID:   httpx.QueryID(r, "product_id"),
		Query:       httpx.ListQuery(r),
	}
	if raw := r.URL.Query().Get("type"); raw != "" {
		mt, err := ParseMovementType(raw)
		if err != nil {
			httpx.RespondError(w, r, err)
			return
		}
		filters.Type = mt
	}
	movements, meta, err := h.service.Movements(r.Context(), filters)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": movements, "pagination": meta})
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	var input AdjustInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	result, err := h.service.Adjust(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
