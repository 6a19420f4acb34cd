package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Transaction failures fall through to 500 and are safe to retry; cache
// failures never reach this point (they are logged and swallowed).
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrInvalidTransition):
		Problem(w, http.StatusUnprocessableEntity, "Invalid Transition", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		// Internal details stay server-side; the response carries none.
		slog.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
