// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/convertline/convertline/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807. Unknown errors are
// logged and reported as 500 without detail.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	code := shared.RejectionCode(err)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", code, err.Error())
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrInvalidQueryParameters):
		Problem(w, http.StatusBadRequest, "Validation Failed", code, err.Error())
	case errors.Is(err, shared.ErrDuplicate),
		errors.Is(err, shared.ErrInvalidTransition),
		errors.Is(err, shared.ErrOrderNotReady),
		errors.Is(err, shared.ErrDependencyConflict):
		Problem(w, http.StatusConflict, "Conflict", code, err.Error())
	case code != "":
		Problem(w, http.StatusUnprocessableEntity, "Rejected", code, err.Error())
	default:
		if logger != nil {
			logger.Error("request failed", slog.Any("error", err))
		}
		Problem(w, http.StatusInternalServerError, "Internal Error", "", "")
	}
}
