// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/khovattu/khovattu/internal/shared"
)

// detailed errors contribute RFC7807 extension members.
type detailed interface {
	ProblemDetails() map[string]any
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, title := classify(err)
	problem := ProblemDetail{Title: title, Status: status}
	if status != http.StatusInternalServerError {
		problem.Detail = err.Error()
		var d detailed
		if errors.As(err, &d) {
			problem.Extensions = d.ProblemDetails()
		}
	} else if logger != nil {
		logger.Error("request failed", slog.Any("error", err))
	}
	JSON(w, status, problem)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, shared.ErrConflict):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest, "Validation Failed"
	case errors.Is(err, shared.ErrInvalidState):
		return http.StatusConflict, "Invalid State"
	case errors.Is(err, shared.ErrShortage):
		return http.StatusUnprocessableEntity, "Insufficient Stock"
	case errors.Is(err, shared.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}
