// Package respond writes handler results and maps domain errors onto HTTP
// status codes.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/lexledger/internal/attachment"
	"github.com/MrJamesThe3rd/lexledger/internal/database"
	"github.com/MrJamesThe3rd/lexledger/internal/expense"
	"github.com/MrJamesThe3rd/lexledger/internal/tenant"
)

// ErrBadRequest marks malformed client input.
var ErrBadRequest = errors.New("bad request")

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Status returns the HTTP status for err.
func Status(err error) int {
	var constraint *database.ConstraintError

	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, expense.ErrInvalidCursor):
		return http.StatusBadRequest
	case errors.Is(err, tenant.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &constraint):
		if constraint.Kind == database.ConstraintCheck || constraint.Kind == database.ConstraintNotNull {
			return http.StatusUnprocessableEntity
		}

		return http.StatusConflict
	case errors.Is(err, database.ErrNotDeleted), errors.Is(err, attachment.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, attachment.ErrExpired):
		return http.StatusGone
	}

	return http.StatusInternalServerError
}

// Error writes err with its mapped status. Internal errors are logged and
// their text is not sent to the client.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := Status(err)

	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		http.Error(w, "internal error", status)

		return
	}

	http.Error(w, err.Error(), status)
}

// Target returns the request's caller and the id in the URL parameter param.
func Target(r *http.Request, param string) (tenant.Caller, uuid.UUID, error) {
	caller, err := tenant.FromContext(r.Context())
	if err != nil {
		return tenant.Caller{}, uuid.Nil, err
	}

	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return tenant.Caller{}, uuid.Nil, fmt.Errorf("%w: invalid %s", ErrBadRequest, param)
	}

	return caller, id, nil
}
