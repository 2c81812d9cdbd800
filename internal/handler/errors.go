package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/maimweb/backend/internal/apperr"
	"github.com/maimweb/backend/internal/middleware"
	"github.com/maimweb/backend/internal/repository"
	"github.com/maimweb/backend/internal/service"
	"github.com/maimweb/backend/internal/upstream"
)

// writeServiceError maps service errors to HTTP responses. Denied is
// reported as 404 so callers cannot probe for resources of other users.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, apperr.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Could not validate credentials")

	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, "INVALID_CREDENTIALS", "Incorrect username or password")
	case errors.Is(err, service.ErrInactiveUser):
		writeError(w, http.StatusBadRequest, "INACTIVE_USER", "Inactive user")
	case errors.Is(err, service.ErrNoTenant):
		writeError(w, http.StatusBadRequest, "NO_TENANT", "No tenant available to create the agent in")
	case errors.Is(err, apperr.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", kindMessage(err, apperr.ErrInvalidInput))

	case errors.Is(err, repository.ErrUsernameExists):
		writeError(w, http.StatusConflict, "USERNAME_TAKEN", "Username already registered")
	case errors.Is(err, repository.ErrEmailExists):
		writeError(w, http.StatusConflict, "EMAIL_TAKEN", "Email already registered")
	case errors.Is(err, service.ErrPersonalTenant):
		writeError(w, http.StatusConflict, "PERSONAL_TENANT", "Personal tenant cannot be deleted")
	case errors.Is(err, apperr.ErrConflict):
		writeError(w, http.StatusConflict, "CONFLICT", kindMessage(err, apperr.ErrConflict))

	case errors.Is(err, apperr.ErrDenied):
		logger.Info("access denied",
			"path", r.URL.Path,
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")

	case errors.Is(err, apperr.ErrUpstreamBusiness):
		message := "Configuration service rejected the request"
		var business *upstream.BusinessError
		if errors.As(err, &business) && business.Message != "" {
			message = business.Message
		}
		writeError(w, http.StatusBadRequest, "UPSTREAM_REJECTED", message)
	case errors.Is(err, apperr.ErrUpstreamUnavailable):
		logger.Warn("upstream unavailable",
			"path", r.URL.Path,
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Configuration service unavailable")

	default:
		logger.Error("internal_error",
			"path", r.URL.Path,
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// kindMessage returns the part of err's message that follows the kind
// prefix, e.g. "tenant name is required" for "invalid input: tenant name is required".
func kindMessage(err, kind error) string {
	msg := err.Error()
	prefix := kind.Error() + ": "
	if i := strings.LastIndex(msg, prefix); i >= 0 {
		msg = msg[i+len(prefix):]
	}
	if msg == "" {
		return kind.Error()
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
