package http

import (
	"errors"
	"net/http"

	"github.com/alem-hub/learnhub/internal/domain/shared"
	"github.com/alem-hub/learnhub/pkg/logger"
)

// API error codes.
const (
	codeNotFound           = "not_found"
	codeConflict           = "conflict"
	codeForbidden          = "forbidden"
	codeValidation         = "validation_error"
	codeStorageUnavailable = "storage_unavailable"
	codeUnauthorized       = "unauthorized"
	codeBadRequest         = "bad_request"
	codeInternal           = "internal_error"
)

// errorStatus maps a domain error kind to an HTTP status and API code.
func errorStatus(err error) (int, string) {
	switch {
	case shared.IsNotFound(err):
		return http.StatusNotFound, codeNotFound
	case shared.IsConflict(err):
		return http.StatusConflict, codeConflict
	case shared.IsForbidden(err):
		return http.StatusForbidden, codeForbidden
	case shared.IsValidation(err):
		return http.StatusBadRequest, codeValidation
	case shared.IsStorageUnavailable(err):
		return http.StatusServiceUnavailable, codeStorageUnavailable
	case shared.IsUnauthorized(err):
		return http.StatusUnauthorized, codeUnauthorized
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// writeDomainError renders err. Messages of domain errors are shown as is;
// anything else is hidden behind a generic message.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)

	message := "An unexpected error occurred"
	var de *shared.DomainError
	if errors.As(err, &de) && status != http.StatusInternalServerError {
		message = de.Message
	}

	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context(), s.logger).Error("request failed",
			logger.String("path", r.URL.Path),
			logger.Err(err),
		)
	}
	writeJSONError(w, r, status, code, message)
}
