package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/mentorlink/mentorship-core/internal/domain/shared"
	"github.com/mentorlink/mentorship-core/internal/interface/http/handlers"
	"github.com/mentorlink/mentorship-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// errorStatus maps an error kind to its HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case shared.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, shared.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case shared.IsForbidden(err):
		return http.StatusForbidden, "forbidden"
	case shared.IsCapacityExceeded(err):
		return http.StatusConflict, "capacity_exceeded"
	case shared.IsConcurrentModification(err):
		return http.StatusConflict, "concurrent_modification"
	case shared.IsConflict(err), shared.IsAlreadyExists(err):
		return http.StatusConflict, "conflict"
	case errors.Is(err, shared.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, shared.ErrInvalidOperation):
		return http.StatusUnprocessableEntity, "invalid_operation"
	case shared.IsValidation(err):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeDomainError writes err using the envelope. Internal errors are logged
// and answered with a generic message.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := errorStatus(err)

	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed",
			logger.Operation(op),
			logger.Err(err),
		)
		msg := "An unexpected error occurred"
		if status == http.StatusGatewayTimeout {
			msg = "The request took too long"
		}
		handlers.WriteError(w, r, status, code, msg)
		return
	}

	handlers.WriteError(w, r, status, code, publicMessage(err))
}

// publicMessage returns the human-readable part of a domain error.
func publicMessage(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST DECODING
// ══════════════════════════════════════════════════════════════════════════════

// decodeJSON decodes the body into dst. Unknown fields are rejected. With
// allowEmpty an empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err == nil {
		if dec.More() {
			err = errors.New("body must contain a single JSON object")
		}
	} else if errors.Is(err, io.EOF) && allowEmpty {
		return true
	}
	if err == nil {
		return true
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		handlers.WriteError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large")
		return false
	}
	if errors.Is(err, io.EOF) {
		err = errors.New("request body is required")
	}
	handlers.WriteError(w, r, http.StatusBadRequest, "invalid_request", fmt.Sprintf("Invalid JSON body: %v", err))
	return false
}
