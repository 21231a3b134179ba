// Package httputil writes JSON responses and maps domain error codes to HTTP status.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "gatekeeper/pkg/domain-errors"
)

// GenericDenialMessage is shown to self-service callers on any denial so the
// response never reveals which policy branch produced it.
const GenericDenialMessage = "Authentication failed. Please try again."

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON encodes body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError writes err with the status mapped from its code. Internal and
// unavailable errors omit the description.
func WriteError(w http.ResponseWriter, err error) {
	code, ok := dErrors.CodeOf(err)
	if !ok {
		code = dErrors.CodeInternal
	}
	resp := errorResponse{Error: string(code)}
	switch code {
	case dErrors.CodeInternal, dErrors.CodeUnavailable:
	default:
		resp.ErrorDescription = dErrors.MessageOf(err)
	}
	WriteJSON(w, StatusFor(code), resp)
}

// WriteGenericDenial writes a 403 with the generic self-service message.
func WriteGenericDenial(w http.ResponseWriter) {
	WriteJSON(w, http.StatusForbidden, errorResponse{
		Error:            "access_denied",
		ErrorDescription: GenericDenialMessage,
	})
}

// StatusFor maps a domain error code to an HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidInput, dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeDuplicateRequest, dErrors.CodeAlreadyProcessed:
		return http.StatusConflict
	case dErrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case dErrors.CodeUnavailable, dErrors.CodeTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
