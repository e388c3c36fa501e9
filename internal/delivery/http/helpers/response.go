package helpers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"seatrotation/internal/domain"
)

// Error codes for API error responses that do not come from the domain.
const (
	ErrCodeBadRequest    = "bad_request"
	ErrCodeUnauthorized  = "unauthorized"
	ErrCodeNotFound      = "not_found"
	ErrCodeRateLimited   = "too_many_requests"
	ErrCodeInternalError = "internal_error"
)

// APIError is the error object in the standardized API response envelope.
// swagger:model APIError
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIResponse is the standardized envelope for all API responses.
// On success: Data is set, Error is nil. On error: Data is nil, Error is set.
// swagger:model APIResponse
type APIResponse struct {
	Data  any       `json:"data"`
	Error *APIError `json:"error"`
}

// WriteJSONSuccess sets Content-Type to application/json, writes statusCode, and
// encodes an APIResponse with the given data and error set to nil.
func WriteJSONSuccess(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(APIResponse{Data: data, Error: nil})
}

// WriteJSONError sets Content-Type to application/json, writes statusCode, and
// encodes an APIResponse with data nil and the given error code and message.
func WriteJSONError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(APIResponse{
		Data:  nil,
		Error: &APIError{Code: code, Message: message},
	})
}

var statusByCode = map[string]int{
	"not_found":           http.StatusNotFound,
	"invalid_day":         http.StatusBadRequest,
	"out_of_window":       http.StatusBadRequest,
	"expired":             http.StatusBadRequest,
	"already_booked":      http.StatusBadRequest,
	"wrong_batch":         http.StatusBadRequest,
	"floating_not_open":   http.StatusBadRequest,
	"invalid_seat":        http.StatusBadRequest,
	"past_session":        http.StatusBadRequest,
	"no_active_booking":   http.StatusBadRequest,
	"limit_reached":       http.StatusBadRequest,
	"bad_request":         http.StatusBadRequest,
	"seat_taken":          http.StatusConflict,
	"capacity_full":       http.StatusConflict,
	"contention":          http.StatusConflict,
	"duplicate_user":      http.StatusConflict,
	"invalid_credentials": http.StatusUnauthorized,
	"storage_failure":     http.StatusInternalServerError,
	"internal_error":      http.StatusInternalServerError,
}

// StatusFor returns the HTTP status for a wire error code.
func StatusFor(code string) int {
	if s, ok := statusByCode[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// WriteDomainError maps err to its wire code and status. Server-side failures
// are logged and their detail is not echoed to the client.
func WriteDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code := domain.ErrorCode(err)
	status := StatusFor(code)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		if logger != nil {
			logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "code", code, "err", err)
		}
		msg = http.StatusText(status)
	}
	WriteJSONError(w, status, code, msg)
}
