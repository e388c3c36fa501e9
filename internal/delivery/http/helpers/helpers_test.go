package helpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seatrotation/internal/domain"
)

type bookBody struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
	Type      string `json:"type" validate:"required,oneof=reserved floating"`
	Seat      *int   `json:"seat_number" validate:"omitempty,min=1"`
}

func (b bookBody) Validate() []string {
	if b.Type == "reserved" && b.Seat != nil && *b.Seat > 40 {
		return []string{"seat_number is outside the reserved zone"}
	}
	return nil
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) *APIError {
	t.Helper()
	var env APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	require.NotNil(t, env.Error)
	return env.Error
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantOK  bool
		wantMsg string
	}{
		{name: "valid", body: `{"session_id":"6f1c2f0e-6a55-4a3e-9a7e-0d9d3c1e2b4a","type":"floating"}`, wantOK: true},
		{name: "malformed json", body: `{`, wantMsg: "unexpected EOF"},
		{name: "unknown field", body: `{"session_id":"x","type":"floating","extra":1}`, wantMsg: "unknown field"},
		{name: "missing fields", body: `{}`, wantMsg: "session_id is required; type is required"},
		{name: "bad enum and uuid", body: `{"session_id":"nope","type":"vip"}`, wantMsg: "session_id must be a UUID; type must be one of [reserved floating]"},
		{name: "seat below one", body: `{"session_id":"6f1c2f0e-6a55-4a3e-9a7e-0d9d3c1e2b4a","type":"floating","seat_number":0}`, wantMsg: "seat_number must be at least 1"},
		{name: "custom validator", body: `{"session_id":"6f1c2f0e-6a55-4a3e-9a7e-0d9d3c1e2b4a","type":"reserved","seat_number":45}`, wantMsg: "outside the reserved zone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/bookings/book", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			var dest bookBody
			ok := DecodeAndValidate(rr, req, &dest)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				return
			}
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			apiErr := decodeError(t, rr)
			assert.Equal(t, ErrCodeBadRequest, apiErr.Code)
			assert.Contains(t, apiErr.Message, tt.wantMsg)
		})
	}
}

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{domain.ErrNotFound, http.StatusNotFound, "not_found"},
		{domain.ErrWrongBatch, http.StatusBadRequest, "wrong_batch"},
		{domain.ErrFloatingNotOpen, http.StatusBadRequest, "floating_not_open"},
		{domain.ErrSeatTaken, http.StatusConflict, "seat_taken"},
		{domain.ErrCapacityFull, http.StatusConflict, "capacity_full"},
		{domain.ErrContention, http.StatusConflict, "contention"},
		{fmt.Errorf("%w: days", domain.ErrInvalidInput), http.StatusBadRequest, "bad_request"},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{fmt.Errorf("op: %w: %w", domain.ErrStorageFailure, fmt.Errorf("dial tcp")), http.StatusInternalServerError, "storage_failure"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			WriteDomainError(rr, req, nil, tt.err)
			assert.Equal(t, tt.wantStatus, rr.Code)
			apiErr := decodeError(t, rr)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.NotContains(t, apiErr.Message, "dial tcp")
			}
		})
	}
}
