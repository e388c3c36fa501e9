package controllers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seatrotation/internal/delivery/http/middleware"
	"seatrotation/internal/domain"
)

const testSessionID = "0b8f6f3e-6d1c-4b8e-a1f2-3c4d5e6f7a8b"

type fakeBookingService struct {
	bookErr    error
	cancelErr  error
	lastBook   *domain.BookSeatRequest
	lastCancel []string
}

func (f *fakeBookingService) BookSeat(_ context.Context, req domain.BookSeatRequest) (*domain.BookingResult, error) {
	f.lastBook = &req
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	seat := 1
	if req.SeatNumber != nil {
		seat = *req.SeatNumber
	}
	return &domain.BookingResult{SessionID: req.SessionID, SeatNumber: seat, Type: req.Type}, nil
}

func (f *fakeBookingService) CancelSeat(_ context.Context, sessionID, userID string) error {
	f.lastCancel = []string{sessionID, userID}
	return f.cancelErr
}

func authed(req *http.Request) *http.Request {
	return req.WithContext(middleware.SetUserID(req.Context(), "u-1"))
}

func TestBookingController_Book(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		noUser     bool
		svcErr     error
		wantStatus int
		wantCode   string
		check      func(t *testing.T, got *domain.BookSeatRequest)
	}{
		{
			name:       "reserved without seat",
			body:       `{"session_id":"` + testSessionID + `","type":"reserved"}`,
			wantStatus: http.StatusCreated,
			check: func(t *testing.T, got *domain.BookSeatRequest) {
				assert.Equal(t, "u-1", got.UserID)
				assert.Equal(t, domain.BookingReserved, got.Type)
				assert.Nil(t, got.SeatNumber)
			},
		},
		{
			name:       "floating with seat",
			body:       `{"session_id":"` + testSessionID + `","type":"floating","seat_number":43}`,
			wantStatus: http.StatusCreated,
			check: func(t *testing.T, got *domain.BookSeatRequest) {
				require.NotNil(t, got.SeatNumber)
				assert.Equal(t, 43, *got.SeatNumber)
				assert.Equal(t, domain.BookingFloating, got.Type)
			},
		},
		{name: "unauthenticated", noUser: true, body: `{}`, wantStatus: http.StatusUnauthorized, wantCode: "unauthorized"},
		{name: "bad type", body: `{"session_id":"` + testSessionID + `","type":"temporaryFloating"}`, wantStatus: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "seat zero", body: `{"session_id":"` + testSessionID + `","type":"reserved","seat_number":0}`, wantStatus: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "bad session id", body: `{"session_id":"s-1","type":"reserved"}`, wantStatus: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "malformed json", body: `{"session_id":`, wantStatus: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "wrong batch", body: `{"session_id":"` + testSessionID + `","type":"reserved"}`, svcErr: domain.ErrWrongBatch, wantStatus: http.StatusBadRequest, wantCode: "wrong_batch"},
		{name: "floating not open", body: `{"session_id":"` + testSessionID + `","type":"floating"}`, svcErr: domain.ErrFloatingNotOpen, wantStatus: http.StatusBadRequest, wantCode: "floating_not_open"},
		{name: "seat taken", body: `{"session_id":"` + testSessionID + `","type":"reserved","seat_number":3}`, svcErr: domain.ErrSeatTaken, wantStatus: http.StatusConflict, wantCode: "seat_taken"},
		{name: "capacity full", body: `{"session_id":"` + testSessionID + `","type":"floating"}`, svcErr: domain.ErrCapacityFull, wantStatus: http.StatusConflict, wantCode: "capacity_full"},
		{name: "contention", body: `{"session_id":"` + testSessionID + `","type":"reserved"}`, svcErr: domain.ErrContention, wantStatus: http.StatusConflict, wantCode: "contention"},
		{name: "session missing", body: `{"session_id":"` + testSessionID + `","type":"reserved"}`, svcErr: domain.ErrNotFound, wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{
			name:       "storage failure",
			body:       `{"session_id":"` + testSessionID + `","type":"reserved"}`,
			svcErr:     fmt.Errorf("book seat: %w: %w", domain.ErrStorageFailure, context.DeadlineExceeded),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "storage_failure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeBookingService{bookErr: tt.svcErr}
			ctrl := NewBookingController(testLogger, svc)
			req := httptest.NewRequest(http.MethodPost, "/bookings/book", strings.NewReader(tt.body))
			if !tt.noUser {
				req = authed(req)
			}
			rec := httptest.NewRecorder()

			ctrl.Book(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			_, apiErr := decodeEnvelope(t, rec)
			if tt.wantCode != "" {
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
			} else {
				assert.Nil(t, apiErr)
			}
			if tt.check != nil {
				require.NotNil(t, svc.lastBook)
				tt.check(t, svc.lastBook)
			}
		})
	}
}

func TestBookingController_Cancel(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{name: "success", body: `{"session_id":"` + testSessionID + `"}`, wantStatus: http.StatusOK},
		{name: "missing session id", body: `{}`, wantStatus: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "no active booking", body: `{"session_id":"` + testSessionID + `"}`, svcErr: domain.ErrNoActiveBooking, wantStatus: http.StatusBadRequest, wantCode: "no_active_booking"},
		{name: "past session", body: `{"session_id":"` + testSessionID + `"}`, svcErr: domain.ErrPastSession, wantStatus: http.StatusBadRequest, wantCode: "past_session"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeBookingService{cancelErr: tt.svcErr}
			ctrl := NewBookingController(testLogger, svc)
			rec := httptest.NewRecorder()

			ctrl.Cancel(rec, authed(httptest.NewRequest(http.MethodPost, "/bookings/cancel", strings.NewReader(tt.body))))

			require.Equal(t, tt.wantStatus, rec.Code)
			_, apiErr := decodeEnvelope(t, rec)
			if tt.wantCode != "" {
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
				return
			}
			assert.Nil(t, apiErr)
			assert.Equal(t, []string{testSessionID, "u-1"}, svc.lastCancel)
		})
	}
}
