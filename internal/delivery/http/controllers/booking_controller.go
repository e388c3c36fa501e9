package controllers

import (
	"log/slog"
	"net/http"

	h "seatrotation/internal/delivery/http/helpers"
	"seatrotation/internal/delivery/http/middleware"
	"seatrotation/internal/domain"
)

// BookSeatRequest is the request body for POST /bookings/book
type BookSeatRequest struct {
	SessionID  string `json:"session_id" validate:"required,uuid"`
	Type       string `json:"type" validate:"required,oneof=reserved floating"`
	SeatNumber *int   `json:"seat_number,omitempty"`
}

// Validate implements helpers.Validator.
func (r *BookSeatRequest) Validate() []string {
	if r.SeatNumber != nil && *r.SeatNumber < 1 {
		return []string{"seat_number must be at least 1"}
	}
	return nil
}

// CancelSeatRequest is the request body for POST /bookings/cancel
type CancelSeatRequest struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
}

type BookingController struct {
	Logger  *slog.Logger
	Service domain.BookingService
}

func NewBookingController(logger *slog.Logger, svc domain.BookingService) *BookingController {
	return &BookingController{
		Logger:  logger,
		Service: svc,
	}
}

// Book godoc
// @Summary Book a seat
// @Description Book a reserved seat on a day owned by the caller's batch, or a floating seat from 3 PM the previous day. Vacated reserved seats are offered as floating seats first. Omit seat_number to get the lowest free seat.
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body BookSeatRequest true "Booking request"
// @Success 201 {object} helpers.APIResponse "data contains BookingResult"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request, invalid_day, out_of_window, expired, already_booked, wrong_batch, floating_not_open, invalid_seat"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: seat_taken, capacity_full, contention"
// @Failure 429 {object} helpers.APIResponse "error.code: too_many_requests"
// @Router /bookings/book [post]
func (c *BookingController) Book(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req BookSeatRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	result, err := c.Service.BookSeat(r.Context(), domain.BookSeatRequest{
		SessionID:  req.SessionID,
		UserID:     userID,
		Type:       domain.BookingType(req.Type),
		SeatNumber: req.SeatNumber,
	})
	if err != nil {
		h.WriteDomainError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, result)
}

// Cancel godoc
// @Summary Cancel a booking
// @Description Cancel the caller's active booking. A cancelled reserved seat is reopened as a temporary floating seat.
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CancelSeatRequest true "Cancel request"
// @Success 200 {object} helpers.APIResponse "data.status is cancelled"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request, past_session, no_active_booking"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: contention"
// @Router /bookings/cancel [post]
func (c *BookingController) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req CancelSeatRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := c.Service.CancelSeat(r.Context(), req.SessionID, userID); err != nil {
		h.WriteDomainError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": string(domain.BookingCancelled)})
}
