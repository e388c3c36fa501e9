package domain

import "errors"

// Generic sentinels shared by repositories and services.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorageFailure marks unexpected persistence faults. It is always
	// wrapped together with the underlying cause.
	ErrStorageFailure = errors.New("storage failure")

	// ErrVersionConflict is returned by SessionRepository.ApplyBookingChange
	// when another change committed against the same session after the read.
	ErrVersionConflict = errors.New("session version conflict")
)

// Booking outcomes. Each one is an expected business result and is reported
// to the caller as-is.
var (
	ErrInvalidDay      = errors.New("session is on a holiday or weekend")
	ErrOutOfWindow     = errors.New("cannot book more than 14 days in advance")
	ErrExpired         = errors.New("session has already passed")
	ErrAlreadyBooked   = errors.New("user already holds a seat in this session")
	ErrWrongBatch      = errors.New("this day is reserved for the other batch")
	ErrFloatingNotOpen = errors.New("floating seats open at 3 PM the previous day")
	ErrSeatTaken       = errors.New("seat is already taken")
	ErrInvalidSeat     = errors.New("seat number is not valid for this booking type")
	ErrCapacityFull    = errors.New("no seats left")
	ErrPastSession     = errors.New("cannot cancel a past session")
	ErrNoActiveBooking = errors.New("no active booking found for this session")
	ErrContention      = errors.New("session is busy, please retry")
)

// Account outcomes.
var (
	ErrDuplicateUser      = errors.New("username or email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLimitReached       = errors.New("membership limit reached")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrNotFound, "not_found"},
	{ErrInvalidDay, "invalid_day"},
	{ErrOutOfWindow, "out_of_window"},
	{ErrExpired, "expired"},
	{ErrAlreadyBooked, "already_booked"},
	{ErrWrongBatch, "wrong_batch"},
	{ErrFloatingNotOpen, "floating_not_open"},
	{ErrSeatTaken, "seat_taken"},
	{ErrInvalidSeat, "invalid_seat"},
	{ErrCapacityFull, "capacity_full"},
	{ErrPastSession, "past_session"},
	{ErrNoActiveBooking, "no_active_booking"},
	{ErrContention, "contention"},
	{ErrDuplicateUser, "duplicate_user"},
	{ErrInvalidCredentials, "invalid_credentials"},
	{ErrLimitReached, "limit_reached"},
	{ErrInvalidInput, "bad_request"},
	{ErrStorageFailure, "storage_failure"},
}

// ErrorCode returns the stable wire code for err, or "internal_error" when
// err is not one of the known kinds.
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "internal_error"
}
