package scheduling

import (
	"errors"
	"fmt"
)

var (
	// ErrSlotUnavailable means the slot is already booked or does not exist.
	ErrSlotUnavailable = errors.New("scheduling: slot unavailable")
	// ErrBookingFailed is matched by every *BookingFailedError.
	ErrBookingFailed = errors.New("scheduling: booking failed")
	// ErrBookingNotFound means the booking id does not exist.
	ErrBookingNotFound = errors.New("scheduling: booking not found")
	// ErrCancellationFailed is matched by every *CancellationFailedError.
	ErrCancellationFailed = errors.New("scheduling: cancellation failed")
	// ErrInvalidBooking means the request was rejected before any store access.
	ErrInvalidBooking = errors.New("scheduling: invalid booking request")
)

// BookingFailedError reports a rolled-back booking attempt.
type BookingFailedError struct {
	SlotID int64
	Reason string
	Err    error
}

func (e *BookingFailedError) Error() string {
	reason := e.Reason
	if reason == "" && e.Err != nil {
		reason = e.Err.Error()
	}
	return fmt.Sprintf("scheduling: booking failed for slot %d: %s", e.SlotID, reason)
}

func (e *BookingFailedError) Unwrap() error { return e.Err }

func (e *BookingFailedError) Is(target error) bool { return target == ErrBookingFailed }

// CancellationFailedError reports a rolled-back cancellation.
type CancellationFailedError struct {
	BookingID int64
	Err       error
}

func (e *CancellationFailedError) Error() string {
	return fmt.Sprintf("scheduling: cancellation failed for booking %d: %v", e.BookingID, e.Err)
}

func (e *CancellationFailedError) Unwrap() error { return e.Err }

func (e *CancellationFailedError) Is(target error) bool { return target == ErrCancellationFailed }

type invalidBookingError struct {
	field  string
	reason string
}

func (e *invalidBookingError) Error() string {
	return fmt.Sprintf("scheduling: invalid booking request: %s %s", e.field, e.reason)
}

func (e *invalidBookingError) Is(target error) bool { return target == ErrInvalidBooking }
