package appointments

import "errors"

var (
	// ErrNotFound is returned when no appointment has the requested id.
	ErrNotFound = errors.New("appointment not found")

	// ErrInvalidTimeFormat is returned when AppointTime is not "H:MM AM|PM".
	ErrInvalidTimeFormat = errors.New("invalid time format, expected H:MM AM or H:MM PM")

	// ErrInvalidDate is returned when AppointDate is neither YYYY-MM-DD nor RFC3339.
	ErrInvalidDate = errors.New("invalid appointment date, expected YYYY-MM-DD")

	// ErrInvalidTimezone is returned for an unknown IANA zone name.
	ErrInvalidTimezone = errors.New("unknown timezone")

	// ErrSlotTaken is returned when the doctor already has a booking at that instant.
	ErrSlotTaken = errors.New("this time slot is already booked for the doctor")

	// ErrBookingInProgress is returned when an earlier request with the same
	// Idempotency-Key is still running after the wait.
	ErrBookingInProgress = errors.New("a booking with this idempotency key is still in progress")

	// ErrProvisioning is returned when the video meeting could not be created.
	ErrProvisioning = errors.New("video meeting could not be scheduled")
)
