package calculator

import "errors"

var (
	// ErrInvalidInvitees is returned when the number of invitees is negative.
	ErrInvalidInvitees = errors.New("invitees must be a non-negative integer")
	// ErrInvalidGuests is returned when the number of guests per invitee is negative.
	ErrInvalidGuests = errors.New("guests per invitee must be a non-negative integer")
	// ErrInvalidCapacity is returned when the table capacity is outside the supported range.
	ErrInvalidCapacity = errors.New("table capacity must be between 1 and 100")
	// ErrInvalidPolicy is returned for an unknown guest counting policy.
	ErrInvalidPolicy = errors.New("guest policy must be one of per-invitee, guests-only")
	// ErrOverflow is returned when the attendee count does not fit in an int.
	ErrOverflow = errors.New("attendee count overflows integer range")
)
