package calculator

import (
	"fmt"
	"strings"
)

const (
	// DefaultTableCapacity is the number of seats at a single table.
	DefaultTableCapacity = 6
	// MaxTableCapacity bounds configurable capacities.
	MaxTableCapacity = 100
)

// GuestPolicy controls how extra guests contribute to the attendee count.
type GuestPolicy string

const (
	// PolicyPerInvitee counts every invitee plus the guests each one brings.
	PolicyPerInvitee GuestPolicy = "per-invitee"
	// PolicyGuestsOnly counts only invitees*guests, leaving the invitees themselves out.
	PolicyGuestsOnly GuestPolicy = "guests-only"
)

// ParseGuestPolicy resolves a policy name. An empty string selects PolicyPerInvitee.
func ParseGuestPolicy(raw string) (GuestPolicy, error) {
	switch GuestPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PolicyPerInvitee:
		return PolicyPerInvitee, nil
	case PolicyGuestsOnly:
		return PolicyGuestsOnly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, raw)
	}
}

// Request describes a single event to seat.
// Zero Capacity and empty Policy fall back to the defaults.
type Request struct {
	Invitees         int
	GuestsPerInvitee int
	Capacity         int
	Policy           GuestPolicy
}

// Plan is the outcome of a table calculation.
type Plan struct {
	Invitees         int
	GuestsPerInvitee int
	Capacity         int
	Policy           GuestPolicy
	Attendees        int
	Tables           int
	EmptySeats       int
}

// Calculator describes the behaviour required from a table calculator.
type Calculator interface {
	CalculateTables(req Request) (Plan, error)
}
