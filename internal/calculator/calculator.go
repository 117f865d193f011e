package calculator

import "math"

type tableCalculator struct{}

// New creates a Calculator using exact integer ceiling division.
func New() Calculator {
	return &tableCalculator{}
}

// TablesRequired returns the number of six-seat tables needed when every
// invitee brings guestsPerInvitee extra guests.
func TablesRequired(invitees, guestsPerInvitee int) (int, error) {
	attendees, err := Attendees(invitees, guestsPerInvitee)
	if err != nil {
		return 0, err
	}
	return Tables(attendees, DefaultTableCapacity)
}

// Attendees returns invitees + invitees*guestsPerInvitee.
func Attendees(invitees, guestsPerInvitee int) (int, error) {
	return attendees(invitees, guestsPerInvitee, PolicyPerInvitee)
}

// Tables returns the smallest t such that t*capacity >= attendees.
func Tables(attendees, capacity int) (int, error) {
	if attendees < 0 {
		return 0, ErrInvalidInvitees
	}
	if capacity <= 0 || capacity > MaxTableCapacity {
		return 0, ErrInvalidCapacity
	}
	tables := attendees / capacity
	if attendees%capacity != 0 {
		tables++
	}
	return tables, nil
}

func (c *tableCalculator) CalculateTables(req Request) (Plan, error) {
	capacity := req.Capacity
	if capacity == 0 {
		capacity = DefaultTableCapacity
	}
	policy, err := ParseGuestPolicy(string(req.Policy))
	if err != nil {
		return Plan{}, err
	}

	total, err := attendees(req.Invitees, req.GuestsPerInvitee, policy)
	if err != nil {
		return Plan{}, err
	}
	tables, err := Tables(total, capacity)
	if err != nil {
		return Plan{}, err
	}

	return Plan{
		Invitees:         req.Invitees,
		GuestsPerInvitee: req.GuestsPerInvitee,
		Capacity:         capacity,
		Policy:           policy,
		Attendees:        total,
		Tables:           tables,
		EmptySeats:       (capacity - total%capacity) % capacity,
	}, nil
}

func attendees(invitees, guestsPerInvitee int, policy GuestPolicy) (int, error) {
	if invitees < 0 {
		return 0, ErrInvalidInvitees
	}
	if guestsPerInvitee < 0 {
		return 0, ErrInvalidGuests
	}

	if guestsPerInvitee != 0 && invitees > math.MaxInt/guestsPerInvitee {
		return 0, ErrOverflow
	}
	guests := invitees * guestsPerInvitee

	switch policy {
	case PolicyGuestsOnly:
		return guests, nil
	case PolicyPerInvitee:
		if guests > math.MaxInt-invitees {
			return 0, ErrOverflow
		}
		return invitees + guests, nil
	default:
		return 0, ErrInvalidPolicy
	}
}
