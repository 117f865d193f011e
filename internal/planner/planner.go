// Package planner runs the interactive event planning session: two prompts,
// two whole numbers read from the input, one line reporting the table count.
package planner

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/event-tables/internal/calculator"
)

const (
	// InviteesPrompt is written before the invitee count is read.
	InviteesPrompt = "How many people will be invited to this event? "
	// GuestsPrompt is written before the guests-per-invitee count is read.
	GuestsPrompt = "How many guests will they bring? "
)

var (
	// ErrMissingInput is returned when the input ends before a number is read.
	ErrMissingInput = errors.New("validation error: input ended before a number was entered")
	// ErrNotANumber is returned for a token that is not a whole number.
	ErrNotANumber = errors.New("validation error: expected a whole number")
	// ErrNegative is returned for counts below zero.
	ErrNegative = errors.New("validation error: value must not be negative")
)

// Options controls a session.
type Options struct {
	Capacity int
	Policy   string
	Verbose  bool
}

// DefaultOptions returns six seats per table and the per-invitee policy.
func DefaultOptions() Options {
	return Options{
		Capacity: calculator.DefaultTableCapacity,
		Policy:   string(calculator.PolicyPerInvitee),
	}
}

// Run prompts on out, reads the answers from in and prints the table count.
func Run(in io.Reader, out io.Writer, opts Options, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	policy, err := calculator.ParseGuestPolicy(opts.Policy)
	if err != nil {
		return err
	}
	if opts.Capacity <= 0 || opts.Capacity > calculator.MaxTableCapacity {
		return fmt.Errorf("%w, got %d", calculator.ErrInvalidCapacity, opts.Capacity)
	}

	scanner := bufio.NewScanner(in)
	scanner.Split(bufio.ScanWords)

	fmt.Fprint(out, InviteesPrompt)
	invitees, err := readCount(scanner)
	if err != nil {
		return fmt.Errorf("invitees: %w", err)
	}

	fmt.Fprint(out, GuestsPrompt)
	guests, err := readCount(scanner)
	if err != nil {
		return fmt.Errorf("guests: %w", err)
	}

	plan, err := calculator.New().CalculateTables(calculator.Request{
		Invitees:         invitees,
		GuestsPerInvitee: guests,
		Capacity:         opts.Capacity,
		Policy:           policy,
	})
	if err != nil {
		return err
	}

	logger.Debug("tables calculated",
		zap.Int("invitees", plan.Invitees),
		zap.Int("guests_per_invitee", plan.GuestsPerInvitee),
		zap.Int("attendees", plan.Attendees),
		zap.Int("capacity", plan.Capacity),
		zap.Int("tables", plan.Tables),
	)

	fmt.Fprintf(out, "%d tables will need to be set up for the event.\n", plan.Tables)
	if opts.Verbose {
		fmt.Fprintf(out, "%d attendees at tables of %d leave %d empty seats.\n", plan.Attendees, plan.Capacity, plan.EmptySeats)
	}
	return nil
}

// Transcript runs a session over input and returns everything written to
// the output. The error is the one Run returned; the output written before
// the failure is still returned.
func Transcript(input string, opts Options) (string, error) {
	var out bytes.Buffer
	err := Run(strings.NewReader(input), &out, opts, nil)
	return out.String(), err
}

func readCount(scanner *bufio.Scanner) (int, error) {
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return 0, fmt.Errorf("read input: %w", err)
		}
		return 0, ErrMissingInput
	}

	token := scanner.Text()
	value, err := strconv.Atoi(token)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: %q", calculator.ErrOverflow, token)
		}
		return 0, fmt.Errorf("%w, got %q", ErrNotANumber, token)
	}
	if value < 0 {
		return 0, fmt.Errorf("%w, got %d", ErrNegative, value)
	}
	return value, nil
}
