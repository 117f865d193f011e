// Command eventplanner asks how many people are invited to an event and how many
// guests each of them brings, then prints how many tables must be set up.
//
// The grade subcommand scores recorded transcripts of another event planner
// against this one.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/event-tables/internal/calculator"
	"github.com/eugenenazirov/event-tables/internal/grading"
	"github.com/eugenenazirov/event-tables/internal/logging"
	"github.com/eugenenazirov/event-tables/internal/planner"
)

func main() {
	app := kingpin.New("eventplanner", "Works out how many tables an event needs")
	capacity := app.Flag("capacity", "Seats per table").Default(strconv.Itoa(calculator.DefaultTableCapacity)).Int()
	policy := app.Flag("policy", "How guests are counted: per-invitee or guests-only").Default(string(calculator.PolicyPerInvitee)).String()
	verbose := app.Flag("verbose", "Also print attendee and empty seat counts").Short('v').Bool()
	debug := app.Flag("debug", "Emit structured debug logs to stderr").Bool()

	planCmd := app.Command("plan", "Ask for the invitee and guest counts and print the tables needed").Default()

	gradeCmd := app.Command("grade", "Score recorded transcripts against this planner's output")
	casesPath := gradeCmd.Flag("cases", "JSON or YAML file holding settings and test cases").Required().ExistingFile()
	var thresholdSet bool
	threshold := gradeCmd.Flag("pass-threshold", "Override the suite's pass threshold (0-100)").IsSetByUser(&thresholdSet).Float64()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	logger := zap.NewNop()
	if *debug {
		l, err := logging.New("debug")
		app.FatalIfError(err, "initialize logger")
		logger = l
	}
	defer func() {
		_ = logger.Sync()
	}()

	opts := planner.Options{Capacity: *capacity, Policy: *policy, Verbose: *verbose}

	switch command {
	case planCmd.FullCommand():
		if err := planner.Run(os.Stdin, os.Stdout, opts, logger); err != nil {
			app.Fatalf("%v", err)
		}
	case gradeCmd.FullCommand():
		var override *float64
		if thresholdSet {
			override = threshold
		}
		report, err := grade(context.Background(), *casesPath, opts, override, os.Stdout, logger)
		app.FatalIfError(err, "grade")
		if !report.Passed {
			_ = logger.Sync()
			os.Exit(1)
		}
	}
}

// grade scores the suite at path and writes the text report to out. The
// reference output comes from this planner running with opts, minus the
// verbose line.
func grade(ctx context.Context, path string, opts planner.Options, threshold *float64, out io.Writer, logger *zap.Logger) (grading.Report, error) {
	suite, err := grading.LoadSuite(path)
	if err != nil {
		return grading.Report{}, err
	}
	if threshold != nil {
		suite.Settings.PassThreshold = *threshold
	}

	opts.Verbose = false
	grader, err := grading.New(suite.Settings, func(input string) (string, error) {
		return planner.Transcript(input, opts)
	}, grading.WithLogger(logger))
	if err != nil {
		return grading.Report{}, err
	}

	report, err := grader.Grade(ctx, suite.Tests)
	if err != nil {
		return grading.Report{}, err
	}
	if err := report.Write(out); err != nil {
		return grading.Report{}, fmt.Errorf("write report: %w", err)
	}
	return report, nil
}
