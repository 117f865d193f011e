package grading

import (
	"fmt"
	"io"
	"math"
)

// Write prints the report as a plain text summary, one block per case.
func (r Report) Write(w io.Writer) error {
	for _, res := range r.Results {
		mark := "✘"
		if res.Passed {
			mark = "✔"
		}
		if _, err := fmt.Fprintf(w, "%s (%d) %s:\n", mark, res.Index, res.Description); err != nil {
			return err
		}

		grade := res.Grade
		if grade < 100 {
			// An imperfect case never rounds up to a perfect score.
			grade = math.Min(grade, 99)
		}
		if _, err := fmt.Fprintf(w, "%3.0f%%\n", grade); err != nil {
			return err
		}
		for _, line := range res.Feedback {
			if _, err := fmt.Fprintf(w, "    %s\n", line); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "Tests Passed: [%d/%d]\nOverall Grade: %.02f%%\n", r.TestsPassed, r.TestsTotal, r.AverageGrade)
	return err
}
