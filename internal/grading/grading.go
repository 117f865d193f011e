// Package grading scores recorded event planner transcripts against the
// output of the reference planner.
//
// Each case is graded on the tokens that change between the outputs of
// different cases, so fixed wording that is merely phrased differently is
// not penalised. Required strings catch wording that must be present.
// Penalties accumulate per case and convert to a grade with
// 100 * exp(-weight * penalty).
package grading

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const referenceWorkers = 4

// smallValueCutoff is where log(cosh(x)) + 0.25 meets |x|.
const smallValueCutoff = 0.292055305409401

var (
	// ErrNoCases is returned when there is nothing to grade.
	ErrNoCases = errors.New("at least one test case is required")
	// ErrInvalidSettings is returned for negative penalties, a non-positive
	// weight or a threshold outside 0..100.
	ErrInvalidSettings = errors.New("invalid grading settings")
)

// Penalties are the amounts added for each kind of mismatch.
type Penalties struct {
	Type          float64 `json:"type" yaml:"type"`
	TokenCount    float64 `json:"tokenCount" yaml:"tokenCount"`
	Numeric       float64 `json:"numeric" yaml:"numeric"`
	Character     float64 `json:"character" yaml:"character"`
	RunFailure    float64 `json:"runFailure" yaml:"runFailure"`
	MissingString float64 `json:"missingString" yaml:"missingString"`
}

// Settings tune how penalties turn into grades.
type Settings struct {
	Penalties            Penalties `json:"penalties" yaml:"penalties"`
	PenaltyWeight        float64   `json:"penaltyWeight" yaml:"penaltyWeight"`
	PassThreshold        float64   `json:"passThreshold" yaml:"passThreshold"`
	IgnoreNonNumeric     bool      `json:"ignoreNonNumeric" yaml:"ignoreNonNumeric"`
	EnforceFloatingPoint bool      `json:"enforceFloatingPoint" yaml:"enforceFloatingPoint"`
}

// DefaultSettings returns the stock penalties, a weight of 0.1 and a pass threshold of 95.
func DefaultSettings() Settings {
	return Settings{
		Penalties: Penalties{
			Type:          20,
			TokenCount:    50,
			Numeric:       10,
			Character:     50,
			RunFailure:    100,
			MissingString: 100,
		},
		PenaltyWeight: 0.1,
		PassThreshold: 95,
	}
}

// Validate checks the settings are usable.
func (s Settings) Validate() error {
	p := s.Penalties
	for name, value := range map[string]float64{
		"type":          p.Type,
		"tokenCount":    p.TokenCount,
		"numeric":       p.Numeric,
		"character":     p.Character,
		"runFailure":    p.RunFailure,
		"missingString": p.MissingString,
	} {
		if value < 0 {
			return fmt.Errorf("%w: penalty %s must be >= 0, got %v", ErrInvalidSettings, name, value)
		}
	}
	if s.PenaltyWeight <= 0 {
		return fmt.Errorf("%w: penaltyWeight must be > 0, got %v", ErrInvalidSettings, s.PenaltyWeight)
	}
	if s.PassThreshold < 0 || s.PassThreshold > 100 {
		return fmt.Errorf("%w: passThreshold must be between 0 and 100, got %v", ErrInvalidSettings, s.PassThreshold)
	}
	return nil
}

// Grade converts an accumulated penalty to a grade between 0 and 100.
func (s Settings) Grade(penalty float64) float64 {
	return 100 * math.Exp(-s.PenaltyWeight*penalty)
}

// Case is one recorded run of the program under test.
type Case struct {
	Description     string   `json:"description" yaml:"description"`
	Input           string   `json:"input" yaml:"input"`
	Output          string   `json:"output" yaml:"output"`
	ExitCode        int      `json:"exitCode" yaml:"exitCode"`
	RequiredStrings []string `json:"requiredStrings,omitempty" yaml:"requiredStrings"`
}

// Reference produces the expected output for an input. A non-nil error
// means the reference program itself failed on that input.
type Reference func(input string) (string, error)

// Result is the outcome of one case.
type Result struct {
	Index       int      `json:"index"`
	Description string   `json:"description"`
	Expected    string   `json:"expected"`
	Penalty     float64  `json:"penalty"`
	Grade       float64  `json:"grade"`
	Passed      bool     `json:"passed"`
	Feedback    []string `json:"feedback,omitempty"`
}

// Report summarises a graded suite.
type Report struct {
	Results       []Result `json:"results"`
	TestsPassed   int      `json:"testsPassed"`
	TestsTotal    int      `json:"testsTotal"`
	AverageGrade  float64  `json:"averageGrade"`
	PassThreshold float64  `json:"passThreshold"`
	Passed        bool     `json:"passed"`
}

// Grader grades cases against a reference.
type Grader struct {
	settings  Settings
	reference Reference
	logger    *zap.Logger
}

// Option configures a Grader.
type Option func(*Grader)

// WithLogger sets the logger used for per-case debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Grader) {
		g.logger = logger
	}
}

// New validates settings and returns a Grader.
func New(settings Settings, reference Reference, opts ...Option) (*Grader, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if reference == nil {
		return nil, errors.New("grading reference must not be nil")
	}
	g := &Grader{
		settings:  settings,
		reference: reference,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

type referenceRun struct {
	output string
	failed bool
}

// Grade runs the reference for every case and scores the recorded outputs.
func (g *Grader) Grade(ctx context.Context, cases []Case) (Report, error) {
	if len(cases) == 0 {
		return Report{}, ErrNoCases
	}

	refs := make([]referenceRun, len(cases))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(referenceWorkers)
	for i, c := range cases {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			output, err := g.reference(c.Input)
			refs[i] = referenceRun{output: output, failed: err != nil}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Report{}, fmt.Errorf("run reference: %w", err)
	}

	refTokens := make([][]Token, len(cases))
	subTokens := make([][]Token, len(cases))
	succeeded := make([]bool, len(cases))
	for i, c := range cases {
		refTokens[i] = Tokenize(refs[i].output)
		subTokens[i] = Tokenize(c.Output)
		succeeded[i] = c.ExitCode == 0
	}

	report := Report{
		Results:       make([]Result, len(cases)),
		TestsTotal:    len(cases),
		PassThreshold: g.settings.PassThreshold,
	}
	total := 0.0
	for i, c := range cases {
		penalty, feedback := g.scoreCase(c, refs[i], refTokens, subTokens, succeeded, i)
		grade := g.settings.Grade(penalty)
		result := Result{
			Index:       i,
			Description: c.Description,
			Expected:    refs[i].output,
			Penalty:     penalty,
			Grade:       grade,
			Passed:      grade >= g.settings.PassThreshold,
			Feedback:    feedback,
		}
		if result.Passed {
			report.TestsPassed++
		}
		total += grade
		report.Results[i] = result

		g.logger.Debug("case graded",
			zap.Int("index", i),
			zap.String("description", c.Description),
			zap.Float64("penalty", penalty),
			zap.Float64("grade", grade),
		)
	}

	report.AverageGrade = total / float64(len(cases))
	report.Passed = report.AverageGrade >= g.settings.PassThreshold
	return report, nil
}

func (g *Grader) scoreCase(c Case, ref referenceRun, refTokens, subTokens [][]Token, succeeded []bool, i int) (float64, []string) {
	p := g.settings.Penalties
	penalty := 0.0
	var feedback []string

	if c.ExitCode != 0 && !ref.failed {
		penalty += p.RunFailure
		feedback = append(feedback, fmt.Sprintf("program exited with status %d where the reference succeeded", c.ExitCode))
	}

	for _, required := range c.RequiredStrings {
		if !strings.Contains(c.Output, required) {
			penalty += p.MissingString
			feedback = append(feedback, fmt.Sprintf("missing string %q in output", required))
		}
	}

	want := g.filter(varyingTokens(refTokens, succeeded, i))
	got := g.filter(varyingTokens(subTokens, succeeded, i))
	vectorPenalty, vectorFeedback := g.compare(want, got)
	penalty += vectorPenalty
	feedback = append(feedback, vectorFeedback...)

	slices.Sort(feedback)
	return penalty, slices.Compact(feedback)
}

// varyingTokens returns the tokens of outputs[i] left unmatched against the
// output of at least one other successful case. With no other
// case to compare against, every token counts.
func varyingTokens(outputs [][]Token, succeeded []bool, i int) []Token {
	varying := make([]bool, len(outputs[i]))
	compared := false
	for j := range outputs {
		if j == i || !succeeded[j] {
			continue
		}
		compared = true
		matched, _ := matchTokens(outputs[i], outputs[j])
		for k, ok := range matched {
			if !ok {
				varying[k] = true
			}
		}
	}

	var out []Token
	for k, tok := range outputs[i] {
		if !compared || varying[k] {
			out = append(out, tok)
		}
	}
	return out
}

func (g *Grader) filter(tokens []Token) []Token {
	if !g.settings.IgnoreNonNumeric {
		return tokens
	}
	out := tokens[:0:0]
	for _, tok := range tokens {
		if tok.Numeric() {
			out = append(out, tok)
		}
	}
	return out
}

// compare scores got against want position by position.
func (g *Grader) compare(want, got []Token) (float64, []string) {
	p := g.settings.Penalties
	penalty := 0.0
	var feedback []string

	if len(want) != len(got) {
		penalty += p.TokenCount
		feedback = append(feedback, fmt.Sprintf("expected %s, got %s", quoteTokens(want), quoteTokens(got)))
	}

	for k := range min(len(want), len(got)) {
		w, s := want[k], got[k]
		switch {
		case w.Numeric() != s.Numeric():
			penalty += p.Type
			feedback = append(feedback, fmt.Sprintf("expected a %s (%s), got a %s (%s)", w.Kind, w.Text, s.Kind, s.Text))
		case w.Numeric():
			if g.settings.EnforceFloatingPoint && w.Kind != s.Kind {
				penalty += p.Type
				feedback = append(feedback, fmt.Sprintf("expected a %s (%s), got a %s (%s)", w.Kind, w.Text, s.Kind, s.Text))
			}
			if w.Value != s.Value {
				penalty += p.Numeric * math.Abs(w.Value-s.Value) / numericScale(w.Value)
				feedback = append(feedback, fmt.Sprintf("expected '%s', got '%s'", w.Text, s.Text))
			}
		case w.Text != s.Text:
			penalty += p.Character * float64(editCount(w.Text, s.Text))
			feedback = append(feedback, fmt.Sprintf("expected '%s', got '%s'", w.Text, s.Text))
		}
	}
	return penalty, feedback
}

// numericScale is close to |v| but stays positive near zero.
func numericScale(v float64) float64 {
	if math.Abs(v) < smallValueCutoff {
		return math.Log(math.Cosh(v)) + 0.25
	}
	return math.Abs(v)
}

func quoteTokens(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		parts[i] = "'" + tok.Text + "'"
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
