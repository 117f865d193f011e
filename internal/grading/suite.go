package grading

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Suite is a set of cases graded together under one set of settings.
type Suite struct {
	Settings Settings `json:"settings" yaml:"settings"`
	Tests    []Case   `json:"tests" yaml:"tests"`
}

// DecodeSuite reads a JSON suite. Settings absent from the document keep
// their defaults; unknown fields are rejected.
func DecodeSuite(r io.Reader) (Suite, error) {
	suite := Suite{Settings: DefaultSettings()}

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&suite); err != nil {
		return Suite{}, fmt.Errorf("decode suite: %w", err)
	}
	return suite, suite.validate()
}

// LoadSuite reads a suite from a .json, .yaml or .yml file.
func LoadSuite(path string) (Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Suite{}, fmt.Errorf("read suite: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		suite := Suite{Settings: DefaultSettings()}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&suite); err != nil {
			return Suite{}, fmt.Errorf("parse YAML suite: %w", err)
		}
		return suite, suite.validate()
	default:
		return DecodeSuite(bytes.NewReader(data))
	}
}

func (s Suite) validate() error {
	if len(s.Tests) == 0 {
		return ErrNoCases
	}
	return s.Settings.Validate()
}
