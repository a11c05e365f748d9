// Package replay drives a feed session from a YAML script of user input.
package replay

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Script is an ordered list of steps.
//
//	steps:
//	  - load: true
//	  - visible: [{index: 0, ratio: 1}]
//	  - drag: {index: 0, dx: 120}
//	  - invest: {amount: "15000", notes: "Strong team"}
//	  - tick: 120
//	  - sleep: 3s
type Script struct {
	Steps []Step `yaml:"steps"`
}

// Step holds exactly one action. Sleep lets wall-clock time pass and only
// matters when the runner has a clock.
type Step struct {
	Load    bool          `yaml:"load,omitempty"`
	Visible []Visible     `yaml:"visible,omitempty"`
	Drag    *Drag         `yaml:"drag,omitempty"`
	Tick    int           `yaml:"tick,omitempty"`
	Invest  *Invest       `yaml:"invest,omitempty"`
	Wait    bool          `yaml:"wait,omitempty"`
	Sleep   time.Duration `yaml:"sleep,omitempty"`
}

// Visible is one intersection report.
type Visible struct {
	Index int     `yaml:"index"`
	Ratio float64 `yaml:"ratio"`
}

// Drag is a full pointer cycle on a card, interpolated over Moves samples.
type Drag struct {
	Index  int     `yaml:"index"`
	DX     float64 `yaml:"dx"`
	DY     float64 `yaml:"dy"`
	Moves  int     `yaml:"moves"`
	Cancel bool    `yaml:"cancel"`
}

// Invest answers the open investment flow.
type Invest struct {
	Amount string `yaml:"amount"`
	Notes  string `yaml:"notes"`
	Cancel bool   `yaml:"cancel"`
}

var ErrEmptyScript = errors.New("replay: script has no steps")

func (s Step) actions() int {
	n := 0
	for _, set := range []bool{s.Load, len(s.Visible) > 0, s.Drag != nil, s.Tick != 0, s.Invest != nil, s.Wait, s.Sleep != 0} {
		if set {
			n++
		}
	}
	return n
}

// Validate checks that every step names exactly one action.
func (s *Script) Validate() error {
	if len(s.Steps) == 0 {
		return ErrEmptyScript
	}
	for i, step := range s.Steps {
		if n := step.actions(); n != 1 {
			return fmt.Errorf("replay: step %d has %d actions, want exactly one", i+1, n)
		}
		if step.Tick < 0 {
			return fmt.Errorf("replay: step %d: tick must be positive", i+1)
		}
		if step.Sleep < 0 {
			return fmt.Errorf("replay: step %d: sleep must be positive", i+1)
		}
	}
	return nil
}

// Parse decodes and validates a script.
func Parse(r io.Reader) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyScript
		}
		return nil, fmt.Errorf("replay: decode script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ParseFile reads a script from path.
func ParseFile(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}
