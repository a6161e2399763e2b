// Package resolve implements the field resolution pipeline: the custom-field
// priority match, the scenario-driven view selection and field mapping, the
// per-field state machine, and the concurrent batch scheduler.
package resolve

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/crosslogic/fieldmap-cli/internal/resilience"
)

// Options holds the per-run resolution tuning knobs.
type Options struct {
	// CustomThreshold accepts a custom-index similarity hit as a direct
	// match. The standard path is skipped entirely above it.
	CustomThreshold float64 `yaml:"custom_threshold"`

	// StandardThreshold accepts a normalized mapping confidence from the
	// standard path. Below it the field settles as unmatched.
	StandardThreshold float64 `yaml:"standard_threshold"`

	// ScenarioTopN bounds the scenario similarity search.
	ScenarioTopN int `yaml:"scenario_top_n"`

	// MaxCandidateViews caps the view list sent to the completion port.
	MaxCandidateViews int `yaml:"max_candidate_views"`

	// Retry bounds retryable port failures within one field task.
	Retry resilience.RetryConfig `yaml:"-"`
}

// DefaultOptions returns the resolution defaults.
func DefaultOptions() Options {
	return Options{
		CustomThreshold:   0.85,
		StandardThreshold: 0.5,
		ScenarioTopN:      3,
		MaxCandidateViews: 20,
		Retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
			RateLimitFloor: 5 * time.Second,
		},
	}
}

// Profile carries per-source-system threshold overrides. Workbooks from
// different SAP modules tolerate different custom-index quality, so the
// thresholds are tunable per module code.
type Profile struct {
	Default Options            `yaml:"default"`
	Systems map[string]Options `yaml:"systems"`
}

// LoadProfile reads a resolution profile from a YAML file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "resolve: read profile %s", path)
	}

	p := &Profile{Default: DefaultOptions()}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, eris.Wrapf(err, "resolve: parse profile %s", path)
	}
	p.Default = fillOptions(p.Default)
	for k, v := range p.Systems {
		p.Systems[k] = fillOptions(v)
	}
	return p, nil
}

// OptionsFor returns the options for a source system, falling back to the
// profile default when the system has no override.
func (p *Profile) OptionsFor(system string) Options {
	if p == nil {
		return DefaultOptions()
	}
	if opts, ok := p.Systems[system]; ok {
		return opts
	}
	return p.Default
}

// fillOptions replaces zero values with the defaults so a sparse profile
// entry only overrides what it names.
func fillOptions(o Options) Options {
	def := DefaultOptions()
	if o.CustomThreshold <= 0 {
		o.CustomThreshold = def.CustomThreshold
	}
	if o.StandardThreshold <= 0 {
		o.StandardThreshold = def.StandardThreshold
	}
	if o.ScenarioTopN < 1 {
		o.ScenarioTopN = def.ScenarioTopN
	}
	if o.MaxCandidateViews < 1 {
		o.MaxCandidateViews = def.MaxCandidateViews
	}
	if o.Retry.MaxAttempts == 0 {
		o.Retry = def.Retry
	}
	return o
}
