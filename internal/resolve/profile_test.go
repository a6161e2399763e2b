package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	content := `
default:
  custom_threshold: 0.9
systems:
  MM:
    custom_threshold: 0.8
    standard_threshold: 0.6
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := LoadProfile(path)
	require.NoError(t, err)

	def := p.OptionsFor("SD")
	assert.InDelta(t, 0.9, def.CustomThreshold, 1e-9)
	assert.InDelta(t, 0.5, def.StandardThreshold, 1e-9)
	assert.Equal(t, 3, def.ScenarioTopN)
	assert.Equal(t, 20, def.MaxCandidateViews)

	mm := p.OptionsFor("MM")
	assert.InDelta(t, 0.8, mm.CustomThreshold, 1e-9)
	assert.InDelta(t, 0.6, mm.StandardThreshold, 1e-9)
	assert.Equal(t, 20, mm.MaxCandidateViews, "sparse override keeps defaults")
}

func TestLoadProfile_MissingFile(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadProfile_BadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default: ["), 0o644))

	_, err := LoadProfile(path)
	assert.Error(t, err)
}

func TestOptionsFor_NilProfile(t *testing.T) {
	var p *Profile
	opts := p.OptionsFor("SD")
	assert.Equal(t, DefaultOptions().CustomThreshold, opts.CustomThreshold)
	assert.Equal(t, DefaultOptions().Retry.MaxAttempts, opts.Retry.MaxAttempts)
}
