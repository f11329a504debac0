package cliconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/diamondlightsource/idsort/internal/cliconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := &cliconfig.OptimizeConfig{
		Info:       "id.json",
		Lookup:     "lookup",
		Magnets:    "magnets.json",
		Setup:      8,
		MaxAge:     50,
		ParamC:     10,
		ParamE:     0.5,
		ParamScale: 10,
		Iterations: 1000,
		Restart:    true,
		SeedValue:  42,
	}

	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, cliconfig.Save(path, cfg))

	got, err := cliconfig.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := cliconfig.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("setup: [this is not, a scalar\n"), 0o644))

	_, err := cliconfig.Load(path)
	assert.Error(t, err)
}
