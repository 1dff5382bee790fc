package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettingsValid(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())
}

func TestLoadSettingsOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	body := "min_rate: 4.5\npenalties:\n  gotcha: 30\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, 4.5, s.MinRate)
	assert.Equal(t, 30, s.Penalties.Gotcha)
	assert.Equal(t, 20, s.Penalties.Rebate)
	assert.Equal(t, MaxRate, s.MaxRate)
	assert.Equal(t, 0.5, s.Weights.W1000)
}

func TestLoadSettingsRejectsBadWeights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	body := "weights:\n  w500: 0.5\n  w1000: 0.5\n  w2000: 0.5\nmin_term: 0\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	_, err := LoadSettings(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tier weights")
	assert.Contains(t, err.Error(), "min_term")
}

func TestLoadSettingsEmptyPath(t *testing.T) {
	s, err := LoadSettings("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}
