package config

import (
	"os"
	"path/filepath"
	"testing"

	orbimage "orbsim/internal/image"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 500, cfg.MaxFeatures)
	assert.Equal(t, 6.0, cfg.RANSACThreshold)
	assert.Equal(t, 30, cfg.MaxDrawnMatches)
	assert.Equal(t, "BGR", cfg.ChannelOrder)
	assert.Equal(t, "image_comparison.png", cfg.Output)
	assert.True(t, cfg.Parallel)
	assert.Equal(t, orbimage.DefaultChannelOrder, cfg.Channels())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	cfg := Default()
	cfg.MaxFeatures = 1000
	cfg.ChannelOrder = "RGB"
	cfg.Parallel = false
	cfg.Seed = 99
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
	assert.Equal(t, orbimage.ChannelOrder{orbimage.Red, orbimage.Green, orbimage.Blue}, loaded.Channels())
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"max_drawn_matches": 10}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.MaxDrawnMatches)
	assert.Equal(t, 500, cfg.MaxFeatures)
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{not json`), 0o644))
	_, err := Load(bad)
	assert.ErrorIs(t, err, ErrInvalid)

	neg := filepath.Join(dir, "neg.json")
	require.NoError(t, os.WriteFile(neg, []byte(`{"max_features": -1}`), 0o644))
	_, err = Load(neg)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"threshold":     func(c *Config) { c.RANSACThreshold = 0 },
		"iterations":    func(c *Config) { c.RANSACMaxIterations = 0 },
		"confidence":    func(c *Config) { c.RANSACConfidence = 1 },
		"drawn matches": func(c *Config) { c.MaxDrawnMatches = -1 },
		"channel order": func(c *Config) { c.ChannelOrder = "BGX" },
		"log level":     func(c *Config) { c.LogLevel = "loud" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestDerivedOptions(t *testing.T) {
	cfg := Default()
	cfg.MaxFeatures = 250
	cfg.RANSACThreshold = 3
	cfg.MaxDrawnMatches = 5
	cfg.DrawKeypoints = false

	assert.Equal(t, 250, cfg.ORB().MaxFeatures)
	assert.Equal(t, 3.0, cfg.RANSAC().Threshold)
	assert.Equal(t, cfg.Seed, cfg.RANSAC().Seed)
	assert.Equal(t, 5, cfg.Render().MaxDrawnMatches)
	assert.False(t, cfg.Render().DrawKeypoints)
}
