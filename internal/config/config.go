// Package config provides the JSON configuration of the comparison tool.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"orbsim/internal/alignment"
	"orbsim/internal/features"
	orbimage "orbsim/internal/image"
	"orbsim/internal/render"

	"github.com/rs/zerolog"
)

const (
	appDir     = "orbsim"
	configFile = "config.json"
)

// ErrInvalid is wrapped by every validation and parse error.
var ErrInvalid = errors.New("invalid configuration")

// Config holds every tunable of a comparison run.
type Config struct {
	MaxFeatures         int     `json:"max_features"`          // Keypoint budget per channel
	RANSACThreshold     float64 `json:"ransac_threshold"`      // Inlier reprojection error in pixels
	RANSACMaxIterations int     `json:"ransac_max_iterations"` // Hypothesis cap
	RANSACConfidence    float64 `json:"ransac_confidence"`     // Adaptive stopping confidence
	Seed                int64   `json:"seed"`                  // RANSAC sampler seed
	MaxDrawnMatches     int     `json:"max_drawn_matches"`     // Inliers drawn on the composite
	DrawKeypoints       bool    `json:"draw_keypoints"`        // Outline all keypoints on the composite
	Caption             bool    `json:"caption"`               // Print the score on the composite
	DrawOutline         bool    `json:"draw_outline"`          // Outline image 1 as projected into image 2
	ChannelOrder        string  `json:"channel_order"`         // Channel processing order, e.g. "BGR"
	Output              string  `json:"output"`                // Composite path; empty disables saving
	Parallel            bool    `json:"parallel"`              // Process channels concurrently
	LogLevel            string  `json:"log_level"`             // debug, info, warn or error
}

// Default returns the reference configuration.
func Default() Config {
	ransac := alignment.DefaultRANSACOptions()
	return Config{
		MaxFeatures:         features.DefaultORBConfig().MaxFeatures,
		RANSACThreshold:     ransac.Threshold,
		RANSACMaxIterations: ransac.MaxIterations,
		RANSACConfidence:    ransac.Confidence,
		Seed:                ransac.Seed,
		MaxDrawnMatches:     render.DefaultOptions().MaxDrawnMatches,
		DrawKeypoints:       true,
		ChannelOrder:        orbimage.DefaultChannelOrder.String(),
		Output:              "image_comparison.png",
		Parallel:            true,
		LogLevel:            "info",
	}
}

// DefaultPath returns ~/.config/orbsim/config.json, or the platform
// equivalent.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, appDir, configFile)
}

// Load reads the configuration at path on top of Default. A missing file
// yields the defaults. Keys absent from the file keep their default value.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("%w: parse %s: %w", ErrInvalid, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path, creating parent directories.
func (c Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Validate reports the first invalid option, wrapped in ErrInvalid.
func (c Config) Validate() error {
	switch {
	case c.MaxFeatures <= 0:
		return fmt.Errorf("%w: max_features must be positive, got %d", ErrInvalid, c.MaxFeatures)
	case c.RANSACThreshold <= 0:
		return fmt.Errorf("%w: ransac_threshold must be positive, got %g", ErrInvalid, c.RANSACThreshold)
	case c.RANSACMaxIterations <= 0:
		return fmt.Errorf("%w: ransac_max_iterations must be positive, got %d", ErrInvalid, c.RANSACMaxIterations)
	case c.RANSACConfidence <= 0 || c.RANSACConfidence >= 1:
		return fmt.Errorf("%w: ransac_confidence must be in (0, 1), got %g", ErrInvalid, c.RANSACConfidence)
	case c.MaxDrawnMatches < 0:
		return fmt.Errorf("%w: max_drawn_matches must not be negative, got %d", ErrInvalid, c.MaxDrawnMatches)
	}
	if _, err := orbimage.ParseChannelOrder(c.ChannelOrder); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil || c.LogLevel == "" {
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalid, c.LogLevel)
	}
	return nil
}

// ORB returns the detector configuration.
func (c Config) ORB() features.ORBConfig {
	orb := features.DefaultORBConfig()
	orb.MaxFeatures = c.MaxFeatures
	return orb
}

// RANSAC returns the robust fit options.
func (c Config) RANSAC() alignment.RANSACOptions {
	return alignment.RANSACOptions{
		Threshold:     c.RANSACThreshold,
		MaxIterations: c.RANSACMaxIterations,
		Confidence:    c.RANSACConfidence,
		Seed:          c.Seed,
	}
}

// Render returns the composite options.
func (c Config) Render() render.Options {
	opts := render.DefaultOptions()
	opts.MaxDrawnMatches = c.MaxDrawnMatches
	opts.DrawKeypoints = c.DrawKeypoints
	return opts
}

// Channels returns the parsed channel order. Validate must have succeeded.
func (c Config) Channels() orbimage.ChannelOrder {
	order, err := orbimage.ParseChannelOrder(c.ChannelOrder)
	if err != nil {
		return orbimage.DefaultChannelOrder
	}
	return order
}
