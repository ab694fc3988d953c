package main

import (
	"bytes"
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"orbsim/internal/testimage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dir    string
	config string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	return fixture{dir: dir, config: filepath.Join(dir, "config.json")}
}

func (f fixture) write(t *testing.T, name string, shapes bool, seed int64) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	if shapes {
		require.NoError(t, testimage.WritePNG(path, testimage.Shapes(320, 240, 40, seed)))
	} else {
		require.NoError(t, testimage.WritePNG(path, testimage.Uniform(120, 120, color.NRGBA{R: 200, A: 255})))
	}
	return path
}

func (f fixture) run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"-config", f.config, "-log-level", "error"}, args...)
	code := run(context.Background(), full, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunSimilar(t *testing.T) {
	f := newFixture(t)
	img := f.write(t, "a.png", true, 1)
	out := filepath.Join(f.dir, "composite.png")

	code, stdout, _ := f.run(t, "-out", out, img, img)
	assert.Equal(t, exitOK, code)
	assert.Regexp(t, `^Image 1 is \d+\.\d{2}% similar to Image 2\.\n$`, stdout)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRunLoadFailure(t *testing.T) {
	f := newFixture(t)
	img := f.write(t, "a.png", true, 1)
	out := filepath.Join(f.dir, "composite.png")

	code, stdout, _ := f.run(t, "-out", out, img, filepath.Join(f.dir, "missing.png"))
	assert.Equal(t, exitFailure, code)
	assert.Equal(t, "Image comparison failed.\n", stdout)
	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestRunNoResult(t *testing.T) {
	f := newFixture(t)
	blank := f.write(t, "blank.png", false, 0)
	out := filepath.Join(f.dir, "composite.png")

	code, stdout, _ := f.run(t, "-out", out, blank, blank)
	assert.Equal(t, exitNoResult, code)
	assert.Equal(t, "Image comparison failed.\n", stdout)
	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestRunUsage(t *testing.T) {
	f := newFixture(t)
	code, _, stderr := f.run(t, "only-one.png")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "Usage")
}

func TestRunInvalidOverride(t *testing.T) {
	f := newFixture(t)
	img := f.write(t, "a.png", true, 1)
	code, _, stderr := f.run(t, "-channels", "XYZ", img, img)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "Invalid options")
}

func TestRunUnknownBackend(t *testing.T) {
	f := newFixture(t)
	img := f.write(t, "a.png", true, 1)
	code, _, _ := f.run(t, "-backend", "nope", img, img)
	assert.Equal(t, exitFailure, code)
}

func TestRunVersion(t *testing.T) {
	f := newFixture(t)
	code, stdout, _ := f.run(t, "-version")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "orbsim")
}

func TestRunHistory(t *testing.T) {
	f := newFixture(t)
	img := f.write(t, "a.png", true, 1)
	blank := f.write(t, "blank.png", false, 0)
	db := filepath.Join(f.dir, "history.db")
	out := filepath.Join(f.dir, "composite.png")

	code, _, _ := f.run(t, "-history", db, "-out", out, img, img)
	require.Equal(t, exitOK, code)
	code, _, _ = f.run(t, "-history", db, "-out", out, blank, blank)
	require.Equal(t, exitNoResult, code)

	code, stdout, _ := f.run(t, "-history", db, "-list-history", "5")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "OUTCOME")
	assert.Contains(t, stdout, "no-result")
	assert.Contains(t, stdout, "ok")
	assert.Contains(t, stdout, "%")

	code, _, stderr := f.run(t, "-list-history", "5")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "-history")
}

func TestRunSaveConfig(t *testing.T) {
	f := newFixture(t)
	img := f.write(t, "a.png", true, 1)
	saved := filepath.Join(f.dir, "saved.json")

	code, _, _ := f.run(t, "-save-config", saved, "-features", "300", "-out", filepath.Join(f.dir, "c.png"), img, img)
	require.Equal(t, exitOK, code)

	data, err := os.ReadFile(saved)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"max_features": 300`)
}

func TestRunSaveConfigOnly(t *testing.T) {
	f := newFixture(t)
	saved := filepath.Join(f.dir, "only.json")

	code, _, _ := f.run(t, "-save-config", saved, "-matches", "12")
	require.Equal(t, exitOK, code)

	data, err := os.ReadFile(saved)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"max_drawn_matches": 12`)
}

func TestRunWarnsOnUnknownExtension(t *testing.T) {
	f := newFixture(t)
	img := f.write(t, "a.img", true, 1)
	out := filepath.Join(f.dir, "composite.png")

	code, _, stderr := f.run(t, "-log-level", "warn", "-out", out, img, img)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stderr, "unrecognised image extension")
}
