package main

import (
	"flag"
	"io"
	"testing"

	"github.com/annel0/voxel-sandbox/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet() (*flag.FlagSet, *float64) {
	fs := flag.NewFlagSet("sandbox", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	seed := fs.Float64("seed", 0, "")
	fs.Uint64("ticks", 0, "")
	return fs, seed
}

func TestExplicitSeed_ZeroIsOverride(t *testing.T) {
	fs, seed := newFlagSet()
	require.NoError(t, fs.Parse([]string{"-seed", "0"}))

	override := explicitSeed(fs, seed)
	require.NotNil(t, override, "Явный -seed 0 должен считаться заданным")

	cfg := config.Default()
	cfg.World.Seed = 42
	applySeedOverride(cfg, override)
	assert.Equal(t, 0.0, cfg.World.Seed)
}

func TestExplicitSeed_NotSet(t *testing.T) {
	fs, seed := newFlagSet()
	require.NoError(t, fs.Parse([]string{"-ticks", "10"}))

	override := explicitSeed(fs, seed)
	assert.Nil(t, override)

	cfg := config.Default()
	cfg.World.Seed = 42
	applySeedOverride(cfg, override)
	assert.Equal(t, 42.0, cfg.World.Seed, "Без флага сид берётся из конфигурации")
}
