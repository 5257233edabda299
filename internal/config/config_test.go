package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/annel0/voxel-sandbox/internal/world"
	"github.com/annel0/voxel-sandbox/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sandbox.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsWithoutPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 30, cfg.World.Radius, "Радиус мира по умолчанию")
	assert.Equal(t, world.NoiseLattice, cfg.World.NoiseKind())
	assert.Equal(t, block.Dirt, cfg.Player.Held())
	require.NoError(t, cfg.Validate())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
world:
  seed: 42.5
  noise: perlin
  trees: 0.05
player:
  held_block: Stone
sim:
  tick_rate: 30
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42.5, cfg.World.Seed)
	assert.Equal(t, 30, cfg.World.Radius, "Незаданные поля сохраняют значения по умолчанию")
	assert.Equal(t, world.NoisePerlin, cfg.World.NoiseKind())
	assert.Equal(t, 0.05, cfg.World.Trees)
	assert.Equal(t, block.Stone, cfg.Player.Held())
	assert.Equal(t, 0.02, cfg.Player.Gravity)
	assert.Equal(t, 30, cfg.Sim.TickRate)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_FromEnv(t *testing.T) {
	path := writeConfig(t, "world:\n  radius: 8\n")
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.World.Radius)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "Отсутствующий файл")

	_, err = Load(writeConfig(t, "world: [1, 2"))
	assert.Error(t, err, "Битый YAML")

	_, err = Load(writeConfig(t, "world:\n  noise: simplex\n"))
	assert.ErrorContains(t, err, "simplex")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"radius", func(c *Config) { c.World.Radius = 0 }},
		{"trees", func(c *Config) { c.World.Trees = 1.5 }},
		{"reach", func(c *Config) { c.Player.Reach = 0 }},
		{"collider", func(c *Config) { c.Player.Height = -1 }},
		{"yaw blend", func(c *Config) { c.Player.YawBlend = 2 }},
		{"air in hand", func(c *Config) { c.Player.HeldBlock = "air" }},
		{"unknown block", func(c *Config) { c.Player.HeldBlock = "lava" }},
		{"tick rate", func(c *Config) { c.Sim.TickRate = 0 }},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestGetMetricsPort(t *testing.T) {
	m := MetricsConfig{Port: 9100}
	t.Setenv(EnvMetricsPort, "9200")
	assert.Equal(t, 9100, m.GetMetricsPort(), "Конфиг важнее окружения")

	m.Port = 0
	assert.Equal(t, 9200, m.GetMetricsPort())

	t.Setenv(EnvMetricsPort, "not-a-port")
	assert.Equal(t, DefaultMetricsPort, m.GetMetricsPort())

	t.Setenv(EnvMetricsPort, "")
	assert.Equal(t, DefaultMetricsPort, m.GetMetricsPort())
}
