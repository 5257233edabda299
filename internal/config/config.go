package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/annel0/voxel-sandbox/internal/logging"
	"github.com/annel0/voxel-sandbox/internal/world"
	"github.com/annel0/voxel-sandbox/internal/world/block"
)

// Переменные окружения
const (
	EnvConfigPath  = "SANDBOX_CONFIG"
	EnvMetricsPort = "SANDBOX_METRICS_PORT"

	DefaultMetricsPort = 2112
)

// Config корневая структура конфигурации песочницы.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Player    PlayerConfig    `yaml:"player"`
	Sim       SimConfig       `yaml:"sim"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type WorldConfig struct {
	Seed   float64 `yaml:"seed"`
	Radius int     `yaml:"radius"`
	Noise  string  `yaml:"noise"` // lattice | perlin
	Trees  float64 `yaml:"trees"` // Доля колонок с деревом, 0 — без деревьев
}

type PlayerConfig struct {
	Gravity       float64 `yaml:"gravity"`
	Speed         float64 `yaml:"speed"`
	JumpImpulse   float64 `yaml:"jump_impulse"`
	Reach         float64 `yaml:"reach"`
	EyeHeight     float64 `yaml:"eye_height"`
	DeathAltitude float64 `yaml:"death_altitude"`
	YawBlend      float64 `yaml:"yaw_blend"`
	Radius        float64 `yaml:"radius"`
	Height        float64 `yaml:"height"`
	HeldBlock     string  `yaml:"held_block"`
}

type SimConfig struct {
	TickRate int `yaml:"tick_rate"` // Тиков в секунду
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Service string `yaml:"service"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		World: WorldConfig{
			Seed:   1,
			Radius: 30,
			Noise:  string(world.NoiseLattice),
		},
		Player: PlayerConfig{
			Gravity:       0.02,
			Speed:         5,
			JumpImpulse:   0.4,
			Reach:         5,
			EyeHeight:     1.9,
			DeathAltitude: -20,
			YawBlend:      0.2,
			Radius:        0.3,
			Height:        2.0,
			HeldBlock:     block.Dirt.String(),
		},
		Sim:       SimConfig{TickRate: 60},
		Metrics:   MetricsConfig{Enabled: true},
		Telemetry: TelemetryConfig{Service: "voxel-sandbox"},
		Logging:   LoggingConfig{Level: "info"},
	}
}

// GetMetricsPort возвращает порт Prometheus с поддержкой fallback значений
func (m *MetricsConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(m.Port, EnvMetricsPort, DefaultMetricsPort)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
		logging.Warn("Некорректное значение %s=%q, используется порт %d", envVar, envVal, defaultPort)
	}

	return defaultPort
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать путь из ENV SANDBOX_CONFIG;
// если и он не задан, возвращает конфигурацию по умолчанию.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("конфигурация %s: %w", path, err)
	}
	return cfg, nil
}

// Validate проверяет значения конфигурации
func (c *Config) Validate() error {
	var errs []error

	if math.IsNaN(c.World.Seed) || math.IsInf(c.World.Seed, 0) {
		errs = append(errs, errors.New("world.seed должен быть конечным числом"))
	}
	if c.World.Radius < 1 {
		errs = append(errs, fmt.Errorf("world.radius должен быть >= 1, получено %d", c.World.Radius))
	}
	if _, err := world.ParseNoiseKind(c.World.Noise); err != nil {
		errs = append(errs, err)
	}
	if c.World.Trees < 0 || c.World.Trees > 1 {
		errs = append(errs, fmt.Errorf("world.trees должен быть в [0, 1], получено %v", c.World.Trees))
	}

	if c.Player.Reach <= 0 {
		errs = append(errs, fmt.Errorf("player.reach должен быть > 0, получено %v", c.Player.Reach))
	}
	if c.Player.Radius <= 0 || c.Player.Height <= 0 {
		errs = append(errs, errors.New("player.radius и player.height должны быть > 0"))
	}
	if c.Player.YawBlend < 0 || c.Player.YawBlend > 1 {
		errs = append(errs, fmt.Errorf("player.yaw_blend должен быть в [0, 1], получено %v", c.Player.YawBlend))
	}
	if held, err := block.Parse(c.Player.HeldBlock); err != nil {
		errs = append(errs, err)
	} else if !held.IsPlaceable() {
		errs = append(errs, fmt.Errorf("player.held_block %q нельзя поставить", c.Player.HeldBlock))
	}

	if c.Sim.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("sim.tick_rate должен быть > 0, получено %d", c.Sim.TickRate))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// NoiseKind возвращает разобранный источник шума
func (w *WorldConfig) NoiseKind() world.NoiseKind {
	kind, _ := world.ParseNoiseKind(w.Noise)
	return kind
}

// Held возвращает разобранный блок в руке
func (p *PlayerConfig) Held() block.Type {
	t, _ := block.Parse(p.HeldBlock)
	return t
}
