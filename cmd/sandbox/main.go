package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/annel0/voxel-sandbox/internal/config"
	"github.com/annel0/voxel-sandbox/internal/eventbus"
	"github.com/annel0/voxel-sandbox/internal/logging"
	"github.com/annel0/voxel-sandbox/internal/metrics"
	"github.com/annel0/voxel-sandbox/internal/observability"
	"github.com/annel0/voxel-sandbox/internal/physics"
	"github.com/annel0/voxel-sandbox/internal/sim"
	"github.com/annel0/voxel-sandbox/internal/world"
	"github.com/annel0/voxel-sandbox/internal/world/block"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// defaultScript демонстрационный сценарий: прогулка, прыжок, правки мира
const defaultScript = `
walk forward 90
jump
walk forward+left 30
look 0 -1 1
destroy
wait 10
hotbar 3
place
wait 30
look 0 0 1
camera
walk right 60
camera
`

func main() {
	var (
		configPath = flag.String("config", "", "Путь к YAML конфигурации (или ENV "+config.EnvConfigPath+")")
		scriptPath = flag.String("script", "", "Файл сценария ввода (по умолчанию встроенный)")
		maxTicks   = flag.Uint64("ticks", 0, "Остановиться после N тиков (0 — до сигнала)")
		seed       = flag.Float64("seed", 0, "Переопределить сид мира (по умолчанию из конфигурации)")
	)
	flag.Parse()


	// Инициализируем систему логирования
	if err := logging.InitDefaultLogger("sandbox"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	if err := run(*configPath, *scriptPath, *maxTicks, explicitSeed(flag.CommandLine, seed)); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
}

func run(configPath, scriptPath string, maxTicks uint64, seedOverride *float64) error {
	// === КОНФИГУРАЦИЯ ===
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("загрузка конфигурации: %w", err)
	}
	applySeedOverride(cfg, seedOverride)
	level, _ := logging.ParseLevel(cfg.Logging.Level)
	logging.SetLevel(level)

	logging.Info("🎮 Запуск voxel sandbox: seed=%.2f radius=%d noise=%s tick_rate=%d",
		cfg.World.Seed, cfg.World.Radius, cfg.World.Noise, cfg.Sim.TickRate)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === ТЕЛЕМЕТРИЯ ===
	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry.Service, cfg.Telemetry.Enabled)
	if err != nil {
		return fmt.Errorf("инициализация телеметрии: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logging.Warn("Ошибка остановки телеметрии: %v", err)
		}
	}()

	// === ШИНА СОБЫТИЙ ===
	bus := eventbus.NewMemoryBus(1024)
	defer bus.Close()
	eventbus.Init(bus)
	if _, err := eventbus.StartLoggingListener(eventbus.Global()); err != nil {
		return fmt.Errorf("подписка логгера событий: %w", err)
	}

	// === МЕТРИКИ ===
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		eventbus.NewStatsCollector(bus),
	)
	m := metrics.New(reg)
	if cfg.Metrics.Enabled {
		srv := metrics.StartHTTP(fmt.Sprintf(":%d", cfg.Metrics.GetMetricsPort()), reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				logging.Warn("Ошибка остановки /metrics: %v", err)
			}
		}()
	}

	// === МИР И СИМУЛЯЦИЯ ===
	gen := &world.Generator{Noise: cfg.World.NoiseKind(), TreeDensity: cfg.World.Trees}
	manager := world.NewManager(ctx, gen, cfg.World.Seed, cfg.World.Radius, m)

	stepper := sim.NewStepper(stepperConfig(cfg.Player), m)
	// Сессия публикует события в глобальную шину
	session := sim.NewSession(manager, stepper, nil, m, sim.DefaultSpawn)
	if _, err := session.SelectHotbar(hotbarSlot(cfg.Player)); err != nil {
		logging.Warn("Блок в руке из конфигурации не на панели: %v", err)
	}

	actions, err := loadScript(scriptPath)
	if err != nil {
		return err
	}
	input := sim.NewScriptInput(actions)

	logging.Info("✅ Симуляция запущена, Ctrl+C для остановки")
	runLoop(ctx, session, input, cfg.Sim.TickRate, maxTicks)

	p := session.Player()
	logging.Info("👋 Симуляция остановлена: тиков=%d позиция=%v блоков=%d",
		session.Ticks(), p.Position, manager.Grid().Len())
	return nil
}

// runLoop крутит тики с фиксированной частотой до отмены контекста или лимита
func runLoop(ctx context.Context, session *sim.Session, input *sim.ScriptInput, tickRate int, maxTicks uint64) {
	dt := 1.0 / float64(tickRate)
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info("📡 Получен сигнал завершения")
			return
		case <-ticker.C:
		}

		intent, cam := input.Next(ctx, session)
		res, ok := session.Tick(ctx, intent, cam, dt)
		if !ok {
			// Меню после смерти: возвращаемся в игру сразу
			logging.Info("⏸️  Игрок погиб, возобновляем с точки спавна")
			session.Resume()
			continue
		}
		if res.Edit != nil {
			logging.Info("🧱 %s %s", res.Edit.Op, res.Edit.Pos)
		}
		if maxTicks > 0 && session.Ticks() >= maxTicks {
			return
		}
	}
}

// explicitSeed возвращает значение -seed, только если флаг задан в командной строке
func explicitSeed(fs *flag.FlagSet, seed *float64) *float64 {
	var out *float64
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			out = seed
		}
	})
	return out
}

// applySeedOverride подменяет сид мира значением флага -seed, если флаг задан (в том числе 0)
func applySeedOverride(cfg *config.Config, seed *float64) {
	if seed != nil {
		cfg.World.Seed = *seed
	}
}

func stepperConfig(p config.PlayerConfig) sim.Config {
	return sim.Config{
		Gravity:       p.Gravity,
		Speed:         p.Speed,
		JumpImpulse:   p.JumpImpulse,
		Reach:         p.Reach,
		EyeHeight:     p.EyeHeight,
		DeathAltitude: p.DeathAltitude,
		YawBlend:      p.YawBlend,
		Collider:      *physics.NewBoxCollider(p.Radius, p.Height),
	}
}

// hotbarSlot ищет ячейку панели с блоком из конфигурации
func hotbarSlot(p config.PlayerConfig) int {
	held := p.Held()
	for i, t := range block.Hotbar {
		if t == held {
			return i + 1
		}
	}
	return 0
}

func loadScript(path string) ([]sim.Action, error) {
	if path == "" {
		return sim.ParseScript(strings.NewReader(defaultScript))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("открытие сценария: %w", err)
	}
	defer f.Close()

	actions, err := sim.ParseScript(f)
	if err != nil {
		return nil, fmt.Errorf("сценарий %s: %w", path, err)
	}
	return actions, nil
}
