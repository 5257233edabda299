package world

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/voxel-sandbox/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MaxRandomSeed верхняя граница сида для «новой локации»
const MaxRandomSeed = 10000.0

// GenerationObserver получает сведения о каждой генерации мира
type GenerationObserver interface {
	ObserveGeneration(d time.Duration, blocks int)
}

// Manager владеет текущим миром. Мир заменяется целиком подменой ссылки,
// поэтому читатель никогда не видит частично построенную сетку.
// Старая сетка просто отбрасывается.
type Manager struct {
	generator *Generator
	radius    int
	grid      atomic.Pointer[Grid]
	seed      atomic.Uint64 // math.Float64bits текущего сида

	rngMu    sync.Mutex
	rng      *rand.Rand
	observer GenerationObserver
	tracer   trace.Tracer
}

// NewManager создаёт менеджер и сразу генерирует мир с указанным сидом
func NewManager(ctx context.Context, gen *Generator, seed float64, radius int, observer GenerationObserver) *Manager {
	if gen == nil {
		gen = NewGenerator()
	}
	wm := &Manager{
		generator: gen,
		radius:    radius,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		observer:  observer,
		tracer:    otel.Tracer("github.com/annel0/voxel-sandbox/internal/world"),
	}
	wm.regenerate(ctx, seed)
	return wm
}

// Grid возвращает текущий мир
func (wm *Manager) Grid() *Grid {
	return wm.grid.Load()
}

// Seed возвращает сид текущего мира
func (wm *Manager) Seed() float64 {
	return math.Float64frombits(wm.seed.Load())
}

// Radius возвращает радиус генерации
func (wm *Manager) Radius() int {
	return wm.radius
}

// Restart перегенерирует мир из того же сида, отбрасывая все правки игрока
func (wm *Manager) Restart(ctx context.Context) *Grid {
	return wm.regenerate(ctx, wm.Seed())
}

// NewLocation выбирает новый случайный сид и генерирует мир
func (wm *Manager) NewLocation(ctx context.Context) *Grid {
	wm.rngMu.Lock()
	seed := wm.rng.Float64() * MaxRandomSeed
	wm.rngMu.Unlock()

	return wm.regenerate(ctx, seed)
}

// Reseed генерирует мир с явно заданным сидом
func (wm *Manager) Reseed(ctx context.Context, seed float64) *Grid {
	return wm.regenerate(ctx, seed)
}

// SetRand заменяет источник случайных сидов (для воспроизводимых запусков)
func (wm *Manager) SetRand(rng *rand.Rand) {
	wm.rngMu.Lock()
	wm.rng = rng
	wm.rngMu.Unlock()
}

func (wm *Manager) regenerate(ctx context.Context, seed float64) *Grid {
	_, span := wm.tracer.Start(ctx, "world.Generate", trace.WithAttributes(
		attribute.Float64("world.seed", seed),
		attribute.Int("world.radius", wm.radius),
		attribute.String("world.noise", string(wm.generator.Noise)),
	))
	defer span.End()

	start := time.Now()
	grid := wm.generator.Generate(seed, wm.radius)
	elapsed := time.Since(start)

	blocks := grid.Len()
	span.SetAttributes(attribute.Int("world.blocks", blocks))

	// Сначала сид, потом сетка: читатель сетки видит уже новый сид
	wm.seed.Store(math.Float64bits(seed))
	wm.grid.Store(grid)

	if wm.observer != nil {
		wm.observer.ObserveGeneration(elapsed, blocks)
	}
	logging.GetWorldLogger().Info("🌍 Мир сгенерирован: seed=%.4f radius=%d blocks=%d за %v", seed, wm.radius, blocks, elapsed)
	return grid
}
