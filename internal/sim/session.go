package sim

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/annel0/voxel-sandbox/internal/eventbus"
	"github.com/annel0/voxel-sandbox/internal/logging"
	"github.com/annel0/voxel-sandbox/internal/metrics"
	"github.com/annel0/voxel-sandbox/internal/world"
	"github.com/annel0/voxel-sandbox/internal/world/block"
	"github.com/go-gl/mathgl/mgl64"
)

// EventSource имя источника событий сессии на шине
const EventSource = "sim.session"

// Причины перегенерации мира
const (
	ResetRestart     = "restart"
	ResetNewLocation = "new_location"
)

// DefaultSpawn точка появления: над платформой спавна
var DefaultSpawn = mgl64.Vec3{0, world.SpawnY + 1, 0}

// EditEvent полезная нагрузка события world.edit
type EditEvent struct {
	Tick  uint64 `json:"tick"`
	Op    string `json:"op"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Z     int    `json:"z"`
	Block string `json:"block,omitempty"`
}

// RespawnEvent полезная нагрузка события player.respawn
type RespawnEvent struct {
	Tick uint64     `json:"tick"`
	At   [3]float64 `json:"at"`    // Где игрок пересёк высоту смерти
	To   [3]float64 `json:"spawn"` // Куда он перенесён
}

// ResetEvent полезная нагрузка события world.reset
type ResetEvent struct {
	Kind   string  `json:"kind"`
	Seed   float64 `json:"seed"`
	Radius int     `json:"radius"`
	Blocks int     `json:"blocks"`
}

// Session внешний игровой цикл вокруг степпера: владеет игроком,
// паузой после смерти, режимом камеры и выбором блока.
type Session struct {
	mu      sync.Mutex
	manager *world.Manager
	stepper *Stepper
	bus     eventbus.EventBus
	metrics *metrics.Metrics

	spawn   mgl64.Vec3
	player  PlayerState
	pending ControlIntent // Флаги по фронту ждут, пока степпер их не поглотит
	paused  bool
	tick    uint64
}

// NewSession создаёт сессию. m может быть nil. При bus == nil события
// уходят в глобальную шину (eventbus.Init), если она задана.
func NewSession(manager *world.Manager, stepper *Stepper, bus eventbus.EventBus, m *metrics.Metrics, spawn mgl64.Vec3) *Session {
	return &Session{
		manager: manager,
		stepper: stepper,
		bus:     bus,
		metrics: m,
		spawn:   spawn,
		player:  NewPlayer(spawn),
	}
}

// Player возвращает копию состояния игрока
func (s *Session) Player() PlayerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player
}

// Pending возвращает ещё не поглощённый ввод
func (s *Session) Pending() ControlIntent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Paused сообщает, стоит ли симуляция на паузе (после смерти)
func (s *Session) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Ticks возвращает число выполненных тиков
func (s *Session) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// Tick выполняет один шаг. Направления берутся из input как есть,
// Jump/Place/Destroy накапливаются до поглощения степпером.
// На паузе возвращает false и ничего не делает.
func (s *Session) Tick(ctx context.Context, input ControlIntent, cam Camera, dt float64) (StepResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused {
		return StepResult{Player: s.player}, false
	}

	intent := input
	intent.Jump = input.Jump || s.pending.Jump
	intent.Place = input.Place || s.pending.Place
	intent.Destroy = input.Destroy || s.pending.Destroy

	s.tick++
	from := s.player.Position
	res := s.stepper.Step(ctx, s.manager.Grid(), s.player, intent, cam, dt)
	s.player = res.Player
	to := s.player.Position
	logging.GetSimLogger().LogPlayerMovement(s.tick, from[0], from[1], from[2], to[0], to[1], to[2])
	s.pending = intent.Consume(res.Consumed)

	if res.Edit != nil {
		s.publish(ctx, eventbus.TypeWorldEdit, 5, editEvent(s.tick, res.Edit))
	}
	if res.Respawn {
		s.respawnLocked(ctx)
	}
	return res, true
}

// respawnLocked переносит игрока на спавн и ставит паузу до Resume
func (s *Session) respawnLocked(ctx context.Context) {
	at := s.player.Position
	s.player.Position = s.spawn
	s.player.Velocity = mgl64.Vec3{}
	s.pending = ControlIntent{}
	s.paused = true

	logging.GetSimLogger().Info("💀 Игрок упал в %v, перенесён на спавн %v", at, s.spawn)
	s.publish(ctx, eventbus.TypePlayerRespawn, 7, RespawnEvent{Tick: s.tick, At: [3]float64(at), To: [3]float64(s.spawn)})
}

// Resume снимает паузу
func (s *Session) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}

// Restart перегенерирует мир с тем же сидом
func (s *Session) Restart(ctx context.Context) {
	s.reset(ctx, ResetRestart, s.manager.Restart)
}

// NewLocation перегенерирует мир с новым случайным сидом
func (s *Session) NewLocation(ctx context.Context) {
	s.reset(ctx, ResetNewLocation, s.manager.NewLocation)
}

func (s *Session) reset(ctx context.Context, kind string, regen func(context.Context) *world.Grid) {
	s.mu.Lock()
	defer s.mu.Unlock()

	grid := regen(ctx)
	s.player.Position = s.spawn
	s.player.Velocity = mgl64.Vec3{}
	s.pending = ControlIntent{}
	s.paused = false
	s.metrics.IncReset(kind)

	logging.GetSimLogger().Info("🌍 Мир перегенерирован (%s): seed=%.2f", kind, s.manager.Seed())
	s.publish(ctx, eventbus.TypeWorldReset, 9, ResetEvent{
		Kind:   kind,
		Seed:   s.manager.Seed(),
		Radius: s.manager.Radius(),
		Blocks: grid.Len(),
	})
}

// ToggleCamera переключает вид от первого/третьего лица
func (s *Session) ToggleCamera() CameraMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player.Camera = s.player.Camera.Toggle()
	return s.player.Camera
}

// SelectHotbar выбирает блок по номеру ячейки (1–5)
func (s *Session) SelectHotbar(slot int) (block.Type, error) {
	t, ok := block.FromHotbar(slot)
	if !ok {
		return block.Air, fmt.Errorf("ячейка панели %d вне диапазона 1..%d", slot, len(block.Hotbar))
	}
	s.mu.Lock()
	s.player.Held = t
	s.mu.Unlock()
	return t, nil
}

func (s *Session) publish(ctx context.Context, eventType string, priority int, payload interface{}) {
	if s.bus == nil && eventbus.Global() == nil {
		return
	}
	logger := logging.GetSimLogger()
	ev, err := eventbus.NewEnvelope(EventSource, eventType, priority, payload)
	if err != nil {
		logger.Warn("Не удалось создать событие %s: %v", eventType, err)
		return
	}
	ev.CorrelationID = strconv.FormatUint(s.tick, 10)

	if s.bus != nil {
		err = s.bus.Publish(ctx, ev)
	} else {
		err = eventbus.Publish(ctx, ev)
	}
	if err != nil {
		logger.Warn("Не удалось опубликовать событие %s: %v", eventType, err)
	}
}

func editEvent(tick uint64, e *WorldEdit) EditEvent {
	ev := EditEvent{Tick: tick, Op: e.Op.String(), X: e.Pos.X, Y: e.Pos.Y, Z: e.Pos.Z}
	if e.Op == EditPlace {
		ev.Block = e.Block.String()
	}
	return ev
}
