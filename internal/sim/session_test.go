package sim

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/annel0/voxel-sandbox/internal/eventbus"
	"github.com/annel0/voxel-sandbox/internal/metrics"
	"github.com/annel0/voxel-sandbox/internal/vec"
	"github.com/annel0/voxel-sandbox/internal/world"
	"github.com/annel0/voxel-sandbox/internal/world/block"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSeed   = 1.0
	testRadius = 4
)

// Высоко над центром клетки (0, 0): падая, игрок приземляется на верх колонки
var highSpawn = mgl64.Vec3{0.5, 30, 0.5}

type eventLog struct {
	mu     sync.Mutex
	events []*eventbus.Envelope
}

func (l *eventLog) handle(_ context.Context, ev *eventbus.Envelope) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) ofType(eventType string) []*eventbus.Envelope {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*eventbus.Envelope
	for _, ev := range l.events {
		if ev.EventType == eventType {
			out = append(out, ev)
		}
	}
	return out
}

type sessionFixture struct {
	session  *Session
	manager  *world.Manager
	registry *prometheus.Registry
	events   *eventLog
}

func newFixture(t *testing.T, spawn mgl64.Vec3) *sessionFixture {
	t.Helper()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	bus := eventbus.NewMemoryBus(64)
	t.Cleanup(bus.Close)

	log := &eventLog{}
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{}, log.handle)
	require.NoError(t, err)

	mgr := world.NewManager(context.Background(), world.NewGenerator(), testSeed, testRadius, m)
	st := NewStepper(DefaultConfig(), m)

	return &sessionFixture{
		session:  NewSession(mgr, st, bus, m, spawn),
		manager:  mgr,
		registry: reg,
		events:   log,
	}
}

// settle гоняет пустые тики, пока игрок не приземлится
func (f *sessionFixture) settle(t *testing.T) {
	t.Helper()
	for i := 0; i < 300; i++ {
		res, ok := f.session.Tick(context.Background(), ControlIntent{}, lookNorth, testDT)
		require.True(t, ok)
		if i > 0 && res.Player.Velocity[1] == 0 {
			return
		}
	}
	t.Fatal("игрок так и не приземлился")
}

func TestSession_SpawnOnPlatform(t *testing.T) {
	f := newFixture(t, DefaultSpawn)

	p := f.session.Player()
	assert.Equal(t, DefaultSpawn, p.Position)
	assert.Equal(t, block.Dirt, p.Held, "По умолчанию в руке земля")
	assert.Equal(t, FirstPerson, p.Camera)

	// Площадка спавна под ногами всегда твёрдая
	assert.True(t, f.manager.Grid().IsSolid(vec.Vec3{X: 0, Y: world.SpawnY, Z: 0}))
}

func TestSession_DestroyPublishesEdit(t *testing.T) {
	f := newFixture(t, highSpawn)
	f.settle(t)

	feet := vec.Floor(f.session.Player().Position)
	below := feet.Up(-1)
	require.True(t, f.manager.Grid().IsSolid(below), "Игрок стоит на блоке")

	res, ok := f.session.Tick(context.Background(), ControlIntent{Destroy: true}, lookDown, testDT)
	require.True(t, ok)
	require.NotNil(t, res.Edit)
	assert.Equal(t, below, res.Edit.Pos)
	assert.False(t, f.manager.Grid().IsSolid(below))
	assert.False(t, f.session.Pending().Destroy, "Флаг поглощён")

	assert.Eventually(t, func() bool {
		return len(f.events.ofType(eventbus.TypeWorldEdit)) == 1
	}, time.Second, 5*time.Millisecond)

	var payload EditEvent
	require.NoError(t, f.events.ofType(eventbus.TypeWorldEdit)[0].Decode(&payload))
	assert.Equal(t, "destroy", payload.Op)
	assert.Equal(t, below, vec.Vec3{X: payload.X, Y: payload.Y, Z: payload.Z})
	assert.Equal(t, 1.0, f.counterValue(t, "sandbox_world_edits_total", "op", "destroy"))
}

// counterValue читает значение счётчика с меткой из реестра
func (f *sessionFixture) counterValue(t *testing.T, name, label, value string) float64 {
	t.Helper()
	mfs, err := f.registry.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestSession_JumpWaitsForGround(t *testing.T) {
	f := newFixture(t, highSpawn)

	_, ok := f.session.Tick(context.Background(), ControlIntent{Jump: true}, lookNorth, testDT)
	require.True(t, ok)
	assert.True(t, f.session.Pending().Jump, "В воздухе прыжок ждёт приземления")

	jumped := false
	for i := 0; i < 300 && !jumped; i++ {
		res, _ := f.session.Tick(context.Background(), ControlIntent{}, lookNorth, testDT)
		if res.Consumed.Jump {
			jumped = true
			assert.Equal(t, DefaultJumpImpulse, res.Player.Velocity[1])
		}
	}
	assert.True(t, jumped, "Прыжок срабатывает сразу после приземления")
	assert.False(t, f.session.Pending().Jump)
}

func TestSession_RespawnPauses(t *testing.T) {
	// Спавн за пределами мира над пустотой
	spawn := mgl64.Vec3{100.5, -19.9, 100.5}
	f := newFixture(t, spawn)

	var respawned bool
	for i := 0; i < 20 && !respawned; i++ {
		res, ok := f.session.Tick(context.Background(), ControlIntent{Place: true}, lookNorth, testDT)
		require.True(t, ok)
		respawned = res.Respawn
	}
	require.True(t, respawned)

	assert.True(t, f.session.Paused())
	p := f.session.Player()
	assert.Equal(t, spawn, p.Position, "Игрок перенесён на спавн")
	assert.Equal(t, mgl64.Vec3{}, p.Velocity)
	assert.Equal(t, ControlIntent{}, f.session.Pending(), "Ввод сброшен")

	ticks := f.session.Ticks()
	_, ok := f.session.Tick(context.Background(), ControlIntent{Forward: true}, lookNorth, testDT)
	assert.False(t, ok, "На паузе тик не выполняется")
	assert.Equal(t, ticks, f.session.Ticks())
	assert.Equal(t, spawn, f.session.Player().Position)

	f.session.Resume()
	_, ok = f.session.Tick(context.Background(), ControlIntent{}, lookNorth, testDT)
	assert.True(t, ok)

	assert.Eventually(t, func() bool {
		return len(f.events.ofType(eventbus.TypePlayerRespawn)) == 1
	}, time.Second, 5*time.Millisecond)
	var payload RespawnEvent
	require.NoError(t, f.events.ofType(eventbus.TypePlayerRespawn)[0].Decode(&payload))
	assert.Less(t, payload.At[1], DefaultDeathAltitude)
	assert.Equal(t, [3]float64(spawn), payload.To)
}

func TestSession_RestartDiscardsEdits(t *testing.T) {
	f := newFixture(t, highSpawn)
	f.settle(t)

	_, ok := f.session.Tick(context.Background(), ControlIntent{Destroy: true}, lookDown, testDT)
	require.True(t, ok)
	edited := f.manager.Grid()
	pristine := world.Generate(testSeed, testRadius)
	require.False(t, edited.Equal(pristine), "Правка изменила мир")

	f.session.Restart(context.Background())

	assert.True(t, f.manager.Grid().Equal(pristine), "Перезапуск отбрасывает правки")
	assert.Equal(t, testSeed, f.manager.Seed())
	assert.Equal(t, highSpawn, f.session.Player().Position)
	assert.False(t, f.session.Paused())

	assert.Eventually(t, func() bool {
		return len(f.events.ofType(eventbus.TypeWorldReset)) == 1
	}, time.Second, 5*time.Millisecond)
	var payload ResetEvent
	require.NoError(t, f.events.ofType(eventbus.TypeWorldReset)[0].Decode(&payload))
	assert.Equal(t, ResetRestart, payload.Kind)
	assert.Equal(t, pristine.Len(), payload.Blocks)
	assert.Equal(t, 1.0, f.counterValue(t, "sandbox_world_resets_total", "kind", ResetRestart))
}

func TestSession_NewLocation(t *testing.T) {
	f := newFixture(t, DefaultSpawn)
	f.manager.SetRand(rand.New(rand.NewSource(42)))

	f.session.NewLocation(context.Background())

	seed := f.manager.Seed()
	assert.NotEqual(t, testSeed, seed)
	assert.GreaterOrEqual(t, seed, 0.0)
	assert.Less(t, seed, world.MaxRandomSeed)
	assert.True(t, f.manager.Grid().Equal(world.Generate(seed, testRadius)))

	assert.Eventually(t, func() bool {
		return len(f.events.ofType(eventbus.TypeWorldReset)) == 1
	}, time.Second, 5*time.Millisecond)
	var payload ResetEvent
	require.NoError(t, f.events.ofType(eventbus.TypeWorldReset)[0].Decode(&payload))
	assert.Equal(t, ResetNewLocation, payload.Kind)
	assert.Equal(t, seed, payload.Seed)
}

func TestSession_CameraAndHotbar(t *testing.T) {
	f := newFixture(t, DefaultSpawn)

	assert.Equal(t, ThirdPerson, f.session.ToggleCamera())
	assert.Equal(t, ThirdPerson, f.session.Player().Camera)
	assert.Equal(t, FirstPerson, f.session.ToggleCamera())

	got, err := f.session.SelectHotbar(3)
	require.NoError(t, err)
	assert.Equal(t, block.Stone, got)
	assert.Equal(t, block.Stone, f.session.Player().Held)

	_, err = f.session.SelectHotbar(0)
	assert.Error(t, err)
	_, err = f.session.SelectHotbar(6)
	assert.Error(t, err)
	assert.Equal(t, block.Stone, f.session.Player().Held, "Ошибочный выбор не меняет блок")
}

func TestSession_NilBusAndMetrics(t *testing.T) {
	mgr := world.NewManager(context.Background(), nil, testSeed, testRadius, nil)
	s := NewSession(mgr, NewStepper(DefaultConfig(), nil), nil, nil, DefaultSpawn)

	assert.NotPanics(t, func() {
		s.Tick(context.Background(), ControlIntent{Destroy: true}, lookDown, testDT)
		s.Restart(context.Background())
	})
}

func TestSession_PublishesToGlobalBus(t *testing.T) {
	bus := eventbus.NewMemoryBus(16)
	defer bus.Close()
	eventbus.Init(bus)
	defer eventbus.Init(nil)

	log := &eventLog{}
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{Types: []string{eventbus.TypeWorldReset}}, log.handle)
	require.NoError(t, err)

	mgr := world.NewManager(context.Background(), nil, testSeed, testRadius, nil)
	s := NewSession(mgr, NewStepper(DefaultConfig(), nil), nil, nil, DefaultSpawn)
	s.NewLocation(context.Background())

	assert.Eventually(t, func() bool {
		return len(log.ofType(eventbus.TypeWorldReset)) == 1
	}, time.Second, 5*time.Millisecond, "Без своей шины сессия публикует в глобальную")
}
