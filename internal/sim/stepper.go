package sim

import (
	"context"
	"math"

	"github.com/annel0/voxel-sandbox/internal/logging"
	"github.com/annel0/voxel-sandbox/internal/metrics"
	"github.com/annel0/voxel-sandbox/internal/physics"
	"github.com/annel0/voxel-sandbox/internal/vec"
	"github.com/annel0/voxel-sandbox/internal/world"
	"github.com/go-gl/mathgl/mgl64"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Физические константы по умолчанию
const (
	DefaultGravity       = 0.02 // Вычитается из vy каждый тик
	DefaultSpeed         = 5.0  // Блоков в секунду
	DefaultJumpImpulse   = 0.4
	DefaultReach         = 5.0
	DefaultEyeHeight     = 1.9
	DefaultDeathAltitude = -20.0
	DefaultYawBlend      = 0.2

	// minYawMove минимальный квадрат смещения за тик, при котором аватар поворачивается
	minYawMove = 0.0001
)

// Config параметры степпера
type Config struct {
	Gravity       float64
	Speed         float64
	JumpImpulse   float64
	Reach         float64
	EyeHeight     float64
	DeathAltitude float64
	YawBlend      float64
	Collider      physics.BoxCollider
}

// DefaultConfig возвращает параметры по умолчанию
func DefaultConfig() Config {
	return Config{
		Gravity:       DefaultGravity,
		Speed:         DefaultSpeed,
		JumpImpulse:   DefaultJumpImpulse,
		Reach:         DefaultReach,
		EyeHeight:     DefaultEyeHeight,
		DeathAltitude: DefaultDeathAltitude,
		YawBlend:      DefaultYawBlend,
		Collider:      *physics.NewBoxCollider(physics.DefaultRadius, physics.DefaultHeight),
	}
}

// Stepper выполняет один тик симуляции игрока.
// Единственная точка записи в мир во время игры.
type Stepper struct {
	cfg     Config
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// NewStepper создаёт степпер. m может быть nil.
func NewStepper(cfg Config, m *metrics.Metrics) *Stepper {
	return &Stepper{
		cfg:     cfg,
		metrics: m,
		tracer:  otel.Tracer("github.com/annel0/voxel-sandbox/internal/sim"),
	}
}

// Config возвращает параметры степпера
func (s *Stepper) Config() Config {
	return s.cfg
}

// Step выполняет тик: гравитация, горизонталь (X, затем Z), вертикаль,
// прыжок, проверка высоты смерти, поворот аватара и одна правка мира по лучу.
func (s *Stepper) Step(ctx context.Context, grid *world.Grid, player PlayerState, intent ControlIntent, cam Camera, dt float64) StepResult {
	_, span := s.tracer.Start(ctx, "sim.Step")
	defer span.End()
	s.metrics.IncTick()

	res := StepResult{Player: player}
	p := &res.Player
	collider := &s.cfg.Collider

	// 1. Гравитация
	p.Velocity = physics.ApplyGravity(p.Velocity, s.cfg.Gravity)

	// 2. Желаемое горизонтальное смещение
	move := s.moveDisplacement(intent, cam, dt)

	// 3. Разрешение по X, затем по Z
	h := physics.MoveHorizontal(grid, p.Position, p.Velocity, move, collider)
	p.Position, p.Velocity = h.Position, h.Velocity

	// 4. Вертикаль и приземление
	p.Position, p.Velocity, _ = physics.IntegrateVertical(grid, p.Position, p.Velocity)

	// 5. Прыжок
	if intent.Jump && physics.CanJump(grid, p.Position, p.Velocity) {
		p.Velocity[1] = s.cfg.JumpImpulse
		res.Consumed.Jump = true
	}

	// 6. Падение за пределы мира
	if p.Position[1] < s.cfg.DeathAltitude {
		p.Velocity = mgl64.Vec3{}
		res.Respawn = true
		s.metrics.IncRespawn()
		span.SetAttributes(attribute.Bool("respawn", true))
		logging.GetSimLogger().Debug("Игрок упал ниже %.1f в %v, нужен респаун", s.cfg.DeathAltitude, p.Position)
		return res
	}

	// 7. Плавный поворот к направлению движения
	if move.Dot(move) > minYawMove {
		p.Yaw = BlendYaw(p.Yaw, math.Atan2(move[0], move[2]), s.cfg.YawBlend)
	}

	// 8. Правка мира
	if intent.Place || intent.Destroy {
		res.Edit = s.applyEdit(grid, p, intent, cam)
		res.Consumed.Place = intent.Place
		res.Consumed.Destroy = intent.Destroy
		if res.Edit != nil {
			span.SetAttributes(
				attribute.String("edit.op", res.Edit.Op.String()),
				attribute.String("edit.pos", res.Edit.Pos.String()),
			)
		}
	}

	return res
}

// moveDisplacement переводит направления ввода в смещение за тик
func (s *Stepper) moveDisplacement(intent ControlIntent, cam Camera, dt float64) mgl64.Vec3 {
	forward, right := physics.MovementBasis(cam.Look)

	var dir mgl64.Vec3
	if intent.Forward {
		dir = dir.Add(forward)
	}
	if intent.Backward {
		dir = dir.Sub(forward)
	}
	if intent.Right {
		dir = dir.Add(right)
	}
	if intent.Left {
		dir = dir.Sub(right)
	}

	if dir.Dot(dir) == 0 {
		return mgl64.Vec3{}
	}
	return dir.Normalize().Mul(s.cfg.Speed * dt)
}

// applyEdit делает один рейкаст из глаз игрока и применяет разрушение или установку.
// При обоих флагах побеждает разрушение.
func (s *Stepper) applyEdit(grid *world.Grid, p *PlayerState, intent ControlIntent, cam Camera) *WorldEdit {
	logger := logging.GetSimLogger()
	eye := p.Position.Add(mgl64.Vec3{0, s.cfg.EyeHeight, 0})
	hit, ok := physics.Cast(grid, eye, cam.Look, s.cfg.Reach)
	s.metrics.ObserveRaycast(hit.Steps)
	if !ok {
		return nil
	}

	if intent.Destroy {
		if !grid.Remove(hit.Block) {
			return nil
		}
		s.metrics.IncEdit(EditDestroy.String())
		s.metrics.AddWorldBlocks(-1)
		logger.Debug("Разрушен блок %s", hit.Block)
		return &WorldEdit{Op: EditDestroy, Pos: hit.Block}
	}

	if !p.Held.IsPlaceable() {
		logger.Debug("Установка отклонена: блок %s нельзя поставить", p.Held)
		return nil
	}
	// Луч начался внутри блока: воздуха для установки нет
	if hit.Anchor.Equals(hit.Block) {
		return nil
	}
	if occupiesCell(p.Position, hit.Anchor) {
		logger.Debug("Установка отклонена: %s внутри игрока", hit.Anchor)
		return nil
	}

	grid.Set(hit.Anchor, p.Held)
	s.metrics.IncEdit(EditPlace.String())
	s.metrics.AddWorldBlocks(1)
	logger.Debug("Установлен блок %s в %s", p.Held, hit.Anchor)
	return &WorldEdit{Op: EditPlace, Pos: hit.Anchor, Block: p.Held}
}

// occupiesCell сообщает, попадает ли клетка в две вертикальные клетки игрока
func occupiesCell(pos mgl64.Vec3, cell vec.Vec3) bool {
	feet := vec.Floor(pos)
	if cell.X != feet.X || cell.Z != feet.Z {
		return false
	}
	return cell.Y == feet.Y || cell.Y == feet.Y+1
}

// BlendYaw поворачивает current к target по кратчайшей дуге на долю factor.
// Разница углов приводится к (−π, π].
func BlendYaw(current, target, factor float64) float64 {
	return current + WrapAngle(target-current)*factor
}

// WrapAngle приводит угол к диапазону (−π, π]
func WrapAngle(a float64) float64 {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return 0
	}
	a = math.Mod(a, 2*math.Pi)
	if a > math.Pi {
		a -= 2 * math.Pi
	} else if a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
