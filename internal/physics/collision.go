package physics

import (
	"math"

	"github.com/annel0/voxel-sandbox/internal/vec"
	"github.com/go-gl/mathgl/mgl64"
)

// BlockSource сообщает, занят ли воксель твёрдым блоком
type BlockSource interface {
	IsSolid(pos vec.Vec3) bool
}

// Константы коллайдера игрока
const (
	DefaultRadius  = 0.3 // Половина ширины основания
	DefaultHeight  = 2.0 // Высота коллайдера
	DefaultEpsilon = 0.1 // Сжатие основания, чтобы не застревать на ровной границе

	feetBand  = 0.1 // Отступ пробы ног от низа
	torsoBand = 1.0 // Высота пробы туловища
	headBand  = 0.1 // Отступ пробы головы от верха

	// JumpEpsilon допуск вертикальной скорости, при котором игрок считается стоящим
	JumpEpsilon = 0.001
)

// WorldUp направление «вверх» мира
var WorldUp = mgl64.Vec3{0, 1, 0}

// BoxCollider представляет вертикальный прямоугольный коллайдер игрока.
// Позиция коллайдера — центр основания (ноги).
type BoxCollider struct {
	Radius  float64
	Height  float64
	Epsilon float64
}

// NewBoxCollider создаёт новый коллайдер с указанными размерами
func NewBoxCollider(radius, height float64) *BoxCollider {
	return &BoxCollider{
		Radius:  radius,
		Height:  height,
		Epsilon: DefaultEpsilon,
	}
}

// GetCollisionPoints возвращает воксели, которые нужно проверить для позиции:
// четыре угла основания на трёх уровнях (ноги, туловище, голова).
func GetCollisionPoints(pos mgl64.Vec3, collider *BoxCollider) []vec.Vec3 {
	r := collider.Radius - collider.Epsilon

	corners := [4][2]float64{
		{pos[0] + r, pos[2] + r},
		{pos[0] - r, pos[2] + r},
		{pos[0] + r, pos[2] - r},
		{pos[0] - r, pos[2] - r},
	}
	bands := [3]float64{
		pos[1] + feetBand,
		pos[1] + torsoBand,
		pos[1] + collider.Height - headBand,
	}

	points := make([]vec.Vec3, 0, len(corners)*len(bands))
	for _, c := range corners {
		bx := int(math.Floor(c[0]))
		bz := int(math.Floor(c[1]))
		for _, y := range bands {
			points = append(points, vec.Vec3{X: bx, Y: int(math.Floor(y)), Z: bz})
		}
	}
	return points
}

// CheckCollision проверяет, пересекает ли коллайдер в позиции pos твёрдый блок
func CheckCollision(world BlockSource, pos mgl64.Vec3, collider *BoxCollider) bool {
	for _, point := range GetCollisionPoints(pos, collider) {
		if world.IsSolid(point) {
			return true
		}
	}
	return false
}

// CanMoveToPosition проверяет, может ли коллайдер занять позицию
func CanMoveToPosition(world BlockSource, newPos mgl64.Vec3, collider *BoxCollider) bool {
	return !CheckCollision(world, newPos, collider)
}

// MovementBasis строит горизонтальный базис из направления взгляда камеры.
// forward — взгляд без вертикальной компоненты, right = forward × up.
// При взгляде строго вверх или вниз базис нулевой.
func MovementBasis(look mgl64.Vec3) (forward, right mgl64.Vec3) {
	forward = normalizeOrZero(mgl64.Vec3{look[0], 0, look[2]})
	right = normalizeOrZero(forward.Cross(WorldUp))
	return forward, right
}

// HorizontalResult результат горизонтального перемещения
type HorizontalResult struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	CollideX bool
	CollideZ bool
}

// MoveHorizontal применяет смещение раздельно по осям: сначала X, затем Z.
// Заблокированная ось обнуляет соответствующую компоненту скорости,
// поэтому игрок скользит вдоль стен и не срезает углы по диагонали.
func MoveHorizontal(world BlockSource, pos, vel, displacement mgl64.Vec3, collider *BoxCollider) HorizontalResult {
	res := HorizontalResult{Position: pos, Velocity: vel}

	nextX := res.Position
	nextX[0] += displacement[0]
	if CanMoveToPosition(world, nextX, collider) {
		res.Position = nextX
	} else {
		res.Velocity[0] = 0
		res.CollideX = true
	}

	nextZ := res.Position
	nextZ[2] += displacement[2]
	if CanMoveToPosition(world, nextZ, collider) {
		res.Position = nextZ
	} else {
		res.Velocity[2] = 0
		res.CollideZ = true
	}

	return res
}

// ApplyGravity уменьшает вертикальную скорость на gravity. Накопление не ограничено.
func ApplyGravity(vel mgl64.Vec3, gravity float64) mgl64.Vec3 {
	vel[1] -= gravity
	return vel
}

// IntegrateVertical сдвигает позицию по Y на скорость и, если игрок падает
// внутрь твёрдого блока под ногами, ставит его на верх этого блока.
// Это дискретная поправка: смещение больше блока за тик может пройти сквозь слой.
func IntegrateVertical(world BlockSource, pos, vel mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3, bool) {
	pos[1] += vel[1]

	feet := vec.Floor(pos)
	if vel[1] < 0 && world.IsSolid(feet) {
		pos[1] = float64(feet.Y + 1)
		vel[1] = 0
		return pos, vel, true
	}
	return pos, vel, false
}

// CanJump разрешает прыжок, только если вертикальная скорость почти нулевая
// и под ногами твёрдый блок либо игрок стоит ровно на целой высоте.
func CanJump(world BlockSource, pos, vel mgl64.Vec3) bool {
	if math.Abs(vel[1]) >= JumpEpsilon {
		return false
	}
	below := vec.Floor(pos).Up(-1)
	return world.IsSolid(below) || pos[1] == math.Floor(pos[1])
}

// normalizeOrZero нормализует вектор; нулевой вектор остаётся нулевым
func normalizeOrZero(v mgl64.Vec3) mgl64.Vec3 {
	if v.Dot(v) == 0 {
		return mgl64.Vec3{}
	}
	return v.Normalize()
}
