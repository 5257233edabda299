package physics

import (
	"math"

	"github.com/annel0/voxel-sandbox/internal/vec"
	"github.com/go-gl/mathgl/mgl64"
)

// Hit результат рейкаста
type Hit struct {
	Block    vec.Vec3 // Первый твёрдый воксель на луче
	Anchor   vec.Vec3 // Последний воздушный воксель перед ним (точка установки)
	Distance float64  // Расстояние вдоль луча до входа в Block
	Steps    int      // Количество шагов обхода
}

// Traverser обходит воксели вдоль луча по алгоритму DDA (Amanatides–Woo),
// не пропуская и не посещая повторно ни одной ячейки.
type Traverser struct {
	cell   vec.Vec3
	step   [3]int
	tMax   [3]float64
	tDelta [3]float64
	dist   float64
	steps  int
}

// NewTraverser начинает обход из вокселя, содержащего origin.
// Ось с нулевой компонентой направления никогда не продвигается.
func NewTraverser(origin, dir mgl64.Vec3) Traverser {
	t := Traverser{cell: vec.Floor(origin)}

	for i := 0; i < 3; i++ {
		d := dir[i]
		delta := math.Abs(1 / d)
		if math.IsNaN(delta) || math.IsInf(delta, 0) {
			// Ноль, NaN и денормализованные компоненты: ось стоит на месте
			t.tDelta[i] = math.Inf(1)
			t.tMax[i] = math.Inf(1)
			continue
		}
		if d > 0 {
			t.step[i] = 1
		} else {
			t.step[i] = -1
		}

		t.tDelta[i] = delta
		base := math.Floor(origin[i])
		if t.step[i] > 0 {
			t.tMax[i] = (base + 1 - origin[i]) * t.tDelta[i]
		} else {
			t.tMax[i] = (origin[i] - base) * t.tDelta[i]
		}
	}

	return t
}

// Cell возвращает текущий воксель
func (t *Traverser) Cell() vec.Vec3 {
	return t.cell
}

// Distance возвращает параметрическое расстояние, на котором луч вошёл в текущий воксель
func (t *Traverser) Distance() float64 {
	return t.dist
}

// Steps возвращает количество выполненных шагов
func (t *Traverser) Steps() int {
	return t.steps
}

// Next переходит в следующий воксель вдоль оси с наименьшим tMax.
// При равенстве побеждает ось с меньшим индексом (X, затем Y, затем Z).
func (t *Traverser) Next() {
	axis := 0
	if t.tMax[1] < t.tMax[axis] {
		axis = 1
	}
	if t.tMax[2] < t.tMax[axis] {
		axis = 2
	}

	t.cell = t.cell.WithAxis(axis, t.cell.Axis(axis)+t.step[axis])
	t.dist = t.tMax[axis]
	t.tMax[axis] += t.tDelta[axis]
	t.steps++
}

// MaxSteps верхняя граница шагов для луча длиной maxDistance.
// Для единичного направления число пересечений границ не превышает
// √3·maxDistance + 3, так что граница с запасом.
// Для неконечной или неположительной длины проверяется только стартовый воксель.
func MaxSteps(maxDistance float64) int {
	if maxDistance <= 0 || math.IsNaN(maxDistance) || math.IsInf(maxDistance, 0) {
		return 0
	}
	return 2*int(math.Ceil(maxDistance)) + 4
}

// Cast ищет первый твёрдый воксель вдоль луча не дальше maxDistance.
// Направление нормализуется, поэтому maxDistance — реальная длина луча.
// Если стартовый воксель твёрдый, он же возвращается и как Anchor.
func Cast(world BlockSource, origin, dir mgl64.Vec3, maxDistance float64) (Hit, bool) {
	tr := NewTraverser(origin, normalizeOrZero(dir))
	limit := MaxSteps(maxDistance)

	prev := tr.Cell()
	for tr.Distance() <= maxDistance && tr.Steps() <= limit {
		cell := tr.Cell()
		if world.IsSolid(cell) {
			return Hit{
				Block:    cell,
				Anchor:   prev,
				Distance: tr.Distance(),
				Steps:    tr.Steps(),
			}, true
		}
		prev = cell
		tr.Next()
	}

	return Hit{Steps: tr.Steps()}, false
}
