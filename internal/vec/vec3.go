package vec

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 представляет трехмерный вектор с целочисленными координатами.
// Используется как ключ вокселя в мире, поэтому должен оставаться comparable.
type Vec3 struct {
	X int
	Y int
	Z int
}

// Floor возвращает воксель, содержащий непрерывную точку
func Floor(p mgl64.Vec3) Vec3 {
	return Vec3{
		X: int(math.Floor(p[0])),
		Y: int(math.Floor(p[1])),
		Z: int(math.Floor(p[2])),
	}
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Up возвращает соседний воксель, сдвинутый по Y на dy
func (v Vec3) Up(dy int) Vec3 {
	return Vec3{X: v.X, Y: v.Y + dy, Z: v.Z}
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// Axis возвращает координату по индексу оси (0 – X, 1 – Y, 2 – Z)
func (v Vec3) Axis(i int) int {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// WithAxis возвращает копию вектора с заменённой координатой оси i
func (v Vec3) WithAxis(i, value int) Vec3 {
	switch i {
	case 0:
		v.X = value
	case 1:
		v.Y = value
	default:
		v.Z = value
	}
	return v
}

// String реализует fmt.Stringer
func (v Vec3) String() string {
	return fmt.Sprintf("(%d,%d,%d)", v.X, v.Y, v.Z)
}
