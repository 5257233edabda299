package util

import (
	"math"

	"github.com/aquilax/go-perlin"
)

// LatticeNoise — билинейно интерполированный шум поверх хеш-решётки
// h(ix, iz) = fract(sin(ix·12.9898 + iz·78.233)·43758.5453).
// Значения в диапазоне [0, 1). Не зависит от сида: сид сдвигает область выборки.
type LatticeNoise struct{}

// LatticeHash возвращает псевдослучайное значение узла решётки
func LatticeHash(ix, iz float64) float64 {
	v := math.Sin(ix*12.9898+iz*78.233) * 43758.5453
	return v - math.Floor(v)
}

// Noise2D интерполирует значения четырёх узлов вокруг точки (x, z)
func (LatticeNoise) Noise2D(x, z float64) float64 {
	floorX := math.Floor(x)
	floorZ := math.Floor(z)

	s := LatticeHash(floorX, floorZ)
	t := LatticeHash(floorX+1, floorZ)
	u := LatticeHash(floorX, floorZ+1)
	v := LatticeHash(floorX+1, floorZ+1)

	fx := x - floorX
	fz := z - floorZ

	i1 := s + (t-s)*fx
	i2 := u + (v-u)*fx
	return i1 + (i2-i1)*fz
}

// PerlinNoise оборачивает генератор Перлина, приводя значения к [0, 1]
type PerlinNoise struct {
	p *perlin.Perlin
}

// NewPerlinNoise создаёт генератор шума Перлина с указанным сидом
func NewPerlinNoise(seed int64) *PerlinNoise {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	return &PerlinNoise{p: perlin.NewPerlin(alpha, beta, n, seed)}
}

// Noise2D возвращает значение шума Перлина для указанных координат (от 0 до 1)
func (pn *PerlinNoise) Noise2D(x, z float64) float64 {
	// Шум Перлина лежит в [-1, 1]
	v := (pn.p.Noise2D(x, z) + 1.0) / 2.0
	return Clamp(v, 0, math.Nextafter(1, 0))
}

// Clamp ограничивает значение отрезком [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SeedBits переводит вещественный сид в целочисленный без потери информации
func SeedBits(seed float64) int64 {
	return int64(math.Float64bits(seed))
}
