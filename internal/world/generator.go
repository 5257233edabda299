package world

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/annel0/voxel-sandbox/internal/util"
	"github.com/annel0/voxel-sandbox/internal/vec"
	"github.com/annel0/voxel-sandbox/internal/world/block"
)

// Константы генерации
const (
	BedrockY      = -5   // Нижний слой каждой колонки
	NoiseScale    = 0.1  // Масштаб координат для шума высоты
	HeightScale   = 10.0 // Амплитуда высоты
	HeightBase    = 2    // Минимальная высота поверхности
	DirtDepth     = 2    // Слоёв земли под травой
	SpawnY        = 10   // Высота площадки спавна
	SpawnHalfSize = 1    // Площадка 3x3 вокруг начала координат
)

// NoiseKind определяет источник шума высоты
type NoiseKind string

const (
	NoiseLattice NoiseKind = "lattice"
	NoisePerlin  NoiseKind = "perlin"
)

// ParseNoiseKind разбирает имя источника шума; пустая строка — lattice
func ParseNoiseKind(s string) (NoiseKind, error) {
	switch NoiseKind(strings.ToLower(strings.TrimSpace(s))) {
	case "", NoiseLattice:
		return NoiseLattice, nil
	case NoisePerlin:
		return NoisePerlin, nil
	default:
		return "", fmt.Errorf("неизвестный источник шума %q", s)
	}
}

// NoiseSource возвращает значение шума в [0, 1) для непрерывной точки
type NoiseSource interface {
	Noise2D(x, z float64) float64
}

// Generator строит мир детерминированно: одинаковые (seed, radius)
// всегда дают идентичный мир.
type Generator struct {
	Noise       NoiseKind // Источник шума высоты
	TreeDensity float64   // Вероятность дерева на колонку (0 — без деревьев)
}

// NewGenerator создаёт генератор с шумом по умолчанию и без деревьев
func NewGenerator() *Generator {
	return &Generator{Noise: NoiseLattice}
}

// Generate строит мир генератором по умолчанию
func Generate(seed float64, radius int) *Grid {
	return NewGenerator().Generate(seed, radius)
}

// Generate строит мир в квадрате |x|,|z| <= radius
func (wg *Generator) Generate(seed float64, radius int) *Grid {
	if radius < 0 {
		radius = 0
	}
	noise := wg.noiseSource(seed)

	side := 2*radius + 1
	grid := newGridWithCapacity(side * side * (HeightBase + int(HeightScale) - BedrockY))

	heights := make(map[[2]int]int, side*side)
	for x := -radius; x <= radius; x++ {
		for z := -radius; z <= radius; z++ {
			height := Height(noise, seed, x, z)
			heights[[2]int{x, z}] = height
			fillColumn(grid, x, z, height)
		}
	}

	if wg.TreeDensity > 0 {
		wg.plantTrees(grid, seed, radius, heights)
	}

	placeSpawnPlatform(grid)
	return grid
}

// noiseSource возвращает источник шума для сида
func (wg *Generator) noiseSource(seed float64) NoiseSource {
	if wg.Noise == NoisePerlin {
		return util.NewPerlinNoise(util.SeedBits(seed))
	}
	return util.LatticeNoise{}
}

// Height вычисляет высоту поверхности колонки (x, z).
// Сид сдвигает область выборки шума.
func Height(noise NoiseSource, seed float64, x, z int) int {
	n := noise.Noise2D(float64(x)*NoiseScale+seed, float64(z)*NoiseScale+seed)
	return int(math.Floor(n*HeightScale)) + HeightBase
}

// fillColumn заполняет колонку от BedrockY до height включительно:
// верх — трава, два слоя под ним — земля, остальное — камень
func fillColumn(grid *Grid, x, z, height int) {
	for y := BedrockY; y <= height; y++ {
		t := block.Stone
		switch {
		case y == height:
			t = block.Grass
		case y > height-1-DirtDepth:
			t = block.Dirt
		}
		grid.blocks[vec.Vec3{X: x, Y: y, Z: z}] = t
	}
}

// placeSpawnPlatform безусловно ставит площадку травы 3x3 на высоте SpawnY
func placeSpawnPlatform(grid *Grid) {
	for x := -SpawnHalfSize; x <= SpawnHalfSize; x++ {
		for z := -SpawnHalfSize; z <= SpawnHalfSize; z++ {
			grid.blocks[vec.Vec3{X: x, Y: SpawnY, Z: z}] = block.Grass
		}
	}
}

// treeClearance — радиус вокруг спавна (по Чебышёву), где деревья не растут
const treeClearance = SpawnHalfSize + 2

// plantTrees расставляет деревья. Обход колонок идёт в фиксированном порядке,
// поэтому единый ГПСЧ от сида сохраняет детерминированность.
func (wg *Generator) plantTrees(grid *Grid, seed float64, radius int, heights map[[2]int]int) {
	rng := rand.New(rand.NewSource(util.SeedBits(seed)))

	for x := -radius; x <= radius; x++ {
		for z := -radius; z <= radius; z++ {
			roll := rng.Float64()
			trunk := 3 + rng.Intn(3) // Высота ствола 3-5 блоков

			if max(abs(x), abs(z)) <= treeClearance {
				continue
			}
			if roll >= wg.TreeDensity {
				continue
			}
			placeTree(grid, vec.Vec3{X: x, Y: heights[[2]int{x, z}], Z: z}, trunk)
		}
	}
}

// placeTree ставит ствол над поверхностью ground и крону из листвы.
// Листва не перезаписывает существующие блоки.
func placeTree(grid *Grid, ground vec.Vec3, trunk int) {
	top := ground.Y + trunk
	for y := ground.Y + 1; y <= top; y++ {
		grid.blocks[vec.Vec3{X: ground.X, Y: y, Z: ground.Z}] = block.Wood
	}

	for y := top - 1; y <= top+1; y++ {
		spread := 1
		if y == top+1 {
			spread = 0
		}
		for dx := -spread; dx <= spread; dx++ {
			for dz := -spread; dz <= spread; dz++ {
				pos := ground.Add(vec.Vec3{X: dx, Y: y - ground.Y, Z: dz})
				if _, occupied := grid.blocks[pos]; !occupied {
					grid.blocks[pos] = block.Leaves
				}
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
