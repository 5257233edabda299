package world

import (
	"sync"

	"github.com/annel0/voxel-sandbox/internal/vec"
	"github.com/annel0/voxel-sandbox/internal/world/block"
)

// Grid хранит разреженный воксельный мир.
// Инвариант: в карте никогда не хранится block.Air.
type Grid struct {
	blocks map[vec.Vec3]block.Type
	mu     sync.RWMutex
}

// NewGrid создаёт пустой мир
func NewGrid() *Grid {
	return newGridWithCapacity(0)
}

func newGridWithCapacity(n int) *Grid {
	return &Grid{
		blocks: make(map[vec.Vec3]block.Type, n),
	}
}

// Get возвращает тип блока в позиции (Air, если блока нет)
func (g *Grid) Get(pos vec.Vec3) block.Type {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.blocks[pos]
}

// Set устанавливает блок в позиции, перезаписывая существующий.
// Воздух не хранится: Set с block.Air удаляет ключ и возвращает false.
// Незарегистрированный тип отклоняется, мир не меняется.
func (g *Grid) Set(pos vec.Vec3, t block.Type) bool {
	if t == block.Air {
		g.Remove(pos)
		return false
	}
	if !block.IsValid(t) {
		return false
	}

	g.mu.Lock()
	g.blocks[pos] = t
	g.mu.Unlock()
	return true
}

// Remove удаляет блок в позиции. Возвращает true, если блок существовал.
func (g *Grid) Remove(pos vec.Vec3) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.blocks[pos]; !exists {
		return false
	}
	delete(g.blocks, pos)
	return true
}

// IsSolid сообщает, занят ли воксель твёрдым блоком
func (g *Grid) IsSolid(pos vec.Vec3) bool {
	return g.Get(pos) != block.Air
}

// Len возвращает количество хранимых блоков
func (g *Grid) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.blocks)
}

// ForEach обходит снимок мира. Порядок обхода не определён.
// Колбэк вызывается без удержания блокировки, поэтому может читать мир.
func (g *Grid) ForEach(fn func(pos vec.Vec3, t block.Type)) {
	g.mu.RLock()
	snapshot := make(map[vec.Vec3]block.Type, len(g.blocks))
	for pos, t := range g.blocks {
		snapshot[pos] = t
	}
	g.mu.RUnlock()

	for pos, t := range snapshot {
		fn(pos, t)
	}
}

// Clone создаёт независимую копию мира
func (g *Grid) Clone() *Grid {
	g.mu.RLock()
	defer g.mu.RUnlock()

	clone := newGridWithCapacity(len(g.blocks))
	for pos, t := range g.blocks {
		clone.blocks[pos] = t
	}
	return clone
}

// Equal сравнивает содержимое двух миров
func (g *Grid) Equal(other *Grid) bool {
	if g == other {
		return true
	}
	if other == nil {
		return false
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	other.mu.RLock()
	defer other.mu.RUnlock()

	if len(g.blocks) != len(other.blocks) {
		return false
	}
	for pos, t := range g.blocks {
		if ot, ok := other.blocks[pos]; !ok || ot != t {
			return false
		}
	}
	return true
}

// Counts возвращает количество блоков каждого типа
func (g *Grid) Counts() map[block.Type]int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	counts := make(map[block.Type]int)
	for _, t := range g.blocks {
		counts[t]++
	}
	return counts
}
