package sim

import (
	"github.com/annel0/voxel-sandbox/internal/vec"
	"github.com/annel0/voxel-sandbox/internal/world/block"
	"github.com/go-gl/mathgl/mgl64"
)

// CameraMode режим камеры. На физику не влияет, нужен только внешнему рендеру.
type CameraMode uint8

const (
	FirstPerson CameraMode = iota
	ThirdPerson
)

// String возвращает имя режима
func (m CameraMode) String() string {
	if m == ThirdPerson {
		return "third_person"
	}
	return "first_person"
}

// Toggle переключает режим камеры
func (m CameraMode) Toggle() CameraMode {
	if m == FirstPerson {
		return ThirdPerson
	}
	return FirstPerson
}

// PlayerState состояние игрока. Меняется только степпером.
type PlayerState struct {
	Position mgl64.Vec3 // Центр основания коллайдера (ноги)
	Velocity mgl64.Vec3
	Camera   CameraMode
	Yaw      float64    // Поворот аватара вокруг вертикали, радианы
	Held     block.Type // Блок в руке для установки
}

// NewPlayer создаёт игрока в точке спавна с блоком по умолчанию
func NewPlayer(spawn mgl64.Vec3) PlayerState {
	return PlayerState{
		Position: spawn,
		Camera:   FirstPerson,
		Held:     block.Dirt,
	}
}

// ControlIntent снимок ввода за тик.
// Направления удерживаются (уровень), Jump/Place/Destroy срабатывают по фронту.
type ControlIntent struct {
	Forward  bool
	Backward bool
	Left     bool
	Right    bool
	Jump     bool
	Place    bool
	Destroy  bool
}

// Consumed флаги, обработанные степпером за тик
type Consumed struct {
	Jump    bool
	Place   bool
	Destroy bool
}

// Any сообщает, был ли поглощён хотя бы один флаг
func (c Consumed) Any() bool {
	return c.Jump || c.Place || c.Destroy
}

// Consume возвращает снимок ввода со сброшенными поглощёнными флагами
func (ci ControlIntent) Consume(c Consumed) ControlIntent {
	if c.Jump {
		ci.Jump = false
	}
	if c.Place {
		ci.Place = false
	}
	if c.Destroy {
		ci.Destroy = false
	}
	return ci
}

// Camera направление взгляда, которое задаёт внешний коллаборатор камеры
type Camera struct {
	Look mgl64.Vec3
}

// EditOp тип правки мира
type EditOp uint8

const (
	EditPlace EditOp = iota + 1
	EditDestroy
)

// String возвращает имя операции (используется как метка метрик)
func (op EditOp) String() string {
	switch op {
	case EditPlace:
		return "place"
	case EditDestroy:
		return "destroy"
	default:
		return "unknown"
	}
}

// WorldEdit одна правка мира за тик. Block заполнен только для установки.
type WorldEdit struct {
	Op    EditOp
	Pos   vec.Vec3
	Block block.Type
}

// StepResult результат одного тика
type StepResult struct {
	Player   PlayerState
	Edit     *WorldEdit
	Respawn  bool
	Consumed Consumed
}
