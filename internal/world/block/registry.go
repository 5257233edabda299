package block

import (
	"fmt"
	"strings"
)

// Type представляет тип вокселя. Air никогда не хранится в мире:
// отсутствие ключа означает воздух.
type Type uint8

// Константы типов блоков
const (
	Air Type = iota
	Grass
	Dirt
	Stone
	Leaves
	Wood
)

// Properties описывает свойства типа блока
type Properties struct {
	Name      string // Имя для конфигурации и логов
	Solid     bool   // Участвует ли в коллизиях и рейкасте
	Placeable bool   // Может ли игрок поставить блок этого типа
}

var registry = map[Type]Properties{
	Air:    {Name: "air"},
	Grass:  {Name: "grass", Solid: true, Placeable: true},
	Dirt:   {Name: "dirt", Solid: true, Placeable: true},
	Stone:  {Name: "stone", Solid: true, Placeable: true},
	Leaves: {Name: "leaves", Solid: true, Placeable: true},
	Wood:   {Name: "wood", Solid: true, Placeable: true},
}

// Hotbar порядок блоков в панели выбора (клавиши 1–5)
var Hotbar = []Type{Grass, Dirt, Stone, Leaves, Wood}

// IsValid проверяет, является ли значение допустимым типом блока
func IsValid(t Type) bool {
	_, exists := registry[t]
	return exists
}

// IsSolid возвращает true для всех зарегистрированных типов, кроме воздуха
func (t Type) IsSolid() bool {
	return registry[t].Solid
}

// IsPlaceable сообщает, можно ли поставить блок этого типа
func (t Type) IsPlaceable() bool {
	return registry[t].Placeable
}

// String реализует fmt.Stringer
func (t Type) String() string {
	if props, ok := registry[t]; ok {
		return props.Name
	}
	return fmt.Sprintf("block(%d)", uint8(t))
}

// Parse возвращает тип блока по имени (регистр не важен)
func Parse(name string) (Type, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, props := range registry {
		if props.Name == name {
			return t, nil
		}
	}
	return Air, fmt.Errorf("неизвестный тип блока %q", name)
}

// FromHotbar возвращает блок для слота панели (1..len(Hotbar))
func FromHotbar(slot int) (Type, bool) {
	if slot < 1 || slot > len(Hotbar) {
		return Air, false
	}
	return Hotbar[slot-1], true
}
