package block

import (
	"fmt"
	"sort"
	"strings"
)

// BlockID представляет идентификатор блока
type BlockID uint16

// Константы ID блоков
const (
	// Базовые типы блоков
	AirBlockID   BlockID = iota // 0
	StoneBlockID                // 1
	GrassBlockID                // 2
	WaterBlockID                // 3
	SandBlockID                 // 4
	DirtBlockID                 // 5

	// Блоки рельефа и недр
	SnowBlockID       // 6
	IceBlockID        // 7
	GravelBlockID     // 8
	RedSandBlockID    // 9
	MagmaBlockID      // 10
	RedStoneBlockID   // 11
	GoldOreBlockID    // 12
	EmeraldOreBlockID // 13

	blockTableSize // граница таблицы быстрого доступа
)

var (
	registry     = make(map[BlockID]BlockBehavior)
	byName       = make(map[string]BlockID)
	opacityTable [blockTableSize]Opacity
	known        [blockTableSize]bool
)

// Register добавляет поведение блока в регистр.
// Вызывается только из init(), после старта регистр неизменяем.
func Register(id BlockID, behavior BlockBehavior) {
	if id >= blockTableSize {
		panic(fmt.Sprintf("block: ID %d вне таблицы блоков", id))
	}
	registry[id] = behavior
	byName[strings.ToLower(behavior.Name())] = id
	opacityTable[id] = behavior.Opacity()
	known[id] = true
}

// Get возвращает поведение для указанного ID
func Get(id BlockID) (BlockBehavior, bool) {
	behavior, exists := registry[id]
	return behavior, exists
}

// IsValidBlockID проверяет, является ли ID допустимым идентификатором блока
func IsValidBlockID(id BlockID) bool {
	_, exists := registry[id]
	return exists
}

// OpacityOf возвращает класс прозрачности блока.
// Незарегистрированные ID считаются непрозрачными, кроме воздуха.
func OpacityOf(id BlockID) Opacity {
	if id == AirBlockID {
		return Empty
	}
	if id < blockTableSize && known[id] {
		return opacityTable[id]
	}
	return Opaque
}

// TextureOf возвращает тайл атласа для грани блока
func TextureOf(id BlockID, face Face) AtlasTile {
	if behavior, ok := registry[id]; ok {
		return behavior.Texture(face)
	}
	return AtlasTile{}
}

// ParseBlockID находит ID блока по имени без учёта регистра
func ParseBlockID(name string) (BlockID, error) {
	if id, ok := byName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("неизвестный блок %q", name)
}

// Registered возвращает все зарегистрированные ID по возрастанию
func Registered() []BlockID {
	ids := make([]BlockID, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// String возвращает имя блока
func (id BlockID) String() string {
	if behavior, ok := registry[id]; ok {
		return behavior.Name()
	}
	return fmt.Sprintf("Block(%d)", uint16(id))
}
