package implementations

import "github.com/annel0/voxelworld/internal/world/block"

// TranslucentBehavior описывает полупрозрачный блок (вода, лёд).
// Грани между одинаковыми полупрозрачными блоками отсекаются.
type TranslucentBehavior struct {
	id   block.BlockID
	name string
	tile block.AtlasTile
}

// ID возвращает идентификатор блока
func (b *TranslucentBehavior) ID() block.BlockID {
	return b.id
}

// Name возвращает имя блока
func (b *TranslucentBehavior) Name() string {
	return b.name
}

// Opacity возвращает Translucent
func (b *TranslucentBehavior) Opacity() block.Opacity {
	return block.Translucent
}

// Texture одинакова для всех граней
func (b *TranslucentBehavior) Texture(block.Face) block.AtlasTile {
	return b.tile
}

// NewWater создаёт блок воды
func NewWater() *TranslucentBehavior {
	return &TranslucentBehavior{id: block.WaterBlockID, name: "Water", tile: block.AtlasTile{U: 6, V: 4}}
}

// NewIce создаёт блок льда
func NewIce() *TranslucentBehavior {
	return &TranslucentBehavior{id: block.IceBlockID, name: "Ice", tile: block.AtlasTile{U: 4, V: 22}}
}
