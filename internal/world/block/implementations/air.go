package implementations

import "github.com/annel0/voxelworld/internal/world/block"

// AirBehavior реализует поведение пустоты
type AirBehavior struct{}

// ID возвращает идентификатор блока
func (b *AirBehavior) ID() block.BlockID {
	return block.AirBlockID
}

// Name возвращает имя блока
func (b *AirBehavior) Name() string {
	return "Air"
}

// Opacity - воздух пуст
func (b *AirBehavior) Opacity() block.Opacity {
	return block.Empty
}

// Texture у воздуха нет
func (b *AirBehavior) Texture(face block.Face) block.AtlasTile {
	return block.AtlasTile{}
}
