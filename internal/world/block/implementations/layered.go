package implementations

import "github.com/annel0/voxelworld/internal/world/block"

// LayeredBehavior - непрозрачный блок с разными текстурами верха, боков и низа
// (трава, снег)
type LayeredBehavior struct {
	id     block.BlockID
	name   string
	top    block.AtlasTile
	side   block.AtlasTile
	bottom block.AtlasTile
}

// ID возвращает идентификатор блока
func (b *LayeredBehavior) ID() block.BlockID {
	return b.id
}

// Name возвращает имя блока
func (b *LayeredBehavior) Name() string {
	return b.name
}

// Opacity - слоистые блоки сплошные
func (b *LayeredBehavior) Opacity() block.Opacity {
	return block.Opaque
}

// Texture выбирает тайл по ориентации грани
func (b *LayeredBehavior) Texture(face block.Face) block.AtlasTile {
	switch face {
	case block.FaceTop:
		return b.top
	case block.FaceBottom:
		return b.bottom
	default:
		return b.side
	}
}

// NewGrass создаёт блок травы: зелёный верх, дёрн по бокам, земля снизу
func NewGrass() *LayeredBehavior {
	return &LayeredBehavior{
		id:     block.GrassBlockID,
		name:   "Grass",
		top:    block.AtlasTile{U: 31, V: 2},
		side:   block.AtlasTile{U: 30, V: 15},
		bottom: block.AtlasTile{U: 25, V: 2},
	}
}

// NewSnow создаёт снежный блок
func NewSnow() *LayeredBehavior {
	return &LayeredBehavior{
		id:     block.SnowBlockID,
		name:   "Snow",
		top:    block.AtlasTile{U: 19, V: 24},
		side:   block.AtlasTile{U: 31, V: 1},
		bottom: block.AtlasTile{U: 25, V: 2},
	}
}
