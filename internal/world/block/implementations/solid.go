package implementations

import "github.com/annel0/voxelworld/internal/world/block"

// SolidBehavior описывает непрозрачный блок с одной текстурой на все грани
type SolidBehavior struct {
	id   block.BlockID
	name string
	tile block.AtlasTile
}

// NewSolid создаёт однотекстурный непрозрачный блок
func NewSolid(id block.BlockID, name string, u, v uint32) *SolidBehavior {
	return &SolidBehavior{id: id, name: name, tile: block.AtlasTile{U: u, V: v}}
}

func (b *SolidBehavior) ID() block.BlockID                  { return b.id }
func (b *SolidBehavior) Name() string                       { return b.name }
func (b *SolidBehavior) Opacity() block.Opacity             { return block.Opaque }
func (b *SolidBehavior) Texture(block.Face) block.AtlasTile { return b.tile }
