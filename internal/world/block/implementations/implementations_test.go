package implementations

import (
	"testing"

	"github.com/annel0/voxelworld/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllBlocksRegistered(t *testing.T) {
	ids := block.Registered()
	require.Len(t, ids, 14)
	for _, id := range ids {
		behavior, ok := block.Get(id)
		require.True(t, ok)
		assert.Equal(t, id, behavior.ID(), "блок %s зарегистрирован под чужим ID", behavior.Name())
	}
}

func TestOpacityClasses(t *testing.T) {
	assert.Equal(t, block.Empty, block.OpacityOf(block.AirBlockID))
	assert.Equal(t, block.Translucent, block.OpacityOf(block.WaterBlockID))
	assert.Equal(t, block.Translucent, block.OpacityOf(block.IceBlockID))
	assert.Equal(t, block.Opaque, block.OpacityOf(block.StoneBlockID))
	assert.Equal(t, block.Opaque, block.OpacityOf(block.GrassBlockID))
}

func TestGrassTexturesDependOnFace(t *testing.T) {
	top := block.TextureOf(block.GrassBlockID, block.FaceTop)
	side := block.TextureOf(block.GrassBlockID, block.FaceLeft)
	bottom := block.TextureOf(block.GrassBlockID, block.FaceBottom)

	assert.Equal(t, block.AtlasTile{U: 31, V: 2}, top)
	assert.Equal(t, block.AtlasTile{U: 30, V: 15}, side)
	assert.Equal(t, block.AtlasTile{U: 25, V: 2}, bottom)
	assert.NotEqual(t, top, side)
	assert.Equal(t, side, block.TextureOf(block.GrassBlockID, block.FaceBack))
}

func TestFaceVisibility(t *testing.T) {
	cases := []struct {
		name           string
		self, neighbor block.BlockID
		visible        bool
	}{
		{"камень у воздуха", block.StoneBlockID, block.AirBlockID, true},
		{"камень у камня", block.StoneBlockID, block.StoneBlockID, false},
		{"камень у песка", block.StoneBlockID, block.SandBlockID, false},
		{"камень под водой", block.StoneBlockID, block.WaterBlockID, true},
		{"вода у воды", block.WaterBlockID, block.WaterBlockID, false},
		{"вода у камня", block.WaterBlockID, block.StoneBlockID, false},
		{"вода у воздуха", block.WaterBlockID, block.AirBlockID, true},
		{"вода у льда", block.WaterBlockID, block.IceBlockID, true},
		{"воздух", block.AirBlockID, block.AirBlockID, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.visible, block.FaceVisible(c.self, c.neighbor))
		})
	}
}

func TestParseBlockID(t *testing.T) {
	id, err := block.ParseBlockID("stone")
	require.NoError(t, err)
	assert.Equal(t, block.StoneBlockID, id)

	id, err = block.ParseBlockID(" RedSand ")
	require.NoError(t, err)
	assert.Equal(t, block.RedSandBlockID, id)

	_, err = block.ParseBlockID("obsidian")
	assert.Error(t, err)
	assert.Equal(t, "Gravel", block.GravelBlockID.String())
}

func TestFaceOpposite(t *testing.T) {
	for _, f := range block.AllFaces {
		assert.Equal(t, f, f.Opposite().Opposite())
		n, o := f.Normal(), f.Opposite().Normal()
		assert.Equal(t, 0, n.X+o.X)
		assert.Equal(t, 0, n.Y+o.Y)
		assert.Equal(t, 0, n.Z+o.Z)
	}
}
