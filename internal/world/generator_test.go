package world

import (
	"testing"

	"github.com/annel0/voxelworld/internal/util"
	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorDeterministic(t *testing.T) {
	coords := vec.Vec3{X: 3, Z: -7}

	first := NewTerrainGenerator(42, 1).GenerateBlocks(coords)
	second := NewTerrainGenerator(42, 1).GenerateBlocks(coords)
	require.Len(t, first, ChunkVolume)
	assert.Equal(t, first, second, "один сид и координата дают одинаковые блоки")

	// Тот же генератор, повторный вызов
	gen := NewTerrainGenerator(42, 1)
	gen.GenerateBlocks(vec.Vec3{X: 100, Z: 100})
	assert.Equal(t, first, gen.GenerateBlocks(coords))
}

func TestGeneratorParallelMatchesSequential(t *testing.T) {
	coords := vec.Vec3{X: -2, Z: 5}
	seq := NewTerrainGenerator(7, 1).GenerateBlocks(coords)
	par := NewTerrainGenerator(7, 4).GenerateBlocks(coords)
	assert.Equal(t, seq, par)
}

func TestGeneratorTotalOverWorldCorners(t *testing.T) {
	gen := NewTerrainGenerator(99, 1)
	for _, coords := range []vec.Vec3{
		{X: ChunkMinXZ, Z: ChunkMinXZ},
		{X: ChunkMaxXZ, Z: ChunkMaxXZ},
		{X: ChunkMinXZ, Z: ChunkMaxXZ},
		{X: 0, Z: 0},
	} {
		blocks := gen.GenerateBlocks(coords)
		require.Len(t, blocks, ChunkVolume)
		for i, id := range blocks {
			require.True(t, block.IsValidBlockID(id), "чанк %v, индекс %d: блок %d", coords, i, id)
		}
	}
}

func TestGeneratorLayering(t *testing.T) {
	gen := NewTerrainGenerator(42, 1)
	chunk := gen.Generate(vec.Vec3{})
	assert.True(t, chunk.IsGenerated())

	for x := 0; x < ChunkSizeX; x++ {
		for z := 0; z < ChunkSizeZ; z++ {
			bottom := chunk.GetBlock(vec.Vec3{X: x, Y: 0, Z: z})
			assert.Equal(t, block.MagmaBlockID, bottom, "дно мира - магма")

			for y := 0; y <= MagmaCore; y++ {
				id := chunk.GetBlock(vec.Vec3{X: x, Y: y, Z: z})
				assert.Contains(t, []block.BlockID{block.MagmaBlockID, block.RedSandBlockID}, id)
			}

			assert.Equal(t, block.AirBlockID, chunk.GetBlock(vec.Vec3{X: x, Y: 255, Z: z}))

			// Над поверхностью и выше моря только воздух
			h := gen.SurfaceHeight(x, z)
			top := h
			if top < SeaLevel {
				top = SeaLevel
			}
			for y := top + 1; y < ChunkSizeY; y++ {
				require.Equal(t, block.AirBlockID, chunk.GetBlock(vec.Vec3{X: x, Y: y, Z: z}), "столбец (%d,%d) y=%d", x, z, y)
			}
		}
	}
}

func TestGeneratorSeedsDiffer(t *testing.T) {
	a := NewTerrainGenerator(1, 1).GenerateBlocks(vec.Vec3{X: 4, Z: 4})
	b := NewTerrainGenerator(2, 1).GenerateBlocks(vec.Vec3{X: 4, Z: 4})
	assert.NotEqual(t, a, b)
}

func TestClassifyBiome(t *testing.T) {
	cases := []struct {
		name string
		in   util.NoiseValues
		want BiomeType
	}{
		{"глубокий океан", util.NoiseValues{Continentalness: -0.3}, BiomeDeepOcean},
		{"холодный океан", util.NoiseValues{Continentalness: -0.9, Temperature: -0.9}, BiomeFrozenOcean},
		{"тёплый океан", util.NoiseValues{Continentalness: -0.9, Temperature: 0.9}, BiomeWarmOcean},
		{"река", util.NoiseValues{Continentalness: -0.15, PeaksValleys: -0.95}, BiomeRiver},
		{"каменистый берег", util.NoiseValues{Continentalness: -0.15, Erosion: -0.9}, BiomeStonyShore},
		{"пляж", util.NoiseValues{Continentalness: -0.15, Erosion: 0.1}, BiomeBeach},
		{"снежные склоны", util.NoiseValues{Continentalness: 0.5, PeaksValleys: 0.5, Erosion: -0.9}, BiomeSnowySlopes},
		{"пики", util.NoiseValues{Continentalness: 0.5, PeaksValleys: 0.5, Erosion: -0.9, Temperature: 0.3}, BiomeStonyPeaks},
		{"пустыня", util.NoiseValues{Continentalness: 0.1, Temperature: 0.7, Humidity: 0.5}, BiomeDesert},
		{"бесплодные земли", util.NoiseValues{Continentalness: 0.1, Temperature: 0.7, Humidity: -0.5}, BiomeBadlands},
		{"равнины", util.NoiseValues{Continentalness: 0.1, Temperature: -0.3, Humidity: -0.5}, BiomePlains},
		{"лес", util.NoiseValues{Continentalness: 0.1, Temperature: 0.0, Humidity: 0.2}, BiomeForest},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, ClassifyBiome(c.in))
		})
	}
}

func TestBiomeBlocks(t *testing.T) {
	assert.Equal(t, block.SandBlockID, BiomeDesert.SurfaceBlock())
	assert.Equal(t, block.SnowBlockID, BiomeSnowyPlains.SurfaceBlock())
	assert.Equal(t, block.GrassBlockID, BiomePlains.SurfaceBlock())
	assert.Equal(t, block.DirtBlockID, BiomePlains.SubsurfaceBlock())
	assert.True(t, BiomeOcean.IsOcean())
	assert.False(t, BiomeBeach.IsOcean())
	assert.True(t, BiomeFrozenRiver.IsFrozen())
	assert.Equal(t, "stony_peaks", BiomeStonyPeaks.String())
}
