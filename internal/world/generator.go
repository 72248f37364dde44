package world

import (
	"sync"

	"github.com/annel0/voxelworld/internal/util"
	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world/block"
)

// Константы высот для генерации
const (
	SeaLevel    = 62 // Уровень моря
	MagmaCore   = 31 // Верх магматического ядра
	surfaceBand = 4  // Толщина поверхностного слоя (верх + подповерхность)
	oreCeiling  = 64 // Выше руды не встречаются
)

// TerrainGenerator генерирует ландшафт мира.
// Генератор не хранит изменяемого состояния и безопасен для параллельного вызова.
type TerrainGenerator struct {
	seed    int64
	noise   *util.NoiseField
	workers int // Горизонтальных полос, генерируемых параллельно
}

// NewTerrainGenerator создаёт генератор для указанного сида.
// workers <= 1 означает последовательную генерацию.
func NewTerrainGenerator(seed int64, workers int) *TerrainGenerator {
	if workers < 1 {
		workers = 1
	}
	return &TerrainGenerator{
		seed:    seed,
		noise:   util.NewNoiseField(seed),
		workers: workers,
	}
}

// Seed возвращает сид мира
func (tg *TerrainGenerator) Seed() int64 {
	return tg.seed
}

// Noise возвращает поле шума генератора
func (tg *TerrainGenerator) Noise() *util.NoiseField {
	return tg.noise
}

// Generate создаёт новый заполненный чанк по его координатам
func (tg *TerrainGenerator) Generate(coords vec.Vec3) *Chunk {
	chunk := NewChunk(coords)
	chunk.fill(tg.GenerateBlocks(coords))
	return chunk
}

// GenerateBlocks возвращает сетку блоков чанка в порядке (y, z, x).
// Функция тотальна: любые координаты дают определённый результат.
func (tg *TerrainGenerator) GenerateBlocks(coords vec.Vec3) []block.BlockID {
	blocks := make([]block.BlockID, ChunkVolume)
	origin := coords.ChunkOrigin()

	if tg.workers == 1 {
		for x := 0; x < ChunkSizeX; x++ {
			tg.generateSlab(blocks, origin, x)
		}
		return blocks
	}

	// Каждая горутина пишет в свою X-полосу, пересечений нет.
	// Генерация не может завершиться ошибкой, достаточно WaitGroup.
	var wg sync.WaitGroup
	slots := make(chan struct{}, tg.workers)
	for x := 0; x < ChunkSizeX; x++ {
		wg.Add(1)
		slots <- struct{}{}
		go func(x int) {
			defer func() {
				<-slots
				wg.Done()
			}()
			tg.generateSlab(blocks, origin, x)
		}(x)
	}
	wg.Wait()

	return blocks
}

func (tg *TerrainGenerator) generateSlab(blocks []block.BlockID, origin vec.Vec3, x int) {
	for z := 0; z < ChunkSizeZ; z++ {
		tg.generateColumn(blocks, x, z, origin.X+x, origin.Z+z)
	}
}

// generateColumn заполняет один вертикальный столбец чанка
func (tg *TerrainGenerator) generateColumn(blocks []block.BlockID, lx, lz, wx, wz int) {
	values := tg.noise.Channels(wx, wz)
	height := int(util.TerrainHeight(values))
	biome := ClassifyBiome(values)
	caveLow, caveHigh := tg.noise.CaveBounds(wx, wz, float64(height))

	for y := 0; y < ChunkSizeY; y++ {
		fy := float64(y)
		id := block.AirBlockID

		switch {
		case y <= MagmaCore:
			id = tg.coreBlock(wx, y, wz)
		case !biome.IsOcean() && caveLow < fy && fy < caveHigh:
			// пещерный пояс
		case y <= height:
			depth := height - y
			switch {
			case depth == 0:
				id = biome.SurfaceBlock()
			case depth < surfaceBand:
				id = biome.SubsurfaceBlock()
			default:
				id = tg.deepBlock(wx, y, wz)
			}
		case y <= SeaLevel:
			id = block.WaterBlockID
			if y == SeaLevel && biome.IsFrozen() {
				id = block.IceBlockID
			}
		}

		blocks[blockIndex(lx, y, lz)] = id
	}
}

// coreBlock выбирает блок магматического ядра
func (tg *TerrainGenerator) coreBlock(x, y, z int) block.BlockID {
	if y == 0 || tg.noise.Sample3(x, y, z) > 0.62 {
		return block.MagmaBlockID
	}
	return block.RedSandBlockID
}

// deepBlock выбирает камень или руду по объёмной плотности
func (tg *TerrainGenerator) deepBlock(x, y, z int) block.BlockID {
	if y >= oreCeiling {
		return block.StoneBlockID
	}
	d := tg.noise.Sample3(x, y, z)
	switch {
	case y < 40 && d > 0.84:
		return block.GoldOreBlockID
	case y < 48 && d < 0.12:
		return block.EmeraldOreBlockID
	case d > 0.80:
		return block.RedStoneBlockID
	}
	return block.StoneBlockID
}

// SurfaceHeight возвращает высоту рельефа в столбце (без учёта пещер)
func (tg *TerrainGenerator) SurfaceHeight(x, z int) int {
	return int(tg.noise.Sample(x, z))
}

// BiomeAt возвращает биом столбца
func (tg *TerrainGenerator) BiomeAt(x, z int) BiomeType {
	return ClassifyBiome(tg.noise.Channels(x, z))
}
