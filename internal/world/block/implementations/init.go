package implementations

import "github.com/annel0/voxelworld/internal/world/block"

// Регистрируем все типы блоков при импорте пакета
func init() {
	block.Register(block.AirBlockID, &AirBehavior{})
	block.Register(block.GrassBlockID, NewGrass())
	block.Register(block.SnowBlockID, NewSnow())
	block.Register(block.WaterBlockID, NewWater())
	block.Register(block.IceBlockID, NewIce())

	// Однотекстурные блоки рельефа
	block.Register(block.StoneBlockID, NewSolid(block.StoneBlockID, "Stone", 30, 29))
	block.Register(block.SandBlockID, NewSolid(block.SandBlockID, "Sand", 6, 27))
	block.Register(block.DirtBlockID, NewSolid(block.DirtBlockID, "Dirt", 25, 2))
	block.Register(block.GravelBlockID, NewSolid(block.GravelBlockID, "Gravel", 31, 3))
	block.Register(block.RedSandBlockID, NewSolid(block.RedSandBlockID, "RedSand", 27, 25))
	block.Register(block.MagmaBlockID, NewSolid(block.MagmaBlockID, "Magma", 24, 26))

	// Руды
	block.Register(block.RedStoneBlockID, NewSolid(block.RedStoneBlockID, "RedStone", 24, 0))
	block.Register(block.GoldOreBlockID, NewSolid(block.GoldOreBlockID, "GoldOre", 23, 13))
	block.Register(block.EmeraldOreBlockID, NewSolid(block.EmeraldOreBlockID, "EmeraldOre", 23, 12))
}
