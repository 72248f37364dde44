package world

import (
	"github.com/annel0/voxelworld/internal/util"
	"github.com/annel0/voxelworld/internal/world/block"
)

// BiomeType представляет тип биома
type BiomeType int

const (
	BiomeOcean BiomeType = iota
	BiomeDeepOcean
	BiomeFrozenOcean
	BiomeWarmOcean
	BiomeRiver
	BiomeFrozenRiver
	BiomeBeach
	BiomeSnowyBeach
	BiomeStonyShore
	BiomePlains
	BiomeForest
	BiomeTaiga
	BiomeSnowyPlains
	BiomeSnowyTaiga
	BiomeIceSpikes
	BiomeSavanna
	BiomeJungle
	BiomeDesert
	BiomeBadlands
	BiomeSwamp
	BiomeSnowySlopes
	BiomeStonyPeaks
)

var biomeNames = map[BiomeType]string{
	BiomeOcean:       "ocean",
	BiomeDeepOcean:   "deep_ocean",
	BiomeFrozenOcean: "frozen_ocean",
	BiomeWarmOcean:   "warm_ocean",
	BiomeRiver:       "river",
	BiomeFrozenRiver: "frozen_river",
	BiomeBeach:       "beach",
	BiomeSnowyBeach:  "snowy_beach",
	BiomeStonyShore:  "stony_shore",
	BiomePlains:      "plains",
	BiomeForest:      "forest",
	BiomeTaiga:       "taiga",
	BiomeSnowyPlains: "snowy_plains",
	BiomeSnowyTaiga:  "snowy_taiga",
	BiomeIceSpikes:   "ice_spikes",
	BiomeSavanna:     "savanna",
	BiomeJungle:      "jungle",
	BiomeDesert:      "desert",
	BiomeBadlands:    "badlands",
	BiomeSwamp:       "swamp",
	BiomeSnowySlopes: "snowy_slopes",
	BiomeStonyPeaks:  "stony_peaks",
}

func (b BiomeType) String() string {
	if name, ok := biomeNames[b]; ok {
		return name
	}
	return "unknown"
}

// IsOcean - в океанах пещеры не вырезаются
func (b BiomeType) IsOcean() bool {
	switch b {
	case BiomeOcean, BiomeDeepOcean, BiomeFrozenOcean, BiomeWarmOcean:
		return true
	}
	return false
}

// IsFrozen - поверхность воды в таких биомах замерзает
func (b BiomeType) IsFrozen() bool {
	switch b {
	case BiomeFrozenOcean, BiomeFrozenRiver, BiomeSnowyBeach, BiomeSnowyPlains,
		BiomeSnowyTaiga, BiomeIceSpikes, BiomeSnowySlopes:
		return true
	}
	return false
}

// SurfaceBlock возвращает верхний блок столбца
func (b BiomeType) SurfaceBlock() block.BlockID {
	switch b {
	case BiomeDesert, BiomeBeach, BiomeSnowyBeach, BiomeOcean, BiomeWarmOcean:
		return block.SandBlockID
	case BiomeTaiga, BiomeSnowyPlains, BiomeSnowyTaiga, BiomeSnowySlopes:
		return block.SnowBlockID
	case BiomeSwamp:
		return block.DirtBlockID
	case BiomeIceSpikes:
		return block.IceBlockID
	case BiomeBadlands:
		return block.RedSandBlockID
	case BiomeStonyPeaks, BiomeStonyShore:
		return block.StoneBlockID
	case BiomeDeepOcean, BiomeFrozenOcean, BiomeRiver, BiomeFrozenRiver:
		return block.GravelBlockID
	default:
		return block.GrassBlockID
	}
}

// SubsurfaceBlock возвращает блок под поверхностным слоем
func (b BiomeType) SubsurfaceBlock() block.BlockID {
	switch b {
	case BiomeDesert, BiomeBeach, BiomeOcean, BiomeWarmOcean:
		return block.SandBlockID
	case BiomeBadlands:
		return block.RedSandBlockID
	case BiomeStonyPeaks, BiomeStonyShore:
		return block.StoneBlockID
	case BiomeDeepOcean, BiomeFrozenOcean, BiomeRiver, BiomeFrozenRiver:
		return block.GravelBlockID
	default:
		return block.DirtBlockID
	}
}

// Пороговые уровни климатических каналов
var (
	temperatureLevels     = []float64{-0.45, -0.15, 0.2, 0.55}
	humidityLevels        = []float64{-0.35, -0.1, 0.1, 0.3}
	continentalnessLevels = []float64{-0.45, -0.2, -0.1, 0.05, 0.3}
	erosionLevels         = []float64{-0.8, -0.38, -0.22, 0.05, 0.45, 0.55}
	peaksValleysLevels    = []float64{-0.85, -0.2, 0.2, 0.7}
)

// level возвращает номер интервала, в который попадает значение
func level(v float64, thresholds []float64) int {
	for i, t := range thresholds {
		if v < t {
			return i
		}
	}
	return len(thresholds)
}

// ClassifyBiome определяет биом столбца по значениям климатических каналов
func ClassifyBiome(v util.NoiseValues) BiomeType {
	temp := level(v.Temperature, temperatureLevels)
	hum := level(v.Humidity, humidityLevels)
	cont := level(v.Continentalness, continentalnessLevels)
	ero := level(v.Erosion, erosionLevels)
	pv := level(v.PeaksValleys, peaksValleysLevels)
	weird := v.Weirdness >= 0

	switch {
	case cont <= 1:
		return oceanBiome(cont, temp)
	case pv == 0 && cont <= 3:
		if temp == 0 {
			return BiomeFrozenRiver
		}
		return BiomeRiver
	case ero == 6 && pv <= 1:
		if temp == 0 {
			return BiomeFrozenRiver
		}
		return BiomeSwamp
	case cont == 2 && ero <= 2:
		return BiomeStonyShore
	case cont == 2 && pv <= 2:
		return beachBiome(temp)
	case cont >= 4 && pv >= 3 && ero <= 1:
		if temp <= 2 {
			return BiomeSnowySlopes
		}
		return BiomeStonyPeaks
	case temp == 4 && hum <= 2 && cont >= 3:
		return BiomeBadlands
	}
	return middleBiome(temp, hum, weird)
}

func oceanBiome(cont, temp int) BiomeType {
	switch {
	case temp == 0:
		return BiomeFrozenOcean
	case temp == 4:
		return BiomeWarmOcean
	case cont == 1:
		return BiomeDeepOcean
	default:
		return BiomeOcean
	}
}

func beachBiome(temp int) BiomeType {
	switch temp {
	case 0:
		return BiomeSnowyBeach
	case 4:
		return BiomeDesert
	default:
		return BiomeBeach
	}
}

func middleBiome(temp, hum int, weird bool) BiomeType {
	switch temp {
	case 0:
		if hum == 0 && weird {
			return BiomeIceSpikes
		}
		if hum <= 2 {
			return BiomeSnowyPlains
		}
		return BiomeSnowyTaiga
	case 1:
		switch {
		case hum <= 1:
			return BiomePlains
		case hum == 2:
			return BiomeForest
		default:
			return BiomeTaiga
		}
	case 2:
		if hum == 1 {
			return BiomePlains
		}
		return BiomeForest
	case 3:
		switch {
		case hum <= 1:
			return BiomeSavanna
		case hum == 2:
			return BiomeForest
		default:
			return BiomeJungle
		}
	default:
		return BiomeDesert
	}
}
