package util

import (
	"math"

	"github.com/aquilax/go-perlin"
)

// Смещения сидов для независимых каналов шума
const (
	TemperatureSeedOffset     int64 = 0xFF446677
	HumiditySeedOffset        int64 = 0xAABB33CC
	ContinentalnessSeedOffset int64 = 0xFF000055
	ErosionSeedOffset         int64 = 0x44336699
	WeirdnessSeedOffset       int64 = 0xFF110077
	CaveLowSeedOffset         int64 = 0x1F326321
	CaveHighSeedOffset        int64 = 0x15444555
	DensitySeedOffset         int64 = 0x0DE45171
)

// Базовая высота поверхности, от которой отсчитываются сплайны
const SurfaceLevel = 64

// perlinScale растягивает выход go-perlin (примерно ±0.707) до [-1, 1]
const perlinScale = math.Sqrt2

// octaveShift разносит октавы по решётке, чтобы нули не совпадали в начале координат
const octaveShift = 71.37

// ChannelInfo описывает фрактальный канал шума
type ChannelInfo struct {
	Frequency   float64
	Octaves     int
	Persistence float64
	Lacunarity  float64
}

// Channel - детерминированный фрактальный шум поверх одиночной октавы Перлина.
// Октавы складываются в фиксированном порядке, поэтому результат не зависит
// от платформы и порядка вызовов.
type Channel struct {
	base *perlin.Perlin
	info ChannelInfo
	norm float64
}

// NewChannel создаёт канал шума с указанным сидом
func NewChannel(seed int64, info ChannelInfo) *Channel {
	if info.Octaves < 1 {
		info.Octaves = 1
	}
	if info.Lacunarity == 0 {
		info.Lacunarity = 2.0
	}
	if info.Persistence == 0 {
		info.Persistence = 0.5
	}

	norm := 0.0
	amp := 1.0
	for i := 0; i < info.Octaves; i++ {
		norm += amp
		amp = float64(amp * info.Persistence)
	}

	return &Channel{
		// alpha/beta не влияют при n=1: октавы собираются вручную ниже
		base: perlin.NewPerlin(2, 2, 1, seed),
		info: info,
		norm: norm,
	}
}

// Noise2D возвращает значение канала в точке (x, z) в диапазоне [-1, 1]
func (c *Channel) Noise2D(x, z float64) float64 {
	sum := 0.0
	amp := 1.0
	freq := c.info.Frequency
	for i := 0; i < c.info.Octaves; i++ {
		shift := float64(i) * octaveShift
		v := c.base.Noise2D(float64(x*freq)+shift, float64(z*freq)+shift)
		sum = sum + float64(v*amp)
		amp = float64(amp * c.info.Persistence)
		freq = float64(freq * c.info.Lacunarity)
	}
	return clampUnit(float64(sum/c.norm) * perlinScale)
}

// Noise3D возвращает значение канала в точке (x, y, z) в диапазоне [-1, 1]
func (c *Channel) Noise3D(x, y, z float64) float64 {
	sum := 0.0
	amp := 1.0
	freq := c.info.Frequency
	for i := 0; i < c.info.Octaves; i++ {
		shift := float64(i) * octaveShift
		v := c.base.Noise3D(float64(x*freq)+shift, float64(y*freq)+shift, float64(z*freq)+shift)
		sum = sum + float64(v*amp)
		amp = float64(amp * c.info.Persistence)
		freq = float64(freq * c.info.Lacunarity)
	}
	return clampUnit(float64(sum/c.norm) * perlinScale)
}

func clampUnit(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

// NoiseValues - значения всех климатических каналов в одном столбце
type NoiseValues struct {
	Temperature     float64
	Humidity        float64
	Continentalness float64
	Erosion         float64
	Weirdness       float64
	PeaksValleys    float64
}

// NoiseField - набор каналов шума, построенный один раз из сида мира.
// Все методы чистые и безопасны для параллельного вызова.
type NoiseField struct {
	seed int64

	temperature     *Channel
	humidity        *Channel
	continentalness *Channel
	erosion         *Channel
	weirdness       *Channel
	caveLow         *Channel
	caveHigh        *Channel
	density         *Channel
}

// NewNoiseField создаёт поле шума для указанного сида
func NewNoiseField(seed int64) *NoiseField {
	return &NoiseField{
		seed: seed,
		temperature: NewChannel(seed+TemperatureSeedOffset, ChannelInfo{
			Frequency: 0.000336, Octaves: 2,
		}),
		humidity: NewChannel(seed+HumiditySeedOffset, ChannelInfo{
			Frequency: 0.000246, Octaves: 2, Persistence: 0.6,
		}),
		continentalness: NewChannel(seed+ContinentalnessSeedOffset, ChannelInfo{
			Frequency: 0.000974, Octaves: 6, Persistence: 0.8, Lacunarity: 1.2,
		}),
		erosion: NewChannel(seed+ErosionSeedOffset, ChannelInfo{
			Frequency: 0.00998, Octaves: 6, Persistence: 0.42,
		}),
		weirdness: NewChannel(seed+WeirdnessSeedOffset, ChannelInfo{
			Frequency: 0.00196, Octaves: 6, Persistence: 0.66,
		}),
		caveLow: NewChannel(seed+CaveLowSeedOffset, ChannelInfo{
			Frequency: 0.007, Octaves: 6, Persistence: 0.6, Lacunarity: 2.0,
		}),
		caveHigh: NewChannel(seed+CaveHighSeedOffset, ChannelInfo{
			Frequency: 0.007, Octaves: 6, Persistence: 0.6, Lacunarity: 2.0,
		}),
		density: NewChannel(seed+DensitySeedOffset, ChannelInfo{
			Frequency: 0.08, Octaves: 3, Persistence: 0.5,
		}),
	}
}

// Seed возвращает сид, из которого построено поле
func (nf *NoiseField) Seed() int64 {
	return nf.seed
}

// Channels возвращает значения климатических каналов в столбце (x, z)
func (nf *NoiseField) Channels(x, z int) NoiseValues {
	fx, fz := float64(x), float64(z)
	weirdness := nf.weirdness.Noise2D(fx, fz)
	return NoiseValues{
		Temperature:     nf.temperature.Noise2D(fx, fz),
		Humidity:        nf.humidity.Noise2D(fx, fz),
		Continentalness: nf.continentalness.Noise2D(fx, fz),
		Erosion:         nf.erosion.Noise2D(fx, fz),
		Weirdness:       weirdness,
		PeaksValleys:    PeaksValleys(weirdness),
	}
}

// Sample возвращает высоту поверхности в столбце (x, z)
func (nf *NoiseField) Sample(x, z int) float64 {
	return TerrainHeight(nf.Channels(x, z))
}

// Sample3 возвращает объёмную плотность в точке в диапазоне [0, 1]
func (nf *NoiseField) Sample3(x, y, z int) float64 {
	v := nf.density.Noise3D(float64(x), float64(y), float64(z))
	return (v + 1.0) / 2.0
}

// CaveBounds возвращает нижнюю и верхнюю границы пещерного пояса в столбце
func (nf *NoiseField) CaveBounds(x, z int, height float64) (low, high float64) {
	fx, fz := float64(x), float64(z)
	low = float64(nf.caveLow.Noise2D(fx, fz)*20.0) + 110.0 - float64(height*0.6)
	high = float64(nf.caveHigh.Noise2D(fx, fz)*25.0) + Lerp(56.0, height, 0.3)
	return low, high
}

// PeaksValleys преобразует weirdness в сигнал пиков и долин
func PeaksValleys(weirdness float64) float64 {
	return 1.0 - math.Abs(float64(3.0*math.Abs(weirdness))-2.0)
}

// TerrainHeight вычисляет высоту рельефа из климатических каналов
func TerrainHeight(v NoiseValues) float64 {
	continentalnessOffset := ContinentalnessSpline.Sample(v.Continentalness)
	pvOffset := PeaksValleysSpline.Sample(v.PeaksValleys)
	erosionFactor := 1.0
	if v.Continentalness < -0.2 {
		erosionFactor = ErosionSpline.Sample(v.Erosion)
	}
	h := float64(SurfaceLevel) + continentalnessOffset + float64(pvOffset*erosionFactor)
	if h < 1 {
		h = 1
	}
	if h > 254 {
		h = 254
	}
	return h
}
