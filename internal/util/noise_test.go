package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoiseFieldDeterministic(t *testing.T) {
	a := NewNoiseField(42)
	b := NewNoiseField(42)

	for _, p := range [][2]int{{0, 0}, {5, 5}, {-1234, 987}, {8191, -8192}} {
		assert.Equal(t, a.Sample(p[0], p[1]), b.Sample(p[0], p[1]), "высота в %v", p)
		assert.Equal(t, a.Channels(p[0], p[1]), b.Channels(p[0], p[1]))
		assert.Equal(t, a.Sample3(p[0], 40, p[1]), b.Sample3(p[0], 40, p[1]))
	}
}

func TestNoiseFieldCallOrderIndependent(t *testing.T) {
	nf := NewNoiseField(7)
	first := nf.Sample(100, -200)
	for i := 0; i < 50; i++ {
		nf.Sample(i*13, -i*7)
		nf.Sample3(i, i, i)
	}
	assert.Equal(t, first, nf.Sample(100, -200))
}

func TestNoiseFieldRanges(t *testing.T) {
	nf := NewNoiseField(1)
	for x := -4000; x <= 4000; x += 397 {
		for z := -4000; z <= 4000; z += 411 {
			h := nf.Sample(x, z)
			assert.GreaterOrEqual(t, h, 1.0)
			assert.LessOrEqual(t, h, 254.0)

			v := nf.Channels(x, z)
			for _, c := range []float64{v.Temperature, v.Humidity, v.Continentalness, v.Erosion, v.Weirdness, v.PeaksValleys} {
				assert.GreaterOrEqual(t, c, -1.0)
				assert.LessOrEqual(t, c, 1.0)
			}

			d := nf.Sample3(x, 30, z)
			assert.GreaterOrEqual(t, d, 0.0)
			assert.LessOrEqual(t, d, 1.0)
		}
	}
}

func TestSeedsDiffer(t *testing.T) {
	a := NewNoiseField(1)
	b := NewNoiseField(2)
	differs := false
	for x := 0; x < 2000 && !differs; x += 37 {
		if a.Sample3(x, 20, x) != b.Sample3(x, 20, x) {
			differs = true
		}
	}
	assert.True(t, differs, "разные сиды должны давать разный шум")
}

func TestSplineSample(t *testing.T) {
	s := Spline{{-1, 0}, {0, 10}, {1, 20}}

	assert.Equal(t, 0.0, s.Sample(-5))
	assert.Equal(t, 20.0, s.Sample(5))
	assert.Equal(t, 10.0, s.Sample(0))
	assert.InDelta(t, 5.0, s.Sample(-0.5), 1e-9)
	assert.InDelta(t, 15.0, s.Sample(0.5), 1e-9)
	assert.Equal(t, 0.0, Spline{}.Sample(1))
}

func TestPeaksValleys(t *testing.T) {
	assert.InDelta(t, -1.0, PeaksValleys(0), 1e-9)
	assert.InDelta(t, 1.0, PeaksValleys(2.0/3.0), 1e-9)
	assert.InDelta(t, 0.0, PeaksValleys(1), 1e-9)
}

func TestTerrainHeightErosionOnlyOffshore(t *testing.T) {
	inland := NoiseValues{Continentalness: 0.5, PeaksValleys: 0.6, Erosion: 1}
	assert.InDelta(t, float64(SurfaceLevel)+10+30, TerrainHeight(inland), 1e-9)

	offshore := NoiseValues{Continentalness: -0.45, PeaksValleys: 0.6, Erosion: 1}
	assert.InDelta(t, float64(SurfaceLevel)-20+30*0.1, TerrainHeight(offshore), 1e-9)
}
