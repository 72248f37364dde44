package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFloorDivMod(t *testing.T) {
	cases := []struct {
		a, b, div, mod int
	}{
		{0, 16, 0, 0},
		{15, 16, 0, 15},
		{16, 16, 1, 0},
		{-1, 16, -1, 15},
		{-16, 16, -1, 0},
		{-17, 16, -2, 15},
		{-8192, 16, -512, 0},
		{8191, 16, 511, 15},
	}
	for _, c := range cases {
		assert.Equal(t, c.div, FloorDiv(c.a, c.b), "FloorDiv(%d,%d)", c.a, c.b)
		assert.Equal(t, c.mod, FloorMod(c.a, c.b), "FloorMod(%d,%d)", c.a, c.b)
	}
}

func TestChunkCoordsRoundTrip(t *testing.T) {
	for _, p := range []Vec3{{-1, 10, -1}, {5, 10, 5}, {-33, 0, 47}, {8191, 255, -8192}} {
		chunk := p.ToChunkCoords()
		local := p.LocalInChunk()
		assert.Equal(t, 0, chunk.Y)
		assert.Equal(t, p, chunk.ChunkOrigin().Add(local), "точка %v", p)
		assert.True(t, local.X >= 0 && local.X < ChunkSizeX)
		assert.True(t, local.Z >= 0 && local.Z < ChunkSizeZ)
	}
}

func TestVec3FloatToVec3(t *testing.T) {
	assert.Equal(t, Vec3{-1, 3, 0}, Vec3Float{X: -0.5, Y: 3.9, Z: 0.2}.ToVec3())
}

func TestVec3Less(t *testing.T) {
	assert.True(t, Vec3{X: -1, Z: 5}.Less(Vec3{X: 0, Z: -5}))
	assert.True(t, Vec3{X: 0, Z: -5}.Less(Vec3{X: 0, Z: 0}))
	assert.False(t, Vec3{}.Less(Vec3{}))
}
