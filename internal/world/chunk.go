package world

import (
	"sync"

	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world/block"
)

// Размеры чанка и адресуемого мира
const (
	ChunkSizeX  = vec.ChunkSizeX
	ChunkSizeY  = vec.ChunkSizeY
	ChunkSizeZ  = vec.ChunkSizeZ
	ChunkVolume = ChunkSizeX * ChunkSizeY * ChunkSizeZ

	WorldMinXZ = -8192
	WorldMaxXZ = 8191
	WorldMinY  = 0
	WorldMaxY  = ChunkSizeY - 1

	ChunkMinXZ = WorldMinXZ / ChunkSizeX
	ChunkMaxXZ = WorldMaxXZ / ChunkSizeX
)

// ChunkBlocksBytes - размер сетки блоков одного чанка в памяти
const ChunkBlocksBytes = ChunkVolume * 2

// blockIndex возвращает индекс блока в плоском массиве, порядок (y, z, x)
func blockIndex(x, y, z int) int {
	return (y*ChunkSizeZ+z)*ChunkSizeX + x
}

// InWorld проверяет, лежит ли блок в адресуемом диапазоне мира
func InWorld(pos vec.Vec3) bool {
	return pos.X >= WorldMinXZ && pos.X <= WorldMaxXZ &&
		pos.Z >= WorldMinXZ && pos.Z <= WorldMaxXZ &&
		pos.Y >= WorldMinY && pos.Y <= WorldMaxY
}

// ChunkInWorld проверяет, лежит ли чанк в адресуемом диапазоне мира
func ChunkInWorld(coords vec.Vec3) bool {
	return coords.Y == 0 &&
		coords.X >= ChunkMinXZ && coords.X <= ChunkMaxXZ &&
		coords.Z >= ChunkMinXZ && coords.Z <= ChunkMaxXZ
}

// Chunk представляет столб мира 16x256x16 блоков
type Chunk struct {
	Coords vec.Vec3 // Координаты чанка, Y всегда 0

	blocks     []block.BlockID
	generated  bool
	dirty      bool
	mesh       *Mesh
	lastAccess uint64

	Mu sync.RWMutex // Мьютекс для безопасного доступа
}

// NewChunk создаёт пустой (заполненный воздухом) чанк с указанными координатами
func NewChunk(coords vec.Vec3) *Chunk {
	return &Chunk{
		Coords: coords,
		blocks: make([]block.BlockID, ChunkVolume),
		dirty:  true,
	}
}

// Origin возвращает мировые координаты угла чанка
func (c *Chunk) Origin() vec.Vec3 {
	return c.Coords.ChunkOrigin()
}

// GetBlock возвращает блок по локальным координатам.
// Выгруженный чанк читается как воздух.
func (c *Chunk) GetBlock(local vec.Vec3) block.BlockID {
	id, _ := c.lookup(local)
	return id
}

// lookup возвращает блок и false, если координаты вне чанка или чанк выгружен
func (c *Chunk) lookup(local vec.Vec3) (block.BlockID, bool) {
	if !inChunk(local.X, local.Y, local.Z) {
		return block.AirBlockID, false
	}
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	if c.blocks == nil {
		return block.AirBlockID, false
	}
	return c.blocks[blockIndex(local.X, local.Y, local.Z)], true
}

// IsReleased сообщает, выгружен ли чанк из хранилища
func (c *Chunk) IsReleased() bool {
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	return c.blocks == nil
}

// SetBlock изменяет ровно один блок и помечает чанк грязным.
// Возвращает false, если координаты вне чанка или блок не изменился.
func (c *Chunk) SetBlock(local vec.Vec3, id block.BlockID) bool {
	if !inChunk(local.X, local.Y, local.Z) {
		return false
	}
	c.Mu.Lock()
	defer c.Mu.Unlock()
	if c.blocks == nil {
		return false
	}

	idx := blockIndex(local.X, local.Y, local.Z)
	if c.blocks[idx] == id {
		return false
	}
	c.blocks[idx] = id
	c.dirty = true
	return true
}

// Blocks возвращает копию сетки блоков
func (c *Chunk) Blocks() []block.BlockID {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	out := make([]block.BlockID, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// fill заполняет чанк результатом генерации. Вызывается один раз.
func (c *Chunk) fill(blocks []block.BlockID) {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	if c.blocks == nil {
		return
	}

	copy(c.blocks, blocks)
	c.generated = true
	c.dirty = true
}

// IsGenerated сообщает, заполнен ли чанк генератором
func (c *Chunk) IsGenerated() bool {
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	return c.generated
}

// IsDirty сообщает, нужна ли перестройка меша
func (c *Chunk) IsDirty() bool {
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	return c.dirty
}

// MarkDirty помечает чанк для перестройки меша
func (c *Chunk) MarkDirty() {
	c.Mu.Lock()
	c.dirty = true
	c.Mu.Unlock()
}

// Mesh возвращает последний построенный меш или nil
func (c *Chunk) Mesh() *Mesh {
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	return c.mesh
}

// setMesh атомарно заменяет меш и снимает флаг dirty
func (c *Chunk) setMesh(m *Mesh) {
	c.Mu.Lock()
	c.mesh = m
	c.dirty = false
	c.Mu.Unlock()
}

// release освобождает сетку блоков и меш при выгрузке
func (c *Chunk) release() {
	c.Mu.Lock()
	c.blocks = nil
	c.mesh = nil
	c.Mu.Unlock()
}

// MemoryBytes оценивает занимаемую чанком память
func (c *Chunk) MemoryBytes() int {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	n := len(c.blocks) * 2
	if c.mesh != nil {
		n += c.mesh.MemoryBytes()
	}
	return n
}

// Boundary возвращает срез блоков на боковой грани чанка.
// Индекс среза: y*16 + i, где i идёт вдоль грани (z для Left/Right, x для Front/Back).
// Для выгруженного чанка возвращает nil, как для отсутствующего соседа.
func (c *Chunk) Boundary(face block.Face) []block.BlockID {
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	if c.blocks == nil {
		return nil
	}

	out := make([]block.BlockID, ChunkSizeY*ChunkSizeX)
	for y := 0; y < ChunkSizeY; y++ {
		for i := 0; i < ChunkSizeX; i++ {
			var idx int
			switch face {
			case block.FaceLeft:
				idx = blockIndex(0, y, i)
			case block.FaceRight:
				idx = blockIndex(ChunkSizeX-1, y, i)
			case block.FaceFront:
				idx = blockIndex(i, y, 0)
			case block.FaceBack:
				idx = blockIndex(i, y, ChunkSizeZ-1)
			default:
				return nil
			}
			out[y*ChunkSizeX+i] = c.blocks[idx]
		}
	}
	return out
}

func inChunk(x, y, z int) bool {
	return x >= 0 && x < ChunkSizeX && y >= 0 && y < ChunkSizeY && z >= 0 && z < ChunkSizeZ
}
