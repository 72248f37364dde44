package world

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world/block"
)

// MissingNeighborPolicy определяет, как мешер трактует невыгруженного соседа
type MissingNeighborPolicy int

const (
	// NeighborOpaque - граница с невыгруженным соседом скрыта, чанк перестраивается при его загрузке
	NeighborOpaque MissingNeighborPolicy = iota
	// NeighborTransparent - граница с невыгруженным соседом рисуется
	NeighborTransparent
)

// ParseMissingNeighborPolicy разбирает имя политики из конфигурации
func ParseMissingNeighborPolicy(s string) (MissingNeighborPolicy, error) {
	switch strings.ToLower(s) {
	case "", "opaque":
		return NeighborOpaque, nil
	case "transparent":
		return NeighborTransparent, nil
	}
	return 0, fmt.Errorf("неизвестная политика соседей %q", s)
}

func (p MissingNeighborPolicy) String() string {
	if p == NeighborTransparent {
		return "transparent"
	}
	return "opaque"
}

// Quad - одна видимая грань блока
type Quad struct {
	Pos  vec.Vec3 // Мировые координаты блока
	Face block.Face
	Tile block.AtlasTile
}

// Vertex - вершина меша для рендера
type Vertex struct {
	Position [3]float32
	UV       [2]float32
	Tile     block.AtlasTile
	Face     block.Face
}

// Mesh - геометрия видимых граней чанка
type Mesh struct {
	Coords   vec.Vec3
	Quads    []Quad
	Vertices []Vertex
	Indices  []uint32
}

// FaceCount возвращает число граней
func (m *Mesh) FaceCount() int {
	return len(m.Quads)
}

// Размеры структур в памяти на 64-битной платформе
const (
	quadSize   = 40
	vertexSize = 32
)

// MemoryBytes оценивает память, занимаемую мешем
func (m *Mesh) MemoryBytes() int {
	return cap(m.Quads)*quadSize + cap(m.Vertices)*vertexSize + cap(m.Indices)*4
}

// Bytes упаковывает вершины и индексы в little-endian буфер.
// Одинаковый меш всегда даёт одинаковые байты.
func (m *Mesh) Bytes() []byte {
	out := make([]byte, 0, 8+len(m.Vertices)*29+len(m.Indices)*4)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(m.Vertices)))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(m.Indices)))
	for _, v := range m.Vertices {
		for _, f := range v.Position {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
		}
		for _, f := range v.UV {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
		}
		out = binary.LittleEndian.AppendUint32(out, v.Tile.U)
		out = binary.LittleEndian.AppendUint32(out, v.Tile.V)
		out = append(out, byte(v.Face))
	}
	for _, i := range m.Indices {
		out = binary.LittleEndian.AppendUint32(out, i)
	}
	return out
}

// NeighborSet - граничные срезы четырёх горизонтальных соседей.
// Индекс: грань чанка (Left, Right, Front, Back) минус FaceLeft.
// nil означает, что сосед не загружен.
type NeighborSet [4][]block.BlockID

// Set задаёт срез соседа со стороны грани face
func (ns *NeighborSet) Set(face block.Face, boundary []block.BlockID) {
	if face.IsSide() {
		ns[face-block.FaceLeft] = boundary
	}
}

// Missing возвращает число невыгруженных соседей
func (ns NeighborSet) Missing() int {
	n := 0
	for _, b := range ns {
		if b == nil {
			n++
		}
	}
	return n
}

// faceCorners - углы грани единичного куба против часовой стрелки снаружи
var faceCorners = [6][4][3]float32{
	block.FaceTop:    {{0, 1, 0}, {0, 1, 1}, {1, 1, 1}, {1, 1, 0}},
	block.FaceBottom: {{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}},
	block.FaceLeft:   {{0, 0, 0}, {0, 0, 1}, {0, 1, 1}, {0, 1, 0}},
	block.FaceRight:  {{1, 0, 1}, {1, 0, 0}, {1, 1, 0}, {1, 1, 1}},
	block.FaceFront:  {{1, 0, 0}, {0, 0, 0}, {0, 1, 0}, {1, 1, 0}},
	block.FaceBack:   {{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}},
}

var cornerUV = [4][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}}

// Mesher строит геометрию чанка с отсечением скрытых граней
type Mesher struct {
	policy MissingNeighborPolicy
}

// NewMesher создаёт мешер с указанной политикой для невыгруженных соседей
func NewMesher(policy MissingNeighborPolicy) *Mesher {
	return &Mesher{policy: policy}
}

// Policy возвращает политику мешера
func (m *Mesher) Policy() MissingNeighborPolicy {
	return m.policy
}

// Build строит меш чанка. Блоки обходятся в порядке y, z, x,
// грани каждого блока - в каноническом порядке.
func (m *Mesher) Build(chunk *Chunk, neighbors NeighborSet) *Mesh {
	chunk.Mu.RLock()
	defer chunk.Mu.RUnlock()

	mesh := &Mesh{Coords: chunk.Coords}
	blocks := chunk.blocks
	if blocks == nil {
		return mesh
	}
	origin := chunk.Coords.ChunkOrigin()

	for y := 0; y < ChunkSizeY; y++ {
		for z := 0; z < ChunkSizeZ; z++ {
			for x := 0; x < ChunkSizeX; x++ {
				id := blocks[blockIndex(x, y, z)]
				if block.OpacityOf(id) == block.Empty {
					continue
				}
				for _, face := range block.AllFaces {
					n := face.Normal()
					nb := m.neighborBlock(blocks, &neighbors, x+n.X, y+n.Y, z+n.Z)
					if !block.FaceVisible(id, nb) {
						continue
					}
					pos := vec.Vec3{X: origin.X + x, Y: y, Z: origin.Z + z}
					mesh.addQuad(Quad{Pos: pos, Face: face, Tile: block.TextureOf(id, face)})
				}
			}
		}
	}
	return mesh
}

// neighborBlock возвращает блок по локальным координатам, которые могут выходить за чанк
func (m *Mesher) neighborBlock(blocks []block.BlockID, ns *NeighborSet, x, y, z int) block.BlockID {
	if y < 0 {
		return block.StoneBlockID // под миром сплошная порода
	}
	if y >= ChunkSizeY {
		return block.AirBlockID
	}

	var boundary []block.BlockID
	var i int
	switch {
	case x < 0:
		boundary, i = ns[block.FaceLeft-block.FaceLeft], z
	case x >= ChunkSizeX:
		boundary, i = ns[block.FaceRight-block.FaceLeft], z
	case z < 0:
		boundary, i = ns[block.FaceFront-block.FaceLeft], x
	case z >= ChunkSizeZ:
		boundary, i = ns[block.FaceBack-block.FaceLeft], x
	default:
		return blocks[blockIndex(x, y, z)]
	}

	if boundary == nil {
		if m.policy == NeighborTransparent {
			return block.AirBlockID
		}
		return block.StoneBlockID
	}
	return boundary[y*ChunkSizeX+i]
}

func (m *Mesh) addQuad(q Quad) {
	base := uint32(len(m.Vertices))
	px, py, pz := float32(q.Pos.X), float32(q.Pos.Y), float32(q.Pos.Z)
	for c, corner := range faceCorners[q.Face] {
		m.Vertices = append(m.Vertices, Vertex{
			Position: [3]float32{px + corner[0], py + corner[1], pz + corner[2]},
			UV:       cornerUV[c],
			Tile:     q.Tile,
			Face:     q.Face,
		})
	}
	m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	m.Quads = append(m.Quads, q)
}
