package vec

import (
	"fmt"
	"math"
)

// Размеры чанка в блоках
const (
	ChunkSizeX = 16
	ChunkSizeY = 256
	ChunkSizeZ = 16
)

// Vec3 представляет трехмерный вектор с целочисленными координатами.
// Ось Y направлена вверх.
type Vec3 struct {
	X int
	Y int
	Z int
}

// Vec3Float представляет трехмерный вектор с плавающими координатами
type Vec3Float struct {
	X float64
	Y float64
	Z float64
}

// String возвращает строку вида (x,y,z)
func (v Vec3) String() string {
	return fmt.Sprintf("(%d,%d,%d)", v.X, v.Y, v.Z)
}

// Column возвращает горизонтальную проекцию вектора
func (v Vec3) Column() Vec2 {
	return Vec2{X: v.X, Z: v.Z}
}

// ToChunkCoords возвращает координаты чанка, содержащего блок.
// Чанк занимает всю высоту мира, поэтому Y всегда 0.
func (v Vec3) ToChunkCoords() Vec3 {
	return Vec3{X: FloorDiv(v.X, ChunkSizeX), Y: 0, Z: FloorDiv(v.Z, ChunkSizeZ)}
}

// LocalInChunk возвращает локальные координаты блока внутри его чанка
func (v Vec3) LocalInChunk() Vec3 {
	return Vec3{X: FloorMod(v.X, ChunkSizeX), Y: v.Y, Z: FloorMod(v.Z, ChunkSizeZ)}
}

// ChunkOrigin возвращает мировые координаты угла чанка (для координат чанка)
func (v Vec3) ChunkOrigin() Vec3 {
	return Vec3{X: v.X * ChunkSizeX, Y: 0, Z: v.Z * ChunkSizeZ}
}

// DistanceTo возвращает расстояние до другого вектора
func (v Vec3) DistanceTo(other Vec3) float64 {
	dx := float64(v.X - other.X)
	dy := float64(v.Y - other.Y)
	dz := float64(v.Z - other.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Less задаёт канонический порядок координат чанков: X, затем Z, затем Y
func (v Vec3) Less(other Vec3) bool {
	if v.X != other.X {
		return v.X < other.X
	}
	if v.Z != other.Z {
		return v.Z < other.Z
	}
	return v.Y < other.Y
}

// ToVec3 округляет вектор вниз до блока
func (v Vec3Float) ToVec3() Vec3 {
	return Vec3{
		X: int(math.Floor(v.X)),
		Y: int(math.Floor(v.Y)),
		Z: int(math.Floor(v.Z)),
	}
}

// FloorDiv делит с округлением к минус бесконечности
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// FloorMod возвращает неотрицательный остаток для положительного делителя
func FloorMod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
