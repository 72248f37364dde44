package block

import "github.com/annel0/voxelworld/internal/vec"

// Face - одна из шести граней куба
type Face uint8

// Канонический порядок граней при построении меша
const (
	FaceTop    Face = iota // +Y
	FaceBottom             // -Y
	FaceLeft               // -X
	FaceRight              // +X
	FaceFront              // -Z
	FaceBack               // +Z
)

// AllFaces перечисляет грани в каноническом порядке
var AllFaces = [6]Face{FaceTop, FaceBottom, FaceLeft, FaceRight, FaceFront, FaceBack}

var faceNormals = [6]vec.Vec3{
	FaceTop:    {X: 0, Y: 1, Z: 0},
	FaceBottom: {X: 0, Y: -1, Z: 0},
	FaceLeft:   {X: -1, Y: 0, Z: 0},
	FaceRight:  {X: 1, Y: 0, Z: 0},
	FaceFront:  {X: 0, Y: 0, Z: -1},
	FaceBack:   {X: 0, Y: 0, Z: 1},
}

var faceNames = [6]string{"top", "bottom", "left", "right", "front", "back"}

// Normal возвращает единичную нормаль грани
func (f Face) Normal() vec.Vec3 {
	return faceNormals[f]
}

// Opposite возвращает противоположную грань
func (f Face) Opposite() Face {
	return f ^ 1
}

// IsSide сообщает, боковая ли это грань
func (f Face) IsSide() bool {
	return f >= FaceLeft
}

func (f Face) String() string {
	if int(f) < len(faceNames) {
		return faceNames[f]
	}
	return "invalid"
}
