package world

import (
	"fmt"
	"math"

	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world/block"
)

// MaxBreakDistance - дальность луча BreakBlock в блоках
const MaxBreakDistance = 48.0

// RaycastHit - первый блок на луче
type RaycastHit struct {
	Pos      vec.Vec3
	Block    block.BlockID
	Distance float64 // от начала луча до входа в блок
}

// blockLookup читает блок мира; false - чанк не загружен
type blockLookup func(pos vec.Vec3) (block.BlockID, bool)

// targetable - блоки, в которые упирается луч. Воздух и вода пропускаются.
func targetable(id block.BlockID) bool {
	return id != block.AirBlockID && id != block.WaterBlockID
}

// Raycast ищет первый твёрдый блок на луче из origin в направлении dir
// среди загруженных чанков. Ничего не находит, если начало луча внутри
// твёрдого блока, направление нулевое или луч покинул мир.
func (wm *WorldManager) Raycast(origin, dir vec.Vec3Float, maxDist float64) (vec.Vec3, block.BlockID, bool) {
	hit, ok := raycast(wm.BlockAt, origin, dir, maxDist)
	return hit.Pos, hit.Block, ok
}

// BreakBlock заменяет воздухом блок, на который смотрит луч, не дальше MaxBreakDistance.
// Возвращает координату и прежний тип блока.
func (wm *WorldManager) BreakBlock(origin, dir vec.Vec3Float) (vec.Vec3, block.BlockID, error) {
	hit, ok := raycast(wm.BlockAt, origin, dir, MaxBreakDistance)
	if !ok {
		return vec.Vec3{}, block.AirBlockID, ErrNoTarget
	}
	if err := wm.ApplyEdit(hit.Pos, block.AirBlockID); err != nil {
		return hit.Pos, hit.Block, fmt.Errorf("разрушение блока %v: %w", hit.Pos, err)
	}
	return hit.Pos, hit.Block, nil
}

// raycast проходит по блокам вдоль луча методом DDA (Amanatides-Woo)
func raycast(lookup blockLookup, origin, dir vec.Vec3Float, maxDist float64) (RaycastHit, bool) {
	length := math.Sqrt(dir.X*dir.X + dir.Y*dir.Y + dir.Z*dir.Z)
	if length == 0 || math.IsNaN(length) || math.IsInf(length, 0) {
		return RaycastHit{}, false
	}
	d := [3]float64{dir.X / length, dir.Y / length, dir.Z / length}
	s := [3]float64{origin.X, origin.Y, origin.Z}

	start := origin.ToVec3()
	if id, ok := lookup(start); ok && targetable(id) {
		return RaycastHit{}, false
	}
	cell := [3]int{start.X, start.Y, start.Z}

	var step [3]int
	var tMax, tDelta [3]float64
	for i := 0; i < 3; i++ {
		switch {
		case d[i] > 0:
			step[i] = 1
			tMax[i] = (math.Floor(s[i]) + 1 - s[i]) / d[i]
			tDelta[i] = 1 / d[i]
		case d[i] < 0:
			step[i] = -1
			tMax[i] = (math.Floor(s[i]) - s[i]) / d[i]
			tDelta[i] = -1 / d[i]
		default:
			tMax[i] = math.Inf(1)
			tDelta[i] = math.Inf(1)
		}
	}

	for {
		// Ось с ближайшей границей; при равенстве X, затем Y, затем Z
		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		t := tMax[axis]
		if t > maxDist {
			return RaycastHit{}, false
		}
		cell[axis] += step[axis]
		tMax[axis] += tDelta[axis]

		pos := vec.Vec3{X: cell[0], Y: cell[1], Z: cell[2]}
		// Ниже дна или выше неба при подъёме блоков уже не будет
		if pos.Y < WorldMinY || (pos.Y > WorldMaxY && step[1] >= 0) {
			return RaycastHit{}, false
		}
		if pos.X < WorldMinXZ || pos.X > WorldMaxXZ || pos.Z < WorldMinXZ || pos.Z > WorldMaxXZ {
			return RaycastHit{}, false
		}
		if id, ok := lookup(pos); ok && targetable(id) {
			return RaycastHit{Pos: pos, Block: id, Distance: t}, true
		}
	}
}
