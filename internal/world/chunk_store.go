package world

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world/block"
)

// EvictionPolicy определяет порядок выгрузки при превышении бюджета
type EvictionPolicy int

const (
	// EvictFarthest - сначала самые дальние от точки обзора, при равенстве давно не используемые
	EvictFarthest EvictionPolicy = iota
	// EvictLRU - сначала давно не используемые, при равенстве самые дальние
	EvictLRU
)

// ParseEvictionPolicy разбирает имя политики из конфигурации
func ParseEvictionPolicy(s string) (EvictionPolicy, error) {
	switch strings.ToLower(s) {
	case "", "distance", "farthest":
		return EvictFarthest, nil
	case "lru":
		return EvictLRU, nil
	}
	return 0, fmt.Errorf("неизвестная политика выгрузки %q", s)
}

func (p EvictionPolicy) String() string {
	if p == EvictLRU {
		return "lru"
	}
	return "distance"
}

// meshReserveBytes - резерв под меш при оценке стоимости одного чанка
const meshReserveBytes = 256 << 10

// EstimatedChunkBytes - оценка памяти одного чанка вместе с мешем
const EstimatedChunkBytes = ChunkBlocksBytes + meshReserveBytes

// Budget - жёсткие ограничения на число чанков и память
type Budget struct {
	MaxChunks   int
	MemoryLimit int64 // байт, 0 - без ограничения
}

// Capacity возвращает максимальное число одновременно загруженных чанков
func (b Budget) Capacity() int {
	capacity := b.MaxChunks
	if b.MemoryLimit > 0 {
		byMemory := int(b.MemoryLimit / EstimatedChunkBytes)
		if capacity <= 0 || byMemory < capacity {
			capacity = byMemory
		}
	}
	return capacity
}

// Validate проверяет, что в бюджет помещается хотя бы один чанк
func (b Budget) Validate() error {
	if b.Capacity() < 1 {
		return fmt.Errorf("max_chunks=%d, memory_limit=%d байт, на чанк нужно %d: %w",
			b.MaxChunks, b.MemoryLimit, EstimatedChunkBytes, ErrBudgetTooSmall)
	}
	return nil
}

// sideFaces - горизонтальные соседи чанка
var sideFaces = [4]block.Face{block.FaceLeft, block.FaceRight, block.FaceFront, block.FaceBack}

// ChunkStore владеет всеми загруженными чанками и следит за бюджетом памяти
type ChunkStore struct {
	mu       sync.RWMutex
	chunks   map[vec.Vec3]*Chunk
	building map[vec.Vec3]chan struct{} // не более одной генерации на координату

	gen     *TerrainGenerator
	overlay *EditOverlay
	budget  Budget
	policy  EvictionPolicy
	metrics *Metrics

	focus vec.Vec3
	tick  uint64
}

// NewChunkStore создаёт хранилище чанков
func NewChunkStore(gen *TerrainGenerator, overlay *EditOverlay, budget Budget, policy EvictionPolicy, metrics *Metrics) (*ChunkStore, error) {
	if err := budget.Validate(); err != nil {
		return nil, err
	}
	if overlay == nil {
		overlay = NewEditOverlay()
	}
	return &ChunkStore{
		chunks:   make(map[vec.Vec3]*Chunk),
		building: make(map[vec.Vec3]chan struct{}),
		gen:      gen,
		overlay:  overlay,
		budget:   budget,
		policy:   policy,
		metrics:  metrics,
	}, nil
}

// Capacity возвращает предел числа загруженных чанков
func (cs *ChunkStore) Capacity() int {
	return cs.budget.Capacity()
}

// EffectiveCapacity уточняет предел по фактическому среднему размеру загруженных чанков
func (cs *ChunkStore) EffectiveCapacity() int {
	capacity := cs.budget.Capacity()
	if cs.budget.MemoryLimit <= 0 {
		return capacity
	}

	cs.mu.RLock()
	n := len(cs.chunks)
	total := cs.memoryBytesLocked()
	cs.mu.RUnlock()
	if n == 0 {
		return capacity
	}

	avg := total / n
	if avg < EstimatedChunkBytes {
		return capacity
	}
	if byMemory := int(cs.budget.MemoryLimit / int64(avg)); byMemory < capacity {
		capacity = byMemory
	}
	if capacity < 1 {
		capacity = 1
	}
	return capacity
}

// EnforceMemory выгружает чанки по политике, пока память превышает предел.
// Возвращает координаты выгруженных чанков.
func (cs *ChunkStore) EnforceMemory() []vec.Vec3 {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	var evicted []vec.Vec3
	for len(cs.chunks) > 1 && cs.overMemoryLocked(0) {
		victim, ok := cs.victimLocked(vec.Vec3{X: ChunkMaxXZ + 1})
		if !ok {
			break
		}
		cs.evictLocked(victim)
		cs.metrics.chunkEvicted("budget")
		evicted = append(evicted, victim)
	}
	return evicted
}

// SetFocus задаёт чанк точки обзора для политики выгрузки и продвигает такт LRU
func (cs *ChunkStore) SetFocus(focus vec.Vec3) {
	cs.mu.Lock()
	cs.focus = focus
	cs.tick++
	cs.mu.Unlock()
}

// Get возвращает загруженный чанк или nil
func (cs *ChunkStore) Get(coords vec.Vec3) *Chunk {
	cs.mu.RLock()
	chunk := cs.chunks[coords]
	cs.mu.RUnlock()
	return chunk
}

// Has сообщает, загружен ли чанк
func (cs *ChunkStore) Has(coords vec.Vec3) bool {
	return cs.Get(coords) != nil
}

// Len возвращает число загруженных чанков
func (cs *ChunkStore) Len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.chunks)
}

// GetOrCreate возвращает загруженный чанк, а при промахе синхронно генерирует его,
// накладывает правки и вставляет. На одну координату существует ровно один чанк.
func (cs *ChunkStore) GetOrCreate(coords vec.Vec3) (*Chunk, error) {
	if !ChunkInWorld(coords) {
		return nil, fmt.Errorf("чанк %v: %w", coords, ErrOutOfRange)
	}

	for {
		cs.mu.Lock()
		if chunk, ok := cs.chunks[coords]; ok {
			chunk.lastAccess = cs.tick
			cs.mu.Unlock()
			return chunk, nil
		}
		wait, inFlight := cs.building[coords]
		if !inFlight {
			cs.building[coords] = make(chan struct{})
			cs.mu.Unlock()
			break
		}
		cs.mu.Unlock()
		<-wait // чанк строит другой вызов, ждём и перепроверяем
	}

	chunk := cs.gen.Generate(coords)
	cs.overlay.ApplyTo(chunk)
	cs.metrics.chunkGenerated()

	cs.mu.Lock()
	cs.insertLocked(chunk)
	done := cs.building[coords]
	delete(cs.building, coords)
	cs.mu.Unlock()
	close(done)

	return chunk, nil
}

// Insert вставляет уже сгенерированный чанк (например, из фоновой генерации).
// Если чанк уже загружен, возвращается существующий.
func (cs *ChunkStore) Insert(chunk *Chunk) *Chunk {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if existing, ok := cs.chunks[chunk.Coords]; ok {
		return existing
	}
	cs.insertLocked(chunk)
	return chunk
}

// insertLocked освобождает место по бюджету и вставляет чанк
func (cs *ChunkStore) insertLocked(chunk *Chunk) {
	capacity := cs.budget.Capacity()
	for len(cs.chunks) > 0 && (len(cs.chunks) >= capacity || cs.overMemoryLocked(ChunkBlocksBytes)) {
		victim, ok := cs.victimLocked(chunk.Coords)
		if !ok {
			break
		}
		cs.evictLocked(victim)
		cs.metrics.chunkEvicted("budget")
	}

	chunk.lastAccess = cs.tick
	cs.chunks[chunk.Coords] = chunk

	// Соседи рисовали границу без этого чанка, их нужно перестроить
	cs.markNeighborsDirtyLocked(chunk.Coords)
}

func (cs *ChunkStore) overMemoryLocked(extra int) bool {
	if cs.budget.MemoryLimit <= 0 {
		return false
	}
	return int64(cs.memoryBytesLocked()+extra) > cs.budget.MemoryLimit
}

// victimLocked выбирает чанк для выгрузки по политике, исключая skip
func (cs *ChunkStore) victimLocked(skip vec.Vec3) (vec.Vec3, bool) {
	var best *Chunk
	bestDist := -1
	for coords, chunk := range cs.chunks {
		if coords == skip {
			continue
		}
		dist := coords.Column().DistanceSq(cs.focus.Column())
		if best == nil || cs.evictBefore(chunk, dist, best, bestDist) {
			best, bestDist = chunk, dist
		}
	}
	if best == nil {
		return vec.Vec3{}, false
	}
	return best.Coords, true
}

// evictBefore сообщает, должен ли чанк a быть выгружен раньше чанка b
func (cs *ChunkStore) evictBefore(a *Chunk, distA int, b *Chunk, distB int) bool {
	if cs.policy == EvictLRU {
		if a.lastAccess != b.lastAccess {
			return a.lastAccess < b.lastAccess
		}
		if distA != distB {
			return distA > distB
		}
	} else {
		if distA != distB {
			return distA > distB
		}
		if a.lastAccess != b.lastAccess {
			return a.lastAccess < b.lastAccess
		}
	}
	return b.Coords.Less(a.Coords)
}

// EvictOutside выгружает все чанки вне retain и возвращает их координаты
func (cs *ChunkStore) EvictOutside(retain map[vec.Vec3]struct{}) []vec.Vec3 {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	var evicted []vec.Vec3
	for coords := range cs.chunks {
		if _, keep := retain[coords]; !keep {
			evicted = append(evicted, coords)
		}
	}
	sort.Slice(evicted, func(i, j int) bool { return evicted[i].Less(evicted[j]) })

	for _, coords := range evicted {
		cs.evictLocked(coords)
		cs.metrics.chunkEvicted("distance")
	}
	return evicted
}

// Evict выгружает один чанк, если он загружен
func (cs *ChunkStore) Evict(coords vec.Vec3) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if _, ok := cs.chunks[coords]; !ok {
		return false
	}
	cs.evictLocked(coords)
	cs.metrics.chunkEvicted("explicit")
	return true
}

func (cs *ChunkStore) evictLocked(coords vec.Vec3) {
	chunk, ok := cs.chunks[coords]
	if !ok {
		return
	}
	delete(cs.chunks, coords)
	chunk.release()
	cs.markNeighborsDirtyLocked(coords)
}

// MarkDirty помечает чанк и его соседей по граням для перестройки меша
func (cs *ChunkStore) MarkDirty(coords vec.Vec3) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	if chunk, ok := cs.chunks[coords]; ok {
		chunk.MarkDirty()
	}
	cs.markNeighborsDirtyLocked(coords)
}

// MarkBlockDirty помечает чанк блока, а соседний чанк - только если блок лежит на общей границе
func (cs *ChunkStore) MarkBlockDirty(pos vec.Vec3) {
	coords := pos.ToChunkCoords()
	local := pos.LocalInChunk()

	cs.mu.RLock()
	defer cs.mu.RUnlock()

	if chunk, ok := cs.chunks[coords]; ok {
		chunk.MarkDirty()
	}

	mark := func(dx, dz int) {
		if nb, ok := cs.chunks[vec.Vec3{X: coords.X + dx, Z: coords.Z + dz}]; ok {
			nb.MarkDirty()
		}
	}
	if local.X == 0 {
		mark(-1, 0)
	} else if local.X == ChunkSizeX-1 {
		mark(1, 0)
	}
	if local.Z == 0 {
		mark(0, -1)
	} else if local.Z == ChunkSizeZ-1 {
		mark(0, 1)
	}
}

func (cs *ChunkStore) markNeighborsDirtyLocked(coords vec.Vec3) {
	for _, face := range sideFaces {
		if nb, ok := cs.chunks[coords.Add(face.Normal())]; ok {
			nb.MarkDirty()
		}
	}
}

// Neighbors собирает граничные срезы загруженных соседей чанка
func (cs *ChunkStore) Neighbors(coords vec.Vec3) NeighborSet {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	var ns NeighborSet
	for _, face := range sideFaces {
		if nb, ok := cs.chunks[coords.Add(face.Normal())]; ok {
			ns.Set(face, nb.Boundary(face.Opposite()))
		}
	}
	return ns
}

// DirtyCoords возвращает грязные чанки, ближайшие к точке обзора первыми
func (cs *ChunkStore) DirtyCoords() []vec.Vec3 {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	var out []vec.Vec3
	for coords, chunk := range cs.chunks {
		if chunk.IsDirty() {
			out = append(out, coords)
		}
	}
	sortByDistance(out, cs.focus)
	return out
}

// Coords возвращает координаты всех загруженных чанков в каноническом порядке
func (cs *ChunkStore) Coords() []vec.Vec3 {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	out := make([]vec.Vec3, 0, len(cs.chunks))
	for coords := range cs.chunks {
		out = append(out, coords)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// MemoryBytes возвращает оценку памяти всех загруженных чанков
func (cs *ChunkStore) MemoryBytes() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.memoryBytesLocked()
}

func (cs *ChunkStore) memoryBytesLocked() int {
	total := 0
	for _, chunk := range cs.chunks {
		total += chunk.MemoryBytes()
	}
	return total
}

// Close выгружает все чанки
func (cs *ChunkStore) Close() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for coords, chunk := range cs.chunks {
		chunk.release()
		delete(cs.chunks, coords)
	}
}

// sortByDistance сортирует чанки по горизонтальному расстоянию до focus,
// при равенстве - в каноническом порядке
func sortByDistance(coords []vec.Vec3, focus vec.Vec3) {
	sort.Slice(coords, func(i, j int) bool {
		di := coords[i].Column().DistanceSq(focus.Column())
		dj := coords[j].Column().DistanceSq(focus.Column())
		if di != dj {
			return di < dj
		}
		return coords[i].Less(coords[j])
	})
}
