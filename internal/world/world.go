package world

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/voxelworld/internal/logging"
	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world/block"

	// Регистрация всех типов блоков
	_ "github.com/annel0/voxelworld/internal/world/block/implementations"
)

// Options - параметры мира, фиксируемые при создании
type Options struct {
	Seed                 int64
	Budget               Budget
	Eviction             EvictionPolicy
	MissingNeighbor      MissingNeighborPolicy
	MaxGeneratePerUpdate int // 0 - без ограничения
	MaxMeshPerUpdate     int // 0 - без ограничения
	GenerateWorkers      int // параллельные полосы внутри одного чанка
	AsyncWorkers         int // >0 - фоновая генерация чанков
}

// DefaultOptions возвращает параметры по умолчанию для сида
func DefaultOptions(seed int64) Options {
	return Options{
		Seed:                 seed,
		Budget:               Budget{MaxChunks: 1024, MemoryLimit: 512 << 20},
		Eviction:             EvictFarthest,
		MissingNeighbor:      NeighborOpaque,
		MaxGeneratePerUpdate: 8,
		MaxMeshPerUpdate:     16,
		GenerateWorkers:      1,
	}
}

// UpdateStats - итог одного вызова Update
type UpdateStats struct {
	Required  int `json:"required"`
	Generated int `json:"generated"`
	Meshed    int `json:"meshed"`
	Evicted   int `json:"evicted"`
	Pending   int `json:"pending"`
	Resident  int `json:"resident"`
}

// ReadyMesh - меш чанка, готовый к отрисовке. Только для чтения.
type ReadyMesh struct {
	Coords vec.Vec3
	Mesh   *Mesh
}

// tracerName - инструментирующая библиотека спанов мира
const tracerName = "github.com/annel0/voxelworld/internal/world"

// WorldManager управляет загрузкой, генерацией, мешингом и выгрузкой чанков
// вокруг точки обзора. Update и ApplyEdit вызываются из основного цикла.
type WorldManager struct {
	mu sync.Mutex

	opts     Options
	gen      *TerrainGenerator
	overlay  *EditOverlay
	store    *ChunkStore
	mesher   *Mesher
	streamer *ChunkStreamer
	metrics  *Metrics
	logger   *logging.Logger
	tracer   trace.Tracer

	lastStats UpdateStats
}

// NewWorldManager создаёт мир. overlay и metrics могут быть nil.
func NewWorldManager(opts Options, overlay *EditOverlay, metrics *Metrics) (*WorldManager, error) {
	if overlay == nil {
		overlay = NewEditOverlay()
	}

	gen := NewTerrainGenerator(opts.Seed, opts.GenerateWorkers)
	store, err := NewChunkStore(gen, overlay, opts.Budget, opts.Eviction, metrics)
	if err != nil {
		return nil, fmt.Errorf("создание хранилища чанков: %w", err)
	}

	wm := &WorldManager{
		opts:    opts,
		gen:     gen,
		overlay: overlay,
		store:   store,
		mesher:  NewMesher(opts.MissingNeighbor),
		metrics: metrics,
		logger:  logging.GetWorldLogger(),
		tracer:  otel.Tracer(tracerName),
	}
	if opts.AsyncWorkers > 0 {
		queue := opts.MaxGeneratePerUpdate * 4
		if queue <= 0 {
			queue = 64
		}
		wm.streamer = NewChunkStreamer(gen, opts.AsyncWorkers, queue)
	}

	wm.logger.Info("🌍 Мир создан: seed=%d, capacity=%d, eviction=%s, neighbors=%s",
		opts.Seed, store.Capacity(), opts.Eviction, opts.MissingNeighbor)
	return wm, nil
}

// Seed возвращает сид мира
func (wm *WorldManager) Seed() int64 {
	return wm.opts.Seed
}

// Overlay возвращает оверлей правок
func (wm *WorldManager) Overlay() *EditOverlay {
	return wm.overlay
}

// Store возвращает хранилище чанков
func (wm *WorldManager) Store() *ChunkStore {
	return wm.store
}

// Generator возвращает генератор ландшафта
func (wm *WorldManager) Generator() *TerrainGenerator {
	return wm.gen
}

// Stats возвращает итог последнего Update
func (wm *WorldManager) Stats() UpdateStats {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	return wm.lastStats
}

// RequiredChunks возвращает чанки в радиусе radius (в чанках) от center,
// ближайшие первыми, не более capacity штук
func RequiredChunks(center vec.Vec3, radius, capacity int) []vec.Vec3 {
	if radius < 0 {
		radius = 0
	}
	center.Y = 0

	var out []vec.Vec3
	for dx := -radius; dx <= radius; dx++ {
		for dz := -radius; dz <= radius; dz++ {
			if dx*dx+dz*dz > radius*radius {
				continue
			}
			coords := vec.Vec3{X: center.X + dx, Z: center.Z + dz}
			if ChunkInWorld(coords) {
				out = append(out, coords)
			}
		}
	}
	sortByDistance(out, center)
	if capacity > 0 && len(out) > capacity {
		out = out[:capacity]
	}
	return out
}

// Update приводит набор загруженных чанков в соответствие с точкой обзора.
// Порядок: генерация, затем мешинг, затем выгрузка. За один вызов генерируется
// и строится не больше заданного числа чанков, остальное ждёт следующего вызова.
func (wm *WorldManager) Update(viewpoint vec.Vec3Float, renderDistance int) UpdateStats {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	start := time.Now()
	center := viewpoint.ToVec3().ToChunkCoords()
	ctx, span := wm.tracer.Start(context.Background(), "world.Update",
		trace.WithAttributes(
			attribute.Int("world.center.x", center.X),
			attribute.Int("world.center.z", center.Z),
			attribute.Int("world.render_distance", renderDistance),
		))
	defer span.End()

	wm.store.SetFocus(center)

	required := RequiredChunks(center, renderDistance, wm.store.EffectiveCapacity())
	retain := make(map[vec.Vec3]struct{}, len(required))
	for _, coords := range required {
		retain[coords] = struct{}{}
	}

	stats := UpdateStats{Required: len(required)}

	// 1. Генерация
	stats.Generated = wm.generateStage(ctx, required, retain)

	// 2. Мешинг грязных чанков, ближайшие первыми
	stats.Meshed = wm.meshStage(ctx, retain)

	// 3. Выгрузка
	_, evictSpan := wm.tracer.Start(ctx, "world.evict")
	evicted := wm.store.EvictOutside(retain)
	evicted = append(evicted, wm.store.EnforceMemory()...)
	stats.Evicted = len(evicted)
	evictSpan.SetAttributes(attribute.Int("world.evicted", stats.Evicted))
	evictSpan.End()

	for _, coords := range required {
		chunk := wm.store.Get(coords)
		if chunk == nil || chunk.IsDirty() {
			stats.Pending++
		}
	}
	stats.Resident = wm.store.Len()
	span.SetAttributes(
		attribute.Int("world.required", stats.Required),
		attribute.Int("world.pending", stats.Pending),
		attribute.Int("world.resident", stats.Resident),
	)

	wm.metrics.observeResidency(stats.Resident, wm.store.MemoryBytes(), stats.Pending)
	wm.metrics.observeUpdate(time.Since(start).Seconds())
	if stats.Generated > 0 || stats.Evicted > 0 {
		wm.logger.Debug("Update %v: required=%d generated=%d meshed=%d evicted=%d pending=%d",
			center, stats.Required, stats.Generated, stats.Meshed, stats.Evicted, stats.Pending)
	}

	wm.lastStats = stats
	return stats
}

// generateStage загружает недостающие чанки: синхронно или через фоновый стример
func (wm *WorldManager) generateStage(ctx context.Context, required []vec.Vec3, retain map[vec.Vec3]struct{}) int {
	_, span := wm.tracer.Start(ctx, "world.generate")
	defer span.End()

	generated := 0
	if wm.streamer != nil {
		generated = wm.collectGenerated(retain)
		wm.requestMissing(required)
	} else {
		for _, coords := range required {
			if wm.store.Has(coords) {
				continue
			}
			if wm.opts.MaxGeneratePerUpdate > 0 && generated >= wm.opts.MaxGeneratePerUpdate {
				break
			}
			if _, err := wm.store.GetOrCreate(coords); err != nil {
				wm.logger.Warn("Не удалось загрузить чанк %v: %v", coords, err)
				span.RecordError(err)
				continue
			}
			generated++
		}
	}
	span.SetAttributes(
		attribute.Int("world.generated", generated),
		attribute.Bool("world.async", wm.streamer != nil),
	)
	return generated
}

// meshStage перестраивает меши грязных чанков в пределах лимита
func (wm *WorldManager) meshStage(ctx context.Context, retain map[vec.Vec3]struct{}) int {
	_, span := wm.tracer.Start(ctx, "world.mesh")
	defer span.End()

	meshed, faces := 0, 0
	for _, coords := range wm.store.DirtyCoords() {
		if _, needed := retain[coords]; !needed {
			continue
		}
		if wm.opts.MaxMeshPerUpdate > 0 && meshed >= wm.opts.MaxMeshPerUpdate {
			break
		}
		if n, ok := wm.rebuildMesh(coords); ok {
			meshed++
			faces += n
		}
	}
	span.SetAttributes(attribute.Int("world.meshed", meshed), attribute.Int("world.faces", faces))
	return meshed
}

// collectGenerated забирает готовые фоновые чанки и вставляет нужные
func (wm *WorldManager) collectGenerated(retain map[vec.Vec3]struct{}) int {
	limit := wm.opts.MaxGeneratePerUpdate
	if limit <= 0 {
		limit = int(^uint(0) >> 1)
	}

	inserted := 0
	for _, chunk := range wm.streamer.Collect(limit) {
		if _, needed := retain[chunk.Coords]; !needed {
			continue
		}
		// Правки накладываются здесь, на основной горутине
		wm.overlay.ApplyTo(chunk)
		if wm.store.Insert(chunk) == chunk {
			wm.metrics.chunkGenerated()
			inserted++
		}
	}
	return inserted
}

func (wm *WorldManager) requestMissing(required []vec.Vec3) {
	for _, coords := range required {
		if wm.store.Has(coords) || wm.streamer.IsPending(coords) {
			continue
		}
		if !wm.streamer.Request(coords) {
			return // очередь заполнена
		}
	}
}

// rebuildMesh перестраивает меш загруженного чанка и возвращает число граней
func (wm *WorldManager) rebuildMesh(coords vec.Vec3) (int, bool) {
	chunk := wm.store.Get(coords)
	if chunk == nil {
		return 0, false
	}
	mesh := wm.mesher.Build(chunk, wm.store.Neighbors(coords))
	chunk.setMesh(mesh)
	wm.metrics.meshBuilt(mesh.FaceCount())
	return mesh.FaceCount(), true
}

// ApplyEdit записывает правку, изменяет загруженный чанк и помечает
// его (и соседа на общей границе) для перестройки
func (wm *WorldManager) ApplyEdit(pos vec.Vec3, id block.BlockID) error {
	if !InWorld(pos) {
		return fmt.Errorf("правка в %v: %w", pos, ErrOutOfRange)
	}
	if !block.IsValidBlockID(id) {
		return fmt.Errorf("правка в %v: %w: %d", pos, ErrUnknownBlock, id)
	}

	wm.mu.Lock()
	defer wm.mu.Unlock()

	// Ошибка хранилища не отменяет правку в памяти
	storeErr := wm.overlay.Record(pos, id)

	if chunk := wm.store.Get(pos.ToChunkCoords()); chunk != nil {
		chunk.SetBlock(pos.LocalInChunk(), id)
	}
	wm.store.MarkBlockDirty(pos)
	wm.metrics.editApplied()

	return storeErr
}

// BlockAt возвращает блок, если его чанк загружен.
// Безопасен для вызова из других горутин параллельно с Update.
func (wm *WorldManager) BlockAt(pos vec.Vec3) (block.BlockID, bool) {
	if !InWorld(pos) {
		return block.AirBlockID, false
	}
	chunk := wm.store.Get(pos.ToChunkCoords())
	if chunk == nil {
		return block.AirBlockID, false
	}
	// Чанк мог быть выгружен между Get и чтением
	return chunk.lookup(pos.LocalInChunk())
}

// ReadyMeshes возвращает построенные меши загруженных чанков в каноническом порядке.
// Вызов не меняет состояние мира.
func (wm *WorldManager) ReadyMeshes() []ReadyMesh {
	var out []ReadyMesh
	for _, coords := range wm.store.Coords() {
		chunk := wm.store.Get(coords)
		if chunk == nil {
			continue
		}
		if mesh := chunk.Mesh(); mesh != nil {
			out = append(out, ReadyMesh{Coords: coords, Mesh: mesh})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Coords.Less(out[j].Coords) })
	return out
}

// Close останавливает фоновую генерацию и освобождает все чанки
func (wm *WorldManager) Close() {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	if wm.streamer != nil {
		wm.streamer.Close()
	}
	wm.store.Close()
	wm.logger.Info("Мир выгружен, правок в оверлее: %d", wm.overlay.Len())
}
