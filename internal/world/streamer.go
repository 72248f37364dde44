package world

import (
	"sync"

	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world/block"
)

type generateResult struct {
	coords vec.Vec3
	blocks []block.BlockID
}

// ChunkStreamer генерирует сетки блоков в фоновых воркерах.
// Воркеры не трогают хранилище: готовые сетки забираются в Collect
// на вызывающей горутине, где на них накладываются правки.
type ChunkStreamer struct {
	gen     *TerrainGenerator
	jobs    chan vec.Vec3
	results chan generateResult
	done    chan struct{}
	wg      sync.WaitGroup

	pendingMu sync.Mutex
	pending   map[vec.Vec3]struct{}
	closeOnce sync.Once
}

// NewChunkStreamer запускает workers воркеров с очередью размера queue
func NewChunkStreamer(gen *TerrainGenerator, workers, queue int) *ChunkStreamer {
	if workers < 1 {
		workers = 1
	}
	if queue < workers {
		queue = workers
	}

	cs := &ChunkStreamer{
		gen:     gen,
		jobs:    make(chan vec.Vec3, queue),
		results: make(chan generateResult, queue),
		done:    make(chan struct{}),
		pending: make(map[vec.Vec3]struct{}),
	}
	for i := 0; i < workers; i++ {
		cs.wg.Add(1)
		go cs.worker()
	}
	return cs
}

func (cs *ChunkStreamer) worker() {
	defer cs.wg.Done()
	for coords := range cs.jobs {
		res := generateResult{coords: coords, blocks: cs.gen.GenerateBlocks(coords)}
		select {
		case cs.results <- res:
		case <-cs.done:
			return
		}
	}
}

// Request ставит чанк в очередь генерации.
// Возвращает false, если чанк уже в работе или очередь заполнена.
func (cs *ChunkStreamer) Request(coords vec.Vec3) bool {
	cs.pendingMu.Lock()
	defer cs.pendingMu.Unlock()

	if _, ok := cs.pending[coords]; ok {
		return false
	}
	select {
	case <-cs.done:
		return false
	default:
	}
	select {
	case cs.jobs <- coords:
		cs.pending[coords] = struct{}{}
		return true
	default:
		return false
	}
}

// IsPending сообщает, генерируется ли чанк
func (cs *ChunkStreamer) IsPending(coords vec.Vec3) bool {
	cs.pendingMu.Lock()
	defer cs.pendingMu.Unlock()
	_, ok := cs.pending[coords]
	return ok
}

// Pending возвращает число чанков в работе
func (cs *ChunkStreamer) Pending() int {
	cs.pendingMu.Lock()
	defer cs.pendingMu.Unlock()
	return len(cs.pending)
}

// Collect без блокировки забирает не более max готовых чанков
func (cs *ChunkStreamer) Collect(max int) []*Chunk {
	var out []*Chunk
	for len(out) < max {
		select {
		case res := <-cs.results:
			cs.pendingMu.Lock()
			delete(cs.pending, res.coords)
			cs.pendingMu.Unlock()

			chunk := NewChunk(res.coords)
			chunk.fill(res.blocks)
			out = append(out, chunk)
		default:
			return out
		}
	}
	return out
}

// Close останавливает воркеров, незабранные результаты отбрасываются
func (cs *ChunkStreamer) Close() {
	cs.closeOnce.Do(func() {
		cs.pendingMu.Lock()
		close(cs.done)
		close(cs.jobs)
		cs.pendingMu.Unlock()
		cs.wg.Wait()
	})
}
