package world

import (
	"errors"
	"sync"
	"testing"

	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, seed int64, budget Budget, policy EvictionPolicy) (*ChunkStore, *EditOverlay) {
	t.Helper()
	overlay := NewEditOverlay()
	store, err := NewChunkStore(NewTerrainGenerator(seed, 1), overlay, budget, policy, nil)
	require.NoError(t, err)
	return store, overlay
}

// clean снимает флаг dirty, как после построения меша
func clean(chunks ...*Chunk) {
	for _, c := range chunks {
		c.setMesh(&Mesh{Coords: c.Coords})
	}
}

func TestBudgetCapacity(t *testing.T) {
	assert.Equal(t, 10, Budget{MaxChunks: 10}.Capacity())
	assert.Equal(t, 3, Budget{MaxChunks: 10, MemoryLimit: 3 * EstimatedChunkBytes}.Capacity())
	assert.Equal(t, 5, Budget{MemoryLimit: 5*EstimatedChunkBytes + 100}.Capacity())

	err := Budget{MaxChunks: 100, MemoryLimit: EstimatedChunkBytes - 1}.Validate()
	assert.True(t, errors.Is(err, ErrBudgetTooSmall))

	_, err = NewChunkStore(NewTerrainGenerator(1, 1), nil, Budget{}, EvictFarthest, nil)
	assert.ErrorIs(t, err, ErrBudgetTooSmall)
}

func TestGetOrCreateReturnsSameInstance(t *testing.T) {
	store, _ := newTestStore(t, 7, Budget{MaxChunks: 8}, EvictFarthest)
	coords := vec.Vec3{X: 3, Z: -2}

	first, err := store.GetOrCreate(coords)
	require.NoError(t, err)
	second, err := store.GetOrCreate(coords)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.True(t, first.IsGenerated())
	assert.Equal(t, 1, store.Len())
}

func TestGetOrCreateConcurrentSingleGeneration(t *testing.T) {
	store, _ := newTestStore(t, 7, Budget{MaxChunks: 8}, EvictFarthest)
	coords := vec.Vec3{X: -4, Z: 9}

	const callers = 16
	results := make([]*Chunk, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			chunk, err := store.GetOrCreate(coords)
			assert.NoError(t, err)
			results[i] = chunk
		}(i)
	}
	wg.Wait()

	for _, c := range results {
		assert.Same(t, results[0], c)
	}
	assert.Equal(t, 1, store.Len())
}

func TestGetOrCreateOutOfRange(t *testing.T) {
	store, _ := newTestStore(t, 1, Budget{MaxChunks: 4}, EvictFarthest)

	_, err := store.GetOrCreate(vec.Vec3{X: ChunkMaxXZ + 1})
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = store.GetOrCreate(vec.Vec3{Z: ChunkMinXZ - 1})
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = store.GetOrCreate(vec.Vec3{Y: 1})
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.Zero(t, store.Len())
}

func TestCapacityEvictionPolicies(t *testing.T) {
	tests := []struct {
		name    string
		policy  EvictionPolicy
		evicted vec.Vec3
	}{
		{"farthest", EvictFarthest, vec.Vec3{X: 5}},
		{"lru", EvictLRU, vec.Vec3{X: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore(t, 3, Budget{MaxChunks: 3}, tt.policy)

			store.SetFocus(vec.Vec3{})
			for _, c := range []vec.Vec3{{X: 5}, {X: 1}, {}} {
				_, err := store.GetOrCreate(c)
				require.NoError(t, err)
			}

			// Дальний чанк использован позже остальных
			store.SetFocus(vec.Vec3{})
			_, err := store.GetOrCreate(vec.Vec3{X: 5})
			require.NoError(t, err)

			_, err = store.GetOrCreate(vec.Vec3{Z: 1})
			require.NoError(t, err)

			assert.Equal(t, 3, store.Len())
			assert.False(t, store.Has(tt.evicted), "выгружен %v", tt.evicted)
			assert.True(t, store.Has(vec.Vec3{Z: 1}))
		})
	}
}

func TestEvictedChunkIsReleased(t *testing.T) {
	store, _ := newTestStore(t, 3, Budget{MaxChunks: 4}, EvictFarthest)
	chunk, err := store.GetOrCreate(vec.Vec3{X: 2, Z: 2})
	require.NoError(t, err)
	require.NotZero(t, chunk.MemoryBytes())

	assert.True(t, store.Evict(chunk.Coords))
	assert.False(t, store.Evict(chunk.Coords))
	assert.Zero(t, chunk.MemoryBytes())
	assert.Zero(t, store.MemoryBytes())
}

func TestEvictedChunkHandleStaysReadable(t *testing.T) {
	store, overlay := newTestStore(t, 3, Budget{MaxChunks: 4}, EvictFarthest)
	chunk, err := store.GetOrCreate(vec.Vec3{})
	require.NoError(t, err)
	require.True(t, store.Evict(chunk.Coords))

	assert.True(t, chunk.IsReleased())
	assert.NotPanics(t, func() {
		assert.Equal(t, block.AirBlockID, chunk.GetBlock(vec.Vec3{X: 1, Y: 1, Z: 1}))
		assert.Nil(t, chunk.Boundary(block.FaceLeft))
		assert.False(t, chunk.SetBlock(vec.Vec3{X: 1, Y: 1, Z: 1}, block.StoneBlockID))
		assert.Empty(t, chunk.Blocks())

		require.NoError(t, overlay.Record(vec.Vec3{X: 2, Y: 2, Z: 2}, block.SandBlockID))
		assert.Equal(t, 0, overlay.ApplyTo(chunk))
		assert.Zero(t, NewMesher(NeighborOpaque).Build(chunk, NeighborSet{}).FaceCount())
	})
}

func TestBlockAtConcurrentWithEviction(t *testing.T) {
	opts := DefaultOptions(5)
	opts.Budget = Budget{MaxChunks: 4, MemoryLimit: 1 << 30}
	wm := newTestWorld(t, opts)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				for x := -40; x < 40; x += 3 {
					wm.BlockAt(vec.Vec3{X: x, Y: 40, Z: x})
				}
			}
		}
	}()

	// Точка обзора ходит туда и обратно, чанки постоянно выгружаются
	for i := 0; i < 40; i++ {
		cx := i % 4
		if i%8 >= 4 {
			cx = -cx
		}
		wm.Update(chunkCenter(cx, cx), 1)
	}
	close(stop)
	wg.Wait()

	_, ok := wm.BlockAt(vec.Vec3{X: 9000, Y: 1})
	assert.False(t, ok)
}

func TestEvictOutside(t *testing.T) {
	store, _ := newTestStore(t, 3, Budget{MaxChunks: 16}, EvictFarthest)
	for x := -2; x <= 2; x++ {
		_, err := store.GetOrCreate(vec.Vec3{X: x})
		require.NoError(t, err)
	}

	retain := map[vec.Vec3]struct{}{{X: -1}: {}, {}: {}, {X: 1}: {}}
	evicted := store.EvictOutside(retain)

	assert.Equal(t, []vec.Vec3{{X: -2}, {X: 2}}, evicted)
	assert.Equal(t, []vec.Vec3{{X: -1}, {}, {X: 1}}, store.Coords())
}

func TestInsertAndEvictMarkNeighborsDirty(t *testing.T) {
	store, _ := newTestStore(t, 3, Budget{MaxChunks: 16}, EvictFarthest)

	center := store.Insert(NewChunk(vec.Vec3{}))
	far := store.Insert(NewChunk(vec.Vec3{X: 5}))
	clean(center, far)

	right := NewChunk(vec.Vec3{X: 1})
	assert.Same(t, right, store.Insert(right))
	assert.True(t, center.IsDirty(), "новый сосед делает границу устаревшей")
	assert.False(t, far.IsDirty())

	clean(center)
	assert.Same(t, right, store.Insert(NewChunk(vec.Vec3{X: 1})), "повторная вставка возвращает существующий")
	assert.False(t, center.IsDirty())

	store.Evict(right.Coords)
	assert.True(t, center.IsDirty(), "выгрузка соседа тоже меняет границу")
}

func TestMarkBlockDirtyBoundary(t *testing.T) {
	store, _ := newTestStore(t, 3, Budget{MaxChunks: 16}, EvictFarthest)

	coords := []vec.Vec3{{}, {X: 1}, {X: -1}, {Z: 1}, {Z: -1}}
	chunks := make(map[vec.Vec3]*Chunk)
	for _, c := range coords {
		chunks[c] = store.Insert(NewChunk(c))
	}

	tests := []struct {
		name  string
		pos   vec.Vec3
		dirty []vec.Vec3
	}{
		{"внутренний блок", vec.Vec3{X: 5, Y: 5, Z: 5}, []vec.Vec3{{}}},
		{"граница +X", vec.Vec3{X: 15, Y: 5, Z: 3}, []vec.Vec3{{}, {X: 1}}},
		{"угол -X -Z", vec.Vec3{X: 0, Y: 5, Z: 0}, []vec.Vec3{{}, {X: -1}, {Z: -1}}},
		{"граница +Z", vec.Vec3{X: 7, Y: 200, Z: 15}, []vec.Vec3{{}, {Z: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, c := range chunks {
				clean(c)
			}
			store.MarkBlockDirty(tt.pos)

			want := make(map[vec.Vec3]bool)
			for _, c := range tt.dirty {
				want[c] = true
			}
			for c, chunk := range chunks {
				assert.Equal(t, want[c], chunk.IsDirty(), "чанк %v", c)
			}
		})
	}
}

func TestNeighborsBoundaries(t *testing.T) {
	store, _ := newTestStore(t, 3, Budget{MaxChunks: 16}, EvictFarthest)
	store.Insert(NewChunk(vec.Vec3{}))

	right := NewChunk(vec.Vec3{X: 1})
	right.SetBlock(vec.Vec3{X: 0, Y: 4, Z: 9}, block.StoneBlockID)
	store.Insert(right)

	ns := store.Neighbors(vec.Vec3{})
	assert.Equal(t, 3, ns.Missing())
	require.NotNil(t, ns[block.FaceRight-block.FaceLeft])
	assert.Equal(t, block.StoneBlockID, ns[block.FaceRight-block.FaceLeft][4*ChunkSizeX+9])
}

func TestDirtyCoordsNearestFirst(t *testing.T) {
	store, _ := newTestStore(t, 3, Budget{MaxChunks: 16}, EvictFarthest)
	for _, c := range []vec.Vec3{{X: 3}, {X: -1}, {X: 1}, {Z: 2}} {
		store.Insert(NewChunk(c))
	}
	store.SetFocus(vec.Vec3{})

	assert.Equal(t, []vec.Vec3{{X: -1}, {X: 1}, {Z: 2}, {X: 3}}, store.DirtyCoords())
}

func TestEditSurvivesEvictionAndRegeneration(t *testing.T) {
	store, overlay := newTestStore(t, 42, Budget{MaxChunks: 4}, EvictFarthest)
	edit := vec.Vec3{X: 5, Y: 10, Z: 5}

	chunk, err := store.GetOrCreate(vec.Vec3{})
	require.NoError(t, err)
	require.NoError(t, overlay.Record(edit, block.StoneBlockID))
	chunk.SetBlock(edit, block.StoneBlockID)

	require.True(t, store.Evict(vec.Vec3{}))

	reloaded, err := store.GetOrCreate(vec.Vec3{})
	require.NoError(t, err)
	assert.NotSame(t, chunk, reloaded)
	assert.Equal(t, block.StoneBlockID, reloaded.GetBlock(edit))

	fresh := NewTerrainGenerator(42, 1).GenerateBlocks(vec.Vec3{})
	got := reloaded.Blocks()
	editIdx := blockIndex(edit.X, edit.Y, edit.Z)
	for i := range fresh {
		if i == editIdx {
			continue
		}
		if got[i] != fresh[i] {
			t.Fatalf("блок %d отличается от свежей генерации: %s != %s", i, got[i], fresh[i])
		}
	}
}
