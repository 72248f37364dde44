package storage

import (
	"context"
	"sync"

	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world"
	"github.com/annel0/voxelworld/internal/world/block"
)

// MemoryEditStore хранит правки в памяти.
// Используется для тестов и временных миров.
// ВНИМАНИЕ: Данные теряются при перезапуске!
type MemoryEditStore struct {
	mu     sync.RWMutex
	data   map[vec.Vec3]block.BlockID
	closed bool
}

// NewMemoryEditStore создает пустое хранилище правок в памяти
func NewMemoryEditStore() *MemoryEditStore {
	return &MemoryEditStore{
		data: make(map[vec.Vec3]block.BlockID),
	}
}

// SaveEdit сохраняет правку
func (s *MemoryEditStore) SaveEdit(ctx context.Context, rec world.EditRecord) error {
	// Проверяем контекст на отмену
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	s.data[rec.Pos] = rec.Block
	return nil
}

// LoadAll возвращает все правки по возрастанию координат
func (s *MemoryEditStore) LoadAll(ctx context.Context) ([]world.EditRecord, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	out := make([]world.EditRecord, 0, len(s.data))
	for pos, id := range s.data {
		out = append(out, world.EditRecord{Pos: pos, Block: id})
	}
	sortRecords(out)
	return out, nil
}

// Len возвращает число сохранённых правок
func (s *MemoryEditStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Close закрывает хранилище, данные становятся недоступны
func (s *MemoryEditStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
