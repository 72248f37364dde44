package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v3"

	"github.com/annel0/voxelworld/internal/logging"
	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world"
	"github.com/annel0/voxelworld/internal/world/block"
)

const editKeyPrefix = "edit:"

// ChunkDelta содержит правки одного чанка
type ChunkDelta struct {
	Coords      vec.Vec3                 `json:"coords"`
	BlockDeltas map[string]block.BlockID `json:"blocks"` // Ключ - локальные координаты "x:y:z"
}

// Records разворачивает дельту в правки с абсолютными координатами
func (d *ChunkDelta) Records() ([]world.EditRecord, error) {
	origin := d.Coords.ChunkOrigin()
	out := make([]world.EditRecord, 0, len(d.BlockDeltas))
	for key, id := range d.BlockDeltas {
		local, err := parseLocalKey(key)
		if err != nil {
			return nil, err
		}
		out = append(out, world.EditRecord{Pos: origin.Add(local), Block: id})
	}
	return out, nil
}

// BadgerEditStore хранит правки мира в BadgerDB, одна запись на чанк
type BadgerEditStore struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
	logger  *logging.Logger
}

// NewBadgerEditStore открывает хранилище правок в каталоге dataPath
func NewBadgerEditStore(dataPath string) (*BadgerEditStore, error) {
	dbPath := filepath.Join(dataPath, "edits")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	store := &BadgerEditStore{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
		logger:  logging.GetStorageLogger(),
	}
	store.logger.Info("💾 BadgerDB открыта: %s", dbPath)
	return store, nil
}

func editKey(coords vec.Vec3) []byte {
	return []byte(editKeyPrefix + chunkKey(coords))
}

// SaveEdit дописывает правку в дельту её чанка
func (s *BadgerEditStore) SaveEdit(ctx context.Context, rec world.EditRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isReady {
		return ErrStoreClosed
	}

	coords := rec.Pos.ToChunkCoords()
	key := editKey(coords)

	err := s.db.Update(func(txn *badger.Txn) error {
		delta := ChunkDelta{Coords: coords, BlockDeltas: make(map[string]block.BlockID)}

		item, err := txn.Get(key)
		switch {
		case err == nil:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &delta)
			}); err != nil {
				return fmt.Errorf("ошибка десериализации дельты: %w", err)
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		delta.BlockDeltas[localKey(rec.Pos.LocalInChunk())] = rec.Block
		data, err := json.Marshal(delta)
		if err != nil {
			return fmt.Errorf("ошибка сериализации дельты: %w", err)
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return nil
}

// LoadChunk загружает дельту чанка. Отсутствующий чанк даёт пустую дельту.
func (s *BadgerEditStore) LoadChunk(ctx context.Context, coords vec.Vec3) (*ChunkDelta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isReady {
		return nil, ErrStoreClosed
	}

	delta := &ChunkDelta{Coords: coords, BlockDeltas: make(map[string]block.BlockID)}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(editKey(coords))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, delta)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return delta, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}
	return delta, nil
}

// LoadAll читает правки всех чанков
func (s *BadgerEditStore) LoadAll(ctx context.Context) ([]world.EditRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isReady {
		return nil, ErrStoreClosed
	}

	var out []world.EditRecord
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(editKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var delta ChunkDelta
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &delta)
			}); err != nil {
				return fmt.Errorf("ключ %s: %w", it.Item().Key(), err)
			}
			records, err := delta.Records()
			if err != nil {
				return err
			}
			out = append(out, records...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения правок из BadgerDB: %w", err)
	}

	sortRecords(out)
	return out, nil
}

// Close закрывает хранилище
func (s *BadgerEditStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isReady {
		return nil
	}
	s.isReady = false
	return s.db.Close()
}

// sortRecords упорядочивает правки по координатам
func sortRecords(records []world.EditRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Pos.Less(records[j].Pos)
	})
}
