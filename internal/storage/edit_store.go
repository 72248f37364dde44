package storage

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world"
)

// Ошибки хранилищ правок
var (
	ErrStoreClosed = errors.New("хранилище закрыто")
	ErrCorruptSave = errors.New("файл сохранения повреждён")
)

// Все хранилища реализуют world.EditStore
var (
	_ world.EditStore = (*BadgerEditStore)(nil)
	_ world.EditStore = (*MemoryEditStore)(nil)
	_ world.EditStore = (*RedisEditStore)(nil)
	_ world.EditStore = (*MongoEditStore)(nil)
)

// localKey упаковывает локальную позицию блока в ключ "x:y:z"
func localKey(local vec.Vec3) string {
	return fmt.Sprintf("%d:%d:%d", local.X, local.Y, local.Z)
}

// parseLocalKey разбирает ключ "x:y:z" и проверяет, что позиция лежит в чанке
func parseLocalKey(key string) (vec.Vec3, error) {
	parts := strings.Split(key, ":")
	if len(parts) != 3 {
		return vec.Vec3{}, fmt.Errorf("некорректный ключ блока %q", key)
	}
	var xyz [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return vec.Vec3{}, fmt.Errorf("некорректный ключ блока %q: %w", key, err)
		}
		xyz[i] = n
	}
	local := vec.Vec3{X: xyz[0], Y: xyz[1], Z: xyz[2]}
	if local.X < 0 || local.X >= vec.ChunkSizeX || local.Z < 0 || local.Z >= vec.ChunkSizeZ ||
		local.Y < 0 || local.Y >= vec.ChunkSizeY {
		return vec.Vec3{}, fmt.Errorf("координаты %v вне чанка", local)
	}
	return local, nil
}

// chunkKey упаковывает координаты чанка в "cx:cz"
func chunkKey(coords vec.Vec3) string {
	return fmt.Sprintf("%d:%d", coords.X, coords.Z)
}

func parseChunkKey(key string) (vec.Vec3, error) {
	var cx, cz int
	if _, err := fmt.Sscanf(key, "%d:%d", &cx, &cz); err != nil {
		return vec.Vec3{}, fmt.Errorf("некорректный ключ чанка %q: %w", key, err)
	}
	return vec.Vec3{X: cx, Z: cz}, nil
}
