package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"

	"github.com/annel0/voxelworld/internal/logging"
	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world"
	"github.com/annel0/voxelworld/internal/world/block"
)

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr      string // Адрес Redis сервера
	Password  string // Пароль (пустой если не требуется)
	DB        int    // Номер базы данных
	KeyPrefix string // Префикс для ключей
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "voxel:edits",
	}
}

// RedisEditStore хранит правки в Redis: хеш на чанк, поле "x:y:z" -> ID блока.
// Множество <prefix>:chunks перечисляет чанки с правками.
type RedisEditStore struct {
	client    *redis.Client
	keyPrefix string
	logger    *logging.Logger
}

// NewRedisEditStore подключается к Redis и проверяет соединение
func NewRedisEditStore(ctx context.Context, config *RedisConfig) (*RedisEditStore, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	// Проверяем подключение
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	store := &RedisEditStore{
		client:    client,
		keyPrefix: config.KeyPrefix,
		logger:    logging.GetStorageLogger(),
	}
	store.logger.Info("🔴 Connected to Redis at %s", config.Addr)
	return store, nil
}

func (s *RedisEditStore) chunkHashKey(coords vec.Vec3) string {
	return s.keyPrefix + ":" + chunkKey(coords)
}

func (s *RedisEditStore) indexKey() string {
	return s.keyPrefix + ":chunks"
}

// SaveEdit записывает правку одной транзакцией вместе с индексом чанков
func (s *RedisEditStore) SaveEdit(ctx context.Context, rec world.EditRecord) error {
	coords := rec.Pos.ToChunkCoords()

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.chunkHashKey(coords), localKey(rec.Pos.LocalInChunk()), int(rec.Block))
		pipe.SAdd(ctx, s.indexKey(), chunkKey(coords))
		return nil
	})
	if err == redis.ErrClosed {
		return ErrStoreClosed
	}
	if err != nil {
		return fmt.Errorf("failed to save edit: %w", err)
	}
	return nil
}

// loadConcurrency ограничивает число параллельных HGETALL при загрузке
const loadConcurrency = 8

// LoadAll читает правки всех чанков из индекса.
// Хеши чанков читаются параллельно, первая ошибка отменяет остальные запросы.
func (s *RedisEditStore) LoadAll(ctx context.Context) ([]world.EditRecord, error) {
	chunks, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err == redis.ErrClosed {
		return nil, ErrStoreClosed
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}

	perChunk := make([][]world.EditRecord, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for i, key := range chunks {
		i, key := i, key
		g.Go(func() error {
			records, err := s.loadChunk(gctx, key)
			if err != nil {
				return err
			}
			perChunk[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []world.EditRecord
	for _, records := range perChunk {
		out = append(out, records...)
	}
	sortRecords(out)
	return out, nil
}

// loadChunk читает хеш одного чанка по ключу индекса "cx:cz"
func (s *RedisEditStore) loadChunk(ctx context.Context, key string) ([]world.EditRecord, error) {
	coords, err := parseChunkKey(key)
	if err != nil {
		return nil, err
	}
	fields, err := s.client.HGetAll(ctx, s.chunkHashKey(coords)).Result()
	if err == redis.ErrClosed {
		return nil, ErrStoreClosed
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chunk %s: %w", key, err)
	}

	origin := coords.ChunkOrigin()
	out := make([]world.EditRecord, 0, len(fields))
	for field, value := range fields {
		local, err := parseLocalKey(field)
		if err != nil {
			return nil, err
		}
		id, err := strconv.ParseUint(value, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("chunk %s field %s: %w", key, field, err)
		}
		out = append(out, world.EditRecord{Pos: origin.Add(local), Block: block.BlockID(id)})
	}
	return out, nil
}

// Clear удаляет все правки с префиксом хранилища
func (s *RedisEditStore) Clear(ctx context.Context) error {
	chunks, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to list chunks: %w", err)
	}
	keys := []string{s.indexKey()}
	for _, key := range chunks {
		keys = append(keys, s.keyPrefix+":"+key)
	}
	return s.client.Del(ctx, keys...).Err()
}

// Close закрывает соединение с Redis
func (s *RedisEditStore) Close() error {
	return s.client.Close()
}
