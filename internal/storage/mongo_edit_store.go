package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/annel0/voxelworld/internal/logging"
	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world"
	"github.com/annel0/voxelworld/internal/world/block"
)

// MongoConfig contains connection settings for the MongoDB edit store.
type MongoConfig struct {
	URI        string // e.g. mongodb://localhost:27017
	Database   string // e.g. voxelworld
	Collection string // e.g. edits
}

// MongoEditStore хранит правки в MongoDB: документ на чанк,
// поле blocks."x:y:z" -> ID блока.
type MongoEditStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	ctxTimeout time.Duration
	logger     *logging.Logger
}

// chunkDoc - документ чанка в коллекции правок
type chunkDoc struct {
	ID     string           `bson:"_id"`
	CX     int              `bson:"cx"`
	CZ     int              `bson:"cz"`
	Blocks map[string]int32 `bson:"blocks"`
}

// NewMongoEditStore подключается к MongoDB и создаёт индекс по координатам чанка
func NewMongoEditStore(ctx context.Context, cfg MongoConfig) (*MongoEditStore, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "voxelworld"
	}
	if cfg.Collection == "" {
		cfg.Collection = "edits"
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	store := &MongoEditStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		ctxTimeout: 5 * time.Second,
		logger:     logging.GetStorageLogger(),
	}

	coordsIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "cx", Value: 1}, {Key: "cz", Value: 1}},
		Options: options.Index().SetName("chunk_coords"),
	}
	if _, err := store.collection.Indexes().CreateOne(connectCtx, coordsIdx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	store.logger.Info("🍃 Connected to MongoDB %s/%s.%s", cfg.URI, cfg.Database, cfg.Collection)
	return store, nil
}

// SaveEdit атомарно обновляет одно поле документа чанка (upsert)
func (m *MongoEditStore) SaveEdit(ctx context.Context, rec world.EditRecord) error {
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	coords := rec.Pos.ToChunkCoords()
	update := bson.M{"$set": bson.M{
		"cx": coords.X,
		"cz": coords.Z,
		"blocks." + localKey(rec.Pos.LocalInChunk()): int32(rec.Block),
	}}
	_, err := m.collection.UpdateByID(ctx, chunkKey(coords), update, options.Update().SetUpsert(true))
	if errors.Is(err, mongo.ErrClientDisconnected) {
		return ErrStoreClosed
	}
	if err != nil {
		return fmt.Errorf("failed to save edit: %w", err)
	}
	return nil
}

// LoadAll читает все документы чанков
func (m *MongoEditStore) LoadAll(ctx context.Context) ([]world.EditRecord, error) {
	cursor, err := m.collection.Find(ctx, bson.M{})
	if errors.Is(err, mongo.ErrClientDisconnected) {
		return nil, ErrStoreClosed
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer cursor.Close(ctx)

	var out []world.EditRecord
	for cursor.Next(ctx) {
		var doc chunkDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode chunk: %w", err)
		}
		coords, err := parseChunkKey(doc.ID)
		if err != nil {
			return nil, err
		}
		origin := coords.ChunkOrigin()
		for key, id := range doc.Blocks {
			local, err := parseLocalKey(key)
			if err != nil {
				return nil, err
			}
			if id < 0 || id > int32(^block.BlockID(0)) {
				return nil, fmt.Errorf("chunk %s field %s: block %d out of range", doc.ID, key, id)
			}
			out = append(out, world.EditRecord{Pos: origin.Add(local), Block: block.BlockID(id)})
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chunks: %w", err)
	}

	sortRecords(out)
	return out, nil
}

// LoadChunk возвращает правки одного чанка
func (m *MongoEditStore) LoadChunk(ctx context.Context, coords vec.Vec3) (map[vec.Vec3]block.BlockID, error) {
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	var doc chunkDoc
	err := m.collection.FindOne(ctx, bson.M{"_id": chunkKey(coords)}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chunk %v: %w", coords, err)
	}

	out := make(map[vec.Vec3]block.BlockID, len(doc.Blocks))
	for key, id := range doc.Blocks {
		local, err := parseLocalKey(key)
		if err != nil {
			return nil, err
		}
		out[local] = block.BlockID(id)
	}
	return out, nil
}

// Clear удаляет коллекцию правок
func (m *MongoEditStore) Clear(ctx context.Context) error {
	return m.collection.Drop(ctx)
}

// Close terminates connection.
func (m *MongoEditStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := m.client.Disconnect(ctx)
	if errors.Is(err, mongo.ErrClientDisconnected) {
		return nil
	}
	return err
}
