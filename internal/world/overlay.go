package world

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world/block"
)

// EditRecord - одна правка мира: абсолютная координата и новый блок
type EditRecord struct {
	Pos   vec.Vec3      `json:"pos"`
	Block block.BlockID `json:"block"`
}

// EditStore - долговременное хранилище правок
type EditStore interface {
	SaveEdit(ctx context.Context, rec EditRecord) error
	LoadAll(ctx context.Context) ([]EditRecord, error)
	Close() error
}

// storeTimeout ограничивает запись одной правки в хранилище
const storeTimeout = 2 * time.Second

// EditOverlay хранит все правки игрока поверх сгенерированного ландшафта.
// Правки сгруппированы по чанкам, чтобы отрицательный поиск был O(1).
type EditOverlay struct {
	mu     sync.RWMutex
	chunks map[vec.Vec3]map[vec.Vec3]block.BlockID // чанк -> локальная позиция -> блок
	count  int
	store  EditStore
}

// NewEditOverlay создаёт пустой оверлей без хранилища
func NewEditOverlay() *EditOverlay {
	return &EditOverlay{
		chunks: make(map[vec.Vec3]map[vec.Vec3]block.BlockID),
	}
}

// SetStore подключает хранилище, в которое пишется каждая новая правка
func (o *EditOverlay) SetStore(store EditStore) {
	o.mu.Lock()
	o.store = store
	o.mu.Unlock()
}

// Record записывает правку, более поздняя правка полностью заменяет прежнюю.
// Ошибка хранилища возвращается, но правка в памяти уже сохранена.
func (o *EditOverlay) Record(pos vec.Vec3, id block.BlockID) error {
	if !InWorld(pos) {
		return fmt.Errorf("правка %v: %w", pos, ErrOutOfRange)
	}
	if !block.IsValidBlockID(id) {
		return fmt.Errorf("правка %v: %w: %d", pos, ErrUnknownBlock, id)
	}

	o.mu.Lock()
	o.put(pos, id)
	store := o.store
	o.mu.Unlock()

	if store == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := store.SaveEdit(ctx, EditRecord{Pos: pos, Block: id}); err != nil {
		return fmt.Errorf("запись правки %v в хранилище: %w", pos, err)
	}
	return nil
}

func (o *EditOverlay) put(pos vec.Vec3, id block.BlockID) {
	coords := pos.ToChunkCoords()
	entries, ok := o.chunks[coords]
	if !ok {
		entries = make(map[vec.Vec3]block.BlockID)
		o.chunks[coords] = entries
	}
	local := pos.LocalInChunk()
	if _, exists := entries[local]; !exists {
		o.count++
	}
	entries[local] = id
}

// Lookup возвращает записанный блок для координаты
func (o *EditOverlay) Lookup(pos vec.Vec3) (block.BlockID, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	entries, ok := o.chunks[pos.ToChunkCoords()]
	if !ok {
		return 0, false
	}
	id, ok := entries[pos.LocalInChunk()]
	return id, ok
}

// Contains сообщает, есть ли правка в координате
func (o *EditOverlay) Contains(pos vec.Vec3) bool {
	_, ok := o.Lookup(pos)
	return ok
}

// ContainsChunk сообщает, есть ли хоть одна правка в чанке
func (o *EditOverlay) ContainsChunk(coords vec.Vec3) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.chunks[coords]) > 0
}

// ApplyTo перезаписывает сгенерированные блоки чанка правками.
// Возвращает число применённых правок.
func (o *EditOverlay) ApplyTo(chunk *Chunk) int {
	o.mu.RLock()
	entries := o.chunks[chunk.Coords]
	if len(entries) == 0 {
		o.mu.RUnlock()
		return 0
	}
	locals := make([]EditRecord, 0, len(entries))
	for local, id := range entries {
		locals = append(locals, EditRecord{Pos: local, Block: id})
	}
	o.mu.RUnlock()

	chunk.Mu.Lock()
	defer chunk.Mu.Unlock()
	if chunk.blocks == nil {
		return 0
	}
	for _, rec := range locals {
		chunk.blocks[blockIndex(rec.Pos.X, rec.Pos.Y, rec.Pos.Z)] = rec.Block
	}
	chunk.dirty = true

	return len(locals)
}

// Len возвращает число правок
func (o *EditOverlay) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.count
}

// Entries возвращает все правки в каноническом порядке:
// чанки по (X, Z), внутри чанка по (Y, Z, X)
func (o *EditOverlay) Entries() []EditRecord {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]EditRecord, 0, o.count)
	for coords, entries := range o.chunks {
		origin := coords.ChunkOrigin()
		for local, id := range entries {
			out = append(out, EditRecord{Pos: origin.Add(local), Block: id})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := out[i].Pos.ToChunkCoords(), out[j].Pos.ToChunkCoords()
		if ci != cj {
			return ci.Less(cj)
		}
		li, lj := out[i].Pos.LocalInChunk(), out[j].Pos.LocalInChunk()
		return blockIndex(li.X, li.Y, li.Z) < blockIndex(lj.X, lj.Y, lj.Z)
	})
	return out
}

// Load добавляет правки в порядке следования (последняя побеждает).
// В хранилище они не пишутся. Набор принимается целиком или не принимается:
// при любой некорректной записи оверлей не меняется.
func (o *EditOverlay) Load(records []EditRecord) error {
	if err := ValidateEdits(records); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	for _, rec := range records {
		o.put(rec.Pos, rec.Block)
	}
	return nil
}

// ValidateEdits проверяет, что каждая правка лежит в мире и ссылается на известный блок
func ValidateEdits(records []EditRecord) error {
	for _, rec := range records {
		if !InWorld(rec.Pos) {
			return fmt.Errorf("%w: правка %v: %w", ErrCorruptOverlay, rec.Pos, ErrOutOfRange)
		}
		if !block.IsValidBlockID(rec.Block) {
			return fmt.Errorf("%w: правка %v: %w: %d", ErrCorruptOverlay, rec.Pos, ErrUnknownBlock, rec.Block)
		}
	}
	return nil
}

// Restore загружает все правки из хранилища
func (o *EditOverlay) Restore(ctx context.Context, store EditStore) (int, error) {
	records, err := store.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("чтение правок из хранилища: %w", err)
	}
	if err := o.Load(records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// Поля бинарного формата оверлея
const (
	fieldRecord protowire.Number = 1

	fieldX     protowire.Number = 1
	fieldY     protowire.Number = 2
	fieldZ     protowire.Number = 3
	fieldBlock protowire.Number = 4
)

// MarshalBinary кодирует все правки в компактный protobuf-совместимый формат
func (o *EditOverlay) MarshalBinary() ([]byte, error) {
	return EncodeEdits(o.Entries()), nil
}

// UnmarshalBinary добавляет правки из закодированных данных
func (o *EditOverlay) UnmarshalBinary(data []byte) error {
	records, err := DecodeEdits(data)
	if err != nil {
		return err
	}
	return o.Load(records)
}

// EncodeEdits кодирует последовательность правок
func EncodeEdits(records []EditRecord) []byte {
	var out, rec []byte
	for _, r := range records {
		rec = rec[:0]
		rec = protowire.AppendTag(rec, fieldX, protowire.VarintType)
		rec = protowire.AppendVarint(rec, protowire.EncodeZigZag(int64(r.Pos.X)))
		rec = protowire.AppendTag(rec, fieldY, protowire.VarintType)
		rec = protowire.AppendVarint(rec, protowire.EncodeZigZag(int64(r.Pos.Y)))
		rec = protowire.AppendTag(rec, fieldZ, protowire.VarintType)
		rec = protowire.AppendVarint(rec, protowire.EncodeZigZag(int64(r.Pos.Z)))
		rec = protowire.AppendTag(rec, fieldBlock, protowire.VarintType)
		rec = protowire.AppendVarint(rec, uint64(r.Block))

		out = protowire.AppendTag(out, fieldRecord, protowire.BytesType)
		out = protowire.AppendBytes(out, rec)
	}
	return out
}

// DecodeEdits разбирает последовательность правок, неизвестные поля пропускаются
func DecodeEdits(data []byte) ([]EditRecord, error) {
	var records []EditRecord
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrCorruptOverlay, protowire.ParseError(n))
		}
		data = data[n:]

		if num != fieldRecord || typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrCorruptOverlay, protowire.ParseError(n))
			}
			data = data[n:]
			continue
		}

		payload, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrCorruptOverlay, protowire.ParseError(n))
		}
		data = data[n:]

		rec, err := decodeRecord(payload)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// recordFields - маска полей, обязательных в каждой записи
const recordFields = 1<<fieldX | 1<<fieldY | 1<<fieldZ | 1<<fieldBlock

func decodeRecord(b []byte) (EditRecord, error) {
	var rec EditRecord
	var seen uint
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return rec, fmt.Errorf("%w: %v", ErrCorruptOverlay, protowire.ParseError(n))
		}
		b = b[n:]

		if typ != protowire.VarintType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return rec, fmt.Errorf("%w: %v", ErrCorruptOverlay, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return rec, fmt.Errorf("%w: %v", ErrCorruptOverlay, protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldX:
			rec.Pos.X = int(protowire.DecodeZigZag(v))
		case fieldY:
			rec.Pos.Y = int(protowire.DecodeZigZag(v))
		case fieldZ:
			rec.Pos.Z = int(protowire.DecodeZigZag(v))
		case fieldBlock:
			if v > uint64(^block.BlockID(0)) {
				return rec, fmt.Errorf("%w: ID блока %d вне диапазона", ErrCorruptOverlay, v)
			}
			rec.Block = block.BlockID(v)
		default:
			continue
		}
		seen |= 1 << uint(num)
	}
	if seen&recordFields != recordFields {
		return rec, fmt.Errorf("%w: запись без обязательных полей", ErrCorruptOverlay)
	}
	return rec, nil
}
