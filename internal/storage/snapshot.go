package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/annel0/voxelworld/internal/logging"
	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world"
)

// SaveVersion - текущая версия формата файла сохранения
const SaveVersion = 1

var saveMagic = []byte("VXSV")

// Поля полезной нагрузки файла сохранения
const (
	fieldHeader protowire.Number = 1
	fieldEdits  protowire.Number = 2
)

// SaveHeader описывает мир, из которого сделано сохранение
type SaveHeader struct {
	Version int       `json:"version"`
	WorldID uuid.UUID `json:"world_id"`
	Seed    int64     `json:"seed"`
	Created time.Time `json:"created"`
	Edits   int       `json:"edits"`
}

// Save - сид мира и все правки. Генератор с тем же сидом плюс правки
// восстанавливают любой посещённый ландшафт.
type Save struct {
	Header SaveHeader
	Edits  []world.EditRecord
}

// NewSave снимает сохранение с оверлея. worldID может быть uuid.Nil, тогда создаётся новый.
func NewSave(worldID uuid.UUID, seed int64, overlay *world.EditOverlay) *Save {
	if worldID == uuid.Nil {
		worldID = uuid.New()
	}
	edits := overlay.Entries()
	return &Save{
		Header: SaveHeader{
			Version: SaveVersion,
			WorldID: worldID,
			Seed:    seed,
			Created: time.Now().UTC(),
			Edits:   len(edits),
		},
		Edits: edits,
	}
}

// SaveFile атомарно записывает сохранение: магия + zstd(заголовок JSON + правки)
func SaveFile(path string, s *Save) error {
	header, err := json.Marshal(s.Header)
	if err != nil {
		return fmt.Errorf("сериализация заголовка: %w", err)
	}

	var payload []byte
	payload = protowire.AppendTag(payload, fieldHeader, protowire.BytesType)
	payload = protowire.AppendBytes(payload, header)
	payload = protowire.AppendTag(payload, fieldEdits, protowire.BytesType)
	payload = protowire.AppendBytes(payload, world.EncodeEdits(s.Edits))

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("инициализация zstd: %w", err)
	}
	data := enc.EncodeAll(payload, append([]byte{}, saveMagic...))
	enc.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("создание каталога сохранения: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("запись сохранения: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("запись сохранения: %w", err)
	}

	logger := logging.GetStorageLogger()
	logger.Info("💾 Сохранение %s: мир %s, правок %d, %d байт", path, s.Header.WorldID, len(s.Edits), len(data))
	return nil
}

// LoadFile читает сохранение. Любое повреждение возвращает ErrCorruptSave.
func LoadFile(path string) (*Save, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(data, saveMagic) {
		return nil, fmt.Errorf("%s: нет сигнатуры: %w", path, ErrCorruptSave)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("инициализация zstd: %w", err)
	}
	defer dec.Close()

	payload, err := dec.DecodeAll(data[len(saveMagic):], nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", path, err, ErrCorruptSave)
	}

	s := &Save{}
	var haveHeader bool
	for len(payload) > 0 {
		num, typ, n := protowire.ConsumeTag(payload)
		if n < 0 || typ != protowire.BytesType {
			return nil, fmt.Errorf("%s: некорректное поле: %w", path, ErrCorruptSave)
		}
		payload = payload[n:]
		value, n := protowire.ConsumeBytes(payload)
		if n < 0 {
			return nil, fmt.Errorf("%s: обрезанное поле %d: %w", path, num, ErrCorruptSave)
		}
		payload = payload[n:]

		switch num {
		case fieldHeader:
			if err := json.Unmarshal(value, &s.Header); err != nil {
				return nil, fmt.Errorf("%s: заголовок: %v: %w", path, err, ErrCorruptSave)
			}
			haveHeader = true
		case fieldEdits:
			edits, err := world.DecodeEdits(value)
			if err == nil {
				err = world.ValidateEdits(edits)
			}
			if err != nil {
				return nil, fmt.Errorf("%s: правки: %v: %w", path, err, ErrCorruptSave)
			}
			s.Edits = edits
		}
	}

	if !haveHeader {
		return nil, fmt.Errorf("%s: нет заголовка: %w", path, ErrCorruptSave)
	}
	if s.Header.Version != SaveVersion {
		return nil, fmt.Errorf("%s: версия %d не поддерживается: %w", path, s.Header.Version, ErrCorruptSave)
	}
	if s.Header.Edits != len(s.Edits) {
		return nil, fmt.Errorf("%s: ожидалось %d правок, прочитано %d: %w",
			path, s.Header.Edits, len(s.Edits), ErrCorruptSave)
	}
	return s, nil
}

// Apply загружает правки сохранения в оверлей
func (s *Save) Apply(overlay *world.EditOverlay) error {
	return overlay.Load(s.Edits)
}

// RestoreOverlay собирает оверлей из сохранения и хранилища правок. save может быть nil.
//
// Хранилище получает каждую правку сразу, а файл сохранения пишется только при
// остановке, поэтому хранилище не старше сохранения: при совпадении координат
// побеждает запись хранилища. Правки сохранения, которых нет в хранилище
// (например, после смены backend), дописываются в хранилище.
func RestoreOverlay(ctx context.Context, overlay *world.EditOverlay, save *Save, store world.EditStore) (fromSave, fromStore int, err error) {
	stored, err := store.LoadAll(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("чтение правок из хранилища: %w", err)
	}
	if err := world.ValidateEdits(stored); err != nil {
		return 0, 0, err
	}

	if save != nil {
		if err := save.Apply(overlay); err != nil {
			return 0, 0, err
		}
		fromSave = len(save.Edits)

		known := make(map[vec.Vec3]struct{}, len(stored))
		for _, rec := range stored {
			known[rec.Pos] = struct{}{}
		}
		for _, rec := range save.Edits {
			if _, ok := known[rec.Pos]; ok {
				continue
			}
			if err := store.SaveEdit(ctx, rec); err != nil {
				return fromSave, 0, fmt.Errorf("перенос правки %v в хранилище: %w", rec.Pos, err)
			}
		}
	}

	if err := overlay.Load(stored); err != nil {
		return fromSave, 0, err
	}
	return fromSave, len(stored), nil
}
