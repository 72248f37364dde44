package world

import (
	"context"
	"errors"
	"testing"

	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

// recordingStore - хранилище правок для тестов
type recordingStore struct {
	saved []EditRecord
	err   error
}

func (s *recordingStore) SaveEdit(_ context.Context, rec EditRecord) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, rec)
	return nil
}

func (s *recordingStore) LoadAll(context.Context) ([]EditRecord, error) {
	return append([]EditRecord(nil), s.saved...), s.err
}

func (s *recordingStore) Close() error { return nil }

func TestOverlayLastWriteWins(t *testing.T) {
	o := NewEditOverlay()
	pos := vec.Vec3{X: -3, Y: 70, Z: 18}

	require.NoError(t, o.Record(pos, block.StoneBlockID))
	require.NoError(t, o.Record(pos, block.SandBlockID))

	id, ok := o.Lookup(pos)
	assert.True(t, ok)
	assert.Equal(t, block.SandBlockID, id, "побеждает последняя правка")
	assert.Equal(t, 1, o.Len(), "история правок не хранится")
}

func TestOverlayContains(t *testing.T) {
	o := NewEditOverlay()
	pos := vec.Vec3{X: 17, Y: 5, Z: -1}
	require.NoError(t, o.Record(pos, block.AirBlockID))

	assert.True(t, o.Contains(pos), "удаление блока тоже правка")
	assert.False(t, o.Contains(vec.Vec3{X: 17, Y: 6, Z: -1}))
	assert.True(t, o.ContainsChunk(vec.Vec3{X: 1, Z: -1}))
	assert.False(t, o.ContainsChunk(vec.Vec3{X: 0, Z: 0}))
}

func TestOverlayRejectsOutOfRange(t *testing.T) {
	o := NewEditOverlay()
	err := o.Record(vec.Vec3{X: 9000, Y: 10}, block.StoneBlockID)
	assert.True(t, errors.Is(err, ErrOutOfRange))
	assert.Equal(t, 0, o.Len())
}

func TestOverlayApplyTo(t *testing.T) {
	o := NewEditOverlay()
	require.NoError(t, o.Record(vec.Vec3{X: -1, Y: 10, Z: -16}, block.GoldOreBlockID))
	require.NoError(t, o.Record(vec.Vec3{X: -16, Y: 11, Z: -1}, block.StoneBlockID))
	require.NoError(t, o.Record(vec.Vec3{X: 0, Y: 10, Z: 0}, block.SandBlockID)) // другой чанк

	chunk := NewChunk(vec.Vec3{X: -1, Z: -1})
	chunk.setMesh(&Mesh{})
	assert.Equal(t, 2, o.ApplyTo(chunk))

	assert.Equal(t, block.GoldOreBlockID, chunk.GetBlock(vec.Vec3{X: 15, Y: 10, Z: 0}))
	assert.Equal(t, block.StoneBlockID, chunk.GetBlock(vec.Vec3{X: 0, Y: 11, Z: 15}))
	assert.True(t, chunk.IsDirty())

	empty := NewChunk(vec.Vec3{X: 40, Z: 40})
	assert.Equal(t, 0, o.ApplyTo(empty))
}

func TestOverlayEntriesCanonicalOrder(t *testing.T) {
	o := NewEditOverlay()
	positions := []vec.Vec3{
		{X: 20, Y: 1, Z: 0},
		{X: -5, Y: 3, Z: 2},
		{X: -5, Y: 1, Z: 2},
		{X: 1, Y: 1, Z: 1},
		{X: 0, Y: 1, Z: 1},
	}
	for _, p := range positions {
		require.NoError(t, o.Record(p, block.StoneBlockID))
	}

	entries := o.Entries()
	require.Len(t, entries, len(positions))
	got := make([]vec.Vec3, len(entries))
	for i, e := range entries {
		got[i] = e.Pos
	}
	assert.Equal(t, []vec.Vec3{
		{X: -5, Y: 1, Z: 2},
		{X: -5, Y: 3, Z: 2},
		{X: 0, Y: 1, Z: 1},
		{X: 1, Y: 1, Z: 1},
		{X: 20, Y: 1, Z: 0},
	}, got)
}

func TestOverlayBinaryRoundTrip(t *testing.T) {
	src := NewEditOverlay()
	require.NoError(t, src.Record(vec.Vec3{X: -8192, Y: 0, Z: 8191}, block.EmeraldOreBlockID))
	require.NoError(t, src.Record(vec.Vec3{X: 5, Y: 10, Z: 5}, block.StoneBlockID))
	require.NoError(t, src.Record(vec.Vec3{X: 5, Y: 11, Z: 5}, block.AirBlockID))

	data, err := src.MarshalBinary()
	require.NoError(t, err)

	dst := NewEditOverlay()
	require.NoError(t, dst.UnmarshalBinary(data))
	assert.Equal(t, src.Entries(), dst.Entries())

	again, err := dst.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, data, again, "кодирование детерминировано")
}

func TestDecodeEditsCorrupt(t *testing.T) {
	data := EncodeEdits([]EditRecord{{Pos: vec.Vec3{X: 1, Y: 2, Z: 3}, Block: block.SandBlockID}})
	_, err := DecodeEdits(data[:len(data)-2])
	assert.True(t, errors.Is(err, ErrCorruptOverlay))
}

func TestOverlayWriteThrough(t *testing.T) {
	store := &recordingStore{}
	o := NewEditOverlay()
	o.SetStore(store)

	pos := vec.Vec3{X: 1, Y: 2, Z: 3}
	require.NoError(t, o.Record(pos, block.DirtBlockID))
	require.Len(t, store.saved, 1)
	assert.Equal(t, EditRecord{Pos: pos, Block: block.DirtBlockID}, store.saved[0])

	restored := NewEditOverlay()
	n, err := restored.Restore(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, restored.Contains(pos))
}

func TestOverlayStoreFailureKeepsEdit(t *testing.T) {
	store := &recordingStore{err: errors.New("диск недоступен")}
	o := NewEditOverlay()
	o.SetStore(store)

	pos := vec.Vec3{X: 1, Y: 2, Z: 3}
	err := o.Record(pos, block.DirtBlockID)
	assert.Error(t, err)
	assert.True(t, o.Contains(pos), "правка в памяти не теряется")
}

func TestOverlayRejectsUnknownBlock(t *testing.T) {
	o := NewEditOverlay()
	err := o.Record(vec.Vec3{X: 1, Y: 2, Z: 3}, block.BlockID(999))
	assert.True(t, errors.Is(err, ErrUnknownBlock))
	assert.Equal(t, 0, o.Len())
}

func TestOverlayLoadIsAllOrNothing(t *testing.T) {
	cases := []struct {
		name string
		bad  EditRecord
		want error
	}{
		{"неизвестный блок", EditRecord{Pos: vec.Vec3{X: 2, Y: 2, Z: 2}, Block: 999}, ErrUnknownBlock},
		{"вне мира", EditRecord{Pos: vec.Vec3{X: 2, Y: 300, Z: 2}, Block: block.StoneBlockID}, ErrOutOfRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := NewEditOverlay()
			err := o.Load([]EditRecord{
				{Pos: vec.Vec3{X: 1, Y: 1, Z: 1}, Block: block.SandBlockID},
				tc.bad,
			})
			assert.True(t, errors.Is(err, ErrCorruptOverlay))
			assert.True(t, errors.Is(err, tc.want))
			assert.Equal(t, 0, o.Len(), "частичная загрузка не допускается")
		})
	}
}

func TestUnmarshalBinaryRejectsUnknownBlock(t *testing.T) {
	data := EncodeEdits([]EditRecord{
		{Pos: vec.Vec3{X: 1, Y: 2, Z: 3}, Block: block.SandBlockID},
		{Pos: vec.Vec3{X: 4, Y: 5, Z: 6}, Block: 999},
	})

	o := NewEditOverlay()
	err := o.UnmarshalBinary(data)
	assert.True(t, errors.Is(err, ErrCorruptOverlay))
	assert.Equal(t, 0, o.Len())

	chunk := NewChunk(vec.Vec3{})
	assert.Equal(t, 0, o.ApplyTo(chunk))
}

func TestDecodeEditsRequiresAllFields(t *testing.T) {
	// Запись без поля Y
	var rec []byte
	rec = protowire.AppendTag(rec, fieldX, protowire.VarintType)
	rec = protowire.AppendVarint(rec, protowire.EncodeZigZag(5))
	rec = protowire.AppendTag(rec, fieldZ, protowire.VarintType)
	rec = protowire.AppendVarint(rec, protowire.EncodeZigZag(5))
	rec = protowire.AppendTag(rec, fieldBlock, protowire.VarintType)
	rec = protowire.AppendVarint(rec, uint64(block.StoneBlockID))

	var data []byte
	data = protowire.AppendTag(data, fieldRecord, protowire.BytesType)
	data = protowire.AppendBytes(data, rec)

	_, err := DecodeEdits(data)
	assert.True(t, errors.Is(err, ErrCorruptOverlay))

	// ID блока шире uint16
	rec = rec[:0]
	for _, f := range []protowire.Number{fieldX, fieldY, fieldZ} {
		rec = protowire.AppendTag(rec, f, protowire.VarintType)
		rec = protowire.AppendVarint(rec, protowire.EncodeZigZag(1))
	}
	rec = protowire.AppendTag(rec, fieldBlock, protowire.VarintType)
	rec = protowire.AppendVarint(rec, 1<<16+1)
	data = protowire.AppendTag(data[:0], fieldRecord, protowire.BytesType)
	data = protowire.AppendBytes(data, rec)

	_, err = DecodeEdits(data)
	assert.True(t, errors.Is(err, ErrCorruptOverlay))
}

func TestRestoreRejectsUnknownBlock(t *testing.T) {
	store := &recordingStore{saved: []EditRecord{{Pos: vec.Vec3{X: 1, Y: 1, Z: 1}, Block: 999}}}
	o := NewEditOverlay()
	_, err := o.Restore(context.Background(), store)
	assert.True(t, errors.Is(err, ErrCorruptOverlay))
	assert.Equal(t, 0, o.Len())
}
