package engine_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/downfa11-org/go-kvs/pkg/disk"
	"github.com/downfa11-org/go-kvs/pkg/engine"
	"github.com/downfa11-org/go-kvs/pkg/types"
	"github.com/downfa11-org/go-kvs/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestCommandEncodeDecode(t *testing.T) {
	for _, codec := range []string{util.CodecNone, util.CodecGzip, util.CodecSnappy, util.CodecLZ4} {
		t.Run(codec, func(t *testing.T) {
			set, err := engine.NewSetCommand("key", "some value that compresses, value value value", codec)
			require.NoError(t, err)

			data, err := engine.EncodeCommand(set)
			require.NoError(t, err)

			got, err := engine.DecodeCommand(data)
			require.NoError(t, err)
			assert.Equal(t, engine.CommandSet, got.Kind)
			assert.Equal(t, "key", got.Key)

			value, err := got.StringValue()
			require.NoError(t, err)
			assert.Equal(t, "some value that compresses, value value value", value)
		})
	}

	data, err := engine.EncodeCommand(engine.NewRemoveCommand("gone"))
	require.NoError(t, err)
	got, err := engine.DecodeCommand(data)
	require.NoError(t, err)
	assert.Equal(t, engine.CommandRemove, got.Kind)
	assert.Equal(t, "gone", got.Key)
}

func TestDecodeCommandRejectsMalformedInput(t *testing.T) {
	valid, err := engine.EncodeCommand(engine.NewRemoveCommand("k"))
	require.NoError(t, err)

	unknownKind, err := msgpack.Marshal(map[string]interface{}{"kind": 9, "key": "k"})
	require.NoError(t, err)
	unknownField, err := msgpack.Marshal(map[string]interface{}{"kind": 1, "key": "k", "extra": true})
	require.NoError(t, err)
	badCodec, err := msgpack.Marshal(map[string]interface{}{"kind": 1, "key": "k", "codec": "zstd"})
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"Empty", nil},
		{"Truncated", valid[:len(valid)-1]},
		{"Trailing", append(append([]byte{}, valid...), 0x01)},
		{"NotAMap", []byte{0x2a}},
		{"UnknownKind", unknownKind},
		{"UnknownField", unknownField},
		{"UnknownCodec", badCodec},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.DecodeCommand(tt.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrCorruptLog), "expected corrupt log, got %v", err)
			assert.True(t, errors.Is(err, types.ErrSerialization))
		})
	}
}

func TestCommandDecoderSpans(t *testing.T) {
	var buf bytes.Buffer
	var want []int64
	cmds := []engine.Command{engine.NewRemoveCommand("a")}
	set, err := engine.NewSetCommand("b", "value-b", util.CodecNone)
	require.NoError(t, err)
	cmds = append(cmds, set, engine.NewRemoveCommand("c"))

	for _, c := range cmds {
		data, err := engine.EncodeCommand(c)
		require.NoError(t, err)
		want = append(want, int64(buf.Len()))
		buf.Write(data)
	}
	want = append(want, int64(buf.Len()))

	r, err := disk.NewBufReaderWithPos(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	dec := engine.NewCommandDecoder(r)

	for i, c := range cmds {
		got, start, end, err := dec.Next()
		require.NoError(t, err)
		assert.Equal(t, c.Kind, got.Kind)
		assert.Equal(t, c.Key, got.Key)
		assert.Equal(t, want[i], start, "start of command %d", i)
		assert.Equal(t, want[i+1], end, "end of command %d", i)
	}

	_, _, _, err = dec.Next()
	assert.Equal(t, io.EOF, err)
}

func TestCommandDecoderTruncatedTail(t *testing.T) {
	data, err := engine.EncodeCommand(engine.NewRemoveCommand("tail"))
	require.NoError(t, err)
	stream := append(append([]byte{}, data...), data[:3]...)

	r, err := disk.NewBufReaderWithPos(bytes.NewReader(stream))
	require.NoError(t, err)
	dec := engine.NewCommandDecoder(r)

	_, _, _, err = dec.Next()
	require.NoError(t, err)

	_, _, _, err = dec.Next()
	require.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
	assert.ErrorIs(t, err, types.ErrCorruptLog)
}

func TestCommandDecoderCutInsideRecord(t *testing.T) {
	set, err := engine.NewSetCommand("key", "value", util.CodecNone)
	require.NoError(t, err)
	data, err := engine.EncodeCommand(set)
	require.NoError(t, err)

	for cut := 1; cut < len(data); cut++ {
		r, err := disk.NewBufReaderWithPos(bytes.NewReader(data[:cut]))
		require.NoError(t, err)

		_, _, _, err = engine.NewCommandDecoder(r).Next()
		require.Error(t, err, "cut=%d", cut)
		assert.ErrorIs(t, err, types.ErrCorruptLog, "cut=%d", cut)
		assert.NotErrorIs(t, err, io.EOF, "cut=%d", cut)

		_, err = engine.DecodeCommand(data[:cut])
		assert.NotErrorIs(t, err, io.EOF, "cut=%d", cut)
	}
}
