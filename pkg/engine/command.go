package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/downfa11-org/go-kvs/pkg/disk"
	"github.com/downfa11-org/go-kvs/pkg/types"
	"github.com/downfa11-org/go-kvs/util"
	"github.com/vmihailenco/msgpack/v5"
)

// CommandKind tags the variant of a logged mutation.
type CommandKind uint8

const (
	CommandSet    CommandKind = 1
	CommandRemove CommandKind = 2
)

func (k CommandKind) String() string {
	switch k {
	case CommandSet:
		return "set"
	case CommandRemove:
		return "remove"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Command is one record of the log. Each record is a single msgpack map, so a
// segment is a plain concatenation of self-delimiting values.
type Command struct {
	Kind  CommandKind `msgpack:"kind"`
	Key   string      `msgpack:"key"`
	Value []byte      `msgpack:"value,omitempty"`
	Codec string      `msgpack:"codec,omitempty"`
}

// NewSetCommand builds a Set, compressing value with codec.
func NewSetCommand(key, value, codec string) (Command, error) {
	if codec == util.CodecNone {
		codec = ""
	}
	data, err := util.CompressValue([]byte(value), codec)
	if err != nil {
		return Command{}, types.SerializationError("compress value", err)
	}
	return Command{Kind: CommandSet, Key: key, Value: data, Codec: codec}, nil
}

func NewRemoveCommand(key string) Command {
	return Command{Kind: CommandRemove, Key: key}
}

// StringValue returns the decompressed value of a Set.
func (c Command) StringValue() (string, error) {
	data, err := util.DecompressValue(c.Value, c.Codec)
	if err != nil {
		return "", types.CorruptLogError("decompress value", err)
	}
	return string(data), nil
}

func (c Command) validate() error {
	switch c.Kind {
	case CommandSet:
		if !util.ValidCodec(c.Codec) {
			return fmt.Errorf("unknown codec %q", c.Codec)
		}
	case CommandRemove:
	default:
		return fmt.Errorf("unknown command kind %d", uint8(c.Kind))
	}
	return nil
}

// EncodeCommand serializes c.
func EncodeCommand(c Command) ([]byte, error) {
	data, err := msgpack.Marshal(&c)
	if err != nil {
		return nil, types.SerializationError("encode command", err)
	}
	return data, nil
}

// DecodeCommand parses exactly one command that must span all of data.
func DecodeCommand(data []byte) (Command, error) {
	br := bytes.NewReader(data)
	dec := msgpack.NewDecoder(br)
	dec.DisallowUnknownFields(true)

	var c Command
	if err := dec.Decode(&c); err != nil {
		return Command{}, types.CorruptLogError("decode command", midRecord(err))
	}
	if br.Len() != 0 {
		return Command{}, types.CorruptLogError("decode command", fmt.Errorf("%d trailing bytes", br.Len()))
	}
	if err := c.validate(); err != nil {
		return Command{}, types.CorruptLogError("decode command", err)
	}
	return c, nil
}

// CommandDecoder reads consecutive commands from a segment stream and reports
// the byte span of each.
type CommandDecoder struct {
	r   *disk.BufReaderWithPos
	dec *msgpack.Decoder
}

func NewCommandDecoder(r *disk.BufReaderWithPos) *CommandDecoder {
	// r is an io.ByteScanner, so the decoder reads through it without
	// buffering ahead and r.Pos() stays exact between commands.
	dec := msgpack.NewDecoder(r)
	dec.DisallowUnknownFields(true)
	return &CommandDecoder{r: r, dec: dec}
}

// Next decodes the next command and returns it with its [start, end) offsets.
// It returns io.EOF only at a clean command boundary.
func (d *CommandDecoder) Next() (Command, int64, int64, error) {
	start := d.r.Pos()
	if _, err := d.r.ReadByte(); err != nil {
		if errors.Is(err, io.EOF) {
			return Command{}, start, start, io.EOF
		}
		return Command{}, start, start, types.IOError("read command", err)
	}
	if err := d.r.UnreadByte(); err != nil {
		return Command{}, start, start, types.IOError("read command", err)
	}

	var c Command
	if err := d.dec.Decode(&c); err != nil {
		return Command{}, start, d.r.Pos(), types.CorruptLogError(fmt.Sprintf("decode command at offset %d", start), midRecord(err))
	}
	if err := c.validate(); err != nil {
		return Command{}, start, d.r.Pos(), types.CorruptLogError(fmt.Sprintf("decode command at offset %d", start), err)
	}
	return c, start, d.r.Pos(), nil
}

// midRecord reports an end of input inside a record as io.ErrUnexpectedEOF,
// so io.EOF never escapes except at a clean boundary.
func midRecord(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
