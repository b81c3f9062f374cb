package util

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pierrec/lz4/v4"
	snappy "github.com/segmentio/kafka-go/compress/snappy/go-xerial-snappy"
)

// Value codecs understood by CompressValue and DecompressValue.
const (
	CodecNone   = "none"
	CodecGzip   = "gzip"
	CodecSnappy = "snappy"
	CodecLZ4    = "lz4"
)

var ErrUnsupportedCodec = errors.New("unsupported compression codec")

type valueCodec struct {
	encode func([]byte) ([]byte, error)
	decode func([]byte) ([]byte, error)
}

// streamEncoder is a compressor that can be rebound to a new destination.
type streamEncoder interface {
	io.WriteCloser
	Reset(io.Writer)
}

// Stream compressors keep sizeable internal state, so they are pooled and
// rebound per value.
var (
	gzipWriters = sync.Pool{New: func() any { return gzip.NewWriter(io.Discard) }}
	lz4Writers  = sync.Pool{New: func() any { return lz4.NewWriter(io.Discard) }}
)

var codecs = map[string]valueCodec{
	CodecNone: {encode: identity, decode: identity},
	"":        {encode: identity, decode: identity},
	CodecGzip: {
		encode: pooledEncode(&gzipWriters),
		decode: func(data []byte) ([]byte, error) {
			gr, err := gzip.NewReader(bytes.NewReader(data))
			if err != nil {
				return nil, err
			}
			defer func() {
				if err := gr.Close(); err != nil {
					Error("failed to close gzip reader: %v", err)
				}
			}()
			return io.ReadAll(gr)
		},
	},
	CodecSnappy: {
		encode: func(data []byte) ([]byte, error) { return snappy.Encode(data), nil },
		decode: snappy.Decode,
	},
	CodecLZ4: {
		encode: pooledEncode(&lz4Writers),
		decode: func(data []byte) ([]byte, error) {
			return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		},
	},
}

func identity(data []byte) ([]byte, error) { return data, nil }

func pooledEncode(p *sync.Pool) func([]byte) ([]byte, error) {
	return func(data []byte) ([]byte, error) {
		enc := p.Get().(streamEncoder)
		var buf bytes.Buffer
		enc.Reset(&buf)
		if _, err := enc.Write(data); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		// only encoders that closed cleanly go back
		enc.Reset(io.Discard)
		p.Put(enc)
		return buf.Bytes(), nil
	}
}

func lookupCodec(name string) (valueCodec, error) {
	c, ok := codecs[name]
	if !ok {
		return valueCodec{}, fmt.Errorf("%w: %q", ErrUnsupportedCodec, name)
	}
	return c, nil
}

// ValidCodec reports whether name is a supported codec. The empty string means none.
func ValidCodec(name string) bool {
	_, ok := codecs[name]
	return ok
}

// CompressValue encodes data with the named codec.
func CompressValue(data []byte, codec string) ([]byte, error) {
	c, err := lookupCodec(codec)
	if err != nil {
		return nil, err
	}
	return c.encode(data)
}

// DecompressValue reverses CompressValue.
func DecompressValue(data []byte, codec string) ([]byte, error) {
	c, err := lookupCodec(codec)
	if err != nil {
		return nil, err
	}
	return c.decode(data)
}
