package util_test

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/downfa11-org/go-kvs/util"
)

var allCodecs = []string{util.CodecGzip, util.CodecSnappy, util.CodecLZ4, util.CodecNone, ""}

func TestCompressValueRoundtrip(t *testing.T) {
	inputs := [][]byte{
		[]byte("v"),
		[]byte("Hello, World!"),
		[]byte(strings.Repeat("value-", 2000)),
		make([]byte, 10000),
	}

	for _, in := range inputs {
		for _, codec := range allCodecs {
			if codec == util.CodecSnappy && len(in) <= 1 {
				continue
			}
			t.Run(fmt.Sprintf("%q_%dB", codec, len(in)), func(t *testing.T) {
				c, err := util.CompressValue(in, codec)
				if err != nil {
					t.Fatalf("compress: %v", err)
				}
				d, err := util.DecompressValue(c, codec)
				if err != nil {
					t.Fatalf("decompress: %v", err)
				}
				if !bytes.Equal(d, in) {
					t.Fatalf("roundtrip mismatch: want %d bytes, got %d", len(in), len(d))
				}
			})
		}
	}
}

func TestCompressValuePassthrough(t *testing.T) {
	data := []byte("plain")
	for _, codec := range []string{util.CodecNone, ""} {
		out, err := util.CompressValue(data, codec)
		if err != nil {
			t.Fatalf("codec %q: %v", codec, err)
		}
		if !bytes.Equal(out, data) {
			t.Errorf("codec %q should pass data through", codec)
		}
	}
}

func TestUnsupportedCodec(t *testing.T) {
	if util.ValidCodec("zstd") {
		t.Error("zstd should not be a valid codec")
	}
	if _, err := util.CompressValue([]byte("x"), "zstd"); !errors.Is(err, util.ErrUnsupportedCodec) {
		t.Errorf("expected ErrUnsupportedCodec, got %v", err)
	}
	if _, err := util.DecompressValue([]byte("x"), "zstd"); err == nil {
		t.Error("expected decompress error for unsupported codec")
	}
	if _, err := util.DecompressValue([]byte("not gzip"), util.CodecGzip); err == nil {
		t.Error("expected error decoding garbage as gzip")
	}
}

func TestConcurrentCompression(t *testing.T) {
	data := []byte("Hello, concurrent compression")

	var wg sync.WaitGroup
	errCh := make(chan error, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			codec := allCodecs[id%len(allCodecs)]
			c, err := util.CompressValue(data, codec)
			if err != nil {
				errCh <- fmt.Errorf("compress id=%d codec=%q: %v", id, codec, err)
				return
			}
			d, err := util.DecompressValue(c, codec)
			if err != nil {
				errCh <- fmt.Errorf("decompress id=%d codec=%q: %v", id, codec, err)
				return
			}
			if !bytes.Equal(d, data) {
				errCh <- fmt.Errorf("mismatch id=%d codec=%q", id, codec)
			}
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Error(err)
	}
}

func TestPooledEncodersDoNotShareOutput(t *testing.T) {
	for _, codec := range []string{util.CodecGzip, util.CodecLZ4} {
		first, err := util.CompressValue([]byte(strings.Repeat("a", 512)), codec)
		if err != nil {
			t.Fatalf("%s: %v", codec, err)
		}
		snapshot := append([]byte(nil), first...)
		if _, err := util.CompressValue([]byte(strings.Repeat("b", 512)), codec); err != nil {
			t.Fatalf("%s: %v", codec, err)
		}
		if !bytes.Equal(first, snapshot) {
			t.Errorf("%s: reusing an encoder changed an earlier result", codec)
		}
	}
}
