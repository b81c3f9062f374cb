package disk

import (
	"io"
	"os"

	"github.com/downfa11-org/go-kvs/pkg/types"
	"golang.org/x/exp/mmap"
)

// NewLogFile opens the segment of gen for appending, creating it if needed,
// and returns a writer positioned at its end.
func NewLogFile(dir string, gen uint64) (*BufWriterWithPos, error) {
	f, err := os.OpenFile(LogPath(dir, gen), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, types.IOError("create segment", err)
	}
	adviseSequential(f)

	// O_APPEND files start at offset 0 until the first write.
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		_ = f.Close()
		return nil, types.IOError("seek segment end", err)
	}
	w, err := NewBufWriterWithPos(f)
	if err != nil {
		_ = f.Close()
		return nil, types.IOError("wrap segment writer", err)
	}
	return w, nil
}

// OpenSegment opens the segment of gen for point reads.
func OpenSegment(dir string, gen uint64) (*BufReaderWithPos, error) {
	f, err := os.Open(LogPath(dir, gen))
	if err != nil {
		return nil, types.IOError("open segment", err)
	}
	adviseRandom(f)

	r, err := NewBufReaderWithPos(f)
	if err != nil {
		_ = f.Close()
		return nil, types.IOError("wrap segment reader", err)
	}
	return r, nil
}

// MappedSegment is a read-only memory map of a whole segment, read through a
// positioned buffered reader. It is used for sequential replay.
type MappedSegment struct {
	*BufReaderWithPos
	ra *mmap.ReaderAt
}

// OpenMapped maps the segment of gen into memory.
func OpenMapped(dir string, gen uint64) (*MappedSegment, error) {
	ra, err := mmap.Open(LogPath(dir, gen))
	if err != nil {
		return nil, types.IOError("mmap segment", err)
	}
	r, err := NewBufReaderWithPos(io.NewSectionReader(ra, 0, int64(ra.Len())))
	if err != nil {
		_ = ra.Close()
		return nil, types.IOError("wrap mapped segment", err)
	}
	return &MappedSegment{BufReaderWithPos: r, ra: ra}, nil
}

// Size returns the mapped length in bytes.
func (m *MappedSegment) Size() int64 { return int64(m.ra.Len()) }

func (m *MappedSegment) Close() error {
	return m.ra.Close()
}
