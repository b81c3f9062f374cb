package engine

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/downfa11-org/go-kvs/pkg/disk"
	"github.com/downfa11-org/go-kvs/pkg/types"
	"github.com/downfa11-org/go-kvs/util"
	"github.com/hashicorp/go-multierror"
)

// readerSet owns private read handles into the segment files, opened lazily
// per generation. Every consumer gets its own set so concurrent lookups never
// share a seek cursor.
type readerSet struct {
	dir string
	// generation of the latest compaction target; older segments are retired
	safePoint *atomic.Uint64

	mu      sync.Mutex
	readers map[uint64]*disk.BufReaderWithPos
}

func newReaderSet(dir string, safePoint *atomic.Uint64) *readerSet {
	return &readerSet{
		dir:       dir,
		safePoint: safePoint,
		readers:   make(map[uint64]*disk.BufReaderWithPos),
	}
}

// clone returns an empty set over the same files.
func (rs *readerSet) clone() *readerSet {
	return newReaderSet(rs.dir, rs.safePoint)
}

// closeStaleLocked drops handles whose generation fell below the safe point.
func (rs *readerSet) closeStaleLocked() {
	safePoint := rs.safePoint.Load()
	for gen, r := range rs.readers {
		if gen >= safePoint {
			continue
		}
		if err := r.Close(); err != nil {
			util.Error("close stale reader for segment %d: %v", gen, err)
		}
		delete(rs.readers, gen)
	}
}

// readAnd positions a reader at pos and hands fn a view limited to pos.Len bytes.
func (rs *readerSet) readAnd(pos CommandPos, fn func(r io.Reader) error) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.closeStaleLocked()

	r, ok := rs.readers[pos.Gen]
	if !ok {
		var err error
		r, err = disk.OpenSegment(rs.dir, pos.Gen)
		if err != nil {
			return err
		}
		rs.readers[pos.Gen] = r
	}

	if _, err := r.Seek(int64(pos.Pos), io.SeekStart); err != nil {
		return types.IOError(fmt.Sprintf("seek segment %d", pos.Gen), err)
	}
	return fn(io.LimitReader(r, int64(pos.Len)))
}

// readCommand decodes the command stored at pos.
func (rs *readerSet) readCommand(pos CommandPos) (Command, error) {
	var cmd Command
	err := rs.readAnd(pos, func(r io.Reader) error {
		buf := make([]byte, pos.Len)
		if _, err := io.ReadFull(r, buf); err != nil {
			return types.CorruptLogError(fmt.Sprintf("read %d bytes at %d:%d", pos.Len, pos.Gen, pos.Pos), err)
		}
		var err error
		cmd, err = DecodeCommand(buf)
		return err
	})
	return cmd, err
}

// copyTo copies the raw bytes at pos into w and returns how many were copied.
func (rs *readerSet) copyTo(pos CommandPos, w io.Writer) (uint64, error) {
	var n int64
	err := rs.readAnd(pos, func(r io.Reader) error {
		var err error
		n, err = io.Copy(w, r)
		if err != nil {
			return types.IOError("copy command", err)
		}
		if uint64(n) != pos.Len {
			return types.CorruptLogError(fmt.Sprintf("copy %d:%d", pos.Gen, pos.Pos),
				fmt.Errorf("short copy: %d of %d bytes", n, pos.Len))
		}
		return nil
	})
	return uint64(n), err
}

// drop closes the handle of gen, if any.
func (rs *readerSet) drop(gen uint64) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	r, ok := rs.readers[gen]
	if !ok {
		return nil
	}
	delete(rs.readers, gen)
	return r.Close()
}

func (rs *readerSet) Close() error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	var result *multierror.Error
	for gen, r := range rs.readers {
		if err := r.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close segment %d: %w", gen, err))
		}
		delete(rs.readers, gen)
	}
	return result.ErrorOrNil()
}
