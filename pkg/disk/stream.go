package disk

import (
	"bufio"
	"io"
)

// BufReaderWithPos is a buffered reader that tracks its absolute offset in the
// underlying stream. It implements io.ByteScanner so decoders can read from it
// without adding a second buffer that would desynchronize the offset.
type BufReaderWithPos struct {
	src    io.ReadSeeker
	reader *bufio.Reader
	pos    int64
}

func NewBufReaderWithPos(src io.ReadSeeker) (*BufReaderWithPos, error) {
	pos, err := src.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	return &BufReaderWithPos{
		src:    src,
		reader: bufio.NewReader(src),
		pos:    pos,
	}, nil
}

// Pos returns the offset of the next byte to be read.
func (r *BufReaderWithPos) Pos() int64 { return r.pos }

func (r *BufReaderWithPos) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.pos += int64(n)
	return n, err
}

func (r *BufReaderWithPos) ReadByte() (byte, error) {
	b, err := r.reader.ReadByte()
	if err == nil {
		r.pos++
	}
	return b, err
}

func (r *BufReaderWithPos) UnreadByte() error {
	if err := r.reader.UnreadByte(); err != nil {
		return err
	}
	r.pos--
	return nil
}

// Seek repositions the reader. Forward seeks that land inside the buffered
// window are served by discarding buffered bytes instead of a syscall.
func (r *BufReaderWithPos) Seek(offset int64, whence int) (int64, error) {
	if whence == io.SeekCurrent {
		offset += r.pos
		whence = io.SeekStart
	}
	if whence == io.SeekStart && offset >= r.pos && offset-r.pos <= int64(r.reader.Buffered()) {
		n, err := r.reader.Discard(int(offset - r.pos))
		r.pos += int64(n)
		return r.pos, err
	}

	pos, err := r.src.Seek(offset, whence)
	if err != nil {
		return r.pos, err
	}
	r.reader.Reset(r.src)
	r.pos = pos
	return pos, nil
}

// Close closes the underlying stream if it is closable.
func (r *BufReaderWithPos) Close() error {
	if c, ok := r.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// BufWriterWithPos is a buffered writer that tracks its absolute offset.
type BufWriterWithPos struct {
	dst    io.WriteSeeker
	writer *bufio.Writer
	pos    int64
}

func NewBufWriterWithPos(dst io.WriteSeeker) (*BufWriterWithPos, error) {
	pos, err := dst.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	return &BufWriterWithPos{
		dst:    dst,
		writer: bufio.NewWriter(dst),
		pos:    pos,
	}, nil
}

// Pos returns the offset the next write will land at.
func (w *BufWriterWithPos) Pos() int64 { return w.pos }

func (w *BufWriterWithPos) Write(p []byte) (int, error) {
	n, err := w.writer.Write(p)
	w.pos += int64(n)
	return n, err
}

func (w *BufWriterWithPos) Flush() error {
	return w.writer.Flush()
}

// Sync flushes buffered data and, when the destination supports it, commits
// it to stable storage.
func (w *BufWriterWithPos) Sync() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	if s, ok := w.dst.(interface{ Sync() error }); ok {
		return s.Sync()
	}
	return nil
}

func (w *BufWriterWithPos) Seek(offset int64, whence int) (int64, error) {
	if err := w.writer.Flush(); err != nil {
		return w.pos, err
	}
	pos, err := w.dst.Seek(offset, whence)
	if err != nil {
		return w.pos, err
	}
	w.pos = pos
	return pos, nil
}

// Rollback drops buffered bytes and cuts the destination back to pos, so a
// failed append leaves nothing for a later flush to write.
func (w *BufWriterWithPos) Rollback(pos int64) error {
	w.writer.Reset(w.dst)
	if t, ok := w.dst.(interface{ Truncate(int64) error }); ok {
		if err := t.Truncate(pos); err != nil {
			return err
		}
	}
	if _, err := w.dst.Seek(pos, io.SeekStart); err != nil {
		return err
	}
	w.pos = pos
	return nil
}

// Close flushes pending data and closes the destination if it is closable.
func (w *BufWriterWithPos) Close() error {
	flushErr := w.writer.Flush()
	if c, ok := w.dst.(io.Closer); ok {
		if err := c.Close(); err != nil && flushErr == nil {
			return err
		}
	}
	return flushErr
}
