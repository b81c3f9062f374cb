package engine

import (
	"sync"
	"sync/atomic"

	"github.com/downfa11-org/go-kvs/pkg/disk"
	"github.com/downfa11-org/go-kvs/pkg/metrics"
	"github.com/downfa11-org/go-kvs/pkg/types"
	"github.com/downfa11-org/go-kvs/util"
	"github.com/hashicorp/go-multierror"
)

// writer owns the active segment. All mutations, compaction included, run
// under mu, so the log sees exactly one append at a time.
type writer struct {
	mu   sync.Mutex
	dir  string
	opts Options

	// private handles used to copy live entries during compaction
	reader *readerSet

	log        *disk.BufWriterWithPos
	currentGen uint64
	// generations present on disk, ascending
	gens []uint64

	index     *Index
	safePoint *atomic.Uint64

	uncompacted atomic.Uint64
	compactions atomic.Uint64
	closed      bool
	// set when a failed append could not be rolled back; the segment tail is
	// unknown, so further appends are refused
	failed error
}

func (w *writer) append(cmd Command) (CommandPos, error) {
	data, err := EncodeCommand(cmd)
	if err != nil {
		return CommandPos{}, err
	}

	start := w.log.Pos()
	if _, err := w.log.Write(data); err != nil {
		return CommandPos{}, w.rollback(start, types.IOError("append command", err))
	}
	if w.opts.SyncWrites {
		err = w.log.Sync()
	} else {
		err = w.log.Flush()
	}
	if err != nil {
		return CommandPos{}, w.rollback(start, types.IOError("flush segment", err))
	}
	return CommandPos{Gen: w.currentGen, Pos: uint64(start), Len: uint64(w.log.Pos() - start)}, nil
}

// rollback cuts the active segment back to start after a failed append.
func (w *writer) rollback(start int64, cause error) error {
	if err := w.log.Rollback(start); err != nil {
		util.Error("rolling back segment %d to offset %d: %v", w.currentGen, start, err)
		w.failed = multierror.Append(cause, types.IOError("roll back segment", err))
		return w.failed
	}
	util.Warn("append to segment %d failed, rolled back to offset %d: %v", w.currentGen, start, cause)
	return cause
}

func (w *writer) usable() error {
	if w.closed {
		return types.ErrClosed
	}
	return w.failed
}

func (w *writer) set(key, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.usable(); err != nil {
		return err
	}

	cmd, err := NewSetCommand(key, value, w.opts.Compression)
	if err != nil {
		return err
	}
	pos, err := w.append(cmd)
	if err != nil {
		return err
	}
	if old, ok := w.index.Insert(key, pos); ok {
		w.uncompacted.Add(old.Len)
	}
	w.publishGauges()

	return w.maybeCompactLocked()
}

func (w *writer) remove(key string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.usable(); err != nil {
		return err
	}
	if _, ok := w.index.Get(key); !ok {
		return types.ErrKeyNotFound
	}

	pos, err := w.append(NewRemoveCommand(key))
	if err != nil {
		return err
	}
	if old, ok := w.index.Remove(key); ok {
		w.uncompacted.Add(old.Len)
	}
	w.uncompacted.Add(pos.Len)
	w.publishGauges()

	return w.maybeCompactLocked()
}

func (w *writer) maybeCompactLocked() error {
	if w.uncompacted.Load() <= w.opts.CompactionThreshold {
		return nil
	}
	return w.compactLocked()
}

func (w *writer) compact() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.usable(); err != nil {
		return err
	}
	return w.compactLocked()
}

func (w *writer) publishGauges() {
	metrics.ReclaimableBytes.Set(float64(w.uncompacted.Load()))
	metrics.LiveKeys.Set(float64(w.index.Len()))
	metrics.SegmentCount.Set(float64(len(w.gens)))
}

func (w *writer) close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	var result *multierror.Error
	if err := w.log.Sync(); err != nil {
		result = multierror.Append(result, types.IOError("sync active segment", err))
	}
	if err := w.log.Close(); err != nil {
		result = multierror.Append(result, types.IOError("close active segment", err))
	}
	if err := w.reader.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if result.ErrorOrNil() != nil {
		util.Error("closing store at %s: %v", w.dir, result)
	}
	return result.ErrorOrNil()
}
