package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/downfa11-org/go-kvs/pkg/disk"
	"github.com/downfa11-org/go-kvs/pkg/metrics"
	"github.com/downfa11-org/go-kvs/util"
)

var errIndexMoved = errors.New("index changed during compaction")

// compactLocked rewrites every live entry into a fresh segment and retires
// the segments nothing points at anymore. w.mu must be held.
//
// Two generations are allocated: currentGen+1 receives the live entries and
// currentGen+2 becomes the new active segment, so writes after a compaction
// always replay after the compacted copies. The index is switched to the new
// positions in one step once the target is durable; on any failure before
// that point the old segments and the old index stay in place.
func (w *writer) compactLocked() error {
	start := time.Now()
	reclaimable := w.uncompacted.Load()
	compactionGen := w.currentGen + 1
	nextGen := w.currentGen + 2

	util.Info("compaction started: %d reclaimable bytes, target segment %d", reclaimable, compactionGen)

	err := w.rewriteLocked(compactionGen, nextGen)
	metrics.ObserveCompaction(time.Since(start), reclaimable, err)
	if err != nil {
		util.Error("compaction into segment %d aborted: %v", compactionGen, err)
		return fmt.Errorf("compaction: %w", err)
	}

	w.compactions.Add(1)
	w.publishGauges()
	util.Info("compaction finished in %s: reclaimed %d bytes, %d live keys", time.Since(start), reclaimable, w.index.Len())
	return nil
}

func (w *writer) rewriteLocked(compactionGen, nextGen uint64) error {
	target, err := disk.NewLogFile(w.dir, compactionGen)
	if err != nil {
		return err
	}
	abort := func(cause error) error {
		_ = target.Close()
		if rmErr := disk.RemoveSegment(w.dir, compactionGen); rmErr != nil {
			util.Error("remove partial compaction segment %d: %v", compactionGen, rmErr)
		}
		return cause
	}

	snap := w.index.Snapshot()
	txn := w.index.Txn(snap)
	var copyErr error
	snap.Walk(func(key string, pos CommandPos) bool {
		newPos := uint64(target.Pos())
		n, err := w.reader.copyTo(pos, target)
		if err != nil {
			copyErr = fmt.Errorf("copy %q from segment %d: %w", key, pos.Gen, err)
			return true
		}
		txn.Insert(key, CommandPos{Gen: compactionGen, Pos: newPos, Len: n})
		return false
	})
	if copyErr != nil {
		return abort(copyErr)
	}
	if err := target.Sync(); err != nil {
		return abort(fmt.Errorf("sync compaction segment: %w", err))
	}
	if err := target.Close(); err != nil {
		return abort(fmt.Errorf("close compaction segment: %w", err))
	}

	next, err := disk.NewLogFile(w.dir, nextGen)
	if err != nil {
		return abort(err)
	}
	if !txn.Commit() {
		_ = next.Close()
		_ = disk.RemoveSegment(w.dir, nextGen)
		return abort(errIndexMoved)
	}

	// From here on the index resolves only to compactionGen; switch the
	// active segment and retire everything older.
	w.safePoint.Store(compactionGen)
	if err := w.log.Close(); err != nil {
		util.Error("close segment %d after compaction: %v", w.currentGen, err)
	}
	w.log = next
	w.currentGen = nextGen
	w.uncompacted.Store(0)

	w.retireStaleLocked(compactionGen)
	w.gens = append(w.gens, compactionGen, nextGen)
	return nil
}

// retireStaleLocked deletes segments older than compactionGen that the index
// no longer references.
func (w *writer) retireStaleLocked(compactionGen uint64) {
	refs := w.index.GenerationRefs()
	kept := w.gens[:0]
	for _, gen := range w.gens {
		if gen >= compactionGen || refs[gen] > 0 {
			kept = append(kept, gen)
			continue
		}
		if err := w.reader.drop(gen); err != nil {
			util.Error("close reader for segment %d: %v", gen, err)
		}
		if err := disk.RemoveSegment(w.dir, gen); err != nil {
			util.Error("delete stale segment %d: %v", gen, err)
			kept = append(kept, gen)
			continue
		}
		util.Debug("deleted stale segment %d", gen)
	}
	w.gens = kept
}
