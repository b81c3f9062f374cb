package engine

import (
	"fmt"
	"io"

	"github.com/downfa11-org/go-kvs/pkg/disk"
	"github.com/downfa11-org/go-kvs/pkg/types"
)

type indexMutator interface {
	Insert(key string, pos CommandPos) (CommandPos, bool)
	Remove(key string) (CommandPos, bool)
}

// load replays one segment into index and returns how many of its bytes, and
// of the entries it superseded, a compaction could reclaim.
func load(gen uint64, r *disk.BufReaderWithPos, index indexMutator) (uint64, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, types.IOError("rewind segment", err)
	}

	dec := NewCommandDecoder(r)
	var uncompacted uint64
	for {
		cmd, start, end, err := dec.Next()
		// only the bare sentinel marks a clean end; a wrapped EOF is a cut record
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("replay segment %d: %w", gen, err)
		}

		span := uint64(end - start)
		switch cmd.Kind {
		case CommandSet:
			if old, ok := index.Insert(cmd.Key, CommandPos{Gen: gen, Pos: uint64(start), Len: span}); ok {
				uncompacted += old.Len
			}
		case CommandRemove:
			if old, ok := index.Remove(cmd.Key); ok {
				uncompacted += old.Len
			}
			// the tombstone itself is reclaimable as soon as it is applied
			uncompacted += span
		}
	}
	return uncompacted, nil
}
