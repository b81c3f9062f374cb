package engine

import (
	"fmt"

	"github.com/downfa11-org/go-kvs/util"
)

// DefaultCompactionThreshold is the reclaimable byte count that triggers compaction.
const DefaultCompactionThreshold uint64 = 1024 * 1024

// Options tunes a KvStore.
type Options struct {
	// CompactionThreshold triggers compaction once reclaimable bytes exceed it.
	CompactionThreshold uint64

	// SyncWrites fsyncs the active segment after every mutation. When false,
	// mutations are only flushed to the operating system.
	SyncWrites bool

	// Compression names the codec applied to values of new Set commands.
	Compression string

	// StrictSegmentNames fails Open on segment files with malformed names
	// instead of skipping them.
	StrictSegmentNames bool
}

func DefaultOptions() Options {
	return Options{
		CompactionThreshold: DefaultCompactionThreshold,
		SyncWrites:          true,
		Compression:         util.CodecNone,
	}
}

func (o *Options) normalize() error {
	if o.CompactionThreshold == 0 {
		o.CompactionThreshold = DefaultCompactionThreshold
	}
	if o.Compression == "" {
		o.Compression = util.CodecNone
	}
	if !util.ValidCodec(o.Compression) {
		return fmt.Errorf("unsupported compression %q", o.Compression)
	}
	return nil
}
