package engine

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/downfa11-org/go-kvs/pkg/disk"
	"github.com/downfa11-org/go-kvs/pkg/types"
	"github.com/downfa11-org/go-kvs/util"
)

// maxStaleRetries bounds how often Get re-resolves a key whose segment was
// retired by a concurrent compaction between the index lookup and the read.
const maxStaleRetries = 3

// testHookResolved, when set, runs after Get resolves a key and before it
// opens the segment.
var testHookResolved func(key string, pos CommandPos)

// KvStore stores string key/value pairs in a log-structured directory.
//
// Every mutation is appended to the active segment, a file named after a
// monotonically increasing generation number with a ".log" extension. An
// in-memory index maps each key to the position of its latest Set, and a
// compaction rewrites live entries once enough bytes are superseded.
//
// A KvStore may be used from many goroutines. For parallel readers, give each
// one its own handle via Clone so that lookups never share file cursors.
type KvStore struct {
	dir       string
	index     *Index
	safePoint *atomic.Uint64
	reader    *readerSet
	writer    *writer

	refs      *atomic.Int32
	closeOnce sync.Once
	closed    atomic.Bool
}

var (
	_ types.KvsEngine = (*KvStore)(nil)
	_ types.Cloner    = (*KvStore)(nil)
)

// Open opens the store in dir with DefaultOptions.
func Open(dir string) (*KvStore, error) {
	return OpenWithOptions(dir, DefaultOptions())
}

// OpenWithOptions creates dir if needed, replays every segment in generation
// order and starts a new active segment. Any I/O or decode failure during
// replay fails the open.
func OpenWithOptions(dir string, opts Options) (*KvStore, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, types.IOError("create data directory", err)
	}

	gens, err := disk.SortedGenerations(dir, opts.StrictSegmentNames)
	if err != nil {
		return nil, err
	}

	index := NewIndex()
	txn := index.Txn(index.Snapshot())
	var uncompacted uint64
	for _, gen := range gens {
		n, err := loadSegment(dir, gen, txn)
		if err != nil {
			return nil, err
		}
		uncompacted += n
	}
	txn.Commit()

	var currentGen uint64 = 1
	if len(gens) > 0 {
		currentGen = gens[len(gens)-1] + 1
	}
	log, err := disk.NewLogFile(dir, currentGen)
	if err != nil {
		return nil, err
	}

	safePoint := &atomic.Uint64{}
	w := &writer{
		dir:        dir,
		opts:       opts,
		reader:     newReaderSet(dir, safePoint),
		log:        log,
		currentGen: currentGen,
		gens:       append(gens, currentGen),
		index:      index,
		safePoint:  safePoint,
	}
	w.uncompacted.Store(uncompacted)
	w.publishGauges()

	util.Info("opened store at %s: %d segments, %d keys, %d reclaimable bytes, active segment %d",
		dir, len(gens), index.Len(), uncompacted, currentGen)

	refs := &atomic.Int32{}
	refs.Store(1)
	return &KvStore{
		dir:       dir,
		index:     index,
		safePoint: safePoint,
		reader:    newReaderSet(dir, safePoint),
		writer:    w,
		refs:      refs,
	}, nil
}

func loadSegment(dir string, gen uint64, index indexMutator) (uint64, error) {
	seg, err := disk.OpenMapped(dir, gen)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := seg.Close(); err != nil {
			util.Error("unmap segment %d: %v", gen, err)
		}
	}()
	return load(gen, seg.BufReaderWithPos, index)
}

// Clone returns a handle that shares the index and writer but owns its own
// segment readers. Each clone must be closed; the store is released when the
// last handle is closed.
func (s *KvStore) Clone() *KvStore {
	s.refs.Add(1)
	return &KvStore{
		dir:       s.dir,
		index:     s.index,
		safePoint: s.safePoint,
		reader:    s.reader.clone(),
		writer:    s.writer,
		refs:      s.refs,
	}
}

// CloneEngine implements types.Cloner.
func (s *KvStore) CloneEngine() types.KvsEngine { return s.Clone() }

func (s *KvStore) Set(key, value string) error {
	if s.closed.Load() {
		return types.ErrClosed
	}
	return s.writer.set(key, value)
}

func (s *KvStore) Get(key string) (string, bool, error) {
	if s.closed.Load() {
		return "", false, types.ErrClosed
	}

	for attempt := 0; ; attempt++ {
		pos, ok := s.index.Get(key)
		if !ok {
			return "", false, nil
		}
		if testHookResolved != nil {
			testHookResolved(key, pos)
		}

		cmd, err := s.reader.readCommand(pos)
		if err != nil {
			if attempt < maxStaleRetries && errors.Is(err, os.ErrNotExist) && pos.Gen < s.safePoint.Load() {
				continue
			}
			return "", false, err
		}
		if cmd.Kind != CommandSet {
			return "", false, fmt.Errorf("%w: %s record at %d:%d for key %q",
				types.ErrUnexpectedCommandType, cmd.Kind, pos.Gen, pos.Pos, key)
		}
		if cmd.Key != key {
			return "", false, types.CorruptLogError("get",
				fmt.Errorf("entry for %q at %d:%d holds key %q", key, pos.Gen, pos.Pos, cmd.Key))
		}

		value, err := cmd.StringValue()
		if err != nil {
			return "", false, err
		}
		return value, true, nil
	}
}

func (s *KvStore) Remove(key string) error {
	if s.closed.Load() {
		return types.ErrClosed
	}
	return s.writer.remove(key)
}

// Compact forces a compaction regardless of the reclaimable byte count.
func (s *KvStore) Compact() error {
	if s.closed.Load() {
		return types.ErrClosed
	}
	return s.writer.compact()
}

// Stats is a point-in-time view of the store's bookkeeping.
type Stats struct {
	ActiveGeneration uint64
	SafePoint        uint64
	Segments         int
	Keys             int
	ReclaimableBytes uint64
	Compactions      uint64
}

func (s *KvStore) Stats() Stats {
	s.writer.mu.Lock()
	defer s.writer.mu.Unlock()

	return Stats{
		ActiveGeneration: s.writer.currentGen,
		SafePoint:        s.safePoint.Load(),
		Segments:         len(s.writer.gens),
		Keys:             s.index.Len(),
		ReclaimableBytes: s.writer.uncompacted.Load(),
		Compactions:      s.writer.compactions.Load(),
	}
}

// Close releases this handle's readers and, for the last open handle, flushes
// and closes the active segment.
func (s *KvStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		err = s.reader.Close()
		if s.refs.Add(-1) == 0 {
			if werr := s.writer.close(); werr != nil && err == nil {
				err = werr
			}
		}
	})
	return err
}
