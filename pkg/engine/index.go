package engine

import (
	"sync/atomic"

	iradix "github.com/hashicorp/go-immutable-radix"
)

// CommandPos locates one serialized command inside a segment.
type CommandPos struct {
	Gen uint64
	Pos uint64
	Len uint64
}

// Index maps keys to the position of their latest Set. It is an immutable
// radix tree behind an atomic pointer: readers load the root without locking
// and the single writer publishes a new root after each mutation.
type Index struct {
	root atomic.Pointer[iradix.Tree]
}

func NewIndex() *Index {
	ix := &Index{}
	ix.root.Store(iradix.New())
	return ix
}

func (ix *Index) Get(key string) (CommandPos, bool) {
	v, ok := ix.root.Load().Get([]byte(key))
	if !ok {
		return CommandPos{}, false
	}
	return v.(CommandPos), true
}

func (ix *Index) Len() int {
	return ix.root.Load().Len()
}

// Insert points key at pos and returns the entry it replaced.
// Callers must serialize mutations.
func (ix *Index) Insert(key string, pos CommandPos) (CommandPos, bool) {
	tree, old, replaced := ix.root.Load().Insert([]byte(key), pos)
	ix.root.Store(tree)
	if !replaced {
		return CommandPos{}, false
	}
	return old.(CommandPos), true
}

// Remove drops key and returns its last entry. Callers must serialize mutations.
func (ix *Index) Remove(key string) (CommandPos, bool) {
	tree, old, removed := ix.root.Load().Delete([]byte(key))
	if !removed {
		return CommandPos{}, false
	}
	ix.root.Store(tree)
	return old.(CommandPos), true
}

// Snapshot returns a consistent, immutable view of the index.
func (ix *Index) Snapshot() *IndexSnapshot {
	return &IndexSnapshot{tree: ix.root.Load()}
}

// Txn starts a batch of mutations based on snap that becomes visible only
// when committed.
func (ix *Index) Txn(snap *IndexSnapshot) *IndexTxn {
	return &IndexTxn{ix: ix, base: snap.tree, txn: snap.tree.Txn()}
}

// GenerationRefs counts the entries that point into each generation.
func (ix *Index) GenerationRefs() map[uint64]int {
	refs := make(map[uint64]int)
	ix.Snapshot().Walk(func(_ string, pos CommandPos) bool {
		refs[pos.Gen]++
		return false
	})
	return refs
}

// IndexSnapshot is a frozen view of the index.
type IndexSnapshot struct {
	tree *iradix.Tree
}

func (s *IndexSnapshot) Len() int { return s.tree.Len() }

// Walk visits entries in ascending key order until fn returns true.
func (s *IndexSnapshot) Walk(fn func(key string, pos CommandPos) bool) {
	s.tree.Root().Walk(func(k []byte, v interface{}) bool {
		return fn(string(k), v.(CommandPos))
	})
}

// IndexTxn batches index mutations.
type IndexTxn struct {
	ix   *Index
	base *iradix.Tree
	txn  *iradix.Txn
}

func (t *IndexTxn) Insert(key string, pos CommandPos) (CommandPos, bool) {
	old, replaced := t.txn.Insert([]byte(key), pos)
	if !replaced {
		return CommandPos{}, false
	}
	return old.(CommandPos), true
}

func (t *IndexTxn) Remove(key string) (CommandPos, bool) {
	old, removed := t.txn.Delete([]byte(key))
	if !removed {
		return CommandPos{}, false
	}
	return old.(CommandPos), true
}

// Commit publishes the batch. It fails if the index moved since the snapshot
// the transaction was started from.
func (t *IndexTxn) Commit() bool {
	return t.ix.root.CompareAndSwap(t.base, t.txn.Commit())
}
