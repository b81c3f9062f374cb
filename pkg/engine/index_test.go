package engine_test

import (
	"testing"

	"github.com/downfa11-org/go-kvs/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexInsertRemove(t *testing.T) {
	ix := engine.NewIndex()

	_, replaced := ix.Insert("k", engine.CommandPos{Gen: 1, Pos: 0, Len: 10})
	assert.False(t, replaced)

	old, replaced := ix.Insert("k", engine.CommandPos{Gen: 1, Pos: 10, Len: 12})
	require.True(t, replaced)
	assert.Equal(t, engine.CommandPos{Gen: 1, Pos: 0, Len: 10}, old)

	pos, ok := ix.Get("k")
	require.True(t, ok)
	assert.Equal(t, uint64(10), pos.Pos)

	old, removed := ix.Remove("k")
	require.True(t, removed)
	assert.Equal(t, uint64(12), old.Len)

	_, ok = ix.Get("k")
	assert.False(t, ok)
	_, removed = ix.Remove("k")
	assert.False(t, removed)
	assert.Equal(t, 0, ix.Len())
}

func TestIndexWalkOrderAndSnapshotIsolation(t *testing.T) {
	ix := engine.NewIndex()
	for i, k := range []string{"pear", "apple", "fig", "banana"} {
		ix.Insert(k, engine.CommandPos{Gen: 1, Pos: uint64(i)})
	}

	snap := ix.Snapshot()
	ix.Insert("cherry", engine.CommandPos{Gen: 2})
	ix.Remove("apple")

	var keys []string
	snap.Walk(func(key string, _ engine.CommandPos) bool {
		keys = append(keys, key)
		return false
	})
	assert.Equal(t, []string{"apple", "banana", "fig", "pear"}, keys)
	assert.Equal(t, 4, snap.Len())
	assert.Equal(t, 4, ix.Len())
}

func TestIndexTxn(t *testing.T) {
	ix := engine.NewIndex()
	ix.Insert("a", engine.CommandPos{Gen: 1})
	ix.Insert("b", engine.CommandPos{Gen: 1})

	txn := ix.Txn(ix.Snapshot())
	txn.Insert("a", engine.CommandPos{Gen: 3})
	txn.Insert("b", engine.CommandPos{Gen: 3})

	pos, _ := ix.Get("a")
	assert.Equal(t, uint64(1), pos.Gen, "uncommitted changes must stay invisible")

	require.True(t, txn.Commit())
	pos, _ = ix.Get("b")
	assert.Equal(t, uint64(3), pos.Gen)
	assert.Equal(t, map[uint64]int{3: 2}, ix.GenerationRefs())

	stale := ix.Txn(ix.Snapshot())
	stale.Remove("a")
	ix.Insert("c", engine.CommandPos{Gen: 4})
	assert.False(t, stale.Commit(), "commit must fail once the index moved")
	_, ok := ix.Get("a")
	assert.True(t, ok)
}
