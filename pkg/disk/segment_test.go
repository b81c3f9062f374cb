package disk_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/downfa11-org/go-kvs/pkg/disk"
	"github.com/downfa11-org/go-kvs/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
}

func TestSortedGenerations(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"300.log", "100.log", "200.log", "engine", "notes.txt", "12.log.deleted"} {
		touch(t, dir, name)
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "400.log"), 0o755))

	gens, err := disk.SortedGenerations(dir, false)
	require.NoError(t, err)
	assert.Equal(t, []uint64{100, 200, 300}, gens)
}

func TestSortedGenerationsMalformedNames(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{"NonNumeric", "abc.log"},
		{"Negative", "-1.log"},
		{"LeadingZero", "007.log"},
		{"EmptyStem", ".log"},
		{"Overflow", "18446744073709551616.log"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			touch(t, dir, "5.log")
			touch(t, dir, tt.file)

			gens, err := disk.SortedGenerations(dir, false)
			require.NoError(t, err)
			assert.Equal(t, []uint64{5}, gens)

			_, err = disk.SortedGenerations(dir, true)
			require.Error(t, err)
			assert.True(t, errors.Is(err, disk.ErrInvalidSegmentName))
		})
	}
}

func TestSortedGenerationsMissingDir(t *testing.T) {
	_, err := disk.SortedGenerations(filepath.Join(t.TempDir(), "missing"), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLogPathRoundtrip(t *testing.T) {
	path := disk.LogPath("/data", 42)
	assert.Equal(t, filepath.Join("/data", "42.log"), path)

	gen, ok := disk.ParseGeneration(filepath.Base(path))
	require.True(t, ok)
	assert.Equal(t, uint64(42), gen)
}

func TestRemoveSegment(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "7.log")

	require.NoError(t, disk.RemoveSegment(dir, 7))
	assert.NoFileExists(t, disk.LogPath(dir, 7))
	require.NoError(t, disk.RemoveSegment(dir, 7), "removing a missing segment is not an error")
}
