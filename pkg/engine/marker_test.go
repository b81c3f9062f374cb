package engine_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/downfa11-org/go-kvs/pkg/engine"
	"github.com/downfa11-org/go-kvs/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveEngine(t *testing.T) {
	tests := []struct {
		name      string
		marker    string
		requested string
		want      string
		wantErr   error
	}{
		{name: "FreshDefault", want: types.EngineKvs},
		{name: "FreshBolt", requested: types.EngineBolt, want: types.EngineBolt},
		{name: "AdoptMarker", marker: types.EngineBolt, want: types.EngineBolt},
		{name: "Matching", marker: types.EngineKvs, requested: types.EngineKvs, want: types.EngineKvs},
		{name: "Conflict", marker: types.EngineKvs, requested: types.EngineBolt, wantErr: types.ErrWrongEngine},
		{name: "InvalidMarkerIgnored", marker: "lmdb", requested: types.EngineBolt, want: types.EngineBolt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.marker != "" {
				require.NoError(t, os.WriteFile(filepath.Join(dir, engine.MarkerFile), []byte(tt.marker+"\n"), 0o644))
			}

			got, err := engine.ResolveEngine(dir, tt.requested)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpenEngineWritesMarker(t *testing.T) {
	dir := t.TempDir()

	eng, name, err := engine.OpenEngine(dir, "", engine.DefaultOptions(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, types.EngineKvs, name)
	require.NoError(t, eng.Set("k", "v"))
	require.NoError(t, eng.Close())

	current, err := engine.CurrentEngine(dir)
	require.NoError(t, err)
	assert.Equal(t, types.EngineKvs, current)

	_, _, err = engine.OpenEngine(dir, types.EngineBolt, engine.DefaultOptions(), time.Second)
	assert.ErrorIs(t, err, types.ErrWrongEngine)

	eng, name, err = engine.OpenEngine(dir, "", engine.DefaultOptions(), time.Second)
	require.NoError(t, err)
	defer eng.Close()
	assert.Equal(t, types.EngineKvs, name)

	v, ok, err := eng.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}
