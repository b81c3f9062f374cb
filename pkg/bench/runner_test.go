package bench_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/downfa11-org/go-kvs/pkg/bench"
	"github.com/downfa11-org/go-kvs/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerComparesEngines(t *testing.T) {
	r := bench.NewBenchmarkRunner([]string{types.EngineKvs, types.EngineBolt}, 4, 25, 64)
	var out bytes.Buffer
	r.Out = &out

	results, err := r.Run()
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, res := range results {
		assert.Equal(t, 100, res.Writes)
		assert.Equal(t, 100, res.Reads)
		assert.Greater(t, res.WriteTime, time.Duration(0))
	}
	assert.Contains(t, out.String(), "BENCHMARK RESULT [kvs]")
	assert.Contains(t, out.String(), "BENCHMARK RESULT [bolt]")
}

func TestRunnerRejectsUnknownEngine(t *testing.T) {
	r := bench.NewBenchmarkRunner([]string{"lmdb"}, 1, 1, 8)
	r.Out = &bytes.Buffer{}
	_, err := r.Run()
	assert.Error(t, err)
}
