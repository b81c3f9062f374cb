package main

import (
	"flag"
	"strings"

	"github.com/downfa11-org/go-kvs/pkg/bench"
	"github.com/downfa11-org/go-kvs/pkg/pool"
	"github.com/downfa11-org/go-kvs/util"
)

func main() {
	engines := flag.String("engines", "kvs,bolt", "comma-separated engines to compare")
	clients := flag.Int("clients", 8, "number of concurrent clients")
	keys := flag.Int("keys", 1000, "keys written per client")
	reads := flag.Int("reads-per-key", 1, "random reads per written key")
	valueSize := flag.Int("value-size", 100, "value size in bytes")
	poolKind := flag.String("pool", pool.KindShared, "server thread pool (naive, shared, bounded)")
	syncWrites := flag.Bool("sync-writes", false, "fsync every kvs mutation")
	flag.Parse()

	runner := bench.NewBenchmarkRunner(strings.Split(*engines, ","), *clients, *keys, *valueSize)
	runner.ReadsPerKey = *reads
	runner.Pool = *poolKind
	runner.Options.SyncWrites = *syncWrites

	if _, err := runner.Run(); err != nil {
		util.Fatal("❌ Benchmark failed: %v", err)
	}
}
