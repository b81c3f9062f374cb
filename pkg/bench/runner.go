package bench

import (
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/downfa11-org/go-kvs/pkg/engine"
	"github.com/downfa11-org/go-kvs/pkg/pool"
	"github.com/downfa11-org/go-kvs/pkg/server"
	"github.com/downfa11-org/go-kvs/pkg/types"
	"github.com/downfa11-org/go-kvs/util"
	"golang.org/x/sync/errgroup"
)

// BenchmarkRunner compares engines by serving each from an in-process server
// over a temporary directory and driving it with concurrent clients.
type BenchmarkRunner struct {
	Engines       []string
	NumClients    int
	KeysPerClient int
	ReadsPerKey   int
	ValueSize     int
	Pool          string
	PoolSize      int
	Options       engine.Options
	Out           io.Writer
}

// Result holds the measurements of one engine.
type Result struct {
	Engine    string
	Writes    int
	Reads     int
	WriteTime time.Duration
	ReadTime  time.Duration
}

func (r Result) WriteThroughput() float64 { return float64(r.Writes) / r.WriteTime.Seconds() }
func (r Result) ReadThroughput() float64  { return float64(r.Reads) / r.ReadTime.Seconds() }

func NewBenchmarkRunner(engines []string, clients, keys, valueSize int) *BenchmarkRunner {
	opts := engine.DefaultOptions()
	opts.SyncWrites = false
	return &BenchmarkRunner{
		Engines:       engines,
		NumClients:    clients,
		KeysPerClient: keys,
		ReadsPerKey:   1,
		ValueSize:     valueSize,
		Pool:          pool.KindShared,
		PoolSize:      clients,
		Options:       opts,
		Out:           os.Stdout,
	}
}

// Run benchmarks every engine in turn and prints a report per engine.
func (b *BenchmarkRunner) Run() ([]Result, error) {
	results := make([]Result, 0, len(b.Engines))
	for _, name := range b.Engines {
		res, err := b.runEngine(name)
		if err != nil {
			return results, fmt.Errorf("benchmark %s: %w", name, err)
		}
		b.report(res)
		results = append(results, res)
	}
	return results, nil
}

func (b *BenchmarkRunner) openEngine(name, dir string) (types.KvsEngine, error) {
	switch name {
	case types.EngineKvs:
		return engine.OpenWithOptions(dir, b.Options)
	case types.EngineBolt:
		return engine.OpenBolt(dir, time.Second)
	default:
		return nil, fmt.Errorf("unknown engine %q", name)
	}
}

func (b *BenchmarkRunner) runEngine(name string) (Result, error) {
	dir, err := os.MkdirTemp("", "kvs-bench-"+name+"-")
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			util.Warn("remove benchmark directory %s: %v", dir, err)
		}
	}()

	eng, err := b.openEngine(name, dir)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if err := eng.Close(); err != nil {
			util.Error("close %s engine: %v", name, err)
		}
	}()

	p, err := pool.New(b.Pool, b.PoolSize)
	if err != nil {
		return Result{}, err
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		p.Close()
		return Result{}, err
	}
	srv := server.New(eng, p, server.Options{EngineName: name})
	go func() {
		if err := srv.Serve(ln); err != nil {
			util.Error("benchmark server for %s stopped: %v", name, err)
		}
	}()
	defer func() {
		if err := srv.Close(); err != nil {
			util.Warn("close benchmark server: %v", err)
		}
	}()

	clients := make([]*BenchClient, b.NumClients)
	for i := range clients {
		clients[i] = &BenchClient{Addr: ln.Addr().String(), ID: i, NumKeys: b.KeysPerClient, ValueSize: b.ValueSize}
	}

	res := Result{Engine: name, Writes: b.NumClients * b.KeysPerClient}
	start := time.Now()
	if err := b.phase(clients, func(c *BenchClient) error { return c.RunWritePhase() }); err != nil {
		return res, fmt.Errorf("write phase: %w", err)
	}
	res.WriteTime = time.Since(start)

	reads := b.KeysPerClient * b.ReadsPerKey
	res.Reads = b.NumClients * reads
	start = time.Now()
	if err := b.phase(clients, func(c *BenchClient) error { return c.RunReadPhase(reads, int64(c.ID)) }); err != nil {
		return res, fmt.Errorf("read phase: %w", err)
	}
	res.ReadTime = time.Since(start)

	return res, nil
}

func (b *BenchmarkRunner) phase(clients []*BenchClient, fn func(*BenchClient) error) error {
	var g errgroup.Group
	for _, c := range clients {
		c := c
		g.Go(func() error { return fn(c) })
	}
	return g.Wait()
}

func (b *BenchmarkRunner) report(r Result) {
	fmt.Fprintf(b.Out, "\n🧪 BENCHMARK RESULT [%s] 🧪\n", r.Engine)
	fmt.Fprintf(b.Out, "-------------------------------------\n")
	fmt.Fprintf(b.Out, " Clients       : %d\n", b.NumClients)
	fmt.Fprintf(b.Out, " Value Size    : %d bytes\n", b.ValueSize)
	fmt.Fprintf(b.Out, " Writes        : %d in %v (%.2f ops/sec)\n", r.Writes, r.WriteTime, r.WriteThroughput())
	fmt.Fprintf(b.Out, " Reads         : %d in %v (%.2f ops/sec)\n", r.Reads, r.ReadTime, r.ReadThroughput())
	fmt.Fprintf(b.Out, "-------------------------------------\n")
}
