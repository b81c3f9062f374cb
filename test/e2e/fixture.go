package e2e

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/downfa11-org/go-kvs/pkg/client"
	"github.com/downfa11-org/go-kvs/pkg/engine"
	"github.com/downfa11-org/go-kvs/pkg/pool"
	"github.com/downfa11-org/go-kvs/pkg/server"
	"github.com/downfa11-org/go-kvs/pkg/types"
)

// TestContext carries the state of one scenario through Given, When and Then.
type TestContext struct {
	t *testing.T

	dataDir    string
	engineName string
	poolKind   string
	poolSize   int
	opts       engine.Options

	numKeys int
	rounds  int
	removed map[string]bool

	eng    types.KvsEngine
	srv    *server.Server
	addr   string
	client *client.KvsClient

	lastError error
}

func Given(t *testing.T) *TestContext {
	opts := engine.DefaultOptions()
	opts.SyncWrites = false
	return &TestContext{
		t:          t,
		dataDir:    t.TempDir(),
		engineName: types.EngineKvs,
		poolKind:   pool.KindShared,
		poolSize:   4,
		opts:       opts,
		numKeys:    10,
		rounds:     1,
		removed:    make(map[string]bool),
	}
}

func (c *TestContext) WithEngine(name string) *TestContext {
	c.engineName = name
	return c
}

func (c *TestContext) WithPool(kind string, size int) *TestContext {
	c.poolKind = kind
	c.poolSize = size
	return c
}

func (c *TestContext) WithNumKeys(n int) *TestContext {
	c.numKeys = n
	return c
}

func (c *TestContext) WithRounds(n int) *TestContext {
	c.rounds = n
	return c
}

func (c *TestContext) WithCompactionThreshold(n uint64) *TestContext {
	c.opts.CompactionThreshold = n
	return c
}

func (c *TestContext) WithCompression(codec string) *TestContext {
	c.opts.Compression = codec
	return c
}

func (c *TestContext) When() *Actions {
	return &Actions{ctx: c}
}

func (c *TestContext) Then() *Consequences {
	return &Consequences{ctx: c}
}

func (c *TestContext) key(i int) string {
	return fmt.Sprintf("key-%d", i)
}

func (c *TestContext) value(i int) string {
	return fmt.Sprintf("value-%d-round-%d", i, c.rounds)
}

func (c *TestContext) startServer() error {
	eng, name, err := engine.OpenEngine(c.dataDir, c.engineName, c.opts, time.Second)
	if err != nil {
		return err
	}
	p, err := pool.New(c.poolKind, c.poolSize)
	if err != nil {
		_ = eng.Close()
		return err
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		p.Close()
		_ = eng.Close()
		return err
	}

	c.eng = eng
	c.srv = server.New(eng, p, server.Options{EngineName: name})
	c.addr = ln.Addr().String()
	go func() {
		if err := c.srv.Serve(ln); err != nil {
			c.t.Logf("server stopped: %v", err)
		}
	}()
	return nil
}

func (c *TestContext) stopServer() {
	if c.client != nil {
		_ = c.client.Close()
		c.client = nil
	}
	if c.srv != nil {
		if err := c.srv.Close(); err != nil {
			c.t.Logf("close server: %v", err)
		}
		c.srv = nil
	}
	if c.eng != nil {
		if err := c.eng.Close(); err != nil {
			c.t.Errorf("close engine: %v", err)
		}
		c.eng = nil
	}
}

func (c *TestContext) getClient() *client.KvsClient {
	if c.client == nil {
		kc, err := client.Connect(c.addr, nil)
		if err != nil {
			c.t.Fatalf("connect to %s: %v", c.addr, err)
		}
		c.client = kc
	}
	return c.client
}

func (c *TestContext) Cleanup() {
	c.stopServer()
}
