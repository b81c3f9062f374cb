package client_test

import (
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/downfa11-org/go-kvs/pkg/client"
	"github.com/downfa11-org/go-kvs/pkg/engine"
	"github.com/downfa11-org/go-kvs/pkg/pool"
	"github.com/downfa11-org/go-kvs/pkg/server"
	"github.com/downfa11-org/go-kvs/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, eng types.KvsEngine, name string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	p, err := pool.New(pool.KindShared, 8)
	require.NoError(t, err)
	srv := server.New(eng, p, server.Options{EngineName: name})
	go func() { _ = srv.Serve(ln) }()

	t.Cleanup(func() {
		_ = srv.Close()
		_ = eng.Close()
	})
	return ln.Addr().String()
}

func TestClientAgainstEngines(t *testing.T) {
	openers := map[string]func(dir string) (types.KvsEngine, error){
		types.EngineKvs: func(dir string) (types.KvsEngine, error) {
			return engine.Open(dir)
		},
		types.EngineBolt: func(dir string) (types.KvsEngine, error) {
			return engine.OpenBolt(dir, 0)
		},
	}

	for name, open := range openers {
		t.Run(name, func(t *testing.T) {
			eng, err := open(t.TempDir())
			require.NoError(t, err)
			addr := startServer(t, eng, name)

			c, err := client.Connect(addr, nil)
			require.NoError(t, err)
			defer c.Close()

			require.NoError(t, c.Set("key1", "value1"))
			v, ok, err := c.Get("key1")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "value1", v)

			_, ok, err = c.Get("key2")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, c.Set("key1", ""))
			v, ok, err = c.Get("key1")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "", v)

			require.NoError(t, c.Remove("key1"))
			assert.ErrorIs(t, c.Remove("key1"), types.ErrKeyNotFound)
		})
	}
}

func TestConcurrentClients(t *testing.T) {
	eng, err := engine.Open(t.TempDir())
	require.NoError(t, err)
	addr := startServer(t, eng, types.EngineKvs)

	var wg sync.WaitGroup
	errCh := make(chan error, 8)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			c, err := client.Connect(addr, nil)
			if err != nil {
				errCh <- err
				return
			}
			defer c.Close()

			for i := 0; i < 50; i++ {
				key := fmt.Sprintf("w%d-key%d", w, i)
				if err := c.Set(key, key); err != nil {
					errCh <- err
					return
				}
				v, ok, err := c.Get(key)
				if err != nil || !ok || v != key {
					errCh <- fmt.Errorf("get %s: %q %v %v", key, v, ok, err)
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Error(err)
	}
}

func TestConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = client.Connect(addr, nil)
	assert.ErrorIs(t, err, types.ErrIO)
}
