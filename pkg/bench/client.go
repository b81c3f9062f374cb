package bench

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/downfa11-org/go-kvs/pkg/client"
)

// BenchClient drives one connection through the write and read phases.
type BenchClient struct {
	Addr      string
	ID        int
	NumKeys   int
	ValueSize int
}

func (c *BenchClient) key(i int) string {
	return fmt.Sprintf("bench-C%d-key%d", c.ID, i)
}

func (c *BenchClient) value(i int) string {
	prefix := fmt.Sprintf("C%d-V%d-", c.ID, i)
	if len(prefix) >= c.ValueSize {
		return prefix
	}
	return prefix + strings.Repeat("x", c.ValueSize-len(prefix))
}

// RunWritePhase sets every key of this client once.
func (c *BenchClient) RunWritePhase() error {
	kc, err := client.Connect(c.Addr, nil)
	if err != nil {
		return fmt.Errorf("[C%d] connection failed: %w", c.ID, err)
	}
	defer kc.Close()

	for i := 0; i < c.NumKeys; i++ {
		if err := kc.Set(c.key(i), c.value(i)); err != nil {
			return fmt.Errorf("[C%d] set %s failed: %w", c.ID, c.key(i), err)
		}
	}
	return nil
}

// RunReadPhase reads count random keys written by this client and checks
// their values.
func (c *BenchClient) RunReadPhase(count int, seed int64) error {
	kc, err := client.Connect(c.Addr, nil)
	if err != nil {
		return fmt.Errorf("[C%d] connection failed: %w", c.ID, err)
	}
	defer kc.Close()

	rng := rand.New(rand.NewSource(seed))
	for n := 0; n < count; n++ {
		i := rng.Intn(c.NumKeys)
		v, ok, err := kc.Get(c.key(i))
		if err != nil {
			return fmt.Errorf("[C%d] get %s failed: %w", c.ID, c.key(i), err)
		}
		if !ok {
			return fmt.Errorf("[C%d] key %s missing", c.ID, c.key(i))
		}
		if v != c.value(i) {
			return fmt.Errorf("[C%d] key %s holds unexpected value of %d bytes", c.ID, c.key(i), len(v))
		}
	}
	return nil
}
