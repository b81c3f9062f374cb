package e2e

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/downfa11-org/go-kvs/pkg/disk"
)

// Consequences represents test assertions (Then phase)
type Consequences struct {
	ctx *TestContext
}

// Expectation is a function that validates test outcomes
type Expectation func(*TestContext) error

func (c *Consequences) Expect(expectations ...Expectation) *Consequences {
	for _, expectation := range expectations {
		if err := expectation(c.ctx); err != nil {
			c.ctx.t.Error(err)
		}
	}
	return c
}

func (c *Consequences) And(expectations ...Expectation) *Consequences {
	return c.Expect(expectations...)
}

// NoError verifies that no action failed.
func NoError() Expectation {
	return func(ctx *TestContext) error {
		if ctx.lastError != nil {
			return fmt.Errorf("unexpected error: %w", ctx.lastError)
		}
		return nil
	}
}

// FailedWith verifies the last action failed with target.
func FailedWith(target error) Expectation {
	return func(ctx *TestContext) error {
		if !errors.Is(ctx.lastError, target) {
			return fmt.Errorf("expected %v, got %v", target, ctx.lastError)
		}
		return nil
	}
}

// KeysHoldLatestValues verifies every key not removed holds its last written value.
func KeysHoldLatestValues() Expectation {
	return func(ctx *TestContext) error {
		for i := 0; i < ctx.numKeys; i++ {
			key := ctx.key(i)
			v, ok, err := ctx.getClient().Get(key)
			if err != nil {
				return fmt.Errorf("get %s: %w", key, err)
			}
			if ctx.removed[key] {
				if ok {
					return fmt.Errorf("removed key %s still holds %q", key, v)
				}
				continue
			}
			if !ok {
				return fmt.Errorf("key %s missing", key)
			}
			if v != ctx.value(i) {
				return fmt.Errorf("key %s: expected %q, got %q", key, ctx.value(i), v)
			}
		}
		return nil
	}
}

// DataDirBelow verifies the segments in the data directory total fewer than limit bytes.
func DataDirBelow(limit int64) Expectation {
	return func(ctx *TestContext) error {
		gens, err := disk.SortedGenerations(ctx.dataDir, false)
		if err != nil {
			return err
		}
		var total int64
		for _, gen := range gens {
			info, err := os.Stat(disk.LogPath(ctx.dataDir, gen))
			if err != nil {
				return err
			}
			total += info.Size()
		}
		if total >= limit {
			return fmt.Errorf("segments hold %d bytes, expected fewer than %d", total, limit)
		}
		return nil
	}
}

// EngineRecorded verifies the engine marker of the data directory.
func EngineRecorded(name string) Expectation {
	return func(ctx *TestContext) error {
		data, err := os.ReadFile(filepath.Join(ctx.dataDir, "engine"))
		if err != nil {
			return err
		}
		if string(data) != name {
			return fmt.Errorf("expected engine marker %q, got %q", name, data)
		}
		return nil
	}
}
