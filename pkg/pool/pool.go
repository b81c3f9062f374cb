package pool

import (
	"fmt"
	"runtime/debug"

	"github.com/downfa11-org/go-kvs/pkg/metrics"
	"github.com/downfa11-org/go-kvs/util"
)

// Pool kinds accepted by New.
const (
	KindNaive   = "naive"
	KindShared  = "shared"
	KindBounded = "bounded"
)

// ThreadPool runs jobs concurrently. Spawn never fails; Close waits for every
// job spawned before it to finish.
type ThreadPool interface {
	Spawn(job func())
	Close()
}

// New builds the pool named by kind with size workers.
func New(kind string, size int) (ThreadPool, error) {
	switch kind {
	case KindNaive:
		return NewNaivePool(), nil
	case KindShared, "":
		return NewSharedQueuePool(size)
	case KindBounded:
		return NewBoundedPool(size)
	default:
		return nil, fmt.Errorf("unknown pool kind %q", kind)
	}
}

// runJob executes job and converts a panic into a log line.
func runJob(job func()) {
	defer func() {
		if r := recover(); r != nil {
			metrics.PoolPanics.Inc()
			util.Error("recovered from panic in pool job: %v\n%s", r, debug.Stack())
		}
	}()
	job()
}
