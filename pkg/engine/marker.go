package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/downfa11-org/go-kvs/pkg/types"
	"github.com/downfa11-org/go-kvs/util"
)

// MarkerFile records which engine owns a data directory.
const MarkerFile = "engine"

// CurrentEngine returns the engine recorded in dir, or "" when none is.
// An unreadable or unknown marker is reported as absent with a warning.
func CurrentEngine(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, MarkerFile))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", types.IOError("read engine marker", err)
	}
	name := strings.TrimSpace(string(data))
	switch name {
	case types.EngineKvs, types.EngineBolt:
		return name, nil
	default:
		util.Warn("ignoring invalid engine marker %q in %s", name, dir)
		return "", nil
	}
}

// ResolveEngine picks the engine to run in dir. An empty requested name
// adopts the recorded engine, defaulting to kvs; a request that conflicts
// with the recorded engine fails with ErrWrongEngine.
func ResolveEngine(dir, requested string) (string, error) {
	current, err := CurrentEngine(dir)
	if err != nil {
		return "", err
	}
	switch {
	case requested == "" && current == "":
		return types.EngineKvs, nil
	case requested == "":
		return current, nil
	case current != "" && current != requested:
		return "", fmt.Errorf("%w: %s holds data for %q, requested %q", types.ErrWrongEngine, dir, current, requested)
	default:
		return requested, nil
	}
}

// OpenEngine resolves the engine for dir, opens it and records the marker.
func OpenEngine(dir, requested string, opts Options, boltTimeout time.Duration) (types.KvsEngine, string, error) {
	name, err := ResolveEngine(dir, requested)
	if err != nil {
		return nil, "", err
	}

	var eng types.KvsEngine
	switch name {
	case types.EngineKvs:
		eng, err = OpenWithOptions(dir, opts)
	case types.EngineBolt:
		eng, err = OpenBolt(dir, boltTimeout)
	default:
		return nil, "", fmt.Errorf("unknown engine %q", name)
	}
	if err != nil {
		return nil, "", err
	}

	if err := os.WriteFile(filepath.Join(dir, MarkerFile), []byte(name), 0o644); err != nil {
		_ = eng.Close()
		return nil, "", types.IOError("write engine marker", err)
	}
	return eng, name, nil
}
