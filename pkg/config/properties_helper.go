package config

import (
	"os"
	"strings"
	"time"

	"github.com/downfa11-org/go-kvs/util"
)

func (cfg *Config) Normalize() {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ExporterPort <= 0 {
		cfg.ExporterPort = DefaultExporterPort
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	cfg.Pool = strings.ToLower(strings.TrimSpace(cfg.Pool))
	switch cfg.Pool {
	case "naive", "shared", "bounded":
	default:
		util.Warn("Invalid pool '%s', defaulting to '%s'", cfg.Pool, DefaultPool)
		cfg.Pool = DefaultPool
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = DefaultPoolSize
	}

	// storage
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = DefaultDataDir
	}
	cfg.Engine = strings.ToLower(strings.TrimSpace(cfg.Engine))
	switch cfg.Engine {
	case "", "kvs", "bolt":
	default:
		util.Warn("Invalid engine '%s', using the engine recorded in the data directory", cfg.Engine)
		cfg.Engine = ""
	}
	if cfg.CompactionThreshold == 0 {
		cfg.CompactionThreshold = 1024 * 1024
	}
	if cfg.Compression == "" {
		cfg.Compression = "none"
	}
	switch cfg.Compression {
	case "none", "gzip", "snappy", "lz4":
	default:
		util.Warn("Invalid compression '%s', defaulting to 'none'", cfg.Compression)
		cfg.Compression = "none"
	}
	if cfg.BoltTimeout <= 0 {
		cfg.BoltTimeout = DefaultBoltTimeout
	}
}

func applyEnvOverrides(cfg *Config) {
	overrideEnvString(&cfg.Addr, "KVS_ADDR")
	overrideEnvString(&cfg.DataDir, "KVS_DATA_DIR")
	overrideEnvString(&cfg.Engine, "KVS_ENGINE")
	if v := os.Getenv("KVS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = util.ParseLevel(v)
	}
	overrideEnvBool(&cfg.EnableExporter, "KVS_ENABLE_EXPORTER")
	overrideEnvInt(&cfg.ExporterPort, "KVS_EXPORTER_PORT")
	overrideEnvString(&cfg.Pool, "KVS_POOL")
	overrideEnvInt(&cfg.PoolSize, "KVS_POOL_SIZE")
	overrideEnvUint64(&cfg.CompactionThreshold, "KVS_COMPACTION_THRESHOLD")
	overrideEnvBool(&cfg.SyncWrites, "KVS_SYNC_WRITES")
	overrideEnvString(&cfg.Compression, "KVS_COMPRESSION")
	overrideEnvBool(&cfg.StrictSegmentNames, "KVS_STRICT_SEGMENT_NAMES")
	overrideEnvDuration(&cfg.ReadTimeout, "KVS_READ_TIMEOUT")
	overrideEnvDuration(&cfg.BoltTimeout, "KVS_BOLT_TIMEOUT")
}

func overrideEnvInt(target *int, key string) {
	if v := os.Getenv(key); v != "" {
		*target = util.ParseInt(v, *target)
	}
}

func overrideEnvUint64(target *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		*target = util.ParseUint64(v, *target)
	}
}

func overrideEnvBool(target *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*target = util.ParseBool(v, *target)
	}
}

func overrideEnvString(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func overrideEnvDuration(target *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			*target = d
		} else {
			util.Warn("ignoring %s=%q: %v", key, v, err)
		}
	}
}
