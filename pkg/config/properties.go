package config

import (
	"crypto/tls"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/downfa11-org/go-kvs/util"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAddr         = "127.0.0.1:4000"
	DefaultDataDir      = "."
	DefaultExporterPort = 9100
	DefaultPool         = "shared"
	DefaultPoolSize     = 64
	DefaultReadTimeout  = 5 * time.Minute
	DefaultBoltTimeout  = time.Second
)

// Config represents the server configuration.
type Config struct {
	// Server settings
	Addr           string        `yaml:"addr" json:"addr"`
	EnableExporter bool          `yaml:"enable_exporter" json:"enable.exporter"`
	ExporterPort   int           `yaml:"exporter_port" json:"exporter.port"`
	LogLevel       util.LogLevel `yaml:"log_level" json:"log_level"`
	ReadTimeout    time.Duration `yaml:"read_timeout" json:"read.timeout"`

	// Thread pool serving connections
	Pool     string `yaml:"pool" json:"pool"`
	PoolSize int    `yaml:"pool_size" json:"pool.size"`

	// Storage
	DataDir             string        `yaml:"data_dir" json:"data.dir"`
	Engine              string        `yaml:"engine" json:"engine"`
	CompactionThreshold uint64        `yaml:"compaction_threshold" json:"compaction.threshold"`
	SyncWrites          bool          `yaml:"sync_writes" json:"sync.writes"`
	Compression         string        `yaml:"compression" json:"compression"`
	StrictSegmentNames  bool          `yaml:"strict_segment_names" json:"strict.segment.names"`
	BoltTimeout         time.Duration `yaml:"bolt_timeout" json:"bolt.timeout"`

	// Security
	UseTLS      bool            `yaml:"use_tls" json:"tls.enable"`
	TLSCertPath string          `yaml:"tls_cert_path" json:"tls.cert_path"`
	TLSKeyPath  string          `yaml:"tls_key_path" json:"tls.key_path"`
	TLSCert     tls.Certificate `yaml:"-" json:"-"`
}

type flagValues struct {
	configPath   *string
	addr         *string
	dataDir      *string
	engine       *string
	logLevel     *string
	exporter     *string
	exporterPort *string
	pool         *string
	poolSize     *string
	threshold    *string
	syncWrites   *string
	compression  *string
	strictNames  *string
	readTimeout  *time.Duration
	boltTimeout  *time.Duration
	tls          *string
	tlsCert      *string
	tlsKey       *string
}

func registerFlags(fs *flag.FlagSet) *flagValues {
	return &flagValues{
		configPath:   fs.String("config", "", "Path to YAML/JSON config file"),
		addr:         fs.String("addr", DefaultAddr, "Listening address (IP:PORT)"),
		dataDir:      fs.String("data-dir", DefaultDataDir, "Data directory"),
		engine:       fs.String("engine", "", "Storage engine (kvs, bolt); defaults to the engine recorded in the data directory"),
		logLevel:     fs.String("log-level", "info", "Log Level (debug, info, warn, error)"),
		exporter:     fs.String("exporter", "false", "Enable Prometheus exporter"),
		exporterPort: fs.String("exporter-port", "9100", "Exporter port"),
		pool:         fs.String("pool", DefaultPool, "Connection thread pool (naive, shared, bounded)"),
		poolSize:     fs.String("pool-size", "64", "Number of pool workers"),
		threshold:    fs.String("compaction-threshold", "1048576", "Reclaimable bytes that trigger compaction"),
		syncWrites:   fs.String("sync-writes", "true", "fsync the log after every mutation"),
		compression:  fs.String("compression", "none", "Value compression (none, gzip, snappy, lz4)"),
		strictNames:  fs.String("strict-segment-names", "false", "Fail on malformed segment file names"),
		readTimeout:  fs.Duration("read-timeout", DefaultReadTimeout, "Idle timeout of a client connection"),
		boltTimeout:  fs.Duration("bolt-timeout", DefaultBoltTimeout, "Wait for the bolt file lock"),
		tls:          fs.String("tls", "false", "Enable TLS"),
		tlsCert:      fs.String("tls-cert", "", "TLS certificate path"),
		tlsKey:       fs.String("tls-key", "", "TLS key path"),
	}
}

// LoadConfig builds the configuration from the process arguments.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(os.Args[1:])
}

// LoadConfigFrom layers flag defaults, the optional config file, explicitly
// set flags and KVS_* environment variables, in that order.
func LoadConfigFrom(args []string) (*Config, error) {
	fs := flag.NewFlagSet("kvs-server", flag.ContinueOnError)
	fv := registerFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" && *fv.configPath == "" {
		*fv.configPath = envPath
	}

	cfg := &Config{}
	applyDefaults(cfg, fv)

	if *fv.configPath != "" {
		data, err := os.ReadFile(*fv.configPath)
		if err != nil {
			return nil, err
		}

		if strings.HasSuffix(*fv.configPath, ".json") {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", *fv.configPath, err)
			}
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", *fv.configPath, err)
			}
		}
	}

	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	applyExplicitFlags(cfg, fv, explicit)
	applyEnvOverrides(cfg)

	cfg.Normalize()
	util.SetLevel(cfg.LogLevel)

	if cfg.UseTLS {
		if cfg.TLSCertPath == "" || cfg.TLSKeyPath == "" {
			cfg.UseTLS = false
			return nil, fmt.Errorf("TLS enabled but certificate or key path is empty")
		}
		cert, err := tls.LoadX509KeyPair(cfg.TLSCertPath, cfg.TLSKeyPath)
		if err != nil {
			cfg.UseTLS = false
			return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
		}
		cfg.TLSCert = cert
	}

	return cfg, nil
}

func applyDefaults(cfg *Config, fv *flagValues) {
	cfg.Addr = *fv.addr
	cfg.DataDir = *fv.dataDir
	cfg.Engine = *fv.engine
	cfg.LogLevel = util.ParseLevel(*fv.logLevel)
	cfg.EnableExporter = util.ParseBool(*fv.exporter, false)
	cfg.ExporterPort = util.ParseInt(*fv.exporterPort, DefaultExporterPort)
	cfg.Pool = *fv.pool
	cfg.PoolSize = util.ParseInt(*fv.poolSize, DefaultPoolSize)
	cfg.CompactionThreshold = util.ParseUint64(*fv.threshold, 0)
	cfg.SyncWrites = util.ParseBool(*fv.syncWrites, true)
	cfg.Compression = *fv.compression
	cfg.StrictSegmentNames = util.ParseBool(*fv.strictNames, false)
	cfg.ReadTimeout = *fv.readTimeout
	cfg.BoltTimeout = *fv.boltTimeout
	cfg.UseTLS = util.ParseBool(*fv.tls, false)
	cfg.TLSCertPath = *fv.tlsCert
	cfg.TLSKeyPath = *fv.tlsKey
}

func applyExplicitFlags(cfg *Config, fv *flagValues, explicit map[string]bool) {
	if explicit["addr"] {
		cfg.Addr = *fv.addr
	}
	if explicit["data-dir"] {
		cfg.DataDir = *fv.dataDir
	}
	if explicit["engine"] {
		cfg.Engine = *fv.engine
	}
	if explicit["log-level"] {
		cfg.LogLevel = util.ParseLevel(*fv.logLevel)
	}
	if explicit["exporter"] {
		cfg.EnableExporter = util.ParseBool(*fv.exporter, cfg.EnableExporter)
	}
	if explicit["exporter-port"] {
		cfg.ExporterPort = util.ParseInt(*fv.exporterPort, cfg.ExporterPort)
	}
	if explicit["pool"] {
		cfg.Pool = *fv.pool
	}
	if explicit["pool-size"] {
		cfg.PoolSize = util.ParseInt(*fv.poolSize, cfg.PoolSize)
	}
	if explicit["compaction-threshold"] {
		cfg.CompactionThreshold = util.ParseUint64(*fv.threshold, cfg.CompactionThreshold)
	}
	if explicit["sync-writes"] {
		cfg.SyncWrites = util.ParseBool(*fv.syncWrites, cfg.SyncWrites)
	}
	if explicit["compression"] {
		cfg.Compression = *fv.compression
	}
	if explicit["strict-segment-names"] {
		cfg.StrictSegmentNames = util.ParseBool(*fv.strictNames, cfg.StrictSegmentNames)
	}
	if explicit["read-timeout"] {
		cfg.ReadTimeout = *fv.readTimeout
	}
	if explicit["bolt-timeout"] {
		cfg.BoltTimeout = *fv.boltTimeout
	}
	if explicit["tls"] {
		cfg.UseTLS = util.ParseBool(*fv.tls, cfg.UseTLS)
	}
	if explicit["tls-cert"] {
		cfg.TLSCertPath = *fv.tlsCert
	}
	if explicit["tls-key"] {
		cfg.TLSKeyPath = *fv.tlsKey
	}
}

