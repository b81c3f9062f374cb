package main

import (
	"crypto/tls"
	"os"
	"os/signal"
	"syscall"

	"github.com/downfa11-org/go-kvs/pkg/config"
	"github.com/downfa11-org/go-kvs/pkg/engine"
	"github.com/downfa11-org/go-kvs/pkg/metrics"
	"github.com/downfa11-org/go-kvs/pkg/pool"
	"github.com/downfa11-org/go-kvs/pkg/server"
	"github.com/downfa11-org/go-kvs/util"
)

const version = "0.1.0"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		util.Fatal("❌ Failed to load config: %v", err)
	}

	util.Info("kvs-server %s", version)
	util.Info("data directory: %s", cfg.DataDir)

	eng, name, err := engine.OpenEngine(cfg.DataDir, cfg.Engine, engine.Options{
		CompactionThreshold: cfg.CompactionThreshold,
		SyncWrites:          cfg.SyncWrites,
		Compression:         cfg.Compression,
		StrictSegmentNames:  cfg.StrictSegmentNames,
	}, cfg.BoltTimeout)
	if err != nil {
		util.Fatal("❌ Failed to open storage: %v", err)
	}
	util.Info("storage engine: %s", name)

	if cfg.EnableExporter {
		metrics.StartMetricsServer(cfg.ExporterPort)
	} else {
		util.Info("📉 Exporter disabled")
	}

	p, err := pool.New(cfg.Pool, cfg.PoolSize)
	if err != nil {
		_ = eng.Close()
		util.Fatal("❌ Failed to create %s pool: %v", cfg.Pool, err)
	}

	opts := server.Options{EngineName: name, ReadTimeout: cfg.ReadTimeout}
	if cfg.UseTLS {
		opts.TLS = &tls.Config{Certificates: []tls.Certificate{cfg.TLSCert}}
	}
	srv := server.New(eng, p, opts)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		util.Info("received %s, shutting down", sig)
		if err := srv.Close(); err != nil {
			util.Warn("close listener: %v", err)
		}
	}()

	serveErr := srv.ListenAndServe(cfg.Addr)
	if err := eng.Close(); err != nil {
		util.Error("close storage: %v", err)
	}
	if serveErr != nil {
		util.Fatal("❌ Server failed: %v", serveErr)
	}
}
