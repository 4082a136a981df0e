// Package main implements the tinyflux-backup tool: it snapshots a
// TinyFlux storage backend to S3, once or on a recurring interval.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/tinyflux/tinyflux/internal/config"
	"github.com/tinyflux/tinyflux/internal/server"
	"github.com/tinyflux/tinyflux/internal/storage"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config", "", "path to a YAML or JSON config file")
	once := flag.Bool("once", false, "take a single snapshot and exit instead of running on a schedule")
	flag.Parse()

	cfg, err := loadConfig(configFile)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if cfg.Backup.Bucket == "" {
		log.Fatalf("backup.bucket is required")
	}

	backend, err := openBackend(cfg)
	if err != nil {
		log.Fatalf("failed to open storage backend at %s: %v", cfg.Storage.Path, err)
	}

	ctx := context.Background()
	backup, err := storage.NewS3Backup(ctx, cfg.Backup.Bucket, cfg.Backup.Region)
	if err != nil {
		log.Fatalf("failed to initialize s3 backup client: %v", err)
	}

	shutdownMgr := server.NewShutdownManager(server.DefaultShutdownConfig())
	shutdownMgr.RegisterCloser(backend)

	if *once {
		if err := snapshot(ctx, shutdownMgr, backup, backend, cfg.Backup.KeyPrefix); err != nil {
			log.Fatalf("snapshot failed: %v", err)
		}
		shutdownMgr.Shutdown(ctx, "single snapshot complete")
		return
	}

	log.Printf("starting backup loop, interval=%s, bucket=%s", cfg.Backup.Interval, cfg.Backup.Bucket)
	ticker := time.NewTicker(cfg.Backup.Interval)
	defer ticker.Stop()

	go func() {
		for range ticker.C {
			if err := snapshot(ctx, shutdownMgr, backup, backend, cfg.Backup.KeyPrefix); err != nil {
				log.Printf("snapshot failed: %v", err)
			}
		}
	}()

	if err := shutdownMgr.ListenForSignals(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	log.Printf("tinyflux-backup stopped")
}

func loadConfig(configFile string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.DefaultConfig()
	}

	config.LoadFromEnv(cfg, ".env")
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openBackend(cfg *config.Config) (storage.Backend, error) {
	switch cfg.Storage.Type {
	case config.StorageSQLite:
		return storage.NewSQLiteBackend(cfg.Storage.Path)
	case config.StorageMemory:
		return storage.NewMemoryBackend(), nil
	default:
		return storage.NewCSVBackend(cfg.Storage.Path)
	}
}

func snapshot(ctx context.Context, shutdownMgr *server.ShutdownManager, backup *storage.S3Backup, backend storage.Backend, keyPrefix string) error {
	if !shutdownMgr.TrackWork() {
		return nil
	}
	defer shutdownMgr.UntrackWork()

	key := keyPrefix + "/" + time.Now().UTC().Format("20060102T150405Z") + ".snappy"
	if err := backup.Snapshot(ctx, backend, key); err != nil {
		return err
	}
	log.Printf("snapshot written to %s", key)
	return nil
}
