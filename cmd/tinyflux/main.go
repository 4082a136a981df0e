// Package main implements the tinyflux CLI: a small client for inserting
// and querying a TinyFlux database from the shell.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tinyflux/tinyflux"
	"github.com/tinyflux/tinyflux/internal/config"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "tinyflux - a tiny time-series datastore\n\n")
		fmt.Fprintf(os.Stderr, "Usage: tinyflux [options] <command> [args]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  insert <measurement> <tag=value,...> <field=value,...>   insert one point, stamped with the current time\n")
		fmt.Fprintf(os.Stderr, "  measurements                                              list distinct measurement names\n")
		fmt.Fprintf(os.Stderr, "  dump                                                      print every point, time-sorted\n")
		fmt.Fprintf(os.Stderr, "  count                                                     print the row count\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	var (
		configFile  string
		dataDir     string
		storageType string
		storagePath string
		showVersion bool
	)
	flag.StringVar(&configFile, "config", "", "path to a YAML or JSON config file")
	flag.StringVar(&dataDir, "data-dir", "", "base directory for data files")
	flag.StringVar(&storageType, "storage", "", "storage backend: memory, csv, or sqlite")
	flag.StringVar(&storagePath, "storage-path", "", "path to the storage file")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("tinyflux version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	cfg, err := loadConfig(configFile, dataDir, storageType, storagePath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	db, err := openDB(cfg)
	if err != nil {
		log.Fatalf("failed to open database at %s: %v", cfg.Storage.Path, err)
	}
	defer db.Close()

	switch args[0] {
	case "insert":
		runInsert(db, args[1:])
	case "measurements":
		runMeasurements(db)
	case "dump":
		runDump(db)
	case "count":
		runCount(db)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		flag.Usage()
		os.Exit(1)
	}
}

func loadConfig(configFile, dataDir, storageType, storagePath string) (*config.Config, error) {
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

	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if storageType != "" {
		cfg.Storage.Type = config.StorageType(storageType)
	}
	if storagePath != "" {
		cfg.Storage.Path = storagePath
	}

	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openDB(cfg *config.Config) (*tinyflux.DB, error) {
	dbCfg := tinyflux.Config{AutoIndex: cfg.Engine.AutoIndex, CompactKeys: cfg.Engine.CompactKeys}
	switch cfg.Storage.Type {
	case config.StorageMemory:
		return tinyflux.OpenMemory(dbCfg), nil
	case config.StorageSQLite:
		return tinyflux.OpenSQLite(cfg.Storage.Path, dbCfg)
	default:
		return tinyflux.Open(cfg.Storage.Path, dbCfg)
	}
}

func runInsert(db *tinyflux.DB, args []string) {
	if len(args) < 1 {
		log.Fatalf("insert requires a measurement name")
	}
	measurement := args[0]
	tags := tinyflux.TagSet{}
	fields := tinyflux.FieldSet{}

	if len(args) > 1 {
		for k, v := range parsePairs(args[1]) {
			tags[k] = v
		}
	}
	if len(args) > 2 {
		for k, v := range parsePairs(args[2]) {
			fields[k] = parseFieldValue(v)
		}
	}

	p, err := tinyflux.NewPoint(time.Now(), true, measurement, tags, fields)
	if err != nil {
		log.Fatalf("invalid point: %v", err)
	}
	id, err := db.Insert(p)
	if err != nil {
		log.Fatalf("insert failed: %v", err)
	}
	fmt.Printf("inserted row %d\n", id)
}

func parsePairs(s string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		out[parts[0]] = parts[1]
	}
	return out
}

func parseFieldValue(s string) tinyflux.FieldValue {
	if s == "true" || s == "false" {
		return s == "true"
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func runMeasurements(db *tinyflux.DB) {
	names, err := db.Measurements()
	if err != nil {
		log.Fatalf("measurements failed: %v", err)
	}
	for _, name := range names {
		fmt.Println(name)
	}
}

func runDump(db *tinyflux.DB) {
	points, err := db.All(true)
	if err != nil {
		log.Fatalf("dump failed: %v", err)
	}
	for _, p := range points {
		fmt.Println(p.String())
	}
}

func runCount(db *tinyflux.DB) {
	n, err := db.Len()
	if err != nil {
		log.Fatalf("count failed: %v", err)
	}
	fmt.Println(n)
}
