// Package config loads dfio settings from defaults, an optional dfio.toml
// and DFIO_* environment variables.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for dfio
type Config struct {
	Bench  BenchConfig
	Sweep  SweepConfig
	Cache  CacheConfig
	DuckDB DuckDBConfig
	Log    LogConfig
}

// BenchConfig drives single benchmark runs.
type BenchConfig struct {
	Dir         string   // Directory benchmark artifacts are written to
	Samples     int      // Timed samples per trial
	BurnIn      int      // Untimed executions before the samples
	ResultsPath string   // JSON-lines results log
	Methods     string   // Method class filter; empty runs every class
	Operations  []string // write, read, decompress
	Schemas     []string
	Lengths     []int
	Data        string // External Arrow IPC file used instead of a generated table
}

// SweepConfig is the grid walked by the sweep command.
type SweepConfig struct {
	Schemas []string
	Lengths []int
}

// CacheConfig locates the generated dataset cache.
type CacheConfig struct {
	Backend   string // local or s3
	LocalPath string
	// S3/MinIO configuration
	S3Bucket    string
	S3Prefix    string
	S3Region    string
	S3Endpoint  string // Custom endpoint for MinIO (e.g., "http://localhost:9000")
	S3AccessKey string // AWS access key (or use AWS_ACCESS_KEY_ID env var)
	S3SecretKey string // AWS secret key (or use AWS_SECRET_ACCESS_KEY env var)
	S3UseSSL    bool
	S3PathStyle bool // Use path-style addressing (required for MinIO)
}

// DuckDBConfig applies to every DuckDB instance the methods open.
type DuckDBConfig struct {
	MemoryLimit string
	ThreadCount int
}

type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from file and environment
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.SetEnvPrefix("DFIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("dfio")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/dfio/")
	v.AddConfigPath("$HOME/.dfio/")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	benchLengths, err := getIntSlice(v, "bench.lengths")
	if err != nil {
		return nil, err
	}
	sweepLengths, err := getIntSlice(v, "sweep.lengths")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Bench: BenchConfig{
			Dir:         v.GetString("bench.dir"),
			Samples:     v.GetInt("bench.samples"),
			BurnIn:      v.GetInt("bench.burn_in"),
			ResultsPath: v.GetString("bench.results_path"),
			Methods:     v.GetString("bench.methods"),
			Operations:  getStringSlice(v, "bench.operations"),
			Schemas:     getStringSlice(v, "bench.schemas"),
			Lengths:     benchLengths,
			Data:        v.GetString("bench.data"),
		},
		Sweep: SweepConfig{
			Schemas: getStringSlice(v, "sweep.schemas"),
			Lengths: sweepLengths,
		},
		Cache: CacheConfig{
			Backend:     v.GetString("cache.backend"),
			LocalPath:   v.GetString("cache.local_path"),
			S3Bucket:    v.GetString("cache.s3_bucket"),
			S3Prefix:    v.GetString("cache.s3_prefix"),
			S3Region:    v.GetString("cache.s3_region"),
			S3Endpoint:  v.GetString("cache.s3_endpoint"),
			S3AccessKey: v.GetString("cache.s3_access_key"),
			S3SecretKey: v.GetString("cache.s3_secret_key"),
			S3UseSSL:    v.GetBool("cache.s3_use_ssl"),
			S3PathStyle: v.GetBool("cache.s3_path_style"),
		},
		DuckDB: DuckDBConfig{
			MemoryLimit: v.GetString("duckdb.memory_limit"),
			ThreadCount: v.GetInt("duckdb.thread_count"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	return cfg, nil
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
}

// getStringSlice reads a string list that may come from TOML (a list) or
// the environment (a comma or space separated string).
func getStringSlice(v *viper.Viper, key string) []string {
	if s, ok := v.Get(key).(string); ok {
		return splitList(s)
	}
	return v.GetStringSlice(key)
}

// getIntSlice reads an int list that may come from TOML (a list) or the
// environment (a comma or space separated string).
func getIntSlice(v *viper.Viper, key string) ([]int, error) {
	raw := v.Get(key)
	if s, ok := raw.(string); ok {
		fields := splitList(s)
		out := make([]int, 0, len(fields))
		for _, f := range fields {
			var n int
			if _, err := fmt.Sscanf(f, "%d", &n); err != nil {
				return nil, fmt.Errorf("invalid %s entry %q: %w", key, f, err)
			}
			out = append(out, n)
		}
		return out, nil
	}
	return v.GetIntSlice(key), nil
}

func setDefaults(v *viper.Viper) {
	// Bench defaults
	v.SetDefault("bench.dir", ".")
	v.SetDefault("bench.samples", 3)
	v.SetDefault("bench.burn_in", 1)
	v.SetDefault("bench.results_path", "./dfio-benchmark.json")
	v.SetDefault("bench.methods", "")
	v.SetDefault("bench.operations", []string{"write", "read"})
	v.SetDefault("bench.schemas", []string{"bars"})
	v.SetDefault("bench.lengths", []int{100000})
	v.SetDefault("bench.data", "")

	// Sweep defaults
	v.SetDefault("sweep.schemas", []string{
		"i",
		"tbif",
		"iiiiiiii",
		strings.Repeat("f", 64),
	})
	v.SetDefault("sweep.lengths", []int{1000, 10000, 100000, 1000000})

	// Dataset cache defaults
	v.SetDefault("cache.backend", "local")
	v.SetDefault("cache.local_path", "./gen-cache")
	v.SetDefault("cache.s3_bucket", "")
	v.SetDefault("cache.s3_prefix", "dfio/gen-cache")
	v.SetDefault("cache.s3_region", "us-east-1")
	v.SetDefault("cache.s3_endpoint", "")
	v.SetDefault("cache.s3_access_key", "")
	v.SetDefault("cache.s3_secret_key", "")
	v.SetDefault("cache.s3_use_ssl", false)
	v.SetDefault("cache.s3_path_style", false)

	// DuckDB defaults
	v.SetDefault("duckdb.memory_limit", getDefaultMemoryLimit())
	v.SetDefault("duckdb.thread_count", getDefaultThreadCount())

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

func getDefaultThreadCount() int {
	// Use number of CPU cores for optimal parallelism
	return runtime.NumCPU()
}

func getDefaultMemoryLimit() string {
	// Heuristic: assume ~2GB per core and give DuckDB half of it.
	// Users can override via DFIO_DUCKDB_MEMORY_LIMIT or the config file.
	targetMemGB := runtime.NumCPU()
	if targetMemGB < 1 {
		return "1GB"
	}
	if targetMemGB > 32 {
		return "32GB"
	}
	return fmt.Sprintf("%dGB", targetMemGB)
}

var validOperations = map[string]bool{"write": true, "read": true, "decompress": true}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.Bench.Samples < 1 {
		return fmt.Errorf("bench.samples must be at least 1, got %d", c.Bench.Samples)
	}
	if c.Bench.BurnIn < 0 {
		return fmt.Errorf("bench.burn_in must be non-negative, got %d", c.Bench.BurnIn)
	}
	for _, op := range c.Bench.Operations {
		if !validOperations[op] {
			return fmt.Errorf("bench.operations: unknown operation %q", op)
		}
	}
	for _, lengths := range [][]int{c.Bench.Lengths, c.Sweep.Lengths} {
		for _, n := range lengths {
			if n < 0 {
				return fmt.Errorf("lengths must be non-negative, got %d", n)
			}
		}
	}
	switch c.Cache.Backend {
	case "local":
		if c.Cache.LocalPath == "" {
			return fmt.Errorf("cache.local_path is required for the local backend")
		}
	case "s3":
		if c.Cache.S3Bucket == "" {
			return fmt.Errorf("cache.s3_bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("cache.backend must be local or s3, got %q", c.Cache.Backend)
	}
	if c.DuckDB.MemoryLimit != "" {
		if _, err := ParseSize(c.DuckDB.MemoryLimit); err != nil {
			return fmt.Errorf("duckdb.memory_limit: %w", err)
		}
	}
	return nil
}

// ParseSize parses a human-readable size string (e.g., "1GB", "500MB", "100KB") to bytes.
// Supports: B, KB, MB, GB (case-insensitive).
// Returns the size in bytes or an error if the format is invalid.
func ParseSize(sizeStr string) (int64, error) {
	sizeStr = strings.TrimSpace(strings.ToUpper(sizeStr))
	if sizeStr == "" {
		return 0, fmt.Errorf("empty size string")
	}

	type unitInfo struct {
		suffix     string
		multiplier int64
	}
	units := []unitInfo{
		{"GB", 1024 * 1024 * 1024},
		{"MB", 1024 * 1024},
		{"KB", 1024},
		{"B", 1},
	}

	// Try each suffix from longest to shortest
	for _, unit := range units {
		if strings.HasSuffix(sizeStr, unit.suffix) {
			numStr := strings.TrimSpace(strings.TrimSuffix(sizeStr, unit.suffix))

			var num float64
			var trailing string
			n, _ := fmt.Sscanf(numStr, "%f%s", &num, &trailing)
			if n == 0 {
				return 0, fmt.Errorf("invalid size number: %s", numStr)
			}
			if trailing != "" {
				// Extra text after the number, likely an unsupported unit like the "T" in "1TB"
				return 0, fmt.Errorf("invalid size format: %s (use e.g., '1GB', '500MB', '100KB')", sizeStr)
			}
			if num < 0 {
				return 0, fmt.Errorf("size cannot be negative: %s", sizeStr)
			}
			return int64(num * float64(unit.multiplier)), nil
		}
	}

	// Try parsing as plain number (bytes)
	var num int64
	var trailing string
	n, _ := fmt.Sscanf(sizeStr, "%d%s", &num, &trailing)
	if n == 0 || trailing != "" {
		return 0, fmt.Errorf("invalid size format: %s (use e.g., '1GB', '500MB', '100KB')", sizeStr)
	}
	if num < 0 {
		return 0, fmt.Errorf("size cannot be negative: %s", sizeStr)
	}
	return num, nil
}
