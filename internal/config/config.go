package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/deepmd/internal/citation"
	"github.com/dgallion1/deepmd/internal/exporter"
	"github.com/dgallion1/deepmd/internal/thoughts"
	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Base URL relative links in snapshots are resolved against.
	BaseURL string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// Citation resolution pacing
	PollInterval  time.Duration
	LinkTimeout   time.Duration
	AncestorDepth int
	ControlGap    time.Duration
	RestoreDelay  time.Duration

	// Reasoning panel pacing
	ThoughtSettle       time.Duration
	ThoughtRestoreDelay time.Duration

	// Simulated reaction delay of the snapshot host.
	HostLatency time.Duration

	// Sinks
	OutputDir       string
	PathstoreURL    string
	PathstoreAPIKey string

	// Logging
	LogFormat     string
	LogLevel      string
	LogAddSource  bool
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

// Load reads the optional env file named by DEEPMD_ENV_FILE (default .env)
// and then the process environment. Variables already set win.
func Load() Config {
	envFile := envOr("DEEPMD_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "config: ignoring %s: %v\n", envFile, err)
	}

	cdef := citation.DefaultOptions()
	tdef := thoughts.DefaultOptions()

	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey:  os.Getenv("DEEPMD_API_KEY"),
		BaseURL: os.Getenv("BASE_URL"),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 20971520), // 20MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PollInterval:  envDuration("POLL_INTERVAL", cdef.PollInterval),
		LinkTimeout:   envDuration("LINK_TIMEOUT", cdef.LinkTimeout),
		AncestorDepth: envInt("ANCESTOR_DEPTH", cdef.AncestorDepth),
		ControlGap:    envDuration("CONTROL_GAP", cdef.ControlGap),
		RestoreDelay:  envDuration("RESTORE_DELAY", cdef.RestoreDelay),

		ThoughtSettle:       envDuration("THOUGHT_SETTLE", tdef.Settle),
		ThoughtRestoreDelay: envDuration("THOUGHT_RESTORE_DELAY", tdef.RestoreDelay),

		HostLatency: envDuration("HOST_LATENCY", 0),

		OutputDir:       os.Getenv("OUTPUT_DIR"),
		PathstoreURL:    os.Getenv("PATHSTORE_URL"),
		PathstoreAPIKey: os.Getenv("PATHSTORE_API_KEY"),

		LogFormat:     envOr("LOG_FORMAT", "json"),
		LogLevel:      envOr("LOG_LEVEL", "info"),
		LogAddSource:  envBool("LOG_ADD_SOURCE", false),
		LogFile:       os.Getenv("LOG_FILE"),
		LogMaxSizeMB:  envInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups: envInt("LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays: envInt("LOG_MAX_AGE_DAYS", 28),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20971520
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.AncestorDepth <= 0 {
		cfg.AncestorDepth = cdef.AncestorDepth
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = cdef.PollInterval
	}

	return cfg
}

// Validate reports settings the server cannot start with.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("DEEPMD_API_KEY is required")
	}
	if c.PathstoreURL != "" && c.PathstoreAPIKey == "" {
		return fmt.Errorf("PATHSTORE_API_KEY is required when PATHSTORE_URL is set")
	}
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || !u.IsAbs() {
			return fmt.Errorf("BASE_URL must be an absolute URL: %q", c.BaseURL)
		}
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text: %q", c.LogFormat)
	}
	return nil
}

// ExporterOptions maps the pacing settings onto the exporter.
func (c Config) ExporterOptions() exporter.Options {
	opts := exporter.DefaultOptions()
	opts.Citation.PollInterval = c.PollInterval
	opts.Citation.LinkTimeout = c.LinkTimeout
	opts.Citation.AncestorDepth = c.AncestorDepth
	opts.Citation.ControlGap = c.ControlGap
	opts.Citation.RestoreDelay = c.RestoreDelay
	opts.Thoughts.PollInterval = c.PollInterval
	opts.Thoughts.Settle = c.ThoughtSettle
	opts.Thoughts.RestoreDelay = c.ThoughtRestoreDelay
	return opts
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
