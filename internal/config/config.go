// Package config builds the server configuration from flags. Flag defaults
// come from NAJDENO_* environment variables.
package config

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config holds the server settings.
type Config struct {
	Addr         string
	DBPath       string
	AdminEmail   string
	LogPath      string
	LogLevel     slog.Level
	StoreTimeout time.Duration
	NoSeed       bool
}

const usage = `Usage: najdeno [flags]

Flags:
  -d, -db <path>           SQLite database path (default: najdeno.sqlite3, env NAJDENO_DB)
  -a, -addr <host:port>    listen address (default: :8080, env NAJDENO_ADDR)
  -u, -admin <email>       admin email on first run (default: admin@najdeno.local, env NAJDENO_ADMIN)
  -l, -log <path>          log file path (default: no file, stdout/stderr only)
  -log-level <level>       debug, info, warn or error (default: info, env NAJDENO_LOG_LEVEL)
  -store-timeout <dur>     timeout for each database operation (default: 10s, env NAJDENO_STORE_TIMEOUT)
  -no-seed                 do not write demonstration reports into an empty board
  -h, -help                show this help and exit
`

// Load parses args (without the program name). It returns flag.ErrHelp
// when help was requested.
func Load(args []string, output io.Writer) (*Config, error) {
	fs := flag.NewFlagSet("najdeno", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() { fmt.Fprint(output, usage) }

	cfg := &Config{}

	dbPath := getEnv("NAJDENO_DB", "najdeno.sqlite3")
	fs.StringVar(&cfg.DBPath, "db", dbPath, "")
	fs.StringVar(&cfg.DBPath, "d", dbPath, "")

	addr := getEnv("NAJDENO_ADDR", ":8080")
	fs.StringVar(&cfg.Addr, "addr", addr, "")
	fs.StringVar(&cfg.Addr, "a", addr, "")

	admin := getEnv("NAJDENO_ADMIN", "admin@najdeno.local")
	fs.StringVar(&cfg.AdminEmail, "admin", admin, "")
	fs.StringVar(&cfg.AdminEmail, "u", admin, "")

	fs.StringVar(&cfg.LogPath, "log", "", "")
	fs.StringVar(&cfg.LogPath, "l", "", "")

	level := fs.String("log-level", getEnv("NAJDENO_LOG_LEVEL", "info"), "")

	timeout, err := time.ParseDuration(getEnv("NAJDENO_STORE_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("parsing NAJDENO_STORE_TIMEOUT: %w", err)
	}
	fs.DurationVar(&cfg.StoreTimeout, "store-timeout", timeout, "")

	fs.BoolVar(&cfg.NoSeed, "no-seed", false, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	cfg.LogLevel, err = ParseLevel(*level)
	if err != nil {
		return nil, err
	}
	if cfg.StoreTimeout < 0 {
		return nil, fmt.Errorf("store timeout must not be negative")
	}
	if !strings.Contains(cfg.AdminEmail, "@") {
		return nil, fmt.Errorf("admin email %q is not an email address", cfg.AdminEmail)
	}
	return cfg, nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}
