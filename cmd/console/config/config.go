// Package config loads the console's settings from the environment, with an
// optional .env file and command-line overrides.
package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
)

const (
	defaultMetricsAddr     = ":9090"
	defaultLogLevel        = "info"
	defaultRegistryAddress = "0x00000000000000000000000000000000000000fa"
)

// Config holds the console's runtime settings.
type Config struct {
	// MetricsAddr is the listen address of the /metrics endpoint.
	MetricsAddr string
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// RegistryAddress is the registry identity used for pool derivation.
	RegistryAddress common.Address
}

// Load reads a .env file when present, then the environment, then applies
// command-line flags on top.
func Load(args []string) (*Config, error) {
	// A missing .env file is not an error; the environment still applies.
	_ = godotenv.Load()

	cfg := &Config{
		MetricsAddr:     envOr("METRICS_ADDR", defaultMetricsAddr),
		LogLevel:        envOr("LOG_LEVEL", defaultLogLevel),
		RegistryAddress: common.HexToAddress(envOr("REGISTRY_ADDRESS", defaultRegistryAddress)),
	}

	fs := flag.NewFlagSet("console", flag.ContinueOnError)
	metricsAddr := fs.String("metrics-addr", cfg.MetricsAddr, "listen address for the Prometheus /metrics endpoint")
	logLevel := fs.String("log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	registryAddr := fs.String("registry-address", cfg.RegistryAddress.Hex(), "registry identity used for pool address derivation")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.MetricsAddr = *metricsAddr
	cfg.LogLevel = *logLevel
	cfg.RegistryAddress = common.HexToAddress(*registryAddr)
	return cfg, nil
}

// SlogLevel maps the configured level string onto slog's levels, defaulting
// to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
