// Package config provides configuration management for the application.
// Scalar settings come from environment variables (optionally via a .env
// file); the remote service descriptors and hybrid tuning live in a YAML
// file because they are structured and deployment-specific.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"emojigen/internal/orchestrator"
	"emojigen/internal/services/remoteapi"
)

// Defaults applied when the corresponding setting is unset.
const (
	DefaultPort            = "8080"
	DefaultServicesFile    = "services.yaml"
	DefaultCacheBackend    = "memory"
	DefaultCacheMaxEntries = 1000
	DefaultCacheMaxBytes   = int64(8 << 20) // 8MB
	DefaultBodySizeLimit   = int64(1 << 20) // 1MB
)

// Config holds the application configuration.
type Config struct {
	Server      ServerConfig
	Cache       CacheConfig
	Health      HealthConfig
	Hybrid      orchestrator.HybridPolicy
	Services    []remoteapi.Config
	Environment string
	LogLevel    string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string
	MasterKey      string
	MetricsEnabled bool
	BodySizeLimit  int64
}

// CacheConfig holds result cache configuration.
type CacheConfig struct {
	Backend     string // "memory" or "redis"
	MaxEntries  int
	MaxBytes    int64
	TTL         time.Duration
	RedisURL    string
	RedisPrefix string
}

// HealthConfig holds health monitor configuration.
type HealthConfig struct {
	ProbeInterval time.Duration
}

// servicesFile is the on-disk shape of the YAML descriptor file.
type servicesFile struct {
	Services []remoteapi.Config        `yaml:"services"`
	Hybrid   orchestrator.HybridPolicy `yaml:"hybrid"`
}

// Load reads configuration from the environment and the services YAML file.
// A missing .env file and a missing services file are both fine; a present
// but unparseable services file is an error.
func Load() (*Config, error) {
	// Optional; won't fail if not found.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", DefaultPort),
			MasterKey:      getEnv("MASTER_KEY", ""),
			MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
			BodySizeLimit:  getEnvInt64("BODY_SIZE_LIMIT", DefaultBodySizeLimit),
		},
		Cache: CacheConfig{
			Backend:     getEnv("CACHE_BACKEND", DefaultCacheBackend),
			MaxEntries:  getEnvInt("CACHE_MAX_ENTRIES", DefaultCacheMaxEntries),
			MaxBytes:    getEnvInt64("CACHE_MAX_BYTES", DefaultCacheMaxBytes),
			TTL:         getEnvDuration("CACHE_TTL", 0),
			RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
			RedisPrefix: getEnv("REDIS_PREFIX", ""),
		},
		Health: HealthConfig{
			ProbeInterval: getEnvDuration("HEALTH_PROBE_INTERVAL", 0),
		},
		Hybrid:      orchestrator.DefaultHybridPolicy(),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	path := getEnv("SERVICES_CONFIG", DefaultServicesFile)
	if err := cfg.loadServicesFile(path); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadServicesFile merges the YAML descriptor file into the config. The
// file is optional; running with no remote services is a valid deployment
// (everything resolves locally).
func (c *Config) loadServicesFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read services config: %w", err)
	}

	var file servicesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse services config %s: %w", path, err)
	}

	for i, svc := range file.Services {
		if svc.Name == "" {
			return fmt.Errorf("services config %s: service %d has no name", path, i)
		}
	}
	c.Services = file.Services

	if file.Hybrid != (orchestrator.HybridPolicy{}) {
		c.Hybrid = file.Hybrid
	}
	return nil
}

// getEnv reads a string environment variable with a default.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvBool reads a boolean environment variable with a default.
func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

// getEnvInt reads an integer environment variable with a default.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvInt64 reads a 64-bit integer environment variable with a default.
func getEnvInt64(key string, defaultVal int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvDuration reads a duration environment variable with a default.
// Accepts plain integers (seconds) or Go duration strings.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	return defaultVal
}
