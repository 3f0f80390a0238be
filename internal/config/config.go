// Package config loads the host's runtime configuration with Viper,
// the same pattern the teacher's pkg/config used: a typed struct with
// mapstructure tags, a DefaultConfig baseline, and a Load that
// overlays a file and environment variables on top of the defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DAGConfig controls the maintenance cadence and backpressure
// thresholds of pkg/dag, per spec.md §6 "Configuration".
type DAGConfig struct {
	CleanupInterval  time.Duration `mapstructure:"cleanup_interval"`
	PendingMaxAge    time.Duration `mapstructure:"pending_max_age"`
	PendingSoftLimit int           `mapstructure:"pending_soft_limit"`
	PendingHardLimit int           `mapstructure:"pending_hard_limit"`
}

// StorageConfig points at the badger data directory backing
// internal/store.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// TransportConfig configures the libp2p gossip adapter.
type TransportConfig struct {
	ListenAddress string   `mapstructure:"listen_address"`
	Bootstrap     []string `mapstructure:"bootstrap"`
}

// BlobstoreConfig configures the MinIO-backed content-addressed store.
type BlobstoreConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseTLS    bool   `mapstructure:"use_tls"`
}

// APIConfig configures the gorilla/mux query-surface server.
type APIConfig struct {
	Address string `mapstructure:"address"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Config is the root of the host's configuration tree.
type Config struct {
	DAG       DAGConfig       `mapstructure:"dag"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Transport TransportConfig `mapstructure:"transport"`
	Blobstore BlobstoreConfig `mapstructure:"blobstore"`
	API       APIConfig       `mapstructure:"api"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// DefaultConfig returns the baseline configuration spec.md §6 names:
// a 60s cleanup cadence, a 300s pending max age, and soft/hard pending
// backpressure thresholds of 1000/5000 (SPEC_FULL.md §3.3).
func DefaultConfig() *Config {
	return &Config{
		DAG: DAGConfig{
			CleanupInterval:  60 * time.Second,
			PendingMaxAge:    300 * time.Second,
			PendingSoftLimit: 1000,
			PendingHardLimit: 5000,
		},
		Storage: StorageConfig{
			Path: "./data/store",
		},
		Transport: TransportConfig{
			ListenAddress: "/ip4/0.0.0.0/tcp/4001",
		},
		Blobstore: BlobstoreConfig{
			Endpoint: "localhost:9000",
			Bucket:   "deltasync-blobs",
		},
		API: APIConfig{
			Address: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from path (if non-empty), overlays
// DELTASYNC_-prefixed environment variables, and falls back to
// DefaultConfig for anything unset.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix("deltasync")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unmarshal only sees keys viper already knows of, so bind every key
	// explicitly for its environment variable to apply without a file.
	for _, key := range []string{
		"dag.cleanup_interval", "dag.pending_max_age", "dag.pending_soft_limit", "dag.pending_hard_limit",
		"storage.path", "transport.listen_address", "transport.bootstrap",
		"blobstore.endpoint", "blobstore.bucket", "blobstore.access_key", "blobstore.secret_key", "blobstore.use_tls",
		"api.address", "logging.level",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("config: bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}
