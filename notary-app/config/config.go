package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/docuchain/notary/x/automation"
	"github.com/docuchain/notary/x/docstore"
	"github.com/docuchain/notary/x/gas"
	"github.com/docuchain/notary/x/hasher"
	"github.com/docuchain/notary/x/ipfs"
	"github.com/docuchain/notary/x/notary"
)

// Config holds the complete application configuration
type Config struct {
	API        APIServerConfig   `mapstructure:"api"        yaml:"api"`
	Chain      ChainConfig       `mapstructure:"chain"      yaml:"chain"`
	Gas        gas.Config        `mapstructure:"gas"        yaml:"gas"`
	Notary     notary.Config     `mapstructure:"notary"     yaml:"notary"`
	Hasher     hasher.Config     `mapstructure:"hasher"     yaml:"hasher"`
	IPFS       ipfs.Config       `mapstructure:"ipfs"       yaml:"ipfs"`
	Store      docstore.Config   `mapstructure:"store"      yaml:"store"`
	Metrics    MetricsConfig     `mapstructure:"metrics"    yaml:"metrics"`
	Log        LogConfig         `mapstructure:"log"        yaml:"log"`
	Automation automation.Config `mapstructure:"automation" yaml:"automation"`
}

// APIServerConfig holds HTTP API server configuration
type APIServerConfig struct {
	ListenAddr        string        `mapstructure:"listen_addr"         yaml:"listen_addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"        yaml:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"       yaml:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"        yaml:"idle_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes"    yaml:"max_header_bytes"`
}

// ChainConfig holds EVM chain connectivity configuration
type ChainConfig struct {
	// RPC endpoint of an EVM node. Empty runs the service without a
	// chain: uploads and hashing work, notarization is rejected.
	RPCEndpoint string `mapstructure:"rpc_endpoint" yaml:"rpc_endpoint" env:"CHAIN_RPC_ENDPOINT"`

	ChainID uint64 `mapstructure:"chain_id" yaml:"chain_id"`

	// Hex private key for the submitting account.
	PrivateKey string `mapstructure:"private_key" yaml:"private_key" env:"CHAIN_PRIVATE_KEY"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" env:"METRICS_ENABLED"`
	Path    string `mapstructure:"path"    yaml:"path"    env:"METRICS_PATH"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  env:"LOG_LEVEL"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty" env:"LOG_PRETTY"`
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Fallback env aliases for chain credentials
	if strings.TrimSpace(cfg.Chain.RPCEndpoint) == "" {
		if val := strings.TrimSpace(os.Getenv("CHAIN_RPC_ENDPOINT")); val != "" {
			cfg.Chain.RPCEndpoint = val
		}
	}
	if strings.TrimSpace(cfg.Chain.PrivateKey) == "" {
		if val := strings.TrimSpace(os.Getenv("CHAIN_PRIVATE_KEY")); val != "" {
			cfg.Chain.PrivateKey = val
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.listen_addr", ":8080")
	v.SetDefault("api.read_header_timeout", "5s")
	v.SetDefault("api.read_timeout", "60s") // uploads can be slow
	v.SetDefault("api.write_timeout", "30s")
	v.SetDefault("api.idle_timeout", "120s")
	v.SetDefault("api.max_header_bytes", 1048576)

	// Base Sepolia
	v.SetDefault("chain.rpc_endpoint", "")
	v.SetDefault("chain.chain_id", 84532)
	v.SetDefault("chain.private_key", "")

	v.SetDefault("gas.limit_buffer_pct", 15)
	v.SetDefault("gas.fallback_gas_limit", 400000)
	v.SetDefault("gas.fallback_max_fee_gwei", 30)
	v.SetDefault("gas.fallback_priority_fee_gwei", 10)

	v.SetDefault("notary.registry_contract", "")
	v.SetDefault("notary.explorer_base", "https://sepolia.basescan.org")
	v.SetDefault("notary.poll_interval", "3s")
	v.SetDefault("notary.confirm_timeout", "3m")
	v.SetDefault("notary.health_window", 5)

	v.SetDefault("hasher.max_file_size", 25<<20)
	v.SetDefault("hasher.max_files", 10)

	v.SetDefault("ipfs.api_endpoint", "")
	v.SetDefault("ipfs.gateway", "https://ipfs.io")

	v.SetDefault("store.path", "data/notary.db")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("automation.endpoint", "")
	v.SetDefault("automation.reconnect_base", "1s")
	v.SetDefault("automation.reconnect_cap", "10s")
	v.SetDefault("automation.max_attempts", 5)
	v.SetDefault("automation.error_clear_after", "5s")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateChain(); err != nil {
		return err
	}
	if err := c.validateHasher(); err != nil {
		return err
	}
	if err := c.validateNotary(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAPI() error {
	if strings.TrimSpace(c.API.ListenAddr) == "" {
		return fmt.Errorf("api.listen_addr is required")
	}
	if c.API.ReadTimeout <= 0 {
		return fmt.Errorf("api.read_timeout must be positive")
	}
	if c.API.WriteTimeout <= 0 {
		return fmt.Errorf("api.write_timeout must be positive")
	}
	return nil
}

func (c *Config) validateChain() error {
	if strings.TrimSpace(c.Chain.RPCEndpoint) == "" {
		return nil // chain not configured
	}
	if c.Chain.ChainID == 0 {
		return fmt.Errorf("chain.chain_id is required when chain is configured")
	}
	if strings.TrimSpace(c.Chain.PrivateKey) == "" {
		return fmt.Errorf("chain.private_key is required when chain is configured")
	}
	if strings.TrimSpace(c.Notary.RegistryContract) == "" {
		return fmt.Errorf("notary.registry_contract is required when chain is configured")
	}
	return nil
}

func (c *Config) validateHasher() error {
	if c.Hasher.MaxFileSize <= 0 {
		return fmt.Errorf("hasher.max_file_size must be positive, got %d", c.Hasher.MaxFileSize)
	}
	if c.Hasher.MaxFiles <= 0 {
		return fmt.Errorf("hasher.max_files must be positive, got %d", c.Hasher.MaxFiles)
	}
	return nil
}

func (c *Config) validateNotary() error {
	if c.Notary.PollInterval <= 0 {
		return fmt.Errorf("notary.poll_interval must be positive")
	}
	if c.Notary.ConfirmTimeout <= 0 {
		return fmt.Errorf("notary.confirm_timeout must be positive")
	}
	if c.Notary.HealthWindow < 0 {
		return fmt.Errorf("notary.health_window must not be negative")
	}
	return nil
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		API: APIServerConfig{
			ListenAddr:        ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
		Chain: ChainConfig{
			ChainID: 84532,
		},
		Gas:    gas.DefaultConfig(),
		Notary: notary.DefaultConfig(),
		Hasher: hasher.DefaultConfig(),
		IPFS:   ipfs.DefaultConfig(),
		Store:  docstore.DefaultConfig(),
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: false,
		},
		Automation: automation.DefaultConfig(),
	}
}
