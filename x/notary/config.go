package notary

import "time"

// Config holds notarization tracking configuration.
type Config struct {
	// Address (hex) of the on-chain notary registry contract.
	RegistryContract string `mapstructure:"registry_contract" yaml:"registry_contract"`

	// Block explorer base URL used to build transaction links.
	ExplorerBase string `mapstructure:"explorer_base" yaml:"explorer_base"`

	// Receipt polling interval while a transaction is confirming.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`

	// Bound on the confirmation wait. A transaction still unconfirmed
	// after this deadline fails with a timeout error.
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout" yaml:"confirm_timeout"`

	// Healthy means no failures among the most recent HealthWindow
	// transactions.
	HealthWindow int `mapstructure:"health_window" yaml:"health_window"`
}

// DefaultConfig targets Base Sepolia (chain id 84532).
func DefaultConfig() Config {
	return Config{
		ExplorerBase:   "https://sepolia.basescan.org",
		PollInterval:   3 * time.Second,
		ConfirmTimeout: 3 * time.Minute,
		HealthWindow:   5,
	}
}
