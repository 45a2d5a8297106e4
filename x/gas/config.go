package gas

// Config tunes gas estimation for notarization transactions.
type Config struct {
	// Buffer added on top of the node's gas estimate, in percent.
	LimitBufferPct uint64 `mapstructure:"limit_buffer_pct" yaml:"limit_buffer_pct"`

	// Fallback values used when the live estimate fails. Conservative on
	// purpose so a degraded estimate still lands the transaction.
	FallbackGasLimit        uint64 `mapstructure:"fallback_gas_limit"         yaml:"fallback_gas_limit"`
	FallbackMaxFeeGwei      uint64 `mapstructure:"fallback_max_fee_gwei"      yaml:"fallback_max_fee_gwei"`
	FallbackPriorityFeeGwei uint64 `mapstructure:"fallback_priority_fee_gwei" yaml:"fallback_priority_fee_gwei"`
}

func DefaultConfig() Config {
	return Config{
		LimitBufferPct:          15,
		FallbackGasLimit:        400_000,
		FallbackMaxFeeGwei:      30,
		FallbackPriorityFeeGwei: 10,
	}
}
