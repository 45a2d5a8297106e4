package hasher

// Config bounds a single upload batch.
type Config struct {
	// Maximum size of a single file in bytes.
	MaxFileSize int64 `mapstructure:"max_file_size" yaml:"max_file_size"`

	// Maximum number of files per batch.
	MaxFiles int `mapstructure:"max_files" yaml:"max_files"`
}

func DefaultConfig() Config {
	return Config{
		MaxFileSize: 25 << 20, // 25 MiB
		MaxFiles:    10,
	}
}
