package config

// Default values for configuration options. These are "layer 0" of the
// four-layer override chain.
const (
	defaultMetadataWorkers = 8
	defaultSortType        = "none"
	defaultSortBy          = "none"
	defaultLogLevel        = "info"
	defaultLogFormat       = "auto"
	defaultS3Region        = "us-east-1"
)

// DefaultConfig returns a Config populated with all default values.
// It is the starting point for TOML decoding, so unset fields keep their
// defaults, and the fallback when no config file exists. grant_db is left
// empty and resolved to DefaultGrantDBPath by Resolve.
func DefaultConfig() *Config {
	return &Config{
		ListingConfig: ListingConfig{
			MetadataWorkers: defaultMetadataWorkers,
			SortType:        defaultSortType,
			SortBy:          defaultSortBy,
		},
		LoggingConfig: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		S3Config: S3Config{
			S3Region: defaultS3Region,
		},
	}
}
