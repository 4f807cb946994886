// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for folderbridge. It supports a
// four-layer override chain (defaults -> config file -> environment -> CLI
// flags). All keys are flat top-level keys; the section structs below only
// group related fields.
package config

// Config is the top-level configuration structure parsed from a TOML file.
// The embedded structs are flattened by the TOML decoder, so a key such as
// metadata_workers lives at the top level of the file.
type Config struct {
	ListingConfig
	LoggingConfig
	StorageConfig
	S3Config
}

// ListingConfig controls the listing engine and the default sort used by
// the ls command when no sort flags are given.
type ListingConfig struct {
	MetadataWorkers int    `toml:"metadata_workers"`
	SortType        string `toml:"sort_type"`
	SortBy          string `toml:"sort_by"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// StorageConfig locates the durable grant database.
type StorageConfig struct {
	GrantDB string `toml:"grant_db"`
}

// S3Config configures the s3:// storage backend. Empty credentials fall back
// to the AWS default credential chain.
type S3Config struct {
	S3Region          string `toml:"s3_region"`
	S3Endpoint        string `toml:"s3_endpoint"`
	S3PathStyle       bool   `toml:"s3_path_style"`
	S3AccessKeyID     string `toml:"s3_access_key_id"`
	S3SecretAccessKey string `toml:"s3_secret_access_key"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to zero value".
type CLIOverrides struct {
	ConfigPath string  // --config flag (empty = use default)
	GrantDB    *string // --grant-db flag
	LogLevel   *string // derived from --verbose / --quiet
}
