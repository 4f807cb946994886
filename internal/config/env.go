package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig   = "FOLDERBRIDGE_CONFIG"
	EnvGrantDB  = "FOLDERBRIDGE_GRANT_DB"
	EnvLogLevel = "FOLDERBRIDGE_LOG_LEVEL"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // FOLDERBRIDGE_CONFIG: override config file path
	GrantDB    string // FOLDERBRIDGE_GRANT_DB: grant database path
	LogLevel   string // FOLDERBRIDGE_LOG_LEVEL: log level
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; Resolve applies the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		GrantDB:    os.Getenv(EnvGrantDB),
		LogLevel:   os.Getenv(EnvLogLevel),
	}
}
