package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/tonimelisma/folderbridge/internal/listing"
)

// Validation range constants.
const (
	minMetadataWorkers = 1
	maxMetadataWorkers = 64
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateListing(&cfg.ListingConfig)...)
	errs = append(errs, validateLogging(&cfg.LoggingConfig)...)
	errs = append(errs, validateS3(&cfg.S3Config)...)

	return errors.Join(errs...)
}

// ValidateResolved checks constraints that only make sense after the
// override chain has been applied and defaults filled in.
func ValidateResolved(cfg *Config) error {
	var errs []error

	if cfg.GrantDB == "" {
		errs = append(errs, errors.New("grant_db: no path configured and no default data directory available"))
	} else if !filepath.IsAbs(cfg.GrantDB) {
		errs = append(errs, fmt.Errorf("grant_db: must be absolute after expansion, got %q", cfg.GrantDB))
	}

	return errors.Join(errs...)
}

func validateListing(l *ListingConfig) []error {
	var errs []error

	if l.MetadataWorkers < minMetadataWorkers || l.MetadataWorkers > maxMetadataWorkers {
		errs = append(errs, fmt.Errorf("metadata_workers: must be between %d and %d, got %d",
			minMetadataWorkers, maxMetadataWorkers, l.MetadataWorkers))
	}

	if _, err := listing.ParseDirection(l.SortType); err != nil {
		errs = append(errs, fmt.Errorf("sort_type: must be one of none, asc, desc; got %q", l.SortType))
	}

	if _, err := listing.ParseField(l.SortBy); err != nil {
		errs = append(errs, fmt.Errorf("sort_by: must be one of none, name, date; got %q", l.SortBy))
	}

	return errs
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	errs = append(errs, validateLogLevel(l.LogLevel)...)
	errs = append(errs, validateLogFormat(l.LogFormat)...)

	return errs
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validateLogLevel(level string) []error {
	if !validLogLevels[level] {
		return []error{fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", level)}
	}

	return nil
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

func validateLogFormat(format string) []error {
	if !validLogFormats[format] {
		return []error{fmt.Errorf("log_format: must be one of auto, text, json; got %q", format)}
	}

	return nil
}

func validateS3(s *S3Config) []error {
	var errs []error

	if s.S3Endpoint != "" {
		u, err := url.Parse(s.S3Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("s3_endpoint: must be an absolute URL, got %q", s.S3Endpoint))
		}
	}

	if (s.S3AccessKeyID == "") != (s.S3SecretAccessKey == "") {
		errs = append(errs, errors.New("s3_access_key_id and s3_secret_access_key must be set together"))
	}

	return errs
}
