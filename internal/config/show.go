package config

import (
	"fmt"
	"io"
)

// redacted replaces secret values in rendered output.
const redacted = "********"

// RenderEffective writes the resolved configuration as a human-readable
// annotated summary to w. This powers the "config show" command.
func RenderEffective(r *Resolved, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (file: %s)\n\n", r.Path)

	renderListingSection(ew, &r.ListingConfig)
	renderLoggingSection(ew, &r.LoggingConfig)
	renderStorageSection(ew, &r.StorageConfig)
	renderS3Section(ew, &r.S3Config)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func renderListingSection(ew *errWriter, l *ListingConfig) {
	ew.printf("# listing\n")
	ew.printf("metadata_workers = %d\n", l.MetadataWorkers)
	ew.printf("sort_type        = %q\n", l.SortType)
	ew.printf("sort_by          = %q\n", l.SortBy)
	ew.printf("\n")
}

func renderLoggingSection(ew *errWriter, l *LoggingConfig) {
	ew.printf("# logging\n")
	ew.printf("log_level  = %q\n", l.LogLevel)
	ew.printf("log_format = %q\n", l.LogFormat)
	ew.printf("\n")
}

func renderStorageSection(ew *errWriter, s *StorageConfig) {
	ew.printf("# storage\n")
	ew.printf("grant_db = %q\n", s.GrantDB)
	ew.printf("\n")
}

func renderS3Section(ew *errWriter, s *S3Config) {
	ew.printf("# s3\n")
	ew.printf("s3_region     = %q\n", s.S3Region)

	if s.S3Endpoint != "" {
		ew.printf("s3_endpoint   = %q\n", s.S3Endpoint)
	}

	ew.printf("s3_path_style = %t\n", s.S3PathStyle)

	if s.S3AccessKeyID != "" {
		ew.printf("s3_access_key_id     = %q\n", s.S3AccessKeyID)
		ew.printf("s3_secret_access_key = %q\n", redacted)
	}
}
