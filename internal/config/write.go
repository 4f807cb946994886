package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// configFilePermissions is the permission mode for config files. The file
// may hold S3 credentials, so it is owner-only.
const configFilePermissions = 0o600

// configDirPermissions is the permission mode for config directories.
const configDirPermissions = 0o755

// ErrConfigExists is returned by WriteTemplate when the target file is
// already present.
var ErrConfigExists = errors.New("config: file already exists")

// configTemplate is the config file content written by "config init".
// Every setting is present as a commented-out default so users can discover
// each option without reading docs.
const configTemplate = `# folderbridge configuration

# Parallel metadata lookups per listing (1-64)
# metadata_workers = 8

# Default sort for "ls": sort_type none|asc|desc, sort_by none|name|date
# sort_type = "none"
# sort_by = "none"

# Log verbosity: debug, info, warn, error
# log_level = "info"

# Log format: auto (text on a terminal, JSON otherwise), text, json
# log_format = "auto"

# Grant database (default: platform data directory)
# grant_db = ""

# S3 backend. Empty credentials use the AWS default chain.
# s3_region = "us-east-1"
# s3_endpoint = ""
# s3_path_style = false
# s3_access_key_id = ""
# s3_secret_access_key = ""
`

// WriteTemplate creates a new config file at path from the default
// template. It refuses to overwrite an existing file.
func WriteTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}

	slog.Info("creating config file", "path", path)

	return atomicWriteFile(path, []byte(configTemplate))
}

// SetKey sets a top-level key in the config file at path, replacing an
// existing assignment or appending a new one. The file is created from the
// template if missing. The edited file must still load cleanly, otherwise
// nothing is written.
func SetKey(path, key, value string) error {
	if !knownKeys[key] {
		if suggestion := closestMatch(key, knownKeysList); suggestion != "" {
			return fmt.Errorf("unknown config key %q: did you mean %q?", key, suggestion)
		}

		return fmt.Errorf("unknown config key %q", key)
	}

	slog.Info("setting config key", "path", path, "key", key)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		data = []byte(configTemplate)
	} else if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	lines := setTopLevelKey(strings.Split(string(data), "\n"), key, formatTOMLValue(key, value))
	content := []byte(strings.Join(lines, "\n"))

	if err := validateContent(content); err != nil {
		return err
	}

	return atomicWriteFile(path, content)
}

// validateContent loads content through the normal Load path via a scratch
// file so a bad edit is rejected with the usual error messages.
func validateContent(content []byte) error {
	f, err := os.CreateTemp("", "folderbridge-config-*.toml")
	if err != nil {
		return fmt.Errorf("creating scratch file: %w", err)
	}

	defer os.Remove(f.Name())

	if _, err := f.Write(content); err != nil {
		f.Close()

		return fmt.Errorf("writing scratch file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing scratch file: %w", err)
	}

	_, err = Load(f.Name())

	return err
}

// setTopLevelKey replaces the first uncommented "key = ..." line before any
// table header, or inserts one after the last top-level assignment.
func setTopLevelKey(lines []string, key, formatted string) []string {
	newLine := fmt.Sprintf("%s = %s", key, formatted)
	keyPrefix := key + " "
	keyPrefixEq := key + "="

	end := len(lines)

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") {
			end = i

			break
		}

		if strings.HasPrefix(trimmed, keyPrefix) || strings.HasPrefix(trimmed, keyPrefixEq) {
			lines[i] = newLine

			return lines
		}
	}

	// Drop trailing blank lines of the top-level block so the key lands
	// right after existing content.
	insertAt := end
	for insertAt > 0 && strings.TrimSpace(lines[insertAt-1]) == "" {
		insertAt--
	}

	inserted := make([]string, 0, len(lines)+2)
	inserted = append(inserted, lines[:insertAt]...)
	inserted = append(inserted, newLine)

	if insertAt == len(lines) {
		inserted = append(inserted, "")
	}

	inserted = append(inserted, lines[insertAt:]...)

	return inserted
}

// bareKeys hold non-string values and are written without quotes.
var bareKeys = map[string]bool{
	"metadata_workers": true,
	"s3_path_style":    true,
}

// formatTOMLValue formats a value for TOML output. Integer and boolean
// keys are written bare when the value parses; everything else is quoted.
func formatTOMLValue(key, value string) string {
	if bareKeys[key] {
		if value == "true" || value == "false" {
			return value
		}

		if _, err := strconv.Atoi(value); err == nil {
			return value
		}
	}

	return strconv.Quote(value)
}

// atomicWriteFile writes data to a temporary file in the same directory as
// path, then renames it to the target path. Parent directories are created
// as needed.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tempPath := f.Name()

	// Clean up the temp file on any error path.
	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()

		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tempPath, configFilePermissions); err != nil {
		return fmt.Errorf("setting file permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	succeeded = true

	return nil
}
