// Package testutil holds environment helpers for the end-to-end tests,
// which build and drive the folderbridge binary from outside internal/.
package testutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadDotEnv reads KEY=VALUE pairs from a .env file at the given path.
// Missing file is not an error (CI sets env vars directly).
// Existing env vars take precedence over .env values.
func LoadDotEnv(envPath string) {
	f, err := os.Open(envPath)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = strings.Trim(value, "\"'")

		// Env vars take precedence over .env file.
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

// ValidateBucketAllowlist crashes the process if the bucket named by
// bucketEnvVar is not listed in FOLDERBRIDGE_ALLOWED_TEST_BUCKETS. Returns
// false without crashing when bucketEnvVar is unset, so S3 tests can skip.
func ValidateBucketAllowlist(bucketEnvVar string) bool {
	bucket := os.Getenv(bucketEnvVar)
	if bucket == "" {
		return false
	}

	allowlist := os.Getenv("FOLDERBRIDGE_ALLOWED_TEST_BUCKETS")
	if allowlist == "" {
		fmt.Fprintln(os.Stderr, "FATAL: FOLDERBRIDGE_ALLOWED_TEST_BUCKETS not set")
		fmt.Fprintln(os.Stderr, "Set it in .env or as an environment variable.")
		fmt.Fprintln(os.Stderr, "Example: FOLDERBRIDGE_ALLOWED_TEST_BUCKETS=fb-e2e")
		os.Exit(1)
	}

	for _, b := range strings.Split(allowlist, ",") {
		if strings.TrimSpace(b) == bucket {
			return true
		}
	}

	fmt.Fprintf(os.Stderr, "FATAL: %s=%q is not in FOLDERBRIDGE_ALLOWED_TEST_BUCKETS=%q\n",
		bucketEnvVar, bucket, allowlist)
	os.Exit(1)

	return false
}

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns the fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}
