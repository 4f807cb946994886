package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownKeys are the valid top-level keys in the config file.
var knownKeys = map[string]bool{
	// Listing settings
	"metadata_workers": true, "sort_type": true, "sort_by": true,
	// Logging settings
	"log_level": true, "log_format": true,
	// Storage settings
	"grant_db": true,
	// S3 settings
	"s3_region": true, "s3_endpoint": true, "s3_path_style": true,
	"s3_access_key_id": true, "s3_secret_access_key": true,
}

// knownKeysList is the sorted slice form of knownKeys for Levenshtein
// matching. Sorted for deterministic suggestions when two candidates have
// the same edit distance.
var knownKeysList = func() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}()

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key. Keys
// inside a table are reported by their leaf name, so a misplaced
// [listing] metadata_worker still gets a suggestion.
func checkUnknownKeys(md *toml.MetaData) error {
	var errs []error

	for _, key := range md.Undecoded() {
		errs = append(errs, buildKeyError(key))
	}

	return errors.Join(errs...)
}

// buildKeyError creates a descriptive error for an unknown key, optionally
// suggesting the closest known key.
func buildKeyError(key toml.Key) error {
	leaf := key[len(key)-1]

	if suggestion := closestMatch(leaf, knownKeysList); suggestion != "" {
		if len(key) > 1 {
			return fmt.Errorf("unknown config key %q: did you mean top-level %q?", key.String(), suggestion)
		}

		return fmt.Errorf("unknown config key %q: did you mean %q?", leaf, suggestion)
	}

	return fmt.Errorf("unknown config key %q", key.String())
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	// Single-row optimization: two rows instead of a full matrix.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}
