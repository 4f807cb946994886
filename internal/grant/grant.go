// Package grant holds durable access grants and resolves a requested
// folder fragment to the root directory of the first matching grant.
//
// A grant is an opaque, previously issued authorization to enumerate one
// storage subtree, identified by its root URI. The listing core only reads
// grants; Store is the place they are created and revoked.
package grant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tonimelisma/folderbridge/internal/storage"
)

// Grant is one durable access grant.
type Grant struct {
	ID        string
	RootURI   string
	Label     string
	GrantedAt time.Time
}

// Source yields the current set of grants in enumeration order. The order
// is whatever the underlying store provides and need not be stable across
// calls.
type Source interface {
	Grants(ctx context.Context) ([]Grant, error)
}

// StaticSource is a fixed grant set, for embedding callers that manage
// grants themselves.
type StaticSource []Grant

// Grants implements Source.
func (s StaticSource) Grants(_ context.Context) ([]Grant, error) {
	return s, nil
}

// Match returns the first grant whose root URI contains fragment as a
// substring. The match is deliberately loose: it is neither a prefix nor an
// equality test, and when several grants match the first one wins. An
// empty fragment matches the first grant.
func Match(fragment string, grants []Grant) (Grant, bool) {
	for _, g := range grants {
		if strings.Contains(g.RootURI, fragment) {
			return g, true
		}
	}

	return Grant{}, false
}

// ValidateRootURI checks that rootURI can later be opened by some backend:
// it must parse and carry a scheme.
func ValidateRootURI(rootURI string) error {
	if strings.TrimSpace(rootURI) == "" {
		return fmt.Errorf("grant: root URI must not be empty")
	}

	if _, err := storage.Scheme(rootURI); err != nil {
		return fmt.Errorf("grant: %w", err)
	}

	return nil
}
