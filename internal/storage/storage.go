// Package storage defines the directory enumeration primitive the listing
// engine runs against, plus the backends that implement it. A Directory is
// always reached through a root URI taken from an access grant; the package
// never accepts raw filesystem paths from callers.
//
// Three backends cover the supported URI schemes:
//   - file: local directories (LocalBackend)
//   - s3:   bucket prefixes on S3-compatible object storage (S3Backend)
//   - mem:  in-memory trees for embedding and tests (MemoryBackend)
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Sentinel errors for handle construction.
var (
	ErrInvalidURI        = errors.New("storage: invalid root URI")
	ErrUnsupportedScheme = errors.New("storage: unsupported URI scheme")
	ErrUnavailable       = errors.New("storage: metadata unavailable")
)

// Entry is one child of a Directory, either a file or a sub-directory.
// Locator is always available; the metadata lookups may perform I/O and
// may fail independently of the entry's existence.
type Entry interface {
	Locator() string
	DisplayName(ctx context.Context) (string, error)
	// LastModified returns the modification time in Unix milliseconds.
	LastModified(ctx context.Context) (int64, error)
}

// Directory is a handle to one directory reachable through a grant root.
// Constructing a Directory performs no I/O; Children does.
type Directory interface {
	URI() string
	// Children enumerates direct children. Backends may return nil slots
	// for children that could not be resolved; callers filter them. A nil
	// slot should be an untyped nil, though the listing engine also drops
	// slots holding a nil pointer.
	Children(ctx context.Context) ([]Entry, error)
}

// Backend builds Directory handles for one URI scheme.
type Backend interface {
	Scheme() string
	Open(rootURI string) (Directory, error)
}

// Registry dispatches root URIs to the backend registered for their scheme.
type Registry struct {
	backends map[string]Backend
}

// NewRegistry returns a Registry serving the given backends. A later
// backend with the same scheme replaces an earlier one.
func NewRegistry(backends ...Backend) *Registry {
	r := &Registry{backends: make(map[string]Backend, len(backends))}
	for _, b := range backends {
		r.Register(b)
	}

	return r
}

// Register adds or replaces the backend for b.Scheme().
func (r *Registry) Register(b Backend) {
	r.backends[strings.ToLower(b.Scheme())] = b
}

// Schemes returns the registered schemes in no particular order.
func (r *Registry) Schemes() []string {
	out := make([]string, 0, len(r.backends))
	for s := range r.backends {
		out = append(out, s)
	}

	return out
}

// Open builds a Directory handle for rootURI using the backend registered
// for its scheme.
func (r *Registry) Open(rootURI string) (Directory, error) {
	scheme, err := Scheme(rootURI)
	if err != nil {
		return nil, err
	}

	b, ok := r.backends[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}

	return b.Open(rootURI)
}

// Scheme returns the lowercased scheme of rootURI, or ErrInvalidURI if the
// URI does not parse or has no scheme.
func Scheme(rootURI string) (string, error) {
	u, err := url.Parse(rootURI)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidURI, rootURI, err)
	}

	if u.Scheme == "" {
		return "", fmt.Errorf("%w: %q has no scheme", ErrInvalidURI, rootURI)
	}

	return strings.ToLower(u.Scheme), nil
}
