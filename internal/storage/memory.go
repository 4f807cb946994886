package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
)

// schemeMemory is the URI scheme served by MemoryBackend.
const schemeMemory = "mem"

// MemoryEntry is a child held by MemoryBackend. NameErr and ModifiedErr
// make the corresponding lookup fail.
type MemoryEntry struct {
	URI         string
	Name        string
	Modified    int64 // Unix milliseconds
	NameErr     error
	ModifiedErr error
}

// MemoryBackend serves mem:// root URIs from in-memory child lists. It is
// safe for concurrent use; Put and Fail may be called while listings run.
type MemoryBackend struct {
	mu   sync.RWMutex
	dirs map[string]memoryDir
}

type memoryDir struct {
	children []*MemoryEntry
	err      error
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{dirs: make(map[string]memoryDir)}
}

// Scheme implements Backend.
func (b *MemoryBackend) Scheme() string { return schemeMemory }

// Put replaces the children of rootURI. Nil entries are kept and surface
// as nil children during enumeration.
func (b *MemoryBackend) Put(rootURI string, children ...*MemoryEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.dirs[rootURI] = memoryDir{children: append([]*MemoryEntry(nil), children...)}
}

// Fail makes enumeration of rootURI return err.
func (b *MemoryBackend) Fail(rootURI string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.dirs[rootURI] = memoryDir{err: err}
}

// Open implements Backend. Unknown roots open successfully and fail on
// enumeration, matching the other backends.
func (b *MemoryBackend) Open(rootURI string) (Directory, error) {
	if !strings.HasPrefix(strings.ToLower(rootURI), schemeMemory+":") {
		return nil, fmt.Errorf("%w: %q is not a mem URI", ErrInvalidURI, rootURI)
	}

	return &memoryDirectory{backend: b, uri: rootURI}, nil
}

type memoryDirectory struct {
	backend *MemoryBackend
	uri     string
}

func (d *memoryDirectory) URI() string { return d.uri }

func (d *memoryDirectory) Children(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.backend.mu.RLock()
	dir, ok := d.backend.dirs[d.uri]
	d.backend.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("storage: %q: %w", d.uri, fs.ErrNotExist)
	}

	if dir.err != nil {
		return nil, dir.err
	}

	out := make([]Entry, len(dir.children))
	for i, c := range dir.children {
		// Leave the slot as an untyped nil so callers' nil checks work.
		if c != nil {
			out[i] = c
		}
	}

	return out, nil
}

// Locator implements Entry.
func (e *MemoryEntry) Locator() string { return e.URI }

// DisplayName implements Entry.
func (e *MemoryEntry) DisplayName(_ context.Context) (string, error) {
	if e.NameErr != nil {
		return "", e.NameErr
	}

	return e.Name, nil
}

// LastModified implements Entry.
func (e *MemoryEntry) LastModified(_ context.Context) (int64, error) {
	if e.ModifiedErr != nil {
		return 0, e.ModifiedErr
	}

	return e.Modified, nil
}

// orDiscard returns logger, or a logger that drops everything if nil.
func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return logger
}
