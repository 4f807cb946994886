package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"golang.org/x/text/unicode/norm"
)

// schemeFile is the URI scheme served by LocalBackend.
const schemeFile = "file"

// LocalBackend serves file:// root URIs from the local filesystem.
type LocalBackend struct {
	logger *slog.Logger
}

// NewLocalBackend returns a LocalBackend. A nil logger discards output.
func NewLocalBackend(logger *slog.Logger) *LocalBackend {
	return &LocalBackend{logger: orDiscard(logger)}
}

// Scheme implements Backend.
func (b *LocalBackend) Scheme() string { return schemeFile }

// Open implements Backend. The URI must be an absolute file URL; the
// directory is not touched until Children is called.
func (b *LocalBackend) Open(rootURI string) (Directory, error) {
	u, err := url.Parse(rootURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidURI, rootURI, err)
	}

	if u.Scheme != schemeFile {
		return nil, fmt.Errorf("%w: %q is not a file URI", ErrInvalidURI, rootURI)
	}

	// file://host/path is only meaningful for the local host.
	if u.Host != "" && u.Host != "localhost" {
		return nil, fmt.Errorf("%w: %q names remote host %q", ErrInvalidURI, rootURI, u.Host)
	}

	if !filepath.IsAbs(filepath.FromSlash(u.Path)) {
		return nil, fmt.Errorf("%w: %q path must be absolute", ErrInvalidURI, rootURI)
	}

	return &LocalDirectory{
		path:   filepath.Clean(filepath.FromSlash(u.Path)),
		logger: b.logger,
	}, nil
}

// LocalDirectory is a Directory on the local filesystem.
type LocalDirectory struct {
	path   string
	logger *slog.Logger
}

// Path returns the filesystem path of the directory.
func (d *LocalDirectory) Path() string { return d.path }

// URI implements Directory.
func (d *LocalDirectory) URI() string { return fileURI(d.path) }

// Children implements Directory. Entries are returned in os.ReadDir order
// (sorted by filename).
func (d *LocalDirectory) Children(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("storage: reading directory %q: %w", d.path, err)
	}

	out := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		out = append(out, &localEntry{
			path: filepath.Join(d.path, de.Name()),
			name: norm.NFC.String(de.Name()),
		})
	}

	d.logger.Debug("storage: listed local directory",
		slog.String("path", d.path), slog.Int("children", len(out)))

	return out, nil
}

// localEntry is a child of a LocalDirectory. Metadata is read lazily so a
// listing that does not sort performs no per-entry stat calls.
type localEntry struct {
	path string
	name string // NFC form of the directory entry name
}

func (e *localEntry) Locator() string { return fileURI(e.path) }

// DisplayName returns the NFC-normalized entry name once Lstat confirms the
// entry still exists. macOS reports NFD names, which would otherwise sort
// differently from the same name typed by a user. Lstat does not follow
// symlinks, so a dangling link keeps its own name.
func (e *localEntry) DisplayName(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if _, err := os.Lstat(e.path); err != nil {
		return "", fmt.Errorf("storage: lstat %q: %w", e.path, err)
	}

	return e.name, nil
}

func (e *localEntry) LastModified(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	fi, err := os.Stat(e.path)
	if err != nil {
		// A dangling symlink still has its own mtime.
		var lerr error
		if fi, lerr = os.Lstat(e.path); lerr != nil {
			return 0, fmt.Errorf("storage: stat %q: %w", e.path, err)
		}
	}

	return fi.ModTime().UnixMilli(), nil
}

// fileURI renders an absolute path as a file:// URL.
func fileURI(path string) string {
	u := url.URL{Scheme: schemeFile, Path: filepath.ToSlash(path)}
	return u.String()
}
