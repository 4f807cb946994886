// Package bridge is the typed entry point for folder listing requests:
// resolve a folder fragment through the grant set, then list and sort the
// granted directory. Every failure yields an empty result, never an error.
package bridge

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/tonimelisma/folderbridge/internal/listing"
	"github.com/tonimelisma/folderbridge/internal/storage"
)

// Request asks for the contents of the granted folder matching FolderPath.
// SortType is none|asc|desc and SortBy is none|name|date.
type Request struct {
	FolderPath string `json:"folderPath"`
	SortType   string `json:"sortType"`
	SortBy     string `json:"sortBy"`
}

// RootResolver maps a folder fragment to a directory handle, or nil.
// Satisfied by *grant.Resolver.
type RootResolver interface {
	ResolveRoot(ctx context.Context, fragment string) storage.Directory
}

// Lister lists and sorts a directory. Satisfied by *listing.Engine.
type Lister interface {
	ListSorted(ctx context.Context, root storage.Directory, spec listing.SortSpec) []string
}

// Bridge serves folder listing requests.
type Bridge struct {
	resolver RootResolver
	lister   Lister
	logger   *slog.Logger
}

// New returns a Bridge. A nil logger discards output.
func New(resolver RootResolver, lister Lister, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Bridge{resolver: resolver, lister: lister, logger: logger}
}

// GetFolderFiles resolves req.FolderPath and returns the sorted locators
// of the folder's direct children. The result is never nil; it is empty
// when no grant matches or anything goes wrong.
func (b *Bridge) GetFolderFiles(ctx context.Context, req Request) (out []string) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("bridge: panic while serving request, returning empty result",
				slog.String("folder", req.FolderPath),
				slog.String("panic", fmt.Sprint(r)),
			)

			out = []string{}
		}
	}()

	spec := b.parseSpec(req)

	root := b.resolver.ResolveRoot(ctx, req.FolderPath)
	if root == nil {
		b.logger.Debug("bridge: no granted folder", slog.String("folder", req.FolderPath))
		return []string{}
	}

	out = b.lister.ListSorted(ctx, root, spec)
	if out == nil {
		out = []string{}
	}

	b.logger.Debug("bridge: request served",
		slog.String("folder", req.FolderPath),
		slog.String("sort", spec.String()),
		slog.Int("files", len(out)),
	)

	return out
}

// Submit serves req on a new goroutine and calls done exactly once with
// the result. Submissions are independent: nothing is queued and
// concurrent requests may interleave freely. A caller needing a timeout
// applies it to ctx or discards a late result itself.
func (b *Bridge) Submit(ctx context.Context, req Request, done func([]string)) {
	go func() {
		done(b.GetFolderFiles(ctx, req))
	}()
}

// Future serves req asynchronously and returns a channel that receives the
// result exactly once and is then closed.
func (b *Bridge) Future(ctx context.Context, req Request) <-chan []string {
	ch := make(chan []string, 1)

	b.Submit(ctx, req, func(files []string) {
		ch <- files
		close(ch)
	})

	return ch
}

// parseSpec converts the request's sort tokens. Unknown tokens are treated
// as none so a malformed request degrades to an unsorted listing.
func (b *Bridge) parseSpec(req Request) listing.SortSpec {
	spec, err := listing.ParseSortSpec(req.SortType, req.SortBy)
	if err != nil {
		b.logger.Warn("bridge: unrecognized sort token, using enumeration order",
			slog.String("sort_type", req.SortType),
			slog.String("sort_by", req.SortBy),
			slog.String("error", err.Error()),
		)
	}

	return spec
}
