package grant

import (
	"context"
	"io"
	"log/slog"

	"github.com/tonimelisma/folderbridge/internal/storage"
)

// Opener builds a directory handle from a grant's root URI. Satisfied by
// *storage.Registry.
type Opener interface {
	Open(rootURI string) (storage.Directory, error)
}

// Resolver maps a folder fragment to the root directory of a grant.
type Resolver struct {
	source Source
	opener Opener
	logger *slog.Logger
}

// NewResolver returns a Resolver reading grants from source and building
// handles with opener. A nil logger discards output.
func NewResolver(source Source, opener Opener, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Resolver{source: source, opener: opener, logger: logger}
}

// ResolveRoot returns the root directory of the first grant whose root URI
// contains fragment, or nil when nothing matches. It never fails: a grant
// source error or an unopenable root URI are logged and reported as nil,
// which callers treat as an empty folder.
func (r *Resolver) ResolveRoot(ctx context.Context, fragment string) storage.Directory {
	grants, err := r.source.Grants(ctx)
	if err != nil {
		r.logger.Warn("grant: reading grants failed",
			slog.String("fragment", fragment), slog.String("error", err.Error()))

		return nil
	}

	g, ok := Match(fragment, grants)
	if !ok {
		r.logger.Debug("grant: no grant matches fragment",
			slog.String("fragment", fragment), slog.Int("grants", len(grants)))

		return nil
	}

	dir, err := r.opener.Open(g.RootURI)
	if err != nil {
		r.logger.Warn("grant: cannot open grant root",
			slog.String("grant_id", g.ID),
			slog.String("root_uri", g.RootURI),
			slog.String("error", err.Error()),
		)

		return nil
	}

	r.logger.Debug("grant: resolved fragment",
		slog.String("fragment", fragment),
		slog.String("grant_id", g.ID),
		slog.String("root_uri", g.RootURI),
	)

	return dir
}
