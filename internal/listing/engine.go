package listing

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/folderbridge/internal/storage"
)

// DefaultWorkers bounds concurrent per-entry metadata lookups when the
// caller does not configure a limit.
const DefaultWorkers = 8

// Engine lists and sorts directory children. It never returns an error:
// every failure degrades to an empty listing or a per-entry fallback key.
// An Engine is safe for concurrent use; requests share no mutable state.
type Engine struct {
	workers int
	logger  *slog.Logger
}

// NewEngine returns an Engine running at most workers metadata lookups at
// once. workers <= 0 selects DefaultWorkers. A nil logger discards output.
func NewEngine(workers int, logger *slog.Logger) *Engine {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Engine{workers: workers, logger: logger}
}

// sortKey is one entry paired with its looked-up sort key. Exactly one of
// name/date is meaningful, depending on the requested field.
type sortKey struct {
	entry storage.Entry
	name  string
	date  int64
}

// ListSorted returns the locators of root's direct children, ordered by
// spec. A nil root, an enumeration failure, or any panic in the pipeline
// yields an empty, non-nil slice.
func (e *Engine) ListSorted(ctx context.Context, root storage.Directory, spec SortSpec) (out []string) {
	out = []string{}

	if root == nil {
		return out
	}

	var uri string

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("listing: panic while listing, returning empty result",
				slog.String("root", uri),
				slog.String("panic", fmt.Sprint(r)),
			)

			out = []string{}
		}
	}()

	uri = root.URI()

	children, err := root.Children(ctx)
	if err != nil {
		e.logger.Warn("listing: enumeration failed, returning empty result",
			slog.String("root", uri),
			slog.String("error", err.Error()),
		)

		return out
	}

	entries := make([]storage.Entry, 0, len(children))
	for _, c := range children {
		if !isNilEntry(c) {
			entries = append(entries, c)
		}
	}

	if !spec.Active() {
		e.logger.Debug("listing: unsorted listing",
			slog.String("root", uri), slog.Int("entries", len(entries)))

		return locators(entries)
	}

	keys := e.lookupKeys(ctx, entries, spec.Field)
	sortKeys(keys, spec)

	e.logger.Debug("listing: sorted listing",
		slog.String("root", uri),
		slog.String("sort", spec.String()),
		slog.Int("entries", len(keys)),
	)

	sorted := make([]string, len(keys))
	for i := range keys {
		sorted[i] = keys[i].entry.Locator()
	}

	return sorted
}

// lookupKeys fetches the sort key of every entry concurrently. Each
// goroutine writes only its own slot, and Wait joins all of them before
// the slice is read.
func (e *Engine) lookupKeys(ctx context.Context, entries []storage.Entry, field Field) []sortKey {
	keys := make([]sortKey, len(entries))

	var g errgroup.Group
	g.SetLimit(e.workers)

	for i := range entries {
		keys[i].entry = entries[i]
		slot := &keys[i]

		g.Go(func() error {
			e.lookupKey(ctx, slot, field)
			return nil
		})
	}

	_ = g.Wait() // lookups never fail; fallbacks are written in place

	return keys
}

// lookupKey fills one slot. Lookup errors and panics leave the fallback
// value ("" or 0) in place.
func (e *Engine) lookupKey(ctx context.Context, slot *sortKey, field Field) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("listing: panic in metadata lookup, using fallback",
				slog.String("entry", safeLocator(slot.entry)),
				slog.String("panic", fmt.Sprint(r)),
			)

			slot.name, slot.date = "", 0
		}
	}()

	switch field {
	case FieldName:
		name, err := slot.entry.DisplayName(ctx)
		if err != nil {
			e.logger.Debug("listing: name lookup failed, using fallback",
				slog.String("entry", slot.entry.Locator()), slog.String("error", err.Error()))

			return
		}

		slot.name = name

	case FieldDate:
		date, err := slot.entry.LastModified(ctx)
		if err != nil {
			e.logger.Debug("listing: date lookup failed, using fallback",
				slog.String("entry", slot.entry.Locator()), slog.String("error", err.Error()))

			return
		}

		slot.date = date

	case FieldNone:
	}
}

// sortKeys orders keys by the spec's field and direction. The sort is
// stable in both directions: equal keys keep enumeration order.
func sortKeys(keys []sortKey, spec SortSpec) {
	compare := func(a, b sortKey) int {
		if spec.Field == FieldDate {
			return cmp.Compare(a.date, b.date)
		}

		return cmp.Compare(a.name, b.name)
	}

	if spec.Direction == Descending {
		slices.SortStableFunc(keys, func(a, b sortKey) int { return compare(b, a) })
		return
	}

	slices.SortStableFunc(keys, compare)
}

// isNilEntry reports whether e is nil or an interface wrapping a nil
// pointer, map, slice, func or channel.
func isNilEntry(e storage.Entry) bool {
	if e == nil {
		return true
	}

	v := reflect.ValueOf(e)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

func locators(entries []storage.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Locator()
	}

	return out
}

// safeLocator is used while recovering from a panic, when Locator itself
// may be the culprit.
func safeLocator(e storage.Entry) (loc string) {
	defer func() {
		if recover() != nil {
			loc = "<unavailable>"
		}
	}()

	return e.Locator()
}
