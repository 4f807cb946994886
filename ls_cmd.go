package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/folderbridge/internal/bridge"
	"github.com/tonimelisma/folderbridge/internal/storage"
)

// errNotWatchable is returned by ls --watch when the resolved folder's
// backend cannot report changes.
var errNotWatchable = errors.New("folder does not support --watch")

func newLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls [folder-fragment]",
		Short: "List the granted folder matching a fragment",
		Long: `List the direct children of the first granted root whose URI contains
the folder fragment. An empty fragment selects the first grant. Output is
one locator per line, or a JSON array with --json. A folder with no
matching grant lists as empty.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runLs,
	}

	cmd.Flags().String("sort-type", "", "sort direction: none, asc, desc (default from config)")
	cmd.Flags().String("sort-by", "", "sort key: none, name, date (default from config)")
	cmd.Flags().Bool("watch", false, "re-list whenever the folder changes (local folders only)")

	return cmd
}

func runLs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	req := bridge.Request{
		SortType: cc.Cfg.SortType,
		SortBy:   cc.Cfg.SortBy,
	}

	if len(args) > 0 {
		req.FolderPath = args[0]
	}

	if cmd.Flags().Changed("sort-type") {
		req.SortType, _ = cmd.Flags().GetString("sort-type")
	}

	if cmd.Flags().Changed("sort-by") {
		req.SortBy, _ = cmd.Flags().GetString("sort-by")
	}

	a, err := openApp(ctx, cc)
	if err != nil {
		return err
	}
	defer a.Close()

	cc.Logger.Debug("ls", slog.String("folder", req.FolderPath),
		slog.String("sort_type", req.SortType), slog.String("sort_by", req.SortBy))

	watch, _ := cmd.Flags().GetBool("watch")
	if watch {
		watchCtx, stop := shutdownContext(ctx, cc.Logger)
		defer stop()

		return watchLs(watchCtx, cmd.OutOrStdout(), a, req, cc.Flags.JSON)
	}

	return printListing(cmd.OutOrStdout(), <-a.bridge.Future(ctx, req), cc.Flags.JSON)
}

// watchLs prints the listing, then re-prints it after every change to the
// resolved folder until ctx is canceled.
func watchLs(ctx context.Context, w io.Writer, a *app, req bridge.Request, asJSON bool) error {
	root := a.resolver.ResolveRoot(ctx, req.FolderPath)
	if root == nil {
		return fmt.Errorf("no granted folder matches %q", req.FolderPath)
	}

	watcher, ok := root.(storage.Watcher)
	if !ok {
		return fmt.Errorf("%w: %s", errNotWatchable, root.URI())
	}

	changes, err := watcher.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watching %s: %w", root.URI(), err)
	}

	if err := printListing(w, a.bridge.GetFolderFiles(ctx, req), asJSON); err != nil {
		return err
	}

	for range changes {
		a.logger.Debug("folder changed, re-listing", slog.String("root", root.URI()))

		if !asJSON {
			fmt.Fprintln(w)
		}

		if err := printListing(w, a.bridge.GetFolderFiles(ctx, req), asJSON); err != nil {
			return err
		}
	}

	return nil
}

// printListing writes locators one per line, or as a single-line JSON
// array so --watch output stays line-delimited.
func printListing(w io.Writer, files []string, asJSON bool) error {
	if asJSON {
		return writeJSONLine(w, files)
	}

	for _, f := range files {
		if _, err := fmt.Fprintln(w, f); err != nil {
			return err
		}
	}

	return nil
}
