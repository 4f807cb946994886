package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/folderbridge/internal/grant"
)

func newGrantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Manage folder access grants",
		Long: `Manage the durable set of granted folder roots. A root is a URI such
as file:///home/me/Pictures or s3://bucket/prefix. Listing requests
resolve a folder fragment against this set in insertion order.`,
	}

	cmd.AddCommand(newGrantAddCmd())
	cmd.AddCommand(newGrantListCmd())
	cmd.AddCommand(newGrantRemoveCmd())

	return cmd
}

func newGrantAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <root-uri>",
		Short: "Grant access to a folder root",
		Args:  cobra.ExactArgs(1),
		RunE:  runGrantAdd,
	}

	cmd.Flags().String("label", "", "human-readable label for the grant")

	return cmd
}

func newGrantListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List granted folder roots in resolution order",
		Args:  cobra.NoArgs,
		RunE:  runGrantList,
	}
}

func newGrantRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Revoke a grant",
		Args:  cobra.ExactArgs(1),
		RunE:  runGrantRemove,
	}
}

// grantJSON is the JSON output schema for a single grant.
type grantJSON struct {
	ID        string `json:"id"`
	RootURI   string `json:"root_uri"`
	Label     string `json:"label,omitempty"`
	GrantedAt string `json:"granted_at"`
}

func toGrantJSON(g grant.Grant) grantJSON {
	return grantJSON{
		ID:        g.ID,
		RootURI:   g.RootURI,
		Label:     g.Label,
		GrantedAt: g.GrantedAt.UTC().Format(time.RFC3339),
	}
}

func runGrantAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)
	label, _ := cmd.Flags().GetString("label")

	a, err := openApp(ctx, cc)
	if err != nil {
		return err
	}
	defer a.Close()

	g, err := a.store.Add(ctx, args[0], label)
	if err != nil {
		return fmt.Errorf("adding grant: %w", err)
	}

	// Warn early when no backend can open the root; the grant is still
	// stored so it works once the backend is configured.
	if _, err := a.registry.Open(g.RootURI); err != nil {
		cc.Logger.Warn("granted root cannot be opened yet",
			"root_uri", g.RootURI,
			"error", err.Error(),
		)
	}

	if cc.Flags.JSON {
		return writeJSON(cmd.OutOrStdout(), toGrantJSON(g))
	}

	cc.Statusf("Granted %s (%s)\n", g.RootURI, g.ID)

	return nil
}

func runGrantList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	a, err := openApp(ctx, cc)
	if err != nil {
		return err
	}
	defer a.Close()

	grants, err := a.store.Grants(ctx)
	if err != nil {
		return fmt.Errorf("listing grants: %w", err)
	}

	if cc.Flags.JSON {
		out := make([]grantJSON, 0, len(grants))
		for _, g := range grants {
			out = append(out, toGrantJSON(g))
		}

		return writeJSON(cmd.OutOrStdout(), out)
	}

	if len(grants) == 0 {
		cc.Statusf("No grants. Run 'folderbridge grant add <root-uri>' to add one.\n")

		return nil
	}

	printGrantsTable(cmd.OutOrStdout(), grants)

	return nil
}

func printGrantsTable(w io.Writer, grants []grant.Grant) {
	headers := []string{"ID", "ROOT", "LABEL", "GRANTED"}
	rows := make([][]string, 0, len(grants))

	for _, g := range grants {
		rows = append(rows, []string{g.ID, g.RootURI, g.Label, formatTime(g.GrantedAt.Local())})
	}

	printTable(w, headers, rows)
}

func runGrantRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	a, err := openApp(ctx, cc)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.Remove(ctx, args[0]); err != nil {
		return fmt.Errorf("removing grant: %w", err)
	}

	if cc.Flags.JSON {
		return writeJSON(cmd.OutOrStdout(), map[string]string{"removed": args[0]})
	}

	cc.Statusf("Removed grant %s\n", args[0])

	return nil
}
