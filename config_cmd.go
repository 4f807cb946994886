package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/folderbridge/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigSetCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a commented config file with every default",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a key in the config file",
		Args:  cobra.ExactArgs(2),
		RunE:  runConfigSet,
	}
}

// configJSON is the JSON output schema for "config show". The S3 secret is
// never printed.
type configJSON struct {
	Path            string `json:"path"`
	MetadataWorkers int    `json:"metadata_workers"`
	SortType        string `json:"sort_type"`
	SortBy          string `json:"sort_by"`
	LogLevel        string `json:"log_level"`
	LogFormat       string `json:"log_format"`
	GrantDB         string `json:"grant_db"`
	S3Region        string `json:"s3_region"`
	S3Endpoint      string `json:"s3_endpoint,omitempty"`
	S3PathStyle     bool   `json:"s3_path_style"`
	S3AccessKeyID   string `json:"s3_access_key_id,omitempty"`
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	if cc.Cfg == nil {
		return errors.New("no configuration loaded")
	}

	r := cc.Cfg

	if cc.Flags.JSON {
		return writeJSON(cmd.OutOrStdout(), configJSON{
			Path:            r.Path,
			MetadataWorkers: r.MetadataWorkers,
			SortType:        r.SortType,
			SortBy:          r.SortBy,
			LogLevel:        r.LogLevel,
			LogFormat:       r.LogFormat,
			GrantDB:         r.GrantDB,
			S3Region:        r.S3Region,
			S3Endpoint:      r.S3Endpoint,
			S3PathStyle:     r.S3PathStyle,
			S3AccessKeyID:   r.S3AccessKeyID,
		})
	}

	return config.RenderEffective(r, cmd.OutOrStdout())
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	path := configPath(cc.Flags)

	if err := config.WriteTemplate(path); err != nil {
		return err
	}

	cc.Statusf("Wrote %s\n", path)

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	path := configPath(cc.Flags)

	if err := config.SetKey(path, args[0], args[1]); err != nil {
		return fmt.Errorf("updating %s: %w", path, err)
	}

	cc.Statusf("Set %s in %s\n", args[0], path)

	return nil
}
