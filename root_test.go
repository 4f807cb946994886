package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/folderbridge/internal/config"
)

// cliEnv isolates a CLI invocation: its own config file, grant database,
// and no inherited FOLDERBRIDGE_* or AWS shared-config state.
type cliEnv struct {
	dir        string
	configPath string
	grantDB    string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()

	dir := t.TempDir()

	t.Setenv(config.EnvConfig, "")
	t.Setenv(config.EnvGrantDB, "")
	t.Setenv(config.EnvLogLevel, "")
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "no-aws-config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "no-aws-credentials"))

	return cliEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "config.toml"),
		grantDB:    filepath.Join(dir, "state", "grants.db"),
	}
}

// run executes the root command with the env's config and database and
// returns stdout.
func (e cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", e.configPath, "--grant-db", e.grantDB, "--quiet"}, args...))

	err := cmd.ExecuteContext(context.Background())

	return out.String(), err
}

// mustRun is run that fails the test on error.
func (e cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()

	out, err := e.run(t, args...)
	require.NoError(t, err, "folderbridge %s", strings.Join(args, " "))

	return out
}

// --- logger tests ---

func TestNewLogger_Default(t *testing.T) {
	logger := newLogger(io.Discard, true, nil, CLIFlags{})

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestNewLogger_ConfigLevels(t *testing.T) {
	tests := []struct {
		level   string
		enabled slog.Level
		muted   slog.Level
	}{
		{"debug", slog.LevelDebug, slog.LevelDebug - 1},
		{"info", slog.LevelInfo, slog.LevelDebug},
		{"warn", slog.LevelWarn, slog.LevelInfo},
		{"error", slog.LevelError, slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := &config.Resolved{Config: *config.DefaultConfig()}
			cfg.LogLevel = tt.level

			h := newLogger(io.Discard, true, cfg, CLIFlags{}).Handler()
			assert.True(t, h.Enabled(context.Background(), tt.enabled))
			assert.False(t, h.Enabled(context.Background(), tt.muted))
		})
	}
}

func TestNewLogger_FlagsOverrideConfig(t *testing.T) {
	cfg := &config.Resolved{Config: *config.DefaultConfig()}
	cfg.LogLevel = "error"

	verbose := newLogger(io.Discard, true, cfg, CLIFlags{Verbose: true}).Handler()
	assert.True(t, verbose.Enabled(context.Background(), slog.LevelDebug))

	cfg.LogLevel = "debug"

	quiet := newLogger(io.Discard, true, cfg, CLIFlags{Quiet: true}).Handler()
	assert.False(t, quiet.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, quiet.Enabled(context.Background(), slog.LevelError))
}

func TestNewLogger_Format(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		tty      bool
		wantJSON bool
	}{
		{"auto on terminal", "auto", true, false},
		{"auto piped", "auto", false, true},
		{"text piped", "text", false, false},
		{"json on terminal", "json", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Resolved{Config: *config.DefaultConfig()}
			cfg.LogFormat = tt.format

			var buf bytes.Buffer
			newLogger(&buf, tt.tty, cfg, CLIFlags{}).Info("hello")

			assert.Equal(t, tt.wantJSON, strings.HasPrefix(buf.String(), "{"), buf.String())
		})
	}
}

// --- Cobra structure tests ---

func TestNewRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{"grant", "ls", "config"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}

	for _, path := range [][]string{
		{"grant", "add"}, {"grant", "list"}, {"grant", "remove"},
		{"config", "show"}, {"config", "init"}, {"config", "set"},
	} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err)
		assert.Equal(t, path[1], sub.Name())
	}
}

func TestNewRootCmd_PersistentFlags(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{"config", "grant-db", "json", "verbose", "quiet"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "expected persistent flag %q", name)
	}
}

func TestNewRootCmd_VerboseQuietExclusive(t *testing.T) {
	env := newCLIEnv(t)

	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--config", env.configPath, "--verbose", "--quiet", "config", "init"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")
}

func TestSkipConfigCommands_UsesCommandPath(t *testing.T) {
	cmd := newRootCmd()

	for _, args := range [][]string{{"config", "init"}, {"config", "set"}} {
		sub, _, err := cmd.Find(args)
		require.NoError(t, err)
		assert.True(t, skipConfigCommands[sub.CommandPath()], "CommandPath %q should skip config", sub.CommandPath())
	}

	assert.False(t, skipConfigCommands["init"], "bare names must not be in skipConfigCommands")
}

func TestPersistentPreRun_BrokenConfigFails(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, writeFile(env.configPath, "metadata_workers = 0\n"))

	_, err := env.run(t, "grant", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
	assert.Contains(t, err.Error(), "metadata_workers")

	// config set can still repair it.
	env.mustRun(t, "config", "set", "metadata_workers", "4")
	env.mustRun(t, "grant", "list")
}

func TestMustCLIContext_PanicsWithoutContext(t *testing.T) {
	assert.Nil(t, cliContextFrom(context.Background()))
	assert.Panics(t, func() { mustCLIContext(context.Background()) })
}

func TestConfigPath_Precedence(t *testing.T) {
	t.Setenv(config.EnvConfig, "/from/env.toml")

	assert.Equal(t, "/from/flag.toml", configPath(CLIFlags{ConfigPath: "/from/flag.toml"}))
	assert.Equal(t, "/from/env.toml", configPath(CLIFlags{}))

	t.Setenv(config.EnvConfig, "")
	assert.Equal(t, config.DefaultConfigPath(), configPath(CLIFlags{}))
}

func TestLoadConfig_VerbosityFlagsSetLogLevel(t *testing.T) {
	tests := []struct {
		flag string
		want string
	}{
		{"--verbose", "debug"},
		{"--quiet", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			env := newCLIEnv(t)
			require.NoError(t, writeFile(env.configPath, "log_level = \"warn\"\n"))

			cmd := newRootCmd()

			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetErr(io.Discard)
			cmd.SetArgs([]string{"--config", env.configPath, "--grant-db", env.grantDB, tt.flag, "--json", "config", "show"})
			require.NoError(t, cmd.Execute())

			var shown configJSON
			require.NoError(t, json.Unmarshal(out.Bytes(), &shown))
			assert.Equal(t, tt.want, shown.LogLevel)
		})
	}
}

func TestLoadConfig_NoVerbosityFlagKeepsConfigLevel(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, writeFile(env.configPath, "log_level = \"warn\"\n"))

	cmd := newRootCmd()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", env.configPath, "--grant-db", env.grantDB, "--json", "config", "show"})
	require.NoError(t, cmd.Execute())

	var shown configJSON
	require.NoError(t, json.Unmarshal(out.Bytes(), &shown))
	assert.Equal(t, "warn", shown.LogLevel)
}
