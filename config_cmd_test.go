package main

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/folderbridge/internal/config"
)

func TestConfigCmd_InitThenShow(t *testing.T) {
	env := newCLIEnv(t)

	env.mustRun(t, "config", "init")

	data, err := os.ReadFile(env.configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# folderbridge configuration")

	out := env.mustRun(t, "config", "show")
	assert.Contains(t, out, env.configPath)
	assert.Contains(t, out, "metadata_workers = 8")
	assert.Contains(t, out, env.grantDB)
}

func TestConfigCmd_InitRefusesOverwrite(t *testing.T) {
	env := newCLIEnv(t)

	env.mustRun(t, "config", "init")

	_, err := env.run(t, "config", "init")
	require.ErrorIs(t, err, config.ErrConfigExists)
}

func TestConfigCmd_SetThenShowJSON(t *testing.T) {
	env := newCLIEnv(t)

	env.mustRun(t, "config", "set", "sort_type", "desc")
	env.mustRun(t, "config", "set", "s3_access_key_id", "minio")
	env.mustRun(t, "config", "set", "s3_secret_access_key", "hunter2")

	out := env.mustRun(t, "--json", "config", "show")
	assert.NotContains(t, out, "hunter2")

	var shown configJSON
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, "desc", shown.SortType)
	assert.Equal(t, "minio", shown.S3AccessKeyID)
	assert.Equal(t, env.grantDB, shown.GrantDB)
	assert.Equal(t, env.configPath, shown.Path)
}

func TestConfigCmd_SetRejectsBadValue(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "config", "set", "sort_by", "size")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sort_by")

	_, statErr := os.Stat(env.configPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestConfigCmd_EnvConfigPath(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, writeFile(env.configPath, "metadata_workers = 5\n"))
	t.Setenv(config.EnvConfig, env.configPath)

	cmd := newRootCmd()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--grant-db", env.grantDB, "--json", "config", "show"})
	require.NoError(t, cmd.Execute())

	var shown configJSON
	require.NoError(t, json.Unmarshal(out.Bytes(), &shown))
	assert.Equal(t, 5, shown.MetadataWorkers)
}
