package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/folderbridge/internal/bridge"
	"github.com/tonimelisma/folderbridge/internal/config"
)

// newAlbum creates a granted-looking folder with b.jpg (newer) and a.jpg
// (older) and returns its path.
func newAlbum(t *testing.T, parent string) string {
	t.Helper()

	dir := filepath.Join(parent, "photos-album")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	base := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

	for name, mtime := range map[string]time.Time{
		"b.jpg": base.Add(time.Hour),
		"a.jpg": base,
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(name), 0o600))
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}

	return dir
}

func dirURI(path string) string {
	return (&url.URL{Scheme: "file", Path: path}).String()
}

func names(locators []string) []string {
	out := make([]string, len(locators))
	for i, l := range locators {
		out[i] = l[strings.LastIndex(l, "/")+1:]
	}

	return out
}

func lines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}

	return strings.Split(s, "\n")
}

func TestLsCmd_Sorted(t *testing.T) {
	env := newCLIEnv(t)
	album := newAlbum(t, env.dir)

	env.mustRun(t, "grant", "add", dirURI(album))

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"asc by name", []string{"--sort-type", "asc", "--sort-by", "name"}, []string{"a.jpg", "b.jpg"}},
		{"desc by name", []string{"--sort-type", "desc", "--sort-by", "name"}, []string{"b.jpg", "a.jpg"}},
		{"asc by date", []string{"--sort-type", "asc", "--sort-by", "date"}, []string{"a.jpg", "b.jpg"}},
		{"desc by date", []string{"--sort-type", "desc", "--sort-by", "date"}, []string{"b.jpg", "a.jpg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := env.mustRun(t, append([]string{"ls", "photos-album"}, tt.args...)...)

			got := lines(out)
			assert.Equal(t, tt.want, names(got))

			for _, l := range got {
				assert.True(t, strings.HasPrefix(l, "file://"), l)
			}
		})
	}
}

func TestLsCmd_UnsortedReturnsEverything(t *testing.T) {
	env := newCLIEnv(t)
	album := newAlbum(t, env.dir)

	env.mustRun(t, "grant", "add", dirURI(album))

	got := names(lines(env.mustRun(t, "ls", "photos-album")))
	assert.ElementsMatch(t, []string{"a.jpg", "b.jpg"}, got)
}

func TestLsCmd_ConfigDefaultSort(t *testing.T) {
	env := newCLIEnv(t)
	album := newAlbum(t, env.dir)

	require.NoError(t, writeFile(env.configPath, "sort_type = \"desc\"\nsort_by = \"date\"\n"))
	env.mustRun(t, "grant", "add", dirURI(album))

	assert.Equal(t, []string{"b.jpg", "a.jpg"}, names(lines(env.mustRun(t, "ls", "photos-album"))))

	// Flags beat config.
	out := env.mustRun(t, "ls", "photos-album", "--sort-type", "asc")
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, names(lines(out)))
}

func TestLsCmd_JSON(t *testing.T) {
	env := newCLIEnv(t)
	album := newAlbum(t, env.dir)

	env.mustRun(t, "grant", "add", dirURI(album))

	out := env.mustRun(t, "--json", "ls", "photos-album", "--sort-type", "asc", "--sort-by", "name")

	var got []string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, names(got))
}

func TestLsCmd_NoMatchIsEmpty(t *testing.T) {
	env := newCLIEnv(t)
	album := newAlbum(t, env.dir)

	env.mustRun(t, "grant", "add", dirURI(album))

	assert.Empty(t, env.mustRun(t, "ls", "holiday-videos"))
	assert.Equal(t, "[]\n", env.mustRun(t, "--json", "ls", "holiday-videos"))
}

func TestLsCmd_RevokedFolderIsEmpty(t *testing.T) {
	env := newCLIEnv(t)
	album := newAlbum(t, env.dir)

	env.mustRun(t, "grant", "add", dirURI(album))
	require.NoError(t, os.RemoveAll(album))

	assert.Empty(t, env.mustRun(t, "ls", "photos-album"))
}

func TestLsCmd_InvalidSortDegrades(t *testing.T) {
	env := newCLIEnv(t)
	album := newAlbum(t, env.dir)

	env.mustRun(t, "grant", "add", dirURI(album))

	got := names(lines(env.mustRun(t, "ls", "photos-album", "--sort-type", "sideways", "--sort-by", "name")))
	assert.ElementsMatch(t, []string{"a.jpg", "b.jpg"}, got)
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

// testApp wires an app against env's database the way PersistentPreRunE
// and openApp do.
func testApp(t *testing.T, env cliEnv) *app {
	t.Helper()

	resolved, err := config.Resolve(config.EnvOverrides{}, config.CLIOverrides{
		ConfigPath: env.configPath,
		GrantDB:    &env.grantDB,
	})
	require.NoError(t, err)

	cc := &CLIContext{Cfg: resolved, Logger: newLogger(testWriter{t}, true, resolved, CLIFlags{Verbose: true})}

	a, err := openApp(context.Background(), cc)
	require.NoError(t, err)

	t.Cleanup(func() { a.Close() })

	return a
}

// testWriter routes log output to t.Log.
type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestWatchLs_RelistsOnChange(t *testing.T) {
	env := newCLIEnv(t)
	album := newAlbum(t, env.dir)

	env.mustRun(t, "grant", "add", dirURI(album))

	a := testApp(t, env)
	req := bridge.Request{FolderPath: "photos-album", SortType: "asc", SortBy: "name"}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer

	done := make(chan error, 1)
	go func() { done <- watchLs(ctx, &out, a, req, true) }()

	require.Eventually(t, func() bool {
		return strings.Count(out.String(), "\n") >= 1
	}, 5*time.Second, 20*time.Millisecond, "initial listing")

	require.NoError(t, os.WriteFile(filepath.Join(album, "c.jpg"), []byte("c"), 0o600))

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "c.jpg")
	}, 5*time.Second, 20*time.Millisecond, "listing after change")

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watchLs did not return after cancel")
	}

	all := lines(out.String())
	require.GreaterOrEqual(t, len(all), 2)

	var first, last []string
	require.NoError(t, json.Unmarshal([]byte(all[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(all[len(all)-1]), &last))
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, names(first))
	assert.Equal(t, []string{"a.jpg", "b.jpg", "c.jpg"}, names(last))
}

func TestWatchLs_NoMatch(t *testing.T) {
	env := newCLIEnv(t)
	a := testApp(t, env)

	err := watchLs(context.Background(), &bytes.Buffer{}, a, bridge.Request{FolderPath: "nothing"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no granted folder")
}

func TestWatchLs_S3NotWatchable(t *testing.T) {
	env := newCLIEnv(t)

	env.mustRun(t, "grant", "add", "s3://media-bucket/uploads")

	a := testApp(t, env)

	err := watchLs(context.Background(), &bytes.Buffer{}, a, bridge.Request{FolderPath: "uploads"}, false)
	require.ErrorIs(t, err, errNotWatchable)
}
