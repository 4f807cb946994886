package grant

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "state", "grants.db")

	s, err := OpenStore(context.Background(), path, testLogger(t))
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })

	return s, path
}

func TestStore_EmptyOnFirstOpen(t *testing.T) {
	s, _ := openTestStore(t)

	got, err := s.Grants(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_AddListsInInsertionOrder(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	fixed := time.Date(2025, time.March, 3, 9, 30, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return fixed }

	// Insert in non-lexical order to prove ordering is by insertion.
	uris := []string{"s3://zeta/photos", "file:///home/me/Pictures", "mem://alpha"}
	for _, u := range uris {
		_, err := s.Add(ctx, u, " label for "+u+" ")
		require.NoError(t, err)
	}

	got, err := s.Grants(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)

	for i, g := range got {
		assert.Equal(t, uris[i], g.RootURI)
		assert.Equal(t, "label for "+uris[i], g.Label)
		assert.True(t, fixed.Equal(g.GrantedAt))
		assert.NotEmpty(t, g.ID)
	}

	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestStore_AddDuplicate(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, "mem://x", "")
	require.NoError(t, err)

	_, err = s.Add(ctx, "mem://x", "again")
	require.ErrorIs(t, err, ErrDuplicateGrant)
}

func TestStore_AddRejectsInvalidURI(t *testing.T) {
	s, _ := openTestStore(t)

	_, err := s.Add(context.Background(), "relative/path", "")
	require.Error(t, err)

	got, err := s.Grants(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_Remove(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	a, err := s.Add(ctx, "mem://a", "")
	require.NoError(t, err)

	b, err := s.Add(ctx, "mem://b", "")
	require.NoError(t, err)

	require.NoError(t, s.Remove(ctx, a.ID))

	got, err := s.Grants(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ID)

	require.ErrorIs(t, s.Remove(ctx, a.ID), ErrGrantNotFound)
}

func TestStore_SurvivesReopen(t *testing.T) {
	s, path := openTestStore(t)
	ctx := context.Background()

	added, err := s.Add(ctx, "file:///data/media", "media")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := OpenStore(ctx, path, testLogger(t))
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Grants(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, added.ID, got[0].ID)
	assert.Equal(t, "media", got[0].Label)
}

func TestStore_FeedsResolver(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, "mem://tree/Android%2Fmedia%2Fcom.app", "")
	require.NoError(t, err)

	dir := NewResolver(s, newOpener(), testLogger(t)).ResolveRoot(ctx, "com.app")
	require.NotNil(t, dir)
	assert.Equal(t, "mem://tree/Android%2Fmedia%2Fcom.app", dir.URI())
}
