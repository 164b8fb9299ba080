package mongostore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tunebox/tunebox/models"
)

// setupStore connects to MONGODB_URI and uses a throwaway database
func setupStore(t *testing.T) *Store {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set, skipping mongo integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := Connect(ctx, uri, "tunebox_test_"+uuid.NewString()[:8])
	if err != nil {
		t.Skipf("mongo not reachable: %v", err)
	}
	require.NoError(t, store.Initialize(ctx))

	t.Cleanup(func() {
		_ = store.Drop(context.Background())
		_ = store.Close()
	})
	return store
}

func TestSeedAndSearch(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	n, err := store.SeedSongs(ctx, models.SampleSongs())
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = store.SeedSongs(ctx, models.SampleSongs())
	require.NoError(t, err)
	assert.Zero(t, n)

	songs, err := store.SearchSongs(ctx, "NIRVANA")
	require.NoError(t, err)
	require.Len(t, songs, 1)
	assert.Equal(t, "Smells Like Teen Spirit", songs[0].Title)

	songs, err = store.SearchSongs(ctx, "e.n")
	require.NoError(t, err)
	assert.Empty(t, songs)
}

func TestMembership(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	songs := models.SampleSongs()
	require.NoError(t, store.InsertSongs(ctx, songs))

	alice := &models.User{Username: "alice", PasswordHash: "x"}
	require.NoError(t, store.CreateUser(ctx, alice))
	assert.ErrorIs(t, store.CreateUser(ctx, &models.User{Username: "alice"}), models.ErrConflict)
	bob := &models.User{Username: "bob", PasswordHash: "x"}
	require.NoError(t, store.CreateUser(ctx, bob))

	p := &models.Playlist{Name: "Road Trip", Owner: models.PlaylistOwner{ID: alice.ID}}
	require.NoError(t, store.CreatePlaylist(ctx, p))

	require.NoError(t, store.AddSongToPlaylist(ctx, alice.ID, p.ID, songs[3].ID))
	assert.ErrorIs(t, store.AddSongToPlaylist(ctx, alice.ID, p.ID, songs[3].ID), models.ErrConflict)
	assert.ErrorIs(t, store.AddSongToPlaylist(ctx, bob.ID, p.ID, songs[1].ID), models.ErrNotFound)
	require.NoError(t, store.AddSongToPlaylist(ctx, alice.ID, p.ID, songs[1].ID))

	got, err := store.GetPlaylist(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{songs[3].ID, songs[1].ID}, got.SongIDs)
	assert.Equal(t, "alice", got.Owner.Username)

	require.NoError(t, store.RemoveSongFromPlaylist(ctx, alice.ID, p.ID, songs[3].ID))
	require.NoError(t, store.RemoveSongFromPlaylist(ctx, alice.ID, p.ID, songs[3].ID))

	public := true
	require.NoError(t, store.UpdatePlaylist(ctx, alice.ID, p.ID, models.PlaylistPatch{IsPublic: &public}))
	assert.ErrorIs(t, store.UpdatePlaylist(ctx, bob.ID, p.ID, models.PlaylistPatch{IsPublic: &public}), models.ErrNotFound)

	mine, err := store.ListPlaylistsByOwner(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.True(t, mine[0].IsPublic)
	assert.Equal(t, []string{songs[1].ID}, mine[0].SongIDs)

	assert.ErrorIs(t, store.DeletePlaylist(ctx, bob.ID, p.ID), models.ErrNotFound)
	require.NoError(t, store.DeletePlaylist(ctx, alice.ID, p.ID))
	gone, err := store.GetPlaylist(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}
