package db

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tunebox/tunebox/models"
)

func setupTestDB(t *testing.T) *DB {
	// Use in-memory SQLite database for testing
	database, err := New(":memory:")
	require.NoError(t, err, "Failed to create test database")
	require.NoError(t, database.Initialize(), "Failed to initialize test database")
	t.Cleanup(func() { database.Close() })
	return database
}

func createUser(t *testing.T, database *DB, username string) *models.User {
	user := &models.User{Username: username, PasswordHash: "hash"}
	require.NoError(t, database.CreateUser(context.Background(), user))
	return user
}

func seed(t *testing.T, database *DB) []models.Song {
	songs := models.SampleSongs()
	n, err := database.SeedSongs(context.Background(), songs)
	require.NoError(t, err)
	require.Equal(t, len(songs), n)
	return songs
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	createUser(t, database, "alice")
	err := database.CreateUser(ctx, &models.User{Username: "alice", PasswordHash: "x"})
	assert.ErrorIs(t, err, models.ErrConflict)

	found, err := database.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "alice", found.Username)

	missing, err := database.GetUserByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSeedSongsOnlyWhenEmpty(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	songs := seed(t, database)
	assert.Equal(t, models.DefaultSongCover, songs[0].CoverImage)
	assert.NotEmpty(t, songs[0].ID)

	n, err := database.SeedSongs(ctx, models.SampleSongs())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	count, err := database.CountSongs(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, count)
}

func TestListSongsNewestFirst(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	seed(t, database)
	late := []models.Song{{Title: "Late Arrival", Artist: "Someone", Duration: 100, AudioURL: "/audio/late.mp3"}}
	require.NoError(t, database.InsertSongs(ctx, late))

	songs, err := database.ListSongs(ctx)
	require.NoError(t, err)
	require.Len(t, songs, 6)
	assert.Equal(t, "Late Arrival", songs[0].Title)
}

func TestSearchSongs(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	seed(t, database)

	tests := []struct {
		query string
		want  []string
	}{
		{"queen", []string{"Bohemian Rhapsody"}},
		{"HOTEL", []string{"Hotel California"}},
		{"thrill", []string{"Billie Jean"}},
		{"imagine", []string{"Imagine"}},
		{"e.n", nil}, // matched literally, not as a pattern
		{"zzz", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			songs, err := database.SearchSongs(ctx, tt.query)
			require.NoError(t, err)
			var titles []string
			for _, s := range songs {
				titles = append(titles, s.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestGetSong(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	songs := seed(t, database)

	song, err := database.GetSong(ctx, songs[1].ID)
	require.NoError(t, err)
	require.NotNil(t, song)
	assert.Equal(t, "Imagine", song.Title)
	assert.Equal(t, 183, song.Duration)

	missing, err := database.GetSong(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPlaylistMembership(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	songs := seed(t, database)
	alice := createUser(t, database, "alice")

	p := &models.Playlist{Name: "Road Trip", Owner: models.PlaylistOwner{ID: alice.ID}}
	require.NoError(t, database.CreatePlaylist(ctx, p))
	assert.Equal(t, models.DefaultPlaylistCover, p.CoverImage)

	require.NoError(t, database.AddSongToPlaylist(ctx, alice.ID, p.ID, songs[2].ID))
	require.NoError(t, database.AddSongToPlaylist(ctx, alice.ID, p.ID, songs[0].ID))
	err := database.AddSongToPlaylist(ctx, alice.ID, p.ID, songs[2].ID)
	assert.ErrorIs(t, err, models.ErrConflict)

	got, err := database.GetPlaylist(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{songs[2].ID, songs[0].ID}, got.SongIDs)
	assert.Equal(t, "alice", got.Owner.Username)
	require.Len(t, got.Songs, 2)
	assert.Equal(t, "Hotel California", got.Songs[0].Title)

	// removal is idempotent
	require.NoError(t, database.RemoveSongFromPlaylist(ctx, alice.ID, p.ID, songs[2].ID))
	require.NoError(t, database.RemoveSongFromPlaylist(ctx, alice.ID, p.ID, songs[2].ID))

	// re-adding goes to the end
	require.NoError(t, database.AddSongToPlaylist(ctx, alice.ID, p.ID, songs[2].ID))
	got, err = database.GetPlaylist(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{songs[0].ID, songs[2].ID}, got.SongIDs)
}

func TestPlaylistOwnerGate(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	songs := seed(t, database)
	alice := createUser(t, database, "alice")
	bob := createUser(t, database, "bob")

	p := &models.Playlist{Name: "Mine", Owner: models.PlaylistOwner{ID: alice.ID}}
	require.NoError(t, database.CreatePlaylist(ctx, p))

	name := "Stolen"
	assert.ErrorIs(t, database.UpdatePlaylist(ctx, bob.ID, p.ID, models.PlaylistPatch{Name: &name}), models.ErrNotFound)
	assert.ErrorIs(t, database.AddSongToPlaylist(ctx, bob.ID, p.ID, songs[0].ID), models.ErrNotFound)
	assert.ErrorIs(t, database.RemoveSongFromPlaylist(ctx, bob.ID, p.ID, songs[0].ID), models.ErrNotFound)
	assert.ErrorIs(t, database.DeletePlaylist(ctx, bob.ID, p.ID), models.ErrNotFound)
	assert.ErrorIs(t, database.DeletePlaylist(ctx, alice.ID, "missing"), models.ErrNotFound)

	got, err := database.GetPlaylist(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mine", got.Name)
}

func TestUpdatePlaylistPatch(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	alice := createUser(t, database, "alice")

	p := &models.Playlist{Name: "Mix", Description: "old", Owner: models.PlaylistOwner{ID: alice.ID}}
	require.NoError(t, database.CreatePlaylist(ctx, p))

	public := true
	require.NoError(t, database.UpdatePlaylist(ctx, alice.ID, p.ID, models.PlaylistPatch{IsPublic: &public}))

	got, err := database.GetPlaylist(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mix", got.Name)
	assert.Equal(t, "old", got.Description)
	assert.True(t, got.IsPublic)
}

func TestDeletePlaylistCascades(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	songs := seed(t, database)
	alice := createUser(t, database, "alice")

	p := &models.Playlist{Name: "Gone", Owner: models.PlaylistOwner{ID: alice.ID}}
	require.NoError(t, database.CreatePlaylist(ctx, p))
	require.NoError(t, database.AddSongToPlaylist(ctx, alice.ID, p.ID, songs[0].ID))
	require.NoError(t, database.DeletePlaylist(ctx, alice.ID, p.ID))

	var n int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM playlist_songs`).Scan(&n))
	assert.Zero(t, n)

	got, err := database.GetPlaylist(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListPlaylistsByOwner(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	songs := seed(t, database)
	alice := createUser(t, database, "alice")
	bob := createUser(t, database, "bob")

	for _, name := range []string{"First", "Second"} {
		p := &models.Playlist{Name: name, Owner: models.PlaylistOwner{ID: alice.ID}}
		require.NoError(t, database.CreatePlaylist(ctx, p))
		require.NoError(t, database.AddSongToPlaylist(ctx, alice.ID, p.ID, songs[0].ID))
	}
	require.NoError(t, database.CreatePlaylist(ctx, &models.Playlist{Name: "Bob's", Owner: models.PlaylistOwner{ID: bob.ID}}))

	playlists, err := database.ListPlaylistsByOwner(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, playlists, 2)
	assert.Equal(t, "Second", playlists[0].Name)
	assert.Len(t, playlists[0].Songs, 1)
}

func TestConcurrentAddKeepsOneCopy(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	songs := seed(t, database)
	alice := createUser(t, database, "alice")

	p := &models.Playlist{Name: "Race", Owner: models.PlaylistOwner{ID: alice.ID}}
	require.NoError(t, database.CreatePlaylist(ctx, p))

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- database.AddSongToPlaylist(ctx, alice.ID, p.ID, songs[0].ID)
		}()
	}
	wg.Wait()
	close(errs)

	added := 0
	for err := range errs {
		if err == nil {
			added++
			continue
		}
		assert.ErrorIs(t, err, models.ErrConflict)
	}
	assert.Equal(t, 1, added)

	got, err := database.GetPlaylist(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, got.SongIDs, 1)
}
