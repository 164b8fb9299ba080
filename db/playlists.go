package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/tunebox/tunebox/models"
)

const playlistSelect = `
	SELECT p.id, p.name, p.description, p.owner_id, u.username, p.is_public, p.cover_image, p.created_at, p.updated_at
	FROM playlists p
	LEFT JOIN users u ON u.id = p.owner_id`

func scanPlaylist(row scanner) (*models.Playlist, error) {
	p := &models.Playlist{}
	var username sql.NullString
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Owner.ID, &username,
		&p.IsPublic, &p.CoverImage, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Owner.Username = username.String
	return p, nil
}

// populate loads the playlist's songs in insertion order
func (db *DB) populate(ctx context.Context, p *models.Playlist) error {
	songs, err := db.querySongs(ctx, `
	SELECT s.id, s.title, s.artist, s.album, s.duration, s.audio_url, s.cover_image, s.genre, s.year, s.created_at, s.updated_at
	FROM playlist_songs ps
	JOIN songs s ON s.id = ps.song_id
	WHERE ps.playlist_id = ?
	ORDER BY ps.position`, p.ID)
	if err != nil {
		return err
	}

	p.Songs = songs
	p.SongIDs = make([]string, len(songs))
	for i, s := range songs {
		p.SongIDs[i] = s.ID
	}
	return nil
}

// CreatePlaylist stores a new, empty playlist
func (db *DB) CreatePlaylist(ctx context.Context, p *models.Playlist) error {
	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = newID()
	}
	if p.CoverImage == "" {
		p.CoverImage = models.DefaultPlaylistCover
	}
	p.CreatedAt, p.UpdatedAt = now, now
	p.SongIDs = []string{}
	p.Songs = []models.Song{}

	_, err := db.ExecContext(ctx, `
	INSERT INTO playlists (id, name, description, owner_id, is_public, cover_image, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.Owner.ID, p.IsPublic, p.CoverImage, now, now)
	return err
}

// GetPlaylist retrieves a playlist with its songs and owner name, nil if
// there is none
func (db *DB) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	p, err := scanPlaylist(db.QueryRowContext(ctx, playlistSelect+` WHERE p.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := db.populate(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListPlaylistsByOwner returns a user's playlists, newest first, songs populated
func (db *DB) ListPlaylistsByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error) {
	rows, err := db.QueryContext(ctx, playlistSelect+`
	WHERE p.owner_id = ?
	ORDER BY p.created_at DESC, p.rowid DESC`, ownerID)
	if err != nil {
		return nil, err
	}

	var found []*models.Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		found = append(found, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// release the connection before populating
	rows.Close()

	playlists := make([]models.Playlist, 0, len(found))
	for _, p := range found {
		if err := db.populate(ctx, p); err != nil {
			return nil, err
		}
		playlists = append(playlists, *p)
	}
	return playlists, nil
}

// UpdatePlaylist applies the non-nil fields of patch to a playlist the
// owner holds. models.ErrNotFound when no such playlist belongs to ownerID.
func (db *DB) UpdatePlaylist(ctx context.Context, ownerID, id string, patch models.PlaylistPatch) error {
	res, err := db.ExecContext(ctx, `
	UPDATE playlists
	SET name = COALESCE(?, name),
		description = COALESCE(?, description),
		is_public = COALESCE(?, is_public),
		updated_at = ?
	WHERE id = ? AND owner_id = ?`,
		patch.Name, patch.Description, patch.IsPublic, time.Now().UTC(), id, ownerID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// DeletePlaylist removes a playlist and its membership rows
func (db *DB) DeletePlaylist(ctx context.Context, ownerID, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM playlists WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// AddSongToPlaylist appends songID to the end of an owned playlist.
// Returns models.ErrNotFound when the playlist is not the owner's and
// models.ErrConflict when the song is already in it.
func (db *DB) AddSongToPlaylist(ctx context.Context, ownerID, playlistID, songID string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int64
	err = tx.QueryRowContext(ctx, `
	SELECT COALESCE((SELECT MAX(position) FROM playlist_songs WHERE playlist_id = p.id), -1) + 1
	FROM playlists p
	WHERE p.id = ? AND p.owner_id = ?`, playlistID, ownerID).Scan(&next)
	if err == sql.ErrNoRows {
		return models.ErrNotFound
	}
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO playlist_songs (playlist_id, song_id, position) VALUES (?, ?, ?)`,
		playlistID, songID, next)
	if isUniqueViolation(err) {
		return models.ErrConflict
	}
	if err != nil {
		return err
	}

	if err := touchPlaylist(ctx, tx, playlistID); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveSongFromPlaylist drops songID from an owned playlist. Removing a
// song that is not there succeeds.
func (db *DB) RemoveSongFromPlaylist(ctx context.Context, ownerID, playlistID, songID string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var owned int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM playlists WHERE id = ? AND owner_id = ?`, playlistID, ownerID).Scan(&owned)
	if err == sql.ErrNoRows {
		return models.ErrNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM playlist_songs WHERE playlist_id = ? AND song_id = ?`, playlistID, songID); err != nil {
		return err
	}

	if err := touchPlaylist(ctx, tx, playlistID); err != nil {
		return err
	}
	return tx.Commit()
}

func touchPlaylist(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx, `UPDATE playlists SET updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	return err
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}
