package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/tunebox/tunebox/models"
)

const songColumns = `id, title, artist, album, duration, audio_url, cover_image, genre, year, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSong(row scanner) (models.Song, error) {
	var s models.Song
	err := row.Scan(&s.ID, &s.Title, &s.Artist, &s.Album, &s.Duration,
		&s.AudioURL, &s.CoverImage, &s.Genre, &s.Year, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (db *DB) querySongs(ctx context.Context, query string, args ...any) ([]models.Song, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	songs := []models.Song{}
	for rows.Next() {
		s, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, s)
	}

	return songs, rows.Err()
}

// ListSongs returns the whole catalog, newest first
func (db *DB) ListSongs(ctx context.Context) ([]models.Song, error) {
	return db.querySongs(ctx, `
	SELECT `+songColumns+`
	FROM songs
	ORDER BY created_at DESC, rowid DESC`)
}

// GetSong retrieves a song by id, nil if there is none
func (db *DB) GetSong(ctx context.Context, id string) (*models.Song, error) {
	s, err := scanSong(db.QueryRowContext(ctx, `SELECT `+songColumns+` FROM songs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SearchSongs returns songs whose title, artist or album contains text,
// ignoring case
func (db *DB) SearchSongs(ctx context.Context, text string) ([]models.Song, error) {
	pattern := literal(text)
	return db.querySongs(ctx, `
	SELECT `+songColumns+`
	FROM songs
	WHERE title REGEXP ? OR artist REGEXP ? OR album REGEXP ?
	ORDER BY created_at DESC, rowid DESC`, pattern, pattern, pattern)
}

// CountSongs returns the catalog size
func (db *DB) CountSongs(ctx context.Context) (int64, error) {
	var n int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM songs`).Scan(&n)
	return n, err
}

// SeedSongs inserts songs only when the catalog is empty and reports how
// many were written. The emptiness check and the inserts share one
// transaction.
func (db *DB) SeedSongs(ctx context.Context, songs []models.Song) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var n int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM songs`).Scan(&n); err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	if err := insertSongs(ctx, tx, songs); err != nil {
		return 0, err
	}

	return len(songs), tx.Commit()
}

// InsertSongs adds songs to the catalog, filling in ids, timestamps and
// the default cover
func (db *DB) InsertSongs(ctx context.Context, songs []models.Song) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertSongs(ctx, tx, songs); err != nil {
		return err
	}
	return tx.Commit()
}

func insertSongs(ctx context.Context, tx *sql.Tx, songs []models.Song) error {
	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO songs (`+songColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range songs {
		s := &songs[i]
		if s.ID == "" {
			s.ID = newID()
		}
		if s.CoverImage == "" {
			s.CoverImage = models.DefaultSongCover
		}
		s.CreatedAt, s.UpdatedAt = now, now

		_, err := stmt.ExecContext(ctx, s.ID, s.Title, s.Artist, s.Album, s.Duration,
			s.AudioURL, s.CoverImage, s.Genre, s.Year, s.CreatedAt, s.UpdatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}
