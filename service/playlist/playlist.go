package playlist

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/tunebox/tunebox/models"
)

// Store is the playlist persistence the service needs. Mutations take the
// caller's id and report models.ErrNotFound when the playlist is not theirs.
type Store interface {
	GetSong(ctx context.Context, id string) (*models.Song, error)
	CreatePlaylist(ctx context.Context, p *models.Playlist) error
	GetPlaylist(ctx context.Context, id string) (*models.Playlist, error)
	ListPlaylistsByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error)
	UpdatePlaylist(ctx context.Context, ownerID, id string, patch models.PlaylistPatch) error
	DeletePlaylist(ctx context.Context, ownerID, id string) error
	AddSongToPlaylist(ctx context.Context, ownerID, playlistID, songID string) error
	RemoveSongFromPlaylist(ctx context.Context, ownerID, playlistID, songID string) error
}

const notOwned = "Playlist not found or access denied"

// CreateInput is the body of a create request
type CreateInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    *bool  `json:"isPublic"`
}

type Service struct {
	store  Store
	logger *log.Logger
}

func NewPlaylistService(store Store) *Service {
	logger := log.New(os.Stdout, "playlist: ", log.LstdFlags|log.Lmsgprefix)
	return &Service{store: store, logger: logger}
}

// ListMine returns the owner's playlists, newest first, songs populated
func (s *Service) ListMine(ctx context.Context, ownerID string) ([]models.Playlist, error) {
	playlists, err := s.store.ListPlaylistsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list playlists for %s: %w", ownerID, err)
	}
	return playlists, nil
}

// Get returns a playlist the viewer may read: their own, or any public one
func (s *Service) Get(ctx context.Context, viewerID, id string) (*models.Playlist, error) {
	p, err := s.store.GetPlaylist(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get playlist %s: %w", id, err)
	}
	if p == nil {
		return nil, models.NewError(models.ErrNotFound, "Playlist not found")
	}
	if !p.IsPublic && p.Owner.ID != viewerID {
		return nil, models.NewError(models.ErrForbidden, "Access denied")
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (*models.Playlist, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.NewError(models.ErrValidation, "Playlist name is required")
	}

	p := &models.Playlist{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Owner:       models.PlaylistOwner{ID: ownerID},
		IsPublic:    in.IsPublic != nil && *in.IsPublic,
	}
	if err := s.store.CreatePlaylist(ctx, p); err != nil {
		return nil, fmt.Errorf("create playlist: %w", err)
	}
	s.logger.Printf("user %s created playlist %s", ownerID, p.ID)

	return s.reload(ctx, p.ID)
}

// Update applies patch to an owned playlist. A blank name or description
// keeps the current value.
func (s *Service) Update(ctx context.Context, ownerID, id string, patch models.PlaylistPatch) (*models.Playlist, error) {
	patch.Name = nonBlank(patch.Name)
	patch.Description = nonBlank(patch.Description)

	if err := s.store.UpdatePlaylist(ctx, ownerID, id, patch); err != nil {
		return nil, s.mutationError("update playlist", id, err)
	}
	return s.reload(ctx, id)
}

func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeletePlaylist(ctx, ownerID, id); err != nil {
		return s.mutationError("delete playlist", id, err)
	}
	s.logger.Printf("user %s deleted playlist %s", ownerID, id)
	return nil
}

// AddSong appends songID to an owned playlist. A song already in the
// playlist is rejected and the list is left as it was.
func (s *Service) AddSong(ctx context.Context, ownerID, playlistID, songID string) (*models.Playlist, error) {
	songID = strings.TrimSpace(songID)
	if songID == "" {
		return nil, models.NewError(models.ErrValidation, "Song ID is required")
	}

	song, err := s.store.GetSong(ctx, songID)
	if err != nil {
		return nil, fmt.Errorf("get song %s: %w", songID, err)
	}
	if song == nil {
		return nil, models.NewError(models.ErrNotFound, "Song not found")
	}

	if err := s.store.AddSongToPlaylist(ctx, ownerID, playlistID, songID); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.NewError(models.ErrConflict, "Song already in playlist")
		}
		return nil, s.mutationError("add song to playlist", playlistID, err)
	}
	return s.reload(ctx, playlistID)
}

// RemoveSong drops songID from an owned playlist. Removing a song that is
// not there succeeds.
func (s *Service) RemoveSong(ctx context.Context, ownerID, playlistID, songID string) (*models.Playlist, error) {
	if err := s.store.RemoveSongFromPlaylist(ctx, ownerID, playlistID, songID); err != nil {
		return nil, s.mutationError("remove song from playlist", playlistID, err)
	}
	return s.reload(ctx, playlistID)
}

func (s *Service) reload(ctx context.Context, id string) (*models.Playlist, error) {
	p, err := s.store.GetPlaylist(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload playlist %s: %w", id, err)
	}
	if p == nil {
		return nil, models.NewError(models.ErrNotFound, "Playlist not found")
	}
	return p, nil
}

// mutationError hides whether a playlist exists from someone who does not own it
func (s *Service) mutationError(op, id string, err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return models.NewError(models.ErrNotFound, notOwned)
	}
	return fmt.Errorf("%s %s: %w", op, id, err)
}

func nonBlank(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
