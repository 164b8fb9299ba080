package catalog

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/tunebox/tunebox/models"
)

// Store is the song persistence the catalog needs
type Store interface {
	ListSongs(ctx context.Context) ([]models.Song, error)
	GetSong(ctx context.Context, id string) (*models.Song, error)
	SearchSongs(ctx context.Context, text string) ([]models.Song, error)
	SeedSongs(ctx context.Context, songs []models.Song) (int, error)
}

// SeedResult is the outcome of SeedSampleData
type SeedResult struct {
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

type Service struct {
	store  Store
	logger *log.Logger
}

func NewCatalogService(store Store) *Service {
	logger := log.New(os.Stdout, "catalog: ", log.LstdFlags|log.Lmsgprefix)
	return &Service{store: store, logger: logger}
}

// List returns every song, newest first
func (s *Service) List(ctx context.Context) ([]models.Song, error) {
	songs, err := s.store.ListSongs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}
	return songs, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Song, error) {
	song, err := s.store.GetSong(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get song %s: %w", id, err)
	}
	if song == nil {
		return nil, models.NewError(models.ErrNotFound, "Song not found")
	}
	return song, nil
}

// Search finds songs whose title, artist or album contains query,
// ignoring case
func (s *Service) Search(ctx context.Context, query string) ([]models.Song, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewError(models.ErrValidation, "Search query is required")
	}
	songs, err := s.store.SearchSongs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search songs %q: %w", query, err)
	}
	return songs, nil
}

// SeedSampleData fills an empty catalog with the sample songs. A catalog
// that already has songs is left alone.
func (s *Service) SeedSampleData(ctx context.Context) (*SeedResult, error) {
	n, err := s.store.SeedSongs(ctx, models.SampleSongs())
	if err != nil {
		return nil, fmt.Errorf("seed songs: %w", err)
	}
	if n == 0 {
		return &SeedResult{Message: "Sample data already exists"}, nil
	}
	s.logger.Printf("seeded %d sample songs", n)
	return &SeedResult{Message: "Sample data created successfully", Count: n}, nil
}
