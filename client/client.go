// Package client talks to the tunebox REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tunebox/tunebox/models"
	"github.com/tunebox/tunebox/service/auth"
	"github.com/tunebox/tunebox/service/catalog"
	"golang.org/x/time/rate"
)

// APIError is a non-2xx answer from the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithRateLimit(limiter *rate.Limiter) Option {
	return func(c *Client) { c.limiter = limiter }
}

// New creates a client for the server at baseURL, e.g. http://localhost:5000
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(100*time.Millisecond), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request to %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates an account and keeps the returned token for later calls
func (c *Client) Register(ctx context.Context, username, password string) (*auth.Result, error) {
	var res auth.Result
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", credentials{username, password}, &res); err != nil {
		return nil, err
	}
	c.token = res.Token
	return &res, nil
}

// Login signs in and keeps the returned token for later calls
func (c *Client) Login(ctx context.Context, username, password string) (*auth.Result, error) {
	var res auth.Result
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", credentials{username, password}, &res); err != nil {
		return nil, err
	}
	c.token = res.Token
	return &res, nil
}

func (c *Client) Me(ctx context.Context) (*models.UserView, error) {
	var res struct {
		User models.UserView `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &res); err != nil {
		return nil, err
	}
	return &res.User, nil
}

func (c *Client) Songs(ctx context.Context) ([]models.Song, error) {
	var songs []models.Song
	err := c.do(ctx, http.MethodGet, "/api/songs", nil, &songs)
	return songs, err
}

func (c *Client) Song(ctx context.Context, id string) (*models.Song, error) {
	var song models.Song
	if err := c.do(ctx, http.MethodGet, "/api/songs/"+url.PathEscape(id), nil, &song); err != nil {
		return nil, err
	}
	return &song, nil
}

func (c *Client) SearchSongs(ctx context.Context, query string) ([]models.Song, error) {
	var songs []models.Song
	err := c.do(ctx, http.MethodGet, "/api/songs/search/"+url.PathEscape(query), nil, &songs)
	return songs, err
}

func (c *Client) InitSampleData(ctx context.Context) (*catalog.SeedResult, error) {
	var res catalog.SeedResult
	if err := c.do(ctx, http.MethodPost, "/api/songs/init-sample-data", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) MyPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	err := c.do(ctx, http.MethodGet, "/api/playlists/my", nil, &playlists)
	return playlists, err
}

func (c *Client) Playlist(ctx context.Context, id string) (*models.Playlist, error) {
	var p models.Playlist
	if err := c.do(ctx, http.MethodGet, "/api/playlists/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreatePlaylist(ctx context.Context, name, description string, isPublic bool) (*models.Playlist, error) {
	body := map[string]any{"name": name, "description": description, "isPublic": isPublic}
	var p models.Playlist
	if err := c.do(ctx, http.MethodPost, "/api/playlists", body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdatePlaylist(ctx context.Context, id string, patch models.PlaylistPatch) (*models.Playlist, error) {
	var p models.Playlist
	if err := c.do(ctx, http.MethodPut, "/api/playlists/"+url.PathEscape(id), patch, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeletePlaylist(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/playlists/"+url.PathEscape(id), nil, nil)
}

func (c *Client) AddSong(ctx context.Context, playlistID, songID string) (*models.Playlist, error) {
	body := map[string]string{"songId": songID}
	var p models.Playlist
	if err := c.do(ctx, http.MethodPost, "/api/playlists/"+url.PathEscape(playlistID)+"/songs", body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePlaylistWithSong creates a playlist and adds songID to it
func (c *Client) CreatePlaylistWithSong(ctx context.Context, name, songID string) (*models.Playlist, error) {
	p, err := c.CreatePlaylist(ctx, name, "", false)
	if err != nil {
		return nil, err
	}
	return c.AddSong(ctx, p.ID, songID)
}

func (c *Client) RemoveSong(ctx context.Context, playlistID, songID string) (*models.Playlist, error) {
	var p models.Playlist
	path := "/api/playlists/" + url.PathEscape(playlistID) + "/songs/" + url.PathEscape(songID)
	if err := c.do(ctx, http.MethodDelete, path, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

type Health struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}
