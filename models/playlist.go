package models

import "time"

const DefaultPlaylistCover = "/images/default-playlist.jpg"

// PlaylistOwner is the owner reference embedded in playlist responses
type PlaylistOwner struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

// Playlist is an ordered, duplicate-free list of song references owned by
// one user. SongIDs is the stored order; Songs is filled in when the
// playlist is read back for a client.
type Playlist struct {
	ID          string        `json:"_id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Owner       PlaylistOwner `json:"owner"`
	SongIDs     []string      `json:"-"`
	Songs       []Song        `json:"songs"`
	IsPublic    bool          `json:"isPublic"`
	CoverImage  string        `json:"coverImage"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// PlaylistPatch carries the optional fields of an update. Nil means keep.
type PlaylistPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"isPublic"`
}
