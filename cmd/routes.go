package main

import (
	"net/http"

	"github.com/justinas/alice"
	"github.com/tunebox/tunebox/media"
	"github.com/tunebox/tunebox/session"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	// Auth
	mux.HandleFunc("POST /api/auth/register", app.rateLimit(app.apiRegister(app.authService)))
	mux.HandleFunc("POST /api/auth/login", app.rateLimit(app.apiLogin(app.authService)))
	mux.HandleFunc("GET /api/auth/me", session.WithAuth(app.apiMe(app.authService), app.tokens))

	// Catalog
	mux.HandleFunc("GET /api/songs", app.apiListSongs(app.catalogService))
	mux.HandleFunc("GET /api/songs/{id}", app.apiGetSong(app.catalogService))
	mux.HandleFunc("GET /api/songs/search/{query}", app.apiSearchSongs(app.catalogService))
	mux.HandleFunc("POST /api/songs/init-sample-data", app.apiInitSampleData(app.catalogService))

	// Playlists
	mux.HandleFunc("GET /api/playlists/my", session.WithAuth(app.apiMyPlaylists(app.playlistService), app.tokens))
	mux.HandleFunc("GET /api/playlists/{id}", session.WithAuth(app.apiGetPlaylist(app.playlistService), app.tokens))
	mux.HandleFunc("POST /api/playlists", session.WithAuth(app.apiCreatePlaylist(app.playlistService), app.tokens))
	mux.HandleFunc("PUT /api/playlists/{id}", session.WithAuth(app.apiUpdatePlaylist(app.playlistService), app.tokens))
	mux.HandleFunc("DELETE /api/playlists/{id}", session.WithAuth(app.apiDeletePlaylist(app.playlistService), app.tokens))
	mux.HandleFunc("POST /api/playlists/{id}/songs", session.WithAuth(app.apiAddSong(app.playlistService), app.tokens))
	mux.HandleFunc("DELETE /api/playlists/{id}/songs/{songId}", session.WithAuth(app.apiRemoveSong(app.playlistService), app.tokens))

	mux.HandleFunc("GET /api/health", apiHealth())
	// any method, so unknown API calls get a JSON body instead of a plain 405
	mux.HandleFunc("/api/", apiNotFound())

	// public file root: audio, covers, client bundle
	mux.HandleFunc("/", media.Handler(app.media, app.mediaLogger))

	standard := alice.New(app.recoverPanic, app.logRequest, app.cors, commonHeaders)
	return standard.Then(mux)
}
