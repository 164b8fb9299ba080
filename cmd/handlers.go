package main

import (
	"net/http"

	"github.com/tunebox/tunebox/models"
	"github.com/tunebox/tunebox/service/auth"
	"github.com/tunebox/tunebox/service/catalog"
	"github.com/tunebox/tunebox/service/playlist"
	"github.com/tunebox/tunebox/session"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (app *application) apiRegister(authService *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			app.badRequest(w, err)
			return
		}

		res, err := authService.Register(r.Context(), req.Username, req.Password)
		if err != nil {
			app.serviceError(w, r, err)
			return
		}
		jsonResponse(w, http.StatusCreated, res)
	}
}

func (app *application) apiLogin(authService *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			app.badRequest(w, err)
			return
		}

		res, err := authService.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			app.serviceError(w, r, err)
			return
		}
		jsonResponse(w, http.StatusOK, res)
	}
}

func (app *application) apiMe(authService *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := session.GetUserID(r.Context())
		if !ok {
			jsonError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		user, err := authService.Me(r.Context(), userID)
		if err != nil {
			app.serviceError(w, r, err)
			return
		}
		jsonResponse(w, http.StatusOK, map[string]any{"user": user})
	}
}

func (app *application) apiListSongs(catalogService *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		songs, err := catalogService.List(r.Context())
		if err != nil {
			app.serviceError(w, r, err)
			return
		}
		jsonResponse(w, http.StatusOK, songs)
	}
}

func (app *application) apiGetSong(catalogService *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		song, err := catalogService.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			app.serviceError(w, r, err)
			return
		}
		jsonResponse(w, http.StatusOK, song)
	}
}

func (app *application) apiSearchSongs(catalogService *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		songs, err := catalogService.Search(r.Context(), r.PathValue("query"))
		if err != nil {
			app.serviceError(w, r, err)
			return
		}
		jsonResponse(w, http.StatusOK, songs)
	}
}

func (app *application) apiInitSampleData(catalogService *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := catalogService.SeedSampleData(r.Context())
		if err != nil {
			app.serviceError(w, r, err)
			return
		}
		jsonResponse(w, http.StatusOK, res)
	}
}

// playlist handlers run behind session.WithAuth, so the user id is present

func (app *application) apiMyPlaylists(playlistService *playlist.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := session.GetUserID(r.Context())

		playlists, err := playlistService.ListMine(r.Context(), userID)
		if err != nil {
			app.serviceError(w, r, err)
			return
		}
		jsonResponse(w, http.StatusOK, playlists)
	}
}

func (app *application) apiGetPlaylist(playlistService *playlist.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := session.GetUserID(r.Context())

		p, err := playlistService.Get(r.Context(), userID, r.PathValue("id"))
		if err != nil {
			app.serviceError(w, r, err)
			return
		}
		jsonResponse(w, http.StatusOK, p)
	}
}

func (app *application) apiCreatePlaylist(playlistService *playlist.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := session.GetUserID(r.Context())

		var req playlist.CreateInput
		if err := decodeJSON(w, r, &req); err != nil {
			app.badRequest(w, err)
			return
		}

		p, err := playlistService.Create(r.Context(), userID, req)
		if err != nil {
			app.serviceError(w, r, err)
			return
		}
		jsonResponse(w, http.StatusCreated, p)
	}
}

func (app *application) apiUpdatePlaylist(playlistService *playlist.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := session.GetUserID(r.Context())

		var patch models.PlaylistPatch
		if err := decodeJSON(w, r, &patch); err != nil {
			app.badRequest(w, err)
			return
		}

		p, err := playlistService.Update(r.Context(), userID, r.PathValue("id"), patch)
		if err != nil {
			app.serviceError(w, r, err)
			return
		}
		jsonResponse(w, http.StatusOK, p)
	}
}

func (app *application) apiDeletePlaylist(playlistService *playlist.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := session.GetUserID(r.Context())

		if err := playlistService.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
			app.serviceError(w, r, err)
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"message": "Playlist deleted successfully"})
	}
}

func (app *application) apiAddSong(playlistService *playlist.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := session.GetUserID(r.Context())

		var req struct {
			SongID string `json:"songId"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			app.badRequest(w, err)
			return
		}

		p, err := playlistService.AddSong(r.Context(), userID, r.PathValue("id"), req.SongID)
		if err != nil {
			app.serviceError(w, r, err)
			return
		}
		jsonResponse(w, http.StatusOK, p)
	}
}

func (app *application) apiRemoveSong(playlistService *playlist.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := session.GetUserID(r.Context())

		p, err := playlistService.RemoveSong(r.Context(), userID, r.PathValue("id"), r.PathValue("songId"))
		if err != nil {
			app.serviceError(w, r, err)
			return
		}
		jsonResponse(w, http.StatusOK, p)
	}
}

func apiHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]string{
			"status":  "OK",
			"message": "Music MVP Backend is running",
		})
	}
}

func apiNotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, "Route not found", http.StatusNotFound)
	}
}
