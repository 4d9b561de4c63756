package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/playlists"
)

// PlaylistHandler implements playlist CRUD and membership edits.
type PlaylistHandler struct {
	Playlists PlaylistService
	Views     ViewComposer
}

type playlistRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// Create handles POST /playlist.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req playlistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}
	playlist, err := h.Playlists.Create(ctx, auth.UserIDFromContext(ctx), playlists.Input(req))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusCreated, newPlaylistRecord(playlist), "playlist created successfully")
}

// UserPlaylists handles GET /playlist/user/{handle}.
func (h PlaylistHandler) UserPlaylists(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := pageFromQuery(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	result, err := h.Views.UserPlaylists(ctx, auth.UserIDFromContext(ctx), pathParam(r, "handle"), page)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, result, "playlists fetched successfully")
}

// Get handles GET /playlist/{playlistID}.
func (h PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	detail, err := h.Views.PlaylistDetail(ctx, auth.UserIDFromContext(ctx), pathParam(r, "playlistID"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, detail, "playlist fetched successfully")
}

// Update handles PATCH /playlist/{playlistID}.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req playlistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}
	playlist, err := h.Playlists.Update(ctx, auth.UserIDFromContext(ctx), pathParam(r, "playlistID"), playlists.Input(req))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, newPlaylistRecord(playlist), "playlist updated successfully")
}

// Delete handles DELETE /playlist/{playlistID}.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.Playlists.Delete(ctx, auth.UserIDFromContext(ctx), pathParam(r, "playlistID")); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, struct{}{}, "playlist deleted successfully")
}

// AddVideo handles PATCH /playlist/add/{videoID}/{playlistID}.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	playlist, err := h.Playlists.AddVideo(ctx, auth.UserIDFromContext(ctx), pathParam(r, "playlistID"), pathParam(r, "videoID"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, newPlaylistRecord(playlist), "video added to playlist")
}

// RemoveVideo handles PATCH /playlist/remove/{videoID}/{playlistID}.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	playlist, err := h.Playlists.RemoveVideo(ctx, auth.UserIDFromContext(ctx), pathParam(r, "playlistID"), pathParam(r, "videoID"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, newPlaylistRecord(playlist), "video removed from playlist")
}
