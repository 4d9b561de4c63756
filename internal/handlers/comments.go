package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/auth"
)

// CommentHandler implements the comment endpoints.
type CommentHandler struct {
	Comments CommentService
	Views    ViewComposer
}

type commentRequest struct {
	Content string `json:"content" validate:"required"`
}

// List handles GET /comments/{videoID}.
func (h CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := pageFromQuery(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	comments, err := h.Views.VideoComments(ctx, auth.UserIDFromContext(ctx), pathParam(r, "videoID"), page)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, comments, "comments fetched successfully")
}

// Add handles POST /comments/{videoID}.
func (h CommentHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}
	comment, err := h.Comments.Add(ctx, auth.UserIDFromContext(ctx), pathParam(r, "videoID"), req.Content)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusCreated, newCommentRecord(comment), "comment added successfully")
}

// Update handles PATCH /comments/c/{commentID}.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}
	comment, err := h.Comments.Update(ctx, auth.UserIDFromContext(ctx), pathParam(r, "commentID"), req.Content)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, newCommentRecord(comment), "comment updated successfully")
}

// Delete handles DELETE /comments/c/{commentID}.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.Comments.Delete(ctx, auth.UserIDFromContext(ctx), pathParam(r, "commentID")); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, struct{}{}, "comment deleted successfully")
}
