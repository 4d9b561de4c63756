package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/videos"
	"github.com/vidtube/backend/internal/views"
)

// VideoHandler implements video listing, detail pages and owner mutations.
type VideoHandler struct {
	Videos         VideoService
	Views          ViewComposer
	MaxUploadBytes int64
}

// List handles GET /videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := pageFromQuery(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	q := r.URL.Query()
	result, err := h.Views.ListVideos(ctx, views.VideoFilter{
		OwnerID:  q.Get("userId"),
		Title:    q.Get("query"),
		SortBy:   q.Get("sortBy"),
		SortType: q.Get("sortType"),
	}, page)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, result, "videos fetched successfully")
}

// Publish handles POST /videos.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form, err := parseMultipart(w, r, h.MaxUploadBytes)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	defer form.cleanup()

	videoPath, err := form.file("videoFile")
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	thumbnailPath, err := form.file("thumbnail")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	video, err := h.Videos.Publish(ctx, auth.UserIDFromContext(ctx), videos.PublishInput{
		Title:         form.value("title"),
		Description:   form.value("description"),
		VideoPath:     videoPath,
		ThumbnailPath: thumbnailPath,
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusCreated, newVideoRecord(video), "video published successfully")
}

// Get handles GET /videos/{videoID}. Reads by signed-in viewers count a view
// and land in their watch history.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewerID := auth.UserIDFromContext(ctx)
	videoID := pathParam(r, "videoID")

	if err := h.Videos.RecordView(ctx, viewerID, videoID); err != nil {
		respondError(ctx, w, err)
		return
	}
	detail, err := h.Views.VideoDetail(ctx, viewerID, videoID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, detail, "video fetched successfully")
}

// Update handles PATCH /videos/{videoID}.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form, err := parseMultipart(w, r, h.MaxUploadBytes)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	defer form.cleanup()

	thumbnailPath, err := form.file("thumbnail")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	video, err := h.Videos.Update(ctx, auth.UserIDFromContext(ctx), pathParam(r, "videoID"), videos.UpdateInput{
		Title:         form.value("title"),
		Description:   form.value("description"),
		ThumbnailPath: thumbnailPath,
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, newVideoRecord(video), "video updated successfully")
}

// Delete handles DELETE /videos/{videoID}.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.Videos.Delete(ctx, auth.UserIDFromContext(ctx), pathParam(r, "videoID")); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, struct{}{}, "video deleted successfully")
}

// TogglePublish handles PATCH /videos/toggle/publish/{videoID}.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	published, err := h.Videos.TogglePublish(ctx, auth.UserIDFromContext(ctx), pathParam(r, "videoID"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, map[string]bool{"isPublished": published}, "publish status toggled")
}
