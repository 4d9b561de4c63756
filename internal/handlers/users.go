package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/vidtube/backend/internal/apperror"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/users"
	"github.com/vidtube/backend/internal/views"
)

const refreshTokenCookie = "refreshToken"

// UserHandler implements registration, sessions and channel pages.
type UserHandler struct {
	Users          UserService
	Views          ViewComposer
	MaxUploadBytes int64
	SecureCookies  bool
}

type loginRequest struct {
	Handle   string `json:"handle" validate:"required_without=Email"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

type updateAccountRequest struct {
	DisplayName string `json:"displayName" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
}

type sessionResponse struct {
	User         *views.Account `json:"user,omitempty"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
}

// Register handles POST /users/register.
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form, err := parseMultipart(w, r, h.MaxUploadBytes)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	defer form.cleanup()

	avatar, err := form.file("avatar")
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	cover, err := form.file("coverImage")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	user, err := h.Users.Register(ctx, users.RegisterInput{
		Handle:      form.value("handle"),
		DisplayName: form.value("displayName"),
		Email:       form.value("email"),
		Password:    r.FormValue("password"),
		AvatarPath:  avatar,
		CoverPath:   cover,
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusCreated, views.NewAccount(user), "user registered successfully")
}

// Login handles POST /users/login.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	user, tokens, err := h.Users.Login(ctx, req.Handle, req.Email, req.Password)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	h.setSessionCookies(w, tokens)
	account := views.NewAccount(user)
	respondSuccess(ctx, w, http.StatusOK, sessionResponse{
		User:         &account,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "user logged in successfully")
}

// Refresh handles POST /users/refresh-token. The token is read from the
// cookie first and then from the body.
func (h UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var token string
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		token = strings.TrimSpace(cookie.Value)
	}
	if token == "" && r.ContentLength != 0 {
		var req refreshRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondError(ctx, w, err)
			return
		}
		token = req.RefreshToken
	}

	tokens, err := h.Users.Refresh(ctx, token)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	h.setSessionCookies(w, tokens)
	respondSuccess(ctx, w, http.StatusOK, sessionResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "access token refreshed")
}

// Logout handles POST /users/logout.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.Users.Logout(ctx, auth.UserIDFromContext(ctx)); err != nil {
		respondError(ctx, w, err)
		return
	}
	h.clearSessionCookies(w)
	respondSuccess(ctx, w, http.StatusOK, struct{}{}, "user logged out")
}

// ChangePassword handles POST /users/change-password.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}
	if err := h.Users.ChangePassword(ctx, auth.UserIDFromContext(ctx), req.OldPassword, req.NewPassword); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, struct{}{}, "password changed successfully")
}

// CurrentUser handles GET /users/current-user.
func (h UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.Users.Current(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, views.NewAccount(user), "current user fetched successfully")
}

// UpdateAccount handles PATCH /users/update-account.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req updateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}
	user, err := h.Users.UpdateAccount(ctx, auth.UserIDFromContext(ctx), req.DisplayName, req.Email)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, views.NewAccount(user), "account details updated successfully")
}

// UpdateAvatar handles PATCH /users/avatar.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", h.Users.UpdateAvatar)
}

// UpdateCover handles PATCH /users/cover-image.
func (h UserHandler) UpdateCover(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", h.Users.UpdateCover)
}

// ChannelProfile handles GET /users/c/{handle}.
func (h UserHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile, err := h.Views.ChannelProfile(ctx, auth.UserIDFromContext(ctx), pathParam(r, "handle"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, profile, "channel fetched successfully")
}

// WatchHistory handles GET /users/history.
func (h UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := pageFromQuery(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	history, err := h.Views.WatchHistory(ctx, auth.UserIDFromContext(ctx), page)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, history, "watch history fetched successfully")
}

type imageUpdate func(ctx context.Context, userID, localPath string) (models.User, error)

func (h UserHandler) replaceImage(w http.ResponseWriter, r *http.Request, field string, update imageUpdate) {
	ctx := r.Context()
	form, err := parseMultipart(w, r, h.MaxUploadBytes)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	defer form.cleanup()

	path, err := form.file(field)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	if path == "" {
		respondError(ctx, w, apperror.Validation(field+" file is missing"))
		return
	}

	user, err := update(ctx, auth.UserIDFromContext(ctx), path)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	logging.FromContext(ctx).Info("user image replaced", "field", field, "userId", user.ID)
	respondSuccess(ctx, w, http.StatusOK, views.NewAccount(user), field+" updated successfully")
}

func (h UserHandler) setSessionCookies(w http.ResponseWriter, tokens models.SessionTokens) {
	http.SetCookie(w, h.cookie(middleware.AccessTokenCookie, tokens.AccessToken, tokens.AccessExpiresAt))
	http.SetCookie(w, h.cookie(refreshTokenCookie, tokens.RefreshToken, tokens.RefreshExpiresAt))
}

func (h UserHandler) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, refreshTokenCookie} {
		c := h.cookie(name, "", time.Unix(0, 0))
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

func (h UserHandler) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}
