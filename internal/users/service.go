// Package users implements account registration, authentication and profile
// maintenance.
package users

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apperror"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

const minPasswordLength = 8

// Store persists user accounts.
type Store interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByLogin(ctx context.Context, handle, email string) (models.User, error)
	UpdateAccount(ctx context.Context, id, displayName, email string, updatedAt time.Time) (models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	ReplaceMedia(ctx context.Context, id string, slot repositories.MediaSlot, ref models.MediaRef, updatedAt time.Time) (models.User, models.MediaRef, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// SessionManager issues, rotates and revokes session tokens.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	RevokeUser(ctx context.Context, userID string) error
}

// Dependencies wires a Service.
type Dependencies struct {
	Store    Store
	Hasher   PasswordHasher
	Sessions SessionManager
	Objects  media.ObjectStore
	Releaser media.Releaser
}

// RegisterInput describes a new account. AvatarPath is required and CoverPath
// optional; both point at local temporary files.
type RegisterInput struct {
	Handle      string
	DisplayName string
	Email       string
	Password    string
	AvatarPath  string
	CoverPath   string
}

// Service implements the account workflows.
type Service struct {
	store    Store
	hasher   PasswordHasher
	sessions SessionManager
	objects  media.ObjectStore
	releaser media.Releaser
	now      func() time.Time
}

// NewService constructs a user service.
func NewService(deps Dependencies) *Service {
	return &Service{
		store:    deps.Store,
		hasher:   deps.Hasher,
		sessions: deps.Sessions,
		objects:  deps.Objects,
		releaser: deps.Releaser,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an account after uploading its images. Uploads are rolled
// back when the account cannot be stored.
func (s *Service) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	handle := strings.ToLower(strings.TrimSpace(in.Handle))
	email := strings.ToLower(strings.TrimSpace(in.Email))
	displayName := strings.TrimSpace(in.DisplayName)

	var details []string
	if handle == "" || displayName == "" || email == "" || in.Password == "" {
		details = append(details, "handle, displayName, email and password are required")
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			details = append(details, "invalid email address")
		}
	}
	if in.Password != "" && len(in.Password) < minPasswordLength {
		details = append(details, "password must be at least 8 characters")
	}
	if in.AvatarPath == "" {
		details = append(details, "avatar is required")
	}
	if len(details) > 0 {
		return models.User{}, apperror.Validation("invalid registration", details...)
	}

	ctx, span := logging.StartSpan(ctx, "users.register")
	defer span.End()

	if _, err := s.store.FindByLogin(ctx, handle, email); err == nil {
		return models.User{}, apperror.Conflict("user with this handle or email already exists")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return models.User{}, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return models.User{}, apperror.Internal("failed to secure password", err)
	}

	batch := media.NewBatch(s.objects)
	avatar, err := batch.Store(ctx, in.AvatarPath)
	if err != nil {
		return models.User{}, err
	}
	var cover models.MediaRef
	if in.CoverPath != "" {
		if cover, err = batch.Store(ctx, in.CoverPath); err != nil {
			batch.Rollback(ctx)
			return models.User{}, err
		}
	}

	now := s.now()
	user := models.User{
		ID:           uuid.NewString(),
		Handle:       handle,
		DisplayName:  displayName,
		Email:        email,
		PasswordHash: hash,
		Avatar:       avatar,
		Cover:        cover,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, user); err != nil {
		batch.Rollback(ctx)
		if errors.Is(err, repositories.ErrConflict) {
			return models.User{}, apperror.Conflict("user with this handle or email already exists")
		}
		return models.User{}, err
	}

	logging.FromContext(ctx).Info("user registered", "userId", user.ID, "handle", user.Handle)
	return user, nil
}

// Login authenticates by handle or email and issues a token pair.
func (s *Service) Login(ctx context.Context, handle, email, password string) (models.User, models.SessionTokens, error) {
	handle = strings.ToLower(strings.TrimSpace(handle))
	email = strings.ToLower(strings.TrimSpace(email))
	if handle == "" && email == "" {
		return models.User{}, models.SessionTokens{}, apperror.Validation("handle or email is required")
	}
	if password == "" {
		return models.User{}, models.SessionTokens{}, apperror.Validation("password is required")
	}

	user, err := s.store.FindByLogin(ctx, handle, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, models.SessionTokens{}, apperror.NotFound("user does not exist")
		}
		return models.User{}, models.SessionTokens{}, err
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			logging.FromContext(ctx).Warn("login password mismatch", "userId", user.ID)
			return models.User{}, models.SessionTokens{}, apperror.Unauthenticated("invalid user credentials")
		}
		return models.User{}, models.SessionTokens{}, err
	}

	tokens, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return models.User{}, models.SessionTokens{}, apperror.Internal("failed to create session", err)
	}
	return user, tokens, nil
}

// Logout clears the refresh token held by userID.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return apperror.Unauthenticated("authentication required")
	}
	return s.sessions.RevokeUser(ctx, userID)
}

// Refresh rotates a refresh token into a new token pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return models.SessionTokens{}, apperror.Unauthenticated("refresh token is required")
	}
	tokens, err := s.sessions.Refresh(ctx, refreshToken)
	switch {
	case errors.Is(err, auth.ErrSessionNotFound):
		return models.SessionTokens{}, apperror.Unauthenticated("refresh token is invalid or already used")
	case errors.Is(err, auth.ErrRefreshTokenExpired):
		return models.SessionTokens{}, apperror.Unauthenticated("refresh token is expired")
	case err != nil:
		return models.SessionTokens{}, err
	}
	return tokens, nil
}

// ChangePassword replaces the password after verifying the old one.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return apperror.Validation("old and new passwords are required")
	}
	if len(newPassword) < minPasswordLength {
		return apperror.Validation("password must be at least 8 characters")
	}
	user, err := s.Current(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.hasher.Compare(user.PasswordHash, oldPassword); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return apperror.Validation("invalid old password")
		}
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperror.Internal("failed to secure password", err)
	}
	if err := s.store.UpdatePassword(ctx, userID, hash, s.now()); err != nil {
		return notFound(err)
	}
	return nil
}

// UpdateAccount changes the display name and email.
func (s *Service) UpdateAccount(ctx context.Context, userID, displayName, email string) (models.User, error) {
	if userID == "" {
		return models.User{}, apperror.Unauthenticated("authentication required")
	}
	displayName = strings.TrimSpace(displayName)
	email = strings.ToLower(strings.TrimSpace(email))
	if displayName == "" || email == "" {
		return models.User{}, apperror.Validation("displayName and email are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return models.User{}, apperror.Validation("invalid email address")
	}

	user, err := s.store.UpdateAccount(ctx, userID, displayName, email, s.now())
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return models.User{}, apperror.Conflict("email is already in use")
		}
		return models.User{}, notFound(err)
	}
	return user, nil
}

// UpdateAvatar replaces the avatar image.
func (s *Service) UpdateAvatar(ctx context.Context, userID, localPath string) (models.User, error) {
	return s.replaceMedia(ctx, userID, repositories.SlotAvatar, localPath)
}

// UpdateCover replaces the cover image.
func (s *Service) UpdateCover(ctx context.Context, userID, localPath string) (models.User, error) {
	return s.replaceMedia(ctx, userID, repositories.SlotCover, localPath)
}

// Current returns the authenticated user.
func (s *Service) Current(ctx context.Context, userID string) (models.User, error) {
	if userID == "" {
		return models.User{}, apperror.Unauthenticated("authentication required")
	}
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return models.User{}, notFound(err)
	}
	return user, nil
}

func (s *Service) replaceMedia(ctx context.Context, userID string, slot repositories.MediaSlot, localPath string) (models.User, error) {
	if userID == "" {
		return models.User{}, apperror.Unauthenticated("authentication required")
	}
	if localPath == "" {
		return models.User{}, apperror.Validation(string(slot) + " file is missing")
	}

	ctx, span := logging.StartSpan(ctx, "users.replace_media", "slot", string(slot))
	defer span.End()

	batch := media.NewBatch(s.objects)
	ref, err := batch.Store(ctx, localPath)
	if err != nil {
		return models.User{}, err
	}

	user, old, err := s.store.ReplaceMedia(ctx, userID, slot, ref, s.now())
	if err != nil {
		span.Fail(err)
		batch.Rollback(ctx)
		return models.User{}, notFound(err)
	}

	if s.releaser != nil {
		s.releaser.Release(ctx, old)
	}
	return user, nil
}

func notFound(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperror.NotFound("user not found")
	}
	return err
}
