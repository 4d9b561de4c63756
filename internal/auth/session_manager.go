package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/vidtube/backend/internal/models"
)

var (
	// ErrSessionNotFound indicates the refresh token is not the one its user currently holds.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRefreshTokenExpired indicates the refresh token has expired and cannot be used.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// refreshTokenBytes is the entropy of an opaque refresh token.
const refreshTokenBytes = 32

// SessionStore keeps at most one refresh token per user. Save replaces the
// token the user held before, so a rotated token stops working immediately.
// Rotate replaces it only while the user still holds previous and returns
// ErrSessionNotFound otherwise.
type SessionStore interface {
	Save(ctx context.Context, session Session) error
	Rotate(ctx context.Context, previous string, next Session) error
	Find(ctx context.Context, refreshToken string) (Session, error)
	DeleteForUser(ctx context.Context, userID string) error
}

// AccessIssuer signs short-lived access tokens.
type AccessIssuer interface {
	Issue(userID string) (string, time.Time, error)
}

// Session is the refresh token a user currently holds.
type Session struct {
	RefreshToken string
	UserID       string
	ExpiresAt    time.Time
}

func (s Session) expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Manager pairs signed access tokens with opaque, rotating refresh tokens.
type Manager struct {
	access     AccessIssuer
	refreshTTL time.Duration
	sessions   SessionStore
	now        func() time.Time
}

// NewManager returns a Manager whose refresh tokens stay valid for refreshTTL.
func NewManager(access AccessIssuer, refreshTTL time.Duration, sessions SessionStore) *Manager {
	if access == nil {
		panic("auth: access issuer must not be nil")
	}
	if sessions == nil {
		panic("auth: session store must not be nil")
	}
	return &Manager{
		access:     access,
		refreshTTL: refreshTTL,
		sessions:   sessions,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Issue signs in userID, replacing any refresh token issued earlier.
func (m *Manager) Issue(ctx context.Context, userID string) (models.SessionTokens, error) {
	return m.issue(ctx, userID, func(session Session) error {
		return m.sessions.Save(ctx, session)
	})
}

// Refresh rotates a still-valid refresh token into a fresh token pair. An
// expired token signs the user out. Of two refreshes racing on one token only
// the first succeeds.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	if refreshToken == "" {
		return models.SessionTokens{}, ErrSessionNotFound
	}

	session, err := m.sessions.Find(ctx, refreshToken)
	if err != nil {
		return models.SessionTokens{}, err
	}
	if session.expired(m.now()) {
		_ = m.RevokeUser(ctx, session.UserID)
		return models.SessionTokens{}, ErrRefreshTokenExpired
	}

	return m.issue(ctx, session.UserID, func(next Session) error {
		return m.sessions.Rotate(ctx, refreshToken, next)
	})
}

func (m *Manager) issue(ctx context.Context, userID string, persist func(Session) error) (models.SessionTokens, error) {
	if userID == "" {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}

	accessToken, accessExpiresAt, err := m.access.Issue(userID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	session := Session{UserID: userID, ExpiresAt: m.now().Add(m.refreshTTL)}
	if session.RefreshToken, err = newRefreshToken(); err != nil {
		return models.SessionTokens{}, err
	}
	if err := persist(session); err != nil {
		return models.SessionTokens{}, err
	}

	return models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     session.RefreshToken,
		RefreshExpiresAt: session.ExpiresAt,
	}, nil
}

// RevokeUser signs userID out. Revoking a user without a session is a no-op.
func (m *Manager) RevokeUser(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	err := m.sessions.DeleteForUser(ctx, userID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	return err
}

func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
