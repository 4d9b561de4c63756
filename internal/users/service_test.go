package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidtube/backend/internal/apperror"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

type memoryStore struct {
	users map[string]models.User
}

func (m *memoryStore) Create(_ context.Context, u models.User) error {
	for _, existing := range m.users {
		if existing.Handle == u.Handle || existing.Email == u.Email {
			return repositories.ErrConflict
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *memoryStore) FindByID(_ context.Context, id string) (models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return u, nil
}

func (m *memoryStore) FindByLogin(_ context.Context, handle, email string) (models.User, error) {
	for _, u := range m.users {
		if (handle != "" && u.Handle == handle) || (email != "" && u.Email == email) {
			return u, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (m *memoryStore) UpdateAccount(_ context.Context, id, displayName, email string, at time.Time) (models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	for otherID, other := range m.users {
		if otherID != id && other.Email == email {
			return models.User{}, repositories.ErrConflict
		}
	}
	u.DisplayName, u.Email, u.UpdatedAt = displayName, email, at
	m.users[id] = u
	return u, nil
}

func (m *memoryStore) UpdatePassword(_ context.Context, id, hash string, at time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	u.PasswordHash, u.UpdatedAt = hash, at
	m.users[id] = u
	return nil
}

func (m *memoryStore) ReplaceMedia(_ context.Context, id string, slot repositories.MediaSlot, ref models.MediaRef, at time.Time) (models.User, models.MediaRef, error) {
	u, ok := m.users[id]
	if !ok {
		return models.User{}, models.MediaRef{}, repositories.ErrNotFound
	}
	var old models.MediaRef
	if slot == repositories.SlotAvatar {
		old, u.Avatar = u.Avatar, ref
	} else {
		old, u.Cover = u.Cover, ref
	}
	u.UpdatedAt = at
	m.users[id] = u
	return u, old, nil
}

type objects map[string]bool

func (o objects) Store(_ context.Context, path string) (models.MediaRef, error) {
	o[path] = true
	return models.MediaRef{URL: "https://cdn.test/" + path, StorageID: path}, nil
}

func (o objects) Delete(_ context.Context, id string) error {
	delete(o, id)
	return nil
}

type releaser []string

func (r *releaser) Release(_ context.Context, refs ...models.MediaRef) {
	for _, ref := range refs {
		*r = append(*r, ref.StorageID)
	}
}

type fixture struct {
	svc      *Service
	store    *memoryStore
	objects  objects
	sessions *auth.InMemorySessionStore
	released *releaser
}

func newFixture() fixture {
	f := fixture{
		store:    &memoryStore{users: map[string]models.User{}},
		objects:  objects{},
		sessions: auth.NewInMemorySessionStore(),
		released: &releaser{},
	}
	manager := auth.NewManager(auth.NewTokenIssuer("test-secret", time.Minute), time.Hour, f.sessions)
	f.svc = NewService(Dependencies{
		Store:    f.store,
		Hasher:   auth.BcryptHasher{Cost: 4},
		Sessions: manager,
		Objects:  f.objects,
		Releaser: f.released,
	})
	return f
}

func (f fixture) register(t *testing.T, handle string) models.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), RegisterInput{
		Handle:      handle,
		DisplayName: "Display " + handle,
		Email:       handle + "@example.com",
		Password:    "password123",
		AvatarPath:  handle + "-avatar.png",
	})
	require.NoError(t, err)
	return u
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	user := f.register(t, "Alice")
	assert.Equal(t, "alice", user.Handle)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "password123", user.PasswordHash)
	assert.Equal(t, "Alice-avatar.png", user.Avatar.StorageID)
	assert.True(t, user.Cover.IsZero())

	loggedIn, tokens, err := f.svc.Login(ctx, "", "ALICE@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.True(t, f.sessions.Has(tokens.RefreshToken))

	_, _, err = f.svc.Login(ctx, "alice", "", "wrong-password")
	assert.True(t, apperror.Is(err, apperror.KindUnauthenticated))

	_, _, err = f.svc.Login(ctx, "nobody", "", "password123")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, _, err = f.svc.Login(ctx, "", "", "password123")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestRegisterRejectsDuplicatesWithoutUploading(t *testing.T) {
	f := newFixture()
	f.register(t, "bob")

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Handle:      "BOB",
		DisplayName: "Other Bob",
		Email:       "other@example.com",
		Password:    "password123",
		AvatarPath:  "dup-avatar.png",
	})
	assert.True(t, apperror.Is(err, apperror.KindConflict))
	assert.False(t, f.objects["dup-avatar.png"])
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Register(context.Background(), RegisterInput{Handle: "x", Email: "not-an-email", Password: "short"})
	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
	assert.Contains(t, appErr.Details, "avatar is required")
	assert.Contains(t, appErr.Details, "invalid email address")
	assert.Contains(t, appErr.Details, "password must be at least 8 characters")
}

func TestRefreshLogoutAndPassword(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	user := f.register(t, "carol")

	_, tokens, err := f.svc.Login(ctx, "carol", "", "password123")
	require.NoError(t, err)

	rotated, err := f.svc.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	_, err = f.svc.Refresh(ctx, tokens.RefreshToken)
	assert.True(t, apperror.Is(err, apperror.KindUnauthenticated), "a rotated token cannot be reused")

	require.NoError(t, f.svc.Logout(ctx, user.ID))
	_, err = f.svc.Refresh(ctx, rotated.RefreshToken)
	assert.True(t, apperror.Is(err, apperror.KindUnauthenticated))

	err = f.svc.ChangePassword(ctx, user.ID, "wrong-password", "new-password-1")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	require.NoError(t, f.svc.ChangePassword(ctx, user.ID, "password123", "new-password-1"))
	_, _, err = f.svc.Login(ctx, "carol", "", "new-password-1")
	require.NoError(t, err)
}

func TestUpdateAccountAndMedia(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	dave := f.register(t, "dave")
	f.register(t, "erin")

	_, err := f.svc.UpdateAccount(ctx, dave.ID, "Dave", "erin@example.com")
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	updated, err := f.svc.UpdateAccount(ctx, dave.ID, "Dave D", "Dave.D@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "dave.d@example.com", updated.Email)

	updated, err = f.svc.UpdateAvatar(ctx, dave.ID, "dave-new.png")
	require.NoError(t, err)
	assert.Equal(t, "dave-new.png", updated.Avatar.StorageID)
	assert.Equal(t, releaser{"dave-avatar.png"}, *f.released)

	updated, err = f.svc.UpdateCover(ctx, dave.ID, "dave-cover.png")
	require.NoError(t, err)
	assert.Equal(t, "dave-cover.png", updated.Cover.StorageID)

	_, err = f.svc.UpdateAvatar(ctx, "missing", "ghost.png")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	assert.False(t, f.objects["ghost.png"], "upload is rolled back when the user is gone")
}
