package services

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/siteofsites/internal/apitest"
	"github.com/dmitrijs2005/siteofsites/internal/client/client"
	"github.com/dmitrijs2005/siteofsites/internal/client/models"
	"github.com/dmitrijs2005/siteofsites/internal/client/session"
	"github.com/dmitrijs2005/siteofsites/internal/client/tokenstore"
	"github.com/dmitrijs2005/siteofsites/internal/filex"
	"github.com/dmitrijs2005/siteofsites/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	backend  *apitest.Backend
	manager  *session.Manager
	profiles ProfileService
	projects ProjectService
	uniqueID string
}

// signedInFixture wires real components against the fake backend with
// alice already signed in.
func signedInFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	backend := apitest.NewBackend()
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	store, err := tokenstore.Open(ctx, tokenstore.DriverMemory, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	uid, token := backend.SeedUser("alice@example.com", "password1", "Alice")
	backend.SeedUser("bob@example.com", "password1", "Bob")
	require.NoError(t, store.Save(ctx, token))

	api := client.NewHTTPClient(srv.URL, store, client.WithTimeout(5*time.Second))
	log := logging.Discard()
	m := session.NewManager(api, store, log, nil)
	m.Bootstrap(ctx)
	require.True(t, m.Current().Authenticated())

	return &fixture{
		backend:  backend,
		manager:  m,
		profiles: NewProfileService(api, m, log),
		projects: NewProjectService(api, m, log),
		uniqueID: uid,
	}
}

func TestProfile_Get(t *testing.T) {
	f := signedInFixture(t)
	ctx := context.Background()

	u, err := f.profiles.Get(ctx, f.uniqueID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Nickname)
	assert.True(t, f.profiles.IsOwn(f.manager.Current(), u))

	bob, err := f.profiles.Get(ctx, "u2")
	require.NoError(t, err)
	assert.False(t, f.profiles.IsOwn(f.manager.Current(), bob))

	_, err = f.profiles.Get(ctx, "nobody")
	require.ErrorIs(t, err, client.ErrNotFound)
}

func TestProfile_IsOwnAnonymous(t *testing.T) {
	p := NewProfileService(nil, nil, logging.Discard())
	assert.False(t, p.IsOwn(session.Session{Status: session.StatusAnonymous}, &models.UserSummary{ID: 1}))
	assert.False(t, p.IsOwn(session.Session{Status: session.StatusAnonymous}, nil))
}

func TestProfile_Update(t *testing.T) {
	f := signedInFixture(t)
	ctx := context.Background()

	res := f.profiles.Update(ctx, models.ProfileUpdate{Nickname: "Alicia", Description: "hello"})
	require.True(t, res.OK, res.Message)

	u := f.manager.Current().User
	assert.Equal(t, "Alicia", u.Nickname)
	assert.Equal(t, "hello", u.Description)
}

func TestProfile_UpdateConflictKeepsSession(t *testing.T) {
	f := signedInFixture(t)

	res := f.profiles.Update(context.Background(), models.ProfileUpdate{Nickname: "Bob"})
	assert.False(t, res.OK)
	assert.Equal(t, "Nickname already taken", res.Message)
	assert.Equal(t, "Alice", f.manager.Current().User.Nickname)
}

func TestProfile_UpdateUnauthorizedInvalidatesSession(t *testing.T) {
	f := signedInFixture(t)
	f.backend.RevokeTokens()

	res := f.profiles.Update(context.Background(), models.ProfileUpdate{Nickname: "Alicia"})
	assert.False(t, res.OK)
	assert.Equal(t, SessionExpiredMessage, res.Message)
	assert.Equal(t, session.StatusAnonymous, f.manager.Current().Status)

	res = f.profiles.Update(context.Background(), models.ProfileUpdate{Nickname: "Alicia"})
	assert.Equal(t, NotSignedIn, res.Message)
}

func TestProfile_SetAvatar(t *testing.T) {
	f := signedInFixture(t)
	ctx := context.Background()
	dir := t.TempDir()

	png := filepath.Join(dir, "me.png")
	require.NoError(t, os.WriteFile(png, append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...), 0o600))

	res := f.profiles.SetAvatar(ctx, png)
	require.True(t, res.OK, res.Message)
	u := f.manager.Current().User
	assert.True(t, strings.HasPrefix(u.Avatar, "data:image/png;base64,"))
	assert.Equal(t, "Alice", u.Nickname)

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("plain text"), 0o600))
	res = f.profiles.SetAvatar(ctx, txt)
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, filex.ErrNotImage.Error())
}

func TestProjects_Lifecycle(t *testing.T) {
	f := signedInFixture(t)
	ctx := context.Background()

	list, err := f.projects.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.True(t, f.projects.Create(ctx, "Site", "my site").OK)
	list, err = f.projects.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Site", list[0].Title)
	assert.Nil(t, list[0].UpdatedAt)

	id := list[0].ID
	require.True(t, f.projects.Update(ctx, id, "Site v2", "").OK)
	list, err = f.projects.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Site v2", list[0].Title)
	assert.NotNil(t, list[0].UpdatedAt)

	require.True(t, f.projects.Delete(ctx, id).OK)
	list, err = f.projects.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestProjects_Failures(t *testing.T) {
	f := signedInFixture(t)
	ctx := context.Background()

	res := f.projects.Delete(ctx, 42)
	assert.False(t, res.OK)
	assert.Equal(t, "Project not found", res.Message)

	res = f.projects.Update(ctx, 42, "x", "")
	assert.Equal(t, "Project not found", res.Message)

	res = f.projects.Create(ctx, "", "")
	assert.False(t, res.OK)
	assert.NotEmpty(t, res.Message)

	assert.True(t, f.manager.Current().Authenticated())
}

func TestProjects_UnauthorizedInvalidatesSession(t *testing.T) {
	f := signedInFixture(t)
	ctx := context.Background()
	f.backend.RevokeTokens()

	_, err := f.projects.List(ctx)
	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Equal(t, session.StatusAnonymous, f.manager.Current().Status)

	// No credential left: the client refuses locally.
	res := f.projects.Create(ctx, "Site", "")
	assert.Equal(t, SessionExpiredMessage, res.Message)
}
