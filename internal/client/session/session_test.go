package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/siteofsites/internal/client/client"
	"github.com/dmitrijs2005/siteofsites/internal/client/events"
	"github.com/dmitrijs2005/siteofsites/internal/client/models"
	"github.com/dmitrijs2005/siteofsites/internal/client/tokenstore"
	"github.com/dmitrijs2005/siteofsites/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	meUser *models.UserSummary
	meErr  error
	meGate chan struct{}

	loginResp *models.AuthResponse
	loginErr  error

	registerResp *models.AuthResponse
	registerErr  error

	logoutErr error

	meCalls, loginCalls, registerCalls, logoutCalls atomic.Int32
}

func (f *fakeAuth) Me(context.Context) (*models.UserSummary, error) {
	f.meCalls.Add(1)
	if f.meGate != nil {
		<-f.meGate
	}
	return f.meUser, f.meErr
}

func (f *fakeAuth) Login(context.Context, models.LoginRequest) (*models.AuthResponse, error) {
	f.loginCalls.Add(1)
	return f.loginResp, f.loginErr
}

func (f *fakeAuth) Register(context.Context, models.RegisterRequest) (*models.AuthResponse, error) {
	f.registerCalls.Add(1)
	return f.registerResp, f.registerErr
}

func (f *fakeAuth) Logout(context.Context) error {
	f.logoutCalls.Add(1)
	return f.logoutErr
}

type failingSave struct {
	*tokenstore.Store
}

func (failingSave) Save(context.Context, string) error { return errors.New("disk full") }

var alice = models.UserSummary{ID: 1, UniqueID: "u1", Nickname: "Alice", Email: "alice@example.com"}

func newStore(t *testing.T) *tokenstore.Store {
	t.Helper()
	s, err := tokenstore.Open(context.Background(), tokenstore.DriverMemory, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func storedToken(t *testing.T, s CredentialStore) string {
	t.Helper()
	tok, err := s.Token(context.Background())
	require.NoError(t, err)
	return tok
}

// recordSessions collects every SessionChanged snapshot.
func recordSessions(t *testing.T, bus *events.Bus) func() []Session {
	t.Helper()
	var mu sync.Mutex
	var got []Session
	unsub, err := bus.Subscribe(events.SessionChanged, func(s Session) {
		mu.Lock()
		got = append(got, s)
		mu.Unlock()
	})
	require.NoError(t, err)
	t.Cleanup(unsub)
	return func() []Session {
		mu.Lock()
		defer mu.Unlock()
		return append([]Session(nil), got...)
	}
}

func bootedAnonymous(t *testing.T, api *fakeAuth, store CredentialStore, bus *events.Bus) *Manager {
	t.Helper()
	m := NewManager(api, store, logging.Discard(), bus)
	m.Bootstrap(context.Background())
	require.Equal(t, StatusAnonymous, m.Current().Status)
	return m
}

func TestManager_StartsBooting(t *testing.T) {
	m := NewManager(&fakeAuth{}, newStore(t), logging.Discard(), nil)
	s := m.Current()
	assert.Equal(t, StatusBooting, s.Status)
	assert.Nil(t, s.User)
	assert.False(t, s.Authenticated())
}

func TestBootstrap_NoCredentialSkipsNetwork(t *testing.T) {
	api := &fakeAuth{}
	bus := events.NewBus()
	sessions := recordSessions(t, bus)

	m := NewManager(api, newStore(t), logging.Discard(), bus)
	m.Bootstrap(context.Background())

	assert.Equal(t, StatusAnonymous, m.Current().Status)
	assert.Zero(t, api.meCalls.Load())
	require.Len(t, sessions(), 1)
	assert.Equal(t, StatusAnonymous, sessions()[0].Status)
}

func TestBootstrap_ValidCredential(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.Save(ctx, "tok"))
	u := alice
	api := &fakeAuth{meUser: &u}

	m := NewManager(api, store, logging.Discard(), nil)
	m.Bootstrap(ctx)

	s := m.Current()
	require.True(t, s.Authenticated())
	assert.Equal(t, "Alice", s.User.Nickname)
	assert.Equal(t, "tok", storedToken(t, store))
}

func TestBootstrap_RejectedCredentialIsCleared(t *testing.T) {
	ctx := context.Background()
	for name, err := range map[string]error{
		"unauthorized": &client.APIError{StatusCode: http.StatusUnauthorized},
		"unavailable":  client.ErrUnavailable,
	} {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			require.NoError(t, store.Save(ctx, "stale"))
			api := &fakeAuth{meErr: err}

			m := NewManager(api, store, logging.Discard(), nil)
			m.Bootstrap(ctx)

			assert.Equal(t, StatusAnonymous, m.Current().Status)
			assert.Nil(t, m.Current().User)
			assert.Empty(t, storedToken(t, store))
		})
	}
}

func TestBootstrap_RunsOnce(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.Save(ctx, "tok"))
	u := alice
	api := &fakeAuth{meUser: &u, meGate: make(chan struct{})}

	m := NewManager(api, store, logging.Discard(), nil)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Bootstrap(ctx)
		}()
	}
	require.Eventually(t, func() bool { return api.meCalls.Load() == 1 }, time.Second, 5*time.Millisecond)
	close(api.meGate)
	wg.Wait()

	m.Bootstrap(ctx)
	assert.Equal(t, int32(1), api.meCalls.Load())
	assert.True(t, m.Current().Authenticated())
}

func TestLogin_Success(t *testing.T) {
	store := newStore(t)
	bus := events.NewBus()
	api := &fakeAuth{loginResp: &models.AuthResponse{AccessToken: "tok-1", TokenType: "bearer", User: alice}}
	m := bootedAnonymous(t, api, store, bus)
	sessions := recordSessions(t, bus)

	res := m.Login(context.Background(), "alice@example.com", "password1")

	require.True(t, res.OK)
	assert.Empty(t, res.Message)
	assert.True(t, m.Current().Authenticated())
	assert.Equal(t, "tok-1", storedToken(t, store))
	require.Len(t, sessions(), 1)
	assert.Equal(t, StatusAuthenticated, sessions()[0].Status)
}

func TestLogin_FailureLeavesStateUnchanged(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"server detail", &client.APIError{StatusCode: http.StatusUnauthorized, Detail: "Invalid email or password"}, "Invalid email or password"},
		{"no detail", &client.APIError{StatusCode: http.StatusInternalServerError}, LoginFailed},
		{"network", client.ErrUnavailable, LoginFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t)
			bus := events.NewBus()
			api := &fakeAuth{loginErr: tt.err}
			m := bootedAnonymous(t, api, store, bus)
			sessions := recordSessions(t, bus)

			res := m.Login(context.Background(), "a@b.c", "wrong")

			assert.False(t, res.OK)
			assert.Equal(t, tt.want, res.Message)
			assert.Equal(t, StatusAnonymous, m.Current().Status)
			assert.Empty(t, storedToken(t, store))
			assert.Empty(t, sessions())
		})
	}
}

func TestLogin_CredentialSaveFailure(t *testing.T) {
	store := failingSave{newStore(t)}
	api := &fakeAuth{loginResp: &models.AuthResponse{AccessToken: "tok-1", User: alice}}
	m := bootedAnonymous(t, api, store, nil)

	res := m.Login(context.Background(), "alice@example.com", "password1")

	assert.False(t, res.OK)
	assert.Equal(t, LoginFailed, res.Message)
	assert.Equal(t, StatusAnonymous, m.Current().Status)
}

func TestLogin_EmptyTokenIsFailure(t *testing.T) {
	store := newStore(t)
	api := &fakeAuth{loginResp: &models.AuthResponse{User: alice}}
	m := bootedAnonymous(t, api, store, nil)

	res := m.Login(context.Background(), "alice@example.com", "password1")
	assert.False(t, res.OK)
	assert.Equal(t, StatusAnonymous, m.Current().Status)
}

func TestLogin_RefusedOutsideAnonymous(t *testing.T) {
	ctx := context.Background()

	t.Run("booting", func(t *testing.T) {
		api := &fakeAuth{}
		m := NewManager(api, newStore(t), logging.Discard(), nil)
		res := m.Login(ctx, "a@b.c", "password1")
		assert.False(t, res.OK)
		assert.Equal(t, StillBooting, res.Message)
		assert.Zero(t, api.loginCalls.Load())
	})

	t.Run("authenticated", func(t *testing.T) {
		api := &fakeAuth{loginResp: &models.AuthResponse{AccessToken: "tok", User: alice}}
		m := bootedAnonymous(t, api, newStore(t), nil)
		require.True(t, m.Login(ctx, "a@b.c", "password1").OK)

		res := m.Login(ctx, "a@b.c", "password1")
		assert.False(t, res.OK)
		assert.Equal(t, AlreadySignedIn, res.Message)
		assert.Equal(t, int32(1), api.loginCalls.Load())

		res = m.Register(ctx, models.RegisterRequest{})
		assert.Equal(t, AlreadySignedIn, res.Message)
		assert.Zero(t, api.registerCalls.Load())
	})
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("signs in immediately", func(t *testing.T) {
		store := newStore(t)
		api := &fakeAuth{registerResp: &models.AuthResponse{AccessToken: "tok-r", User: alice}}
		m := bootedAnonymous(t, api, store, nil)

		res := m.Register(ctx, models.RegisterRequest{Email: "alice@example.com", Password: "password1", ConfirmPassword: "password1", Nickname: "Alice"})
		require.True(t, res.OK)
		assert.True(t, m.Current().Authenticated())
		assert.Equal(t, "tok-r", storedToken(t, store))
	})

	t.Run("server detail surfaces", func(t *testing.T) {
		api := &fakeAuth{registerErr: &client.APIError{StatusCode: http.StatusBadRequest, Detail: "Email already registered"}}
		m := bootedAnonymous(t, api, newStore(t), nil)

		res := m.Register(ctx, models.RegisterRequest{})
		assert.False(t, res.OK)
		assert.Equal(t, "Email already registered", res.Message)
		assert.Equal(t, StatusAnonymous, m.Current().Status)
	})

	t.Run("generic fallback", func(t *testing.T) {
		api := &fakeAuth{registerErr: client.ErrUnavailable}
		m := bootedAnonymous(t, api, newStore(t), nil)

		res := m.Register(ctx, models.RegisterRequest{})
		assert.Equal(t, RegistrationFailed, res.Message)
	})
}

func signedIn(t *testing.T, api *fakeAuth, store CredentialStore, bus *events.Bus) *Manager {
	t.Helper()
	api.loginResp = &models.AuthResponse{AccessToken: "tok", User: alice}
	m := bootedAnonymous(t, api, store, bus)
	require.True(t, m.Login(context.Background(), "alice@example.com", "password1").OK)
	return m
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	for name, logoutErr := range map[string]error{
		"server ok":     nil,
		"server failed": client.ErrUnavailable,
	} {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			bus := events.NewBus()
			api := &fakeAuth{logoutErr: logoutErr}
			m := signedIn(t, api, store, bus)
			sessions := recordSessions(t, bus)

			m.Logout(ctx)

			assert.Equal(t, int32(1), api.logoutCalls.Load())
			assert.Equal(t, StatusAnonymous, m.Current().Status)
			assert.Nil(t, m.Current().User)
			assert.Empty(t, storedToken(t, store))
			require.Len(t, sessions(), 1)
			assert.Equal(t, StatusAnonymous, sessions()[0].Status)
		})
	}

	t.Run("anonymous is a no-op", func(t *testing.T) {
		bus := events.NewBus()
		api := &fakeAuth{}
		m := bootedAnonymous(t, api, newStore(t), bus)
		sessions := recordSessions(t, bus)

		m.Logout(ctx)
		assert.Zero(t, api.logoutCalls.Load())
		assert.Empty(t, sessions())
	})
}

func TestInvalidate(t *testing.T) {
	store := newStore(t)
	m := signedIn(t, &fakeAuth{}, store, nil)

	m.Invalidate(context.Background(), "test")
	assert.Equal(t, StatusAnonymous, m.Current().Status)
	assert.Empty(t, storedToken(t, store))

	m.Invalidate(context.Background(), "again")
	assert.Equal(t, StatusAnonymous, m.Current().Status)
}

func TestTransitions_PublishedInOrder(t *testing.T) {
	ctx := context.Background()
	bus := events.NewBus()
	sessions := recordSessions(t, bus)
	api := &fakeAuth{loginResp: &models.AuthResponse{AccessToken: "tok", User: alice}}
	m := bootedAnonymous(t, api, newStore(t), bus)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range 200 {
			m.Login(ctx, "alice@example.com", "password1")
		}
	}()
	go func() {
		defer wg.Done()
		for range 200 {
			m.Invalidate(ctx, "revoked")
		}
	}()
	wg.Wait()

	got := sessions()
	require.NotEmpty(t, got)
	assert.Equal(t, StatusAnonymous, got[0].Status)
	for i := 1; i < len(got); i++ {
		require.NotEqual(t, got[i-1].Status, got[i].Status, "event %d repeats a status", i)
	}
	assert.Equal(t, m.Current().Status, got[len(got)-1].Status)
}

func TestRevalidate(t *testing.T) {
	ctx := context.Background()

	t.Run("unauthorized ends session", func(t *testing.T) {
		store := newStore(t)
		api := &fakeAuth{}
		m := signedIn(t, api, store, nil)
		api.meErr = &client.APIError{StatusCode: http.StatusUnauthorized}

		m.Revalidate(ctx)
		assert.Equal(t, StatusAnonymous, m.Current().Status)
		assert.Empty(t, storedToken(t, store))
	})

	t.Run("transient failure keeps session", func(t *testing.T) {
		store := newStore(t)
		api := &fakeAuth{}
		m := signedIn(t, api, store, nil)
		api.meErr = client.ErrUnavailable

		m.Revalidate(ctx)
		assert.True(t, m.Current().Authenticated())
		assert.Equal(t, "tok", storedToken(t, store))
	})

	t.Run("refreshes user", func(t *testing.T) {
		api := &fakeAuth{}
		m := signedIn(t, api, newStore(t), nil)
		fresh := alice
		fresh.Nickname = "Alicia"
		api.meUser = &fresh

		m.Revalidate(ctx)
		assert.Equal(t, "Alicia", m.Current().User.Nickname)
	})

	t.Run("anonymous skips network", func(t *testing.T) {
		api := &fakeAuth{}
		m := bootedAnonymous(t, api, newStore(t), nil)
		m.Revalidate(ctx)
		assert.Zero(t, api.meCalls.Load())
	})
}

func TestReplaceUser(t *testing.T) {
	api := &fakeAuth{}
	m := signedIn(t, api, newStore(t), nil)

	other := models.UserSummary{ID: 99, Nickname: "Mallory"}
	assert.False(t, m.ReplaceUser(&other))
	assert.False(t, m.ReplaceUser(nil))

	upd := alice
	upd.Description = "hello"
	assert.True(t, m.ReplaceUser(&upd))
	assert.Equal(t, "hello", m.Current().User.Description)

	m.Logout(context.Background())
	assert.False(t, m.ReplaceUser(&upd))
}

func TestCurrent_ReturnsCopy(t *testing.T) {
	m := signedIn(t, &fakeAuth{}, newStore(t), nil)

	s := m.Current()
	s.User.Nickname = "changed"
	assert.Equal(t, "Alice", m.Current().User.Nickname)
}

func TestCredentialExpiry(t *testing.T) {
	ctx := context.Background()
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	store := newStore(t)
	m := NewManager(&fakeAuth{}, store, logging.Discard(), nil)

	_, ok := m.CredentialExpiry(ctx)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, "opaque-token"))
	_, ok = m.CredentialExpiry(ctx)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, signed))
	got, ok := m.CredentialExpiry(ctx)
	require.True(t, ok)
	assert.True(t, exp.Equal(got))
}
