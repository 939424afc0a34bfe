// Package session owns the client's authentication state.
//
// The Manager is the only writer of the Session value and, together with the
// token store it is given, the only code that creates or destroys the
// credential. Its state machine is
//
//	booting -> authenticated | anonymous     (Bootstrap, exactly once)
//	anonymous -> authenticated               (Login, Register)
//	authenticated -> anonymous               (Logout, Invalidate, failed Revalidate)
//
// User-facing operations return a Result instead of an error; failures are
// absorbed into state and logged.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/siteofsites/internal/client/client"
	"github.com/dmitrijs2005/siteofsites/internal/client/events"
	"github.com/dmitrijs2005/siteofsites/internal/client/models"
	"github.com/dmitrijs2005/siteofsites/internal/common"
	"github.com/dmitrijs2005/siteofsites/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

type Status string

const (
	StatusBooting       Status = "booting"
	StatusAuthenticated Status = "authenticated"
	StatusAnonymous     Status = "anonymous"
)

// Fallback messages used when the server gives no detail.
const (
	LoginFailed        = "Login failed"
	RegistrationFailed = "Registration failed"
	AlreadySignedIn    = "Already signed in"
	StillBooting       = "Session is still initializing"
)

// Session is a snapshot; mutating it has no effect on the Manager.
type Session struct {
	User   *models.UserSummary
	Status Status
}

func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.User != nil
}

// Result is the outcome of a user-initiated operation. Message is set when
// OK is false and is safe to show to the user.
type Result struct {
	OK      bool
	Message string
}

func success() Result            { return Result{OK: true} }
func failure(msg string) Result { return Result{Message: msg} }

// CredentialStore is the part of the token store the Manager uses.
type CredentialStore interface {
	Token(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

var transitions = map[Status][]Status{
	StatusBooting:       {StatusAuthenticated, StatusAnonymous},
	StatusAnonymous:     {StatusAuthenticated},
	StatusAuthenticated: {StatusAnonymous},
}

func canTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Manager struct {
	api    client.AuthAPI
	tokens CredentialStore
	log    logging.Logger
	bus    *events.Bus

	// flight coalesces concurrent validation round-trips.
	flight singleflight.Group

	// pubMu is taken before mu by every transition and held until its
	// snapshot is published, so subscribers see changes in the order they
	// were applied.
	pubMu sync.Mutex
	mu    sync.Mutex
	state Session
}

// NewManager returns a Manager in the booting state. bus may be nil.
func NewManager(api client.AuthAPI, tokens CredentialStore, log logging.Logger, bus *events.Bus) *Manager {
	return &Manager{
		api:    api,
		tokens: tokens,
		log:    log.With("component", "session"),
		bus:    bus,
		state:  Session{Status: StatusBooting},
	}
}

// Current returns a snapshot of the session.
func (m *Manager) Current() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Session {
	s := Session{Status: m.state.Status}
	if m.state.User != nil {
		u := *m.state.User
		u.Projects = append([]models.Project(nil), m.state.User.Projects...)
		s.User = &u
	}
	return s
}

// setLocked applies a transition and returns the snapshot to publish.
func (m *Manager) setLocked(to Status, user *models.UserSummary) (Session, error) {
	from := m.state.Status
	if !canTransition(from, to) {
		return Session{}, fmt.Errorf("%w: %s -> %s", common.ErrIllegalTransition, from, to)
	}
	m.state = Session{Status: to, User: user}
	return m.snapshotLocked(), nil
}

func (m *Manager) publish(s Session) {
	if m.bus != nil {
		m.bus.Publish(events.SessionChanged, s)
	}
}

// Bootstrap restores the session from the stored credential. It runs the
// validation round-trip at most once; later calls return immediately.
func (m *Manager) Bootstrap(ctx context.Context) {
	if m.Current().Status != StatusBooting {
		return
	}
	_, _, _ = m.flight.Do("me", func() (any, error) {
		m.bootstrap(ctx)
		return nil, nil
	})
}

func (m *Manager) bootstrap(ctx context.Context) {
	if m.Current().Status != StatusBooting {
		return
	}
	token, err := m.tokens.Token(ctx)
	if err != nil {
		m.log.Error(ctx, "credential unreadable, starting anonymous", "error", err)
		m.finishBoot(ctx, nil)
		return
	}
	if token == "" {
		m.finishBoot(ctx, nil)
		return
	}

	user, err := m.api.Me(ctx)
	if err != nil {
		m.log.Info(ctx, "stored credential rejected", "error", err)
		if err := m.tokens.Clear(ctx); err != nil {
			m.log.Error(ctx, "failed to discard credential", "error", err)
		}
		m.finishBoot(ctx, nil)
		return
	}
	m.finishBoot(ctx, user)
}

func (m *Manager) finishBoot(ctx context.Context, user *models.UserSummary) {
	to := StatusAnonymous
	if user != nil {
		to = StatusAuthenticated
	}

	m.pubMu.Lock()
	defer m.pubMu.Unlock()
	m.mu.Lock()
	if m.state.Status != StatusBooting {
		m.mu.Unlock()
		return
	}
	snap, err := m.setLocked(to, user)
	m.mu.Unlock()
	if err != nil {
		m.log.Error(ctx, "bootstrap transition refused", "error", err)
		return
	}

	m.log.Info(ctx, "session bootstrapped", "status", snap.Status)
	m.publish(snap)
}

// Login exchanges credentials for a session. On failure neither the session
// nor the stored credential changes.
func (m *Manager) Login(ctx context.Context, email, password string) Result {
	if r, ok := m.guardAnonymous(); !ok {
		return r
	}

	resp, err := m.api.Login(ctx, models.LoginRequest{Email: email, Password: password})
	if err != nil {
		m.log.Info(ctx, "login rejected", "error", err)
		return failure(client.Detail(err, LoginFailed))
	}
	return m.establish(ctx, resp, LoginFailed)
}

// Register creates an account and signs in with it immediately.
func (m *Manager) Register(ctx context.Context, req models.RegisterRequest) Result {
	if r, ok := m.guardAnonymous(); !ok {
		return r
	}

	resp, err := m.api.Register(ctx, req)
	if err != nil {
		m.log.Info(ctx, "registration rejected", "error", err)
		return failure(client.Detail(err, RegistrationFailed))
	}
	return m.establish(ctx, resp, RegistrationFailed)
}

func (m *Manager) guardAnonymous() (Result, bool) {
	switch m.Current().Status {
	case StatusAnonymous:
		return Result{}, true
	case StatusBooting:
		return failure(StillBooting), false
	default:
		return failure(AlreadySignedIn), false
	}
}

// establish stores the credential and then flips the session. The mutex is
// held across both so no reader sees one without the other.
func (m *Manager) establish(ctx context.Context, resp *models.AuthResponse, fallback string) Result {
	if resp == nil || resp.AccessToken == "" {
		m.log.Error(ctx, "auth response without credential")
		return failure(fallback)
	}
	user := resp.User

	m.pubMu.Lock()
	defer m.pubMu.Unlock()
	m.mu.Lock()
	if m.state.Status != StatusAnonymous {
		m.mu.Unlock()
		return failure(AlreadySignedIn)
	}
	if err := m.tokens.Save(ctx, resp.AccessToken); err != nil {
		m.mu.Unlock()
		m.log.Error(ctx, "failed to store credential", "error", err)
		return failure(fallback)
	}
	snap, err := m.setLocked(StatusAuthenticated, &user)
	m.mu.Unlock()
	if err != nil {
		m.log.Error(ctx, "sign-in transition refused", "error", err)
		return failure(fallback)
	}

	m.log.Info(ctx, "signed in", "user", user.UniqueID)
	m.publish(snap)
	return success()
}

// Logout tells the server (best effort) and then always drops the local
// session and credential.
func (m *Manager) Logout(ctx context.Context) {
	if token, err := m.tokens.Token(ctx); err == nil && token != "" {
		if err := m.api.Logout(ctx); err != nil {
			m.log.Warn(ctx, "logout notification failed", "error", err)
		}
	}
	m.reset(ctx, "logout")
}

// Invalidate drops the session after some request was rejected as
// unauthorized.
func (m *Manager) Invalidate(ctx context.Context, reason string) {
	m.reset(ctx, reason)
}

func (m *Manager) reset(ctx context.Context, reason string) {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()
	m.mu.Lock()
	if err := m.tokens.Clear(ctx); err != nil {
		m.log.Error(ctx, "failed to discard credential", "error", err)
	}
	if m.state.Status == StatusAnonymous {
		m.mu.Unlock()
		return
	}
	snap, err := m.setLocked(StatusAnonymous, nil)
	m.mu.Unlock()
	if err != nil {
		m.log.Error(ctx, "sign-out transition refused", "error", err)
		return
	}

	m.log.Info(ctx, "signed out", "reason", reason)
	m.publish(snap)
}

// Revalidate silently re-checks the credential while authenticated. Only an
// authorization error ends the session; other failures are logged.
func (m *Manager) Revalidate(ctx context.Context) {
	if m.Current().Status != StatusAuthenticated {
		return
	}
	_, _, _ = m.flight.Do("me", func() (any, error) {
		user, err := m.api.Me(ctx)
		switch {
		case errors.Is(err, client.ErrUnauthorized):
			m.Invalidate(ctx, "credential rejected on revalidation")
		case err != nil:
			m.log.Warn(ctx, "revalidation failed", "error", err)
		default:
			m.ReplaceUser(user)
		}
		return nil, nil
	})
}

// ReplaceUser installs a server-confirmed copy of the current user, e.g.
// after a profile update. It ignores users other than the signed-in one.
func (m *Manager) ReplaceUser(user *models.UserSummary) bool {
	if user == nil {
		return false
	}

	m.pubMu.Lock()
	defer m.pubMu.Unlock()
	m.mu.Lock()
	if m.state.Status != StatusAuthenticated || m.state.User == nil || m.state.User.ID != user.ID {
		m.mu.Unlock()
		return false
	}
	u := *user
	m.state.User = &u
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.publish(snap)
	return true
}

// CredentialExpiry reads the exp claim of a JWT credential without verifying
// its signature. It is for display only; ok is false for opaque tokens.
func (m *Manager) CredentialExpiry(ctx context.Context) (exp time.Time, ok bool) {
	token, err := m.tokens.Token(ctx)
	if err != nil || token == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	at, err := claims.GetExpirationTime()
	if err != nil || at == nil {
		return time.Time{}, false
	}
	return at.Time, true
}
