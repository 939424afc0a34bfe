// Package tokenstore owns the bearer credential. It is the only place the
// token is kept; the HTTP client reads it per request through Token and the
// session manager writes it on login and clears it on logout or invalidation.
package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/siteofsites/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/siteofsites/internal/common"
)

// Driver selects the durable backend.
type Driver string

const (
	DriverSQLite Driver = "sqlite"
	DriverBolt   Driver = "bolt"
	DriverMemory Driver = "memory"
)

var ErrUnknownDriver = errors.New("unknown token store driver")

// Store is a durable holder of a single credential.
type Store struct {
	repo   metadata.Repository
	closer io.Closer
	now    func() time.Time

	// mu serialises writers so a Save never interleaves with a Clear.
	mu sync.Mutex
}

// New wraps an already opened repository. closer may be nil.
func New(repo metadata.Repository, closer io.Closer) *Store {
	return &Store{repo: repo, closer: closer, now: time.Now}
}

// Open opens the backend selected by driver at path.
func Open(ctx context.Context, driver Driver, path string) (*Store, error) {
	switch driver {
	case DriverSQLite, "":
		db, err := metadata.OpenSQLite(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite token store: %w", err)
		}
		return New(metadata.NewSQLiteRepository(db), db), nil
	case DriverBolt:
		r, err := metadata.OpenBolt(path)
		if err != nil {
			return nil, fmt.Errorf("open bolt token store: %w", err)
		}
		return New(r, r), nil
	case DriverMemory:
		return New(metadata.NewMemoryRepository(), nil), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// Token returns the stored credential, or "" when there is none.
func (s *Store) Token(ctx context.Context) (string, error) {
	v, err := s.repo.Get(ctx, common.AccessTokenKey)
	if err != nil {
		return "", fmt.Errorf("load credential: %w", err)
	}
	return string(v), nil
}

// Save replaces the credential. The token and its timestamp are written in
// one transaction.
func (s *Store) Save(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("refusing to store an empty credential")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	savedAt := s.now().UTC().Format(time.RFC3339)
	err := s.repo.Update(ctx, func(ctx context.Context, r metadata.Repository) error {
		if err := r.Set(ctx, common.AccessTokenKey, []byte(token)); err != nil {
			return err
		}
		return r.Set(ctx, common.SavedAtKey, []byte(savedAt))
	})
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// Clear removes the credential. Clearing an empty store is not an error.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.repo.Update(ctx, func(ctx context.Context, r metadata.Repository) error {
		if err := r.Delete(ctx, common.AccessTokenKey); err != nil {
			return err
		}
		return r.Delete(ctx, common.SavedAtKey)
	})
	if err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

// SavedAt reports when the credential was stored. ok is false when there is
// no credential or the timestamp is unreadable.
func (s *Store) SavedAt(ctx context.Context) (t time.Time, ok bool) {
	v, err := s.repo.Get(ctx, common.SavedAtKey)
	if err != nil || v == nil {
		return time.Time{}, false
	}
	t, err = time.Parse(time.RFC3339, string(v))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
