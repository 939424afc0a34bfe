package metadata

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/siteofsites/internal/filex"
	bolt "go.etcd.io/bbolt"
)

var metadataBucket = []byte("metadata")

// BoltRepository keeps metadata in a single bbolt bucket.
type BoltRepository struct {
	db *bolt.DB
}

// OpenBolt opens the bbolt file at path. bbolt takes an exclusive file lock,
// so a second client process on the same file waits up to a second and fails.
func OpenBolt(path string) (*BoltRepository, error) {
	if err := filex.EnsureParentDir(path); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(metadataBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &BoltRepository{db: db}, nil
}

func (r *BoltRepository) Close() error {
	return r.db.Close()
}

func (r *BoltRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.View(func(tx *bolt.Tx) error {
		v, err := (&boltTxRepository{b: tx.Bucket(metadataBucket)}).Get(ctx, key)
		value = v
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func (r *BoltRepository) Set(ctx context.Context, key string, value []byte) error {
	return r.Update(ctx, func(ctx context.Context, tx Repository) error {
		return tx.Set(ctx, key, value)
	})
}

func (r *BoltRepository) Delete(ctx context.Context, key string) error {
	return r.Update(ctx, func(ctx context.Context, tx Repository) error {
		return tx.Delete(ctx, key)
	})
}

func (r *BoltRepository) Clear(ctx context.Context) error {
	return r.Update(ctx, func(ctx context.Context, tx Repository) error {
		return tx.Clear(ctx)
	})
}

func (r *BoltRepository) List(ctx context.Context) (map[string][]byte, error) {
	var out map[string][]byte
	err := r.db.View(func(tx *bolt.Tx) error {
		m, err := (&boltTxRepository{b: tx.Bucket(metadataBucket)}).List(ctx)
		out = m
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BoltRepository) Update(ctx context.Context, fn func(ctx context.Context, r Repository) error) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return fn(ctx, &boltTxRepository{b: tx.Bucket(metadataBucket)})
	})
}

// boltTxRepository is the Repository view handed out inside a bbolt
// transaction. Values read from it are copied because bbolt memory is only
// valid for the life of the transaction.
type boltTxRepository struct {
	b *bolt.Bucket
}

func (r *boltTxRepository) Get(_ context.Context, key string) ([]byte, error) {
	v := r.b.Get([]byte(key))
	if v == nil {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (r *boltTxRepository) Set(_ context.Context, key string, value []byte) error {
	if err := r.b.Put([]byte(key), value); err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

func (r *boltTxRepository) Delete(_ context.Context, key string) error {
	if err := r.b.Delete([]byte(key)); err != nil {
		return fmt.Errorf("failed to delete metadata[%s]: %w", key, err)
	}
	return nil
}

func (r *boltTxRepository) Clear(_ context.Context) error {
	var keys [][]byte
	if err := r.b.ForEach(func(k, _ []byte) error {
		keys = append(keys, append([]byte(nil), k...))
		return nil
	}); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}
	for _, k := range keys {
		if err := r.b.Delete(k); err != nil {
			return fmt.Errorf("failed to clear metadata: %w", err)
		}
	}
	return nil
}

func (r *boltTxRepository) List(_ context.Context) (map[string][]byte, error) {
	out := make(map[string][]byte)
	err := r.b.ForEach(func(k, v []byte) error {
		out[string(k)] = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}
	return out, nil
}

func (r *boltTxRepository) Update(ctx context.Context, fn func(ctx context.Context, r Repository) error) error {
	return fn(ctx, r)
}
