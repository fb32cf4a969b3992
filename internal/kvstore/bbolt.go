// Package kvstore keeps per-file indexing state in a bbolt database,
// one bucket per index.
package kvstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Filename is the default database filename inside the state directory.
const Filename = "files.db"

type Store struct {
	db *bolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open state database %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

func validateKey(bucket, key string) error {
	if bucket == "" {
		return &InvalidKeyError{Key: bucket, Reason: "bucket cannot be empty"}
	}
	if key == "" {
		return &InvalidKeyError{Key: key, Reason: "key cannot be empty"}
	}
	return nil
}

// Set records the state of a file.
func (s *Store) Set(bucket, key string, state FileState) error {
	if err := validateKey(bucket, key); err != nil {
		return err
	}

	value, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state for %s: %w", key, err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
		if err := b.Put([]byte(key), value); err != nil {
			return fmt.Errorf("failed to set key %s: %w", key, err)
		}
		return nil
	})
}

// Get returns the recorded state of a file, or a NotFoundError.
func (s *Store) Get(bucket, key string) (FileState, error) {
	if err := validateKey(bucket, key); err != nil {
		return FileState{}, err
	}

	var state FileState
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return &NotFoundError{Bucket: bucket, Key: key}
		}

		v := b.Get([]byte(key))
		if v == nil {
			return &NotFoundError{Bucket: bucket, Key: key}
		}

		// v is only valid inside the transaction
		if err := json.Unmarshal(v, &state); err != nil {
			return fmt.Errorf("failed to decode state for %s: %w", key, err)
		}
		return nil
	})

	return state, err
}

// Delete removes the state of a file. Missing keys are not an error.
func (s *Store) Delete(bucket, key string) error {
	if err := validateKey(bucket, key); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		if err := b.Delete([]byte(key)); err != nil {
			return fmt.Errorf("failed to delete key %s: %w", key, err)
		}
		return nil
	})
}

// Keys returns every recorded file of a bucket in key order.
func (s *Store) Keys(bucket string) ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// Reset drops every recorded file of a bucket.
func (s *Store) Reset(bucket string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		err := tx.DeleteBucket([]byte(bucket))
		if err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return fmt.Errorf("failed to reset bucket %s: %w", bucket, err)
		}
		return nil
	})
}

// Count returns the number of files recorded in a bucket.
func (s *Store) Count(bucket string) (int, error) {
	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		count = b.Stats().KeyN
		return nil
	})
	return count, err
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		slog.Error("Failed to close state database", "error", err)
		return err
	}
	return nil
}
