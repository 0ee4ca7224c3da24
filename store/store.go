package store

import (
	"errors"
	"fmt"

	"go.etcd.io/bbolt"
)

var (
	// ErrClosed is returned when the index is used after Close.
	ErrClosed = errors.New("index closed")
)

var dedupBucket = []byte("dedup")

// Index is the persistent mapping from content fingerprint to destination
// key. A fingerprint present in the index means the content already exists
// at the recorded key.
type Index interface {
	// Lookup returns the destination key recorded for the fingerprint.
	Lookup(fingerprint string) (key string, ok bool, err error)

	// Record inserts the fingerprint if absent. The first writer wins: the
	// returned key is always the winning key, and inserted reports whether
	// this call was the winner.
	Record(fingerprint, key string) (winner string, inserted bool, err error)

	// Delete removes a fingerprint, releasing a reservation whose upload
	// never happened.
	Delete(fingerprint string) error

	Close() error
}

// BoltIndex is an Index implementation backed by bbolt. bbolt serializes
// writers, which gives Record its check-and-insert atomicity.
type BoltIndex struct {
	db *bbolt.DB
}

// NewBoltIndex opens (or creates) a dedup index at the given path.
func NewBoltIndex(path string) (*BoltIndex, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(dedupBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create dedup bucket: %w", err)
	}

	return &BoltIndex{db: db}, nil
}

// Lookup returns the destination key recorded for the fingerprint.
func (s *BoltIndex) Lookup(fingerprint string) (string, bool, error) {
	var key string
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(dedupBucket).Get([]byte(fingerprint))
		if data != nil {
			key = string(data)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to look up fingerprint: %w", err)
	}
	return key, found, nil
}

// Record inserts the fingerprint if absent, first writer wins.
func (s *BoltIndex) Record(fingerprint, key string) (string, bool, error) {
	winner := key
	inserted := false
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(dedupBucket)
		if existing := b.Get([]byte(fingerprint)); existing != nil {
			winner = string(existing)
			return nil
		}
		inserted = true
		return b.Put([]byte(fingerprint), []byte(key))
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to record fingerprint: %w", err)
	}
	return winner, inserted, nil
}

// Delete removes a fingerprint from the index.
func (s *BoltIndex) Delete(fingerprint string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(dedupBucket).Delete([]byte(fingerprint))
	})
	if err != nil {
		return fmt.Errorf("failed to delete fingerprint: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *BoltIndex) Close() error {
	return s.db.Close()
}
