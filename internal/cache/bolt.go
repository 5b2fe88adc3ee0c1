package cache

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var bucketResults = []byte("results")

// BoltStore keeps payloads in a single bbolt file.
type BoltStore struct {
	db *bolt.DB

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// OpenBoltStore opens or creates the bolt file at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o777); err != nil {
		return nil, errors.Wrapf(err, "mkdir %s", filepath.Dir(path))
	}
	db, err := bolt.Open(path, 0o666, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open file: %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketResults)
		return errors.Wrapf(err, "creating bucket: %s", bucketResults)
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db, Now: time.Now}, nil
}

// Get implements Store. Expired entries are deleted on read.
func (s *BoltStore) Get(key string) ([]byte, bool, error) {
	var (
		data    []byte
		found   bool
		expired bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketResults).Get([]byte(key))
		if v == nil {
			return nil
		}
		_, payload, expires, err := openEnvelope(v)
		if err != nil {
			return err
		}
		if !s.Now().Before(expires) {
			expired = true
			return nil
		}
		// Values are only valid for the life of the transaction.
		data = append([]byte(nil), payload...)
		found = true
		return nil
	})
	if err != nil {
		return nil, false, errors.Wrapf(err, "reading key %q", key)
	}
	if expired {
		_ = s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketResults).Delete([]byte(key))
		})
	}
	return data, found, nil
}

// Set implements Store.
func (s *BoltStore) Set(key string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketResults).Put([]byte(key), sealEnvelope(key, data, s.Now().Add(ttl)))
	})
	return errors.Wrapf(err, "putting key %q", key)
}

// Close closes the bolt file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
