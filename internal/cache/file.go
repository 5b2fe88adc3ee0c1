package cache

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

// FileStore keeps one file per payload under Dir. File names are the
// xxhash of the key.
type FileStore struct {
	Dir string

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewFileStore returns a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file cache: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "mkdir %s", dir)
	}
	return &FileStore{Dir: dir, Now: time.Now}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.Dir, strconv.FormatUint(xxhash.Sum64String(key), 16)+".cache")
}

// Get implements Store.
func (s *FileStore) Get(key string) ([]byte, bool, error) {
	name := s.path(key)
	buf, err := os.ReadFile(name)
	if os.IsNotExist(err) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, errors.Wrapf(err, "reading %s", name)
	}

	stored, data, expires, err := openEnvelope(buf)
	if err != nil {
		return nil, false, errors.Wrapf(err, "decoding %s", name)
	}
	if stored != key {
		return nil, false, nil
	}
	if !s.Now().Before(expires) {
		_ = os.Remove(name)
		return nil, false, nil
	}
	return data, true, nil
}

// Set implements Store. The file is written to a temporary name and renamed
// into place.
func (s *FileStore) Set(key string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	name := s.path(key)
	tmp, err := os.CreateTemp(s.Dir, ".tmp-*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	if _, err := tmp.Write(sealEnvelope(key, data, s.Now().Add(ttl))); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "writing %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "closing %s", tmp.Name())
	}
	return errors.Wrapf(os.Rename(tmp.Name(), name), "renaming to %s", name)
}

// Close implements Store. Files are left on disk.
func (s *FileStore) Close() error { return nil }
