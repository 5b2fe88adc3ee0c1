package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

// storeFactories builds each Store implementation against the same clock.
func storeFactories(t *testing.T, clock *fakeClock) map[string]Store {
	t.Helper()

	files, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	files.Now = clock.now

	bolts, err := OpenBoltStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	bolts.Now = clock.now
	t.Cleanup(func() { _ = bolts.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(16).WithClock(clock.now),
		"file":   files,
		"bolt":   bolts,
	}
}

func TestStore_RoundTrip(t *testing.T) {
	clock := newClock()
	for name, store := range storeFactories(t, clock) {
		t.Run(name, func(t *testing.T) {
			_, found, err := store.Get("SELECT * FROM users")
			require.NoError(t, err)
			assert.False(t, found)

			require.NoError(t, store.Set("SELECT * FROM users", []byte(`{"rows":[]}`), time.Minute))

			data, found, err := store.Get("SELECT * FROM users")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, `{"rows":[]}`, string(data))
		})
	}
}

func TestStore_Expiry(t *testing.T) {
	clock := newClock()
	stores := storeFactories(t, clock)
	for _, store := range stores {
		require.NoError(t, store.Set("k", []byte("v"), 10*time.Second))
	}

	clock.advance(9 * time.Second)
	for name, store := range stores {
		_, found, err := store.Get("k")
		require.NoError(t, err, name)
		assert.True(t, found, name)
	}

	clock.advance(time.Second)
	for name, store := range stores {
		_, found, err := store.Get("k")
		require.NoError(t, err, name)
		assert.False(t, found, name)
	}
}

func TestStore_ZeroTTLStoresNothing(t *testing.T) {
	clock := newClock()
	for name, store := range storeFactories(t, clock) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Set("k", []byte("v"), 0))
			_, found, err := store.Get("k")
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestStore_Overwrite(t *testing.T) {
	clock := newClock()
	for name, store := range storeFactories(t, clock) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Set("k", []byte("old"), time.Minute))
			require.NoError(t, store.Set("k", []byte("new"), time.Minute))
			data, found, err := store.Get("k")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, "new", string(data))
		})
	}
}

func TestMemoryStore_Eviction(t *testing.T) {
	store := NewMemoryStore(2)
	require.NoError(t, store.Set("a", []byte("1"), time.Minute))
	require.NoError(t, store.Set("b", []byte("2"), time.Minute))
	require.NoError(t, store.Set("c", []byte("3"), time.Minute))

	_, found, _ := store.Get("a")
	assert.False(t, found)
	assert.Equal(t, uint64(1), store.Stats().Evictions)
}

func TestMemoryStore_CopiesInput(t *testing.T) {
	store := NewMemoryStore(0)
	buf := []byte("abc")
	require.NoError(t, store.Set("k", buf, time.Minute))
	buf[0] = 'x'

	data, _, _ := store.Get("k")
	assert.Equal(t, "abc", string(data))
}

func TestFileStore_CorruptFile(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, writeFile(store.path("k"), []byte("xx")))

	_, found, err := store.Get("k")
	assert.Error(t, err)
	assert.False(t, found)
}

func TestNewFileStore_EmptyDir(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)
}

func TestEnvelope(t *testing.T) {
	expires := time.Unix(1700000000, 42)
	key, data, got, err := openEnvelope(sealEnvelope("key", []byte("payload"), expires))
	require.NoError(t, err)
	assert.Equal(t, "key", key)
	assert.Equal(t, "payload", string(data))
	assert.True(t, expires.Equal(got))

	_, _, _, err = openEnvelope(sealEnvelope("key", nil, expires)[:13])
	assert.Error(t, err)
}

func writeFile(name string, data []byte) error {
	return os.WriteFile(name, data, 0o644)
}
