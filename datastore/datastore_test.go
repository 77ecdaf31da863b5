package datastore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.json")
	s, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestSetGetDelete(t *testing.T) {
	s, _ := newTestStore(t)

	type profile struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}

	require.NoError(t, s.Set("profile", profile{Name: "alice", Age: 30}))

	var got profile
	found, err := s.Get("profile", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, profile{Name: "alice", Age: 30}, got)

	found, err = s.Get("missing", &got)
	require.NoError(t, err)
	assert.False(t, found)

	s.Delete("profile")
	found, err = s.Get("profile", &got)
	require.NoError(t, err)
	assert.False(t, found)

	// Deleting again is a no-op.
	s.Delete("profile")
}

func TestGetTypeMismatch(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.Set("key", "a string"))

	var out int
	found, err := s.Get("key", &out)
	assert.True(t, found)
	assert.Error(t, err)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("answer", 42))
	require.NoError(t, s.Close())

	s2, err := New(path)
	require.NoError(t, err)
	defer s2.Close()

	var got int
	found, err := s2.Get("answer", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 42, got)
}

func TestSetAfterClose(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Close())

	assert.Error(t, s.Set("key", 1))
	assert.Error(t, s.SaveNow())
	assert.NoError(t, s.Close(), "double close is fine")
}

func TestSaveNowSkipsUnchangedContent(t *testing.T) {
	s, path := newTestStore(t)

	require.NoError(t, s.Set("key", "value"))
	require.NoError(t, s.SaveNow())

	before, err := os.Stat(path)
	require.NoError(t, err)

	// Same content: the checksum short-circuit must leave the file alone.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.SaveNow())
	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestBackupscreatedAndPruned(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	cfg := DefaultConfig(path)
	cfg.BackupCount = 2

	s, err := NewWithConfig(cfg)
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Set("counter", i))
		require.NoError(t, s.SaveNow())
	}

	matches, err := filepath.Glob(path + ".backup.*")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(matches), cfg.BackupCount)
	assert.NotEmpty(t, matches)
}

func TestInvalidConfig(t *testing.T) {
	_, err := NewWithConfig(nil)
	assert.Error(t, err)

	_, err = NewWithConfig(&Config{})
	assert.Error(t, err)
}

func TestCorruptFileRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))

	_, err := New(path)
	assert.Error(t, err)
}
