package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "ABC123|https://cdn.example/a.jpg", Key("ABC123", "https://cdn.example/a.jpg"))
}

func TestMissingFileIsEmpty(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "alice", ".downloaded.json"))
	assert.False(t, c.Has("anything"))
	assert.Equal(t, 0, c.Len())
}

func TestCorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".downloaded.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	c := New(path)
	assert.False(t, c.Has("k"))
	c.Add("k")
	require.NoError(t, c.Save())

	reloaded := New(path)
	assert.True(t, reloaded.Has("k"))
}

func TestAddIsIdempotent(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), ".downloaded.json"))
	c.Add("a")
	c.Add("a")
	c.Add("b")
	assert.Equal(t, 2, c.Len())
}

func TestSaveWritesKeyToTrueMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".downloaded.json")
	c := New(path)
	c.Add(Key("P1", "https://cdn.example/1.jpg"))
	require.NoError(t, c.Save())
	require.NoError(t, c.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var stored map[string]bool
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, map[string]bool{"P1|https://cdn.example/1.jpg": true}, stored)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestLoadHappensOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".downloaded.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"old": true}`), 0644))

	c := New(path)
	assert.True(t, c.Has("old"))

	// Changes on disk after the first access are not picked up.
	require.NoError(t, os.WriteFile(path, []byte(`{"new": true}`), 0644))
	assert.False(t, c.Has("new"))

	c.Add("added")
	require.NoError(t, c.Save())

	reloaded := New(path)
	assert.True(t, reloaded.Has("old"))
	assert.True(t, reloaded.Has("added"))
	assert.False(t, reloaded.Has("new"))
}
