package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutPaths(t *testing.T) {
	l := NewLayout("out")

	assert.Equal(t, filepath.Join("out", "alice"), l.AccountDir("alice"))
	assert.Equal(t, filepath.Join("out", "alice", ".downloaded.json"), l.CachePath("alice"))
	assert.Equal(t, filepath.Join("out", "alice", "manifest.jsonl"), l.ManifestPath("alice"))

	img, html := l.DebugPaths("alice")
	assert.Equal(t, filepath.Join("out", "alice", "debug_alice.png"), img)
	assert.Equal(t, filepath.Join("out", "alice", "debug_alice.html"), html)
}

func TestImageFilename(t *testing.T) {
	tests := []struct {
		name string
		url  string
		idx  int
		want string
	}{
		{"jpeg with query", "https://cdn.example/v/abc.jpg?stp=dst&_nc=1", 0, "1700000000000_AAA_00.jpg"},
		{"webp", "https://cdn.example/v/abc.webp", 3, "1700000000000_AAA_03.webp"},
		{"no extension", "https://cdn.example/v/abc", 12, "1700000000000_AAA_12.jpg"},
		{"dot in directory only", "https://cdn.example/v1.2/abc", 1, "1700000000000_AAA_01.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ImageFilename(1700000000000, "AAA", tt.idx, tt.url))
		})
	}
}

func TestFileIn(t *testing.T) {
	dir := filepath.Join("out", "alice")

	got, err := FileIn(dir, "1_ABC_00.jpg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "1_ABC_00.jpg"), got)

	for _, name := range []string{
		"1_x/../../../escaped_00.jpg",
		"../bob/1_A_00.jpg",
		"..",
		"",
		"1_a/b_00.jpg",
		`1_a\b_00.jpg`,
	} {
		_, err := FileIn(dir, name)
		assert.Error(t, err, name)
	}
}

func TestPrepare(t *testing.T) {
	root := filepath.Join(t.TempDir(), "downloads")
	l := NewLayout(root)

	require.NoError(t, os.MkdirAll(l.AccountDir("bob"), 0755))
	require.NoError(t, os.WriteFile(l.CachePath("bob"), []byte(`{"x|y":true}`), 0644))

	res, err := l.Prepare([]string{"alice", "bob"})
	require.NoError(t, err)
	assert.Equal(t, PrepareResult{Created: 1, Total: 2}, res)

	cache, err := os.ReadFile(l.CachePath("alice"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(cache))

	manifest, err := os.ReadFile(l.ManifestPath("alice"))
	require.NoError(t, err)
	assert.Empty(t, manifest)

	kept, err := os.ReadFile(l.CachePath("bob"))
	require.NoError(t, err)
	assert.Equal(t, `{"x|y":true}`, string(kept))
	assert.FileExists(t, l.ManifestPath("bob"))

	res, err = l.Prepare([]string{"alice", "bob"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
}
