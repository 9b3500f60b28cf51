package storage

import (
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	n, err := store.SaveStream("2025_Spring/CSE/NOTES/syllabus.pdf", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	ok, err := store.Exists("2025_Spring/CSE/NOTES/syllabus.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	f, err := store.Open("2025_Spring/CSE/NOTES/syllabus.pdf")
	require.NoError(t, err)
	body, err := io.ReadAll(f)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))

	require.NoError(t, store.Delete("2025_Spring/CSE/NOTES/syllabus.pdf"))
	require.NoError(t, store.Delete("2025_Spring/CSE/NOTES/syllabus.pdf"))

	_, err = store.Open("2025_Spring/CSE/NOTES/syllabus.pdf")
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

func TestLocalStorageRejectsEscapingPaths(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, p := range []string{"", "../secret", "a/../../b", "/etc/passwd"} {
		_, err := store.SaveStream(p, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidPath, p)
	}
	assert.Equal(t, "", store.Path("../x"))
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("exports/old.csv", []byte("a"))
	require.NoError(t, err)
	_, err = store.Save("exports/new.csv", []byte("b"))
	require.NoError(t, err)
	_, err = store.Save("uploads/keep.pdf", []byte("c"))
	require.NoError(t, err)

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path("exports/old.csv"), past, past))
	require.NoError(t, os.Chtimes(store.Path("uploads/keep.pdf"), past, past))

	deleted, err := store.CleanupOlderThan("exports", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"exports/old.csv"}, deleted)

	ok, err := store.Exists("uploads/keep.pdf")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalStorageWalk(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	_, err = store.Save("2025_Spring/CSE/a.pdf", []byte("abc"))
	require.NoError(t, err)
	_, err = store.Save("2025_Spring/CSE/NOTES/b.txt", []byte("hello"))
	require.NoError(t, err)
	_, err = store.Save("exports/log.csv", []byte("x"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.Path("2025_Spring/CSE/.upload-123"), []byte("partial"), 0o644))

	seen := map[string]int64{}
	require.NoError(t, store.Walk("2025_Spring", func(rel string, size int64) error {
		seen[rel] = size
		return nil
	}))
	assert.Equal(t, map[string]int64{"2025_Spring/CSE/a.pdf": 3, "2025_Spring/CSE/NOTES/b.txt": 5}, seen)

	count := 0
	require.NoError(t, store.Walk("", func(string, int64) error { count++; return nil }))
	assert.Equal(t, 3, count)

	require.NoError(t, store.Walk("missing", func(string, int64) error {
		t.Fatal("nothing should be visited")
		return nil
	}))
}
