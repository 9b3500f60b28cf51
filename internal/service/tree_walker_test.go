package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type childMap map[string][]string

func (c childMap) ChildIDs(ctx context.Context, parentID string) ([]string, error) {
	return c[parentID], nil
}

func TestWalkFoldersDepthFirstVisitsOnce(t *testing.T) {
	tree := childMap{"root": {"a", "b"}, "a": {"a1"}, "b": {"a"}}
	var seen []string
	order, err := walkFolders(context.Background(), tree, "root", func(id string) error {
		seen = append(seen, id)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"root", "a", "a1", "b"}, seen)
	assert.Equal(t, seen, order)
}

func TestWalkFoldersSurvivesCycles(t *testing.T) {
	tree := childMap{"root": {"a"}, "a": {"root", "a"}}
	order, err := walkFolders(context.Background(), tree, "root", func(string) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, []string{"root", "a"}, order)
}

func TestWalkFoldersStopsAtFirstError(t *testing.T) {
	tree := childMap{"root": {"a", "b"}}
	boom := errors.New("boom")
	order, err := walkFolders(context.Background(), tree, "root", func(id string) error {
		if id == "a" {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"root"}, order)
}

func TestWalkFoldersHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := walkFolders(ctx, childMap{}, "root", func(string) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
