package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
)

func TestNamespaced(t *testing.T) {
	assert.Equal(t, "deptshare:public-tree", namespaced("public-tree"))
	assert.Equal(t, "deptshare:dashboard:stats", namespaced("deptshare:dashboard:stats"))
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]int
	err := repo.Get(ctx, "public-tree", &dest)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.NoError(t, repo.Set(ctx, "public-tree", map[string]int{"a": 1}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "public-tree*"))
}
