package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "deptshare:tree:public", Key("tree", "public"))
	assert.Equal(t, "deptshare:", Key())
}
