package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byteSize(_ string, v []byte) int64 {
	return int64(len(v))
}

func TestLRU_EntryLimit(t *testing.T) {
	t.Parallel()

	c, err := NewLRU[string, int](2)
	require.NoError(t, err)

	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3)

	_, ok := c.Get("a")
	assert.False(t, ok)
	v, ok := c.Get("c")
	require.True(t, ok)
	assert.Equal(t, 3, v)

	assert.Equal(t, int64(2), c.KeyCount())
	assert.Equal(t, int64(2), c.SizeBytes())
	assert.Equal(t, int64(1), c.Evictions())
	assert.Equal(t, int64(0), c.SizeLimitBytes())
}

func TestLRU_SizeLimit(t *testing.T) {
	t.Parallel()

	c, err := NewLRU[string, []byte](
		100,
		WithSizeFunc[string, []byte](byteSize),
		WithSizeLimit[string, []byte](10),
	)
	require.NoError(t, err)

	c.Add("a", make([]byte, 6))
	c.Add("b", make([]byte, 6))

	assert.Equal(t, int64(1), c.KeyCount())
	assert.Equal(t, int64(6), c.SizeBytes())
	assert.Equal(t, int64(10), c.SizeLimitBytes())
	_, ok := c.Get("b")
	assert.True(t, ok)
}

func TestLRU_ReplaceAdjustsSize(t *testing.T) {
	t.Parallel()

	c, err := NewLRU[string, []byte](10, WithSizeFunc[string, []byte](byteSize))
	require.NoError(t, err)

	c.Add("a", make([]byte, 8))
	c.Add("a", make([]byte, 3))
	assert.Equal(t, int64(3), c.SizeBytes())
	assert.Equal(t, int64(1), c.KeyCount())

	assert.True(t, c.Remove("a"))
	assert.Equal(t, int64(0), c.SizeBytes())

	c.Add("b", make([]byte, 2))
	c.Add("c", make([]byte, 2))
	c.Purge()
	assert.Equal(t, int64(0), c.SizeBytes())
	assert.Equal(t, int64(0), c.KeyCount())
}

func TestNewLRU_InvalidSize(t *testing.T) {
	t.Parallel()

	_, err := NewLRU[string, int](0)
	assert.Error(t, err)
}
