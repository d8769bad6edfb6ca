package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/siance/internal/model"
)

func TestKey(t *testing.T) {
	k1 := EmbeddingKey("text-embedding-3-small", "Je vous demande")
	k2 := EmbeddingKey("text-embedding-3-small", "Je vous demande")
	k3 := EmbeddingKey("nomic-embed-text", "Je vous demande")

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Contains(t, k1, "siance:v1:embedding:")
	assert.NotEqual(t, Key("x", "ab", "c"), Key("x", "a", "bc"))
}

func TestMemoryCache_TTL(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Minute, 0)

	require.NoError(t, c.Set("short", []byte("v"), 10*time.Millisecond))
	require.NoError(t, c.Set("long", []byte("w"), 0))

	time.Sleep(30 * time.Millisecond)

	_, found := c.Get("short")
	assert.False(t, found)
	val, found := c.Get("long")
	assert.True(t, found)
	assert.Equal(t, []byte("w"), val)
}

func TestMemoryCache_BoundedPurgesExpiredFirst(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Hour, 3)

	require.NoError(t, c.Set("a", []byte("1"), 5*time.Millisecond))
	require.NoError(t, c.Set("b", []byte("2"), 0))
	require.NoError(t, c.Set("c", []byte("3"), 0))
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, c.Set("d", []byte("4"), 0))
	assert.Equal(t, 3, c.Len())
	assert.Zero(t, c.Flushes())
	_, found := c.Get("b")
	assert.True(t, found)
}

func TestMemoryCache_BoundedFlushesWhenFull(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Hour, 3)
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Set(fmt.Sprintf("k%d", i), []byte("v"), 0))
	}

	require.NoError(t, c.Set("k0", []byte("updated"), 0))
	assert.Equal(t, 3, c.Len(), "overwriting an existing key needs no room")

	require.NoError(t, c.Set("k3", []byte("v"), 0))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int64(1), c.Flushes())
}

func TestMemoryCache_DeleteAndClear(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Hour, 0)
	require.NoError(t, c.Set("a", []byte("1"), 0))
	require.NoError(t, c.Set("b", []byte("2"), 0))

	require.NoError(t, c.Delete("a"))
	_, found := c.Get("a")
	assert.False(t, found)

	require.NoError(t, c.Clear())
	assert.Zero(t, c.Len())
}

func TestDiskCache(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := EmbeddingKey("m", "phrase")

	require.NoError(t, c.Set(key, []byte(`[0.1,0.2]`), 0))
	val, found := c.Get(key)
	require.True(t, found)
	assert.Equal(t, []byte(`[0.1,0.2]`), val)

	require.NoError(t, c.Set("expiring", []byte("x"), time.Millisecond))
	time.Sleep(10 * time.Millisecond)
	_, found = c.Get("expiring")
	assert.False(t, found)

	require.NoError(t, c.Delete(key))
	require.NoError(t, c.Delete(key), "deleting twice is fine")
	_, found = c.Get(key)
	assert.False(t, found)
}

func TestDiskCache_CorruptEntryIsDropped(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	path := c.path("broken")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, found := c.Get("broken")
	assert.False(t, found)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	memory := NewMemoryCache(time.Hour, time.Hour, 10)
	disk := NewDiskCache(dir, time.Hour)
	c := NewLayeredCache(memory, disk)

	require.NoError(t, disk.Set("k", []byte("from disk"), 0))
	_, found := memory.Get("k")
	require.False(t, found)

	val, found := c.Get("k")
	require.True(t, found)
	assert.Equal(t, []byte("from disk"), val)

	_, found = memory.Get("k")
	assert.True(t, found)

	require.NoError(t, c.Clear())
	_, found = c.Get("k")
	assert.False(t, found)
}

func TestNew(t *testing.T) {
	cfg := model.DefaultConfig().Cache

	cfg.Enabled = false
	assert.Nil(t, New(cfg))

	cfg.Enabled = true
	cfg.Dir = ""
	assert.IsType(t, &MemoryCache{}, New(cfg))

	cfg.Dir = t.TempDir()
	assert.IsType(t, &LayeredCache{}, New(cfg))
}
