package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskCache_AbsentByDefault(t *testing.T) {
	c, err := NewDiskCache(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, Absent, c.State("dns.json"))

	data, err := c.Load("dns.json")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestDiskCache_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	c, err := NewDiskCache(dir)
	require.NoError(t, err)

	require.NoError(t, c.Save("dns.json", []byte(`{"version":"1.0"}`)))
	assert.Equal(t, Good, c.State("dns.json"))

	data, err := c.Load("dns.json")
	require.NoError(t, err)
	assert.Equal(t, `{"version":"1.0"}`, string(data))

	assert.FileExists(t, filepath.Join(dir, "dns.json"))
}

func TestDiskCache_Expires(t *testing.T) {
	c, err := NewDiskCache(t.TempDir())
	require.NoError(t, err)
	c.SetTimeout(10 * time.Millisecond)

	require.NoError(t, c.Save("asn.json", []byte(`{}`)))
	assert.Equal(t, Good, c.State("asn.json"))

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, Expired, c.State("asn.json"))
}

func TestDiskCache_DefaultDirUsesHome(t *testing.T) {
	c, err := NewDiskCache("")
	require.NoError(t, err)
	assert.Contains(t, c.Dir, DefaultCacheDirName)
}
