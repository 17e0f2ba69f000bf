package hostkey

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetOrMakeGeneratesOnFirstCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host_key")

	key, made, err := GetOrMake(path, 2048)
	require.NoError(t, err)
	require.True(t, made)
	require.NotNil(t, key)
	require.FileExists(t, path)
	require.FileExists(t, path+".pub")
}

func TestGetOrMakeIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host_key")

	first, made, err := GetOrMake(path, 2048)
	require.NoError(t, err)
	require.True(t, made)

	second, made, err := GetOrMake(path, 2048)
	require.NoError(t, err)
	require.False(t, made)
	require.Equal(t, Fingerprint(first), Fingerprint(second))
}

func TestGetOrMakeDefaultsBits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host_key")
	_, made, err := GetOrMake(path, 0)
	require.NoError(t, err)
	require.True(t, made)
}
