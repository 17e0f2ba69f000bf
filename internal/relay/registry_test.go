package relay

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionIDTruncatesFingerprint(t *testing.T) {
	id := sessionID("203.0.113.1", "SHA256:abcdefghijklmnopqrstuvwxyz")
	require.Equal(t, "203.0.113.1:SHA256:abcdefgh", id)
}

func TestSessionIDHandlesShortFingerprint(t *testing.T) {
	id := sessionID("203.0.113.1", "short")
	require.Equal(t, "203.0.113.1:short", id)
}

func TestRegistryPutGetDelete(t *testing.T) {
	reg := NewRegistry()
	s := &Session{SourceIP: "203.0.113.2", Fingerprint: "SHA256:zzzzzzzzzzzzzzzz"}

	id := reg.Put(s)
	require.Equal(t, 1, reg.Len())
	require.Equal(t, id, s.ID)

	got, ok := reg.Get(id)
	require.True(t, ok)
	require.Same(t, s, got)

	reg.Delete(id)
	require.Equal(t, 0, reg.Len())

	_, ok = reg.Get(id)
	require.False(t, ok)
}

func TestRegistryGetUnknown(t *testing.T) {
	reg := NewRegistry()
	_, ok := reg.Get("nope")
	require.False(t, ok)
}

func TestRegistryTeardownAllClearsSessions(t *testing.T) {
	reg := NewRegistry()
	reg.Put(&Session{SourceIP: "203.0.113.3", Fingerprint: "SHA256:aaaa"})
	reg.Put(&Session{SourceIP: "203.0.113.4", Fingerprint: "SHA256:bbbb"})
	require.Equal(t, 2, reg.Len())

	reg.TeardownAll()
	require.Equal(t, 0, reg.Len())
}
