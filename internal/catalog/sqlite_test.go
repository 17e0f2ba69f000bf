package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	store, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestInsertAndFindRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	b := KeyBinding{
		Fingerprint: "SHA256:AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		Username:    "alice",
		TargetHost:  "10.0.0.5",
		TargetPort:  22,
		TargetUser:  "ubuntu",
		Enabled:     true,
	}
	require.NoError(t, store.Insert(ctx, b))

	got, err := store.Find(ctx, b.Fingerprint)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, b.Fingerprint, got.Fingerprint)
	require.Equal(t, b.Username, got.Username)
	require.Equal(t, b.TargetHost, got.TargetHost)
	require.Equal(t, b.TargetPort, got.TargetPort)
	require.Equal(t, b.TargetUser, got.TargetUser)
	require.Equal(t, b.Enabled, got.Enabled)
	require.NotZero(t, got.ID)
}

func TestInsertConflict(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	b := KeyBinding{
		Fingerprint: "SHA256:BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB",
		Username:    "bob",
		TargetHost:  "10.0.0.6",
		TargetPort:  22,
		TargetUser:  "bob",
		Enabled:     true,
	}
	require.NoError(t, store.Insert(ctx, b))
	require.ErrorIs(t, store.Insert(ctx, b), ErrConflict)
}

func TestFindDisabledBindingIsInvisible(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	b := KeyBinding{
		Fingerprint: "SHA256:CCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC",
		Username:    "carol",
		TargetHost:  "10.0.0.7",
		TargetPort:  22,
		TargetUser:  "carol",
		Enabled:     false,
	}
	require.NoError(t, store.Insert(ctx, b))

	got, err := store.Find(ctx, b.Fingerprint)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestFindUnknownFingerprint(t *testing.T) {
	store := openTestStore(t)
	got, err := store.Find(context.Background(), "SHA256:nope")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRouteForProjectsTarget(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	b := KeyBinding{
		Fingerprint: "SHA256:DDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDD",
		Username:    "dave",
		TargetHost:  "10.0.0.8",
		TargetPort:  2200,
		TargetUser:  "dave",
		Enabled:     true,
	}
	require.NoError(t, store.Insert(ctx, b))

	target, err := store.RouteFor(ctx, b.Fingerprint)
	require.NoError(t, err)
	require.NotNil(t, target)
	require.Equal(t, b.TargetHost, target.Host)
	require.Equal(t, b.TargetPort, target.Port)
	require.Equal(t, b.TargetUser, target.User)
}

func TestRecordEventAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordEvent(ctx, ConnectionEvent{
		Fingerprint: "SHA256:EEE",
		SourceIP:    "198.51.100.7",
		Status:      StatusDenied,
	}))

	b := KeyBinding{
		Fingerprint: "SHA256:FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF",
		Username:    "erin",
		TargetHost:  "10.0.0.9",
		TargetPort:  22,
		TargetUser:  "erin",
		Enabled:     true,
	}
	require.NoError(t, store.Insert(ctx, b))

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestInvalidPortRejected(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, port := range []int{0, 65536} {
		b := KeyBinding{
			Fingerprint: "SHA256:badport",
			Username:    "x",
			TargetHost:  "10.0.0.1",
			TargetPort:  port,
			TargetUser:  "x",
			Enabled:     true,
		}
		require.Error(t, store.Insert(ctx, b))
	}
}
