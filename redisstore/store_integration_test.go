//go:build integration

package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/velmie/tracker"
	"github.com/velmie/tracker/internal/testutil"
	"github.com/velmie/tracker/redisstore"
)

func TestStoreAgainstRedisIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	addr := testutil.StartRedisContainer(t, ctx)

	store, err := redisstore.NewFromURL(ctx, "redis://"+addr+"/0", redisstore.WithTTL(time.Hour))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.Load(ctx, tracker.DefaultStorageKey)
	require.ErrorIs(t, err, tracker.ErrNotFound)

	require.NoError(t, store.Save(ctx, tracker.DefaultStorageKey, []byte(`{"track":[],"engage":[]}`)))
	got, err := store.Load(ctx, tracker.DefaultStorageKey)
	require.NoError(t, err)
	require.JSONEq(t, `{"track":[],"engage":[]}`, string(got))

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{tracker.DefaultStorageKey}, keys)
}
