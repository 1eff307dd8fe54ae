package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedInbox(t *testing.T, env *testEnv, eventIDs ...string) {
	t.Helper()
	for _, id := range eventIDs {
		require.NoError(t, env.notifications.Fanout(context.Background(), plantEvent(id)))
	}
}

func TestInboxListWithUnreadCount(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seedInbox(t, env, "evt-1", "evt-2", "evt-3")

	entries, unread, err := env.inbox.List(ctx, "mgr-1", 10, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, int64(3), unread)

	// newest first
	assert.True(t, !entries[0].CreatedAt.Before(entries[1].CreatedAt))

	// pagination
	page, _, err := env.inbox.List(ctx, "mgr-1", 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestInboxMarkRead(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seedInbox(t, env, "evt-1")

	entries, _, err := env.inbox.List(ctx, "mgr-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, env.inbox.MarkRead(ctx, "mgr-1", entries[0].ID))

	entries, unread, err := env.inbox.List(ctx, "mgr-1", 10, 0)
	require.NoError(t, err)
	assert.True(t, entries[0].Read)
	assert.Zero(t, unread)

	// marking again is fine; the flag only ever moves to read
	require.NoError(t, env.inbox.MarkRead(ctx, "mgr-1", entries[0].ID))
}

func TestInboxMarkReadUnknownEntry(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seedInbox(t, env, "evt-1")

	assertCode(t, env.inbox.MarkRead(ctx, "mgr-1", "no-such-entry"), "NOT_FOUND")

	// one user's entry is invisible to another
	entries, _, err := env.inbox.List(ctx, "mgr-1", 10, 0)
	require.NoError(t, err)
	assertCode(t, env.inbox.MarkRead(ctx, "tech-2", entries[0].ID), "NOT_FOUND")
}

func TestInboxMarkAllRead(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seedInbox(t, env, "evt-1", "evt-2")

	require.NoError(t, env.inbox.MarkAllRead(ctx, "mgr-1"))

	_, unread, err := env.inbox.List(ctx, "mgr-1", 10, 0)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestInboxDeleteAndClear(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seedInbox(t, env, "evt-1", "evt-2")

	entries, _, err := env.inbox.List(ctx, "mgr-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.NoError(t, env.inbox.Delete(ctx, "mgr-1", entries[0].ID))
	assertCode(t, env.inbox.Delete(ctx, "mgr-1", entries[0].ID), "NOT_FOUND")

	require.NoError(t, env.inbox.Clear(ctx, "mgr-1"))
	entries, unread, err := env.inbox.List(ctx, "mgr-1", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, unread)
}
