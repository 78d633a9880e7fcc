package vault

import (
	"context"
	"testing"

	"lockbox/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestShare_UpsertKeepsOneGrant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	note := env.note(t, env.alice, "n", "", nil)
	first := env.share(t, note, env.bob, "")
	require.Equal(t, models.PermissionView, first.Permission)

	second := env.share(t, note, env.bob, models.PermissionEdit)
	require.Equal(t, models.PermissionEdit, second.Permission)

	outgoing, err := env.svc.ListOutgoingShares(ctx, env.alice.ID)
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	require.Equal(t, "n", outgoing[0].NodeName)
	require.Equal(t, "bob", outgoing[0].GranteeName)
	require.Equal(t, models.PermissionEdit, outgoing[0].Permission)
}

func TestShare_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	note := env.note(t, env.alice, "n", "", nil)

	tests := []struct {
		name string
		req  ShareRequest
		want error
	}{
		{"self", ShareRequest{ItemID: note.ID, ItemKind: models.NodeTypeFile, GranteeID: env.alice.ID}, ErrValidation},
		{"kind mismatch", ShareRequest{ItemID: note.ID, ItemKind: models.NodeTypeFolder, GranteeID: env.bob.ID}, ErrValidation},
		{"bad kind", ShareRequest{ItemID: note.ID, ItemKind: "link", GranteeID: env.bob.ID}, ErrValidation},
		{"bad permission", ShareRequest{ItemID: note.ID, ItemKind: models.NodeTypeFile, GranteeID: env.bob.ID, Permission: "admin"}, ErrValidation},
		{"unknown grantee", ShareRequest{ItemID: note.ID, ItemKind: models.NodeTypeFile, GranteeID: 9999}, ErrNotFound},
		{"unknown item", ShareRequest{ItemID: "missing", ItemKind: models.NodeTypeFile, GranteeID: env.bob.ID}, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Share(ctx, env.alice.ID, tt.req)
			require.ErrorIs(t, err, tt.want)
		})
	}

	_, err := env.svc.Share(ctx, env.bob.ID, ShareRequest{ItemID: note.ID, ItemKind: models.NodeTypeFile, GranteeID: env.bob.ID})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestRevokeShare(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	note := env.note(t, env.alice, "n", "", nil)
	share := env.share(t, note, env.bob, models.PermissionView)

	err := env.svc.RevokeShare(ctx, env.bob.ID, share.ID)
	require.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, env.svc.RevokeShare(ctx, env.alice.ID, share.ID))

	_, err = env.svc.Get(ctx, env.bob.ID, note.ID, "")
	require.ErrorIs(t, err, ErrForbidden)

	err = env.svc.RevokeShare(ctx, env.alice.ID, share.ID)
	require.ErrorIs(t, err, ErrNotFound)

	err = env.svc.RevokeShare(ctx, env.alice.ID, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListSharedWithMe_HidesLockedContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	open := env.note(t, env.alice, "open", "visible", nil)
	secret := env.note(t, env.alice, "secret", "hidden", nil)
	env.share(t, open, env.bob, models.PermissionView)
	env.share(t, secret, env.bob, models.PermissionView)

	_, err := env.svc.Lock(ctx, env.alice.ID, secret.ID, LockRequest{Secret: "pw"})
	require.NoError(t, err)

	items, err := env.svc.ListSharedWithMe(ctx, env.bob.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	byName := map[string]SharedItem{}
	for _, item := range items {
		require.Equal(t, "alice", item.OwnerName)
		byName[item.Node.Name] = item
	}
	require.Equal(t, "visible", *byName["open"].Node.Content)
	require.Nil(t, byName["secret"].Node.Content)
	locked := byName["secret"].Node
	require.True(t, locked.IsLocked())
}
