package vault

import (
	"context"
	"errors"
	"testing"

	"lockbox/internal/models"
	"lockbox/internal/store"

	"github.com/stretchr/testify/require"
)

// failingStore hands ExecTx callers a Querier whose DeleteNode fails for one id.
type failingStore struct {
	store.Store
	failID string
}

func (s *failingStore) ExecTx(ctx context.Context, fn func(store.Querier) error) error {
	return s.Store.ExecTx(ctx, func(q store.Querier) error {
		return fn(&failingQuerier{Querier: q, failID: s.failID})
	})
}

type failingQuerier struct {
	store.Querier
	failID string
}

var errInjected = errors.New("injected failure")

func (q *failingQuerier) DeleteNode(ctx context.Context, id string) (bool, error) {
	if id == q.failID {
		return false, errInjected
	}
	return q.Querier.DeleteNode(ctx, id)
}

func TestDeleteFolderCascade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f1 := env.folder(t, env.alice, "F1", nil)
	f2 := env.folder(t, env.alice, "F2", f1)
	deep := env.note(t, env.alice, "deep", "x", f2)
	top := env.note(t, env.alice, "top", "y", f1)
	keep := env.note(t, env.alice, "keep", "z", nil)

	env.share(t, top, env.bob, models.PermissionView)
	env.share(t, f2, env.bob, models.PermissionEdit)

	require.NoError(t, env.svc.Delete(ctx, env.alice.ID, f1.ID))

	for _, id := range []string{f1.ID, f2.ID, deep.ID, top.ID} {
		require.False(t, env.exists(t, id), id)
	}
	require.True(t, env.exists(t, keep.ID))

	shared, err := env.svc.ListSharedWithMe(ctx, env.bob.ID)
	require.NoError(t, err)
	require.Empty(t, shared)

	outgoing, err := env.svc.ListOutgoingShares(ctx, env.alice.ID)
	require.NoError(t, err)
	require.Empty(t, outgoing)

	err = env.svc.Delete(ctx, env.alice.ID, f1.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRemovesBlobs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	folder := env.folder(t, env.alice, "pics", nil)
	file := uploadTestFile(t, env, env.alice, "cat.png", "image/png", "meow", folder)

	require.NoError(t, env.svc.Delete(ctx, env.alice.ID, folder.ID))

	_, err := env.blobs.Get(ctx, *file.StorageRef)
	require.Error(t, err)
}

func TestDeleteAbortedPartWayRollsBack(t *testing.T) {
	var failing *failingStore
	env := newTestEnvWith(t, func(s store.Store) store.Store {
		failing = &failingStore{Store: s}
		return failing
	})
	ctx := context.Background()

	f1 := env.folder(t, env.alice, "F1", nil)
	f2 := env.folder(t, env.alice, "F2", f1)
	deep := env.note(t, env.alice, "deep", "x", f2)
	top := env.note(t, env.alice, "top", "y", f1)
	env.share(t, deep, env.bob, models.PermissionView)

	failing.failID = f2.ID
	err := env.svc.Delete(ctx, env.alice.ID, f1.ID)
	require.ErrorIs(t, err, ErrPartialDelete)
	require.ErrorIs(t, err, errInjected)

	var partial *PartialDeleteError
	require.True(t, errors.As(err, &partial))
	require.Equal(t, f1.ID, partial.RootID)
	require.Equal(t, f2.ID, partial.FailedID)
	require.Equal(t, []string{deep.ID}, partial.Removed)
	require.True(t, partial.RolledBack)

	for _, id := range []string{f1.ID, f2.ID, deep.ID, top.ID} {
		require.True(t, env.exists(t, id), id)
	}

	_, err = env.svc.Get(ctx, env.bob.ID, deep.ID, "")
	require.NoError(t, err)
}

func TestDeleteForbiddenIsNotPartial(t *testing.T) {
	env := newTestEnv(t)

	folder := env.folder(t, env.alice, "f", nil)
	err := env.svc.Delete(context.Background(), env.bob.ID, folder.ID)
	require.ErrorIs(t, err, ErrForbidden)
	require.NotErrorIs(t, err, ErrPartialDelete)
}

func TestInheritedLockCascade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f1 := env.folder(t, env.alice, "F1", nil)
	f2 := env.folder(t, env.alice, "F2", f1)
	deep := env.note(t, env.alice, "deep", "x", f2)

	locked, err := env.svc.Lock(ctx, env.alice.ID, f1.ID, LockRequest{Secret: "pw", Inherit: true})
	require.NoError(t, err)
	require.True(t, locked.Lock.Inherit)

	got, err := env.store.GetNode(ctx, f2.ID)
	require.NoError(t, err)
	require.True(t, got.IsLocked())
	require.True(t, got.Lock.Inherit)

	got, err = env.store.GetNode(ctx, deep.ID)
	require.NoError(t, err)
	require.True(t, got.IsLocked())
	require.False(t, got.Lock.Inherit)

	later := env.note(t, env.alice, "later", "", f2)
	require.True(t, later.IsLocked())

	env.share(t, deep, env.bob, models.PermissionView)
	_, err = env.svc.Get(ctx, env.bob.ID, deep.ID, "")
	require.ErrorIs(t, err, ErrLocked)
	_, err = env.svc.Get(ctx, env.bob.ID, deep.ID, "pw")
	require.NoError(t, err)

	_, err = env.svc.Unlock(ctx, env.alice.ID, f1.ID, "pw")
	require.NoError(t, err)

	for _, id := range []string{f1.ID, f2.ID, deep.ID, later.ID} {
		node, err := env.store.GetNode(ctx, id)
		require.NoError(t, err)
		require.False(t, node.IsLocked(), id)
	}
}

func TestLockWithoutInherit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	folder := env.folder(t, env.alice, "F", nil)
	child := env.note(t, env.alice, "child", "", folder)

	locked, err := env.svc.Lock(ctx, env.alice.ID, folder.ID, LockRequest{Secret: "pw"})
	require.NoError(t, err)
	require.False(t, locked.Lock.Inherit)

	got, err := env.store.GetNode(ctx, child.ID)
	require.NoError(t, err)
	require.False(t, got.IsLocked())

	_, err = env.svc.Lock(ctx, env.alice.ID, folder.ID, LockRequest{})
	require.ErrorIs(t, err, ErrValidation)

	// inherit has no meaning on a file
	file, err := env.svc.Lock(ctx, env.alice.ID, child.ID, LockRequest{Secret: "pw", Inherit: true})
	require.NoError(t, err)
	require.False(t, file.Lock.Inherit)
}

func TestRelockReplacesSecret(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	note := env.note(t, env.alice, "n", "", nil)
	_, err := env.svc.Lock(ctx, env.alice.ID, note.ID, LockRequest{Secret: "old"})
	require.NoError(t, err)
	_, err = env.svc.Lock(ctx, env.alice.ID, note.ID, LockRequest{Secret: "new"})
	require.NoError(t, err)

	_, err = env.svc.Unlock(ctx, env.alice.ID, note.ID, "old")
	require.ErrorIs(t, err, ErrInvalidCredential)
	_, err = env.svc.Unlock(ctx, env.alice.ID, note.ID, "new")
	require.NoError(t, err)
}

func TestSubtreeIsPostOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.folder(t, env.alice, "root", nil)
	a := env.folder(t, env.alice, "a", root)
	b := env.folder(t, env.alice, "b", root)
	a1 := env.note(t, env.alice, "a1", "", a)
	aa := env.folder(t, env.alice, "aa", a)
	aa1 := env.note(t, env.alice, "aa1", "", aa)
	b1 := env.note(t, env.alice, "b1", "", b)

	position := map[string]int{}
	for node, err := range Subtree(ctx, env.store, root.ID) {
		require.NoError(t, err)
		position[node.ID] = len(position)
	}

	require.Len(t, position, 6)
	require.NotContains(t, position, root.ID)
	require.Less(t, position[a1.ID], position[a.ID])
	require.Less(t, position[aa.ID], position[a.ID])
	require.Less(t, position[aa1.ID], position[aa.ID])
	require.Less(t, position[b1.ID], position[b.ID])
}

func TestIsDescendant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.folder(t, env.alice, "a", nil)
	b := env.folder(t, env.alice, "b", a)
	c := env.note(t, env.alice, "c", "", b)

	below, err := IsDescendant(ctx, env.store, c.ID, a.ID)
	require.NoError(t, err)
	require.True(t, below)

	below, err = IsDescendant(ctx, env.store, a.ID, c.ID)
	require.NoError(t, err)
	require.False(t, below)

	below, err = IsDescendant(ctx, env.store, a.ID, a.ID)
	require.NoError(t, err)
	require.False(t, below)

	_, err = IsDescendant(ctx, env.store, "missing", a.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
