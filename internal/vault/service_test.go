package vault

import (
	"context"
	"errors"
	"testing"

	"lockbox/internal/auth"
	"lockbox/internal/badgerstore"
	"lockbox/internal/models"
	"lockbox/internal/storage"
	"lockbox/internal/store"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	svc   *Service
	store *badgerstore.Store
	blobs *storage.LocalStorage
	alice *models.User
	bob   *models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil)
}

// newTestEnvWith builds the service on top of wrap(store) when wrap is set.
func newTestEnvWith(t *testing.T, wrap func(store.Store) store.Store) *testEnv {
	t.Helper()

	db, err := badgerstore.Open(badgerstore.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	blobs, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	var st store.Store = db
	if wrap != nil {
		st = wrap(db)
	}

	svc, err := NewService(Config{
		Store:  st,
		Blobs:  blobs,
		Hasher: auth.NewBcryptHasher(bcrypt.MinCost),
	})
	require.NoError(t, err)

	ctx := context.Background()
	alice, err := db.CreateUser(ctx, store.CreateUserParams{Username: "alice", PasswordHash: "x"})
	require.NoError(t, err)
	bob, err := db.CreateUser(ctx, store.CreateUserParams{Username: "bob", PasswordHash: "x"})
	require.NoError(t, err)

	return &testEnv{svc: svc, store: db, blobs: blobs, alice: alice, bob: bob}
}

func (e *testEnv) folder(t *testing.T, owner *models.User, name string, parent *models.Node) *models.Node {
	t.Helper()
	node, err := e.svc.CreateFolder(context.Background(), owner.ID, name, idOf(parent))
	require.NoError(t, err)
	return node
}

func (e *testEnv) note(t *testing.T, owner *models.User, title, content string, parent *models.Node) *models.Node {
	t.Helper()
	node, err := e.svc.CreateNote(context.Background(), owner.ID, title, content, idOf(parent))
	require.NoError(t, err)
	return node
}

func (e *testEnv) share(t *testing.T, node *models.Node, grantee *models.User, permission string) *models.Share {
	t.Helper()
	share, err := e.svc.Share(context.Background(), node.OwnerID, ShareRequest{
		ItemID:     node.ID,
		ItemKind:   node.NodeType,
		GranteeID:  grantee.ID,
		Permission: permission,
	})
	require.NoError(t, err)
	return share
}

func (e *testEnv) exists(t *testing.T, id string) bool {
	t.Helper()
	ok, err := e.store.NodeExists(context.Background(), id)
	require.NoError(t, err)
	return ok
}

func idOf(n *models.Node) *string {
	if n == nil {
		return nil
	}
	id := n.ID
	return &id
}

func TestNewService_RequiresDependencies(t *testing.T) {
	_, err := NewService(Config{})
	require.Error(t, err)
}

func TestLockedNoteSharedWithViewer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	note := env.note(t, env.alice, "diary", "hello", nil)
	env.share(t, note, env.bob, models.PermissionView)

	got, err := env.svc.Get(ctx, env.bob.ID, note.ID, "")
	require.NoError(t, err)
	require.Equal(t, "hello", *got.Content)

	locked, err := env.svc.Lock(ctx, env.alice.ID, note.ID, LockRequest{Secret: "s3cret", Reason: "private"})
	require.NoError(t, err)
	require.True(t, locked.IsLocked())
	require.NotEqual(t, "s3cret", locked.Lock.SecretHash)

	_, err = env.svc.Get(ctx, env.bob.ID, note.ID, "")
	require.ErrorIs(t, err, ErrLocked)
	require.NotErrorIs(t, err, ErrInvalidCredential)
	var lockedErr *LockedError
	require.True(t, errors.As(err, &lockedErr))
	require.Equal(t, "private", lockedErr.Reason)
	require.Equal(t, note.ID, lockedErr.NodeID)

	_, err = env.svc.Get(ctx, env.bob.ID, note.ID, "wrong")
	require.ErrorIs(t, err, ErrLocked)
	require.ErrorIs(t, err, ErrInvalidCredential)

	got, err = env.svc.Get(ctx, env.bob.ID, note.ID, "s3cret")
	require.NoError(t, err)
	require.Equal(t, "hello", *got.Content)

	// no secret is remembered between calls
	_, err = env.svc.Get(ctx, env.bob.ID, note.ID, "")
	require.ErrorIs(t, err, ErrLocked)

	got, err = env.svc.Get(ctx, env.alice.ID, note.ID, "")
	require.NoError(t, err)
	require.Equal(t, "hello", *got.Content)

	_, err = env.svc.UpdateNoteContent(ctx, env.bob.ID, note.ID, "changed", "s3cret")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = env.svc.Unlock(ctx, env.bob.ID, note.ID, "s3cret")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = env.svc.Unlock(ctx, env.alice.ID, note.ID, "wrong")
	require.ErrorIs(t, err, ErrInvalidCredential)

	_, err = env.svc.Unlock(ctx, env.alice.ID, note.ID, "")
	require.ErrorIs(t, err, ErrInvalidCredential)

	unlocked, err := env.svc.Unlock(ctx, env.alice.ID, note.ID, "s3cret")
	require.NoError(t, err)
	require.False(t, unlocked.IsLocked())

	_, err = env.svc.Get(ctx, env.bob.ID, note.ID, "")
	require.NoError(t, err)

	_, err = env.svc.Unlock(ctx, env.alice.ID, note.ID, "s3cret")
	require.ErrorIs(t, err, ErrValidation)
}

func TestAuthorize_NoGrant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	note := env.note(t, env.alice, "n", "text", nil)

	_, err := env.svc.Get(ctx, env.bob.ID, note.ID, "")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = env.svc.Get(ctx, env.bob.ID, "missing", "")
	require.ErrorIs(t, err, ErrNotFound)

	d, err := env.svc.Authorize(ctx, env.alice.ID, note.ID, OpDelete, "")
	require.NoError(t, err)
	require.Equal(t, AccessOwner, d.Access)
}

func TestLockedFolderGrantCheckedBeforeLock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f1 := env.folder(t, env.alice, "F1", nil)
	note1 := env.note(t, env.alice, "note1", "contents", f1)

	_, err := env.svc.Lock(ctx, env.alice.ID, f1.ID, LockRequest{Secret: "s3cret", Inherit: true})
	require.NoError(t, err)

	_, err = env.svc.Get(ctx, env.bob.ID, note1.ID, "")
	require.ErrorIs(t, err, ErrForbidden)
	require.NotErrorIs(t, err, ErrLocked)

	// the right secret does not stand in for a grant
	_, err = env.svc.Get(ctx, env.bob.ID, note1.ID, "s3cret")
	require.ErrorIs(t, err, ErrForbidden)

	env.share(t, note1, env.bob, models.PermissionView)

	_, err = env.svc.Get(ctx, env.bob.ID, note1.ID, "")
	require.ErrorIs(t, err, ErrLocked)

	got, err := env.svc.Get(ctx, env.bob.ID, note1.ID, "s3cret")
	require.NoError(t, err)
	require.Equal(t, "contents", *got.Content)

	got, err = env.svc.Get(ctx, env.alice.ID, note1.ID, "")
	require.NoError(t, err)
	require.True(t, got.IsLocked())
}

func TestGrantCoversOnlyTheSharedNode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	folder := env.folder(t, env.alice, "docs", nil)
	inner := env.note(t, env.alice, "inner", "text", folder)
	env.share(t, folder, env.bob, models.PermissionEdit)

	_, err := env.svc.Get(ctx, env.bob.ID, folder.ID, "")
	require.NoError(t, err)

	_, err = env.svc.Get(ctx, env.bob.ID, inner.ID, "")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestEditorPermissions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	note := env.note(t, env.alice, "plan", "v1", nil)
	env.share(t, note, env.bob, models.PermissionEdit)

	updated, err := env.svc.UpdateNoteContent(ctx, env.bob.ID, note.ID, "v2", "")
	require.NoError(t, err)
	require.Equal(t, "v2", *updated.Content)
	require.EqualValues(t, 2, *updated.SizeBytes)

	renamed, err := env.svc.Rename(ctx, env.bob.ID, note.ID, "  plan b  ", "")
	require.NoError(t, err)
	require.Equal(t, "plan b", renamed.Name)

	err = env.svc.Delete(ctx, env.bob.ID, note.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = env.svc.Lock(ctx, env.bob.ID, note.ID, LockRequest{Secret: "x"})
	require.ErrorIs(t, err, ErrForbidden)

	carol, err := env.store.CreateUser(ctx, store.CreateUserParams{Username: "carol", PasswordHash: "x"})
	require.NoError(t, err)
	_, err = env.svc.Share(ctx, env.bob.ID, ShareRequest{
		ItemID: note.ID, ItemKind: models.NodeTypeFile, GranteeID: carol.ID, Permission: models.PermissionView,
	})
	require.ErrorIs(t, err, ErrForbidden)

	// moving to the root is reserved for the owner
	_, err = env.svc.Move(ctx, env.bob.ID, note.ID, nil, "")
	require.ErrorIs(t, err, ErrForbidden)

	require.True(t, env.exists(t, note.ID))
}

func TestViewerCannotWrite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	note := env.note(t, env.alice, "n", "text", nil)
	env.share(t, note, env.bob, models.PermissionView)

	_, err := env.svc.Rename(ctx, env.bob.ID, note.ID, "x", "")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = env.svc.ToggleFavorite(ctx, env.bob.ID, note.ID, "")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = env.svc.UpdateNoteContent(ctx, env.bob.ID, note.ID, "x", "")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestViewerCannotDeleteShareOrLock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	note := env.note(t, env.alice, "n", "text", nil)
	env.share(t, note, env.bob, models.PermissionView)
	carol, err := env.store.CreateUser(ctx, store.CreateUserParams{Username: "carol", PasswordHash: "x"})
	require.NoError(t, err)

	for _, op := range []Operation{OpDelete, OpShare, OpLock} {
		t.Run(op.String(), func(t *testing.T) {
			_, err := env.svc.Authorize(ctx, env.bob.ID, note.ID, op, "")
			require.ErrorIs(t, err, ErrForbidden)
		})
	}

	err = env.svc.Delete(ctx, env.bob.ID, note.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = env.svc.Share(ctx, env.bob.ID, ShareRequest{
		ItemID: note.ID, ItemKind: models.NodeTypeFile, GranteeID: carol.ID, Permission: models.PermissionView,
	})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = env.svc.Lock(ctx, env.bob.ID, note.ID, LockRequest{Secret: "pw"})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = env.svc.Unlock(ctx, env.bob.ID, note.ID, "pw")
	require.ErrorIs(t, err, ErrForbidden)

	got, err := env.svc.Get(ctx, env.bob.ID, note.ID, "")
	require.NoError(t, err)
	require.False(t, got.IsLocked())
	require.True(t, env.exists(t, note.ID))
}

func TestCreateNode_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.CreateFolder(ctx, env.alice.ID, "   ", nil)
	require.ErrorIs(t, err, ErrValidation)

	missing := "missing"
	_, err = env.svc.CreateFolder(ctx, env.alice.ID, "a", &missing)
	require.ErrorIs(t, err, ErrNotFound)

	bobs := env.folder(t, env.bob, "bobs", nil)
	_, err = env.svc.CreateFolder(ctx, env.alice.ID, "a", idOf(bobs))
	require.ErrorIs(t, err, ErrForbidden)

	note := env.note(t, env.alice, "n", "", nil)
	_, err = env.svc.CreateFolder(ctx, env.alice.ID, "a", idOf(note))
	require.ErrorIs(t, err, ErrValidation)
}

func TestToggleFavorite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	folder := env.folder(t, env.alice, "f", nil)

	node, err := env.svc.ToggleFavorite(ctx, env.alice.ID, folder.ID, "")
	require.NoError(t, err)
	require.True(t, node.IsFavorite)

	node, err = env.svc.ToggleFavorite(ctx, env.alice.ID, folder.ID, "")
	require.NoError(t, err)
	require.False(t, node.IsFavorite)
}

func TestMove(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.folder(t, env.alice, "a", nil)
	b := env.folder(t, env.alice, "b", a)
	c := env.folder(t, env.alice, "c", b)
	other := env.folder(t, env.alice, "other", nil)

	_, err := env.svc.Move(ctx, env.alice.ID, a.ID, idOf(c), "")
	require.ErrorIs(t, err, ErrValidation)

	_, err = env.svc.Move(ctx, env.alice.ID, a.ID, idOf(a), "")
	require.ErrorIs(t, err, ErrValidation)

	moved, err := env.svc.Move(ctx, env.alice.ID, b.ID, idOf(other), "")
	require.NoError(t, err)
	require.Equal(t, other.ID, *moved.ParentID)

	moved, err = env.svc.Move(ctx, env.alice.ID, c.ID, nil, "")
	require.NoError(t, err)
	require.Nil(t, moved.ParentID)

	bobs := env.folder(t, env.bob, "bobs", nil)
	env.share(t, bobs, env.alice, models.PermissionEdit)
	_, err = env.svc.Move(ctx, env.alice.ID, c.ID, idOf(bobs), "")
	require.ErrorIs(t, err, ErrValidation)

	note := env.note(t, env.alice, "n", "", nil)
	_, err = env.svc.Move(ctx, env.alice.ID, c.ID, idOf(note), "")
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdate_FailedMoveKeepsName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	folder := env.folder(t, env.alice, "folder", nil)
	child := env.folder(t, env.alice, "child", folder)

	newName := "renamed"
	_, err := env.svc.Update(ctx, env.alice.ID, folder.ID, UpdateParams{Name: &newName, Move: true, ParentID: idOf(child)}, "")
	require.ErrorIs(t, err, ErrValidation)

	got, err := env.store.GetNode(ctx, folder.ID)
	require.NoError(t, err)
	require.Equal(t, "folder", got.Name)
	require.Nil(t, got.ParentID)

	other := env.folder(t, env.alice, "other", nil)
	updated, err := env.svc.Update(ctx, env.alice.ID, child.ID, UpdateParams{Name: &newName, Move: true, ParentID: idOf(other)}, "")
	require.NoError(t, err)
	require.Equal(t, "renamed", updated.Name)
	require.Equal(t, other.ID, *updated.ParentID)

	_, err = env.svc.Update(ctx, env.alice.ID, child.ID, UpdateParams{}, "")
	require.ErrorIs(t, err, ErrValidation)
}

func TestMoveIntoInheritLockedFolder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	vaultDir := env.folder(t, env.alice, "vault", nil)
	loose := env.note(t, env.alice, "loose", "x", nil)
	box := env.folder(t, env.alice, "box", nil)
	boxed := env.note(t, env.alice, "boxed", "y", box)

	_, err := env.svc.Lock(ctx, env.alice.ID, vaultDir.ID, LockRequest{Secret: "pw", Inherit: true})
	require.NoError(t, err)

	moved, err := env.svc.Move(ctx, env.alice.ID, loose.ID, idOf(vaultDir), "")
	require.NoError(t, err)
	require.True(t, moved.IsLocked())
	require.False(t, moved.Lock.Inherit)

	moved, err = env.svc.Move(ctx, env.alice.ID, box.ID, idOf(vaultDir), "")
	require.NoError(t, err)
	require.True(t, moved.IsLocked())
	require.True(t, moved.Lock.Inherit)

	got, err := env.store.GetNode(ctx, boxed.ID)
	require.NoError(t, err)
	require.True(t, got.IsLocked())

	// leaving the folder keeps the lock
	moved, err = env.svc.Move(ctx, env.alice.ID, loose.ID, nil, "")
	require.NoError(t, err)
	require.True(t, moved.IsLocked())

	_, err = env.svc.Unlock(ctx, env.alice.ID, vaultDir.ID, "pw")
	require.NoError(t, err)
	got, err = env.store.GetNode(ctx, boxed.ID)
	require.NoError(t, err)
	require.False(t, got.IsLocked())
}

func TestEventsAreJournaled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	note := env.note(t, env.alice, "n", "", nil)
	env.share(t, note, env.bob, models.PermissionView)

	aliceEvents, err := env.svc.Events(ctx, env.alice.ID, 0)
	require.NoError(t, err)
	require.Len(t, aliceEvents, 2)
	require.Equal(t, "node_created", aliceEvents[0].EventType)
	require.Equal(t, "share_created", aliceEvents[1].EventType)

	bobEvents, err := env.svc.Events(ctx, env.bob.ID, 0)
	require.NoError(t, err)
	require.Len(t, bobEvents, 1)
	require.Equal(t, "share_received", bobEvents[0].EventType)

	later, err := env.svc.Events(ctx, env.alice.ID, aliceEvents[0].ID)
	require.NoError(t, err)
	require.Len(t, later, 1)
}

type recordingPublisher struct {
	users []int64
}

func (p *recordingPublisher) PublishEvent(userID int64, _ []byte) {
	p.users = append(p.users, userID)
}

func TestEventsPublishedAfterCommit(t *testing.T) {
	db, err := badgerstore.Open(badgerstore.Options{InMemory: true})
	require.NoError(t, err)
	defer db.Close()
	blobs, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	pub := &recordingPublisher{}
	svc, err := NewService(Config{Store: db, Blobs: blobs, Hasher: auth.NewBcryptHasher(bcrypt.MinCost), Publisher: pub})
	require.NoError(t, err)

	ctx := context.Background()
	user, err := db.CreateUser(ctx, store.CreateUserParams{Username: "u", PasswordHash: "x"})
	require.NoError(t, err)

	_, err = svc.CreateFolder(ctx, user.ID, "f", nil)
	require.NoError(t, err)
	require.Equal(t, []int64{user.ID}, pub.users)

	_, err = svc.CreateFolder(ctx, user.ID, "", nil)
	require.Error(t, err)
	require.Len(t, pub.users, 1)
}
